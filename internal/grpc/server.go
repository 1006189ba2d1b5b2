package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/mr1hm/go-trial-monitor/internal/apperr"
	"github.com/mr1hm/go-trial-monitor/internal/models"
)

// MonitorService is the subset of monitor.Service exposed over gRPC.
type MonitorService interface {
	GetAnalytics(ctx context.Context) (models.AnalyticsSnapshot, error)
	GetStatus(ctx context.Context, clinicID string) (models.ClinicStatus, error)
	GetAlerts(ctx context.Context) ([]models.Alert, error)
	GetAlertHistory(ctx context.Context, clinicID string) ([]models.Alert, error)
	ResolveAlert(ctx context.Context, alertID string) (*models.Alert, error)
}

type Server struct {
	svc         MonitorService
	broadcaster *Broadcaster
	grpcServer  *grpc.Server
}

func NewServer(svc MonitorService, broadcaster *Broadcaster) *Server {
	s := &Server{
		svc:         svc,
		broadcaster: broadcaster,
		grpcServer:  grpc.NewServer(),
	}
	RegisterMonitorServiceServer(s.grpcServer, s)
	return s
}

func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	slog.Info("gRPC server listening", "addr", addr)
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}

func (s *Server) GetAnalytics(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snap, err := s.svc.GetAnalytics(ctx)
	if err != nil {
		return nil, toStatus(err, "failed to build analytics")
	}
	return toStruct(snap)
}

func (s *Server) GetClinicStatus(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "clinic id is required")
	}

	st, err := s.svc.GetStatus(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err, "failed to get clinic status")
	}
	return toStruct(st)
}

// ListAlerts accepts optional "clinicId" and "includeResolved" fields.
// Without includeResolved only open alerts are returned.
func (s *Server) ListAlerts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	clinicID := req.GetFields()["clinicId"].GetStringValue()
	includeResolved := req.GetFields()["includeResolved"].GetBoolValue()

	var (
		alerts []models.Alert
		err    error
	)
	if includeResolved {
		alerts, err = s.svc.GetAlertHistory(ctx, clinicID)
	} else {
		alerts, err = s.svc.GetAlerts(ctx)
		if err == nil && clinicID != "" {
			alerts = filterAlerts(alerts, AlertFilter{ClinicID: clinicID})
		}
	}
	if err != nil {
		return nil, toStatus(err, "failed to list alerts")
	}

	if alerts == nil {
		alerts = []models.Alert{}
	}
	return toStruct(map[string]any{"alerts": alerts})
}

func (s *Server) ResolveAlert(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "alert id is required")
	}

	a, err := s.svc.ResolveAlert(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err, "failed to resolve alert")
	}
	return toStruct(a)
}

// StreamAlerts pushes alerts as they are raised. The request may carry
// "clinicId" and "minSeverity" fields to narrow the stream.
func (s *Server) StreamAlerts(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	filter := AlertFilter{
		ClinicID:    req.GetFields()["clinicId"].GetStringValue(),
		MinSeverity: models.AlertSeverity(req.GetFields()["minSeverity"].GetStringValue()),
	}
	if filter.MinSeverity != "" && filter.MinSeverity.Rank() == 0 {
		return status.Errorf(codes.InvalidArgument, "unknown severity %q", filter.MinSeverity)
	}

	id, ch := s.broadcaster.Subscribe(filter)
	defer s.broadcaster.Unsubscribe(id)

	slog.Info("client subscribed to alert stream", "subscriber_id", id, "clinic_id", filter.ClinicID, "min_severity", filter.MinSeverity)

	for {
		select {
		case <-stream.Context().Done():
			slog.Info("client disconnected from alert stream", "subscriber_id", id)
			return nil
		case a, ok := <-ch:
			if !ok {
				return nil
			}

			msg, err := toStruct(a)
			if err != nil {
				return err
			}
			if err := stream.Send(msg); err != nil {
				slog.Error("failed to send alert to stream", "error", err, "subscriber_id", id)
				return err
			}
		}
	}
}

func filterAlerts(alerts []models.Alert, f AlertFilter) []models.Alert {
	out := make([]models.Alert, 0, len(alerts))
	for i := range alerts {
		if f.Match(&alerts[i]) {
			out = append(out, alerts[i])
		}
	}
	return out
}

// toStruct converts v to a Struct through its JSON form, so gRPC clients see
// the same field names as the HTTP API.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func toStatus(err error, msg string) error {
	switch {
	case apperr.IsValidation(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case apperr.IsNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	case apperr.IsTransient(err):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Errorf(codes.Internal, "%s: %v", msg, err)
	}
}
