// Package monitor serves the dashboard calls on top of the repository and
// the aggregation engine.
package monitor

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/mr1hm/go-trial-monitor/internal/analytics"
	"github.com/mr1hm/go-trial-monitor/internal/apperr"
	"github.com/mr1hm/go-trial-monitor/internal/models"
	"github.com/mr1hm/go-trial-monitor/internal/repository"
)

// Publisher receives alerts as soon as they are stored.
type Publisher interface {
	Broadcast(a *models.Alert)
}

type Service struct {
	repo      repository.Repository
	now       func() time.Time
	loc       *time.Location
	publisher Publisher

	mu     sync.RWMutex
	policy analytics.Policy
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the time zone used to bucket fever chart days.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func NewService(repo repository.Repository, policy analytics.Policy, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		now:    time.Now,
		loc:    time.UTC,
		policy: policy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Policy() analytics.Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

func (s *Service) SetPolicy(p analytics.Policy) error {
	if err := p.Validate(); err != nil {
		return apperr.Validation("policy", "%v", err)
	}
	s.mu.Lock()
	s.policy = p
	s.mu.Unlock()
	slog.Info("risk policy updated",
		"delay_threshold", p.DelayThreshold,
		"fever_medium", p.FeverMedium,
		"fever_high", p.FeverHigh,
	)
	return nil
}

func (s *Service) ensureClinic(ctx context.Context, clinicID string) error {
	if clinicID == "" {
		return apperr.Validation("clinicId", "is required")
	}
	exists, err := s.repo.ClinicExists(ctx, clinicID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("clinic", clinicID)
	}
	return nil
}

// RegisterClinic adds a clinic with no updates. It is a no-op if the clinic
// already exists.
func (s *Service) RegisterClinic(ctx context.Context, clinicID string) error {
	if clinicID == "" {
		return apperr.Validation("clinicId", "is required")
	}
	exists, err := s.repo.ClinicExists(ctx, clinicID)
	if err != nil || exists {
		return err
	}
	if err := s.repo.AddClinic(ctx, &models.Clinic{ID: clinicID, Name: clinicID, CreatedAt: s.now()}); err != nil {
		return err
	}
	slog.Info("clinic registered", "clinic_id", clinicID)
	return nil
}

// GetUpdates returns a clinic's updates, most recent first.
func (s *Service) GetUpdates(ctx context.Context, clinicID string) ([]models.UpdateRecord, error) {
	if err := s.ensureClinic(ctx, clinicID); err != nil {
		return nil, err
	}
	updates, err := s.repo.ListUpdates(ctx, repository.Filter{ClinicID: clinicID})
	if err != nil {
		return nil, err
	}
	if updates == nil {
		updates = []models.UpdateRecord{}
	}
	return updates, nil
}

func (s *Service) GetStatus(ctx context.Context, clinicID string) (models.ClinicStatus, error) {
	updates, err := s.GetUpdates(ctx, clinicID)
	if err != nil {
		return models.ClinicStatus{}, err
	}
	return analytics.DeriveStatus(clinicID, updates, s.now(), s.Policy())
}

func (s *Service) GetClinicData(ctx context.Context, clinicID string) (models.ClinicData, error) {
	updates, err := s.GetUpdates(ctx, clinicID)
	if err != nil {
		return models.ClinicData{}, err
	}
	st, err := analytics.DeriveStatus(clinicID, updates, s.now(), s.Policy())
	if err != nil {
		return models.ClinicData{}, err
	}
	return models.ClinicData{Updates: updates, Status: st}, nil
}

func (s *Service) ClinicIDs(ctx context.Context) ([]string, error) {
	clinics, err := s.repo.ListClinics(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(clinics, func(c models.Clinic, _ int) string { return c.ID }), nil
}

// histories returns every known clinic mapped to its updates. Clinics that
// never submitted map to nil.
func (s *Service) histories(ctx context.Context) (map[string][]models.UpdateRecord, error) {
	ids, err := s.ClinicIDs(ctx)
	if err != nil {
		return nil, err
	}
	updates, err := s.repo.ListUpdates(ctx, repository.Filter{})
	if err != nil {
		return nil, err
	}
	grouped := lo.GroupBy(updates, func(u models.UpdateRecord) string { return u.ClinicID })

	out := make(map[string][]models.UpdateRecord, len(ids))
	for _, id := range ids {
		out[id] = grouped[id]
	}
	return out, nil
}

func (s *Service) GetAllClinics(ctx context.Context) ([]models.ClinicStatus, error) {
	hist, err := s.histories(ctx)
	if err != nil {
		return nil, err
	}
	ids := lo.Keys(hist)
	slices.Sort(ids)

	now, policy := s.now(), s.Policy()
	statuses := make([]models.ClinicStatus, 0, len(ids))
	for _, id := range ids {
		st, err := analytics.DeriveStatus(id, hist[id], now, policy)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

func (s *Service) GetAnalytics(ctx context.Context) (models.AnalyticsSnapshot, error) {
	hist, err := s.histories(ctx)
	if err != nil {
		return models.AnalyticsSnapshot{}, err
	}
	return analytics.BuildAnalytics(hist, s.now(), s.Policy())
}

func (s *Service) GetFeverChart(ctx context.Context) ([]models.FeverChartRow, error) {
	snap, err := s.GetAnalytics(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.PivotFeverTrends(snap.FeverTrends, s.loc), nil
}

// GetAlerts returns unresolved alerts, newest first.
func (s *Service) GetAlerts(ctx context.Context) ([]models.Alert, error) {
	unresolved := false
	alerts, err := s.repo.ListAlerts(ctx, repository.Filter{Resolved: &unresolved})
	if err != nil {
		return nil, err
	}
	return analytics.ActiveAlerts(alerts), nil
}

// GetAlertHistory returns every alert, resolved ones included, newest first.
func (s *Service) GetAlertHistory(ctx context.Context, clinicID string) ([]models.Alert, error) {
	alerts, err := s.repo.ListAlerts(ctx, repository.Filter{ClinicID: clinicID})
	if err != nil {
		return nil, err
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	return alerts, nil
}

func (s *Service) ResolveAlert(ctx context.Context, alertID string) (*models.Alert, error) {
	if alertID == "" {
		return nil, apperr.Validation("alertId", "is required")
	}
	a, err := s.repo.ResolveAlert(ctx, alertID, s.now())
	if err != nil {
		return nil, err
	}
	slog.Info("alert resolved", "alert_id", a.ID, "clinic_id", a.ClinicID, "type", a.Type)
	return a, nil
}

// SubmitUpdate validates and stores a new update for clinicID. Nothing is
// written when validation fails.
func (s *Service) SubmitUpdate(ctx context.Context, clinicID string, in models.UpdateInput) (*models.UpdateRecord, error) {
	if err := analytics.ValidateInput(in); err != nil {
		return nil, err
	}
	if err := s.ensureClinic(ctx, clinicID); err != nil {
		return nil, err
	}

	sideEffects := lo.FilterMap(in.SideEffects, func(e string, _ int) (string, bool) {
		e = strings.TrimSpace(e)
		return e, e != ""
	})

	u := &models.UpdateRecord{
		ID:           uuid.NewString(),
		ClinicID:     clinicID,
		Timestamp:    s.now(),
		PatientCount: in.PatientCount,
		AvgFever:     in.AvgFever,
		SideEffects:  sideEffects,
		Notes:        strings.TrimSpace(in.Notes),
	}
	if err := s.repo.AddUpdate(ctx, u); err != nil {
		return nil, err
	}

	slog.Info("update submitted", "clinic_id", clinicID, "update_id", u.ID, "patients", u.PatientCount)
	return u, nil
}
