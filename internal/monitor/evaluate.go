package monitor

import (
	"context"
	"log/slog"

	"github.com/mr1hm/go-trial-monitor/internal/analytics"
	"github.com/mr1hm/go-trial-monitor/internal/models"
	"github.com/mr1hm/go-trial-monitor/internal/repository"
)

// EvaluateClinic derives the clinic's status and raises any alert it calls
// for. Only alerts that were actually stored are returned and published.
func (s *Service) EvaluateClinic(ctx context.Context, clinicID string) (models.ClinicStatus, []models.Alert, error) {
	st, err := s.GetStatus(ctx, clinicID)
	if err != nil {
		return models.ClinicStatus{}, nil, err
	}

	unresolved := false
	existing, err := s.repo.ListAlerts(ctx, repository.Filter{ClinicID: clinicID, Resolved: &unresolved})
	if err != nil {
		return st, nil, err
	}

	raised, err := s.store(ctx, analytics.GenerateAlerts([]models.ClinicStatus{st}, existing, s.now(), s.Policy()))
	return st, raised, err
}

// Evaluate runs EvaluateClinic over every clinic in a single pass.
func (s *Service) Evaluate(ctx context.Context) ([]models.Alert, error) {
	statuses, err := s.GetAllClinics(ctx)
	if err != nil {
		return nil, err
	}

	unresolved := false
	existing, err := s.repo.ListAlerts(ctx, repository.Filter{Resolved: &unresolved})
	if err != nil {
		return nil, err
	}

	return s.store(ctx, analytics.GenerateAlerts(statuses, existing, s.now(), s.Policy()))
}

func (s *Service) store(ctx context.Context, candidates []models.Alert) ([]models.Alert, error) {
	var raised []models.Alert
	for i := range candidates {
		a := &candidates[i]
		inserted, err := s.repo.AddAlertIfAbsent(ctx, a)
		if err != nil {
			return raised, err
		}
		if !inserted {
			continue
		}

		slog.Warn("alert raised",
			"alert_id", a.ID,
			"clinic_id", a.ClinicID,
			"type", a.Type,
			"severity", a.Severity,
		)
		if s.publisher != nil {
			s.publisher.Broadcast(a)
		}
		raised = append(raised, *a)
	}
	return raised, nil
}
