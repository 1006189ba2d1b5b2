package repository

import (
	"context"
	"time"

	"github.com/mr1hm/go-trial-monitor/internal/models"
)

type Filter struct {
	Limit    int
	ClinicID string
	Since    *time.Time
	Type     *models.AlertType
	Resolved *bool
}

type ClinicRepository interface {
	AddClinic(ctx context.Context, c *models.Clinic) error
	ClinicExists(ctx context.Context, id string) (bool, error)
	ListClinics(ctx context.Context) ([]models.Clinic, error)
}

type UpdateRepository interface {
	AddUpdate(ctx context.Context, u *models.UpdateRecord) error
	// ListUpdates returns updates newest first.
	ListUpdates(ctx context.Context, opts Filter) ([]models.UpdateRecord, error)
}

type AlertRepository interface {
	// AddAlertIfAbsent stores a unless an unresolved alert with the same
	// clinic and type already exists. It reports whether a was stored.
	AddAlertIfAbsent(ctx context.Context, a *models.Alert) (bool, error)
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	ListAlerts(ctx context.Context, opts Filter) ([]models.Alert, error)
	// ResolveAlert marks the alert resolved. Resolving twice is a no-op.
	ResolveAlert(ctx context.Context, id string, at time.Time) (*models.Alert, error)
}

type Repository interface {
	ClinicRepository
	UpdateRepository
	AlertRepository
}
