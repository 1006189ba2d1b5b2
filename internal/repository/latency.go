package repository

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/mr1hm/go-trial-monitor/internal/apperr"
	"github.com/mr1hm/go-trial-monitor/internal/models"
)

var errSimulatedFailure = errors.New("simulated upstream failure")

// LatencyRepo wraps a Repository and delays every call, failing a share of
// them with a TransientError. It stands in for a slow remote data source in
// demos and tests.
type LatencyRepo struct {
	next     Repository
	delay    time.Duration
	failRate float64
	roll     func() float64
}

var _ Repository = (*LatencyRepo)(nil)

func NewLatencyRepo(next Repository, delay time.Duration, failRate float64) *LatencyRepo {
	return &LatencyRepo{
		next:     next,
		delay:    delay,
		failRate: failRate,
		roll:     rand.Float64,
	}
}

func (r *LatencyRepo) wait(ctx context.Context, op string) error {
	if r.delay > 0 {
		timer := time.NewTimer(r.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if r.failRate > 0 && r.roll() < r.failRate {
		return apperr.Transient(op, errSimulatedFailure)
	}
	return nil
}

func (r *LatencyRepo) AddClinic(ctx context.Context, c *models.Clinic) error {
	if err := r.wait(ctx, "add clinic"); err != nil {
		return err
	}
	return r.next.AddClinic(ctx, c)
}

func (r *LatencyRepo) ClinicExists(ctx context.Context, id string) (bool, error) {
	if err := r.wait(ctx, "check clinic"); err != nil {
		return false, err
	}
	return r.next.ClinicExists(ctx, id)
}

func (r *LatencyRepo) ListClinics(ctx context.Context) ([]models.Clinic, error) {
	if err := r.wait(ctx, "list clinics"); err != nil {
		return nil, err
	}
	return r.next.ListClinics(ctx)
}

func (r *LatencyRepo) AddUpdate(ctx context.Context, u *models.UpdateRecord) error {
	if err := r.wait(ctx, "add update"); err != nil {
		return err
	}
	return r.next.AddUpdate(ctx, u)
}

func (r *LatencyRepo) ListUpdates(ctx context.Context, opts Filter) ([]models.UpdateRecord, error) {
	if err := r.wait(ctx, "list updates"); err != nil {
		return nil, err
	}
	return r.next.ListUpdates(ctx, opts)
}

func (r *LatencyRepo) AddAlertIfAbsent(ctx context.Context, a *models.Alert) (bool, error) {
	if err := r.wait(ctx, "add alert"); err != nil {
		return false, err
	}
	return r.next.AddAlertIfAbsent(ctx, a)
}

func (r *LatencyRepo) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	if err := r.wait(ctx, "get alert"); err != nil {
		return nil, err
	}
	return r.next.GetAlert(ctx, id)
}

func (r *LatencyRepo) ListAlerts(ctx context.Context, opts Filter) ([]models.Alert, error) {
	if err := r.wait(ctx, "list alerts"); err != nil {
		return nil, err
	}
	return r.next.ListAlerts(ctx, opts)
}

func (r *LatencyRepo) ResolveAlert(ctx context.Context, id string, at time.Time) (*models.Alert, error) {
	if err := r.wait(ctx, "resolve alert"); err != nil {
		return nil, err
	}
	return r.next.ResolveAlert(ctx, id, at)
}
