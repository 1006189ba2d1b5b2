package evaluator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mr1hm/go-trial-monitor/internal/apperr"
	"github.com/mr1hm/go-trial-monitor/internal/config"
	"github.com/mr1hm/go-trial-monitor/internal/metrics"
	"github.com/mr1hm/go-trial-monitor/internal/models"
	"github.com/mr1hm/go-trial-monitor/internal/worker"
)

// Evaluator is the part of monitor.Service the manager drives.
type Evaluator interface {
	ClinicIDs(ctx context.Context) ([]string, error)
	EvaluateClinic(ctx context.Context, clinicID string) (models.ClinicStatus, []models.Alert, error)
}

// Manager re-evaluates every clinic on a fixed interval, fanning the work
// out over a worker pool.
type Manager struct {
	cfg  *config.Config
	eval Evaluator
	pool *worker.WorkerPool
	wg   sync.WaitGroup
}

func NewManager(cfg *config.Config, eval Evaluator) *Manager {
	return &Manager{
		cfg:  cfg,
		eval: eval,
	}
}

func (m *Manager) Start(ctx context.Context) {
	m.pool = worker.NewWorkerPool(m.cfg.Worker.Count, m.cfg.Worker.BufferSize, m.process)
	m.pool.Start(ctx)

	m.wg.Add(1)
	go m.run(ctx, m.cfg.Evaluator.Interval)
}

func (m *Manager) process(ctx context.Context, job worker.Job) error {
	clinicID := job.(string)

	st, raised, err := m.eval.EvaluateClinic(ctx, clinicID)
	if err != nil {
		metrics.EvaluationFailed()
		return err
	}

	metrics.ClinicEvaluated(st)
	for _, a := range raised {
		metrics.AlertRaised(a.Type)
	}
	return nil
}

func (m *Manager) run(ctx context.Context, interval time.Duration) {
	defer m.wg.Done()
	slog.Info("starting evaluator", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial pass
	m.evaluate(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("evaluator shutting down")
			return
		case <-ticker.C:
			m.evaluate(ctx)
		}
	}
}

func (m *Manager) evaluate(ctx context.Context) {
	ids, err := m.eval.ClinicIDs(ctx)
	if err != nil {
		if apperr.IsTransient(err) {
			slog.Warn("evaluation skipped, data source unavailable", "error", err)
		} else {
			slog.Error("evaluation failed", "error", err)
		}
		return
	}

	for _, id := range ids {
		if !m.pool.Submit(ctx, id) {
			return
		}
	}

	slog.Debug("evaluation queued", "clinics", len(ids))
}

func (m *Manager) Stop() {
	m.wg.Wait()
	m.pool.Stop()
	slog.Info("evaluator stopped")
}
