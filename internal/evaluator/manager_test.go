package evaluator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/mr1hm/go-trial-monitor/internal/apperr"
	"github.com/mr1hm/go-trial-monitor/internal/config"
	"github.com/mr1hm/go-trial-monitor/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockEvaluator implements Evaluator for testing
type mockEvaluator struct {
	mu        sync.Mutex
	ids       []string
	listErr   error
	evaluated map[string]int
	calls     atomic.Int64
}

func newMockEvaluator(n int) *mockEvaluator {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("clinic%d", i+1)
	}
	return &mockEvaluator{
		ids:       ids,
		evaluated: make(map[string]int),
	}
}

func (m *mockEvaluator) ClinicIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ids, m.listErr
}

func (m *mockEvaluator) EvaluateClinic(ctx context.Context, clinicID string) (models.ClinicStatus, []models.Alert, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.evaluated[clinicID]++
	m.mu.Unlock()

	if clinicID == "clinic2" {
		return models.ClinicStatus{ClinicID: clinicID, Status: models.StatusDelayed, HoursSinceUpdate: 30},
			[]models.Alert{{ID: "a1", ClinicID: clinicID, Type: models.AlertTypeDelayed}}, nil
	}
	return models.ClinicStatus{ClinicID: clinicID, Status: models.StatusOnTime}, nil, nil
}

func (m *mockEvaluator) count(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evaluated[id]
}

func testConfig(interval time.Duration) *config.Config {
	return &config.Config{
		Worker: config.WorkerConfig{
			Count:      2,
			BufferSize: 10,
		},
		Evaluator: config.EvaluatorConfig{
			Interval: interval,
		},
	}
}

func TestManager_InitialPassEvaluatesEveryClinic(t *testing.T) {
	eval := newMockEvaluator(5)
	mgr := NewManager(testConfig(time.Hour), eval)

	ctx, cancel := context.WithCancel(context.Background())
	mgr.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for eval.calls.Load() < 5 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	mgr.Stop()

	for _, id := range eval.ids {
		if eval.count(id) != 1 {
			t.Errorf("expected %s evaluated once, got %d", id, eval.count(id))
		}
	}
}

func TestManager_TicksRepeatedly(t *testing.T) {
	eval := newMockEvaluator(2)
	mgr := NewManager(testConfig(20*time.Millisecond), eval)

	ctx, cancel := context.WithCancel(context.Background())
	mgr.Start(ctx)

	time.Sleep(150 * time.Millisecond)

	cancel()
	mgr.Stop()

	if eval.count("clinic1") < 3 {
		t.Errorf("expected several evaluations of clinic1, got %d", eval.count("clinic1"))
	}
}

func TestManager_ListErrorSkipsPass(t *testing.T) {
	eval := newMockEvaluator(3)
	eval.listErr = apperr.Transient("list clinics", errors.New("timeout"))
	mgr := NewManager(testConfig(time.Hour), eval)

	ctx, cancel := context.WithCancel(context.Background())
	mgr.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	mgr.Stop()

	if eval.calls.Load() != 0 {
		t.Errorf("expected no clinic evaluations, got %d", eval.calls.Load())
	}
}

func TestManager_GracefulShutdown(t *testing.T) {
	eval := newMockEvaluator(200)
	cfg := testConfig(time.Millisecond)
	cfg.Worker.BufferSize = 1
	mgr := NewManager(cfg, eval)

	ctx, cancel := context.WithCancel(context.Background())
	mgr.Start(ctx)

	time.Sleep(20 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		mgr.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("manager.Stop() timed out - possible goroutine leak")
	}
}
