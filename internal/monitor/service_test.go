package monitor

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-trial-monitor/internal/analytics"
	"github.com/mr1hm/go-trial-monitor/internal/apperr"
	"github.com/mr1hm/go-trial-monitor/internal/models"
	"github.com/mr1hm/go-trial-monitor/internal/repository"
	"github.com/mr1hm/go-trial-monitor/internal/seed"
)

var testNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	alerts []*models.Alert
}

func (p *recordingPublisher) Broadcast(a *models.Alert) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, a)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.alerts)
}

func newSeededService(t *testing.T, opts ...Option) (*Service, *repository.SQLiteDB) {
	t.Helper()
	db, err := repository.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, seed.Run(context.Background(), db, testNow, rand.New(rand.NewPCG(1, 1))))

	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewService(db, analytics.DefaultPolicy(), opts...), db
}

func TestService_GetStatus(t *testing.T) {
	svc, _ := newSeededService(t)
	ctx := context.Background()

	st, err := svc.GetStatus(ctx, "clinic2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelayed, st.Status)
	assert.Equal(t, models.RiskMedium, st.RiskLevel)

	st, err = svc.GetStatus(ctx, "clinic1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnTime, st.Status)

	_, err = svc.GetStatus(ctx, "clinic42")
	assert.True(t, apperr.IsNotFound(err))
}

func TestService_GetUpdatesMostRecentFirst(t *testing.T) {
	svc, _ := newSeededService(t)

	updates, err := svc.GetUpdates(context.Background(), "clinic1")
	require.NoError(t, err)
	require.Len(t, updates, 10)
	for i := 1; i < len(updates); i++ {
		assert.True(t, updates[i-1].Timestamp.After(updates[i].Timestamp))
	}
}

func TestService_GetAllClinicsAndAnalytics(t *testing.T) {
	svc, _ := newSeededService(t)
	ctx := context.Background()

	statuses, err := svc.GetAllClinics(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 5)
	assert.Equal(t, "clinic1", statuses[0].ClinicID)

	snap, err := svc.GetAnalytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, snap.TotalClinics)
	assert.Equal(t, 1, snap.DelayedClinics)
	assert.Equal(t, snap.TotalClinics, snap.RiskDistribution.Total())

	rows, err := svc.GetFeverChart(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, rows)
	for _, r := range rows {
		assert.Len(t, r.Values, 5)
	}
}

func TestService_AnalyticsCountsSilentClinic(t *testing.T) {
	svc, db := newSeededService(t)
	ctx := context.Background()

	require.NoError(t, db.AddClinic(ctx, &models.Clinic{ID: "clinic6", Name: "New Site", CreatedAt: testNow}))

	snap, err := svc.GetAnalytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, snap.TotalClinics)
	assert.Equal(t, 5, snap.RiskDistribution.Low)

	st, err := svc.GetStatus(ctx, "clinic6")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnknown, st.Status)
}

func TestService_SubmitUpdate(t *testing.T) {
	svc, _ := newSeededService(t)
	ctx := context.Background()

	created, err := svc.SubmitUpdate(ctx, "clinic2", models.UpdateInput{
		PatientCount: 22,
		AvgFever:     37.2,
		SideEffects:  []string{" nausea ", ""},
		Notes:        "  back on schedule ",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, testNow, created.Timestamp)
	assert.Equal(t, []string{"nausea"}, created.SideEffects)
	assert.Equal(t, "back on schedule", created.Notes)

	updates, err := svc.GetUpdates(ctx, "clinic2")
	require.NoError(t, err)
	assert.Equal(t, created.ID, updates[0].ID)

	st, err := svc.GetStatus(ctx, "clinic2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnTime, st.Status)
	assert.Equal(t, models.RiskLow, st.RiskLevel)
}

func TestService_SubmitUpdateRejectsNegativePatientCount(t *testing.T) {
	svc, _ := newSeededService(t)
	ctx := context.Background()

	before, err := svc.GetUpdates(ctx, "clinic1")
	require.NoError(t, err)

	_, err = svc.SubmitUpdate(ctx, "clinic1", models.UpdateInput{PatientCount: -1, AvgFever: 37})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	after, err := svc.GetUpdates(ctx, "clinic1")
	require.NoError(t, err)
	assert.Len(t, after, len(before), "no record should be created")
}

func TestService_SubmitUpdateUnknownClinic(t *testing.T) {
	svc, _ := newSeededService(t)

	_, err := svc.SubmitUpdate(context.Background(), "nope", models.UpdateInput{PatientCount: 1, AvgFever: 37})
	assert.True(t, apperr.IsNotFound(err))
}

func TestService_RegisterClinic(t *testing.T) {
	svc, _ := newSeededService(t)
	ctx := context.Background()

	require.NoError(t, svc.RegisterClinic(ctx, "clinic6"))
	require.NoError(t, svc.RegisterClinic(ctx, "clinic6"), "registering twice is a no-op")

	ids, err := svc.ClinicIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "clinic6")
	assert.Len(t, ids, 6)

	updates, err := svc.GetUpdates(ctx, "clinic6")
	require.NoError(t, err)
	assert.Empty(t, updates)

	assert.True(t, apperr.IsValidation(svc.RegisterClinic(ctx, "")))
}

func TestService_EvaluateRaisesAndDeduplicates(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newSeededService(t, WithPublisher(pub))
	ctx := context.Background()

	raised, err := svc.Evaluate(ctx)
	require.NoError(t, err)
	require.Len(t, raised, 2)
	assert.Equal(t, 2, pub.count())

	types := map[models.AlertType]models.AlertSeverity{}
	for _, a := range raised {
		assert.Equal(t, "clinic2", a.ClinicID)
		types[a.Type] = a.Severity
	}
	assert.Equal(t, models.AlertSeverityHigh, types[models.AlertTypeDelayed])
	assert.Equal(t, models.AlertSeverityMedium, types[models.AlertTypeAbnormalSymptoms])

	// Second pass finds both conditions already open
	raised, err = svc.Evaluate(ctx)
	require.NoError(t, err)
	assert.Empty(t, raised)

	_, raised, err = svc.EvaluateClinic(ctx, "clinic2")
	require.NoError(t, err)
	assert.Empty(t, raised)
	assert.Equal(t, 2, pub.count())

	active, err := svc.GetAlerts(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestService_ResolveAlert(t *testing.T) {
	svc, _ := newSeededService(t)
	ctx := context.Background()

	raised, err := svc.Evaluate(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, raised)
	id := raised[0].ID

	first, err := svc.ResolveAlert(ctx, id)
	require.NoError(t, err)
	assert.True(t, first.Resolved)

	second, err := svc.ResolveAlert(ctx, id)
	require.NoError(t, err, "resolving twice is a no-op")
	assert.True(t, second.Resolved)
	assert.Equal(t, first.ResolvedAt, second.ResolvedAt)

	active, err := svc.GetAlerts(ctx)
	require.NoError(t, err)
	for _, a := range active {
		assert.NotEqual(t, id, a.ID)
	}

	history, err := svc.GetAlertHistory(ctx, "")
	require.NoError(t, err)
	assert.Len(t, history, len(raised))

	_, err = svc.ResolveAlert(ctx, "alert99")
	assert.True(t, apperr.IsNotFound(err))
}

func TestService_ResolvedConditionCanReopen(t *testing.T) {
	svc, _ := newSeededService(t)
	ctx := context.Background()

	raised, err := svc.Evaluate(ctx)
	require.NoError(t, err)
	for _, a := range raised {
		_, err := svc.ResolveAlert(ctx, a.ID)
		require.NoError(t, err)
	}

	// clinic2 is still delayed and abnormal
	raised, err = svc.Evaluate(ctx)
	require.NoError(t, err)
	assert.Len(t, raised, 2)
}

func TestService_SetPolicy(t *testing.T) {
	svc, _ := newSeededService(t)
	ctx := context.Background()

	p := analytics.DefaultPolicy()
	p.DelayThreshold = 48 * time.Hour
	require.NoError(t, svc.SetPolicy(p))

	st, err := svc.GetStatus(ctx, "clinic2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnTime, st.Status)

	p.DelayThreshold = 0
	err = svc.SetPolicy(p)
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, 48*time.Hour, svc.Policy().DelayThreshold)
}

func TestService_TransientErrorsSurface(t *testing.T) {
	_, db := newSeededService(t)
	svc := NewService(repository.NewLatencyRepo(db, 0, 1), analytics.DefaultPolicy())

	_, err := svc.GetAnalytics(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.IsTransient(err))
}
