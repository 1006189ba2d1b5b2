package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-trial-monitor/internal/apperr"
	"github.com/mr1hm/go-trial-monitor/internal/models"
)

var testNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func update(clinicID string, hoursAgo float64, fever float64, sideEffects ...string) models.UpdateRecord {
	return models.UpdateRecord{
		ID:           clinicID + "_" + time.Duration(hoursAgo*float64(time.Hour)).String(),
		ClinicID:     clinicID,
		Timestamp:    testNow.Add(-time.Duration(hoursAgo * float64(time.Hour))),
		PatientCount: 20,
		AvgFever:     fever,
		SideEffects:  sideEffects,
	}
}

func TestDeriveStatus_DelayedAfter30Hours(t *testing.T) {
	p := DefaultPolicy()
	st, err := DeriveStatus("clinic2", []models.UpdateRecord{update("clinic2", 30, 37.2)}, testNow, p)
	require.NoError(t, err)

	assert.Equal(t, models.StatusDelayed, st.Status)
	assert.InDelta(t, 6.0, DelayHours(st, p), 1e-9)
}

func TestDeriveStatus_OnTimeAfter12Hours(t *testing.T) {
	p := DefaultPolicy()
	st, err := DeriveStatus("clinic1", []models.UpdateRecord{update("clinic1", 12, 37.2)}, testNow, p)
	require.NoError(t, err)

	assert.Equal(t, models.StatusOnTime, st.Status)
	assert.Equal(t, 0.0, DelayHours(st, p))
}

func TestDeriveStatus_ThresholdBoundary(t *testing.T) {
	p := DefaultPolicy()
	for _, hours := range []float64{0, 1, 12, 23.99, 24} {
		st, err := DeriveStatus("c", []models.UpdateRecord{update("c", hours, 37)}, testNow, p)
		require.NoError(t, err)
		assert.Equal(t, models.StatusOnTime, st.Status, "hours=%v", hours)
		assert.Equal(t, 0.0, DelayHours(st, p), "hours=%v", hours)
	}
	for _, hours := range []float64{24.01, 25, 48, 1000} {
		st, err := DeriveStatus("c", []models.UpdateRecord{update("c", hours, 37)}, testNow, p)
		require.NoError(t, err)
		assert.Equal(t, models.StatusDelayed, st.Status, "hours=%v", hours)
		assert.InDelta(t, hours-24, DelayHours(st, p), 1e-6, "hours=%v", hours)
	}
}

func TestDeriveStatus_UsesLatestRegardlessOfOrder(t *testing.T) {
	updates := []models.UpdateRecord{
		update("c", 2, 38.6, "nausea"),
		update("c", 50, 37.0),
		update("c", 26, 37.1),
	}
	st, err := DeriveStatus("c", updates, testNow, DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, updates[0].Timestamp, st.LastUpdateTime)
	assert.Equal(t, models.StatusOnTime, st.Status)
	assert.Equal(t, models.RiskMedium, st.RiskLevel)
	assert.True(t, st.IsAbnormal)
}

func TestDeriveStatus_NoUpdates(t *testing.T) {
	p := DefaultPolicy()
	st, err := DeriveStatus("clinic9", nil, testNow, p)
	require.NoError(t, err)

	assert.Equal(t, models.StatusUnknown, st.Status)
	assert.Equal(t, models.RiskLow, st.RiskLevel)
	assert.False(t, st.IsAbnormal)
	assert.True(t, st.LastUpdateTime.IsZero())
	assert.Equal(t, 0.0, DelayHours(st, p))
}

func TestDeriveStatus_RiskLevels(t *testing.T) {
	tests := []struct {
		name        string
		fever       float64
		sideEffects []string
		want        models.RiskLevel
	}{
		{"normal", 37.2, nil, models.RiskLow},
		{"fever exactly at threshold", 38.0, nil, models.RiskLow},
		{"fever above threshold", 38.5, nil, models.RiskMedium},
		{"one side effect", 37.0, []string{"nausea"}, models.RiskLow},
		{"two side effects", 37.0, []string{"headache", "dizziness"}, models.RiskMedium},
		{"high fever", 39.5, nil, models.RiskHigh},
		{"many side effects", 37.0, []string{"a", "b", "c", "d"}, models.RiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := DeriveStatus("c", []models.UpdateRecord{update("c", 1, tt.fever, tt.sideEffects...)}, testNow, DefaultPolicy())
			require.NoError(t, err)
			assert.Equal(t, tt.want, st.RiskLevel)
			assert.Equal(t, tt.want != models.RiskLow, st.IsAbnormal)
		})
	}
}

func TestDeriveStatus_CustomPolicy(t *testing.T) {
	p := DefaultPolicy()
	p.DelayThreshold = 6 * time.Hour
	p.FeverMedium = 37.5

	st, err := DeriveStatus("c", []models.UpdateRecord{update("c", 8, 37.6)}, testNow, p)
	require.NoError(t, err)

	assert.Equal(t, models.StatusDelayed, st.Status)
	assert.InDelta(t, 2.0, DelayHours(st, p), 1e-9)
	assert.Equal(t, models.RiskMedium, st.RiskLevel)
}

func TestDeriveStatus_Validation(t *testing.T) {
	negativePatients := update("c", 1, 37)
	negativePatients.PatientCount = -1

	negativeFever := update("c", 1, -2)
	nanFever := update("c", 1, math.NaN())

	noTimestamp := update("c", 1, 37)
	noTimestamp.Timestamp = time.Time{}

	for name, u := range map[string]models.UpdateRecord{
		"negative patient count": negativePatients,
		"negative fever":         negativeFever,
		"nan fever":              nanFever,
		"zero timestamp":         noTimestamp,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DeriveStatus("c", []models.UpdateRecord{u}, testNow, DefaultPolicy())
			require.Error(t, err)
			assert.True(t, apperr.IsValidation(err), "expected validation error, got %v", err)
		})
	}

	_, err := DeriveStatus("", nil, testNow, DefaultPolicy())
	assert.True(t, apperr.IsValidation(err))
}

func TestFeverTrend_OldestFirst(t *testing.T) {
	updates := []models.UpdateRecord{
		update("c", 0, 37.3),
		update("c", 48, 37.1),
		update("c", 24, 37.2),
	}
	trend := FeverTrend(updates)

	require.Len(t, trend, 3)
	assert.Equal(t, 37.1, trend[0].Fever)
	assert.Equal(t, 37.2, trend[1].Fever)
	assert.Equal(t, 37.3, trend[2].Fever)
	// input untouched
	assert.Equal(t, 37.3, updates[0].AvgFever)
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	p := DefaultPolicy()
	p.DelayThreshold = 0
	assert.Error(t, p.Validate())

	p = DefaultPolicy()
	p.FeverHigh = 37.0
	assert.Error(t, p.Validate())

	p = DefaultPolicy()
	p.SideEffectsHigh = 1
	assert.Error(t, p.Validate())
}
