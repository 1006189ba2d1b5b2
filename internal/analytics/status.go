package analytics

import (
	"math"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/mr1hm/go-trial-monitor/internal/apperr"
	"github.com/mr1hm/go-trial-monitor/internal/models"
)

// ValidateInput checks a submission before an id and timestamp are assigned.
func ValidateInput(in models.UpdateInput) error {
	if in.PatientCount < 0 {
		return apperr.Validation("patientCount", "must be non-negative, got %d", in.PatientCount)
	}
	if math.IsNaN(in.AvgFever) || math.IsInf(in.AvgFever, 0) {
		return apperr.Validation("avgFever", "must be a finite number")
	}
	if in.AvgFever < 0 {
		return apperr.Validation("avgFever", "must be non-negative, got %.2f", in.AvgFever)
	}
	return nil
}

func ValidateRecord(u models.UpdateRecord) error {
	if u.Timestamp.IsZero() {
		return apperr.Validation("timestamp", "missing or malformed on update %q", u.ID)
	}
	return ValidateInput(models.UpdateInput{
		PatientCount: u.PatientCount,
		AvgFever:     u.AvgFever,
	})
}

// Latest returns the most recent update regardless of input order.
func Latest(updates []models.UpdateRecord) (models.UpdateRecord, bool) {
	if len(updates) == 0 {
		return models.UpdateRecord{}, false
	}
	return lo.MaxBy(updates, func(a, b models.UpdateRecord) bool {
		return a.Timestamp.After(b.Timestamp)
	}), true
}

// DeriveStatus computes a clinic's status from its update history.
//
// A clinic with no updates gets StatusUnknown and RiskLow; it is never
// reported as delayed.
func DeriveStatus(clinicID string, updates []models.UpdateRecord, now time.Time, p Policy) (models.ClinicStatus, error) {
	if clinicID == "" {
		return models.ClinicStatus{}, apperr.Validation("clinicId", "is required")
	}
	for _, u := range updates {
		if err := ValidateRecord(u); err != nil {
			return models.ClinicStatus{}, err
		}
	}

	st := models.ClinicStatus{
		ClinicID:    clinicID,
		Status:      models.StatusUnknown,
		RiskLevel:   models.RiskLow,
		LastChecked: now,
	}

	latest, ok := Latest(updates)
	if !ok {
		return st, nil
	}

	st.LastUpdateTime = latest.Timestamp
	st.HoursSinceUpdate = now.Sub(latest.Timestamp).Hours()
	st.LatestFever = latest.AvgFever
	st.SideEffectCount = len(latest.SideEffects)

	st.Status = models.StatusOnTime
	if st.HoursSinceUpdate > p.DelayThreshold.Hours() {
		st.Status = models.StatusDelayed
	}

	st.RiskLevel = p.RiskLevel(latest.AvgFever, len(latest.SideEffects))
	st.IsAbnormal = st.RiskLevel != models.RiskLow

	return st, nil
}

// DelayHours is the time past the threshold, floored at zero.
func DelayHours(st models.ClinicStatus, p Policy) float64 {
	if st.Status == models.StatusUnknown {
		return 0
	}
	return math.Max(0, st.HoursSinceUpdate-p.DelayThreshold.Hours())
}

// FeverTrend returns one point per update, oldest first.
func FeverTrend(updates []models.UpdateRecord) []models.FeverPoint {
	sorted := slices.Clone(updates)
	slices.SortStableFunc(sorted, func(a, b models.UpdateRecord) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return lo.Map(sorted, func(u models.UpdateRecord, _ int) models.FeverPoint {
		return models.FeverPoint{Date: u.Timestamp, Fever: u.AvgFever}
	})
}
