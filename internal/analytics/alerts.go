package analytics

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/mr1hm/go-trial-monitor/internal/apperr"
	"github.com/mr1hm/go-trial-monitor/internal/models"
)

// GenerateAlerts returns the alerts that statuses call for and that are not
// already open in existing. Delayed clinics get a high severity "delayed"
// alert, abnormal clinics a medium "abnormal_symptoms" alert.
func GenerateAlerts(statuses []models.ClinicStatus, existing []models.Alert, now time.Time, p Policy) []models.Alert {
	open := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		if !a.Resolved {
			open[a.Key()] = struct{}{}
		}
	}

	var out []models.Alert
	emit := func(a models.Alert) {
		if _, dup := open[a.Key()]; dup {
			return
		}
		open[a.Key()] = struct{}{}
		out = append(out, a)
	}

	for _, st := range statuses {
		if st.Status == models.StatusDelayed {
			emit(models.Alert{
				ID:       uuid.NewString(),
				ClinicID: st.ClinicID,
				Type:     models.AlertTypeDelayed,
				Message: fmt.Sprintf("Clinic %s has not submitted an update in over %g hours",
					st.ClinicID, p.DelayThreshold.Hours()),
				Severity:  models.AlertSeverityHigh,
				Timestamp: now,
			})
		}
		if st.IsAbnormal {
			emit(models.Alert{
				ID:       uuid.NewString(),
				ClinicID: st.ClinicID,
				Type:     models.AlertTypeAbnormalSymptoms,
				Message: fmt.Sprintf("Clinic %s shows abnormal symptom patterns (Fever: %.1f°C, Side Effects: %d)",
					st.ClinicID, st.LatestFever, st.SideEffectCount),
				Severity:  models.AlertSeverityMedium,
				Timestamp: now,
			})
		}
	}
	return out
}

// ResolveAlert returns a copy of alerts with alertID marked resolved, along
// with the resolved alert. Resolving an already resolved alert changes nothing.
func ResolveAlert(alertID string, alerts []models.Alert, now time.Time) ([]models.Alert, models.Alert, error) {
	idx := slices.IndexFunc(alerts, func(a models.Alert) bool {
		return a.ID == alertID
	})
	if idx < 0 {
		return nil, models.Alert{}, apperr.NotFound("alert", alertID)
	}

	updated := slices.Clone(alerts)
	if !updated[idx].Resolved {
		resolvedAt := now
		updated[idx].Resolved = true
		updated[idx].ResolvedAt = &resolvedAt
	}
	return updated, updated[idx], nil
}

// ActiveAlerts returns unresolved alerts, newest first.
func ActiveAlerts(alerts []models.Alert) []models.Alert {
	active := lo.Filter(alerts, func(a models.Alert, _ int) bool {
		return !a.Resolved
	})
	slices.SortStableFunc(active, func(a, b models.Alert) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return active
}
