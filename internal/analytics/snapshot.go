package analytics

import (
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/mr1hm/go-trial-monitor/internal/models"
)

// BuildAnalytics aggregates the fleet view. Every key of histories is a known
// clinic; clinics that never submitted map to an empty slice and still count
// toward TotalClinics.
func BuildAnalytics(histories map[string][]models.UpdateRecord, now time.Time, p Policy) (models.AnalyticsSnapshot, error) {
	ids := lo.Keys(histories)
	slices.Sort(ids)

	snap := models.AnalyticsSnapshot{
		DelayData:    make([]models.DelayPoint, 0, len(ids)),
		FeverTrends:  make(map[string][]models.FeverPoint, len(ids)),
		TotalClinics: len(ids),
		GeneratedAt:  now,
	}

	var (
		feverSum  float64
		reporting int
	)
	for _, id := range ids {
		updates := histories[id]

		st, err := DeriveStatus(id, updates, now, p)
		if err != nil {
			return models.AnalyticsSnapshot{}, err
		}

		snap.DelayData = append(snap.DelayData, models.DelayPoint{
			ClinicID:   id,
			DelayHours: DelayHours(st, p),
		})

		switch st.RiskLevel {
		case models.RiskHigh:
			snap.RiskDistribution.High++
		case models.RiskMedium:
			snap.RiskDistribution.Medium++
		default:
			snap.RiskDistribution.Low++
		}

		if st.Status == models.StatusDelayed {
			snap.DelayedClinics++
		}

		snap.FeverTrends[id] = FeverTrend(updates)

		if st.Status != models.StatusUnknown {
			feverSum += st.LatestFever
			reporting++
		}
	}

	if reporting > 0 {
		snap.GlobalAvgFever = feverSum / float64(reporting)
	}

	return snap, nil
}
