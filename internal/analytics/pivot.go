package analytics

import (
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/mr1hm/go-trial-monitor/internal/models"
)

const chartDateLayout = "2006-01-02"

// PivotFeverTrends reshapes per-clinic series into one row per calendar day,
// ordered chronologically. Days are taken in loc (UTC when nil).
//
// When a clinic has several points on the same day, the first one in its
// series wins. Clinics with no point on a day get a nil value so charts
// render a gap instead of zero.
func PivotFeverTrends(trends map[string][]models.FeverPoint, loc *time.Location) []models.FeverChartRow {
	if loc == nil {
		loc = time.UTC
	}

	clinicIDs := lo.Keys(trends)
	slices.Sort(clinicIDs)

	byDay := make(map[time.Time]map[string]*float64)
	for _, id := range clinicIDs {
		for _, pt := range trends[id] {
			day := calendarDay(pt.Date, loc)
			row, ok := byDay[day]
			if !ok {
				row = make(map[string]*float64)
				byDay[day] = row
			}
			if _, seen := row[id]; seen {
				continue
			}
			fever := pt.Fever
			row[id] = &fever
		}
	}

	days := lo.Keys(byDay)
	slices.SortFunc(days, func(a, b time.Time) int {
		return a.Compare(b)
	})

	rows := make([]models.FeverChartRow, 0, len(days))
	for _, day := range days {
		values := make(map[string]*float64, len(clinicIDs))
		for _, id := range clinicIDs {
			values[id] = byDay[day][id]
		}
		rows = append(rows, models.FeverChartRow{
			Date:   day.Format(chartDateLayout),
			Values: values,
		})
	}
	return rows
}

func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
