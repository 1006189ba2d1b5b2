package models

import "time"

type DelayPoint struct {
	ClinicID   string  `json:"clinicId"`
	DelayHours float64 `json:"delayHours"`
}

type FeverPoint struct {
	Date  time.Time `json:"date"`
	Fever float64   `json:"fever"`
}

type RiskDistribution struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

func (r RiskDistribution) Total() int {
	return r.Low + r.Medium + r.High
}

type AnalyticsSnapshot struct {
	DelayData        []DelayPoint            `json:"delayData"`
	FeverTrends      map[string][]FeverPoint `json:"feverTrends"`
	RiskDistribution RiskDistribution        `json:"riskDistribution"`
	GlobalAvgFever   float64                 `json:"globalAvgFever"`
	TotalClinics     int                     `json:"totalClinics"`
	DelayedClinics   int                     `json:"delayedClinics"`
	GeneratedAt      time.Time               `json:"generatedAt"`
}

// FeverChartRow is one calendar day of the pivoted fever chart.
// A nil value means the clinic reported nothing that day.
type FeverChartRow struct {
	Date   string              `json:"date"`
	Values map[string]*float64 `json:"values"`
}
