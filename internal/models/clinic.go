package models

import "time"

type Clinic struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// UpdateRecord is one clinic submission. Records are append-only.
type UpdateRecord struct {
	ID           string    `json:"id"`
	ClinicID     string    `json:"clinicId"`
	Timestamp    time.Time `json:"timestamp"`
	PatientCount int       `json:"patientCount"`
	AvgFever     float64   `json:"avgFever"` // °C
	SideEffects  []string  `json:"sideEffects"`
	Notes        string    `json:"notes,omitempty"`
}

// UpdateInput is what a clinic submits; id and timestamp are assigned server side.
type UpdateInput struct {
	PatientCount int      `json:"patientCount"`
	AvgFever     float64  `json:"avgFever"`
	SideEffects  []string `json:"sideEffects"`
	Notes        string   `json:"notes"`
}

type Status string

const (
	StatusOnTime  Status = "on-time"
	StatusDelayed Status = "delayed"
	StatusUnknown Status = "unknown" // clinic has never submitted
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type ClinicStatus struct {
	ClinicID         string    `json:"clinicId"`
	LastUpdateTime   time.Time `json:"lastUpdateTime"`
	Status           Status    `json:"status"`
	RiskLevel        RiskLevel `json:"riskLevel"`
	IsAbnormal       bool      `json:"isAbnormal"`
	HoursSinceUpdate float64   `json:"hoursSinceUpdate"`
	LatestFever      float64   `json:"latestFever"`
	SideEffectCount  int       `json:"sideEffectCount"`
	LastChecked      time.Time `json:"lastChecked"`
}

// ClinicData bundles a clinic's history with its derived status.
type ClinicData struct {
	Updates []UpdateRecord `json:"updates"`
	Status  ClinicStatus   `json:"status"`
}
