package models

import "time"

type AlertType string

const (
	AlertTypeDelayed          AlertType = "delayed"
	AlertTypeAbnormalSymptoms AlertType = "abnormal_symptoms"
)

type AlertSeverity string

const (
	AlertSeverityLow    AlertSeverity = "low"
	AlertSeverityMedium AlertSeverity = "medium"
	AlertSeverityHigh   AlertSeverity = "high"
)

type Alert struct {
	ID         string        `json:"id"`
	ClinicID   string        `json:"clinicId"`
	Type       AlertType     `json:"type"`
	Message    string        `json:"message"`
	Severity   AlertSeverity `json:"severity"`
	Timestamp  time.Time     `json:"timestamp"`
	Resolved   bool          `json:"resolved"`
	ResolvedAt *time.Time    `json:"resolvedAt,omitempty"`
}

// Key identifies the condition an alert reports. At most one unresolved
// alert exists per key.
func (a *Alert) Key() string {
	return a.ClinicID + ":" + string(a.Type)
}

// Rank orders severities so they can be compared; unknown values rank 0.
func (s AlertSeverity) Rank() int {
	switch s {
	case AlertSeverityLow:
		return 1
	case AlertSeverityMedium:
		return 2
	case AlertSeverityHigh:
		return 3
	default:
		return 0
	}
}
