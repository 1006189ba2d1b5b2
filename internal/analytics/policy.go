package analytics

import (
	"fmt"
	"time"

	"github.com/mr1hm/go-trial-monitor/internal/models"
)

// Default thresholds applied when no policy file overrides them.
const (
	DefaultDelayThreshold    = 24 * time.Hour
	DefaultFeverMedium       = 38.0
	DefaultFeverHigh         = 39.0
	DefaultSideEffectsMedium = 2
	DefaultSideEffectsHigh   = 4
)

// Policy holds the tunable thresholds used to derive status and risk.
type Policy struct {
	// DelayThreshold is how long a clinic may go without submitting before it
	// is reported as delayed.
	DelayThreshold time.Duration

	// A latest reading strictly above FeverMedium, or with at least
	// SideEffectsMedium side effects, is medium risk.
	FeverMedium       float64
	SideEffectsMedium int

	// Same rule one tier up.
	FeverHigh       float64
	SideEffectsHigh int
}

func DefaultPolicy() Policy {
	return Policy{
		DelayThreshold:    DefaultDelayThreshold,
		FeverMedium:       DefaultFeverMedium,
		FeverHigh:         DefaultFeverHigh,
		SideEffectsMedium: DefaultSideEffectsMedium,
		SideEffectsHigh:   DefaultSideEffectsHigh,
	}
}

func (p Policy) Validate() error {
	if p.DelayThreshold <= 0 {
		return fmt.Errorf("delay threshold must be positive, got %s", p.DelayThreshold)
	}
	if p.FeverMedium <= 0 || p.FeverHigh <= 0 {
		return fmt.Errorf("fever thresholds must be positive")
	}
	if p.FeverHigh < p.FeverMedium {
		return fmt.Errorf("fever_high (%.1f) must not be below fever_medium (%.1f)", p.FeverHigh, p.FeverMedium)
	}
	if p.SideEffectsMedium < 1 || p.SideEffectsHigh < 1 {
		return fmt.Errorf("side effect thresholds must be at least 1")
	}
	if p.SideEffectsHigh < p.SideEffectsMedium {
		return fmt.Errorf("side_effects_high (%d) must not be below side_effects_medium (%d)", p.SideEffectsHigh, p.SideEffectsMedium)
	}
	return nil
}

// RiskLevel classifies a single reading.
func (p Policy) RiskLevel(fever float64, sideEffects int) models.RiskLevel {
	switch {
	case fever > p.FeverHigh || sideEffects >= p.SideEffectsHigh:
		return models.RiskHigh
	case fever > p.FeverMedium || sideEffects >= p.SideEffectsMedium:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
