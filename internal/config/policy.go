package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mr1hm/go-trial-monitor/internal/analytics"
)

// policyFile maps 1:1 to the keys of a risk policy YAML file. Keys missing
// from the file keep their default values.
type policyFile struct {
	DelayThreshold    time.Duration `yaml:"delay_threshold"`
	FeverMedium       float64       `yaml:"fever_medium"`
	FeverHigh         float64       `yaml:"fever_high"`
	SideEffectsMedium int           `yaml:"side_effects_medium"`
	SideEffectsHigh   int           `yaml:"side_effects_high"`
}

// LoadPolicy reads and validates the risk policy at path.
func LoadPolicy(path string) (analytics.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return analytics.Policy{}, fmt.Errorf("read policy %s: %w", path, err)
	}
	return ParsePolicy(data)
}

func ParsePolicy(data []byte) (analytics.Policy, error) {
	def := analytics.DefaultPolicy()
	pf := policyFile{
		DelayThreshold:    def.DelayThreshold,
		FeverMedium:       def.FeverMedium,
		FeverHigh:         def.FeverHigh,
		SideEffectsMedium: def.SideEffectsMedium,
		SideEffectsHigh:   def.SideEffectsHigh,
	}
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return analytics.Policy{}, fmt.Errorf("parse policy: %w", err)
	}

	p := analytics.Policy{
		DelayThreshold:    pf.DelayThreshold,
		FeverMedium:       pf.FeverMedium,
		FeverHigh:         pf.FeverHigh,
		SideEffectsMedium: pf.SideEffectsMedium,
		SideEffectsHigh:   pf.SideEffectsHigh,
	}
	if err := p.Validate(); err != nil {
		return analytics.Policy{}, fmt.Errorf("invalid policy: %w", err)
	}
	return p, nil
}
