package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"intrusion-sim/internal/lifecycle"
)

// Events a batch of runs can raise at the end of a phase.
const (
	EventImpactRate     = "impact_rate"
	EventCompromiseRate = "compromise_rate"
	EventDetectionRate  = "detection_rate"
	EventEvictionRate   = "eviction_rate"
)

// Scenario defines a campaign with ordered phases and an overall description.
type Scenario struct {
	Name        string  `yaml:"name,omitempty"`
	Description string  `yaml:"description,omitempty"`
	Phases      []Phase `yaml:"phases"`
}

// Phase is one batch of runs in a campaign. Harden applies an improvement
// cycle to the defender before the batch; Restore charges the defender for
// recovering from the previous phase's impacts.
type Phase struct {
	Name        string              `yaml:"name"`
	Description string              `yaml:"description,omitempty"`
	Runs        int                 `yaml:"runs,omitempty"`
	Harden      bool                `yaml:"harden,omitempty"`
	Restore     bool                `yaml:"restore,omitempty"`
	Attacker    *lifecycle.Attacker `yaml:"attacker,omitempty"`
	Category    string              `yaml:"category,omitempty"`
	Triggers    []Trigger           `yaml:"triggers,omitempty"`
}

// Trigger moves the campaign to another phase when an event reaches Value.
type Trigger struct {
	Event string  `yaml:"event"`
	Value float64 `yaml:"value"`
	Next  string  `yaml:"next"`
}

// Event represents a batch outcome that may advance the campaign.
type Event struct {
	Type  string
	Value float64
}

// Load reads a YAML scenario definition from disk.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that phase names are unique and every trigger points at a
// known phase.
func (s *Scenario) Validate() error {
	if len(s.Phases) == 0 {
		return fmt.Errorf("scenario %q: no phases", s.Name)
	}
	seen := make(map[string]bool, len(s.Phases))
	for _, p := range s.Phases {
		if p.Name == "" {
			return fmt.Errorf("scenario %q: phase without a name", s.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("scenario %q: duplicate phase %q", s.Name, p.Name)
		}
		if p.Runs < 0 {
			return fmt.Errorf("scenario %q: phase %q has negative runs", s.Name, p.Name)
		}
		seen[p.Name] = true
	}
	for _, p := range s.Phases {
		for _, tr := range p.Triggers {
			if !seen[tr.Next] {
				return fmt.Errorf("scenario %q: phase %q triggers unknown phase %q", s.Name, p.Name, tr.Next)
			}
			switch tr.Event {
			case EventImpactRate, EventCompromiseRate, EventDetectionRate, EventEvictionRate:
			default:
				return fmt.Errorf("scenario %q: phase %q has unknown event %q", s.Name, p.Name, tr.Event)
			}
		}
	}
	return nil
}

// Phase returns the phase called name.
func (s *Scenario) Phase(name string) (Phase, bool) {
	for _, p := range s.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return Phase{}, false
}

// NextPhase returns the phase the first matching trigger of current points
// at. If no trigger matches, ok will be false.
func (s *Scenario) NextPhase(current string, events ...Event) (next string, ok bool) {
	p, found := s.Phase(current)
	if !found {
		return "", false
	}
	for _, tr := range p.Triggers {
		for _, ev := range events {
			if tr.Event == ev.Type && ev.Value >= tr.Value {
				return tr.Next, true
			}
		}
	}
	return "", false
}

// After returns the phase that follows current in declaration order.
func (s *Scenario) After(current string) (string, bool) {
	for i, p := range s.Phases {
		if p.Name == current && i+1 < len(s.Phases) {
			return s.Phases[i+1].Name, true
		}
	}
	return "", false
}
