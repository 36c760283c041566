// YAML config loader with CUE validation integration
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"intrusion-sim/internal/attacker"
	"intrusion-sim/internal/fuzzy"
	"intrusion-sim/internal/lifecycle"
	"intrusion-sim/internal/posture"
	"intrusion-sim/internal/stage"
)

// StageOverride replaces parts of a stage's default parameters. Nil fields
// keep the default.
type StageOverride struct {
	Weights     stage.Weights `yaml:"weights,omitempty"`
	Resources   *fuzzy.Shape  `yaml:"resources,omitempty"`
	Motivation  *fuzzy.Shape  `yaml:"motivation,omitempty"`
	Saturation  *float64      `yaml:"saturation,omitempty"`
	IncreaseMin *int          `yaml:"increase_min,omitempty"`
	IncreaseMax *int          `yaml:"increase_max,omitempty"`
}

// SimulationConfig is the root configuration for a batch of lifecycle runs.
type SimulationConfig struct {
	Runs    int   `yaml:"runs"`
	Seed    int64 `yaml:"seed"`
	Workers int   `yaml:"workers"`

	// Posture, when set, bypasses the defender programme.
	Posture       *float64           `yaml:"posture,omitempty"`
	PostureScale  string             `yaml:"posture_scale,omitempty"`
	PostureSource string             `yaml:"posture_source,omitempty"`
	Defender      posture.Defender   `yaml:"defender"`
	Attacker      lifecycle.Attacker `yaml:"attacker"`

	// Category, when set, draws attackers from that category's pool.
	Category           string  `yaml:"category,omitempty"`
	IrrationalBehavior float64 `yaml:"irrational_behavior,omitempty"`
	// AttackerDifficulty, when above zero, draws the resources of the fixed
	// attacker per run instead of using attacker.resources.
	AttackerDifficulty int `yaml:"attacker_difficulty,omitempty"`

	NormalizeWeights bool                         `yaml:"normalize_weights,omitempty"`
	Stages           map[stage.Name]StageOverride `yaml:"stages,omitempty"`
	Catalog          *stage.Catalog               `yaml:"catalog,omitempty"`
}

// Posture sources.
const (
	// PostureDefender scores every run against the configured posture.
	PostureDefender = "defender"
	// PostureWorkload discounts the configured posture by the workload of
	// each run's attacker pool.
	PostureWorkload = "workload"
)

// maxDifficulty is the lowest difficulty whose attackers always start at
// full resources.
const maxDifficulty = 10

// Default returns a configuration that runs with the stock stage tables.
func Default() *SimulationConfig {
	return &SimulationConfig{
		Runs:     1000,
		Seed:     1,
		Workers:  4,
		Defender: posture.Defender{Training: 50, Awareness: 50, Hardening: 0.3},
		Attacker: lifecycle.Attacker{Resources: 50, Motivation: 50},
	}
}

// Load validates configPath against the CUE schema and decodes it over the
// defaults. An empty cueSchemaPath uses the built-in schema.
func Load(configPath, cueSchemaPath string) (*SimulationConfig, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("loaded configuration", "path", configPath, "runs", cfg.Runs, "workers", cfg.Workers, "category", cfg.Category)
	return cfg, nil
}

// Validate checks the fields the stage configuration does not cover.
func (c *SimulationConfig) Validate() error {
	var errs []error
	if c.Runs < 1 {
		errs = append(errs, fmt.Errorf("runs must be at least 1, got %d", c.Runs))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if _, err := posture.ParseScale(c.PostureScale); err != nil {
		errs = append(errs, err)
	}
	if c.Category != "" {
		if _, err := attacker.ParseCategory(c.Category); err != nil {
			errs = append(errs, err)
		}
	}
	switch c.PostureSource {
	case "", PostureDefender:
	case PostureWorkload:
		if c.Category == "" {
			errs = append(errs, errors.New("posture_source workload needs an attacker category"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown posture_source %q", c.PostureSource))
	}
	if c.AttackerDifficulty < 0 || c.AttackerDifficulty > maxDifficulty {
		errs = append(errs, fmt.Errorf("attacker_difficulty must be between 0 and %d, got %d", maxDifficulty, c.AttackerDifficulty))
	}
	if _, err := c.StageConfig(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// StageConfig merges the overrides onto the stock stage tables and validates
// the result.
func (c *SimulationConfig) StageConfig() (stage.Config, error) {
	sc := stage.DefaultConfig()
	for name, o := range c.Stages {
		p, ok := sc.Stages[name]
		if !ok {
			return stage.Config{}, fmt.Errorf("%w: unknown stage %q", stage.ErrInvalidConfig, name)
		}
		if len(o.Weights) > 0 {
			p.Weights = make(stage.Weights, len(o.Weights))
			for f, w := range o.Weights {
				p.Weights[f] = w
			}
		}
		if o.Resources != nil {
			p.Resources = *o.Resources
		}
		if o.Motivation != nil {
			p.Motivation = *o.Motivation
		}
		if o.Saturation != nil {
			p.Saturation = *o.Saturation
		}
		if o.IncreaseMin != nil {
			p.IncreaseMin = *o.IncreaseMin
		}
		if o.IncreaseMax != nil {
			p.IncreaseMax = *o.IncreaseMax
		}
		sc.Stages[name] = p
	}
	if c.Catalog != nil {
		sc.Catalog = mergeCatalog(sc.Catalog, *c.Catalog)
	}
	if c.NormalizeWeights {
		sc = sc.Normalize()
	}
	if err := sc.Validate(); err != nil {
		return stage.Config{}, err
	}
	return sc, nil
}

func mergeCatalog(base, o stage.Catalog) stage.Catalog {
	if o.Recon.IPAddresses != nil {
		base.Recon.IPAddresses = o.Recon.IPAddresses
	}
	if o.Recon.Services != nil {
		base.Recon.Services = o.Recon.Services
	}
	if o.Recon.Vulnerabilities != nil {
		base.Recon.Vulnerabilities = o.Recon.Vulnerabilities
	}
	if o.Credentials.Username != "" {
		base.Credentials = o.Credentials
	}
	if o.Systems != nil {
		base.Systems = o.Systems
	}
	if o.DataLabel != "" {
		base.DataLabel = o.DataLabel
	}
	if o.BreachImpact != "" {
		base.BreachImpact = o.BreachImpact
	}
	if o.DisruptionImpact != "" {
		base.DisruptionImpact = o.DisruptionImpact
	}
	return base
}

// PostureValue returns the defender posture on the unit scale, either the
// explicit value or the one derived from the defender programme.
func (c *SimulationConfig) PostureValue() (float64, error) {
	if c.Posture == nil {
		return c.Defender.Posture(), nil
	}
	scale, err := posture.ParseScale(c.PostureScale)
	if err != nil {
		return 0, err
	}
	return posture.Normalize(*c.Posture, scale), nil
}

// SecurityLevel is the 0-100 security score the defender responds to
// detected intrusions with. An explicit posture stands in for the programme.
func (c *SimulationConfig) SecurityLevel() (float64, error) {
	if c.Posture == nil {
		return posture.Cybersecurity(c.Defender.Training, c.Defender.Awareness), nil
	}
	p, err := c.PostureValue()
	if err != nil {
		return 0, err
	}
	return 100 * p, nil
}

// WorkloadPosture reports whether each run's posture is discounted by the
// workload of its attacker pool.
func (c *SimulationConfig) WorkloadPosture() bool { return c.PostureSource == PostureWorkload }

// AttackerEngine returns the pool engine for the configured category, or nil
// when attackers come from the fixed profile.
func (c *SimulationConfig) AttackerEngine() (*attacker.Engine, error) {
	if c.Category == "" {
		return nil, nil
	}
	cat, err := attacker.ParseCategory(c.Category)
	if err != nil {
		return nil, err
	}
	return attacker.NewEngine(cat, c.IrrationalBehavior)
}
