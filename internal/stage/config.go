package stage

import (
	"errors"
	"fmt"
	"math"

	"intrusion-sim/internal/fuzzy"
)

// ErrInvalidConfig is returned when a stage configuration cannot be used.
var ErrInvalidConfig = errors.New("stage: invalid configuration")

// WeightTolerance is how far a weight set may drift from 1.0.
const WeightTolerance = 1e-6

// Factor names one input to a stage's weighted score.
type Factor string

const (
	FactorPosture     Factor = "posture"
	FactorResources   Factor = "resources"
	FactorMotivation  Factor = "motivation"
	FactorRecon       Factor = "recon"
	FactorAccessPoint Factor = "access_point"
	FactorExecution   Factor = "execution"
	FactorPersistence Factor = "persistence"
	FactorPrivilege   Factor = "privilege"
	FactorDiscovered  Factor = "discovered"
	FactorData        Factor = "data"
)

// factorOrder fixes summation order so identical inputs give identical bits.
var factorOrder = []Factor{
	FactorPosture,
	FactorResources,
	FactorMotivation,
	FactorRecon,
	FactorAccessPoint,
	FactorExecution,
	FactorPersistence,
	FactorPrivilege,
	FactorDiscovered,
	FactorData,
}

var allowedFactors = map[Name][]Factor{
	Reconnaissance:      {FactorPosture, FactorResources, FactorMotivation},
	ResourceDevelopment: {FactorPosture, FactorResources, FactorMotivation},
	InitialAccess:       {FactorPosture, FactorResources, FactorRecon},
	Execution:           {FactorPosture, FactorResources, FactorAccessPoint},
	Persistence:         {FactorPosture, FactorResources, FactorExecution},
	PrivilegeEscalation: {FactorPosture, FactorResources, FactorPersistence},
	DefenseEvasion:      {FactorPosture, FactorResources, FactorPersistence},
	CredentialAccess:    {FactorPosture, FactorResources, FactorPersistence, FactorPrivilege},
	Discovery:           {FactorPosture, FactorResources, FactorPersistence, FactorPrivilege},
	LateralMovement:     {FactorPosture, FactorResources, FactorPersistence, FactorPrivilege, FactorDiscovered},
	Collection:          {FactorPosture, FactorResources, FactorPersistence, FactorPrivilege},
	CommandAndControl:   {FactorPosture, FactorResources, FactorPersistence},
	Exfiltration:        {FactorPosture, FactorResources, FactorPersistence, FactorData},
	Impact:              {FactorPosture, FactorResources, FactorPersistence, FactorData},
}

// Weights maps each factor a stage uses to its contribution.
type Weights map[Factor]float64

// Sum adds the weights in a fixed order.
func (w Weights) Sum() float64 {
	var s float64
	for _, f := range factorOrder {
		s += w[f]
	}
	return s
}

// Params is the tunable part of one stage.
type Params struct {
	Weights    Weights     `yaml:"weights" json:"weights"`
	Resources  fuzzy.Shape `yaml:"resources" json:"resources"`
	Motivation fuzzy.Shape `yaml:"motivation,omitempty" json:"motivation,omitempty"`
	// Saturation is the count of vulnerabilities (initial access) or
	// discovered systems (lateral movement) at which that factor reaches 1.
	Saturation  float64 `yaml:"saturation,omitempty" json:"saturation,omitempty"`
	IncreaseMin int     `yaml:"increase_min,omitempty" json:"increase_min,omitempty"`
	IncreaseMax int     `yaml:"increase_max,omitempty" json:"increase_max,omitempty"`
}

// Catalog holds the payload values successful stages hand back.
type Catalog struct {
	Recon            ReconInfo   `yaml:"recon" json:"recon"`
	Credentials      Credentials `yaml:"credentials" json:"credentials"`
	Systems          []string    `yaml:"systems" json:"systems"`
	DataLabel        string      `yaml:"data_label" json:"data_label"`
	BreachImpact     string      `yaml:"breach_impact" json:"breach_impact"`
	DisruptionImpact string      `yaml:"disruption_impact" json:"disruption_impact"`
}

// Config is the complete, read-only parameter set for a lifecycle run.
type Config struct {
	Stages  map[Name]Params `yaml:"stages" json:"stages"`
	Catalog Catalog         `yaml:"catalog" json:"catalog"`
}

func rising(points ...float64) fuzzy.Shape {
	return fuzzy.MustShape(fuzzy.Difficulty, points...)
}

// DefaultCatalog returns the stock payload values.
func DefaultCatalog() Catalog {
	return Catalog{
		Recon: ReconInfo{
			IPAddresses:     []string{"10.0.1.1", "10.0.1.20"},
			Services:        []string{"SSH", "HTTP"},
			Vulnerabilities: []string{"CVE-2023-1234", "CVE-2024-5678"},
		},
		Credentials:      Credentials{Username: "user1", Password: "password123"},
		Systems:          []string{"server1", "client2", "printer3"},
		DataLabel:        "financial records",
		BreachImpact:     "financial data exfiltrated",
		DisruptionImpact: "system disruption caused",
	}
}

// DefaultConfig returns the stock weights and breakpoint tables. Resource
// and motivation tables rise with the attacker's capability.
func DefaultConfig() Config {
	return Config{
		Stages: map[Name]Params{
			Reconnaissance: {
				Weights:    Weights{FactorPosture: 0.4, FactorResources: 0.3, FactorMotivation: 0.3},
				Resources:  rising(0, 50, 80, 100),
				Motivation: rising(0, 20, 70, 100),
			},
			ResourceDevelopment: {
				Weights:     Weights{FactorResources: 0.7, FactorMotivation: 0.3},
				Resources:   rising(0, 20, 50, 80, 100),
				Motivation:  rising(0, 40, 70, 100),
				IncreaseMin: 5,
				IncreaseMax: 15,
			},
			InitialAccess: {
				Weights:    Weights{FactorPosture: 0.4, FactorResources: 0.3, FactorRecon: 0.3},
				Resources:  rising(0, 50, 80, 100),
				Saturation: 2,
			},
			Execution: {
				Weights:   Weights{FactorPosture: 0.5, FactorResources: 0.3, FactorAccessPoint: 0.2},
				Resources: rising(0, 20, 50, 80, 100),
			},
			Persistence: {
				Weights:   Weights{FactorPosture: 0.5, FactorResources: 0.3, FactorExecution: 0.2},
				Resources: rising(0, 30, 60, 90, 100),
			},
			PrivilegeEscalation: {
				Weights:   Weights{FactorPosture: 0.5, FactorResources: 0.3, FactorPersistence: 0.2},
				Resources: rising(0, 40, 70, 100),
			},
			DefenseEvasion: {
				Weights:   Weights{FactorPosture: 0.6, FactorResources: 0.2, FactorPersistence: 0.2},
				Resources: rising(0, 20, 50, 80, 100),
			},
			CredentialAccess: {
				Weights:   Weights{FactorPosture: 0.5, FactorResources: 0.3, FactorPersistence: 0.1, FactorPrivilege: 0.1},
				Resources: rising(0, 30, 60, 90, 100),
			},
			Discovery: {
				Weights:   Weights{FactorPosture: 0.6, FactorResources: 0.2, FactorPersistence: 0.1, FactorPrivilege: 0.1},
				Resources: rising(0, 20, 50, 80, 100),
			},
			LateralMovement: {
				Weights:    Weights{FactorPosture: 0.5, FactorResources: 0.2, FactorPersistence: 0.1, FactorPrivilege: 0.1, FactorDiscovered: 0.1},
				Resources:  rising(0, 10, 40, 70, 100),
				Saturation: 3,
			},
			Collection: {
				Weights:   Weights{FactorPosture: 0.6, FactorResources: 0.2, FactorPersistence: 0.1, FactorPrivilege: 0.1},
				Resources: rising(0, 20, 50, 80, 100),
			},
			CommandAndControl: {
				Weights:   Weights{FactorPosture: 0.6, FactorResources: 0.2, FactorPersistence: 0.2},
				Resources: rising(0, 30, 60, 90, 100),
			},
			Exfiltration: {
				Weights:   Weights{FactorPosture: 0.6, FactorResources: 0.3, FactorPersistence: 0.1, FactorData: 0},
				Resources: rising(0, 20, 50, 80, 100),
			},
			Impact: {
				Weights:   Weights{FactorPosture: 0.6, FactorResources: 0.2, FactorPersistence: 0.1, FactorData: 0.1},
				Resources: rising(0, 40, 70, 90, 100),
			},
		},
		Catalog: DefaultCatalog(),
	}
}

// Validate checks that every stage is present with usable weights and
// breakpoint tables. Errors wrap ErrInvalidConfig and, for malformed tables,
// fuzzy.ErrInvalidBreakpoints.
func (c Config) Validate() error {
	for name := range c.Stages {
		if !name.Valid() {
			return fmt.Errorf("%w: unknown stage %q", ErrInvalidConfig, name)
		}
	}
	for _, name := range Order {
		p, ok := c.Stages[name]
		if !ok {
			return fmt.Errorf("%w: missing stage %s", ErrInvalidConfig, name)
		}
		if err := p.validate(name); err != nil {
			return err
		}
	}
	return nil
}

func (p Params) validate(name Name) error {
	if len(p.Weights) == 0 {
		return fmt.Errorf("%w: %s has no weights", ErrInvalidConfig, name)
	}
	allowed := allowedFactors[name]
	for f, w := range p.Weights {
		if !containsFactor(allowed, f) {
			return fmt.Errorf("%w: %s does not accept factor %q", ErrInvalidConfig, name, f)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("%w: %s weight %s=%g must be a non-negative number", ErrInvalidConfig, name, f, w)
		}
	}
	if sum := p.Weights.Sum(); math.Abs(sum-1) > WeightTolerance {
		return fmt.Errorf("%w: %s weights sum to %g, want 1", ErrInvalidConfig, name, sum)
	}
	if err := p.Resources.Validate(); err != nil {
		return fmt.Errorf("%w: %s resources: %w", ErrInvalidConfig, name, err)
	}
	if _, ok := p.Weights[FactorMotivation]; ok {
		if err := p.Motivation.Validate(); err != nil {
			return fmt.Errorf("%w: %s motivation: %w", ErrInvalidConfig, name, err)
		}
	}
	_, recon := p.Weights[FactorRecon]
	_, discovered := p.Weights[FactorDiscovered]
	if (recon || discovered) && !(p.Saturation > 0) {
		return fmt.Errorf("%w: %s needs a positive saturation", ErrInvalidConfig, name)
	}
	if name == ResourceDevelopment && (p.IncreaseMin < 0 || p.IncreaseMax < p.IncreaseMin) {
		return fmt.Errorf("%w: %s increase range [%d,%d]", ErrInvalidConfig, name, p.IncreaseMin, p.IncreaseMax)
	}
	return nil
}

func containsFactor(fs []Factor, f Factor) bool {
	for _, x := range fs {
		if x == f {
			return true
		}
	}
	return false
}

// Normalize returns a copy of c with every weight set rescaled to sum to 1.
// Weight sets summing to zero are left untouched and fail validation.
func (c Config) Normalize() Config {
	out := c.Clone()
	for name, p := range out.Stages {
		sum := p.Weights.Sum()
		if !(sum > 0) {
			continue
		}
		for f, w := range p.Weights {
			p.Weights[f] = w / sum
		}
		out.Stages[name] = p
	}
	return out
}

// Clone deep-copies the weight maps and payload slices of c.
func (c Config) Clone() Config {
	out := Config{Stages: make(map[Name]Params, len(c.Stages)), Catalog: c.Catalog.clone()}
	for name, p := range c.Stages {
		w := make(Weights, len(p.Weights))
		for f, v := range p.Weights {
			w[f] = v
		}
		p.Weights = w
		p.Resources = cloneShape(p.Resources)
		p.Motivation = cloneShape(p.Motivation)
		out.Stages[name] = p
	}
	return out
}

func cloneShape(s fuzzy.Shape) fuzzy.Shape {
	s.Points = append([]float64(nil), s.Points...)
	if s.Levels != nil {
		s.Levels = append([]float64(nil), s.Levels...)
	}
	return s
}

func (c Catalog) clone() Catalog {
	c.Recon = c.Recon.clone()
	c.Systems = append([]string(nil), c.Systems...)
	return c
}

func (r ReconInfo) clone() ReconInfo {
	return ReconInfo{
		IPAddresses:     append([]string(nil), r.IPAddresses...),
		Services:        append([]string(nil), r.Services...),
		Vulnerabilities: append([]string(nil), r.Vulnerabilities...),
	}
}
