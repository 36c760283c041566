package stage

import (
	"errors"
	"math"
	"testing"

	"intrusion-sim/internal/fuzzy"
)

// constSource returns the same draw every time and counts calls.
type constSource struct {
	f       float64
	n       int
	floats  int
	intns   int
	lastMax int
}

func (s *constSource) Float64() float64 { s.floats++; return s.f }

func (s *constSource) Intn(n int) int {
	s.intns++
	s.lastMax = n
	if s.n >= n {
		return n - 1
	}
	return s.n
}

type stageFn func(cfg Config, in Inputs, ok bool, src Source) Outcome

// allStages calls every stage with its prerequisites either all met or all
// unmet.
func allStages() map[Name]stageFn {
	recon := &ReconInfo{Vulnerabilities: []string{"a", "b"}}
	data := "records"
	systems := []string{"s1", "s2"}
	return map[Name]stageFn{
		Reconnaissance: func(c Config, in Inputs, _ bool, src Source) Outcome {
			o, _ := Reconnoiter(c.Stages[Reconnaissance], in, c.Catalog, src)
			return o
		},
		ResourceDevelopment: func(c Config, in Inputs, _ bool, src Source) Outcome {
			o, _ := DevelopResources(c.Stages[ResourceDevelopment], in, src)
			return o
		},
		InitialAccess: func(c Config, in Inputs, _ bool, src Source) Outcome {
			return GainInitialAccess(c.Stages[InitialAccess], in, recon, src)
		},
		Execution: func(c Config, in Inputs, ok bool, src Source) Outcome {
			return Execute(c.Stages[Execution], in, ok, recon, src)
		},
		Persistence: func(c Config, in Inputs, ok bool, src Source) Outcome {
			return EstablishPersistence(c.Stages[Persistence], in, ok, src)
		},
		PrivilegeEscalation: func(c Config, in Inputs, ok bool, src Source) Outcome {
			return EscalatePrivileges(c.Stages[PrivilegeEscalation], in, ok, src)
		},
		DefenseEvasion: func(c Config, in Inputs, ok bool, src Source) Outcome {
			return EvadeDefenses(c.Stages[DefenseEvasion], in, ok, src)
		},
		CredentialAccess: func(c Config, in Inputs, ok bool, src Source) Outcome {
			o, _ := AccessCredentials(c.Stages[CredentialAccess], in, ok, ok, c.Catalog, src)
			return o
		},
		Discovery: func(c Config, in Inputs, ok bool, src Source) Outcome {
			o, _ := DiscoverSystems(c.Stages[Discovery], in, ok, ok, c.Catalog, src)
			return o
		},
		LateralMovement: func(c Config, in Inputs, ok bool, src Source) Outcome {
			o, _ := MoveLaterally(c.Stages[LateralMovement], in, ok, ok, systems, src)
			return o
		},
		Collection: func(c Config, in Inputs, ok bool, src Source) Outcome {
			o, _ := CollectData(c.Stages[Collection], in, ok, ok, c.Catalog, src)
			return o
		},
		CommandAndControl: func(c Config, in Inputs, ok bool, src Source) Outcome {
			return EstablishC2(c.Stages[CommandAndControl], in, ok, src)
		},
		Exfiltration: func(c Config, in Inputs, ok bool, src Source) Outcome {
			return Exfiltrate(c.Stages[Exfiltration], in, ok, &data, src)
		},
		Impact: func(c Config, in Inputs, ok bool, src Source) Outcome {
			o, _ := DeliverImpact(c.Stages[Impact], in, ok, &data, c.Catalog, src)
			return o
		},
	}
}

func TestPostureMonotonic(t *testing.T) {
	cfg := DefaultConfig()
	for name, fn := range allStages() {
		prev := math.Inf(1)
		for i := 0; i <= 20; i++ {
			in := Inputs{Posture: float64(i) / 20, Resources: 60, Motivation: 60}
			o := fn(cfg, in, true, &constSource{f: 0.5})
			if o.Chance > prev+1e-12 {
				t.Fatalf("%s: chance rose from %v to %v at posture %v", name, prev, o.Chance, in.Posture)
			}
			prev = o.Chance
		}
	}
}

func TestChanceInUnitRange(t *testing.T) {
	cfg := DefaultConfig()
	inputs := []Inputs{
		{Posture: -1, Resources: -50, Motivation: 500},
		{Posture: 0, Resources: 100, Motivation: 100},
		{Posture: 2, Resources: 1000, Motivation: -1},
	}
	for name, fn := range allStages() {
		for _, in := range inputs {
			o := fn(cfg, in, true, &constSource{})
			if o.Chance < 0 || o.Chance > 1 {
				t.Fatalf("%s: chance %v outside [0,1] for %+v", name, o.Chance, in)
			}
		}
	}
}

func TestChanceClampedAboveOne(t *testing.T) {
	p := Params{
		Weights:   Weights{FactorPosture: 1, FactorResources: 1},
		Resources: fuzzy.MustShape(fuzzy.Difficulty, 0, 100),
	}
	src := &constSource{f: 0.999}
	o := EvadeDefenses(p, Inputs{Posture: 0, Resources: 100}, true, src)
	if o.RawChance != 2 {
		t.Fatalf("raw chance = %v, want 2", o.RawChance)
	}
	if o.Chance != 1 {
		t.Fatalf("chance = %v, want 1", o.Chance)
	}
	if !o.Success {
		t.Fatal("expected success with chance 1")
	}
}

func TestUnmetPrerequisiteGatesToZero(t *testing.T) {
	cfg := DefaultConfig()
	gated := []Name{
		Execution, Persistence, PrivilegeEscalation, DefenseEvasion, CredentialAccess,
		Discovery, LateralMovement, Collection, CommandAndControl, Exfiltration, Impact,
	}
	fns := allStages()
	for _, name := range gated {
		src := &constSource{f: 0}
		o := fns[name](cfg, Inputs{Posture: 0, Resources: 100, Motivation: 100}, false, src)
		if o.Chance != 0 || o.Success || !o.Gated {
			t.Fatalf("%s: expected gated zero chance, got %+v", name, o)
		}
		if src.floats != 1 {
			t.Fatalf("%s: took %d draws, want 1", name, src.floats)
		}
	}
}

func TestLateralMovementNeedsDiscoveredSystems(t *testing.T) {
	cfg := DefaultConfig()
	o, target := MoveLaterally(cfg.Stages[LateralMovement], Inputs{Resources: 100}, true, true, nil, &constSource{f: 0})
	if !o.Gated || o.Success || target != nil {
		t.Fatalf("expected gated lateral movement, got %+v target=%v", o, target)
	}
}

func TestLateralMovementPicksTarget(t *testing.T) {
	cfg := DefaultConfig()
	src := &constSource{f: 0, n: 2}
	systems := []string{"server1", "client2", "printer3"}
	o, target := MoveLaterally(cfg.Stages[LateralMovement], Inputs{Resources: 100}, true, true, systems, src)
	if !o.Success || target == nil {
		t.Fatalf("expected success, got %+v", o)
	}
	if *target != "printer3" {
		t.Fatalf("target = %s, want printer3", *target)
	}
	if src.lastMax != len(systems) {
		t.Fatalf("Intn bound = %d, want %d", src.lastMax, len(systems))
	}
}

func TestDevelopResourcesIncrease(t *testing.T) {
	cfg := DefaultConfig()
	src := &constSource{f: 0, n: 3}
	o, inc := DevelopResources(cfg.Stages[ResourceDevelopment], Inputs{Resources: 90, Motivation: 90}, src)
	if !o.Success {
		t.Fatalf("expected success, got %+v", o)
	}
	if inc != 8 {
		t.Fatalf("increase = %v, want 8", inc)
	}
	if src.lastMax != 11 {
		t.Fatalf("Intn bound = %d, want 11", src.lastMax)
	}

	src = &constSource{f: 1}
	if _, inc := DevelopResources(cfg.Stages[ResourceDevelopment], Inputs{Resources: 90}, src); inc != 0 {
		t.Fatalf("failed roll increased resources by %v", inc)
	}
	if src.intns != 0 {
		t.Fatalf("failed roll consumed %d Intn draws", src.intns)
	}
}

func TestPayloadsOnlyOnSuccess(t *testing.T) {
	cfg := DefaultConfig()
	in := Inputs{Posture: 0.5, Resources: 50, Motivation: 50}
	fail := &constSource{f: 1}

	if _, r := Reconnoiter(cfg.Stages[Reconnaissance], in, cfg.Catalog, fail); r != nil {
		t.Fatal("failed recon returned info")
	}
	if _, c := AccessCredentials(cfg.Stages[CredentialAccess], in, true, false, cfg.Catalog, fail); c != nil {
		t.Fatal("failed credential access returned credentials")
	}
	if _, s := DiscoverSystems(cfg.Stages[Discovery], in, true, false, cfg.Catalog, fail); s != nil {
		t.Fatal("failed discovery returned systems")
	}
	if _, d := CollectData(cfg.Stages[Collection], in, true, false, cfg.Catalog, fail); d != nil {
		t.Fatal("failed collection returned data")
	}

	win := &constSource{f: 0}
	_, r := Reconnoiter(cfg.Stages[Reconnaissance], in, cfg.Catalog, win)
	if r == nil || len(r.Vulnerabilities) != 2 {
		t.Fatalf("recon info = %+v", r)
	}
	r.Vulnerabilities[0] = "mutated"
	if cfg.Catalog.Recon.Vulnerabilities[0] == "mutated" {
		t.Fatal("recon info aliases the catalog")
	}
}

func TestImpactDescription(t *testing.T) {
	cfg := DefaultConfig()
	in := Inputs{Posture: 0, Resources: 100}
	data := "records"
	_, desc := DeliverImpact(cfg.Stages[Impact], in, true, &data, cfg.Catalog, &constSource{f: 0})
	if desc == nil || *desc != cfg.Catalog.BreachImpact {
		t.Fatalf("impact with data = %v", desc)
	}
	_, desc = DeliverImpact(cfg.Stages[Impact], in, true, nil, cfg.Catalog, &constSource{f: 0})
	if desc == nil || *desc != cfg.Catalog.DisruptionImpact {
		t.Fatalf("impact without data = %v", desc)
	}
}

func TestInitialAccessUsesRecon(t *testing.T) {
	cfg := DefaultConfig()
	in := Inputs{Posture: 0.5, Resources: 50}
	without := GainInitialAccess(cfg.Stages[InitialAccess], in, nil, &constSource{f: 1})
	with := GainInitialAccess(cfg.Stages[InitialAccess], in, &ReconInfo{Vulnerabilities: []string{"a", "b"}}, &constSource{f: 1})
	if math.Abs(with.Chance-without.Chance-0.3) > 1e-9 {
		t.Fatalf("recon bonus = %v, want 0.3", with.Chance-without.Chance)
	}
}

func TestStatusText(t *testing.T) {
	for _, s := range []Status{NotAttempted, Failed, Succeeded} {
		b, err := s.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText: %v", err)
		}
		var got Status
		if err := got.UnmarshalText(b); err != nil || got != s {
			t.Fatalf("round trip %s: got %s, %v", s, got, err)
		}
	}
	if !Succeeded.Succeeded() || Failed.Succeeded() || NotAttempted.Succeeded() {
		t.Fatal("Succeeded() mismatch")
	}
}

func TestNameValid(t *testing.T) {
	if !Impact.Valid() {
		t.Fatal("impact should be valid")
	}
	if Name("phishing").Valid() {
		t.Fatal("unknown stage reported valid")
	}
	if len(Order) != 14 {
		t.Fatalf("expected 14 stages, got %d", len(Order))
	}
}

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		breakpoints bool
	}{
		{"missing stage", func(c *Config) { delete(c.Stages, Collection) }, false},
		{"unknown stage", func(c *Config) { c.Stages["phishing"] = c.Stages[Impact] }, false},
		{"weights over one", func(c *Config) { c.Stages[Impact].Weights[FactorPosture] = 0.9 }, false},
		{"foreign factor", func(c *Config) { c.Stages[Impact].Weights[FactorRecon] = 0 }, false},
		{"negative weight", func(c *Config) {
			w := c.Stages[Execution].Weights
			w[FactorPosture] = -0.5
			w[FactorResources] = 1.3
		}, false},
		{"empty weights", func(c *Config) {
			p := c.Stages[Discovery]
			p.Weights = nil
			c.Stages[Discovery] = p
		}, false},
		{"decreasing breakpoints", func(c *Config) {
			p := c.Stages[Persistence]
			p.Resources = fuzzy.Shape{Points: []float64{0, 60, 30, 100}, Polarity: fuzzy.Difficulty}
			c.Stages[Persistence] = p
		}, true},
		{"bad motivation table", func(c *Config) {
			p := c.Stages[Reconnaissance]
			p.Motivation = fuzzy.Shape{}
			c.Stages[Reconnaissance] = p
		}, true},
		{"zero saturation", func(c *Config) {
			p := c.Stages[InitialAccess]
			p.Saturation = 0
			c.Stages[InitialAccess] = p
		}, false},
		{"inverted increase", func(c *Config) {
			p := c.Stages[ResourceDevelopment]
			p.IncreaseMin, p.IncreaseMax = 10, 5
			c.Stages[ResourceDevelopment] = p
		}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
			if tc.breakpoints && !errors.Is(err, fuzzy.ErrInvalidBreakpoints) {
				t.Fatalf("expected ErrInvalidBreakpoints in chain, got %v", err)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	cfg := DefaultConfig()
	p := cfg.Stages[LateralMovement]
	p.Weights = Weights{FactorPosture: 0.6, FactorResources: 0.2, FactorPersistence: 0.1, FactorPrivilege: 0.1, FactorDiscovered: 0.1}
	cfg.Stages[LateralMovement] = p
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected unnormalized weights to fail, got %v", err)
	}
	norm := cfg.Normalize()
	if err := norm.Validate(); err != nil {
		t.Fatalf("normalized config invalid: %v", err)
	}
	if got := norm.Stages[LateralMovement].Weights.Sum(); math.Abs(got-1) > 1e-12 {
		t.Fatalf("normalized sum = %v", got)
	}
	if cfg.Stages[LateralMovement].Weights[FactorPosture] != 0.6 {
		t.Fatal("Normalize mutated its receiver")
	}
}
