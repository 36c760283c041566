// Package lifecycle drives one attacker through the intrusion stages and
// records every roll in a Trace.
package lifecycle

import (
	"fmt"
	"math"
	"strconv"

	"intrusion-sim/internal/fuzzy"
	"intrusion-sim/internal/stage"
)

// maxResources is the top of the resource scale every stage table covers.
const maxResources = 100

// Attacker is the capability an attacker brings to a run. Both fields are on
// the 0-100 scale.
type Attacker struct {
	Resources  float64 `yaml:"resources" json:"resources"`
	Motivation float64 `yaml:"motivation" json:"motivation"`
}

// State is the evolving picture of one run. It is owned by that run alone.
type State struct {
	ReconInfo         *stage.ReconInfo   `json:"recon_info,omitempty"`
	InitialAccess     stage.Status       `json:"initial_access"`
	Executed          stage.Status       `json:"executed"`
	Persistence       stage.Status       `json:"persistence"`
	Privileged        stage.Status       `json:"privileged"`
	Evaded            stage.Status       `json:"evaded"`
	Credentials       *stage.Credentials `json:"credentials,omitempty"`
	DiscoveredSystems []string           `json:"discovered_systems,omitempty"`
	CurrentSystem     *string            `json:"current_system,omitempty"`
	CollectedData     *string            `json:"collected_data,omitempty"`
	C2Established     stage.Status       `json:"c2_established"`
	Exfiltrated       stage.Status       `json:"exfiltrated"`
	Impact            *string            `json:"impact,omitempty"`
	Resources         float64            `json:"resources"`
}

// Change is one state field a stage set.
type Change struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Record is a single stage attempt.
type Record struct {
	stage.Outcome
	ResourceBand fuzzy.Band `json:"resource_band"`
	Changes      []Change   `json:"changes,omitempty"`
}

// Trace is the full account of a run. Run returns it complete and never
// touches it again.
type Trace struct {
	BatchID  string   `json:"batch_id,omitempty"`
	Run      int      `json:"run"`
	Seed     int64    `json:"seed"`
	Posture  float64  `json:"posture"`
	Attacker Attacker `json:"attacker"`
	Records  []Record `json:"records"`
	Final    State    `json:"final"`
	// EndedAt is the last stage attempted.
	EndedAt stage.Name `json:"ended_at"`

	// Set by batch drivers, not by Run.
	AttackerID   string    `json:"attacker_id,omitempty"`
	AttackerType string    `json:"attacker_type,omitempty"`
	Detected     bool      `json:"detected,omitempty"`
	Response     *Response `json:"response,omitempty"`
}

// Response is what the defender did about a detected intrusion.
type Response struct {
	Evicted bool `json:"evicted"`
	// Resources is the attacker strength left after isolation and deception.
	Resources float64 `json:"resources"`
}

// Evicted reports whether the defender removed the attacker.
func (t *Trace) Evicted() bool { return t.Response != nil && t.Response.Evicted }

// Compromised reports whether the attacker established persistence.
func (t *Trace) Compromised() bool { return t.Final.Persistence.Succeeded() }

// Impacted reports whether the run reached a successful impact.
func (t *Trace) Impacted() bool { return t.Final.Impact != nil }

// EndedEarly reports whether the run stopped before the impact stage.
func (t *Trace) EndedEarly() bool { return t.EndedAt != stage.Impact }

// Record returns the record for name, if that stage was attempted.
func (t *Trace) Record(name stage.Name) (Record, bool) {
	for _, r := range t.Records {
		if r.Stage == name {
			return r, true
		}
	}
	return Record{}, false
}

// Orchestrator runs lifecycles against a validated stage configuration.
type Orchestrator struct {
	cfg stage.Config
}

// New validates cfg once and returns an orchestrator bound to a private copy.
func New(cfg stage.Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("lifecycle: %w", err)
	}
	return &Orchestrator{cfg: cfg.Clone()}, nil
}

// Config returns a copy of the configuration the orchestrator runs with.
func (o *Orchestrator) Config() stage.Config { return o.cfg.Clone() }

// RunLifecycle validates cfg and performs a single run.
func RunLifecycle(posture float64, a Attacker, cfg stage.Config, src stage.Source) (*Trace, error) {
	o, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return o.Run(posture, a, src), nil
}

type runner struct {
	cfg     stage.Config
	posture float64
	a       Attacker
	src     stage.Source
	st      State
	records []Record
}

func (r *runner) inputs() stage.Inputs {
	return stage.Inputs{Posture: r.posture, Resources: r.st.Resources, Motivation: r.a.Motivation}
}

func (r *runner) params(n stage.Name) stage.Params { return r.cfg.Stages[n] }

func (r *runner) record(o stage.Outcome, resources float64, changes ...Change) {
	band := r.params(o.Stage).Resources.Band(resources)
	r.records = append(r.records, Record{Outcome: o, ResourceBand: band, Changes: changes})
}

func statusChange(field string, o stage.Outcome) Change {
	return Change{Field: field, Value: stage.StatusOf(o.Success).String()}
}

// Run performs one lifecycle. Unlucky draws shorten the trace; they are not
// errors. Posture is clamped to [0,1].
func (o *Orchestrator) Run(posture float64, a Attacker, src stage.Source) *Trace {
	r := &runner{cfg: o.cfg, posture: fuzzy.Clamp01(posture), a: a, src: src}
	r.st.Resources = a.Resources
	ended := r.run()
	return &Trace{
		Posture:  r.posture,
		Attacker: a,
		Records:  r.records,
		Final:    r.st,
		EndedAt:  ended,
	}
}

func (r *runner) run() stage.Name {
	cat := r.cfg.Catalog

	in := r.inputs()
	out, info := stage.Reconnoiter(r.params(stage.Reconnaissance), in, cat, r.src)
	if info != nil {
		r.st.ReconInfo = info
		r.record(out, in.Resources, Change{Field: "recon_info", Value: strconv.Itoa(len(info.Vulnerabilities)) + " vulnerabilities"})
	} else {
		r.record(out, in.Resources)
	}

	in = r.inputs()
	out, inc := stage.DevelopResources(r.params(stage.ResourceDevelopment), in, r.src)
	if inc > 0 {
		r.st.Resources = math.Min(maxResources, r.st.Resources+inc)
		r.record(out, in.Resources, Change{Field: "resources", Value: strconv.FormatFloat(r.st.Resources, 'f', -1, 64)})
	} else {
		r.record(out, in.Resources)
	}

	in = r.inputs()
	out = stage.GainInitialAccess(r.params(stage.InitialAccess), in, r.st.ReconInfo, r.src)
	r.st.InitialAccess = stage.StatusOf(out.Success)
	r.record(out, in.Resources, statusChange("initial_access", out))
	if !out.Success {
		return stage.InitialAccess
	}

	out = stage.Execute(r.params(stage.Execution), in, true, r.st.ReconInfo, r.src)
	r.st.Executed = stage.StatusOf(out.Success)
	r.record(out, in.Resources, statusChange("executed", out))
	if !out.Success {
		return stage.Execution
	}

	out = stage.EstablishPersistence(r.params(stage.Persistence), in, true, r.src)
	r.st.Persistence = stage.StatusOf(out.Success)
	r.record(out, in.Resources, statusChange("persistence", out))
	persist := out.Success

	out = stage.EscalatePrivileges(r.params(stage.PrivilegeEscalation), in, persist, r.src)
	r.st.Privileged = stage.StatusOf(out.Success)
	r.record(out, in.Resources, statusChange("privileged", out))
	priv := out.Success

	out = stage.EvadeDefenses(r.params(stage.DefenseEvasion), in, persist, r.src)
	r.st.Evaded = stage.StatusOf(out.Success)
	r.record(out, in.Resources, statusChange("evaded", out))

	out, creds := stage.AccessCredentials(r.params(stage.CredentialAccess), in, persist, priv, cat, r.src)
	if creds != nil {
		r.st.Credentials = creds
		r.record(out, in.Resources, Change{Field: "credentials", Value: creds.Username})
	} else {
		r.record(out, in.Resources)
	}

	out, systems := stage.DiscoverSystems(r.params(stage.Discovery), in, persist, priv, cat, r.src)
	if systems != nil {
		r.st.DiscoveredSystems = systems
		r.record(out, in.Resources, Change{Field: "discovered_systems", Value: strconv.Itoa(len(systems))})
	} else {
		r.record(out, in.Resources)
	}

	out, target := stage.MoveLaterally(r.params(stage.LateralMovement), in, persist, priv, r.st.DiscoveredSystems, r.src)
	if target != nil {
		r.st.CurrentSystem = target
		r.record(out, in.Resources, Change{Field: "current_system", Value: *target})
	} else {
		r.record(out, in.Resources)
	}

	out, data := stage.CollectData(r.params(stage.Collection), in, persist, priv, cat, r.src)
	if data != nil {
		r.st.CollectedData = data
		r.record(out, in.Resources, Change{Field: "collected_data", Value: *data})
	} else {
		r.record(out, in.Resources)
	}

	out = stage.EstablishC2(r.params(stage.CommandAndControl), in, persist, r.src)
	r.st.C2Established = stage.StatusOf(out.Success)
	r.record(out, in.Resources, statusChange("c2_established", out))

	out = stage.Exfiltrate(r.params(stage.Exfiltration), in, persist, r.st.CollectedData, r.src)
	r.st.Exfiltrated = stage.StatusOf(out.Success)
	r.record(out, in.Resources, statusChange("exfiltrated", out))

	out, impact := stage.DeliverImpact(r.params(stage.Impact), in, persist, r.st.CollectedData, cat, r.src)
	if impact != nil {
		r.st.Impact = impact
		r.record(out, in.Resources, Change{Field: "impact", Value: *impact})
	} else {
		r.record(out, in.Resources)
	}
	return stage.Impact
}
