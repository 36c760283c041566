// Package stage implements the scoring function of every intrusion lifecycle
// stage. Each function is pure apart from the draws it takes from the Source
// it is handed.
package stage

import (
	"fmt"
)

// Name identifies a lifecycle stage.
type Name string

const (
	Reconnaissance      Name = "reconnaissance"
	ResourceDevelopment Name = "resource_development"
	InitialAccess       Name = "initial_access"
	Execution           Name = "execution"
	Persistence         Name = "persistence"
	PrivilegeEscalation Name = "privilege_escalation"
	DefenseEvasion      Name = "defense_evasion"
	CredentialAccess    Name = "credential_access"
	Discovery           Name = "discovery"
	LateralMovement     Name = "lateral_movement"
	Collection          Name = "collection"
	CommandAndControl   Name = "command_and_control"
	Exfiltration        Name = "exfiltration"
	Impact              Name = "impact"
)

// Order lists the stages in the sequence the orchestrator attempts them.
var Order = []Name{
	Reconnaissance,
	ResourceDevelopment,
	InitialAccess,
	Execution,
	Persistence,
	PrivilegeEscalation,
	DefenseEvasion,
	CredentialAccess,
	Discovery,
	LateralMovement,
	Collection,
	CommandAndControl,
	Exfiltration,
	Impact,
}

// Valid reports whether n is one of the known stages.
func (n Name) Valid() bool {
	for _, o := range Order {
		if o == n {
			return true
		}
	}
	return false
}

// Status is the tri-state outcome of a stage within one run.
type Status int8

const (
	NotAttempted Status = iota
	Failed
	Succeeded
)

// StatusOf converts a roll result into a Status.
func StatusOf(success bool) Status {
	if success {
		return Succeeded
	}
	return Failed
}

// Succeeded reports whether the stage succeeded. NotAttempted and Failed both
// read as false for gating purposes.
func (s Status) Succeeded() bool { return s == Succeeded }

func (s Status) String() string {
	switch s {
	case NotAttempted:
		return "not_attempted"
	case Failed:
		return "failed"
	case Succeeded:
		return "succeeded"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "not_attempted", "":
		*s = NotAttempted
	case "failed":
		*s = Failed
	case "succeeded":
		*s = Succeeded
	default:
		return fmt.Errorf("stage: unknown status %q", string(b))
	}
	return nil
}

// Source is the randomness a stage consumes. *rand.Rand satisfies it.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// Inputs are the run-wide scalars every stage reads. Posture is on the unit
// scale; Resources and Motivation are on the 0-100 scale.
type Inputs struct {
	Posture    float64
	Resources  float64
	Motivation float64
}

// Outcome records a single stage roll.
type Outcome struct {
	Stage     Name    `json:"stage"`
	RawChance float64 `json:"raw_chance"`
	Chance    float64 `json:"chance"`
	Draw      float64 `json:"draw"`
	Success   bool    `json:"success"`
	Gated     bool    `json:"gated,omitempty"`
}

// ReconInfo is what a successful reconnaissance learns about the target.
type ReconInfo struct {
	IPAddresses     []string `yaml:"ip_addresses" json:"ip_addresses"`
	Services        []string `yaml:"services" json:"services"`
	Vulnerabilities []string `yaml:"vulnerabilities" json:"vulnerabilities"`
}

// Credentials harvested during credential access.
type Credentials struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}
