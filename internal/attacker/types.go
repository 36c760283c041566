package attacker

import (
	"fmt"
	"strings"
)

// Category is the kind of organisation under attack.
type Category string

const (
	CategorySME Category = "sme"
	CategorySMB Category = "smb"
)

// ParseCategory accepts the category name in any case.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(s)); c {
	case CategorySME, CategorySMB:
		return c, nil
	default:
		return "", fmt.Errorf("attacker: unknown category %q", s)
	}
}

// Type is the kind of adversary.
type Type string

const (
	ScriptKiddie       Type = "script_kiddie"
	DisgruntledInsider Type = "disgruntled_insider"
	OrganizedCrime     Type = "organized_crime"
	NationState        Type = "nation_state"
)

var typeValues = map[Type]float64{
	ScriptKiddie:       0.5,
	DisgruntledInsider: 0.7,
	OrganizedCrime:     0.8,
	NationState:        1.0,
}

var categoryFactor = map[Category]float64{
	CategorySME: 1.5,
	CategorySMB: 2,
}

// PoolEntry is the chance that an adversary type joins a round.
type PoolEntry struct {
	Type        Type
	Probability float64
}

// Pools lists the adversaries each category attracts.
var Pools = map[Category][]PoolEntry{
	CategorySME: {
		{ScriptKiddie, 0.7},
		{DisgruntledInsider, 0.2},
		{OrganizedCrime, 0.1},
	},
	CategorySMB: {
		{ScriptKiddie, 0.5},
		{DisgruntledInsider, 0.2},
		{OrganizedCrime, 0.1},
		{NationState, 0.2},
	},
}

// Attacker is one adversary drawn from a pool.
type Attacker struct {
	ID            string   `json:"id"`
	Type          Type     `json:"type"`
	Category      Category `json:"category"`
	Maliciousness float64  `json:"maliciousness"`
	Irrational    bool     `json:"irrational,omitempty"`
}
