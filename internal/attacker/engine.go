// Package attacker draws adversaries from category pools and turns them into
// lifecycle attacker profiles.
package attacker

import (
	"fmt"

	"github.com/google/uuid"

	"intrusion-sim/internal/fuzzy"
	"intrusion-sim/internal/lifecycle"
	"intrusion-sim/internal/stage"
)

// Maliciousness scales an adversary type by how attractive the category is.
// The result can exceed 1 for SMB targets.
func Maliciousness(t Type, c Category) (float64, error) {
	v, ok := typeValues[t]
	if !ok {
		return 0, fmt.Errorf("attacker: unknown type %q", t)
	}
	f, ok := categoryFactor[c]
	if !ok {
		return 0, fmt.Errorf("attacker: unknown category %q", c)
	}
	return v * f, nil
}

// Intensity is the workload one adversary puts on the defender.
func Intensity(maliciousness float64) float64 { return maliciousness * 1.5 }

// DefenseEffectiveness maps defender resources in [0,1] and the round's total
// workload to an effectiveness in [0,1]. Below half resources the defender
// gets no category bonus.
func DefenseEffectiveness(resources, workload float64, c Category) (float64, error) {
	if resources < 0.5 {
		return fuzzy.Clamp01(resources), nil
	}
	var base float64
	switch c {
	case CategorySME:
		base = 0.7
	case CategorySMB:
		base = 0.8
	default:
		return 0, fmt.Errorf("attacker: unknown category %q", c)
	}
	return fuzzy.Clamp01(1 - (1-resources)*(base-workload*0.2)), nil
}

// Profile converts the adversary into lifecycle inputs: resources follow the
// type's base value and motivation follows maliciousness.
func (a Attacker) Profile() lifecycle.Attacker {
	return lifecycle.Attacker{
		Resources:  100 * typeValues[a.Type],
		Motivation: 100 * fuzzy.Clamp01(a.Maliciousness),
	}
}

// Engine draws adversaries for one category.
type Engine struct {
	category   Category
	pool       []PoolEntry
	malice     map[Type]float64
	irrational float64
	newID      func() string
}

// NewEngine returns an engine for c. irrational is the chance an adversary
// ignores its type and acts with random maliciousness.
func NewEngine(c Category, irrational float64) (*Engine, error) {
	pool, ok := Pools[c]
	if !ok {
		return nil, fmt.Errorf("attacker: unknown category %q", c)
	}
	return newEngine(c, pool, irrational)
}

func newEngine(c Category, pool []PoolEntry, irrational float64) (*Engine, error) {
	malice := make(map[Type]float64, len(pool))
	for _, entry := range pool {
		m, err := Maliciousness(entry.Type, c)
		if err != nil {
			return nil, err
		}
		malice[entry.Type] = m
	}
	return &Engine{
		category:   c,
		pool:       pool,
		malice:     malice,
		irrational: fuzzy.Clamp01(irrational),
		newID:      uuid.NewString,
	}, nil
}

// Category returns the engine's category.
func (e *Engine) Category() Category { return e.category }

// Draw rolls every pool entry once. Joining adversaries take one further draw
// for irrationality and, if irrational, one for their maliciousness.
func (e *Engine) Draw(src stage.Source) []Attacker {
	var out []Attacker
	for _, entry := range e.pool {
		if src.Float64() >= entry.Probability {
			continue
		}
		a := Attacker{ID: e.newID(), Type: entry.Type, Category: e.category}
		if src.Float64() < e.irrational {
			a.Irrational = true
			a.Maliciousness = src.Float64()
		} else {
			a.Maliciousness = e.malice[entry.Type]
		}
		out = append(out, a)
	}
	return out
}

// Strongest returns the adversary with the highest intensity.
func Strongest(as []Attacker) (Attacker, bool) {
	if len(as) == 0 {
		return Attacker{}, false
	}
	best := as[0]
	for _, a := range as[1:] {
		if Intensity(a.Maliciousness) > Intensity(best.Maliciousness) {
			best = a
		}
	}
	return best, true
}

// Workload sums the intensity of every adversary in a round.
func Workload(as []Attacker) float64 {
	var w float64
	for _, a := range as {
		w += Intensity(a.Maliciousness)
	}
	return w
}
