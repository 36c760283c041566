// Package posture derives the defender posture a lifecycle run is scored
// against, and the adjustments a defender makes between runs.
package posture

import (
	"fmt"
	"math"

	"intrusion-sim/internal/fuzzy"
	"intrusion-sim/internal/stage"
)

// Scale identifies the range a raw posture value is expressed in.
type Scale int

const (
	// ScaleUnit values are already in [0,1].
	ScaleUnit Scale = iota
	// ScalePercent values are in [0,100].
	ScalePercent
)

// ParseScale accepts "unit" or "percent"; the empty string means unit.
func ParseScale(s string) (Scale, error) {
	switch s {
	case "", "unit":
		return ScaleUnit, nil
	case "percent":
		return ScalePercent, nil
	default:
		return 0, fmt.Errorf("posture: unknown scale %q", s)
	}
}

// Normalize converts v to the unit scale and clamps it.
func Normalize(v float64, s Scale) float64 {
	if s == ScalePercent {
		v /= 100
	}
	return fuzzy.Clamp01(v)
}

// Defender describes an organisation's security programme. Training and
// Awareness are on the 0-100 scale; Hardening is already in [0,1].
type Defender struct {
	Training  float64 `yaml:"training" json:"training"`
	Awareness float64 `yaml:"awareness" json:"awareness"`
	Hardening float64 `yaml:"hardening" json:"hardening"`
}

// Tables weights and shapes the defender inputs.
type Tables struct {
	Training        fuzzy.Shape
	Awareness       fuzzy.Shape
	TrainingWeight  float64
	AwarenessWeight float64
	HardeningWeight float64
}

// DefaultTables returns tables where more training and awareness raise the
// posture.
func DefaultTables() Tables {
	return Tables{
		Training:        fuzzy.MustShape(fuzzy.Difficulty, 0, 20, 50, 80, 100),
		Awareness:       fuzzy.MustShape(fuzzy.Difficulty, 0, 30, 60, 90, 100),
		TrainingWeight:  0.3,
		AwarenessWeight: 0.3,
		HardeningWeight: 0.4,
	}
}

// Calculate combines the defender inputs into a posture in [0,1].
func Calculate(d Defender, t Tables) float64 {
	p := t.TrainingWeight*t.Training.Degree(d.Training) +
		t.AwarenessWeight*t.Awareness.Degree(d.Awareness) +
		t.HardeningWeight*fuzzy.Clamp01(d.Hardening)
	return fuzzy.Clamp01(p)
}

// Posture is Calculate with the default tables.
func (d Defender) Posture() float64 { return Calculate(d, DefaultTables()) }

// WithHardening returns a copy of d with inc added to Hardening, kept in
// [0,1]. A negative inc models erosion.
func (d Defender) WithHardening(inc float64) Defender {
	d.Hardening = fuzzy.Clamp01(d.Hardening + inc)
	return d
}

var (
	trainingRamp  = fuzzy.MustShape(fuzzy.Difficulty, 0, 30)
	awarenessRamp = fuzzy.MustShape(fuzzy.Difficulty, 0, 30)
)

// Harden returns the hardening gained from one improvement cycle. The gain
// is drawn uniformly from [0.02f, 0.10f] where f is how established the
// training and awareness programmes are.
func Harden(d Defender, src stage.Source) float64 {
	f := (saturated(trainingRamp, d.Training) + saturated(awarenessRamp, d.Awareness)) / 2
	lo, hi := 0.02*f, 0.1*f
	return lo + src.Float64()*(hi-lo)
}

func saturated(s fuzzy.Shape, v float64) float64 {
	if v > s.Points[len(s.Points)-1] {
		return 1
	}
	return s.Degree(v)
}

// Restore returns the hardening lost while recovering from an impact. Weaker
// postures lose more: the loss is drawn from [0.02e, 0.05e], e = 1 - sqrt(p).
func Restore(posture float64, src stage.Source) float64 {
	e := 1 - math.Sqrt(fuzzy.Clamp01(posture))
	lo, hi := 0.02*e, 0.05*e
	return lo + src.Float64()*(hi-lo)
}

// Detect rolls whether the defender notices an established intrusion. The
// chance is posture squared.
func Detect(posture float64, src stage.Source) bool {
	p := fuzzy.Clamp01(posture)
	return src.Float64() < p*p
}

// Cybersecurity blends training and awareness into a 0-100 score.
func Cybersecurity(training, awareness float64) float64 {
	return math.Min(100, 0.7*training+0.3*awareness)
}

// AttackerStrength draws attacker resources for a difficulty level: a whole
// number in [10d, 30d], capped at 100.
func AttackerStrength(difficulty int, src stage.Source) float64 {
	if difficulty <= 0 {
		return 0
	}
	v := 10*difficulty + src.Intn(20*difficulty+1)
	return math.Min(100, float64(v))
}

// responseRamp maps a 0-100 security score or attacker strength to how much
// it counts in a response; 30 and above is full weight.
var responseRamp = fuzzy.MustShape(fuzzy.Difficulty, 0, 30)

// Evict rolls whether the defender removes a detected attacker outright.
// The chance grows with security and shrinks with attacker strength.
func Evict(security, strength float64, src stage.Source) bool {
	sec, str := saturated(responseRamp, security), saturated(responseRamp, strength)
	return src.Float64() < sec*(1-str)
}

// Isolate returns the attacker strength left once the foothold is
// segmented off. Up to 30% is lost, scaled by isolation effectiveness.
func Isolate(security, strength float64, src stage.Source) float64 {
	sec, str := saturated(responseRamp, security), saturated(responseRamp, strength)
	eff := (sec + 1 - str) / 2
	return math.Max(0, strength*(1-src.Float64()*0.3*eff))
}

// Deceive returns the share of attacker strength wasted on decoys, at most
// 10% for a fully established programme.
func Deceive(security float64, src stage.Source) float64 {
	eff := math.Pow(saturated(responseRamp, security), 1.5)
	return src.Float64() * 0.1 * eff
}

// Respond plays the defender's answer to a detected intrusion. Eviction is
// tried first; an attacker that stays is isolated and then deceived. It
// returns whether the attacker was evicted and the strength left.
func Respond(security, strength float64, src stage.Source) (bool, float64) {
	if Evict(security, strength, src) {
		return true, 0
	}
	left := Isolate(security, strength, src)
	left -= left * Deceive(security, src)
	return false, left
}
