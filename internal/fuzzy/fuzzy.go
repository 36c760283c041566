// Package fuzzy maps crisp inputs to membership degrees in [0,1] using
// piecewise-linear shapes over weakly increasing breakpoints.
package fuzzy

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidBreakpoints is returned when a shape's breakpoints are not weakly
// increasing or its levels fall outside [0,1].
var ErrInvalidBreakpoints = errors.New("fuzzy: invalid breakpoints")

// Polarity selects which end of the input domain is favourable.
type Polarity int

const (
	// EaseOfSuccess yields degree 1 at or below the first breakpoint and falls
	// towards the upper end of the domain.
	EaseOfSuccess Polarity = iota
	// Difficulty yields degree 0 at or below the first breakpoint and rises.
	Difficulty
)

func (p Polarity) String() string {
	switch p {
	case EaseOfSuccess:
		return "ease"
	case Difficulty:
		return "difficulty"
	default:
		return fmt.Sprintf("Polarity(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Polarity) MarshalText() ([]byte, error) {
	if p != EaseOfSuccess && p != Difficulty {
		return nil, fmt.Errorf("fuzzy: unknown polarity %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Polarity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "ease", "ease_of_success":
		*p = EaseOfSuccess
	case "difficulty":
		*p = Difficulty
	default:
		return fmt.Errorf("fuzzy: unknown polarity %q", string(b))
	}
	return nil
}

// Band labels the region of the domain an input falls into.
type Band string

const (
	BandLow    Band = "low"
	BandMedium Band = "medium"
	BandHigh   Band = "high"
)

// Shape is a piecewise-linear membership function. Levels are expressed in
// ease orientation (the degree an EaseOfSuccess shape reports at each point);
// a Difficulty shape reports one minus that level. When Levels is empty the
// levels fall evenly from 1 at the first point to 0 at the last.
type Shape struct {
	Points   []float64 `yaml:"points" json:"points"`
	Levels   []float64 `yaml:"levels,omitempty" json:"levels,omitempty"`
	Polarity Polarity  `yaml:"polarity" json:"polarity"`
}

// NewShape builds a validated shape with evenly spaced levels.
func NewShape(p Polarity, points ...float64) (Shape, error) {
	s := Shape{Points: append([]float64(nil), points...), Polarity: p}
	if err := s.Validate(); err != nil {
		return Shape{}, err
	}
	return s, nil
}

// MustShape is like NewShape but panics on invalid breakpoints. It is meant
// for package-level defaults.
func MustShape(p Polarity, points ...float64) Shape {
	s, err := NewShape(p, points...)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate reports ErrInvalidBreakpoints for malformed shapes.
func (s Shape) Validate() error {
	if len(s.Points) < 2 {
		return fmt.Errorf("%w: need at least 2 points, got %d", ErrInvalidBreakpoints, len(s.Points))
	}
	for i, v := range s.Points {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: point %d is not finite", ErrInvalidBreakpoints, i)
		}
		if i > 0 && v < s.Points[i-1] {
			return fmt.Errorf("%w: point %d (%g) below point %d (%g)", ErrInvalidBreakpoints, i, v, i-1, s.Points[i-1])
		}
	}
	if len(s.Levels) > 0 {
		if len(s.Levels) != len(s.Points) {
			return fmt.Errorf("%w: %d levels for %d points", ErrInvalidBreakpoints, len(s.Levels), len(s.Points))
		}
		for i, l := range s.Levels {
			if !(l >= 0 && l <= 1) {
				return fmt.Errorf("%w: level %d (%g) outside [0,1]", ErrInvalidBreakpoints, i, l)
			}
		}
	}
	if s.Polarity != EaseOfSuccess && s.Polarity != Difficulty {
		return fmt.Errorf("%w: unknown polarity %d", ErrInvalidBreakpoints, int(s.Polarity))
	}
	return nil
}

func (s Shape) level(i int) float64 {
	if len(s.Levels) > 0 {
		return s.Levels[i]
	}
	n := len(s.Points)
	if n < 2 {
		return 1
	}
	return 1 - float64(i)/float64(n-1)
}

func (s Shape) orient(ease float64) float64 {
	if s.Polarity == Difficulty {
		return 1 - ease
	}
	return ease
}

// Degree returns the membership degree of v. Inputs beyond the last
// breakpoint, and NaN, map to 0. Degree assumes a validated shape.
func (s Shape) Degree(v float64) float64 {
	n := len(s.Points)
	if n == 0 || math.IsNaN(v) {
		return 0
	}
	if v <= s.Points[0] {
		return Clamp01(s.orient(s.level(0)))
	}
	if v > s.Points[n-1] {
		return 0
	}
	for i := 1; i < n; i++ {
		if v > s.Points[i] {
			continue
		}
		lo, hi := s.Points[i-1], s.Points[i]
		if hi == lo {
			return Clamp01(s.orient(s.level(i)))
		}
		t := (v - lo) / (hi - lo)
		ease := s.level(i-1) + t*(s.level(i)-s.level(i-1))
		return Clamp01(s.orient(ease))
	}
	return 0
}

// Band returns the label of the region v falls into. Segments are split into
// thirds by position; values at or below the first point are low and values
// above the last point are high.
func (s Shape) Band(v float64) Band {
	n := len(s.Points)
	if n < 2 || v <= s.Points[0] {
		return BandLow
	}
	if v > s.Points[n-1] {
		return BandHigh
	}
	seg := 1
	for seg < n-1 && v > s.Points[seg] {
		seg++
	}
	switch pos := 3 * (seg - 1) / (n - 1); pos {
	case 0:
		return BandLow
	case 1:
		return BandMedium
	default:
		return BandHigh
	}
}

// Score is the three-breakpoint shoulder used throughout the lifecycle model:
// under EaseOfSuccess the degree is 1 at or below low, falls linearly to 0 at
// mid, and stays 0 up to high. Difficulty mirrors it within the domain.
func Score(value, low, mid, high float64, p Polarity) (float64, error) {
	s := Shape{Points: []float64{low, mid, high}, Levels: []float64{1, 0, 0}, Polarity: p}
	if err := s.Validate(); err != nil {
		return 0, err
	}
	return s.Degree(value), nil
}

// Clamp01 bounds x to [0,1]; NaN becomes 0.
func Clamp01(x float64) float64 {
	switch {
	case math.IsNaN(x) || x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
