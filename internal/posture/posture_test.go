package posture

import (
	"math"
	"math/rand"
	"testing"
)

type fixed struct {
	f float64
	n int
}

func (s fixed) Float64() float64 { return s.f }
func (s fixed) Intn(n int) int {
	if s.n >= n {
		return n - 1
	}
	return s.n
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		v    float64
		s    Scale
		want float64
	}{
		{0.4, ScaleUnit, 0.4},
		{40, ScalePercent, 0.4},
		{140, ScalePercent, 1},
		{-3, ScaleUnit, 0},
	}
	for _, tc := range tests {
		if got := Normalize(tc.v, tc.s); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("Normalize(%v, %v) = %v, want %v", tc.v, tc.s, got, tc.want)
		}
	}
}

func TestParseScale(t *testing.T) {
	if s, err := ParseScale("percent"); err != nil || s != ScalePercent {
		t.Fatalf("ParseScale(percent) = %v, %v", s, err)
	}
	if s, err := ParseScale(""); err != nil || s != ScaleUnit {
		t.Fatalf("ParseScale(\"\") = %v, %v", s, err)
	}
	if _, err := ParseScale("furlongs"); err == nil {
		t.Fatal("expected error")
	}
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name string
		d    Defender
		want float64
	}{
		{"nothing", Defender{}, 0},
		{"everything", Defender{Training: 100, Awareness: 100, Hardening: 1}, 1},
		{"hardening only", Defender{Hardening: 0.5}, 0.2},
		{"mid programme", Defender{Training: 50, Awareness: 60, Hardening: 0.5}, 0.3*0.5 + 0.3*0.5 + 0.2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.d.Posture(); math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("Posture() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCalculateMonotonicInTraining(t *testing.T) {
	prev := -1.0
	for tr := 0.0; tr <= 100; tr += 5 {
		p := Defender{Training: tr, Awareness: 40, Hardening: 0.3}.Posture()
		if p < prev {
			t.Fatalf("posture fell at training %v", tr)
		}
		prev = p
	}
}

func TestHarden(t *testing.T) {
	d := Defender{Training: 80, Awareness: 90}
	if got := Harden(d, fixed{f: 0}); math.Abs(got-0.02) > 1e-12 {
		t.Fatalf("min gain = %v, want 0.02", got)
	}
	if got := Harden(d, fixed{f: 1}); math.Abs(got-0.1) > 1e-12 {
		t.Fatalf("max gain = %v, want 0.1", got)
	}
	if got := Harden(Defender{}, fixed{f: 1}); got != 0 {
		t.Fatalf("untrained defender gained %v", got)
	}
	h := Defender{Hardening: 0.97}.WithHardening(0.1)
	if h.Hardening != 1 {
		t.Fatalf("hardening = %v, want capped at 1", h.Hardening)
	}
}

func TestRestoreAndDetect(t *testing.T) {
	if got := Restore(1, fixed{f: 1}); got != 0 {
		t.Fatalf("perfect posture lost %v", got)
	}
	if got := Restore(0, fixed{f: 1}); math.Abs(got-0.05) > 1e-12 {
		t.Fatalf("restore loss = %v, want 0.05", got)
	}
	if !Detect(0.9, fixed{f: 0.8}) {
		t.Fatal("expected detection at 0.81 chance")
	}
	if Detect(0.9, fixed{f: 0.82}) {
		t.Fatal("unexpected detection")
	}
}

func TestAttackerStrength(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for d := 1; d <= 3; d++ {
		for i := 0; i < 100; i++ {
			v := AttackerStrength(d, r)
			if v < float64(10*d) || v > math.Min(100, float64(30*d)) {
				t.Fatalf("difficulty %d strength %v out of range", d, v)
			}
		}
	}
	if got := AttackerStrength(5, fixed{n: 100}); got != 100 {
		t.Fatalf("strength = %v, want capped at 100", got)
	}
	if got := Cybersecurity(100, 100); got != 100 {
		t.Fatalf("Cybersecurity = %v", got)
	}
}

func TestEvict(t *testing.T) {
	tests := []struct {
		name               string
		security, strength float64
		draw               float64
		want               bool
	}{
		{"strong defender weak attacker", 100, 0, 0.99, true},
		{"strong attacker never evicted", 100, 45, 0, false},
		{"half and half below chance", 15, 15, 0.2, true},
		{"half and half above chance", 15, 15, 0.3, false},
		{"no programme", 0, 0, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Evict(tc.security, tc.strength, fixed{f: tc.draw}); got != tc.want {
				t.Fatalf("Evict(%v, %v) = %v, want %v", tc.security, tc.strength, got, tc.want)
			}
		})
	}
}

func TestIsolate(t *testing.T) {
	tests := []struct {
		name               string
		security, strength float64
		draw               float64
		want               float64
	}{
		{"full cut", 100, 60, 1, 51},
		{"no draw", 100, 60, 0, 60},
		{"no programme strong attacker", 0, 60, 1, 60},
		{"no programme weak attacker", 0, 15, 1, 15 * (1 - 0.3*0.25)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Isolate(tc.security, tc.strength, fixed{f: tc.draw})
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("Isolate(%v, %v) = %v, want %v", tc.security, tc.strength, got, tc.want)
			}
			if got > tc.strength {
				t.Fatalf("isolation raised strength to %v", got)
			}
		})
	}
}

func TestDeceive(t *testing.T) {
	tests := []struct {
		security, draw, want float64
	}{
		{100, 1, 0.1},
		{100, 0, 0},
		{0, 1, 0},
		{15, 1, 0.1 * math.Pow(0.5, 1.5)},
	}
	for _, tc := range tests {
		if got := Deceive(tc.security, fixed{f: tc.draw}); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("Deceive(%v) = %v, want %v", tc.security, got, tc.want)
		}
	}
}

func TestRespond(t *testing.T) {
	evicted, left := Respond(100, 0, fixed{f: 0.5})
	if !evicted || left != 0 {
		t.Fatalf("weak attacker: evicted %v left %v", evicted, left)
	}
	evicted, left = Respond(100, 60, fixed{f: 1})
	if evicted {
		t.Fatal("strong attacker evicted")
	}
	if want := 51 * 0.9; math.Abs(left-want) > 1e-9 {
		t.Fatalf("left = %v, want %v", left, want)
	}
}
