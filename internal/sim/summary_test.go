package sim

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"intrusion-sim/internal/lifecycle"
	"intrusion-sim/internal/stage"
)

func sampleTraces(t *testing.T, n int) []*lifecycle.Trace {
	t.Helper()
	o := testOrch(t)
	out := make([]*lifecycle.Trace, n)
	for i := range out {
		out[i] = o.Run(0.4, lifecycle.Attacker{Resources: 70, Motivation: 60}, newSeeded(int64(i)))
		out[i].Run = i
		if out[i].Compromised() && i%2 == 0 {
			out[i].Detected = true
			out[i].Response = &lifecycle.Response{Evicted: i%4 == 0}
		}
	}
	return out
}

func summarize(ts []*lifecycle.Trace) Summary {
	var s Summary
	for _, t := range ts {
		s.Add(t)
	}
	return s
}

func TestSummaryMergeAssociative(t *testing.T) {
	ts := sampleTraces(t, 90)
	a, b, c := summarize(ts[:30]), summarize(ts[30:60]), summarize(ts[60:])
	all := summarize(ts)
	approx := cmpopts.EquateApprox(0, 1e-9)

	left := a.Merge(b).Merge(c)
	right := a.Merge(b.Merge(c))
	if diff := cmp.Diff(left, right, approx); diff != "" {
		t.Fatalf("merge not associative (-left +right):\n%s", diff)
	}
	if diff := cmp.Diff(all, left, approx); diff != "" {
		t.Fatalf("merged summary differs from sequential (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(a.Merge(b), b.Merge(a), approx); diff != "" {
		t.Fatalf("merge not commutative:\n%s", diff)
	}
}

func TestSummaryMergeLeavesInputs(t *testing.T) {
	ts := sampleTraces(t, 10)
	a := summarize(ts[:5])
	before := a.Stages[stage.Reconnaissance]
	_ = a.Merge(summarize(ts[5:]))
	if a.Stages[stage.Reconnaissance] != before || a.Runs != 5 {
		t.Fatalf("Merge modified its receiver: %+v", a)
	}
}

func TestSummaryCounts(t *testing.T) {
	ts := sampleTraces(t, 50)
	s := summarize(ts)
	if s.Runs != 50 {
		t.Fatalf("runs = %d", s.Runs)
	}
	if got := s.Stages[stage.Reconnaissance].Attempts; got != 50 {
		t.Fatalf("every run attempts reconnaissance, got %d", got)
	}
	if s.Impacts > s.Compromised {
		t.Fatalf("impacts %d exceed compromises %d", s.Impacts, s.Compromised)
	}
	if s.Evictions > s.Detections || s.Detections > s.Compromised {
		t.Fatalf("evictions %d, detections %d, compromises %d out of order", s.Evictions, s.Detections, s.Compromised)
	}
	for name, st := range s.Stages {
		if st.Successes > st.Attempts || st.Gated > st.Attempts {
			t.Fatalf("stage %s has inconsistent counts %+v", name, st)
		}
		if m := st.MeanChance(); m < 0 || m > 1 {
			t.Fatalf("stage %s mean chance %v out of range", name, m)
		}
	}
}

func TestSummaryRates(t *testing.T) {
	var empty Summary
	if empty.ImpactRate() != 0 || empty.DetectionRate() != 0 {
		t.Fatal("empty summary should have zero rates")
	}
	s := Summary{Runs: 10, Compromised: 4, Impacts: 2, Detections: 2, Evictions: 1}
	if s.ImpactRate() != 0.2 || s.CompromiseRate() != 0.4 || s.DetectionRate() != 0.5 || s.EvictionRate() != 0.5 {
		t.Fatalf("unexpected rates %v %v %v %v", s.ImpactRate(), s.CompromiseRate(), s.DetectionRate(), s.EvictionRate())
	}
	if got := len(s.Events()); got != 4 {
		t.Fatalf("expected 4 events, got %d", got)
	}
}
