package sim

import (
	"intrusion-sim/internal/lifecycle"
	"intrusion-sim/internal/scenario"
	"intrusion-sim/internal/stage"
)

// StageStats counts the attempts at one stage across a batch.
type StageStats struct {
	Attempts  int     `json:"attempts"`
	Successes int     `json:"successes"`
	Gated     int     `json:"gated"`
	ChanceSum float64 `json:"chance_sum"`
}

// MeanChance is the average clamped chance over all attempts.
func (s StageStats) MeanChance() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return s.ChanceSum / float64(s.Attempts)
}

// SuccessRate is successes over attempts.
func (s StageStats) SuccessRate() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Attempts)
}

// Summary aggregates a batch of traces. Merge is associative and
// commutative, so partial summaries can be combined in any order.
type Summary struct {
	Runs        int                       `json:"runs"`
	Compromised int                       `json:"compromised"`
	Impacts     int                       `json:"impacts"`
	Detections  int                       `json:"detections"`
	Evictions   int                       `json:"evictions"`
	EndedEarly  int                       `json:"ended_early"`
	Stages      map[stage.Name]StageStats `json:"stages"`
}

// Add folds one trace into s.
func (s *Summary) Add(t *lifecycle.Trace) {
	if s.Stages == nil {
		s.Stages = make(map[stage.Name]StageStats, len(stage.Order))
	}
	s.Runs++
	if t.Compromised() {
		s.Compromised++
	}
	if t.Impacted() {
		s.Impacts++
	}
	if t.Detected {
		s.Detections++
	}
	if t.Evicted() {
		s.Evictions++
	}
	if t.EndedEarly() {
		s.EndedEarly++
	}
	for _, r := range t.Records {
		st := s.Stages[r.Stage]
		st.Attempts++
		st.ChanceSum += r.Chance
		if r.Success {
			st.Successes++
		}
		if r.Gated {
			st.Gated++
		}
		s.Stages[r.Stage] = st
	}
}

// Merge returns the combination of s and o without modifying either.
func (s Summary) Merge(o Summary) Summary {
	out := Summary{
		Runs:        s.Runs + o.Runs,
		Compromised: s.Compromised + o.Compromised,
		Impacts:     s.Impacts + o.Impacts,
		Detections:  s.Detections + o.Detections,
		Evictions:   s.Evictions + o.Evictions,
		EndedEarly:  s.EndedEarly + o.EndedEarly,
		Stages:      make(map[stage.Name]StageStats, len(stage.Order)),
	}
	for _, src := range []map[stage.Name]StageStats{s.Stages, o.Stages} {
		for name, st := range src {
			acc := out.Stages[name]
			acc.Attempts += st.Attempts
			acc.Successes += st.Successes
			acc.Gated += st.Gated
			acc.ChanceSum += st.ChanceSum
			out.Stages[name] = acc
		}
	}
	return out
}

func rate(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// ImpactRate is the share of runs that reached impact.
func (s Summary) ImpactRate() float64 { return rate(s.Impacts, s.Runs) }

// CompromiseRate is the share of runs that established persistence.
func (s Summary) CompromiseRate() float64 { return rate(s.Compromised, s.Runs) }

// DetectionRate is the share of compromised runs the defender detected.
func (s Summary) DetectionRate() float64 { return rate(s.Detections, s.Compromised) }

// EvictionRate is the share of detected runs where the attacker was evicted.
func (s Summary) EvictionRate() float64 { return rate(s.Evictions, s.Detections) }

// Events converts the batch rates into campaign events.
func (s Summary) Events() []scenario.Event {
	return []scenario.Event{
		{Type: scenario.EventImpactRate, Value: s.ImpactRate()},
		{Type: scenario.EventCompromiseRate, Value: s.CompromiseRate()},
		{Type: scenario.EventDetectionRate, Value: s.DetectionRate()},
		{Type: scenario.EventEvictionRate, Value: s.EvictionRate()},
	}
}
