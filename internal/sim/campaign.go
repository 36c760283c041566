package sim

import (
	"context"
	"fmt"
	"math/rand"

	"intrusion-sim/internal/attacker"
	"intrusion-sim/internal/config"
	"intrusion-sim/internal/lifecycle"
	"intrusion-sim/internal/logging"
	"intrusion-sim/internal/posture"
	"intrusion-sim/internal/scenario"
)

// PhaseResult is the outcome of one campaign phase.
type PhaseResult struct {
	Phase    string           `json:"phase"`
	Defender posture.Defender `json:"defender"`
	Posture  float64          `json:"posture"`
	Summary  Summary          `json:"summary"`
}

// RunCampaign walks the scenario's phases, running one batch per phase. The
// defender is hardened or charged for recovery between phases. After a batch
// the first matching trigger picks the next phase; otherwise the next phase
// in order runs. The walk stops after the last phase or after four visits
// per phase, whichever comes first.
func RunCampaign(ctx context.Context, orch *lifecycle.Orchestrator, sc *scenario.Scenario, base *config.SimulationConfig, opts ...Option) ([]PhaseResult, error) {
	log := logging.FromContext(ctx)
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if base.Posture != nil {
		return nil, fmt.Errorf("campaign: fixed posture %v set; campaigns evolve the defender programme instead", *base.Posture)
	}

	src := rand.New(rand.NewSource(base.Seed))
	defender := base.Defender
	current := sc.Phases[0].Name
	seed := base.Seed
	var (
		results []PhaseResult
		prev    *Summary
	)
	for step := 0; step < len(sc.Phases)*4; step++ {
		ph, _ := sc.Phase(current)
		if ph.Restore && prev != nil && prev.Impacts > 0 {
			loss := posture.Restore(defender.Posture(), src)
			defender = defender.WithHardening(-loss)
			log.Debug("defender restored", "phase", ph.Name, "loss", loss)
		}
		if ph.Harden {
			gain := posture.Harden(defender, src)
			defender = defender.WithHardening(gain)
			log.Debug("defender hardened", "phase", ph.Name, "gain", gain)
		}

		runs := ph.Runs
		if runs == 0 {
			runs = base.Runs
		}
		a, difficulty := base.Attacker, base.AttackerDifficulty
		if ph.Attacker != nil {
			a, difficulty = *ph.Attacker, 0
		}
		eng, err := phaseEngine(ph, base)
		if err != nil {
			return results, fmt.Errorf("phase %s: %w", ph.Name, err)
		}

		p := defender.Posture()
		runner := NewRunner(orch, append(opts, WithAttackerEngine(eng), WithWorkloadPosture(base.WorkloadPosture()))...)
		sum, err := runner.Run(ctx, Batch{
			Runs:       runs,
			Seed:       seed,
			Posture:    p,
			Security:   posture.Cybersecurity(defender.Training, defender.Awareness),
			Attacker:   a,
			Difficulty: difficulty,
		})
		seed += int64(runs)
		if err != nil {
			return results, fmt.Errorf("phase %s: %w", ph.Name, err)
		}
		results = append(results, PhaseResult{Phase: ph.Name, Defender: defender, Posture: p, Summary: sum})
		log.Info("phase finished", "phase", ph.Name, "posture", p, "impact_rate", sum.ImpactRate(), "compromise_rate", sum.CompromiseRate())
		prev = &sum

		next, ok := sc.NextPhase(current, sum.Events()...)
		if !ok {
			next, ok = sc.After(current)
		}
		if !ok {
			return results, nil
		}
		current = next
	}
	log.Warn("campaign stopped at step limit", "scenario", sc.Name, "phases", len(results))
	return results, nil
}

func phaseEngine(ph scenario.Phase, base *config.SimulationConfig) (*attacker.Engine, error) {
	name := ph.Category
	if name == "" {
		name = base.Category
	}
	if name == "" || ph.Attacker != nil {
		return nil, nil
	}
	cat, err := attacker.ParseCategory(name)
	if err != nil {
		return nil, err
	}
	return attacker.NewEngine(cat, base.IrrationalBehavior)
}
