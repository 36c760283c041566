package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"intrusion-sim/internal/attacker"
	"intrusion-sim/internal/config"
	"intrusion-sim/internal/lifecycle"
	"intrusion-sim/internal/logging"
	"intrusion-sim/internal/metrics"
	"intrusion-sim/internal/posture"
)

// Batch describes one set of independent runs. Run i is seeded with Seed+i.
type Batch struct {
	Runs     int
	Seed     int64
	Posture  float64
	Attacker lifecycle.Attacker

	// Security is the 0-100 score the defender answers detections with.
	Security float64

	// Difficulty, when above zero, draws the fixed attacker's resources
	// per run.
	Difficulty int
}

// BatchFromConfig builds the batch cfg describes.
func BatchFromConfig(cfg *config.SimulationConfig) (Batch, error) {
	p, err := cfg.PostureValue()
	if err != nil {
		return Batch{}, err
	}
	sec, err := cfg.SecurityLevel()
	if err != nil {
		return Batch{}, err
	}
	return Batch{
		Runs:       cfg.Runs,
		Seed:       cfg.Seed,
		Posture:    p,
		Security:   sec,
		Attacker:   cfg.Attacker,
		Difficulty: cfg.AttackerDifficulty,
	}, nil
}

// Runner fans lifecycle runs out over a bounded worker pool.
type Runner struct {
	orch      *lifecycle.Orchestrator
	writer    TraceWriter
	metrics   *metrics.Recorder
	attackers *attacker.Engine
	workload  bool
	workers   int
	newID     func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithWriter sends every trace, and the summary if supported, to w.
func WithWriter(w TraceWriter) Option { return func(r *Runner) { r.writer = w } }

// WithMetrics records traces on m.
func WithMetrics(m *metrics.Recorder) Option { return func(r *Runner) { r.metrics = m } }

// WithWorkers bounds the number of concurrent runs.
func WithWorkers(n int) Option { return func(r *Runner) { r.workers = n } }

// WithAttackerEngine draws each run's attacker from a category pool. Runs
// where nobody joins fall back to the batch attacker.
func WithAttackerEngine(e *attacker.Engine) Option { return func(r *Runner) { r.attackers = e } }

// WithWorkloadPosture scores each run against the batch posture discounted
// by the workload of the attackers drawn for it. It needs an attacker engine.
func WithWorkloadPosture(on bool) Option { return func(r *Runner) { r.workload = on } }

// NewRunner creates a Runner for orch.
func NewRunner(orch *lifecycle.Orchestrator, opts ...Option) *Runner {
	r := &Runner{orch: orch, workers: 1, newID: uuid.NewString}
	for _, o := range opts {
		o(r)
	}
	if r.workers < 1 {
		r.workers = 1
	}
	return r
}

// Run executes the batch and returns its summary. Traces are written in run
// order once every run has finished. Write failures are logged and returned
// after the summary is complete; cancellation aborts the batch.
func (r *Runner) Run(ctx context.Context, b Batch) (Summary, error) {
	log := logging.FromContext(ctx)
	if b.Runs < 1 {
		return Summary{}, fmt.Errorf("batch needs at least one run, got %d", b.Runs)
	}
	start := time.Now()
	batchID := r.newID()
	log.Info("batch started", "batch", batchID, "runs", b.Runs, "workers", r.workers, "posture", b.Posture)

	traces := make([]*lifecycle.Trace, b.Runs)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := 0; i < b.Runs; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := r.runOne(batchID, i, b)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			traces[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}

	var sum Summary
	for _, t := range traces {
		sum.Add(t)
		r.metrics.ObserveTrace(t)
	}
	r.metrics.ObserveBatch(time.Since(start))

	var errs []error
	if r.writer != nil {
		if err := writeTraces(r.writer, traces); err != nil {
			log.Error("write failed", "err", err)
			errs = append(errs, err)
		}
		if sw, ok := r.writer.(SummaryWriter); ok {
			if err := sw.WriteSummary(sum); err != nil {
				log.Error("summary write failed", "err", err)
				errs = append(errs, err)
			}
		}
	}
	log.Info("batch finished", "batch", batchID, "impact_rate", sum.ImpactRate(), "compromise_rate", sum.CompromiseRate(), "elapsed", time.Since(start))
	return sum, errors.Join(errs...)
}

func (r *Runner) runOne(batchID string, i int, b Batch) (*lifecycle.Trace, error) {
	seed := b.Seed + int64(i)
	src := newSeeded(seed)

	a, p := b.Attacker, b.Posture
	var id, kind string
	if r.attackers != nil {
		drawn := r.attackers.Draw(src)
		if adv, ok := attacker.Strongest(drawn); ok {
			a, id, kind = adv.Profile(), adv.ID, string(adv.Type)
		}
		if r.workload {
			var err error
			p, err = attacker.DefenseEffectiveness(b.Posture, attacker.Workload(drawn), r.attackers.Category())
			if err != nil {
				return nil, err
			}
		}
	}
	if kind == "" && b.Difficulty > 0 {
		a.Resources = posture.AttackerStrength(b.Difficulty, src)
	}

	t := r.orch.Run(p, a, src)
	t.BatchID, t.Run, t.Seed = batchID, i, seed
	t.AttackerID, t.AttackerType = id, kind
	if t.Compromised() {
		t.Detected = posture.Detect(p, src)
	}
	if t.Detected {
		evicted, left := posture.Respond(b.Security, t.Final.Resources, src)
		t.Response = &lifecycle.Response{Evicted: evicted, Resources: left}
	}
	return t, nil
}

// newSeeded returns the random source for one run.
func newSeeded(seed int64) *rand.Rand { return rand.New(rand.NewSource(seed)) }
