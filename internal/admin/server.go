package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"intrusion-sim/internal/config"
	"intrusion-sim/internal/lifecycle"
	"intrusion-sim/internal/metrics"
	"intrusion-sim/internal/sim"
	"intrusion-sim/internal/stage"
)

// maxRuns bounds a batch requested over HTTP.
const maxRuns = 100000

// maxDifficulty is the highest attacker difficulty a request may ask for.
const maxDifficulty = 10

// Server exposes the simulator over HTTP: health, configuration, on-demand
// batches, the latest summary and Prometheus metrics.
type Server struct {
	orch    *lifecycle.Orchestrator
	cfg     *config.SimulationConfig
	metrics *metrics.Recorder
	writer  sim.TraceWriter
	mux     *http.ServeMux

	// runMu serializes batches so each one reaches the shared writer as a
	// contiguous block.
	runMu sync.Mutex

	mu   sync.Mutex
	last *batchResult
}

type batchResult struct {
	Runs     int         `json:"runs"`
	Seed     int64       `json:"seed"`
	Posture  float64     `json:"posture"`
	Finished time.Time   `json:"finished"`
	Summary  sim.Summary `json:"summary"`
}

// NewServer creates a server that runs batches with orch and the defaults in
// cfg. rec and w may be nil.
func NewServer(orch *lifecycle.Orchestrator, cfg *config.SimulationConfig, rec *metrics.Recorder, w sim.TraceWriter) *Server {
	s := &Server{orch: orch, cfg: cfg, metrics: rec, writer: w, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /config", s.handleConfig)
	s.mux.HandleFunc("POST /run", s.handleRun)
	s.mux.HandleFunc("GET /summary", s.handleSummary)
	s.mux.Handle("GET /metrics", s.metrics.Handler())
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("admin response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Simulation *config.SimulationConfig `json:"simulation"`
		Stages     stage.Config             `json:"stages"`
	}{s.cfg, s.orch.Config()})
}

// handleRun executes one batch. Query parameters runs, seed, posture,
// difficulty, resources and motivation override the configured defaults. Concurrent
// requests queue behind the batch in progress.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	b, err := s.batchFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	opts := []sim.Option{
		sim.WithWorkers(s.cfg.Workers),
		sim.WithMetrics(s.metrics),
		sim.WithWorkloadPosture(s.cfg.WorkloadPosture()),
	}
	if s.writer != nil {
		opts = append(opts, sim.WithWriter(s.writer))
	}
	if eng, err := s.cfg.AttackerEngine(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	} else if eng != nil {
		opts = append(opts, sim.WithAttackerEngine(eng))
	}

	s.runMu.Lock()
	sum, err := sim.NewRunner(s.orch, opts...).Run(r.Context(), b)
	s.runMu.Unlock()
	if err != nil && sum.Runs == 0 {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err != nil {
		slog.Warn("admin batch finished with write errors", "err", err)
	}
	res := &batchResult{Runs: b.Runs, Seed: b.Seed, Posture: b.Posture, Finished: time.Now().UTC(), Summary: sum}
	s.mu.Lock()
	s.last = res
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) batchFromQuery(r *http.Request) (sim.Batch, error) {
	b, err := sim.BatchFromConfig(s.cfg)
	if err != nil {
		return b, err
	}
	q := r.URL.Query()
	if v := q.Get("runs"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxRuns {
			return b, fmt.Errorf("runs must be between 1 and %d", maxRuns)
		}
		b.Runs = n
	}
	if v := q.Get("seed"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return b, fmt.Errorf("invalid seed %q", v)
		}
		b.Seed = n
	}
	if v := q.Get("posture"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return b, fmt.Errorf("posture must be in [0,1]")
		}
		b.Posture, b.Security = f, 100*f
	}
	if v := q.Get("difficulty"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > maxDifficulty {
			return b, fmt.Errorf("difficulty must be between 0 and %d", maxDifficulty)
		}
		b.Difficulty = n
	}
	for key, dst := range map[string]*float64{"resources": &b.Attacker.Resources, "motivation": &b.Attacker.Motivation} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 100 {
			return b, fmt.Errorf("%s must be in [0,100]", key)
		}
		*dst = f
	}
	return b, nil
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last == nil {
		writeError(w, http.StatusNotFound, errors.New("no batch has run yet"))
		return
	}
	writeJSON(w, http.StatusOK, last)
}
