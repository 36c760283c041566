package sim

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"intrusion-sim/internal/lifecycle"
	"intrusion-sim/internal/telemetry"
)

// greptimeClient is the part of the ingester client the writer needs.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes stage attempts and run outcomes to GreptimeDB via
// the ingester client.
type GreptimeDBWriter struct {
	client     greptimeClient
	stageTable string
	runTable   string
	now        func() time.Time
	timeout    time.Duration
}

// NewGreptimeDBWriter connects to endpoint ("host" or "host:port").
func NewGreptimeDBWriter(endpoint, database string) (*GreptimeDBWriter, error) {
	host, port := endpoint, 0
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("greptime endpoint %q: %w", endpoint, err)
		}
		host, port = h, n
	}
	cfg := greptime.NewConfig(host).WithDatabase(database)
	if port != 0 {
		cfg = cfg.WithPort(port)
	}
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GreptimeDBWriter{
		client:     client,
		stageTable: telemetry.StageTableName,
		runTable:   telemetry.RunTableName,
		now:        time.Now,
		timeout:    10 * time.Second,
	}, nil
}

// WriteTrace inserts the rows for a single trace.
func (w *GreptimeDBWriter) WriteTrace(t *lifecycle.Trace) error {
	return w.WriteTraces([]*lifecycle.Trace{t})
}

// WriteTraces inserts one stage row per attempt and one run row per trace.
func (w *GreptimeDBWriter) WriteTraces(ts []*lifecycle.Trace) error {
	if len(ts) == 0 {
		return nil
	}
	now := w.now()

	stages, err := table.New(w.stageTable)
	if err != nil {
		return err
	}
	stages.AddTagColumn("batch_id", types.STRING)
	stages.AddTagColumn("stage", types.STRING)
	stages.AddTagColumn("run", types.INT64)
	stages.AddFieldColumn("posture", types.FLOAT64)
	stages.AddFieldColumn("resources", types.FLOAT64)
	stages.AddFieldColumn("raw_chance", types.FLOAT64)
	stages.AddFieldColumn("chance", types.FLOAT64)
	stages.AddFieldColumn("draw", types.FLOAT64)
	stages.AddFieldColumn("success", types.BOOLEAN)
	stages.AddFieldColumn("gated", types.BOOLEAN)
	stages.AddFieldColumn("band", types.STRING)
	stages.AddFieldColumn("changes", types.JSON)
	stages.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	runs, err := table.New(w.runTable)
	if err != nil {
		return err
	}
	runs.AddTagColumn("batch_id", types.STRING)
	runs.AddTagColumn("attacker_type", types.STRING)
	runs.AddTagColumn("run", types.INT64)
	runs.AddFieldColumn("seed", types.INT64)
	runs.AddFieldColumn("posture", types.FLOAT64)
	runs.AddFieldColumn("resources", types.FLOAT64)
	runs.AddFieldColumn("final_resources", types.FLOAT64)
	runs.AddFieldColumn("stages", types.INT64)
	runs.AddFieldColumn("ended_at", types.STRING)
	runs.AddFieldColumn("compromised", types.BOOLEAN)
	runs.AddFieldColumn("impacted", types.BOOLEAN)
	runs.AddFieldColumn("detected", types.BOOLEAN)
	runs.AddFieldColumn("evicted", types.BOOLEAN)
	runs.AddFieldColumn("left_resources", types.FLOAT64)
	runs.AddFieldColumn("impact", types.STRING)
	runs.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	for _, t := range ts {
		for _, r := range telemetry.StageRows(t, now) {
			if err := stages.AddRow(r.BatchID, r.Stage, int64(r.Run), r.Posture, r.Resources,
				r.RawChance, r.Chance, r.Draw, r.Success, r.Gated, r.Band, r.Changes, r.Timestamp); err != nil {
				return err
			}
		}
		r := telemetry.NewRunRow(t, now)
		if err := runs.AddRow(r.BatchID, r.AttackerType, int64(r.Run), r.Seed, r.Posture, r.Resources,
			r.FinalResources, int64(r.Stages), r.EndedAt, r.Compromised, r.Impacted, r.Detected, r.Evicted, r.LeftResources, r.Impact, r.Timestamp); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if _, err := w.client.Write(ctx, stages, runs); err != nil {
		slog.Error("greptime write failed", "err", err)
		return err
	}
	slog.Debug("greptime write", "traces", len(ts))
	return nil
}
