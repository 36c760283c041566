package telemetry

import (
	"encoding/json"
	"time"

	"intrusion-sim/internal/lifecycle"
)

// StageRows flattens every record of t into rows stamped with ts.
func StageRows(t *lifecycle.Trace, ts time.Time) []StageRow {
	rows := make([]StageRow, 0, len(t.Records))
	for _, r := range t.Records {
		changes := "[]"
		if len(r.Changes) > 0 {
			if b, err := json.Marshal(r.Changes); err == nil {
				changes = string(b)
			}
		}
		rows = append(rows, StageRow{
			BatchID:   t.BatchID,
			Stage:     string(r.Stage),
			Run:       t.Run,
			Posture:   t.Posture,
			Resources: t.Attacker.Resources,
			RawChance: r.RawChance,
			Chance:    r.Chance,
			Draw:      r.Draw,
			Success:   r.Success,
			Gated:     r.Gated,
			Band:      string(r.ResourceBand),
			Changes:   changes,
			Timestamp: ts,
		})
	}
	return rows
}

// NewRunRow summarises t as a single row stamped with ts.
func NewRunRow(t *lifecycle.Trace, ts time.Time) RunRow {
	row := RunRow{
		BatchID:        t.BatchID,
		AttackerType:   t.AttackerType,
		Run:            t.Run,
		Seed:           t.Seed,
		Posture:        t.Posture,
		Resources:      t.Attacker.Resources,
		FinalResources: t.Final.Resources,
		Stages:         len(t.Records),
		EndedAt:        string(t.EndedAt),
		Compromised:    t.Compromised(),
		Impacted:       t.Impacted(),
		Detected:       t.Detected,
		Evicted:        t.Evicted(),
		LeftResources:  t.Final.Resources,
		Timestamp:      ts,
	}
	if t.Final.Impact != nil {
		row.Impact = *t.Final.Impact
	}
	if t.Response != nil {
		row.LeftResources = t.Response.Resources
	}
	return row
}
