// Row structs with greptime tags
package telemetry

import (
	"os"
	"time"
)

// StageRow is one stage attempt flattened for time-series storage.
type StageRow struct {
	BatchID   string    `json:"batch_id"`   // TAG
	Stage     string    `json:"stage"`      // TAG
	Run       int       `json:"run"`        // TAG
	Posture   float64   `json:"posture"`    // FIELD
	Resources float64   `json:"resources"`  // FIELD
	RawChance float64   `json:"raw_chance"` // FIELD
	Chance    float64   `json:"chance"`     // FIELD
	Draw      float64   `json:"draw"`       // FIELD
	Success   bool      `json:"success"`    // FIELD
	Gated     bool      `json:"gated"`      // FIELD
	Band      string    `json:"band"`       // FIELD
	Changes   string    `json:"changes"`    // FIELD, JSON
	Timestamp time.Time `json:"ts"`         // TIME INDEX
}

// RunRow summarises one lifecycle run.
type RunRow struct {
	BatchID        string    `json:"batch_id"`      // TAG
	AttackerType   string    `json:"attacker_type"` // TAG
	Run            int       `json:"run"`           // TAG
	Seed           int64     `json:"seed"`
	Posture        float64   `json:"posture"`
	Resources      float64   `json:"resources"`
	FinalResources float64   `json:"final_resources"`
	Stages         int       `json:"stages"`
	EndedAt        string    `json:"ended_at"`
	Compromised    bool      `json:"compromised"`
	Impacted       bool      `json:"impacted"`
	Detected       bool      `json:"detected"`
	Evicted        bool      `json:"evicted"`
	LeftResources  float64   `json:"left_resources"`
	Impact         string    `json:"impact"`
	Timestamp      time.Time `json:"ts"` // TIME INDEX
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// StageTableName and RunTableName are the GreptimeDB tables rows land in.
// They can be overridden via GREPTIMEDB_STAGE_TABLE and GREPTIMEDB_RUN_TABLE.
var (
	StageTableName = envOr("GREPTIMEDB_STAGE_TABLE", "lifecycle_stages")
	RunTableName   = envOr("GREPTIMEDB_RUN_TABLE", "lifecycle_runs")
)

func (StageRow) TableName() string { return StageTableName }

func (RunRow) TableName() string { return RunTableName }
