package sim

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"intrusion-sim/internal/lifecycle"
)

// ReplayLog reads JSONL traces from r, forwards each one to writer and
// returns their summary. Summary lines written by the JSON writer are
// skipped. writer may be nil to only recompute the summary.
func ReplayLog(r io.Reader, writer TraceWriter) (Summary, error) {
	var sum Summary
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var kind struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(b, &kind); err != nil {
			return sum, fmt.Errorf("line %d: %w", line, err)
		}
		if kind.Type == "summary" {
			continue
		}
		var t lifecycle.Trace
		if err := json.Unmarshal(b, &t); err != nil {
			return sum, fmt.Errorf("line %d: %w", line, err)
		}
		sum.Add(&t)
		if writer != nil {
			if err := writer.WriteTrace(&t); err != nil {
				return sum, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return sum, err
	}
	if sw, ok := writer.(SummaryWriter); ok {
		if err := sw.WriteSummary(sum); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

// ReplayLogFile opens a file and replays its traces.
func ReplayLogFile(path string, writer TraceWriter) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, err
	}
	defer f.Close()
	return ReplayLog(f, writer)
}
