package sim

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestReplayLog(t *testing.T) {
	ts := sampleTraces(t, 6)
	var buf bytes.Buffer
	jw := &JSONStdoutWriter{out: &buf}
	for _, tr := range ts {
		if err := jw.WriteTrace(tr); err != nil {
			t.Fatalf("WriteTrace: %v", err)
		}
	}
	if err := jw.WriteSummary(summarize(ts)); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}

	cw := &collectWriter{}
	sum, err := ReplayLog(&buf, cw)
	if err != nil {
		t.Fatalf("ReplayLog: %v", err)
	}
	if diff := cmp.Diff(ts, cw.traces, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("replayed traces (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(summarize(ts), sum); diff != "" {
		t.Fatalf("replayed summary (-want +got):\n%s", diff)
	}
	if len(cw.summaries) != 1 {
		t.Fatalf("expected the summary to be forwarded once, got %d", len(cw.summaries))
	}
}

func TestReplayLogNilWriter(t *testing.T) {
	ts := sampleTraces(t, 2)
	var buf bytes.Buffer
	jw := &JSONStdoutWriter{out: &buf}
	for _, tr := range ts {
		_ = jw.WriteTrace(tr)
	}
	buf.WriteString("\n")
	sum, err := ReplayLog(&buf, nil)
	if err != nil {
		t.Fatalf("ReplayLog: %v", err)
	}
	if sum.Runs != 2 {
		t.Fatalf("runs = %d, want 2", sum.Runs)
	}
}

func TestReplayLogBadLine(t *testing.T) {
	_, err := ReplayLog(strings.NewReader("{\"run\":0}\nnot json\n"), nil)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected error on line 2, got %v", err)
	}
}

func TestReplayLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	fw, err := NewFileWriter(path, "")
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	if err := fw.WriteTraces(sampleTraces(t, 3)); err != nil {
		t.Fatalf("WriteTraces: %v", err)
	}
	fw.Close()

	sum, err := ReplayLogFile(path, nil)
	if err != nil {
		t.Fatalf("ReplayLogFile: %v", err)
	}
	if sum.Runs != 3 {
		t.Fatalf("runs = %d, want 3", sum.Runs)
	}
	if _, err := ReplayLogFile(filepath.Join(t.TempDir(), "nope"), nil); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
