package sim

import (
	"errors"
	"testing"

	"intrusion-sim/internal/lifecycle"
)

type traceOnly struct{ n int }

func (w *traceOnly) WriteTrace(*lifecycle.Trace) error {
	w.n++
	return nil
}

type batchOnly struct {
	traceOnly
	batches int
}

func (w *batchOnly) WriteTraces(ts []*lifecycle.Trace) error {
	w.batches++
	w.n += len(ts)
	return nil
}

func TestMultiWriterFansOut(t *testing.T) {
	ts := sampleTraces(t, 4)
	plain := &traceOnly{}
	batch := &batchOnly{}
	collect := &collectWriter{}
	mw := NewMultiWriter(plain, nil, batch, collect)

	if err := mw.WriteTraces(ts); err != nil {
		t.Fatalf("WriteTraces: %v", err)
	}
	if err := mw.WriteSummary(summarize(ts)); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	if plain.n != 4 || batch.n != 4 || len(collect.traces) != 4 {
		t.Fatalf("writers saw %d/%d/%d traces", plain.n, batch.n, len(collect.traces))
	}
	if batch.batches != 1 {
		t.Fatalf("batch writer called %d times, want 1", batch.batches)
	}
	if len(collect.summaries) != 1 {
		t.Fatalf("summary writer got %d summaries", len(collect.summaries))
	}
}

func TestMultiWriterStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	after := &traceOnly{}
	mw := NewMultiWriter(failWriter{boom}, after)
	if err := mw.WriteTrace(&lifecycle.Trace{}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if after.n != 0 {
		t.Fatalf("writer after the failure still ran")
	}
}
