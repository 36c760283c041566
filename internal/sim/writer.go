package sim

import (
	"intrusion-sim/internal/lifecycle"
)

// TraceWriter receives every finished lifecycle trace.
type TraceWriter interface {
	WriteTrace(t *lifecycle.Trace) error
}

// batchTraceWriter is implemented by writers that can handle a whole batch
// at once.
type batchTraceWriter interface {
	WriteTraces(ts []*lifecycle.Trace) error
}

// SummaryWriter is implemented by writers that also report batch summaries.
type SummaryWriter interface {
	WriteSummary(s Summary) error
}

func writeTraces(w TraceWriter, ts []*lifecycle.Trace) error {
	if bw, ok := w.(batchTraceWriter); ok {
		return bw.WriteTraces(ts)
	}
	for _, t := range ts {
		if err := w.WriteTrace(t); err != nil {
			return err
		}
	}
	return nil
}
