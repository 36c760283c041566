package sim

import (
	"intrusion-sim/internal/lifecycle"
)

// MultiWriter fans traces and summaries out to multiple writers.
type MultiWriter struct {
	writers []TraceWriter
}

// NewMultiWriter creates a new MultiWriter. Nil writers are skipped.
func NewMultiWriter(ws ...TraceWriter) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range ws {
		if w != nil {
			mw.writers = append(mw.writers, w)
		}
	}
	return mw
}

// WriteTrace sends a trace to all writers.
func (mw *MultiWriter) WriteTrace(t *lifecycle.Trace) error {
	for _, w := range mw.writers {
		if err := w.WriteTrace(t); err != nil {
			return err
		}
	}
	return nil
}

// WriteTraces sends multiple traces to all writers, using batch if supported.
func (mw *MultiWriter) WriteTraces(ts []*lifecycle.Trace) error {
	for _, w := range mw.writers {
		if err := writeTraces(w, ts); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary sends the summary to every writer that reports summaries.
func (mw *MultiWriter) WriteSummary(s Summary) error {
	for _, w := range mw.writers {
		sw, ok := w.(SummaryWriter)
		if !ok {
			continue
		}
		if err := sw.WriteSummary(s); err != nil {
			return err
		}
	}
	return nil
}
