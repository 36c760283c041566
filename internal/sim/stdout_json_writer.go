package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"intrusion-sim/internal/lifecycle"
)

// JSONStdoutWriter prints traces and summaries as JSON lines to STDOUT.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

func (w *JSONStdoutWriter) emit(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// WriteTrace outputs a trace in JSON format.
func (w *JSONStdoutWriter) WriteTrace(t *lifecycle.Trace) error {
	return w.emit(t)
}

// WriteSummary outputs a batch summary in JSON format.
func (w *JSONStdoutWriter) WriteSummary(s Summary) error {
	return w.emit(struct {
		Type string `json:"type"`
		Summary
	}{Type: "summary", Summary: s})
}
