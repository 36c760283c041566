package sim

import (
	"encoding/json"
	"errors"
	"os"

	"intrusion-sim/internal/lifecycle"
)

// FileWriter writes traces and summaries to JSONL files.
type FileWriter struct {
	traceFile   *os.File
	summaryFile *os.File
	traceEnc    *json.Encoder
	summaryEnc  *json.Encoder
}

// NewFileWriter creates a FileWriter. summaryPath may be empty to skip
// summaries.
func NewFileWriter(tracePath, summaryPath string) (*FileWriter, error) {
	tf, err := os.Create(tracePath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{traceFile: tf, traceEnc: json.NewEncoder(tf)}
	if summaryPath != "" {
		sf, err := os.Create(summaryPath)
		if err != nil {
			tf.Close()
			return nil, err
		}
		fw.summaryFile = sf
		fw.summaryEnc = json.NewEncoder(sf)
	}
	return fw, nil
}

// WriteTrace logs a single trace.
func (f *FileWriter) WriteTrace(t *lifecycle.Trace) error {
	return f.traceEnc.Encode(t)
}

// WriteTraces logs multiple traces.
func (f *FileWriter) WriteTraces(ts []*lifecycle.Trace) error {
	for _, t := range ts {
		if err := f.WriteTrace(t); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummary logs a batch summary, if enabled.
func (f *FileWriter) WriteSummary(s Summary) error {
	if f.summaryEnc == nil {
		return nil
	}
	return f.summaryEnc.Encode(s)
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var errs []error
	if f.traceFile != nil {
		errs = append(errs, f.traceFile.Close())
	}
	if f.summaryFile != nil {
		errs = append(errs, f.summaryFile.Close())
	}
	return errors.Join(errs...)
}
