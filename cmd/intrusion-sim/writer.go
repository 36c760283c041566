package main

import (
	"os"

	"golang.org/x/term"

	"intrusion-sim/internal/config"
	"intrusion-sim/internal/sim"
)

// newWriters sets up the trace writer based on flags and env vars. It returns
// the writer and a cleanup function to close any resources.
func newWriters(cfg *config.SimulationConfig, printOnly bool, logFile, summaryFile string) (sim.TraceWriter, func(), error) {
	cleanup := func() {}

	writer, err := baseWriter(cfg, printOnly)
	if err != nil {
		return nil, nil, err
	}
	if logFile == "" {
		return writer, cleanup, nil
	}
	fw, err := sim.NewFileWriter(logFile, summaryFile)
	if err != nil {
		return nil, nil, err
	}
	cleanup = func() { fw.Close() }
	return sim.NewMultiWriter(writer, fw), cleanup, nil
}

// baseWriter chooses GreptimeDB when an endpoint is configured, otherwise
// STDOUT: colorized on a terminal, JSON lines when piped.
func baseWriter(cfg *config.SimulationConfig, printOnly bool) (sim.TraceWriter, error) {
	endpoint := os.Getenv("GREPTIMEDB_ENDPOINT")
	if printOnly || endpoint == "" {
		return stdoutWriter(cfg, term.IsTerminal(int(os.Stdout.Fd()))), nil
	}
	database := os.Getenv("GREPTIMEDB_DATABASE")
	if database == "" {
		database = "public"
	}
	return sim.NewGreptimeDBWriter(endpoint, database)
}

func stdoutWriter(cfg *config.SimulationConfig, tty bool) sim.TraceWriter {
	if tty {
		return sim.NewColorStdoutWriter(cfg)
	}
	return sim.NewJSONStdoutWriter()
}
