package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"intrusion-sim/internal/sim"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a trace log file",
	Long:  "replay feeds traces from a JSONL log back into GreptimeDB or STDOUT and recomputes the summary.",
	RunE: func(cmd *cobra.Command, args []string) error {
		input := viper.GetString("input")
		if input == "" {
			return fmt.Errorf("input file required")
		}
		writer, cleanup, err := newWriters(nil, viper.GetBool("print-only"), "", "")
		if err != nil {
			return err
		}
		defer cleanup()
		sum, err := sim.ReplayLogFile(input, writer)
		if err != nil {
			return err
		}
		slog.Info("replay finished", "input", input, "runs", sum.Runs, "impact_rate", sum.ImpactRate())
		return nil
	},
}

func init() {
	replayCmd.Flags().String("input", "", "Path to trace log file")
	replayCmd.Flags().Bool("print-only", false, "Print traces to STDOUT instead of writing to DB")
	replayCmd.MarkFlagRequired("input")
}
