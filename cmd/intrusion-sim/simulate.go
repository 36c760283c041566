package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"intrusion-sim/internal/logging"
	"intrusion-sim/internal/metrics"
	"intrusion-sim/internal/sim"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a batch of intrusion lifecycles",
	Long:  "simulate runs independent lifecycles against one defender posture and reports per-stage rates.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		orch, err := newOrchestrator(cfg)
		if err != nil {
			return err
		}
		b, err := sim.BatchFromConfig(cfg)
		if err != nil {
			return err
		}
		eng, err := cfg.AttackerEngine()
		if err != nil {
			return err
		}

		writer, cleanup, err := newWriters(cfg, viper.GetBool("print-only"), viper.GetString("log-file"), viper.GetString("summary-file"))
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := signalContext()
		defer cancel()

		runner := sim.NewRunner(orch,
			sim.WithWriter(writer),
			sim.WithWorkers(cfg.Workers),
			sim.WithMetrics(metrics.NewRecorder()),
			sim.WithAttackerEngine(eng),
			sim.WithWorkloadPosture(cfg.WorkloadPosture()),
		)
		sum, err := runner.Run(ctx, b)
		if err != nil {
			return err
		}
		logging.FromContext(ctx).Info("simulation finished", "runs", sum.Runs, "compromised", sum.Compromised, "impacts", sum.Impacts, "detections", sum.Detections, "evictions", sum.Evictions)
		return nil
	},
}

func init() {
	addConfigFlags(simulateCmd, true)
	simulateCmd.Flags().Bool("print-only", false, "Print traces to STDOUT instead of writing to DB")
	simulateCmd.Flags().String("log-file", "", "Path to export traces (JSONL)")
	simulateCmd.Flags().String("summary-file", "", "Path to export the batch summary (JSON, needs --log-file)")
}
