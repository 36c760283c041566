package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"intrusion-sim/internal/metrics"
	"intrusion-sim/internal/scenario"
	"intrusion-sim/internal/sim"
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Run a multi-phase campaign",
	Long: "campaign runs one batch per scenario phase, hardening or restoring the defender between " +
		"phases and following triggers on the batch rates.",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := loadScenario(viper.GetString("scenario"), viper.GetString("builtin"))
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		orch, err := newOrchestrator(cfg)
		if err != nil {
			return err
		}
		writer, cleanup, err := newWriters(cfg, viper.GetBool("print-only"), viper.GetString("log-file"), "")
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := signalContext()
		defer cancel()

		results, err := sim.RunCampaign(ctx, orch, sc, cfg,
			sim.WithWriter(writer),
			sim.WithWorkers(cfg.Workers),
			sim.WithMetrics(metrics.NewRecorder()),
		)
		if err != nil {
			return err
		}
		return json.NewEncoder(cmd.ErrOrStderr()).Encode(struct {
			Scenario string            `json:"scenario"`
			Phases   []sim.PhaseResult `json:"phases"`
		}{sc.Name, results})
	},
}

func loadScenario(path, builtin string) (*scenario.Scenario, error) {
	switch {
	case path != "" && builtin != "":
		return nil, fmt.Errorf("use either --scenario or --builtin")
	case path != "":
		return scenario.Load(path)
	case builtin != "":
		all := scenario.BuiltIn()
		sc, ok := all[builtin]
		if !ok {
			names := make([]string, 0, len(all))
			for n := range all {
				names = append(names, n)
			}
			sort.Strings(names)
			return nil, fmt.Errorf("unknown built-in scenario %q (have %s)", builtin, strings.Join(names, ", "))
		}
		return &sc, nil
	default:
		return nil, fmt.Errorf("scenario required: --scenario or --builtin")
	}
}

func init() {
	addConfigFlags(campaignCmd, false)
	campaignCmd.Flags().String("scenario", "", "Path to scenario YAML")
	campaignCmd.Flags().String("builtin", "", "Name of a built-in scenario")
	campaignCmd.Flags().Bool("print-only", false, "Print traces to STDOUT instead of writing to DB")
	campaignCmd.Flags().String("log-file", "", "Path to export traces (JSONL)")
}
