package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"intrusion-sim/internal/admin"
	"intrusion-sim/internal/logging"
	"intrusion-sim/internal/metrics"
	"intrusion-sim/internal/sim"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the admin API",
	Long:  "serve exposes health, configuration, on-demand batches and Prometheus metrics over HTTP.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		orch, err := newOrchestrator(cfg)
		if err != nil {
			return err
		}
		var writer sim.TraceWriter
		if path := viper.GetString("log-file"); path != "" {
			fw, err := sim.NewFileWriter(path, "")
			if err != nil {
				return err
			}
			defer fw.Close()
			writer = fw
		}

		ctx, cancel := signalContext()
		defer cancel()

		addr := viper.GetString("addr")
		srv := admin.NewServer(orch, cfg, metrics.NewRecorder(), writer)
		logging.FromContext(ctx).Info("admin API listening", "addr", addr)
		if err := srv.Start(ctx, addr); err != nil {
			return err
		}
		logging.FromContext(ctx).Info("admin API stopped")
		return nil
	},
}

func init() {
	addConfigFlags(serveCmd, true)
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	serveCmd.Flags().String("log-file", "", "Path to export traces of served batches (JSONL)")
}
