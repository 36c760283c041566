package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"intrusion-sim/internal/dashboard"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render the Grafana dashboard",
	Long:  "dashboard renders a Grafana dashboard over the GreptimeDB stage and run tables. GREPTIMEDB_DATASOURCE_UID must be set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := viper.GetString("out")
		if err := dashboard.Render(out, dashboard.DefaultData()); err != nil {
			return err
		}
		slog.Info("dashboard rendered", "dir", out)
		return nil
	},
}

func init() {
	dashboardCmd.Flags().String("out", "build", "Output directory")
}
