package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"intrusion-sim/internal/config"
	"intrusion-sim/internal/lifecycle"
	"intrusion-sim/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "intrusion-sim",
	Short: "Intrusion lifecycle simulation toolkit",
	Long: "intrusion-sim rolls attackers through the intrusion stages against a defender posture, " +
		"aggregates the outcomes and exports them to STDOUT, JSONL files or GreptimeDB.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		_, err := logging.Init(viper.GetString("log-level"), viper.GetString("log-format"))
		return err
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	viper.SetEnvPrefix("ISIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text or json)")

	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(campaignCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dashboardCmd)
}

// addConfigFlags registers the flags every command that loads a
// configuration shares. Commands that evolve the defender skip --posture.
func addConfigFlags(cmd *cobra.Command, fixedPosture bool) {
	cmd.Flags().String("config", "", "Path to simulation configuration YAML (defaults built in)")
	cmd.Flags().String("schema", "", "Path to CUE schema file (embedded schema if empty)")
	cmd.Flags().Int("runs", 0, "Override the number of runs per batch")
	cmd.Flags().Int64("seed", 0, "Override the base seed")
	cmd.Flags().Int("workers", 0, "Override the number of concurrent runs")
	if fixedPosture {
		cmd.Flags().Float64("posture", 0, "Override the defender posture (unit scale)")
	}
	cmd.Flags().String("category", "", "Draw attackers from the sme or smb pool")
}

// loadConfig reads the configuration and applies flag and ISIM_* overrides.
func loadConfig() (*config.SimulationConfig, error) {
	cfg := config.Default()
	if path := viper.GetString("config"); path != "" {
		var err error
		if cfg, err = config.Load(path, viper.GetString("schema")); err != nil {
			return nil, err
		}
	}
	if viper.IsSet("runs") {
		cfg.Runs = viper.GetInt("runs")
	}
	if viper.IsSet("seed") {
		cfg.Seed = viper.GetInt64("seed")
	}
	if viper.IsSet("workers") {
		cfg.Workers = viper.GetInt("workers")
	}
	if viper.IsSet("posture") {
		p := viper.GetFloat64("posture")
		cfg.Posture, cfg.PostureScale = &p, "unit"
	}
	if viper.IsSet("category") {
		cfg.Category = viper.GetString("category")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newOrchestrator(cfg *config.SimulationConfig) (*lifecycle.Orchestrator, error) {
	sc, err := cfg.StageConfig()
	if err != nil {
		return nil, err
	}
	return lifecycle.New(sc)
}

// signalContext is cancelled on SIGINT or SIGTERM and carries the default
// logger.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return logging.NewContext(ctx, logging.FromContext(ctx)), cancel
}
