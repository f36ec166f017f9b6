// Package commands wires the heartguard CLI: training, single and batch
// prediction, and the HTTP serving mode.
package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"heartguard/internal/cfg"
)

var rootCmd = &cobra.Command{
	Use:   "heartguard",
	Short: "HeartGuard - heart disease risk prediction pipeline",
	Long: `HeartGuard predicts heart-disease risk from tabular clinical features.

It normalizes heterogeneous input columns onto a canonical 8-feature schema,
trains a random-forest classifier with a paired standard scaler, and serves
calibrated probabilities bucketed into Low / Moderate / High risk.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	err := rootCmd.Execute()
	if err != nil {
		log.Error().Err(err).Msg("command failed")
	}
	return err
}

// SetVersionInfo sets the build stamp on the root command.
func SetVersionInfo(version, commit string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)
}

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadSettings resolves configuration once per command invocation.
func loadSettings() (cfg.Settings, error) {
	s, err := cfg.Load()
	if err != nil {
		return cfg.Settings{}, fmt.Errorf("load configuration: %w", err)
	}
	return s, nil
}
