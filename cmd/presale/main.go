// Command presale runs and inspects a timed presale.
//
//	presale serve    # HTTP API, websocket feed and metrics
//	presale replay   # rebuild the ledger from the journal
//	presale verify   # check invariants and restore round-trip
//	presale report   # markdown + CSV settlement report
//	presale vault    # print the derived vault address
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"solana-presale/internal/config"
	"solana-presale/internal/logging"
)

var (
	configPath string
	envFile    string

	rootCmd = &cobra.Command{
		Use:           "presale",
		Short:         "Timed presale with pro-rata LP distribution",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to TOML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to .env file (existing variables win)")

	rootCmd.AddCommand(serveCmd, replayCmd, verifyCmd, reportCmd, vaultCmd)
}

// loadConfig reads the .env file, merges config sources and builds the logger.
func loadConfig() (config.Config, zerolog.Logger, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	logger := logging.New(logging.Options{
		App:     "presale",
		Level:   cfg.LogLevel,
		Console: !cfg.LogJSON,
		Out:     os.Stderr,
	})
	return cfg, logger, nil
}
