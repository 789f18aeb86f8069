// Package commands implements the qdr command line interface.
package commands

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/qdr/internal/config"
	"github.com/aristath/qdr/internal/di"
	"github.com/aristath/qdr/pkg/logger"
)

var (
	// Global flags
	verbose bool
	timeout time.Duration
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "qdr",
	Short: "QDR - discrete portfolio optimization via simulated annealing",
	Long: `QDR Unified CLI

Builds a binary (QUBO) model of a long-only portfolio from historical prices
and searches it with simulated annealing.

Usage:
  qdr [command]

Examples:
  qdr optimize --tickers AAPL,MSFT,GOOGL,BTC-USD
  qdr score --weights AAPL=0.6,MSFT=0.4
  qdr frontier --tickers AAPL,MSFT,GOOGL --samples 500
  qdr serve`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall time limit for a command")
}

// newLogger logs to stderr so command output on stdout stays clean
func newLogger(level string) zerolog.Logger {
	if verbose {
		level = "debug"
	}
	return logger.New(logger.Config{
		Level:  level,
		Pretty: true,
		Output: os.Stderr,
	})
}

// bootstrap loads configuration and wires the dependency container.
// Callers must Close the container.
func bootstrap() (*config.Config, *di.Container, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}

	// Quiet by default: the CLI reports through stdout
	log := newLogger("warn")

	container, _, err := di.Wire(cfg, log)
	if err != nil {
		return nil, nil, log, err
	}
	return cfg, container, log, nil
}
