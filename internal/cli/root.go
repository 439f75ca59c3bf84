// Package cli wires the trader command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/rulesim/internal/logging"
)

// RootConfig holds the persistent flags shared by every subcommand.
type RootConfig struct {
	EnvFile   string
	LogLevel  string
	LogFormat string
	NoColor   bool

	logger *logrus.Logger
}

// Logger returns the logger built in PersistentPreRunE.
func (rc *RootConfig) Logger() *logrus.Logger { return rc.logger }

func NewRootCmd() *cobra.Command {
	rc := &RootConfig{}

	cmd := &cobra.Command{
		Use:   "trader",
		Short: "Rule-driven trade simulation engine",
		Long: `Trader replays a generated market day by day and opens, sizes and
closes option and bill trades when declarative rules fire.

Examples:
  trader config init -o simulation.yaml
  trader run -f simulation.yaml --journal sqlite --db ./trader.db
  trader journal day 2024-02-16 --db ./trader.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global / persistent flags
	cmd.PersistentFlags().StringVar(&rc.EnvFile, "env-file", "", "Load environment from this file (default: .env when present)")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "info", "Log level: debug|info|warn|error (env TRADER_LOG_LEVEL)")
	cmd.PersistentFlags().StringVar(&rc.LogFormat, "log-format", "text", "Log format: text|json")
	cmd.PersistentFlags().BoolVar(&rc.NoColor, "no-color", false, "Disable colored output")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return rc.setup(cmd)
	}

	cmd.AddCommand(
		newRunCmd(rc),
		newConfigCmd(rc),
		newJournalCmd(rc),
		newVersionCmd(),
	)
	return cmd
}

func (rc *RootConfig) setup(cmd *cobra.Command) error {
	if rc.EnvFile != "" {
		if err := godotenv.Load(rc.EnvFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("TRADER_LOG_LEVEL"); v != "" && !cmd.Flags().Changed("log-level") {
		rc.LogLevel = v
	}
	logger, err := logging.NewWithWriter(cmd.ErrOrStderr(), rc.LogLevel, rc.LogFormat)
	if err != nil {
		return err
	}
	rc.logger = logger
	return nil
}

// Execute runs the command tree until it finishes or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
