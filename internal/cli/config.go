package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/rulesim/config"
)

func newConfigCmd(rc *RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate or validate configuration files",
		Long: `Manage simulation configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  trader config init -o simulation.yaml
  trader config validate -f simulation.yaml`,
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigValidateCmd(rc))
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Default().SaveToFile(output); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Created default configuration: %s\n", output)
			fmt.Fprintln(out, "\nEdit the file and run with:")
			fmt.Fprintf(out, "  trader run -f %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "simulation.yaml", "output config file path")
	return cmd
}

// newConfigValidateCmd loads and fully builds the file, so rule and
// execution errors surface as well as shape errors.
func newConfigValidateCmd(rc *RootConfig) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFile(path)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			setup, err := cfg.Build(rc.Logger())
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Configuration valid: %s\n", path)
			fmt.Fprintf(out, "  Account: %.2f %s\n", cfg.Account.Balance, cfg.Account.Currency)
			fmt.Fprintf(out, "  Market: %d days from %s, %d underlyings\n", len(setup.Dates), cfg.Market.Start, len(cfg.Market.Underlyings))
			for _, rs := range setup.RuleSets {
				fmt.Fprintf(out, "  Rule set: %s (%d open, %d closing rules, %d executions)\n",
					rs.Name, len(rs.Open), len(rs.ClosingRules()), len(rs.Executions))
			}
			if setup.Streams != nil {
				fmt.Fprintf(out, "  Streams: %d %s\n", setup.Streams.Config().NumStreams, setup.Streams.Config().RollInterval)
			}
			journalType := cfg.Journal.Type
			if journalType == "" {
				journalType = "none"
			}
			fmt.Fprintf(out, "  Journal: %s\n", journalType)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "path to config file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
