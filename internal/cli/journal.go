package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/rulesim/calendar"
	"github.com/rustyeddy/rulesim/journal"
)

const defaultDBPath = "./trader.db"

func newJournalCmd(rc *RootConfig) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Query the SQLite trade journal",
		Long: `Query and display closed trades recorded by "trader run --journal sqlite".

Subcommands:
  trade  - Get details of a specific trade by ID
  day    - List trades closed on a simulation date
  range  - List trades closed between two simulation dates

Examples:
  trader journal trade 01HV3J6Q6W5Q1N8R4Z2Y7K0M9C
  trader journal day 2024-02-16
  trader journal range 2024-01-01 2024-07-01`,
	}
	cmd.PersistentFlags().StringVarP(&dbPath, "db", "d", defaultDBPath, "path to SQLite journal DB (env TRADER_DB)")

	open := func(cmd *cobra.Command) (*journal.SQLite, error) {
		path := dbPath
		if v := os.Getenv("TRADER_DB"); v != "" && !cmd.Flags().Changed("db") {
			path = v
		}
		j, err := journal.NewSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		return j, nil
	}

	tradeCmd := &cobra.Command{
		Use:   "trade <trade-id>",
		Short: "Get details of a specific trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open(cmd)
			if err != nil {
				return err
			}
			defer j.Close()

			rec, err := j.GetTrade(args[0])
			if err != nil {
				return fmt.Errorf("get trade: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(rec))
			return nil
		},
	}

	dayCmd := &cobra.Command{
		Use:   "day <YYYY-MM-DD>",
		Short: "List trades closed on a simulation date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := calendar.Parse(args[0])
			if err != nil {
				return fmt.Errorf("date: %w", err)
			}
			return listClosed(cmd, open, start, start.AddDate(0, 0, 1))
		},
	}

	rangeCmd := &cobra.Command{
		Use:   "range <from> <to>",
		Short: "List trades closed in [from, to)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := calendar.Parse(args[0])
			if err != nil {
				return fmt.Errorf("from: %w", err)
			}
			to, err := calendar.Parse(args[1])
			if err != nil {
				return fmt.Errorf("to: %w", err)
			}
			if !from.Before(to) {
				return fmt.Errorf("from must be before to")
			}
			return listClosed(cmd, open, from, to)
		},
	}

	cmd.AddCommand(tradeCmd, dayCmd, rangeCmd)
	return cmd
}

func listClosed(cmd *cobra.Command, open func(*cobra.Command) (*journal.SQLite, error), start, end time.Time) error {
	j, err := open(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListTradesClosedBetween(start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	if len(recs) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no trades closed between %s and %s\n", calendar.Format(start), calendar.Format(end))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
	return nil
}
