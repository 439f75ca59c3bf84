package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/rulesim/backtest"
	"github.com/rustyeddy/rulesim/config"
	"github.com/rustyeddy/rulesim/internal/id"
	"github.com/rustyeddy/rulesim/internal/logging"
	"github.com/rustyeddy/rulesim/journal"
	"github.com/rustyeddy/rulesim/sim"
)

type runOptions struct {
	configPath string

	journalType string
	dbPath      string
	tradesCSV   string
	equityCSV   string
	dsn         string
	orgPath     string

	seed int64
	days int
}

func newRunCmd(rc *RootConfig) *cobra.Command {
	o := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation from a config file",
		Long: `Run a simulation using a configuration file. Without -f the built-in
default configuration is used.

Flags override the file, and TRADER_JOURNAL, TRADER_DB, TRADER_PG_DSN
and TRADER_SEED override the file but not the flags.

Example:
  trader run -f simulation.yaml --journal csv --trades-csv trades.csv --equity-csv equity.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load(cmd)
			if err != nil {
				return err
			}
			source := o.configPath
			if source == "" {
				source = "default"
			}
			return runSimulation(cmd.Context(), cfg, source, rc.Logger(), cmd.OutOrStdout(), rc.NoColor)
		},
	}

	cmd.Flags().StringVarP(&o.configPath, "config", "f", "", "path to config file (YAML or JSON)")
	cmd.Flags().StringVar(&o.journalType, "journal", "", "Journal type: none|csv|sqlite|postgres")
	cmd.Flags().StringVar(&o.dbPath, "db", "", "SQLite journal database")
	cmd.Flags().StringVar(&o.tradesCSV, "trades-csv", "", "CSV file for closed trades")
	cmd.Flags().StringVar(&o.equityCSV, "equity-csv", "", "CSV file for daily equity")
	cmd.Flags().StringVar(&o.dsn, "dsn", "", "Postgres DSN")
	cmd.Flags().StringVar(&o.orgPath, "org", "", "Write an org-mode run report to this path")
	cmd.Flags().Int64Var(&o.seed, "seed", 0, "Market generator seed")
	cmd.Flags().IntVar(&o.days, "days", 0, "Number of days to simulate")
	return cmd
}

// load applies file, then environment, then explicitly set flags.
func (o *runOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.LoadFromFile(o.configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("journal") {
		cfg.Journal.Type = o.journalType
	}
	if flags.Changed("db") {
		cfg.Journal.DBPath = o.dbPath
	}
	if flags.Changed("trades-csv") {
		cfg.Journal.TradesFile = o.tradesCSV
	}
	if flags.Changed("equity-csv") {
		cfg.Journal.EquityFile = o.equityCSV
	}
	if flags.Changed("dsn") {
		cfg.Journal.DSN = o.dsn
	}
	if flags.Changed("org") {
		cfg.Journal.OrgPath = o.orgPath
	}
	if flags.Changed("seed") {
		cfg.Market.Seed = o.seed
	}
	if flags.Changed("days") {
		cfg.Market.Days = o.days
	}
	return cfg, nil
}

func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "", "none":
		return journal.Discard{}, nil
	case "csv":
		return journal.NewCSV(jc.TradesFile, jc.EquityFile)
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	case "postgres":
		return journal.NewPostgres(jc.DSN)
	}
	return nil, fmt.Errorf("unknown journal type %q", jc.Type)
}

func runSimulation(ctx context.Context, cfg *config.Config, source string, logger *logrus.Logger, out io.Writer, noColor bool) error {
	setup, err := cfg.Build(logger)
	if err != nil {
		return fmt.Errorf("build simulation: %w", err)
	}

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	mgr, err := sim.NewManager(setup.RuleSets,
		sim.WithJournal(j),
		sim.WithManagerLogger(logging.Component(logger, "manager")),
	)
	if err != nil {
		return err
	}

	opts := []sim.Option{
		sim.WithEquityJournal(j),
		sim.WithRiskFree(setup.RiskFree),
		sim.WithLogger(logging.Component(logger, "engine")),
	}
	if setup.Streams != nil {
		opts = append(opts, sim.WithStreams(setup.Streams))
	}
	if setup.Risk != nil {
		opts = append(opts, sim.WithRisk(setup.Risk))
	}
	engine, err := sim.NewEngine(mgr, setup.Market, setup.Account, opts...)
	if err != nil {
		return err
	}

	res, err := engine.Run(ctx, setup.Dates)
	if err != nil {
		return err
	}

	summary := backtest.Summarize(res.Schedule.Trades(), res.Account.InitialBalance(), res.Account.CashBalance())
	summary.RunID = id.Prefixed("run")
	summary.Currency = res.Account.Currency()
	summary.Start = res.Start
	summary.End = res.End
	backtest.Print(out, summary, res.Metrics, backtest.PrintOptions{NoColor: noColor})

	if cfg.Journal.OrgPath != "" {
		run := newRunReport(cfg, source, summary, res)
		if err := run.WriteOrg(""); err != nil {
			return fmt.Errorf("write org report: %w", err)
		}
		fmt.Fprintf(out, "\nReport written to %s\n", cfg.Journal.OrgPath)
	}
	return nil
}

func newRunReport(cfg *config.Config, source string, s backtest.Summary, res *sim.Result) *journal.Run {
	run := &journal.Run{
		RunID:        s.RunID,
		Created:      time.Now(),
		Config:       source,
		Start:        s.Start,
		End:          s.End,
		Trades:       s.Trades,
		Wins:         s.Wins,
		Losses:       s.Losses,
		StartBalance: s.StartBalance,
		EndBalance:   s.EndBalance,
		OpenNotional: s.OpenNotional,
		NetPL:        s.NetPL,
		ReturnPct:    s.ReturnPct,
		WinRate:      s.WinRate,
		MaxDrawdown:  res.Metrics.MaxDrawdown,
		Sharpe:       res.Metrics.Sharpe,
		OrgPath:      cfg.Journal.OrgPath,
	}
	for _, u := range cfg.Market.Underlyings {
		run.Underlyings = append(run.Underlyings, u.Symbol)
	}
	for _, rs := range cfg.RuleSets {
		run.RuleSets = append(run.RuleSets, rs.Name)
	}
	if s.Open > 0 {
		run.Notes = append(run.Notes, fmt.Sprintf("%d trades still open at %s", s.Open, s.End.Format("2006-01-02")))
	}
	for _, t := range res.Schedule.Closed() {
		run.TradeNotes = append(run.TradeNotes, journal.FromTrade(t))
	}
	return run
}
