package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/rulesim/calendar"
	"github.com/rustyeddy/rulesim/execution"
	"github.com/rustyeddy/rulesim/market"
	"github.com/rustyeddy/rulesim/rules"
	"github.com/rustyeddy/rulesim/stream"
	"github.com/rustyeddy/rulesim/trade"
)

const spreadYAML = `
account:
  currency: EUR
  balance: 50000
market:
  start: 2024-03-01
  days: 30
  seed: 7
  underlyings:
    - symbol: SX5E
      asset_class: EQ
    - symbol: BUND
      asset_class: FI
rule_sets:
  - name: collar
    rules:
      - name: open-flat
        action: open
        logic: AND
        conditions:
          - left: {source: portfolio, name: no_open_trades}
            op: equal_to
            right: {source: value, value: true}
          - left: {source: date, name: current}
            op: in_range
            right: {source: value, value: [2024-03-01, 2024-03-05]}
      - name: roll
        action: close
        logic: NOT
        conditions:
          - left: {source: date, name: current, offset: {unit: week, n: -1}}
            op: less_than
            right: {source: trade, name: trade_date, type: date}
    executions:
      - mode: Spread
        target_cost: 0
        distribution: proportional
        trades:
          - underlying: SX5E
            asset_class: EQ
            direction: Buy
            instrument: Put
            strike: 10
            strike_calculation: percent_otm
            notional: {type: fixed, value: 1000}
          - underlying: SX5E
            asset_class: EQ
            direction: Sell
            instrument: Call
            notional: {type: fixed, value: 1000}
      - mode: Buy
        trades:
          - underlying: BUND
            asset_class: FI
            direction: Buy
            instrument: Treasury Bill
            notional: {type: percentage_of_account, value: 0.5}
streams:
  num_streams: 3
  roll_interval: Monthly
  expiration_months: 3
  trades:
    - underlying: SX5E
      asset_class: EQ
      direction: Sell
      instrument: Put
      strike: 0
      strike_calculation: percent_atm
      notional: {type: fixed, value: 500}
risk:
  max_position_pct: 0.2
output:
  risk_free_rate: 0.01
journal:
  type: csv
  trades_file: trades.csv
  equity_file: equity.csv
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NotNil(t, cfg)
	assert.Equal(t, "USD", cfg.Account.Currency)
	assert.Equal(t, 100000.0, cfg.Account.Balance)
	assert.NoError(t, cfg.Validate())

	s, err := cfg.Build(nil)
	require.NoError(t, err)
	assert.Len(t, s.Dates, 365)
	assert.Equal(t, calendar.Date(2024, 1, 1), s.Dates[0])
	require.Len(t, s.RuleSets, 1)
	assert.Len(t, s.RuleSets[0].Open, 1)
	assert.Len(t, s.RuleSets[0].Close, 1)
	assert.Nil(t, s.Streams)
	require.NotNil(t, s.Risk)
	assert.Equal(t, 0.10, s.Risk.MaxPositionPct)
	assert.InDelta(t, 100000, s.Account.CashBalance(), 1e-9)
}

func TestLoadYAMLAndBuild(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromFile(writeFile(t, "collar.yaml", spreadYAML))
	require.NoError(t, err)

	s, err := cfg.Build(nil)
	require.NoError(t, err)

	assert.Equal(t, "EUR", s.Account.Currency())
	assert.Len(t, s.Dates, 30)
	assert.Equal(t, 0.01, s.RiskFree)

	_, ok := s.Market.Series(market.FI, "BUND")
	assert.True(t, ok)

	require.Len(t, s.RuleSets, 1)
	set := s.RuleSets[0]
	assert.Equal(t, "collar", set.Name)
	require.Len(t, set.Open, 1)
	require.Len(t, set.Close, 1)
	assert.Len(t, set.Open[0].Conditions(), 2)
	assert.Equal(t, rules.Not, set.Close[0].Logic())

	require.Len(t, set.Executions, 2)
	spread := set.Executions[0]
	assert.Equal(t, execution.Spread, spread.Mode())
	assert.Equal(t, execution.Proportional, spread.Distribution())
	target, ok := spread.TargetCost()
	require.True(t, ok)
	assert.Zero(t, target)

	legs := spread.Legs()
	require.Len(t, legs, 2)
	assert.Equal(t, trade.PutOption, legs[0].Type())
	k, ok := legs[0].Strike()
	require.True(t, ok)
	assert.Equal(t, 10.0, k)
	_, ok = legs[1].Strike()
	assert.False(t, ok, "second leg strike is solved")

	bill := set.Executions[1].Template()
	assert.Equal(t, trade.TreasuryBill, bill.Type())
	assert.Equal(t, trade.PercentageOfAccount, bill.NotionalRule.Type)

	require.NotNil(t, s.Streams)
	assert.Equal(t, stream.Monthly, s.Streams.Config().RollInterval)
	assert.Len(t, s.Streams.Streams(), 3)
	assert.Equal(t, calendar.Date(2024, 3, 1), s.Streams.Streams()[0].OpenDate)
}

func TestOpenRangeLiteral(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromFile(writeFile(t, "collar.yaml", spreadYAML))
	require.NoError(t, err)
	s, err := cfg.Build(nil)
	require.NoError(t, err)

	open := s.RuleSets[0].Open[0]
	ctx := rules.Context{Date: calendar.Date(2024, 3, 5), Market: s.Market, Schedule: trade.NewSchedule()}
	ok, err := open.Evaluate(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ctx.Date = calendar.Date(2024, 3, 6)
	ok, err = open.Evaluate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveAndReload(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"cfg.yaml", "cfg.yml", "cfg.json"} {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Default().SaveToFile(path))

			got, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, Default().Account, got.Account)
			assert.Equal(t, Default().Market, got.Market)
			require.Len(t, got.RuleSets, 1)
			assert.Equal(t, true, got.RuleSets[0].Rules[0].Conditions[0].Right.Value)

			_, err = got.Build(nil)
			assert.NoError(t, err)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")

	_, err = LoadFromFile(writeFile(t, "bad.yaml", "account: [unclosed"))
	assert.ErrorContains(t, err, "parse config")

	_, err = LoadFromFile(writeFile(t, "empty.yaml", "account:\n  currency: USD\n"))
	assert.ErrorContains(t, err, "invalid config")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"missing currency", func(c *Config) { c.Account.Currency = "" }, "account.currency is required"},
		{"negative balance", func(c *Config) { c.Account.Balance = -1 }, "account.balance must be positive"},
		{"bad start", func(c *Config) { c.Market.Start = "01/01/2024" }, "market.start"},
		{"no days", func(c *Config) { c.Market.Days = 0 }, "market.days must be positive"},
		{"no underlyings", func(c *Config) { c.Market.Underlyings = nil }, "market.underlyings is required"},
		{"bad asset", func(c *Config) { c.Market.Underlyings[0].AssetClass = "XX" }, "unknown asset class"},
		{"no rule sets", func(c *Config) { c.RuleSets = nil }, "rule_sets is required"},
		{"unnamed set", func(c *Config) { c.RuleSets[0].Name = "" }, "rule_sets[0].name is required"},
		{"no executions", func(c *Config) { c.RuleSets[0].Executions = nil }, "has no executions"},
		{"empty execution", func(c *Config) { c.RuleSets[0].Executions[0].Trades = nil }, "has no trades"},
		{"stream without trades", func(c *Config) { c.Streams = &StreamConfig{NumStreams: 1} }, "streams.trades is required"},
		{"bad journal", func(c *Config) { c.Journal.Type = "mongo" }, "journal.type must be one of"},
		{"csv paths", func(c *Config) { c.Journal = JournalConfig{Type: "csv"} }, "trades_file and equity_file"},
		{"sqlite path", func(c *Config) { c.Journal = JournalConfig{Type: "sqlite"} }, "db_path required"},
		{"postgres dsn", func(c *Config) { c.Journal = JournalConfig{Type: "postgres"} }, "dsn required"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	none := Default()
	none.Journal = JournalConfig{Type: "none"}
	assert.NoError(t, none.Validate())
}

func TestBuildErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad operator", func(c *Config) { c.RuleSets[0].Rules[0].Conditions[0].Op = "about" }},
		{"bad logic arity", func(c *Config) { c.RuleSets[0].Rules[0].Logic = "XOR" }},
		{"bad action", func(c *Config) { c.RuleSets[0].Rules[0].Action = "hold" }},
		{"no open rule", func(c *Config) { c.RuleSets[0].Rules = c.RuleSets[0].Rules[1:] }},
		{"bad source", func(c *Config) { c.RuleSets[0].Rules[0].Conditions[0].Left.Source = "news" }},
		{"offset on value", func(c *Config) {
			c.RuleSets[0].Rules[0].Conditions[0].Right.Offset = &OffsetConfig{Unit: "day", N: 1}
		}},
		{"bad offset unit", func(c *Config) {
			c.RuleSets[0].Rules[1].Conditions[0].Left.Offset = &OffsetConfig{Unit: "fortnight", N: 1}
		}},
		{"missing literal", func(c *Config) { c.RuleSets[0].Rules[0].Conditions[0].Right.Value = nil }},
		{"bad mode", func(c *Config) { c.RuleSets[0].Executions[0].Mode = "Hold" }},
		{"bad distribution", func(c *Config) { c.RuleSets[0].Executions[0].Distribution = "skewed" }},
		{"bad instrument", func(c *Config) { c.RuleSets[0].Executions[0].Trades[0].Instrument = "Swap" }},
		{"bad direction", func(c *Config) { c.RuleSets[0].Executions[0].Trades[0].Direction = "Hold" }},
		{"bad notional", func(c *Config) { c.RuleSets[0].Executions[0].Trades[0].Notional.Type = "all_in" }},
		{"zero percentage notional", func(c *Config) {
			c.RuleSets[0].Executions[0].Trades[0].Notional = NotionalConfig{Type: "percentage_of_account", Value: 0}
		}},
		{"bad stream interval", func(c *Config) {
			c.Streams = &StreamConfig{NumStreams: 2, RollInterval: "hourly", ExpirationMonths: 1, Trades: c.RuleSets[0].Executions[0].Trades}
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			cfg.Market.Days = 5
			tt.mutate(cfg)
			_, err := cfg.Build(nil)
			assert.ErrorIs(t, err, rules.ErrInvalidConfig)
		})
	}

	badRisk := Default()
	badRisk.Market.Days = 5
	badRisk.Risk = &RiskConfig{MaxPositionPct: 2}
	_, err := badRisk.Build(nil)
	assert.ErrorContains(t, err, "max position pct")
}

func TestLiteral(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		kind rules.Kind
		text string
	}{
		{"bool", true, rules.KindBool, "true"},
		{"int", 3, rules.KindNumber, "3"},
		{"float", 1.5, rules.KindNumber, "1.5"},
		{"date string", "2024-02-29", rules.KindDate, "2024-02-29"},
		{"plain string", "Call", rules.KindString, `"Call"`},
		{"list", []any{1, 2.5}, rules.KindList, ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := literal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind())
			if tt.text != "" {
				assert.Equal(t, tt.text, v.String())
			}
		})
	}

	_, err := literal(map[string]any{"a": 1})
	assert.ErrorIs(t, err, rules.ErrInvalidConfig)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("TRADER_JOURNAL", "postgres")
	t.Setenv("TRADER_DB", "/tmp/other.db")
	t.Setenv("TRADER_PG_DSN", "host=localhost dbname=sim")
	t.Setenv("TRADER_SEED", "99")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "postgres", cfg.Journal.Type)
	assert.Equal(t, "/tmp/other.db", cfg.Journal.DBPath)
	assert.Equal(t, "host=localhost dbname=sim", cfg.Journal.DSN)
	assert.Equal(t, int64(99), cfg.Market.Seed)
	assert.NoError(t, cfg.Validate())

	t.Setenv("TRADER_SEED", "abc")
	assert.ErrorContains(t, Default().ApplyEnv(), "TRADER_SEED")
}

func TestExampleConfigsBuild(t *testing.T) {
	t.Parallel()

	paths, err := filepath.Glob(filepath.Join("..", "examples", "configs", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			t.Parallel()
			cfg, err := LoadFromFile(path)
			require.NoError(t, err)
			_, err = cfg.Build(nil)
			assert.NoError(t, err)
		})
	}
}
