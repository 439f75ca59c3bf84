// Package config loads the declarative simulation document and turns
// it into core objects through their validating constructors.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/rulesim/calendar"
	"github.com/rustyeddy/rulesim/market"
)

// Config is the complete simulation configuration.
type Config struct {
	Account  AccountConfig   `json:"account" yaml:"account"`
	Market   MarketConfig    `json:"market" yaml:"market"`
	RuleSets []RuleSetConfig `json:"rule_sets" yaml:"rule_sets"`
	Streams  *StreamConfig   `json:"streams,omitempty" yaml:"streams,omitempty"`
	Risk     *RiskConfig     `json:"risk,omitempty" yaml:"risk,omitempty"`
	Output   OutputConfig    `json:"output" yaml:"output"`
	Journal  JournalConfig   `json:"journal" yaml:"journal"`
}

type AccountConfig struct {
	Currency string  `json:"currency" yaml:"currency"`
	Balance  float64 `json:"balance" yaml:"balance"`
}

// MarketConfig describes the generated market the run trades against.
type MarketConfig struct {
	Start       string             `json:"start" yaml:"start"` // YYYY-MM-DD
	Days        int                `json:"days" yaml:"days"`
	Seed        int64              `json:"seed" yaml:"seed"`
	Underlyings []UnderlyingConfig `json:"underlyings" yaml:"underlyings"`
}

type UnderlyingConfig struct {
	Symbol     string  `json:"symbol" yaml:"symbol"`
	AssetClass string  `json:"asset_class" yaml:"asset_class"`
	StartPrice float64 `json:"start_price,omitempty" yaml:"start_price,omitempty"`
	DailyVol   float64 `json:"daily_vol,omitempty" yaml:"daily_vol,omitempty"`
	ImpliedVol float64 `json:"implied_vol,omitempty" yaml:"implied_vol,omitempty"`
}

// RuleSetConfig groups trade rules with the executions they trigger.
type RuleSetConfig struct {
	Name       string            `json:"name" yaml:"name"`
	Rules      []RuleConfig      `json:"rules" yaml:"rules"`
	Executions []ExecutionConfig `json:"executions" yaml:"executions"`
}

type RuleConfig struct {
	Name       string            `json:"name" yaml:"name"`
	Action     string            `json:"action" yaml:"action"` // open, close, stoploss, takeprofit
	Logic      string            `json:"logic" yaml:"logic"`   // AND, OR, NOT, XOR
	Conditions []ConditionConfig `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

type ConditionConfig struct {
	Left  FieldConfig `json:"left" yaml:"left"`
	Op    string      `json:"op" yaml:"op"`
	Right FieldConfig `json:"right" yaml:"right"`
}

// FieldConfig selects a comparison field. Source is one of trade,
// market, date, value or portfolio; the other keys depend on it.
type FieldConfig struct {
	Source     string        `json:"source" yaml:"source"`
	Name       string        `json:"name,omitempty" yaml:"name,omitempty"`
	Type       string        `json:"type,omitempty" yaml:"type,omitempty"` // value or date
	Variable   string        `json:"variable,omitempty" yaml:"variable,omitempty"`
	AssetClass string        `json:"asset_class,omitempty" yaml:"asset_class,omitempty"`
	Underlying string        `json:"underlying,omitempty" yaml:"underlying,omitempty"`
	Value      any           `json:"value,omitempty" yaml:"value,omitempty"`
	Offset     *OffsetConfig `json:"offset,omitempty" yaml:"offset,omitempty"`
}

type OffsetConfig struct {
	Unit string `json:"unit" yaml:"unit"` // day, week, month, year
	N    int    `json:"n" yaml:"n"`
}

type ExecutionConfig struct {
	Mode         string        `json:"mode" yaml:"mode"` // Buy, Sell, Spread
	TargetCost   *float64      `json:"target_cost,omitempty" yaml:"target_cost,omitempty"`
	Distribution string        `json:"distribution,omitempty" yaml:"distribution,omitempty"`
	Trades       []TradeConfig `json:"trades" yaml:"trades"`
}

// TradeConfig is one trade template (leg).
type TradeConfig struct {
	Underlying        string         `json:"underlying" yaml:"underlying"`
	AssetClass        string         `json:"asset_class" yaml:"asset_class"`
	Direction         string         `json:"direction" yaml:"direction"`
	Instrument        string         `json:"instrument" yaml:"instrument"` // Call, Put, Treasury Bill
	Strike            *float64       `json:"strike,omitempty" yaml:"strike,omitempty"`
	StrikeCalculation string         `json:"strike_calculation,omitempty" yaml:"strike_calculation,omitempty"`
	InterestRate      *float64       `json:"interest_rate,omitempty" yaml:"interest_rate,omitempty"`
	Notional          NotionalConfig `json:"notional" yaml:"notional"`
}

type NotionalConfig struct {
	Type  string  `json:"type" yaml:"type"` // fixed, percentage_of_account, dynamic_formula
	Value float64 `json:"value" yaml:"value"`
}

type StreamConfig struct {
	NumStreams       int           `json:"num_streams" yaml:"num_streams"`
	RollInterval     string        `json:"roll_interval" yaml:"roll_interval"`
	ExpirationMonths int           `json:"expiration_months" yaml:"expiration_months"`
	Start            string        `json:"start,omitempty" yaml:"start,omitempty"` // defaults to market.start
	Trades           []TradeConfig `json:"trades" yaml:"trades"`
}

type RiskConfig struct {
	MaxPositionPct    float64 `json:"max_position_pct" yaml:"max_position_pct"`
	PortfolioLimitPct float64 `json:"portfolio_limit_pct" yaml:"portfolio_limit_pct"`
}

type OutputConfig struct {
	RiskFreeRate float64 `json:"risk_free_rate" yaml:"risk_free_rate"`
}

// JournalConfig selects where closed trades and equity are written.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // none, csv, sqlite, postgres
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	DSN        string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	OrgPath    string `json:"org_path,omitempty" yaml:"org_path,omitempty"`
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = &Config{}
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", jerr)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides settings from TRADER_* environment variables.
// It does not re-validate; Build does.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("TRADER_JOURNAL"); v != "" {
		c.Journal.Type = v
	}
	if v := os.Getenv("TRADER_DB"); v != "" {
		c.Journal.DBPath = v
	}
	if v := os.Getenv("TRADER_PG_DSN"); v != "" {
		c.Journal.DSN = v
	}
	if v := os.Getenv("TRADER_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TRADER_SEED: %w", err)
		}
		c.Market.Seed = seed
	}
	return nil
}

// Validate checks the document's shape. Rule and execution semantics
// are checked by Build.
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if _, err := calendar.Parse(c.Market.Start); err != nil {
		return fmt.Errorf("market.start: %w", err)
	}
	if c.Market.Days <= 0 {
		return fmt.Errorf("market.days must be positive")
	}
	if len(c.Market.Underlyings) == 0 {
		return fmt.Errorf("market.underlyings is required")
	}
	for i, u := range c.Market.Underlyings {
		if u.Symbol == "" {
			return fmt.Errorf("market.underlyings[%d].symbol is required", i)
		}
		if !market.AssetClass(u.AssetClass).Valid() {
			return fmt.Errorf("market.underlyings[%d]: unknown asset class %q", i, u.AssetClass)
		}
	}
	if len(c.RuleSets) == 0 {
		return fmt.Errorf("rule_sets is required")
	}
	for i, rs := range c.RuleSets {
		if rs.Name == "" {
			return fmt.Errorf("rule_sets[%d].name is required", i)
		}
		if len(rs.Rules) == 0 {
			return fmt.Errorf("rule set %q has no rules", rs.Name)
		}
		if len(rs.Executions) == 0 {
			return fmt.Errorf("rule set %q has no executions", rs.Name)
		}
		for j, e := range rs.Executions {
			if len(e.Trades) == 0 {
				return fmt.Errorf("rule set %q: executions[%d] has no trades", rs.Name, j)
			}
		}
	}
	if c.Streams != nil {
		if c.Streams.Start != "" {
			if _, err := calendar.Parse(c.Streams.Start); err != nil {
				return fmt.Errorf("streams.start: %w", err)
			}
		}
		if len(c.Streams.Trades) == 0 {
			return fmt.Errorf("streams.trades is required")
		}
	}
	return c.Journal.Validate()
}

// Validate checks the journal type and the paths it needs.
func (j JournalConfig) Validate() error {
	switch j.Type {
	case "", "none":
	case "csv":
		if j.TradesFile == "" || j.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if j.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "postgres":
		if j.DSN == "" {
			return fmt.Errorf("journal dsn required for postgres type")
		}
	default:
		return fmt.Errorf("journal.type must be one of none, csv, sqlite, postgres")
	}
	return nil
}

// Default returns a runnable configuration: a monthly out-of-the-money
// call on a generated equity index, rolled at each surface expiry.
func Default() *Config {
	return &Config{
		Account: AccountConfig{Currency: "USD", Balance: 100000},
		Market: MarketConfig{
			Start: "2024-01-01",
			Days:  365,
			Seed:  42,
			Underlyings: []UnderlyingConfig{
				{Symbol: "SPX", AssetClass: string(market.EQ)},
			},
		},
		RuleSets: []RuleSetConfig{{
			Name: "monthly-call",
			Rules: []RuleConfig{
				{
					Name:   "open-when-flat",
					Action: "open",
					Logic:  "AND",
					Conditions: []ConditionConfig{{
						Left:  FieldConfig{Source: "portfolio", Name: "no_open_trades"},
						Op:    "equal_to",
						Right: FieldConfig{Source: "value", Value: true},
					}},
				},
				{
					Name:   "close-at-expiry",
					Action: "close",
					Logic:  "AND",
					Conditions: []ConditionConfig{{
						Left:  FieldConfig{Source: "date", Name: "current"},
						Op:    "greater_than_or_equal_to",
						Right: FieldConfig{Source: "trade", Name: "value_date", Type: "date"},
					}},
				},
			},
			Executions: []ExecutionConfig{{
				Mode: "Buy",
				Trades: []TradeConfig{{
					Underlying:        "SPX",
					AssetClass:        string(market.EQ),
					Direction:         "Buy",
					Instrument:        "Call",
					Strike:            ptr(5),
					StrikeCalculation: "percent_otm",
					Notional:          NotionalConfig{Type: "percentage_of_account", Value: 0.05},
				}},
			}},
		}},
		Risk:   &RiskConfig{MaxPositionPct: 0.10, PortfolioLimitPct: 0.80},
		Output: OutputConfig{RiskFreeRate: 0},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./trader.db",
		},
	}
}

func ptr(v float64) *float64 { return &v }
