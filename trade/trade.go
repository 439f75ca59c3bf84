// Package trade holds the trade lifecycle: instrument variants, the
// append-only message log that defines open/closed state, and the
// schedule of every trade a run creates.
package trade

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/rulesim/internal/id"
	"github.com/rustyeddy/rulesim/market"
)

var (
	// ErrAlreadyClosed is returned when closing a trade that is not open.
	ErrAlreadyClosed = errors.New("trade is already closed")
	// ErrNotOpen is returned when closing a trade that was never opened.
	ErrNotOpen = errors.New("trade was never opened")
	// ErrNoAttribute is returned by Attr for unknown or unset attributes.
	ErrNoAttribute = errors.New("trade attribute not available")
)

// Message is one lifecycle event. RuleID names the rule that caused it.
type Message struct {
	Date   time.Time
	Action Action
	RuleID string
}

// Trade is one leg. Templates are configured without ID, dates or
// prices; execution clones a template and fills those in.
type Trade struct {
	ID         string
	Underlying string
	AssetClass market.AssetClass
	Direction  Direction
	Instrument Instrument

	TradeDate time.Time
	ValueDate time.Time

	OpenPrice  float64
	ClosePrice float64

	NotionalRule   NotionalRule
	NotionalAmount float64
	Contracts      int

	Messages []Message
}

// New builds a trade template.
func New(underlying string, asset market.AssetClass, dir Direction, inst Instrument, rule NotionalRule) *Trade {
	return &Trade{
		Underlying:   underlying,
		AssetClass:   asset,
		Direction:    dir,
		Instrument:   inst,
		NotionalRule: rule,
		Contracts:    1,
	}
}

// Type returns the instrument type, or "" when no instrument is set.
func (t *Trade) Type() InstrumentType {
	if t.Instrument == nil {
		return ""
	}
	return t.Instrument.Type()
}

// Clone returns a deep copy.
func (t *Trade) Clone() *Trade {
	c := *t
	if t.Instrument != nil {
		c.Instrument = t.Instrument.clone()
	}
	c.Messages = append([]Message(nil), t.Messages...)
	return &c
}

// Opened reports whether the trade has an open message.
func (t *Trade) Opened() bool {
	return len(t.Messages) > 0
}

// IsOpen is derived from the log: the last message must be an open.
func (t *Trade) IsOpen() bool {
	n := len(t.Messages)
	return n > 0 && t.Messages[n-1].Action == Open
}

// OpeningRule is the rule reference on the first message.
func (t *Trade) OpeningRule() string {
	if len(t.Messages) == 0 {
		return ""
	}
	return t.Messages[0].RuleID
}

// LastMessage returns the most recent lifecycle message.
func (t *Trade) LastMessage() (Message, bool) {
	if len(t.Messages) == 0 {
		return Message{}, false
	}
	return t.Messages[len(t.Messages)-1], true
}

// MarkOpen records the open event. Prices and sizing are set by the
// caller before or after; the log entry is what makes the trade live.
func (t *Trade) MarkOpen(date time.Time, ruleID string) {
	t.Messages = append(t.Messages, Message{Date: date, Action: Open, RuleID: ruleID})
}

// Close sets the close price and value date and appends the closing
// message. A trade closes at most once.
func (t *Trade) Close(date time.Time, price float64, action Action, ruleID string) error {
	if !action.Closing() {
		return fmt.Errorf("close trade %s: %q is not a closing action", t.ID, action)
	}
	if !t.Opened() {
		return fmt.Errorf("close trade %s: %w", t.ID, ErrNotOpen)
	}
	if !t.IsOpen() {
		return fmt.Errorf("close trade %s: %w", t.ID, ErrAlreadyClosed)
	}
	t.ClosePrice = price
	t.ValueDate = date
	t.Messages = append(t.Messages, Message{Date: date, Action: action, RuleID: ruleID})
	return nil
}

// Closed reports whether a closing message has been appended.
func (t *Trade) Closed() bool {
	m, ok := t.LastMessage()
	return ok && m.Action.Closing()
}

// PnL is the realised profit from the price move; zero until the trade
// closes. Treasury bills settle cash by interest accrual instead, see
// account.CloseTrade, so for a bill PnL and the cash credited differ.
func (t *Trade) PnL() float64 {
	if !t.Closed() {
		return 0
	}
	if t.Direction == Buy {
		return (t.ClosePrice - t.OpenPrice) * float64(t.Contracts)
	}
	return (t.OpenPrice - t.ClosePrice) * float64(t.Contracts)
}

// Resize sets a new contract count and re-derives notional from the
// open price. It returns the notional released.
func (t *Trade) Resize(contracts int) float64 {
	if contracts < 0 {
		contracts = 0
	}
	before := t.NotionalAmount
	t.Contracts = contracts
	t.NotionalAmount = float64(contracts) * t.OpenPrice
	return before - t.NotionalAmount
}

// Strike returns the option strike when the trade is an option with a
// resolved strike.
func (t *Trade) Strike() (float64, bool) {
	if o, ok := t.Instrument.(*Option); ok && o.Strike != nil {
		return *o.Strike, true
	}
	return 0, false
}

// Premium returns the signed option premium (zero for non-options).
func (t *Trade) Premium() float64 {
	if o, ok := t.Instrument.(*Option); ok {
		return o.Premium
	}
	return 0
}

// InterestRate returns the bill rate once it is set.
func (t *Trade) InterestRate() (float64, bool) {
	if b, ok := t.Instrument.(*Bill); ok && b.InterestRate != nil {
		return *b.InterestRate, true
	}
	return 0, false
}

// Attr exposes a named attribute to rule evaluation. Values are
// float64, int, string or time.Time.
func (t *Trade) Attr(name string) (any, error) {
	switch name {
	case "underlying":
		return t.Underlying, nil
	case "asset_class":
		return string(t.AssetClass), nil
	case "direction":
		return string(t.Direction), nil
	case "instrument_type":
		return string(t.Type()), nil
	case "trade_date":
		if !t.TradeDate.IsZero() {
			return t.TradeDate, nil
		}
	case "value_date":
		if !t.ValueDate.IsZero() {
			return t.ValueDate, nil
		}
	case "open_price":
		if t.Opened() {
			return t.OpenPrice, nil
		}
	case "close_price":
		if t.Closed() {
			return t.ClosePrice, nil
		}
	case "notional_amount":
		return t.NotionalAmount, nil
	case "number_of_contracts":
		return t.Contracts, nil
	case "pnl":
		return t.PnL(), nil
	case "strike":
		if k, ok := t.Strike(); ok {
			return k, nil
		}
	case "premium":
		if _, ok := t.Instrument.(*Option); ok {
			return t.Premium(), nil
		}
	case "interest_rate":
		if r, ok := t.InterestRate(); ok {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %q on %s trade", ErrNoAttribute, name, t.Type())
}

// AssignID gives the trade a fresh identifier.
func (t *Trade) AssignID() {
	t.ID = id.Prefixed("trd")
}
