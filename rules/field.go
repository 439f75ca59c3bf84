package rules

import (
	"fmt"
	"time"

	"github.com/rustyeddy/rulesim/calendar"
	"github.com/rustyeddy/rulesim/market"
	"github.com/rustyeddy/rulesim/trade"
)

// Context is everything a field may read during one evaluation. Market,
// Trade and Schedule are optional; fields that need them fail without.
type Context struct {
	Date     time.Time
	Market   market.Provider
	Trade    *trade.Trade
	Schedule *trade.Schedule
}

// FieldKind tags a Field variant.
type FieldKind string

const (
	FieldTrade     FieldKind = "trade"
	FieldMarket    FieldKind = "market"
	FieldDate      FieldKind = "date"
	FieldLiteral   FieldKind = "value"
	FieldPortfolio FieldKind = "portfolio"
)

// FieldType says whether a field yields a date, which decides whether a
// date offset may be attached.
type FieldType string

const (
	TypeValue FieldType = "value"
	TypeDate  FieldType = "date"
)

// Field is the closed set of value sources.
type Field interface {
	Kind() FieldKind
	Type() FieldType
	value(ctx Context) (Value, error)
}

// TradeField reads a named attribute of the context trade.
type TradeField struct {
	Name      string
	FieldType FieldType
}

func (f TradeField) Kind() FieldKind { return FieldTrade }
func (f TradeField) Type() FieldType { return f.FieldType }

func (f TradeField) value(ctx Context) (Value, error) {
	if ctx.Trade == nil {
		return Value{}, fmt.Errorf("%w: trade field %q evaluated without a trade", ErrInvalidConfig, f.Name)
	}
	x, err := ctx.Trade.Attr(f.Name)
	if err != nil {
		return Value{}, err
	}
	return valueOf(x)
}

// MarketField looks up a market variable for a fixed underlying.
type MarketField struct {
	Variable   market.Variable
	AssetClass market.AssetClass
	Underlying string
	FieldType  FieldType
}

func (f MarketField) Kind() FieldKind { return FieldMarket }
func (f MarketField) Type() FieldType { return f.FieldType }

func (f MarketField) value(ctx Context) (Value, error) {
	if ctx.Market == nil {
		return Value{}, fmt.Errorf("%w: market field %s/%s evaluated without market data", ErrInvalidConfig, f.AssetClass, f.Underlying)
	}
	v, err := ctx.Market.Get(market.Query{
		Variable:   f.Variable,
		AssetClass: f.AssetClass,
		Underlying: f.Underlying,
		Date:       ctx.Date,
	})
	if err != nil {
		return Value{}, err
	}
	return Number(v), nil
}

// DateFieldName selects the date a DateField returns.
type DateFieldName string

const (
	CurrentDate DateFieldName = "current"
	ExpiryDate  DateFieldName = "expiry"
)

// DateField returns the evaluation date or the next surface maturity for
// the context trade's underlying.
type DateField struct {
	Name DateFieldName
}

func (f DateField) Kind() FieldKind { return FieldDate }
func (f DateField) Type() FieldType { return TypeDate }

func (f DateField) value(ctx Context) (Value, error) {
	switch f.Name {
	case CurrentDate:
		return Date(ctx.Date), nil
	case ExpiryDate:
		if ctx.Market == nil || ctx.Trade == nil {
			return Value{}, fmt.Errorf("%w: expiry date needs both a trade and market data", ErrInvalidConfig)
		}
		exp, err := ctx.Market.NextExpiry(ctx.Trade.AssetClass, ctx.Trade.Underlying, ctx.Date)
		if err != nil {
			return Value{}, err
		}
		return Date(exp), nil
	}
	return Value{}, fmt.Errorf("%w: unknown date field %q", ErrInvalidConfig, f.Name)
}

// LiteralField is a constant.
type LiteralField struct {
	Value Value
}

func (f LiteralField) Kind() FieldKind { return FieldLiteral }

func (f LiteralField) Type() FieldType {
	if f.Value.Kind() == KindDate {
		return TypeDate
	}
	return TypeValue
}

func (f LiteralField) value(Context) (Value, error) { return f.Value, nil }

// PortfolioFieldName selects a portfolio aggregate.
type PortfolioFieldName string

const (
	OpenTrades   PortfolioFieldName = "open_trades"
	NoOpenTrades PortfolioFieldName = "no_open_trades"
)

// PortfolioField reports whether the schedule holds any open trade.
type PortfolioField struct {
	Name PortfolioFieldName
}

func (f PortfolioField) Kind() FieldKind { return FieldPortfolio }
func (f PortfolioField) Type() FieldType { return TypeValue }

func (f PortfolioField) value(ctx Context) (Value, error) {
	if ctx.Schedule == nil {
		return Value{}, fmt.Errorf("%w: portfolio field %q evaluated without a trade schedule", ErrInvalidConfig, f.Name)
	}
	open := ctx.Schedule.AnyOpen()
	switch f.Name {
	case OpenTrades:
		return Bool(open), nil
	case NoOpenTrades:
		return Bool(!open), nil
	}
	return Value{}, fmt.Errorf("%w: unknown portfolio field %q", ErrInvalidConfig, f.Name)
}

// Offset shifts a date-typed result.
type Offset struct {
	Unit calendar.Unit
	N    int
}

// Comparison is a Field plus an optional date offset.
type Comparison struct {
	field  Field
	offset *Offset
}

// NewComparison validates and builds a comparison. Date-typed fields
// always carry an offset (zero days when none is given); offsets on
// value-typed fields are rejected.
func NewComparison(field Field, offset *Offset) (Comparison, error) {
	if field == nil {
		return Comparison{}, fmt.Errorf("%w: comparison needs a field", ErrInvalidConfig)
	}
	switch field.Type() {
	case TypeDate:
		if offset == nil {
			offset = &Offset{Unit: calendar.Day}
		}
		if _, err := calendar.Offset(time.Time{}, offset.Unit, 0); err != nil {
			return Comparison{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	case TypeValue:
		if offset != nil {
			return Comparison{}, fmt.Errorf("%w: date offset on value field %s", ErrInvalidConfig, field.Kind())
		}
	default:
		return Comparison{}, fmt.Errorf("%w: unknown field type %q", ErrInvalidConfig, field.Type())
	}
	o := offset
	if o != nil {
		c := *o
		o = &c
	}
	return Comparison{field: field, offset: o}, nil
}

// MustComparison panics on a malformed comparison. It is meant for
// fixed, in-code strategies and tests.
func MustComparison(field Field, offset *Offset) Comparison {
	c, err := NewComparison(field, offset)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Comparison) Field() Field { return c.field }

// Value evaluates the field and applies the offset.
func (c Comparison) Value(ctx Context) (Value, error) {
	v, err := c.field.value(ctx)
	if err != nil {
		return Value{}, err
	}
	if c.offset == nil {
		return v, nil
	}
	if v.Kind() != KindDate {
		return Value{}, fmt.Errorf("%w: date offset applied to %s value %s", ErrInvalidConfig, v.Kind(), v)
	}
	shifted, err := calendar.Offset(v.Time(), c.offset.Unit, c.offset.N)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return Date(shifted), nil
}
