package trade

import "fmt"

// Direction is the side of a trade.
type Direction string

const (
	Buy  Direction = "Buy"
	Sell Direction = "Sell"
)

// Action tags a lifecycle message and the rule that produced it.
type Action string

const (
	Open       Action = "open"
	Close      Action = "close"
	StopLoss   Action = "stoploss"
	TakeProfit Action = "takeprofit"
)

// Closing reports whether a closes a position.
func (a Action) Closing() bool {
	return a == Close || a == StopLoss || a == TakeProfit
}

// InstrumentType tags an Instrument variant.
type InstrumentType string

const (
	CallOption   InstrumentType = "Call"
	PutOption    InstrumentType = "Put"
	TreasuryBill InstrumentType = "Treasury Bill"
	Future       InstrumentType = "Future"
)

// StrikeCalculation selects how an option strike is derived.
type StrikeCalculation string

const (
	PercentOTM   StrikeCalculation = "percent_otm"
	PercentITM   StrikeCalculation = "percent_itm"
	PercentATM   StrikeCalculation = "percent_atm"
	DeltaNeutral StrikeCalculation = "delta_neutral"
	Absolute     StrikeCalculation = "abs"
)

// NotionalType selects how a leg's notional is sized.
type NotionalType string

const (
	Fixed               NotionalType = "fixed"
	PercentageOfAccount NotionalType = "percentage_of_account"
	DynamicFormula      NotionalType = "dynamic_formula"
)

// NotionalRule sizes a leg at execution time.
type NotionalRule struct {
	Type  NotionalType
	Value float64
}

func (r NotionalRule) String() string {
	return fmt.Sprintf("%s(%g)", r.Type, r.Value)
}
