// Package market holds the historical market snapshot the simulation
// reads from: spot prices, futures, volatility surfaces and yield
// curves, keyed by asset class, underlying and date.
package market

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no record matches a lookup.
var ErrNotFound = errors.New("market data not found")

// AssetClass groups underlyings by market.
type AssetClass string

const (
	FX AssetClass = "FX"
	EQ AssetClass = "EQ"
	CM AssetClass = "CM"
	FI AssetClass = "FI"
	CC AssetClass = "CC"
)

// Valid reports whether a is a known asset class.
func (a AssetClass) Valid() bool {
	switch a {
	case FX, EQ, CM, FI, CC:
		return true
	}
	return false
}

// Variable names a market quantity.
type Variable string

const (
	Spot        Variable = "Spot"
	Future      Variable = "Future"
	Vol         Variable = "Vol"
	OptionPrice Variable = "Option Price"
)

// OptionType selects the call or put side of a surface point.
type OptionType string

const (
	Call OptionType = "Call"
	Put  OptionType = "Put"
)

// Query describes a single Get lookup. Maturity, Strike and OptionType
// are only read for surface variables.
type Query struct {
	Variable   Variable
	AssetClass AssetClass
	Underlying string
	Date       time.Time
	Maturity   time.Time
	Strike     float64
	OptionType OptionType
}

func (q Query) String() string {
	s := fmt.Sprintf("%s %s/%s @ %s", q.Variable, q.AssetClass, q.Underlying, q.Date.Format("2006-01-02"))
	if q.Variable == OptionPrice || q.Variable == Vol {
		s += fmt.Sprintf(" %s K=%.4f T=%s", q.OptionType, q.Strike, q.Maturity.Format("2006-01-02"))
	}
	return s
}

// Provider is the read-only view of market data the simulation uses.
// Lookups that find nothing return an error wrapping ErrNotFound.
//
// NextExpiry takes no instrument type: surfaces are kept per asset and
// underlying and serve calls and puts alike, so the type cannot change
// the answer.
type Provider interface {
	Get(q Query) (float64, error)
	NextExpiry(asset AssetClass, underlying string, date time.Time) (time.Time, error)
	YieldCurve(asset AssetClass, underlying string, date time.Time) (YieldCurve, error)
}

// SpotPoint is one day's spot price.
type SpotPoint struct {
	Date  time.Time
	Price float64
}

// FuturePoint is one day's futures quote for a delivery date.
type FuturePoint struct {
	Date     time.Time
	Delivery time.Time
	Price    float64
}

// SurfacePoint is one strike/maturity node of a volatility surface.
type SurfacePoint struct {
	Strike    float64
	Maturity  time.Time
	CallPrice float64
	PutPrice  float64
	CallVol   float64
	PutVol    float64
}

// Surface is the full volatility surface observed on Date.
type Surface struct {
	Date   time.Time
	Points []SurfacePoint
}

// YieldCurve pairs maturities with yields, in the order published.
type YieldCurve struct {
	Date       time.Time
	Maturities []time.Time
	Yields     []float64
}

// Series is all data held for one underlying.
type Series struct {
	Symbol   string
	Spot     []SpotPoint
	Futures  []FuturePoint
	Surfaces []Surface
	Curves   []YieldCurve
}
