package trade

// Instrument is the closed set of instrument variants a trade can hold.
// Execution dispatches on Type().
type Instrument interface {
	Type() InstrumentType
	clone() Instrument
}

// Option is a call or put. A nil Strike asks execution to solve for it.
type Option struct {
	Kind       InstrumentType // CallOption or PutOption
	Strike     *float64
	StrikeCalc StrikeCalculation
	Premium    float64
}

func (o *Option) Type() InstrumentType { return o.Kind }

func (o *Option) clone() Instrument {
	c := *o
	if o.Strike != nil {
		k := *o.Strike
		c.Strike = &k
	}
	return &c
}

// NewCall returns a call option. Pass a nil strike for a solved strike.
func NewCall(strike *float64, calc StrikeCalculation) *Option {
	return &Option{Kind: CallOption, Strike: strike, StrikeCalc: calc}
}

// NewPut returns a put option. Pass a nil strike for a solved strike.
func NewPut(strike *float64, calc StrikeCalculation) *Option {
	return &Option{Kind: PutOption, Strike: strike, StrikeCalc: calc}
}

// Bill is a treasury bill; InterestRate is set at execution.
type Bill struct {
	InterestRate *float64
}

func (b *Bill) Type() InstrumentType { return TreasuryBill }

func (b *Bill) clone() Instrument {
	c := *b
	if b.InterestRate != nil {
		r := *b.InterestRate
		c.InterestRate = &r
	}
	return &c
}

// FutureContract exists in the data model only; execution rejects it.
type FutureContract struct {
	Delivery string
}

func (f *FutureContract) Type() InstrumentType { return Future }

func (f *FutureContract) clone() Instrument {
	c := *f
	return &c
}

// Float returns a pointer to v, for optional strikes and rates.
func Float(v float64) *float64 { return &v }
