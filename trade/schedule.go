package trade

// Schedule owns every trade created during a run. It is append-only.
type Schedule struct {
	trades []*Trade
}

// NewSchedule returns an empty schedule.
func NewSchedule() *Schedule {
	return &Schedule{}
}

// Add appends trades in order.
func (s *Schedule) Add(trades ...*Trade) {
	s.trades = append(s.trades, trades...)
}

// Trades returns every trade in creation order.
func (s *Schedule) Trades() []*Trade {
	return s.trades
}

// Len returns the number of trades.
func (s *Schedule) Len() int { return len(s.trades) }

// Live returns the open trades, recomputed from each message log.
func (s *Schedule) Live() []*Trade {
	var out []*Trade
	for _, t := range s.trades {
		if t.IsOpen() {
			out = append(out, t)
		}
	}
	return out
}

// AnyOpen reports whether any trade is currently open.
func (s *Schedule) AnyOpen() bool {
	for _, t := range s.trades {
		if t.IsOpen() {
			return true
		}
	}
	return false
}

// Closed returns the trades that have been closed, in creation order.
func (s *Schedule) Closed() []*Trade {
	var out []*Trade
	for _, t := range s.trades {
		if t.Closed() {
			out = append(out, t)
		}
	}
	return out
}
