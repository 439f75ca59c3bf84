// Package stream runs recurring groups of trades that open, roll and
// expire on a calendar cadence, independent of rule triggers.
package stream

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/rulesim/calendar"
	"github.com/rustyeddy/rulesim/internal/logging"
	"github.com/rustyeddy/rulesim/rules"
	"github.com/rustyeddy/rulesim/trade"
)

// RollInterval is the cadence streams are staggered and rolled on.
type RollInterval string

const (
	Quarterly RollInterval = "quarterly"
	Monthly   RollInterval = "monthly"
	Weekly    RollInterval = "weekly"
	Daily     RollInterval = "daily"
)

// Config describes a stream pool.
type Config struct {
	NumStreams       int
	RollInterval     RollInterval
	ExpirationMonths int
	Start            time.Time
}

// Validate checks the config.
func (c Config) Validate() error {
	if c.NumStreams <= 0 {
		return fmt.Errorf("%w: stream count must be > 0, got %d", rules.ErrInvalidConfig, c.NumStreams)
	}
	if _, err := c.step(c.Start, 1); err != nil {
		return err
	}
	if c.ExpirationMonths <= 0 {
		return fmt.Errorf("%w: stream expiration must be > 0 months, got %d", rules.ErrInvalidConfig, c.ExpirationMonths)
	}
	if c.Start.IsZero() {
		return fmt.Errorf("%w: stream start date is required", rules.ErrInvalidConfig)
	}
	return nil
}

// step moves t forward n roll intervals.
func (c Config) step(t time.Time, n int) (time.Time, error) {
	switch c.RollInterval {
	case Quarterly:
		return calendar.AddMonths(t, 3*n), nil
	case Monthly:
		return calendar.AddMonths(t, n), nil
	case Weekly:
		return t.AddDate(0, 0, 7*n), nil
	case Daily:
		return t.AddDate(0, 0, n), nil
	}
	return time.Time{}, fmt.Errorf("%w: unknown roll interval %q", rules.ErrInvalidConfig, c.RollInterval)
}

// due reports whether date has crossed the interval boundary of opened.
func (c Config) due(opened, date time.Time) bool {
	switch c.RollInterval {
	case Quarterly:
		return opened.Year() != date.Year() || quarter(opened) != quarter(date)
	case Monthly:
		return opened.Year() != date.Year() || opened.Month() != date.Month()
	case Weekly:
		oy, ow := opened.ISOWeek()
		dy, dw := date.ISOWeek()
		return oy != dy || ow != dw
	case Daily:
		return !calendar.Truncate(opened).Equal(calendar.Truncate(date))
	}
	return false
}

func quarter(t time.Time) int { return (int(t.Month())-1)/3 + 1 }

// Stream is one recurring group of trades.
type Stream struct {
	OpenDate  time.Time
	CloseDate *time.Time
	Trades    []*trade.Trade
}

// Closed reports whether the stream has a close date.
func (s *Stream) Closed() bool { return s.CloseDate != nil }

func (s *Stream) close(date time.Time) {
	d := date
	s.CloseDate = &d
}

// expiresOn reports whether any trade in the stream expires on date.
func (s *Stream) expiresOn(date time.Time) bool {
	for _, t := range s.Trades {
		if t.ValueDate.Equal(date) {
			return true
		}
	}
	return false
}

// Manager owns the stream pool. Streams are only ever appended.
type Manager struct {
	cfg       Config
	templates []*trade.Trade
	streams   []*Stream
	log       *logrus.Entry
}

// NewManager validates cfg and opens NumStreams streams staggered by
// the roll interval from cfg.Start.
func NewManager(cfg Config, templates []*trade.Trade, log *logrus.Entry) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Discard()
	}
	cfg.Start = calendar.Truncate(cfg.Start)

	m := &Manager{cfg: cfg, log: log}
	for _, t := range templates {
		m.templates = append(m.templates, t.Clone())
	}

	for i := 0; i < cfg.NumStreams; i++ {
		open, err := cfg.step(cfg.Start, i)
		if err != nil {
			return nil, err
		}
		m.streams = append(m.streams, m.open(open))
	}
	return m, nil
}

// Config returns the validated configuration.
func (m *Manager) Config() Config { return m.cfg }

// Streams returns every stream ever opened, in creation order.
func (m *Manager) Streams() []*Stream { return m.streams }

// Active returns the streams open on date.
func (m *Manager) Active(date time.Time) []*Stream {
	var out []*Stream
	for _, s := range m.streams {
		if !s.Closed() && !s.OpenDate.After(date) {
			out = append(out, s)
		}
	}
	return out
}

// Expiry is the value date given to trades opened on date.
func (m *Manager) Expiry(date time.Time) time.Time {
	return calendar.AddMonths(date, m.cfg.ExpirationMonths)
}

func (m *Manager) open(date time.Time) *Stream {
	s := &Stream{OpenDate: date}
	expiry := m.Expiry(date)
	for _, tmpl := range m.templates {
		t := tmpl.Clone()
		t.TradeDate = date
		t.ValueDate = expiry
		s.Trades = append(s.Trades, t)
	}
	return s
}

// Step advances the pool to date. Every active stream that either
// expires today or has crossed its interval boundary is closed and
// replaced by a fresh stream opened on date, so the number of active
// streams stays fixed. Replacements appended here are not examined
// again until the next step. It returns the streams opened.
func (m *Manager) Step(date time.Time) []*Stream {
	date = calendar.Truncate(date)

	var opened []*Stream
	n := len(m.streams)
	for _, s := range m.streams[:n] {
		if s.Closed() || s.OpenDate.After(date) {
			continue
		}
		reason := "interval"
		switch {
		case s.expiresOn(date):
			reason = "expiry"
		case !m.cfg.due(s.OpenDate, date):
			continue
		}

		s.close(date)
		replacement := m.open(date)
		m.streams = append(m.streams, replacement)
		opened = append(opened, replacement)
		m.log.WithFields(logrus.Fields{
			"date":    calendar.Format(date),
			"opened":  calendar.Format(s.OpenDate),
			"expires": calendar.Format(m.Expiry(date)),
			"reason":  reason,
		}).Info("stream rolled")
	}
	return opened
}
