package market

import (
	"fmt"
	"sort"
	"time"

	"github.com/rustyeddy/rulesim/calendar"
)

type seriesKey struct {
	asset      AssetClass
	underlying string
}

// indexed wraps a Series with per-date indexes. Each index stores the
// positions of the records for a date in their original order, so a
// lookup returns the same record a front-to-back scan would.
type indexed struct {
	Series
	spot     map[time.Time][]int
	futures  map[time.Time][]int
	surfaces map[time.Time][]int
	curves   map[time.Time][]int
}

func newIndexed(s Series) *indexed {
	ix := &indexed{
		Series:   s,
		spot:     make(map[time.Time][]int),
		futures:  make(map[time.Time][]int),
		surfaces: make(map[time.Time][]int),
		curves:   make(map[time.Time][]int),
	}
	for i, p := range s.Spot {
		d := calendar.Truncate(p.Date)
		ix.spot[d] = append(ix.spot[d], i)
	}
	for i, p := range s.Futures {
		d := calendar.Truncate(p.Date)
		ix.futures[d] = append(ix.futures[d], i)
	}
	for i, p := range s.Surfaces {
		d := calendar.Truncate(p.Date)
		ix.surfaces[d] = append(ix.surfaces[d], i)
	}
	for i, p := range s.Curves {
		d := calendar.Truncate(p.Date)
		ix.curves[d] = append(ix.curves[d], i)
	}
	return ix
}

// Snapshot is an in-memory Provider. It is built once before a run and
// only read afterwards.
type Snapshot struct {
	series map[seriesKey]*indexed
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{series: make(map[seriesKey]*indexed)}
}

// Add registers (or replaces) the series for an underlying.
func (s *Snapshot) Add(asset AssetClass, underlying string, series Series) {
	s.series[seriesKey{asset, underlying}] = newIndexed(series)
}

// Series returns the raw series for an underlying.
func (s *Snapshot) Series(asset AssetClass, underlying string) (Series, bool) {
	ix, ok := s.series[seriesKey{asset, underlying}]
	if !ok {
		return Series{}, false
	}
	return ix.Series, true
}

// Dates returns the sorted, de-duplicated spot dates of an underlying.
func (s *Snapshot) Dates(asset AssetClass, underlying string) ([]time.Time, error) {
	ix, err := s.lookup(asset, underlying)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, len(ix.spot))
	for d := range ix.spot {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (s *Snapshot) lookup(asset AssetClass, underlying string) (*indexed, error) {
	ix, ok := s.series[seriesKey{asset, underlying}]
	if !ok {
		return nil, fmt.Errorf("%w: no series for %s/%s", ErrNotFound, asset, underlying)
	}
	return ix, nil
}

// Get implements Provider.
func (s *Snapshot) Get(q Query) (float64, error) {
	ix, err := s.lookup(q.AssetClass, q.Underlying)
	if err != nil {
		return 0, err
	}

	switch q.Variable {
	case Spot:
		if idx := ix.spot[calendar.Truncate(q.Date)]; len(idx) > 0 {
			return ix.Spot[idx[0]].Price, nil
		}
	case Future:
		if idx := ix.futures[calendar.Truncate(q.Date)]; len(idx) > 0 {
			return ix.Futures[idx[0]].Price, nil
		}
	case OptionPrice, Vol:
		p, err := ix.surfacePoint(q)
		if err != nil {
			return 0, err
		}
		return pointValue(p, q)
	default:
		return 0, fmt.Errorf("unsupported market variable %q", q.Variable)
	}
	return 0, fmt.Errorf("%w: %s", ErrNotFound, q)
}

// surfacePoint returns the first point on the date's surface whose
// strike is at or below the requested strike and whose maturity matches.
func (ix *indexed) surfacePoint(q Query) (SurfacePoint, error) {
	surface, err := ix.surface(q.Date)
	if err != nil {
		return SurfacePoint{}, fmt.Errorf("%w: %s", ErrNotFound, q)
	}
	for _, p := range surface.Points {
		if p.Strike <= q.Strike && p.Maturity.Equal(q.Maturity) {
			return p, nil
		}
	}
	return SurfacePoint{}, fmt.Errorf("%w: %s", ErrNotFound, q)
}

func pointValue(p SurfacePoint, q Query) (float64, error) {
	switch {
	case q.Variable == OptionPrice && q.OptionType == Call:
		return p.CallPrice, nil
	case q.Variable == OptionPrice && q.OptionType == Put:
		return p.PutPrice, nil
	case q.Variable == Vol && q.OptionType == Call:
		return p.CallVol, nil
	case q.Variable == Vol && q.OptionType == Put:
		return p.PutVol, nil
	}
	return 0, fmt.Errorf("option type %q is not a call or put", q.OptionType)
}

func (ix *indexed) surface(date time.Time) (Surface, error) {
	idx := ix.surfaces[calendar.Truncate(date)]
	if len(idx) == 0 {
		return Surface{}, ErrNotFound
	}
	return ix.Surfaces[idx[0]], nil
}

// NextExpiry implements Provider: the first maturity on the date's
// surface that falls on or after date.
func (s *Snapshot) NextExpiry(asset AssetClass, underlying string, date time.Time) (time.Time, error) {
	ix, err := s.lookup(asset, underlying)
	if err != nil {
		return time.Time{}, err
	}
	surface, err := ix.surface(date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: volatility surface %s/%s @ %s", ErrNotFound, asset, underlying, date.Format("2006-01-02"))
	}
	for _, p := range surface.Points {
		if !p.Maturity.Before(date) {
			return p.Maturity, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: no maturity on or after %s for %s/%s", ErrNotFound, date.Format("2006-01-02"), asset, underlying)
}

// YieldCurve implements Provider.
func (s *Snapshot) YieldCurve(asset AssetClass, underlying string, date time.Time) (YieldCurve, error) {
	ix, err := s.lookup(asset, underlying)
	if err != nil {
		return YieldCurve{}, err
	}
	idx := ix.curves[calendar.Truncate(date)]
	if len(idx) == 0 {
		return YieldCurve{}, fmt.Errorf("%w: yield curve %s/%s @ %s", ErrNotFound, asset, underlying, date.Format("2006-01-02"))
	}
	return ix.Curves[idx[0]], nil
}
