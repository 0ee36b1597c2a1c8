// Package market defines the candle data model and the candle sources the
// engine consumes. The engine never talks to an exchange directly; it sees
// only the CandleSource capability.
package market

import (
	"fmt"
	"math"
)

// Candle is an immutable OHLCV record spanning [Timestamp, Timestamp+interval).
type Candle struct {
	Timestamp int64   `json:"timestamp" yaml:"timestamp"` // ms since epoch
	Open      float64 `json:"open" yaml:"open"`
	High      float64 `json:"high" yaml:"high"`
	Low       float64 `json:"low" yaml:"low"`
	Close     float64 `json:"close" yaml:"close"`
	Volume    float64 `json:"volume" yaml:"volume"`
}

// Valid reports whether the candle has positive finite prices and a
// non-negative volume.
func (c Candle) Valid() bool {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return false
		}
	}
	return !math.IsNaN(c.Volume) && !math.IsInf(c.Volume, 0) && c.Volume >= 0
}

// TypicalPrice returns (H+L+C)/3, the per-candle price used by the VWAP.
func (c Candle) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3.0
}

// MinOHLC returns the smallest of the four price fields.
func (c Candle) MinOHLC() float64 {
	m := c.Open
	for _, v := range []float64{c.High, c.Low, c.Close} {
		if v < m {
			m = v
		}
	}
	return m
}

// Interval is a candle/frame spacing such as "1m" or "4h".
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval3m  Interval = "3m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval2h  Interval = "2h"
	Interval4h  Interval = "4h"
	Interval6h  Interval = "6h"
	Interval8h  Interval = "8h"
	Interval12h Interval = "12h"
	Interval1d  Interval = "1d"
	Interval3d  Interval = "3d"
)

var intervalMs = map[Interval]int64{
	Interval1m:  60_000,
	Interval3m:  3 * 60_000,
	Interval5m:  5 * 60_000,
	Interval15m: 15 * 60_000,
	Interval30m: 30 * 60_000,
	Interval1h:  60 * 60_000,
	Interval2h:  2 * 60 * 60_000,
	Interval4h:  4 * 60 * 60_000,
	Interval6h:  6 * 60 * 60_000,
	Interval8h:  8 * 60 * 60_000,
	Interval12h: 12 * 60 * 60_000,
	Interval1d:  24 * 60 * 60_000,
	Interval3d:  3 * 24 * 60 * 60_000,
}

// signalIntervals is the subset allowed for getSignal throttling.
var signalIntervals = map[Interval]bool{
	Interval1m: true, Interval3m: true, Interval5m: true,
	Interval15m: true, Interval30m: true, Interval1h: true,
}

// candleIntervals is the subset a CandleSource may be asked for.
var candleIntervals = map[Interval]bool{
	Interval1m: true, Interval3m: true, Interval5m: true, Interval15m: true,
	Interval30m: true, Interval1h: true, Interval2h: true, Interval4h: true,
	Interval6h: true, Interval8h: true,
}

// Ms returns the interval length in milliseconds, or 0 for unknown intervals.
func (i Interval) Ms() int64 {
	return intervalMs[i]
}

// ValidSignalInterval reports whether i may throttle signal generation.
func (i Interval) ValidSignalInterval() bool { return signalIntervals[i] }

// ValidCandleInterval reports whether i may be requested from a CandleSource.
func (i Interval) ValidCandleInterval() bool { return candleIntervals[i] }

// ValidFrameInterval reports whether i may space a backtest frame.
func (i Interval) ValidFrameInterval() bool {
	_, ok := intervalMs[i]
	return ok
}

// ParseInterval validates s against the known interval set.
func ParseInterval(s string) (Interval, error) {
	i := Interval(s)
	if _, ok := intervalMs[i]; !ok {
		return "", fmt.Errorf("unknown interval %q", s)
	}
	return i, nil
}

// FloorTimestamp aligns ts down to the interval boundary.
func (i Interval) FloorTimestamp(ts int64) int64 {
	ms := i.Ms()
	if ms == 0 {
		return ts
	}
	return ts - ts%ms
}
