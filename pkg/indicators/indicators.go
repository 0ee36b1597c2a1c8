// Package indicators provides the candle-based indicators strategy callbacks
// commonly build signals from.
package indicators

import (
	"github.com/yourusername/signal-engine/pkg/market"
)

// SMA returns the simple moving average of the closes of the last period
// candles, or 0 when the series is too short.
func SMA(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return 0
	}
	var sum float64
	for _, c := range candles[len(candles)-period:] {
		sum += c.Close
	}
	return sum / float64(period)
}

// EMA returns the exponential moving average of the closes, seeded with the
// SMA of the first period candles.
func EMA(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return 0
	}

	var seed float64
	for _, c := range candles[:period] {
		seed += c.Close
	}
	ema := seed / float64(period)

	k := 2.0 / float64(period+1)
	for _, c := range candles[period:] {
		ema = c.Close*k + ema*(1-k)
	}
	return ema
}

// ATR returns the average true range over the last period candles.
func ATR(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 0
	}

	start := len(candles) - period
	var sum float64
	for i := start; i < len(candles); i++ {
		sum += trueRange(candles[i], candles[i-1])
	}
	return sum / float64(period)
}

func trueRange(c, prev market.Candle) float64 {
	tr := c.High - c.Low
	if hc := abs(c.High - prev.Close); hc > tr {
		tr = hc
	}
	if lc := abs(c.Low - prev.Close); lc > tr {
		tr = lc
	}
	return tr
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
