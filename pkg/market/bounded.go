package market

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/yourusername/signal-engine/pkg/config"
	"github.com/yourusername/signal-engine/pkg/execution"
)

// ErrInsufficientData is returned when too few candles survive filtering for
// a reliable average price.
var ErrInsufficientData = errors.New("insufficient candle data")

// BoundedSource wraps a CandleSource with the engine's temporal and hygiene
// guarantees: no candle at or after the execution context's Now ever escapes,
// and anomalous prints are dropped before they can poison an average.
type BoundedSource struct {
	src CandleSource
	cfg *config.EngineConfig
}

// NewBoundedSource wraps src with the engine guarantees.
func NewBoundedSource(src CandleSource, cfg *config.EngineConfig) *BoundedSource {
	return &BoundedSource{src: src, cfg: cfg}
}

// Raw returns the underlying unbounded source. Only the backtest driver uses
// it, to feed the fast path candles ahead of the current frame position.
func (b *BoundedSource) Raw() CandleSource {
	return b.src
}

// GetCandles fetches candles bounded by the execution context's Now and
// filtered for anomalies. since is clamped to Now.
func (b *BoundedSource) GetCandles(ctx context.Context, symbol string, interval Interval, since int64, limit int) ([]Candle, error) {
	ec, err := execution.From(ctx)
	if err != nil {
		return nil, err
	}
	if !interval.ValidCandleInterval() {
		return nil, fmt.Errorf("interval %s not allowed for candle queries", interval)
	}
	if since > ec.Now {
		since = ec.Now
	}

	candles, err := b.src.GetCandles(ctx, symbol, interval, since, limit)
	if err != nil {
		return nil, fmt.Errorf("candle fetch failed: %w", err)
	}

	// Horizon: everything at or after Now is the future.
	bounded := candles[:0:0]
	for _, c := range candles {
		if c.Timestamp < ec.Now {
			bounded = append(bounded, c)
		}
	}

	return filterAnomalies(bounded, b.cfg.AnomalyThresholdFactor), nil
}

// AveragePrice returns the engine's single "current price": the VWAP over the
// last VWAPWindow completed 1-minute candles strictly before Now. Zero total
// volume falls back to the mean close. Fewer than MinCandlesForAverage
// surviving candles is ErrInsufficientData.
func (b *BoundedSource) AveragePrice(ctx context.Context, symbol string) (float64, error) {
	ec, err := execution.From(ctx)
	if err != nil {
		return 0, err
	}

	window := b.cfg.VWAPWindow
	// Fetch a little wide so anomaly-dropped candles can be replaced.
	since := ec.Now - int64(window*4)*Interval1m.Ms()
	candles, err := b.GetCandles(ctx, symbol, Interval1m, since, window*4)
	if err != nil {
		return 0, err
	}
	if len(candles) < b.cfg.MinCandlesForAverage {
		return 0, fmt.Errorf("%w: %d candles before %d for %s", ErrInsufficientData, len(candles), ec.Now, symbol)
	}
	if len(candles) > window {
		candles = candles[len(candles)-window:]
	}

	var totalValue, totalVolume float64
	for _, c := range candles {
		totalValue += c.TypicalPrice() * c.Volume
		totalVolume += c.Volume
	}
	if totalVolume > 0 {
		return totalValue / totalVolume, nil
	}

	// Degenerate series with no volume: arithmetic mean of closes.
	var sum float64
	for _, c := range candles {
		sum += c.Close
	}
	return sum / float64(len(candles)), nil
}

// filterAnomalies drops candles whose lowest OHLC print is implausibly far
// below the median of all OHLC values in the batch.
func filterAnomalies(candles []Candle, factor float64) []Candle {
	if len(candles) == 0 || factor <= 0 {
		return candles
	}

	values := make([]float64, 0, len(candles)*4)
	for _, c := range candles {
		values = append(values, c.Open, c.High, c.Low, c.Close)
	}
	sort.Float64s(values)
	median := values[len(values)/2]
	if len(values)%2 == 0 {
		median = (values[len(values)/2-1] + values[len(values)/2]) / 2
	}

	threshold := median / factor
	out := candles[:0:0]
	for _, c := range candles {
		if c.MinOHLC() >= threshold {
			out = append(out, c)
		}
	}
	return out
}
