package backtest

import (
	"context"
	"fmt"
	"log"

	"github.com/yourusername/signal-engine/pkg/config"
	"github.com/yourusername/signal-engine/pkg/execution"
	"github.com/yourusername/signal-engine/pkg/market"
	"github.com/yourusername/signal-engine/pkg/signal"
	"github.com/yourusername/signal-engine/pkg/strategy"
)

// Driver fast-forwards one strategy core over a frame of historical
// timestamps. Each timestamp runs under a fresh execution context; whenever a
// tick opens or schedules a signal, the 1-minute fast path consumes candles
// until the signal resolves and the frame skips past the close.
type Driver struct {
	core   *strategy.Core
	source market.CandleSource // raw source; the fast path reads ahead of Now
	frame  *Frame
	engine *config.EngineConfig

	stats *Statistics
}

// NewDriver wires a backtest driver. source must be the raw (unbounded)
// candle source; the core itself holds the bounded one.
func NewDriver(core *strategy.Core, source market.CandleSource, frame *Frame, engine *config.EngineConfig) *Driver {
	if engine == nil {
		engine = config.Default()
	}
	return &Driver{
		core:   core,
		source: source,
		frame:  frame,
		engine: engine,
		stats:  NewStatistics(core.Strategy(), core.Symbol()),
	}
}

// Run iterates the frame to completion, or until ctx is cancelled. It
// returns the ordered results of every tick (including fast-path closes) and
// the run statistics.
func (d *Driver) Run(ctx context.Context) ([]*signal.TickResult, *Result, error) {
	symbol := d.core.Symbol()
	log.Printf("[Backtest] Starting %s:%s over frame %q (%d steps)",
		d.core.Strategy(), symbol, d.frame.Name, d.frame.Len())

	results := make([]*signal.TickResult, 0, 256)
	it := d.frame.Iter()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Backtest] %s:%s cancelled, remaining frames skipped", d.core.Strategy(), symbol)
			return results, d.stats.Report(), ctx.Err()
		default:
		}

		ts, ok := it.Next()
		if !ok {
			break
		}

		tickCtx := execution.With(ctx, execution.Context{
			Symbol:   symbol,
			Now:      ts,
			Backtest: true,
		})
		tickCtx = execution.WithMethod(tickCtx, execution.MethodContext{
			Strategy: d.core.Strategy(),
			Exchange: d.exchangeName(),
			Frame:    d.frame.Name,
		})

		res, err := d.core.Tick(tickCtx)
		if err != nil {
			return results, d.stats.Report(), fmt.Errorf("tick at %d failed: %w", ts, err)
		}
		results = append(results, res)
		d.stats.OnResult(res)

		if res.Kind != signal.KindOpened && res.Kind != signal.KindScheduled {
			continue
		}

		// Fast path: consume 1m candles until the signal resolves.
		candles, err := d.source.GetCandles(tickCtx, symbol, market.Interval1m, ts, d.engine.BacktestHorizonCandles)
		if err != nil {
			return results, d.stats.Report(), fmt.Errorf("fast-path candle fetch at %d failed: %w", ts, err)
		}

		fast, err := d.core.Backtest(tickCtx, candles)
		if err != nil {
			return results, d.stats.Report(), fmt.Errorf("fast path at %d failed: %w", ts, err)
		}
		results = append(results, fast)
		d.stats.OnResult(fast)

		if fast.CloseTimestamp > 0 {
			it.SkipPast(fast.CloseTimestamp)
		}
	}

	report := d.stats.Report()
	log.Printf("[Backtest] Finished %s:%s: %d trades, pnl %.3f%%",
		d.core.Strategy(), symbol, report.Trades, report.TotalPnLPct)
	return results, report, nil
}

// PrintSummary logs the collected statistics.
func (d *Driver) PrintSummary() {
	d.stats.PrintSummary()
}

func (d *Driver) exchangeName() string {
	// The core carries the exchange; method context mirrors it.
	return d.core.Exchange()
}
