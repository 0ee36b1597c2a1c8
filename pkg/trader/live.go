// Package trader runs strategy cores against real-time market data.
package trader

import (
	"context"
	"log"
	"time"

	"github.com/yourusername/signal-engine/pkg/config"
	"github.com/yourusername/signal-engine/pkg/execution"
	"github.com/yourusername/signal-engine/pkg/metrics"
	"github.com/yourusername/signal-engine/pkg/signal"
	"github.com/yourusername/signal-engine/pkg/strategy"
)

// LiveDriver ticks one strategy core on the wall clock until cancelled.
type LiveDriver struct {
	core   *strategy.Core
	engine *config.EngineConfig

	// GracefulCloseOpen keeps the loop monitoring an active signal after
	// cancellation, without generating new signals, until the signal closes
	// or the hard timeout elapses.
	GracefulCloseOpen bool

	// Clock and sleep are swappable for tests.
	now   func() int64
	sleep func(ctx context.Context, d time.Duration)
}

// NewLiveDriver wires a live driver.
func NewLiveDriver(core *strategy.Core, engine *config.EngineConfig) *LiveDriver {
	if engine == nil {
		engine = config.Default()
	}
	return &LiveDriver{
		core:   core,
		engine: engine,
		now:    func() int64 { return time.Now().UnixMilli() },
		sleep:  sleepCtx,
	}
}

// Run restores persisted state and loops until ctx is cancelled. With
// GracefulCloseOpen set it keeps monitoring an open signal after
// cancellation, bounded by the configured hard timeout.
func (d *LiveDriver) Run(ctx context.Context) error {
	symbol := d.core.Symbol()
	strategyName := d.core.Strategy()

	initCtx := d.tickContext(ctx)
	if err := d.core.WaitForInit(initCtx); err != nil {
		return err
	}
	log.Printf("[LiveDriver] %s:%s started (tick interval %dms)", strategyName, symbol, d.engine.TickIntervalMs)

	interval := time.Duration(d.engine.TickIntervalMs) * time.Millisecond
	for {
		select {
		case <-ctx.Done():
			return d.shutdown(symbol, strategyName)
		default:
		}

		d.tick(ctx)
		d.sleep(ctx, interval)
	}
}

// tick runs one wall-clock step.
func (d *LiveDriver) tick(ctx context.Context) *signal.TickResult {
	start := time.Now()
	res, err := d.core.Tick(d.tickContext(ctx))
	if err != nil {
		// Only a missing execution context lands here; that is a bug in the
		// driver itself, so make it loud.
		log.Printf("[LiveDriver] %s:%s tick failed: %v", d.core.Strategy(), d.core.Symbol(), err)
		return nil
	}
	metrics.ObserveTick(d.core.Strategy(), d.core.Symbol(), res, time.Since(start))
	return res
}

func (d *LiveDriver) tickContext(ctx context.Context) context.Context {
	tickCtx := execution.With(ctx, execution.Context{
		Symbol:   d.core.Symbol(),
		Now:      d.now(),
		Backtest: false,
	})
	return execution.WithMethod(tickCtx, execution.MethodContext{
		Strategy: d.core.Strategy(),
		Exchange: d.core.Exchange(),
	})
}

// shutdown optionally rides out an open signal, bounded by the hard timeout.
// The signal stays durable in the store either way, so a restart resumes it.
func (d *LiveDriver) shutdown(symbol, strategyName string) error {
	if !d.GracefulCloseOpen || !d.core.HasActive() {
		log.Printf("[LiveDriver] %s:%s stopped", strategyName, symbol)
		return nil
	}

	log.Printf("[LiveDriver] %s:%s graceful shutdown: waiting for active signal to close", strategyName, symbol)
	d.core.Stop()

	hard := time.Duration(d.engine.ShutdownHardTimeoutMinutes) * time.Minute
	deadline := time.Now().Add(hard)
	interval := time.Duration(d.engine.TickIntervalMs) * time.Millisecond

	// The parent context is already cancelled; the drain loop runs on its
	// own bounded context.
	drainCtx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	for d.core.HasActive() {
		if time.Now().After(deadline) {
			log.Printf("[LiveDriver] %s:%s hard timeout after %s; signal remains persisted for next start",
				strategyName, symbol, hard)
			return nil
		}
		res := d.tick(drainCtx)
		if res != nil && res.Kind == signal.KindClosed {
			break
		}
		d.sleep(drainCtx, interval)
	}

	log.Printf("[LiveDriver] %s:%s stopped after graceful close", strategyName, symbol)
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
