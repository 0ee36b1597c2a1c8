package strategy

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/yourusername/signal-engine/pkg/execution"
	"github.com/yourusername/signal-engine/pkg/signal"
)

// Stop stops new signal generation. Existing signals continue to be monitored
// to completion.
func (c *Core) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	log.Printf("[StrategyCore] %s:%s stopped", c.cfg.Strategy, c.symbol)
}

// Stopped reports whether new signal generation is disabled.
func (c *Core) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// CancelScheduled cancels a waiting scheduled signal, if any. Returns the
// cancelled result, or nil when no scheduled signal exists.
func (c *Core) CancelScheduled(ctx context.Context) (*signal.TickResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.scheduled == nil {
		return nil, nil
	}

	now := time.Now().UnixMilli()
	price := 0.0
	if ec, err := execution.From(ctx); err == nil {
		now = ec.Now
		if p, err := c.cfg.Source.AveragePrice(ctx, c.symbol); err == nil {
			price = p
		}
	}

	res := c.cancelScheduled(c.scheduled, price, signal.CancelManual, now)
	if res.Kind != signal.KindCancelled {
		return nil, fmt.Errorf("failed to cancel scheduled signal for %s:%s", c.cfg.Strategy, c.symbol)
	}
	return c.finish(res, now), nil
}

// PartialProfit records a profit milestone event without altering the active
// signal's levels. Purely observational.
func (c *Core) PartialProfit(pct float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return
	}
	c.publishMilestone(pct, true, time.Now().UnixMilli())
}

// PartialLoss records a loss milestone event without altering the active
// signal's levels.
func (c *Core) PartialLoss(pct float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return
	}
	c.publishMilestone(pct, false, time.Now().UnixMilli())
}

// TrailingStop moves the active signal's stop loss toward the open price by
// deltaPct percent of the original stop distance. The stop may only tighten:
// a move away from the current price is refused. Returns whether the move was
// applied.
func (c *Core) TrailingStop(deltaPct float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	sig := c.active
	if sig == nil || deltaPct <= 0 {
		return false
	}

	dist := math.Abs(sig.PriceOpen-c.origSL) * deltaPct / 100
	var newSL float64
	if sig.Position == signal.Long {
		newSL = sig.PriceStopLoss + dist
		if newSL <= sig.PriceStopLoss || newSL >= sig.PriceTakeProfit {
			return false
		}
	} else {
		newSL = sig.PriceStopLoss - dist
		if newSL >= sig.PriceStopLoss || newSL <= sig.PriceTakeProfit {
			return false
		}
	}

	sig.PriceStopLoss = newSL
	c.persistActiveAdjustment("trailingStop")
	return true
}

// TrailingProfit adjusts the take profit by deltaPct percent of the original
// profit distance. The first call chooses a direction (positive extends,
// negative tightens); later calls must continue in that direction. Returns
// whether the move was applied.
func (c *Core) TrailingProfit(deltaPct float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	sig := c.active
	if sig == nil || deltaPct == 0 {
		return false
	}

	dir := 1
	if deltaPct < 0 {
		dir = -1
	}
	if c.tpDirection != 0 && c.tpDirection != dir {
		return false
	}

	dist := math.Abs(c.origTP-sig.PriceOpen) * math.Abs(deltaPct) / 100
	var newTP float64
	if sig.Position == signal.Long {
		newTP = sig.PriceTakeProfit + float64(dir)*dist
		if newTP <= sig.PriceOpen {
			return false
		}
	} else {
		newTP = sig.PriceTakeProfit - float64(dir)*dist
		if newTP >= sig.PriceOpen {
			return false
		}
	}

	sig.PriceTakeProfit = newTP
	c.tpDirection = dir
	c.persistActiveAdjustment("trailingProfit")
	return true
}

// Breakeven moves the stop loss to the open price once the price has moved
// beyond entry by at least twice the round-trip cost. Returns whether the
// move was applied.
func (c *Core) Breakeven(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sig := c.active
	if sig == nil {
		return false, nil
	}

	price, err := c.cfg.Source.AveragePrice(ctx, c.symbol)
	if err != nil {
		return false, err
	}

	costFrac := 2 * (c.cfg.Engine.SlippagePct + c.cfg.Engine.FeePct) / 100
	long := sig.Position == signal.Long
	cleared := (long && price >= sig.PriceOpen*(1+costFrac)) ||
		(!long && price <= sig.PriceOpen*(1-costFrac))
	if !cleared {
		return false, nil
	}

	sig.PriceStopLoss = sig.PriceOpen
	c.persistActiveAdjustment("breakeven")
	return true, nil
}

// persistActiveAdjustment writes the adjusted active signal through the
// store. A failed write is reported but does not undo the in-memory move;
// monitoring already uses the new levels and the next state change retries.
func (c *Core) persistActiveAdjustment(method string) {
	if c.cfg.Store == nil || c.active == nil {
		return
	}
	if err := c.cfg.Store.WriteActive(c.cfg.Strategy, c.symbol, c.active); err != nil {
		c.publishError(method, err, time.Now().UnixMilli())
	}
}
