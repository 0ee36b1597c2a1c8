// Package strategy implements the per-(strategy, symbol) signal lifecycle
// state machine and its instance cache.
package strategy

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/yourusername/signal-engine/pkg/config"
	"github.com/yourusername/signal-engine/pkg/event"
	"github.com/yourusername/signal-engine/pkg/execution"
	"github.com/yourusername/signal-engine/pkg/market"
	"github.com/yourusername/signal-engine/pkg/priceutil"
	"github.com/yourusername/signal-engine/pkg/risk"
	"github.com/yourusername/signal-engine/pkg/signal"
	"github.com/yourusername/signal-engine/pkg/store"
)

// GetSignalFunc is the user strategy callback. A nil draft with a nil error
// means "no signal this tick". The callback may call the bounded candle
// source through ctx without passing a timestamp.
type GetSignalFunc func(ctx context.Context, symbol string, now int64) (*signal.Draft, error)

// CoreConfig wires one strategy core.
type CoreConfig struct {
	Strategy  string
	Exchange  string
	Interval  market.Interval // throttle for GetSignal invocations
	GetSignal GetSignalFunc
	Gate      risk.Gate
	Source    *market.BoundedSource
	Store     store.Store // nil disables persistence (backtest driver decision)
	Bus       *event.Bus
	Engine    *config.EngineConfig
}

// Core owns the activeSignal and scheduledSignal slots for one
// (strategy, symbol) pair. All mutations are serial: each Tick runs to
// completion under the instance lock before the next starts.
type Core struct {
	cfg    CoreConfig
	symbol string
	prices *priceutil.Formatter

	mu          sync.Mutex
	active      *signal.Signal
	scheduled   *signal.Signal
	lastAttempt int64
	stopped     bool
	initialized bool

	// Captured at open for trailing adjustments.
	origTP, origSL float64
	tpDirection    int // 0 unset, +1 extending, -1 tightening

	firedProfit map[float64]bool
	firedLoss   map[float64]bool
}

// NewCore creates a core for one symbol.
func NewCore(symbol string, cfg CoreConfig) (*Core, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol must be non-empty")
	}
	if cfg.Strategy == "" || cfg.Exchange == "" {
		return nil, fmt.Errorf("strategy and exchange must be non-empty")
	}
	if !cfg.Interval.ValidSignalInterval() {
		return nil, fmt.Errorf("interval %s not allowed for signal generation", cfg.Interval)
	}
	if cfg.GetSignal == nil {
		return nil, fmt.Errorf("getSignal callback is required")
	}
	if cfg.Gate == nil {
		cfg.Gate = risk.NoopGate{}
	}
	if cfg.Bus == nil {
		cfg.Bus = event.NewBus()
	}
	if cfg.Engine == nil {
		cfg.Engine = config.Default()
	}
	return &Core{
		cfg:         cfg,
		symbol:      symbol,
		prices:      priceutil.NewFormatter(4),
		firedProfit: make(map[float64]bool),
		firedLoss:   make(map[float64]bool),
	}, nil
}

// Symbol returns the bound symbol.
func (c *Core) Symbol() string { return c.symbol }

// Strategy returns the bound strategy name.
func (c *Core) Strategy() string { return c.cfg.Strategy }

// Exchange returns the bound exchange name.
func (c *Core) Exchange() string { return c.cfg.Exchange }

// HasActive reports whether an active signal is being monitored.
func (c *Core) HasActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// HasScheduled reports whether a scheduled signal is waiting for activation.
func (c *Core) HasScheduled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scheduled != nil
}

// ActiveSignal returns a copy of the active signal, or nil.
func (c *Core) ActiveSignal() *signal.Signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return nil
	}
	return c.active.Clone()
}

// WaitForInit restores persisted state. Runs at most once per instance; a
// no-op in backtest mode or without a store.
func (c *Core) WaitForInit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}
	c.initialized = true

	if c.cfg.Store == nil {
		return nil
	}
	if ec, err := execution.From(ctx); err == nil && ec.Backtest {
		return nil
	}

	active, err := c.cfg.Store.ReadActive(c.cfg.Strategy, c.symbol)
	if err != nil {
		return fmt.Errorf("failed to restore active signal: %w", err)
	}
	scheduled, err := c.cfg.Store.ReadScheduled(c.cfg.Strategy, c.symbol)
	if err != nil {
		return fmt.Errorf("failed to restore scheduled signal: %w", err)
	}

	c.scheduled = scheduled
	if active != nil {
		c.active = active
		c.origTP = active.PriceTakeProfit
		c.origSL = active.PriceStopLoss
		c.cfg.Gate.AddSignal(c.cfg.Strategy, c.symbol)

		price := 0.0
		if p, err := c.cfg.Source.AveragePrice(ctx, c.symbol); err == nil {
			price = p
		}
		log.Printf("[StrategyCore] %s:%s restored active signal %s", c.cfg.Strategy, c.symbol, active.ID)
		c.publish(event.Event{
			Category:  event.CategoryActive,
			Symbol:    c.symbol,
			Strategy:  c.cfg.Strategy,
			Timestamp: time.Now().UnixMilli(),
			Result:    signal.Active(active.Clone(), price, 0, 0),
		})
	}
	if scheduled != nil {
		log.Printf("[StrategyCore] %s:%s restored scheduled signal %s", c.cfg.Strategy, c.symbol, scheduled.ID)
	}
	return nil
}

// Tick runs one logical step at the execution context's Now. User-code and
// validation errors are contained: the tick resolves to idle, state is
// unchanged and the error goes to the error channel. Only a missing execution
// context surfaces as a returned error.
func (c *Core) Tick(ctx context.Context) (*signal.TickResult, error) {
	ec, err := execution.From(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	price, err := c.cfg.Source.AveragePrice(ctx, c.symbol)
	if err != nil {
		c.publishError("getAveragePrice", err, ec.Now)
		return c.finish(signal.Idle(0), ec.Now), nil
	}

	switch {
	case c.active != nil:
		return c.finish(c.checkCompletion(ctx, ec, price), ec.Now), nil
	case c.scheduled != nil:
		return c.finish(c.monitorScheduled(ctx, ec, price), ec.Now), nil
	default:
		return c.finish(c.tryGenerate(ctx, ec, price), ec.Now), nil
	}
}

// finish publishes the result as a lifecycle event and returns it.
func (c *Core) finish(res *signal.TickResult, now int64) *signal.TickResult {
	c.publish(event.Event{
		Category:  event.Category(res.Kind),
		Symbol:    c.symbol,
		Strategy:  c.cfg.Strategy,
		Timestamp: now,
		Result:    res,
	})
	return res
}

// checkCompletion evaluates the active signal. Order matters: time expiration
// first, then take profit, then stop loss.
func (c *Core) checkCompletion(ctx context.Context, ec execution.Context, price float64) *signal.TickResult {
	sig := c.active

	if ec.Now >= sig.ExpiresAt() {
		return c.closeActive(sig, price, price, signal.CloseTimeExpired, ec.Now)
	}

	long := sig.Position == signal.Long
	if (long && price >= sig.PriceTakeProfit) || (!long && price <= sig.PriceTakeProfit) {
		return c.closeActive(sig, price, sig.PriceTakeProfit, signal.CloseTakeProfit, ec.Now)
	}
	if (long && price <= sig.PriceStopLoss) || (!long && price >= sig.PriceStopLoss) {
		return c.closeActive(sig, price, sig.PriceStopLoss, signal.CloseStopLoss, ec.Now)
	}

	progressTP, progressSL := progress(sig, price)
	c.fireMilestones(progressTP, progressSL, ec.Now)
	return signal.Active(sig.Clone(), price, progressTP, progressSL)
}

// closeActive finalizes the active signal. The durable delete happens before
// the in-memory state advances; a failed write leaves the state machine where
// it was so the next tick retries from the last durable state.
func (c *Core) closeActive(sig *signal.Signal, currentPrice, priceClose float64, reason signal.CloseReason, now int64) *signal.TickResult {
	if c.cfg.Store != nil {
		if err := c.cfg.Store.WriteActive(c.cfg.Strategy, c.symbol, nil); err != nil {
			c.publishError("closeActive", err, now)
			progressTP, progressSL := progress(sig, currentPrice)
			return signal.Active(sig.Clone(), currentPrice, progressTP, progressSL)
		}
	}

	pnl := signal.ComputePnL(sig.Position, sig.PriceOpen, priceClose,
		c.cfg.Engine.SlippagePct, c.cfg.Engine.FeePct)
	c.cfg.Gate.RemoveSignal(c.cfg.Strategy, c.symbol)
	c.active = nil
	c.resetMilestones()

	log.Printf("[StrategyCore] %s:%s closed signal %s (%s) pnl=%.3f%%",
		c.cfg.Strategy, c.symbol, sig.ID, reason, pnl.PnLPercentage)
	return signal.Closed(sig.Clone(), priceClose, reason, now, pnl)
}

// monitorScheduled evaluates the scheduled slot. The stop-loss check strictly
// precedes the activation check.
func (c *Core) monitorScheduled(ctx context.Context, ec execution.Context, price float64) *signal.TickResult {
	sig := c.scheduled
	long := sig.Position == signal.Long
	awaitMs := int64(c.cfg.Engine.ScheduleAwaitMinutes) * 60_000

	if ec.Now-sig.ScheduledAt >= awaitMs {
		return c.cancelScheduled(sig, price, signal.CancelTimeout, ec.Now)
	}

	if (long && price <= sig.PriceStopLoss) || (!long && price >= sig.PriceStopLoss) {
		return c.cancelScheduled(sig, price, signal.CancelPreActivation, ec.Now)
	}

	if (long && price <= sig.PriceOpen) || (!long && price >= sig.PriceOpen) {
		return c.activateScheduled(ctx, sig, price, ec.Now, ec.Now)
	}

	return signal.Scheduled(sig.Clone(), price)
}

// activateScheduled transitions scheduled -> opened. PendingAt becomes
// pendingAt, the actual activation time in live mode and the next minute
// boundary on the backtest fast path; the estimated lifetime starts there,
// not at creation. The durable copy carries the same PendingAt.
func (c *Core) activateScheduled(ctx context.Context, sig *signal.Signal, price float64, now, pendingAt int64) *signal.TickResult {
	if err := c.cfg.Gate.CheckSignal(ctx, c.checkArgs(sig, price, now)); err != nil {
		c.publishError("activateScheduled", err, now)
		return c.cancelScheduled(sig, price, signal.CancelRiskRejected, now)
	}

	prevPending := sig.PendingAt
	sig.PendingAt = pendingAt

	if c.cfg.Store != nil {
		// Delete-then-write; atomic from the caller's perspective.
		if err := c.cfg.Store.WriteScheduled(c.cfg.Strategy, c.symbol, nil); err != nil {
			sig.PendingAt = prevPending
			c.publishError("activateScheduled", err, now)
			return signal.Scheduled(sig.Clone(), price)
		}
		if err := c.cfg.Store.WriteActive(c.cfg.Strategy, c.symbol, sig); err != nil {
			sig.PendingAt = prevPending
			c.publishError("activateScheduled", err, now)
			return signal.Scheduled(sig.Clone(), price)
		}
	}

	c.cfg.Gate.AddSignal(c.cfg.Strategy, c.symbol)
	c.active = sig
	c.scheduled = nil
	c.origTP = sig.PriceTakeProfit
	c.origSL = sig.PriceStopLoss
	c.tpDirection = 0
	c.resetMilestones()

	log.Printf("[StrategyCore] %s:%s activated scheduled signal %s at %s",
		c.cfg.Strategy, c.symbol, sig.ID, c.prices.Format(c.symbol, price))
	return signal.Opened(sig.Clone(), price)
}

// cancelScheduled clears the scheduled slot.
func (c *Core) cancelScheduled(sig *signal.Signal, price float64, reason signal.CancelReason, now int64) *signal.TickResult {
	if c.cfg.Store != nil {
		if err := c.cfg.Store.WriteScheduled(c.cfg.Strategy, c.symbol, nil); err != nil {
			c.publishError("cancelScheduled", err, now)
			return signal.Scheduled(sig.Clone(), price)
		}
	}
	c.scheduled = nil
	log.Printf("[StrategyCore] %s:%s cancelled scheduled signal %s (%s)",
		c.cfg.Strategy, c.symbol, sig.ID, reason)
	return signal.Cancelled(sig.Clone(), price, reason, now)
}

// tryGenerate runs the idle path: throttle, user callback under timeout,
// validation, risk admission, then the market-vs-scheduled branch.
func (c *Core) tryGenerate(ctx context.Context, ec execution.Context, price float64) *signal.TickResult {
	if c.stopped {
		return signal.Idle(price)
	}
	if ec.Now-c.lastAttempt < c.cfg.Interval.Ms() {
		return signal.Idle(price)
	}
	c.lastAttempt = ec.Now

	draft := c.generate(ctx, ec.Now)
	if draft == nil {
		return signal.Idle(price)
	}

	long := draft.Position == signal.Long
	hasOpen := draft.PriceOpen > 0
	immediate := !hasOpen ||
		(long && price <= draft.PriceOpen) ||
		(!long && price >= draft.PriceOpen)

	sig := signal.FromDraft(draft, c.symbol, c.cfg.Strategy, c.cfg.Exchange, ec.Now, !immediate)
	if !hasOpen {
		sig.PriceOpen = price
	}

	if err := signal.Validate(sig, price, c.cfg.Engine); err != nil {
		c.publishError("validate", err, ec.Now)
		return signal.Idle(price)
	}
	if err := c.cfg.Gate.CheckSignal(ctx, c.checkArgs(sig, price, ec.Now)); err != nil {
		c.publishError("riskCheck", err, ec.Now)
		return signal.Idle(price)
	}

	if immediate {
		if c.cfg.Store != nil {
			if err := c.cfg.Store.WriteActive(c.cfg.Strategy, c.symbol, sig); err != nil {
				c.publishError("openSignal", err, ec.Now)
				return signal.Idle(price)
			}
		}
		c.cfg.Gate.AddSignal(c.cfg.Strategy, c.symbol)
		c.active = sig
		c.origTP = sig.PriceTakeProfit
		c.origSL = sig.PriceStopLoss
		c.tpDirection = 0
		c.resetMilestones()
		log.Printf("[StrategyCore] %s:%s opened %s signal %s at %s",
			c.cfg.Strategy, c.symbol, sig.Position, sig.ID, c.prices.Format(c.symbol, sig.PriceOpen))
		return signal.Opened(sig.Clone(), price)
	}

	if c.cfg.Store != nil {
		if err := c.cfg.Store.WriteScheduled(c.cfg.Strategy, c.symbol, sig); err != nil {
			c.publishError("scheduleSignal", err, ec.Now)
			return signal.Idle(price)
		}
	}
	c.scheduled = sig
	log.Printf("[StrategyCore] %s:%s scheduled %s signal %s, waiting for %s",
		c.cfg.Strategy, c.symbol, sig.Position, sig.ID, c.prices.Format(c.symbol, sig.PriceOpen))
	return signal.Scheduled(sig.Clone(), price)
}

// generate races the user callback against the generation timeout. A timeout
// or error yields nil; the goroutine's panic is converted to an error so user
// code can never take the engine down.
func (c *Core) generate(ctx context.Context, now int64) *signal.Draft {
	type genResult struct {
		draft *signal.Draft
		err   error
	}
	ch := make(chan genResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- genResult{err: fmt.Errorf("getSignal panic: %v", r)}
			}
		}()
		draft, err := c.cfg.GetSignal(ctx, c.symbol, now)
		ch <- genResult{draft: draft, err: err}
	}()

	timeout := time.Duration(c.cfg.Engine.MaxSignalGenerationSeconds) * time.Second
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			c.publishError("getSignal", res.err, now)
			return nil
		}
		return res.draft
	case <-timer.C:
		c.publishError("getSignal", fmt.Errorf("signal generation exceeded %s", timeout), now)
		return nil
	case <-ctx.Done():
		return nil
	}
}

func (c *Core) checkArgs(sig *signal.Signal, price float64, now int64) risk.CheckArgs {
	return risk.CheckArgs{
		Signal:       sig,
		Symbol:       c.symbol,
		Strategy:     c.cfg.Strategy,
		CurrentPrice: price,
		Timestamp:    now,
	}
}

// progress reports how far the price has travelled toward TP and SL, as a
// percent of each original distance, clamped at zero.
func progress(sig *signal.Signal, price float64) (float64, float64) {
	tpDist := sig.PriceTakeProfit - sig.PriceOpen
	slDist := sig.PriceOpen - sig.PriceStopLoss

	var tp, sl float64
	if tpDist != 0 {
		tp = (price - sig.PriceOpen) / tpDist * 100
	}
	if slDist != 0 {
		sl = (sig.PriceOpen - price) / slDist * 100
	}
	if tp < 0 {
		tp = 0
	}
	if sl < 0 {
		sl = 0
	}
	return tp, sl
}

func (c *Core) fireMilestones(progressTP, progressSL float64, now int64) {
	for _, t := range c.cfg.Engine.MilestoneThresholdsPct {
		if progressTP >= t && !c.firedProfit[t] {
			c.firedProfit[t] = true
			c.publishMilestone(t, true, now)
		}
		if progressSL >= t && !c.firedLoss[t] {
			c.firedLoss[t] = true
			c.publishMilestone(t, false, now)
		}
	}
}

func (c *Core) resetMilestones() {
	c.firedProfit = make(map[float64]bool)
	c.firedLoss = make(map[float64]bool)
}

func (c *Core) publish(e event.Event) {
	c.cfg.Bus.Publish(e)
}

func (c *Core) publishMilestone(pct float64, profit bool, now int64) {
	c.publish(event.Event{
		Category:        event.CategoryMilestone,
		Symbol:          c.symbol,
		Strategy:        c.cfg.Strategy,
		Timestamp:       now,
		MilestonePct:    pct,
		MilestoneProfit: profit,
	})
}

func (c *Core) publishError(method string, err error, now int64) {
	log.Printf("[StrategyCore] %s:%s %s error: %v", c.cfg.Strategy, c.symbol, method, err)
	c.publish(event.Event{
		Category:  event.CategoryError,
		Symbol:    c.symbol,
		Strategy:  c.cfg.Strategy,
		Method:    method,
		Timestamp: now,
		Err:       err,
	})
}
