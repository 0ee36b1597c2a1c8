package trader

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yourusername/signal-engine/pkg/config"
	"github.com/yourusername/signal-engine/pkg/market"
	"github.com/yourusername/signal-engine/pkg/signal"
	"github.com/yourusername/signal-engine/pkg/store"
	"github.com/yourusername/signal-engine/pkg/strategy"
)

const (
	liveSymbol = "BTCUSDT"
	minuteMs   = int64(60_000)
	tickStep   = 5 * minuteMs
)

type liveHarness struct {
	src   *market.MemorySource
	store *store.MemoryStore
	core  *strategy.Core

	now atomic.Int64
}

// setPrice seeds five flat 1m candles just before the simulated clock.
func (h *liveHarness) setPrice(price float64) {
	now := h.now.Load()
	for i := int64(1); i <= 5; i++ {
		h.src.Add(liveSymbol, market.Interval1m, market.Candle{
			Timestamp: now - i*minuteMs,
			Open:      price, High: price, Low: price, Close: price,
			Volume: 1,
		})
	}
}

func newLiveHarness(t *testing.T, engine *config.EngineConfig) *liveHarness {
	t.Helper()

	h := &liveHarness{
		src:   market.NewMemorySource(),
		store: store.NewMemoryStore(),
	}
	h.now.Store(1_700_000_000_000)

	fired := false
	core, err := strategy.NewCore(liveSymbol, strategy.CoreConfig{
		Strategy: "live-test",
		Exchange: "binance",
		Interval: market.Interval1m,
		GetSignal: func(ctx context.Context, symbol string, now int64) (*signal.Draft, error) {
			if fired {
				return nil, nil
			}
			fired = true
			return &signal.Draft{
				Position:            signal.Long,
				PriceTakeProfit:     110,
				PriceStopLoss:       90,
				MinuteEstimatedTime: 60,
			}, nil
		},
		Source: market.NewBoundedSource(h.src, engine),
		Store:  h.store,
		Engine: engine,
	})
	if err != nil {
		t.Fatalf("NewCore failed: %v", err)
	}
	h.core = core
	return h
}

func TestLiveDriver_GracefulCloseRidesOutOpenSignal(t *testing.T) {
	engine := config.Default()
	h := newLiveHarness(t, engine)
	h.setPrice(100)

	driver := NewLiveDriver(h.core, engine)
	driver.GracefulCloseOpen = true
	driver.now = func() int64 { return h.now.Load() }

	ctx, cancel := context.WithCancel(context.Background())
	driver.sleep = func(_ context.Context, _ time.Duration) {
		// Advance the simulated clock and move the price through the TP,
		// then request shutdown.
		h.now.Add(tickStep)
		h.setPrice(111)
		cancel()
	}

	if err := driver.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if h.core.HasActive() {
		t.Error("Expected the open signal closed before exit")
	}
	if !h.core.Stopped() {
		t.Error("Expected generation stopped during graceful shutdown")
	}
	if rec, _ := h.store.ReadActive("live-test", liveSymbol); rec != nil {
		t.Error("Expected the closed signal removed from the store")
	}
}

func TestLiveDriver_ImmediateStopLeavesSignalPersisted(t *testing.T) {
	engine := config.Default()
	h := newLiveHarness(t, engine)
	h.setPrice(100)

	driver := NewLiveDriver(h.core, engine)
	driver.now = func() int64 { return h.now.Load() }

	ctx, cancel := context.WithCancel(context.Background())
	driver.sleep = func(_ context.Context, _ time.Duration) { cancel() }

	if err := driver.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Without GracefulCloseOpen the driver exits at once; the open signal
	// stays durable for the next start.
	if !h.core.HasActive() {
		t.Error("Expected the open signal still held")
	}
	if rec, _ := h.store.ReadActive("live-test", liveSymbol); rec == nil {
		t.Error("Expected the open signal persisted across shutdown")
	}
}

func TestLiveDriver_RestoresStateOnStart(t *testing.T) {
	engine := config.Default()
	h := newLiveHarness(t, engine)
	h.setPrice(100)

	// A previous process left an active record behind.
	sig := &signal.Signal{
		ID: "restored-1", Symbol: liveSymbol, StrategyName: "live-test", ExchangeName: "binance",
		Position: signal.Long, PriceOpen: 100, PriceTakeProfit: 110, PriceStopLoss: 90,
		MinuteEstimatedTime: 60,
		ScheduledAt:         h.now.Load() - tickStep,
		PendingAt:           h.now.Load() - tickStep,
	}
	if err := h.store.WriteActive("live-test", liveSymbol, sig); err != nil {
		t.Fatalf("WriteActive failed: %v", err)
	}

	driver := NewLiveDriver(h.core, engine)
	driver.now = func() int64 { return h.now.Load() }

	ctx, cancel := context.WithCancel(context.Background())
	driver.sleep = func(_ context.Context, _ time.Duration) { cancel() }

	if err := driver.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !h.core.HasActive() {
		t.Fatal("Expected persisted signal restored on start")
	}
	if got := h.core.ActiveSignal(); got.ID != "restored-1" {
		t.Errorf("Expected restored-1, got %s", got.ID)
	}
}
