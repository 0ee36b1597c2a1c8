package strategy

import (
	"testing"

	"github.com/yourusername/signal-engine/pkg/market"
	"github.com/yourusername/signal-engine/pkg/signal"
)

func candle(ts int64, o, h, l, c float64) market.Candle {
	return market.Candle{Timestamp: ts, Open: o, High: h, Low: l, Close: c, Volume: 1}
}

// scheduledEnv ticks once so the core carries a waiting scheduled signal.
func scheduledEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t, market.Interval1m, fireOnce(scheduledLong()))
	if res := env.tick(t, 100); res.Kind != signal.KindScheduled {
		t.Fatalf("Setup expected scheduled, got %s", res.Kind)
	}
	return env
}

// activeEnv ticks once so the core carries an open market signal.
func activeEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t, market.Interval1m, fireOnce(marketLong()))
	if res := env.tick(t, 100); res.Kind != signal.KindOpened {
		t.Fatalf("Setup expected opened, got %s", res.Kind)
	}
	return env
}

func TestBacktest_ScheduledActivatesThenTakesProfit(t *testing.T) {
	env := scheduledEnv(t)
	t0 := env.now

	res, err := env.core.Backtest(env.ctx(), []market.Candle{
		candle(t0, 100, 100, 94, 96), // touches the 95 entry, not the 90 stop
		candle(t0+minuteMs, 96, 111, 95, 108),
	})
	if err != nil {
		t.Fatalf("Backtest failed: %v", err)
	}

	if res.Kind != signal.KindClosed || res.CloseReason != signal.CloseTakeProfit {
		t.Fatalf("Expected take_profit close, got %s/%s", res.Kind, res.CloseReason)
	}
	if res.PriceClose != 110 {
		t.Errorf("Expected close at the TP level 110, got %v", res.PriceClose)
	}
	if res.CloseTimestamp != t0+minuteMs {
		t.Errorf("Expected close at the second candle %d, got %d", t0+minuteMs, res.CloseTimestamp)
	}
	if res.Signal.PendingAt != t0+minuteMs {
		t.Errorf("Activation should set PendingAt to the next minute boundary %d, got %d",
			t0+minuteMs, res.Signal.PendingAt)
	}
	if res.PnL == nil || res.PnL.PnLPercentage <= 0 {
		t.Errorf("Expected positive pnl, got %+v", res.PnL)
	}
}

func TestBacktest_ActivationCandleNotEvaluated(t *testing.T) {
	env := scheduledEnv(t)
	t0 := env.now

	// One candle touches the entry and spans the TP. No credit inside the
	// activation candle: the signal must stay open.
	res, err := env.core.Backtest(env.ctx(), []market.Candle{
		candle(t0, 100, 111, 94, 105),
	})
	if err != nil {
		t.Fatalf("Backtest failed: %v", err)
	}
	if res.Kind != signal.KindActive {
		t.Fatalf("Expected still active, got %s", res.Kind)
	}
	if res.CloseTimestamp != 0 {
		t.Errorf("Open state must not carry a close timestamp, got %d", res.CloseTimestamp)
	}
	if !env.core.HasActive() {
		t.Error("Expected active slot filled after activation")
	}

	rec, err := env.store.ReadActive("test", testSymbol)
	if err != nil || rec == nil {
		t.Fatalf("Expected active record persisted on activation, got %v (%v)", rec, err)
	}
	if rec.PendingAt != t0+minuteMs {
		t.Errorf("Durable record must carry the boundary PendingAt %d, got %d", t0+minuteMs, rec.PendingAt)
	}
}

func TestBacktest_PreActivationStopLossWins(t *testing.T) {
	env := scheduledEnv(t)
	t0 := env.now

	// The candle reaches both the entry and the stop loss. The stop-loss
	// check strictly precedes activation.
	res, err := env.core.Backtest(env.ctx(), []market.Candle{
		candle(t0, 100, 100, 89, 92),
	})
	if err != nil {
		t.Fatalf("Backtest failed: %v", err)
	}
	if res.Kind != signal.KindCancelled || res.CancelReason != signal.CancelPreActivation {
		t.Fatalf("Expected pre_activation_stoploss, got %s/%s", res.Kind, res.CancelReason)
	}
	if res.CloseTimestamp != t0 {
		t.Errorf("Expected cancel at %d, got %d", t0, res.CloseTimestamp)
	}
	if env.core.HasActive() || env.core.HasScheduled() {
		t.Error("Expected both slots empty")
	}
}

func TestBacktest_ScheduledTimeout(t *testing.T) {
	env := scheduledEnv(t)
	scheduledAt := env.now - tickStep
	awaitMs := int64(env.engine.ScheduleAwaitMinutes) * minuteMs

	res, err := env.core.Backtest(env.ctx(), []market.Candle{
		candle(scheduledAt+awaitMs, 100, 101, 99, 100), // never touches the 95 entry
	})
	if err != nil {
		t.Fatalf("Backtest failed: %v", err)
	}
	if res.Kind != signal.KindCancelled || res.CancelReason != signal.CancelTimeout {
		t.Fatalf("Expected timeout cancel, got %s/%s", res.Kind, res.CancelReason)
	}
}

func TestBacktest_TakeProfitBeatsStopLossSameCandle(t *testing.T) {
	env := activeEnv(t)
	t0 := env.now

	res, err := env.core.Backtest(env.ctx(), []market.Candle{
		candle(t0, 100, 111, 89, 100), // spans both levels
	})
	if err != nil {
		t.Fatalf("Backtest failed: %v", err)
	}
	if res.Kind != signal.KindClosed || res.CloseReason != signal.CloseTakeProfit {
		t.Fatalf("Expected the TP tie-break, got %s/%s", res.Kind, res.CloseReason)
	}
	if res.PriceClose != 110 {
		t.Errorf("Expected close at 110, got %v", res.PriceClose)
	}
}

func TestBacktest_TimeExpiryClosesAtCandleClose(t *testing.T) {
	env := activeEnv(t)
	pendingAt := env.core.ActiveSignal().PendingAt

	res, err := env.core.Backtest(env.ctx(), []market.Candle{
		candle(pendingAt+60*minuteMs, 101, 103, 99, 102), // inside both levels
	})
	if err != nil {
		t.Fatalf("Backtest failed: %v", err)
	}
	if res.Kind != signal.KindClosed || res.CloseReason != signal.CloseTimeExpired {
		t.Fatalf("Expected time_expired close, got %s/%s", res.Kind, res.CloseReason)
	}
	if res.PriceClose != 102 {
		t.Errorf("Expiry closes at the candle close 102, got %v", res.PriceClose)
	}
}

func TestBacktest_LevelHitBeatsExpirySameCandle(t *testing.T) {
	env := activeEnv(t)
	pendingAt := env.core.ActiveSignal().PendingAt

	// The expiring candle also touches the TP: the level hit wins.
	res, err := env.core.Backtest(env.ctx(), []market.Candle{
		candle(pendingAt+60*minuteMs, 101, 111, 99, 102),
	})
	if err != nil {
		t.Fatalf("Backtest failed: %v", err)
	}
	if res.CloseReason != signal.CloseTakeProfit {
		t.Errorf("Expected take_profit over expiry, got %s", res.CloseReason)
	}
}

func TestBacktest_BatchExhaustedReturnsState(t *testing.T) {
	env := scheduledEnv(t)
	t0 := env.now

	res, err := env.core.Backtest(env.ctx(), []market.Candle{
		candle(t0, 100, 101, 96, 100), // low 96 stays above the 95 entry
		candle(t0+minuteMs, 100, 101, 96, 99),
	})
	if err != nil {
		t.Fatalf("Backtest failed: %v", err)
	}
	if res.Kind != signal.KindScheduled {
		t.Fatalf("Expected scheduled state result, got %s", res.Kind)
	}
	if res.CloseTimestamp != 0 {
		t.Errorf("Exhausted batch must not set CloseTimestamp, got %d", res.CloseTimestamp)
	}
	if !env.core.HasScheduled() {
		t.Error("Expected scheduled slot intact")
	}
}
