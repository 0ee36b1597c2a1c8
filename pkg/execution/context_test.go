package execution

import (
	"context"
	"errors"
	"testing"
)

func TestFrom_RoundTrip(t *testing.T) {
	ec := Context{Symbol: "BTCUSDT", Now: 1_700_000_000_000, Backtest: true}
	ctx := With(context.Background(), ec)

	got, err := From(ctx)
	if err != nil {
		t.Fatalf("From failed: %v", err)
	}
	if got != ec {
		t.Errorf("Expected %+v, got %+v", ec, got)
	}
}

func TestFrom_MissingContext(t *testing.T) {
	if _, err := From(context.Background()); !errors.Is(err, ErrMissingContext) {
		t.Errorf("Expected ErrMissingContext, got %v", err)
	}
	if _, err := MethodFrom(context.Background()); !errors.Is(err, ErrMissingContext) {
		t.Errorf("Expected ErrMissingContext from MethodFrom, got %v", err)
	}
}

func TestWith_InnerOverridesOuter(t *testing.T) {
	outer := With(context.Background(), Context{Symbol: "BTCUSDT", Now: 1})
	inner := With(outer, Context{Symbol: "ETHUSDT", Now: 2})

	got, err := From(inner)
	if err != nil {
		t.Fatalf("From failed: %v", err)
	}
	if got.Symbol != "ETHUSDT" || got.Now != 2 {
		t.Errorf("Inner context should shadow the outer one, got %+v", got)
	}
}

func TestMethodFrom_RoundTrip(t *testing.T) {
	mc := MethodContext{Strategy: "ema", Exchange: "binance", Frame: "2024"}
	ctx := WithMethod(With(context.Background(), Context{Symbol: "BTCUSDT"}), mc)

	got, err := MethodFrom(ctx)
	if err != nil {
		t.Fatalf("MethodFrom failed: %v", err)
	}
	if got != mc {
		t.Errorf("Expected %+v, got %+v", mc, got)
	}

	// The execution context is still reachable beneath the method layer.
	if _, err := From(ctx); err != nil {
		t.Errorf("Expected execution context preserved, got %v", err)
	}
}
