package event

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/yourusername/signal-engine/pkg/priceutil"
	"github.com/yourusername/signal-engine/pkg/signal"
)

func TestSanitize(t *testing.T) {
	if got := sanitize(""); got != "_" {
		t.Errorf("Expected empty identity replaced with _, got %q", got)
	}
	if got := sanitize("ema-12-26"); got != "ema-12-26" {
		t.Errorf("Expected pass-through, got %q", got)
	}
}

func TestBridgeMessage_Shape(t *testing.T) {
	msg := bridgeMessage{
		Category:  CategoryError,
		Symbol:    "BTCUSDT",
		Strategy:  "ema",
		Timestamp: 1_700_000_000_000,
		Error:     errors.New("feed down").Error(),
	}
	data, err := json.Marshal(&msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded["category"] != "error" || decoded["error"] != "feed down" {
		t.Errorf("Unexpected wire shape: %s", data)
	}
	if _, ok := decoded["result"]; ok {
		t.Error("Empty result must be omitted from the wire shape")
	}
}

func TestBridgeMessage_FormattedPrices(t *testing.T) {
	b := &Bridge{prices: priceutil.NewFormatter(wirePrecision)}
	b.SetPrecision("BTCUSDT", 1)

	closed := signal.Closed(&signal.Signal{Symbol: "BTCUSDT"}, 100798.34567,
		signal.CloseTakeProfit, 1_700_000_000_000, nil)
	msg := b.message(Event{Category: CategoryClosed, Symbol: "BTCUSDT", Result: closed})
	if msg.PriceClose != "100798.3" {
		t.Errorf("Expected per-symbol precision on the close price, got %q", msg.PriceClose)
	}
	if msg.Price != "" {
		t.Errorf("Closed result carries no current price, got %q", msg.Price)
	}

	active := signal.Active(&signal.Signal{Symbol: "ETHUSDT"}, 3521.4, 10, 0)
	msg = b.message(Event{Category: CategoryActive, Symbol: "ETHUSDT", Result: active})
	if msg.Price != "3521.4000" {
		t.Errorf("Expected fallback precision on the current price, got %q", msg.Price)
	}

	plain := b.message(Event{Category: CategoryError, Symbol: "BTCUSDT", Err: errors.New("feed down")})
	if plain.Price != "" || plain.PriceClose != "" {
		t.Error("Events without a result must not carry price strings")
	}
}
