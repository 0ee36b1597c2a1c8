package event

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"

	"github.com/yourusername/signal-engine/pkg/priceutil"
	"github.com/yourusername/signal-engine/pkg/signal"
)

// wirePrecision is the decimal places for display prices on the wire when no
// per-symbol precision was set.
const wirePrecision = 4

// Bridge republishes lifecycle events to NATS so external consumers (alerting,
// dashboards) can follow a live engine without being in-process listeners.
// Subjects: signals.<strategy>.<symbol>.<category>.
type Bridge struct {
	nc     *nats.Conn
	prices *priceutil.Formatter
	unsub  func()
}

// bridgeMessage is the wire shape published per event. Price and PriceClose
// are decimal-rendered display strings so consumers never re-round floats.
type bridgeMessage struct {
	Category   Category           `json:"category"`
	Symbol     string             `json:"symbol"`
	Strategy   string             `json:"strategy"`
	Timestamp  int64              `json:"timestamp"`
	Price      string             `json:"price,omitempty"`
	PriceClose string             `json:"priceClose,omitempty"`
	Result     *signal.TickResult `json:"result,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// AttachBridge connects to NATS and subscribes the bridge to every event on
// the bus. Close the returned bridge to detach.
func AttachBridge(bus *Bus, natsURL string) (*Bridge, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Printf("[EventBridge] Connected to NATS: %s", natsURL)

	b := &Bridge{nc: nc, prices: priceutil.NewFormatter(wirePrecision)}
	b.unsub = bus.Subscribe(b.publish)
	return b, nil
}

// SetPrecision fixes the decimal places used for one symbol's wire prices.
func (b *Bridge) SetPrecision(symbol string, places int32) {
	b.prices.SetPrecision(symbol, places)
}

// message builds the wire shape for one event.
func (b *Bridge) message(e Event) bridgeMessage {
	msg := bridgeMessage{
		Category:  e.Category,
		Symbol:    e.Symbol,
		Strategy:  e.Strategy,
		Timestamp: e.Timestamp,
	}
	if e.Result != nil {
		msg.Result = e.Result
		if e.Result.CurrentPrice > 0 {
			msg.Price = b.prices.Format(e.Symbol, e.Result.CurrentPrice)
		}
		if e.Result.Kind == signal.KindClosed {
			msg.PriceClose = b.prices.Format(e.Symbol, e.Result.PriceClose)
		}
	}
	if e.Err != nil {
		msg.Error = e.Err.Error()
	}
	return msg
}

func (b *Bridge) publish(e Event) {
	msg := b.message(e)
	data, err := json.Marshal(&msg)
	if err != nil {
		log.Printf("[EventBridge] Failed to marshal event: %v", err)
		return
	}

	subject := fmt.Sprintf("signals.%s.%s.%s", sanitize(e.Strategy), sanitize(e.Symbol), e.Category)
	if err := b.nc.Publish(subject, data); err != nil {
		log.Printf("[EventBridge] Failed to publish to %s: %v", subject, err)
	}
}

// Close detaches from the bus and closes the NATS connection.
func (b *Bridge) Close() {
	if b.unsub != nil {
		b.unsub()
	}
	if b.nc != nil {
		b.nc.Flush()
		b.nc.Close()
	}
}

// sanitize keeps subjects valid when identity fields are empty.
func sanitize(s string) string {
	if s == "" {
		return "_"
	}
	return s
}
