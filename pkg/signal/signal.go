// Package signal defines the signal data model, the tick result union, the
// validation pipeline and the cost-aware PnL accounting.
package signal

import (
	"github.com/google/uuid"
)

// Position is the direction of a signal.
type Position string

const (
	Long  Position = "long"
	Short Position = "short"
)

// Valid reports whether p is a known position.
func (p Position) Valid() bool { return p == Long || p == Short }

// Draft is what a strategy callback returns. PriceOpen == 0 means a market
// signal; a positive PriceOpen requests a limit/scheduled entry.
type Draft struct {
	ID                  string   `json:"id,omitempty"`
	Position            Position `json:"position"`
	PriceOpen           float64  `json:"priceOpen,omitempty"`
	PriceTakeProfit     float64  `json:"priceTakeProfit"`
	PriceStopLoss       float64  `json:"priceStopLoss"`
	MinuteEstimatedTime int      `json:"minuteEstimatedTime"`
	Note                string   `json:"note,omitempty"`
}

// Signal is a validated, engine-augmented draft.
//
// ScheduledAt is the creation time; PendingAt is the activation time. They
// differ for scheduled signals: the estimated lifetime is consumed from
// PendingAt, never from the waiting period.
type Signal struct {
	ID                  string   `json:"id"`
	Symbol              string   `json:"symbol"`
	StrategyName        string   `json:"strategyName"`
	ExchangeName        string   `json:"exchangeName"`
	Position            Position `json:"position"`
	PriceOpen           float64  `json:"priceOpen"`
	PriceTakeProfit     float64  `json:"priceTakeProfit"`
	PriceStopLoss       float64  `json:"priceStopLoss"`
	MinuteEstimatedTime int      `json:"minuteEstimatedTime"`
	Note                string   `json:"note,omitempty"`
	ScheduledAt         int64    `json:"scheduledAt"`
	PendingAt           int64    `json:"pendingAt"`
	IsScheduled         bool     `json:"isScheduled"`
}

// NewID returns an engine-assigned signal id.
func NewID() string { return uuid.NewString() }

// FromDraft builds a Signal from a draft plus the execution identity. The id
// is taken from the draft when the caller supplied one.
func FromDraft(d *Draft, symbol, strategy, exchange string, now int64, isScheduled bool) *Signal {
	id := d.ID
	if id == "" {
		id = NewID()
	}
	return &Signal{
		ID:                  id,
		Symbol:              symbol,
		StrategyName:        strategy,
		ExchangeName:        exchange,
		Position:            d.Position,
		PriceOpen:           d.PriceOpen,
		PriceTakeProfit:     d.PriceTakeProfit,
		PriceStopLoss:       d.PriceStopLoss,
		MinuteEstimatedTime: d.MinuteEstimatedTime,
		Note:                d.Note,
		ScheduledAt:         now,
		PendingAt:           now,
		IsScheduled:         isScheduled,
	}
}

// ExpiresAt returns the time-expiration deadline, measured from PendingAt.
func (s *Signal) ExpiresAt() int64 {
	return s.PendingAt + int64(s.MinuteEstimatedTime)*60_000
}

// Clone returns a copy so callers can hand signals to listeners without
// sharing the core's mutable record.
func (s *Signal) Clone() *Signal {
	c := *s
	return &c
}

// Kind discriminates a TickResult.
type Kind string

const (
	KindIdle      Kind = "idle"
	KindScheduled Kind = "scheduled"
	KindOpened    Kind = "opened"
	KindActive    Kind = "active"
	KindClosed    Kind = "closed"
	KindCancelled Kind = "cancelled"
)

// CloseReason says why an active signal closed.
type CloseReason string

const (
	CloseTakeProfit  CloseReason = "take_profit"
	CloseStopLoss    CloseReason = "stop_loss"
	CloseTimeExpired CloseReason = "time_expired"
	CloseManual      CloseReason = "manual_close"
)

// CancelReason says why a scheduled signal never opened.
type CancelReason string

const (
	CancelTimeout       CancelReason = "timeout"
	CancelPreActivation CancelReason = "pre_activation_stoploss"
	CancelRiskRejected  CancelReason = "risk_rejected"
	CancelManual        CancelReason = "manual_cancel"
)

// PnL is the cost-adjusted outcome of a closed signal.
type PnL struct {
	PriceOpenWithCosts  float64 `json:"priceOpenWithCosts"`
	PriceCloseWithCosts float64 `json:"priceCloseWithCosts"`
	PnLPercentage       float64 `json:"pnlPercentage"`
}

// TickResult is the tagged union every tick resolves to. Kind selects which
// fields are meaningful.
type TickResult struct {
	Kind         Kind         `json:"kind"`
	Signal       *Signal      `json:"signal,omitempty"`
	CurrentPrice float64      `json:"currentPrice,omitempty"`
	ProgressTP   float64      `json:"progressTakeProfitPct,omitempty"` // active only
	ProgressSL   float64      `json:"progressStopLossPct,omitempty"`   // active only
	PriceClose   float64      `json:"priceClose,omitempty"`            // closed only
	CloseReason  CloseReason  `json:"closeReason,omitempty"`
	CancelReason CancelReason `json:"cancelReason,omitempty"`
	// CloseTimestamp is set for closed and cancelled results. The backtest
	// driver uses it to skip the frame forward.
	CloseTimestamp int64 `json:"closeTimestamp,omitempty"`
	PnL            *PnL  `json:"pnl,omitempty"`
}

// Idle builds an idle result.
func Idle(currentPrice float64) *TickResult {
	return &TickResult{Kind: KindIdle, CurrentPrice: currentPrice}
}

// Scheduled builds a scheduled result.
func Scheduled(sig *Signal, currentPrice float64) *TickResult {
	return &TickResult{Kind: KindScheduled, Signal: sig, CurrentPrice: currentPrice}
}

// Opened builds an opened result.
func Opened(sig *Signal, currentPrice float64) *TickResult {
	return &TickResult{Kind: KindOpened, Signal: sig, CurrentPrice: currentPrice}
}

// Active builds an active (monitoring) result.
func Active(sig *Signal, currentPrice, progressTP, progressSL float64) *TickResult {
	return &TickResult{
		Kind:         KindActive,
		Signal:       sig,
		CurrentPrice: currentPrice,
		ProgressTP:   progressTP,
		ProgressSL:   progressSL,
	}
}

// Closed builds a closed result.
func Closed(sig *Signal, priceClose float64, reason CloseReason, closeTimestamp int64, pnl *PnL) *TickResult {
	return &TickResult{
		Kind:           KindClosed,
		Signal:         sig,
		PriceClose:     priceClose,
		CloseReason:    reason,
		CloseTimestamp: closeTimestamp,
		PnL:            pnl,
	}
}

// Cancelled builds a cancelled result.
func Cancelled(sig *Signal, currentPrice float64, reason CancelReason, closeTimestamp int64) *TickResult {
	return &TickResult{
		Kind:           KindCancelled,
		Signal:         sig,
		CurrentPrice:   currentPrice,
		CancelReason:   reason,
		CloseTimestamp: closeTimestamp,
	}
}
