package signal

import (
	"fmt"
	"math"
	"strings"

	"github.com/yourusername/signal-engine/pkg/config"
)

// ValidationError aggregates every violation found in a single pass, so a
// rejected signal reports all of its problems at once.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid signal: %s", strings.Join(e.Violations, "; "))
}

// Validate rejects structurally or economically unsound signals before they
// can affect engine state. sig must already be augmented (FromDraft) with the
// engine identity and, for market signals, the current price as PriceOpen.
func Validate(sig *Signal, currentPrice float64, cfg *config.EngineConfig) error {
	var v []string

	// Structural
	if sig.ID == "" {
		v = append(v, "id must be non-empty")
	}
	if sig.Symbol == "" {
		v = append(v, "symbol must be non-empty")
	}
	if sig.StrategyName == "" {
		v = append(v, "strategyName must be non-empty")
	}
	if sig.ExchangeName == "" {
		v = append(v, "exchangeName must be non-empty")
	}
	if !sig.Position.Valid() {
		v = append(v, fmt.Sprintf("position must be long or short, got %q", sig.Position))
	}

	// Numeric
	prices := map[string]float64{
		"currentPrice":    currentPrice,
		"priceTakeProfit": sig.PriceTakeProfit,
		"priceStopLoss":   sig.PriceStopLoss,
	}
	if sig.PriceOpen != 0 || sig.IsScheduled {
		prices["priceOpen"] = sig.PriceOpen
	}
	numericOK := true
	for name, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
			v = append(v, fmt.Sprintf("%s must be finite and positive, got %v", name, p))
			numericOK = false
		}
	}

	// Ordering and closure checks only make sense on sane numbers.
	if numericOK && sig.Position.Valid() {
		open := sig.PriceOpen
		if open == 0 {
			open = currentPrice
		}
		v = append(v, validateLevels(sig, open, currentPrice, cfg)...)
	}

	// Lifetime
	if sig.MinuteEstimatedTime <= 0 {
		v = append(v, fmt.Sprintf("minuteEstimatedTime must be a positive integer, got %d", sig.MinuteEstimatedTime))
	} else if sig.MinuteEstimatedTime > cfg.MaxSignalLifetimeMinutes {
		v = append(v, fmt.Sprintf("minuteEstimatedTime %d exceeds maximum %d",
			sig.MinuteEstimatedTime, cfg.MaxSignalLifetimeMinutes))
	}

	if len(v) > 0 {
		return &ValidationError{Violations: v}
	}
	return nil
}

func validateLevels(sig *Signal, open, currentPrice float64, cfg *config.EngineConfig) []string {
	var v []string
	tp, sl := sig.PriceTakeProfit, sig.PriceStopLoss

	switch sig.Position {
	case Long:
		if !(sl < open && open < tp) {
			v = append(v, fmt.Sprintf("long requires priceStopLoss < priceOpen < priceTakeProfit, got %v < %v < %v", sl, open, tp))
		}
		if !sig.IsScheduled && !(sl < currentPrice && currentPrice < tp) {
			v = append(v, fmt.Sprintf("currentPrice %v would close the long signal on open", currentPrice))
		}
		if sig.IsScheduled && !(sl < sig.PriceOpen && sig.PriceOpen < tp) {
			v = append(v, fmt.Sprintf("priceOpen %v would close the scheduled long signal on activation", sig.PriceOpen))
		}
	case Short:
		if !(tp < open && open < sl) {
			v = append(v, fmt.Sprintf("short requires priceTakeProfit < priceOpen < priceStopLoss, got %v < %v < %v", tp, open, sl))
		}
		if !sig.IsScheduled && !(tp < currentPrice && currentPrice < sl) {
			v = append(v, fmt.Sprintf("currentPrice %v would close the short signal on open", currentPrice))
		}
		if sig.IsScheduled && !(tp < sig.PriceOpen && sig.PriceOpen < sl) {
			v = append(v, fmt.Sprintf("priceOpen %v would close the scheduled short signal on activation", sig.PriceOpen))
		}
	}

	// Distance thresholds, measured from the effective open price.
	tpDist := math.Abs(tp-open) / open * 100
	slDist := math.Abs(open-sl) / open * 100
	if tpDist < cfg.MinTPDistancePct {
		v = append(v, fmt.Sprintf("take profit distance %.3f%% below minimum %.3f%%", tpDist, cfg.MinTPDistancePct))
	}
	if slDist < cfg.MinSLDistancePct {
		v = append(v, fmt.Sprintf("stop loss distance %.3f%% below minimum %.3f%%", slDist, cfg.MinSLDistancePct))
	}
	if slDist > cfg.MaxSLDistancePct {
		v = append(v, fmt.Sprintf("stop loss distance %.3f%% above maximum %.3f%%", slDist, cfg.MaxSLDistancePct))
	}

	return v
}
