package strategy

import (
	"context"

	"github.com/yourusername/signal-engine/pkg/market"
	"github.com/yourusername/signal-engine/pkg/signal"
)

// Backtest fast-forwards the current signal through a batch of 1-minute
// candles. The driver calls it right after a tick produced a scheduled or
// opened signal; the returned result carries CloseTimestamp so the driver can
// skip the frame past the candles already consumed.
//
// Candle-level conventions:
//   - scheduled activation and pre-activation stop loss use the candle's
//     low (long) or high (short); the stop-loss check strictly precedes the
//     activation check;
//   - activation sets PendingAt to the next 1-minute boundary and the
//     activation candle is not evaluated for TP/SL, so the position is never
//     credited with activity inside that candle;
//   - when one candle spans both TP and SL of an active signal, take profit
//     wins;
//   - time expiration closes at the candle's close, only when neither TP nor
//     SL was hit in that candle.
func (c *Core) Backtest(ctx context.Context, candles []market.Candle) (*signal.TickResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	awaitMs := int64(c.cfg.Engine.ScheduleAwaitMinutes) * 60_000

	for _, candle := range candles {
		select {
		case <-ctx.Done():
			return c.stateResult(candle.Close), nil
		default:
		}

		activatedThisCandle := false

		if sig := c.scheduled; sig != nil {
			long := sig.Position == signal.Long

			if candle.Timestamp-sig.ScheduledAt >= awaitMs {
				res := c.cancelScheduled(sig, candle.Close, signal.CancelTimeout, candle.Timestamp)
				return c.finish(res, candle.Timestamp), nil
			}

			slTouched := (long && candle.Low <= sig.PriceStopLoss) ||
				(!long && candle.High >= sig.PriceStopLoss)
			if slTouched {
				res := c.cancelScheduled(sig, candle.Close, signal.CancelPreActivation, candle.Timestamp)
				return c.finish(res, candle.Timestamp), nil
			}

			openTouched := (long && candle.Low <= sig.PriceOpen) ||
				(!long && candle.High >= sig.PriceOpen)
			if openTouched {
				// The lifetime clock starts at the next 1-minute boundary.
				res := c.activateScheduled(ctx, sig, sig.PriceOpen, candle.Timestamp, candle.Timestamp+60_000)
				if res.Kind == signal.KindOpened {
					activatedThisCandle = true
					c.finish(res, candle.Timestamp)
				} else {
					return c.finish(res, candle.Timestamp), nil
				}
			}
		}

		if c.active != nil && !activatedThisCandle {
			if res := c.stepActiveCandle(candle); res != nil {
				return c.finish(res, candle.Timestamp), nil
			}
		}
	}

	return c.stateResult(lastClose(candles)), nil
}

// stepActiveCandle evaluates one candle against the active signal. It returns
// nil while the signal stays open.
func (c *Core) stepActiveCandle(candle market.Candle) *signal.TickResult {
	sig := c.active
	long := sig.Position == signal.Long

	tpHit := (long && candle.High >= sig.PriceTakeProfit) ||
		(!long && candle.Low <= sig.PriceTakeProfit)
	slHit := (long && candle.Low <= sig.PriceStopLoss) ||
		(!long && candle.High >= sig.PriceStopLoss)

	switch {
	case tpHit:
		// Tie-break: TP wins when a single candle crosses both levels.
		return c.closeActive(sig, candle.Close, sig.PriceTakeProfit, signal.CloseTakeProfit, candle.Timestamp)
	case slHit:
		return c.closeActive(sig, candle.Close, sig.PriceStopLoss, signal.CloseStopLoss, candle.Timestamp)
	case sig.ExpiresAt() <= candle.Timestamp:
		return c.closeActive(sig, candle.Close, candle.Close, signal.CloseTimeExpired, candle.Timestamp)
	default:
		progressTP, progressSL := progress(sig, candle.Close)
		c.fireMilestones(progressTP, progressSL, candle.Timestamp)
		return nil
	}
}

// stateResult describes the current slot state when the candle batch runs out
// without a close. CloseTimestamp stays zero so the driver resumes normal
// frame iteration.
func (c *Core) stateResult(price float64) *signal.TickResult {
	switch {
	case c.active != nil:
		progressTP, progressSL := progress(c.active, price)
		return signal.Active(c.active.Clone(), price, progressTP, progressSL)
	case c.scheduled != nil:
		return signal.Scheduled(c.scheduled.Clone(), price)
	default:
		return signal.Idle(price)
	}
}

func lastClose(candles []market.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	return candles[len(candles)-1].Close
}
