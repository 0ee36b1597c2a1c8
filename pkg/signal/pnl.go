package signal

// ComputePnL applies the symmetric cost model to a closed signal. Percent
// arguments are in percent units (0.1 means 0.1%).
//
// LONG pays slippage+fee on entry and again on exit; SHORT enters on the sell
// side, so slippage works in its favor on entry but fees never do.
func ComputePnL(position Position, priceOpen, priceClose, slippagePct, feePct float64) *PnL {
	slip := slippagePct / 100
	fee := feePct / 100

	var entry, exit, pnlPct float64
	switch position {
	case Long:
		entry = priceOpen * (1 + slip + fee)
		exit = priceClose * (1 - slip - fee)
		pnlPct = (exit - entry) / entry * 100
	case Short:
		entry = priceOpen * (1 - slip + fee)
		exit = priceClose * (1 + slip + fee)
		pnlPct = (entry - exit) / entry * 100
	}

	return &PnL{
		PriceOpenWithCosts:  entry,
		PriceCloseWithCosts: exit,
		PnLPercentage:       pnlPct,
	}
}
