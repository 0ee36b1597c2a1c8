package signal

import (
	"math"
	"testing"
)

func TestComputePnL_LongTakeProfit(t *testing.T) {
	// Entry 100000, exit 101000, 0.1% slippage + 0.1% fee each way.
	pnl := ComputePnL(Long, 100000, 101000, 0.1, 0.1)

	if math.Abs(pnl.PriceOpenWithCosts-100200) > 1e-6 {
		t.Errorf("Expected costed entry 100200, got %v", pnl.PriceOpenWithCosts)
	}
	if math.Abs(pnl.PriceCloseWithCosts-100798) > 1e-6 {
		t.Errorf("Expected costed exit 100798, got %v", pnl.PriceCloseWithCosts)
	}
	if math.Abs(pnl.PnLPercentage-0.5968) > 0.001 {
		t.Errorf("Expected pnl ~0.5968%%, got %v", pnl.PnLPercentage)
	}
}

func TestComputePnL_LongStopLoss(t *testing.T) {
	pnl := ComputePnL(Long, 100000, 99000, 0.1, 0.1)
	// (99000*0.998 - 100000*1.002) / 100200 * 100
	if math.Abs(pnl.PnLPercentage-(-1.3952)) > 0.001 {
		t.Errorf("Expected pnl ~-1.3952%%, got %v", pnl.PnLPercentage)
	}
}

func TestComputePnL_ShortProfit(t *testing.T) {
	pnl := ComputePnL(Short, 100000, 99000, 0.1, 0.1)
	if pnl.PnLPercentage <= 0 {
		t.Errorf("Expected positive pnl for a short closed below entry, got %v", pnl.PnLPercentage)
	}
}

func TestComputePnL_CostsEatSmallMoves(t *testing.T) {
	// A 0.1% favorable move cannot clear 0.4% of round-trip costs.
	pnl := ComputePnL(Long, 100000, 100100, 0.1, 0.1)
	if pnl.PnLPercentage >= 0 {
		t.Errorf("Expected negative pnl below the cost floor, got %v", pnl.PnLPercentage)
	}
}

// A long closed at its own TP earns strictly less than the raw TP distance
// minus round-trip costs would suggest, and is profitable only above the
// cost floor.
func TestComputePnL_RoundTripBound(t *testing.T) {
	const open = 100000.0
	for _, tpPct := range []float64{0.3, 0.5, 1.0, 2.0} {
		closePrice := open * (1 + tpPct/100)
		pnl := ComputePnL(Long, open, closePrice, 0.1, 0.1)

		ceiling := tpPct - 2*(0.1+0.1)
		if pnl.PnLPercentage >= ceiling+1e-9 {
			t.Errorf("tp=%.1f%%: pnl %.4f%% not below cost-adjusted ceiling %.4f%%",
				tpPct, pnl.PnLPercentage, ceiling)
		}
		if tpPct > 2*(0.1+0.1)+0.01 && pnl.PnLPercentage <= 0 {
			t.Errorf("tp=%.1f%%: expected profit above the cost floor, got %.4f%%", tpPct, pnl.PnLPercentage)
		}
	}
}
