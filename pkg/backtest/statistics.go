package backtest

import (
	"fmt"
	"log"

	"github.com/yourusername/signal-engine/pkg/signal"
	"github.com/yourusername/signal-engine/pkg/stats"
)

// Statistics accumulates tick results over one backtest run.
type Statistics struct {
	strategy string
	symbol   string

	pnlSeries *stats.Series
	wins      int
	losses    int
	cancelled int
	byReason  map[signal.CloseReason]int
}

// Result is the summary of one backtest run.
type Result struct {
	Strategy    string
	Symbol      string
	Trades      int
	Wins        int
	Losses      int
	Cancelled   int
	WinRate     float64 // 0..1
	TotalPnLPct float64
	Sharpe      float64
	MaxDrawdown float64
	ByReason    map[signal.CloseReason]int
}

// NewStatistics creates an empty collector.
func NewStatistics(strategy, symbol string) *Statistics {
	return &Statistics{
		strategy:  strategy,
		symbol:    symbol,
		pnlSeries: stats.NewSeries(),
		byReason:  make(map[signal.CloseReason]int),
	}
}

// OnResult records one tick result. Only closed and cancelled results affect
// the summary.
func (s *Statistics) OnResult(res *signal.TickResult) {
	switch res.Kind {
	case signal.KindClosed:
		if res.PnL == nil {
			return
		}
		s.pnlSeries.Append(res.PnL.PnLPercentage)
		s.byReason[res.CloseReason]++
		if res.PnL.PnLPercentage > 0 {
			s.wins++
		} else {
			s.losses++
		}
	case signal.KindCancelled:
		s.cancelled++
	}
}

// Report builds the run summary.
func (s *Statistics) Report() *Result {
	trades := s.wins + s.losses
	winRate := 0.0
	if trades > 0 {
		winRate = float64(s.wins) / float64(trades)
	}
	return &Result{
		Strategy:    s.strategy,
		Symbol:      s.symbol,
		Trades:      trades,
		Wins:        s.wins,
		Losses:      s.losses,
		Cancelled:   s.cancelled,
		WinRate:     winRate,
		TotalPnLPct: s.pnlSeries.Sum(),
		Sharpe:      s.pnlSeries.Sharpe(),
		MaxDrawdown: s.pnlSeries.MaxDrawdown(),
		ByReason:    s.byReason,
	}
}

// PrintSummary logs the run summary.
func (s *Statistics) PrintSummary() {
	r := s.Report()
	log.Println("[Backtest] ========================================")
	log.Printf("[Backtest] Strategy:     %s (%s)", r.Strategy, r.Symbol)
	log.Printf("[Backtest] Trades:       %d (%d wins / %d losses, %d cancelled)",
		r.Trades, r.Wins, r.Losses, r.Cancelled)
	log.Printf("[Backtest] Win Rate:     %.1f%%", r.WinRate*100)
	log.Printf("[Backtest] Total PnL:    %.3f%%", r.TotalPnLPct)
	log.Printf("[Backtest] Sharpe:       %.3f", r.Sharpe)
	log.Printf("[Backtest] Max Drawdown: %.3f%%", r.MaxDrawdown)
	for reason, n := range r.ByReason {
		log.Printf("[Backtest]   %-14s %d", fmt.Sprintf("%s:", reason), n)
	}
	log.Println("[Backtest] ========================================")
}
