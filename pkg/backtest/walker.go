package backtest

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/yourusername/signal-engine/pkg/config"
	"github.com/yourusername/signal-engine/pkg/market"
	"github.com/yourusername/signal-engine/pkg/strategy"
)

// Metric selects how the walker ranks strategies.
type Metric string

const (
	MetricPnL     Metric = "pnl"
	MetricSharpe  Metric = "sharpe"
	MetricWinRate Metric = "winrate"
)

// WalkerEntry is one strategy to evaluate.
type WalkerEntry struct {
	Name   string
	Config strategy.CoreConfig
}

// Ranked is one strategy's outcome with its rank.
type Ranked struct {
	Rank   int
	Result *Result
	Score  float64
}

// Walker sequentially backtests several strategies on the same symbol and
// frame, then ranks them by the chosen metric.
type Walker struct {
	Symbol  string
	Frame   *Frame
	Source  market.CandleSource
	Engine  *config.EngineConfig
	Metric  Metric
	Entries []WalkerEntry

	// OnComplete, when set, fires after each strategy finishes.
	OnComplete func(*Result)
}

// Run executes every entry and returns the ranked results, best first.
func (w *Walker) Run(ctx context.Context) ([]Ranked, error) {
	if len(w.Entries) == 0 {
		return nil, fmt.Errorf("walker has no strategies")
	}
	if w.Metric == "" {
		w.Metric = MetricPnL
	}
	if w.Engine == nil {
		w.Engine = config.Default()
	}

	results := make([]*Result, 0, len(w.Entries))
	for i, entry := range w.Entries {
		log.Printf("[Walker] ========================================")
		log.Printf("[Walker] Running backtest %d/%d: %s", i+1, len(w.Entries), entry.Name)
		log.Printf("[Walker] ========================================")

		core, err := strategy.NewCore(w.Symbol, entry.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to create core for %s: %w", entry.Name, err)
		}

		driver := NewDriver(core, w.Source, w.Frame, w.Engine)
		_, report, err := driver.Run(ctx)
		if err != nil {
			return nil, fmt.Errorf("backtest for %s failed: %w", entry.Name, err)
		}

		results = append(results, report)
		if w.OnComplete != nil {
			w.OnComplete(report)
		}
	}

	ranked := rank(results, w.Metric)
	printRanking(ranked, w.Metric)
	return ranked, nil
}

func rank(results []*Result, metric Metric) []Ranked {
	ranked := make([]Ranked, len(results))
	for i, r := range results {
		ranked[i] = Ranked{Result: r, Score: score(r, metric)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

func score(r *Result, metric Metric) float64 {
	switch metric {
	case MetricSharpe:
		return r.Sharpe
	case MetricWinRate:
		return r.WinRate
	default:
		return r.TotalPnLPct
	}
}

func printRanking(ranked []Ranked, metric Metric) {
	log.Println("[Walker] ========================================")
	log.Printf("[Walker] RANKING (by %s)", metric)
	log.Println("[Walker] ========================================")
	for _, r := range ranked {
		log.Printf("[Walker] #%d %-24s score=%.3f trades=%d winrate=%.1f%% pnl=%.3f%%",
			r.Rank, r.Result.Strategy, r.Score, r.Result.Trades,
			r.Result.WinRate*100, r.Result.TotalPnLPct)
	}
	log.Println("[Walker] ========================================")
}
