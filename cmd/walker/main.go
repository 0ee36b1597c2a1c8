// Command walker backtests several strategies over the same frame and ranks
// them by a chosen metric.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/signal-engine/pkg/backtest"
	"github.com/yourusername/signal-engine/pkg/config"
	"github.com/yourusername/signal-engine/pkg/event"
	"github.com/yourusername/signal-engine/pkg/indicators"
	"github.com/yourusername/signal-engine/pkg/market"
	"github.com/yourusername/signal-engine/pkg/risk"
	"github.com/yourusername/signal-engine/pkg/signal"
	"github.com/yourusername/signal-engine/pkg/strategy"
)

func main() {
	var (
		dataPath = flag.String("data", "data/candles", "candle CSV directory")
		symbol   = flag.String("symbol", "BTCUSDT", "symbol to backtest")
		exchange = flag.String("exchange", "binance", "exchange name")
		startStr = flag.String("start", "", "frame start (2006-01-02)")
		endStr   = flag.String("end", "", "frame end (2006-01-02)")
		metric   = flag.String("metric", "pnl", "ranking metric: pnl, sharpe, winrate")
	)
	flag.Parse()

	start, err := time.Parse("2006-01-02", *startStr)
	if err != nil {
		log.Fatalf("[Walker] Invalid start date: %v", err)
	}
	end, err := time.Parse("2006-01-02", *endStr)
	if err != nil {
		log.Fatalf("[Walker] Invalid end date: %v", err)
	}

	frame, err := backtest.NewFrame(fmt.Sprintf("%s..%s", *startStr, *endStr),
		start.UnixMilli(), end.UnixMilli(), market.Interval15m)
	if err != nil {
		log.Fatalf("[Walker] Failed to build frame: %v", err)
	}

	engine := config.Default()
	source := market.NewCSVSource(*dataPath)
	bounded := market.NewBoundedSource(source, engine)
	bus := event.NewBus()
	defer bus.Close()

	entries := []backtest.WalkerEntry{}
	for _, params := range []struct {
		name       string
		fast, slow int
	}{
		{"ema-12-26", 12, 26},
		{"ema-9-21", 9, 21},
		{"ema-20-50", 20, 50},
	} {
		entries = append(entries, backtest.WalkerEntry{
			Name: params.name,
			Config: strategy.CoreConfig{
				Strategy:  params.name,
				Exchange:  *exchange,
				Interval:  market.Interval15m,
				GetSignal: emaCrossover(bounded, params.fast, params.slow),
				Gate:      risk.NewLimitGate(params.name, 1),
				Source:    bounded,
				Bus:       bus,
				Engine:    engine,
			},
		})
	}

	walker := &backtest.Walker{
		Symbol:  *symbol,
		Frame:   frame,
		Source:  source,
		Engine:  engine,
		Metric:  backtest.Metric(*metric),
		Entries: entries,
	}

	if _, err := walker.Run(context.Background()); err != nil {
		log.Fatalf("[Walker] Run failed: %v", err)
	}
}

func emaCrossover(source *market.BoundedSource, fastPeriod, slowPeriod int) strategy.GetSignalFunc {
	return func(ctx context.Context, symbol string, now int64) (*signal.Draft, error) {
		lookback := int64(slowPeriod * 8)
		since := now - lookback*market.Interval15m.Ms()
		candles, err := source.GetCandles(ctx, symbol, market.Interval15m, since, int(lookback))
		if err != nil {
			return nil, err
		}
		if len(candles) < slowPeriod*2 {
			return nil, nil
		}

		fast := indicators.EMA(candles, fastPeriod)
		slow := indicators.EMA(candles, slowPeriod)
		prevFast := indicators.EMA(candles[:len(candles)-1], fastPeriod)
		prevSlow := indicators.EMA(candles[:len(candles)-1], slowPeriod)
		if !(prevFast <= prevSlow && fast > slow) {
			return nil, nil
		}

		atr := indicators.ATR(candles, 14)
		price := candles[len(candles)-1].Close
		if atr == 0 {
			return nil, nil
		}

		return &signal.Draft{
			Position:            signal.Long,
			PriceTakeProfit:     price + 3*atr,
			PriceStopLoss:       price - 2*atr,
			MinuteEstimatedTime: 360,
		}, nil
	}
}
