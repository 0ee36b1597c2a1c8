// Command backtest runs one strategy over a historical frame from CSV data.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
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
		configPath = flag.String("config", "", "engine config YAML (optional)")
		dataPath   = flag.String("data", "data/candles", "candle CSV directory")
		symbol     = flag.String("symbol", "BTCUSDT", "symbol to backtest")
		exchange   = flag.String("exchange", "binance", "exchange name")
		startStr   = flag.String("start", "", "frame start (2006-01-02)")
		endStr     = flag.String("end", "", "frame end (2006-01-02)")
		interval   = flag.String("interval", "5m", "frame interval")
	)
	flag.Parse()

	engine := config.Default()
	if *configPath != "" {
		var err error
		engine, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("[Backtest] Failed to load config: %v", err)
		}
	}

	start, end, err := parseRange(*startStr, *endStr)
	if err != nil {
		log.Fatalf("[Backtest] %v", err)
	}
	frameInterval, err := market.ParseInterval(*interval)
	if err != nil {
		log.Fatalf("[Backtest] %v", err)
	}

	frame, err := backtest.NewFrame(fmt.Sprintf("%s..%s", *startStr, *endStr), start, end, frameInterval)
	if err != nil {
		log.Fatalf("[Backtest] Failed to build frame: %v", err)
	}

	source := market.NewCSVSource(*dataPath)
	bounded := market.NewBoundedSource(source, engine)
	bus := event.NewBus()
	defer bus.Close()

	core, err := strategy.NewCore(*symbol, strategy.CoreConfig{
		Strategy:  "ema-crossover",
		Exchange:  *exchange,
		Interval:  market.Interval5m,
		GetSignal: emaCrossover(bounded),
		Gate:      risk.NewLimitGate("default", 1),
		Source:    bounded,
		Store:     nil, // backtests skip persistence
		Bus:       bus,
		Engine:    engine,
	})
	if err != nil {
		log.Fatalf("[Backtest] Failed to create core: %v", err)
	}

	driver := backtest.NewDriver(core, source, frame, engine)
	if _, _, err := driver.Run(context.Background()); err != nil {
		log.Printf("[Backtest] Run failed: %v", err)
		os.Exit(1)
	}
	driver.PrintSummary()
}

// emaCrossover opens a long when the fast EMA crosses above the slow EMA,
// with ATR-derived levels.
func emaCrossover(source *market.BoundedSource) strategy.GetSignalFunc {
	return func(ctx context.Context, symbol string, now int64) (*signal.Draft, error) {
		since := now - 200*market.Interval5m.Ms()
		candles, err := source.GetCandles(ctx, symbol, market.Interval5m, since, 200)
		if err != nil {
			return nil, err
		}
		if len(candles) < 60 {
			return nil, nil
		}

		fast := indicators.EMA(candles, 12)
		slow := indicators.EMA(candles, 26)
		prevFast := indicators.EMA(candles[:len(candles)-1], 12)
		prevSlow := indicators.EMA(candles[:len(candles)-1], 26)
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
			MinuteEstimatedTime: 240,
			Note:                "ema 12/26 cross",
		}, nil
	}
}

func parseRange(startStr, endStr string) (int64, int64, error) {
	if startStr == "" || endStr == "" {
		return 0, 0, fmt.Errorf("both -start and -end are required")
	}
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid end date: %w", err)
	}
	return start.UnixMilli(), end.UnixMilli(), nil
}
