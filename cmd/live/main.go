// Command live runs one strategy against real-time data with crash-safe
// persistence, the NATS event bridge and a Prometheus endpoint.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/yourusername/signal-engine/pkg/config"
	"github.com/yourusername/signal-engine/pkg/event"
	"github.com/yourusername/signal-engine/pkg/indicators"
	"github.com/yourusername/signal-engine/pkg/market"
	"github.com/yourusername/signal-engine/pkg/metrics"
	"github.com/yourusername/signal-engine/pkg/risk"
	enginesignal "github.com/yourusername/signal-engine/pkg/signal"
	"github.com/yourusername/signal-engine/pkg/store"
	"github.com/yourusername/signal-engine/pkg/strategy"
	"github.com/yourusername/signal-engine/pkg/trader"
)

func main() {
	var (
		configPath = flag.String("config", "config/live.yaml", "engine config YAML")
		dataPath   = flag.String("data", "data/candles", "candle CSV directory")
		symbol     = flag.String("symbol", "BTCUSDT", "symbol to trade")
		exchange   = flag.String("exchange", "binance", "exchange name")
	)
	flag.Parse()

	engine, err := config.Load(*configPath)
	if err != nil {
		log.Printf("[Live] Config %s not loadable (%v), using defaults", *configPath, err)
		engine = config.Default()
	}

	bus := event.NewBus()
	defer bus.Close()

	if engine.NATSAddr != "" {
		bridge, err := event.AttachBridge(bus, engine.NATSAddr)
		if err != nil {
			log.Fatalf("[Live] Failed to attach NATS bridge: %v", err)
		}
		defer bridge.Close()
	}

	if engine.MetricsAddr != "" {
		go func() {
			log.Printf("[Live] Metrics on %s/metrics", engine.MetricsAddr)
			if err := metrics.Serve(engine.MetricsAddr); err != nil {
				log.Printf("[Live] Metrics server stopped: %v", err)
			}
		}()
	}

	// The CSV source stands in for an exchange adapter here; any CandleSource
	// implementation plugs in the same way.
	source := market.NewCSVSource(*dataPath)
	bounded := market.NewBoundedSource(source, engine)
	fileStore := store.NewFileStore(engine.StoreRoot)

	gate := risk.NewLimitGate("default", 3)
	if err := gate.Rebuild(fileStore, []risk.PositionRef{
		{Strategy: "ema-crossover", Symbol: *symbol},
	}); err != nil {
		log.Fatalf("[Live] Failed to rebuild risk gate: %v", err)
	}

	core, err := strategy.NewCore(*symbol, strategy.CoreConfig{
		Strategy:  "ema-crossover",
		Exchange:  *exchange,
		Interval:  market.Interval5m,
		GetSignal: emaCrossover(bounded),
		Gate:      gate,
		Source:    bounded,
		Store:     fileStore,
		Bus:       bus,
		Engine:    engine,
	})
	if err != nil {
		log.Fatalf("[Live] Failed to create core: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("[Live] Shutdown requested")
		cancel()
	}()

	driver := trader.NewLiveDriver(core, engine)
	driver.GracefulCloseOpen = true
	if err := driver.Run(ctx); err != nil {
		log.Fatalf("[Live] Driver failed: %v", err)
	}
}

// emaCrossover mirrors the backtest demo strategy so live and backtest runs
// stay comparable.
func emaCrossover(source *market.BoundedSource) strategy.GetSignalFunc {
	return func(ctx context.Context, symbol string, now int64) (*enginesignal.Draft, error) {
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

		return &enginesignal.Draft{
			Position:            enginesignal.Long,
			PriceTakeProfit:     price + 3*atr,
			PriceStopLoss:       price - 2*atr,
			MinuteEstimatedTime: 240,
			Note:                "ema 12/26 cross",
		}, nil
	}
}
