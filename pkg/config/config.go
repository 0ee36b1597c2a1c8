// Package config loads and validates the engine configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EngineConfig is the complete runtime configuration for the signal engine.
// All percent fields are expressed in percent units (0.5 means 0.5%).
type EngineConfig struct {
	// Validation thresholds
	MinTPDistancePct float64 `yaml:"min_tp_distance_pct"` // TP must clear entry+exit costs
	MinSLDistancePct float64 `yaml:"min_sl_distance_pct"` // SL must clear normal volatility
	MaxSLDistancePct float64 `yaml:"max_sl_distance_pct"` // caps single-trade loss

	// Signal lifetime
	MaxSignalLifetimeMinutes int `yaml:"max_signal_lifetime_minutes"`
	ScheduleAwaitMinutes     int `yaml:"schedule_await_minutes"`

	// PnL cost model
	SlippagePct float64 `yaml:"slippage_pct"`
	FeePct      float64 `yaml:"fee_pct"`

	// Execution timing
	MaxSignalGenerationSeconds int   `yaml:"max_signal_generation_seconds"`
	TickIntervalMs             int64 `yaml:"tick_interval_ms"`
	ShutdownHardTimeoutMinutes int   `yaml:"shutdown_hard_timeout_minutes"`

	// Candle hygiene
	AnomalyThresholdFactor float64 `yaml:"anomaly_threshold_factor"`
	MinCandlesForAverage   int     `yaml:"min_candles_for_average"`
	VWAPWindow             int     `yaml:"vwap_window"`

	// Backtest fast path: how many 1m candles to fetch when fast-forwarding
	BacktestHorizonCandles int `yaml:"backtest_horizon_candles"`

	// Milestone thresholds for partial profit/loss events
	MilestoneThresholdsPct []float64 `yaml:"milestone_thresholds_pct"`

	// Infrastructure
	StoreRoot   string `yaml:"store_root"`
	NATSAddr    string `yaml:"nats_addr"`    // empty disables the event bridge
	MetricsAddr string `yaml:"metrics_addr"` // empty disables /metrics
}

// Default returns a configuration with every field at its default.
func Default() *EngineConfig {
	cfg := &EngineConfig{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from a YAML file and validates it.
func Load(filepath string) (*EngineConfig, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg EngineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Save writes the configuration to a YAML file.
func Save(filepath string, cfg *EngineConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate fills defaults and rejects unusable values.
func (c *EngineConfig) Validate() error {
	c.applyDefaults()

	if c.MinTPDistancePct < 0 || c.MinSLDistancePct < 0 {
		return fmt.Errorf("distance thresholds must be non-negative")
	}
	if c.MaxSLDistancePct <= c.MinSLDistancePct {
		return fmt.Errorf("max_sl_distance_pct (%.2f) must exceed min_sl_distance_pct (%.2f)",
			c.MaxSLDistancePct, c.MinSLDistancePct)
	}
	if c.SlippagePct < 0 || c.FeePct < 0 {
		return fmt.Errorf("slippage_pct and fee_pct must be non-negative")
	}
	if c.MaxSignalLifetimeMinutes <= 0 {
		return fmt.Errorf("max_signal_lifetime_minutes must be positive")
	}
	if c.ScheduleAwaitMinutes <= 0 {
		return fmt.Errorf("schedule_await_minutes must be positive")
	}
	if c.VWAPWindow <= 0 || c.MinCandlesForAverage <= 0 {
		return fmt.Errorf("vwap_window and min_candles_for_average must be positive")
	}
	for _, t := range c.MilestoneThresholdsPct {
		if t <= 0 || t > 100 {
			return fmt.Errorf("milestone threshold %.1f out of range (0, 100]", t)
		}
	}
	return nil
}

func (c *EngineConfig) applyDefaults() {
	if c.MinTPDistancePct == 0 {
		c.MinTPDistancePct = 0.5
	}
	if c.MinSLDistancePct == 0 {
		c.MinSLDistancePct = 0.5
	}
	if c.MaxSLDistancePct == 0 {
		c.MaxSLDistancePct = 20
	}
	if c.MaxSignalLifetimeMinutes == 0 {
		c.MaxSignalLifetimeMinutes = 1440
	}
	if c.ScheduleAwaitMinutes == 0 {
		c.ScheduleAwaitMinutes = 120
	}
	if c.SlippagePct == 0 {
		c.SlippagePct = 0.1
	}
	if c.FeePct == 0 {
		c.FeePct = 0.1
	}
	if c.MaxSignalGenerationSeconds == 0 {
		c.MaxSignalGenerationSeconds = 180
	}
	if c.TickIntervalMs == 0 {
		c.TickIntervalMs = 60_001
	}
	if c.ShutdownHardTimeoutMinutes == 0 {
		c.ShutdownHardTimeoutMinutes = 30
	}
	if c.AnomalyThresholdFactor == 0 {
		c.AnomalyThresholdFactor = 1000
	}
	if c.MinCandlesForAverage == 0 {
		c.MinCandlesForAverage = 5
	}
	if c.VWAPWindow == 0 {
		c.VWAPWindow = 5
	}
	if c.BacktestHorizonCandles == 0 {
		c.BacktestHorizonCandles = 2880 // two days of 1m candles
	}
	if c.MilestoneThresholdsPct == nil {
		c.MilestoneThresholdsPct = []float64{10, 20, 30}
	}
	if c.StoreRoot == "" {
		c.StoreRoot = "data/signals"
	}
}
