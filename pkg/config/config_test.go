package config

import (
	"path/filepath"
	"testing"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config must validate: %v", err)
	}
	if cfg.MinTPDistancePct != 0.5 || cfg.MaxSLDistancePct != 20 {
		t.Errorf("Unexpected distance defaults: %+v", cfg)
	}
	if cfg.ScheduleAwaitMinutes != 120 || cfg.MaxSignalLifetimeMinutes != 1440 {
		t.Errorf("Unexpected lifetime defaults: %+v", cfg)
	}
	if cfg.SlippagePct != 0.1 || cfg.FeePct != 0.1 {
		t.Errorf("Unexpected cost defaults: %+v", cfg)
	}
	if cfg.VWAPWindow != 5 || cfg.MinCandlesForAverage != 5 {
		t.Errorf("Unexpected VWAP defaults: %+v", cfg)
	}
}

func TestValidate_FillsZeroFields(t *testing.T) {
	cfg := &EngineConfig{MinTPDistancePct: 1.5}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if cfg.MinTPDistancePct != 1.5 {
		t.Error("Explicit values must survive default filling")
	}
	if cfg.MaxSLDistancePct != 20 || cfg.TickIntervalMs != 60_001 {
		t.Errorf("Zero fields must be defaulted: %+v", cfg)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	bad := []*EngineConfig{
		{MinSLDistancePct: 5, MaxSLDistancePct: 4},
		{SlippagePct: -0.1},
		{MaxSignalLifetimeMinutes: -10},
		{MilestoneThresholdsPct: []float64{150}},
	}
	for i, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Errorf("Case %d: expected validation failure for %+v", i, cfg)
		}
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")

	cfg := Default()
	cfg.MinTPDistancePct = 0.75
	cfg.NATSAddr = "nats://localhost:4222"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.MinTPDistancePct != 0.75 {
		t.Errorf("Expected 0.75, got %v", loaded.MinTPDistancePct)
	}
	if loaded.NATSAddr != "nats://localhost:4222" {
		t.Errorf("Expected NATS addr preserved, got %q", loaded.NATSAddr)
	}
	if loaded.MaxSLDistancePct != 20 {
		t.Errorf("Expected defaults applied on load, got %v", loaded.MaxSLDistancePct)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected error for a missing config file")
	}
}
