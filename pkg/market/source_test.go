package market

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestMemorySource_SinceAndLimit(t *testing.T) {
	src := NewMemorySource()
	// Out-of-order insertion; the source keeps the series sorted.
	src.Add("BTCUSDT", Interval1m,
		Candle{Timestamp: 3 * minuteMs, Open: 100, High: 100, Low: 100, Close: 100, Volume: 1},
		Candle{Timestamp: 1 * minuteMs, Open: 100, High: 100, Low: 100, Close: 100, Volume: 1},
		Candle{Timestamp: 2 * minuteMs, Open: 100, High: 100, Low: 100, Close: 100, Volume: 1},
	)

	candles, err := src.GetCandles(context.Background(), "BTCUSDT", Interval1m, 2*minuteMs, 10)
	if err != nil {
		t.Fatalf("GetCandles failed: %v", err)
	}
	if len(candles) != 2 || candles[0].Timestamp != 2*minuteMs || candles[1].Timestamp != 3*minuteMs {
		t.Errorf("Expected sorted candles from 2m, got %+v", candles)
	}

	candles, _ = src.GetCandles(context.Background(), "BTCUSDT", Interval1m, 0, 1)
	if len(candles) != 1 || candles[0].Timestamp != 1*minuteMs {
		t.Errorf("Expected the limit respected, got %+v", candles)
	}

	candles, _ = src.GetCandles(context.Background(), "ETHUSDT", Interval1m, 0, 10)
	if len(candles) != 0 {
		t.Errorf("Expected no candles for an unknown symbol, got %d", len(candles))
	}
}

func TestCSVSource_LoadsAndFilters(t *testing.T) {
	dir := t.TempDir()
	csv := "timestamp,open,high,low,close,volume\n" +
		"60000,100,101,99,100.5,12.5\n" +
		"120000,100.5,102,100,101,8\n" +
		"180000,101,101,0,101,3\n" + // invalid low, skipped
		"garbage,1,1,1,1,1\n" // bad timestamp, skipped
	path := filepath.Join(dir, "BTCUSDT_1m.csv")
	if err := os.WriteFile(path, []byte(csv), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	src := NewCSVSource(dir)
	candles, err := src.GetCandles(context.Background(), "BTCUSDT", Interval1m, 0, 10)
	if err != nil {
		t.Fatalf("GetCandles failed: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("Expected 2 valid candles, got %d", len(candles))
	}
	if candles[0].Timestamp != 60000 || candles[0].Close != 100.5 || candles[0].Volume != 12.5 {
		t.Errorf("First candle mismatch: %+v", candles[0])
	}

	// Second fetch serves from memory and sees the same data.
	again, err := src.GetCandles(context.Background(), "BTCUSDT", Interval1m, 120000, 10)
	if err != nil {
		t.Fatalf("Second GetCandles failed: %v", err)
	}
	if len(again) != 1 || again[0].Timestamp != 120000 {
		t.Errorf("Expected the 120000 candle, got %+v", again)
	}
}

func TestCSVSource_MissingColumnsAndFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "BTCUSDT_1m.csv"),
		[]byte("time,open,high,low,close,volume\n1,1,1,1,1,1\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	src := NewCSVSource(dir)
	if _, err := src.GetCandles(context.Background(), "BTCUSDT", Interval1m, 0, 10); err == nil {
		t.Error("Expected error for a missing timestamp column")
	}
	if _, err := src.GetCandles(context.Background(), "ETHUSDT", Interval1m, 0, 10); err == nil {
		t.Error("Expected error for a missing file")
	}
}
