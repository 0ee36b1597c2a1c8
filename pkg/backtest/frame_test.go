package backtest

import (
	"testing"

	"github.com/yourusername/signal-engine/pkg/market"
)

func TestNewFrame_Validation(t *testing.T) {
	if _, err := NewFrame("bad", 2000, 1000, market.Interval1h); err == nil {
		t.Error("Expected rejection when end precedes start")
	}
	if _, err := NewFrame("bad", 0, 1000, market.Interval("7m")); err == nil {
		t.Error("Expected rejection for unknown interval")
	}
}

func TestFrame_TimestampsAligned(t *testing.T) {
	hour := market.Interval1h.Ms()
	start := 5*hour + 1 // just past a boundary
	end := 9 * hour

	frame, err := NewFrame("test", start, end, market.Interval1h)
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}

	ts := frame.Timestamps()
	want := []int64{6 * hour, 7 * hour, 8 * hour, 9 * hour}
	if len(ts) != len(want) {
		t.Fatalf("Expected %d timestamps, got %d", len(want), len(ts))
	}
	for i := range want {
		if ts[i] != want[i] {
			t.Errorf("Timestamp %d: expected %d, got %d", i, want[i], ts[i])
		}
	}
	if frame.Len() != len(want) {
		t.Errorf("Len %d disagrees with Timestamps %d", frame.Len(), len(want))
	}
}

func TestFrame_AlignedStartIsIncluded(t *testing.T) {
	hour := market.Interval1h.Ms()
	frame, err := NewFrame("test", 5*hour, 7*hour, market.Interval1h)
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}
	ts := frame.Timestamps()
	if len(ts) != 3 || ts[0] != 5*hour {
		t.Errorf("Expected [5h 6h 7h], got %v", ts)
	}
}

func TestFrame_EmptyWhenStartPastEnd(t *testing.T) {
	hour := market.Interval1h.Ms()
	frame, err := NewFrame("test", 5*hour+1, 5*hour+2, market.Interval1h)
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}
	if frame.Len() != 0 {
		t.Errorf("Expected empty frame, got %d", frame.Len())
	}
	if _, ok := frame.Iter().Next(); ok {
		t.Error("Expected exhausted iterator")
	}
}

func TestFrameIter_SkipPast(t *testing.T) {
	hour := market.Interval1h.Ms()
	frame, err := NewFrame("test", 0, 10*hour, market.Interval1h)
	if err != nil {
		t.Fatalf("NewFrame failed: %v", err)
	}

	it := frame.Iter()
	it.Next() // 0

	// Skip to the middle of hour 3: the next tick is hour 4.
	it.SkipPast(3*hour + 30*60_000)
	ts, ok := it.Next()
	if !ok || ts != 4*hour {
		t.Errorf("Expected resume at 4h, got %d (ok=%v)", ts, ok)
	}

	// Skipping to an exact boundary resumes strictly after it.
	it.SkipPast(6 * hour)
	ts, ok = it.Next()
	if !ok || ts != 7*hour {
		t.Errorf("Expected resume at 7h, got %d (ok=%v)", ts, ok)
	}

	// Skipping past the end exhausts the frame.
	it.SkipPast(10 * hour)
	if _, ok := it.Next(); ok {
		t.Error("Expected exhausted iterator after skipping past the end")
	}
}
