package stats

import (
	"math"
	"testing"
)

func TestSeries_Summaries(t *testing.T) {
	s := NewSeries()
	for _, v := range []float64{2, 4} {
		s.Append(v)
	}

	if s.Len() != 2 {
		t.Errorf("Expected len 2, got %d", s.Len())
	}
	if s.Sum() != 6 {
		t.Errorf("Expected sum 6, got %v", s.Sum())
	}
	if s.Mean() != 3 {
		t.Errorf("Expected mean 3, got %v", s.Mean())
	}
	if s.StdDev() != 1 {
		t.Errorf("Expected stddev 1, got %v", s.StdDev())
	}
	if s.Sharpe() != 3 {
		t.Errorf("Expected sharpe 3, got %v", s.Sharpe())
	}
}

func TestSeries_EmptyAndDegenerate(t *testing.T) {
	s := NewSeries()
	if s.Mean() != 0 || s.Sum() != 0 || s.StdDev() != 0 || s.Sharpe() != 0 || s.MaxDrawdown() != 0 {
		t.Error("Expected zero summaries on an empty series")
	}

	s.Append(5)
	if s.StdDev() != 0 || s.Sharpe() != 0 {
		t.Error("A single value has no deviation")
	}

	// Identical values: zero deviation must not divide by zero.
	s.Append(5)
	if s.Sharpe() != 0 {
		t.Errorf("Expected sharpe 0 for constant series, got %v", s.Sharpe())
	}
}

func TestSeries_MaxDrawdown(t *testing.T) {
	s := NewSeries()
	// Cumulative path: 1, -1, 2, 0.5. Peak 1 to trough -1 is the deepest.
	for _, v := range []float64{1, -2, 3, -1.5} {
		s.Append(v)
	}
	if dd := s.MaxDrawdown(); math.Abs(dd-2) > 1e-9 {
		t.Errorf("Expected max drawdown 2, got %v", dd)
	}

	up := NewSeries()
	for _, v := range []float64{1, 2, 3} {
		up.Append(v)
	}
	if dd := up.MaxDrawdown(); dd != 0 {
		t.Errorf("Expected zero drawdown for a rising series, got %v", dd)
	}
}

func TestSeries_ValuesIsACopy(t *testing.T) {
	s := NewSeries()
	s.Append(1)
	vals := s.Values()
	vals[0] = 99
	if s.Values()[0] != 1 {
		t.Error("Values must return a copy")
	}
}
