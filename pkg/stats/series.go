// Package stats provides the numeric series helpers behind walker ranking.
package stats

import (
	"math"
	"sync"
)

// Series is a thread-safe float series with the summary statistics the
// walker ranks strategies by.
type Series struct {
	mu   sync.RWMutex
	data []float64
}

// NewSeries creates an empty series.
func NewSeries() *Series {
	return &Series{data: make([]float64, 0, 256)}
}

// Append adds a value.
func (s *Series) Append(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data, v)
}

// Len returns the number of values.
func (s *Series) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Values returns a copy of the data.
func (s *Series) Values() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]float64, len(s.data))
	copy(out, s.data)
	return out
}

// Sum returns the total.
func (s *Series) Sum() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum float64
	for _, v := range s.data {
		sum += v
	}
	return sum
}

// Mean returns the average, or 0 for an empty series.
func (s *Series) Mean() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.data) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s.data {
		sum += v
	}
	return sum / float64(len(s.data))
}

// StdDev returns the population standard deviation.
func (s *Series) StdDev() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.data) < 2 {
		return 0
	}
	var sum float64
	for _, v := range s.data {
		sum += v
	}
	mean := sum / float64(len(s.data))

	var sq float64
	for _, v := range s.data {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(s.data)))
}

// Sharpe returns mean/stddev, the per-trade Sharpe ratio. Zero deviation
// yields 0.
func (s *Series) Sharpe() float64 {
	sd := s.StdDev()
	if sd == 0 {
		return 0
	}
	return s.Mean() / sd
}

// MaxDrawdown returns the largest peak-to-trough drop of the cumulative sum.
func (s *Series) MaxDrawdown() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cum, peak, maxDD float64
	for _, v := range s.data {
		cum += v
		if cum > peak {
			peak = cum
		}
		if dd := peak - cum; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
