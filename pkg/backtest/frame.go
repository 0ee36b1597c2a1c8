// Package backtest drives strategy cores over historical frames: the single
// backtest driver, the frame generator and the multi-strategy walker.
package backtest

import (
	"fmt"

	"github.com/yourusername/signal-engine/pkg/market"
)

// Frame is the ordered sequence of simulated "now" timestamps between Start
// and End (inclusive), spaced by Interval. Timestamps are floored to the
// interval boundary.
type Frame struct {
	Name     string
	Start    int64 // ms since epoch
	End      int64 // ms since epoch, inclusive
	Interval market.Interval
}

// NewFrame validates and builds a frame.
func NewFrame(name string, start, end int64, interval market.Interval) (*Frame, error) {
	if !interval.ValidFrameInterval() {
		return nil, fmt.Errorf("interval %s not allowed for frames", interval)
	}
	if end < start {
		return nil, fmt.Errorf("frame end %d before start %d", end, start)
	}
	return &Frame{Name: name, Start: start, End: end, Interval: interval}, nil
}

// Timestamps materializes the full frame.
func (f *Frame) Timestamps() []int64 {
	out := make([]int64, 0, f.Len())
	for it := f.Iter(); ; {
		ts, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, ts)
	}
	return out
}

// Len returns the number of timestamps in the frame.
func (f *Frame) Len() int {
	first := f.Interval.FloorTimestamp(f.Start)
	if first < f.Start {
		first += f.Interval.Ms()
	}
	if first > f.End {
		return 0
	}
	return int((f.End-first)/f.Interval.Ms()) + 1
}

// Iter returns a restartable iterator over the frame.
func (f *Frame) Iter() *FrameIter {
	first := f.Interval.FloorTimestamp(f.Start)
	if first < f.Start {
		first += f.Interval.Ms()
	}
	return &FrameIter{frame: f, next: first}
}

// FrameIter walks a frame and supports skipping forward, which the backtest
// driver uses after a fast-path close.
type FrameIter struct {
	frame *Frame
	next  int64
}

// Next returns the next timestamp, or false when the frame is exhausted.
func (it *FrameIter) Next() (int64, bool) {
	if it.next > it.frame.End {
		return 0, false
	}
	ts := it.next
	it.next += it.frame.Interval.Ms()
	return ts, true
}

// SkipPast advances the iterator so the next timestamp is strictly after ts.
func (it *FrameIter) SkipPast(ts int64) {
	for it.next <= ts {
		it.next += it.frame.Interval.Ms()
	}
}
