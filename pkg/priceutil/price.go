// Package priceutil formats and aligns prices without float drift.
package priceutil

import (
	"github.com/shopspring/decimal"
)

// RoundToTick rounds price to the nearest multiple of tickSize.
func RoundToTick(price, tickSize float64) float64 {
	if tickSize <= 0 {
		return price
	}
	p := decimal.NewFromFloat(price)
	t := decimal.NewFromFloat(tickSize)
	f, _ := p.Div(t).Round(0).Mul(t).Float64()
	return f
}

// FloorToTick rounds price down to a multiple of tickSize.
func FloorToTick(price, tickSize float64) float64 {
	if tickSize <= 0 {
		return price
	}
	p := decimal.NewFromFloat(price)
	t := decimal.NewFromFloat(tickSize)
	f, _ := p.Div(t).Floor().Mul(t).Float64()
	return f
}

// CeilToTick rounds price up to a multiple of tickSize.
func CeilToTick(price, tickSize float64) float64 {
	if tickSize <= 0 {
		return price
	}
	p := decimal.NewFromFloat(price)
	t := decimal.NewFromFloat(tickSize)
	f, _ := p.Div(t).Ceil().Mul(t).Float64()
	return f
}

// Formatter renders prices with a fixed number of decimal places per symbol.
type Formatter struct {
	precision map[string]int32
	fallback  int32
}

// NewFormatter creates a formatter with a default precision.
func NewFormatter(fallback int32) *Formatter {
	return &Formatter{precision: make(map[string]int32), fallback: fallback}
}

// SetPrecision fixes the decimal places for one symbol.
func (f *Formatter) SetPrecision(symbol string, places int32) {
	f.precision[symbol] = places
}

// Format renders price for symbol.
func (f *Formatter) Format(symbol string, price float64) string {
	places, ok := f.precision[symbol]
	if !ok {
		places = f.fallback
	}
	return decimal.NewFromFloat(price).StringFixed(places)
}
