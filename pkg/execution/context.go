// Package execution carries the ambient per-tick context through the engine.
//
// Every logical tick runs under an execution Context that pins the symbol,
// the simulated "now" and the run mode. Data-access helpers read it from the
// context.Context instead of taking a timestamp parameter, so strategy code
// sees the same temporal horizon in live and backtest runs.
package execution

import (
	"context"
	"errors"
)

// ErrMissingContext is returned when a data-access function is called outside
// an established execution context. This is a programmer error, not a market
// condition; it is never swallowed.
var ErrMissingContext = errors.New("execution context not established")

// Context pins the current logical tick.
type Context struct {
	Symbol   string // e.g. "BTCUSDT"
	Now      int64  // ms since epoch, the simulated or wall-clock tick time
	Backtest bool
}

// MethodContext carries the schema identity of the current execution.
type MethodContext struct {
	Strategy string
	Exchange string
	Frame    string // empty outside backtests
}

type ctxKey int

const (
	executionKey ctxKey = iota
	methodKey
)

// With returns a child context carrying ec for the duration of one tick.
func With(ctx context.Context, ec Context) context.Context {
	return context.WithValue(ctx, executionKey, ec)
}

// From returns the established execution context or ErrMissingContext.
func From(ctx context.Context) (Context, error) {
	ec, ok := ctx.Value(executionKey).(Context)
	if !ok {
		return Context{}, ErrMissingContext
	}
	return ec, nil
}

// WithMethod returns a child context carrying mc.
func WithMethod(ctx context.Context, mc MethodContext) context.Context {
	return context.WithValue(ctx, methodKey, mc)
}

// MethodFrom returns the established method context or ErrMissingContext.
func MethodFrom(ctx context.Context) (MethodContext, error) {
	mc, ok := ctx.Value(methodKey).(MethodContext)
	if !ok {
		return MethodContext{}, ErrMissingContext
	}
	return mc, nil
}
