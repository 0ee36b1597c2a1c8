// Package risk provides portfolio-level admission control for signals.
package risk

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/yourusername/signal-engine/pkg/signal"
	"github.com/yourusername/signal-engine/pkg/store"
)

// RejectedError is returned when a gate denies a signal.
type RejectedError struct {
	Gate   string
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("risk gate %s rejected signal: %s", e.Gate, e.Reason)
}

// PositionRef identifies a currently-held position.
type PositionRef struct {
	Strategy string
	Symbol   string
}

// CheckArgs is the admission-check input.
type CheckArgs struct {
	Signal          *signal.Signal
	Symbol          string
	Strategy        string
	CurrentPrice    float64
	Timestamp       int64
	ActivePositions []PositionRef
}

// Predicate is a single validation rule. A non-nil error rejects the signal
// with that predicate's message.
type Predicate func(ctx context.Context, args CheckArgs) error

// Gate admits or rejects signals and tracks the resulting portfolio.
//
// Gate state is process-memory only; live drivers rebuild it from the
// SignalStore's active records on restart.
type Gate interface {
	Name() string
	CheckSignal(ctx context.Context, args CheckArgs) error
	AddSignal(strategy, symbol string)
	RemoveSignal(strategy, symbol string)
}

// NoopGate always allows.
type NoopGate struct{}

// Name implements Gate.
func (NoopGate) Name() string { return "noop" }

// CheckSignal implements Gate.
func (NoopGate) CheckSignal(context.Context, CheckArgs) error { return nil }

// AddSignal implements Gate.
func (NoopGate) AddSignal(string, string) {}

// RemoveSignal implements Gate.
func (NoopGate) RemoveSignal(string, string) {}

// LimitGate enforces a max-concurrent-positions limit plus custom predicates.
type LimitGate struct {
	name         string
	maxPositions int // 0 disables the limit
	predicates   []Predicate

	mu        sync.Mutex
	positions map[PositionRef]bool
}

// NewLimitGate creates a gate. maxPositions 0 means unlimited.
func NewLimitGate(name string, maxPositions int, predicates ...Predicate) *LimitGate {
	return &LimitGate{
		name:         name,
		maxPositions: maxPositions,
		predicates:   predicates,
		positions:    make(map[PositionRef]bool),
	}
}

// Name implements Gate.
func (g *LimitGate) Name() string { return g.name }

// CheckSignal implements Gate.
func (g *LimitGate) CheckSignal(ctx context.Context, args CheckArgs) error {
	g.mu.Lock()
	count := len(g.positions)
	args.ActivePositions = g.positionsLocked()
	g.mu.Unlock()

	if g.maxPositions > 0 && count >= g.maxPositions {
		return &RejectedError{
			Gate:   g.name,
			Reason: fmt.Sprintf("max concurrent positions reached (%d/%d)", count, g.maxPositions),
		}
	}

	for _, p := range g.predicates {
		if err := p(ctx, args); err != nil {
			return &RejectedError{Gate: g.name, Reason: err.Error()}
		}
	}
	return nil
}

// AddSignal implements Gate.
func (g *LimitGate) AddSignal(strategy, symbol string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.positions[PositionRef{Strategy: strategy, Symbol: symbol}] = true
}

// RemoveSignal implements Gate.
func (g *LimitGate) RemoveSignal(strategy, symbol string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.positions, PositionRef{Strategy: strategy, Symbol: symbol})
}

// ActiveCount returns the number of tracked positions.
func (g *LimitGate) ActiveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.positions)
}

func (g *LimitGate) positionsLocked() []PositionRef {
	refs := make([]PositionRef, 0, len(g.positions))
	for ref := range g.positions {
		refs = append(refs, ref)
	}
	return refs
}

// Rebuild restores the portfolio view from the store's active records for the
// given pairs. Called once on live-driver startup.
func (g *LimitGate) Rebuild(st store.Store, pairs []PositionRef) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.positions = make(map[PositionRef]bool)
	for _, pair := range pairs {
		sig, err := st.ReadActive(pair.Strategy, pair.Symbol)
		if err != nil {
			return fmt.Errorf("failed to rebuild gate %s: %w", g.name, err)
		}
		if sig != nil {
			g.positions[pair] = true
		}
	}
	log.Printf("[RiskGate] %s rebuilt with %d active positions", g.name, len(g.positions))
	return nil
}

// CompositeGate accepts iff every child accepts. Add/Remove fan out to all
// children so each keeps its own portfolio view.
type CompositeGate struct {
	name  string
	gates []Gate
}

// NewCompositeGate composes child gates.
func NewCompositeGate(name string, gates ...Gate) *CompositeGate {
	return &CompositeGate{name: name, gates: gates}
}

// Name implements Gate.
func (g *CompositeGate) Name() string { return g.name }

// CheckSignal implements Gate.
func (g *CompositeGate) CheckSignal(ctx context.Context, args CheckArgs) error {
	for _, child := range g.gates {
		if err := child.CheckSignal(ctx, args); err != nil {
			return err
		}
	}
	return nil
}

// AddSignal implements Gate.
func (g *CompositeGate) AddSignal(strategy, symbol string) {
	for _, child := range g.gates {
		child.AddSignal(strategy, symbol)
	}
}

// RemoveSignal implements Gate.
func (g *CompositeGate) RemoveSignal(strategy, symbol string) {
	for _, child := range g.gates {
		child.RemoveSignal(strategy, symbol)
	}
}
