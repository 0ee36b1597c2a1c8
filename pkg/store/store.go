// Package store persists active and scheduled signals so a live engine can
// recover its state machine after a crash.
package store

import (
	"github.com/yourusername/signal-engine/pkg/signal"
)

// Status is the persisted lifecycle state of a record.
type Status string

const (
	StatusOpened    Status = "opened"
	StatusScheduled Status = "scheduled"
	StatusClosed    Status = "closed"
	StatusCancelled Status = "cancelled"
)

// Record is the durable envelope around a signal.
type Record struct {
	Signal    *signal.Signal `json:"signal"`
	Status    Status         `json:"status"`
	CreatedAt int64          `json:"createdAt"`
	UpdatedAt int64          `json:"updatedAt"`
	Priority  int            `json:"priority"`
}

// Store holds at most one active and one scheduled record per
// (strategy, symbol). Writing a nil signal deletes the record.
//
// A WriteActive that returns nil must survive a subsequent process crash.
type Store interface {
	ReadActive(strategy, symbol string) (*signal.Signal, error)
	WriteActive(strategy, symbol string, sig *signal.Signal) error
	ReadScheduled(strategy, symbol string) (*signal.Signal, error)
	WriteScheduled(strategy, symbol string, sig *signal.Signal) error
}
