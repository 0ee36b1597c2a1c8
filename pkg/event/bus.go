// Package event fans lifecycle events out to listeners, preserving emission
// order per listener.
package event

import (
	"sync"

	"github.com/yourusername/signal-engine/pkg/signal"
)

// Category extends the tick-result kinds with the out-of-band channels.
type Category string

const (
	CategoryIdle      = Category(signal.KindIdle)
	CategoryScheduled = Category(signal.KindScheduled)
	CategoryOpened    = Category(signal.KindOpened)
	CategoryActive    = Category(signal.KindActive)
	CategoryClosed    = Category(signal.KindClosed)
	CategoryCancelled = Category(signal.KindCancelled)
	CategoryMilestone Category = "milestone"
	CategoryError     Category = "error"
	CategoryDone      Category = "done"
	CategoryExit      Category = "exit"
)

// Event is what listeners receive.
type Event struct {
	Category  Category
	Symbol    string
	Strategy  string
	Method    string // originating operation, set on error events
	Timestamp int64
	Result    *signal.TickResult // lifecycle categories
	Err       error              // error/exit categories
	// Milestone fields
	MilestonePct    float64
	MilestoneProfit bool
}

// Listener consumes events. The bus will not deliver the next event to this
// listener until the callback returns.
type Listener func(Event)

// Filter selects events for filtered subscriptions.
type Filter func(Event) bool

// Bus is an in-process fan-out with a sequential queue per listener.
// Subscribing and unsubscribing are safe concurrently with emission.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	closed bool
}

type subscriber struct {
	fn     Listener
	filter Filter
	once   bool
	bus    *Bus
	id     int

	qmu     sync.Mutex
	qcond   *sync.Cond
	queue   []Event
	stopped bool
	done    chan struct{}
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]*subscriber)}
}

// Subscribe registers a listener for every event. The returned function
// unsubscribes; it is safe to call more than once.
func (b *Bus) Subscribe(fn Listener) func() {
	return b.subscribe(fn, nil, false)
}

// SubscribeCategory registers a listener for one category.
func (b *Bus) SubscribeCategory(cat Category, fn Listener) func() {
	return b.subscribe(fn, func(e Event) bool { return e.Category == cat }, false)
}

// Once registers a listener invoked at most once, for the first event
// matching filter, then unsubscribed.
func (b *Bus) Once(filter Filter, fn Listener) func() {
	return b.subscribe(fn, filter, true)
}

func (b *Bus) subscribe(fn Listener, filter Filter, once bool) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}

	id := b.nextID
	b.nextID++
	sub := &subscriber{
		fn:     fn,
		filter: filter,
		once:   once,
		bus:    b,
		id:     id,
		done:   make(chan struct{}),
	}
	sub.qcond = sync.NewCond(&sub.qmu)
	b.subs[id] = sub
	go sub.run()

	return func() { b.unsubscribe(id) }
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()
	if ok {
		sub.stop()
	}
}

// Publish enqueues the event for every matching listener and returns without
// waiting for delivery.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	targets := make([]*subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		targets = append(targets, sub)
	}
	b.mu.Unlock()

	for _, sub := range targets {
		sub.enqueue(e)
	}
}

// Close stops delivery and waits for every listener queue to drain.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	subs := make([]*subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.subs = make(map[int]*subscriber)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
		<-sub.done
	}
}

func (s *subscriber) enqueue(e Event) {
	if s.filter != nil && !s.filter(e) {
		return
	}
	s.qmu.Lock()
	if !s.stopped {
		s.queue = append(s.queue, e)
		s.qcond.Signal()
	}
	s.qmu.Unlock()
}

func (s *subscriber) stop() {
	s.qmu.Lock()
	if !s.stopped {
		s.stopped = true
		s.qcond.Signal()
	}
	s.qmu.Unlock()
}

// run drains the queue one event at a time. The callback completes before
// the next event is dequeued, which is the sequential-per-listener guarantee.
func (s *subscriber) run() {
	defer close(s.done)
	for {
		s.qmu.Lock()
		for len(s.queue) == 0 && !s.stopped {
			s.qcond.Wait()
		}
		if len(s.queue) == 0 && s.stopped {
			s.qmu.Unlock()
			return
		}
		e := s.queue[0]
		s.queue = s.queue[1:]
		s.qmu.Unlock()

		s.fn(e)

		if s.once {
			s.bus.unsubscribe(s.id)
			// Drain silently; stop() marks us stopped so no new events land.
			return
		}
	}
}
