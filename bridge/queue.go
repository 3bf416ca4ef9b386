// Package bridge holds the runtime support used by generated bindings:
// the event queue behind callback streams and the pointer assertions run
// on every callback.
package bridge

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// ErrClosed is returned by Recv once the queue is closed and drained.
var ErrClosed = errors.New("bridge: queue closed")

// Overflow selects what a bounded queue discards when it is full.
type Overflow int

const (
	// DropOldest discards the event at the head of the queue.
	DropOldest Overflow = iota
	// DropNewest discards the event being pushed.
	DropNewest
)

func (o Overflow) String() string {
	switch o {
	case DropOldest:
		return "drop-oldest"
	case DropNewest:
		return "drop-newest"
	}
	return "unknown"
}

type options struct {
	capacity int
	overflow Overflow
}

// Option configures a Queue.
type Option func(*options)

// WithCapacity bounds the queue. Zero or less means unbounded.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n < 0 {
			n = 0
		}
		o.capacity = n
	}
}

// WithOverflow sets the policy of a bounded queue.
func WithOverflow(p Overflow) Option {
	return func(o *options) {
		o.overflow = p
	}
}

// Sink accepts events from a producer that must never block.
type Sink[E any] interface {
	Push(E)
}

// Queue is a FIFO with a non-blocking producer side. The library's
// callback thread pushes; any number of goroutines receive. Events are
// delivered in push order.
type Queue[E any] struct {
	opts options

	mu     sync.Mutex
	items  []E
	head   int
	closed bool

	// wake holds at most one token; a receiver that finds the queue empty
	// waits on it
	wake    chan struct{}
	done    chan struct{}
	dropped atomic.Uint64
}

func NewQueue[E any](opts ...Option) *Queue[E] {
	q := &Queue[E]{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(&q.opts)
	}
	return q
}

// Push appends ev. It never blocks. On a full bounded queue the overflow
// policy decides which event is lost; pushes after Close are dropped.
func (q *Queue[E]) Push(ev E) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.dropped.Add(1)
		return
	}
	if c := q.opts.capacity; c > 0 && q.lenLocked() >= c {
		q.dropped.Add(1)
		if q.opts.overflow == DropNewest {
			q.mu.Unlock()
			return
		}
		q.popLocked()
	}
	q.items = append(q.items, ev)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Recv returns the next event, waiting until one is pushed, ctx is done or
// the queue is closed. Events pushed before Close are still delivered.
func (q *Queue[E]) Recv(ctx context.Context) (E, error) {
	for {
		if ev, ok := q.TryRecv(); ok {
			return ev, nil
		}
		select {
		case <-q.wake:
		case <-q.done:
			if ev, ok := q.TryRecv(); ok {
				return ev, nil
			}
			var zero E
			return zero, ErrClosed
		case <-ctx.Done():
			var zero E
			return zero, ctx.Err()
		}
	}
}

// TryRecv returns the next event without waiting.
func (q *Queue[E]) TryRecv() (E, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.lenLocked() == 0 {
		var zero E
		return zero, false
	}
	ev := q.popLocked()
	if q.lenLocked() > 0 {
		// pass the token on so another waiting receiver is not stranded
		select {
		case q.wake <- struct{}{}:
		default:
		}
	}
	return ev, true
}

// All yields events until ctx is done or the queue is closed and drained.
func (q *Queue[E]) All(ctx context.Context) iter.Seq[E] {
	return func(yield func(E) bool) {
		for {
			ev, err := q.Recv(ctx)
			if err != nil {
				return
			}
			if !yield(ev) {
				return
			}
		}
	}
}

func (q *Queue[E]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

// Dropped counts events lost to the overflow policy or pushed after Close.
func (q *Queue[E]) Dropped() uint64 {
	return q.dropped.Load()
}

// Close stops accepting events and wakes every receiver. It is safe to
// call more than once.
func (q *Queue[E]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

func (q *Queue[E]) lenLocked() int {
	return len(q.items) - q.head
}

func (q *Queue[E]) popLocked() E {
	var zero E
	ev := q.items[q.head]
	q.items[q.head] = zero
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return ev
}
