package ref

import (
	"fmt"
	"sync/atomic"
)

// State is the position of a Handle in its lifecycle.
// Transitions only move forward: Active -> Enqueued -> Consumed.
// An Unregistered handle never changes state.
type State uint32

const (
	// StateUnregistered marks a handle created without a queue. It discards
	// every enqueue attempt.
	StateUnregistered State = iota
	// StateActive marks a handle owned by its queue but not yet retired.
	StateActive
	// StateEnqueued marks a retired handle waiting in its queue's chain.
	StateEnqueued
	// StateConsumed marks a handle taken out of its queue by a consumer.
	StateConsumed
)

func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateActive:
		return "active"
	case StateEnqueued:
		return "enqueued"
	case StateConsumed:
		return "consumed"
	default:
		return fmt.Sprintf("state(%d)", uint32(s))
	}
}

// Kind selects the bookkeeping a handle triggers when it passes through a queue.
type Kind uint8

const (
	// KindPhantom handles only notify consumers.
	KindPhantom Kind = iota
	// KindFinal handles also adjust the queue's FinalizerCounter while enqueued.
	KindFinal
)

func (k Kind) String() string {
	if k == KindFinal {
		return "final"
	}
	return "phantom"
}

var handleSeq atomic.Uint64

// Handle is the node carried through a Queue. The payload is opaque to the
// queue; the tracked object itself is never referenced.
type Handle[T any] struct {
	id      uint64
	kind    Kind
	payload T
	queue   *Queue[T] // fixed at construction, nil for unregistered handles

	// state and next are written under queue.mu only. They are atomics
	// because Poll and ForEach read them without the lock.
	state atomic.Uint32
	next  atomic.Pointer[Handle[T]]
}

// NewUnregistered returns a handle with no queue. Enqueue on it always
// returns false.
func NewUnregistered[T any](payload T) *Handle[T] {
	return &Handle[T]{
		id:      handleSeq.Add(1),
		payload: payload,
	}
}

func newHandle[T any](q *Queue[T], payload T, kind Kind) *Handle[T] {
	h := &Handle[T]{
		id:      handleSeq.Add(1),
		kind:    kind,
		payload: payload,
		queue:   q,
	}
	h.state.Store(uint32(StateActive))
	return h
}

// ID returns a process-unique identifier for the handle.
func (h *Handle[T]) ID() uint64 { return h.id }

// Payload returns the data the handle was created with.
func (h *Handle[T]) Payload() T { return h.payload }

// Kind returns the handle kind.
func (h *Handle[T]) Kind() Kind { return h.kind }

// State returns the current lifecycle state.
func (h *Handle[T]) State() State { return State(h.state.Load()) }

// IsEnqueued reports whether the handle is retired and not yet consumed.
// Unregistered handles are never enqueued.
func (h *Handle[T]) IsEnqueued() bool { return h.State() == StateEnqueued }

// Enqueue retires the handle onto its queue. It returns false if the handle
// has no queue or was already retired.
func (h *Handle[T]) Enqueue() bool {
	if h.queue == nil {
		return false
	}
	return h.queue.enqueue(h)
}

func (h *Handle[T]) String() string {
	return fmt.Sprintf("handle{id=%d, state=%s}", h.id, h.State())
}

// endOfChain reports whether n, read from h.next, terminates the chain at h.
func (h *Handle[T]) endOfChain(n *Handle[T]) bool { return n == h }
