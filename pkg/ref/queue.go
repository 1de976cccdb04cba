package ref

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	pkgRuntime "github.com/huynhanx03/go-refqueue/pkg/runtime"
)

// Queue is an unbounded notification queue of retired handles.
//
// Handles are pushed by a reachability subsystem (see Tracker) or by
// Handle.Enqueue, at most once each. Consumers take them with Poll, Remove or
// RemoveTimeout. The handles form an intrusive chain from head, newest first,
// so consumption order is the reverse of retirement order.
type Queue[T any] struct {
	mu     sync.Mutex
	head   atomic.Pointer[Handle[T]]
	length int64

	// wake is closed on every successful enqueue to broadcast to all blocked
	// consumers. It is created lazily by the first waiter.
	wake chan struct{}

	finalizers FinalizerCounter
	log        *zap.Logger
}

// NewQueue creates an empty queue.
func NewQueue[T any](opts ...Option) *Queue[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Queue[T]{
		finalizers: o.finalizers,
		log:        o.logger,
	}
}

// NewHandle returns an Active handle owned by q.
func (q *Queue[T]) NewHandle(payload T, kind Kind) *Handle[T] {
	return newHandle(q, payload, kind)
}

// enqueue links h as the new head. It returns false if h is unregistered or
// already retired, which makes racing retirements harmless.
func (q *Queue[T]) enqueue(h *Handle[T]) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch h.State() {
	case StateUnregistered, StateEnqueued, StateConsumed:
		return false
	}
	if h.queue != q {
		q.log.Panic("handle enqueued on a foreign queue", zap.Uint64("handle", h.id))
	}

	old := q.head.Load()
	if old == nil {
		old = h
	}
	h.state.Store(uint32(StateEnqueued))
	h.next.Store(old)
	q.head.Store(h)
	q.length++
	if h.kind == KindFinal {
		q.finalizers.AddFinalRefCount(1)
	}

	if q.wake != nil {
		close(q.wake)
		q.wake = nil
	}
	return true
}

// pollLocked detaches the head. Must hold q.mu.
func (q *Queue[T]) pollLocked() *Handle[T] {
	h := q.head.Load()
	if h == nil {
		return nil
	}

	next := h.next.Load()
	if h.endOfChain(next) {
		next = nil
	}
	q.head.Store(next)
	h.state.Store(uint32(StateConsumed))
	h.next.Store(h)
	q.length--
	if h.kind == KindFinal {
		q.finalizers.AddFinalRefCount(-1)
	}
	return h
}

// Poll removes the most recently retired handle without blocking.
func (q *Queue[T]) Poll() (*Handle[T], bool) {
	if q.head.Load() == nil {
		return nil, false
	}

	q.mu.Lock()
	h := q.pollLocked()
	q.mu.Unlock()
	return h, h != nil
}

// Remove blocks until a handle is available or ctx is done.
// The only error is one matching ErrCancelled.
func (q *Queue[T]) Remove(ctx context.Context) (*Handle[T], error) {
	return q.RemoveTimeout(ctx, 0)
}

// RemoveTimeout blocks until a handle is available, the timeout elapses or
// ctx is done. A zero timeout waits indefinitely; a negative one fails with
// ErrInvalidArgument. When the timeout elapses the result is (nil, nil).
// When ctx is done the error matches both ErrCancelled and ctx.Err().
func (q *Queue[T]) RemoveTimeout(ctx context.Context, timeout time.Duration) (*Handle[T], error) {
	if ctx == nil {
		panic("ref: nil context")
	}
	if timeout < 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "negative timeout %s", timeout)
	}

	q.mu.Lock()
	if h := q.pollLocked(); h != nil {
		q.mu.Unlock()
		return h, nil
	}

	var start int64
	if timeout != 0 {
		start = pkgRuntime.NanoTime()
	}
	for {
		if q.wake == nil {
			q.wake = make(chan struct{})
		}
		wake := q.wake
		q.mu.Unlock()

		if err := await(ctx, wake, timeout); err != nil {
			return nil, err
		}

		q.mu.Lock()
		if h := q.pollLocked(); h != nil {
			q.mu.Unlock()
			return h, nil
		}
		if timeout != 0 {
			end := pkgRuntime.NanoTime()
			timeout -= time.Duration(end - start)
			if timeout <= 0 {
				q.mu.Unlock()
				return nil, nil
			}
			start = end
		}
	}
}

// await blocks until wake is closed, timeout elapses (if positive) or ctx is done.
func await(ctx context.Context, wake <-chan struct{}, timeout time.Duration) error {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-ctx.Done():
		return cancelled(ctx.Err())
	case <-wake:
	case <-expired:
	}
	return nil
}

// ForEach calls visit for each handle in the chain, newest first, without
// taking the queue lock. If the walk is overtaken by a consumer it restarts
// from the current head, so a handle may be visited more than once. It is a
// best-effort diagnostic and gives no snapshot guarantee.
func (q *Queue[T]) ForEach(visit func(h *Handle[T])) {
	for h := q.head.Load(); h != nil; {
		visit(h)

		next := h.next.Load()
		switch {
		case !h.endOfChain(next):
			h = next
		case h.IsEnqueued():
			// still in the chain: this is the oldest handle
			h = nil
		default:
			// consumed under us
			h = q.head.Load()
		}
	}
}

// Len returns the number of retired handles not yet consumed.
func (q *Queue[T]) Len() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.length
}
