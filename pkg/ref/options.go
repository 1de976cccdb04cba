package ref

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// FinalizerCounter is told when KindFinal handles enter (+1) and leave (-1)
// a queue. It is owned by the reachability subsystem, not by the queue.
type FinalizerCounter interface {
	AddFinalRefCount(delta int64)
}

// FinalizerCounterFunc adapts a function to FinalizerCounter.
type FinalizerCounterFunc func(delta int64)

func (f FinalizerCounterFunc) AddFinalRefCount(delta int64) { f(delta) }

// PendingFinalizers is a FinalizerCounter backed by an atomic counter.
type PendingFinalizers struct {
	n atomic.Int64
}

func (p *PendingFinalizers) AddFinalRefCount(delta int64) { p.n.Add(delta) }

// Load returns the number of KindFinal handles currently enqueued.
func (p *PendingFinalizers) Load() int64 { return p.n.Load() }

type noopCounter struct{}

func (noopCounter) AddFinalRefCount(int64) {}

type options struct {
	finalizers FinalizerCounter
	logger     *zap.Logger
}

func defaultOptions() options {
	return options{
		finalizers: noopCounter{},
		logger:     zap.NewNop(),
	}
}

// Option configures a Queue.
type Option func(*options)

// WithFinalizerCounter sets the counter notified for KindFinal handles.
func WithFinalizerCounter(c FinalizerCounter) Option {
	return func(o *options) {
		if c != nil {
			o.finalizers = c
		}
	}
}

// WithLogger sets the logger used to report misuse.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
