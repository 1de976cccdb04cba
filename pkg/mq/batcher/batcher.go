package batcher

const defaultStripeSize = 512

// Stripe accumulates items and hands them to a Consumer in batches.
//
// A Stripe is NOT thread-safe: each worker owns its own stripe, which keeps
// Push free of contention. Unlike a pooled stripe, nothing is ever dropped;
// the owner calls Flush when it goes idle or shuts down.
type Stripe[T any] struct {
	cons Consumer[T]
	data []T
	cap  int
}

// New creates a stripe for cons. A non-positive StripeSize selects the default.
func New[T any](cons Consumer[T], cfg Config) *Stripe[T] {
	if cons == nil {
		panic("batcher: nil consumer")
	}
	if cfg.StripeSize <= 0 {
		cfg.StripeSize = defaultStripeSize
	}
	return &Stripe[T]{
		cons: cons,
		data: make([]T, 0, cfg.StripeSize),
		cap:  cfg.StripeSize,
	}
}

// Push appends an item and flushes if the stripe is full. The returned error
// comes from the Consumer; the batch is not retried.
func (s *Stripe[T]) Push(item T) error {
	s.data = append(s.data, item)
	if len(s.data) >= s.cap {
		return s.Flush()
	}
	return nil
}

// Flush hands pending items to the Consumer. It is a no-op on an empty stripe.
func (s *Stripe[T]) Flush() error {
	if len(s.data) == 0 {
		return nil
	}
	batch := s.data
	// the consumer owns batch from here on
	s.data = make([]T, 0, s.cap)
	return s.cons.Consume(batch)
}

// Len returns the number of items waiting for the next flush.
func (s *Stripe[T]) Len() int {
	return len(s.data)
}
