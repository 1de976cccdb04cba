package batcher

// Consumer processes batches flushed by a Stripe.
type Consumer[T any] interface {
	// Consume processes a batch of items. The batch is owned by the consumer
	// once Consume is called.
	Consume(batch []T) error
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc[T any] func(batch []T) error

func (f ConsumerFunc[T]) Consume(batch []T) error { return f(batch) }

// Config holds configuration for a Stripe.
type Config struct {
	// StripeSize is the capacity of a stripe. A full stripe is flushed to the
	// Consumer immediately.
	StripeSize int
}
