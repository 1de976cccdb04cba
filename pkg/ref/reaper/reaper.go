// Package reaper drains a retirement queue with a pool of workers and hands
// the retired handles to a consumer in batches.
package reaper

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/huynhanx03/go-refqueue/pkg/atomicx"
	"github.com/huynhanx03/go-refqueue/pkg/mq/batcher"
	"github.com/huynhanx03/go-refqueue/pkg/ref"
	"github.com/huynhanx03/go-refqueue/pkg/settings"
)

// ErrAlreadyRunning is returned by Run while another Run is active.
var ErrAlreadyRunning = errors.New("reaper: already running")

// Reaper consumes a Queue until its context is done.
//
// Each worker owns a batcher.Stripe. A batch is flushed when it is full, when
// the queue stays empty for FlushInterval, when the oldest pending handle has
// waited FlushInterval, and on shutdown. Consumer errors are logged and
// counted; the failed batch is not retried.
type Reaper[T any] struct {
	queue *ref.Queue[T]
	cons  batcher.Consumer[*ref.Handle[T]]
	cfg   settings.Reaper
	log   *zap.Logger

	running  atomicx.Flag
	consumed atomic.Uint64
	failed   atomic.Uint64
}

// New validates cfg (after applying defaults) and returns an idle reaper.
func New[T any](q *ref.Queue[T], cons batcher.Consumer[*ref.Handle[T]], cfg settings.Reaper, log *zap.Logger) (*Reaper[T], error) {
	if q == nil {
		return nil, errors.New("reaper: nil queue")
	}
	if cons == nil {
		return nil, errors.New("reaper: nil consumer")
	}
	cfg = cfg.WithDefaults()
	if err := settings.Validate(cfg); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Reaper[T]{
		queue: q,
		cons:  cons,
		cfg:   cfg,
		log:   log.Named("reaper"),
	}, nil
}

// Run starts the workers and blocks until ctx is done. Handles held by the
// workers are flushed before Run returns nil.
func (r *Reaper[T]) Run(ctx context.Context) error {
	if !r.running.CompareAndSet(false, true) {
		return ErrAlreadyRunning
	}
	defer r.running.Set(false)

	r.log.Info("reaper started",
		zap.Int("workers", r.cfg.Workers),
		zap.Int("batch_size", r.cfg.BatchSize),
		zap.Duration("flush_interval", r.cfg.FlushInterval))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < r.cfg.Workers; i++ {
		g.Go(func() error {
			return r.work(gctx, r.log.With(zap.Int("worker", i)))
		})
	}
	err := g.Wait()

	r.log.Info("reaper stopped",
		zap.Uint64("consumed", r.consumed.Load()),
		zap.Uint64("failed", r.failed.Load()))
	return err
}

func (r *Reaper[T]) work(ctx context.Context, log *zap.Logger) error {
	consume := batcher.ConsumerFunc[*ref.Handle[T]](func(batch []*ref.Handle[T]) error {
		return r.consume(log, batch)
	})
	stripe := batcher.New[*ref.Handle[T]](consume, batcher.Config{StripeSize: r.cfg.BatchSize})

	var oldest time.Time
	for {
		h, err := r.queue.RemoveTimeout(ctx, r.cfg.FlushInterval)
		switch {
		case errors.Is(err, ref.ErrCancelled):
			_ = stripe.Flush()
			return nil
		case err != nil:
			return errors.Wrap(err, "reaper: remove")
		case h == nil:
			// idle for a whole interval
			_ = stripe.Flush()
			continue
		}

		if stripe.Len() == 0 {
			oldest = time.Now()
		}
		_ = stripe.Push(h)
		if stripe.Len() > 0 && time.Since(oldest) >= r.cfg.FlushInterval {
			_ = stripe.Flush()
		}
	}
}

// consume forwards a batch to the consumer. Errors are already logged and
// counted when it returns.
func (r *Reaper[T]) consume(log *zap.Logger, batch []*ref.Handle[T]) error {
	if err := r.cons.Consume(batch); err != nil {
		r.failed.Add(uint64(len(batch)))
		log.Warn("consumer rejected batch", zap.Int("size", len(batch)), zap.Error(err))
		return err
	}
	r.consumed.Add(uint64(len(batch)))
	log.Debug("batch consumed", zap.Int("size", len(batch)))
	return nil
}

// Running reports whether Run is active.
func (r *Reaper[T]) Running() bool { return r.running.Get() }

// Consumed returns the number of handles accepted by the consumer.
func (r *Reaper[T]) Consumed() uint64 { return r.consumed.Load() }

// Failed returns the number of handles in batches the consumer rejected.
func (r *Reaper[T]) Failed() uint64 { return r.failed.Load() }
