package reaper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/huynhanx03/go-refqueue/pkg/mq/batcher"
	"github.com/huynhanx03/go-refqueue/pkg/ref"
	"github.com/huynhanx03/go-refqueue/pkg/settings"
)

// recorder is a test Consumer that records received handles.
type recorder struct {
	mu      sync.Mutex
	batches [][]*ref.Handle[int]
	err     error
}

func (c *recorder) Consume(batch []*ref.Handle[int]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, batch)
	return c.err
}

func (c *recorder) handles() []*ref.Handle[int] {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*ref.Handle[int]
	for _, b := range c.batches {
		out = append(out, b...)
	}
	return out
}

func (c *recorder) batchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

// start runs r in the background and returns a stop function that cancels it
// and returns Run's error.
func start(t *testing.T, r *Reaper[int]) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, r.Running, time.Second, time.Millisecond)
	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("reaper did not stop")
			return nil
		}
	}
}

func retire(q *ref.Queue[int], n int) []*ref.Handle[int] {
	hs := make([]*ref.Handle[int], n)
	for i := range hs {
		hs[i] = q.NewHandle(i, ref.KindPhantom)
		hs[i].Enqueue()
	}
	return hs
}

// =============================================================================
// New
// =============================================================================

func TestNew(t *testing.T) {
	q := ref.NewQueue[int]()
	cons := &recorder{}

	tests := []struct {
		name    string
		q       *ref.Queue[int]
		cons    *recorder
		cfg     settings.Reaper
		wantErr bool
	}{
		{"defaults", q, cons, settings.Reaper{}, false},
		{"custom", q, cons, settings.Reaper{Workers: 4, BatchSize: 2, FlushInterval: time.Second}, false},
		{"nil_queue", nil, cons, settings.Reaper{}, true},
		{"nil_consumer", q, nil, settings.Reaper{}, true},
		{"negative_workers", q, cons, settings.Reaper{Workers: -1}, true},
		{"too_many_workers", q, cons, settings.Reaper{Workers: 5000}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c batcher.Consumer[*ref.Handle[int]]
			if tt.cons != nil {
				c = tt.cons
			}
			r, err := New[int](tt.q, c, tt.cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, r)
				return
			}
			require.NoError(t, err)
			assert.False(t, r.Running())
		})
	}
}

// =============================================================================
// Run
// =============================================================================

func TestRun_DeliversEveryHandleOnce(t *testing.T) {
	const n = 500

	q := ref.NewQueue[int]()
	cons := &recorder{}
	r, err := New[int](q, cons, settings.Reaper{Workers: 4, BatchSize: 16, FlushInterval: 10 * time.Millisecond}, zaptest.NewLogger(t))
	require.NoError(t, err)

	stop := start(t, r)
	hs := retire(q, n)

	require.Eventually(t, func() bool { return r.Consumed() == n }, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, stop())

	got := cons.handles()
	assert.Len(t, got, n)
	seen := make(map[*ref.Handle[int]]bool, n)
	for _, h := range got {
		assert.False(t, seen[h], "handle %v delivered twice", h)
		seen[h] = true
		assert.Equal(t, ref.StateConsumed, h.State())
	}
	for _, h := range hs {
		assert.True(t, seen[h], "handle %v never delivered", h)
	}
	assert.Zero(t, q.Len())
	assert.False(t, r.Running())
}

func TestRun_FlushesPartialBatchWhenIdle(t *testing.T) {
	q := ref.NewQueue[int]()
	cons := &recorder{}
	r, err := New[int](q, cons, settings.Reaper{Workers: 1, BatchSize: 100, FlushInterval: 20 * time.Millisecond}, nil)
	require.NoError(t, err)

	stop := start(t, r)
	defer func() { require.NoError(t, stop()) }()

	retire(q, 3)
	require.Eventually(t, func() bool { return len(cons.handles()) == 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(3), r.Consumed())
}

func TestRun_FlushesOnShutdown(t *testing.T) {
	q := ref.NewQueue[int]()
	cons := &recorder{}
	r, err := New[int](q, cons, settings.Reaper{Workers: 1, BatchSize: 100, FlushInterval: time.Hour}, nil)
	require.NoError(t, err)

	stop := start(t, r)
	retire(q, 5)
	require.Eventually(t, func() bool { return q.Len() == 0 }, 2*time.Second, time.Millisecond)
	assert.Zero(t, cons.batchCount(), "nothing should flush before shutdown")

	require.NoError(t, stop())
	assert.Len(t, cons.handles(), 5)
	assert.Equal(t, 1, cons.batchCount())
}

func TestRun_AlreadyRunning(t *testing.T) {
	q := ref.NewQueue[int]()
	r, err := New[int](q, &recorder{}, settings.Reaper{}, nil)
	require.NoError(t, err)

	stop := start(t, r)
	err = r.Run(context.Background())
	assert.True(t, errors.Is(err, ErrAlreadyRunning), "got %v", err)
	require.NoError(t, stop())

	// can be restarted once stopped
	stop = start(t, r)
	require.NoError(t, stop())
}

func TestRun_ConsumerErrorsAreCounted(t *testing.T) {
	q := ref.NewQueue[int]()
	cons := &recorder{err: errors.New("sink down")}
	r, err := New[int](q, cons, settings.Reaper{Workers: 1, BatchSize: 2, FlushInterval: 10 * time.Millisecond}, zaptest.NewLogger(t))
	require.NoError(t, err)

	stop := start(t, r)
	retire(q, 4)
	require.Eventually(t, func() bool { return r.Failed() == 4 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, stop())

	assert.Zero(t, r.Consumed())
}
