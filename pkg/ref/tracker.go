package ref

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/huynhanx03/go-refqueue/pkg/datastructs/shardedmap"
)

const defaultTrackerShards = 64

type tracked[T any] struct {
	handle  *Handle[T]
	cleanup runtime.Cleanup
}

// Tracker retires handles onto a Queue when the objects they track become
// unreachable. It relies on runtime.AddCleanup, so retirement happens some
// time after a garbage collection cycle finds the object dead.
//
// Handles are kept alive by the tracker until they are retired or untracked.
type Tracker[T any] struct {
	queue *Queue[T]
	live  *shardedmap.Map[uint64, tracked[T]]
	log   *zap.Logger
}

// NewTracker creates a tracker that retires onto q.
func NewTracker[T any](q *Queue[T], log *zap.Logger) *Tracker[T] {
	if q == nil {
		panic("ref: nil queue")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker[T]{
		queue: q,
		live:  shardedmap.New[uint64, tracked[T]](defaultTrackerShards, func(id uint64) uint64 { return id }),
		log:   log,
	}
}

// Track registers obj and returns its handle. The handle holds payload, never
// obj, so tracking does not keep obj reachable.
func Track[O, T any](t *Tracker[T], obj *O, payload T, kind Kind) *Handle[T] {
	if obj == nil {
		panic("ref: nil object")
	}

	h := t.queue.NewHandle(payload, kind)
	t.live.Set(h.id, tracked[T]{handle: h})
	c := runtime.AddCleanup(obj, t.retire, h)
	t.live.Set(h.id, tracked[T]{handle: h, cleanup: c})
	runtime.KeepAlive(obj)

	t.log.Debug("tracking object", zap.Uint64("handle", h.id), zap.Stringer("kind", h.kind))
	return h
}

// retire runs on the cleanup goroutine once the tracked object is dead.
func (t *Tracker[T]) retire(h *Handle[T]) {
	if _, ok := t.live.GetAndDel(h.id); !ok {
		return
	}
	t.log.Debug("object retired", zap.Uint64("handle", h.id))
	h.Enqueue()
}

// Untrack stops watching the object behind h. The handle stays Active and
// will never be retired by the tracker. It returns false if h was not live.
func (t *Tracker[T]) Untrack(h *Handle[T]) bool {
	e, ok := t.live.GetAndDel(h.id)
	if !ok {
		return false
	}
	e.cleanup.Stop()
	t.log.Debug("object untracked", zap.Uint64("handle", h.id))
	return true
}

// Pending returns the number of handles whose objects are still tracked.
func (t *Tracker[T]) Pending() int {
	return t.live.Len()
}

// Queue returns the queue handles are retired onto.
func (t *Tracker[T]) Queue() *Queue[T] {
	return t.queue
}
