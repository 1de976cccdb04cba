package shardedmap

import (
	"sync"

	"github.com/huynhanx03/go-refqueue/pkg/utils"
)

const defaultShards = 256

// Map is a thread-safe map split into independently locked shards.
type Map[K comparable, V any] struct {
	shards []*lockedShard[K, V]
	mask   uint64
	hasher func(K) uint64
}

type lockedShard[K comparable, V any] struct {
	sync.RWMutex
	data map[K]V

	// keep neighbouring shards on separate cache lines
	_ [64]byte
}

// New creates a map with shards rounded up to a power of two.
// A non-positive shards value selects the default.
func New[K comparable, V any](shards int, hashFn func(K) uint64) *Map[K, V] {
	if hashFn == nil {
		panic("shardedmap: nil hash function")
	}
	if shards <= 0 {
		shards = defaultShards
	}
	n := utils.CeilToPowerOfTwo(shards)
	m := &Map[K, V]{
		shards: make([]*lockedShard[K, V], n),
		mask:   uint64(n - 1),
		hasher: hashFn,
	}
	for i := range m.shards {
		m.shards[i] = &lockedShard[K, V]{data: make(map[K]V)}
	}
	return m
}

func (m *Map[K, V]) shard(key K) *lockedShard[K, V] {
	return m.shards[m.hasher(key)&m.mask]
}

// Get retrieves a value from the map.
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.shard(key)
	s.RLock()
	v, ok := s.data[key]
	s.RUnlock()
	return v, ok
}

// Set adds or replaces a value.
func (m *Map[K, V]) Set(key K, value V) {
	s := m.shard(key)
	s.Lock()
	s.data[key] = value
	s.Unlock()
}

// Del removes a value.
func (m *Map[K, V]) Del(key K) {
	s := m.shard(key)
	s.Lock()
	delete(s.data, key)
	s.Unlock()
}

// GetAndDel removes a value and returns it. Of several concurrent callers for
// the same key, exactly one observes ok == true.
func (m *Map[K, V]) GetAndDel(key K) (V, bool) {
	s := m.shard(key)
	s.Lock()
	v, ok := s.data[key]
	if ok {
		delete(s.data, key)
	}
	s.Unlock()
	return v, ok
}

// Len returns the number of entries. Shards are counted one at a time, so the
// result is not a snapshot under concurrent writes.
func (m *Map[K, V]) Len() int {
	total := 0
	for _, s := range m.shards {
		s.RLock()
		total += len(s.data)
		s.RUnlock()
	}
	return total
}

// Range calls fn for each entry until fn returns false. One shard is read
// locked at a time; fn must not write to the map.
func (m *Map[K, V]) Range(fn func(K, V) bool) {
	for _, s := range m.shards {
		s.RLock()
		for k, v := range s.data {
			if !fn(k, v) {
				s.RUnlock()
				return
			}
		}
		s.RUnlock()
	}
}
