package repositories

import (
	"hash/fnv"
	"sync"
)

const shardCount = 32

// shardedMap spreads keys over independently locked shards so that
// operations on different phones do not contend on a single mutex.
type shardedMap[V any] struct {
	shards [shardCount]*shard[V]
}

type shard[V any] struct {
	mu    sync.Mutex
	items map[string]V
}

func newShardedMap[V any]() *shardedMap[V] {
	m := &shardedMap[V]{}
	for i := range m.shards {
		m.shards[i] = &shard[V]{items: make(map[string]V)}
	}
	return m
}

func (m *shardedMap[V]) shardFor(key string) *shard[V] {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return m.shards[h.Sum32()%shardCount]
}

func (m *shardedMap[V]) get(key string) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	return v, ok
}

func (m *shardedMap[V]) set(key string, v V) {
	s := m.shardFor(key)
	s.mu.Lock()
	s.items[key] = v
	s.mu.Unlock()
}

func (m *shardedMap[V]) delete(key string) {
	s := m.shardFor(key)
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

// update runs fn under the key's shard lock. fn returns the new value and
// whether to keep it; keep=false removes the key.
func (m *shardedMap[V]) update(key string, fn func(current V, ok bool) (V, bool)) V {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items[key]
	next, keep := fn(current, ok)
	if keep {
		s.items[key] = next
	} else {
		delete(s.items, key)
	}
	return next
}

// deleteWhere removes every entry matching pred, one shard at a time
func (m *shardedMap[V]) deleteWhere(pred func(V) bool) int {
	removed := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for k, v := range s.items {
			if pred(v) {
				delete(s.items, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

func (m *shardedMap[V]) len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.Lock()
		n += len(s.items)
		s.mu.Unlock()
	}
	return n
}
