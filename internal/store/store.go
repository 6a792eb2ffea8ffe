// Package store owns accumulator lifetime for one aggregator. It makes the
// per-key serialization the aggregation contract assumes explicit: every
// accumulator has its own lock, so clones and merges for one key never run
// concurrently, while folds on different keys proceed without coordination.
package store

import (
	"hash/fnv"
	"sync"

	"github.com/torosent/tracefold/internal/aggregate"
)

const shardCount = 16

// Store folds records into keyed accumulators using one aggregator. Safe for
// concurrent producers.
type Store[T any] struct {
	agg    aggregate.Aggregator[T]
	shards [shardCount]shard[T]
}

type shard[T any] struct {
	mu      sync.RWMutex
	entries map[aggregate.Key]*entry[T]
}

type entry[T any] struct {
	mu     sync.Mutex
	seeded bool
	acc    T
}

// New creates an empty store over the given aggregator.
func New[T any](agg aggregate.Aggregator[T]) *Store[T] {
	s := &Store[T]{agg: agg}
	for i := range s.shards {
		s.shards[i].entries = make(map[aggregate.Key]*entry[T])
	}
	return s
}

// Fold merges rec into the accumulator for its key, seeding a new accumulator
// from a clone on the first contribution.
func (s *Store[T]) Fold(rec T) {
	key := s.agg.Key(rec)
	e := s.entry(key)

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.seeded {
		e.acc = s.agg.Clone(rec)
		e.seeded = true
		return
	}
	s.agg.Aggregate(e.acc, rec)
}

// Get returns a clone of the accumulator for key, or the zero value and false
// when no record contributed to it.
func (s *Store[T]) Get(key aggregate.Key) (T, bool) {
	sh := s.shard(key)
	sh.mu.RLock()
	e, ok := sh.entries[key]
	sh.mu.RUnlock()
	if !ok {
		var zero T
		return zero, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.seeded {
		var zero T
		return zero, false
	}
	return s.agg.Clone(e.acc), true
}

// Snapshot returns clones of all accumulators, keyed.
func (s *Store[T]) Snapshot() map[aggregate.Key]T {
	out := make(map[aggregate.Key]T)
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		entries := make(map[aggregate.Key]*entry[T], len(sh.entries))
		for k, e := range sh.entries {
			entries[k] = e
		}
		sh.mu.RUnlock()

		for k, e := range entries {
			e.mu.Lock()
			if e.seeded {
				out[k] = s.agg.Clone(e.acc)
			}
			e.mu.Unlock()
		}
	}
	return out
}

// Evict removes the accumulator for key, reporting whether one existed.
func (s *Store[T]) Evict(key aggregate.Key) bool {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.entries[key]; !ok {
		return false
	}
	delete(sh.entries, key)
	return true
}

// Reset drops every accumulator. The flush boundary for all keys at once.
func (s *Store[T]) Reset() {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		sh.entries = make(map[aggregate.Key]*entry[T])
		sh.mu.Unlock()
	}
}

// Len returns the number of live accumulators.
func (s *Store[T]) Len() int {
	total := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		total += len(sh.entries)
		sh.mu.RUnlock()
	}
	return total
}

func (s *Store[T]) entry(key aggregate.Key) *entry[T] {
	sh := s.shard(key)

	sh.mu.RLock()
	e, ok := sh.entries[key]
	sh.mu.RUnlock()
	if ok {
		return e
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, ok := sh.entries[key]; ok {
		return e
	}
	e = &entry[T]{}
	sh.entries[key] = e
	return e
}

func (s *Store[T]) shard(key aggregate.Key) *shard[T] {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &s.shards[h.Sum32()%shardCount]
}
