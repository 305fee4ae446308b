package cache

import (
	"context"
	"sync/atomic"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

const sweepEvery = 1024

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryStore keeps entries in process. Entries of old tag generations are
// never read again and get swept once expired.
type MemoryStore struct {
	entries  cmap.ConcurrentMap[string, memoryEntry]
	counters cmap.ConcurrentMap[string, int64]
	writes   atomic.Int64
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:  cmap.New[memoryEntry](),
		counters: cmap.New[int64](),
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	e, ok := s.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(e.expires) {
		s.entries.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.entries.Set(key, memoryEntry{value: value, expires: s.now().Add(ttl)})
	if s.writes.Add(1)%sweepEvery == 0 {
		s.sweep()
	}
	return nil
}

func (s *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.counters.Upsert(key, 1, func(exist bool, old, _ int64) int64 {
		if exist {
			return old + 1
		}
		return 1
	}), nil
}

func (s *MemoryStore) Counter(ctx context.Context, key string) (int64, error) {
	n, _ := s.counters.Get(key)
	return n, nil
}

func (s *MemoryStore) Len() int {
	return s.entries.Count()
}

func (s *MemoryStore) sweep() {
	now := s.now()
	var expired []string
	s.entries.IterCb(func(key string, e memoryEntry) {
		if !now.Before(e.expires) {
			expired = append(expired, key)
		}
	})
	for _, key := range expired {
		s.entries.RemoveCb(key, func(_ string, e memoryEntry, exists bool) bool {
			return exists && !now.Before(e.expires)
		})
	}
}
