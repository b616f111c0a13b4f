package storage

import (
	"context"
	"sync"

	"github.com/golang/groupcache/lru"

	"study-translate/internal/models"
)

// DefaultMemorySize bounds the in-memory cache when no size is configured.
const DefaultMemorySize = 1000

// MemoryStore is a bounded LRU cache. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.Mutex
	cache *lru.Cache
}

func NewMemoryStore(size int) *MemoryStore {
	if size <= 0 {
		size = DefaultMemorySize
	}
	return &MemoryStore{cache: lru.New(size)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*models.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.cache.Get(key)
	if !ok {
		return nil, nil
	}
	e := v.(models.CacheEntry)
	return &e, nil
}

func (s *MemoryStore) Put(_ context.Context, entry *models.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cache.Get(entry.Key); ok {
		return nil
	}
	s.cache.Add(entry.Key, *entry)
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}

func (s *MemoryStore) Stats(context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Backend: "memory", Entries: s.cache.Len()}, nil
}
