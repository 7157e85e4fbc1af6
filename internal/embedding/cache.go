package embedding

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"
)

// CacheStore persists cache entries across restarts. Implementations must be
// safe for concurrent use. A nil store disables persistence.
type CacheStore interface {
	SaveEmbedding(ctx context.Context, hash string, vector []float32, createdAt time.Time) error
	LoadEmbeddings(ctx context.Context, notBefore time.Time) (map[string][]float32, error)
}

// Cache memoizes text-to-vector lookups with a TTL and an LRU capacity bound.
// It is shared across concurrent sessions; writes are content-addressed and
// idempotent, so last-write-wins is safe.
type Cache struct {
	embedder Embedder
	store    CacheStore
	capacity int
	ttl      time.Duration

	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List

	hits   uint64
	misses uint64
}

type cacheEntry struct {
	hash      string
	vector    []float32
	createdAt time.Time
}

// NewCache creates a cache in front of embedder. capacity bounds the number of
// entries; ttl bounds their age. store may be nil.
func NewCache(embedder Embedder, capacity int, ttl time.Duration, store CacheStore) *Cache {
	return &Cache{
		embedder: embedder,
		store:    store,
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// WarmLoad fills the cache from the persistent store, skipping expired entries.
func (c *Cache) WarmLoad(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	vectors, err := c.store.LoadEmbeddings(ctx, time.Now().Add(-c.ttl))
	if err != nil {
		return fmt.Errorf("load cached embeddings: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for hash, vec := range vectors {
		c.insert(hash, vec, time.Now())
	}
	return nil
}

// GetOrCompute returns the embedding for text, serving from cache when a
// non-expired entry exists. On miss it invokes the embedding capability,
// retrying once; two consecutive failures surface ErrUnavailable.
// Identical text always yields an identical vector within the TTL window.
func (c *Cache) GetOrCompute(ctx context.Context, text string) ([]float32, error) {
	hash := HashText(text)

	c.mu.Lock()
	if elem, ok := c.entries[hash]; ok {
		entry := elem.Value.(*cacheEntry)
		if time.Since(entry.createdAt) < c.ttl {
			c.lru.MoveToFront(elem)
			c.hits++
			c.mu.Unlock()
			return entry.vector, nil
		}
		// Expired: drop and recompute.
		c.lru.Remove(elem)
		delete(c.entries, hash)
	}
	c.misses++
	c.mu.Unlock()

	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		vec, err = c.embedder.Embed(ctx, text)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	now := time.Now()
	c.mu.Lock()
	c.insert(hash, vec, now)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.SaveEmbedding(ctx, hash, vec, now); err != nil {
			// Persistence is best effort; the in-memory entry is authoritative.
			return vec, nil
		}
	}
	return vec, nil
}

// insert adds an entry, evicting the oldest under capacity pressure.
// Caller must hold c.mu.
func (c *Cache) insert(hash string, vector []float32, createdAt time.Time) {
	if elem, ok := c.entries[hash]; ok {
		c.lru.MoveToFront(elem)
		entry := elem.Value.(*cacheEntry)
		entry.vector = vector
		entry.createdAt = createdAt
		return
	}
	elem := c.lru.PushFront(&cacheEntry{hash: hash, vector: vector, createdAt: createdAt})
	c.entries[hash] = elem
	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).hash)
		}
	}
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
