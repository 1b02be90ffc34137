// Package cache provides the result cache that fronts the query engine.
//
// The cache is a bounded map of normalized question keys to query results,
// combining TTL expiry with least-recently-used eviction:
//   - Hash map for O(1) lookups
//   - Doubly-linked list for LRU ordering
//   - TTL checked on read; expired entries are treated as absent and removed
//
// Ingestion invalidates the whole cache after every committed batch:
// correctness over hit rate, since a new edge can change any in-flight
// answer. Hit, miss, eviction, and expiry events are reported to metrics,
// never raised as errors.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/cairnstack/ontograph/metrics"
	"github.com/cairnstack/ontograph/ontology"
)

// ResultCache is a thread-safe TTL + LRU cache of query results.
type ResultCache struct {
	mu sync.Mutex

	maxSize int
	ttl     time.Duration

	list  *list.List
	items map[string]*list.Element

	sink metrics.Sink
	now  func() time.Time
}

// entry holds a cached result with bookkeeping timestamps.
type entry struct {
	key          string
	value        ontology.QueryResult
	insertedAt   time.Time
	expiresAt    time.Time
	lastAccessed time.Time
}

// New creates a result cache.
//
// maxSize bounds the entry count (LRU eviction beyond it); values <= 0
// default to 1024. ttl is the time-to-live per entry; 0 disables expiry.
// A nil sink disables metrics emission.
func New(maxSize int, ttl time.Duration, sink metrics.Sink) *ResultCache {
	if maxSize <= 0 {
		maxSize = 1024
	}
	if sink == nil {
		sink = metrics.Nop{}
	}
	return &ResultCache{
		maxSize: maxSize,
		ttl:     ttl,
		list:    list.New(),
		items:   make(map[string]*list.Element, maxSize),
		sink:    sink,
		now:     time.Now,
	}
}

// WithClock overrides the cache's time source. Tests only.
func (c *ResultCache) WithClock(now func() time.Time) *ResultCache {
	c.now = now
	return c
}

// Get retrieves a cached result. An entry past its expiry is removed and
// reported as a miss. A hit refreshes last-accessed and LRU position.
func (c *ResultCache) Get(q ontology.Question) (ontology.QueryResult, bool) {
	key := q.CacheKey()

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.sink.Inc(metrics.CacheMisses, nil)
		return ontology.QueryResult{}, false
	}

	e := elem.Value.(*entry)
	if c.ttl > 0 && c.now().After(e.expiresAt) {
		c.removeElement(elem)
		c.sink.Inc(metrics.CacheExpiries, nil)
		c.sink.Inc(metrics.CacheMisses, nil)
		return ontology.QueryResult{}, false
	}

	e.lastAccessed = c.now()
	c.list.MoveToFront(elem)
	c.sink.Inc(metrics.CacheHits, nil)
	return e.value, true
}

// Put stores a result under the normalized question key. At capacity the
// least-recently-accessed entry is evicted first.
func (c *ResultCache) Put(q ontology.Question, value ontology.QueryResult) {
	key := q.CacheKey()
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry)
		e.value = value
		e.insertedAt = now
		e.expiresAt = now.Add(c.ttl)
		e.lastAccessed = now
		c.list.MoveToFront(elem)
		return
	}

	if c.list.Len() >= c.maxSize {
		if oldest := c.list.Back(); oldest != nil {
			c.removeElement(oldest)
			c.sink.Inc(metrics.CacheEvictions, nil)
		}
	}

	elem := c.list.PushFront(&entry{
		key:          key,
		value:        value,
		insertedAt:   now,
		expiresAt:    now.Add(c.ttl),
		lastAccessed: now,
	})
	c.items[key] = elem
	c.sink.Gauge(metrics.CacheSize, float64(c.list.Len()), nil)
}

// Invalidate removes specific questions from the cache.
func (c *ResultCache) Invalidate(questions ...ontology.Question) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, q := range questions {
		if elem, ok := c.items[q.CacheKey()]; ok {
			c.removeElement(elem)
		}
	}
	c.sink.Gauge(metrics.CacheSize, float64(c.list.Len()), nil)
}

// InvalidateAll clears the cache. Called by the ingestion pipeline after
// every committed batch.
func (c *ResultCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list.Init()
	c.items = make(map[string]*list.Element, c.maxSize)
	c.sink.Gauge(metrics.CacheSize, 0, nil)
}

// Len reports the current entry count.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.Len()
}

// removeElement unlinks an entry. Caller holds the lock.
func (c *ResultCache) removeElement(elem *list.Element) {
	c.list.Remove(elem)
	delete(c.items, elem.Value.(*entry).key)
}
