// Package fastkeeper is the fast read tier: an in-memory cache of
// serialized records with an explicit per-collection id index. It is never
// the source of truth; every operation fails soft.
package fastkeeper

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/wurt83ow/rosterkeeper/pkg/logger"
	"github.com/wurt83ow/rosterkeeper/pkg/models"
)

// ErrQuotaExceeded is returned (after logging) when a put cannot fit even
// after eviction. Callers treat it as a cache miss, not a failure.
var ErrQuotaExceeded = errors.New("fast store quota exceeded")

type Cache struct {
	mu       sync.Mutex
	entries  map[string]string   // "collection:id" -> serialized record
	index    map[string][]string // collection -> ordered known ids
	order    []string            // insertion order of keys, for eviction
	capacity int
	log      logger.LoggerInterface
}

func New(capacity int, log logger.LoggerInterface) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache{
		entries:  make(map[string]string),
		index:    make(map[string][]string),
		capacity: capacity,
		log:      log,
	}
}

func key(collection, id string) string {
	return collection + ":" + id
}

// Put serializes and stores the record and registers the id in the
// collection index. On serialization failure or exhausted quota it logs
// and reports the error; other tiers remain authoritative.
func (c *Cache) Put(collection, id string, rec models.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		c.log.Printf("fastkeeper: serialize %s/%s: %v", collection, id, err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	k := key(collection, id)
	if _, exists := c.entries[k]; !exists {
		for len(c.entries) >= c.capacity {
			if !c.evictOldest() {
				c.log.Printf("fastkeeper: put %s/%s: %v", collection, id, ErrQuotaExceeded)
				return ErrQuotaExceeded
			}
		}
		c.order = append(c.order, k)
		c.index[collection] = appendIfAbsent(c.index[collection], id)
	}
	c.entries[k] = string(raw)
	return nil
}

// Get returns the cached record. Absent or corrupt entries are misses; a
// corrupt entry is dropped so it is not decoded again.
func (c *Cache) Get(collection, id string) (models.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, ok := c.entries[key(collection, id)]
	if !ok {
		return models.Record{}, false
	}
	var rec models.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		c.log.Printf("fastkeeper: corrupt entry %s/%s dropped: %v", collection, id, err)
		c.removeLocked(collection, id)
		return models.Record{}, false
	}
	return rec, true
}

// GetAll maps the collection index over Get and filters misses.
func (c *Cache) GetAll(collection string) []models.Record {
	c.mu.Lock()
	ids := append([]string(nil), c.index[collection]...)
	c.mu.Unlock()

	out := make([]models.Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := c.Get(collection, id); ok {
			out = append(out, rec)
		}
	}
	return out
}

// Delete removes the entry and its index reference.
func (c *Cache) Delete(collection, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(collection, id)
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) removeLocked(collection, id string) {
	k := key(collection, id)
	delete(c.entries, k)
	c.order = removeString(c.order, k)
	c.index[collection] = removeString(c.index[collection], id)
}

// evictOldest drops the oldest inserted entry. Reports false when there is
// nothing left to evict.
func (c *Cache) evictOldest() bool {
	for len(c.order) > 0 {
		k := c.order[0]
		c.order = c.order[1:]
		if _, ok := c.entries[k]; !ok {
			continue
		}
		delete(c.entries, k)
		for collection, ids := range c.index {
			for _, id := range ids {
				if key(collection, id) == k {
					c.index[collection] = removeString(ids, id)
					return true
				}
			}
		}
		return true
	}
	return false
}

func appendIfAbsent(ids []string, id string) []string {
	for _, have := range ids {
		if have == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeString(ss []string, s string) []string {
	for i, have := range ss {
		if have == s {
			return append(ss[:i], ss[i+1:]...)
		}
	}
	return ss
}
