package detect

import (
	"container/list"
	"context"
	"log"
	"sync"
)

// inflight tracks a detection currently being computed for a content ID.
// Followers wait on done and share the outcome instead of issuing a
// duplicate provider call.
type inflight struct {
	done   chan struct{}
	record *Record
	err    error
}

// cacheEntry is the LRU list payload.
type cacheEntry struct {
	contentID string
	record    *Record
}

// Cache is an LRU detection cache keyed by content identity.
// It guarantees at most one provider call per distinct image content while
// the record stays cached; concurrent misses for the same content collapse
// into a single in-flight computation. Errors are never cached.
type Cache struct {
	provider Provider
	store    Store // optional persistent backend, may be nil
	capacity int

	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
	inflight map[string]*inflight
}

// NewCache creates a detection cache in front of the given provider.
// A non-nil store is consulted before the provider on misses and written
// through after successful computes.
func NewCache(provider Provider, store Store, capacity int) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache{
		provider: provider,
		store:    store,
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		inflight: make(map[string]*inflight),
	}
}

// GetOrCompute returns the detection record for a photo, computing it at most
// once per distinct content. The photo name only labels errors; identical
// bytes under different names share one record.
func (c *Cache) GetOrCompute(ctx context.Context, photo Photo) (*Record, error) {
	contentID := ContentID(photo.Data)

	c.mu.Lock()
	if elem, ok := c.entries[contentID]; ok {
		c.order.MoveToFront(elem)
		record := elem.Value.(*cacheEntry).record
		c.mu.Unlock()
		return record, nil
	}

	if call, ok := c.inflight[contentID]; ok {
		c.mu.Unlock()
		select {
		case <-call.done:
			if call.err != nil {
				return nil, &DetectionError{ContentID: contentID, Photo: photo.Name, Err: call.err}
			}
			return call.record, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	call := &inflight{done: make(chan struct{})}
	c.inflight[contentID] = call
	c.mu.Unlock()

	record, err := c.compute(ctx, contentID, photo.Data)

	c.mu.Lock()
	call.record = record
	call.err = err
	delete(c.inflight, contentID)
	if err == nil {
		c.insert(contentID, record)
	}
	c.mu.Unlock()
	close(call.done)

	if err != nil {
		return nil, &DetectionError{ContentID: contentID, Photo: photo.Name, Err: err}
	}
	return record, nil
}

// compute resolves a record from the persistent store or the provider.
func (c *Cache) compute(ctx context.Context, contentID string, data []byte) (*Record, error) {
	if c.store != nil {
		record, err := c.store.Lookup(ctx, contentID)
		if err != nil {
			// Store trouble degrades to a provider call, it never fails detection.
			log.Printf("detection store lookup failed for %.12s: %v", contentID, err)
		} else if record != nil {
			return record, nil
		}
	}

	faces, err := c.provider.Detect(ctx, data)
	if err != nil {
		return nil, err
	}

	record := &Record{ContentID: contentID, Faces: faces}
	if c.store != nil {
		if err := c.store.Save(ctx, record); err != nil {
			log.Printf("detection store save failed for %.12s: %v", contentID, err)
		}
	}
	return record, nil
}

// insert adds a record to the LRU, evicting the oldest entry at capacity.
// Caller must hold the mutex.
func (c *Cache) insert(contentID string, record *Record) {
	if elem, ok := c.entries[contentID]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*cacheEntry).record = record
		return
	}

	for len(c.entries) >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).contentID)
	}

	c.entries[contentID] = c.order.PushFront(&cacheEntry{contentID: contentID, record: record})
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Contains reports whether a content ID is currently cached without
// touching recency order.
func (c *Cache) Contains(contentID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[contentID]
	return ok
}
