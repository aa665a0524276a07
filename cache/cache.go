// Package cache keeps recently used parsed instances in memory under a
// byte budget.
package cache

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/caio-sobreiro/dicomcore/dicom"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
)

// DefaultMaxBytes is the budget used when none is configured.
const DefaultMaxBytes = 128 * 1024 * 1024

type entry struct {
	instance *dicom.ParsedInstance
	size     int64
}

// Loader reads and parses an instance missing from the cache. size is the
// memory it accounts for, usually the length of its Part 10 file.
type Loader func(ctx context.Context, id string) (inst *dicom.ParsedInstance, size int64, err error)

// ParsedCache is an LRU of parsed instances bounded by the sum of their
// sizes. An instance larger than the whole budget goes to a single
// dedicated slot, outside the LRU, which the next large instance replaces.
//
// Instances handed out by Access are only used while the cache lock is
// held, so one instance is never touched by two goroutines at once.
type ParsedCache struct {
	mu       sync.Mutex
	lru      *simplelru.LRU[string, entry]
	size     int64
	maxBytes int64

	largeID    string
	largeEntry *entry

	logger *slog.Logger
}

// New returns a cache holding at most maxBytes of instances.
func New(maxBytes int64) (*ParsedCache, error) {
	if maxBytes <= 0 {
		return nil, dcmerr.New(dcmerr.KindParameterOutOfRange, "cache budget must be positive, got %d", maxBytes)
	}
	c := &ParsedCache{maxBytes: maxBytes, logger: slog.Default()}
	// The entry count is unbounded: the byte budget is enforced by hand.
	lru, err := simplelru.NewLRU[string, entry](math.MaxInt32, c.evicted)
	if err != nil {
		return nil, err
	}
	c.lru = lru
	return c, nil
}

func (c *ParsedCache) evicted(id string, e entry) {
	c.size -= e.size
}

// recycle must be called with mu held.
func (c *ParsedCache) recycle(target int64) {
	for c.size > target {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}
}

// Put stores inst under id. An id already cached keeps its first value.
func (c *ParsedCache) Put(id string, inst *dicom.ParsedInstance, size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(id, inst, size)
}

func (c *ParsedCache) put(id string, inst *dicom.ParsedInstance, size int64) {
	if size < 0 {
		size = 0
	}
	if size > c.maxBytes {
		if c.lru.Contains(id) {
			c.lru.Remove(id)
		}
		c.largeID, c.largeEntry = id, &entry{instance: inst, size: size}
		c.logger.Debug("Parsed instance kept in the large slot", "id", id, "size", size)
		return
	}
	if c.lru.Contains(id) {
		c.lru.Get(id)
		return
	}
	if c.largeID == id {
		c.largeID, c.largeEntry = "", nil
	}
	c.recycle(c.maxBytes - size)
	c.lru.Add(id, entry{instance: inst, size: size})
	c.size += size
}

func (c *ParsedCache) lookup(id string) (*dicom.ParsedInstance, bool) {
	if c.largeEntry != nil && c.largeID == id {
		return c.largeEntry.instance, true
	}
	if e, ok := c.lru.Get(id); ok {
		return e.instance, true
	}
	return nil, false
}

// Access runs fn on the instance cached under id, loading it first when
// missing. fn must not keep the instance once it returns.
func (c *ParsedCache) Access(ctx context.Context, id string, load Loader, fn func(*dicom.ParsedInstance) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst, ok := c.lookup(id)
	if !ok {
		var size int64
		var err error
		inst, size, err = load(ctx, id)
		if err != nil {
			return err
		}
		c.put(id, inst, size)
	}
	return fn(inst)
}

// Contains reports whether id is cached, without touching its recency.
func (c *ParsedCache) Contains(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return (c.largeEntry != nil && c.largeID == id) || c.lru.Contains(id)
}

// Invalidate drops id, typically after the instance was modified or deleted.
func (c *ParsedCache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.largeID == id {
		c.largeID, c.largeEntry = "", nil
	}
	c.lru.Remove(id)
}

// SetMaxBytes changes the budget, evicting as needed.
func (c *ParsedCache) SetMaxBytes(maxBytes int64) error {
	if maxBytes <= 0 {
		return dcmerr.New(dcmerr.KindParameterOutOfRange, "cache budget must be positive, got %d", maxBytes)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxBytes = maxBytes
	c.recycle(maxBytes)
	return nil
}

// Len returns the number of cached instances, the large slot included.
func (c *ParsedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.lru.Len()
	if c.largeEntry != nil {
		n++
	}
	return n
}

// Size returns the bytes accounted in the LRU, the large slot excluded.
func (c *ParsedCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}
