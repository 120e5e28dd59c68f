// Copyright 2025 Certen Protocol
//
// Two-tier compilation cache: an in-memory LRU (Tier 1) backed by a
// persistent key-value store (Tier 2). Lookup protocol: probe memory,
// else probe disk (populating memory on hit), else run the pipeline and
// persist+populate on miss.

package compiler

import (
	"log"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/certen/offchain-channel/pkg/coreid"
	"github.com/certen/offchain-channel/pkg/corerr"
	"github.com/certen/offchain-channel/pkg/kvstore"
)

// Stats reports the cache's current occupancy. Hit/miss counters are
// cumulative since the Cache was constructed.
type Stats struct {
	MemoryEntries  int
	MemoryCapacity int
	MemoryHits     uint64
	DiskHits       uint64
	Misses         uint64
}

// Cache is the two-tier compilation cache. All methods are safe for
// concurrent use.
type Cache struct {
	mu sync.Mutex

	memory   *lru.Cache
	capacity int
	disk     kvstore.Store
	cfg      PipelineConfig

	memoryHits uint64
	diskHits   uint64
	misses     uint64

	log *log.Logger
}

// NewCache builds a Cache with a Tier-1 LRU of the given capacity backed
// by disk. disk may be nil, in which case the cache operates memory-only
// (useful for tests).
func NewCache(capacity int, disk kvstore.Store, cfg PipelineConfig, logger *log.Logger) (*Cache, error) {
	memory, err := lru.New(capacity)
	if err != nil {
		return nil, corerr.Wrap(corerr.InternalError, "compiler.NewCache", err)
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[CompilerCache] ", log.LstdFlags)
	}
	return &Cache{memory: memory, capacity: capacity, disk: disk, cfg: cfg, log: logger}, nil
}

// Get runs the full lookup protocol for meta, compiling on a full miss.
func (c *Cache) Get(meta *coreid.ContractMeta) (*Artifact, error) {
	key := CacheKey(meta)

	c.mu.Lock()
	if v, ok := c.memory.Get(key); ok {
		c.memoryHits++
		c.mu.Unlock()
		return v.(*Artifact), nil
	}
	c.mu.Unlock()

	if c.disk != nil {
		data, err := c.disk.Get([]byte(key))
		if err != nil {
			return nil, corerr.Wrap(corerr.InternalError, "compiler.Cache.Get", err)
		}
		if data != nil {
			artifact, err := Unmarshal(data)
			if err != nil {
				return nil, corerr.Wrap(corerr.CompileError, "compiler.Cache.Get", err)
			}
			c.mu.Lock()
			c.diskHits++
			c.memory.Add(key, artifact)
			c.mu.Unlock()
			c.log.Printf("cache hit (disk): %s", key)
			return artifact, nil
		}
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	c.log.Printf("cache miss, compiling: %s", key)

	artifact, err := Compile(meta, c.cfg)
	if err != nil {
		return nil, corerr.Wrap(corerr.CompileError, "compiler.Cache.Get", err)
	}
	if err := c.Put(key, artifact); err != nil {
		return nil, err
	}
	return artifact, nil
}

// Put stores artifact under key in both tiers.
func (c *Cache) Put(key string, artifact *Artifact) error {
	if c.disk != nil {
		data, err := artifact.Marshal()
		if err != nil {
			return corerr.Wrap(corerr.InternalError, "compiler.Cache.Put", err)
		}
		if err := c.disk.Set([]byte(key), data); err != nil {
			return corerr.Wrap(corerr.InternalError, "compiler.Cache.Put", err)
		}
	}
	c.mu.Lock()
	c.memory.Add(key, artifact)
	c.mu.Unlock()
	return nil
}

// Remove evicts key from both tiers.
func (c *Cache) Remove(key string) error {
	c.mu.Lock()
	c.memory.Remove(key)
	c.mu.Unlock()
	if c.disk != nil {
		return c.disk.Delete([]byte(key))
	}
	return nil
}

// Warmup loads keys from disk into the memory tier ahead of traffic,
// ignoring keys that aren't present on disk.
func (c *Cache) Warmup(keys []string) error {
	if c.disk == nil {
		return nil
	}
	loaded := 0
	for _, key := range keys {
		data, err := c.disk.Get([]byte(key))
		if err != nil || data == nil {
			continue
		}
		artifact, err := Unmarshal(data)
		if err != nil {
			continue
		}
		c.mu.Lock()
		c.memory.Add(key, artifact)
		c.mu.Unlock()
		loaded++
	}
	c.log.Printf("warmed up %d of %d keys", loaded, len(keys))
	return nil
}

// Stats reports current cache occupancy and cumulative hit/miss counts.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		MemoryEntries:  c.memory.Len(),
		MemoryCapacity: c.capacity,
		MemoryHits:     c.memoryHits,
		DiskHits:       c.diskHits,
		Misses:         c.misses,
	}
}
