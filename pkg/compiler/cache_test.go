// Copyright 2025 Certen Protocol
//
// Two-Tier Compilation Cache Tests

package compiler

import "testing"

func TestCache_MissThenHitFromMemory(t *testing.T) {
	cache, err := NewCache(16, nil, PipelineConfig{TargetArch: TargetRV64IMC}, nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	meta := moveMeta("0x10")
	first, err := cache.Get(meta)
	if err != nil {
		t.Fatalf("get (miss): %v", err)
	}

	stats := cache.Stats()
	if stats.Misses != 1 {
		t.Errorf("misses = %d, want 1", stats.Misses)
	}

	second, err := cache.Get(meta)
	if err != nil {
		t.Fatalf("get (hit): %v", err)
	}
	stats = cache.Stats()
	if stats.MemoryHits != 1 {
		t.Errorf("memory hits = %d, want 1", stats.MemoryHits)
	}
	if first.OriginalAddress != second.OriginalAddress {
		t.Error("expected identical artifact across cache hit")
	}
}

func TestCache_DiskHitPopulatesMemory(t *testing.T) {
	disk := newMemStore()
	cache, err := NewCache(16, disk, PipelineConfig{TargetArch: TargetRV64IMC}, nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	meta := moveMeta("0x20")
	artifact, err := Compile(meta, PipelineConfig{TargetArch: TargetRV64IMC})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	key := CacheKey(meta)
	if err := cache.Put(key, artifact); err != nil {
		t.Fatalf("put: %v", err)
	}

	// A fresh Cache sharing the same disk store should hit tier 2.
	fresh, err := NewCache(16, disk, PipelineConfig{TargetArch: TargetRV64IMC}, nil)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	got, err := fresh.Get(meta)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.OriginalAddress != artifact.OriginalAddress {
		t.Error("expected artifact retrieved from disk tier to match")
	}
	if fresh.Stats().DiskHits != 1 {
		t.Errorf("disk hits = %d, want 1", fresh.Stats().DiskHits)
	}
}

func TestCache_Warmup(t *testing.T) {
	disk := newMemStore()
	meta := moveMeta("0x30")
	artifact, _ := Compile(meta, PipelineConfig{TargetArch: TargetRV64IMC})
	key := CacheKey(meta)

	seed, _ := NewCache(16, disk, PipelineConfig{}, nil)
	if err := seed.Put(key, artifact); err != nil {
		t.Fatalf("put: %v", err)
	}

	fresh, _ := NewCache(16, disk, PipelineConfig{}, nil)
	if err := fresh.Warmup([]string{key}); err != nil {
		t.Fatalf("warmup: %v", err)
	}
	if fresh.Stats().MemoryEntries != 1 {
		t.Errorf("memory entries after warmup = %d, want 1", fresh.Stats().MemoryEntries)
	}
}

// memStore is a minimal in-memory kvstore.Store for tests that don't need
// a real GoLevelDB instance.
type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (s *memStore) Get(key []byte) ([]byte, error) { return s.data[string(key)], nil }
func (s *memStore) Set(key, value []byte) error    { s.data[string(key)] = value; return nil }
func (s *memStore) Delete(key []byte) error        { delete(s.data, string(key)); return nil }
func (s *memStore) Has(key []byte) (bool, error) {
	_, ok := s.data[string(key)]
	return ok, nil
}
func (s *memStore) Iterate(fn func(key, value []byte) error) error {
	for k, v := range s.data {
		if err := fn([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}
func (s *memStore) Close() error { return nil }
