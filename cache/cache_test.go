package cache

import "testing"

func TestInsertGetContains(t *testing.T) {
	c, err := New[string](Options{Capacity: 64})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Insert("k1", "v1", nil)
	if !c.Contains("k1", nil) {
		t.Fatalf("expected Contains(k1)")
	}
	v, ok := c.Get("k1", nil)
	if !ok || v != "v1" {
		t.Fatalf("Get(k1) = %q, %v", v, ok)
	}
}

func TestPutIfAbsent(t *testing.T) {
	c, _ := New[int](Options{Capacity: 64})
	if _, inserted := c.PutIfAbsent("a", 1, nil); !inserted {
		t.Fatalf("expected first PutIfAbsent to insert")
	}
	existing, inserted := c.PutIfAbsent("a", 2, nil)
	if inserted || existing != 1 {
		t.Fatalf("PutIfAbsent on existing key = %v, %v, want 1, false", existing, inserted)
	}
}

func TestInsertOverwritesOnCollision(t *testing.T) {
	c, _ := New[int](Options{Capacity: 64})
	c.Insert("a", 1, nil)
	c.Insert("a", 2, nil)
	v, _ := c.Get("a", nil)
	if v != 2 {
		t.Fatalf("Get(a) = %d, want 2", v)
	}
}

func TestEvictAndClear(t *testing.T) {
	c, _ := New[int](Options{Capacity: 64})
	c.Insert("a", 1, nil)
	if !c.Evict("a", nil) {
		t.Fatalf("expected Evict(a) to report present")
	}
	if c.Contains("a", nil) {
		t.Fatalf("expected a gone after Evict")
	}
	c.Insert("b", 2, nil)
	c.Insert("c", 3, nil)
	c.Clear()
	if c.Contains("b", nil) || c.Contains("c", nil) {
		t.Fatalf("expected all entries gone after Clear")
	}
}

func TestStatsTracksLookupsHitsEvictions(t *testing.T) {
	c, _ := New[int](Options{Capacity: 1, Bits: 0}) // 16 buckets, 1 entry each minimum
	c.Insert("a", 1, nil)
	c.Get("a", nil)
	c.Get("missing", nil)
	stats := c.Stats()
	if stats.Lookups != 2 {
		t.Fatalf("Lookups = %d, want 2", stats.Lookups)
	}
	if stats.Hits != 1 {
		t.Fatalf("Hits = %d, want 1", stats.Hits)
	}
	if stats.Evictions != 0 {
		t.Fatalf("Evictions = %d, want 0", stats.Evictions)
	}
}

func TestBucketHintRoutesConsistently(t *testing.T) {
	c, _ := New[int](Options{Capacity: 64})
	hint := c.Hash("k")
	c.Insert("k", 7, &hint)
	v, ok := c.Get("k", &hint)
	if !ok || v != 7 {
		t.Fatalf("Get with hint = %v, %v", v, ok)
	}
}

func TestEvictionAcrossBucketCapacity(t *testing.T) {
	c, _ := New[int](Options{Capacity: 2}) // 16 buckets, 1 entry per bucket
	var hint BucketHint = 0
	c.Insert("x", 1, &hint)
	c.Insert("y", 2, &hint)
	stats := c.Stats()
	if stats.Evictions == 0 {
		t.Fatalf("expected at least one eviction forcing two entries into a 1-capacity bucket")
	}
	if c.Contains("x", &hint) {
		t.Fatalf("expected x evicted by y in the same 1-capacity bucket")
	}
}
