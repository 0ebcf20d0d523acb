package kv

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/graphkv/graphd/storagekey"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	e, err := Open(Options{Dir: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestPutGetDelete(t *testing.T) {
	e := openTestEngine(t)
	key := []byte("k1")
	if err := e.Put(key, []byte("v1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	val, found, err := e.Get(key)
	if err != nil || !found || string(val) != "v1" {
		t.Fatalf("Get = %q, %v, %v", val, found, err)
	}
	if err := e.Delete(key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found, _ := e.Get(key); found {
		t.Fatalf("expected key gone after Delete")
	}
}

func TestMultiGetMultiPut(t *testing.T) {
	e := openTestEngine(t)
	kvs := []KV{
		{Key: []byte("a"), Val: []byte("1")},
		{Key: []byte("b"), Val: []byte("2")},
	}
	if err := e.MultiPut(kvs); err != nil {
		t.Fatalf("MultiPut: %v", err)
	}
	got, err := e.MultiGet([][]byte{[]byte("a"), []byte("b"), []byte("missing")})
	if err != nil {
		t.Fatalf("MultiGet: %v", err)
	}
	if string(got[0]) != "1" || string(got[1]) != "2" || got[2] != nil {
		t.Fatalf("got %v", got)
	}
}

func TestDeleteRange(t *testing.T) {
	e := openTestEngine(t)
	for _, k := range []string{"a", "b", "c", "d"} {
		if err := e.Put([]byte(k), []byte("v")); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	if err := e.DeleteRange([]byte("b"), []byte("d")); err != nil {
		t.Fatalf("DeleteRange: %v", err)
	}
	for k, wantFound := range map[string]bool{"a": true, "b": false, "c": false, "d": true} {
		_, found, _ := e.Get([]byte(k))
		if found != wantFound {
			t.Fatalf("key %q: found=%v, want %v", k, found, wantFound)
		}
	}
}

func TestPrefixIterator(t *testing.T) {
	e := openTestEngine(t)
	for _, k := range []string{"p/1", "p/2", "q/1"} {
		if err := e.Put([]byte(k), []byte("v")); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	it := e.PrefixIterator([]byte("p/"))
	defer it.Close()
	var keys []string
	for ; it.Valid(); it.Next() {
		keys = append(keys, string(it.Key()))
	}
	if len(keys) != 2 {
		t.Fatalf("got %v, want 2 keys under prefix p/", keys)
	}
}

func TestRangeIteratorExclusiveEnd(t *testing.T) {
	e := openTestEngine(t)
	for _, k := range []string{"a", "b", "c"} {
		e.Put([]byte(k), []byte("v"))
	}
	it := e.RangeIterator([]byte("a"), []byte("c"))
	defer it.Close()
	var keys []string
	for ; it.Valid(); it.Next() {
		keys = append(keys, string(it.Key()))
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("got %v, want [a b]", keys)
	}
}

func TestAtomicBatchMixedOps(t *testing.T) {
	e := openTestEngine(t)
	e.Put([]byte("x"), []byte("old"))
	e.Put([]byte("y"), []byte("keep"))
	ops := []Op{
		{Key: []byte("x"), Val: []byte("new")},
		{Key: []byte("y")},
		{Key: []byte("z"), Val: []byte("fresh")},
	}
	if err := e.AtomicBatch(ops); err != nil {
		t.Fatalf("AtomicBatch: %v", err)
	}
	if v, found, _ := e.Get([]byte("x")); !found || string(v) != "new" {
		t.Fatalf("x = %q, %v", v, found)
	}
	if _, found, _ := e.Get([]byte("y")); found {
		t.Fatalf("expected y deleted")
	}
	if v, found, _ := e.Get([]byte("z")); !found || string(v) != "fresh" {
		t.Fatalf("z = %q, %v", v, found)
	}
}

func TestCheckpointAndBulkIngest(t *testing.T) {
	src := openTestEngine(t)
	src.Put([]byte("k"), []byte("v"))

	ckDir := t.TempDir()
	path, err := src.Checkpoint(context.Background(), ckDir, 42, 7)
	if err != nil {
		t.Fatalf("Checkpoint: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected checkpoint file at %s: %v", path, err)
	}
	if _, err := os.Stat(ckDir + "/META"); err != nil {
		t.Fatalf("expected META file: %v", err)
	}

	dst := openTestEngine(t)
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open checkpoint: %v", err)
	}
	defer f.Close()
	if err := dst.BulkIngest(f); err != nil {
		t.Fatalf("BulkIngest: %v", err)
	}
	if v, found, _ := dst.Get([]byte("k")); !found || string(v) != "v" {
		t.Fatalf("dst.Get(k) = %q, %v, want v, true", v, found)
	}

	if err := src.DropCheckpoint(ckDir); err != nil {
		t.Fatalf("DropCheckpoint: %v", err)
	}
	if _, err := os.Stat(ckDir); !os.IsNotExist(err) {
		t.Fatalf("expected checkpoint dir removed")
	}
}

func TestSweepDropsStaleSchemaVersionRows(t *testing.T) {
	e := openTestEngine(t)
	const vidLen = 4
	vid := []byte{1, 2, 3, 4}

	oldKey, _ := storagekey.BuildVertexKey(storagekey.VertexKey{PartitionID: 1, VertexID: vid, TagID: 9, Version: 1}, vidLen)
	newKey, _ := storagekey.BuildVertexKey(storagekey.VertexKey{PartitionID: 1, VertexID: vid, TagID: 9, Version: 3}, vidLen)
	e.Put(oldKey, []byte("old"))
	e.Put(newKey, []byte("new"))

	sweep := &Sweep{
		SchemaVersion: func(tagOrEdgeType int32, isEdge bool) (int32, bool) {
			return 3, true
		},
	}
	prefix := storagekey.PrefixVertex(1, vid)
	res, err := sweep.Run(e, prefix, nil)
	if err != nil {
		t.Fatalf("Sweep.Run: %v", err)
	}
	if res.Dropped != 1 {
		t.Fatalf("Dropped = %d, want 1", res.Dropped)
	}
	if _, found, _ := e.Get(oldKey); found {
		t.Fatalf("expected stale-version row dropped")
	}
	if _, found, _ := e.Get(newKey); !found {
		t.Fatalf("expected current-version row kept")
	}
}

func TestSweepDropsTTLExpiredRows(t *testing.T) {
	e := openTestEngine(t)
	const vidLen = 4
	vid := []byte{5, 6, 7, 8}
	key, _ := storagekey.BuildVertexKey(storagekey.VertexKey{PartitionID: 1, VertexID: vid, TagID: 2, Version: 1}, vidLen)
	e.Put(key, []byte("created=old"))

	fixedNow := time.Unix(1000, 0)
	sweep := &Sweep{
		RowCreatedAt: func(val []byte) (time.Time, bool) {
			return time.Unix(0, 0), true
		},
		Now: func() time.Time { return fixedNow },
	}
	prefix := storagekey.PrefixVertex(1, vid)
	res, err := sweep.Run(e, prefix, map[int32]time.Duration{2: time.Second})
	if err != nil {
		t.Fatalf("Sweep.Run: %v", err)
	}
	if res.Dropped != 1 {
		t.Fatalf("Dropped = %d, want 1", res.Dropped)
	}
}

func TestSweepDropsVertexRowsWithNoCurrentSchema(t *testing.T) {
	e := openTestEngine(t)
	const vidLen = 4
	vid := []byte{1, 2, 3, 4}
	key, _ := storagekey.BuildVertexKey(storagekey.VertexKey{PartitionID: 1, VertexID: vid, TagID: 9, Version: 1}, vidLen)
	e.Put(key, []byte("v"))

	sweep := &Sweep{
		SchemaVersion: func(tagOrEdgeType int32, isEdge bool) (int32, bool) {
			return 0, false // tag 9 no longer has a schema at all
		},
	}
	res, err := sweep.Run(e, storagekey.PrefixVertex(1, vid), nil)
	if err != nil {
		t.Fatalf("Sweep.Run: %v", err)
	}
	if res.Dropped != 1 {
		t.Fatalf("Dropped = %d, want 1", res.Dropped)
	}
	if _, found, _ := e.Get(key); found {
		t.Fatalf("expected row for removed tag dropped")
	}
}

func TestSweepClassifiesEdgeRows(t *testing.T) {
	e := openTestEngine(t)
	const vidLen = 4
	src, dst := []byte{1, 1, 1, 1}, []byte{2, 2, 2, 2}

	fwdCurrent, _ := storagekey.BuildEdgeKey(storagekey.EdgeKey{PartitionID: 1, SrcVID: src, EdgeType: 20, Rank: 0, DstVID: dst, Version: 3}, vidLen)
	fwdStale, _ := storagekey.BuildEdgeKey(storagekey.EdgeKey{PartitionID: 1, SrcVID: src, EdgeType: 20, Rank: 1, DstVID: dst, Version: 1}, vidLen)
	revOrphaned, _ := storagekey.BuildEdgeKey(storagekey.EdgeKey{PartitionID: 1, SrcVID: dst, EdgeType: -99, Rank: 0, DstVID: src, Version: 1}, vidLen)
	e.Put(fwdCurrent, []byte("fwd-current"))
	e.Put(fwdStale, []byte("fwd-stale"))
	e.Put(revOrphaned, []byte("rev-orphaned"))

	sweep := &Sweep{
		VIDLen: vidLen,
		SchemaVersion: func(tagOrEdgeType int32, isEdge bool) (int32, bool) {
			if tagOrEdgeType == 20 && isEdge {
				return 3, true
			}
			return 0, false
		},
	}
	res, err := sweep.Run(e, storagekey.PrefixPartition(storagekey.KindEdge, 1), nil)
	if err != nil {
		t.Fatalf("Sweep.Run: %v", err)
	}
	if res.Dropped != 2 {
		t.Fatalf("Dropped = %d, want 2", res.Dropped)
	}
	if _, found, _ := e.Get(fwdCurrent); !found {
		t.Fatalf("expected current-version forward edge kept")
	}
	if _, found, _ := e.Get(fwdStale); found {
		t.Fatalf("expected stale-version forward edge dropped")
	}
	if _, found, _ := e.Get(revOrphaned); found {
		t.Fatalf("expected reverse edge with no current schema dropped")
	}
}

func TestSweepClassifiesIndexRows(t *testing.T) {
	e := openTestEngine(t)
	kept := storagekey.BuildIndexKey(storagekey.IndexKey{PartitionID: 1, IndexID: 30, EncodedFieldValues: []byte("a"), ReferenceKey: []byte("ref1")})
	orphaned := storagekey.BuildIndexKey(storagekey.IndexKey{PartitionID: 1, IndexID: 31, EncodedFieldValues: []byte("b"), ReferenceKey: []byte("ref2")})
	e.Put(kept, []byte{})
	e.Put(orphaned, []byte{})

	sweep := &Sweep{
		IndexExists: func(indexID int32) bool { return indexID == 30 },
	}
	res, err := sweep.Run(e, storagekey.PrefixPartition(storagekey.KindIndex, 1), nil)
	if err != nil {
		t.Fatalf("Sweep.Run: %v", err)
	}
	if res.Dropped != 1 {
		t.Fatalf("Dropped = %d, want 1", res.Dropped)
	}
	if _, found, _ := e.Get(kept); !found {
		t.Fatalf("expected index row for existing index kept")
	}
	if _, found, _ := e.Get(orphaned); found {
		t.Fatalf("expected index row for dropped index removed")
	}
}

func TestSweepClassifiesLockRows(t *testing.T) {
	e := openTestEngine(t)
	const vidLen = 4
	src, dst := []byte{3, 3, 3, 3}, []byte{4, 4, 4, 4}

	kept, _ := storagekey.BuildLockKey(storagekey.LockKey{PartitionID: 1, SrcVID: src, EdgeType: 20, Rank: 0, DstVID: dst}, vidLen)
	orphaned, _ := storagekey.BuildLockKey(storagekey.LockKey{PartitionID: 1, SrcVID: src, EdgeType: 99, Rank: 0, DstVID: dst}, vidLen)
	e.Put(kept, []byte{})
	e.Put(orphaned, []byte{})

	sweep := &Sweep{
		VIDLen: vidLen,
		SchemaVersion: func(tagOrEdgeType int32, isEdge bool) (int32, bool) {
			return 1, tagOrEdgeType == 20 && isEdge
		},
	}
	res, err := sweep.Run(e, storagekey.PrefixPartition(storagekey.KindLock, 1), nil)
	if err != nil {
		t.Fatalf("Sweep.Run: %v", err)
	}
	if res.Dropped != 1 {
		t.Fatalf("Dropped = %d, want 1", res.Dropped)
	}
	if _, found, _ := e.Get(kept); !found {
		t.Fatalf("expected lock row for existing edge type kept")
	}
	if _, found, _ := e.Get(orphaned); found {
		t.Fatalf("expected lock row for removed edge type dropped")
	}
}
