package catalog

import (
	"testing"
	"time"

	"github.com/graphkv/graphd/schema"
)

func TestSnapshotIsolationAcrossWrite(t *testing.T) {
	c := New()
	c.PutSpace(&schema.Space{ID: 1, Name: "social"})
	before := c.Snapshot()

	c.PutSpace(&schema.Space{ID: 2, Name: "web"})

	if _, ok := before.Space("web"); ok {
		t.Fatalf("expected snapshot taken before the write to be unaffected by it")
	}
	after := c.Snapshot()
	if _, ok := after.Space("web"); !ok {
		t.Fatalf("expected new snapshot to see the write")
	}
	if _, ok := after.Space("social"); !ok {
		t.Fatalf("expected new snapshot to retain the earlier write")
	}
}

func TestTagEdgeTypeIndexLookup(t *testing.T) {
	c := New()
	c.PutTag("social", &schema.Tag{ID: 1, Name: "person", Version: 1})
	c.PutEdgeType("social", &schema.EdgeType{ID: 1, Name: "follows", Version: 1})
	c.PutIndex("social", &schema.Index{ID: 1, Name: "person_name_idx", OwnerKind: schema.IndexOwnerTag, OwnerID: 1})

	v := c.Snapshot()
	if _, ok := v.Tag("social", "person"); !ok {
		t.Fatalf("expected tag lookup to succeed")
	}
	if _, ok := v.EdgeType("social", "follows"); !ok {
		t.Fatalf("expected edge type lookup to succeed")
	}
	if _, ok := v.Index("social", "person_name_idx"); !ok {
		t.Fatalf("expected index lookup to succeed")
	}
}

func TestPartitionAssignment(t *testing.T) {
	c := New()
	c.SetPartition(PartitionAssignment{SpaceID: 1, PartitionID: 0, Hosts: []string{"h1:9000", "h2:9000"}, Leader: "h1:9000"})
	v := c.Snapshot()
	pa, ok := v.Partition(1, 0)
	if !ok || pa.Leader != "h1:9000" || len(pa.Hosts) != 2 {
		t.Fatalf("got %+v, %v", pa, ok)
	}
}

func TestHostRegisterHeartbeatAndZone(t *testing.T) {
	c := New()
	t0 := time.Unix(1000, 0)
	c.RegisterHost("h1:9000", "zone-a", t0)

	v := c.Snapshot()
	h, ok := v.Host("h1:9000")
	if !ok || h.Zone != "zone-a" || !h.Online {
		t.Fatalf("got %+v, %v", h, ok)
	}
	z, ok := v.Zone("zone-a")
	if !ok || len(z.Hosts) != 1 || z.Hosts[0] != "h1:9000" {
		t.Fatalf("got %+v, %v", z, ok)
	}

	t1 := t0.Add(5 * time.Second)
	c.Heartbeat("h1:9000", t1)
	v2 := c.Snapshot()
	h2, _ := v2.Host("h1:9000")
	if !h2.LastHeartbeat.Equal(t1) {
		t.Fatalf("expected heartbeat timestamp updated, got %v", h2.LastHeartbeat)
	}

	c.MarkOffline("h1:9000")
	v3 := c.Snapshot()
	h3, _ := v3.Host("h1:9000")
	if h3.Online {
		t.Fatalf("expected host marked offline")
	}
}

func TestTagByIDAndIndexesForTag(t *testing.T) {
	c := New()
	c.PutTag("social", &schema.Tag{ID: 7, Name: "person", Version: 1})
	c.PutEdgeType("social", &schema.EdgeType{ID: 3, Name: "follows", Version: 1})
	c.PutIndex("social", &schema.Index{ID: 1, Name: "person_name_idx", OwnerKind: schema.IndexOwnerTag, OwnerID: 7})

	v := c.Snapshot()
	tag, ok := v.TagByID("social", 7)
	if !ok || tag.Name != "person" {
		t.Fatalf("TagByID = %+v, %v", tag, ok)
	}
	if _, ok := v.TagByID("social", 99); ok {
		t.Fatalf("expected no tag for unknown id")
	}
	et, ok := v.EdgeTypeByID("social", 3)
	if !ok || et.Name != "follows" {
		t.Fatalf("EdgeTypeByID = %+v, %v", et, ok)
	}
	idxs := v.IndexesForTag("social", 7)
	if len(idxs) != 1 || idxs[0].Name != "person_name_idx" {
		t.Fatalf("IndexesForTag = %+v", idxs)
	}
	if len(v.IndexesForEdgeType("social", 3)) != 0 {
		t.Fatalf("expected no indexes owned by the edge type")
	}
}

func TestVersionIncrementsPerWrite(t *testing.T) {
	c := New()
	v0 := c.Snapshot().Version()
	c.PutSpace(&schema.Space{ID: 1, Name: "social"})
	v1 := c.Snapshot().Version()
	if v1 != v0+1 {
		t.Fatalf("Version = %d, want %d", v1, v0+1)
	}
}
