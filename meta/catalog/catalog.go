// Package catalog holds the metadata leader's in-memory schema cache,
// partition map, and host/zone registry (spec.md §3, §5, §6): many
// readers, a single writer, copy-on-write so a reader holding a
// snapshot is never affected by a concurrent refresh — the same
// discipline storage/policystore.go uses for its module list, here
// upgraded to an atomic pointer swap instead of a defensive copy on
// every read.
package catalog

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/graphkv/graphd/schema"
)

// PartitionAssignment records which hosts hold a partition and which
// one is currently leader.
type PartitionAssignment struct {
	SpaceID     int32
	PartitionID uint32
	Hosts       []string // ip:port
	Leader      string   // ip:port, empty if no leader elected
}

// HostInfo is one entry of the host registry (§6 "host register/
// heartbeat").
type HostInfo struct {
	Addr          string
	Zone          string
	LastHeartbeat time.Time
	Online        bool
}

// ZoneInfo groups hosts for replica placement (named in §6's RPC
// surface and the glossary's "zone" entry, not structurally specified
// by spec.md's data model section).
type ZoneInfo struct {
	Name  string
	Hosts []string
}

// snapshot is the immutable value readers see; Catalog never mutates
// one in place, it only ever swaps in a new one.
type snapshot struct {
	spaces     map[string]*schema.Space
	tags       map[string]*schema.Tag       // key: spaceName + "/" + tagName
	edgeTypes  map[string]*schema.EdgeType  // key: spaceName + "/" + edgeTypeName
	indexes    map[string]*schema.Index     // key: spaceName + "/" + indexName
	partitions map[string]PartitionAssignment // key: fmt.Sprintf("%d/%d", spaceID, partitionID)
	hosts      map[string]HostInfo
	zones      map[string]ZoneInfo
	version    uint64
}

func emptySnapshot() *snapshot {
	return &snapshot{
		spaces:     map[string]*schema.Space{},
		tags:       map[string]*schema.Tag{},
		edgeTypes:  map[string]*schema.EdgeType{},
		indexes:    map[string]*schema.Index{},
		partitions: map[string]PartitionAssignment{},
		hosts:      map[string]HostInfo{},
		zones:      map[string]ZoneInfo{},
	}
}

func (s *snapshot) clone() *snapshot {
	c := &snapshot{
		spaces:     make(map[string]*schema.Space, len(s.spaces)),
		tags:       make(map[string]*schema.Tag, len(s.tags)),
		edgeTypes:  make(map[string]*schema.EdgeType, len(s.edgeTypes)),
		indexes:    make(map[string]*schema.Index, len(s.indexes)),
		partitions: make(map[string]PartitionAssignment, len(s.partitions)),
		hosts:      make(map[string]HostInfo, len(s.hosts)),
		zones:      make(map[string]ZoneInfo, len(s.zones)),
		version:    s.version,
	}
	for k, v := range s.spaces {
		c.spaces[k] = v
	}
	for k, v := range s.tags {
		c.tags[k] = v
	}
	for k, v := range s.edgeTypes {
		c.edgeTypes[k] = v
	}
	for k, v := range s.indexes {
		c.indexes[k] = v
	}
	for k, v := range s.partitions {
		c.partitions[k] = v
	}
	for k, v := range s.hosts {
		c.hosts[k] = v
	}
	for k, v := range s.zones {
		c.zones[k] = v
	}
	return c
}

// Catalog is the metadata leader's schema cache + partition map + host
// registry. Safe for concurrent use: reads never block writes and
// writes never block reads.
type Catalog struct {
	cur       atomic.Pointer[snapshot]
	writeOnce sync.Mutex // serializes the single writer
}

// New returns an empty Catalog.
func New() *Catalog {
	c := &Catalog{}
	c.cur.Store(emptySnapshot())
	return c
}

// Snapshot returns the currently visible read-only view. The returned
// handle is unaffected by any subsequent write.
func (c *Catalog) Snapshot() *View {
	return &View{s: c.cur.Load()}
}

// write applies mutate to a private clone of the current snapshot and
// publishes it, serialized against other writers by writeOnce — the
// single-writer half of the "many readers, single writer" discipline
// named in spec.md §5.
func (c *Catalog) write(mutate func(*snapshot)) {
	c.writeOnce.Lock()
	defer c.writeOnce.Unlock()
	next := c.cur.Load().clone()
	mutate(next)
	next.version++
	c.cur.Store(next)
}

// PutSpace installs or replaces a space definition.
func (c *Catalog) PutSpace(s *schema.Space) {
	c.write(func(snap *snapshot) { snap.spaces[s.Name] = s })
}

// PutTag installs or replaces a tag definition (bumps the tag's own
// NextVersion discipline is the caller's responsibility; the catalog
// just stores whatever schema.Tag it is given).
func (c *Catalog) PutTag(space string, t *schema.Tag) {
	c.write(func(snap *snapshot) { snap.tags[space+"/"+t.Name] = t })
}

// PutEdgeType installs or replaces an edge type definition.
func (c *Catalog) PutEdgeType(space string, et *schema.EdgeType) {
	c.write(func(snap *snapshot) { snap.edgeTypes[space+"/"+et.Name] = et })
}

// PutIndex installs or replaces an index definition.
func (c *Catalog) PutIndex(space string, idx *schema.Index) {
	c.write(func(snap *snapshot) { snap.indexes[space+"/"+idx.Name] = idx })
}

// SetPartition installs or replaces a partition's host assignment.
func (c *Catalog) SetPartition(pa PartitionAssignment) {
	key := partKey(pa.SpaceID, pa.PartitionID)
	c.write(func(snap *snapshot) { snap.partitions[key] = pa })
}

func partKey(spaceID int32, partitionID uint32) string {
	return fmt.Sprintf("%d/%d", spaceID, partitionID)
}

// RegisterHost adds addr to the registry, or refreshes its heartbeat if
// already present (§6 "host register/heartbeat").
func (c *Catalog) RegisterHost(addr, zone string, now time.Time) {
	c.write(func(snap *snapshot) {
		snap.hosts[addr] = HostInfo{Addr: addr, Zone: zone, LastHeartbeat: now, Online: true}
		z := snap.zones[zone]
		z.Name = zone
		if !containsStr(z.Hosts, addr) {
			z.Hosts = append(z.Hosts, addr)
		}
		snap.zones[zone] = z
	})
}

// Heartbeat refreshes addr's LastHeartbeat and marks it online. It is a
// no-op if addr was never registered.
func (c *Catalog) Heartbeat(addr string, now time.Time) {
	c.write(func(snap *snapshot) {
		h, ok := snap.hosts[addr]
		if !ok {
			return
		}
		h.LastHeartbeat = now
		h.Online = true
		snap.hosts[addr] = h
	})
}

// MarkOffline flags addr offline without removing it from the registry
// (e.g. after a heartbeat-interval timeout observed by the caller).
func (c *Catalog) MarkOffline(addr string) {
	c.write(func(snap *snapshot) {
		h, ok := snap.hosts[addr]
		if !ok {
			return
		}
		h.Online = false
		snap.hosts[addr] = h
	})
}

func containsStr(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// View is a read-only, point-in-time handle on the catalog's contents.
// Holding a View never blocks or is affected by a concurrent write.
type View struct {
	s *snapshot
}

// Version is the number of writes applied since the catalog was
// created; useful for a caller to detect "my cached view may be stale."
func (v *View) Version() uint64 { return v.s.version }

// Space looks up a space by name.
func (v *View) Space(name string) (*schema.Space, bool) {
	s, ok := v.s.spaces[name]
	return s, ok
}

// SpaceByID looks up a space by its numeric id, the direction
// CreateCheckpoint/DropCheckpoint need (§6's CreateCheckpoint RPC
// addresses spaces by space_ids, not names).
func (v *View) SpaceByID(id int32) (*schema.Space, bool) {
	for _, s := range v.s.spaces {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Tag looks up a tag by (space, name).
func (v *View) Tag(space, name string) (*schema.Tag, bool) {
	t, ok := v.s.tags[space+"/"+name]
	return t, ok
}

// EdgeType looks up an edge type by (space, name).
func (v *View) EdgeType(space, name string) (*schema.EdgeType, bool) {
	et, ok := v.s.edgeTypes[space+"/"+name]
	return et, ok
}

// Index looks up an index by (space, name).
func (v *View) Index(space, name string) (*schema.Index, bool) {
	idx, ok := v.s.indexes[space+"/"+name]
	return idx, ok
}

// TagByID looks up a tag by (space, id), the direction storagesvc's
// processors need since a vertex key carries a tag id, not a name
// (§4.3 "decode its tag id; if the tag has no current schema, drop").
func (v *View) TagByID(space string, id int32) (*schema.Tag, bool) {
	prefix := space + "/"
	for k, t := range v.s.tags {
		if t.ID == id && strings.HasPrefix(k, prefix) {
			return t, true
		}
	}
	return nil, false
}

// EdgeTypeByID looks up an edge type by (space, id), symmetric to TagByID.
func (v *View) EdgeTypeByID(space string, id int32) (*schema.EdgeType, bool) {
	prefix := space + "/"
	for k, et := range v.s.edgeTypes {
		if et.ID == id && strings.HasPrefix(k, prefix) {
			return et, true
		}
	}
	return nil, false
}

// IndexesForTag returns every index owned by the named tag.
func (v *View) IndexesForTag(space string, tagID int32) []*schema.Index {
	var out []*schema.Index
	prefix := space + "/"
	for k, idx := range v.s.indexes {
		if strings.HasPrefix(k, prefix) &&
			idx.OwnerKind == schema.IndexOwnerTag && idx.OwnerID == tagID {
			out = append(out, idx)
		}
	}
	return out
}

// IndexesForEdgeType returns every index owned by the named edge type.
func (v *View) IndexesForEdgeType(space string, edgeTypeID int32) []*schema.Index {
	var out []*schema.Index
	prefix := space + "/"
	for k, idx := range v.s.indexes {
		if strings.HasPrefix(k, prefix) &&
			idx.OwnerKind == schema.IndexOwnerEdgeType && idx.OwnerID == edgeTypeID {
			out = append(out, idx)
		}
	}
	return out
}

// Partition looks up a partition's host assignment.
func (v *View) Partition(spaceID int32, partitionID uint32) (PartitionAssignment, bool) {
	pa, ok := v.s.partitions[partKey(spaceID, partitionID)]
	return pa, ok
}

// Host looks up a registered host by address.
func (v *View) Host(addr string) (HostInfo, bool) {
	h, ok := v.s.hosts[addr]
	return h, ok
}

// Zone looks up a zone by name.
func (v *View) Zone(name string) (ZoneInfo, bool) {
	z, ok := v.s.zones[name]
	return z, ok
}

// Hosts returns every registered host, regardless of Online state.
func (v *View) Hosts() []HostInfo {
	out := make([]HostInfo, 0, len(v.s.hosts))
	for _, h := range v.s.hosts {
		out = append(out, h)
	}
	return out
}
