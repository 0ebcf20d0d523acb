// Package snapshot implements the cluster-wide snapshot/backup
// coordinator of spec.md §4.7: a state machine run on the metadata
// leader, guarded by a single write-exclusive lock so only one
// snapshot-class operation is ever in flight.
package snapshot

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/graphkv/graphd/internal/log"
)

// Status is the persisted status byte of a snapshot record (§6
// "Snapshot record value — status byte (0=INVALID, 1=VALID)").
type Status byte

const (
	StatusInvalid Status = 0
	StatusValid   Status = 1
)

// Record is the persisted snapshot record named in §4.7 ("S denotes the
// persisted snapshot record with fields (name, status, host-list)").
type Record struct {
	Name   string
	Status Status
	Hosts  []string // ip:port, the storage hosts that hold a checkpoint for this name
}

// PartitionCheckpoint is one host's report for one partition, returned
// by CreateCheckpoint (§6 CreateCPResponse "parts:{part_id→{log_id,
// term_id}}").
type PartitionCheckpoint struct {
	LogID, TermID uint64
	DataPath       string
}

// HostClient is the coordinator's view of a storage host, implemented
// by storagesvc's RPC client in production and fakeable in tests.
type HostClient interface {
	BlockWrites(ctx context.Context, host string, spaceIDs []int32, on bool) error
	CreateCheckpoint(ctx context.Context, host string, spaceIDs []int32, name string) (map[int32]map[uint32]PartitionCheckpoint, error)
	DropCheckpoint(ctx context.Context, host string, spaceIDs []int32, name string) error
}

// ErrBackupBuildingIndex is returned when step (1) finds a tag/edge
// index rebuild in flight (§4.7 "E_BACKUP_BUILDING_INDEX").
var ErrBackupBuildingIndex = fmt.Errorf("snapshot: E_BACKUP_BUILDING_INDEX")

// Coordinator runs the §4.7 state machine. It holds the write-exclusive
// lock named in §5 ("Snapshot coordinator lock: process-wide
// write-exclusive") for the duration of exactly one operation. A meta
// leader change aborts whatever operation the old leader had in flight
// simply by the old process going away mid-lock; the new leader starts
// from a fresh Coordinator and whatever Record state the old leader
// left behind is exactly what a later DropSnapshot cleans up (§4.7).
type Coordinator struct {
	mu sync.Mutex // the write-exclusive lock; held for one whole operation

	recMu   sync.Mutex
	records map[string]*Record

	hosts HostClient
	log   log.Logger

	// IndexRebuildInFlight reports whether any tag/edge-index rebuild
	// job is currently running, consulted at step (1).
	IndexRebuildInFlight func() bool

	// ActiveStorageHosts returns the currently-active storage host set
	// (ip:port), consulted at step (2).
	ActiveStorageHosts func() []string
}

// New returns a Coordinator. Its IndexRebuildInFlight and
// ActiveStorageHosts fields start nil, in which case no rebuild is ever
// reported in flight and the active host set is always empty.
func New(hosts HostClient, logger log.Logger) *Coordinator {
	if logger == nil {
		logger = log.Global()
	}
	return &Coordinator{
		records: map[string]*Record{},
		hosts:   hosts,
		log:     logger,
	}
}

func (c *Coordinator) activeHosts() []string {
	if c.ActiveStorageHosts == nil {
		return nil
	}
	return c.ActiveStorageHosts()
}

func (c *Coordinator) rebuildInFlight() bool {
	return c.IndexRebuildInFlight != nil && c.IndexRebuildInFlight()
}

// CreateResult is the coordinator-level outcome of CreateSnapshot/
// CreateBackup: the per-host, per-space, per-partition checkpoint
// reports collected at step (4).
type CreateResult struct {
	Record      Record
	Checkpoints map[string]map[int32]map[uint32]PartitionCheckpoint // host -> space -> partition -> checkpoint
}

// CreateSnapshot runs the full §4.7 state machine for name against
// spaceIDs, returning the union of per-host checkpoint reports.
func (c *Coordinator) CreateSnapshot(ctx context.Context, name string, spaceIDs []int32) (CreateResult, error) {
	return c.create(ctx, name, spaceIDs)
}

// CreateSnapshotAuto implements §6's no-argument `CreateSnapshot()` RPC:
// the caller supplies no name, so the coordinator mints one itself. A
// random UUID keeps concurrently-issued snapshots from colliding on the
// checkpoint directory name every host creates under it, which a
// timestamp alone would not guarantee under clock skew or two calls in
// the same second.
func (c *Coordinator) CreateSnapshotAuto(ctx context.Context, spaceIDs []int32) (string, CreateResult, error) {
	name := "snapshot-" + uuid.NewString()
	res, err := c.create(ctx, name, spaceIDs)
	return name, res, err
}

// CreateBackup is CreateSnapshot under spec.md's separate entrypoint
// name (§6 "CreateBackup(spaces?)"); the state machine §4.7 describes
// is identical for both, the only difference being the RPC name a
// caller dials. spaceIDs is passed to every host unchanged; a nil
// spaceIDs is not expanded to all spaces here.
func (c *Coordinator) CreateBackup(ctx context.Context, name string, spaceIDs []int32) (CreateResult, error) {
	return c.create(ctx, name, spaceIDs)
}

func (c *Coordinator) create(ctx context.Context, name string, spaceIDs []int32) (CreateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// (1) reject if an index rebuild is running.
	if c.rebuildInFlight() {
		return CreateResult{}, ErrBackupBuildingIndex
	}

	// (2) persist the record as INVALID with the active host set.
	hosts := c.activeHosts()
	rec := &Record{Name: name, Status: StatusInvalid, Hosts: hosts}
	c.putRecord(rec)

	// (3) broadcast blocking-writes-on; abort to (5)+error on first failure.
	blocked := make([]string, 0, len(hosts))
	var blockErr error
	for _, h := range hosts {
		if err := c.hosts.BlockWrites(ctx, h, spaceIDs, true); err != nil {
			blockErr = fmt.Errorf("snapshot: block writes on %s: %w", h, err)
			break
		}
		blocked = append(blocked, h)
	}
	if blockErr != nil {
		c.unblockAll(ctx, blocked, spaceIDs)
		c.dropRecord(name)
		return CreateResult{}, blockErr
	}

	// (4) broadcast checkpoint creation.
	checkpoints := make(map[string]map[int32]map[uint32]PartitionCheckpoint, len(hosts))
	var createErr error
	for _, h := range hosts {
		cps, err := c.hosts.CreateCheckpoint(ctx, h, spaceIDs, name)
		if err != nil {
			createErr = fmt.Errorf("snapshot: checkpoint on %s: %w", h, err)
			break
		}
		checkpoints[h] = cps
	}

	// (5) unconditionally unblock writes; failures are logged only.
	c.unblockAll(ctx, hosts, spaceIDs)

	// (6) finalize.
	if createErr != nil {
		c.bestEffortDropOnEachHost(ctx, hosts, spaceIDs, name)
		c.dropRecord(name)
		return CreateResult{}, createErr
	}
	rec.Status = StatusValid
	c.putRecord(rec)
	return CreateResult{Record: *rec, Checkpoints: checkpoints}, nil
}

func (c *Coordinator) unblockAll(ctx context.Context, hosts []string, spaceIDs []int32) {
	for _, h := range hosts {
		if err := c.hosts.BlockWrites(ctx, h, spaceIDs, false); err != nil {
			c.log.WithField("host", h).Warnf("snapshot: unblock writes failed: %v", err)
		}
	}
}

func (c *Coordinator) bestEffortDropOnEachHost(ctx context.Context, hosts []string, spaceIDs []int32, name string) {
	for _, h := range hosts {
		if err := c.hosts.DropCheckpoint(ctx, h, spaceIDs, name); err != nil {
			c.log.WithField("host", h).Warnf("snapshot: best-effort drop failed: %v", err)
		}
	}
}

// DropSnapshot reads the record, broadcasts dropCheckpoint to every
// host in its persisted host-list, then removes the record. A failing
// host is logged, not retried — the caller may safely re-issue
// DropSnapshot (§4.7 "Drop-snapshot").
func (c *Coordinator) DropSnapshot(ctx context.Context, name string, spaceIDs []int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.getRecord(name)
	if !ok {
		return nil
	}
	for _, h := range rec.Hosts {
		if err := c.hosts.DropCheckpoint(ctx, h, spaceIDs, name); err != nil {
			c.log.WithField("host", h).Warnf("snapshot: drop checkpoint failed for %s: %v", name, err)
		}
	}
	c.dropRecord(name)
	return nil
}

// ListSnapshots returns every persisted record (§6 "ListSnapshots()").
func (c *Coordinator) ListSnapshots() []Record {
	c.recMu.Lock()
	defer c.recMu.Unlock()
	out := make([]Record, 0, len(c.records))
	for _, r := range c.records {
		out = append(out, *r)
	}
	return out
}

func (c *Coordinator) putRecord(r *Record) {
	c.recMu.Lock()
	defer c.recMu.Unlock()
	c.records[r.Name] = r
}

func (c *Coordinator) getRecord(name string) (Record, bool) {
	c.recMu.Lock()
	defer c.recMu.Unlock()
	r, ok := c.records[name]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

func (c *Coordinator) dropRecord(name string) {
	c.recMu.Lock()
	defer c.recMu.Unlock()
	delete(c.records, name)
}
