package snapshot

import (
	"context"
	"errors"
	"testing"

	"github.com/graphkv/graphd/internal/log"
)

type fakeHostClient struct {
	blockCalls    []string
	unblockCalls  []string
	checkpointErr map[string]error
	dropCalls     []string
}

func (f *fakeHostClient) BlockWrites(ctx context.Context, host string, spaceIDs []int32, on bool) error {
	if on {
		f.blockCalls = append(f.blockCalls, host)
	} else {
		f.unblockCalls = append(f.unblockCalls, host)
	}
	return nil
}

func (f *fakeHostClient) CreateCheckpoint(ctx context.Context, host string, spaceIDs []int32, name string) (map[int32]map[uint32]PartitionCheckpoint, error) {
	if err, ok := f.checkpointErr[host]; ok {
		return nil, err
	}
	return map[int32]map[uint32]PartitionCheckpoint{
		1: {0: {LogID: 10, TermID: 1, DataPath: "/data/" + host}},
	}, nil
}

func (f *fakeHostClient) DropCheckpoint(ctx context.Context, host string, spaceIDs []int32, name string) error {
	f.dropCalls = append(f.dropCalls, host)
	return nil
}

func newTestCoordinator(fc *fakeHostClient, hosts []string) *Coordinator {
	c := New(fc, log.Global())
	c.ActiveStorageHosts = func() []string { return hosts }
	return c
}

func TestCreateSnapshotHappyPath(t *testing.T) {
	fc := &fakeHostClient{checkpointErr: map[string]error{}}
	c := newTestCoordinator(fc, []string{"h1:9000", "h2:9000"})

	res, err := c.CreateSnapshot(context.Background(), "snap1", []int32{1})
	if err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}
	if res.Record.Status != StatusValid {
		t.Fatalf("status = %v, want StatusValid", res.Record.Status)
	}
	if len(fc.blockCalls) != 2 || len(fc.unblockCalls) != 2 {
		t.Fatalf("blockCalls=%v unblockCalls=%v", fc.blockCalls, fc.unblockCalls)
	}
	if len(res.Checkpoints) != 2 {
		t.Fatalf("expected 2 hosts worth of checkpoints, got %d", len(res.Checkpoints))
	}

	records := c.ListSnapshots()
	if len(records) != 1 || records[0].Status != StatusValid {
		t.Fatalf("ListSnapshots = %+v", records)
	}
}

func TestCreateSnapshotAutoGeneratesDistinctNames(t *testing.T) {
	fc := &fakeHostClient{checkpointErr: map[string]error{}}
	c := newTestCoordinator(fc, []string{"h1:9000"})

	name1, res1, err := c.CreateSnapshotAuto(context.Background(), []int32{1})
	if err != nil {
		t.Fatalf("CreateSnapshotAuto: %v", err)
	}
	if name1 == "" || res1.Record.Name != name1 {
		t.Fatalf("CreateSnapshotAuto name = %q, record name = %q", name1, res1.Record.Name)
	}

	name2, _, err := c.CreateSnapshotAuto(context.Background(), []int32{1})
	if err != nil {
		t.Fatalf("CreateSnapshotAuto: %v", err)
	}
	if name1 == name2 {
		t.Fatalf("expected distinct auto-generated names, got %q twice", name1)
	}
}

func TestCreateSnapshotRejectsWhileIndexRebuilding(t *testing.T) {
	fc := &fakeHostClient{}
	c := newTestCoordinator(fc, []string{"h1:9000"})
	c.IndexRebuildInFlight = func() bool { return true }

	_, err := c.CreateSnapshot(context.Background(), "snap1", nil)
	if !errors.Is(err, ErrBackupBuildingIndex) {
		t.Fatalf("err = %v, want ErrBackupBuildingIndex", err)
	}
	if len(c.ListSnapshots()) != 0 {
		t.Fatalf("expected no record persisted on rejection")
	}
}

func TestCreateSnapshotChekpointFailureUnblocksAndDrops(t *testing.T) {
	fc := &fakeHostClient{checkpointErr: map[string]error{"h2:9000": errors.New("disk full")}}
	c := newTestCoordinator(fc, []string{"h1:9000", "h2:9000"})

	_, err := c.CreateSnapshot(context.Background(), "snap1", nil)
	if err == nil {
		t.Fatalf("expected checkpoint failure to propagate")
	}
	if len(fc.unblockCalls) != 2 {
		t.Fatalf("expected unblock-writes broadcast unconditionally, got %v", fc.unblockCalls)
	}
	if len(c.ListSnapshots()) != 0 {
		t.Fatalf("expected record dropped after checkpoint failure")
	}
}

func TestDropSnapshotIsIdempotent(t *testing.T) {
	fc := &fakeHostClient{}
	c := newTestCoordinator(fc, []string{"h1:9000"})
	if _, err := c.CreateSnapshot(context.Background(), "snap1", nil); err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}

	if err := c.DropSnapshot(context.Background(), "snap1", nil); err != nil {
		t.Fatalf("DropSnapshot: %v", err)
	}
	if len(fc.dropCalls) != 1 {
		t.Fatalf("expected one dropCheckpoint call, got %v", fc.dropCalls)
	}
	// A second DropSnapshot on an already-removed record is a safe no-op.
	if err := c.DropSnapshot(context.Background(), "snap1", nil); err != nil {
		t.Fatalf("second DropSnapshot: %v", err)
	}
	if len(fc.dropCalls) != 1 {
		t.Fatalf("expected no additional dropCheckpoint call on re-issue, got %v", fc.dropCalls)
	}
}
