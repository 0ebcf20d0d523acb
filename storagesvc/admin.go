package storagesvc

import (
	"context"
	"path/filepath"

	"github.com/graphkv/graphd/meta/snapshot"
	"github.com/graphkv/graphd/storagekey"
	"github.com/graphkv/graphd/wire"
)

// ClearSpace implements ClearSpaceProcessor (§4.5): per-partition
// delete-range over every key prefix belonging to the space, driven by
// the metadata catalog's partition assignment for that space.
func (s *Service) ClearSpace(ctx context.Context, req *wire.ClearSpaceRequest) (*wire.ClearSpaceResponse, error) {
	view := s.catalog()
	sp, ok := view.Space(req.Space)
	if !ok {
		return &wire.ClearSpaceResponse{Parts: []wire.PartResult{{Code: wire.CodeSpaceNotFound, Message: req.Space}}}, nil
	}

	ids := make([]uint32, sp.PartitionCount)
	for i := range ids {
		ids[i] = uint32(i)
	}
	parts := s.fanOutPartitions(ctx, ids, s.procClearSpace, false, func(ctx context.Context, pid uint32) error {
		for _, kind := range []storagekey.KeyKind{
			storagekey.KindVertex, storagekey.KindEdge, storagekey.KindIndex, storagekey.KindLock,
		} {
			start := storagekey.PrefixPartition(kind, pid)
			end := storagekey.PrefixPartition(kind+1, pid)
			if err := s.engine.DeleteRange(start, end); err != nil {
				return err
			}
		}
		return nil
	})
	if s.decodeCache != nil {
		s.decodeCache.Clear()
	}
	return &wire.ClearSpaceResponse{Parts: parts}, nil
}

// BlockingWrites implements the BlockingWrites processor (§4.7 step 3/5):
// toggles the process-wide write gate every mutating processor checks.
func (s *Service) BlockingWrites(ctx context.Context, req *wire.BlockingWritesRequest) (*wire.BlockingWritesResponse, error) {
	var resp wire.BlockingWritesResponse
	err := instrument(s.procBlockingWrites, func() error {
		s.writesBlocked.Store(req.Sign == wire.BlockOn)
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp.Code = wire.CodeOK
	return &resp, nil
}

// CreateCheckpoint implements the CreateCheckpoint processor (§4.7 step
// 4): checkpoints every partition of every requested space into a
// named directory under the engine's data root.
func (s *Service) CreateCheckpoint(ctx context.Context, req *wire.CreateCheckpointRequest) (*wire.CreateCheckpointResponse, error) {
	view := s.catalog()
	var spacesOut []wire.SpaceCheckpoint
	err := instrument(s.procCheckpoint, func() error {
		for _, spaceID := range req.SpaceIDs {
			spCheckpoint := wire.SpaceCheckpoint{SpaceID: spaceID, Parts: map[uint32]wire.PartCheckpoint{}}
			sp, ok := view.SpaceByID(spaceID)
			if !ok {
				continue
			}
			for pid := uint32(0); pid < uint32(sp.PartitionCount); pid++ {
				if err := ctxDone(ctx); err != nil {
					return err
				}
				dir := filepath.Join(req.Name, "space", itoa32(spaceID), "part", itoa32(int32(pid)))
				path, err := s.engine.Checkpoint(ctx, dir, 0, 0)
				if err != nil {
					return err
				}
				spCheckpoint.Parts[pid] = wire.PartCheckpoint{LogID: 0, TermID: 0, DataPath: path}
			}
			spCheckpoint.DataPath = req.Name
			spacesOut = append(spacesOut, spCheckpoint)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &wire.CreateCheckpointResponse{Spaces: spacesOut, Code: wire.CodeOK}, nil
}

// DropCheckpoint implements the DropCheckpoint processor, the inverse
// of CreateCheckpoint.
func (s *Service) DropCheckpoint(ctx context.Context, req *wire.DropCheckpointRequest) (*wire.DropCheckpointResponse, error) {
	err := instrument(s.procCheckpoint, func() error {
		return s.engine.DropCheckpoint(req.Name)
	})
	if err != nil {
		return nil, err
	}
	return &wire.DropCheckpointResponse{Code: wire.CodeOK}, nil
}

func itoa32(v int32) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [12]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// hostClient adapts Service to meta/snapshot.HostClient so a meta
// coordinator can drive this storage host's checkpoint lifecycle
// directly in-process (e.g. in a single-binary test topology); a real
// multi-host deployment instead reaches Service through transport.Client
// from the meta side.
type hostClient struct{ svc *Service }

// NewHostClient adapts svc to the snapshot.HostClient interface.
func NewHostClient(svc *Service) snapshot.HostClient { return hostClient{svc: svc} }

func (h hostClient) BlockWrites(ctx context.Context, host string, spaceIDs []int32, on bool) error {
	sign := wire.BlockOff
	if on {
		sign = wire.BlockOn
	}
	_, err := h.svc.BlockingWrites(ctx, &wire.BlockingWritesRequest{SpaceIDs: spaceIDs, Sign: sign})
	return err
}

func (h hostClient) CreateCheckpoint(ctx context.Context, host string, spaceIDs []int32, name string) (map[int32]map[uint32]snapshot.PartitionCheckpoint, error) {
	resp, err := h.svc.CreateCheckpoint(ctx, &wire.CreateCheckpointRequest{SpaceIDs: spaceIDs, Name: name})
	if err != nil {
		return nil, err
	}
	out := make(map[int32]map[uint32]snapshot.PartitionCheckpoint, len(resp.Spaces))
	for _, sp := range resp.Spaces {
		parts := make(map[uint32]snapshot.PartitionCheckpoint, len(sp.Parts))
		for pid, pc := range sp.Parts {
			parts[pid] = snapshot.PartitionCheckpoint{LogID: pc.LogID, TermID: pc.TermID, DataPath: pc.DataPath}
		}
		out[sp.SpaceID] = parts
	}
	return out, nil
}

func (h hostClient) DropCheckpoint(ctx context.Context, host string, spaceIDs []int32, name string) error {
	_, err := h.svc.DropCheckpoint(ctx, &wire.DropCheckpointRequest{SpaceIDs: spaceIDs, Name: name})
	return err
}
