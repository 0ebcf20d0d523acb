package storagesvc

import (
	"context"

	"github.com/graphkv/graphd/kv"
	"github.com/graphkv/graphd/meta/catalog"
	"github.com/graphkv/graphd/row"
	"github.com/graphkv/graphd/schema"
	"github.com/graphkv/graphd/storagekey"
	"github.com/graphkv/graphd/value"
	"github.com/graphkv/graphd/wire"
)

// AddVertices implements AddVerticesProcessor (§4.5): per partition,
// dedupe by vid (last wins, or first wins under if_not_exists), build
// every base + index key, and commit one atomic batch.
func (s *Service) AddVertices(ctx context.Context, req *wire.AddVerticesRequest) (*wire.ExecResponse, error) {
	view := s.catalog()
	sp, ok := view.Space(req.Space)
	if !ok {
		return &wire.ExecResponse{Parts: []wire.PartResult{{Code: wire.CodeSpaceNotFound, Message: req.Space}}}, nil
	}
	vidLen := sp.VertexIDLen

	ids := make([]uint32, 0, len(req.Parts))
	for pid := range req.Parts {
		ids = append(ids, pid)
	}
	parts := s.fanOutPartitions(ctx, ids, s.procAddVertices, false, func(ctx context.Context, partitionID uint32) error {
		if err := s.checkWritesAllowed(); err != nil {
			return err
		}
		return s.addVerticesPartition(partitionID, req.Parts[partitionID], req.Space, vidLen, req.IfNotExists, req.IgnoreExistedIndex, view)
	})
	return &wire.ExecResponse{Parts: parts}, nil
}

func dedupeVertices(vertices []wire.VertexInput, keepFirst bool) []wire.VertexInput {
	seen := make(map[string]int, len(vertices))
	out := make([]wire.VertexInput, 0, len(vertices))
	for _, v := range vertices {
		if idx, ok := seen[v.VID]; ok {
			if keepFirst {
				continue
			}
			out[idx] = v
			continue
		}
		seen[v.VID] = len(out)
		out = append(out, v)
	}
	return out
}

func propsToMap(names []string, values []value.Value) map[string]value.Value {
	m := make(map[string]value.Value, len(names))
	for i, n := range names {
		if i < len(values) {
			m[n] = values[i]
		}
	}
	return m
}

func (s *Service) addVerticesPartition(partitionID uint32, vertices []wire.VertexInput, space string, vidLen int, ifNotExists, ignoreExistedIndex bool, view *catalog.View) error {
	vertices = dedupeVertices(vertices, ifNotExists)

	var ops []kv.Op
	for _, vin := range vertices {
		vid := []byte(vin.VID)
		for _, tin := range vin.Tags {
			tag, ok := view.TagByID(space, tin.TagID)
			if !ok {
				continue // §4.3: a row for a tag with no current schema is meaningless to write
			}
			if ifNotExists {
				exists, err := s.tagRowExists(partitionID, vid, tin.TagID)
				if err != nil {
					return err
				}
				if exists {
					continue
				}
			}
			values := propsToMap(tin.PropNames, tin.PropValues)
			rowBytes := row.Encode(tag.Version, tag.Fields, values)
			key, err := storagekey.BuildVertexKey(storagekey.VertexKey{
				PartitionID: partitionID, VertexID: vid, TagID: tin.TagID, Version: 0,
			}, vidLen)
			if err != nil {
				return err
			}
			ops = append(ops, kv.Op{Key: key, Val: rowBytes})
			if s.decodeCache != nil {
				s.decodeCache.Evict(string(key), nil)
			}

			if !ignoreExistedIndex {
				ops = append(ops, s.buildIndexOps(partitionID, view.IndexesForTag(space, tin.TagID), values, vid)...)
			}
		}
	}
	if len(ops) == 0 {
		return nil
	}
	return s.engine.AtomicBatch(ops)
}

func (s *Service) tagRowExists(partitionID uint32, vid []byte, tagID int32) (bool, error) {
	it := s.engine.PrefixIterator(storagekey.PrefixVertexTag(partitionID, vid, tagID))
	defer it.Close()
	return it.Valid(), nil
}

// buildIndexOps builds one Put op per index that covers fields present
// in values, encoding each indexed field with value.Encode (the same
// stable binary codec used to ship expressions, reused here since
// index keys need a sortable/comparable encoding of arbitrary Values).
func (s *Service) buildIndexOps(partitionID uint32, indexes []*schema.Index, values map[string]value.Value, referenceKey []byte) []kv.Op {
	var ops []kv.Op
	for _, idx := range indexes {
		encoded := make([]byte, 0, 32)
		complete := true
		for _, fn := range idx.FieldNames {
			v, ok := values[fn]
			if !ok {
				complete = false
				break
			}
			encoded = append(encoded, value.Encode(v)...)
		}
		if !complete {
			continue
		}
		key := storagekey.BuildIndexKey(storagekey.IndexKey{
			PartitionID: partitionID, IndexID: idx.ID,
			EncodedFieldValues: encoded, ReferenceKey: referenceKey,
		})
		ops = append(ops, kv.Op{Key: key, Val: []byte{}})
	}
	return ops
}

// AddEdges implements AddEdgesProcessor (§4.5): writes both the
// forward row (src, +type) and the mirrored reverse row (dst, -type),
// maintaining any edge-type indexes.
func (s *Service) AddEdges(ctx context.Context, req *wire.AddEdgesRequest) (*wire.ExecResponse, error) {
	view := s.catalog()
	sp, ok := view.Space(req.Space)
	if !ok {
		return &wire.ExecResponse{Parts: []wire.PartResult{{Code: wire.CodeSpaceNotFound, Message: req.Space}}}, nil
	}
	vidLen := sp.VertexIDLen

	ids := make([]uint32, 0, len(req.Parts))
	for pid := range req.Parts {
		ids = append(ids, pid)
	}
	parts := s.fanOutPartitions(ctx, ids, s.procAddEdges, false, func(ctx context.Context, partitionID uint32) error {
		if err := s.checkWritesAllowed(); err != nil {
			return err
		}
		return s.addEdgesPartition(partitionID, req.Parts[partitionID], req.Space, vidLen, sp.PartitionCount, view)
	})
	return &wire.ExecResponse{Parts: parts}, nil
}

func (s *Service) addEdgesPartition(partitionID uint32, edges []wire.EdgeInput, space string, vidLen int, numPartitions int32, view *catalog.View) error {
	var ops []kv.Op
	for _, ein := range edges {
		edgeType, found := view.EdgeTypeByID(space, ein.EdgeKey.EdgeType)
		if !found {
			continue
		}
		values := propsToMap(ein.PropNames, ein.PropValues)
		rowBytes := row.Encode(edgeType.Version, edgeType.Fields, values)

		fwdKey, err := storagekey.BuildEdgeKey(storagekey.EdgeKey{
			PartitionID: partitionID,
			SrcVID:      []byte(ein.EdgeKey.SrcVID),
			EdgeType:    ein.EdgeKey.EdgeType,
			Rank:        ein.EdgeKey.Rank,
			DstVID:      []byte(ein.EdgeKey.DstVID),
			Version:     0,
		}, vidLen)
		if err != nil {
			return err
		}
		// §3: the reverse row lives in the destination vertex's own
		// partition, not the forward row's partition, so a single-hop
		// incoming traversal (planner/exec's fetchNeighbors) stays a
		// single-partition operation on whichever partition hashes from
		// DstVID.
		dstVID := []byte(ein.EdgeKey.DstVID)
		revPartitionID := storagekey.PartitionOf(dstVID, numPartitions)
		revKey, err := storagekey.BuildEdgeKey(storagekey.EdgeKey{
			PartitionID: revPartitionID,
			SrcVID:      dstVID,
			EdgeType:    -ein.EdgeKey.EdgeType,
			Rank:        ein.EdgeKey.Rank,
			DstVID:      []byte(ein.EdgeKey.SrcVID),
			Version:     0,
		}, vidLen)
		if err != nil {
			return err
		}
		ops = append(ops, kv.Op{Key: fwdKey, Val: rowBytes}, kv.Op{Key: revKey, Val: []byte{}})
		if s.decodeCache != nil {
			s.decodeCache.Evict(string(fwdKey), nil)
			s.decodeCache.Evict(string(revKey), nil)
		}

		ops = append(ops, s.buildIndexOps(partitionID, view.IndexesForEdgeType(space, ein.EdgeKey.EdgeType), values, []byte(ein.EdgeKey.SrcVID))...)
	}
	if len(ops) == 0 {
		return nil
	}
	return s.engine.AtomicBatch(ops)
}
