package storagesvc

import (
	"context"
	"sync"

	"github.com/graphkv/graphd/expression"
	"github.com/graphkv/graphd/meta/catalog"
	"github.com/graphkv/graphd/row"
	"github.com/graphkv/graphd/storagekey"
	"github.com/graphkv/graphd/value"
	"github.com/graphkv/graphd/wire"
)

// edgeFilterContext adapts one candidate edge to expression.ExpressionContext
// so a pushed-down filter expression can reference the current edge
// (§4.5 "a pushed-down filter expression evaluates per candidate edge").
// Column/variable/parameter/session lookups are out of scope for a
// storage-side filter (those are resolved earlier, in the planner) so
// they report "no value" rather than panicking, matching value.Value's
// no-panic contract.
type edgeFilterContext struct {
	edge value.Value
}

func (c edgeFilterContext) GetColumn(int) value.Value                 { return value.Null(value.NullUnknownProp) }
func (c edgeFilterContext) GetVertex() value.Value                    { return value.Null(value.NullUnknownProp) }
func (c edgeFilterContext) GetEdge() value.Value                      { return c.edge }
func (c edgeFilterContext) GetVar(string) (value.Value, bool)         { return value.Value{}, false }
func (c edgeFilterContext) GetParameter(string) (value.Value, bool)   { return value.Value{}, false }
func (c edgeFilterContext) GetSessionVar(string) (value.Value, bool)  { return value.Value{}, false }

// GetNeighbors implements GetNeighborsProcessor (§4.5), the hottest
// read path: for each (partition, vertex), scan its edge prefix, filter
// by requested (signed) edge types, decode requested tag/edge
// properties, and emit one row per source vertex.
func (s *Service) GetNeighbors(ctx context.Context, req *wire.GetNeighborsRequest) (*wire.GetNeighborsResponse, error) {
	view := s.catalog()
	sp, ok := view.Space(req.Space)
	if !ok {
		return &wire.GetNeighborsResponse{Parts: []wire.PartResult{{Code: wire.CodeSpaceNotFound, Message: req.Space}}}, nil
	}
	vidLen := sp.VertexIDLen

	var filter expression.Expr
	if len(req.FilterExpr) > 0 {
		reg := expression.NewRegistry()
		e, err := expression.Decode(req.FilterExpr, reg)
		if err != nil {
			return nil, err
		}
		filter = e
	}

	var mu sync.Mutex
	var rows []wire.NeighborRow
	ids := make([]uint32, 0, len(req.Parts))
	for pid := range req.Parts {
		ids = append(ids, pid)
	}
	parts := s.fanOutPartitions(ctx, ids, s.procGetNeighbors, !req.AcceptPartialSuccess, func(ctx context.Context, partitionID uint32) error {
		for _, vidStr := range req.Parts[partitionID] {
			if err := ctxDone(ctx); err != nil {
				return err
			}
			nr, err := s.neighborsForVertex(partitionID, []byte(vidStr), vidLen, req, view, filter)
			if err != nil {
				return err
			}
			mu.Lock()
			rows = append(rows, nr)
			stop := req.TraverseOptions.MaxRows > 0 && int64(len(rows)) >= req.TraverseOptions.MaxRows
			mu.Unlock()
			if stop {
				return nil
			}
		}
		return nil
	})
	return &wire.GetNeighborsResponse{Rows: rows, Parts: parts}, nil
}

func (s *Service) neighborsForVertex(partitionID uint32, vid []byte, vidLen int, req *wire.GetNeighborsRequest, view *catalog.View, filter expression.Expr) (wire.NeighborRow, error) {
	out := wire.NeighborRow{VID: string(vid), Edges: map[int32][]wire.NeighborEdge{}}

	if len(req.VertexProps) > 0 {
		out.VertexProp = map[int32]map[string]value.Value{}
		for tagID := range req.VertexProps {
			it := s.engine.PrefixIterator(storagekey.PrefixVertexTag(partitionID, vid, tagID))
			if it.Valid() {
				key := it.Key()
				var decoded map[string]value.Value
				var derr error
				if s.decodeCache != nil {
					decoded, _ = s.decodeCache.Get(string(key), nil)
				}
				if decoded == nil {
					var val []byte
					val, derr = it.Value()
					if derr == nil {
						tag, ok := view.TagByID(req.Space, tagID)
						if ok {
							_, decoded, derr = row.Decode(val, tag.Fields)
							if derr == nil && decoded != nil && s.decodeCache != nil {
								s.decodeCache.Insert(string(key), decoded, nil)
							}
						}
					}
				}
				if derr == nil && decoded != nil {
					out.VertexProp[tagID] = decoded
				}
			}
			it.Close()
		}
	}

	wantTypes := req.EdgeTypes
	if len(wantTypes) == 0 {
		wantTypes = []int32{0} // 0 is never a valid stored edge type; sentinel for "scan everything below"
	}
	for _, et := range wantTypes {
		prefix := storagekey.PrefixEdgeByVertex(partitionID, vid)
		if et != 0 {
			prefix = storagekey.PrefixEdgeByType(partitionID, vid, et)
		}
		it := s.engine.PrefixIterator(prefix)
		for it.Valid() {
			key := it.Key()
			ek, err := storagekey.ParseEdgeKey(key, vidLen)
			if err != nil {
				it.Next()
				continue
			}
			var props map[string]value.Value
			if s.decodeCache != nil {
				props, _ = s.decodeCache.Get(string(key), nil)
			}
			if props == nil {
				val, err := it.Value()
				if err != nil {
					it.Next()
					continue
				}
				edgeType, found := view.EdgeTypeByID(req.Space, abs32(ek.EdgeType))
				if found && len(val) > 0 {
					_, props, _ = row.Decode(val, edgeType.Fields)
					if props != nil && s.decodeCache != nil {
						s.decodeCache.Insert(string(key), props, nil)
					}
				}
			}
			ev := value.EdgeVal(value.Edge{
				Type: ek.EdgeType, Src: value.String(string(ek.SrcVID)),
				Dst: value.String(string(ek.DstVID)), Rank: ek.Rank, Props: props,
			})
			if filter != nil && !filter.Eval(edgeFilterContext{edge: ev}).Truthy() {
				it.Next()
				continue
			}
			out.Edges[ek.EdgeType] = append(out.Edges[ek.EdgeType], wire.NeighborEdge{
				Dst: string(ek.DstVID), Rank: ek.Rank, Props: props,
			})
			it.Next()
		}
		it.Close()
	}
	return out, nil
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// GetProp implements GetPropProcessor (§4.5): point lookups by key list.
func (s *Service) GetProp(ctx context.Context, req *wire.GetPropRequest) (*wire.GetPropResponse, error) {
	view := s.catalog()
	var rows []map[string]value.Value
	var parts []wire.PartResult
	for partitionID, keys := range req.Props {
		partitionID := partitionID
		err := instrument(s.procGetProp, func() error {
			for _, key := range keys {
				if err := ctxDone(ctx); err != nil {
					return err
				}
				val, found, err := s.engine.Get(key)
				if err != nil {
					return err
				}
				if !found {
					rows = append(rows, nil)
					continue
				}
				decoded, derr := s.decodeByKeyKind(req.Space, key, val, view)
				if derr != nil {
					return derr
				}
				rows = append(rows, decoded)
			}
			return nil
		})
		parts = append(parts, partResult(partitionID, err))
	}
	return &wire.GetPropResponse{Rows: rows, Parts: parts}, nil
}

// decodeByKeyKind decodes val per the schema its key's kind/id name,
// consulting s.decodeCache first (§4.4). The cache is keyed by the raw
// storage key: a given key's bytes never change meaning without a write
// to that same key, and every write path evicts its key
// (decodeCache.Evict) before committing its batch, so a cache hit is always current.
func (s *Service) decodeByKeyKind(space string, key, val []byte, view *catalog.View) (map[string]value.Value, error) {
	if len(key) == 0 {
		return nil, nil
	}
	if s.decodeCache != nil {
		if decoded, ok := s.decodeCache.Get(string(key), nil); ok {
			return decoded, nil
		}
	}
	decoded, err := s.decodeByKeyKindUncached(space, key, val, view)
	if err == nil && decoded != nil && s.decodeCache != nil {
		s.decodeCache.Insert(string(key), decoded, nil)
	}
	return decoded, err
}

func (s *Service) decodeByKeyKindUncached(space string, key, val []byte, view *catalog.View) (map[string]value.Value, error) {
	switch storagekey.KeyKind(key[0]) {
	case storagekey.KindVertex:
		sp, ok := view.Space(space)
		if !ok {
			return nil, nil
		}
		vk, err := storagekey.ParseVertexKey(key, sp.VertexIDLen)
		if err != nil {
			return nil, err
		}
		tag, ok := view.TagByID(space, vk.TagID)
		if !ok {
			return nil, nil
		}
		_, decoded, err := row.Decode(val, tag.Fields)
		return decoded, err
	case storagekey.KindEdge:
		sp, ok := view.Space(space)
		if !ok {
			return nil, nil
		}
		ek, err := storagekey.ParseEdgeKey(key, sp.VertexIDLen)
		if err != nil {
			return nil, err
		}
		et, ok := view.EdgeTypeByID(space, abs32(ek.EdgeType))
		if !ok {
			return nil, nil
		}
		_, decoded, err := row.Decode(val, et.Fields)
		return decoded, err
	default:
		return nil, nil
	}
}

// Scan implements ScanVertexProcessor/ScanEdgeProcessor (§4.5):
// partition-ordered range scan with a continuation cursor. The cursor
// is simply the last key returned, reused as the next call's
// exclusive-start bound via RangeIterator.
func (s *Service) Scan(ctx context.Context, req *wire.ScanRequest) (*wire.ScanResponse, error) {
	view := s.catalog()
	sp, ok := view.Space(req.Space)
	if !ok {
		return &wire.ScanResponse{Code: wire.CodeSpaceNotFound}, nil
	}

	kind := storagekey.KindVertex
	if req.Kind == "edge" {
		kind = storagekey.KindEdge
	}

	var resp wire.ScanResponse
	err := instrument(s.procScan, func() error {
		start := storagekey.PrefixPartition(kind, req.Part)
		if req.Cursor != nil {
			// RangeIterator's start is inclusive; the smallest key after
			// the cursor is the cursor with a zero byte appended.
			start = append(append([]byte(nil), req.Cursor...), 0)
		}
		end := storagekey.PrefixPartition(kind+1, req.Part)
		it := s.engine.RangeIterator(start, end)
		defer it.Close()

		limit := req.Limit
		if limit <= 0 {
			limit = 1000
		}
		for it.Valid() && len(resp.Rows) < limit {
			if err := ctxDone(ctx); err != nil {
				return err
			}
			key := it.Key()
			val, err := it.Value()
			if err != nil {
				return err
			}
			decoded, err := s.decodeByKeyKind(req.Space, key, val, view)
			if err == nil && decoded != nil {
				resp.Rows = append(resp.Rows, decoded)
			}
			resp.NextCursor = key
			it.Next()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp.Code = wire.CodeOK
	return &resp, nil
}
