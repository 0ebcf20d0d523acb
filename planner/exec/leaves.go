package exec

import (
	"context"

	"github.com/graphkv/graphd/expression"
	"github.com/graphkv/graphd/planner/operator"
	"github.com/graphkv/graphd/storagekey"
	"github.com/graphkv/graphd/value"
	"github.com/graphkv/graphd/wire"
)

// signedEdgeTypes expands an unsigned edge-type list and a Direction
// into storagekey's signed convention (§3 glossary "Edge type... stored
// with signed id to encode direction"): positive for outgoing, negative
// for the stored reverse edge. An empty edgeTypes list is left empty —
// storagesvc's sentinel for "every edge type below this vertex"
// (storagesvc/read.go's neighborsForVertex) already covers both
// directions, so no direction expansion is needed in that case.
func signedEdgeTypes(edgeTypes []int32, dir operator.Direction) []int32 {
	if len(edgeTypes) == 0 {
		return nil
	}
	out := make([]int32, 0, len(edgeTypes)*2)
	for _, et := range edgeTypes {
		switch dir {
		case operator.DirOutgoing:
			out = append(out, et)
		case operator.DirIncoming:
			out = append(out, -et)
		default:
			out = append(out, et, -et)
		}
	}
	return out
}

// fetchNeighbors runs one GetNeighbors RPC for every vid bound to
// vidsVar, partitioning the request by storagekey.PartitionOf and
// pushing edgeFilter down as the request's FilterExpr (§4.5 "a pushed-
// down filter expression evaluates per candidate edge").
func (ex *Executor) fetchNeighbors(ctx context.Context, vidsVar string, edgeTypes []int32, dir operator.Direction, edgeFilter expression.Expr, withVertexProps bool) ([]wire.NeighborRow, error) {
	vids := ex.vars[vidsVar]
	if len(vids) == 0 {
		return nil, nil
	}
	req := &wire.GetNeighborsRequest{
		Space:     ex.space,
		Parts:     partitionVids(vids, ex.partitionCount),
		EdgeTypes: signedEdgeTypes(edgeTypes, dir),
	}
	if edgeFilter != nil {
		req.FilterExpr = expression.Encode(edgeFilter)
	}
	if withVertexProps {
		req.VertexProps = map[int32][]string{0: nil} // sentinel tag id: neighborsForVertex populates VertexProp regardless of tag id key presence
	}
	resp, err := ex.client.GetNeighbors(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

// evalGetVertices implements the GetVertices physical leaf by calling
// GetNeighbors with no edge types: neighborsForVertex still populates
// VertexProp in that case (storagesvc/read.go), so no separate
// point-lookup path is needed just to read a vertex's own properties.
func (ex *Executor) evalGetVertices(ctx context.Context, op *operator.GetVertices) (*RowSet, error) {
	vids := ex.vars[op.VidsVar]
	rows := make([]Row, 0, len(vids))
	if op.WithProps && len(vids) > 0 {
		nrs, err := ex.fetchNeighbors(ctx, op.VidsVar, nil, operator.DirBoth, nil, true)
		if err != nil {
			return nil, err
		}
		for _, nr := range nrs {
			rows = append(rows, Row{"vertex": neighborRowToVertex(nr)})
		}
	} else {
		for _, vid := range vids {
			rows = append(rows, Row{"vertex": value.VertexVal(value.Vertex{ID: value.String(vid)})})
		}
	}
	return &RowSet{Columns: []string{"vertex"}, Rows: rows}, nil
}

// neighborRowToVertex assembles a value.Vertex from one NeighborRow's
// VID and (if requested) decoded VertexProp tags.
func neighborRowToVertex(nr wire.NeighborRow) value.Value {
	v := value.Vertex{ID: value.String(nr.VID)}
	for tagID, props := range nr.VertexProp {
		v.Tags = append(v.Tags, value.Tag{TagID: uint32(tagID), Props: props})
	}
	return value.VertexVal(v)
}

// evalGetNeighbors implements the GetNeighbors physical leaf: one row
// per edge (§4.6 Columns() declares "edge","dst"), flattened out of the
// per-source-vertex NeighborRow the RPC returns.
func (ex *Executor) evalGetNeighbors(ctx context.Context, op *operator.GetNeighbors, edgeFilter expression.Expr) (*RowSet, error) {
	nrs, err := ex.fetchNeighbors(ctx, op.VidsVar, op.EdgeTypes, op.Direction, edgeFilter, false)
	if err != nil {
		return nil, err
	}
	var rows []Row
	for _, nr := range nrs {
		for edgeType, edges := range nr.Edges {
			for _, e := range edges {
				ev := value.EdgeVal(value.Edge{
					Type: edgeType, Src: value.String(nr.VID), Dst: value.String(e.Dst),
					Rank: e.Rank, Props: e.Props,
				})
				rows = append(rows, Row{"edge": ev, "dst": value.String(e.Dst)})
			}
		}
	}
	return &RowSet{Columns: []string{"edge", "dst"}, Rows: rows}, nil
}

// evalGetProp implements the GetProp physical leaf: a point lookup by
// storagekey-encoded key list (§4.5 "point lookups by key list"). Keys
// are read from the named variable the same way a vid-list variable
// feeds GetVertices/GetNeighbors, here holding already-encoded key
// bytes rather than bare vids.
func (ex *Executor) evalGetProp(ctx context.Context, op *operator.GetProp) (*RowSet, error) {
	keys := ex.vars[op.KeysVar]
	if len(keys) == 0 {
		return &RowSet{Columns: []string{"props"}}, nil
	}
	parts := map[uint32][][]byte{}
	for _, k := range keys {
		kb := []byte(k)
		p := storagekey.PartitionOf(kb, ex.partitionCount)
		parts[p] = append(parts[p], kb)
	}
	resp, err := ex.client.GetProp(ctx, &wire.GetPropRequest{Space: ex.space, Props: parts})
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(resp.Rows))
	for _, r := range resp.Rows {
		props := make(map[string]value.Value, len(r))
		for k, v := range r {
			props[k] = v
		}
		rows = append(rows, Row{"props": value.Map(props)})
	}
	return &RowSet{Columns: []string{"props"}, Rows: rows}, nil
}

func (ex *Executor) evalScanVertex(ctx context.Context, op *operator.ScanVertex) (*RowSet, error) {
	return ex.scan(ctx, op.Space, "vertex", "vertex", valueAsVertexRow)
}

func (ex *Executor) evalScanEdge(ctx context.Context, op *operator.ScanEdge) (*RowSet, error) {
	return ex.scan(ctx, op.Space, "edge", "edge", valueAsEdgeRow)
}

func valueAsVertexRow(props map[string]value.Value) value.Value {
	return value.VertexVal(value.Vertex{Tags: []value.Tag{{Props: props}}})
}

func valueAsEdgeRow(props map[string]value.Value) value.Value {
	return value.EdgeVal(value.Edge{Props: props})
}

// scan drives ScanVertex/ScanEdge across every partition of the space,
// paging through ScanRequest's cursor until each partition is exhausted
// (§4.5 "partition-ordered range scan with a continuation cursor").
func (ex *Executor) scan(ctx context.Context, space, kind, column string, wrap func(map[string]value.Value) value.Value) (*RowSet, error) {
	var rows []Row
	for part := uint32(0); part < uint32(max32(ex.partitionCount, 1)); part++ {
		var cursor []byte
		for {
			resp, err := ex.client.Scan(ctx, &wire.ScanRequest{Space: space, Part: part, Kind: kind, Cursor: cursor, Limit: 1000})
			if err != nil {
				return nil, err
			}
			for _, r := range resp.Rows {
				rows = append(rows, Row{column: wrap(r)})
			}
			if resp.NextCursor == nil || len(resp.Rows) == 0 {
				break
			}
			cursor = resp.NextCursor
		}
	}
	return &RowSet{Columns: []string{column}, Rows: rows}, nil
}

func max32(v, floor int32) int32 {
	if v < floor {
		return floor
	}
	return v
}
