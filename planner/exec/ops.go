package exec

import (
	"context"
	"sort"
	"strings"

	"github.com/graphkv/graphd/expression"
	"github.com/graphkv/graphd/planner/operator"
	"github.com/graphkv/graphd/value"
	"github.com/graphkv/graphd/wire"
)

// vertexColumn returns the rightmost vertex-valued column name in rs —
// the "current vertex" a Traverse hop expands from, and the column an
// AppendVertices call materializes. Columns are scanned right-to-left
// since a match path's most recently bound vertex is always the one a
// later hop departs from (§4.6 match-path planner).
func vertexColumn(rs *RowSet) (string, bool) {
	if len(rs.Rows) == 0 {
		return "", false
	}
	for i := len(rs.Columns) - 1; i >= 0; i-- {
		if v, ok := rs.Rows[0][rs.Columns[i]]; ok && v.Kind() == value.KindVertex {
			return rs.Columns[i], true
		}
	}
	return "", false
}

func vidOf(v value.Value) (string, bool) {
	vx, ok := v.AsVertex()
	if !ok {
		return "", false
	}
	s, ok := vx.ID.AsString()
	return s, ok
}

func copyRow(r Row) Row {
	out := make(Row, len(r)+2)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// evalTraverse implements one match-path hop (§4.6): for every row of
// Input, expand the row's current vertex by EdgeTypes/Direction,
// applying VertexFilter/EdgeFilter, and appending a column per
// EdgeAlias/NodeAlias. Steps bounds the hop count; Steps.Min==Steps.Max
// (the common fixed-length case) is handled directly, a wider range
// repeats the single-hop expansion that many times and keeps every
// depth in [Min,Max] (no cycle suppression, matching value.Equal-only
// dedup elsewhere in this package).
func (ex *Executor) evalTraverse(ctx context.Context, op *operator.Traverse) (*RowSet, error) {
	in, err := ex.eval(ctx, op.Input)
	if err != nil {
		return nil, err
	}
	vcol, ok := vertexColumn(in)
	newCols := append(append([]string(nil), in.Columns...), op.EdgeAlias, op.NodeAlias)

	out := &RowSet{Columns: newCols}
	if !ok {
		return out, nil
	}

	min, max := op.Steps.Min, op.Steps.Max
	if min <= 0 {
		min = 1
	}
	if max < min {
		max = min
	}

	frontier := in.Rows
	for depth := 1; depth <= max; depth++ {
		vids := make([]string, 0, len(frontier))
		seen := map[string]bool{}
		for _, r := range frontier {
			if vid, ok := vidOf(r[vcol]); ok && !seen[vid] {
				seen[vid] = true
				vids = append(vids, vid)
			}
		}
		nrs, err := ex.fetchNeighborsForVids(ctx, vids, op.EdgeTypes, op.Direction, op.EdgeFilter)
		if err != nil {
			return nil, err
		}

		var next []Row
		for _, r := range frontier {
			vid, ok := vidOf(r[vcol])
			if !ok {
				continue
			}
			nr, ok := nrs[vid]
			if !ok {
				continue
			}
			for edgeType, edges := range nr.Edges {
				for _, e := range edges {
					dstVertex := value.VertexVal(value.Vertex{ID: value.String(e.Dst)})
					if op.VertexFilter != nil && !op.VertexFilter.Eval(entityContext{vertex: dstVertex}).Truthy() {
						continue
					}
					nr := copyRow(r)
					if op.EdgeAlias != "" {
						nr[op.EdgeAlias] = value.EdgeVal(value.Edge{
							Type: edgeType, Src: value.String(vid), Dst: value.String(e.Dst),
							Rank: e.Rank, Props: e.Props,
						})
					}
					// always set, even for an unnamed alias: the next depth
					// expands from this column.
					nr[op.NodeAlias] = dstVertex
					next = append(next, nr)
					if depth >= min {
						out.Rows = append(out.Rows, nr)
					}
				}
			}
		}
		frontier = next
		vcol = op.NodeAlias
		if len(frontier) == 0 {
			break
		}
	}
	return out, nil
}

// fetchNeighborsForVids batches a GetNeighbors call across vids and
// indexes the result by source vid, for Traverse's per-row expansion.
func (ex *Executor) fetchNeighborsForVids(ctx context.Context, vids []string, edgeTypes []int32, dir operator.Direction, edgeFilter expression.Expr) (map[string]wire.NeighborRow, error) {
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
	resp, err := ex.client.GetNeighbors(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make(map[string]wire.NeighborRow, len(resp.Rows))
	for _, nr := range resp.Rows {
		out[nr.VID] = nr
	}
	return out, nil
}

// evalAppendVertices materializes the terminal node of a match path
// (§4.6): the row already carries a bare vertex (id only) under
// VertexAlias from the preceding Traverse hop; this fetches its full
// tag/property set the way GetVertices does for a source vertex.
func (ex *Executor) evalAppendVertices(ctx context.Context, op *operator.AppendVertices) (*RowSet, error) {
	in, err := ex.eval(ctx, op.Input)
	if err != nil {
		return nil, err
	}
	vids := make([]string, 0, len(in.Rows))
	seen := map[string]bool{}
	for _, r := range in.Rows {
		if vid, ok := vidOf(r[op.VertexAlias]); ok && !seen[vid] {
			seen[vid] = true
			vids = append(vids, vid)
		}
	}
	ex.vars["$__append_vertices"] = vids
	nrs, err := ex.fetchNeighbors(ctx, "$__append_vertices", nil, operator.DirBoth, nil, true)
	if err != nil {
		return nil, err
	}
	byVid := make(map[string]value.Value, len(nrs))
	for _, nr := range nrs {
		byVid[nr.VID] = neighborRowToVertex(nr)
	}

	out := &RowSet{Columns: in.Columns}
	for _, r := range in.Rows {
		nr := copyRow(r)
		if vid, ok := vidOf(r[op.VertexAlias]); ok {
			if full, ok := byVid[vid]; ok {
				nr[op.VertexAlias] = full
			}
		}
		out.Rows = append(out.Rows, nr)
	}
	return out, nil
}

// evalFilter drops rows Pred evaluates falsy for (§4.6 where planner).
func (ex *Executor) evalFilter(ctx context.Context, op *operator.Filter) (*RowSet, error) {
	in, err := ex.eval(ctx, op.Input)
	if err != nil {
		return nil, err
	}
	if op.Pred == nil {
		return in, nil
	}
	out := &RowSet{Columns: in.Columns}
	for _, r := range in.Rows {
		rc := rowContext{row: r, columns: in.Columns, params: ex.params, session: ex.session}
		if op.Pred.Eval(rc).Truthy() {
			out.Rows = append(out.Rows, r)
		}
	}
	return out, nil
}

// evalProject selects (and may rename) a subset of its input's columns.
func (ex *Executor) evalProject(ctx context.Context, op *operator.Project) (*RowSet, error) {
	in, err := ex.eval(ctx, op.Input)
	if err != nil {
		return nil, err
	}
	outCols := make([]string, len(op.Columns_))
	for i, c := range op.Columns_ {
		name := c.Name
		if c.As != "" {
			name = c.As
		}
		outCols[i] = name
	}
	out := &RowSet{Columns: outCols}
	for _, r := range in.Rows {
		nr := make(Row, len(op.Columns_))
		for i, c := range op.Columns_ {
			nr[outCols[i]] = r[c.Name]
		}
		out.Rows = append(out.Rows, nr)
	}
	return out, nil
}

// groupKeyString builds a comparable map key out of a group-by tuple;
// value.Value.String() already renders a stable textual form per kind.
func groupKeyString(vals []value.Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.String()
	}
	return strings.Join(parts, "\x1f")
}

// evalAggregate groups rows by GroupKeys and computes GroupItems per
// group (§4.6 with/return planner). Group folding is explicitly this
// package's job, not expression.Aggregate's (expression/nodes.go's
// Aggregate.Eval doc comment defers it to "the planner/operator
// layer").
func (ex *Executor) evalAggregate(ctx context.Context, op *operator.Aggregate) (*RowSet, error) {
	in, err := ex.eval(ctx, op.Input)
	if err != nil {
		return nil, err
	}

	type group struct {
		keyVals []value.Value
		items   [][]value.Value // per GroupItems index, every row's Arg value
	}
	order := []string{}
	groups := map[string]*group{}

	for _, r := range in.Rows {
		rc := rowContext{row: r, columns: in.Columns, params: ex.params, session: ex.session}
		keyVals := make([]value.Value, len(op.GroupKeys))
		for i, k := range op.GroupKeys {
			keyVals[i] = r[k]
		}
		gk := groupKeyString(keyVals)
		g, ok := groups[gk]
		if !ok {
			g = &group{keyVals: keyVals, items: make([][]value.Value, len(op.GroupItems))}
			groups[gk] = g
			order = append(order, gk)
		}
		for i, item := range op.GroupItems {
			var v value.Value
			if item.Arg != nil {
				v = item.Arg.Eval(rc)
			}
			g.items[i] = append(g.items[i], v)
		}
	}
	if len(in.Rows) == 0 && len(op.GroupKeys) == 0 {
		// an aggregate over zero rows with no group-by still emits one
		// group (e.g. count()==0), matching the subgraph planner's
		// Steps==0 "collect" case over a possibly-empty vertex set.
		groups[""] = &group{items: make([][]value.Value, len(op.GroupItems))}
		order = append(order, "")
	}

	outCols := make([]string, 0, len(op.GroupKeys)+len(op.GroupItems))
	outCols = append(outCols, op.GroupKeys...)
	for _, it := range op.GroupItems {
		outCols = append(outCols, it.As)
	}
	out := &RowSet{Columns: outCols}
	for _, gk := range order {
		g := groups[gk]
		row := make(Row, len(outCols))
		for i, k := range op.GroupKeys {
			row[k] = g.keyVals[i]
		}
		for i, item := range op.GroupItems {
			row[item.As] = foldAggregate(item.Func, g.items[i])
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func foldAggregate(fn string, vals []value.Value) value.Value {
	switch fn {
	case "count":
		return value.Int(int64(len(vals)))
	case "collect":
		return value.List(append([]value.Value(nil), vals...))
	case "sum":
		acc := value.Int(0)
		for _, v := range vals {
			acc = value.Add(acc, v)
		}
		return acc
	case "avg":
		if len(vals) == 0 {
			return value.Null(value.NullDivByZero)
		}
		acc := value.Int(0)
		for _, v := range vals {
			acc = value.Add(acc, v)
		}
		return value.Div(acc, value.Int(int64(len(vals))))
	case "min":
		return foldMinMax(vals, true)
	case "max":
		return foldMinMax(vals, false)
	case "std":
		return foldStd(vals)
	default:
		return value.Null(value.NullBadType)
	}
}

func foldMinMax(vals []value.Value, wantMin bool) value.Value {
	if len(vals) == 0 {
		return value.Null(value.NullDefault)
	}
	best := vals[0]
	for _, v := range vals[1:] {
		cmp, ok := value.Compare(v, best)
		if !ok {
			continue
		}
		if (wantMin && cmp < 0) || (!wantMin && cmp > 0) {
			best = v
		}
	}
	return best
}

func foldStd(vals []value.Value) value.Value {
	var nums []float64
	for _, v := range vals {
		if f, ok := v.AsFloat(); ok {
			nums = append(nums, f)
		} else if i, ok := v.AsInt(); ok {
			nums = append(nums, float64(i))
		}
	}
	if len(nums) == 0 {
		return value.Null(value.NullDivByZero)
	}
	var mean float64
	for _, n := range nums {
		mean += n
	}
	mean /= float64(len(nums))
	var variance float64
	for _, n := range nums {
		d := n - mean
		variance += d * d
	}
	variance /= float64(len(nums))
	return value.Float(sqrt(variance))
}

// sqrt avoids pulling in math just for this one call site's Newton
// iteration being simpler to audit than a generic dependency.
func sqrt(x float64) float64 {
	if x <= 0 {
		return 0
	}
	z := x
	for i := 0; i < 32; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}

// evalDedup removes duplicate rows, comparing the named Columns_ (or
// the full row if Columns_ is empty).
func (ex *Executor) evalDedup(ctx context.Context, op *operator.Dedup) (*RowSet, error) {
	in, err := ex.eval(ctx, op.Input)
	if err != nil {
		return nil, err
	}
	cols := op.Columns_
	if len(cols) == 0 {
		cols = in.Columns
	}
	seen := map[string]bool{}
	out := &RowSet{Columns: in.Columns}
	for _, r := range in.Rows {
		vals := make([]value.Value, len(cols))
		for i, c := range cols {
			vals[i] = r[c]
		}
		key := groupKeyString(vals)
		if seen[key] {
			continue
		}
		seen[key] = true
		out.Rows = append(out.Rows, r)
	}
	return out, nil
}

// evalSort orders rows by Columns_ in sequence (§4.6 order-by planner).
func (ex *Executor) evalSort(ctx context.Context, op *operator.Sort) (*RowSet, error) {
	in, err := ex.eval(ctx, op.Input)
	if err != nil {
		return nil, err
	}
	rows := append([]Row(nil), in.Rows...)
	sort.SliceStable(rows, func(i, j int) bool {
		for _, sc := range op.Columns_ {
			cmp, ok := value.Compare(rows[i][sc.Name], rows[j][sc.Name])
			if !ok || cmp == 0 {
				continue
			}
			if sc.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return &RowSet{Columns: in.Columns, Rows: rows}, nil
}

// evalLimit bounds and offsets the row count (§4.6 pagination planner).
// Sampling shares this operator's physical shape (operators.go): eval
// runs a Sampling as a Limit of Count rows with no offset, so it keeps
// the first Count rows of its input.
func (ex *Executor) evalLimit(ctx context.Context, op *operator.Limit) (*RowSet, error) {
	in, err := ex.eval(ctx, op.Input)
	if err != nil {
		return nil, err
	}
	rows := in.Rows
	if op.Offset > 0 {
		if int(op.Offset) >= len(rows) {
			rows = nil
		} else {
			rows = rows[op.Offset:]
		}
	}
	if op.Count >= 0 && int(op.Count) < len(rows) {
		rows = rows[:op.Count]
	}
	return &RowSet{Columns: in.Columns, Rows: rows}, nil
}

// evalUnwind expands Column (expected to hold a list) into one row per
// element, bound to Alias (§4.6 unwind planner).
func (ex *Executor) evalUnwind(ctx context.Context, op *operator.Unwind) (*RowSet, error) {
	in, err := ex.eval(ctx, op.Input)
	if err != nil {
		return nil, err
	}
	out := &RowSet{Columns: append(append([]string(nil), in.Columns...), op.Alias)}
	for _, r := range in.Rows {
		items, ok := r[op.Column].AsList()
		if !ok {
			if set, ok := r[op.Column].AsSet(); ok {
				items = set
			}
		}
		for _, it := range items {
			nr := copyRow(r)
			nr[op.Alias] = it
			out.Rows = append(out.Rows, nr)
		}
	}
	return out, nil
}
