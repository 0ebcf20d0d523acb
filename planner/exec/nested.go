package exec

import (
	"context"

	"github.com/graphkv/graphd/planner/operator"
	"github.com/graphkv/graphd/value"
)

// evalStartNode returns the single row currently in scope as this
// plan's synthetic source: the driving row an enclosing Apply/RollUp
// pushed (§4.6 planner invariant "the connector inserts a StartNode as
// its left input"), or one empty row if nothing is driving this plan
// (the top-level query case).
func (ex *Executor) evalStartNode(op *operator.StartNode) (*RowSet, error) {
	cols := columnNames(op.Columns_)
	if len(ex.driving) == 0 {
		return &RowSet{Columns: cols, Rows: []Row{{}}}, nil
	}
	r := ex.driving[len(ex.driving)-1]
	row := make(Row, len(cols))
	for _, c := range cols {
		row[c] = r[c]
	}
	return &RowSet{Columns: cols, Rows: []Row{row}}, nil
}

// evalApply runs Subplan once per row of Input, nested-loop fashion,
// pushing that row as the driving row a nested StartNode reads
// (§4.6 unwind planner "nested Apply/RollUp subplan"). Output columns
// are Input's concatenated with Subplan's.
func (ex *Executor) evalApply(ctx context.Context, op *operator.Apply) (*RowSet, error) {
	in, err := ex.eval(ctx, op.Input)
	if err != nil {
		return nil, err
	}
	var subCols []string
	out := &RowSet{}
	for _, r := range in.Rows {
		ex.driving = append(ex.driving, r)
		sub, err := ex.eval(ctx, op.Subplan)
		ex.driving = ex.driving[:len(ex.driving)-1]
		if err != nil {
			return nil, err
		}
		if subCols == nil {
			subCols = sub.Columns
			out.Columns = append(append([]string(nil), in.Columns...), subCols...)
		}
		for _, sr := range sub.Rows {
			nr := copyRow(r)
			for k, v := range sr {
				nr[k] = v
			}
			out.Rows = append(out.Rows, nr)
		}
	}
	if out.Columns == nil {
		out.Columns = in.Columns
	}
	return out, nil
}

// evalRollUp collects every row Subplan produced for one driving row of
// Input back into a single CollectAlias list column on that row (§4.6
// "collects pattern matches back into the driving row"), as one
// value.DataSet when Subplan has more than one column, or as a
// value.List of the bare column value when it has exactly one.
func (ex *Executor) evalRollUp(ctx context.Context, op *operator.RollUp) (*RowSet, error) {
	in, err := ex.eval(ctx, op.Input)
	if err != nil {
		return nil, err
	}
	out := &RowSet{Columns: append(append([]string(nil), in.Columns...), op.CollectAlias)}
	for _, r := range in.Rows {
		ex.driving = append(ex.driving, r)
		sub, err := ex.eval(ctx, op.Subplan)
		ex.driving = ex.driving[:len(ex.driving)-1]
		if err != nil {
			return nil, err
		}
		nr := copyRow(r)
		nr[op.CollectAlias] = rollUpValue(sub)
		out.Rows = append(out.Rows, nr)
	}
	return out, nil
}

func rollUpValue(rs *RowSet) value.Value {
	if len(rs.Columns) == 1 {
		col := rs.Columns[0]
		items := make([]value.Value, len(rs.Rows))
		for i, r := range rs.Rows {
			items[i] = r[col]
		}
		return value.List(items)
	}
	ds := value.DataSet{ColumnNames: append([]string(nil), rs.Columns...)}
	for _, r := range rs.Rows {
		row := make([]value.Value, len(rs.Columns))
		for i, c := range rs.Columns {
			row[i] = r[c]
		}
		ds.Rows = append(ds.Rows, row)
	}
	return value.DataSetVal(ds)
}

// evalSubgraph runs one step of the subgraph traversal planner (§4.6):
// it reads the current step's GetNeighbors output (Input), folds newly
// discovered vertices back into VertexVar (so the enclosing Loop's next
// iteration expands from them), and appends this step's edges into
// EdgeHoldoverVar's accumulator.
func (ex *Executor) evalSubgraph(ctx context.Context, op *operator.Subgraph) (*RowSet, error) {
	in, err := ex.eval(ctx, op.Input)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	for _, v := range ex.vertexAcc[op.VertexVar] {
		if vid, ok := vidOf(v); ok {
			seen[vid] = true
		}
	}
	for _, vid := range ex.vars[op.VertexVar] {
		seen[vid] = true
	}

	var nextVids []string
	for _, r := range in.Rows {
		if _, ok := r["edge"].AsEdge(); !ok {
			continue
		}
		ex.edgeHold[op.EdgeHoldoverVar] = append(ex.edgeHold[op.EdgeHoldoverVar], r["edge"])
		dstVid, ok := r["dst"].AsString()
		if !ok {
			continue
		}
		if !seen[dstVid] {
			seen[dstVid] = true
			nextVids = append(nextVids, dstVid)
			// enriched below via a batched GetVertices once the full
			// next-step vid set is known, rather than one RPC per vertex.
			ex.vertexAcc[op.VertexVar] = append(ex.vertexAcc[op.VertexVar], value.VertexVal(value.Vertex{ID: value.String(dstVid)}))
		}
	}

	if op.WithProps && len(nextVids) > 0 {
		ex.vars["$__subgraph_step"] = nextVids
		nrs, err := ex.fetchNeighbors(ctx, "$__subgraph_step", nil, operator.DirBoth, nil, true)
		if err == nil {
			byVid := make(map[string]value.Value, len(nrs))
			for _, nr := range nrs {
				byVid[nr.VID] = neighborRowToVertex(nr)
			}
			for i := len(ex.vertexAcc[op.VertexVar]) - len(nextVids); i < len(ex.vertexAcc[op.VertexVar]); i++ {
				if vid, ok := vidOf(ex.vertexAcc[op.VertexVar][i]); ok {
					if full, ok := byVid[vid]; ok {
						ex.vertexAcc[op.VertexVar][i] = full
					}
				}
			}
		}
	}

	ex.vars[op.VertexVar] = nextVids
	return &RowSet{
		Columns: []string{"vertices", "edges"},
		Rows:    []Row{{"vertices": value.List(ex.vertexAcc[op.VertexVar]), "edges": value.List(ex.edgeHold[op.EdgeHoldoverVar])}},
	}, nil
}

// evalLoop repeats Body Steps times; Subgraph (Body's usual shape)
// rebinds the variable it reads from step to step, so repeated
// evaluation naturally advances the traversal frontier (§4.6 "a Loop
// over GetNeighbors + Subgraph").
func (ex *Executor) evalLoop(ctx context.Context, op *operator.Loop) (*RowSet, error) {
	var last *RowSet
	for i := 0; i < op.Steps; i++ {
		rs, err := ex.eval(ctx, op.Body)
		if err != nil {
			return nil, err
		}
		last = rs
		if len(ex.nextFrontier(op.Body)) == 0 {
			break
		}
	}
	if last == nil {
		last = &RowSet{Columns: []string{"vertices", "edges"}}
	}
	return last, nil
}

// nextFrontier reports whether Body's VertexVar (if Body is a
// Subgraph) still has vids queued for another iteration, so Loop can
// stop early once the frontier is exhausted rather than always running
// its full Steps count.
func (ex *Executor) nextFrontier(body operator.ID) []string {
	n := ex.arena.Get(body)
	sg, ok := n.(*operator.Subgraph)
	if !ok {
		return nil
	}
	return ex.vars[sg.VertexVar]
}

// evalDataCollect merges every Loop iteration's per-step vertex/edge
// sets into the final "vertices"/"edges" columns (§4.6). Since
// evalSubgraph already accumulates into ex.vertexAcc/ex.edgeHold across
// every call sharing the same VertexVar/EdgeHoldoverVar, the merge here
// is just reading Inputs_'s (already-final) accumulated rows.
func (ex *Executor) evalDataCollect(ctx context.Context, op *operator.DataCollect) (*RowSet, error) {
	var last *RowSet
	for _, id := range op.Inputs_ {
		rs, err := ex.eval(ctx, id)
		if err != nil {
			return nil, err
		}
		last = rs
	}
	if last == nil {
		last = &RowSet{Columns: []string{"vertices", "edges"}}
	}
	return last, nil
}
