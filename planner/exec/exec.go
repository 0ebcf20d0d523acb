// Package exec interprets the physical operator DAG planner/operator
// builds (spec.md §4.6) against a storage tier: it is the "executors
// drive operators; operators fan out storage RPCs... and partial
// results are merged, filtered, projected, aggregated, and returned as
// a row set" half of §2's data-flow description that the planner
// package itself deliberately stops short of (planner only builds the
// DAG; nothing in that package ever calls storagesvc).
//
// The shape is modeled on storagesvc.Service: one method per operator
// kind instead of per RPC, reading/writing rows through an explicit
// Row/RowSet type the way storagesvc reads/writes wire.* structs, and
// reusing the same ExpressionContext-adapter pattern
// (storagesvc/read.go's edgeFilterContext) for evaluating pushed-down
// predicates against a single candidate value.
package exec

import (
	"context"
	"fmt"
	"sort"

	"github.com/graphkv/graphd/expression"
	"github.com/graphkv/graphd/planner/operator"
	"github.com/graphkv/graphd/schema"
	"github.com/graphkv/graphd/storagekey"
	"github.com/graphkv/graphd/value"
	"github.com/graphkv/graphd/wire"
)

// Row is one output row: column name to value, the in-memory analog of
// wire's per-RPC row maps (GetNeighborsResponse/GetPropResponse/
// ScanResponse all already settle on map[string]value.Value for the
// same reason — a row's column set varies per operator, so a struct
// would have to be as wide as the union of every operator's columns).
type Row map[string]value.Value

// RowSet is one operator's output: its declared column order (needed
// by ColumnRef, which addresses columns positionally) plus the rows
// themselves.
type RowSet struct {
	Columns []string
	Rows    []Row
}

// StorageClient is the subset of storagesvc.Service's RPC surface the
// executor's leaf operators call. Matching storagesvc.Service's method
// signatures directly lets a Service value be passed in-process with no
// adapter, or a transport-backed client stand in for a remote storage
// host (see Client in rpcclient.go).
type StorageClient interface {
	GetNeighbors(ctx context.Context, req *wire.GetNeighborsRequest) (*wire.GetNeighborsResponse, error)
	GetProp(ctx context.Context, req *wire.GetPropRequest) (*wire.GetPropResponse, error)
	Scan(ctx context.Context, req *wire.ScanRequest) (*wire.ScanResponse, error)
}

// Executor runs one query's operator DAG against a single space. A
// query targets exactly one space (§4.6 never composes a plan across
// spaces), so Space/PartitionCount/VIDLen are fixed for the Executor's
// lifetime rather than threaded through every call.
type Executor struct {
	arena          *operator.Arena
	client         StorageClient
	space          string
	partitionCount int32
	vidLen         int
	registry       *expression.Registry

	vars      map[string][]string    // named vid-list variables (VidsVar/KeysVar)
	edgeHold  map[string][]value.Value // edge holdover accumulators (subgraph traversal)
	vertexAcc map[string][]value.Value // per-loop-run discovered vertex accumulator
	params    map[string]value.Value
	session   map[string]value.Value

	driving []Row // stack of rows currently "in scope" for Apply/RollUp's nested subplan
}

// New returns an Executor that will run plans built into arena against
// client, targeting sp. vars seeds the named vid-list variables a
// query's leaf operators read from (e.g. a literal vid list, or an
// earlier clause's bound alias).
func New(arena *operator.Arena, client StorageClient, sp *schema.Space, vars map[string][]string, params, session map[string]value.Value) *Executor {
	ex := &Executor{
		arena:          arena,
		client:         client,
		space:          sp.Name,
		partitionCount: sp.PartitionCount,
		vidLen:         sp.VertexIDLen,
		registry:       expression.NewRegistry(),
		vars:           map[string][]string{},
		edgeHold:       map[string][]value.Value{},
		vertexAcc:      map[string][]value.Value{},
		params:         params,
		session:        session,
	}
	for k, v := range vars {
		ex.vars[k] = append([]string(nil), v...)
	}
	return ex
}

// Run evaluates the subplan rooted at root and returns its result rows.
func (ex *Executor) Run(ctx context.Context, root operator.ID) (*RowSet, error) {
	return ex.eval(ctx, root)
}

func (ex *Executor) node(id operator.ID) (operator.Node, error) {
	n := ex.arena.Get(id)
	if n == nil {
		return nil, fmt.Errorf("exec: operator %d not found", id)
	}
	return n, nil
}

// eval dispatches on n's concrete kind, recursing into its Inputs()
// first — the operator DAG is acyclic per node (Loop/Apply/RollUp carry
// their repetition and nesting as explicit Steps/Subplan fields rather
// than back-edges), so a plain recursive walk never loops.
func (ex *Executor) eval(ctx context.Context, id operator.ID) (*RowSet, error) {
	n, err := ex.node(id)
	if err != nil {
		return nil, err
	}
	switch op := n.(type) {
	case *operator.StartNode:
		return ex.evalStartNode(op)
	case *operator.GetVertices:
		return ex.evalGetVertices(ctx, op)
	case *operator.GetNeighbors:
		return ex.evalGetNeighbors(ctx, op, nil)
	case *operator.GetProp:
		return ex.evalGetProp(ctx, op)
	case *operator.ScanVertex:
		return ex.evalScanVertex(ctx, op)
	case *operator.ScanEdge:
		return ex.evalScanEdge(ctx, op)
	case *operator.Traverse:
		return ex.evalTraverse(ctx, op)
	case *operator.AppendVertices:
		return ex.evalAppendVertices(ctx, op)
	case *operator.Filter:
		return ex.evalFilter(ctx, op)
	case *operator.Project:
		return ex.evalProject(ctx, op)
	case *operator.Aggregate:
		return ex.evalAggregate(ctx, op)
	case *operator.Dedup:
		return ex.evalDedup(ctx, op)
	case *operator.Sort:
		return ex.evalSort(ctx, op)
	case *operator.Limit:
		return ex.evalLimit(ctx, op)
	case *operator.Sampling:
		return ex.evalLimit(ctx, &operator.Limit{Input: op.Input, Count: op.Count})
	case *operator.Unwind:
		return ex.evalUnwind(ctx, op)
	case *operator.Apply:
		return ex.evalApply(ctx, op)
	case *operator.RollUp:
		return ex.evalRollUp(ctx, op)
	case *operator.Subgraph:
		return ex.evalSubgraph(ctx, op)
	case *operator.Loop:
		return ex.evalLoop(ctx, op)
	case *operator.DataCollect:
		return ex.evalDataCollect(ctx, op)
	default:
		return nil, fmt.Errorf("exec: unhandled operator kind %v", n.Kind())
	}
}

// declaredColumns returns id's own declared output columns, walking
// back through passthrough operators (Filter/Dedup/Sort/Limit/Loop)
// the same way planner/context.go's requireColumns does, since a
// passthrough operator's Columns() is deliberately empty.
func (ex *Executor) declaredColumns(id operator.ID) []operator.Column {
	for id != 0 {
		n := ex.arena.Get(id)
		if n == nil {
			return nil
		}
		if cols := n.Columns(); len(cols) > 0 {
			return cols
		}
		ins := n.Inputs()
		if len(ins) == 0 {
			return nil
		}
		id = ins[0]
	}
	return nil
}

func columnNames(cols []operator.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func partitionVids(vids []string, numPartitions int32) map[uint32][]string {
	out := map[uint32][]string{}
	for _, v := range vids {
		p := storagekey.PartitionOf([]byte(v), numPartitions)
		out[p] = append(out[p], v)
	}
	return out
}

func sortedKeys(m map[uint32][]string) []uint32 {
	ks := make([]uint32, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Slice(ks, func(i, j int) bool { return ks[i] < ks[j] })
	return ks
}
