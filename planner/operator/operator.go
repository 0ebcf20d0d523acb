// Package operator defines the physical operator DAG of spec.md §4.6:
// one Go type per operator, addressed by an integer index into an Arena
// rather than by pointer — "model as an arena-owned DAG with indices
// into the arena; never walk shared pointers" (§9, "Cyclic ownership in
// plans"). The shape is modeled on internal/ir's Policy/Block/Stmt/Local
// split (a Local is a plan-scoped int, a Stmt is an open interface, a
// Plan is a flat slice of Blocks) generalized from "one IR for a Rego
// query" to "one DAG for a graph query": an ID plays Local's role, Node
// plays Stmt's role, and Arena plays Plan's role.
package operator

// ID addresses one Node within an Arena. The zero ID is never valid;
// Arena.Add never returns it.
type ID int

// Column names one value an operator's output row carries, with the
// value.Kind a consumer may assume it to be (§4.6 "every operator
// declares its output column names and types").
type Column struct {
	Name string
	Kind ColumnKind
}

// ColumnKind mirrors value.Kind without importing value directly into
// every operator literal; operators that need the real value.Kind
// convert to value.Kind at the edges (planner, storagesvc).
type ColumnKind uint8

const (
	ColumnAny ColumnKind = iota
	ColumnBool
	ColumnInt
	ColumnFloat
	ColumnString
	ColumnVertex
	ColumnEdge
	ColumnPath
	ColumnList
	ColumnMap
)

// Kind enumerates every operator named in §4.6.
type Kind uint8

const (
	KindTraverse Kind = iota
	KindAppendVertices
	KindFilter
	KindProject
	KindAggregate
	KindDedup
	KindSort
	KindLimit
	KindSubgraph
	KindLoop
	KindStartNode
	KindUnwind
	KindApply
	KindRollUp
	KindDataCollect
	KindGetVertices
	KindGetNeighbors
	KindGetProp
	KindScanVertex
	KindScanEdge
)

func (k Kind) String() string {
	switch k {
	case KindTraverse:
		return "Traverse"
	case KindAppendVertices:
		return "AppendVertices"
	case KindFilter:
		return "Filter"
	case KindProject:
		return "Project"
	case KindAggregate:
		return "Aggregate"
	case KindDedup:
		return "Dedup"
	case KindSort:
		return "Sort"
	case KindLimit:
		return "Limit"
	case KindSubgraph:
		return "Subgraph"
	case KindLoop:
		return "Loop"
	case KindStartNode:
		return "StartNode"
	case KindUnwind:
		return "Unwind"
	case KindApply:
		return "Apply"
	case KindRollUp:
		return "RollUp"
	case KindDataCollect:
		return "DataCollect"
	case KindGetVertices:
		return "GetVertices"
	case KindGetNeighbors:
		return "GetNeighbors"
	case KindGetProp:
		return "GetProp"
	case KindScanVertex:
		return "ScanVertex"
	case KindScanEdge:
		return "ScanEdge"
	default:
		return "Unknown"
	}
}

// Node is the interface every concrete operator type implements.
type Node interface {
	// Self returns the node's own arena ID, set by Arena.Add.
	Self() ID
	// Kind reports which concrete operator this is.
	Kind() Kind
	// Inputs lists the IDs this operator reads rows from, in order.
	// A source operator (GetVertices, ScanVertex, ScanEdge, StartNode)
	// returns nil.
	Inputs() []ID
	// Columns declares this operator's output column names/types
	// (§4.6 planner invariant: "every operator declares its output
	// column names and types").
	Columns() []Column
	// SingleInput reports whether this operator may only ever be the
	// right-hand side of a join or loop, never driven by more than one
	// upstream row source at a time (§4.6 planner invariant: "if so,
	// the connector inserts a StartNode as its left input").
	SingleInput() bool
}

// base is embedded by every concrete operator to carry its arena
// identity; it is not itself a valid Node (no Kind/Columns).
type base struct {
	id ID
}

// Self implements part of Node for every type embedding base.
func (b base) Self() ID { return b.id }

// Arena owns every Node in a plan, addressed by ID so the DAG that
// results can share subplans (a Loop's body, an Apply's nested plan)
// without ever holding a Go pointer across them (§9).
type Arena struct {
	nodes []Node
}

// NewArena returns an empty Arena.
func NewArena() *Arena { return &Arena{} }

// Add installs n, assigns it the next ID, and returns that ID. n must
// be a pointer to a concrete operator type whose embedded base
// supplies setSelf (every type in operators.go satisfies this).
func (a *Arena) Add(n interface{ setSelf(ID) }) ID {
	id := ID(len(a.nodes) + 1) // 0 stays reserved as "no node"
	n.setSelf(id)
	a.nodes = append(a.nodes, n.(Node))
	return id
}

// Get returns the Node at id, or nil if id is out of range or zero.
func (a *Arena) Get(id ID) Node {
	if id <= 0 || int(id) > len(a.nodes) {
		return nil
	}
	return a.nodes[id-1]
}

// Len reports how many nodes the arena holds.
func (a *Arena) Len() int { return len(a.nodes) }

func (b *base) setSelf(id ID) { b.id = id }
