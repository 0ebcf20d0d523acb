package planner

import (
	"testing"

	"github.com/graphkv/graphd/planner/operator"
)

// §8 "Planner: for a path pattern (a)-[e1]->(b)-[e2]->(c) with start
// supplied for a, the produced plan contains exactly two Traverse
// operators and one AppendVertices, in that order, plus exactly one
// Project at the root whose columns are a,e1,b,e2,c when all aliases
// are referenced."
func TestMatchPathTwoHops(t *testing.T) {
	arena := operator.NewArena()
	ctx := NewContext(arena)

	nodes := []NodeInfo{{Alias: "a"}, {Alias: "b"}, {Alias: "c"}}
	edges := []EdgeInfo{
		{Alias: "e1", EdgeTypes: []int32{1}, Direction: operator.DirOutgoing},
		{Alias: "e2", EdgeTypes: []int32{1}, Direction: operator.DirOutgoing},
	}
	chain := DefaultChain(nil, nil, map[string]string{"a": "$a_vids"})

	sp, err := ctx.MatchPath(arena, nodes, edges, chain)
	if err != nil {
		t.Fatalf("MatchPath: %v", err)
	}

	var traverses []operator.ID
	var appendVertices []operator.ID
	for id := operator.ID(1); int(id) <= arena.Len(); id++ {
		switch arena.Get(id).Kind() {
		case operator.KindTraverse:
			traverses = append(traverses, id)
		case operator.KindAppendVertices:
			appendVertices = append(appendVertices, id)
		}
	}
	if len(traverses) != 2 {
		t.Fatalf("got %d Traverse operators, want 2", len(traverses))
	}
	if traverses[0] >= traverses[1] {
		t.Fatalf("Traverse operators not in hop order: %v", traverses)
	}
	if len(appendVertices) != 1 {
		t.Fatalf("got %d AppendVertices operators, want 1", len(appendVertices))
	}
	if appendVertices[0] <= traverses[1] {
		t.Fatalf("AppendVertices must come after the last Traverse")
	}

	root := arena.Get(sp.Root)
	if root.Kind() != operator.KindProject {
		t.Fatalf("root operator is %s, want Project", root.Kind())
	}
	var gotCols []string
	for _, c := range root.Columns() {
		gotCols = append(gotCols, c.Name)
	}
	want := []string{"a", "e1", "b", "e2", "c"}
	if len(gotCols) != len(want) {
		t.Fatalf("Project columns = %v, want %v", gotCols, want)
	}
	for i, w := range want {
		if gotCols[i] != w {
			t.Fatalf("Project columns = %v, want %v", gotCols, want)
		}
	}
}

func TestMatchPathRejectsMismatchedLengths(t *testing.T) {
	arena := operator.NewArena()
	ctx := NewContext(arena)
	_, err := ctx.MatchPath(arena, []NodeInfo{{Alias: "a"}}, []EdgeInfo{{Alias: "e1"}}, nil)
	if err == nil {
		t.Fatalf("expected ErrMalformedPath")
	}
}

func TestFindStartChainOrder(t *testing.T) {
	nodes := []NodeInfo{{Alias: "a"}, {Alias: "b"}}
	edges := []EdgeInfo{{Alias: "e1"}}

	// "a" has no tag and isn't already bound, so only the vid-list
	// finder accepts it: the chain must fall through index-lookup,
	// argument-passing, and tag-scan to reach it.
	chain := DefaultChain(nil, nil, map[string]string{"a": "$a_vids"})
	c, vidsVar, err := FindStart(chain, nodes, edges)
	if err != nil {
		t.Fatalf("FindStart: %v", err)
	}
	if c.NodeIndex != 0 || vidsVar != "$a_vids" {
		t.Fatalf("FindStart = %+v, %q, want node 0, $a_vids", c, vidsVar)
	}
}

func TestFindStartNoCandidate(t *testing.T) {
	nodes := []NodeInfo{{Alias: "a"}, {Alias: "b"}}
	edges := []EdgeInfo{{Alias: "e1"}}
	chain := DefaultChain(nil, nil, nil)
	if _, _, err := FindStart(chain, nodes, edges); err == nil {
		t.Fatalf("expected ErrNoStartVid")
	}
}

func TestSubgraphZeroSteps(t *testing.T) {
	arena := operator.NewArena()
	sp := Subgraph(arena, SubgraphSpec{SourceVidsVar: "$src", Steps: 0})
	if arena.Get(sp.Tail).Kind() != operator.KindGetVertices {
		t.Fatalf("zero-step subgraph tail = %s, want GetVertices", arena.Get(sp.Tail).Kind())
	}
	if arena.Get(sp.Root).Kind() != operator.KindAggregate {
		t.Fatalf("zero-step subgraph root = %s, want Aggregate", arena.Get(sp.Root).Kind())
	}
}

func TestSubgraphNSteps(t *testing.T) {
	arena := operator.NewArena()
	sp := Subgraph(arena, SubgraphSpec{SourceVidsVar: "$src", Steps: 2, EdgeTypes: []int32{1}})
	if arena.Get(sp.Root).Kind() != operator.KindDataCollect {
		t.Fatalf("N-step subgraph root = %s, want DataCollect", arena.Get(sp.Root).Kind())
	}
	loop := arena.Get(sp.Root).Inputs()[0]
	if arena.Get(loop).Kind() != operator.KindLoop {
		t.Fatalf("DataCollect input = %s, want Loop", arena.Get(loop).Kind())
	}
	if arena.Get(loop).(*operator.Loop).Steps != 2 {
		t.Fatalf("Loop.Steps = %d, want 2", arena.Get(loop).(*operator.Loop).Steps)
	}
}

func TestWithReturnAggregateThenProject(t *testing.T) {
	arena := operator.NewArena()
	scan := arena.Add(&operator.ScanVertex{})
	spec := ReturnSpec{
		GroupKeys:  []string{"name"},
		GroupItems: []operator.AggItem{{Func: "count", As: "n"}},
		Items:      []YieldItem{{Column: "name"}, {Column: "n"}},
		OrderBy:    []operator.SortColumn{{Name: "n", Desc: true}},
		HasLimit:   true,
		Limit:      10,
	}
	sp := WithReturn(arena, SubPlan{Tail: scan, Root: scan}, spec)
	root := arena.Get(sp.Root)
	if root.Kind() != operator.KindLimit {
		t.Fatalf("root = %s, want Limit", root.Kind())
	}
	sortID := root.Inputs()[0]
	if arena.Get(sortID).Kind() != operator.KindSort {
		t.Fatalf("Limit input = %s, want Sort", arena.Get(sortID).Kind())
	}
	projID := arena.Get(sortID).Inputs()[0]
	if arena.Get(projID).Kind() != operator.KindProject {
		t.Fatalf("Sort input = %s, want Project", arena.Get(projID).Kind())
	}
	aggID := arena.Get(projID).Inputs()[0]
	if arena.Get(aggID).Kind() != operator.KindAggregate {
		t.Fatalf("Project input = %s, want Aggregate", arena.Get(aggID).Kind())
	}
}

func TestEnsureStartNodeInsertsForBareSingleInput(t *testing.T) {
	arena := operator.NewArena()
	f := &operator.Filter{} // Input left zero: no natural upstream
	id := arena.Add(f)
	tail := EnsureStartNode(arena, id, []operator.Column{{Name: "x", Kind: operator.ColumnAny}})
	if arena.Get(tail).Kind() != operator.KindStartNode {
		t.Fatalf("EnsureStartNode tail = %s, want StartNode", arena.Get(tail).Kind())
	}
}

func TestRequireColumnsRejectsMissing(t *testing.T) {
	arena := operator.NewArena()
	scan := arena.Add(&operator.ScanVertex{})
	if err := requireColumns(arena, scan, operator.KindFilter, []string{"nope"}); err == nil {
		t.Fatalf("expected ErrMissingColumn")
	}
	if err := requireColumns(arena, scan, operator.KindFilter, []string{"vertex"}); err != nil {
		t.Fatalf("requireColumns: %v", err)
	}
}
