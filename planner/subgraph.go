package planner

import "github.com/graphkv/graphd/planner/operator"

// SubgraphSpec describes a GET SUBGRAPH request (§4.6 "Subgraph
// traversal planner. Input: a source vid set, a step count N, a set of
// edge types with directions, a with-properties flag").
type SubgraphSpec struct {
	SourceVidsVar string
	Steps         int
	EdgeTypes     []int32
	Direction     operator.Direction
	WithProps     bool
}

// Subgraph plans a GET SUBGRAPH clause. Steps==0 is the special case:
// "a GetVertices + aggregate on the initial set only", with no
// traversal at all. Steps>0 builds a Loop over GetNeighbors+Subgraph,
// where each iteration's Subgraph operator folds newly discovered
// vertices back into the variable the Loop reads and appends newly
// discovered edges to a holdover variable, and a final DataCollect
// merges every step's vertex/edge sets (§4.6).
func Subgraph(arena *operator.Arena, spec SubgraphSpec) SubPlan {
	if spec.Steps == 0 {
		gv := &operator.GetVertices{VidsVar: spec.SourceVidsVar, WithProps: spec.WithProps}
		gvID := arena.Add(gv)
		agg := &operator.Aggregate{
			Input:     gvID,
			GroupKeys: nil,
			GroupItems: []operator.AggItem{
				{Func: "collect", As: "vertices"},
			},
		}
		aggID := arena.Add(agg)
		return SubPlan{Tail: gvID, Root: aggID}
	}

	edgeHoldover := "$__subgraph_edges"
	vertexVar := spec.SourceVidsVar

	gn := &operator.GetNeighbors{VidsVar: vertexVar, EdgeTypes: spec.EdgeTypes, Direction: spec.Direction}
	gnID := arena.Add(gn)
	sg := &operator.Subgraph{
		Input:           gnID,
		Step:            1,
		WithProps:       spec.WithProps,
		VertexVar:       vertexVar,
		EdgeHoldoverVar: edgeHoldover,
	}
	sgID := arena.Add(sg)

	loop := &operator.Loop{Body: sgID, Steps: spec.Steps}
	loopID := arena.Add(loop)

	dc := &operator.DataCollect{Inputs_: []operator.ID{loopID}}
	dcID := arena.Add(dc)

	return SubPlan{Tail: gnID, Root: dcID}
}
