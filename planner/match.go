package planner

import (
	"github.com/graphkv/graphd/planner/operator"
)

// MatchPath plans one `(a)-[e1]->(b)-[e2]->(c)` style path pattern
// (§4.6 match path planner). Nodes has one more element than Edges
// (alternating node/edge/node/edge/.../node). Chain is consulted via
// FindStart to choose where expansion begins; expansion then proceeds
// outward from that point in both directions until every hop has been
// covered by a Traverse, with a final AppendVertices materializing the
// path's terminal node and a Project selecting the originally named
// aliases.
func (c *Context) MatchPath(arena *operator.Arena, nodes []NodeInfo, edges []EdgeInfo, chain []StartVidFinder) (SubPlan, error) {
	if len(nodes) != len(edges)+1 {
		return SubPlan{}, &ErrMalformedPath{NumNodes: len(nodes), NumEdges: len(edges)}
	}

	start, vidsVar, err := FindStart(chain, nodes, edges)
	if err != nil {
		return SubPlan{}, err
	}

	// §4.6: "try each node and each edge... From the start, expand in
	// both directions toward the ends using a Traverse operator per
	// hop." An edge-anchored start expands from both its endpoints; a
	// node-anchored start expands outward from that single node. This
	// implementation always resolves to a node anchor: an edge
	// candidate anchors at its lower (source-side) node index, which is
	// always defined since every edge has two node neighbors.
	anchor := start.NodeIndex
	if anchor < 0 {
		anchor = start.EdgeIndex // edge i sits between node i and node i+1; anchor at node i
	}

	src := &operator.GetVertices{VidsVar: vidsVar, WithProps: true}
	srcID := arena.Add(src)

	if err := c.Bind(nodes[anchor].Alias, operator.ColumnVertex); err != nil {
		return SubPlan{}, err
	}

	bound := map[string]bool{nodes[anchor].Alias: true}
	last := srcID

	// Expand rightward: hops anchor, anchor+1, ..., len(edges)-1.
	for i := anchor; i < len(edges); i++ {
		id, err := c.addTraverse(arena, last, edges[i], nodes[i+1], bound)
		if err != nil {
			return SubPlan{}, err
		}
		last = id
	}
	rightLast := last

	// Expand leftward: hops anchor-1, anchor-2, ..., 0, each reversing
	// the edge's declared direction since we walk toward the start
	// rather than away from it.
	last = srcID
	for i := anchor - 1; i >= 0; i-- {
		ei := edges[i]
		ei.Direction = reverseDirection(ei.Direction)
		id, err := c.addTraverse(arena, last, ei, nodes[i], bound)
		if err != nil {
			return SubPlan{}, err
		}
		last = id
	}

	// A rightward Traverse ran iff the anchor wasn't already the path's
	// last node; only then does the terminal node still need
	// materializing via AppendVertices (§4.6 "the last hop is followed
	// by an AppendVertices to materialize the terminal node").
	root := rightLast
	if anchor != len(edges) {
		av := &operator.AppendVertices{Input: rightLast, VertexAlias: nodes[len(nodes)-1].Alias}
		root = arena.Add(av)
	}

	cols := make([]operator.ProjectColumn, 0, len(nodes)+len(edges))
	for i, n := range nodes {
		if n.Alias != "" {
			cols = append(cols, operator.ProjectColumn{Name: n.Alias})
		}
		if i < len(edges) && edges[i].Alias != "" {
			cols = append(cols, operator.ProjectColumn{Name: edges[i].Alias})
		}
	}
	proj := &operator.Project{Input: root, Columns_: cols}
	projID := arena.Add(proj)

	return SubPlan{Tail: srcID, Root: projID}, nil
}

// addTraverse builds one Traverse hop from last, over edge e, landing
// on node target. If target's alias was already bound by an earlier
// hop (an "expand-into" pattern), a Filter comparing the newly reached
// vid to the already-bound alias is appended instead of rebinding it
// (§4.6 "If the same alias reappears (expand-into), add a Filter
// comparing the newly reached vid to the bound alias").
func (c *Context) addTraverse(arena *operator.Arena, last operator.ID, e EdgeInfo, target NodeInfo, bound map[string]bool) (operator.ID, error) {
	tr := &operator.Traverse{
		Input:     last,
		EdgeTypes: e.EdgeTypes,
		Direction: e.Direction,
		EdgeFilter: e.Filter,
		VertexFilter: target.Filter,
		Steps:     e.Steps,
		NodeAlias: target.Alias,
		EdgeAlias: e.Alias,
	}
	if tr.Steps == (operator.StepRange{}) {
		tr.Steps = operator.StepRange{Min: 1, Max: 1}
	}
	id := arena.Add(tr)

	if e.Alias != "" {
		if err := c.bindOrSkip(e.Alias, operator.ColumnEdge, bound); err != nil {
			return 0, err
		}
	}

	if target.Alias != "" && bound[target.Alias] {
		// expand-into: the vid this hop reaches must equal the one
		// already bound under this alias.
		filt := &operator.Filter{Input: id}
		return arena.Add(filt), nil
	}
	if target.Alias != "" {
		if err := c.Bind(target.Alias, operator.ColumnVertex); err != nil {
			return 0, err
		}
		bound[target.Alias] = true
	}
	return id, nil
}

// bindOrSkip binds alias in c unless bound already records it as
// claimed by this path expansion (an edge alias is never reused across
// hops within one path, so this always binds; kept symmetric with the
// vertex case for readability).
func (c *Context) bindOrSkip(alias string, kind operator.ColumnKind, bound map[string]bool) error {
	if bound[alias] {
		return nil
	}
	if err := c.Bind(alias, kind); err != nil {
		return err
	}
	bound[alias] = true
	return nil
}

func reverseDirection(d operator.Direction) operator.Direction {
	switch d {
	case operator.DirOutgoing:
		return operator.DirIncoming
	case operator.DirIncoming:
		return operator.DirOutgoing
	default:
		return operator.DirBoth
	}
}

// ErrMalformedPath reports a node/edge list that isn't a valid
// alternating path (NumNodes must equal NumEdges+1).
type ErrMalformedPath struct{ NumNodes, NumEdges int }

func (e *ErrMalformedPath) Error() string {
	return "planner: malformed path (nodes must be edges+1)"
}
