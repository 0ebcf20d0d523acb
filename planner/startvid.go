package planner

import (
	"github.com/graphkv/graphd/expression"
	"github.com/graphkv/graphd/planner/operator"
)

// NodeInfo describes one node (vertex pattern) in a match path: an
// optional alias, an optional tag filter, and an optional vertex
// filter expression (§4.6 match path planner).
type NodeInfo struct {
	Alias  string
	Tag    string
	Filter expression.Expr
}

// EdgeInfo describes one edge (relationship pattern) in a match path:
// an optional alias, the edge types it may traverse, its direction,
// an optional filter, and the hop-count range for variable-length
// patterns.
type EdgeInfo struct {
	Alias     string
	EdgeTypes []int32
	Direction operator.Direction
	Filter    expression.Expr
	Steps     operator.StepRange
}

// StartVidCandidate is one thing a StartVidFinder may bind to: the
// index of a NodeInfo or an EdgeInfo within a match path's alternating
// node/edge list (§4.6 "pick a start index: try each node and each
// edge...").
type StartVidCandidate struct {
	// NodeIndex is the index into the path's node list, or -1 if this
	// candidate is an edge.
	NodeIndex int
	// EdgeIndex is the index into the path's edge list, or -1 if this
	// candidate is a node.
	EdgeIndex int
}

// StartVidFinder is one strategy for resolving the initial vid set a
// match path expansion begins from (§4.6 "a registered StartVidFinder
// chain: index lookup, argument passing, tag-scan, vid-list").
// Find returns ok=false when this strategy does not apply to the
// candidate (e.g. no index covers the node's tag), in which case the
// chain tries the next strategy.
type StartVidFinder interface {
	Name() string
	Find(c StartVidCandidate, nodes []NodeInfo, edges []EdgeInfo) (vidsVar string, ok bool)
}

// IndexLookupFinder accepts a node candidate whose Filter can be
// served by a registered secondary index; IndexedTags names the tags
// this finder knows have a usable index.
type IndexLookupFinder struct {
	IndexedTags map[string]bool
}

func (f *IndexLookupFinder) Name() string { return "index-lookup" }

func (f *IndexLookupFinder) Find(c StartVidCandidate, nodes []NodeInfo, edges []EdgeInfo) (string, bool) {
	if c.NodeIndex < 0 || c.NodeIndex >= len(nodes) {
		return "", false
	}
	n := nodes[c.NodeIndex]
	if n.Filter == nil || n.Tag == "" || !f.IndexedTags[n.Tag] {
		return "", false
	}
	return "$__indexed_" + n.Alias, true
}

// ArgumentFinder accepts a node candidate whose alias is already bound
// in ctx as an argument passed into the query (e.g. a parameter or a
// column from an outer clause) — §4.6's "argument passing" strategy.
type ArgumentFinder struct {
	Bound map[string]bool
}

func (f *ArgumentFinder) Name() string { return "argument-passing" }

func (f *ArgumentFinder) Find(c StartVidCandidate, nodes []NodeInfo, edges []EdgeInfo) (string, bool) {
	if c.NodeIndex < 0 || c.NodeIndex >= len(nodes) {
		return "", false
	}
	n := nodes[c.NodeIndex]
	if n.Alias == "" || !f.Bound[n.Alias] {
		return "", false
	}
	return n.Alias, true
}

// TagScanFinder accepts any node candidate that names a tag, falling
// back to a full tag scan when no index or argument applies.
type TagScanFinder struct{}

func (f *TagScanFinder) Name() string { return "tag-scan" }

func (f *TagScanFinder) Find(c StartVidCandidate, nodes []NodeInfo, edges []EdgeInfo) (string, bool) {
	if c.NodeIndex < 0 || c.NodeIndex >= len(nodes) {
		return "", false
	}
	if nodes[c.NodeIndex].Tag == "" {
		return "", false
	}
	return "$__tagscan_" + nodes[c.NodeIndex].Alias, true
}

// VidListFinder is the last-resort strategy: a literal vid list or
// parameter, supplied out of band by VidListVars keyed by alias.
type VidListFinder struct {
	VidListVars map[string]string
}

func (f *VidListFinder) Name() string { return "vid-list" }

func (f *VidListFinder) Find(c StartVidCandidate, nodes []NodeInfo, edges []EdgeInfo) (string, bool) {
	if c.NodeIndex < 0 || c.NodeIndex >= len(nodes) {
		return "", false
	}
	v, ok := f.VidListVars[nodes[c.NodeIndex].Alias]
	return v, ok
}

// DefaultChain returns the standard StartVidFinder chain in the order
// §4.6 lists them: index lookup, argument passing, tag-scan, vid-list.
func DefaultChain(indexedTags map[string]bool, bound map[string]bool, vidLists map[string]string) []StartVidFinder {
	return []StartVidFinder{
		&IndexLookupFinder{IndexedTags: indexedTags},
		&ArgumentFinder{Bound: bound},
		&TagScanFinder{},
		&VidListFinder{VidListVars: vidLists},
	}
}

// ErrNoStartVid reports that no StartVidFinder in the chain accepted
// any node or edge of a match path.
type ErrNoStartVid struct{}

func (e *ErrNoStartVid) Error() string {
	return "planner: no StartVidFinder in the chain accepted any node or edge of this path"
}

// FindStart tries every node, then every edge, of a path against
// chain, in order, returning the first accepting (finder, candidate,
// vidsVar). Nodes are tried before edges, left to right, matching
// §4.6's "try each node and each edge... until one accepts."
func FindStart(chain []StartVidFinder, nodes []NodeInfo, edges []EdgeInfo) (StartVidCandidate, string, error) {
	for i := range nodes {
		c := StartVidCandidate{NodeIndex: i, EdgeIndex: -1}
		for _, finder := range chain {
			if v, ok := finder.Find(c, nodes, edges); ok {
				return c, v, nil
			}
		}
	}
	for i := range edges {
		c := StartVidCandidate{NodeIndex: -1, EdgeIndex: i}
		for _, finder := range chain {
			if v, ok := finder.Find(c, nodes, edges); ok {
				return c, v, nil
			}
		}
	}
	return StartVidCandidate{}, "", &ErrNoStartVid{}
}
