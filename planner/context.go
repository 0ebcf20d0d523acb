// Package planner implements the clause planners of spec.md §4.6,
// composing operator.Node values into a physical plan. It is modeled
// on internal/planner/planner.go's builder shape (New().WithX()...Plan())
// and its variable-allocation discipline (a varstack of in-scope names,
// here an append-only AliasScope instead, since spec.md forbids
// shadowing rather than allowing the rewrite-on-shadow internal/planner
// uses for Rego locals).
package planner

import "github.com/graphkv/graphd/planner/operator"

// Context is the single QueryContext-owned symbol table every clause
// planner reads and writes (§9 "variable lookup goes through a single
// QueryContext-owned symbol table"). Alias binding is append-only:
// once bound, an alias may be read by later clauses but never rebound
// (§4.6 planner invariant "shadowing is rejected at validation").
type Context struct {
	arena   *operator.Arena
	aliases map[string]operator.ColumnKind
	order   []string
}

// NewContext returns a Context backed by arena. Every operator a clause
// planner builds during this query is added to arena.
func NewContext(arena *operator.Arena) *Context {
	return &Context{arena: arena, aliases: map[string]operator.ColumnKind{}}
}

// Arena returns the operator arena this context builds into.
func (c *Context) Arena() *operator.Arena { return c.arena }

// ErrShadowed reports an attempt to rebind an already-bound alias.
type ErrShadowed struct{ Alias string }

func (e *ErrShadowed) Error() string { return "planner: alias " + e.Alias + " already bound" }

// Bind records alias as bound to kind, the first time any clause
// introduces it. A second Bind of the same alias is rejected.
func (c *Context) Bind(alias string, kind operator.ColumnKind) error {
	if alias == "" {
		return nil // anonymous bindings (e.g. "_") never occupy scope
	}
	if _, ok := c.aliases[alias]; ok {
		return &ErrShadowed{Alias: alias}
	}
	c.aliases[alias] = kind
	c.order = append(c.order, alias)
	return nil
}

// Lookup reports whether alias is bound, and its column kind if so.
func (c *Context) Lookup(alias string) (operator.ColumnKind, bool) {
	k, ok := c.aliases[alias]
	return k, ok
}

// Aliases returns every bound alias, in binding order.
func (c *Context) Aliases() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// SubPlan is the unit clause planners compose: Tail is the operator a
// caller should feed input into (for a subplan with no external input
// need, Tail == Root), Root is the operator to read output from (§4.6
// "produces a SubPlan: a tail operator to feed input into, and a root
// operator to read output from").
type SubPlan struct {
	Tail operator.ID
	Root operator.ID
}

// columnSet collects the output column names id's Node declares.
func columnSet(arena *operator.Arena, id operator.ID) map[string]struct{} {
	set := map[string]struct{}{}
	if n := arena.Get(id); n != nil {
		for _, col := range n.Columns() {
			set[col.Name] = struct{}{}
		}
	}
	return set
}

// ErrMissingColumn reports a downstream operator requiring a column an
// upstream operator's declared output does not provide.
type ErrMissingColumn struct {
	Operator operator.Kind
	Column   string
}

func (e *ErrMissingColumn) Error() string {
	return "planner: " + e.Operator.String() + " requires column " + e.Column + " not produced upstream"
}

// requireColumns validates that every name in required is present in
// upstream's declared output columns (§4.6 planner invariant:
// "connecting two operators validates that the downstream's required
// inputs are a subset of the upstream's outputs"). A passthrough
// operator (one whose own Columns() is empty, meaning "same as input")
// is treated as satisfying anything its own upstream satisfies, so this
// walks back through passthrough nodes before failing.
func requireColumns(arena *operator.Arena, upstream operator.ID, self operator.Kind, required []string) error {
	avail := map[string]struct{}{}
	id := upstream
	for id != 0 {
		n := arena.Get(id)
		if n == nil {
			break
		}
		for _, col := range n.Columns() {
			avail[col.Name] = struct{}{}
		}
		if len(n.Columns()) > 0 {
			break // a non-passthrough operator's declared output is authoritative
		}
		ins := n.Inputs()
		if len(ins) == 0 {
			break
		}
		id = ins[0]
	}
	for _, c := range required {
		if _, ok := avail[c]; !ok {
			return &ErrMissingColumn{Operator: self, Column: c}
		}
	}
	return nil
}

// needsStartNode reports whether n, as built, has no natural upstream
// but declares SingleInput() true — the case the connector must plug a
// StartNode into (§4.6 planner invariant).
func needsStartNode(n operator.Node) bool {
	if !n.SingleInput() {
		return false
	}
	for _, in := range n.Inputs() {
		if in != 0 {
			return false
		}
	}
	return true
}

// EnsureStartNode adds a StartNode to the arena if id's operator
// declares SingleInput() true but was built with no upstream, and
// returns that StartNode's ID (or id itself when none is needed) as
// the tail to use as this subplan's Tail. It does not set id's input
// field, so id stays unconnected to the StartNode.
func EnsureStartNode(arena *operator.Arena, id operator.ID, cols []operator.Column) operator.ID {
	n := arena.Get(id)
	if n == nil || !needsStartNode(n) {
		return id
	}
	sn := &operator.StartNode{Columns_: cols}
	return arena.Add(sn)
}
