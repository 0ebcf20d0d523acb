// Package planner's top-level entry point: a builder that composes
// per-clause SubPlans into one query plan, modeled on
// internal/planner/planner.go's New().WithQueries().WithModules().Plan()
// shape (§9 "Coroutine control flow" and "Mutual recursion between
// planner and validator" both assume the planner is handed an already
// schema-annotated clause list and never itself consults the schema).
package planner

import "github.com/graphkv/graphd/planner/operator"

// Clause is one already-annotated clause a Builder composes in order.
// Build receives the previous clause's SubPlan (zero-valued for the
// first clause) and the shared arena, and returns this clause's own
// SubPlan, connected to Prev's Root the way §4.6 describes ("clause
// planners compose by connecting the previous root to the next tail").
type Clause interface {
	Build(arena *operator.Arena, ctx *Context, prev SubPlan) (SubPlan, error)
}

// Builder accumulates Clauses and produces one connected Plan,
// mirroring the teacher's builder-of-accumulated-inputs-then-Plan()
// shape rather than a one-shot function, so a caller can inspect or
// extend the clause list before planning (as the teacher's Planner
// lets a caller add WithRewrittenVars after WithQueries).
type Builder struct {
	clauses []Clause
	ctx     *Context
	arena   *operator.Arena
}

// NewBuilder returns a Builder that will build into arena, tracking
// alias bindings in ctx.
func NewBuilder(arena *operator.Arena, ctx *Context) *Builder {
	return &Builder{arena: arena, ctx: ctx}
}

// WithClause appends one clause to the plan, in source order.
func (b *Builder) WithClause(c Clause) *Builder {
	b.clauses = append(b.clauses, c)
	return b
}

// Plan connects every registered clause in order, feeding each one's
// SubPlan.Root as the input to the next clause's Build call, and
// returns the overall SubPlan: the first clause's Tail (where a caller
// or an enclosing Apply feeds rows in) and the last clause's Root
// (where the final result rows come out).
func (b *Builder) Plan() (SubPlan, error) {
	var overall SubPlan
	var prev SubPlan
	for i, c := range b.clauses {
		sp, err := c.Build(b.arena, b.ctx, prev)
		if err != nil {
			return SubPlan{}, err
		}
		if i == 0 {
			overall.Tail = sp.Tail
		}
		overall.Root = sp.Root
		prev = sp
	}
	return overall, nil
}

// ClauseFunc adapts a plain function to the Clause interface, the way
// http.HandlerFunc adapts a function to http.Handler — used by callers
// that assemble one-off clauses inline rather than defining a named
// type per clause kind.
type ClauseFunc func(arena *operator.Arena, ctx *Context, prev SubPlan) (SubPlan, error)

// Build implements Clause.
func (f ClauseFunc) Build(arena *operator.Arena, ctx *Context, prev SubPlan) (SubPlan, error) {
	return f(arena, ctx, prev)
}
