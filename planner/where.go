package planner

import (
	"github.com/graphkv/graphd/expression"
	"github.com/graphkv/graphd/planner/operator"
)

// Where plans a WHERE clause: a single Filter over input's output
// (§4.6 "Where planner. Emits a Filter; if the current column layout
// is order-sensitive, requests a stable filter"). stable should be set
// whenever a later clause (e.g. an unindexed ORDER BY that relies on
// input order, or a LIMIT without its own ORDER BY) depends on rows
// surviving the filter in their original relative order.
func Where(arena *operator.Arena, input SubPlan, pred expression.Expr, stable bool) SubPlan {
	f := &operator.Filter{Input: input.Root, Pred: pred, Stable: stable}
	id := arena.Add(f)
	return SubPlan{Tail: input.Tail, Root: id}
}
