package planner

import "github.com/graphkv/graphd/planner/operator"

// OrderBy plans an ORDER BY clause, with pre-indexed column positions
// already resolved into cols by the validator (§4.6 "Order-by...
// planners. Emit Sort... with pre-indexed column positions").
func OrderBy(arena *operator.Arena, input SubPlan, cols []operator.SortColumn) SubPlan {
	id := arena.Add(&operator.Sort{Input: input.Root, Columns_: cols})
	return SubPlan{Tail: input.Tail, Root: id}
}

// Pagination plans a SKIP/LIMIT clause independent of any RETURN's own
// skip/limit fields (§4.6 "Pagination... planners. Emit... Limit...").
func Pagination(arena *operator.Arena, input SubPlan, skip, limit int64) SubPlan {
	id := arena.Add(&operator.Limit{Input: input.Root, Offset: skip, Count: limit})
	return SubPlan{Tail: input.Tail, Root: id}
}

// Sampling plans a SAMPLE clause (§4.6 "...Sampling planners. Emit...
// Sampling respectively").
func Sampling(arena *operator.Arena, input SubPlan, count int64) SubPlan {
	id := arena.Add(&operator.Sampling{Input: input.Root, Count: count})
	return SubPlan{Tail: input.Tail, Root: id}
}
