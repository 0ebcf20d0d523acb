package planner

import "github.com/graphkv/graphd/planner/operator"

// Unwind plans an UNWIND clause (§4.6 "Unwind planner. Emits Unwind,
// then for any patterns embedded in the unwound expression builds a
// nested Apply/RollUp subplan that collects pattern matches back into
// the driving row"). column is the already-column-reduced source list
// (per the validator, as in ReturnSpec); pattern, if non-zero, is a
// nested SubPlan (typically built via MatchPath) run once per unwound
// row via Apply, with its matches rolled back up under collectAlias.
func Unwind(arena *operator.Arena, input SubPlan, column, alias string, pattern *SubPlan, collectAlias string) SubPlan {
	uw := &operator.Unwind{Input: input.Root, Column: column, Alias: alias}
	root := arena.Add(uw)

	if pattern == nil {
		return SubPlan{Tail: input.Tail, Root: root}
	}

	ap := &operator.Apply{Input: root, Subplan: pattern.Tail}
	apID := arena.Add(ap)
	ru := &operator.RollUp{Input: apID, Subplan: pattern.Root, CollectAlias: collectAlias}
	ruID := arena.Add(ru)

	return SubPlan{Tail: input.Tail, Root: ruID}
}
