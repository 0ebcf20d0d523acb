package planner

import "github.com/graphkv/graphd/planner/operator"

// YieldItem is one projected expression of a WITH/RETURN clause: an
// input column name (the expression has already been reduced to a
// column reference by the validator per §9 "mutual recursion between
// planner and validator... planner reads only the annotated AST") and
// an optional alias.
type YieldItem struct {
	Column string
	As     string
}

// ReturnSpec bundles everything a WITH/RETURN clause may carry, in the
// order §4.6 lists ("Project + optional order-by + optional skip/limit
// + optional where + optional distinct").
type ReturnSpec struct {
	Items      []YieldItem
	GroupKeys  []string         // non-empty => this clause aggregates
	GroupItems []operator.AggItem
	Distinct   bool
	OrderBy    []operator.SortColumn
	Skip       int64
	Limit      int64
	HasLimit   bool
}

// WithReturn plans a single WITH or RETURN clause (§4.6 "With/Return
// planners. Project + optional order-by + optional skip/limit +
// optional where + optional distinct (dedup). When aggregation is
// detected, emits Aggregate with group keys and group items, optionally
// followed by Project"). The caller is responsible for having already
// emitted any WHERE's Filter into input before calling WithReturn,
// matching §4.6's "this clause's own where" ordering.
func WithReturn(arena *operator.Arena, input SubPlan, spec ReturnSpec) SubPlan {
	root := input.Root

	if len(spec.GroupKeys) > 0 || len(spec.GroupItems) > 0 {
		agg := &operator.Aggregate{Input: root, GroupKeys: spec.GroupKeys, GroupItems: spec.GroupItems}
		root = arena.Add(agg)
		if len(spec.Items) > 0 {
			root = arena.Add(projectFrom(root, spec.Items))
		}
	} else if len(spec.Items) > 0 {
		root = arena.Add(projectFrom(root, spec.Items))
	}

	if spec.Distinct {
		cols := make([]string, 0, len(spec.Items))
		for _, it := range spec.Items {
			name := it.Column
			if it.As != "" {
				name = it.As
			}
			cols = append(cols, name)
		}
		root = arena.Add(&operator.Dedup{Input: root, Columns_: cols})
	}

	if len(spec.OrderBy) > 0 {
		root = arena.Add(&operator.Sort{Input: root, Columns_: spec.OrderBy})
	}

	if spec.Skip > 0 || spec.HasLimit {
		count := spec.Limit
		if !spec.HasLimit {
			count = -1 // no cap, skip only
		}
		root = arena.Add(&operator.Limit{Input: root, Offset: spec.Skip, Count: count})
	}

	return SubPlan{Tail: input.Tail, Root: root}
}

func projectFrom(input operator.ID, items []YieldItem) *operator.Project {
	cols := make([]operator.ProjectColumn, len(items))
	for i, it := range items {
		cols[i] = operator.ProjectColumn{Name: it.Column, As: it.As}
	}
	return &operator.Project{Input: input, Columns_: cols}
}
