// Package expression implements the immutable expression tree of
// spec.md §4.1: every node has a Kind, evaluates against an
// ExpressionContext, supports structural equality, deep clone, stable
// binary encoding for plan shipping, and visitor acceptance.
//
// The tree shape (tagged interface with one concrete struct per node
// kind, plus a Visitor that is handed each node and may return a new
// Visitor to descend with) is modeled directly on ast.Value/ast.Visitor
// and the Walk function in ast/visit.go.
package expression

import "github.com/graphkv/graphd/value"

// Kind discriminates the concrete node type, mirroring §4.1's list of
// expression subtrees.
type Kind uint8

const (
	KindConstant Kind = iota
	KindUnary
	KindBinaryArith
	KindRelational
	KindLogical
	KindTypeCast
	KindAttribute
	KindSubscript
	KindCase
	KindListLiteral
	KindMapLiteral
	KindSetLiteral
	KindListComprehension
	KindPredicate
	KindReduce
	KindFunctionCall
	KindAggregate
	KindVertexRef
	KindEdgeRef
	KindColumnRef
	KindInputProperty
	KindVariableProperty
	KindPathBuild
	KindMatchPathPattern
	KindUUID
	KindParameter
)

// UnaryOp enumerates §4.1's unary operators.
type UnaryOp uint8

const (
	UnaryNot UnaryOp = iota // "!" / "not"
	UnaryNeg                // "-"
	UnaryIsNull
)

// ArithOp enumerates the binary arithmetic operators.
type ArithOp uint8

const (
	ArithAdd ArithOp = iota
	ArithSub
	ArithMul
	ArithDiv
	ArithMod
)

// RelOp enumerates the relational operators.
type RelOp uint8

const (
	RelEQ RelOp = iota
	RelNE
	RelLT
	RelLE
	RelGT
	RelGE
	RelIn
	RelContains
	RelStartsWith
)

// LogicalOp enumerates the logical connectives.
type LogicalOp uint8

const (
	LogicalAnd LogicalOp = iota
	LogicalOr
	LogicalXor
)

// PredicateKind enumerates the list-predicate forms.
type PredicateKind uint8

const (
	PredicateAll PredicateKind = iota
	PredicateAny
	PredicateNone
	PredicateSingle
)

// ExpressionContext is the row/state provider evaluation reads from
// (§4.1): the current input row by column index, the current vertex or
// edge, a named variable, a query parameter, a session variable.
type ExpressionContext interface {
	GetColumn(idx int) value.Value
	GetVertex() value.Value
	GetEdge() value.Value
	GetVar(name string) (value.Value, bool)
	GetParameter(name string) (value.Value, bool)
	GetSessionVar(name string) (value.Value, bool)
}

// Expr is the interface every expression tree node implements.
type Expr interface {
	Kind() Kind
	Eval(ctx ExpressionContext) value.Value
	String() string
	Equal(other Expr) bool
	Clone() Expr
	Accept(v Visitor)
}

// Visitor is handed each node during Walk. Returning nil stops descent
// into that node's children; returning a (possibly different) Visitor
// continues with it, mirroring ast.Visitor.Visit in ast/visit.go.
type Visitor interface {
	Visit(e Expr) (w Visitor)
}

// Walk traverses the expression tree rooted at e, calling v.Visit on
// every node reached.
func Walk(v Visitor, e Expr) {
	if e == nil {
		return
	}
	w := v.Visit(e)
	if w == nil {
		return
	}
	for _, child := range children(e) {
		Walk(w, child)
	}
}

// children returns e's immediate subexpressions for traversal purposes.
func children(e Expr) []Expr {
	switch n := e.(type) {
	case *Unary:
		return []Expr{n.Operand}
	case *BinaryArith:
		return []Expr{n.Left, n.Right}
	case *Relational:
		return []Expr{n.Left, n.Right}
	case *Logical:
		return n.Operands
	case *TypeCast:
		return []Expr{n.Operand}
	case *Attribute:
		return []Expr{n.Base}
	case *Subscript:
		return []Expr{n.Base, n.Index}
	case *Case:
		out := make([]Expr, 0, len(n.Whens)*2+2)
		if n.Condition != nil {
			out = append(out, n.Condition)
		}
		for _, w := range n.Whens {
			out = append(out, w.When, w.Then)
		}
		if n.Else != nil {
			out = append(out, n.Else)
		}
		return out
	case *ListLiteral:
		return n.Items
	case *MapLiteral:
		out := make([]Expr, 0, len(n.Entries))
		for _, e := range n.Entries {
			out = append(out, e.Value)
		}
		return out
	case *SetLiteral:
		return n.Items
	case *ListComprehension:
		out := []Expr{n.Source}
		if n.Filter != nil {
			out = append(out, n.Filter)
		}
		out = append(out, n.Map)
		return out
	case *Predicate:
		out := []Expr{n.Source}
		if n.Test != nil {
			out = append(out, n.Test)
		}
		return out
	case *Reduce:
		return []Expr{n.Source, n.Init, n.Accumulate}
	case *FunctionCall:
		return n.Args
	case *Aggregate:
		if n.Arg != nil {
			return []Expr{n.Arg}
		}
		return nil
	case *PathBuild:
		return append([]Expr{n.Src}, n.Steps...)
	default:
		return nil
	}
}
