package expression

import (
	"fmt"
	"strings"

	"github.com/graphkv/graphd/value"
)

// Constant wraps a literal Value.
type Constant struct {
	Val value.Value
}

func (n *Constant) Kind() Kind                       { return KindConstant }
func (n *Constant) Eval(ExpressionContext) value.Value { return n.Val }
func (n *Constant) String() string                   { return n.Val.String() }
func (n *Constant) Equal(o Expr) bool {
	t, ok := o.(*Constant)
	return ok && value.Equal(n.Val, t.Val)
}
func (n *Constant) Clone() Expr          { return &Constant{Val: value.Clone(n.Val)} }
func (n *Constant) Accept(v Visitor)     { Walk(v, n) }

// Unary is "!", "-", "isnull".
type Unary struct {
	Op      UnaryOp
	Operand Expr
}

func (n *Unary) Kind() Kind { return KindUnary }
func (n *Unary) Eval(ctx ExpressionContext) value.Value {
	operand := n.Operand.Eval(ctx)
	switch n.Op {
	case UnaryNot:
		return value.Not(operand)
	case UnaryNeg:
		return value.Neg(operand)
	case UnaryIsNull:
		return value.Bool(operand.IsNull())
	default:
		return value.Null(value.NullBadType)
	}
}
func (n *Unary) String() string {
	ops := map[UnaryOp]string{UnaryNot: "!", UnaryNeg: "-", UnaryIsNull: "isnull"}
	return fmt.Sprintf("%s(%s)", ops[n.Op], n.Operand.String())
}
func (n *Unary) Equal(o Expr) bool {
	t, ok := o.(*Unary)
	return ok && n.Op == t.Op && n.Operand.Equal(t.Operand)
}
func (n *Unary) Clone() Expr      { return &Unary{Op: n.Op, Operand: n.Operand.Clone()} }
func (n *Unary) Accept(v Visitor) { Walk(v, n) }

// BinaryArith is "+ - * / %".
type BinaryArith struct {
	Op          ArithOp
	Left, Right Expr
}

func (n *BinaryArith) Kind() Kind { return KindBinaryArith }
func (n *BinaryArith) Eval(ctx ExpressionContext) value.Value {
	l, r := n.Left.Eval(ctx), n.Right.Eval(ctx)
	switch n.Op {
	case ArithAdd:
		return value.Add(l, r)
	case ArithSub:
		return value.Sub(l, r)
	case ArithMul:
		return value.Mul(l, r)
	case ArithDiv:
		return value.Div(l, r)
	case ArithMod:
		return value.Mod(l, r)
	default:
		return value.Null(value.NullBadType)
	}
}
func (n *BinaryArith) String() string {
	ops := map[ArithOp]string{ArithAdd: "+", ArithSub: "-", ArithMul: "*", ArithDiv: "/", ArithMod: "%"}
	return fmt.Sprintf("(%s %s %s)", n.Left.String(), ops[n.Op], n.Right.String())
}
func (n *BinaryArith) Equal(o Expr) bool {
	t, ok := o.(*BinaryArith)
	return ok && n.Op == t.Op && n.Left.Equal(t.Left) && n.Right.Equal(t.Right)
}
func (n *BinaryArith) Clone() Expr {
	return &BinaryArith{Op: n.Op, Left: n.Left.Clone(), Right: n.Right.Clone()}
}
func (n *BinaryArith) Accept(v Visitor) { Walk(v, n) }

// Relational is "= != < <= > >= in contains starts-with".
type Relational struct {
	Op          RelOp
	Left, Right Expr
}

func (n *Relational) Kind() Kind { return KindRelational }
func (n *Relational) Eval(ctx ExpressionContext) value.Value {
	l, r := n.Left.Eval(ctx), n.Right.Eval(ctx)
	if l.IsNull() {
		return l
	}
	if r.IsNull() {
		return r
	}
	switch n.Op {
	case RelEQ:
		return value.Bool(value.Equal(l, r))
	case RelNE:
		return value.Bool(!value.Equal(l, r))
	case RelLT, RelLE, RelGT, RelGE:
		cmp, ok := value.Compare(l, r)
		if !ok {
			return value.Null(value.NullBadType)
		}
		switch n.Op {
		case RelLT:
			return value.Bool(cmp < 0)
		case RelLE:
			return value.Bool(cmp <= 0)
		case RelGT:
			return value.Bool(cmp > 0)
		default:
			return value.Bool(cmp >= 0)
		}
	case RelIn:
		return evalContainsMembership(r, l)
	case RelContains:
		return evalContainsMembership(l, r)
	case RelStartsWith:
		ls, ok1 := l.AsString()
		rs, ok2 := r.AsString()
		if !ok1 || !ok2 {
			return value.Null(value.NullBadType)
		}
		return value.Bool(strings.HasPrefix(ls, rs))
	default:
		return value.Null(value.NullBadType)
	}
}

func evalContainsMembership(container, elem value.Value) value.Value {
	switch container.Kind() {
	case value.KindList:
		items, _ := container.AsList()
		for _, it := range items {
			if value.Equal(it, elem) {
				return value.Bool(true)
			}
		}
		return value.Bool(false)
	case value.KindSet:
		items, _ := container.AsSet()
		for _, it := range items {
			if value.Equal(it, elem) {
				return value.Bool(true)
			}
		}
		return value.Bool(false)
	case value.KindString:
		cs, _ := container.AsString()
		es, ok := elem.AsString()
		if !ok {
			return value.Null(value.NullBadType)
		}
		return value.Bool(strings.Contains(cs, es))
	default:
		return value.Null(value.NullBadType)
	}
}

func (n *Relational) String() string {
	ops := map[RelOp]string{RelEQ: "=", RelNE: "!=", RelLT: "<", RelLE: "<=", RelGT: ">", RelGE: ">=", RelIn: "in", RelContains: "contains", RelStartsWith: "starts with"}
	return fmt.Sprintf("(%s %s %s)", n.Left.String(), ops[n.Op], n.Right.String())
}
func (n *Relational) Equal(o Expr) bool {
	t, ok := o.(*Relational)
	return ok && n.Op == t.Op && n.Left.Equal(t.Left) && n.Right.Equal(t.Right)
}
func (n *Relational) Clone() Expr {
	return &Relational{Op: n.Op, Left: n.Left.Clone(), Right: n.Right.Clone()}
}
func (n *Relational) Accept(v Visitor) { Walk(v, n) }

// Logical is "and or xor" over N operands.
type Logical struct {
	Op       LogicalOp
	Operands []Expr
}

func (n *Logical) Kind() Kind { return KindLogical }
func (n *Logical) Eval(ctx ExpressionContext) value.Value {
	if len(n.Operands) == 0 {
		return value.Null(value.NullBadData)
	}
	switch n.Op {
	case LogicalAnd:
		acc := value.Bool(true)
		for _, op := range n.Operands {
			v := op.Eval(ctx)
			if v.IsNull() {
				return v
			}
			b, ok := v.AsBool()
			if !ok {
				return value.Null(value.NullBadType)
			}
			if !b {
				return value.Bool(false)
			}
			acc = v
		}
		return acc
	case LogicalOr:
		for _, op := range n.Operands {
			v := op.Eval(ctx)
			if v.IsNull() {
				continue
			}
			b, ok := v.AsBool()
			if !ok {
				return value.Null(value.NullBadType)
			}
			if b {
				return value.Bool(true)
			}
		}
		return value.Bool(false)
	case LogicalXor:
		result := false
		for _, op := range n.Operands {
			v := op.Eval(ctx)
			b, ok := v.AsBool()
			if !ok {
				return value.Null(value.NullBadType)
			}
			result = result != b
		}
		return value.Bool(result)
	default:
		return value.Null(value.NullBadType)
	}
}
func (n *Logical) String() string {
	ops := map[LogicalOp]string{LogicalAnd: "and", LogicalOr: "or", LogicalXor: "xor"}
	parts := make([]string, len(n.Operands))
	for i, op := range n.Operands {
		parts[i] = op.String()
	}
	return "(" + strings.Join(parts, " "+ops[n.Op]+" ") + ")"
}
func (n *Logical) Equal(o Expr) bool {
	t, ok := o.(*Logical)
	if !ok || n.Op != t.Op || len(n.Operands) != len(t.Operands) {
		return false
	}
	for i := range n.Operands {
		if !n.Operands[i].Equal(t.Operands[i]) {
			return false
		}
	}
	return true
}
func (n *Logical) Clone() Expr {
	ops := make([]Expr, len(n.Operands))
	for i, op := range n.Operands {
		ops[i] = op.Clone()
	}
	return &Logical{Op: n.Op, Operands: ops}
}
func (n *Logical) Accept(v Visitor) { Walk(v, n) }

// TypeCast casts Operand to TargetKind.
type TypeCast struct {
	TargetKind value.Kind
	Operand    Expr
}

func (n *TypeCast) Kind() Kind { return KindTypeCast }
func (n *TypeCast) Eval(ctx ExpressionContext) value.Value {
	v := n.Operand.Eval(ctx)
	if v.IsNull() {
		return v
	}
	return castTo(v, n.TargetKind)
}

func castTo(v value.Value, target value.Kind) value.Value {
	if v.Kind() == target {
		return v
	}
	switch target {
	case value.KindInt:
		switch v.Kind() {
		case value.KindFloat:
			f, _ := v.AsFloat()
			return value.Int(int64(f))
		case value.KindBool:
			b, _ := v.AsBool()
			if b {
				return value.Int(1)
			}
			return value.Int(0)
		}
	case value.KindFloat:
		if i, ok := v.AsInt(); ok {
			return value.Float(float64(i))
		}
	case value.KindString:
		return value.String(v.String())
	case value.KindBool:
		return value.Bool(v.Truthy())
	}
	return value.Null(value.NullBadType)
}

func (n *TypeCast) String() string { return fmt.Sprintf("cast<%s>(%s)", n.TargetKind, n.Operand.String()) }
func (n *TypeCast) Equal(o Expr) bool {
	t, ok := o.(*TypeCast)
	return ok && n.TargetKind == t.TargetKind && n.Operand.Equal(t.Operand)
}
func (n *TypeCast) Clone() Expr      { return &TypeCast{TargetKind: n.TargetKind, Operand: n.Operand.Clone()} }
func (n *TypeCast) Accept(v Visitor) { Walk(v, n) }

// Attribute is "e.prop" / "v.tag.prop".
type Attribute struct {
	Base Expr
	Tag  string // empty for e.prop; set for v.tag.prop
	Prop string
}

func (n *Attribute) Kind() Kind { return KindAttribute }
func (n *Attribute) Eval(ctx ExpressionContext) value.Value {
	base := n.Base.Eval(ctx)
	switch base.Kind() {
	case value.KindVertex:
		vtx, _ := base.AsVertex()
		for _, tag := range vtx.Tags {
			if n.Tag != "" && fmt.Sprintf("%d", tag.TagID) != n.Tag {
				continue
			}
			if p, ok := tag.Props[n.Prop]; ok {
				return p
			}
		}
		return value.Null(value.NullUnknownProp)
	case value.KindEdge:
		edge, _ := base.AsEdge()
		if p, ok := edge.Props[n.Prop]; ok {
			return p
		}
		return value.Null(value.NullUnknownProp)
	case value.KindMap:
		m, _ := base.AsMap()
		if p, ok := m[n.Prop]; ok {
			return p
		}
		return value.Null(value.NullUnknownProp)
	default:
		return value.Null(value.NullBadType)
	}
}
func (n *Attribute) String() string {
	if n.Tag != "" {
		return fmt.Sprintf("%s.%s.%s", n.Base.String(), n.Tag, n.Prop)
	}
	return fmt.Sprintf("%s.%s", n.Base.String(), n.Prop)
}
func (n *Attribute) Equal(o Expr) bool {
	t, ok := o.(*Attribute)
	return ok && n.Tag == t.Tag && n.Prop == t.Prop && n.Base.Equal(t.Base)
}
func (n *Attribute) Clone() Expr      { return &Attribute{Base: n.Base.Clone(), Tag: n.Tag, Prop: n.Prop} }
func (n *Attribute) Accept(v Visitor) { Walk(v, n) }

// Subscript is "base[index]" over list/map.
type Subscript struct {
	Base, Index Expr
}

func (n *Subscript) Kind() Kind { return KindSubscript }
func (n *Subscript) Eval(ctx ExpressionContext) value.Value {
	base := n.Base.Eval(ctx)
	idx := n.Index.Eval(ctx)
	switch base.Kind() {
	case value.KindList:
		items, _ := base.AsList()
		i, ok := idx.AsInt()
		if !ok || i < 0 || int(i) >= len(items) {
			return value.Null(value.NullOutOfRange)
		}
		return items[i]
	case value.KindMap:
		m, _ := base.AsMap()
		key, ok := idx.AsString()
		if !ok {
			return value.Null(value.NullBadType)
		}
		if v, ok := m[key]; ok {
			return v
		}
		return value.Null(value.NullUnknownProp)
	default:
		return value.Null(value.NullBadType)
	}
}
func (n *Subscript) String() string { return fmt.Sprintf("%s[%s]", n.Base.String(), n.Index.String()) }
func (n *Subscript) Equal(o Expr) bool {
	t, ok := o.(*Subscript)
	return ok && n.Base.Equal(t.Base) && n.Index.Equal(t.Index)
}
func (n *Subscript) Clone() Expr      { return &Subscript{Base: n.Base.Clone(), Index: n.Index.Clone()} }
func (n *Subscript) Accept(v Visitor) { Walk(v, n) }

// WhenThen is one branch of a Case expression.
type WhenThen struct{ When, Then Expr }

// Case implements a generic/simple CASE expression: an optional
// Condition (simple-case form) matched against each When, or no
// Condition (searched-case form) where each When must itself evaluate
// truthy.
type Case struct {
	Condition Expr
	Whens     []WhenThen
	Else      Expr
}

func (n *Case) Kind() Kind { return KindCase }
func (n *Case) Eval(ctx ExpressionContext) value.Value {
	var cond value.Value
	if n.Condition != nil {
		cond = n.Condition.Eval(ctx)
	}
	for _, w := range n.Whens {
		wv := w.When.Eval(ctx)
		var matched bool
		if n.Condition != nil {
			matched = value.Equal(cond, wv)
		} else {
			matched = wv.Truthy()
		}
		if matched {
			return w.Then.Eval(ctx)
		}
	}
	if n.Else != nil {
		return n.Else.Eval(ctx)
	}
	return value.Null(value.NullDefault)
}
func (n *Case) String() string {
	var b strings.Builder
	b.WriteString("case ")
	for _, w := range n.Whens {
		fmt.Fprintf(&b, "when %s then %s ", w.When.String(), w.Then.String())
	}
	if n.Else != nil {
		fmt.Fprintf(&b, "else %s ", n.Else.String())
	}
	b.WriteString("end")
	return b.String()
}
func (n *Case) Equal(o Expr) bool {
	t, ok := o.(*Case)
	if !ok || len(n.Whens) != len(t.Whens) {
		return false
	}
	if (n.Condition == nil) != (t.Condition == nil) {
		return false
	}
	if n.Condition != nil && !n.Condition.Equal(t.Condition) {
		return false
	}
	if (n.Else == nil) != (t.Else == nil) {
		return false
	}
	if n.Else != nil && !n.Else.Equal(t.Else) {
		return false
	}
	for i := range n.Whens {
		if !n.Whens[i].When.Equal(t.Whens[i].When) || !n.Whens[i].Then.Equal(t.Whens[i].Then) {
			return false
		}
	}
	return true
}
func (n *Case) Clone() Expr {
	nc := &Case{}
	if n.Condition != nil {
		nc.Condition = n.Condition.Clone()
	}
	if n.Else != nil {
		nc.Else = n.Else.Clone()
	}
	nc.Whens = make([]WhenThen, len(n.Whens))
	for i, w := range n.Whens {
		nc.Whens[i] = WhenThen{When: w.When.Clone(), Then: w.Then.Clone()}
	}
	return nc
}
func (n *Case) Accept(v Visitor) { Walk(v, n) }

// ListLiteral is "[e1, e2, ...]".
type ListLiteral struct{ Items []Expr }

func (n *ListLiteral) Kind() Kind { return KindListLiteral }
func (n *ListLiteral) Eval(ctx ExpressionContext) value.Value {
	out := make([]value.Value, len(n.Items))
	for i, it := range n.Items {
		out[i] = it.Eval(ctx)
	}
	return value.List(out)
}
func (n *ListLiteral) String() string {
	parts := make([]string, len(n.Items))
	for i, it := range n.Items {
		parts[i] = it.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
func (n *ListLiteral) Equal(o Expr) bool {
	t, ok := o.(*ListLiteral)
	if !ok || len(n.Items) != len(t.Items) {
		return false
	}
	for i := range n.Items {
		if !n.Items[i].Equal(t.Items[i]) {
			return false
		}
	}
	return true
}
func (n *ListLiteral) Clone() Expr {
	items := make([]Expr, len(n.Items))
	for i, it := range n.Items {
		items[i] = it.Clone()
	}
	return &ListLiteral{Items: items}
}
func (n *ListLiteral) Accept(v Visitor) { Walk(v, n) }

// SetLiteral is "{e1, e2, ...}".
type SetLiteral struct{ Items []Expr }

func (n *SetLiteral) Kind() Kind { return KindSetLiteral }
func (n *SetLiteral) Eval(ctx ExpressionContext) value.Value {
	out := make([]value.Value, len(n.Items))
	for i, it := range n.Items {
		out[i] = it.Eval(ctx)
	}
	return value.Set(out)
}
func (n *SetLiteral) String() string {
	parts := make([]string, len(n.Items))
	for i, it := range n.Items {
		parts[i] = it.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
func (n *SetLiteral) Equal(o Expr) bool {
	t, ok := o.(*SetLiteral)
	if !ok || len(n.Items) != len(t.Items) {
		return false
	}
	for i := range n.Items {
		if !n.Items[i].Equal(t.Items[i]) {
			return false
		}
	}
	return true
}
func (n *SetLiteral) Clone() Expr {
	items := make([]Expr, len(n.Items))
	for i, it := range n.Items {
		items[i] = it.Clone()
	}
	return &SetLiteral{Items: items}
}
func (n *SetLiteral) Accept(v Visitor) { Walk(v, n) }

// MapEntry is one key/value pair of a MapLiteral.
type MapEntry struct {
	Key   string
	Value Expr
}

// MapLiteral is "{k1: e1, k2: e2, ...}".
type MapLiteral struct{ Entries []MapEntry }

func (n *MapLiteral) Kind() Kind { return KindMapLiteral }
func (n *MapLiteral) Eval(ctx ExpressionContext) value.Value {
	m := make(map[string]value.Value, len(n.Entries))
	for _, e := range n.Entries {
		m[e.Key] = e.Value.Eval(ctx)
	}
	return value.Map(m)
}
func (n *MapLiteral) String() string {
	parts := make([]string, len(n.Entries))
	for i, e := range n.Entries {
		parts[i] = fmt.Sprintf("%s: %s", e.Key, e.Value.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
func (n *MapLiteral) Equal(o Expr) bool {
	t, ok := o.(*MapLiteral)
	if !ok || len(n.Entries) != len(t.Entries) {
		return false
	}
	for i := range n.Entries {
		if n.Entries[i].Key != t.Entries[i].Key || !n.Entries[i].Value.Equal(t.Entries[i].Value) {
			return false
		}
	}
	return true
}
func (n *MapLiteral) Clone() Expr {
	entries := make([]MapEntry, len(n.Entries))
	for i, e := range n.Entries {
		entries[i] = MapEntry{Key: e.Key, Value: e.Value.Clone()}
	}
	return &MapLiteral{Entries: entries}
}
func (n *MapLiteral) Accept(v Visitor) { Walk(v, n) }

// ListComprehension is "[Map(x) for x in Source if Filter]".
type ListComprehension struct {
	VarName string
	Source  Expr
	Filter  Expr // may be nil
	Map     Expr
}

func (n *ListComprehension) Kind() Kind { return KindListComprehension }
func (n *ListComprehension) Eval(ctx ExpressionContext) value.Value {
	src := n.Source.Eval(ctx)
	items, ok := src.AsList()
	if !ok {
		if s, ok2 := src.AsSet(); ok2 {
			items = s
		} else {
			return value.Null(value.NullBadType)
		}
	}
	out := make([]value.Value, 0, len(items))
	for _, item := range items {
		sub := &varOverlayContext{ExpressionContext: ctx, name: n.VarName, val: item}
		if n.Filter != nil {
			fv := n.Filter.Eval(sub)
			if !fv.Truthy() {
				continue
			}
		}
		out = append(out, n.Map.Eval(sub))
	}
	return value.List(out)
}
func (n *ListComprehension) String() string {
	f := ""
	if n.Filter != nil {
		f = " if " + n.Filter.String()
	}
	return fmt.Sprintf("[%s for %s in %s%s]", n.Map.String(), n.VarName, n.Source.String(), f)
}
func (n *ListComprehension) Equal(o Expr) bool {
	t, ok := o.(*ListComprehension)
	if !ok || n.VarName != t.VarName || !n.Source.Equal(t.Source) || !n.Map.Equal(t.Map) {
		return false
	}
	if (n.Filter == nil) != (t.Filter == nil) {
		return false
	}
	return n.Filter == nil || n.Filter.Equal(t.Filter)
}
func (n *ListComprehension) Clone() Expr {
	nc := &ListComprehension{VarName: n.VarName, Source: n.Source.Clone(), Map: n.Map.Clone()}
	if n.Filter != nil {
		nc.Filter = n.Filter.Clone()
	}
	return nc
}
func (n *ListComprehension) Accept(v Visitor) { Walk(v, n) }

// Predicate implements all/any/none/single over Source with VarName
// bound to each element while evaluating Test.
type Predicate struct {
	Form    PredicateKind
	VarName string
	Source  Expr
	Test    Expr
}

func (n *Predicate) Kind() Kind { return KindPredicate }
func (n *Predicate) Eval(ctx ExpressionContext) value.Value {
	src := n.Source.Eval(ctx)
	items, ok := src.AsList()
	if !ok {
		if s, ok2 := src.AsSet(); ok2 {
			items = s
		} else {
			return value.Null(value.NullBadType)
		}
	}
	matches := 0
	for _, item := range items {
		sub := &varOverlayContext{ExpressionContext: ctx, name: n.VarName, val: item}
		tv := n.Test.Eval(sub)
		if tv.Truthy() {
			matches++
		}
	}
	switch n.Form {
	case PredicateAll:
		return value.Bool(matches == len(items))
	case PredicateAny:
		return value.Bool(matches > 0)
	case PredicateNone:
		return value.Bool(matches == 0)
	case PredicateSingle:
		return value.Bool(matches == 1)
	default:
		return value.Null(value.NullBadType)
	}
}
func (n *Predicate) String() string {
	names := map[PredicateKind]string{PredicateAll: "all", PredicateAny: "any", PredicateNone: "none", PredicateSingle: "single"}
	return fmt.Sprintf("%s(%s in %s where %s)", names[n.Form], n.VarName, n.Source.String(), n.Test.String())
}
func (n *Predicate) Equal(o Expr) bool {
	t, ok := o.(*Predicate)
	return ok && n.Form == t.Form && n.VarName == t.VarName && n.Source.Equal(t.Source) && n.Test.Equal(t.Test)
}
func (n *Predicate) Clone() Expr {
	return &Predicate{Form: n.Form, VarName: n.VarName, Source: n.Source.Clone(), Test: n.Test.Clone()}
}
func (n *Predicate) Accept(v Visitor) { Walk(v, n) }

// Reduce folds Source with Init as the seed and Accumulate re-evaluated
// per element, with VarName bound to the running accumulator and
// ElemName bound to the current element.
type Reduce struct {
	VarName, ElemName string
	Source            Expr
	Init              Expr
	Accumulate        Expr
}

func (n *Reduce) Kind() Kind { return KindReduce }
func (n *Reduce) Eval(ctx ExpressionContext) value.Value {
	src := n.Source.Eval(ctx)
	items, ok := src.AsList()
	if !ok {
		if s, ok2 := src.AsSet(); ok2 {
			items = s
		} else {
			return value.Null(value.NullBadType)
		}
	}
	acc := n.Init.Eval(ctx)
	for _, item := range items {
		sub := &pairOverlayContext{ExpressionContext: ctx, name1: n.VarName, val1: acc, name2: n.ElemName, val2: item}
		acc = n.Accumulate.Eval(sub)
	}
	return acc
}
func (n *Reduce) String() string {
	return fmt.Sprintf("reduce(%s = %s, %s in %s | %s)", n.VarName, n.Init.String(), n.ElemName, n.Source.String(), n.Accumulate.String())
}
func (n *Reduce) Equal(o Expr) bool {
	t, ok := o.(*Reduce)
	return ok && n.VarName == t.VarName && n.ElemName == t.ElemName &&
		n.Source.Equal(t.Source) && n.Init.Equal(t.Init) && n.Accumulate.Equal(t.Accumulate)
}
func (n *Reduce) Clone() Expr {
	return &Reduce{VarName: n.VarName, ElemName: n.ElemName, Source: n.Source.Clone(), Init: n.Init.Clone(), Accumulate: n.Accumulate.Clone()}
}
func (n *Reduce) Accept(v Visitor) { Walk(v, n) }

// Func is a registry-resolved scalar function implementation.
type Func struct {
	Name  string
	Arity int // -1 means variadic
	Apply func(args []value.Value) value.Value
}

// FunctionCall invokes a Func resolved from a Registry at decode time
// (§4.1 "registry-resolved, arity-checked at decode").
type FunctionCall struct {
	Name string
	Args []Expr
	fn   *Func // resolved at decode/construction time
}

// NewFunctionCall resolves Name against reg and arity-checks Args,
// returning an error if the function is unknown or the arity mismatches.
func NewFunctionCall(reg *Registry, name string, args []Expr) (*FunctionCall, error) {
	fn, err := reg.Resolve(name, len(args))
	if err != nil {
		return nil, err
	}
	return &FunctionCall{Name: name, Args: args, fn: fn}, nil
}

func (n *FunctionCall) Kind() Kind { return KindFunctionCall }
func (n *FunctionCall) Eval(ctx ExpressionContext) value.Value {
	if n.fn == nil {
		return value.Null(value.NullBadData)
	}
	args := make([]value.Value, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.Eval(ctx)
		if args[i].IsNull() {
			return args[i]
		}
	}
	return n.fn.Apply(args)
}
func (n *FunctionCall) String() string {
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", n.Name, strings.Join(parts, ", "))
}
func (n *FunctionCall) Equal(o Expr) bool {
	t, ok := o.(*FunctionCall)
	if !ok || n.Name != t.Name || len(n.Args) != len(t.Args) {
		return false
	}
	for i := range n.Args {
		if !n.Args[i].Equal(t.Args[i]) {
			return false
		}
	}
	return true
}
func (n *FunctionCall) Clone() Expr {
	args := make([]Expr, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.Clone()
	}
	return &FunctionCall{Name: n.Name, Args: args, fn: n.fn}
}
func (n *FunctionCall) Accept(v Visitor) { Walk(v, n) }

// AggregateFunc enumerates §4.1's aggregate functions.
type AggregateFunc uint8

const (
	AggSum AggregateFunc = iota
	AggAvg
	AggCount
	AggMin
	AggMax
	AggCollect
	AggStd
)

// Aggregate is a reduce-over-group aggregate function; evaluation
// against a single ExpressionContext only computes the per-row operand,
// actual folding across a group is the planner/operator layer's job
// (planner/operator.Aggregate).
type Aggregate struct {
	Func AggregateFunc
	Arg  Expr // nil for count(*)
}

func (n *Aggregate) Kind() Kind { return KindAggregate }
func (n *Aggregate) Eval(ctx ExpressionContext) value.Value {
	if n.Arg == nil {
		return value.Int(1)
	}
	return n.Arg.Eval(ctx)
}
func (n *Aggregate) String() string {
	names := map[AggregateFunc]string{AggSum: "sum", AggAvg: "avg", AggCount: "count", AggMin: "min", AggMax: "max", AggCollect: "collect", AggStd: "std"}
	if n.Arg == nil {
		return names[n.Func] + "(*)"
	}
	return fmt.Sprintf("%s(%s)", names[n.Func], n.Arg.String())
}
func (n *Aggregate) Equal(o Expr) bool {
	t, ok := o.(*Aggregate)
	if !ok || n.Func != t.Func {
		return false
	}
	if (n.Arg == nil) != (t.Arg == nil) {
		return false
	}
	return n.Arg == nil || n.Arg.Equal(t.Arg)
}
func (n *Aggregate) Clone() Expr {
	nc := &Aggregate{Func: n.Func}
	if n.Arg != nil {
		nc.Arg = n.Arg.Clone()
	}
	return nc
}
func (n *Aggregate) Accept(v Visitor) { Walk(v, n) }

// VertexRef evaluates to the current vertex ("VERTEX").
type VertexRef struct{}

func (n *VertexRef) Kind() Kind                         { return KindVertexRef }
func (n *VertexRef) Eval(ctx ExpressionContext) value.Value { return ctx.GetVertex() }
func (n *VertexRef) String() string                     { return "VERTEX" }
func (n *VertexRef) Equal(o Expr) bool                  { _, ok := o.(*VertexRef); return ok }
func (n *VertexRef) Clone() Expr                        { return &VertexRef{} }
func (n *VertexRef) Accept(v Visitor)                   { Walk(v, n) }

// EdgeRef evaluates to the current edge ("EDGE").
type EdgeRef struct{}

func (n *EdgeRef) Kind() Kind                         { return KindEdgeRef }
func (n *EdgeRef) Eval(ctx ExpressionContext) value.Value { return ctx.GetEdge() }
func (n *EdgeRef) String() string                     { return "EDGE" }
func (n *EdgeRef) Equal(o Expr) bool                  { _, ok := o.(*EdgeRef); return ok }
func (n *EdgeRef) Clone() Expr                        { return &EdgeRef{} }
func (n *EdgeRef) Accept(v Visitor)                   { Walk(v, n) }

// ColumnRef is a positional reference into the current input row.
type ColumnRef struct{ Index int }

func (n *ColumnRef) Kind() Kind                         { return KindColumnRef }
func (n *ColumnRef) Eval(ctx ExpressionContext) value.Value { return ctx.GetColumn(n.Index) }
func (n *ColumnRef) String() string                     { return fmt.Sprintf("$%d", n.Index) }
func (n *ColumnRef) Equal(o Expr) bool {
	t, ok := o.(*ColumnRef)
	return ok && n.Index == t.Index
}
func (n *ColumnRef) Clone() Expr      { return &ColumnRef{Index: n.Index} }
func (n *ColumnRef) Accept(v Visitor) { Walk(v, n) }

// InputProperty reads a named property off the current input row's
// primary entity (vertex/edge), used by clauses that haven't yet bound
// a column index.
type InputProperty struct{ Prop string }

func (n *InputProperty) Kind() Kind { return KindInputProperty }
func (n *InputProperty) Eval(ctx ExpressionContext) value.Value {
	base := ctx.GetVertex()
	if base.IsNull() {
		base = ctx.GetEdge()
	}
	a := &Attribute{Base: &constContext{base}, Prop: n.Prop}
	return a.Eval(ctx)
}
func (n *InputProperty) String() string { return "$-." + n.Prop }
func (n *InputProperty) Equal(o Expr) bool {
	t, ok := o.(*InputProperty)
	return ok && n.Prop == t.Prop
}
func (n *InputProperty) Clone() Expr      { return &InputProperty{Prop: n.Prop} }
func (n *InputProperty) Accept(v Visitor) { Walk(v, n) }

// constContext lets InputProperty reuse Attribute.Eval with an
// already-evaluated base value.
type constContext struct{ v value.Value }

func (c *constContext) Kind() Kind                           { return KindConstant }
func (c *constContext) Eval(ExpressionContext) value.Value   { return c.v }
func (c *constContext) String() string                       { return c.v.String() }
func (c *constContext) Equal(o Expr) bool                    { t, ok := o.(*constContext); return ok && value.Equal(c.v, t.v) }
func (c *constContext) Clone() Expr                           { return &constContext{v: value.Clone(c.v)} }
func (c *constContext) Accept(v Visitor)                      { Walk(v, c) }

// VariableProperty reads a named property off a named variable ("$var.prop").
type VariableProperty struct {
	VarName string
	Prop    string
}

func (n *VariableProperty) Kind() Kind { return KindVariableProperty }
func (n *VariableProperty) Eval(ctx ExpressionContext) value.Value {
	base, ok := ctx.GetVar(n.VarName)
	if !ok {
		return value.Null(value.NullUnknownProp)
	}
	a := &Attribute{Base: &constContext{base}, Prop: n.Prop}
	return a.Eval(ctx)
}
func (n *VariableProperty) String() string { return fmt.Sprintf("$%s.%s", n.VarName, n.Prop) }
func (n *VariableProperty) Equal(o Expr) bool {
	t, ok := o.(*VariableProperty)
	return ok && n.VarName == t.VarName && n.Prop == t.Prop
}
func (n *VariableProperty) Clone() Expr      { return &VariableProperty{VarName: n.VarName, Prop: n.Prop} }
func (n *VariableProperty) Accept(v Visitor) { Walk(v, n) }

// PathBuild assembles a Path value from a starting vertex expression and
// alternating edge/vertex step expressions.
type PathBuild struct {
	Src   Expr
	Steps []Expr // pairs flattened: edge, vertex, edge, vertex, ...
}

func (n *PathBuild) Kind() Kind { return KindPathBuild }
func (n *PathBuild) Eval(ctx ExpressionContext) value.Value {
	srcV := n.Src.Eval(ctx)
	srcVertex, ok := srcV.AsVertex()
	if !ok {
		return value.Null(value.NullBadType)
	}
	p := value.Path{Src: *srcVertex}
	for i := 0; i+1 < len(n.Steps); i += 2 {
		ev := n.Steps[i].Eval(ctx)
		dv := n.Steps[i+1].Eval(ctx)
		edge, ok1 := ev.AsEdge()
		dst, ok2 := dv.AsVertex()
		if !ok1 || !ok2 {
			return value.Null(value.NullBadType)
		}
		p.Steps = append(p.Steps, value.PathStep{Edge: *edge, Dst: *dst})
	}
	return value.PathVal(p)
}
func (n *PathBuild) String() string {
	parts := make([]string, len(n.Steps))
	for i, s := range n.Steps {
		parts[i] = s.String()
	}
	return fmt.Sprintf("path(%s -> %s)", n.Src.String(), strings.Join(parts, " -> "))
}
func (n *PathBuild) Equal(o Expr) bool {
	t, ok := o.(*PathBuild)
	if !ok || !n.Src.Equal(t.Src) || len(n.Steps) != len(t.Steps) {
		return false
	}
	for i := range n.Steps {
		if !n.Steps[i].Equal(t.Steps[i]) {
			return false
		}
	}
	return true
}
func (n *PathBuild) Clone() Expr {
	steps := make([]Expr, len(n.Steps))
	for i, s := range n.Steps {
		steps[i] = s.Clone()
	}
	return &PathBuild{Src: n.Src.Clone(), Steps: steps}
}
func (n *PathBuild) Accept(v Visitor) { Walk(v, n) }

// StepPattern is one hop of a MatchPathPattern.
type StepPattern struct {
	EdgeTypes   []int32 // empty means "any edge type"
	MinHop      int
	MaxHop      int // -1 means unbounded
	DirOutgoing bool
}

// MatchPathPattern tests whether the current path context (threaded
// through ExpressionContext.GetVar("__path__")) satisfies a sequence of
// hop patterns; used by the planner to lower variable-length pattern
// clauses into a boolean filter over materialized candidate paths.
type MatchPathPattern struct {
	Steps []StepPattern
}

func (n *MatchPathPattern) Kind() Kind { return KindMatchPathPattern }
func (n *MatchPathPattern) Eval(ctx ExpressionContext) value.Value {
	pv, ok := ctx.GetVar("__path__")
	if !ok {
		return value.Bool(false)
	}
	p, ok := pv.AsPath()
	if !ok {
		return value.Bool(false)
	}
	if len(n.Steps) == 0 {
		return value.Bool(true)
	}
	// Single aggregate hop-count pattern check: total steps within
	// [sum(MinHop), sum(MaxHop)]; EdgeTypes and DirOutgoing are not
	// checked here. This matches variable-length pattern semantics at a
	// coarse level; per-hop direction/type refinement happens in the
	// planner's Traverse operator which has partition-local edge-type
	// information this Value-only context lacks.
	minTotal, maxTotal := 0, 0
	for _, s := range n.Steps {
		minTotal += s.MinHop
		if s.MaxHop < 0 {
			maxTotal = -1
		} else if maxTotal >= 0 {
			maxTotal += s.MaxHop
		}
	}
	hops := len(p.Steps)
	if hops < minTotal {
		return value.Bool(false)
	}
	if maxTotal >= 0 && hops > maxTotal {
		return value.Bool(false)
	}
	return value.Bool(true)
}
func (n *MatchPathPattern) String() string { return fmt.Sprintf("matchPath(%d steps)", len(n.Steps)) }
func (n *MatchPathPattern) Equal(o Expr) bool {
	t, ok := o.(*MatchPathPattern)
	if !ok || len(n.Steps) != len(t.Steps) {
		return false
	}
	for i := range n.Steps {
		a, b := n.Steps[i], t.Steps[i]
		if a.MinHop != b.MinHop || a.MaxHop != b.MaxHop || a.DirOutgoing != b.DirOutgoing {
			return false
		}
		if len(a.EdgeTypes) != len(b.EdgeTypes) {
			return false
		}
		for j := range a.EdgeTypes {
			if a.EdgeTypes[j] != b.EdgeTypes[j] {
				return false
			}
		}
	}
	return true
}
func (n *MatchPathPattern) Clone() Expr {
	steps := append([]StepPattern(nil), n.Steps...)
	return &MatchPathPattern{Steps: steps}
}
func (n *MatchPathPattern) Accept(v Visitor) { Walk(v, n) }

// UUID evaluates to a freshly generated identifier each time (no two
// evaluations within a query are required to agree, per its use as a
// synthetic key generator in INSERT-style plans).
type UUID struct {
	Gen func() string
}

func (n *UUID) Kind() Kind { return KindUUID }
func (n *UUID) Eval(ExpressionContext) value.Value {
	if n.Gen == nil {
		return value.Null(value.NullBadData)
	}
	return value.String(n.Gen())
}
func (n *UUID) String() string          { return "uuid()" }
func (n *UUID) Equal(o Expr) bool       { _, ok := o.(*UUID); return ok }
func (n *UUID) Clone() Expr             { return &UUID{Gen: n.Gen} }
func (n *UUID) Accept(v Visitor)        { Walk(v, n) }

// Parameter reads a named query parameter supplied alongside a request.
type Parameter struct{ Name string }

func (n *Parameter) Kind() Kind { return KindParameter }
func (n *Parameter) Eval(ctx ExpressionContext) value.Value {
	v, ok := ctx.GetParameter(n.Name)
	if !ok {
		return value.Null(value.NullUnknownProp)
	}
	return v
}
func (n *Parameter) String() string { return "$" + n.Name }
func (n *Parameter) Equal(o Expr) bool {
	t, ok := o.(*Parameter)
	return ok && n.Name == t.Name
}
func (n *Parameter) Clone() Expr      { return &Parameter{Name: n.Name} }
func (n *Parameter) Accept(v Visitor) { Walk(v, n) }

// varOverlayContext binds one extra named variable on top of a parent
// ExpressionContext, used by comprehension/predicate evaluation.
type varOverlayContext struct {
	ExpressionContext
	name string
	val  value.Value
}

func (c *varOverlayContext) GetVar(name string) (value.Value, bool) {
	if name == c.name {
		return c.val, true
	}
	return c.ExpressionContext.GetVar(name)
}

// pairOverlayContext binds two extra named variables, used by Reduce.
type pairOverlayContext struct {
	ExpressionContext
	name1 string
	val1  value.Value
	name2 string
	val2  value.Value
}

func (c *pairOverlayContext) GetVar(name string) (value.Value, bool) {
	switch name {
	case c.name1:
		return c.val1, true
	case c.name2:
		return c.val2, true
	default:
		return c.ExpressionContext.GetVar(name)
	}
}
