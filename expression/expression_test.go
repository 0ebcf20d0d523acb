package expression

import (
	"testing"

	"github.com/graphkv/graphd/value"
)

type rowContext struct {
	cols   []value.Value
	vertex value.Value
	edge   value.Value
	vars   map[string]value.Value
	params map[string]value.Value
}

func (c *rowContext) GetColumn(i int) value.Value { return c.cols[i] }
func (c *rowContext) GetVertex() value.Value      { return c.vertex }
func (c *rowContext) GetEdge() value.Value        { return c.edge }
func (c *rowContext) GetVar(name string) (value.Value, bool) {
	v, ok := c.vars[name]
	return v, ok
}
func (c *rowContext) GetParameter(name string) (value.Value, bool) {
	v, ok := c.params[name]
	return v, ok
}
func (c *rowContext) GetSessionVar(string) (value.Value, bool) { return value.Value{}, false }

func emptyCtx() *rowContext {
	return &rowContext{vars: map[string]value.Value{}, params: map[string]value.Value{}}
}

func TestBinaryArithEval(t *testing.T) {
	e := &BinaryArith{Op: ArithAdd, Left: &Constant{Val: value.Int(2)}, Right: &Constant{Val: value.Int(3)}}
	got := e.Eval(emptyCtx())
	if i, ok := got.AsInt(); !ok || i != 5 {
		t.Fatalf("2+3 = %v, want 5", got)
	}
}

func TestRelationalNullPropagation(t *testing.T) {
	e := &Relational{Op: RelEQ, Left: &Constant{Val: value.Null(value.NullUnknownProp)}, Right: &Constant{Val: value.Int(1)}}
	got := e.Eval(emptyCtx())
	if !got.IsNull() || got.NullKind() != value.NullUnknownProp {
		t.Fatalf("expected unknown-prop null propagation, got %v", got)
	}
}

func TestListComprehensionEval(t *testing.T) {
	e := &ListComprehension{
		VarName: "x",
		Source:  &Constant{Val: value.List([]value.Value{value.Int(1), value.Int(2), value.Int(3)})},
		Filter:  &varRefExpr{name: "x", test: ">1"},
		Map:     &varRefExpr{name: "x"},
	}

	got := e.Eval(emptyCtx())
	items, ok := got.AsList()
	if !ok || len(items) != 2 {
		t.Fatalf("comprehension result = %v, want [2 3]", got)
	}
}

// varRefExpr is a minimal test-only Expr that reads a bound comprehension
// variable and optionally tests it against ">1", avoiding the need to
// exercise VariableProperty's attribute-access semantics here.
type varRefExpr struct {
	name string
	test string
}

func (e *varRefExpr) Kind() Kind { return KindParameter }
func (e *varRefExpr) Eval(ctx ExpressionContext) value.Value {
	v, _ := ctx.GetVar(e.name)
	if e.test == ">1" {
		i, _ := v.AsInt()
		return value.Bool(i > 1)
	}
	return v
}
func (e *varRefExpr) String() string      { return e.name }
func (e *varRefExpr) Equal(o Expr) bool   { return false }
func (e *varRefExpr) Clone() Expr         { return &varRefExpr{name: e.name, test: e.test} }
func (e *varRefExpr) Accept(v Visitor)    { Walk(v, e) }

func TestFunctionCallRegistryArityCheck(t *testing.T) {
	reg := NewRegistry()
	if _, err := NewFunctionCall(reg, "abs", []Expr{&Constant{Val: value.Int(1)}, &Constant{Val: value.Int(2)}}); err == nil {
		t.Fatal("expected arity mismatch error for abs(1,2)")
	}
	fc, err := NewFunctionCall(reg, "abs", []Expr{&Constant{Val: value.Int(-5)}})
	if err != nil {
		t.Fatalf("NewFunctionCall: %v", err)
	}
	got := fc.Eval(emptyCtx())
	if i, ok := got.AsInt(); !ok || i != 5 {
		t.Fatalf("abs(-5) = %v, want 5", got)
	}
}

func TestEqualAndClone(t *testing.T) {
	a := &BinaryArith{Op: ArithAdd, Left: &Constant{Val: value.Int(1)}, Right: &Constant{Val: value.Int(2)}}
	b := a.Clone()
	if !a.Equal(b) {
		t.Fatal("clone should be structurally equal to original")
	}
	b.(*BinaryArith).Right.(*Constant).Val = value.Int(99)
	if a.Equal(b) {
		t.Fatal("mutating the clone should not affect the original's equality")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	reg := NewRegistry()
	fc, err := NewFunctionCall(reg, "upper", []Expr{&Constant{Val: value.String("ok")}})
	if err != nil {
		t.Fatalf("NewFunctionCall: %v", err)
	}
	e := &Logical{
		Op: LogicalAnd,
		Operands: []Expr{
			&Relational{Op: RelEQ, Left: fc, Right: &Constant{Val: value.String("OK")}},
			&Unary{Op: UnaryNot, Operand: &Constant{Val: value.Bool(false)}},
		},
	}
	enc := Encode(e)
	dec, err := Decode(enc, reg)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !e.Equal(dec) {
		t.Fatalf("decoded expression not equal to original: got %s, want %s", dec.String(), e.String())
	}
	got := dec.Eval(emptyCtx())
	if b, ok := got.AsBool(); !ok || !b {
		t.Fatalf("decoded expression evaluated to %v, want true", got)
	}
}

func TestWalkVisitsEveryNode(t *testing.T) {
	// BinaryArith(Constant, Unary(Constant)): 4 nodes total.
	e := &BinaryArith{Op: ArithAdd, Left: &Constant{Val: value.Int(1)}, Right: &Unary{Op: UnaryNeg, Operand: &Constant{Val: value.Int(2)}}}
	var visited []Kind
	Walk(visitCollector{&visited}, e)
	if len(visited) != 4 {
		t.Fatalf("Walk visited %d nodes, want 4: %v", len(visited), visited)
	}
}

type visitCollector struct{ out *[]Kind }

func (c visitCollector) Visit(e Expr) Visitor {
	*c.out = append(*c.out, e.Kind())
	return c
}
