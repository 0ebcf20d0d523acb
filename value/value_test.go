package value

import "testing"

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Bool(true), true},
		{Bool(false), false},
		{Int(0), false},
		{Int(3), true},
		{String(""), false},
		{String("x"), true},
		{Null(NullBadType), false},
		{List([]Value{Int(1)}), true},
		{List(nil), false},
	}
	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("%v.Truthy() = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestEqualCrossKindNeverEqual(t *testing.T) {
	if Equal(Int(1), Float(1.0)) {
		t.Fatal("Int(1) should not equal Float(1.0)")
	}
}

func TestEqualSetIsOrderIndependent(t *testing.T) {
	a := Set([]Value{Int(1), Int(2), Int(3)})
	b := Set([]Value{Int(3), Int(1), Int(2)})
	if !Equal(a, b) {
		t.Fatal("sets with same elements in different order should be equal")
	}
}

func TestArithmeticNullPropagation(t *testing.T) {
	n := Null(NullUnknownProp)
	if got := Add(n, Int(1)); got.NullKind() != NullUnknownProp {
		t.Fatalf("Add(null, 1) = %v, want the left null to propagate", got)
	}
	if got := Div(Int(1), Int(0)); got.NullKind() != NullDivByZero {
		t.Fatalf("Div(1,0) = %v, want div-by-zero null", got)
	}
	if got := Add(Int(1), String("x")); got.NullKind() != NullBadType {
		t.Fatalf("Add(1,\"x\") = %v, want bad-type null", got)
	}
}

func TestAddPromotesIntFloat(t *testing.T) {
	got := Add(Int(1), Float(2.5))
	f, ok := got.AsFloat()
	if !ok || f != 3.5 {
		t.Fatalf("Add(1, 2.5) = %v, want float 3.5", got)
	}
}

func TestCloneDeepCopiesVertex(t *testing.T) {
	v := VertexVal(Vertex{
		ID:   Int(42),
		Tags: []Tag{{TagID: 1, Props: map[string]Value{"name": String("a")}}},
	})
	clone := Clone(v)
	orig, _ := v.AsVertex()
	cl, _ := clone.AsVertex()
	cl.Tags[0].Props["name"] = String("mutated")
	if s, _ := orig.Tags[0].Props["name"].AsString(); s != "a" {
		t.Fatalf("mutating clone leaked into original: got %q", s)
	}
}

func TestCompareTotalOrderMissing(t *testing.T) {
	_, ok := Compare(List([]Value{Int(1)}), List([]Value{Int(1)}))
	if ok {
		t.Fatal("lists have no total order, Compare should report ok=false")
	}
}

func TestNotOnNonBool(t *testing.T) {
	if got := Not(Int(1)); got.NullKind() != NullBadType {
		t.Fatalf("Not(1) = %v, want bad-type null", got)
	}
}
