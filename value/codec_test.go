package value

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Value{
		Null(NullDivByZero),
		Empty(),
		Bool(true),
		Int(-42),
		Float(3.5),
		String("hello"),
		List([]Value{Int(1), String("a")}),
		Set([]Value{Int(1), Int(2)}),
		Map(map[string]Value{"k": Int(9)}),
		VertexVal(Vertex{ID: Int(1), Tags: []Tag{{TagID: 1, Props: map[string]Value{"n": String("x")}}}}),
		EdgeVal(Edge{Type: -3, Src: Int(1), Dst: Int(2), Rank: 7, Props: map[string]Value{"w": Float(1.5)}}),
	}
	for _, v := range cases {
		enc := Encode(v)
		got, n, err := Decode(enc)
		if err != nil {
			t.Fatalf("Decode(%v): %v", v, err)
		}
		if n != len(enc) {
			t.Fatalf("Decode consumed %d of %d bytes for %v", n, len(enc), v)
		}
		if !Equal(got, v) {
			t.Fatalf("round trip mismatch: got %v, want %v", got, v)
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, _, err := Decode([]byte{255}); err == nil {
		t.Fatal("expected error decoding an unknown kind byte")
	}
}
