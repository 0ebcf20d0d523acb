package value

import (
	"encoding/json"
	"testing"
)

func TestValueJSONRoundTripScalars(t *testing.T) {
	cases := []Value{
		Null(NullBadType),
		Empty(),
		Bool(true),
		Int(42),
		Float(3.5),
		String("hello"),
		DateVal(Date{Year: 2026, Month: 7, Day: 31}),
		DurationVal(Duration{Months: 1, Days: 2, Micros: 3}),
	}
	for _, want := range cases {
		data, err := json.Marshal(want)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", want.Kind(), err)
		}
		var got Value
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("Unmarshal(%v): %v", want.Kind(), err)
		}
		if got.Kind() != want.Kind() {
			t.Fatalf("kind = %v, want %v", got.Kind(), want.Kind())
		}
	}
}

func TestValueJSONRoundTripList(t *testing.T) {
	want := List([]Value{Int(1), String("x"), Bool(false)})
	data, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Value
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	items, ok := got.AsList()
	if !ok || len(items) != 3 {
		t.Fatalf("items = %+v", items)
	}
	if n, _ := items[0].AsInt(); n != 1 {
		t.Fatalf("items[0] = %+v", items[0])
	}
}

func TestValueJSONRoundTripMapAndNestedStruct(t *testing.T) {
	want := Map(map[string]Value{
		"name": String("alice"),
		"age":  Int(30),
	})
	data, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Value
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	m, ok := got.AsMap()
	if !ok {
		t.Fatalf("expected map kind, got %v", got.Kind())
	}
	if s, _ := m["name"].AsString(); s != "alice" {
		t.Fatalf("name = %q", s)
	}
}

func TestValueJSONEmbeddedInStruct(t *testing.T) {
	type row struct {
		Props map[string]Value `json:"props"`
	}
	in := row{Props: map[string]Value{"score": Float(9.5)}}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out row
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if f, _ := out.Props["score"].AsFloat(); f != 9.5 {
		t.Fatalf("score = %v", f)
	}
}

func TestValueJSONUnknownTypeErrors(t *testing.T) {
	var v Value
	if err := json.Unmarshal([]byte(`{"type":"bogus"}`), &v); err == nil {
		t.Fatalf("expected error for unknown wire type")
	}
}
