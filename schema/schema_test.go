package schema

import "testing"

func TestValidateRejectsDuplicateFieldNames(t *testing.T) {
	tag := &Tag{Name: "person", Fields: []Field{
		{Name: "age", Kind: FieldInt},
		{Name: "age", Kind: FieldString},
	}}
	if err := tag.Validate(); err == nil {
		t.Fatal("expected duplicate field name to be rejected")
	}
}

func TestValidateRejectsZeroFixedStringLen(t *testing.T) {
	tag := &Tag{Name: "person", Fields: []Field{
		{Name: "code", Kind: FieldFixedString, FixedStrLen: 0},
	}}
	if err := tag.Validate(); err == nil {
		t.Fatal("expected fixed_string(0) to be rejected")
	}
}

func TestNextVersionIncrements(t *testing.T) {
	tag := &Tag{Version: 3}
	if got := tag.NextVersion(); got != 4 {
		t.Fatalf("NextVersion() = %d, want 4", got)
	}
}

func TestFieldByName(t *testing.T) {
	tag := &Tag{Fields: []Field{{Name: "name", Kind: FieldString}}}
	if _, ok := tag.FieldByName("name"); !ok {
		t.Fatal("expected to find field \"name\"")
	}
	if _, ok := tag.FieldByName("missing"); ok {
		t.Fatal("did not expect to find field \"missing\"")
	}
}
