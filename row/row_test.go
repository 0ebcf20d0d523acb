package row

import (
	"testing"
	"time"

	"github.com/graphkv/graphd/schema"
	"github.com/graphkv/graphd/value"
)

func personFields() []schema.Field {
	return []schema.Field{
		{Name: "name", Kind: schema.FieldString},
		{Name: "age", Kind: schema.FieldInt},
		{Name: "score", Kind: schema.FieldFloat},
		{Name: "active", Kind: schema.FieldBool},
		{Name: "country", Kind: schema.FieldFixedString, FixedStrLen: 2},
		{Name: "created_at", Kind: schema.FieldInt, Nullable: true},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	fields := personFields()
	in := map[string]value.Value{
		"name":    value.String("alice"),
		"age":     value.Int(30),
		"score":   value.Float(9.5),
		"active":  value.Bool(true),
		"country": value.String("US"),
	}
	data := Encode(3, fields, in)

	version, out, err := Decode(data, fields)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if version != 3 {
		t.Fatalf("version = %d, want 3", version)
	}
	if s, _ := out["name"].AsString(); s != "alice" {
		t.Fatalf("name = %q", s)
	}
	if n, _ := out["age"].AsInt(); n != 30 {
		t.Fatalf("age = %d", n)
	}
	if f, _ := out["score"].AsFloat(); f != 9.5 {
		t.Fatalf("score = %v", f)
	}
	if b, _ := out["active"].AsBool(); !b {
		t.Fatalf("active = %v", b)
	}
	if s, _ := out["country"].AsString(); s != "US" {
		t.Fatalf("country = %q", s)
	}
	if _, ok := out["created_at"]; ok {
		t.Fatalf("expected created_at omitted (never set, encoded as null)")
	}
}

func TestEncodeDecodeDateTimeDuration(t *testing.T) {
	fields := []schema.Field{
		{Name: "d", Kind: schema.FieldDate},
		{Name: "t", Kind: schema.FieldTime},
		{Name: "dt", Kind: schema.FieldDateTime},
		{Name: "dur", Kind: schema.FieldDuration},
	}
	in := map[string]value.Value{
		"d":   value.DateVal(value.Date{Year: 2026, Month: 7, Day: 31}),
		"t":   value.TimeVal(value.Time{Hour: 12, Minute: 30, Second: 5, Microsec: 1234}),
		"dt":  value.DateTimeVal(value.DateTime{Date: value.Date{Year: 2026, Month: 1, Day: 1}, Time: value.Time{Hour: 1}}),
		"dur": value.DurationVal(value.Duration{Months: 1, Days: 2, Micros: 3000}),
	}
	data := Encode(1, fields, in)
	_, out, err := Decode(data, fields)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	d, _ := out["d"].AsDate()
	if d.Year != 2026 || d.Month != 7 || d.Day != 31 {
		t.Fatalf("d = %+v", d)
	}
	tm, _ := out["t"].AsTime()
	if tm.Hour != 12 || tm.Microsec != 1234 {
		t.Fatalf("t = %+v", tm)
	}
	dur, _ := out["dur"].AsDuration()
	if dur.Months != 1 || dur.Days != 2 || dur.Micros != 3000 {
		t.Fatalf("dur = %+v", dur)
	}
}

func TestDecodeRejectsTruncatedPayload(t *testing.T) {
	if _, _, err := Decode([]byte{1, 2}, personFields()); err != ErrRowFormat {
		t.Fatalf("err = %v, want ErrRowFormat", err)
	}
}

func TestTTLExpired(t *testing.T) {
	ttl := &schema.TTL{DurationSeconds: 60, Column: "created_at"}
	now := time.Unix(10000, 0)
	values := map[string]value.Value{"created_at": value.Int(10000 - 120)}
	if !TTLExpired(values, ttl, now) {
		t.Fatalf("expected row older than TTL to be expired")
	}
	values["created_at"] = value.Int(10000 - 10)
	if TTLExpired(values, ttl, now) {
		t.Fatalf("expected recent row to not be expired")
	}
}
