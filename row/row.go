// Package row implements the schema-driven row encoding of spec.md §3
// ("Value layout"): a header carrying the writer's schema version and a
// null bitmap, fixed-width fields in schema order, and a length-prefixed
// variable-width tail for string/fixed_string fields — the payload
// stored under a vertex or edge key. Decode returns the version the row
// declares but parses the row against the fields its caller passes; it
// does not select fields by that version.
package row

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/graphkv/graphd/schema"
	"github.com/graphkv/graphd/value"
)

// ErrRowFormat is returned by Decode when the payload is structurally
// invalid for the given schema fields (§7 "Key-format/decode-error").
var ErrRowFormat = fmt.Errorf("row: E_ROW_FORMAT")

// Encode serializes values (keyed by field name) against fields in
// schema order, stamping version into the header. A field absent from
// values is encoded as null (bitmap bit set, no storage consumed).
func Encode(version int32, fields []schema.Field, values map[string]value.Value) []byte {
	nullBytes := (len(fields) + 7) / 8
	bitmap := make([]byte, nullBytes)
	fixed := make([]byte, 0, 64)
	var tail []byte

	for i, f := range fields {
		v, ok := values[f.Name]
		if !ok || v.IsNull() {
			bitmap[i/8] |= 1 << uint(i%8)
			continue
		}
		switch f.Kind {
		case schema.FieldBool:
			b, _ := v.AsBool()
			var x byte
			if b {
				x = 1
			}
			fixed = append(fixed, x)
		case schema.FieldInt:
			n, _ := v.AsInt()
			fixed = appendU64(fixed, uint64(n))
		case schema.FieldFloat:
			fl, _ := v.AsFloat()
			fixed = appendU64(fixed, math.Float64bits(fl))
		case schema.FieldDuration:
			d, _ := v.AsDuration()
			fixed = appendDuration(fixed, d)
		case schema.FieldDate:
			d, _ := v.AsDate()
			fixed = appendDate(fixed, d)
		case schema.FieldTime:
			tm, _ := v.AsTime()
			fixed = appendTime(fixed, tm)
		case schema.FieldDateTime:
			dt, _ := v.AsDateTime()
			fixed = appendDate(fixed, dt.Date)
			fixed = appendTime(fixed, dt.Time)
		case schema.FieldFixedString:
			s, _ := v.AsString()
			buf := make([]byte, f.FixedStrLen)
			copy(buf, s)
			fixed = append(fixed, buf...)
		case schema.FieldString:
			s, _ := v.AsString()
			off := uint32(len(tail))
			tail = append(tail, s...)
			fixed = appendU32(fixed, off)
			fixed = appendU32(fixed, uint32(len(s)))
		}
	}

	buf := make([]byte, 0, 4+1+len(bitmap)+len(fixed)+len(tail))
	buf = appendI32(buf, version)
	buf = append(buf, byte(nullBytes))
	buf = append(buf, bitmap...)
	buf = append(buf, fixed...)
	buf = append(buf, tail...)
	return buf
}

// Decode parses data against fields in schema order, returning a
// field-name-keyed map. A bitmap-marked-null field is omitted from the
// result rather than included as an explicit null Value, matching how
// Encode treats an absent field.
func Decode(data []byte, fields []schema.Field) (version int32, values map[string]value.Value, err error) {
	if len(data) < 5 {
		return 0, nil, ErrRowFormat
	}
	version = readI32(data[:4])
	nullBytes := int(data[4])
	rest := data[5:]
	if len(rest) < nullBytes {
		return 0, nil, ErrRowFormat
	}
	bitmap := rest[:nullBytes]
	fixed := rest[nullBytes:]

	values = make(map[string]value.Value, len(fields))
	type tailRef struct {
		name       string
		off, width uint32
	}
	var tailRefs []tailRef

	pos := 0
	for i, f := range fields {
		if bitmap[i/8]&(1<<uint(i%8)) != 0 {
			continue
		}
		switch f.Kind {
		case schema.FieldBool:
			if pos+1 > len(fixed) {
				return 0, nil, ErrRowFormat
			}
			values[f.Name] = value.Bool(fixed[pos] != 0)
			pos++
		case schema.FieldInt:
			n, ok := readU64At(fixed, pos)
			if !ok {
				return 0, nil, ErrRowFormat
			}
			values[f.Name] = value.Int(int64(n))
			pos += 8
		case schema.FieldFloat:
			n, ok := readU64At(fixed, pos)
			if !ok {
				return 0, nil, ErrRowFormat
			}
			values[f.Name] = value.Float(math.Float64frombits(n))
			pos += 8
		case schema.FieldDuration:
			d, n, ok := readDurationAt(fixed, pos)
			if !ok {
				return 0, nil, ErrRowFormat
			}
			values[f.Name] = value.DurationVal(d)
			pos += n
		case schema.FieldDate:
			d, n, ok := readDateAt(fixed, pos)
			if !ok {
				return 0, nil, ErrRowFormat
			}
			values[f.Name] = value.DateVal(d)
			pos += n
		case schema.FieldTime:
			tm, n, ok := readTimeAt(fixed, pos)
			if !ok {
				return 0, nil, ErrRowFormat
			}
			values[f.Name] = value.TimeVal(tm)
			pos += n
		case schema.FieldDateTime:
			d, n1, ok := readDateAt(fixed, pos)
			if !ok {
				return 0, nil, ErrRowFormat
			}
			pos += n1
			tm, n2, ok := readTimeAt(fixed, pos)
			if !ok {
				return 0, nil, ErrRowFormat
			}
			pos += n2
			values[f.Name] = value.DateTimeVal(value.DateTime{Date: d, Time: tm})
		case schema.FieldFixedString:
			if pos+f.FixedStrLen > len(fixed) {
				return 0, nil, ErrRowFormat
			}
			values[f.Name] = value.String(string(fixed[pos : pos+f.FixedStrLen]))
			pos += f.FixedStrLen
		case schema.FieldString:
			if pos+8 > len(fixed) {
				return 0, nil, ErrRowFormat
			}
			off := binary.LittleEndian.Uint32(fixed[pos : pos+4])
			width := binary.LittleEndian.Uint32(fixed[pos+4 : pos+8])
			pos += 8
			tailRefs = append(tailRefs, tailRef{f.Name, off, width})
		}
	}

	tail := fixed[pos:]
	for _, ref := range tailRefs {
		if uint64(ref.off)+uint64(ref.width) > uint64(len(tail)) {
			return 0, nil, ErrRowFormat
		}
		values[ref.name] = value.String(string(tail[ref.off : ref.off+ref.width]))
	}
	return version, values, nil
}

// TTLExpired reports whether a decoded row has outlived ttl.Column's
// value, measured as an epoch-seconds int from now (§4.3 "compute
// expiry from the row's TTL column").
func TTLExpired(values map[string]value.Value, ttl *schema.TTL, now time.Time) bool {
	if ttl == nil {
		return false
	}
	v, ok := values[ttl.Column]
	if !ok {
		return false
	}
	ts, ok := v.AsInt()
	if !ok {
		return false
	}
	createdAt := time.Unix(ts, 0)
	return now.Sub(createdAt) > time.Duration(ttl.DurationSeconds)*time.Second
}

func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendI32(buf []byte, v int32) []byte { return appendU32(buf, uint32(v)) }

func readI32(b []byte) int32 { return int32(binary.LittleEndian.Uint32(b)) }

func readU64At(b []byte, pos int) (uint64, bool) {
	if pos+8 > len(b) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b[pos : pos+8]), true
}

func appendDate(buf []byte, d value.Date) []byte {
	buf = appendI32(buf, int32(d.Year))
	buf = append(buf, d.Month, d.Day)
	return buf
}

func readDateAt(b []byte, pos int) (value.Date, int, bool) {
	if pos+6 > len(b) {
		return value.Date{}, 0, false
	}
	year := readI32(b[pos : pos+4])
	return value.Date{Year: int16(year), Month: b[pos+4], Day: b[pos+5]}, 6, true
}

func appendTime(buf []byte, t value.Time) []byte {
	buf = append(buf, t.Hour, t.Minute, t.Second)
	return appendU32(buf, t.Microsec)
}

func readTimeAt(b []byte, pos int) (value.Time, int, bool) {
	if pos+7 > len(b) {
		return value.Time{}, 0, false
	}
	micros := binary.LittleEndian.Uint32(b[pos+3 : pos+7])
	return value.Time{Hour: b[pos], Minute: b[pos+1], Second: b[pos+2], Microsec: micros}, 7, true
}

func appendDuration(buf []byte, d value.Duration) []byte {
	buf = appendI32(buf, d.Months)
	buf = appendI32(buf, d.Days)
	return appendU64(buf, uint64(d.Micros))
}

func readDurationAt(b []byte, pos int) (value.Duration, int, bool) {
	if pos+16 > len(b) {
		return value.Duration{}, 0, false
	}
	months := readI32(b[pos : pos+4])
	days := readI32(b[pos+4 : pos+8])
	micros := binary.LittleEndian.Uint64(b[pos+8 : pos+16])
	return value.Duration{Months: months, Days: days, Micros: int64(micros)}, 16, true
}
