package value

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrCodec reports malformed binary Value encodings.
var ErrCodec = errors.New("value: malformed encoding")

// Encode produces a stable binary encoding of v, suitable for shipping a
// constant embedded in a query plan between the graph service and a
// storage host (§4.1 "stable binary encoding/decoding (for plan
// shipping)"). The wire format is a tag byte followed by a kind-specific
// body; multi-byte integers are big-endian (unlike storagekey's key
// fields, which are little-endian).
func Encode(v Value) []byte {
	var buf bytes.Buffer
	encodeInto(&buf, v)
	return buf.Bytes()
}

func encodeInto(buf *bytes.Buffer, v Value) {
	buf.WriteByte(byte(v.kind))
	switch v.kind {
	case KindNull:
		buf.WriteByte(byte(v.null))
	case KindEmpty:
	case KindBool:
		if v.b {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case KindInt:
		writeI64(buf, v.i)
	case KindFloat:
		writeU64(buf, math.Float64bits(v.f))
	case KindString:
		writeString(buf, v.s)
	case KindDate:
		writeI16(buf, v.date.Year)
		buf.WriteByte(v.date.Month)
		buf.WriteByte(v.date.Day)
	case KindTime:
		buf.WriteByte(v.tod.Hour)
		buf.WriteByte(v.tod.Minute)
		buf.WriteByte(v.tod.Second)
		writeU32(buf, v.tod.Microsec)
	case KindDateTime:
		writeI16(buf, v.dt.Year)
		buf.WriteByte(v.dt.Month)
		buf.WriteByte(v.dt.Day)
		buf.WriteByte(v.dt.Hour)
		buf.WriteByte(v.dt.Minute)
		buf.WriteByte(v.dt.Second)
		writeU32(buf, v.dt.Microsec)
	case KindDuration:
		writeI32(buf, v.dur.Months)
		writeI32(buf, v.dur.Days)
		writeI64(buf, v.dur.Micros)
	case KindList, KindSet:
		items := v.list
		if v.kind == KindSet {
			items = v.set
		}
		writeU32(buf, uint32(len(items)))
		for _, it := range items {
			encodeInto(buf, it)
		}
	case KindMap:
		writeU32(buf, uint32(len(v.vmap)))
		for k, val := range v.vmap {
			writeString(buf, k)
			encodeInto(buf, val)
		}
	case KindVertex:
		encodeInto(buf, v.vertex.ID)
		writeU32(buf, uint32(len(v.vertex.Tags)))
		for _, tag := range v.vertex.Tags {
			writeU32(buf, tag.TagID)
			writeU32(buf, uint32(len(tag.Props)))
			for k, val := range tag.Props {
				writeString(buf, k)
				encodeInto(buf, val)
			}
		}
	case KindEdge:
		writeI32(buf, v.edge.Type)
		encodeInto(buf, v.edge.Src)
		encodeInto(buf, v.edge.Dst)
		writeI64(buf, v.edge.Rank)
		writeU32(buf, uint32(len(v.edge.Props)))
		for k, val := range v.edge.Props {
			writeString(buf, k)
			encodeInto(buf, val)
		}
	case KindPath:
		encodeInto(buf, VertexVal(v.path.Src))
		writeU32(buf, uint32(len(v.path.Steps)))
		for _, step := range v.path.Steps {
			encodeInto(buf, EdgeVal(step.Edge))
			encodeInto(buf, VertexVal(step.Dst))
		}
	case KindDataSet:
		writeU32(buf, uint32(len(v.ds.ColumnNames)))
		for _, c := range v.ds.ColumnNames {
			writeString(buf, c)
		}
		writeU32(buf, uint32(len(v.ds.Rows)))
		for _, row := range v.ds.Rows {
			writeU32(buf, uint32(len(row)))
			for _, cell := range row {
				encodeInto(buf, cell)
			}
		}
	}
}

// Decode parses the format Encode produces.
func Decode(data []byte) (Value, int, error) {
	r := bytes.NewReader(data)
	v, err := decodeFrom(r)
	if err != nil {
		return Value{}, 0, err
	}
	return v, len(data) - r.Len(), nil
}

func decodeFrom(r *bytes.Reader) (Value, error) {
	kindByte, err := r.ReadByte()
	if err != nil {
		return Value{}, ErrCodec
	}
	k := Kind(kindByte)
	switch k {
	case KindNull:
		nb, err := r.ReadByte()
		if err != nil {
			return Value{}, ErrCodec
		}
		return Null(NullKind(nb)), nil
	case KindEmpty:
		return Empty(), nil
	case KindBool:
		b, err := r.ReadByte()
		if err != nil {
			return Value{}, ErrCodec
		}
		return Bool(b != 0), nil
	case KindInt:
		i, err := readI64(r)
		if err != nil {
			return Value{}, err
		}
		return Int(i), nil
	case KindFloat:
		u, err := readU64(r)
		if err != nil {
			return Value{}, err
		}
		return Float(math.Float64frombits(u)), nil
	case KindString:
		s, err := readString(r)
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	case KindDate:
		d, err := readDate(r)
		if err != nil {
			return Value{}, err
		}
		return DateVal(d), nil
	case KindTime:
		t, err := readTime(r)
		if err != nil {
			return Value{}, err
		}
		return TimeVal(t), nil
	case KindDateTime:
		d, err := readDate16(r)
		if err != nil {
			return Value{}, err
		}
		t, err := readTimeNoErr(r)
		if err != nil {
			return Value{}, err
		}
		return DateTimeVal(DateTime{Date: d, Time: t}), nil
	case KindDuration:
		months, err := readI32(r)
		if err != nil {
			return Value{}, err
		}
		days, err := readI32(r)
		if err != nil {
			return Value{}, err
		}
		micros, err := readI64(r)
		if err != nil {
			return Value{}, err
		}
		return DurationVal(Duration{Months: months, Days: days, Micros: micros}), nil
	case KindList, KindSet:
		n, err := readU32(r)
		if err != nil {
			return Value{}, err
		}
		items := make([]Value, n)
		for i := range items {
			items[i], err = decodeFrom(r)
			if err != nil {
				return Value{}, err
			}
		}
		if k == KindSet {
			return Set(items), nil
		}
		return List(items), nil
	case KindMap:
		n, err := readU32(r)
		if err != nil {
			return Value{}, err
		}
		m := make(map[string]Value, n)
		for i := uint32(0); i < n; i++ {
			key, err := readString(r)
			if err != nil {
				return Value{}, err
			}
			val, err := decodeFrom(r)
			if err != nil {
				return Value{}, err
			}
			m[key] = val
		}
		return Map(m), nil
	case KindVertex:
		id, err := decodeFrom(r)
		if err != nil {
			return Value{}, err
		}
		ntags, err := readU32(r)
		if err != nil {
			return Value{}, err
		}
		tags := make([]Tag, ntags)
		for i := range tags {
			tagID, err := readU32(r)
			if err != nil {
				return Value{}, err
			}
			nprops, err := readU32(r)
			if err != nil {
				return Value{}, err
			}
			props := make(map[string]Value, nprops)
			for j := uint32(0); j < nprops; j++ {
				key, err := readString(r)
				if err != nil {
					return Value{}, err
				}
				val, err := decodeFrom(r)
				if err != nil {
					return Value{}, err
				}
				props[key] = val
			}
			tags[i] = Tag{TagID: tagID, Props: props}
		}
		return VertexVal(Vertex{ID: id, Tags: tags}), nil
	case KindEdge:
		typ, err := readI32(r)
		if err != nil {
			return Value{}, err
		}
		src, err := decodeFrom(r)
		if err != nil {
			return Value{}, err
		}
		dst, err := decodeFrom(r)
		if err != nil {
			return Value{}, err
		}
		rank, err := readI64(r)
		if err != nil {
			return Value{}, err
		}
		nprops, err := readU32(r)
		if err != nil {
			return Value{}, err
		}
		props := make(map[string]Value, nprops)
		for j := uint32(0); j < nprops; j++ {
			key, err := readString(r)
			if err != nil {
				return Value{}, err
			}
			val, err := decodeFrom(r)
			if err != nil {
				return Value{}, err
			}
			props[key] = val
		}
		return EdgeVal(Edge{Type: typ, Src: src, Dst: dst, Rank: rank, Props: props}), nil
	case KindPath:
		srcV, err := decodeFrom(r)
		if err != nil {
			return Value{}, err
		}
		srcVertex, ok := srcV.AsVertex()
		if !ok {
			return Value{}, ErrCodec
		}
		nsteps, err := readU32(r)
		if err != nil {
			return Value{}, err
		}
		steps := make([]PathStep, nsteps)
		for i := range steps {
			ev, err := decodeFrom(r)
			if err != nil {
				return Value{}, err
			}
			dv, err := decodeFrom(r)
			if err != nil {
				return Value{}, err
			}
			edge, ok1 := ev.AsEdge()
			dst, ok2 := dv.AsVertex()
			if !ok1 || !ok2 {
				return Value{}, ErrCodec
			}
			steps[i] = PathStep{Edge: *edge, Dst: *dst}
		}
		return PathVal(Path{Src: *srcVertex, Steps: steps}), nil
	case KindDataSet:
		ncols, err := readU32(r)
		if err != nil {
			return Value{}, err
		}
		cols := make([]string, ncols)
		for i := range cols {
			cols[i], err = readString(r)
			if err != nil {
				return Value{}, err
			}
		}
		nrows, err := readU32(r)
		if err != nil {
			return Value{}, err
		}
		rows := make([][]Value, nrows)
		for i := range rows {
			ncells, err := readU32(r)
			if err != nil {
				return Value{}, err
			}
			row := make([]Value, ncells)
			for j := range row {
				row[j], err = decodeFrom(r)
				if err != nil {
					return Value{}, err
				}
			}
			rows[i] = row
		}
		return DataSetVal(DataSet{ColumnNames: cols, Rows: rows}), nil
	default:
		return Value{}, fmt.Errorf("%w: unknown kind byte %d", ErrCodec, kindByte)
	}
}

func readDate(r *bytes.Reader) (Date, error) { return readDate16(r) }

func readDate16(r *bytes.Reader) (Date, error) {
	year, err := readI16(r)
	if err != nil {
		return Date{}, err
	}
	month, err := r.ReadByte()
	if err != nil {
		return Date{}, ErrCodec
	}
	day, err := r.ReadByte()
	if err != nil {
		return Date{}, ErrCodec
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

func readTime(r *bytes.Reader) (Time, error) { return readTimeNoErr(r) }

func readTimeNoErr(r *bytes.Reader) (Time, error) {
	hour, err := r.ReadByte()
	if err != nil {
		return Time{}, ErrCodec
	}
	min, err := r.ReadByte()
	if err != nil {
		return Time{}, ErrCodec
	}
	sec, err := r.ReadByte()
	if err != nil {
		return Time{}, ErrCodec
	}
	micro, err := readU32(r)
	if err != nil {
		return Time{}, err
	}
	return Time{Hour: hour, Minute: min, Second: sec, Microsec: micro}, nil
}

func writeString(buf *bytes.Buffer, s string) {
	writeU32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := r.Read(b); err != nil && n > 0 {
		return "", ErrCodec
	}
	return string(b), nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, ErrCodec
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func writeI32(buf *bytes.Buffer, v int32) { writeU32(buf, uint32(v)) }

func readI32(r *bytes.Reader) (int32, error) {
	u, err := readU32(r)
	return int32(u), err
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func readU64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, ErrCodec
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func writeI64(buf *bytes.Buffer, v int64) { writeU64(buf, uint64(v)) }

func readI64(r *bytes.Reader) (int64, error) {
	u, err := readU64(r)
	return int64(u), err
}

func writeI16(buf *bytes.Buffer, v int16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(v))
	buf.Write(b[:])
}

func readI16(r *bytes.Reader) (int16, error) {
	var b [2]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, ErrCodec
	}
	return int16(binary.BigEndian.Uint16(b[:])), nil
}
