// Package value implements the tagged Value variant every expression,
// storage row, and RPC reply in graphd is built from (spec.md §4.1).
//
// A Value never panics on misuse: a bad operation produces a Null of the
// appropriate sub-kind instead of an error return, the same contract
// OPA's topdown evaluator gives undefined results for a type mismatch
// rather than raising (see topdown/eq.go, topdown/arithmetic.go).
package value

import "fmt"

// Kind discriminates the variant stored in a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindEmpty
	KindBool
	KindInt
	KindFloat
	KindString
	KindDate
	KindTime
	KindDateTime
	KindDuration
	KindVertex
	KindEdge
	KindPath
	KindList
	KindMap
	KindSet
	KindDataSet
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindEmpty:
		return "EMPTY"
	case KindBool:
		return "BOOL"
	case KindInt:
		return "INT"
	case KindFloat:
		return "FLOAT"
	case KindString:
		return "STRING"
	case KindDate:
		return "DATE"
	case KindTime:
		return "TIME"
	case KindDateTime:
		return "DATETIME"
	case KindDuration:
		return "DURATION"
	case KindVertex:
		return "VERTEX"
	case KindEdge:
		return "EDGE"
	case KindPath:
		return "PATH"
	case KindList:
		return "LIST"
	case KindMap:
		return "MAP"
	case KindSet:
		return "SET"
	case KindDataSet:
		return "DATASET"
	default:
		return "UNKNOWN"
	}
}

// NullKind distinguishes the reasons a Null value was produced (§4.1:
// "unknown-prop, bad-type, bad-data, out-of-range, div-by-zero").
type NullKind uint8

const (
	NullDefault NullKind = iota
	NullUnknownProp
	NullBadType
	NullBadData
	NullOutOfRange
	NullDivByZero
)

func (n NullKind) String() string {
	switch n {
	case NullUnknownProp:
		return "__NULL_UNKNOWN_PROP__"
	case NullBadType:
		return "__NULL_BAD_TYPE__"
	case NullBadData:
		return "__NULL_BAD_DATA__"
	case NullOutOfRange:
		return "__NULL_OUT_OF_RANGE__"
	case NullDivByZero:
		return "__NULL_DIV_BY_ZERO__"
	default:
		return "__NULL__"
	}
}

// Date is a calendar date with no time-of-day component.
type Date struct {
	Year  int16
	Month uint8
	Day   uint8
}

// Time is a time-of-day with microsecond resolution, no date component.
type Time struct {
	Hour       uint8
	Minute     uint8
	Second     uint8
	Microsec   uint32
}

// DateTime combines Date and Time, always in UTC (spec carries no
// timezone-offset requirement beyond storage as absolute UTC instants).
type DateTime struct {
	Date
	Time
}

// Duration is a signed span with month/day/microsecond components kept
// separate, the way calendar arithmetic (month) differs from fixed-length
// arithmetic (microsecond); grounded on original_source's Duration value
// kind (3.1 of SPEC_FULL.md).
type Duration struct {
	Months   int32
	Days     int32
	Micros   int64
}

// Tag is one property-set attached to a Vertex under a tag id.
type Tag struct {
	TagID uint32
	Props map[string]Value
}

// Vertex is a graph vertex: an id plus every tag currently attached.
type Vertex struct {
	ID   Value
	Tags []Tag
}

// Edge is one directed edge instance.
type Edge struct {
	Type  int32 // positive: outgoing: negative: the stored reverse edge.
	Src   Value
	Dst   Value
	Rank  int64
	Props map[string]Value
}

// Path alternates Vertex / Edge values starting and ending on a Vertex.
type Path struct {
	Src   Vertex
	Steps []PathStep
}

// PathStep is one (edge, destination-vertex) hop of a Path.
type PathStep struct {
	Edge Edge
	Dst  Vertex
}

// Value is the tagged variant described in spec.md §4.1. Construction
// always goes through the New* constructors below; the zero Value is a
// default Null, which is intentionally the useful zero value.
type Value struct {
	kind Kind

	null NullKind
	b    bool
	i    int64
	f    float64
	s    string
	date Date
	tod  Time
	dt   DateTime
	dur  Duration

	vertex *Vertex
	edge   *Edge
	path   *Path
	list   []Value
	vmap   map[string]Value
	set    []Value // a set is a list with Equal-deduplication maintained by callers
	ds     *DataSet
}

// DataSet is a tabular result set value (used by subqueries/aggregation
// pipelines that materialize a nested result table as a single Value).
type DataSet struct {
	ColumnNames []string
	Rows        [][]Value
}

func Null(k NullKind) Value          { return Value{kind: KindNull, null: k} }
func Empty() Value                   { return Value{kind: KindEmpty} }
func Bool(b bool) Value              { return Value{kind: KindBool, b: b} }
func Int(i int64) Value              { return Value{kind: KindInt, i: i} }
func Float(f float64) Value          { return Value{kind: KindFloat, f: f} }
func String(s string) Value          { return Value{kind: KindString, s: s} }
func DateVal(d Date) Value           { return Value{kind: KindDate, date: d} }
func TimeVal(t Time) Value           { return Value{kind: KindTime, tod: t} }
func DateTimeVal(dt DateTime) Value  { return Value{kind: KindDateTime, dt: dt} }
func DurationVal(d Duration) Value   { return Value{kind: KindDuration, dur: d} }
func VertexVal(v Vertex) Value       { return Value{kind: KindVertex, vertex: &v} }
func EdgeVal(e Edge) Value           { return Value{kind: KindEdge, edge: &e} }
func PathVal(p Path) Value           { return Value{kind: KindPath, path: &p} }
func List(items []Value) Value       { return Value{kind: KindList, list: items} }
func Map(m map[string]Value) Value   { return Value{kind: KindMap, vmap: m} }
func Set(items []Value) Value        { return Value{kind: KindSet, set: items} }
func DataSetVal(ds DataSet) Value    { return Value{kind: KindDataSet, ds: &ds} }

// Kind reports the variant currently stored.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the Null variant (of any sub-kind).
func (v Value) IsNull() bool { return v.kind == KindNull }

// NullKind reports the Null sub-kind; meaningless unless IsNull is true.
func (v Value) NullKind() NullKind { return v.null }

func (v Value) AsBool() (bool, bool)         { return v.b, v.kind == KindBool }
func (v Value) AsInt() (int64, bool)         { return v.i, v.kind == KindInt }
func (v Value) AsFloat() (float64, bool)     { return v.f, v.kind == KindFloat }
func (v Value) AsString() (string, bool)     { return v.s, v.kind == KindString }
func (v Value) AsDate() (Date, bool)         { return v.date, v.kind == KindDate }
func (v Value) AsTime() (Time, bool)         { return v.tod, v.kind == KindTime }
func (v Value) AsDateTime() (DateTime, bool) { return v.dt, v.kind == KindDateTime }
func (v Value) AsDuration() (Duration, bool) { return v.dur, v.kind == KindDuration }

func (v Value) AsVertex() (*Vertex, bool) { return v.vertex, v.kind == KindVertex }
func (v Value) AsEdge() (*Edge, bool)     { return v.edge, v.kind == KindEdge }
func (v Value) AsPath() (*Path, bool)     { return v.path, v.kind == KindPath }
func (v Value) AsList() ([]Value, bool)   { return v.list, v.kind == KindList }
func (v Value) AsMap() (map[string]Value, bool) { return v.vmap, v.kind == KindMap }
func (v Value) AsSet() ([]Value, bool)    { return v.set, v.kind == KindSet }
func (v Value) AsDataSet() (*DataSet, bool) { return v.ds, v.kind == KindDataSet }

// Truthy implements the "is a value truthy" rule filter/where clauses
// need: bools are themselves, numbers are non-zero, strings/list/map/set
// are non-empty, everything else (including Null) is false.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindString:
		return v.s != ""
	case KindList:
		return len(v.list) > 0
	case KindSet:
		return len(v.set) > 0
	case KindMap:
		return len(v.vmap) > 0
	default:
		return false
	}
}

// String renders a debug-oriented textual form; not a serialization
// format.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return v.null.String()
	case KindEmpty:
		return "_EMPTY_"
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	case KindDate:
		return fmt.Sprintf("%04d-%02d-%02d", v.date.Year, v.date.Month, v.date.Day)
	case KindTime:
		return fmt.Sprintf("%02d:%02d:%02d.%06d", v.tod.Hour, v.tod.Minute, v.tod.Second, v.tod.Microsec)
	case KindDateTime:
		return fmt.Sprintf("%s %s", DateVal(v.dt.Date), TimeVal(v.dt.Time))
	case KindDuration:
		return fmt.Sprintf("P%dM%dDT%dus", v.dur.Months, v.dur.Days, v.dur.Micros)
	case KindVertex:
		return fmt.Sprintf("Vertex(%s)", v.vertex.ID)
	case KindEdge:
		return fmt.Sprintf("Edge(%d:%s->%s@%d)", v.edge.Type, v.edge.Src, v.edge.Dst, v.edge.Rank)
	case KindPath:
		return fmt.Sprintf("Path(%d steps)", len(v.path.Steps))
	case KindList:
		return fmt.Sprintf("%v", v.list)
	case KindMap:
		return fmt.Sprintf("%v", v.vmap)
	case KindSet:
		return fmt.Sprintf("%v", v.set)
	case KindDataSet:
		return fmt.Sprintf("DataSet(%d cols, %d rows)", len(v.ds.ColumnNames), len(v.ds.Rows))
	default:
		return "?"
	}
}
