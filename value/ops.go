package value

// Equal implements structural equality. Values of different Kind are
// never equal, including numeric cross-kind comparisons (Int(1) !=
// Float(1.0)): §4.1's relational operators handle numeric promotion at
// the expression layer, not here.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return a.null == b.null
	case KindEmpty:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f
	case KindString:
		return a.s == b.s
	case KindDate:
		return a.date == b.date
	case KindTime:
		return a.tod == b.tod
	case KindDateTime:
		return a.dt == b.dt
	case KindDuration:
		return a.dur == b.dur
	case KindVertex:
		return equalVertex(a.vertex, b.vertex)
	case KindEdge:
		return equalEdge(a.edge, b.edge)
	case KindPath:
		return equalPath(a.path, b.path)
	case KindList:
		return equalSlice(a.list, b.list)
	case KindSet:
		return equalSetSlice(a.set, b.set)
	case KindMap:
		return equalMap(a.vmap, b.vmap)
	case KindDataSet:
		return equalDataSet(a.ds, b.ds)
	default:
		return false
	}
}

func equalVertex(a, b *Vertex) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !Equal(a.ID, b.ID) || len(a.Tags) != len(b.Tags) {
		return false
	}
	for i := range a.Tags {
		if a.Tags[i].TagID != b.Tags[i].TagID || !equalMap(a.Tags[i].Props, b.Tags[i].Props) {
			return false
		}
	}
	return true
}

func equalEdge(a, b *Edge) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Type == b.Type && Equal(a.Src, b.Src) && Equal(a.Dst, b.Dst) &&
		a.Rank == b.Rank && equalMap(a.Props, b.Props)
}

func equalPath(a, b *Path) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !equalVertex(&a.Src, &b.Src) || len(a.Steps) != len(b.Steps) {
		return false
	}
	for i := range a.Steps {
		if !equalEdge(&a.Steps[i].Edge, &b.Steps[i].Edge) || !equalVertex(&a.Steps[i].Dst, &b.Steps[i].Dst) {
			return false
		}
	}
	return true
}

func equalSlice(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// equalSetSlice compares sets order-independently, matching the graph
// database's "a set is an unordered collection" semantics.
func equalSetSlice(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
	for _, av := range a {
		found := false
		for j, bv := range b {
			if !used[j] && Equal(av, bv) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func equalMap(a, b map[string]Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !Equal(av, bv) {
			return false
		}
	}
	return true
}

func equalDataSet(a, b *DataSet) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.ColumnNames) != len(b.ColumnNames) || len(a.Rows) != len(b.Rows) {
		return false
	}
	for i := range a.ColumnNames {
		if a.ColumnNames[i] != b.ColumnNames[i] {
			return false
		}
	}
	for i := range a.Rows {
		if !equalSlice(a.Rows[i], b.Rows[i]) {
			return false
		}
	}
	return true
}

// Clone performs a deep copy, required wherever a Value crosses an
// ownership boundary (e.g. cache insertion, plan shipping).
func Clone(v Value) Value {
	switch v.kind {
	case KindVertex:
		nv := *v.vertex
		nv.Tags = append([]Tag(nil), v.vertex.Tags...)
		for i := range nv.Tags {
			nv.Tags[i].Props = cloneMap(nv.Tags[i].Props)
		}
		return Value{kind: KindVertex, vertex: &nv}
	case KindEdge:
		ne := *v.edge
		ne.Props = cloneMap(v.edge.Props)
		return Value{kind: KindEdge, edge: &ne}
	case KindPath:
		np := Path{Src: v.path.Src}
		np.Src.Tags = append([]Tag(nil), v.path.Src.Tags...)
		np.Steps = make([]PathStep, len(v.path.Steps))
		for i, st := range v.path.Steps {
			st.Edge.Props = cloneMap(st.Edge.Props)
			st.Dst.Tags = append([]Tag(nil), st.Dst.Tags...)
			np.Steps[i] = st
		}
		return Value{kind: KindPath, path: &np}
	case KindList:
		return Value{kind: KindList, list: cloneSlice(v.list)}
	case KindSet:
		return Value{kind: KindSet, set: cloneSlice(v.set)}
	case KindMap:
		return Value{kind: KindMap, vmap: cloneMap(v.vmap)}
	case KindDataSet:
		nds := DataSet{ColumnNames: append([]string(nil), v.ds.ColumnNames...)}
		nds.Rows = make([][]Value, len(v.ds.Rows))
		for i, row := range v.ds.Rows {
			nds.Rows[i] = cloneSlice(row)
		}
		return Value{kind: KindDataSet, ds: &nds}
	default:
		return v // scalar kinds are already value types.
	}
}

func cloneSlice(s []Value) []Value {
	if s == nil {
		return nil
	}
	out := make([]Value, len(s))
	for i, v := range s {
		out[i] = Clone(v)
	}
	return out
}

func cloneMap(m map[string]Value) map[string]Value {
	if m == nil {
		return nil
	}
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = Clone(v)
	}
	return out
}

// Add implements "+" pointwise per §4.1: numeric addition for int/float
// (mixed promotes to float), string concatenation for strings, list
// concatenation for lists; everything else is a bad-type Null.
func Add(a, b Value) Value {
	if a.IsNull() {
		return a
	}
	if b.IsNull() {
		return b
	}
	switch {
	case a.kind == KindInt && b.kind == KindInt:
		return Int(a.i + b.i)
	case isNumeric(a) && isNumeric(b):
		return Float(numeric(a) + numeric(b))
	case a.kind == KindString && b.kind == KindString:
		return String(a.s + b.s)
	case a.kind == KindList && b.kind == KindList:
		out := append(append([]Value(nil), a.list...), b.list...)
		return List(out)
	default:
		return Null(NullBadType)
	}
}

// Sub, Mul, Div, Mod mirror Add's numeric-only pointwise contract.
func Sub(a, b Value) Value { return numericOp(a, b, func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y }) }
func Mul(a, b Value) Value { return numericOp(a, b, func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y }) }

func Div(a, b Value) Value {
	if a.IsNull() {
		return a
	}
	if b.IsNull() {
		return b
	}
	if !isNumeric(a) || !isNumeric(b) {
		return Null(NullBadType)
	}
	if a.kind == KindInt && b.kind == KindInt {
		if b.i == 0 {
			return Null(NullDivByZero)
		}
		return Int(a.i / b.i)
	}
	bf := numeric(b)
	if bf == 0 {
		return Null(NullDivByZero)
	}
	return Float(numeric(a) / bf)
}

func Mod(a, b Value) Value {
	if a.IsNull() {
		return a
	}
	if b.IsNull() {
		return b
	}
	if a.kind != KindInt || b.kind != KindInt {
		return Null(NullBadType)
	}
	if b.i == 0 {
		return Null(NullDivByZero)
	}
	return Int(a.i % b.i)
}

func numericOp(a, b Value, intOp func(int64, int64) int64, floatOp func(float64, float64) float64) Value {
	if a.IsNull() {
		return a
	}
	if b.IsNull() {
		return b
	}
	switch {
	case a.kind == KindInt && b.kind == KindInt:
		return Int(intOp(a.i, b.i))
	case isNumeric(a) && isNumeric(b):
		return Float(floatOp(numeric(a), numeric(b)))
	default:
		return Null(NullBadType)
	}
}

func isNumeric(v Value) bool { return v.kind == KindInt || v.kind == KindFloat }

func numeric(v Value) float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// Neg implements unary "-".
func Neg(a Value) Value {
	switch a.kind {
	case KindInt:
		return Int(-a.i)
	case KindFloat:
		return Float(-a.f)
	case KindNull:
		return a
	default:
		return Null(NullBadType)
	}
}

// Not implements unary "!"/"not": defined only over Bool, bad-type Null
// otherwise, Null propagates per §4.1.
func Not(a Value) Value {
	switch a.kind {
	case KindBool:
		return Bool(!a.b)
	case KindNull:
		return a
	default:
		return Null(NullBadType)
	}
}

// Compare returns -1/0/1 the way sort routines expect, plus ok=false if
// a and b are not pointwise comparable (different kind, or a kind with
// no total order such as Map/Set/List/DataSet).
func Compare(a, b Value) (cmp int, ok bool) {
	switch {
	case a.kind == KindInt && b.kind == KindInt:
		return sign(a.i - b.i), true
	case isNumeric(a) && isNumeric(b):
		fa, fb := numeric(a), numeric(b)
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	case a.kind == KindString && b.kind == KindString:
		switch {
		case a.s < b.s:
			return -1, true
		case a.s > b.s:
			return 1, true
		default:
			return 0, true
		}
	case a.kind == KindBool && b.kind == KindBool:
		switch {
		case a.b == b.b:
			return 0, true
		case !a.b:
			return -1, true
		default:
			return 1, true
		}
	default:
		return 0, false
	}
}

func sign(d int64) int {
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	default:
		return 0
	}
}
