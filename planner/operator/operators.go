package operator

import "github.com/graphkv/graphd/expression"

// Direction selects which signed edge types a Traverse step follows
// (§3 glossary "Edge type... stored with signed id to encode
// direction").
type Direction uint8

const (
	DirOutgoing Direction = iota
	DirIncoming
	DirBoth
)

// StepRange bounds a Traverse's hop count (used by variable-length
// patterns; a fixed single hop is StepRange{Min: 1, Max: 1}).
type StepRange struct {
	Min, Max int
}

// Traverse expands one hop from its input's bound vertex, following
// EdgeTypes in Direction, applying VertexFilter/EdgeFilter, and
// emitting a column per NodeAlias/EdgeAlias (§4.6 match-path planner).
// TrackPrevPath carries the accumulated path forward for a later path
// alias projection.
type Traverse struct {
	base
	Input         ID
	EdgeTypes     []int32
	Direction     Direction
	VertexFilter  expression.Expr
	EdgeFilter    expression.Expr
	Steps         StepRange
	TrackPrevPath bool
	NodeAlias     string
	EdgeAlias     string
}

func (t *Traverse) Kind() Kind        { return KindTraverse }
func (t *Traverse) Inputs() []ID      { return []ID{t.Input} }
func (t *Traverse) SingleInput() bool { return true }
func (t *Traverse) Columns() []Column {
	cols := []Column{{Name: t.EdgeAlias, Kind: ColumnEdge}, {Name: t.NodeAlias, Kind: ColumnVertex}}
	if t.TrackPrevPath {
		cols = append(cols, Column{Name: t.NodeAlias + "._path", Kind: ColumnPath})
	}
	return cols
}

// AppendVertices materializes the terminal node of a match path,
// following the last Traverse hop (§4.6).
type AppendVertices struct {
	base
	Input       ID
	VertexAlias string
}

func (a *AppendVertices) Kind() Kind        { return KindAppendVertices }
func (a *AppendVertices) Inputs() []ID      { return []ID{a.Input} }
func (a *AppendVertices) SingleInput() bool { return true }
func (a *AppendVertices) Columns() []Column {
	return []Column{{Name: a.VertexAlias, Kind: ColumnVertex}}
}

// Filter drops rows Pred evaluates falsy for. Stable requests a
// stability-preserving implementation when the current column layout
// is order-sensitive (§4.6 where planner).
type Filter struct {
	base
	Input  ID
	Pred   expression.Expr
	Stable bool
}

func (f *Filter) Kind() Kind        { return KindFilter }
func (f *Filter) Inputs() []ID      { return []ID{f.Input} }
func (f *Filter) SingleInput() bool { return true }
func (f *Filter) Columns() []Column { return nil } // passthrough: same columns as Input

// Project selects (and may rename) a subset of its input's columns.
type Project struct {
	base
	Input   ID
	Columns_ []ProjectColumn
}

// ProjectColumn is one output column of a Project: an input column
// name optionally renamed via As.
type ProjectColumn struct {
	Name string
	As   string
}

func (p *Project) Kind() Kind        { return KindProject }
func (p *Project) Inputs() []ID      { return []ID{p.Input} }
func (p *Project) SingleInput() bool { return true }
func (p *Project) Columns() []Column {
	cols := make([]Column, 0, len(p.Columns_))
	for _, c := range p.Columns_ {
		name := c.Name
		if c.As != "" {
			name = c.As
		}
		cols = append(cols, Column{Name: name, Kind: ColumnAny})
	}
	return cols
}

// AggItem is one aggregate computed per group (sum/avg/count/min/max/
// collect/std, per §4.1's seeded aggregate registry).
type AggItem struct {
	Func string
	Arg  expression.Expr
	As   string
}

// Aggregate groups rows by GroupKeys and computes GroupItems per
// group (§4.6 with/return planner, "emits Aggregate with group keys
// and group items, optionally followed by Project").
type Aggregate struct {
	base
	Input      ID
	GroupKeys  []string
	GroupItems []AggItem
}

func (a *Aggregate) Kind() Kind        { return KindAggregate }
func (a *Aggregate) Inputs() []ID      { return []ID{a.Input} }
func (a *Aggregate) SingleInput() bool { return true }
func (a *Aggregate) Columns() []Column {
	cols := make([]Column, 0, len(a.GroupKeys)+len(a.GroupItems))
	for _, k := range a.GroupKeys {
		cols = append(cols, Column{Name: k, Kind: ColumnAny})
	}
	for _, it := range a.GroupItems {
		cols = append(cols, Column{Name: it.As, Kind: ColumnAny})
	}
	return cols
}

// Dedup removes duplicate rows, comparing the named Columns_ (§4.6
// with/return planner "optional distinct (dedup)").
type Dedup struct {
	base
	Input    ID
	Columns_ []string
}

func (d *Dedup) Kind() Kind        { return KindDedup }
func (d *Dedup) Inputs() []ID      { return []ID{d.Input} }
func (d *Dedup) SingleInput() bool { return true }
func (d *Dedup) Columns() []Column { return nil } // passthrough

// SortColumn is one Sort key.
type SortColumn struct {
	Name string
	Desc bool
}

// Sort orders rows by Columns_ in sequence (§4.6 order-by planner).
type Sort struct {
	base
	Input    ID
	Columns_ []SortColumn
}

func (s *Sort) Kind() Kind        { return KindSort }
func (s *Sort) Inputs() []ID      { return []ID{s.Input} }
func (s *Sort) SingleInput() bool { return true }
func (s *Sort) Columns() []Column { return nil } // passthrough

// Limit bounds and offsets the row count (§4.6 pagination planner).
type Limit struct {
	base
	Input  ID
	Offset int64
	Count  int64
}

func (l *Limit) Kind() Kind        { return KindLimit }
func (l *Limit) Inputs() []ID      { return []ID{l.Input} }
func (l *Limit) SingleInput() bool { return true }
func (l *Limit) Columns() []Column { return nil } // passthrough

// Sampling keeps Count rows of its input (§4.6 sampling planner). The
// executor takes the first Count rows in input order; it makes no
// random choice.
type Sampling struct {
	base
	Input ID
	Count int64
}

func (s *Sampling) Kind() Kind        { return KindLimit } // shares Limit's physical shape; §4.6 names it distinctly at the clause-planner level only
func (s *Sampling) Inputs() []ID      { return []ID{s.Input} }
func (s *Sampling) SingleInput() bool { return true }
func (s *Sampling) Columns() []Column { return nil } // passthrough

// Subgraph is one step of the subgraph traversal planner: given the
// current step's discovered vertex set (read from the variable an
// enclosing Loop rebinds each iteration), it writes the next step's
// source vids back into that same variable and appends this step's
// edges into a holdover variable (§4.6 "Subgraph at step k writes
// next-step source vids into the same variable the loop reads").
type Subgraph struct {
	base
	Input         ID
	Step          int
	WithProps     bool
	VertexVar     string
	EdgeHoldoverVar string
}

func (s *Subgraph) Kind() Kind        { return KindSubgraph }
func (s *Subgraph) Inputs() []ID      { return []ID{s.Input} }
func (s *Subgraph) SingleInput() bool { return true }
func (s *Subgraph) Columns() []Column {
	return []Column{{Name: "vertices", Kind: ColumnList}, {Name: "edges", Kind: ColumnList}}
}

// Loop repeats Body Steps times, rebinding Body's input each iteration
// to the previous iteration's output (§4.6 "a Loop over GetNeighbors +
// Subgraph").
type Loop struct {
	base
	Body  ID
	Steps int
}

func (l *Loop) Kind() Kind        { return KindLoop }
func (l *Loop) Inputs() []ID      { return []ID{l.Body} }
func (l *Loop) SingleInput() bool { return true }
func (l *Loop) Columns() []Column { return nil } // same as Body's per-iteration output

// StartNode is a synthetic single-row source a connector inserts as
// the left input of any operator whose SingleInput is true but which
// has no natural upstream of its own (§4.6 planner invariant).
type StartNode struct {
	base
	Columns_ []Column
}

func (s *StartNode) Kind() Kind        { return KindStartNode }
func (s *StartNode) Inputs() []ID      { return nil }
func (s *StartNode) SingleInput() bool { return false }
func (s *StartNode) Columns() []Column { return s.Columns_ }

// Unwind expands Column (expected to hold a list) into one row per
// element, bound to Alias (§4.6 unwind planner).
type Unwind struct {
	base
	Input  ID
	Column string
	Alias  string
}

func (u *Unwind) Kind() Kind        { return KindUnwind }
func (u *Unwind) Inputs() []ID      { return []ID{u.Input} }
func (u *Unwind) SingleInput() bool { return true }
func (u *Unwind) Columns() []Column { return []Column{{Name: u.Alias, Kind: ColumnAny}} }

// Apply runs Subplan once per row of Input, in nested-loop fashion,
// feeding Input's row as Subplan's StartNode columns (§4.6 unwind
// planner, "nested Apply/RollUp subplan").
type Apply struct {
	base
	Input   ID
	Subplan ID
}

func (a *Apply) Kind() Kind        { return KindApply }
func (a *Apply) Inputs() []ID      { return []ID{a.Input, a.Subplan} }
func (a *Apply) SingleInput() bool { return false }
func (a *Apply) Columns() []Column { return nil } // Input's columns plus Subplan's, concatenated

// RollUp collects every row Subplan produced for one driving row back
// into a single CollectAlias column on that row (§4.6 "collects
// pattern matches back into the driving row").
type RollUp struct {
	base
	Input        ID
	Subplan      ID
	CollectAlias string
}

func (r *RollUp) Kind() Kind        { return KindRollUp }
func (r *RollUp) Inputs() []ID      { return []ID{r.Input, r.Subplan} }
func (r *RollUp) SingleInput() bool { return false }
func (r *RollUp) Columns() []Column {
	return []Column{{Name: r.CollectAlias, Kind: ColumnList}}
}

// DataCollect merges the per-step vertex/edge sets a subgraph Loop
// produced into the two final "vertices"/"edges" columns (§4.6
// "a final DataCollect merges all per-step vertex/edge sets").
type DataCollect struct {
	base
	Inputs_ []ID
}

func (d *DataCollect) Kind() Kind        { return KindDataCollect }
func (d *DataCollect) Inputs() []ID      { return d.Inputs_ }
func (d *DataCollect) SingleInput() bool { return false }
func (d *DataCollect) Columns() []Column {
	return []Column{{Name: "vertices", Kind: ColumnList}, {Name: "edges", Kind: ColumnList}}
}

// GetVertices is a source operator reading a fixed vid set (used
// directly by the subgraph planner's N=0 special case, and as the
// physical leaf a StartVidFinder's vid-list/argument strategies bind
// to).
type GetVertices struct {
	base
	VidsVar   string
	WithProps bool
}

func (g *GetVertices) Kind() Kind        { return KindGetVertices }
func (g *GetVertices) Inputs() []ID      { return nil }
func (g *GetVertices) SingleInput() bool { return false }
func (g *GetVertices) Columns() []Column { return []Column{{Name: "vertex", Kind: ColumnVertex}} }

// GetNeighbors is the physical leaf behind a Traverse step: the
// storagesvc RPC of the same name, reading the edge/vertex rows a
// Traverse hop filters and projects.
type GetNeighbors struct {
	base
	VidsVar   string
	EdgeTypes []int32
	Direction Direction
}

func (g *GetNeighbors) Kind() Kind        { return KindGetNeighbors }
func (g *GetNeighbors) Inputs() []ID      { return nil }
func (g *GetNeighbors) SingleInput() bool { return false }
func (g *GetNeighbors) Columns() []Column {
	return []Column{{Name: "edge", Kind: ColumnEdge}, {Name: "dst", Kind: ColumnVertex}}
}

// GetProp is a source operator for a direct point-property lookup
// (e.g. a `FETCH PROP` style clause), backed by the storagesvc RPC of
// the same name.
type GetProp struct {
	base
	KeysVar string
}

func (g *GetProp) Kind() Kind        { return KindGetProp }
func (g *GetProp) Inputs() []ID      { return nil }
func (g *GetProp) SingleInput() bool { return false }
func (g *GetProp) Columns() []Column { return []Column{{Name: "props", Kind: ColumnMap}} }

// ScanVertex is a source operator for a full (or tag-filtered)
// partition scan of vertex rows, backed by the storagesvc Scan RPC
// (§4.5 "ScanVertex / ScanEdge").
type ScanVertex struct {
	base
	Space string
	TagID int32
}

func (s *ScanVertex) Kind() Kind        { return KindScanVertex }
func (s *ScanVertex) Inputs() []ID      { return nil }
func (s *ScanVertex) SingleInput() bool { return false }
func (s *ScanVertex) Columns() []Column { return []Column{{Name: "vertex", Kind: ColumnVertex}} }

// ScanEdge is ScanVertex's edge-row counterpart.
type ScanEdge struct {
	base
	Space    string
	EdgeType int32
}

func (s *ScanEdge) Kind() Kind        { return KindScanEdge }
func (s *ScanEdge) Inputs() []ID      { return nil }
func (s *ScanEdge) SingleInput() bool { return false }
func (s *ScanEdge) Columns() []Column { return []Column{{Name: "edge", Kind: ColumnEdge}} }
