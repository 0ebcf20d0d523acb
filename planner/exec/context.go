package exec

import "github.com/graphkv/graphd/value"

// rowContext adapts one Row, plus its declared column order, to
// expression.ExpressionContext, so Filter/Aggregate's Pred/Arg
// expressions can resolve ColumnRef by position and alias references by
// name — the row-shaped sibling of storagesvc/read.go's
// edgeFilterContext, which does the same job for a single candidate
// edge rather than a materialized row.
type rowContext struct {
	row     Row
	columns []string
	params  map[string]value.Value
	session map[string]value.Value
}

func (c rowContext) GetColumn(idx int) value.Value {
	if idx < 0 || idx >= len(c.columns) {
		return value.Null(value.NullUnknownProp)
	}
	return c.row[c.columns[idx]]
}

// GetVertex returns the row's first vertex-valued column, the "current
// vertex" a bare attribute reference with no qualifying alias resolves
// against.
func (c rowContext) GetVertex() value.Value {
	for _, name := range c.columns {
		if v, ok := c.row[name]; ok && v.Kind() == value.KindVertex {
			return v
		}
	}
	return value.Null(value.NullUnknownProp)
}

// GetEdge returns the row's first edge-valued column, symmetric to
// GetVertex.
func (c rowContext) GetEdge() value.Value {
	for _, name := range c.columns {
		if v, ok := c.row[name]; ok && v.Kind() == value.KindEdge {
			return v
		}
	}
	return value.Null(value.NullUnknownProp)
}

func (c rowContext) GetVar(name string) (value.Value, bool) {
	v, ok := c.row[name]
	return v, ok
}

func (c rowContext) GetParameter(name string) (value.Value, bool) {
	v, ok := c.params[name]
	return v, ok
}

func (c rowContext) GetSessionVar(name string) (value.Value, bool) {
	v, ok := c.session[name]
	return v, ok
}

// entityContext adapts one already-evaluated vertex or edge value to
// ExpressionContext, for a Traverse step's VertexFilter/EdgeFilter
// evaluated against one candidate at a time, before a full row exists
// to build a rowContext from.
type entityContext struct {
	vertex value.Value
	edge   value.Value
}

func (c entityContext) GetColumn(int) value.Value               { return value.Null(value.NullUnknownProp) }
func (c entityContext) GetVertex() value.Value                  { return c.vertex }
func (c entityContext) GetEdge() value.Value                    { return c.edge }
func (c entityContext) GetVar(string) (value.Value, bool)       { return value.Value{}, false }
func (c entityContext) GetParameter(string) (value.Value, bool) { return value.Value{}, false }
func (c entityContext) GetSessionVar(string) (value.Value, bool) { return value.Value{}, false }
