package value

import (
	"encoding/json"
	"fmt"
)

// jsonEnvelope is the tagged-union wire shape for a Value, the same
// shape OPA's ast.Term.MarshalJSON uses to carry a type hint alongside
// an interface-typed payload (ast/term.go) — Value needs the same
// treatment since its fields are unexported and its variant isn't one
// JSON can infer from shape alone (an INT and a DATE both marshal to a
// JSON object with no other distinguishing feature).
type jsonEnvelope struct {
	Type string          `json:"type"`
	Null NullKind        `json:"null,omitempty"`
	V    json.RawMessage `json:"v,omitempty"`
}

// MarshalJSON implements json.Marshaler so a Value can cross the wire
// package's RPC boundary (spec.md §6).
func (v Value) MarshalJSON() ([]byte, error) {
	env := jsonEnvelope{Type: v.kind.jsonType()}
	var payload any
	switch v.kind {
	case KindNull:
		env.Null = v.null
		return json.Marshal(env)
	case KindEmpty:
		return json.Marshal(env)
	case KindBool:
		payload = v.b
	case KindInt:
		payload = v.i
	case KindFloat:
		payload = v.f
	case KindString:
		payload = v.s
	case KindDate:
		payload = v.date
	case KindTime:
		payload = v.tod
	case KindDateTime:
		payload = v.dt
	case KindDuration:
		payload = v.dur
	case KindVertex:
		payload = v.vertex
	case KindEdge:
		payload = v.edge
	case KindPath:
		payload = v.path
	case KindList:
		payload = v.list
	case KindMap:
		payload = v.vmap
	case KindSet:
		payload = v.set
	case KindDataSet:
		payload = v.ds
	default:
		return nil, fmt.Errorf("value: cannot marshal kind %v", v.kind)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	env.V = raw
	return json.Marshal(env)
}

// UnmarshalJSON implements json.Unmarshaler, the inverse of MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	switch env.Type {
	case "null":
		*v = Null(env.Null)
		return nil
	case "empty":
		*v = Empty()
		return nil
	case "bool":
		var b bool
		if err := unmarshalPayload(env.V, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case "int":
		var i int64
		if err := unmarshalPayload(env.V, &i); err != nil {
			return err
		}
		*v = Int(i)
	case "float":
		var f float64
		if err := unmarshalPayload(env.V, &f); err != nil {
			return err
		}
		*v = Float(f)
	case "string":
		var s string
		if err := unmarshalPayload(env.V, &s); err != nil {
			return err
		}
		*v = String(s)
	case "date":
		var d Date
		if err := unmarshalPayload(env.V, &d); err != nil {
			return err
		}
		*v = DateVal(d)
	case "time":
		var t Time
		if err := unmarshalPayload(env.V, &t); err != nil {
			return err
		}
		*v = TimeVal(t)
	case "datetime":
		var dt DateTime
		if err := unmarshalPayload(env.V, &dt); err != nil {
			return err
		}
		*v = DateTimeVal(dt)
	case "duration":
		var d Duration
		if err := unmarshalPayload(env.V, &d); err != nil {
			return err
		}
		*v = DurationVal(d)
	case "vertex":
		var vv Vertex
		if err := unmarshalPayload(env.V, &vv); err != nil {
			return err
		}
		*v = VertexVal(vv)
	case "edge":
		var e Edge
		if err := unmarshalPayload(env.V, &e); err != nil {
			return err
		}
		*v = EdgeVal(e)
	case "path":
		var p Path
		if err := unmarshalPayload(env.V, &p); err != nil {
			return err
		}
		*v = PathVal(p)
	case "list":
		var items []Value
		if err := unmarshalPayload(env.V, &items); err != nil {
			return err
		}
		*v = List(items)
	case "map":
		var m map[string]Value
		if err := unmarshalPayload(env.V, &m); err != nil {
			return err
		}
		*v = Map(m)
	case "set":
		var items []Value
		if err := unmarshalPayload(env.V, &items); err != nil {
			return err
		}
		*v = Set(items)
	case "dataset":
		var ds DataSet
		if err := unmarshalPayload(env.V, &ds); err != nil {
			return err
		}
		*v = DataSetVal(ds)
	default:
		return fmt.Errorf("value: unknown wire type %q", env.Type)
	}
	return nil
}

func unmarshalPayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return fmt.Errorf("value: missing payload for non-null kind")
	}
	return json.Unmarshal(raw, dst)
}

func (k Kind) jsonType() string {
	switch k {
	case KindNull:
		return "null"
	case KindEmpty:
		return "empty"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindDateTime:
		return "datetime"
	case KindDuration:
		return "duration"
	case KindVertex:
		return "vertex"
	case KindEdge:
		return "edge"
	case KindPath:
		return "path"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindSet:
		return "set"
	case KindDataSet:
		return "dataset"
	default:
		return "unknown"
	}
}
