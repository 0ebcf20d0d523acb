package expression

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/graphkv/graphd/value"
)

// Registry is the name→arity→Func table function calls are resolved
// against at decode/construction time (§4.1 "registry-resolved, arity-
// checked at decode").
type Registry struct {
	funcs map[string]*Func
}

// NewRegistry returns a Registry seeded with the scalar functions named
// in SPEC_FULL.md §3.2, pulled from original_source's expression
// built-ins (abs/floor/ceil/lower/upper/length/hash): enough for
// FunctionCallExpr call sites to have something concrete to resolve.
func NewRegistry() *Registry {
	r := &Registry{funcs: map[string]*Func{}}
	r.register(&Func{Name: "abs", Arity: 1, Apply: builtinAbs})
	r.register(&Func{Name: "floor", Arity: 1, Apply: builtinFloor})
	r.register(&Func{Name: "ceil", Arity: 1, Apply: builtinCeil})
	r.register(&Func{Name: "lower", Arity: 1, Apply: builtinLower})
	r.register(&Func{Name: "upper", Arity: 1, Apply: builtinUpper})
	r.register(&Func{Name: "length", Arity: 1, Apply: builtinLength})
	r.register(&Func{Name: "hash", Arity: 1, Apply: builtinHash})
	return r
}

func (r *Registry) register(f *Func) { r.funcs[f.Name] = f }

// Resolve looks up name and checks argc against the function's declared
// arity (-1 accepts any argc).
func (r *Registry) Resolve(name string, argc int) (*Func, error) {
	f, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("expression: unknown function %q", name)
	}
	if f.Arity >= 0 && f.Arity != argc {
		return nil, fmt.Errorf("expression: function %q takes %d argument(s), got %d", name, f.Arity, argc)
	}
	return f, nil
}

func builtinAbs(args []value.Value) value.Value {
	v := args[0]
	switch v.Kind() {
	case value.KindInt:
		i, _ := v.AsInt()
		if i < 0 {
			i = -i
		}
		return value.Int(i)
	case value.KindFloat:
		f, _ := v.AsFloat()
		return value.Float(math.Abs(f))
	default:
		return value.Null(value.NullBadType)
	}
}

func builtinFloor(args []value.Value) value.Value {
	f, ok := asFloatArg(args[0])
	if !ok {
		return value.Null(value.NullBadType)
	}
	return value.Float(math.Floor(f))
}

func builtinCeil(args []value.Value) value.Value {
	f, ok := asFloatArg(args[0])
	if !ok {
		return value.Null(value.NullBadType)
	}
	return value.Float(math.Ceil(f))
}

func asFloatArg(v value.Value) (float64, bool) {
	if i, ok := v.AsInt(); ok {
		return float64(i), true
	}
	return v.AsFloat()
}

func builtinLower(args []value.Value) value.Value {
	s, ok := args[0].AsString()
	if !ok {
		return value.Null(value.NullBadType)
	}
	return value.String(strings.ToLower(s))
}

func builtinUpper(args []value.Value) value.Value {
	s, ok := args[0].AsString()
	if !ok {
		return value.Null(value.NullBadType)
	}
	return value.String(strings.ToUpper(s))
}

func builtinLength(args []value.Value) value.Value {
	v := args[0]
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		return value.Int(int64(len(s)))
	case value.KindList:
		l, _ := v.AsList()
		return value.Int(int64(len(l)))
	case value.KindSet:
		s, _ := v.AsSet()
		return value.Int(int64(len(s)))
	case value.KindMap:
		m, _ := v.AsMap()
		return value.Int(int64(len(m)))
	default:
		return value.Null(value.NullBadType)
	}
}

// builtinHash returns the 64-bit FNV-1a hash of the argument's String()
// form as an int. It is a separate hash from the xxhash the cache uses
// for bucket routing, so its result is not a cache.BucketHint.
func builtinHash(args []value.Value) value.Value {
	h := fnv.New64a()
	h.Write([]byte(args[0].String()))
	return value.Int(int64(h.Sum64()))
}
