package expression

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/graphkv/graphd/value"
)

// Encode produces a stable binary encoding of the expression tree rooted
// at e, for shipping a planned expression from the graph service to a
// storage host (§4.1 "stable binary encoding/decoding (for plan
// shipping)").
func Encode(e Expr) []byte {
	var buf bytes.Buffer
	encodeNode(&buf, e)
	return buf.Bytes()
}

// Decode parses the format Encode produces, resolving any FunctionCall
// node against reg.
func Decode(data []byte, reg *Registry) (Expr, error) {
	r := bytes.NewReader(data)
	e, err := decodeNode(r, reg)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, fmt.Errorf("expression: %w", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
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
	if n > 0 {
		if _, err := r.Read(b); err != nil {
			return "", fmt.Errorf("expression: %w", err)
		}
	}
	return string(b), nil
}

func writeValue(buf *bytes.Buffer, v value.Value) {
	enc := value.Encode(v)
	writeU32(buf, uint32(len(enc)))
	buf.Write(enc)
}

func readValue(r *bytes.Reader) (value.Value, error) {
	n, err := readU32(r)
	if err != nil {
		return value.Value{}, err
	}
	b := make([]byte, n)
	if n > 0 {
		if _, err := r.Read(b); err != nil {
			return value.Value{}, fmt.Errorf("expression: %w", err)
		}
	}
	v, _, err := value.Decode(b)
	return v, err
}

func encodeNode(buf *bytes.Buffer, e Expr) {
	buf.WriteByte(byte(e.Kind()))
	switch n := e.(type) {
	case *Constant:
		writeValue(buf, n.Val)
	case *Unary:
		buf.WriteByte(byte(n.Op))
		encodeNode(buf, n.Operand)
	case *BinaryArith:
		buf.WriteByte(byte(n.Op))
		encodeNode(buf, n.Left)
		encodeNode(buf, n.Right)
	case *Relational:
		buf.WriteByte(byte(n.Op))
		encodeNode(buf, n.Left)
		encodeNode(buf, n.Right)
	case *Logical:
		buf.WriteByte(byte(n.Op))
		writeU32(buf, uint32(len(n.Operands)))
		for _, op := range n.Operands {
			encodeNode(buf, op)
		}
	case *TypeCast:
		buf.WriteByte(byte(n.TargetKind))
		encodeNode(buf, n.Operand)
	case *Attribute:
		writeString(buf, n.Tag)
		writeString(buf, n.Prop)
		encodeNode(buf, n.Base)
	case *Subscript:
		encodeNode(buf, n.Base)
		encodeNode(buf, n.Index)
	case *Case:
		if n.Condition != nil {
			buf.WriteByte(1)
			encodeNode(buf, n.Condition)
		} else {
			buf.WriteByte(0)
		}
		writeU32(buf, uint32(len(n.Whens)))
		for _, w := range n.Whens {
			encodeNode(buf, w.When)
			encodeNode(buf, w.Then)
		}
		if n.Else != nil {
			buf.WriteByte(1)
			encodeNode(buf, n.Else)
		} else {
			buf.WriteByte(0)
		}
	case *ListLiteral:
		writeU32(buf, uint32(len(n.Items)))
		for _, it := range n.Items {
			encodeNode(buf, it)
		}
	case *SetLiteral:
		writeU32(buf, uint32(len(n.Items)))
		for _, it := range n.Items {
			encodeNode(buf, it)
		}
	case *MapLiteral:
		writeU32(buf, uint32(len(n.Entries)))
		for _, ent := range n.Entries {
			writeString(buf, ent.Key)
			encodeNode(buf, ent.Value)
		}
	case *ListComprehension:
		writeString(buf, n.VarName)
		encodeNode(buf, n.Source)
		if n.Filter != nil {
			buf.WriteByte(1)
			encodeNode(buf, n.Filter)
		} else {
			buf.WriteByte(0)
		}
		encodeNode(buf, n.Map)
	case *Predicate:
		buf.WriteByte(byte(n.Form))
		writeString(buf, n.VarName)
		encodeNode(buf, n.Source)
		encodeNode(buf, n.Test)
	case *Reduce:
		writeString(buf, n.VarName)
		writeString(buf, n.ElemName)
		encodeNode(buf, n.Source)
		encodeNode(buf, n.Init)
		encodeNode(buf, n.Accumulate)
	case *FunctionCall:
		writeString(buf, n.Name)
		writeU32(buf, uint32(len(n.Args)))
		for _, a := range n.Args {
			encodeNode(buf, a)
		}
	case *Aggregate:
		buf.WriteByte(byte(n.Func))
		if n.Arg != nil {
			buf.WriteByte(1)
			encodeNode(buf, n.Arg)
		} else {
			buf.WriteByte(0)
		}
	case *VertexRef:
	case *EdgeRef:
	case *ColumnRef:
		writeU32(buf, uint32(n.Index))
	case *InputProperty:
		writeString(buf, n.Prop)
	case *VariableProperty:
		writeString(buf, n.VarName)
		writeString(buf, n.Prop)
	case *PathBuild:
		encodeNode(buf, n.Src)
		writeU32(buf, uint32(len(n.Steps)))
		for _, s := range n.Steps {
			encodeNode(buf, s)
		}
	case *MatchPathPattern:
		writeU32(buf, uint32(len(n.Steps)))
		for _, s := range n.Steps {
			buf.WriteByte(boolByte(s.DirOutgoing))
			writeU32(buf, uint32(s.MinHop))
			writeU32(buf, uint32(int32(s.MaxHop)))
			writeU32(buf, uint32(len(s.EdgeTypes)))
			for _, et := range s.EdgeTypes {
				writeU32(buf, uint32(et))
			}
		}
	case *UUID:
	case *Parameter:
		writeString(buf, n.Name)
	default:
		panic(fmt.Sprintf("expression: Encode: unhandled node type %T", e))
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func decodeNode(r *bytes.Reader, reg *Registry) (Expr, error) {
	kb, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("expression: %w", err)
	}
	switch Kind(kb) {
	case KindConstant:
		v, err := readValue(r)
		if err != nil {
			return nil, err
		}
		return &Constant{Val: v}, nil
	case KindUnary:
		opb, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		operand, err := decodeNode(r, reg)
		if err != nil {
			return nil, err
		}
		return &Unary{Op: UnaryOp(opb), Operand: operand}, nil
	case KindBinaryArith:
		opb, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		l, err := decodeNode(r, reg)
		if err != nil {
			return nil, err
		}
		rr, err := decodeNode(r, reg)
		if err != nil {
			return nil, err
		}
		return &BinaryArith{Op: ArithOp(opb), Left: l, Right: rr}, nil
	case KindRelational:
		opb, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		l, err := decodeNode(r, reg)
		if err != nil {
			return nil, err
		}
		rr, err := decodeNode(r, reg)
		if err != nil {
			return nil, err
		}
		return &Relational{Op: RelOp(opb), Left: l, Right: rr}, nil
	case KindLogical:
		opb, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		n, err := readU32(r)
		if err != nil {
			return nil, err
		}
		ops := make([]Expr, n)
		for i := range ops {
			ops[i], err = decodeNode(r, reg)
			if err != nil {
				return nil, err
			}
		}
		return &Logical{Op: LogicalOp(opb), Operands: ops}, nil
	case KindTypeCast:
		kindb, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		operand, err := decodeNode(r, reg)
		if err != nil {
			return nil, err
		}
		return &TypeCast{TargetKind: value.Kind(kindb), Operand: operand}, nil
	case KindAttribute:
		tag, err := readString(r)
		if err != nil {
			return nil, err
		}
		prop, err := readString(r)
		if err != nil {
			return nil, err
		}
		base, err := decodeNode(r, reg)
		if err != nil {
			return nil, err
		}
		return &Attribute{Base: base, Tag: tag, Prop: prop}, nil
	case KindSubscript:
		base, err := decodeNode(r, reg)
		if err != nil {
			return nil, err
		}
		idx, err := decodeNode(r, reg)
		if err != nil {
			return nil, err
		}
		return &Subscript{Base: base, Index: idx}, nil
	case KindCase:
		hasCond, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		c := &Case{}
		if hasCond == 1 {
			c.Condition, err = decodeNode(r, reg)
			if err != nil {
				return nil, err
			}
		}
		n, err := readU32(r)
		if err != nil {
			return nil, err
		}
		c.Whens = make([]WhenThen, n)
		for i := range c.Whens {
			w, err := decodeNode(r, reg)
			if err != nil {
				return nil, err
			}
			th, err := decodeNode(r, reg)
			if err != nil {
				return nil, err
			}
			c.Whens[i] = WhenThen{When: w, Then: th}
		}
		hasElse, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if hasElse == 1 {
			c.Else, err = decodeNode(r, reg)
			if err != nil {
				return nil, err
			}
		}
		return c, nil
	case KindListLiteral:
		n, err := readU32(r)
		if err != nil {
			return nil, err
		}
		items := make([]Expr, n)
		for i := range items {
			items[i], err = decodeNode(r, reg)
			if err != nil {
				return nil, err
			}
		}
		return &ListLiteral{Items: items}, nil
	case KindSetLiteral:
		n, err := readU32(r)
		if err != nil {
			return nil, err
		}
		items := make([]Expr, n)
		for i := range items {
			items[i], err = decodeNode(r, reg)
			if err != nil {
				return nil, err
			}
		}
		return &SetLiteral{Items: items}, nil
	case KindMapLiteral:
		n, err := readU32(r)
		if err != nil {
			return nil, err
		}
		entries := make([]MapEntry, n)
		for i := range entries {
			k, err := readString(r)
			if err != nil {
				return nil, err
			}
			v, err := decodeNode(r, reg)
			if err != nil {
				return nil, err
			}
			entries[i] = MapEntry{Key: k, Value: v}
		}
		return &MapLiteral{Entries: entries}, nil
	case KindListComprehension:
		varName, err := readString(r)
		if err != nil {
			return nil, err
		}
		src, err := decodeNode(r, reg)
		if err != nil {
			return nil, err
		}
		hasFilter, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		lc := &ListComprehension{VarName: varName, Source: src}
		if hasFilter == 1 {
			lc.Filter, err = decodeNode(r, reg)
			if err != nil {
				return nil, err
			}
		}
		lc.Map, err = decodeNode(r, reg)
		if err != nil {
			return nil, err
		}
		return lc, nil
	case KindPredicate:
		formb, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		varName, err := readString(r)
		if err != nil {
			return nil, err
		}
		src, err := decodeNode(r, reg)
		if err != nil {
			return nil, err
		}
		test, err := decodeNode(r, reg)
		if err != nil {
			return nil, err
		}
		return &Predicate{Form: PredicateKind(formb), VarName: varName, Source: src, Test: test}, nil
	case KindReduce:
		varName, err := readString(r)
		if err != nil {
			return nil, err
		}
		elemName, err := readString(r)
		if err != nil {
			return nil, err
		}
		src, err := decodeNode(r, reg)
		if err != nil {
			return nil, err
		}
		init, err := decodeNode(r, reg)
		if err != nil {
			return nil, err
		}
		acc, err := decodeNode(r, reg)
		if err != nil {
			return nil, err
		}
		return &Reduce{VarName: varName, ElemName: elemName, Source: src, Init: init, Accumulate: acc}, nil
	case KindFunctionCall:
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		n, err := readU32(r)
		if err != nil {
			return nil, err
		}
		args := make([]Expr, n)
		for i := range args {
			args[i], err = decodeNode(r, reg)
			if err != nil {
				return nil, err
			}
		}
		if reg == nil {
			return &FunctionCall{Name: name, Args: args}, nil
		}
		return NewFunctionCall(reg, name, args)
	case KindAggregate:
		fnb, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		hasArg, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		agg := &Aggregate{Func: AggregateFunc(fnb)}
		if hasArg == 1 {
			agg.Arg, err = decodeNode(r, reg)
			if err != nil {
				return nil, err
			}
		}
		return agg, nil
	case KindVertexRef:
		return &VertexRef{}, nil
	case KindEdgeRef:
		return &EdgeRef{}, nil
	case KindColumnRef:
		idx, err := readU32(r)
		if err != nil {
			return nil, err
		}
		return &ColumnRef{Index: int(idx)}, nil
	case KindInputProperty:
		prop, err := readString(r)
		if err != nil {
			return nil, err
		}
		return &InputProperty{Prop: prop}, nil
	case KindVariableProperty:
		varName, err := readString(r)
		if err != nil {
			return nil, err
		}
		prop, err := readString(r)
		if err != nil {
			return nil, err
		}
		return &VariableProperty{VarName: varName, Prop: prop}, nil
	case KindPathBuild:
		src, err := decodeNode(r, reg)
		if err != nil {
			return nil, err
		}
		n, err := readU32(r)
		if err != nil {
			return nil, err
		}
		steps := make([]Expr, n)
		for i := range steps {
			steps[i], err = decodeNode(r, reg)
			if err != nil {
				return nil, err
			}
		}
		return &PathBuild{Src: src, Steps: steps}, nil
	case KindMatchPathPattern:
		n, err := readU32(r)
		if err != nil {
			return nil, err
		}
		steps := make([]StepPattern, n)
		for i := range steps {
			dirb, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			minHop, err := readU32(r)
			if err != nil {
				return nil, err
			}
			maxHop, err := readU32(r)
			if err != nil {
				return nil, err
			}
			ntypes, err := readU32(r)
			if err != nil {
				return nil, err
			}
			types := make([]int32, ntypes)
			for j := range types {
				tb, err := readU32(r)
				if err != nil {
					return nil, err
				}
				types[j] = int32(tb)
			}
			steps[i] = StepPattern{
				EdgeTypes:   types,
				MinHop:      int(minHop),
				MaxHop:      int(int32(maxHop)),
				DirOutgoing: dirb == 1,
			}
		}
		return &MatchPathPattern{Steps: steps}, nil
	case KindUUID:
		return &UUID{}, nil
	case KindParameter:
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		return &Parameter{Name: name}, nil
	default:
		return nil, fmt.Errorf("expression: unknown node kind byte %d", kb)
	}
}
