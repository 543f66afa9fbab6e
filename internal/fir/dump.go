package fir

import (
	"fmt"
	"strings"
)

// Dump renders fn as deterministic text, grounded in the teacher's own
// IR-to-text dump (std/compiler/backend_ir.go's generateIRText): a
// header comment, one line per parameter, one line per let-binding and
// a final return line, with values named by their variable ids so the
// result is a stable structural fingerprint (spec §8:
// "unique per structurally-distinct function"). It is used only by
// tests, per spec §6.
func Dump(fn *Function) string {
	var sb strings.Builder
	sb.WriteString("; fir function\n")
	sb.WriteString(fmt.Sprintf("; name: %s, params: %d, nodes: %d\n\n", fn.Name, len(fn.Params), len(fn.Nodes)))

	for i, p := range fn.Params {
		sb.WriteString(fmt.Sprintf("param %d v%d : %s\n", i, p.VarID, dumpType(p.Type)))
	}
	if len(fn.Params) > 0 {
		sb.WriteByte('\n')
	}

	dumpNode(&sb, fn, fn.BodyID)
	return sb.String()
}

func dumpType(t Type) string {
	switch v := t.(type) {
	case PrimitiveType:
		return v.String()
	case *StructType:
		var sb strings.Builder
		sb.WriteString(v.Name)
		sb.WriteString(" { ")
		for i, f := range v.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.Name)
			sb.WriteString(": ")
			sb.WriteString(dumpType(f.Type))
		}
		sb.WriteString(" }")
		return sb.String()
	default:
		return "?"
	}
}

func dumpNode(sb *strings.Builder, fn *Function, id int) {
	n := fn.Node(id)
	switch n.Kind {
	case NodeLet:
		sb.WriteString(fmt.Sprintf("let v%d = ", fn.Node(n.LetVar).VarID))
		dumpExpr(sb, fn, n.LetValue)
		sb.WriteString(fmt.Sprintf(" : %s\n", dumpType(n.ResultType)))
		dumpNode(sb, fn, n.LetBody)
	default:
		sb.WriteString("return ")
		dumpExpr(sb, fn, id)
		sb.WriteByte('\n')
	}
}

func dumpExpr(sb *strings.Builder, fn *Function, id int) {
	n := fn.Node(id)
	switch n.Kind {
	case NodeConstant:
		switch n.ResultType {
		case I32:
			sb.WriteString(fmt.Sprintf("const_i32(%d)", n.ConstI32))
		case F32:
			sb.WriteString(fmt.Sprintf("const_f32(%v)", n.ConstF32))
		case F64:
			sb.WriteString(fmt.Sprintf("const_f64(%v)", n.ConstF64))
		default:
			sb.WriteString("const(?)")
		}
	case NodeVariable:
		sb.WriteString(fmt.Sprintf("v%d", n.VarID))
	case NodeCall:
		sb.WriteString(n.Prim.String())
		sb.WriteByte('(')
		for i, a := range n.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("v%d", fn.Node(a).VarID))
		}
		sb.WriteByte(')')
	case NodeSelect:
		sb.WriteString(fmt.Sprintf("select(v%d, v%d, v%d)",
			fn.Node(n.Cond).VarID, fn.Node(n.IfTrue).VarID, fn.Node(n.IfFalse).VarID))
	case NodeUndefStruct:
		sb.WriteString(fmt.Sprintf("undef_struct(%s)", dumpType(n.Struct)))
	case NodeLoadField:
		sb.WriteString(fmt.Sprintf("load_field(v%d, %d)", fn.Node(n.Agg).VarID, n.Field))
	case NodeStoreField:
		sb.WriteString(fmt.Sprintf("store_field(v%d, %d, v%d)", fn.Node(n.Agg).VarID, n.Field, fn.Node(n.StoreVal).VarID))
	default:
		sb.WriteString("?")
	}
}
