package trace

import (
	"fmt"
	"strconv"
	"strings"
)

// typeCName maps a Type to the device-language type keyword used in the
// emitted kernel source (C6). Kept intentionally close to the
// original's type_to_str: bool/int/float.
func typeCName(t Type) string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeI32:
		return "int"
	case TypeF32:
		return "float"
	default:
		return "int"
	}
}

// formatFloat renders f so the result always contains a '.' or an
// exponent marker, even for whole numbers — this keeps the emitted
// text unambiguously a float literal to a lexer that otherwise has no
// type information to fall back on.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	for _, c := range s {
		if c == '.' || c == 'e' || c == 'E' {
			return s
		}
	}
	return s + ".0"
}

// kernelBuilder accumulates the body of one kernel launch while walking
// an ordered trace slice (C6). It owns the materialization policy and
// cross-launch-read insertion described in spec §4.2.
type kernelBuilder struct {
	table      *Table
	pool       *bufferPool
	generation int
	body       strings.Builder
	bound      map[int]bool // ssa idx -> already has a local bound in this kernel
}

func localName(idx int) string { return fmt.Sprintf("v%d", idx) }

// resolve returns the expression text referring to idx's value inside
// the kernel body currently being built, inserting a cross-launch
// buffer load on first use if idx was materialized by an earlier pass
// (or an earlier bucket within this same pass) and is not yet bound.
func (kb *kernelBuilder) resolve(idx int) (string, error) {
	v := kb.table.Get(idx)
	name := localName(idx)
	if v.LastSyncTime >= 0 && !kb.bound[idx] {
		if !v.Materialized() {
			return "", wrapf("value %d has a sync time but no buffer", idx)
		}
		kb.body.WriteString(fmt.Sprintf("%s %s = buffer%d[get_global_id(0)];\n",
			typeCName(v.ResultType), name, v.BufferID))
		kb.bound[idx] = true
	}
	return name, nil
}

// emitValue appends the statement(s) for a single traced value.
func (kb *kernelBuilder) emitValue(idx int) error {
	v := kb.table.Get(idx)

	if v.Op == OpStore {
		return kb.emitStore(v)
	}

	// A value already materialized from an earlier pass/bucket is read
	// via a buffer load on first reference rather than retraced; skip
	// re-emitting its producing statement.
	if v.LastSyncTime >= 0 {
		return nil
	}

	rhs, err := kb.rhs(idx, v)
	if err != nil {
		return err
	}
	name := localName(idx)
	kb.body.WriteString(fmt.Sprintf("%s %s = %s;\n", typeCName(v.ResultType), name, rhs))
	kb.bound[idx] = true

	if v.Width != 1 && v.RefExt > 0 && v.BufferID == noOperand {
		id, err := kb.pool.alloc(v.Width, v.ResultType)
		if err != nil {
			return err
		}
		v.BufferID = id
		v.LastSyncTime = kb.generation
		kb.body.WriteString(fmt.Sprintf("buffer%d[get_global_id(0)] = %s;\n", id, name))
	}
	return nil
}

func (kb *kernelBuilder) rhs(idx int, v *Value) (string, error) {
	if idx < PredefinedCount {
		if idx == ThreadIndex {
			return "get_global_id(0)", nil
		}
		return "", wrapf("unhandled predefined slot %d", idx)
	}

	switch v.Op {
	case OpConstInt:
		return strconv.FormatInt(v.ImmInt, 10), nil
	case OpConstFloat:
		return formatFloat(v.ImmFloat), nil
	case OpFAdd, OpFSub, OpFMul, OpFDiv, OpMod,
		OpCmpLT, OpCmpLE, OpCmpGT, OpCmpGE, OpCmpEQ, OpCmpNE:
		a, err := kb.resolve(v.Operands[0])
		if err != nil {
			return "", err
		}
		b, err := kb.resolve(v.Operands[1])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", a, infixOp(v.Op), b), nil
	case OpSelect:
		c, err := kb.resolve(v.Operands[0])
		if err != nil {
			return "", err
		}
		a, err := kb.resolve(v.Operands[1])
		if err != nil {
			return "", err
		}
		b, err := kb.resolve(v.Operands[2])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s) ? (%s) : (%s)", c, a, b), nil
	case OpLoad:
		bufVal := kb.table.Get(v.Operands[0])
		if !bufVal.Materialized() {
			return "", wrapf("load: operand %d is not a materialized buffer", v.Operands[0])
		}
		mask, err := kb.resolve(v.Operands[1])
		if err != nil {
			return "", err
		}
		index, err := kb.resolve(v.Operands[2])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s) ? buffer%d[%s] : 0", mask, bufVal.BufferID, index), nil
	case OpSin, OpCos, OpSqrt:
		a, err := kb.resolve(v.Operands[0])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s(%s)", v.Op.String(), a), nil
	default:
		return "", wrapf("codegen: unsupported opcode %s", v.Op)
	}
}

func infixOp(op Op) string {
	switch op {
	case OpFAdd:
		return "+"
	case OpFSub:
		return "-"
	case OpFMul:
		return "*"
	case OpFDiv:
		return "/"
	case OpMod:
		return "%"
	case OpCmpLT:
		return "<"
	case OpCmpLE:
		return "<="
	case OpCmpGT:
		return ">"
	case OpCmpGE:
		return ">="
	case OpCmpEQ:
		return "=="
	case OpCmpNE:
		return "!="
	default:
		return "?"
	}
}

func (kb *kernelBuilder) emitStore(v *Value) error {
	bufVal := kb.table.Get(v.Store.Buffer)
	if !bufVal.Materialized() {
		return wrapf("store: operand %d is not a materialized buffer", v.Store.Buffer)
	}
	mask, err := kb.resolve(v.Store.Mask)
	if err != nil {
		return err
	}
	index, err := kb.resolve(v.Store.Index)
	if err != nil {
		return err
	}
	value, err := kb.resolve(v.Store.Value)
	if err != nil {
		return err
	}
	kb.body.WriteString(fmt.Sprintf("if (%s) { buffer%d[%s] = %s; }\n", mask, bufVal.BufferID, index, value))
	return nil
}

func (kb *kernelBuilder) header() string {
	var h strings.Builder
	h.WriteString("__kernel void main(")
	n := kb.pool.count()
	for i := 0; i < n; i++ {
		h.WriteString(fmt.Sprintf("__global %s * buffer%d", typeCName(kb.pool.types[i]), i))
		if i != n-1 {
			h.WriteString(", ")
		}
	}
	h.WriteString(") {\n")
	return h.String()
}

// emitKernel serializes an ordered, dependency-sorted trace slice into
// kernel source text. It mutates table entries in place: a value with
// width != 1 and RefExt > 0 that appears here and is not yet
// materialized gets a buffer allocated and a write appended
// immediately after its assignment (spec §4.2 materialization policy).
func emitKernel(order []int, table *Table, pool *bufferPool, generation int) (string, error) {
	kb := &kernelBuilder{table: table, pool: pool, generation: generation, bound: map[int]bool{}}
	for _, idx := range order {
		if err := kb.emitValue(idx); err != nil {
			return "", err
		}
	}
	var out strings.Builder
	out.WriteString(kb.header())
	out.WriteString(kb.body.String())
	out.WriteString("}")
	return out.String(), nil
}
