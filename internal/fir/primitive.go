package fir

import "fmt"

// Primitive enumerates the ~30 arithmetic, comparison, conversion, and
// bitwise operations a Call node may apply (spec §3/§4.4).
type Primitive int

const (
	PrimFAdd Primitive = iota
	PrimFSub
	PrimFMul
	PrimFDiv
	PrimIAdd
	PrimISub
	PrimIMul
	PrimIDivS
	PrimIDivU
	PrimAnd
	PrimOr
	PrimXor
	PrimShl
	PrimShr
	PrimICmpLT
	PrimICmpLE
	PrimICmpGT
	PrimICmpGE
	PrimICmpEQ
	PrimICmpNE
	PrimFCmpLT
	PrimFCmpLE
	PrimFCmpGT
	PrimFCmpGE
	PrimFCmpEQ
	PrimFCmpNE
	PrimFNeg
	PrimNot
	PrimI32ToF32
	PrimI32ToF64
	PrimF32ToF64
	PrimF64ToF32
	PrimF32ToI32
	PrimF64ToI32
)

var primitiveNames = map[Primitive]string{
	PrimFAdd: "fadd", PrimFSub: "fsub", PrimFMul: "fmul", PrimFDiv: "fdiv",
	PrimIAdd: "iadd", PrimISub: "isub", PrimIMul: "imul",
	PrimIDivS: "idivs", PrimIDivU: "idivu",
	PrimAnd: "and", PrimOr: "or", PrimXor: "xor", PrimShl: "shl", PrimShr: "shr",
	PrimICmpLT: "icmp_lt", PrimICmpLE: "icmp_le", PrimICmpGT: "icmp_gt",
	PrimICmpGE: "icmp_ge", PrimICmpEQ: "icmp_eq", PrimICmpNE: "icmp_ne",
	PrimFCmpLT: "fcmp_lt", PrimFCmpLE: "fcmp_le", PrimFCmpGT: "fcmp_gt",
	PrimFCmpGE: "fcmp_ge", PrimFCmpEQ: "fcmp_eq", PrimFCmpNE: "fcmp_ne",
	PrimFNeg: "fneg", PrimNot: "not",
	PrimI32ToF32: "i32_to_f32", PrimI32ToF64: "i32_to_f64",
	PrimF32ToF64: "f32_to_f64", PrimF64ToF32: "f64_to_f32",
	PrimF32ToI32: "f32_to_i32", PrimF64ToI32: "f64_to_i32",
}

func (p Primitive) String() string {
	if s, ok := primitiveNames[p]; ok {
		return s
	}
	return fmt.Sprintf("prim_%d", int(p))
}

// IsUnary reports whether p takes exactly one argument.
func (p Primitive) IsUnary() bool {
	switch p {
	case PrimFNeg, PrimNot,
		PrimI32ToF32, PrimI32ToF64, PrimF32ToF64, PrimF64ToF32, PrimF32ToI32, PrimF64ToI32:
		return true
	default:
		return false
	}
}

// IsComparison reports whether p produces a bool result.
func (p Primitive) IsComparison() bool {
	return p >= PrimICmpLT && p <= PrimFCmpNE
}
