// Package fir implements the functional intermediate representation
// and its let-list builder (C7): constants, variables, primitive
// calls, select, aggregates, and the let-chain a Function finalizes
// into. internal/jit consumes the trees this package builds.
package fir

import "fmt"

// PrimitiveType is one of the four scalar element types spec §3
// assigns to C7: {bool, i32, f32, f64}.
type PrimitiveType int

const (
	Bool PrimitiveType = iota
	I32
	F32
	F64
)

func (t PrimitiveType) String() string {
	switch t {
	case Bool:
		return "bool"
	case I32:
		return "i32"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return fmt.Sprintf("primtype_%d", int(t))
	}
}

func (PrimitiveType) isType() {}

// FieldDef is one (name, type) pair of a struct type.
type FieldDef struct {
	Name string
	Type Type
}

// StructType is a nominal aggregate, interned by Name: two StructType
// values built with the same name are expected by callers to carry
// the same field list, mirroring spec §3's "Struct types are interned
// by implementation-defined name".
type StructType struct {
	Name   string
	Fields []FieldDef
}

func (*StructType) isType() {}

func (s *StructType) FieldIndex(name string) (int, bool) {
	for i, f := range s.Fields {
		if f.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Type is the sum of PrimitiveType and *StructType — every node in
// the IR carries one as its ResultType.
type Type interface {
	isType()
}
