package fir

// NodeKind discriminates the tagged sum spec §3 lists for C7.
type NodeKind int

const (
	NodeConstant NodeKind = iota
	NodeVariable
	NodeCall
	NodeSelect
	NodeUndefStruct
	NodeLoadField
	NodeStoreField
	NodeLet
)

func (k NodeKind) String() string {
	switch k {
	case NodeConstant:
		return "constant"
	case NodeVariable:
		return "variable"
	case NodeCall:
		return "call"
	case NodeSelect:
		return "select"
	case NodeUndefStruct:
		return "undef_struct"
	case NodeLoadField:
		return "load_field"
	case NodeStoreField:
		return "store_field"
	case NodeLet:
		return "let"
	default:
		return "unknown"
	}
}

// Node is one entry of the builder's arena (spec §9's resolution of
// "IR-node polymorphism": an indexed arena of node records with an
// enum discriminator rather than a pointer-heavy class hierarchy).
// Only the fields relevant to Kind are meaningful; the rest are zero.
type Node struct {
	Kind       NodeKind
	ResultType Type

	// Constant
	ConstI32 int32
	ConstF32 float32
	ConstF64 float64

	// Variable
	VarID int

	// Call
	Prim Primitive
	Args []int // node ids, in argument order

	// Select
	Cond, IfTrue, IfFalse int

	// UndefStruct
	Struct *StructType

	// LoadField / StoreField
	Agg      int
	Field    int
	StoreVal int // StoreField only

	// Let
	LetVar   int
	LetValue int
	LetBody  int
}
