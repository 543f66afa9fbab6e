package fir

// letBinding is one entry of the flat let-list the Builder
// accumulates; Finish folds these into a nested let-chain in
// definition order (spec §4.4).
type letBinding struct {
	varNode int
	value   int
}

// Builder accumulates one function's let-list. Spec §9 flags the
// original's builder as thread-local/globally-addressable; this
// module makes that an explicit value the caller owns and threads
// through construction instead (one Builder per goroutine that wants
// to build a Function, created fresh each time — no hidden global
// mutable state).
type Builder struct {
	name    string
	nodes   []Node
	nextVar int
	params  []Param
	lets    []letBinding
}

// NewBuilder starts a fresh function builder named name (used only for
// diagnostics and dumps).
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

func (b *Builder) addNode(n Node) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, n)
	return id
}

func (b *Builder) freshVar() int {
	v := b.nextVar
	b.nextVar++
	return v
}

// bindLet wraps valueID in a fresh let-bound variable and returns the
// variable's node id — the handle every builder method hands back to
// the caller, per spec §4.4's "each newly produced expression is
// bound to a freshly numbered variable".
func (b *Builder) bindLet(valueID int) int {
	resultType := b.nodes[valueID].ResultType
	varID := b.addNode(Node{Kind: NodeVariable, VarID: b.freshVar(), ResultType: resultType})
	b.lets = append(b.lets, letBinding{varNode: varID, value: valueID})
	return varID
}

// MakeParameter creates a variable not bound by any let; it is
// recorded as one of the function's formal parameters instead.
func (b *Builder) MakeParameter(t Type) int {
	varID := b.freshVar()
	id := b.addNode(Node{Kind: NodeVariable, VarID: varID, ResultType: t})
	b.params = append(b.params, Param{VarID: varID, Type: t})
	return id
}

func (b *Builder) ConstI32(n int32) int {
	return b.bindLet(b.addNode(Node{Kind: NodeConstant, ConstI32: n, ResultType: I32}))
}

func (b *Builder) ConstF32(f float32) int {
	return b.bindLet(b.addNode(Node{Kind: NodeConstant, ConstF32: f, ResultType: F32}))
}

func (b *Builder) ConstF64(f float64) int {
	return b.bindLet(b.addNode(Node{Kind: NodeConstant, ConstF64: f, ResultType: F64}))
}

// Call applies a primitive to args, binding the result to a fresh
// let-variable. resultType is supplied by the caller (typed helpers
// below compute it); Call itself stays untyped-generic so it covers
// every entry in the ~30-value Primitive enum uniformly.
func (b *Builder) Call(prim Primitive, resultType Type, args ...int) int {
	return b.bindLet(b.addNode(Node{Kind: NodeCall, Prim: prim, Args: args, ResultType: resultType}))
}

func (b *Builder) FAdd(a, c int) int { return b.Call(PrimFAdd, F32, a, c) }
func (b *Builder) FSub(a, c int) int { return b.Call(PrimFSub, F32, a, c) }
func (b *Builder) FMul(a, c int) int { return b.Call(PrimFMul, F32, a, c) }
func (b *Builder) FDiv(a, c int) int { return b.Call(PrimFDiv, F32, a, c) }

func (b *Builder) IAdd(a, c int) int { return b.Call(PrimIAdd, I32, a, c) }
func (b *Builder) ISub(a, c int) int { return b.Call(PrimISub, I32, a, c) }
func (b *Builder) IMul(a, c int) int { return b.Call(PrimIMul, I32, a, c) }

func (b *Builder) FCmpLT(a, c int) int { return b.Call(PrimFCmpLT, Bool, a, c) }
func (b *Builder) FCmpLE(a, c int) int { return b.Call(PrimFCmpLE, Bool, a, c) }
func (b *Builder) FCmpGT(a, c int) int { return b.Call(PrimFCmpGT, Bool, a, c) }
func (b *Builder) FCmpGE(a, c int) int { return b.Call(PrimFCmpGE, Bool, a, c) }
func (b *Builder) FCmpEQ(a, c int) int { return b.Call(PrimFCmpEQ, Bool, a, c) }
func (b *Builder) FCmpNE(a, c int) int { return b.Call(PrimFCmpNE, Bool, a, c) }

func (b *Builder) ICmpLT(a, c int) int { return b.Call(PrimICmpLT, Bool, a, c) }
func (b *Builder) ICmpLE(a, c int) int { return b.Call(PrimICmpLE, Bool, a, c) }
func (b *Builder) ICmpGT(a, c int) int { return b.Call(PrimICmpGT, Bool, a, c) }
func (b *Builder) ICmpGE(a, c int) int { return b.Call(PrimICmpGE, Bool, a, c) }
func (b *Builder) ICmpEQ(a, c int) int { return b.Call(PrimICmpEQ, Bool, a, c) }
func (b *Builder) ICmpNE(a, c int) int { return b.Call(PrimICmpNE, Bool, a, c) }

func (b *Builder) Not(a int) int  { return b.Call(PrimNot, Bool, a) }
func (b *Builder) FNeg(a int) int { return b.Call(PrimFNeg, F32, a) }

func (b *Builder) ConvI32ToF32(a int) int { return b.Call(PrimI32ToF32, F32, a) }
func (b *Builder) ConvI32ToF64(a int) int { return b.Call(PrimI32ToF64, F64, a) }
func (b *Builder) ConvF32ToF64(a int) int { return b.Call(PrimF32ToF64, F64, a) }
func (b *Builder) ConvF64ToF32(a int) int { return b.Call(PrimF64ToF32, F32, a) }
func (b *Builder) ConvF32ToI32(a int) int { return b.Call(PrimF32ToI32, I32, a) }
func (b *Builder) ConvF64ToI32(a int) int { return b.Call(PrimF64ToI32, I32, a) }

// Select records a three-operand conditional; resultType follows the
// true branch, matching the invariant every frontend op in this
// module upholds (true/false branches share a type).
func (b *Builder) Select(cond, ifTrue, ifFalse int) int {
	resultType := b.nodes[ifTrue].ResultType
	return b.bindLet(b.addNode(Node{Kind: NodeSelect, Cond: cond, IfTrue: ifTrue, IfFalse: ifFalse, ResultType: resultType}))
}

// AddUndefStruct yields a typed undef aggregate (spec §4.4).
func (b *Builder) AddUndefStruct(t *StructType) int {
	return b.bindLet(b.addNode(Node{Kind: NodeUndefStruct, Struct: t, ResultType: t}))
}

// StoreField returns a new aggregate with field i replaced by v.
func (b *Builder) StoreField(agg int, field int, v int) int {
	aggType := b.nodes[agg].ResultType
	return b.bindLet(b.addNode(Node{Kind: NodeStoreField, Agg: agg, Field: field, StoreVal: v, ResultType: aggType}))
}

// LoadField extracts field i of agg.
func (b *Builder) LoadField(agg int, field int) int {
	st, ok := b.nodes[agg].ResultType.(*StructType)
	if !ok {
		panic("fir: LoadField on a non-struct value")
	}
	return b.bindLet(b.addNode(Node{Kind: NodeLoadField, Agg: agg, Field: field, ResultType: st.Fields[field].Type}))
}

// Finish folds the accumulated let-list into a nested let-chain
// terminated by returnID and produces the Function. Each Builder is
// meant to be finished exactly once.
func (b *Builder) Finish(returnID int) *Function {
	body := returnID
	for i := len(b.lets) - 1; i >= 0; i-- {
		lb := b.lets[i]
		body = b.addNode(Node{Kind: NodeLet, LetVar: lb.varNode, LetValue: lb.value, LetBody: body})
	}
	return &Function{
		Name:     b.name,
		Params:   b.params,
		Nodes:    b.nodes,
		BodyID:   body,
		ReturnID: returnID,
	}
}
