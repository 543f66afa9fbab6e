package jit

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/pkg/errors"

	"github.com/shiina-lab/nagisa/internal/fir"
)

// RefBackend is a NativeBackend that never touches the *ir.Module it is
// handed — since llir/llvm is an IR library with no execution engine,
// there is nothing in the pack that can run real machine code without
// cgo, which SPEC_FULL.md rules out. Instead RefBackend interprets the
// original fir.Function tree directly, giving the JIT path the same
// "deterministic stand-in for the real collaborator" role that
// internal/device's RefDevice plays for the OpenCL side.
type RefBackend struct{}

func NewRefBackend() *RefBackend { return &RefBackend{} }

type refCompiled struct {
	fn *fir.Function
}

func (b *RefBackend) Compile(module *ir.Module, irFn *ir.Func, src *fir.Function) (CompiledFunction, error) {
	if module == nil || irFn == nil {
		return nil, errors.WithStack(fmt.Errorf("jit: RefBackend given a nil lowered module"))
	}
	return &refCompiled{fn: src}, nil
}

func (c *refCompiled) Invoke(args []Value) (Value, error) {
	if len(args) != len(c.fn.Params) {
		return Value{}, errors.WithStack(fmt.Errorf("jit: %s expects %d args, got %d", c.fn.Name, len(c.fn.Params), len(args)))
	}
	env := make(map[int]Value, len(c.fn.Nodes))
	for i, p := range c.fn.Params {
		env[p.VarID] = args[i]
	}
	return evalBody(c.fn, c.fn.BodyID, env)
}

func evalBody(fn *fir.Function, id int, env map[int]Value) (Value, error) {
	n := fn.Node(id)
	if n.Kind == fir.NodeLet {
		v, err := evalExpr(fn, n.LetValue, env)
		if err != nil {
			return Value{}, err
		}
		env[fn.Node(n.LetVar).VarID] = v
		return evalBody(fn, n.LetBody, env)
	}
	return evalExpr(fn, id, env)
}

func evalExpr(fn *fir.Function, id int, env map[int]Value) (Value, error) {
	n := fn.Node(id)
	switch n.Kind {
	case fir.NodeConstant:
		switch n.ResultType {
		case fir.I32:
			return Value{Type: fir.I32, I32: n.ConstI32}, nil
		case fir.F32:
			return Value{Type: fir.F32, F32: n.ConstF32}, nil
		case fir.F64:
			return Value{Type: fir.F64, F64: n.ConstF64}, nil
		default:
			return Value{}, errors.WithStack(fmt.Errorf("jit: unsupported constant type %v", n.ResultType))
		}
	case fir.NodeVariable:
		v, ok := env[n.VarID]
		if !ok {
			return Value{}, errors.WithStack(fmt.Errorf("jit: unbound variable v%d", n.VarID))
		}
		return v, nil
	case fir.NodeCall:
		return evalCall(fn, n, env)
	case fir.NodeSelect:
		cond, err := evalExpr(fn, n.Cond, env)
		if err != nil {
			return Value{}, err
		}
		if cond.Bool {
			return evalExpr(fn, n.IfTrue, env)
		}
		return evalExpr(fn, n.IfFalse, env)
	case fir.NodeUndefStruct:
		st := n.Struct
		return Value{Type: st, Fields: make([]Value, len(st.Fields))}, nil
	case fir.NodeLoadField:
		agg, err := evalExpr(fn, n.Agg, env)
		if err != nil {
			return Value{}, err
		}
		if n.Field < 0 || n.Field >= len(agg.Fields) {
			return Value{}, errors.WithStack(fmt.Errorf("jit: load_field index %d out of range", n.Field))
		}
		return agg.Fields[n.Field], nil
	case fir.NodeStoreField:
		agg, err := evalExpr(fn, n.Agg, env)
		if err != nil {
			return Value{}, err
		}
		v, err := evalExpr(fn, n.StoreVal, env)
		if err != nil {
			return Value{}, err
		}
		out := Value{Type: agg.Type, Fields: append([]Value(nil), agg.Fields...)}
		out.Fields[n.Field] = v
		return out, nil
	default:
		return Value{}, errors.WithStack(fmt.Errorf("jit: unsupported node kind %s", n.Kind))
	}
}

func evalCall(fn *fir.Function, n *fir.Node, env map[int]Value) (Value, error) {
	args := make([]Value, len(n.Args))
	for i, a := range n.Args {
		v, err := evalExpr(fn, a, env)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}

	f64 := func(v Value) float64 {
		switch v.Type {
		case fir.F32:
			return float64(v.F32)
		case fir.F64:
			return v.F64
		default:
			return float64(v.I32)
		}
	}
	mk := func(t fir.Type, f float64) Value {
		switch t {
		case fir.F32:
			return Value{Type: fir.F32, F32: float32(f)}
		case fir.F64:
			return Value{Type: fir.F64, F64: f}
		default:
			return Value{Type: fir.I32, I32: int32(f)}
		}
	}

	switch n.Prim {
	case fir.PrimFAdd, fir.PrimFSub, fir.PrimFMul, fir.PrimFDiv:
		a, b := f64(args[0]), f64(args[1])
		switch n.Prim {
		case fir.PrimFAdd:
			return mk(n.ResultType, a+b), nil
		case fir.PrimFSub:
			return mk(n.ResultType, a-b), nil
		case fir.PrimFMul:
			return mk(n.ResultType, a*b), nil
		default:
			return mk(n.ResultType, a/b), nil
		}
	case fir.PrimIAdd:
		return Value{Type: fir.I32, I32: args[0].I32 + args[1].I32}, nil
	case fir.PrimISub:
		return Value{Type: fir.I32, I32: args[0].I32 - args[1].I32}, nil
	case fir.PrimIMul:
		return Value{Type: fir.I32, I32: args[0].I32 * args[1].I32}, nil
	case fir.PrimIDivS:
		return Value{Type: fir.I32, I32: args[0].I32 / args[1].I32}, nil
	case fir.PrimIDivU:
		return Value{Type: fir.I32, I32: int32(uint32(args[0].I32) / uint32(args[1].I32))}, nil
	case fir.PrimAnd:
		return Value{Type: fir.I32, I32: args[0].I32 & args[1].I32}, nil
	case fir.PrimOr:
		return Value{Type: fir.I32, I32: args[0].I32 | args[1].I32}, nil
	case fir.PrimXor:
		return Value{Type: fir.I32, I32: args[0].I32 ^ args[1].I32}, nil
	case fir.PrimShl:
		return Value{Type: fir.I32, I32: args[0].I32 << uint(args[1].I32)}, nil
	case fir.PrimShr:
		return Value{Type: fir.I32, I32: args[0].I32 >> uint(args[1].I32)}, nil
	case fir.PrimNot:
		return Value{Type: fir.Bool, Bool: !args[0].Bool}, nil
	case fir.PrimFNeg:
		return mk(n.ResultType, -f64(args[0])), nil
	case fir.PrimFCmpLT:
		return Value{Type: fir.Bool, Bool: f64(args[0]) < f64(args[1])}, nil
	case fir.PrimFCmpLE:
		return Value{Type: fir.Bool, Bool: f64(args[0]) <= f64(args[1])}, nil
	case fir.PrimFCmpGT:
		return Value{Type: fir.Bool, Bool: f64(args[0]) > f64(args[1])}, nil
	case fir.PrimFCmpGE:
		return Value{Type: fir.Bool, Bool: f64(args[0]) >= f64(args[1])}, nil
	case fir.PrimFCmpEQ:
		return Value{Type: fir.Bool, Bool: f64(args[0]) == f64(args[1])}, nil
	case fir.PrimFCmpNE:
		return Value{Type: fir.Bool, Bool: f64(args[0]) != f64(args[1])}, nil
	case fir.PrimICmpLT:
		return Value{Type: fir.Bool, Bool: args[0].I32 < args[1].I32}, nil
	case fir.PrimICmpLE:
		return Value{Type: fir.Bool, Bool: args[0].I32 <= args[1].I32}, nil
	case fir.PrimICmpGT:
		return Value{Type: fir.Bool, Bool: args[0].I32 > args[1].I32}, nil
	case fir.PrimICmpGE:
		return Value{Type: fir.Bool, Bool: args[0].I32 >= args[1].I32}, nil
	case fir.PrimICmpEQ:
		return Value{Type: fir.Bool, Bool: args[0].I32 == args[1].I32}, nil
	case fir.PrimICmpNE:
		return Value{Type: fir.Bool, Bool: args[0].I32 != args[1].I32}, nil
	case fir.PrimI32ToF32:
		return Value{Type: fir.F32, F32: float32(args[0].I32)}, nil
	case fir.PrimI32ToF64:
		return Value{Type: fir.F64, F64: float64(args[0].I32)}, nil
	case fir.PrimF32ToF64:
		return Value{Type: fir.F64, F64: float64(args[0].F32)}, nil
	case fir.PrimF64ToF32:
		return Value{Type: fir.F32, F32: float32(args[0].F64)}, nil
	case fir.PrimF32ToI32:
		return Value{Type: fir.I32, I32: int32(args[0].F32)}, nil
	case fir.PrimF64ToI32:
		return Value{Type: fir.I32, I32: int32(args[0].F64)}, nil
	default:
		return Value{}, errors.WithStack(fmt.Errorf("jit: unsupported primitive %s", n.Prim))
	}
}
