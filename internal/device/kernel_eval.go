package device

import (
	"fmt"
	"math"
)

// kval is a small tagged runtime value used only by the reference
// interpreter below. Our own codegen never mixes types within one
// expression in a way that needs more than this.
type kval struct {
	isFloat bool
	isBool  bool
	i       int64
	f       float64
	b       bool
}

func kvInt(n int64) kval     { return kval{i: n} }
func kvFloat(f float64) kval { return kval{isFloat: true, f: f} }
func kvBool(b bool) kval     { return kval{isBool: true, b: b} }

func (v kval) toFloat() float64 {
	switch {
	case v.isFloat:
		return v.f
	case v.isBool:
		if v.b {
			return 1
		}
		return 0
	default:
		return float64(v.i)
	}
}

func (v kval) toInt() int64 {
	switch {
	case v.isFloat:
		return int64(v.f)
	case v.isBool:
		if v.b {
			return 1
		}
		return 0
	default:
		return v.i
	}
}

func (v kval) toBool() bool {
	switch {
	case v.isBool:
		return v.b
	case v.isFloat:
		return v.f != 0
	default:
		return v.i != 0
	}
}

func binOp(op tokenKind, a, b kval) (kval, error) {
	numeric := a.isFloat || b.isFloat
	switch op {
	case tokPlus:
		return kvFloat(a.toFloat() + b.toFloat()), nil
	case tokMinus:
		return kvFloat(a.toFloat() - b.toFloat()), nil
	case tokStar:
		return kvFloat(a.toFloat() * b.toFloat()), nil
	case tokSlash:
		return kvFloat(a.toFloat() / b.toFloat()), nil
	case tokPercent:
		return kvInt(a.toInt() % b.toInt()), nil
	case tokLt:
		if numeric {
			return kvBool(a.toFloat() < b.toFloat()), nil
		}
		return kvBool(a.toInt() < b.toInt()), nil
	case tokLe:
		if numeric {
			return kvBool(a.toFloat() <= b.toFloat()), nil
		}
		return kvBool(a.toInt() <= b.toInt()), nil
	case tokGt:
		if numeric {
			return kvBool(a.toFloat() > b.toFloat()), nil
		}
		return kvBool(a.toInt() > b.toInt()), nil
	case tokGe:
		if numeric {
			return kvBool(a.toFloat() >= b.toFloat()), nil
		}
		return kvBool(a.toInt() >= b.toInt()), nil
	case tokEq:
		if numeric {
			return kvBool(a.toFloat() == b.toFloat()), nil
		}
		return kvBool(a.toInt() == b.toInt()), nil
	case tokNe:
		if numeric {
			return kvBool(a.toFloat() != b.toFloat()), nil
		}
		return kvBool(a.toInt() != b.toInt()), nil
	default:
		return kval{}, fmt.Errorf("kernel eval: unsupported operator %q", tokenNames[op])
	}
}

// kernelFrame holds everything evalExpr needs to evaluate one lane
// (one get_global_id(0) value) of one dispatch.
type kernelFrame struct {
	prog  *kernelProgram
	bufs  []*MemBuffer
	names map[string]int // param name -> index into bufs/prog.params
	gid   int
	env   map[string]kval
}

func newKernelFrame(prog *kernelProgram, bufs []*MemBuffer, gid int) *kernelFrame {
	names := make(map[string]int, len(prog.params))
	for i, p := range prog.params {
		names[p.name] = i
	}
	return &kernelFrame{prog: prog, bufs: bufs, names: names, gid: gid, env: map[string]kval{}}
}

func (fr *kernelFrame) readBuffer(name string, index int) (kval, error) {
	i, ok := fr.names[name]
	if !ok {
		return kval{}, fmt.Errorf("kernel eval: unknown buffer %q", name)
	}
	return readElement(fr.bufs[i], fr.prog.params[i].typ, index)
}

func (fr *kernelFrame) writeBuffer(name string, index int, v kval) error {
	i, ok := fr.names[name]
	if !ok {
		return fmt.Errorf("kernel eval: unknown buffer %q", name)
	}
	return writeElement(fr.bufs[i], fr.prog.params[i].typ, index, v)
}

func (fr *kernelFrame) eval(expr kernelExpr) (kval, error) {
	switch e := expr.(type) {
	case globalIDExpr:
		return kvInt(int64(fr.gid)), nil
	case intLitExpr:
		return kvInt(e.n), nil
	case floatLitExpr:
		return kvFloat(e.f), nil
	case identExpr:
		v, ok := fr.env[e.name]
		if !ok {
			return kval{}, fmt.Errorf("kernel eval: unbound identifier %q", e.name)
		}
		return v, nil
	case binExpr:
		a, err := fr.eval(e.a)
		if err != nil {
			return kval{}, err
		}
		b, err := fr.eval(e.b)
		if err != nil {
			return kval{}, err
		}
		return binOp(e.op, a, b)
	case selectExpr:
		cond, err := fr.eval(e.cond)
		if err != nil {
			return kval{}, err
		}
		if cond.toBool() {
			return fr.eval(e.a)
		}
		return fr.eval(e.b)
	case loadExpr:
		cond, err := fr.eval(e.cond)
		if err != nil {
			return kval{}, err
		}
		if !cond.toBool() {
			return kvInt(0), nil
		}
		idx, err := fr.eval(e.index)
		if err != nil {
			return kval{}, err
		}
		return fr.readBuffer(e.buf, int(idx.toInt()))
	case loadBufRef:
		idx, err := fr.eval(e.index)
		if err != nil {
			return kval{}, err
		}
		return fr.readBuffer(e.buf, int(idx.toInt()))
	case callExpr:
		a, err := fr.eval(e.arg)
		if err != nil {
			return kval{}, err
		}
		switch e.name {
		case "sin":
			return kvFloat(math.Sin(a.toFloat())), nil
		case "cos":
			return kvFloat(math.Cos(a.toFloat())), nil
		case "sqrt":
			return kvFloat(math.Sqrt(a.toFloat())), nil
		default:
			return kval{}, fmt.Errorf("kernel eval: unknown call %q", e.name)
		}
	default:
		return kval{}, fmt.Errorf("kernel eval: unsupported expression %T", expr)
	}
}

// runLane executes every statement of prog for lane gid against bufs.
func runLane(prog *kernelProgram, bufs []*MemBuffer, gid int) error {
	fr := newKernelFrame(prog, bufs, gid)
	for _, stmt := range prog.stmts {
		switch s := stmt.(type) {
		case assignStmt:
			v, err := fr.eval(s.expr)
			if err != nil {
				return err
			}
			fr.env[s.name] = v
		case storeStmt:
			idx, err := fr.eval(s.index)
			if err != nil {
				return err
			}
			val, err := fr.eval(s.value)
			if err != nil {
				return err
			}
			if err := fr.writeBuffer(s.name, int(idx.toInt()), val); err != nil {
				return err
			}
		case guardedStoreStmt:
			cond, err := fr.eval(s.cond)
			if err != nil {
				return err
			}
			if !cond.toBool() {
				continue
			}
			idx, err := fr.eval(s.index)
			if err != nil {
				return err
			}
			val, err := fr.eval(s.value)
			if err != nil {
				return err
			}
			if err := fr.writeBuffer(s.name, int(idx.toInt()), val); err != nil {
				return err
			}
		default:
			return fmt.Errorf("kernel eval: unsupported statement %T", stmt)
		}
	}
	return nil
}
