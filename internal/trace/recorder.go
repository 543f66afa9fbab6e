package trace

import "github.com/shiina-lab/nagisa/internal/device"

// Context is the process-wide recorder and scheduler state (C1-C5):
// the value table, the buffer pool, the kernel cache, and the
// generation counter. One Context drives one device for its whole
// lifetime, matching the single-threaded, single-context model of
// spec §5 — no mutex guards any of this, callers are expected to drive
// a Context from one goroutine.
type Context struct {
	table      *Table
	pool       *bufferPool
	dev        device.Device
	cache      map[string]device.Program
	generation int
}

// Option configures a Context at construction time. Functional options
// replace the thread-local/global configuration state the original
// frontend relies on (see SPEC_FULL.md's Configuration section).
type Option func(*Context)

// NewContext initializes a Context against dev (spec §6 `init()`). The
// predefined slots (currently just the thread-index pseudo-value) are
// populated before this returns.
func NewContext(dev device.Device, opts ...Option) *Context {
	ctx := &Context{
		table: newTable(),
		dev:   dev,
		cache: make(map[string]device.Program),
	}
	ctx.pool = newBufferPool(dev)
	for _, opt := range opts {
		opt(ctx)
	}
	return ctx
}

// Destroy releases every buffer and compiled program owned by ctx
// (spec §6 `destroy()`). The device queue itself is owned by dev, not
// ctx, and is the caller's to close.
func (ctx *Context) Destroy() {
	ctx.pool.buffers = nil
	ctx.pool.types = nil
	ctx.pool.widths = nil
	ctx.cache = nil
}

// append is the low-level constructor every op-specific helper below
// funnels through. It assigns a fresh index, bumps ref_internal on
// every operand this value reads, and returns the new index unadorned
// — callers decide whether to surface it as an externally-owned
// Handle.
func (ctx *Context) append(v Value) int {
	idx := ctx.table.append(v)
	for _, dep := range ctx.table.Get(idx).deps() {
		ctx.table.Get(dep).RefInt++
	}
	return idx
}

// TraceAppend implements spec §6's `trace_append(instruction,
// result_type) → new_idx`: the generic append entry point the array
// frontend drives directly, for opcodes whose shape this package's
// typed helpers (below) don't already cover. operands and store carry
// whichever fields the opcode needs; unused slots must be -1.
func (ctx *Context) TraceAppend(op Op, operands [3]int, store StoreInfo, imm Value, resultType Type) Handle {
	v := newValue(op, operands[0], operands[1], operands[2], resultType)
	v.ImmInt = imm.ImmInt
	v.ImmFloat = imm.ImmFloat
	v.Store = store
	idx := ctx.append(v)
	ctx.IncExt(Handle(idx))
	return Handle(idx)
}

// ConstInt records an i32 constant.
func (ctx *Context) ConstInt(n int64) Handle {
	v := newValue(OpConstInt, noOperand, noOperand, noOperand, TypeI32)
	v.ImmInt = n
	idx := ctx.append(v)
	ctx.IncExt(Handle(idx))
	return Handle(idx)
}

// ConstFloat records an f32 constant.
func (ctx *Context) ConstFloat(f float64) Handle {
	v := newValue(OpConstFloat, noOperand, noOperand, noOperand, TypeF32)
	v.ImmFloat = f
	idx := ctx.append(v)
	ctx.IncExt(Handle(idx))
	return Handle(idx)
}

func (ctx *Context) binary(op Op, resultType Type, a, b Handle) Handle {
	lhs, rhs := ctx.table.Get(int(a)), ctx.table.Get(int(b))
	width := widthOf(lhs.Width, rhs.Width)
	v := newValue(op, int(a), int(b), noOperand, resultType)
	v.Width = width
	v.widthSet = width != 1
	idx := ctx.append(v)
	ctx.IncExt(Handle(idx))
	return Handle(idx)
}

func (ctx *Context) FAdd(a, b Handle) Handle { return ctx.binary(OpFAdd, TypeF32, a, b) }
func (ctx *Context) FSub(a, b Handle) Handle { return ctx.binary(OpFSub, TypeF32, a, b) }
func (ctx *Context) FMul(a, b Handle) Handle { return ctx.binary(OpFMul, TypeF32, a, b) }
func (ctx *Context) FDiv(a, b Handle) Handle { return ctx.binary(OpFDiv, TypeF32, a, b) }

// Mod records an integer modulus. Per spec §9's open question, the
// original leaves floating mod undefined; this module restricts mod to
// i32 operands and rejects (fatal) anything else.
func (ctx *Context) Mod(a, b Handle) Handle {
	lhs, rhs := ctx.table.Get(int(a)), ctx.table.Get(int(b))
	if lhs.ResultType != TypeI32 || rhs.ResultType != TypeI32 {
		fatal("mod: operands must be i32, got %s and %s", lhs.ResultType, rhs.ResultType)
	}
	return ctx.binary(OpMod, TypeI32, a, b)
}

func (ctx *Context) cmp(op Op, a, b Handle) Handle { return ctx.binary(op, TypeBool, a, b) }

func (ctx *Context) CmpLT(a, b Handle) Handle { return ctx.cmp(OpCmpLT, a, b) }
func (ctx *Context) CmpLE(a, b Handle) Handle { return ctx.cmp(OpCmpLE, a, b) }
func (ctx *Context) CmpGT(a, b Handle) Handle { return ctx.cmp(OpCmpGT, a, b) }
func (ctx *Context) CmpGE(a, b Handle) Handle { return ctx.cmp(OpCmpGE, a, b) }
func (ctx *Context) CmpEQ(a, b Handle) Handle { return ctx.cmp(OpCmpEQ, a, b) }
func (ctx *Context) CmpNE(a, b Handle) Handle { return ctx.cmp(OpCmpNE, a, b) }

func (ctx *Context) unaryMath(op Op, a Handle) Handle {
	src := ctx.table.Get(int(a))
	v := newValue(op, int(a), noOperand, noOperand, TypeF32)
	v.Width = src.Width
	v.widthSet = src.widthSet
	idx := ctx.append(v)
	ctx.IncExt(Handle(idx))
	return Handle(idx)
}

func (ctx *Context) Sin(a Handle) Handle  { return ctx.unaryMath(OpSin, a) }
func (ctx *Context) Cos(a Handle) Handle  { return ctx.unaryMath(OpCos, a) }
func (ctx *Context) Sqrt(a Handle) Handle { return ctx.unaryMath(OpSqrt, a) }

// Select records a three-operand conditional: cond must be bool-typed.
func (ctx *Context) Select(cond, a, b Handle) Handle {
	cv, av, bv := ctx.table.Get(int(cond)), ctx.table.Get(int(a)), ctx.table.Get(int(b))
	if cv.ResultType != TypeBool {
		fatal("select: condition must be bool, got %s", cv.ResultType)
	}
	width := widthOf(av.Width, bv.Width)
	width = widthOf(width, cv.Width)
	v := newValue(OpSelect, int(cond), int(a), int(b), av.ResultType)
	v.Width = width
	v.widthSet = width != 1
	idx := ctx.append(v)
	ctx.IncExt(Handle(idx))
	return Handle(idx)
}

// Load resolves spec §9's open question directly: the frontend's load
// took an out-of-scope value.index(); this module's Load takes
// buf/mask/index explicitly, where buf must already reference a
// materialized (buffer-backed) value.
func (ctx *Context) Load(buf, mask, index Handle) Handle {
	bufVal := ctx.table.Get(int(buf))
	if !bufVal.Materialized() {
		fatal("load: buffer operand %d is not materialized", int(buf))
	}
	maskVal, indexVal := ctx.table.Get(int(mask)), ctx.table.Get(int(index))
	width := widthOf(maskVal.Width, indexVal.Width)
	v := newValue(OpLoad, int(buf), int(mask), int(index), bufVal.ResultType)
	v.Width = width
	v.widthSet = width != 1
	idx := ctx.append(v)
	ctx.IncExt(Handle(idx))
	return Handle(idx)
}

// Store records a guarded write into an already-materialized buffer.
// It has no result: it is scheduled for its side effect alone, reached
// through StoreInfo's dependency list rather than Operands (spec §4.2
// step 2: "store-ops carry deps = (idx, value, mask)", extended here
// with the buffer operand itself since unlike the original the buffer
// is addressed by handle, not by an implicit receiver).
func (ctx *Context) Store(buf, index, value, mask Handle) Handle {
	bufVal := ctx.table.Get(int(buf))
	if !bufVal.Materialized() {
		fatal("store: buffer operand %d is not materialized", int(buf))
	}
	indexVal, valueVal, maskVal := ctx.table.Get(int(index)), ctx.table.Get(int(value)), ctx.table.Get(int(mask))
	width := widthOf(widthOf(indexVal.Width, valueVal.Width), maskVal.Width)
	v := newValue(OpStore, noOperand, noOperand, noOperand, TypeNone)
	v.Store = StoreInfo{Buffer: int(buf), Index: int(index), Value: int(value), Mask: int(mask)}
	v.Width = width
	v.widthSet = width != 1
	idx := ctx.append(v)
	ctx.IncExt(Handle(idx))
	return Handle(idx)
}

// SetWidth implements spec §4.1 `set_width`.
func (ctx *Context) SetWidth(h Handle, width int) { ctx.table.setWidth(int(h), width) }

// BufferIDOf implements spec §4.1 `buffer_id_of`.
func (ctx *Context) BufferIDOf(h Handle) int { return ctx.table.Get(int(h)).BufferID }

// IncExt implements spec §6 `inc_ext`; a no-op below PredefinedCount.
func (ctx *Context) IncExt(h Handle) {
	if int(h) < PredefinedCount {
		return
	}
	ctx.table.Get(int(h)).RefExt++
}

// DecExt implements spec §6 `dec_ext`. Decrementing past zero is a
// programmer error (spec §7 "Double-free / negative external ref").
func (ctx *Context) DecExt(h Handle) {
	if int(h) < PredefinedCount {
		return
	}
	v := ctx.table.Get(int(h))
	if v.RefExt == 0 {
		fatal("dec_ext: negative external ref on index %d", int(h))
	}
	v.RefExt--
}

// IncInt/DecInt implement spec §6 `inc_int`/`dec_int`: dataflow
// bookkeeping only, not currently load-bearing on eviction (spec
// §4.1's note that ref_internal "is not currently load-bearing on
// eviction" — the scheduler's GC sweeps every value whose ref_external
// is zero, whatever its ref_internal; see gc.go).
func (ctx *Context) IncInt(h Handle) { ctx.table.Get(int(h)).RefInt++ }
func (ctx *Context) DecInt(h Handle) {
	v := ctx.table.Get(int(h))
	if v.RefInt == 0 {
		fatal("dec_int: negative internal ref on index %d", int(h))
	}
	v.RefInt--
}

// RefExt implements spec §6 `ref_ext`.
func (ctx *Context) RefExt(h Handle) int { return ctx.table.Get(int(h)).RefExt }

// BufferCount reports how many device buffers this context currently
// owns. Used by tests checking spec §8 invariant 6 (buffer ids form a
// dense 0..k prefix after GC).
func (ctx *Context) BufferCount() int { return ctx.pool.count() }

// Alloc implements spec §6 `alloc(byte_size, element_type) →
// (buffer_handle, buffer_id)`: it creates a device buffer directly
// (bypassing the scheduler's materialize-on-emit policy) and binds a
// pre-materialized value record to it so the result can be referenced
// as a Load/Store target from the trace.
func (ctx *Context) Alloc(byteSize int, t Type) (Handle, int, error) {
	id, err := ctx.pool.allocBytes(byteSize, t)
	if err != nil {
		return invalidHandle, 0, err
	}
	width := ctx.pool.widths[id]
	v := newValue(OpConstInt, noOperand, noOperand, noOperand, t)
	v.Width = width
	v.widthSet = width != 1
	v.BufferID = id
	v.LastSyncTime = ctx.generation
	idx := ctx.append(v)
	ctx.IncExt(Handle(idx))
	return Handle(idx), id, nil
}

// Free implements spec §6 `free(buffer_handle)`. Unlike a traced
// value's ordinary lifecycle (collected by the scheduler's post-launch
// GC once ref_external reaches zero), an explicitly allocated buffer
// is released immediately: it was never subject to materialization
// policy in the first place, so there is nothing for a later eval to
// reclaim it from.
func (ctx *Context) Free(h Handle) error {
	v := ctx.table.Get(int(h))
	if v.RefExt == 0 {
		fatal("free: double-free on index %d", int(h))
	}
	v.RefExt = 0
	if !v.Materialized() {
		return nil
	}
	keep := make(map[int]bool, ctx.pool.count())
	for i := 0; i < ctx.pool.count(); i++ {
		if i != v.BufferID {
			keep[i] = true
		}
	}
	remap := ctx.pool.compact(keep)
	ctx.table.each(func(_ int, other *Value) {
		if !other.Materialized() {
			return
		}
		if other.BufferID == v.BufferID {
			other.BufferID = noOperand
			other.LastSyncTime = -1
			return
		}
		if nid, ok := remap[other.BufferID]; ok {
			other.BufferID = nid
		}
	})
	return nil
}
