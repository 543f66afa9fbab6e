// Package nagisa is the public entry point: it wires the SSA trace
// recorder/scheduler (internal/trace), the device backend contract
// (internal/device), the functional IR builder (internal/fir), and the
// LLVM-backed JIT (internal/jit) into the single façade an array
// frontend is expected to drive, matching spec §6's External Interfaces
// list one-for-one.
package nagisa

import (
	"github.com/shiina-lab/nagisa/internal/device"
	"github.com/shiina-lab/nagisa/internal/fir"
	"github.com/shiina-lab/nagisa/internal/jit"
	"github.com/shiina-lab/nagisa/internal/trace"
)

// Re-exported so callers never need to import internal/trace directly.
type (
	Handle = trace.Handle
	Type   = trace.Type
	Option = trace.Option
)

const (
	TypeBool = trace.TypeBool
	TypeI32  = trace.TypeI32
	TypeF32  = trace.TypeF32
)

// Functional-IR types and values (C7), re-exported the same way so a
// caller builds and invokes compiled functions without reaching into
// internal/fir or internal/jit directly.
type (
	FIRType    = fir.Type
	StructType = fir.StructType
	FieldDef   = fir.FieldDef
	FIRValue   = jit.Value
	Function   = fir.Function
)

const (
	FIRBool = fir.Bool
	FIRI32  = fir.I32
	FIRF32  = fir.F32
	FIRF64  = fir.F64
)

// Device and Buffer are re-exported for the same reason; RefDevice is
// the in-memory stand-in used when no real OpenCL binding is wired up.
type (
	Device = device.Device
	Buffer = device.Buffer
)

func NewRefDevice() *device.RefDevice { return device.NewRefDevice() }

// Context is the array frontend's single handle onto the trace engine.
// It embeds *trace.Context so every §6 operation (TraceAppend, Alloc,
// Free, IncExt/DecExt, Eval, CopyToHost, ...) is available directly,
// and additionally owns the JIT cache for the functional-IR path (C7/C8),
// which is independent of the trace engine's lifecycle.
type Context struct {
	*trace.Context
	jit *jit.Cache
}

// NewContext wires a trace.Context against dev and a JIT cache against
// backend. backend is the opaque "native-code JIT" collaborator spec
// §1/§6 leaves external; pass jit.NewRefBackend() to exercise the
// functional-IR path without a real code generator.
func NewContext(dev device.Device, backend jit.NativeBackend, opts ...Option) *Context {
	return &Context{
		Context: trace.NewContext(dev, opts...),
		jit:     jit.NewCache(backend),
	}
}

// Range broadcasts the reserved thread-index pseudo-value to width
// lanes and returns its handle, the per-lane "range_i32(width)" spec §8's
// seed scenarios describe informally — implemented here as set_width on
// the one predefined slot rather than as a new trace opcode, since the
// predefined value already *is* the per-lane index.
func (c *Context) Range(width int) Handle {
	h := Handle(trace.ThreadIndex)
	c.SetWidth(h, width)
	return h
}

// NewFunction starts a functional-IR builder (C7); call Compile on the
// finished *fir.Function to JIT it.
func NewFunction(name string) *fir.Builder { return fir.NewBuilder(name) }

// Compile lowers and JIT-compiles fn, memoized by fn's pointer identity
// (spec §8 invariant 5: compile(f) == compile(f) only for the same f).
func (c *Context) Compile(fn *fir.Function) (jit.CompiledFunction, error) {
	return c.jit.Compile(fn)
}
