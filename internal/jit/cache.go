package jit

import (
	"fmt"
	"sync"

	"github.com/llir/llvm/ir"
	"github.com/pkg/errors"

	"github.com/shiina-lab/nagisa/internal/fir"
)

// Value is the native calling-convention value NativeBackend trades in:
// a tagged scalar or, for the struct scenarios in spec §8 (S5), a flat
// list of fields in declaration order.
type Value struct {
	Type   fir.Type
	I32    int32
	F32    float32
	F64    float64
	Bool   bool
	Fields []Value
}

// CompiledFunction is a single native entry point produced by a
// NativeBackend from one lowered Function.
type CompiledFunction interface {
	Invoke(args []Value) (Value, error)
}

// NativeBackend is the opaque "native-code JIT" collaborator spec §1
// and §6 place out of scope: something that turns an *ir.Module (and
// its one exported *ir.Func) into a callable pointer. internal/jit
// owns producing the module and caching by function identity; a
// concrete backend owns everything from there. src is passed alongside
// the lowered module so a reference backend without a real execution
// engine can interpret the original tree directly instead.
type NativeBackend interface {
	Compile(module *ir.Module, fn *ir.Func, src *fir.Function) (CompiledFunction, error)
}

// Cache memoizes compiled native code by the identity of the *fir.Function
// pointer passed in, never by structural content: two Functions built to
// identical content are two cache entries unless they are literally the
// same pointer (spec §4.5, §8 invariant 5).
type Cache struct {
	backend NativeBackend

	mu      sync.Mutex
	entries map[*fir.Function]CompiledFunction
}

func NewCache(backend NativeBackend) *Cache {
	return &Cache{backend: backend, entries: make(map[*fir.Function]CompiledFunction)}
}

// Compile returns the cached CompiledFunction for fn, lowering and
// asking the backend to compile it on the first call for this exact
// pointer.
func (c *Cache) Compile(fn *fir.Function) (CompiledFunction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cf, ok := c.entries[fn]; ok {
		return cf, nil
	}

	module, irFn, err := Lower(fn)
	if err != nil {
		return nil, err
	}
	cf, err := c.backend.Compile(module, irFn, fn)
	if err != nil {
		return nil, errors.WithStack(fmt.Errorf("jit: backend compile failed: %w", err))
	}
	c.entries[fn] = cf
	return cf, nil
}

// Len reports how many distinct function pointers have been compiled,
// used by tests asserting the cache doesn't grow on a repeat Compile
// of the same pointer.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
