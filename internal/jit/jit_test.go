package jit

import (
	"testing"

	"github.com/shiina-lab/nagisa/internal/fir"
)

func buildAddOne(name string) *fir.Function {
	b := fir.NewBuilder(name)
	p := b.MakeParameter(fir.F32)
	one := b.ConstF32(1)
	sum := b.FAdd(p, one)
	return b.Finish(sum)
}

func TestLowerProducesModule(t *testing.T) {
	fn := buildAddOne("add_one")
	module, irFn, err := Lower(fn)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if module == nil || irFn == nil {
		t.Fatalf("Lower returned nil module or func")
	}
	if irFn.Name() != "add_one" {
		t.Errorf("func name = %q, want add_one", irFn.Name())
	}
}

func TestRefBackendInvoke(t *testing.T) {
	fn := buildAddOne("add_one")
	cache := NewCache(NewRefBackend())

	cf, err := cache.Compile(fn)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	out, err := cf.Invoke([]Value{{Type: fir.F32, F32: 41}})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out.F32 != 42 {
		t.Errorf("add_one(41) = %v, want 42", out.F32)
	}
}

// TestCacheIdentity exercises spec's invariant that the cache keys on
// pointer identity: two Functions built from identical content are two
// distinct cache entries.
func TestCacheIdentity(t *testing.T) {
	fnA := buildAddOne("add_one")
	fnB := buildAddOne("add_one")
	cache := NewCache(NewRefBackend())

	if _, err := cache.Compile(fnA); err != nil {
		t.Fatalf("Compile fnA: %v", err)
	}
	if cache.Len() != 1 {
		t.Fatalf("Len after first compile = %d, want 1", cache.Len())
	}

	if _, err := cache.Compile(fnA); err != nil {
		t.Fatalf("Compile fnA again: %v", err)
	}
	if cache.Len() != 1 {
		t.Errorf("Len after repeat compile of same pointer = %d, want 1 (cache hit)", cache.Len())
	}

	if _, err := cache.Compile(fnB); err != nil {
		t.Fatalf("Compile fnB: %v", err)
	}
	if cache.Len() != 2 {
		t.Errorf("Len after compiling a structurally-identical but distinct pointer = %d, want 2", cache.Len())
	}
}

func buildSwapStruct() *fir.Function {
	st := &fir.StructType{Name: "pair", Fields: []fir.FieldDef{
		{Name: "a", Type: fir.F32},
		{Name: "b", Type: fir.F32},
	}}
	b := fir.NewBuilder("swap_pair")
	p := b.MakeParameter(st)
	a := b.LoadField(p, 0)
	c := b.LoadField(p, 1)
	swapped := b.StoreField(p, 0, c)
	swapped = b.StoreField(swapped, 1, a)
	return b.Finish(swapped)
}

// TestStructRoundTrip round-trips a two-field struct through
// LoadField/StoreField, swapping its fields.
func TestStructRoundTrip(t *testing.T) {
	fn := buildSwapStruct()
	cache := NewCache(NewRefBackend())

	cf, err := cache.Compile(fn)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	in := Value{Fields: []Value{
		{Type: fir.F32, F32: 1},
		{Type: fir.F32, F32: 2},
	}}
	out, err := cf.Invoke([]Value{in})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out.Fields[0].F32 != 2 || out.Fields[1].F32 != 1 {
		t.Errorf("swap_pair(1,2) = (%v,%v), want (2,1)", out.Fields[0].F32, out.Fields[1].F32)
	}
}

func TestOrderedFloatComparison(t *testing.T) {
	b := fir.NewBuilder("lt")
	p0 := b.MakeParameter(fir.F32)
	p1 := b.MakeParameter(fir.F32)
	cmp := b.FCmpLT(p0, p1)
	fn := b.Finish(cmp)

	cache := NewCache(NewRefBackend())
	cf, err := cache.Compile(fn)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	cases := []struct {
		a, b float32
		want bool
	}{
		{1, 2, true},
		{2, 1, false},
		{1, 1, false},
	}
	for _, c := range cases {
		out, err := cf.Invoke([]Value{{Type: fir.F32, F32: c.a}, {Type: fir.F32, F32: c.b}})
		if err != nil {
			t.Fatalf("Invoke(%v,%v): %v", c.a, c.b, err)
		}
		if out.Bool != c.want {
			t.Errorf("%v < %v = %v, want %v", c.a, c.b, out.Bool, c.want)
		}
	}
}
