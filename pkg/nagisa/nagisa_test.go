package nagisa_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/shiina-lab/nagisa/internal/device"
	"github.com/shiina-lab/nagisa/internal/jit"
	"github.com/shiina-lab/nagisa/pkg/nagisa"
)

func decodeFloats(t *testing.T, data []byte) []float32 {
	t.Helper()
	out := make([]float32, len(data)/4)
	for i := range out {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out
}

// TestSeedS1 is spec §8's S1: a = const_f32(2); r = range_i32(128);
// s = a + r; read(s) should read [2, 3, ..., 129].
func TestSeedS1(t *testing.T) {
	ctx := nagisa.NewContext(nagisa.NewRefDevice(), jit.NewRefBackend())
	a := ctx.ConstFloat(2)
	r := ctx.Range(128)
	s := ctx.FAdd(a, r)

	dst := make([]byte, 128*4)
	if err := ctx.CopyToHost(s, dst); err != nil {
		t.Fatalf("CopyToHost: %v", err)
	}
	got := decodeFloats(t, dst)
	for i, v := range got {
		want := float32(2 + i)
		if v != want {
			t.Fatalf("got[%d] = %v, want %v", i, v, want)
		}
	}
}

// TestSeedS2 loops a = a + r five times before reading.
func TestSeedS2(t *testing.T) {
	ctx := nagisa.NewContext(nagisa.NewRefDevice(), jit.NewRefBackend())
	a := ctx.ConstFloat(2)
	r := ctx.Range(128)

	for i := 0; i < 5; i++ {
		a = ctx.FAdd(a, r)
	}

	dst := make([]byte, 128*4)
	if err := ctx.CopyToHost(a, dst); err != nil {
		t.Fatalf("CopyToHost: %v", err)
	}
	got := decodeFloats(t, dst)
	for i, v := range got {
		want := float32(2 + 5*i)
		if v != want {
			t.Fatalf("got[%d] = %v, want %v", i, v, want)
		}
	}
}

// TestSeedS6 builds a 128-lane addition chain, drops external handles
// for every intermediate sum, and checks that only the final value
// materializes a buffer and that buffer ids stay dense post-GC.
func TestSeedS6(t *testing.T) {
	ctx := nagisa.NewContext(nagisa.NewRefDevice(), jit.NewRefBackend())
	x := ctx.Range(128)

	y := x
	for i := 0; i < 5; i++ {
		next := ctx.FAdd(y, x)
		ctx.DecExt(y)
		y = next
	}

	if err := ctx.Eval(); err != nil {
		t.Fatalf("Eval: %v", err)
	}

	if ctx.BufferCount() != 1 {
		t.Fatalf("BufferCount after GC = %d, want 1 (only the final sum)", ctx.BufferCount())
	}
	if ctx.BufferIDOf(y) != 0 {
		t.Fatalf("final value's buffer id = %d, want 0 (dense prefix)", ctx.BufferIDOf(y))
	}

	dst := make([]byte, 128*4)
	if err := ctx.CopyToHost(y, dst); err != nil {
		t.Fatalf("CopyToHost: %v", err)
	}
	got := decodeFloats(t, dst)
	for i, v := range got {
		want := float32(6 * i)
		if v != want {
			t.Fatalf("got[%d] = %v, want %v", i, v, want)
		}
	}
}

// TestSeedS4 is the functional-IR scenario: f(x) = select(x<0, 0, x*x) + 2.
func TestSeedS4(t *testing.T) {
	b := nagisa.NewFunction("f")
	x := b.MakeParameter(nagisa.FIRF32)
	zero := b.ConstF32(0)
	cond := b.FCmpLT(x, zero)
	squared := b.FMul(x, x)
	sel := b.Select(cond, zero, squared)
	two := b.ConstF32(2)
	result := b.FAdd(sel, two)
	fn := b.Finish(result)

	ctx := nagisa.NewContext(nagisa.NewRefDevice(), jit.NewRefBackend())
	cf, err := ctx.Compile(fn)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	cases := []struct {
		in, want float32
	}{
		{-1, 2},
		{3, 11},
	}
	for _, c := range cases {
		out, err := cf.Invoke([]nagisa.FIRValue{{Type: nagisa.FIRF32, F32: c.in}})
		if err != nil {
			t.Fatalf("Invoke(%v): %v", c.in, err)
		}
		if out.F32 != c.want {
			t.Errorf("f(%v) = %v, want %v", c.in, out.F32, c.want)
		}
	}
}

// TestSeedS5 is the two-field struct scenario: g(p) = p.x + p.y, called
// with {1, 2}, expecting 3.0.
func TestSeedS5(t *testing.T) {
	st := &nagisa.StructType{Name: "point", Fields: []nagisa.FieldDef{
		{Name: "x", Type: nagisa.FIRF32},
		{Name: "y", Type: nagisa.FIRF32},
	}}

	b := nagisa.NewFunction("g")
	p := b.MakeParameter(st)
	px := b.LoadField(p, 0)
	py := b.LoadField(p, 1)
	sum := b.FAdd(px, py)
	fn := b.Finish(sum)

	ctx := nagisa.NewContext(nagisa.NewRefDevice(), jit.NewRefBackend())
	cf, err := ctx.Compile(fn)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	in := nagisa.FIRValue{Fields: []nagisa.FIRValue{
		{Type: nagisa.FIRF32, F32: 1},
		{Type: nagisa.FIRF32, F32: 2},
	}}
	out, err := cf.Invoke([]nagisa.FIRValue{in})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out.F32 != 3 {
		t.Errorf("g({1,2}) = %v, want 3", out.F32)
	}
}

// TestDeviceMock is a compile-time check that the RefDevice returned by
// nagisa.NewRefDevice satisfies the device.Device contract.
func TestDeviceMock(t *testing.T) {
	var _ device.Device = nagisa.NewRefDevice()
}
