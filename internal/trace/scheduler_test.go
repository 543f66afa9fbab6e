package trace

import (
	"testing"

	"github.com/shiina-lab/nagisa/internal/device"
)

// TestEvalDoesNotRescheduleMaterializedRoot checks spec §8 invariant 2: after eval(), there
// are no live roots left to schedule on the next call (liveRoots is
// recomputed fresh from ref_external every time, so this holds as long
// as nothing keeps an external ref to a value with ref_external > 0
// that isn't otherwise already resident).
func TestEvalDoesNotRescheduleMaterializedRoot(t *testing.T) {
	ctx := NewContext(device.NewRefDevice())
	a := ctx.ConstFloat(2)
	ctx.SetWidth(Handle(ThreadIndex), 4)
	s := ctx.FAdd(a, Handle(ThreadIndex))

	if err := ctx.Eval(); err != nil {
		t.Fatalf("first Eval: %v", err)
	}
	firstCacheLen := len(ctx.cache)

	if err := ctx.Eval(); err != nil {
		t.Fatalf("second Eval: %v", err)
	}
	if len(ctx.cache) != firstCacheLen {
		t.Errorf("second Eval compiled a new kernel (cache grew from %d to %d) for an already-materialized root", firstCacheLen, len(ctx.cache))
	}
	if !ctx.table.Get(int(s)).Materialized() {
		t.Errorf("root %d lost its buffer across evals", int(s))
	}
}

// TestGCReclaimsDeadIntermediatesOnly mirrors spec §8 S6: a chain of
// sums where every intermediate handle is dropped before eval should
// leave exactly one buffer (the final sum's) and dense ids.
func TestGCReclaimsDeadIntermediatesOnly(t *testing.T) {
	ctx := NewContext(device.NewRefDevice())
	ctx.SetWidth(Handle(ThreadIndex), 8)
	x := Handle(ThreadIndex)

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
		t.Fatalf("BufferCount = %d, want 1", ctx.BufferCount())
	}
	if ctx.BufferIDOf(y) != 0 {
		t.Errorf("final buffer id = %d, want 0", ctx.BufferIDOf(y))
	}
}

// TestFreedIndexIsTombstoned checks that a GC'd index can no longer be
// referenced — spec §7's "Ref to missing index" assertion failure.
func TestFreedIndexIsTombstoned(t *testing.T) {
	ctx := NewContext(device.NewRefDevice())
	ctx.SetWidth(Handle(ThreadIndex), 4)
	x := Handle(ThreadIndex)
	intermediate := ctx.FAdd(x, x)
	final := ctx.FAdd(intermediate, x)
	ctx.DecExt(intermediate)

	if err := ctx.Eval(); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !fatalTestHook(func() { ctx.table.Get(int(intermediate)) }) {
		t.Fatal("referencing a GC'd index did not fatal")
	}
	_ = final
}

// TestOrderBucketSkipsMaterializedDeps ensures a value already
// resident in a buffer from an earlier generation is read back with a
// load rather than retraced.
func TestOrderBucketSkipsMaterializedDeps(t *testing.T) {
	ctx := NewContext(device.NewRefDevice())
	ctx.SetWidth(Handle(ThreadIndex), 4)
	a := ctx.FAdd(Handle(ThreadIndex), Handle(ThreadIndex))

	if err := ctx.Eval(); err != nil {
		t.Fatalf("first Eval: %v", err)
	}
	if !ctx.table.Get(int(a)).Materialized() {
		t.Fatalf("a was not materialized by the first eval")
	}

	b := ctx.FAdd(a, a)
	if err := ctx.Eval(); err != nil {
		t.Fatalf("second Eval: %v", err)
	}
	if !ctx.table.Get(int(b)).Materialized() {
		t.Errorf("b was not materialized by the second eval")
	}
}
