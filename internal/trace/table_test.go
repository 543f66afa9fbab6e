package trace

import "testing"

func TestNewTableReservesThreadIndex(t *testing.T) {
	tb := newTable()
	if tb.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tb.Len())
	}
	v := tb.Get(ThreadIndex)
	if v.ResultType != TypeI32 {
		t.Errorf("ThreadIndex type = %s, want i32", v.ResultType)
	}
}

func TestTableGetOutOfRangeFatal(t *testing.T) {
	if !fatalTestHook(func() {
		tb := newTable()
		tb.Get(5)
	}) {
		t.Fatal("Get on an out-of-range index did not fatal")
	}
}

func TestTableGetFreedFatal(t *testing.T) {
	tb := newTable()
	idx := tb.append(newValue(OpConstInt, noOperand, noOperand, noOperand, TypeI32))
	tb.values[idx].Freed = true
	if !fatalTestHook(func() {
		tb.Get(idx)
	}) {
		t.Fatal("Get on a freed index did not fatal")
	}
}

func TestSetWidthRejectsZeroOrNegative(t *testing.T) {
	tb := newTable()
	idx := tb.append(newValue(OpConstInt, noOperand, noOperand, noOperand, TypeI32))
	if !fatalTestHook(func() {
		tb.setWidth(idx, 0)
	}) {
		t.Fatal("setWidth(0) did not fatal")
	}
}

func TestSetWidthRejectsConflictingReset(t *testing.T) {
	tb := newTable()
	idx := tb.append(newValue(OpConstInt, noOperand, noOperand, noOperand, TypeI32))
	tb.setWidth(idx, 4)
	if !fatalTestHook(func() {
		tb.setWidth(idx, 8)
	}) {
		t.Fatal("setWidth with a conflicting width did not fatal")
	}
}

func TestSetWidthIdempotentForSameValue(t *testing.T) {
	tb := newTable()
	idx := tb.append(newValue(OpConstInt, noOperand, noOperand, noOperand, TypeI32))
	tb.setWidth(idx, 4)
	tb.setWidth(idx, 4)
	if tb.Get(idx).Width != 4 {
		t.Errorf("Width = %d, want 4", tb.Get(idx).Width)
	}
}

func TestWidthOfBroadcastRule(t *testing.T) {
	cases := []struct{ lhs, rhs, want int }{
		{1, 1, 1},
		{1, 8, 8},
		{8, 1, 8},
		{8, 8, 8},
	}
	for _, c := range cases {
		got := widthOf(c.lhs, c.rhs)
		if got != c.want {
			t.Errorf("widthOf(%d, %d) = %d, want %d", c.lhs, c.rhs, got, c.want)
		}
	}
}

func TestWidthOfConflictFatal(t *testing.T) {
	if !fatalTestHook(func() {
		widthOf(4, 8)
	}) {
		t.Fatal("widthOf(4, 8) did not fatal")
	}
}
