package trace

// Table is the dense map from a 32-bit SSA index to its Value record
// (C1). Indices are assigned densely starting at 0; PredefinedCount of
// them are reserved before user code ever runs.
type Table struct {
	values []Value
}

// newTable builds a table with the predefined slots already populated.
// Index 0 (ThreadIndex) has type i32, per spec §3/§6.
func newTable() *Table {
	t := &Table{values: make([]Value, 0, 64)}
	v := newValue(OpConstInt, noOperand, noOperand, noOperand, TypeI32)
	v.ResultType = TypeI32
	t.values = append(t.values, v)
	return t
}

// Len returns the number of indices currently in the table, including
// freed slots that have not yet been compacted (the table never
// compacts the index space itself — only buffer ids are densely
// renumbered, per spec §3's "Buffers ... destroyed ... surviving
// buffers are renumbered").
func (t *Table) Len() int { return len(t.values) }

// Get returns a pointer to the value record at idx. Callers within this
// package only ever pass in-range indices produced by append, so this
// intentionally calls fatal (assertion failure, per spec §7 "Ref to
// missing index") rather than returning an ok bool.
func (t *Table) Get(idx int) *Value {
	if idx < 0 || idx >= len(t.values) {
		fatal("ref to missing index %d", idx)
	}
	if t.values[idx].Freed {
		fatal("ref to missing index %d", idx)
	}
	return &t.values[idx]
}

// append inserts a new value record and returns its freshly assigned
// index. O(1), never blocks, per spec §4.1.
func (t *Table) append(v Value) int {
	idx := len(t.values)
	t.values = append(t.values, v)
	return idx
}

// setWidth implements spec §4.1's set_width: an index's width may be
// set at most once to a value other than 1, and only while the value
// is not yet materialized (buffer_id == -1). Violations are fatal per
// spec §7 ("Re-setting width after materialisation").
func (t *Table) setWidth(idx int, width int) {
	v := t.Get(idx)
	if width <= 0 {
		fatal("set_width(%d, %d): width must be positive", idx, width)
	}
	if v.Materialized() {
		fatal("set_width(%d, %d): value already materialized", idx, width)
	}
	if v.widthSet && v.Width != width {
		fatal("set_width(%d, %d): width already set to %d", idx, width, v.Width)
	}
	v.Width = width
	v.widthSet = width != 1
}

// widthOf checks binary-op width compatibility (spec §3): operand
// widths must be equal or one must be 1; returns the broadcast result
// width, i.e. max(lhs, rhs).
func widthOf(lhs, rhs int) int {
	if lhs != rhs && lhs != 1 && rhs != 1 {
		fatal("width conflict: %d vs %d", lhs, rhs)
	}
	if lhs > rhs {
		return lhs
	}
	return rhs
}

// each calls fn for every index in ascending order, including
// predefined slots.
func (t *Table) each(fn func(idx int, v *Value)) {
	for i := range t.values {
		fn(i, &t.values[i])
	}
}
