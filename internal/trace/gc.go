package trace

// gc performs the post-launch collection described in spec §4.2 step
// 4: every user-created value with ref_external == 0 is reclaimed
// (tombstoned, its buffer if any released), and surviving buffer ids
// are densely renumbered to 0..k-1 with no gaps (spec §8 invariant 6).
// It is not refcount-triggered (internal refs are not load-bearing on
// eviction, spec §4.1) — it is a full sweep over the table, grounded
// in the worklist-style mark/sweep the teacher's own dead-code
// elimination pass uses.
func (ctx *Context) gc() {
	keep := make(map[int]bool)
	ctx.table.each(func(idx int, v *Value) {
		if idx < PredefinedCount || v.Freed {
			return
		}
		if v.RefExt > 0 {
			if v.Materialized() {
				keep[v.BufferID] = true
			}
			return
		}
		v.Freed = true
		v.BufferID = noOperand
		v.LastSyncTime = -1
	})

	remap := ctx.pool.compact(keep)
	ctx.table.each(func(_ int, v *Value) {
		if v.Freed || !v.Materialized() {
			return
		}
		if nid, ok := remap[v.BufferID]; ok {
			v.BufferID = nid
		}
	})
}
