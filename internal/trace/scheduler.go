package trace

import (
	"sort"

	"github.com/shiina-lab/nagisa/internal/device"
)

// liveRoots returns every index at or above PredefinedCount whose
// ref_external is greater than zero, in ascending index order — the
// glossary's "live root" set, snapshotted at the moment eval begins.
func (ctx *Context) liveRoots() []int {
	var roots []int
	ctx.table.each(func(idx int, v *Value) {
		if idx >= PredefinedCount && v.Live() {
			roots = append(roots, idx)
		}
	})
	return roots
}

// orderBucket performs the iterative DFS described in spec §4.2 step
// 2: visit a value's deps before appending the value itself, skipping
// (and not recursing past) anything already materialized from a prior
// launch — it will be re-read from its buffer instead.
func orderBucket(roots []int, table *Table) []int {
	visited := make(map[int]bool)
	var order []int

	type frame struct {
		idx     int
		deps    []int
		nextDep int
	}
	var stack []frame

	tryPush := func(idx int) {
		if visited[idx] {
			return
		}
		visited[idx] = true
		v := table.Get(idx)
		if v.LastSyncTime >= 0 {
			// Already resident in a buffer from an earlier generation
			// (or an earlier bucket this generation); codegen reads it
			// back with a load instead of retracing its producer.
			return
		}
		stack = append(stack, frame{idx: idx, deps: v.deps()})
	}

	for _, root := range roots {
		tryPush(root)
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.nextDep < len(top.deps) {
				dep := top.deps[top.nextDep]
				top.nextDep++
				tryPush(dep)
				continue
			}
			order = append(order, top.idx)
			stack = stack[:len(stack)-1]
		}
	}
	return order
}

// Eval implements spec §6 `eval()` and the algorithm in spec §4.2: it
// partitions live roots by width, emits and dispatches one kernel per
// width bucket (smallest first), then runs the post-launch GC and
// advances the generation counter.
func (ctx *Context) Eval() error {
	roots := ctx.liveRoots()
	if len(roots) == 0 {
		return nil
	}

	buckets := make(map[int][]int)
	for _, r := range roots {
		w := ctx.table.Get(r).Width
		buckets[w] = append(buckets[w], r)
	}
	widths := make([]int, 0, len(buckets))
	for w := range buckets {
		widths = append(widths, w)
	}
	sort.Ints(widths)

	for _, w := range widths {
		order := orderBucket(buckets[w], ctx.table)
		if err := ctx.dispatchBucket(order, w); err != nil {
			return err
		}
	}

	ctx.gc()
	ctx.generation++
	return nil
}

func (ctx *Context) dispatchBucket(order []int, width int) error {
	source, err := emitKernel(order, ctx.table, ctx.pool, ctx.generation)
	if err != nil {
		return err
	}

	program, ok := ctx.cache[source]
	if !ok {
		program, err = ctx.dev.Compile(source)
		if err != nil {
			return wrapf("device compile failed: %w", err)
		}
		ctx.cache[source] = program
	}

	args := make([]device.Buffer, ctx.pool.count())
	for i := 0; i < ctx.pool.count(); i++ {
		args[i] = ctx.pool.get(i)
	}
	if err := ctx.dev.Dispatch(program, width, args); err != nil {
		return wrapf("dispatch failed: %w", err)
	}
	return nil
}

// CopyToHost implements spec §6 `copy_to_host(idx, destination)`: it
// forces an eval first (spec §4.1), then reads the now-materialized
// buffer. Observing a value that scheduling proves nothing depends on
// externally (i.e. that never gets a buffer) is a fatal programmer
// error per spec §7.
func (ctx *Context) CopyToHost(h Handle, dst []byte) error {
	if !ctx.table.Get(int(h)).Live() {
		fatal("copy_to_host: index %d is not live", int(h))
	}
	if err := ctx.Eval(); err != nil {
		return err
	}
	v := ctx.table.Get(int(h))
	if !v.Materialized() {
		fatal("copy_to_host: index %d was never materialized", int(h))
	}
	buf := ctx.pool.get(v.BufferID)
	return buf.Read(0, dst)
}
