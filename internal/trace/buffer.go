package trace

import "github.com/shiina-lab/nagisa/internal/device"

// bufferPool owns every device-side slab currently allocated for this
// context (C2). Slab ids are dense: after a GC pass they are
// renumbered to 0..k-1 with no gaps (spec §8 invariant 6).
type bufferPool struct {
	dev     device.Device
	buffers []device.Buffer
	types   []Type
	widths  []int
}

func newBufferPool(dev device.Device) *bufferPool {
	return &bufferPool{dev: dev}
}

// alloc creates a new slab sized width*t.Size() bytes and returns
// its dense id.
func (p *bufferPool) alloc(width int, t Type) (int, error) {
	bytes := width * t.Size()
	buf, err := p.dev.Allocate(bytes)
	if err != nil {
		return 0, wrapf("allocate buffer: %w", err)
	}
	id := len(p.buffers)
	p.buffers = append(p.buffers, buf)
	p.types = append(p.types, t)
	p.widths = append(p.widths, width)
	return id, nil
}

// allocBytes creates a slab of exactly bytes length, used by the
// externally-facing alloc() entry point (spec §6) where the caller
// supplies a byte size directly rather than a lane width.
func (p *bufferPool) allocBytes(bytes int, t Type) (int, error) {
	buf, err := p.dev.Allocate(bytes)
	if err != nil {
		return 0, wrapf("allocate buffer: %w", err)
	}
	width := bytes
	if sz := t.Size(); sz > 0 {
		width = bytes / sz
	}
	id := len(p.buffers)
	p.buffers = append(p.buffers, buf)
	p.types = append(p.types, t)
	p.widths = append(p.widths, width)
	return id, nil
}

func (p *bufferPool) get(id int) device.Buffer {
	if id < 0 || id >= len(p.buffers) {
		fatal("buffer id %d out of range", id)
	}
	return p.buffers[id]
}

func (p *bufferPool) count() int { return len(p.buffers) }

// compact releases every buffer whose id is not present in keep, then
// renumbers the survivors to a dense 0..k-1 range. It returns a map
// from old id to new id so callers (the scheduler's GC pass) can
// rewrite Value.BufferID fields.
func (p *bufferPool) compact(keep map[int]bool) map[int]int {
	remap := make(map[int]int, len(keep))
	var newBuffers []device.Buffer
	var newTypes []Type
	var newWidths []int
	for old := range p.buffers {
		if !keep[old] {
			continue
		}
		remap[old] = len(newBuffers)
		newBuffers = append(newBuffers, p.buffers[old])
		newTypes = append(newTypes, p.types[old])
		newWidths = append(newWidths, p.widths[old])
	}
	p.buffers = newBuffers
	p.types = newTypes
	p.widths = newWidths
	return remap
}
