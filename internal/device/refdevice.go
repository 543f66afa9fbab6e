package device

import (
	"encoding/binary"
	"fmt"
	"math"
)

// MemBuffer is an in-memory Buffer backing RefDevice: a flat byte
// slice addressed by offset, mirroring the teacher's own debug
// interpreter's flat value stack (std/compiler/backend_vm.go) rather
// than any real device-memory abstraction.
type MemBuffer struct {
	data []byte
}

func (b *MemBuffer) Len() int { return len(b.data) }

func (b *MemBuffer) Read(offset int, dst []byte) error {
	if offset < 0 || offset+len(dst) > len(b.data) {
		return fmt.Errorf("refdevice: read out of range (offset %d, len %d, cap %d)", offset, len(dst), len(b.data))
	}
	copy(dst, b.data[offset:offset+len(dst)])
	return nil
}

func (b *MemBuffer) Write(offset int, src []byte) error {
	if offset < 0 || offset+len(src) > len(b.data) {
		return fmt.Errorf("refdevice: write out of range (offset %d, len %d, cap %d)", offset, len(src), len(b.data))
	}
	copy(b.data[offset:], src)
	return nil
}

func elemSize(typ string) int {
	if typ == "bool" {
		return 1
	}
	return 4
}

func readElement(buf *MemBuffer, typ string, index int) (kval, error) {
	sz := elemSize(typ)
	off := index * sz
	if off < 0 || off+sz > len(buf.data) {
		return kval{}, fmt.Errorf("refdevice: element %d out of range for %q", index, typ)
	}
	switch typ {
	case "bool":
		return kvBool(buf.data[off] != 0), nil
	case "float":
		bits := binary.LittleEndian.Uint32(buf.data[off:])
		return kvFloat(float64(math.Float32frombits(bits))), nil
	default: // "int"
		bits := binary.LittleEndian.Uint32(buf.data[off:])
		return kvInt(int64(int32(bits))), nil
	}
}

func writeElement(buf *MemBuffer, typ string, index int, v kval) error {
	sz := elemSize(typ)
	off := index * sz
	if off < 0 || off+sz > len(buf.data) {
		return fmt.Errorf("refdevice: element %d out of range for %q", index, typ)
	}
	switch typ {
	case "bool":
		if v.toBool() {
			buf.data[off] = 1
		} else {
			buf.data[off] = 0
		}
	case "float":
		binary.LittleEndian.PutUint32(buf.data[off:], math.Float32bits(float32(v.toFloat())))
	default: // "int"
		binary.LittleEndian.PutUint32(buf.data[off:], uint32(int32(v.toInt())))
	}
	return nil
}

// compiledKernel is the Program RefDevice.Compile returns: the parsed
// AST plus the original source, kept around for diagnostics.
type compiledKernel struct {
	prog   *kernelProgram
	source string
}

// RefDevice is a deterministic, single-threaded, in-process stand-in
// for the real OpenCL device (out of scope per spec §1). It exists so
// the scheduler, codegen, and GC can be exercised end-to-end in tests
// without a GPU, grounded in the teacher's own "debug backend" role
// (std/compiler/backend_vm.go is a direct interpreter used alongside
// the teacher's real amd64/arm64/wasm encoders).
type RefDevice struct{}

// NewRefDevice constructs a RefDevice. There is no state to configure:
// every dispatch is self-contained.
func NewRefDevice() *RefDevice { return &RefDevice{} }

func (d *RefDevice) Allocate(bytes int) (Buffer, error) {
	if bytes < 0 {
		return nil, fmt.Errorf("refdevice: negative allocation size %d", bytes)
	}
	return &MemBuffer{data: make([]byte, bytes)}, nil
}

func (d *RefDevice) Compile(source string) (Program, error) {
	prog, err := parseKernel(source)
	if err != nil {
		return nil, fmt.Errorf("refdevice: %w", err)
	}
	return &compiledKernel{prog: prog, source: source}, nil
}

func (d *RefDevice) Dispatch(p Program, globalSize int, args []Buffer) error {
	ck, ok := p.(*compiledKernel)
	if !ok {
		return fmt.Errorf("refdevice: dispatch called with a program from another device")
	}
	if len(args) != len(ck.prog.params) {
		return fmt.Errorf("refdevice: expected %d buffer arguments, got %d", len(ck.prog.params), len(args))
	}
	bufs := make([]*MemBuffer, len(args))
	for i, a := range args {
		mb, ok := a.(*MemBuffer)
		if !ok {
			return fmt.Errorf("refdevice: argument %d is not a RefDevice buffer", i)
		}
		bufs[i] = mb
	}
	for gid := 0; gid < globalSize; gid++ {
		if err := runLane(ck.prog, bufs, gid); err != nil {
			return fmt.Errorf("refdevice: lane %d: %w", gid, err)
		}
	}
	return nil
}
