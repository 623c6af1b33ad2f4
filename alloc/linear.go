package alloc

import (
	"bytes"
	"context"
	"unsafe"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/rc"
	"github.com/wippyai/rc/errors"
)

const (
	// PageSize is the WebAssembly page size.
	PageSize = 65536
	// MaxLinearPages keeps the memory size representable as a uint32.
	MaxLinearPages = 65535
)

// Linear allocates blocks inside the linear memory of a WebAssembly module
// instantiated in its own wazero runtime. The memory has equal minimum and
// maximum size so it never grows and block addresses stay valid. Guest code
// sharing the memory can reach a block at Offset(addr).
//
// Only layouts without Go pointers are accepted.
type Linear struct {
	arena
	runtime wazero.Runtime
	module  api.Module
	memory  api.Memory
}

// NewLinear creates a runtime with a single memory of pages 64KiB pages.
func NewLinear(ctx context.Context, pages uint32) (*Linear, error) {
	if pages == 0 || pages > MaxLinearPages {
		return nil, errors.InvalidInput(errors.PhaseAlloc, "linear memory needs 1 to 65535 pages")
	}

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithMemoryLimitPages(pages))
	mod, err := rt.Instantiate(ctx, memoryModule(pages))
	if err != nil {
		rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseAlloc, errors.KindAllocation, err, "instantiate memory module")
	}

	mem := mod.ExportedMemory(linearMemoryName)
	if mem == nil {
		rt.Close(ctx)
		return nil, errors.New(errors.PhaseAlloc, errors.KindNotFound).Detail("module exports no memory").Build()
	}
	buf, ok := mem.Read(0, mem.Size())
	if !ok {
		rt.Close(ctx)
		return nil, errors.New(errors.PhaseAlloc, errors.KindAllocation).Detail("linear memory is not readable").Build()
	}

	return &Linear{
		arena:   newArena("linear memory", buf),
		runtime: rt,
		module:  mod,
		memory:  mem,
	}, nil
}

// Alloc allocates a zeroed block.
func (m *Linear) Alloc(l rc.Layout) (unsafe.Pointer, error) {
	return m.alloc(l)
}

// Free returns a block to the arena. Bad frees panic.
func (m *Linear) Free(p unsafe.Pointer, l rc.Layout) {
	m.mustRelease(p, l)
}

// Offset returns the guest address of a host address inside the memory.
func (m *Linear) Offset(addr uintptr) (uint32, bool) {
	if !m.contains(addr) {
		return 0, false
	}
	return uint32(addr - m.base()), true
}

// Memory returns the wazero memory backing the allocator.
func (m *Linear) Memory() api.Memory {
	return m.memory
}

// Used returns the bytes held by live blocks.
func (m *Linear) Used() uintptr {
	return m.used()
}

// Close closes the runtime and with it the memory. Every pointer into it
// must have been dropped.
func (m *Linear) Close(ctx context.Context) error {
	if m.closed {
		return nil
	}
	m.closed = true
	m.mem = nil
	return m.runtime.Close(ctx)
}

const linearMemoryName = "memory"

// memoryModule encodes (module (memory (export "memory") pages pages)).
func memoryModule(pages uint32) []byte {
	var memSec bytes.Buffer
	memSec.WriteByte(1)    // one memory
	memSec.WriteByte(0x01) // limits with max
	writeLEB128u(&memSec, pages)
	writeLEB128u(&memSec, pages)

	var exportSec bytes.Buffer
	exportSec.WriteByte(1) // one export
	writeLEB128u(&exportSec, uint32(len(linearMemoryName)))
	exportSec.WriteString(linearMemoryName)
	exportSec.WriteByte(0x02) // memory
	writeLEB128u(&exportSec, 0)

	var out bytes.Buffer
	out.Write([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00})
	writeSection(&out, 5, memSec.Bytes())
	writeSection(&out, 7, exportSec.Bytes())
	return out.Bytes()
}

func writeSection(w *bytes.Buffer, id byte, data []byte) {
	w.WriteByte(id)
	writeLEB128u(w, uint32(len(data)))
	w.Write(data)
}

func writeLEB128u(w *bytes.Buffer, v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.WriteByte(b)
		if v == 0 {
			break
		}
	}
}
