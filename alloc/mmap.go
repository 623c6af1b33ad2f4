//go:build unix

package alloc

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/wippyai/rc"
	"github.com/wippyai/rc/errors"
)

// Mmap allocates blocks from an anonymous private mapping outside the Go
// heap. Only layouts without Go pointers are accepted.
type Mmap struct {
	arena
}

// NewMmap maps size bytes, rounded up to the page size.
func NewMmap(size int) (*Mmap, error) {
	if size <= 0 {
		return nil, errors.InvalidInput(errors.PhaseAlloc, "mapping size must be positive")
	}
	page := unix.Getpagesize()
	size = (size + page - 1) &^ (page - 1)

	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseAlloc, errors.KindAllocation, err, "mmap arena")
	}
	return &Mmap{arena: newArena("mmap arena", mem)}, nil
}

// Alloc allocates a zeroed block.
func (m *Mmap) Alloc(l rc.Layout) (unsafe.Pointer, error) {
	return m.alloc(l)
}

// Free returns a block to the arena. Bad frees panic.
func (m *Mmap) Free(p unsafe.Pointer, l rc.Layout) {
	m.mustRelease(p, l)
}

// Size returns the size of the mapping.
func (m *Mmap) Size() int {
	return len(m.mem)
}

// Used returns the bytes held by live blocks.
func (m *Mmap) Used() uintptr {
	return m.used()
}

// Close unmaps the arena. Blocks still alive become invalid; callers must
// have dropped every pointer first.
func (m *Mmap) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	if err := unix.Munmap(m.mem); err != nil {
		return errors.Wrap(errors.PhaseFree, errors.KindAllocation, err, "munmap arena")
	}
	m.mem = nil
	return nil
}
