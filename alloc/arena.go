package alloc

import (
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/rc"
	"github.com/wippyai/rc/errors"
)

type sizeClass struct {
	size  uintptr
	align uintptr
}

// arena hands out blocks from a fixed region that never moves. Fresh memory
// comes from a bump pointer; freed blocks go to a free list per size class
// and are reused before the bump pointer advances.
type arena struct {
	mem    []byte
	free   map[sizeClass][]uintptr
	live   map[uintptr]sizeClass
	name   string
	next   uintptr
	closed bool
}

func newArena(name string, mem []byte) arena {
	return arena{
		mem:  mem,
		free: make(map[sizeClass][]uintptr),
		live: make(map[uintptr]sizeClass),
		name: name,
	}
}

func (a *arena) base() uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(a.mem)))
}

func (a *arena) alloc(l rc.Layout) (unsafe.Pointer, error) {
	if a.closed {
		return nil, errors.Closed(errors.PhaseAlloc, a.name)
	}
	if rc.HasPointers(l.Type) {
		typeName := "<nil>"
		if l.Type != nil {
			typeName = l.Type.String()
		}
		return nil, errors.Unsupported(errors.PhaseAlloc, typeName, a.name+" cannot hold Go pointers")
	}
	if l.Align == 0 || l.Align&(l.Align-1) != 0 {
		return nil, errors.InvalidInput(errors.PhaseAlloc, "alignment must be a power of two")
	}

	size := max(l.Size, 1)
	class := sizeClass{size: size, align: l.Align}

	var off uintptr
	if list := a.free[class]; len(list) > 0 {
		off = list[len(list)-1]
		a.free[class] = list[:len(list)-1]
	} else {
		base := a.base()
		start := (base+a.next+l.Align-1)&^(l.Align-1) - base
		if start+size > uintptr(len(a.mem)) {
			return nil, errors.AllocationFailed(errors.PhaseAlloc, l.Size, l.Align)
		}
		off = start
		a.next = start + size
	}

	a.live[off] = class
	clear(a.mem[off : off+size])
	return unsafe.Pointer(&a.mem[off]), nil
}

func (a *arena) release(p unsafe.Pointer, l rc.Layout) error {
	if a.closed {
		return errors.Closed(errors.PhaseFree, a.name)
	}
	addr := uintptr(p)
	base := a.base()
	if addr < base || addr >= base+uintptr(len(a.mem)) {
		return errors.ForeignFree(addr)
	}

	off := addr - base
	class, ok := a.live[off]
	if !ok {
		return errors.DoubleFree(addr)
	}
	if class.size != max(l.Size, 1) || class.align != l.Align {
		return errors.LayoutMismatch(addr, class.size, class.align, l.Size, l.Align)
	}

	delete(a.live, off)
	a.free[class] = append(a.free[class], off)
	return nil
}

// mustRelease frees p and panics on a bad free. A raw arena cannot recover
// from one: the block layout is all it knows about the memory.
func (a *arena) mustRelease(p unsafe.Pointer, l rc.Layout) {
	if err := a.release(p, l); err != nil {
		Logger().Error("bad free", zap.String("arena", a.name), zap.Error(err))
		panic(err)
	}
}

// used returns the bytes held by live blocks.
func (a *arena) used() uintptr {
	var n uintptr
	for _, c := range a.live {
		n += c.size
	}
	return n
}

func (a *arena) contains(addr uintptr) bool {
	base := a.base()
	return addr >= base && addr < base+uintptr(len(a.mem))
}
