package alloc

import (
	"reflect"
	"unsafe"

	"github.com/wippyai/rc"
	"github.com/wippyai/rc/errors"
)

// Heap allocates blocks on the Go heap with the pointer shape of the layout
// type, so blocks may hold any Go value. Free zeroes the block; the garbage
// collector reclaims it once nothing references it.
type Heap struct{}

// Alloc allocates a zeroed block of l.Type.
func (Heap) Alloc(l rc.Layout) (unsafe.Pointer, error) {
	if l.Type == nil {
		return nil, errors.Unsupported(errors.PhaseAlloc, "", "heap layout without a type")
	}
	if l.Type.Size() != l.Size {
		return nil, errors.New(errors.PhaseAlloc, errors.KindLayoutMismatch).
			TypeName(l.Type.String()).
			Layout(l.Size, l.Align).
			Detail("type size is %d", l.Type.Size()).
			Build()
	}
	return reflect.New(l.Type).UnsafePointer(), nil
}

// Free zeroes the block so that nothing it referenced stays reachable.
func (Heap) Free(p unsafe.Pointer, l rc.Layout) {
	if p == nil || l.Type == nil {
		return
	}
	reflect.NewAt(l.Type, p).Elem().SetZero()
}
