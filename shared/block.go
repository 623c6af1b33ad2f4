package shared

import (
	"math"
	"reflect"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/rc"
	"github.com/wippyai/rc/errors"
	"github.com/wippyai/rc/internal/goid"
)

// counts is the header of every control block.
//
// weak includes one extra reference held collectively by all strong pointers.
// It is released when strong reaches zero, so the block is freed exactly when
// weak reaches zero.
type counts struct {
	strong uint
	weak   uint
	owner  int64 // creating goroutine, 0 when confinement is not checked
}

func (c *counts) strongCount() uint { return c.strong }

func (c *counts) weakCount() uint { return c.weak }

func (c *counts) incStrong() {
	if c.strong == math.MaxUint {
		fatal(errors.CountOverflow("strong"))
	}
	c.strong++
}

func (c *counts) incWeak() {
	if c.weak == math.MaxUint {
		fatal(errors.CountOverflow("weak"))
	}
	c.weak++
}

// decStrong and decWeak are unchecked: every call site holds a reference it
// is giving up.
func (c *counts) decStrong() { c.strong-- }

func (c *counts) decWeak() { c.weak-- }

func (c *counts) check() {
	if c.owner == 0 {
		return
	}
	if cur := goid.Current(); cur != c.owner {
		fatal(errors.WrongGoroutine(uintptr(unsafe.Pointer(c)), c.owner, cur))
	}
}

// box is the control block: counts and value in one allocation.
//
// When n > 0 the value is a slice whose n elements are stored in the same
// allocation right after the box. Such blocks have a layout built at runtime,
// see layoutFor.
type box[T any] struct {
	counts
	n     uintptr
	value T
}

var confinementCheck bool

// SetConfinementCheck makes every block created afterwards remember its
// goroutine and abort the process when touched from another one. Blocks
// created before the call are not checked. Call it during initialization.
func SetConfinementCheck(enabled bool) {
	confinementCheck = enabled
}

func layoutFor[T any](n uintptr) rc.Layout {
	if n == 0 {
		return rc.LayoutOf[box[T]]()
	}
	t := reflect.StructOf([]reflect.StructField{
		{Name: "Head", Type: reflect.TypeFor[box[T]]()},
		{Name: "Tail", Type: reflect.ArrayOf(int(n), reflect.TypeFor[T]().Elem())},
	})
	return rc.Layout{Type: t, Size: t.Size(), Align: uintptr(t.Align())}
}

// allocBox returns a block with strong=1, weak=1 and a zero value. For n > 0
// the value already points at the inline elements.
func allocBox[T any](a rc.Allocator, n uintptr) *box[T] {
	l := layoutFor[T](n)
	p, err := a.Alloc(l)
	if err != nil || p == nil {
		e := errors.AllocationFailed(errors.PhaseAlloc, l.Size, l.Align)
		e.TypeName = l.Type.String()
		e.Cause = err
		fatal(e)
	}

	b := (*box[T])(p)
	b.strong = 1
	b.weak = 1
	b.owner = 0
	if confinementCheck {
		b.owner = goid.Current()
	}
	b.n = n
	if n > 0 {
		tail := l.Type.Field(1)
		arr := reflect.NewAt(tail.Type, unsafe.Add(p, tail.Offset)).Elem()
		reflect.ValueOf(&b.value).Elem().Set(arr.Slice(0, arr.Len()))
	}

	if ce := Logger().Check(zap.DebugLevel, "block allocated"); ce != nil {
		ce.Write(
			zap.Uintptr("addr", uintptr(p)),
			zap.Stringer("type", l.Type),
			zap.Uintptr("size", l.Size),
		)
	}
	return b
}

func freeBox[T any](a rc.Allocator, b *box[T]) {
	l := layoutFor[T](b.n)
	if ce := Logger().Check(zap.DebugLevel, "block freed"); ce != nil {
		ce.Write(zap.Uintptr("addr", uintptr(unsafe.Pointer(b))), zap.Uintptr("size", l.Size))
	}
	a.Free(unsafe.Pointer(b), l)
}

// releaseStrong gives up one strong reference, destroying the value and
// releasing the baseline weak reference when it was the last one.
func releaseStrong[T any](a rc.Allocator, b *box[T]) {
	b.decStrong()
	if b.strongCount() != 0 {
		return
	}
	b.destroy()
	releaseWeak(a, b)
}

func releaseWeak[T any](a rc.Allocator, b *box[T]) {
	b.decWeak()
	if b.weakCount() == 0 {
		freeBox(a, b)
	}
}

// destroy runs the value's Drop, if any, and zeroes it.
func (b *box[T]) destroy() {
	if b.n > 0 {
		s := reflect.ValueOf(b.value)
		for i := 0; i < s.Len(); i++ {
			dropValue(s.Index(i).Addr())
		}
		s.Clear()
	} else {
		dropValue(reflect.ValueOf(&b.value))
	}
	var zero T
	b.value = zero
}

// forget zeroes the value without running Drop; it has been moved elsewhere.
func (b *box[T]) forget() {
	if b.n > 0 {
		reflect.ValueOf(b.value).Clear()
	}
	var zero T
	b.value = zero
}

// dropValue calls Drop on the value behind ptr, preferring the pointer
// receiver. Nil pointers and interfaces are skipped.
func dropValue(ptr reflect.Value) {
	if d, ok := ptr.Interface().(rc.Dropper); ok {
		d.Drop()
		return
	}
	v := ptr.Elem()
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return
		}
	}
	if d, ok := v.Interface().(rc.Dropper); ok {
		d.Drop()
	}
}

// copyOut returns the value. Inline elements are copied so the result does
// not alias the block.
func (b *box[T]) copyOut() T {
	if b.n == 0 {
		return b.value
	}
	s := reflect.MakeSlice(reflect.TypeFor[T](), int(b.n), int(b.n))
	reflect.Copy(s, reflect.ValueOf(b.value))
	return s.Interface().(T)
}

// moveOut copies the value of b into a fresh block without touching counts
// of b. Inline elements are copied, never aliased.
func moveOut[T any](a rc.Allocator, b *box[T]) *box[T] {
	nb := allocBox[T](a, b.n)
	if b.n > 0 {
		reflect.Copy(reflect.ValueOf(nb.value), reflect.ValueOf(b.value))
	} else {
		nb.value = b.value
	}
	return nb
}

// noCopy lets go vet's copylocks check flag handles copied by value.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
