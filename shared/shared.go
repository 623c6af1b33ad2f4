package shared

import (
	"encoding/json"
	"fmt"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/rc"
	"github.com/wippyai/rc/alloc"
	"github.com/wippyai/rc/errors"
)

// Cloner is implemented by values that need more than a Go assignment to be
// duplicated. MakeMut uses it when it has to fork a shared value.
//
// Without Cloner, MakeMut copies slices, maps, arrays and structs element by
// element. Values holding non-nil pointers, interfaces, channels or functions
// cannot be forked that way, and neither can values implementing rc.Dropper:
// both copies would share, or drop, the same thing. Forking such a value
// without Cloner aborts the process. Elements of NewSlice pointers follow the
// same rule with Cloner on the element type.
type Cloner[T any] interface {
	Clone() T
}

var defaultAllocator rc.Allocator = alloc.Heap{}

// DefaultAllocator returns the allocator used by New and NewSlice.
func DefaultAllocator() rc.Allocator {
	return defaultAllocator
}

// SetDefaultAllocator replaces the allocator used by New and NewSlice.
// Pointers already created keep freeing through the allocator they came from.
func SetDefaultAllocator(a rc.Allocator) {
	defaultAllocator = a
}

// Shared is a strong, reference-counted pointer to a value of type T.
//
// Every Shared must be released with Drop. Handles are not safe for
// concurrent use and must not be copied by value; use Clone.
type Shared[T any] struct {
	_     noCopy
	b     *box[T]
	alloc rc.Allocator
}

// New places v in a new control block allocated from the default allocator.
func New[T any](v T) *Shared[T] {
	return NewIn(defaultAllocator, v)
}

// NewIn places v in a new control block allocated from a.
func NewIn[T any](a rc.Allocator, v T) *Shared[T] {
	b := allocBox[T](a, 0)
	b.value = v
	return &Shared[T]{b: b, alloc: a}
}

// NewSlice copies elems into a single allocation holding both the counts and
// the elements. The layout depends on len(elems) and is rebuilt on free.
func NewSlice[E any](elems []E) *Shared[[]E] {
	return NewSliceIn(defaultAllocator, elems)
}

// NewSliceIn is NewSlice with an explicit allocator.
func NewSliceIn[E any](a rc.Allocator, elems []E) *Shared[[]E] {
	if len(elems) == 0 {
		return NewIn(a, []E{})
	}
	b := allocBox[[]E](a, uintptr(len(elems)))
	copy(b.value, elems)
	return &Shared[[]E]{b: b, alloc: a}
}

func (p *Shared[T]) inner(op string) *box[T] {
	if p == nil || p.b == nil {
		panic(errors.Consumed(op))
	}
	p.b.check()
	return p.b
}

// Clone returns another strong pointer to the same block.
func (p *Shared[T]) Clone() *Shared[T] {
	b := p.inner("Clone")
	b.incStrong()
	return &Shared[T]{b: b, alloc: p.alloc}
}

// Drop releases this strong reference. The last one destroys the value and,
// if no weak pointers remain, frees the block. Dropping a handle that was
// already dropped or unwrapped does nothing.
func (p *Shared[T]) Drop() {
	if p == nil || p.b == nil {
		return
	}
	b := p.b
	p.b = nil
	b.check()
	releaseStrong(p.alloc, b)
}

// Alive reports whether the handle has not been dropped or unwrapped.
func (p *Shared[T]) Alive() bool {
	return p != nil && p.b != nil
}

// StrongCount returns the number of strong pointers to the block.
func (p *Shared[T]) StrongCount() uint {
	return p.inner("StrongCount").strongCount()
}

// WeakCount returns the number of weak pointers to the block.
func (p *Shared[T]) WeakCount() uint {
	return p.inner("WeakCount").weakCount() - 1
}

// IsUnique reports whether p is the only pointer of either kind to the block.
func (p *Shared[T]) IsUnique() bool {
	b := p.inner("IsUnique")
	return b.strongCount() == 1 && b.weakCount() == 1
}

// Value returns a copy of the value. Slices made by NewSlice are copied out
// of the block; anything else is copied by assignment, so data reachable
// through slices, maps or pointers inside the value is still shared.
func (p *Shared[T]) Value() T {
	return p.inner("Value").copyOut()
}

// Borrow returns a pointer to the value for reading. Writing through it is
// subject to the same caveat as GetMut.
func (p *Shared[T]) Borrow() *T {
	return &p.inner("Borrow").value
}

// GetMut returns a pointer through which the value can be modified.
//
// Unlike MakeMut it does not check for uniqueness: the pointer is returned
// even when clones or weak pointers exist, and writes are visible through all
// of them. Callers are responsible for making sure nothing else observes the
// value while it changes. The result is false only for a consumed handle.
func (p *Shared[T]) GetMut() (*T, bool) {
	if p == nil || p.b == nil {
		return nil, false
	}
	p.b.check()
	return &p.b.value, true
}

// MakeMut returns a pointer to a value that no other pointer can observe.
//
// If other strong pointers exist, p moves to a new block holding a clone of
// the value. If only weak pointers exist, the value is moved to a new block
// and the old one is left to them, so they can no longer upgrade. Otherwise
// the value is returned in place.
//
// A fork never leaves the two blocks sharing mutable data; see Cloner for
// which values can be forked.
func (p *Shared[T]) MakeMut() *T {
	b := p.inner("MakeMut")
	switch {
	case b.strongCount() != 1:
		p.b = duplicate(p.alloc, b)
		releaseStrong(p.alloc, b)
		if ce := Logger().Check(zap.DebugLevel, "forked shared value"); ce != nil {
			ce.Write(zap.Uintptr("from", uintptr(unsafe.Pointer(b))), zap.Uintptr("to", p.Addr()))
		}
	case b.weakCount() != 1:
		p.b = moveOut(p.alloc, b)
		b.forget()
		b.decStrong()
		releaseWeak(p.alloc, b)
		if ce := Logger().Check(zap.DebugLevel, "detached value from weak pointers"); ce != nil {
			ce.Write(zap.Uintptr("from", uintptr(unsafe.Pointer(b))), zap.Uintptr("to", p.Addr()))
		}
	}
	return &p.b.value
}

// TryUnwrap moves the value out if p is the only strong pointer, consuming p.
// Weak pointers do not prevent it; they fail to upgrade afterwards. Otherwise
// it returns false and p is left untouched.
func (p *Shared[T]) TryUnwrap() (T, bool) {
	b := p.inner("TryUnwrap")
	if b.strongCount() != 1 {
		var zero T
		return zero, false
	}

	v := b.copyOut()

	p.b = nil
	b.forget()
	b.decStrong()
	releaseWeak(p.alloc, b)
	return v, true
}

// WouldUnwrap reports whether TryUnwrap would succeed.
func (p *Shared[T]) WouldUnwrap() bool {
	return p.inner("WouldUnwrap").strongCount() == 1
}

// Downgrade returns a weak pointer to the block.
func (p *Shared[T]) Downgrade() *Weak[T] {
	b := p.inner("Downgrade")
	b.incWeak()
	return &Weak[T]{b: b, alloc: p.alloc}
}

// Addr returns the address of the control block.
func (p *Shared[T]) Addr() uintptr {
	return uintptr(unsafe.Pointer(p.inner("Addr")))
}

// Allocator returns the allocator the block came from.
func (p *Shared[T]) Allocator() rc.Allocator {
	return p.alloc
}

// Format formats the value with the same verb and flags.
func (p *Shared[T]) Format(f fmt.State, verb rune) {
	if p == nil || p.b == nil {
		fmt.Fprint(f, "(dropped)")
		return
	}
	fmt.Fprintf(f, fmt.FormatString(f, verb), p.inner("Format").value)
}

func (p *Shared[T]) String() string {
	return fmt.Sprint(p)
}

// MarshalJSON encodes the value.
func (p *Shared[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.inner("MarshalJSON").value)
}
