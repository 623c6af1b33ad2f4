package shared

import (
	"fmt"

	"github.com/wippyai/rc"
	"github.com/wippyai/rc/errors"
)

// Weak is a non-owning pointer to a control block. It keeps the block
// allocated but not the value alive; Upgrade gives access to the value while
// strong pointers exist.
type Weak[T any] struct {
	_     noCopy
	b     *box[T]
	alloc rc.Allocator
}

func (w *Weak[T]) inner(op string) *box[T] {
	if w == nil || w.b == nil {
		panic(errors.Consumed(op))
	}
	w.b.check()
	return w.b
}

// Upgrade returns a new strong pointer if the value is still alive.
func (w *Weak[T]) Upgrade() (*Shared[T], bool) {
	b := w.inner("Upgrade")
	if b.strongCount() == 0 {
		return nil, false
	}
	b.incStrong()
	return &Shared[T]{b: b, alloc: w.alloc}, true
}

// Clone returns another weak pointer to the same block.
func (w *Weak[T]) Clone() *Weak[T] {
	b := w.inner("Clone")
	b.incWeak()
	return &Weak[T]{b: b, alloc: w.alloc}
}

// Drop releases this weak reference, freeing the block if it was the last
// reference of either kind. Dropping twice does nothing.
func (w *Weak[T]) Drop() {
	if w == nil || w.b == nil {
		return
	}
	b := w.b
	w.b = nil
	b.check()
	releaseWeak(w.alloc, b)
}

// Alive reports whether the handle has not been dropped. It says nothing
// about the value; see StrongCount.
func (w *Weak[T]) Alive() bool {
	return w != nil && w.b != nil
}

// StrongCount returns the number of strong pointers, 0 once the value is gone.
func (w *Weak[T]) StrongCount() uint {
	return w.inner("StrongCount").strongCount()
}

// WeakCount returns the number of weak pointers to the block. While the value
// is alive the reference shared by strong pointers is not counted.
func (w *Weak[T]) WeakCount() uint {
	b := w.inner("WeakCount")
	if b.strongCount() == 0 {
		return b.weakCount()
	}
	return b.weakCount() - 1
}

// Format prints "(Weak)" regardless of the verb.
func (w *Weak[T]) Format(f fmt.State, _ rune) {
	fmt.Fprint(f, "(Weak)")
}
