package shared

import (
	"testing"
	"unsafe"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/wippyai/rc"
	"github.com/wippyai/rc/alloc"
	"github.com/wippyai/rc/errors"
)

// tracked returns an allocator that fails the test on a bad free or on a
// block still live when the test ends.
func tracked(t *testing.T) *alloc.Tracking {
	t.Helper()
	tr := alloc.NewTracking(alloc.Heap{}, alloc.WithErrorHandler(func(err error) {
		t.Errorf("bad free: %v", err)
	}))
	t.Cleanup(func() {
		if live := tr.Live(); len(live) != 0 {
			t.Errorf("Expected all blocks freed, %d still live", len(live))
		}
	})
	return tr
}

// panicOnFatal installs a logger whose Fatal panics instead of exiting.
func panicOnFatal(t *testing.T) {
	t.Helper()
	prev, prevSet := Logger(), loggerSet
	SetLogger(zaptest.NewLogger(t, zaptest.WrapOptions(zap.WithFatalHook(zapcore.WriteThenPanic))))
	t.Cleanup(func() {
		logger = prev
		loggerSet = prevSet
	})
}

func expectFatal(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatal("Expected fatal abort")
		}
	}()
	fn()
}

func expectConsumed(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok {
			t.Fatalf("Expected consumed panic, got %v", r)
		}
		if k, _ := errors.KindOf(err); k != errors.KindConsumed {
			t.Fatalf("Expected consumed panic, got %v", err)
		}
	}()
	fn()
}

type failingAlloc struct{}

func (failingAlloc) Alloc(l rc.Layout) (unsafe.Pointer, error) {
	return nil, errors.AllocationFailed(errors.PhaseAlloc, l.Size, l.Align)
}

func (failingAlloc) Free(unsafe.Pointer, rc.Layout) {}

// dropCounter counts Drop calls on a shared counter.
type dropCounter struct {
	n *int
}

func (d dropCounter) Drop() { *d.n++ }

// cloneCounter is a dropCounter whose clones count as separate resources.
type cloneCounter struct {
	n *int
}

func (c cloneCounter) Drop() { *c.n++ }

func (c cloneCounter) Clone() cloneCounter { return cloneCounter{c.n} }
