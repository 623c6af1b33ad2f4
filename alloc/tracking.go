package alloc

import (
	"sort"
	"unsafe"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/wippyai/rc"
	"github.com/wippyai/rc/errors"
)

// DefaultQuarantine is the number of freed addresses a Tracking allocator
// remembers for double free detection.
const DefaultQuarantine = 1024

// Stats are running totals of a Tracking allocator.
type Stats struct {
	Allocs     uint64
	Frees      uint64
	BadFrees   uint64
	LiveBlocks uint64
	LiveBytes  uint64
	PeakBytes  uint64
}

// Block is a live allocation.
type Block struct {
	Layout rc.Layout
	Addr   uintptr
}

// Tracking wraps an allocator and verifies every free against the layout the
// block was allocated with.
type Tracking struct {
	inner      rc.Allocator
	live       map[uintptr]rc.Layout
	quarantine *lru.Cache[uintptr, rc.Layout]
	logger     *zap.Logger
	onError    func(error)
	observers  []Observer
	stats      Stats
	qsize      int
}

// TrackingOption configures a Tracking allocator.
type TrackingOption func(*Tracking)

// WithLogger sets the logger used for allocation events.
func WithLogger(l *zap.Logger) TrackingOption {
	return func(t *Tracking) { t.logger = l }
}

// WithQuarantine sets how many freed addresses are remembered.
func WithQuarantine(n int) TrackingOption {
	return func(t *Tracking) { t.qsize = n }
}

// WithErrorHandler sets the function called for a bad free. The default
// panics with the error.
func WithErrorHandler(fn func(error)) TrackingOption {
	return func(t *Tracking) { t.onError = fn }
}

// WithObserver registers an observer at construction.
func WithObserver(o Observer) TrackingOption {
	return func(t *Tracking) { t.observers = append(t.observers, o) }
}

// NewTracking wraps inner.
func NewTracking(inner rc.Allocator, opts ...TrackingOption) *Tracking {
	t := &Tracking{
		inner:  inner,
		live:   make(map[uintptr]rc.Layout),
		logger: Logger(),
		qsize:  DefaultQuarantine,
		onError: func(err error) {
			panic(err)
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.qsize > 0 {
		// lru.New only fails for a non-positive size.
		t.quarantine, _ = lru.New[uintptr, rc.Layout](t.qsize)
	}
	return t
}

// Alloc allocates from the wrapped allocator and records the block.
func (t *Tracking) Alloc(l rc.Layout) (unsafe.Pointer, error) {
	p, err := t.inner.Alloc(l)
	if err != nil {
		t.logger.Warn("allocation failed",
			zap.Uintptr("size", l.Size),
			zap.Uintptr("align", l.Align),
			zap.Error(err),
		)
		return nil, err
	}

	addr := uintptr(p)
	t.live[addr] = l
	if t.quarantine != nil {
		t.quarantine.Remove(addr)
	}

	t.stats.Allocs++
	t.stats.LiveBlocks++
	t.stats.LiveBytes += uint64(l.Size)
	if t.stats.LiveBytes > t.stats.PeakBytes {
		t.stats.PeakBytes = t.stats.LiveBytes
	}

	t.logger.Debug("alloc", zap.Uintptr("addr", addr), zap.Uintptr("size", l.Size), zap.Uintptr("align", l.Align))
	t.notify(Event{Type: EventAlloc, Addr: addr, Layout: l})
	return p, nil
}

// Free verifies the block and forwards it to the wrapped allocator. Bad
// frees are reported to the error handler and never forwarded.
func (t *Tracking) Free(p unsafe.Pointer, l rc.Layout) {
	addr := uintptr(p)
	want, ok := t.live[addr]
	if !ok {
		var err *errors.Error
		if _, freed := t.quarantineGet(addr); freed {
			err = errors.DoubleFree(addr)
		} else {
			err = errors.ForeignFree(addr)
		}
		t.badFree(addr, l, err)
		return
	}
	if want.Size != l.Size || want.Align != l.Align {
		t.badFree(addr, l, errors.LayoutMismatch(addr, want.Size, want.Align, l.Size, l.Align))
		return
	}

	delete(t.live, addr)
	if t.quarantine != nil {
		t.quarantine.Add(addr, l)
	}
	t.stats.Frees++
	t.stats.LiveBlocks--
	t.stats.LiveBytes -= uint64(l.Size)

	t.logger.Debug("free", zap.Uintptr("addr", addr), zap.Uintptr("size", l.Size))
	t.notify(Event{Type: EventFree, Addr: addr, Layout: l})
	t.inner.Free(p, l)
}

func (t *Tracking) quarantineGet(addr uintptr) (rc.Layout, bool) {
	if t.quarantine == nil {
		return rc.Layout{}, false
	}
	return t.quarantine.Peek(addr)
}

func (t *Tracking) badFree(addr uintptr, l rc.Layout, err *errors.Error) {
	t.stats.BadFrees++
	t.logger.Error("bad free", zap.Uintptr("addr", addr), zap.Uintptr("size", l.Size), zap.Error(err))
	t.notify(Event{Type: EventBadFree, Addr: addr, Layout: l, Err: err})
	t.onError(err)
}

// Subscribe adds an observer.
func (t *Tracking) Subscribe(o Observer) {
	t.observers = append(t.observers, o)
}

// Stats returns the running totals.
func (t *Tracking) Stats() Stats {
	return t.stats
}

// Live returns the live blocks ordered by address.
func (t *Tracking) Live() []Block {
	blocks := make([]Block, 0, len(t.live))
	for addr, l := range t.live {
		blocks = append(blocks, Block{Addr: addr, Layout: l})
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Addr < blocks[j].Addr })
	return blocks
}

// IsLive reports whether addr is a live block of this allocator.
func (t *Tracking) IsLive(addr uintptr) bool {
	_, ok := t.live[addr]
	return ok
}

func (t *Tracking) notify(e Event) {
	for _, o := range t.observers {
		o.OnAllocEvent(e)
	}
}
