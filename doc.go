// Package rc provides single-threaded reference-counted shared ownership
// for Go values with an explicit allocation boundary.
//
// A value is placed in one control block holding a strong count, a weak count
// and the value itself. Strong pointers keep the value alive; weak pointers
// only keep the block alive and must be upgraded before the value can be read.
//
// # Architecture Overview
//
//	rc/                  Root package with Allocator, Layout and Dropper
//	├── shared/          Shared[T] and Weak[T] pointers
//	├── alloc/           Heap, Tracking, Instrumented, Mmap and Linear allocators
//	├── resource/        Handle table for naming live pointers
//	├── errors/          Structured error types
//	└── cmd/rcinspect/   Scripted and interactive pointer inspector
//
// # Quick Start
//
//	p := shared.New(75)
//	q := p.Clone()
//	*p.MakeMut() += 1 // p forks its own block, q still sees 75
//	q.Drop()
//	p.Drop()
//
// # Allocators
//
// Control blocks come from an Allocator. The default is the Go heap. Blocks
// of pointer-free types may also live in an anonymous mapping (alloc.Mmap) or
// in a WebAssembly linear memory (alloc.Linear):
//
//	mem, err := alloc.NewLinear(ctx, 16)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mem.Close(ctx)
//
//	p := shared.NewIn(mem, point{X: 1, Y: 2})
//	off, _ := mem.Offset(p.Addr()) // guest address of the control block
//
// # Thread Safety
//
// Nothing in this module is safe for concurrent use. Counts are plain
// integers; a handle and all of its clones must stay on the goroutine that
// created them. shared.SetConfinementCheck turns that rule into a runtime
// check.
//
// # Memory Model
//
// Values are released explicitly with Drop. A handle that is never dropped
// leaks its block, exactly like a forgotten free. Overflowing a count or
// running out of memory terminates the process.
package rc
