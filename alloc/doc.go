// Package alloc provides rc.Allocator implementations for control blocks.
//
// # Allocators
//
//	Heap          Go heap, typed by the layout; the default
//	Tracking      wraps another allocator and checks every free
//	Instrumented  wraps another allocator with prometheus metrics
//	Mmap          anonymous memory mapping (unix only)
//	Linear        WebAssembly linear memory owned by a wazero runtime
//
// Heap works for every layout. Mmap and Linear hand out memory the garbage
// collector never scans, so they only accept layouts whose type holds no
// pointers (see rc.HasPointers):
//
//	m, err := alloc.NewMmap(1 << 20)
//	if err != nil {
//	    return err
//	}
//	defer m.Close()
//
//	p := shared.NewIn(m, [4]float64{1, 2, 3, 4}) // ok
//	s := shared.NewIn(m, "text")                 // aborts: strings hold pointers
//
// # Free Checking
//
// Tracking remembers the layout of every live block. A free with a different
// size or alignment, a free of an address it never handed out, and a second
// free of the same block are reported instead of being forwarded:
//
//	tr := alloc.NewTracking(alloc.Heap{},
//	    alloc.WithErrorHandler(func(err error) { t.Error(err) }),
//	)
//	shared.SetDefaultAllocator(tr)
//	...
//	if n := tr.Stats().LiveBlocks; n != 0 {
//	    t.Fatalf("%d blocks leaked", n)
//	}
//
// Recently freed addresses are kept in a bounded quarantine so a double free
// can be told apart from a free of foreign memory.
//
// # Thread Safety
//
// Allocators are as single-threaded as the pointers they serve. None of them
// lock.
package alloc
