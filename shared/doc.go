// Package shared implements Shared and Weak, single-threaded
// reference-counted pointers.
//
// # Control Block
//
// New allocates one block holding a strong count, a weak count and the value:
//
//	p := shared.New(75)      // strong=1 weak=0
//	q := p.Clone()           // strong=2
//	w := p.Downgrade()       // weak=1
//
// The value is destroyed when the last Shared is dropped. The block is freed
// when the last pointer of either kind is dropped. All strong pointers
// together hold one extra weak reference so both conditions collapse into
// "weak count reached zero".
//
// # Lifecycle
//
//	Live      strong > 0              value readable, Upgrade succeeds
//	WeakOnly  strong == 0, weak > 0   value destroyed, Upgrade fails
//	Freed     weak == 0               block returned to its allocator
//
// A block moves through these states once, in order.
//
// # Mutation
//
// MakeMut is copy-on-write: it returns a pointer to a value no other handle
// can see, forking the block when needed. GetMut hands out a mutable pointer
// without any uniqueness check; writes through it are visible to every clone.
// This is intentional and callers relying on it must do their own
// coordination.
//
// # Destruction
//
// Go has no destructors. When the value is destroyed, Drop is called on it if
// it implements rc.Dropper. Values holding other Shared or Weak pointers
// should release them there.
//
// # Failure
//
// Overflowing a count or failing to allocate a block terminates the process
// through the package logger's Fatal. Using a handle after Drop or a
// successful TryUnwrap panics; dropping it again is a no-op.
package shared
