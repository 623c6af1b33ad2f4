package shared

import (
	"cmp"
	"hash/maphash"
)

// The functions below compare and hash the values behind pointers, never the
// pointers themselves. Use PtrEqual for identity.

// Equal reports whether the values behind a and b are equal.
func Equal[T comparable](a, b *Shared[T]) bool {
	return a.inner("Equal").value == b.inner("Equal").value
}

// EqualFunc is Equal for values compared by eq.
func EqualFunc[T any](a, b *Shared[T], eq func(T, T) bool) bool {
	return eq(a.inner("EqualFunc").value, b.inner("EqualFunc").value)
}

// Compare returns -1, 0 or +1 ordering the values behind a and b.
func Compare[T cmp.Ordered](a, b *Shared[T]) int {
	return cmp.Compare(a.inner("Compare").value, b.inner("Compare").value)
}

// CompareFunc is Compare for values ordered by compare.
func CompareFunc[T any](a, b *Shared[T], compare func(T, T) int) int {
	return compare(a.inner("CompareFunc").value, b.inner("CompareFunc").value)
}

// Less reports whether the value behind a orders before the one behind b.
func Less[T cmp.Ordered](a, b *Shared[T]) bool {
	return cmp.Less(a.inner("Less").value, b.inner("Less").value)
}

// Hash hashes the value behind p. Equal values hash equally for one seed.
func Hash[T comparable](seed maphash.Seed, p *Shared[T]) uint64 {
	return maphash.Comparable(seed, p.inner("Hash").value)
}

// PtrEqual reports whether a and b point to the same control block.
func PtrEqual[T any](a, b *Shared[T]) bool {
	return a.inner("PtrEqual") == b.inner("PtrEqual")
}
