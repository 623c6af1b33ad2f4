package rc

import (
	"reflect"
	"unsafe"
)

// Layout describes a block handed out by an Allocator.
//
// Size and Align are the usual byte measures. Type is the Go type whose
// pointer shape the block must carry; GC-aware allocators allocate it
// directly, raw-memory allocators use it to reject pointerful layouts.
type Layout struct {
	Type  reflect.Type
	Size  uintptr
	Align uintptr
}

// LayoutOf returns the layout of a T.
func LayoutOf[T any]() Layout {
	var zero T
	return Layout{
		Type:  reflect.TypeFor[T](),
		Size:  unsafe.Sizeof(zero),
		Align: unsafe.Alignof(zero),
	}
}

// Allocator allocates control blocks.
//
// Free must be called with the exact layout passed to Alloc. An error from
// Alloc is treated as memory exhaustion by callers and is fatal.
type Allocator interface {
	Alloc(l Layout) (unsafe.Pointer, error)
	Free(p unsafe.Pointer, l Layout)
}

// Dropper is implemented by values that need cleanup when the last strong
// owner goes away.
type Dropper interface {
	Drop()
}

// HasPointers reports whether values of t contain pointers the Go garbage
// collector must see. Blocks of such types may only live in Go heap memory.
func HasPointers(t reflect.Type) bool {
	if t == nil {
		return true
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && HasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if HasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
