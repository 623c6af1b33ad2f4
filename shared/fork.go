package shared

import (
	"reflect"
	"unsafe"

	"github.com/wippyai/rc"
	"github.com/wippyai/rc/errors"
)

var dropperType = reflect.TypeFor[rc.Dropper]()

// duplicate returns a fresh block holding an independent copy of the value
// of b, or aborts if the value cannot be copied without sharing.
//
// Cloner wins when implemented. Otherwise strings and pointer-free data are
// copied, slices, arrays, structs and maps are copied element by element and
// nil pointers stay nil. Any other pointer, interface, channel or function
// would leave both blocks sharing state. A Dropper without Cloner would be
// dropped once per block.
func duplicate[T any](a rc.Allocator, b *box[T]) *box[T] {
	nb := allocBox[T](a, b.n)

	var (
		t  reflect.Type
		ok bool
	)
	if b.n > 0 {
		src, dst := reflect.ValueOf(b.value), reflect.ValueOf(nb.value)
		t = src.Type().Elem()
		ok = !isDropper(t) || cloneable(t)
		for i := 0; ok && i < src.Len(); i++ {
			ok = forkValue(dst.Index(i), src.Index(i))
		}
	} else {
		t = reflect.TypeFor[T]()
		if c, isCloner := any(&b.value).(Cloner[T]); isCloner {
			nb.value = c.Clone()
			return nb
		}
		if c, isCloner := any(b.value).(Cloner[T]); isCloner {
			nb.value = c.Clone()
			return nb
		}
		ok = !isDropper(t) && forkValue(reflect.ValueOf(&nb.value).Elem(), reflect.ValueOf(&b.value).Elem())
	}

	if !ok {
		nb.forget()
		freeBox(a, nb)
		fatal(errors.Unsupported(errors.PhaseAccess, t.String(),
			"MakeMut cannot fork a value that would share pointers or Drop with its copy; implement Cloner"))
	}
	return nb
}

// forkValue stores an independent copy of src in dst. Both must be
// addressable. It reports false when that is impossible.
func forkValue(dst, src reflect.Value) bool {
	t := src.Type()
	if m, ok := cloneMethod(src); ok {
		dst.Set(m.Call(nil)[0])
		return true
	}
	if sharable(t) {
		dst.Set(src)
		return true
	}

	switch t.Kind() {
	case reflect.Array:
		for i := 0; i < t.Len(); i++ {
			if !forkValue(dst.Index(i), src.Index(i)) {
				return false
			}
		}
		return true

	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !forkValue(field(dst, i), field(src, i)) {
				return false
			}
		}
		return true

	case reflect.Slice:
		if src.IsNil() {
			dst.SetZero()
			return true
		}
		s := reflect.MakeSlice(t, src.Len(), src.Len())
		for i := 0; i < src.Len(); i++ {
			if !forkValue(s.Index(i), src.Index(i)) {
				return false
			}
		}
		dst.Set(s)
		return true

	case reflect.Map:
		if src.IsNil() {
			dst.SetZero()
			return true
		}
		if !sharable(t.Key()) {
			return false
		}
		m := reflect.MakeMapWithSize(t, src.Len())
		iter := src.MapRange()
		for iter.Next() {
			// Map values are not addressable; work on copies.
			v := reflect.New(t.Elem()).Elem()
			v.Set(iter.Value())
			nv := reflect.New(t.Elem()).Elem()
			if !forkValue(nv, v) {
				return false
			}
			m.SetMapIndex(iter.Key(), nv)
		}
		dst.Set(m)
		return true

	case reflect.Pointer, reflect.Interface, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if src.IsNil() {
			dst.SetZero()
			return true
		}
	}
	return false
}

// field returns field i of the addressable struct v, settable even when
// unexported.
func field(v reflect.Value, i int) reflect.Value {
	f := v.Type().Field(i)
	return reflect.NewAt(f.Type, unsafe.Add(v.Addr().UnsafePointer(), f.Offset)).Elem()
}

// sharable reports whether copies of a t share nothing mutable.
func sharable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true
	case reflect.Array:
		return sharable(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !sharable(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func isDropper(t reflect.Type) bool {
	return t.Implements(dropperType) || reflect.PointerTo(t).Implements(dropperType)
}

// cloneable reports whether t or *t has a method Clone() t.
func cloneable(t reflect.Type) bool {
	for _, rt := range []reflect.Type{reflect.PointerTo(t), t} {
		m, ok := rt.MethodByName("Clone")
		if !ok {
			continue
		}
		in := 1
		if rt.Kind() == reflect.Interface {
			in = 0
		}
		if m.Type.NumIn() == in && m.Type.NumOut() == 1 && m.Type.Out(0) == t {
			return true
		}
	}
	return false
}

// cloneMethod returns the bound Clone method of v when it has the shape
// Clone() T.
func cloneMethod(v reflect.Value) (reflect.Value, bool) {
	t := v.Type()
	if t.NumMethod() == 0 && reflect.PointerTo(t).NumMethod() == 0 {
		return reflect.Value{}, false
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return reflect.Value{}, false
		}
	}

	var m reflect.Value
	if v.CanAddr() {
		m = v.Addr().MethodByName("Clone")
	}
	if !m.IsValid() {
		m = v.MethodByName("Clone")
	}
	if !m.IsValid() {
		return reflect.Value{}, false
	}
	mt := m.Type()
	if mt.NumIn() != 0 || mt.NumOut() != 1 || mt.Out(0) != t {
		return reflect.Value{}, false
	}
	return m, true
}
