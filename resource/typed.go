package resource

// Typed gives type-safe access to the entries of one type ID in a Table.
type Typed[T any] struct {
	table  *Table
	typeID uint32
}

// NewTyped returns a view of table restricted to typeID.
func NewTyped[T any](table *Table, typeID uint32) *Typed[T] {
	return &Typed[T]{table: table, typeID: typeID}
}

// Insert adds a value and returns its handle.
func (t *Typed[T]) Insert(value T) Handle {
	return t.table.Insert(t.typeID, value)
}

// Set inserts value under name, replacing any entry bound to it.
func (t *Typed[T]) Set(name string, value T) (Handle, error) {
	return t.table.Set(name, t.typeID, value)
}

// Get retrieves a value by handle.
func (t *Typed[T]) Get(handle Handle) (T, bool) {
	v, ok := t.table.GetTyped(handle, t.typeID)
	if !ok {
		var zero T
		return zero, false
	}
	r, ok := v.(T)
	return r, ok
}

// Lookup retrieves a value by name.
func (t *Typed[T]) Lookup(name string) (T, bool) {
	h, ok := t.table.Lookup(name)
	if !ok {
		var zero T
		return zero, false
	}
	return t.Get(h)
}

// Remove drops an entry of this type and returns (value, true) if found.
func (t *Typed[T]) Remove(handle Handle) (T, bool) {
	var zero T
	if _, ok := t.table.GetTyped(handle, t.typeID); !ok {
		return zero, false
	}
	v, ok := t.table.Remove(handle)
	if !ok {
		return zero, false
	}
	r, _ := v.(T)
	return r, true
}

// Len returns the number of entries of this type.
func (t *Typed[T]) Len() int {
	n := 0
	t.Each(func(Handle, T) bool {
		n++
		return true
	})
	return n
}

// Each iterates over the entries of this type.
func (t *Typed[T]) Each(fn func(Handle, T) bool) {
	t.table.Each(func(h Handle, typeID uint32, value any) bool {
		if typeID != t.typeID {
			return true
		}
		v, ok := value.(T)
		if !ok {
			return true
		}
		return fn(h, v)
	})
}

// Table returns the underlying table.
func (t *Typed[T]) Table() *Table {
	return t.table
}
