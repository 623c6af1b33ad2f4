package resource

import (
	"github.com/wippyai/rc"
	"github.com/wippyai/rc/errors"
)

// Table maps handles, and optionally names, to values. Removing an entry
// calls Drop on values implementing rc.Dropper, so a table of pointers owns
// one reference per entry.
//
// A Table is not safe for concurrent use, like the pointers it usually holds.
type Table struct {
	names     map[string]Handle
	observers []Observer
	slots     slots
	closed    bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		names: make(map[string]Handle),
		slots: newSlots(),
	}
}

// Insert adds a value and returns its handle, or 0 once the table is closed.
func (t *Table) Insert(typeID uint32, value any) Handle {
	if t.closed {
		return 0
	}
	handle := t.slots.create(typeID, value)
	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})
	return handle
}

// Set inserts value under name. An entry already bound to name is removed
// first, dropping its value.
func (t *Table) Set(name string, typeID uint32, value any) (Handle, error) {
	if t.closed {
		return 0, errors.Closed(errors.PhaseAccess, "resource table")
	}
	if old, ok := t.names[name]; ok {
		t.Remove(old)
	}
	handle := t.Insert(typeID, value)
	if err := t.Bind(name, handle); err != nil {
		return 0, err
	}
	return handle, nil
}

// Bind names an entry. A name refers to at most one entry and an entry has
// at most one name; rebinding moves the name.
func (t *Table) Bind(name string, handle Handle) error {
	e := t.slots.get(handle)
	if e == nil {
		return errors.NotFound(errors.PhaseAccess, "handle", name)
	}
	if old, ok := t.names[name]; ok && old != handle {
		if oe := t.slots.get(old); oe != nil {
			oe.name = ""
		}
	}
	if e.name != "" {
		delete(t.names, e.name)
	}
	e.name = name
	t.names[name] = handle
	t.notify(Event{
		Type:   EventBound,
		Handle: handle,
		TypeID: e.typeID,
		Value:  e.value,
		Name:   name,
	})
	return nil
}

// Lookup returns the handle bound to name.
func (t *Table) Lookup(name string) (Handle, bool) {
	h, ok := t.names[name]
	return h, ok
}

// NameOf returns the name bound to handle, or "".
func (t *Table) NameOf(handle Handle) string {
	if e := t.slots.get(handle); e != nil {
		return e.name
	}
	return ""
}

// Get retrieves a value by handle.
func (t *Table) Get(handle Handle) (any, bool) {
	e := t.slots.get(handle)
	if e == nil {
		return nil, false
	}
	return e.value, true
}

// GetTyped retrieves a value only if it matches the expected type.
func (t *Table) GetTyped(handle Handle, typeID uint32) (any, bool) {
	e := t.slots.get(handle)
	if e == nil || e.typeID != typeID {
		return nil, false
	}
	return e.value, true
}

// TypeID returns the type ID of an entry.
func (t *Table) TypeID(handle Handle) (uint32, bool) {
	e := t.slots.get(handle)
	if e == nil {
		return 0, false
	}
	return e.typeID, true
}

// Remove drops an entry and returns (value, true) if found.
func (t *Table) Remove(handle Handle) (any, bool) {
	e, ok := t.slots.drop(handle)
	if !ok {
		return nil, false
	}
	if e.name != "" {
		delete(t.names, e.name)
	}

	if d, ok := e.value.(rc.Dropper); ok {
		d.Drop()
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		TypeID: e.typeID,
		Value:  e.value,
		Name:   e.name,
	})
	return e.value, true
}

// Take removes an entry without dropping its value; ownership passes to the
// caller.
func (t *Table) Take(handle Handle) (any, bool) {
	e, ok := t.slots.drop(handle)
	if !ok {
		return nil, false
	}
	if e.name != "" {
		delete(t.names, e.name)
	}
	return e.value, true
}

// Each calls fn for every entry in handle order until fn returns false.
func (t *Table) Each(fn func(h Handle, typeID uint32, value any) bool) {
	t.slots.each(func(h Handle, e *entry) bool {
		return fn(h, e.typeID, e.value)
	})
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return t.slots.live
}

// Clear removes every entry, dropping values in handle order.
func (t *Table) Clear() {
	var handles []Handle
	t.slots.each(func(h Handle, _ *entry) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		t.Remove(h)
	}
}

// Close clears the table and stops accepting entries.
func (t *Table) Close() error {
	if t.closed {
		return nil
	}
	t.Clear()
	t.closed = true
	t.slots.reset()
	return nil
}

func (t *Table) notify(e Event) {
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
