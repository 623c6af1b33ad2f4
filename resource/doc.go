// Package resource provides a handle table for values that must be dropped
// explicitly, such as reference-counted pointers.
//
// Each entry owns its value: removing it, clearing the table or closing it
// calls Drop on values implementing rc.Dropper. A table of *shared.Shared
// pointers therefore holds exactly one strong reference per entry.
//
// # Handle Table
//
// The Table maps integer handles to Go values:
//
//	table := resource.NewTable()
//
//	// Insert a value, get a handle
//	handle := table.Insert(typeID, ptr)
//
//	// Retrieve value by handle
//	value, ok := table.Get(handle)
//
//	// Remove drops the value
//	table.Remove(handle)
//
//	// Take hands the value to the caller without dropping it
//	value, ok := table.Take(handle)
//
// # Names
//
// Entries may carry a name. Set replaces whatever was bound to the name,
// dropping the old value:
//
//	table.Set("p0", KindShared, shared.New(75))
//	h, ok := table.Lookup("p0")
//
// # Type Safety
//
// Entries are tagged with a type ID chosen by the caller:
//
//	value, ok := table.GetTyped(handle, KindShared)
//
// Typed wraps a table for one type ID and converts values to a Go type:
//
//	strong := resource.NewTyped[*shared.Shared[int]](table, KindShared)
//	p, ok := strong.Lookup("p0")
//
// # Observers
//
// Observers see EventCreated, EventBound and EventDropped for every entry:
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    log.Printf("%s %d %s", e.Type, e.Handle, e.Name)
//	}))
//
// # Concurrency
//
// Tables are not safe for concurrent use.
package resource
