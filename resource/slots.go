package resource

// slots stores values by handle and reuses the handles of removed entries.
type slots struct {
	entries  []entry
	freeList []Handle
	live     int
}

type entry struct {
	value  any
	name   string
	typeID uint32
	valid  bool
}

func newSlots() slots {
	return slots{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

func (s *slots) create(typeID uint32, value any) Handle {
	e := entry{
		typeID: typeID,
		value:  value,
		valid:  true,
	}
	s.live++

	if len(s.freeList) > 0 {
		handle := s.freeList[len(s.freeList)-1]
		s.freeList = s.freeList[:len(s.freeList)-1]
		s.entries[handle-1] = e
		return handle
	}

	s.entries = append(s.entries, e)
	return Handle(len(s.entries))
}

func (s *slots) get(handle Handle) *entry {
	if handle == 0 {
		return nil
	}
	idx := handle - 1
	if int(idx) >= len(s.entries) {
		return nil
	}
	e := &s.entries[idx]
	if !e.valid {
		return nil
	}
	return e
}

// drop invalidates the entry and returns it as it was.
func (s *slots) drop(handle Handle) (entry, bool) {
	e := s.get(handle)
	if e == nil {
		return entry{}, false
	}
	old := *e
	*e = entry{}
	s.freeList = append(s.freeList, handle)
	s.live--
	return old, true
}

func (s *slots) each(fn func(Handle, *entry) bool) {
	for i := range s.entries {
		if s.entries[i].valid {
			if !fn(Handle(i+1), &s.entries[i]) {
				break
			}
		}
	}
}

func (s *slots) reset() {
	s.entries = nil
	s.freeList = nil
	s.live = 0
}
