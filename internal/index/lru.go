package index

// extraLRU models spec.md §9's "soft references for cached page
// extras" as a size-bounded map with an explicit reload function,
// rather than relying on host-GC semantics the source used.
type extraLRU struct {
	capacity int
	order    []uint32 // most-recently-used at the end
	entries  map[uint32]*Extra
	reload   func(page uint32) (Extra, error)
}

func newExtraLRU(capacity int, reload func(uint32) (Extra, error)) *extraLRU {
	return &extraLRU{
		capacity: capacity,
		entries:  make(map[uint32]*Extra),
		reload:   reload,
	}
}

// Get returns the cached extra for page, reloading it via the
// configured function on a miss. Dirty (Modified) extras are never
// evicted, mirroring a real soft-reference cache that would be
// unreachable from the GC's root set while pinned by the modified list.
func (l *extraLRU) Get(page uint32) (*Extra, error) {
	if e, ok := l.entries[page]; ok {
		l.touch(page)
		return e, nil
	}
	loaded, err := l.reload(page)
	if err != nil {
		return nil, err
	}
	l.put(page, &loaded)
	return l.entries[page], nil
}

// Put installs or replaces the cached extra for page, e.g. after an
// insert/remove mutates it in place.
func (l *extraLRU) Put(page uint32, e *Extra) {
	l.put(page, e)
}

func (l *extraLRU) put(page uint32, e *Extra) {
	if _, exists := l.entries[page]; !exists {
		l.evictIfNeeded()
		l.order = append(l.order, page)
	} else {
		l.touch(page)
	}
	l.entries[page] = e
}

func (l *extraLRU) touch(page uint32) {
	for i, p := range l.order {
		if p == page {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	l.order = append(l.order, page)
}

// evictIfNeeded looks at each cached page at most once; when every one
// is dirty, nothing is evicted and the cache grows past capacity.
func (l *extraLRU) evictIfNeeded() {
	for tries := len(l.order); tries > 0 && len(l.order) >= l.capacity && l.capacity > 0; tries-- {
		victim := l.order[0]
		if e, ok := l.entries[victim]; ok && e.Modified {
			// never evict a dirty page; try the next-oldest instead
			l.order = append(l.order[1:], victim)
			continue
		}
		l.order = l.order[1:]
		delete(l.entries, victim)
	}
}

// Drop removes page from the cache outright (used once a page is
// deallocated during flush's empty-page pass).
func (l *extraLRU) Drop(page uint32) {
	delete(l.entries, page)
	for i, p := range l.order {
		if p == page {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}
