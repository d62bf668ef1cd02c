package index

import (
	"bytes"
	"sort"

	pcerrors "github.com/pingcap/errors"
)

// Cache is spec.md §4.6.2's IndexPageCache: the root page, a strong
// map of page number to Main, a soft-reference-style LRU of Extra
// records, and the list of currently modified pages.
type Cache struct {
	store  PageStore
	root   uint32
	unique bool

	mains    map[uint32]*Main
	extras   *extraLRU
	modified map[uint32]bool

	maxPageEntrySize int
}

// Config configures a new Cache.
type Config struct {
	Root             uint32
	Unique           bool
	MaxPageEntrySize int
	ExtraCacheSize   int // 0 defaults to 64
}

// NewCache constructs a Cache over store, rooted at cfg.Root.
func NewCache(store PageStore, cfg Config) *Cache {
	size := cfg.ExtraCacheSize
	if size <= 0 {
		size = 64
	}
	c := &Cache{
		store:            store,
		root:             cfg.Root,
		unique:           cfg.Unique,
		mains:            make(map[uint32]*Main),
		modified:         make(map[uint32]bool),
		maxPageEntrySize: cfg.MaxPageEntrySize,
	}
	c.extras = newExtraLRU(size, c.reloadExtra)
	return c
}

func (c *Cache) reloadExtra(page uint32) (Extra, error) {
	main, extra, err := c.store.ReadIndexPage(page)
	if err != nil {
		return Extra{}, pcerrors.Trace(err)
	}
	c.mains[page] = &main
	return extra, nil
}

func (c *Cache) main(page uint32) (*Main, error) {
	if m, ok := c.mains[page]; ok {
		return m, nil
	}
	if _, err := c.extras.Get(page); err != nil { // reloadExtra populates mains as a side effect
		return nil, err
	}
	return c.mains[page], nil
}

func (c *Cache) extra(page uint32) (*Extra, error) {
	return c.extras.Get(page)
}

func (c *Cache) markModified(page uint32) {
	c.modified[page] = true
	if e, err := c.extra(page); err == nil {
		e.Modified = true
		e.Prefix = nil // cleared; recomputed on flush per spec.md §4.6.3 step 3
	}
}

// Root returns the current root page number.
func (c *Cache) Root() uint32 { return c.root }

// Find descends from the root, returning the leaf page and the
// in-page index where entry belongs (its exact position if found,
// otherwise the insertion point), per spec.md §4.6.3 step 1.
func (c *Cache) Find(entry Entry) (page uint32, idx int, found bool, err error) {
	cur := c.root
	for {
		main, err := c.main(cur)
		if err != nil {
			return 0, 0, false, err
		}
		if main.Leaf {
			extra, err := c.extra(cur)
			if err != nil {
				return 0, 0, false, err
			}
			pos, exact := searchEntries(extra.Entries, entry)
			return cur, pos, exact, nil
		}
		extra, err := c.extra(cur)
		if err != nil {
			return 0, 0, false, err
		}
		pos, exact := searchEntries(extra.Entries, entry)
		if exact {
			cur = extra.Entries[pos].ChildPage
			continue
		}
		// insertion point clamped to the last child: if pos is past
		// the last real entry, descend through the child-tail (or
		// the last entry's child if there is no tail).
		if pos >= len(extra.Entries) {
			if main.HasChildTail() {
				cur = main.ChildTailPage
			} else if len(extra.Entries) > 0 {
				cur = extra.Entries[len(extra.Entries)-1].ChildPage
			} else {
				return 0, 0, false, ErrTreeCorrupted
			}
			continue
		}
		cur = extra.Entries[pos].ChildPage
	}
}

// searchEntries binary-searches entries for the position entry
// belongs at, reporting whether an exact match (by Compare) exists.
func searchEntries(entries []Entry, entry Entry) (int, bool) {
	idx := sort.Search(len(entries), func(i int) bool {
		return entries[i].Compare(entry) >= 0
	})
	if idx < len(entries) && entries[idx].Compare(entry) == 0 {
		return idx, true
	}
	return idx, false
}

// Insert adds entry to the tree, per spec.md §4.6.3.
func (c *Cache) Insert(entry Entry) error {
	page, idx, found, err := c.Find(entry)
	if err != nil {
		return err
	}
	extra, err := c.extra(page)
	if err != nil {
		return err
	}
	// a unique index rejects an equal key whatever its RowId; entries
	// with that key sit right before or at the insertion point
	if c.unique && (found ||
		(idx < len(extra.Entries) && bytes.Equal(extra.Entries[idx].Key, entry.Key)) ||
		(idx > 0 && bytes.Equal(extra.Entries[idx-1].Key, entry.Key))) {
		return ErrDuplicateKey
	}
	wasLast := len(extra.Entries) == 0 || idx == len(extra.Entries)
	extra.Entries = append(extra.Entries, Entry{})
	copy(extra.Entries[idx+1:], extra.Entries[idx:])
	extra.Entries[idx] = entry
	extra.RecomputeTotalSize()
	c.markModified(page)
	if wasLast {
		if err := c.propagateLastEntryChange(page); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes the entry matching target (by Compare) from the
// tree, per spec.md §4.6.4.
func (c *Cache) Remove(target Entry) error {
	page, idx, found, err := c.Find(target)
	if err != nil {
		return err
	}
	if !found {
		return ErrKeyNotFound
	}
	extra, err := c.extra(page)
	if err != nil {
		return err
	}
	wasLast := idx == len(extra.Entries)-1
	extra.Entries = append(extra.Entries[:idx], extra.Entries[idx+1:]...)
	extra.RecomputeTotalSize()
	c.markModified(page)
	if len(extra.Entries) == 0 {
		return nil // deallocation/unlinking happens in flush's empty-page pass
	}
	if wasLast {
		return c.propagateLastEntryChange(page)
	}
	return nil
}

// propagateLastEntryChange replaces page's corresponding node entry in
// its parent when page's last entry changed, per spec.md §4.6.3 step 3
// / §4.6.4.
func (c *Cache) propagateLastEntryChange(page uint32) error {
	main, err := c.main(page)
	if err != nil {
		return err
	}
	if main.Parent == InvalidPage {
		return nil
	}
	extra, err := c.extra(page)
	if err != nil {
		return err
	}
	if len(extra.Entries) == 0 {
		return nil
	}
	last := extra.Entries[len(extra.Entries)-1]
	parentMain, err := c.main(main.Parent)
	if err != nil {
		return err
	}
	parentExtra, err := c.extra(main.Parent)
	if err != nil {
		return err
	}
	newNode := NodeEntry(last.Key, page)
	if parentMain.ChildTailPage == page {
		// the tail's key is implicit (it has no inline entry); nothing
		// to replace, but the parent's prefix is now stale.
		parentExtra.Prefix = nil
		c.markModified(main.Parent)
		return nil
	}
	for i, e := range parentExtra.Entries {
		if e.ChildPage == page {
			parentExtra.Entries[i] = newNode
			c.markModified(main.Parent)
			return nil
		}
	}
	return ErrTreeCorrupted
}
