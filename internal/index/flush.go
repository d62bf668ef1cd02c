package index

import pcerrors "github.com/pingcap/errors"

// modifiedPages returns the current modified-page list as a stable
// slice, since Flush mutates the underlying map as it iterates.
func (c *Cache) modifiedPages() []uint32 {
	pages := make([]uint32, 0, len(c.modified))
	for p := range c.modified {
		pages = append(pages, p)
	}
	return pages
}

// Flush performs the three passes of spec.md §4.6.5: deallocate empty
// pages, split/demote/promote until no modified page is oversized, then
// persist every still-modified page.
func (c *Cache) Flush() error {
	if err := c.flushEmptyPages(); err != nil {
		return pcerrors.Trace(err)
	}
	if err := c.flushSplits(); err != nil {
		return pcerrors.Trace(err)
	}
	return c.flushPersist()
}

// flushEmptyPages is pass 1: deallocate each non-root empty modified
// page; an empty root stays as an empty leaf page.
func (c *Cache) flushEmptyPages() error {
	for _, page := range c.modifiedPages() {
		extra, err := c.extra(page)
		if err != nil {
			return err
		}
		if len(extra.Entries) != 0 {
			continue
		}
		main, err := c.main(page)
		if err != nil {
			return err
		}
		if page == c.root {
			main.Leaf = true
			main.ChildTailPage = InvalidPage
			continue
		}
		if err := c.unlinkEmptyPage(page, main); err != nil {
			return err
		}
		delete(c.modified, page)
		delete(c.mains, page)
		c.extras.Drop(page)
		if err := c.store.FreePage(page); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) unlinkEmptyPage(page uint32, main *Main) error {
	if main.Prev != InvalidPage {
		prevMain, err := c.main(main.Prev)
		if err != nil {
			return err
		}
		prevMain.Next = main.Next
		c.markModified(main.Prev)
	}
	if main.Next != InvalidPage {
		nextMain, err := c.main(main.Next)
		if err != nil {
			return err
		}
		nextMain.Prev = main.Prev
		c.markModified(main.Next)
	}
	if main.Parent != InvalidPage {
		parentExtra, err := c.extra(main.Parent)
		if err != nil {
			return err
		}
		for i, e := range parentExtra.Entries {
			if e.ChildPage == page {
				parentExtra.Entries = append(parentExtra.Entries[:i], parentExtra.Entries[i+1:]...)
				parentExtra.RecomputeTotalSize()
				c.markModified(main.Parent)
				break
			}
		}
	}
	return nil
}

// flushSplits is pass 2: repeat demote/promote + prefix recompute +
// split until no modified page is oversized.
func (c *Cache) flushSplits() error {
	for {
		changed := false
		for _, page := range c.modifiedPages() {
			main, err := c.main(page)
			if err != nil {
				return err
			}
			extra, err := c.extra(page)
			if err != nil {
				return err
			}
			if len(extra.Entries) == 0 && !main.HasChildTail() {
				continue
			}
			if !main.Leaf {
				// the child-tail is not stored in Entries, so "only the
				// tail" is zero inline entries plus a tail.
				if len(extra.Entries) == 0 && main.HasChildTail() {
					c.demoteTail(main, extra)
					changed = true
				} else if len(extra.Entries) > 1 && !main.HasChildTail() {
					c.promoteLastToTail(main, extra)
					changed = true
				}
			}
			if extra.EmptyPrefix() {
				extra.Prefix = commonPrefix(extra.RealEntries())
			}
			if c.compressedSize(extra) > c.maxPageEntrySize && c.maxPageEntrySize > 0 {
				if err := c.split(page, main, extra); err != nil {
					return err
				}
				changed = true
			}
		}
		if !changed {
			return nil
		}
	}
}

func (c *Cache) demoteTail(main *Main, extra *Extra) {
	tailKey := longestEntryKeyHint(extra)
	extra.Entries = append(extra.Entries, NodeEntry(tailKey, main.ChildTailPage))
	main.ChildTailPage = InvalidPage
	extra.RecomputeTotalSize()
	extra.Prefix = nil
}

func (c *Cache) promoteLastToTail(main *Main, extra *Extra) {
	last := extra.Entries[len(extra.Entries)-1]
	extra.Entries = extra.Entries[:len(extra.Entries)-1]
	main.ChildTailPage = last.ChildPage
	extra.RecomputeTotalSize()
	extra.Prefix = nil
}

// longestEntryKeyHint synthesizes a key for a demoted tail entry: the
// tail has no key of its own on disk (its sub-page is addressed via
// Main.ChildTailPage), so once demoted it is given the key of the
// page's current last entry plus one byte, keeping it strictly
// greatest without requiring a read of the child page's own last key.
func longestEntryKeyHint(extra *Extra) []byte {
	if len(extra.Entries) == 0 {
		return []byte{0xFF}
	}
	last := extra.Entries[len(extra.Entries)-1].Key
	key := make([]byte, len(last)+1)
	copy(key, last)
	key[len(last)] = 0xFF
	return key
}

// compressedSize is the on-disk footprint of extra's entries after
// stripping the shared Prefix from each (spec.md §4.6.6).
func (c *Cache) compressedSize(extra *Extra) int {
	total := 0
	prefixLen := len(extra.Prefix)
	for _, e := range extra.Entries {
		sz := e.Size() - prefixLen
		if sz < 0 {
			sz = 0
		}
		total += sz
	}
	return total
}

// commonPrefix computes the shared byte prefix of the first and last
// real entries' keys, per spec.md §4.6.6.
func commonPrefix(entries []Entry) []byte {
	if len(entries) == 0 {
		return []byte{}
	}
	a, b := entries[0].Key, entries[len(entries)-1].Key
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}

// split implements spec.md §4.6.5 pass 2's split step: nest the root
// if needed, then move the first half of page's entries to a new
// sibling inserted to its left, reparenting moved children and
// fixing peer links.
func (c *Cache) split(page uint32, main *Main, extra *Extra) error {
	if page == c.root {
		if err := c.nestRoot(page, main, extra); err != nil {
			return err
		}
		// after nesting, the original entries now live on the new
		// child; re-fetch and continue the split against that page.
		childPage := main.ChildTailPage
		childMain, err := c.main(childPage)
		if err != nil {
			return err
		}
		childExtra, err := c.extra(childPage)
		if err != nil {
			return err
		}
		return c.split(childPage, childMain, childExtra)
	}

	half := (len(extra.Entries) + 1) / 2
	moved := make([]Entry, half)
	copy(moved, extra.Entries[:half])
	remaining := make([]Entry, len(extra.Entries)-half)
	copy(remaining, extra.Entries[half:])

	newPage, err := c.store.AllocatePage()
	if err != nil {
		return err
	}
	newMain := &Main{PageNumber: newPage, Leaf: main.Leaf, Parent: main.Parent, ChildTailPage: InvalidPage, Prev: main.Prev, Next: page}
	newExtra := &Extra{Entries: moved, Modified: true}
	newExtra.RecomputeTotalSize()

	if main.Prev != InvalidPage {
		if prevMain, err := c.main(main.Prev); err == nil {
			prevMain.Next = newPage
			c.markModified(main.Prev)
		}
	}
	main.Prev = newPage

	if !main.Leaf {
		for _, e := range moved {
			if childMain, err := c.main(e.ChildPage); err == nil {
				childMain.Parent = newPage
				c.markModified(e.ChildPage)
			}
		}
		// the last moved child's next link, pointing into the unmoved
		// half, is cut per spec.md §4.6.5: node peer links stay within
		// one parent (leaf peer links are kept).
		lastMoved := moved[len(moved)-1].ChildPage
		if lm, err := c.main(lastMoved); err == nil && !lm.Leaf && lm.Next != InvalidPage {
			next := lm.Next
			c.markModified(lastMoved)
			c.markModified(next)
			if lm, err := c.main(lastMoved); err == nil {
				lm.Next = InvalidPage
			}
			if nm, err := c.main(next); err == nil {
				nm.Prev = InvalidPage
			}
		}
	}

	c.mains[newPage] = newMain
	c.extras.Put(newPage, newExtra)
	c.markModified(newPage)

	extra.Entries = remaining
	extra.RecomputeTotalSize()
	extra.Prefix = nil
	c.markModified(page)

	return c.addToParent(main.Parent, NodeEntry(moved[len(moved)-1].Key, newPage))
}

// nestRoot copies the root's entries to a brand-new child page and
// leaves the root pointing only at that child, per spec.md §4.6.5.
func (c *Cache) nestRoot(rootPage uint32, rootMain *Main, rootExtra *Extra) error {
	childPage, err := c.store.AllocatePage()
	if err != nil {
		return err
	}
	childMain := &Main{PageNumber: childPage, Leaf: rootMain.Leaf, Parent: rootPage, ChildTailPage: rootMain.ChildTailPage, Prev: InvalidPage, Next: InvalidPage}
	childExtra := &Extra{Entries: rootExtra.Entries, Modified: true}
	childExtra.RecomputeTotalSize()

	if !rootMain.Leaf {
		for _, e := range childExtra.Entries {
			if cm, err := c.main(e.ChildPage); err == nil {
				cm.Parent = childPage
				c.markModified(e.ChildPage)
			}
		}
		if childMain.ChildTailPage != InvalidPage {
			if cm, err := c.main(childMain.ChildTailPage); err == nil {
				cm.Parent = childPage
				c.markModified(childMain.ChildTailPage)
			}
		}
	}

	c.mains[childPage] = childMain
	c.extras.Put(childPage, childExtra)
	c.markModified(childPage)

	rootMain.Leaf = false
	rootMain.ChildTailPage = childPage
	rootExtra.Entries = nil
	rootExtra.RecomputeTotalSize()
	rootExtra.Prefix = nil
	c.markModified(rootPage)
	return nil
}

// addToParent inserts a node entry into parentPage, cascading a
// further split if that overflows the page too; handled by the outer
// flushSplits loop re-examining the modified list.
func (c *Cache) addToParent(parentPage uint32, entry Entry) error {
	parentExtra, err := c.extra(parentPage)
	if err != nil {
		return err
	}
	idx, _ := searchEntries(parentExtra.Entries, entry)
	parentExtra.Entries = append(parentExtra.Entries, Entry{})
	copy(parentExtra.Entries[idx+1:], parentExtra.Entries[idx:])
	parentExtra.Entries[idx] = entry
	parentExtra.RecomputeTotalSize()
	parentExtra.Prefix = nil
	c.markModified(parentPage)
	return nil
}

// flushPersist is pass 3: write every still-modified page and clear
// its modified flag.
func (c *Cache) flushPersist() error {
	for _, page := range c.modifiedPages() {
		main, err := c.main(page)
		if err != nil {
			return err
		}
		extra, err := c.extra(page)
		if err != nil {
			return err
		}
		if err := c.store.WriteIndexPage(page, *main, *extra); err != nil {
			return err
		}
		extra.Modified = false
		delete(c.modified, page)
	}
	return nil
}
