package index

// Main is an index page's main record: identity and tree-structure
// links, per spec.md §3 "Index B-tree page".
type Main struct {
	PageNumber        uint32
	Prev              uint32 // InvalidPage if none
	Next              uint32
	Parent            uint32
	ChildTailPage     uint32 // InvalidPage on a leaf page or a node page with no tail
	Leaf              bool
}

// Extra is an index page's extra record: its sorted entries and the
// cached metadata derived from them.
type Extra struct {
	Entries        []Entry
	Prefix         []byte // common byte prefix of first/last real entries; nil means "not computed"
	TotalEntrySize int
	Modified       bool
}

// EmptyPrefix reports whether Prefix needs to be (re)computed, per
// spec.md §4.6.6: EMPTY_PREFIX means "not computed yet".
func (e *Extra) EmptyPrefix() bool { return e.Prefix == nil }

// RecomputeTotalSize recalculates TotalEntrySize from Entries, the
// invariant spec.md §3/§4.6.7 requires hold after every mutation.
func (e *Extra) RecomputeTotalSize() {
	total := 0
	for _, ent := range e.Entries {
		total += ent.Size()
	}
	e.TotalEntrySize = total
}

// RealEntries returns Entries minus a trailing child-tail entry, which
// spec.md §4.6.6 excludes from the prefix computation. The child-tail
// entry, when present, is always Entries' logical last entry but is
// never materialized in Entries itself (its sub-page lives in
// Main.ChildTailPage) — RealEntries is simply Entries here because
// this cache never stores the tail inline; it exists so flush.go's
// prefix computation reads naturally against "first/last real entry".
func (e *Extra) RealEntries() []Entry { return e.Entries }

// HasChildTail reports whether m's node page carries a child-tail
// entry (spec.md glossary: Child-tail).
func (m *Main) HasChildTail() bool { return !m.Leaf && m.ChildTailPage != InvalidPage }
