// Package index implements the B-tree page cache of spec.md §4.6: the
// IndexPageCache, prefix-compressed entries, child-tail bookkeeping,
// and split/merge on flush.
package index

import (
	"bytes"

	"github.com/jetaccess/jetdb/internal/record"
)

// InvalidPage is the sentinel for "no child"/"no sibling"/"no parent".
const InvalidPage uint32 = 0xFFFFFFFF

// Entry is key_bytes ++ trailer, per spec.md §4.6.1. Leaf entries carry
// a RowId trailer (8 bytes logically); node entries carry a child page
// number (4 bytes). Comparison is bytewise on Key, ties broken by the
// trailer, which keeps entries for duplicate keys (non-unique indexes)
// in a stable, deterministic order.
type Entry struct {
	Key       []byte
	IsNode    bool
	RowID     record.RowId
	ChildPage uint32
}

// Size is the entry's on-disk footprint: key bytes plus an 8-byte
// RowId trailer for leaf entries, or a 4-byte page number for node
// entries.
func (e Entry) Size() int {
	if e.IsNode {
		return len(e.Key) + 4
	}
	return len(e.Key) + 8
}

// Compare orders two entries: first by key bytes, then — for leaf
// entries — by RowId, then — for node entries — by child page.
func (e Entry) Compare(other Entry) int {
	if c := bytes.Compare(e.Key, other.Key); c != 0 {
		return c
	}
	if e.IsNode {
		switch {
		case e.ChildPage < other.ChildPage:
			return -1
		case e.ChildPage > other.ChildPage:
			return 1
		default:
			return 0
		}
	}
	return compareRowID(e.RowID, other.RowID)
}

func compareRowID(a, b record.RowId) int {
	switch {
	case a.Page < b.Page:
		return -1
	case a.Page > b.Page:
		return 1
	case a.Row < b.Row:
		return -1
	case a.Row > b.Row:
		return 1
	default:
		return 0
	}
}

// LeafEntry constructs a leaf entry for a given sort key and RowId.
func LeafEntry(key []byte, id record.RowId) Entry {
	return Entry{Key: key, RowID: id}
}

// NodeEntry constructs a node entry pointing at a child page.
func NodeEntry(key []byte, child uint32) Entry {
	return Entry{Key: key, IsNode: true, ChildPage: child}
}
