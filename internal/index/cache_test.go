package index_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jetaccess/jetdb/internal/column"
	"github.com/jetaccess/jetdb/internal/index"
	"github.com/jetaccess/jetdb/internal/record"
)

// memStore is an in-memory index.PageStore fake, standing in for the
// pagestore.Channel-backed store the table package supplies in
// production, so the B-tree split/merge/flush/validate path can be
// exercised without a real database file.
type memStore struct {
	pages map[uint32]pageRecord
	next  uint32
}

type pageRecord struct {
	main  index.Main
	extra index.Extra
}

func newMemStore() *memStore {
	return &memStore{pages: make(map[uint32]pageRecord)}
}

func (s *memStore) ReadIndexPage(page uint32) (index.Main, index.Extra, error) {
	rec, ok := s.pages[page]
	if !ok {
		return index.Main{}, index.Extra{}, index.ErrTreeCorrupted
	}
	return rec.main, rec.extra, nil
}

func (s *memStore) WriteIndexPage(page uint32, main index.Main, extra index.Extra) error {
	s.pages[page] = pageRecord{main: main, extra: extra}
	return nil
}

func (s *memStore) AllocatePage() (uint32, error) {
	s.next++
	return s.next, nil
}

func (s *memStore) FreePage(page uint32) error {
	delete(s.pages, page)
	return nil
}

// newTestCache builds a Cache over a fresh one-page (root == leaf)
// tree, the same starting state table.Open's index bootstrap leaves a
// brand-new index in.
func newTestCache(store *memStore, unique bool, maxPageEntrySize int) *index.Cache {
	root, _ := store.AllocatePage()
	store.pages[root] = pageRecord{
		main:  index.Main{PageNumber: root, Prev: index.InvalidPage, Next: index.InvalidPage, Parent: index.InvalidPage, ChildTailPage: index.InvalidPage, Leaf: true},
		extra: index.Extra{Prefix: []byte{}},
	}
	return index.NewCache(store, index.Config{Root: root, Unique: unique, MaxPageEntrySize: maxPageEntrySize})
}

// collectLeafKeys walks every leaf page's next-pointer chain starting
// from the leftmost leaf, returning every entry key in on-disk order
// — the traversal spec.md §8 invariant 4 is phrased against.
func collectLeafKeys(t *testing.T, store *memStore, cache *index.Cache) [][]byte {
	t.Helper()
	page := leftmostLeaf(t, store, cache.Root())
	var keys [][]byte
	for page != index.InvalidPage {
		rec, ok := store.pages[page]
		require.True(t, ok, "page %d missing from store", page)
		for _, e := range rec.extra.Entries {
			keys = append(keys, e.Key)
		}
		page = rec.main.Next
	}
	return keys
}

func leftmostLeaf(t *testing.T, store *memStore, page uint32) uint32 {
	t.Helper()
	for {
		rec, ok := store.pages[page]
		require.True(t, ok)
		if rec.main.Leaf {
			return page
		}
		if len(rec.extra.Entries) > 0 {
			page = rec.extra.Entries[0].ChildPage
			continue
		}
		page = rec.main.ChildTailPage
	}
}

// TestUniqueIndexDuplicateKeyAtScale is spec.md §8 scenario C: a
// unique index over 10 000 distinct values validates cleanly after a
// flush, and inserting any value a second time fails with
// ErrDuplicateKey.
func TestUniqueIndexDuplicateKeyAtScale(t *testing.T) {
	store := newMemStore()
	cache := newTestCache(store, true, 504) // force splits well before 10k entries land on one page

	const n = 10000
	rng := rand.New(rand.NewSource(1))
	seen := make(map[int32]bool, n)
	var values []int32
	for len(values) < n {
		v := rng.Int31()
		if seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}

	for i, v := range values {
		key := index.EncodeKey(column.Value{Kind: column.KindI32, I32: v}, false)
		entry := index.LeafEntry(key, record.RowId{Page: uint32(i/200) + 100, Row: byte(i % 200)})
		require.NoError(t, cache.Insert(entry), "insert %d (value %d)", i, v)
	}

	require.NoError(t, cache.Flush())
	require.NoError(t, cache.Validate())

	keys := collectLeafKeys(t, store, cache)
	require.Len(t, keys, n)
	for i := 1; i < len(keys); i++ {
		require.LessOrEqual(t, string(keys[i-1]), string(keys[i]), "leaf traversal out of order at %d", i)
	}

	dup := index.EncodeKey(column.Value{Kind: column.KindI32, I32: values[42]}, false)
	err := cache.Insert(index.LeafEntry(dup, record.RowId{Page: 999, Row: 0}))
	require.ErrorIs(t, err, index.ErrDuplicateKey)
}

// TestNonUniqueIndexSplitAndValidate exercises the split/flush/validate
// path (spec.md §8 invariant 4) on a non-unique index small enough to
// read the whole tree back and check it by hand.
func TestNonUniqueIndexSplitAndValidate(t *testing.T) {
	store := newMemStore()
	cache := newTestCache(store, false, 120)

	for i := 0; i < 500; i++ {
		key := index.EncodeKey(column.Value{Kind: column.KindI32, I32: int32(i % 50)}, false)
		entry := index.LeafEntry(key, record.RowId{Page: uint32(i), Row: 0})
		require.NoError(t, cache.Insert(entry))
	}

	require.NoError(t, cache.Flush())
	require.NoError(t, cache.Validate())

	keys := collectLeafKeys(t, store, cache)
	require.Len(t, keys, 500)
	for i := 1; i < len(keys); i++ {
		require.LessOrEqual(t, string(keys[i-1]), string(keys[i]))
	}
}
