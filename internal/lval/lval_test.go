package lval_test

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jetaccess/jetdb/internal/lval"
)

// memPages is an in-memory lval.PageWriter fake standing in for the
// table package's data-page store.
type memPages struct {
	rows map[[2]uint32][]byte // [page, row] -> raw row bytes
	next uint32
}

func newMemPages() *memPages {
	return &memPages{rows: make(map[[2]uint32][]byte), next: 100}
}

func (p *memPages) ReadRow(page uint32, row byte) ([]byte, error) {
	return p.rows[[2]uint32{page, uint32(row)}], nil
}

func (p *memPages) AllocateDataPage() (uint32, error) {
	p.next++
	return p.next, nil
}

func (p *memPages) WriteRow(page uint32, row byte, data []byte) error {
	p.rows[[2]uint32{page, uint32(row)}] = data
	return nil
}

// TestWriteReadRoundTrip is spec.md §8 scenario B: a small value
// stores inline, a mid-sized one spills to a single other-page row,
// and a large one chains across other-pages rows — all three read
// back byte-identical to the original.
func TestWriteReadRoundTrip(t *testing.T) {
	policy := lval.WritePolicy{
		RemainingRowLength: 4060,
		MaxInline:          64,
		MaxLValRowSize:     4052,
	}

	cases := []struct {
		name string
		size int
		kind lval.Kind
	}{
		{"inline", 10, lval.KindInline},
		{"otherPage", 4000, lval.KindOtherPage},
		{"otherPages", 100000, lval.KindOtherPages},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			pages := newMemPages()
			data := randomBytes(c.size, int64(c.size))

			def, err := lval.Write(data, policy, pages)
			require.NoError(t, err)
			require.Equal(t, c.kind, lval.DecodeDef(def).Kind)

			got, err := lval.Read(def, pages)
			require.NoError(t, err)
			require.True(t, bytes.Equal(data, got), "%s: round-tripped bytes differ", c.name)
		})
	}
}

func TestReadNegativeLengthIsNull(t *testing.T) {
	def := lval.EncodeDef(lval.Def{Length: -1, Kind: lval.KindInline})
	got, err := lval.Read(def, newMemPages())
	require.NoError(t, err)
	require.Nil(t, got)
}

func randomBytes(n int, seed int64) []byte {
	rng := rand.New(rand.NewSource(seed))
	b := make([]byte, n)
	rng.Read(b)
	return b
}
