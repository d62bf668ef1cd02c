package index_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jetaccess/jetdb/internal/column"
	"github.com/jetaccess/jetdb/internal/index"
)

func TestEncodeKeyOrdersIntegersNumerically(t *testing.T) {
	vals := []int32{-100, -1, 0, 1, 100}
	var keys [][]byte
	for _, v := range vals {
		keys = append(keys, index.EncodeKey(column.Value{Kind: column.KindI32, I32: v}, false))
	}
	for i := 1; i < len(keys); i++ {
		require.True(t, bytes.Compare(keys[i-1], keys[i]) < 0, "key for %d should sort before key for %d", vals[i-1], vals[i])
	}
}

func TestEncodeKeyDescendingReversesOrder(t *testing.T) {
	lo := index.EncodeKey(column.Value{Kind: column.KindI32, I32: 1}, true)
	hi := index.EncodeKey(column.Value{Kind: column.KindI32, I32: 100}, true)
	require.True(t, bytes.Compare(hi, lo) < 0)
}

func TestEncodeKeyNullSortsBeforeEverything(t *testing.T) {
	null := index.EncodeKey(column.Value{Kind: column.KindNull}, false)
	text := index.EncodeKey(column.Value{Kind: column.KindText, Text: ""}, false)
	require.True(t, bytes.Compare(null, text) < 0)
}

func TestEncodeKeyTextCaseInsensitiveWithTiebreak(t *testing.T) {
	lower := index.EncodeKey(column.Value{Kind: column.KindText, Text: "a"}, false)
	upper := index.EncodeKey(column.Value{Kind: column.KindText, Text: "A"}, false)
	other := index.EncodeKey(column.Value{Kind: column.KindText, Text: "b"}, false)

	require.True(t, bytes.Compare(lower, upper) < 0, "'a' should sort before 'A' as a same-fold tiebreak")
	require.True(t, bytes.Compare(upper, other) < 0, "'A'/'a' should both sort before 'b'")
}

func TestEncodeKeyFloatOrdersAcrossSign(t *testing.T) {
	vals := []float64{-100.5, -0.1, 0, 0.1, 100.5}
	var keys [][]byte
	for _, v := range vals {
		keys = append(keys, index.EncodeKey(column.Value{Kind: column.KindF64, F64: v}, false))
	}
	for i := 1; i < len(keys); i++ {
		require.True(t, bytes.Compare(keys[i-1], keys[i]) < 0, "key for %v should sort before key for %v", vals[i-1], vals[i])
	}
}
