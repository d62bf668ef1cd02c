package record_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jetaccess/jetdb/internal/column"
	"github.com/jetaccess/jetdb/internal/jetformat"
	"github.com/jetaccess/jetdb/internal/record"
)

func threeTextColumns() []column.Column {
	return []column.Column{
		{Name: "Name", Index: 0, Type: column.TypeText, Length: 128, VariableTableIndex: 0},
		{Name: "Database", Index: 1, Type: column.TypeText, Length: 260, VariableTableIndex: 1},
		{Name: "ForeignName", Index: 2, Type: column.TypeText, Length: 128, VariableTableIndex: 2},
	}
}

func baseOptions(header jetformat.RowHeaderKind, maxVarColumnCount int) record.EncodeOptions {
	return record.EncodeOptions{
		Header:             header,
		MaxColumnCount:     3,
		MaxVarColumnCount:  maxVarColumnCount,
		MinRowSize:         0,
		RemainingRowLength: 4096,
		MaxInlineLongValue: 4040,
		MaxLValRowSize:     4052,
	}
}

// TestEncodeDecodeShortLayoutMultipleVarColumns exercises review comment
// #1/#2's fix: with more than one variable-length column, decode must
// recover each column's own bytes, not the whole variable-data zone.
func TestEncodeDecodeShortLayoutMultipleVarColumns(t *testing.T) {
	cols := threeTextColumns()
	values := []column.Value{
		{Kind: column.KindText, Text: "RemoteOrders"},
		{Kind: column.KindText, Text: "orders.accdb"},
		{Kind: column.KindText, Text: "Orders"},
	}

	buf, err := record.Encode(cols, values, baseOptions(jetformat.RowHeaderShortOffsets, 3))
	require.NoError(t, err)

	dec := record.NewDecoder(buf, jetformat.RowHeaderShortOffsets)
	for i, c := range cols {
		got, err := dec.DecodeColumn(c)
		require.NoError(t, err)
		require.Equal(t, values[i].Text, got.Text, "column %s", c.Name)
	}
}

func TestEncodeDecodeShortLayoutWithNullVarColumn(t *testing.T) {
	cols := threeTextColumns()
	values := []column.Value{
		{Kind: column.KindText, Text: "RemoteOrders"},
		column.Null,
		column.Null,
	}

	buf, err := record.Encode(cols, values, baseOptions(jetformat.RowHeaderShortOffsets, 3))
	require.NoError(t, err)

	dec := record.NewDecoder(buf, jetformat.RowHeaderShortOffsets)
	got, err := dec.DecodeColumn(cols[0])
	require.NoError(t, err)
	require.Equal(t, "RemoteOrders", got.Text)

	got, err = dec.DecodeColumn(cols[1])
	require.NoError(t, err)
	require.True(t, got.IsNull())

	got, err = dec.DecodeColumn(cols[2])
	require.NoError(t, err)
	require.True(t, got.IsNull())
}

// TestEncodeDecodeJumpTableRoundTrip exercises the Jet12/Jet14 jump-table
// row layout Encode previously never produced (review comment #1):
// t.format.RowHeader is RowHeaderJumpTable for those dialects, and
// decode.go's buildJumpTableOffsets must read back exactly what Encode
// wrote.
func TestEncodeDecodeJumpTableRoundTrip(t *testing.T) {
	cols := threeTextColumns()
	values := []column.Value{
		{Kind: column.KindText, Text: "RemoteOrders"},
		{Kind: column.KindText, Text: "orders.accdb"},
		{Kind: column.KindText, Text: "Orders"},
	}

	buf, err := record.Encode(cols, values, baseOptions(jetformat.RowHeaderJumpTable, 3))
	require.NoError(t, err)

	dec := record.NewDecoder(buf, jetformat.RowHeaderJumpTable)
	for i, c := range cols {
		got, err := dec.DecodeColumn(c)
		require.NoError(t, err)
		require.Equal(t, values[i].Text, got.Text, "column %s", c.Name)
	}
}

func TestEncodeDecodeJumpTableSingleVarColumn(t *testing.T) {
	cols := []column.Column{
		{Name: "name", Index: 0, Type: column.TypeText, Length: 100, VariableTableIndex: 0},
	}
	values := []column.Value{{Kind: column.KindText, Text: "Ada Lovelace"}}

	opt := record.EncodeOptions{
		Header:             jetformat.RowHeaderJumpTable,
		MaxColumnCount:     1,
		MaxVarColumnCount:  1,
		RemainingRowLength: 4096,
		MaxInlineLongValue: 4040,
		MaxLValRowSize:     4052,
	}
	buf, err := record.Encode(cols, values, opt)
	require.NoError(t, err)

	dec := record.NewDecoder(buf, jetformat.RowHeaderJumpTable)
	got, err := dec.DecodeColumn(cols[0])
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", got.Text)
}
