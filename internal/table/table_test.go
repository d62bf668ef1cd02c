package table_test

import (
	"os"
	"testing"

	"github.com/jetaccess/jetdb/internal/column"
	"github.com/jetaccess/jetdb/internal/jetformat"
	"github.com/jetaccess/jetdb/internal/pagestore"
	"github.com/jetaccess/jetdb/internal/table"
	"github.com/stretchr/testify/require"
)

func openTestChannel(t *testing.T, pages int) *pagestore.Channel {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "jetdb-table-*.accdb")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	require.NoError(t, f.Truncate(int64(pages*jetformat.Jet4.PageSize)))
	ch, err := pagestore.Open(f, pagestore.Options{PageSize: jetformat.Jet4.PageSize})
	require.NoError(t, err)
	return ch
}

func testDefinition() *table.Definition {
	return &table.Definition{
		TDefPage: 1,
		Columns: []column.Column{
			{Name: "id", Index: 0, Number: 1, Type: column.TypeLong, Length: 4, Flags: column.FlagFixedLength | column.FlagAutoNumber, FixedDataOffset: 0},
			{Name: "name", Index: 1, Number: 2, Type: column.TypeText, Length: 200, VariableTableIndex: 0},
			{Name: "amount", Index: 2, Number: 3, Type: column.TypeLong, Length: 4, Flags: column.FlagFixedLength, FixedDataOffset: 4},
		},
	}
}

func openTestTable(t *testing.T) *table.Table {
	t.Helper()
	ch := openTestChannel(t, 8)
	def := testDefinition()
	buf := ch.CreatePageBuffer()
	def.Encode(buf, jetformat.Jet4)
	require.NoError(t, ch.WritePage(buf, def.TDefPage))

	tbl, err := table.Open(ch, jetformat.Jet4, def.TDefPage, nil)
	require.NoError(t, err)
	return tbl
}

func TestAddRowGetRowRoundTrip(t *testing.T) {
	tbl := openTestTable(t)

	id, err := tbl.AddRow([]table.Write{
		table.Auto(),
		table.Val(column.Value{Kind: column.KindText, Text: "hello"}),
		table.Val(column.Value{Kind: column.KindI32, I32: 42}),
	})
	require.NoError(t, err)

	values, err := tbl.GetRow(id)
	require.NoError(t, err)
	require.Equal(t, int32(1), values[0].I32)
	require.Equal(t, "hello", values[1].Text)
	require.Equal(t, int32(42), values[2].I32)
}

func TestUpdateRowInPlace(t *testing.T) {
	tbl := openTestTable(t)

	id, err := tbl.AddRow([]table.Write{
		table.Auto(),
		table.Val(column.Value{Kind: column.KindText, Text: "hello"}),
		table.Val(column.Value{Kind: column.KindI32, I32: 42}),
	})
	require.NoError(t, err)

	err = tbl.UpdateRow(id, []table.Write{
		table.Keep(),
		table.Val(column.Value{Kind: column.KindText, Text: "hello"}),
		table.Val(column.Value{Kind: column.KindI32, I32: 99}),
	})
	require.NoError(t, err)

	values, err := tbl.GetRow(id)
	require.NoError(t, err)
	require.Equal(t, int32(1), values[0].I32)
	require.Equal(t, int32(99), values[2].I32)
}

func TestUpdateRowOverflow(t *testing.T) {
	tbl := openTestTable(t)

	id, err := tbl.AddRow([]table.Write{
		table.Auto(),
		table.Val(column.Value{Kind: column.KindText, Text: "a"}),
		table.Val(column.Value{Kind: column.KindI32, I32: 1}),
	})
	require.NoError(t, err)

	err = tbl.UpdateRow(id, []table.Write{
		table.Keep(),
		table.Val(column.Value{Kind: column.KindText, Text: "a much longer replacement string value"}),
		table.Val(column.Value{Kind: column.KindI32, I32: 2}),
	})
	require.NoError(t, err)

	values, err := tbl.GetRow(id)
	require.NoError(t, err)
	require.Equal(t, "a much longer replacement string value", values[1].Text)
	require.Equal(t, int32(2), values[2].I32)
}

func TestDeleteRowThenGetReturnsDeleted(t *testing.T) {
	tbl := openTestTable(t)

	id, err := tbl.AddRow([]table.Write{
		table.Auto(),
		table.Val(column.Value{Kind: column.KindText, Text: "x"}),
		table.Val(column.Value{Kind: column.KindI32, I32: 7}),
	})
	require.NoError(t, err)

	require.NoError(t, tbl.DeleteRow(id))

	_, err = tbl.GetRow(id)
	require.ErrorIs(t, err, table.ErrRowDeleted)
}

func TestAutoNumberMonotonic(t *testing.T) {
	tbl := openTestTable(t)

	var last int32
	for i := 0; i < 5; i++ {
		id, err := tbl.AddRow([]table.Write{
			table.Auto(),
			table.Val(column.Value{Kind: column.KindText, Text: "row"}),
			table.Val(column.Value{Kind: column.KindI32, I32: int32(i)}),
		})
		require.NoError(t, err)
		values, err := tbl.GetRow(id)
		require.NoError(t, err)
		require.Greater(t, values[0].I32, last)
		last = values[0].I32
	}
}
