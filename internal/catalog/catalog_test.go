package catalog_test

import (
	"os"
	"testing"

	"github.com/jetaccess/jetdb/internal/catalog"
	"github.com/jetaccess/jetdb/internal/column"
	"github.com/jetaccess/jetdb/internal/jetformat"
	"github.com/jetaccess/jetdb/internal/pagestore"
	"github.com/jetaccess/jetdb/internal/table"
	"github.com/stretchr/testify/require"
)

func userTableDefinition(tdefPage uint32) *table.Definition {
	return &table.Definition{
		TDefPage: tdefPage,
		Columns: []column.Column{
			{Name: "id", Index: 0, Number: 1, Type: column.TypeLong, Length: 4, Flags: column.FlagFixedLength | column.FlagAutoNumber, FixedDataOffset: 0},
		},
	}
}

func openCatalogFixture(t *testing.T) (*pagestore.Channel, *catalog.Catalog) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "jetdb-catalog-*.accdb")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	require.NoError(t, f.Truncate(int64(8*jetformat.Jet4.PageSize)))
	ch, err := pagestore.Open(f, pagestore.Options{PageSize: jetformat.Jet4.PageSize})
	require.NoError(t, err)

	objDef := catalog.NewSystemObjectsDefinition()
	buf := ch.CreatePageBuffer()
	objDef.Encode(buf, jetformat.Jet4)
	require.NoError(t, ch.WritePage(buf, objDef.TDefPage))

	const customersPage = 3
	custDef := userTableDefinition(customersPage)
	buf = ch.CreatePageBuffer()
	custDef.Encode(buf, jetformat.Jet4)
	require.NoError(t, ch.WritePage(buf, customersPage))

	objects, err := table.Open(ch, jetformat.Jet4, objDef.TDefPage, nil)
	require.NoError(t, err)

	_, err = objects.AddRow([]table.Write{
		table.Val(column.Value{Kind: column.KindI32, I32: 1}),
		table.Val(column.Value{Kind: column.KindText, Text: "MSysObjects"}),
		table.Val(column.Value{Kind: column.KindI16, I16: int16(catalog.TypeTable)}),
		table.Val(column.Value{Kind: column.KindI32, I32: catalog.FlagSystem}),
		table.Val(column.Value{Kind: column.KindI32, I32: -1}),
		table.Val(column.Null),
		table.Val(column.Null),
	})
	require.NoError(t, err)

	_, err = objects.AddRow([]table.Write{
		table.Val(column.Value{Kind: column.KindI32, I32: customersPage}),
		table.Val(column.Value{Kind: column.KindText, Text: "Customers"}),
		table.Val(column.Value{Kind: column.KindI16, I16: int16(catalog.TypeTable)}),
		table.Val(column.Value{Kind: column.KindI32, I32: 0}),
		table.Val(column.Value{Kind: column.KindI32, I32: -1}),
		table.Val(column.Null),
		table.Val(column.Null),
	})
	require.NoError(t, err)

	_, err = objects.AddRow([]table.Write{
		table.Val(column.Value{Kind: column.KindI32, I32: 99}),
		table.Val(column.Value{Kind: column.KindText, Text: "CustomerTotals"}),
		table.Val(column.Value{Kind: column.KindI16, I16: int16(catalog.TypeQuery)}),
		table.Val(column.Value{Kind: column.KindI32, I32: 0}),
		table.Val(column.Value{Kind: column.KindI32, I32: -1}),
		table.Val(column.Null),
		table.Val(column.Null),
	})
	require.NoError(t, err)

	cat, err := catalog.Open(ch, jetformat.Jet4, nil)
	require.NoError(t, err)
	return ch, cat
}

func TestListTablesExcludesSystemByDefault(t *testing.T) {
	_, cat := openCatalogFixture(t)

	tables, err := cat.ListTables(false)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	require.Equal(t, "Customers", tables[0].Name)
}

func TestListTablesIncludesSystemWhenAsked(t *testing.T) {
	_, cat := openCatalogFixture(t)

	tables, err := cat.ListTables(true)
	require.NoError(t, err)
	require.Len(t, tables, 2)
}

func TestFindByNameFallsBackToFullScan(t *testing.T) {
	_, cat := openCatalogFixture(t)

	info, ok, err := cat.FindByName("Customers")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(3), info.ID)

	_, ok, err = cat.FindByName("NoSuchTable")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOpenTableOpensByName(t *testing.T) {
	_, cat := openCatalogFixture(t)

	tbl, info, err := cat.OpenTable("Customers", nil)
	require.NoError(t, err)
	require.Equal(t, "Customers", info.Name)
	require.Equal(t, "Customers", tbl.Definition().Name)
}

func TestOpenTableRejectsNonTable(t *testing.T) {
	_, cat := openCatalogFixture(t)

	_, _, err := cat.OpenTable("CustomerTotals", nil)
	require.ErrorIs(t, err, catalog.ErrNotATable)
}
