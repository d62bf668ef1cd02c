package jetdb_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jetaccess/jetdb"
	"github.com/jetaccess/jetdb/internal/catalog"
	"github.com/jetaccess/jetdb/internal/column"
	"github.com/jetaccess/jetdb/internal/jetformat"
	"github.com/jetaccess/jetdb/internal/pagestore"
	"github.com/jetaccess/jetdb/internal/table"
)

func customersDefinition(tdefPage uint32) *table.Definition {
	return &table.Definition{
		Name:     "Customers",
		TDefPage: tdefPage,
		Columns: []column.Column{
			{Name: "id", Index: 0, Number: 1, Type: column.TypeLong, Length: 4, Flags: column.FlagFixedLength | column.FlagAutoNumber, FixedDataOffset: 0},
			{Name: "name", Index: 1, Number: 2, Type: column.TypeText, Length: 100, VariableTableIndex: 0},
		},
	}
}

// buildFixtureDatabase writes a minimal but valid Jet4 file: a version
// header, an MSysObjects page seeded with MSysObjects's own row and one
// "Customers" table row, and the Customers table-definition page.
func buildFixtureDatabase(t *testing.T, path string, customersPage uint32) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Truncate(int64(8*jetformat.Jet4.PageSize)))

	ch, err := pagestore.Open(f, pagestore.Options{PageSize: jetformat.Jet4.PageSize})
	require.NoError(t, err)

	header := ch.CreatePageBuffer()
	header[0] = 0x00
	header[1] = 0x01
	header[20] = 0x01 // Jet4
	require.NoError(t, ch.WritePage(header, 0))

	objDef := catalog.NewSystemObjectsDefinition()
	buf := ch.CreatePageBuffer()
	objDef.Encode(buf, jetformat.Jet4)
	require.NoError(t, ch.WritePage(buf, objDef.TDefPage))

	custDef := customersDefinition(customersPage)
	buf = ch.CreatePageBuffer()
	custDef.Encode(buf, jetformat.Jet4)
	require.NoError(t, ch.WritePage(buf, customersPage))

	objects, err := table.Open(ch, jetformat.Jet4, objDef.TDefPage, nil)
	require.NoError(t, err)

	_, err = objects.AddRow([]table.Write{
		table.Val(column.Value{Kind: column.KindI32, I32: int32(catalog.SystemObjectsPage)}),
		table.Val(column.Value{Kind: column.KindText, Text: "MSysObjects"}),
		table.Val(column.Value{Kind: column.KindI16, I16: int16(catalog.TypeTable)}),
		table.Val(column.Value{Kind: column.KindI32, I32: catalog.FlagSystem}),
		table.Val(column.Value{Kind: column.KindI32, I32: -1}),
		table.Val(column.Null),
		table.Val(column.Null),
	})
	require.NoError(t, err)

	_, err = objects.AddRow([]table.Write{
		table.Val(column.Value{Kind: column.KindI32, I32: int32(customersPage)}),
		table.Val(column.Value{Kind: column.KindText, Text: "Customers"}),
		table.Val(column.Value{Kind: column.KindI16, I16: int16(catalog.TypeTable)}),
		table.Val(column.Value{Kind: column.KindI32, I32: 0}),
		table.Val(column.Value{Kind: column.KindI32, I32: -1}),
		table.Val(column.Null),
		table.Val(column.Null),
	})
	require.NoError(t, err)

	tbl, err := table.Open(ch, jetformat.Jet4, customersPage, nil)
	require.NoError(t, err)
	_, err = tbl.AddRow([]table.Write{
		table.Auto(),
		table.Val(column.Value{Kind: column.KindText, Text: "Ada Lovelace"}),
	})
	require.NoError(t, err)
	_, err = tbl.AddRow([]table.Write{
		table.Auto(),
		table.Val(column.Value{Kind: column.KindText, Text: "Alan Turing"}),
	})
	require.NoError(t, err)
}

func openFixture(t *testing.T) *jetdb.Database {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.accdb")
	buildFixtureDatabase(t, path, 3)

	db, err := jetdb.Open(path, jetdb.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenDetectsJet4(t *testing.T) {
	db := openFixture(t)
	require.Equal(t, jetformat.VersionJet4, db.Format().Version)
}

func TestListTablesExcludesSystemByDefault(t *testing.T) {
	db := openFixture(t)

	tables, err := db.ListTables(false)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	require.Equal(t, "Customers", tables[0].Name)
}

func TestGetTableAndForEachRow(t *testing.T) {
	db := openFixture(t)

	names := map[string]bool{}
	err := db.ForEachRow("Customers", func(values []column.Value) error {
		names[values[1].Text] = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, names["Ada Lovelace"])
	require.True(t, names["Alan Turing"])
}

func TestGetTableMissingReturnsNil(t *testing.T) {
	db := openFixture(t)

	tbl, err := db.GetTable("NoSuchTable", false)
	require.NoError(t, err)
	require.Nil(t, tbl)
}

func TestGetTableSystemHiddenUnlessRequested(t *testing.T) {
	db := openFixture(t)

	tbl, err := db.GetTable("MSysObjects", false)
	require.NoError(t, err)
	require.Nil(t, tbl)

	tbl, err = db.GetTable("MSysObjects", true)
	require.NoError(t, err)
	require.NotNil(t, tbl)
}

func TestForEachRowWithSkipErrorHandlerConfigured(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.accdb")
	buildFixtureDatabase(t, path, 3)

	cfg := jetdb.DefaultConfig()
	cfg.ErrorHandler = jetdb.SkipErrorHandler{}
	db, err := jetdb.Open(path, cfg)
	require.NoError(t, err)
	defer db.Close()

	count := 0
	err = db.ForEachRow("Customers", func(values []column.Value) error {
		count++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestGetTableLinkedWithoutResolverFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.accdb")
	buildFixtureDatabase(t, path, 3)

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	ch, err := pagestore.Open(f, pagestore.Options{PageSize: jetformat.Jet4.PageSize})
	require.NoError(t, err)
	objects, err := table.Open(ch, jetformat.Jet4, catalog.SystemObjectsPage, nil)
	require.NoError(t, err)
	_, err = objects.AddRow([]table.Write{
		table.Val(column.Value{Kind: column.KindI32, I32: 42}),
		table.Val(column.Value{Kind: column.KindText, Text: "RemoteOrders"}),
		table.Val(column.Value{Kind: column.KindI16, I16: int16(catalog.TypeLinkedTable)}),
		table.Val(column.Value{Kind: column.KindI32, I32: 0}),
		table.Val(column.Value{Kind: column.KindI32, I32: -1}),
		table.Val(column.Value{Kind: column.KindText, Text: "orders.accdb"}),
		table.Val(column.Value{Kind: column.KindText, Text: "Orders"}),
	})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	db, err := jetdb.Open(path, jetdb.DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	_, err = db.GetTable("RemoteOrders", false)
	require.ErrorIs(t, err, jetdb.ErrLinkResolverRequired)
}

func TestCreateBuildsOpenableDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.accdb")

	db, err := jetdb.Create(path, jetformat.VersionJet4, jetdb.DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	tables, err := db.ListTables(true)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	require.Equal(t, "MSysObjects", tables[0].Name)
}
