// Command jetdump opens a Jet database read-only and prints its
// schema, or one table's rows, exercising the read path end-to-end.
// It is not a query layer (spec.md's non-goals exclude that); it only
// dumps what is already on disk.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/jetaccess/jetdb"
	"github.com/jetaccess/jetdb/internal/column"
)

func main() {
	tableName := flag.String("table", "", "dump every row of this table")
	includeSystem := flag.Bool("system", false, "include MSys* system tables in -table lookup and the table listing")
	debug := flag.Bool("debug", false, "spew-dump decoded row structures instead of a plain table")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: jetdump [-table NAME] [-system] [-debug] <database file>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg := jetdb.DefaultConfig()
	db, err := jetdb.Open(path, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "jetdump:", err)
		os.Exit(1)
	}
	defer db.Close()

	if *tableName == "" {
		if err := printSchema(db, *includeSystem); err != nil {
			fmt.Fprintln(os.Stderr, "jetdump:", err)
			os.Exit(1)
		}
		return
	}

	if err := dumpRows(db, *tableName, *includeSystem, *debug); err != nil {
		fmt.Fprintln(os.Stderr, "jetdump:", err)
		os.Exit(1)
	}
}

func printSchema(db *jetdb.Database, includeSystem bool) error {
	tables, err := db.ListTables(includeSystem)
	if err != nil {
		return err
	}
	for _, info := range tables {
		fmt.Printf("%s (id=%d)\n", info.Name, info.ID)
		t, err := db.GetTable(info.Name, includeSystem)
		if err != nil {
			return err
		}
		if t == nil {
			continue
		}
		for _, c := range t.Definition().Columns {
			fmt.Printf("    %-24s %s\n", c.Name, c.Type)
		}
	}
	return nil
}

func dumpRows(db *jetdb.Database, name string, includeSystem, debug bool) error {
	t, err := db.GetTable(name, includeSystem)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("table %q not found", name)
	}
	if !debug {
		names := make([]string, len(t.Definition().Columns))
		for i, c := range t.Definition().Columns {
			names[i] = c.Name
		}
		fmt.Println(strings.Join(names, "\t"))
	}

	return db.ForEachRow(name, func(values []column.Value) error {
		if debug {
			spew.Dump(values)
			return nil
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		fmt.Println(strings.Join(row, "\t"))
		return nil
	})
}

func formatValue(v column.Value) string {
	switch v.Kind {
	case column.KindNull:
		return "<NULL>"
	case column.KindText:
		return v.Text
	case column.KindI32:
		return fmt.Sprintf("%d", v.I32)
	case column.KindI16:
		return fmt.Sprintf("%d", v.I16)
	case column.KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case column.KindF64:
		return fmt.Sprintf("%g", v.F64)
	case column.KindF32:
		return fmt.Sprintf("%g", v.F32)
	case column.KindGUID:
		return v.GUID
	case column.KindMoney:
		return fmt.Sprintf("%d", v.Money)
	default:
		return fmt.Sprintf("%v", v)
	}
}
