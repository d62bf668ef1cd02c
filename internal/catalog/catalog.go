// Package catalog implements the system-catalog bootstrap spec.md
// §4.8 describes: reading MSysObjects to resolve table names to their
// table-definition pages, and loading the on-demand system tables
// (MSysACEs, MSysRelationships, MSysQueries, MSysComplexColumns) a
// caller asks for by name.
package catalog

import (
	"github.com/jetaccess/jetdb/internal/column"
	"github.com/jetaccess/jetdb/internal/jetformat"
	"github.com/jetaccess/jetdb/internal/pagestore"
	"github.com/jetaccess/jetdb/internal/record"
	"github.com/jetaccess/jetdb/internal/table"
	"github.com/pingcap/errors"
	"github.com/sirupsen/logrus"
)

// SystemObjectsPage is the table-definition page MSysObjects always
// occupies (spec.md §4.8: "MSysObjects on page 2").
const SystemObjectsPage uint32 = 2

// ObjectType is MSysObjects.Type: what kind of named object a row
// describes. Values follow the documented Jet object-type codes.
type ObjectType int16

const (
	TypeTable       ObjectType = 1
	TypeLinkedTable ObjectType = 6
	TypeQuery       ObjectType = 5
)

// FlagSystem marks a row as belonging to the engine itself (the
// MSys* tables, and their own catalog entries) rather than to user
// data, per spec.md §4.8's "row's flags mark it a system object".
// Written as -1<<31 rather than 0x80000000 since the latter overflows
// a signed int32 constant; the bit pattern is identical.
const FlagSystem int32 = -1 << 31

// ObjectInfo is one decoded MSysObjects row.
type ObjectInfo struct {
	ID       int32 // for TypeTable rows, also the table's table-definition page number
	Name     string
	Type     ObjectType
	Flags    int32
	ParentID int32

	// LinkedDBName/LinkedTableName are populated only for
	// TypeLinkedTable rows, from the optional Database/ForeignName
	// columns real Jet stores for a linked table's target.
	LinkedDBName    string
	LinkedTableName string
}

// IsSystem reports whether this object should be hidden from a
// caller asking for user tables only.
func (o ObjectInfo) IsSystem() bool {
	return o.Flags&FlagSystem != 0
}

// Catalog wraps the MSysObjects table and caches any on-demand
// system tables a caller has asked for.
type Catalog struct {
	channel *pagestore.Channel
	format  jetformat.JetFormat
	objects *table.Table

	systemTables map[string]*table.Table

	log *logrus.Entry
}

// NewSystemObjectsDefinition returns the column layout this engine
// uses for MSysObjects: enough fields (Id, Name, Type, Flags,
// ParentId, plus the optional Database/ForeignName pair linked tables
// use) to drive ListTables/FindByName/OpenTable, without the rest of
// a real MSysObjects row's property-list bookkeeping. Database.Create
// uses this to bootstrap a new file's catalog page.
func NewSystemObjectsDefinition() *table.Definition {
	return &table.Definition{
		Name:     "MSysObjects",
		TDefPage: SystemObjectsPage,
		Columns: []column.Column{
			{Name: "Id", Index: 0, Number: 1, Type: column.TypeLong, Length: 4, Flags: column.FlagFixedLength, FixedDataOffset: 0},
			{Name: "Name", Index: 1, Number: 2, Type: column.TypeText, Length: 128, VariableTableIndex: 0},
			{Name: "Type", Index: 2, Number: 3, Type: column.TypeInt, Length: 2, Flags: column.FlagFixedLength, FixedDataOffset: 4},
			{Name: "Flags", Index: 3, Number: 4, Type: column.TypeLong, Length: 4, Flags: column.FlagFixedLength, FixedDataOffset: 6},
			{Name: "ParentId", Index: 4, Number: 5, Type: column.TypeLong, Length: 4, Flags: column.FlagFixedLength, FixedDataOffset: 10},
			{Name: "Database", Index: 5, Number: 6, Type: column.TypeText, Length: 260, VariableTableIndex: 1},
			{Name: "ForeignName", Index: 6, Number: 7, Type: column.TypeText, Length: 128, VariableTableIndex: 2},
		},
	}
}

// Open reads MSysObjects from SystemObjectsPage and builds a Catalog
// over it.
func Open(ch *pagestore.Channel, format jetformat.JetFormat, logger *logrus.Logger) (*Catalog, error) {
	objects, err := table.Open(ch, format, SystemObjectsPage, logger)
	if err != nil {
		return nil, errors.Trace(err)
	}
	objects.Definition().Name = "MSysObjects"
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Catalog{
		channel:      ch,
		format:       format,
		objects:      objects,
		systemTables: make(map[string]*table.Table),
		log:          logger.WithField("component", "catalog"),
	}, nil
}

// columnValue looks up a named column's value in a decoded row,
// reporting false if the schema this database was built
// with never defined it (real databases vary in which optional
// MSysObjects columns, like Database/ForeignName, they carry).
func columnValue(def *table.Definition, values []column.Value, name string) (column.Value, bool) {
	c, ok := def.Column(name)
	if !ok || c.Index >= len(values) {
		return column.Value{}, false
	}
	return values[c.Index], true
}

func decodeObjectRow(def *table.Definition, values []column.Value) ObjectInfo {
	var info ObjectInfo
	if v, ok := columnValue(def, values, "Id"); ok && v.Kind != column.KindNull {
		info.ID = v.I32
	}
	if v, ok := columnValue(def, values, "Name"); ok && v.Kind != column.KindNull {
		info.Name = v.Text
	}
	if v, ok := columnValue(def, values, "Type"); ok && v.Kind != column.KindNull {
		info.Type = ObjectType(v.I16)
	}
	if v, ok := columnValue(def, values, "Flags"); ok && v.Kind != column.KindNull {
		info.Flags = v.I32
	}
	if v, ok := columnValue(def, values, "ParentId"); ok && v.Kind != column.KindNull {
		info.ParentID = v.I32
	}
	if v, ok := columnValue(def, values, "Database"); ok && v.Kind != column.KindNull {
		info.LinkedDBName = v.Text
	}
	if v, ok := columnValue(def, values, "ForeignName"); ok && v.Kind != column.KindNull {
		info.LinkedTableName = v.Text
	}
	return info
}

// ListObjects decodes every MSysObjects row.
func (c *Catalog) ListObjects() ([]ObjectInfo, error) {
	def := c.objects.Definition()
	var out []ObjectInfo
	err := c.objects.Scan(func(_ record.RowId, values []column.Value, rowErr error) (bool, error) {
		if rowErr != nil {
			return false, rowErr
		}
		out = append(out, decodeObjectRow(def, values))
		return true, nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return out, nil
}

// ListTables returns every TypeTable and TypeLinkedTable object, excluding system objects
// unless includeSystem is set, per spec.md §4.8's get_table behavior.
func (c *Catalog) ListTables(includeSystem bool) ([]ObjectInfo, error) {
	all, err := c.ListObjects()
	if err != nil {
		return nil, errors.Trace(err)
	}
	var out []ObjectInfo
	for _, o := range all {
		if o.Type != TypeTable && o.Type != TypeLinkedTable {
			continue
		}
		if o.IsSystem() && !includeSystem {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// FindByName looks up one object by name. Real Jet keeps an index on
// (parent_id, name) for this; this engine does not parse MSysObjects's
// own index definitions (spec.md §4.8's "no SPEC_FULL.md operation
// inspects those flags directly" applies equally to the catalog's own
// indexes), so every lookup takes the documented fallback path: a
// full scan.
func (c *Catalog) FindByName(name string) (ObjectInfo, bool, error) {
	def := c.objects.Definition()
	var found ObjectInfo
	var ok bool
	err := c.objects.Scan(func(_ record.RowId, values []column.Value, rowErr error) (bool, error) {
		if rowErr != nil {
			return false, rowErr
		}
		info := decodeObjectRow(def, values)
		if info.Name == name {
			found, ok = info, true
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return ObjectInfo{}, false, errors.Trace(err)
	}
	return found, ok, nil
}

// OpenTable opens the named user or system table's data via its
// MSysObjects row. Callers resolving a TypeLinkedTable row should
// inspect ObjectInfo.LinkedDBName/LinkedTableName and dispatch to a
// LinkResolver themselves (catalog has no dependency on that
// collaborator, which lives in the jetdb facade).
func (c *Catalog) OpenTable(name string, logger *logrus.Logger) (*table.Table, ObjectInfo, error) {
	info, ok, err := c.FindByName(name)
	if err != nil {
		return nil, ObjectInfo{}, errors.Trace(err)
	}
	if !ok {
		return nil, ObjectInfo{}, ErrObjectNotFound
	}
	if info.Type != TypeTable {
		return nil, info, ErrNotATable
	}
	t, err := table.Open(c.channel, c.format, uint32(info.ID), logger)
	if err != nil {
		return nil, info, errors.Trace(err)
	}
	t.Definition().Name = info.Name
	return t, info, nil
}

// LoadSystemTable opens one of the on-demand system tables (MSysACEs,
// MSysRelationships, MSysQueries, MSysComplexColumns), caching the
// result so a repeated call doesn't re-walk MSysObjects.
func (c *Catalog) LoadSystemTable(name string) (*table.Table, error) {
	if t, ok := c.systemTables[name]; ok {
		return t, nil
	}
	t, _, err := c.OpenTable(name, nil)
	if err != nil {
		return nil, errors.Trace(err)
	}
	c.systemTables[name] = t
	return t, nil
}
