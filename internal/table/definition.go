package table

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/jetaccess/jetdb/internal/column"
	"github.com/jetaccess/jetdb/internal/jetformat"
)

// PageTypeTableDef marks a table-definition page (spec.md §3).
const PageTypeTableDef = byte(0x02)

// IndexDef is one entry of a table's index-definition block: enough
// to drive index.Cache lookups and EncodeKey, without modeling the
// full column-flag/collation detail a real Jet index def carries.
type IndexDef struct {
	Name       string
	RootPage   uint32
	Unique     bool
	Columns    []IndexColumn
}

// IndexColumn names one column participating in an index and its sort
// direction.
type IndexColumn struct {
	ColumnIndex int
	Descending  bool
}

// Definition is a parsed table-definition page: the column list, row
// count and auto-number state. Indexes, OwnedPagesMap and
// FreeSpacePagesMap are neither read from nor written to the page;
// Table rebuilds its owned-page set by scanning the file instead.
type Definition struct {
	Name  string
	TDefPage uint32

	NumRows         int32
	LastLongAutoNum int32

	Columns []column.Column
	Indexes []IndexDef

	OwnedPagesMap     *usageMapRef
	FreeSpacePagesMap *usageMapRef
}

// usageMapRef is a lazily-resolved reference to a usage-map page: the
// table-definition page stores only a single type+start-page+page-ptr
// triple (spec.md §3's "Usage map" attribute); the actual bitmap lives
// on a separate page the caller reads via Database/Channel.
type usageMapRef struct {
	MapPage uint32
}

// ParseDefinition reads a table-definition page's fixed header,
// column headers, and names, per spec.md §3/§6.2. The index-definition
// block is skipped, not parsed, so the returned Definition has no
// Indexes.
func ParseDefinition(pageNum uint32, buf []byte, format jetformat.JetFormat) (*Definition, error) {
	if len(buf) < 4 || buf[0] != PageTypeTableDef {
		return nil, ErrNotTDefPage
	}
	d := &Definition{TDefPage: pageNum}
	d.NumRows = int32(binary.LittleEndian.Uint32(buf[format.OffsetNumRows:]))
	d.LastLongAutoNum = int32(binary.LittleEndian.Uint32(buf[format.OffsetNextAutoNumber:]))

	numCols := int(binary.LittleEndian.Uint16(buf[format.OffsetNumCols:]))
	numIndexes := int(binary.LittleEndian.Uint32(buf[format.OffsetNumIndexes:]))

	pos := format.OffsetIndexDefBlock + numIndexes*format.SizeIndexDefinition

	cols := make([]column.Column, 0, numCols)
	colHeaderStart := pos
	for i := 0; i < numCols; i++ {
		off := colHeaderStart + i*format.SizeColumnHeader
		if off+format.SizeColumnHeader > len(buf) {
			break
		}
		h := buf[off : off+format.SizeColumnHeader]
		c := column.Column{
			Type:               column.DataType(h[format.OffsetColumnType]),
			Number:             int(h[format.OffsetColumnNumber]),
			Index:              i,
			VariableTableIndex: int(binary.LittleEndian.Uint16(h[format.OffsetColumnVariableTableIndex:])),
			FixedDataOffset:    int(binary.LittleEndian.Uint16(h[format.OffsetColumnFixedDataOffset:])),
			Scale:              h[format.OffsetColumnScale],
			Precision:          h[format.OffsetColumnPrecision],
			Flags:              column.Flags(h[format.OffsetColumnFlags]),
			Length:             int(binary.LittleEndian.Uint16(h[format.OffsetColumnLength:])),
		}
		cols = append(cols, c)
	}

	namesStart := colHeaderStart + numCols*format.SizeColumnHeader
	names, _ := parseNameTable(buf, namesStart, numCols, format)
	for i := range cols {
		if i < len(names) {
			cols[i].Name = names[i]
		}
	}
	d.Columns = cols
	return d, nil
}

// parseNameTable reads n consecutive length-prefixed names starting
// at pos: a 1-byte length for Jet3's narrower header, 2 bytes for the
// wider Jet4/accdb dialects (spec.md §6.2's per-version parameter
// table extends to this too, even though JetFormat does not carry a
// dedicated field for it — the column-header size split already
// tracks the same version boundary).
func parseNameTable(buf []byte, pos, n int, format jetformat.JetFormat) ([]string, int) {
	wide := format.SizeColumnHeader > 18
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		var length int
		if wide {
			if pos+2 > len(buf) {
				break
			}
			length = int(binary.LittleEndian.Uint16(buf[pos:]))
			pos += 2
		} else {
			if pos+1 > len(buf) {
				break
			}
			length = int(buf[pos])
			pos++
		}
		if pos+length > len(buf) {
			break
		}
		names = append(names, decodeNameBytes(buf[pos:pos+length], format))
		pos += length
	}
	return names, pos
}

// decodeNameBytes interprets a name table entry as UTF-16LE (Jet4 and
// later) or the format's default single-byte charset (Jet3).
func decodeNameBytes(raw []byte, format jetformat.JetFormat) string {
	if format.SizeColumnHeader <= 18 {
		return string(raw)
	}
	runes := make([]uint16, len(raw)/2)
	for i := range runes {
		runes[i] = binary.LittleEndian.Uint16(raw[i*2:])
	}
	return decodeUTF16(runes)
}

func decodeUTF16(units []uint16) string {
	out := make([]rune, 0, len(units))
	for i := 0; i < len(units); i++ {
		u := units[i]
		if u >= 0xD800 && u <= 0xDBFF && i+1 < len(units) {
			u2 := units[i+1]
			if u2 >= 0xDC00 && u2 <= 0xDFFF {
				r := (rune(u-0xD800)<<10 | rune(u2-0xDC00)) + 0x10000
				out = append(out, r)
				i++
				continue
			}
		}
		out = append(out, rune(u))
	}
	return string(out)
}

// Encode serializes the column/definition metadata this engine tracks
// back into a table-definition page buffer. Real Jet table-definition
// pages carry substantially more bookkeeping (index collation flags,
// complex-type metadata, property lists); this writes the subset
// SPEC_FULL.md's operations actually read back via ParseDefinition.
func (d *Definition) Encode(buf []byte, format jetformat.JetFormat) {
	for i := range buf {
		buf[i] = 0
	}
	buf[0] = PageTypeTableDef
	binary.LittleEndian.PutUint32(buf[format.OffsetNumRows:], uint32(d.NumRows))
	binary.LittleEndian.PutUint32(buf[format.OffsetNextAutoNumber:], uint32(d.LastLongAutoNum))
	binary.LittleEndian.PutUint16(buf[format.OffsetNumCols:], uint16(len(d.Columns)))
	binary.LittleEndian.PutUint32(buf[format.OffsetNumIndexes:], uint32(len(d.Indexes)))

	pos := format.OffsetIndexDefBlock + len(d.Indexes)*format.SizeIndexDefinition
	for i, c := range d.Columns {
		off := pos + i*format.SizeColumnHeader
		if off+format.SizeColumnHeader > len(buf) {
			break
		}
		h := buf[off : off+format.SizeColumnHeader]
		h[format.OffsetColumnType] = byte(c.Type)
		h[format.OffsetColumnNumber] = byte(c.Number)
		binary.LittleEndian.PutUint16(h[format.OffsetColumnVariableTableIndex:], uint16(c.VariableTableIndex))
		binary.LittleEndian.PutUint16(h[format.OffsetColumnFixedDataOffset:], uint16(c.FixedDataOffset))
		h[format.OffsetColumnScale] = c.Scale
		h[format.OffsetColumnPrecision] = c.Precision
		h[format.OffsetColumnFlags] = byte(c.Flags)
		binary.LittleEndian.PutUint16(h[format.OffsetColumnLength:], uint16(c.Length))
	}
	pos += len(d.Columns) * format.SizeColumnHeader
	for _, c := range d.Columns {
		raw := []byte(c.Name)
		if format.SizeColumnHeader > 18 {
			raw = nil
			for _, u := range utf16.Encode([]rune(c.Name)) {
				raw = append(raw, byte(u), byte(u>>8))
			}
			raw = append([]byte{byte(len(raw)), byte(len(raw) >> 8)}, raw...)
		} else {
			raw = append([]byte{byte(len(raw))}, raw...)
		}
		if pos < len(buf) {
			pos += copy(buf[pos:], raw)
		}
	}
}

// MaxColumnCount / MaxVarColumnCount feed record.EncodeOptions: every
// column this table has ever defined, including ones since dropped,
// per spec.md §4.2's "never shrinks" column-count rule.
func (d *Definition) MaxColumnCount() int {
	max := 0
	for _, c := range d.Columns {
		if c.Index+1 > max {
			max = c.Index + 1
		}
	}
	return max
}

func (d *Definition) MaxVarColumnCount() int {
	max := 0
	for _, c := range d.Columns {
		if !c.IsFixedLength() && c.VariableTableIndex+1 > max {
			max = c.VariableTableIndex + 1
		}
	}
	return max
}

// Column looks up a column by name.
func (d *Definition) Column(name string) (column.Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return column.Column{}, false
}
