// Package jetformat holds the per-Jet-version structural constants
// spec.md §6.2 requires be treated as an external parameter table
// rather than baked into the codec logic. Each JetFormat value
// describes one on-disk dialect: Jet3 (Access 97), Jet4 (Access
// 2000/2003), and the accdb-era Jet12/Jet14 (Access 2007/2010+).
package jetformat

// Version identifies a Jet file-format dialect.
type Version int

const (
	VersionUnknown Version = iota
	VersionJet3
	VersionJet4
	VersionJet12
	VersionJet14
)

func (v Version) String() string {
	switch v {
	case VersionJet3:
		return "Jet3"
	case VersionJet4:
		return "Jet4"
	case VersionJet12:
		return "Jet12"
	case VersionJet14:
		return "Jet14"
	default:
		return "Unknown"
	}
}

// RowHeaderKind selects between the two variable-length offset table
// layouts described in spec.md §4.2.1.
type RowHeaderKind int

const (
	RowHeaderShortOffsets RowHeaderKind = iota // SIZE_ROW_VAR_COL_OFFSET == 2
	RowHeaderJumpTable                         // single-byte offsets + jump markers
)

// JetFormat is the full parameter table for one version. Offsets are
// all relative to the start of a table-definition page's payload
// (i.e. after the generic page header), matching the teacher's
// PageHeader fixed-offset style in storage/wrapper/page.
type JetFormat struct {
	Version Version

	PageSize int // 2048 (Jet3) or 4096 (Jet4/12/14)

	// Table-definition page offsets (§6.2).
	OffsetNumRows         int
	OffsetNextAutoNumber  int
	OffsetTableType       int
	OffsetMaxCols         int
	OffsetNumVarCols      int
	OffsetNumCols         int
	OffsetNumIndexSlots   int
	OffsetNumIndexes      int
	OffsetOwnedPages      int
	OffsetFreeSpacePages  int
	OffsetIndexDefBlock   int

	OffsetColumnType               int
	OffsetColumnNumber             int
	OffsetColumnLength             int
	OffsetColumnPrecision          int
	OffsetColumnScale              int
	OffsetColumnFlags              int
	OffsetColumnCompressedUnicode  int
	OffsetColumnVariableTableIndex int
	OffsetColumnFixedDataOffset    int

	SizeColumnHeader      int
	SizeIndexDefinition   int
	SizeIndexColumnBlock  int
	SizeIndexInfoBlock    int
	SizeTdefHeader        int
	SizeTdefTrailer       int
	SizeLongValueDef      int

	MaxInlineLongValueSize int
	MaxLongValueRowSize    int
	MaxRowSize             int
	MaxNumRowsOnDataPage   int
	MaxColumnNameLength    int
	MaxTableNameLength     int

	UsageMapTableByteLength  int
	DataPageInitialFreeSpace int
	PageInitialFreeSpace     int

	RowHeader RowHeaderKind

	// Password/date header offsets; zero means "format has none".
	OffsetHeaderDate int
	OffsetPassword   int
	SizePassword     int

	DefaultCharset string
	ReadOnly       bool
}

// Jet3 describes the Access 97 (.mdb, 2 KiB page) dialect.
var Jet3 = JetFormat{
	Version:  VersionJet3,
	PageSize: 2048,

	OffsetNumRows:        12,
	OffsetNextAutoNumber: 20,
	OffsetTableType:      20,
	OffsetMaxCols:        25,
	OffsetNumVarCols:     27,
	OffsetNumCols:        25,
	OffsetNumIndexSlots:  31,
	OffsetNumIndexes:     35,
	OffsetOwnedPages:     39,
	OffsetFreeSpacePages: 43,
	OffsetIndexDefBlock:  47,

	OffsetColumnType:               0,
	OffsetColumnNumber:              1,
	OffsetColumnLength:             16,
	OffsetColumnPrecision:           4,
	OffsetColumnScale:               5,
	OffsetColumnFlags:              15,
	OffsetColumnCompressedUnicode:  16,
	OffsetColumnVariableTableIndex: 3,
	OffsetColumnFixedDataOffset:    14,

	SizeColumnHeader:     18,
	SizeIndexDefinition:  8,
	SizeIndexColumnBlock: 24,
	SizeIndexInfoBlock:   20,
	SizeTdefHeader:       63,
	SizeTdefTrailer:      2,
	SizeLongValueDef:     12,

	MaxInlineLongValueSize: 2032 - 12,
	MaxLongValueRowSize:    2032,
	MaxRowSize:             2012,
	MaxNumRowsOnDataPage:   255,
	MaxColumnNameLength:    64,
	MaxTableNameLength:     64,

	UsageMapTableByteLength:  128,
	DataPageInitialFreeSpace: 2048 - 24,
	PageInitialFreeSpace:     2048 - 12,

	RowHeader: RowHeaderShortOffsets,

	OffsetHeaderDate: 0x72,
	OffsetPassword:   0x42,
	SizePassword:     20,

	DefaultCharset: "windows-1252",
}

// Jet4 describes the Access 2000/2002/2003 (.mdb, 4 KiB page) dialect.
var Jet4 = JetFormat{
	Version:  VersionJet4,
	PageSize: 4096,

	OffsetNumRows:        16,
	OffsetNextAutoNumber: 20,
	OffsetTableType:      20,
	OffsetMaxCols:        43,
	OffsetNumVarCols:     45,
	OffsetNumCols:        47,
	OffsetNumIndexSlots:  51,
	OffsetNumIndexes:     55,
	OffsetOwnedPages:     59,
	OffsetFreeSpacePages: 63,
	OffsetIndexDefBlock:  71,

	OffsetColumnType:               0,
	OffsetColumnNumber:              5,
	OffsetColumnLength:             23,
	OffsetColumnPrecision:           11,
	OffsetColumnScale:               12,
	OffsetColumnFlags:              15,
	OffsetColumnCompressedUnicode:  16,
	OffsetColumnVariableTableIndex: 7,
	OffsetColumnFixedDataOffset:    21,

	SizeColumnHeader:     25,
	SizeIndexDefinition:  8,
	SizeIndexColumnBlock: 24,
	SizeIndexInfoBlock:   28,
	SizeTdefHeader:       63,
	SizeTdefTrailer:      4,
	SizeLongValueDef:     12,

	MaxInlineLongValueSize: 4052 - 12,
	MaxLongValueRowSize:    4052,
	MaxRowSize:             4060,
	MaxNumRowsOnDataPage:   255,
	MaxColumnNameLength:    64,
	MaxTableNameLength:     64,

	UsageMapTableByteLength:  128,
	DataPageInitialFreeSpace: 4096 - 24,
	PageInitialFreeSpace:     4096 - 14,

	RowHeader: RowHeaderShortOffsets,

	OffsetHeaderDate: 0x72,
	OffsetPassword:   0x42,
	SizePassword:     20,

	DefaultCharset: "UTF-16LE",
}

// Jet12 describes the Access 2007 .accdb dialect.
var Jet12 = JetFormat{
	Version:  VersionJet12,
	PageSize: 4096,

	OffsetNumRows:        16,
	OffsetNextAutoNumber: 20,
	OffsetTableType:      20,
	OffsetMaxCols:        43,
	OffsetNumVarCols:     45,
	OffsetNumCols:        47,
	OffsetNumIndexSlots:  51,
	OffsetNumIndexes:     55,
	OffsetOwnedPages:     59,
	OffsetFreeSpacePages: 63,
	OffsetIndexDefBlock:  71,

	OffsetColumnType:               0,
	OffsetColumnNumber:              5,
	OffsetColumnLength:             23,
	OffsetColumnPrecision:           11,
	OffsetColumnScale:               12,
	OffsetColumnFlags:              15,
	OffsetColumnCompressedUnicode:  16,
	OffsetColumnVariableTableIndex: 7,
	OffsetColumnFixedDataOffset:    21,

	SizeColumnHeader:     25,
	SizeIndexDefinition:  12,
	SizeIndexColumnBlock: 24,
	SizeIndexInfoBlock:   28,
	SizeTdefHeader:       63,
	SizeTdefTrailer:      4,
	SizeLongValueDef:     12,

	MaxInlineLongValueSize: 4052 - 12,
	MaxLongValueRowSize:    4052,
	MaxRowSize:             4060,
	MaxNumRowsOnDataPage:   255,
	MaxColumnNameLength:    64,
	MaxTableNameLength:     64,

	UsageMapTableByteLength:  128,
	DataPageInitialFreeSpace: 4096 - 24,
	PageInitialFreeSpace:     4096 - 14,

	RowHeader: RowHeaderJumpTable,

	// Jet12/14 password storage is delegated to OS-level encryption,
	// not a header XOR mask; OffsetPassword is left zero.
	DefaultCharset: "UTF-16LE",
}

// Jet14 describes the Access 2010+ .accdb dialect; structurally
// identical to Jet12 for every offset this engine reads.
var Jet14 = JetFormat{
	Version:  VersionJet14,
	PageSize: Jet12.PageSize,

	OffsetNumRows:        Jet12.OffsetNumRows,
	OffsetNextAutoNumber: Jet12.OffsetNextAutoNumber,
	OffsetTableType:      Jet12.OffsetTableType,
	OffsetMaxCols:        Jet12.OffsetMaxCols,
	OffsetNumVarCols:     Jet12.OffsetNumVarCols,
	OffsetNumCols:        Jet12.OffsetNumCols,
	OffsetNumIndexSlots:  Jet12.OffsetNumIndexSlots,
	OffsetNumIndexes:     Jet12.OffsetNumIndexes,
	OffsetOwnedPages:     Jet12.OffsetOwnedPages,
	OffsetFreeSpacePages: Jet12.OffsetFreeSpacePages,
	OffsetIndexDefBlock:  Jet12.OffsetIndexDefBlock,

	OffsetColumnType:               Jet12.OffsetColumnType,
	OffsetColumnNumber:             Jet12.OffsetColumnNumber,
	OffsetColumnLength:             Jet12.OffsetColumnLength,
	OffsetColumnPrecision:          Jet12.OffsetColumnPrecision,
	OffsetColumnScale:              Jet12.OffsetColumnScale,
	OffsetColumnFlags:              Jet12.OffsetColumnFlags,
	OffsetColumnCompressedUnicode:  Jet12.OffsetColumnCompressedUnicode,
	OffsetColumnVariableTableIndex: Jet12.OffsetColumnVariableTableIndex,
	OffsetColumnFixedDataOffset:    Jet12.OffsetColumnFixedDataOffset,

	SizeColumnHeader:     Jet12.SizeColumnHeader,
	SizeIndexDefinition:  Jet12.SizeIndexDefinition,
	SizeIndexColumnBlock: Jet12.SizeIndexColumnBlock,
	SizeIndexInfoBlock:   Jet12.SizeIndexInfoBlock,
	SizeTdefHeader:       Jet12.SizeTdefHeader,
	SizeTdefTrailer:      Jet12.SizeTdefTrailer,
	SizeLongValueDef:     Jet12.SizeLongValueDef,

	MaxInlineLongValueSize: Jet12.MaxInlineLongValueSize,
	MaxLongValueRowSize:    Jet12.MaxLongValueRowSize,
	MaxRowSize:             Jet12.MaxRowSize,
	MaxNumRowsOnDataPage:   Jet12.MaxNumRowsOnDataPage,
	MaxColumnNameLength:    Jet12.MaxColumnNameLength,
	MaxTableNameLength:     Jet12.MaxTableNameLength,

	UsageMapTableByteLength:  Jet12.UsageMapTableByteLength,
	DataPageInitialFreeSpace: Jet12.DataPageInitialFreeSpace,
	PageInitialFreeSpace:     Jet12.PageInitialFreeSpace,

	RowHeader: RowHeaderJumpTable,

	DefaultCharset: "UTF-16LE",
}

// ByVersion returns the format table for v, or (_, false) if unknown.
func ByVersion(v Version) (JetFormat, bool) {
	switch v {
	case VersionJet3:
		return Jet3, true
	case VersionJet4:
		return Jet4, true
	case VersionJet12:
		return Jet12, true
	case VersionJet14:
		return Jet14, true
	default:
		return JetFormat{}, false
	}
}

// the magic bytes at fixed offsets in page 0 that identify a version.
var page0Magic = []byte{0x00, 0x01, 0x00, 0x00}

// DetectVersion inspects page 0 (the file header) and returns the
// dialect it believes wrote the file. Detection follows the documented
// Access file-header layout: byte 0 is the page type (always 0 for the
// header page), byte 20 onward carries a version-specific magic/engine
// string copied out of the vendor's published format notes.
func DetectVersion(page0 []byte) (Version, error) {
	if len(page0) < 20 || page0[0] != 0x00 {
		return VersionUnknown, errBadHeader
	}
	if len(page0) < 4 || page0[1] != page0Magic[1] {
		return VersionUnknown, errBadHeader
	}
	switch page0[20] {
	case 0x00:
		return VersionJet3, nil
	case 0x01:
		return VersionJet4, nil
	case 0x02:
		return VersionJet12, nil
	case 0x03:
		return VersionJet14, nil
	default:
		return VersionUnknown, errBadHeader
	}
}
