// Package table implements the table manager of spec.md §4.7: row
// read/write/delete against a table's data pages, auto-number
// allocation, overflow-row rewriting, and index synchronization.
package table

import (
	"encoding/binary"

	"github.com/jetaccess/jetdb/internal/bytesutil"
	"github.com/jetaccess/jetdb/internal/jetformat"
	"github.com/jetaccess/jetdb/internal/record"
)

// Data-page header layout. Page type 0x01 marks a data page; the
// row-location table grows backward from the page's last two bytes,
// one SizeRowLocation entry per row in the order rows were appended.
const (
	dpOffsetType    = 0
	dpOffsetNumRows = 2 // u16
	dpOffsetDataEnd = 4 // u16, byte offset data currently ends at
	dpOffsetTDef    = 6 // u32, owning table-definition page
	dpHeaderSize    = 10

	PageTypeData = byte(0x01)
)

// DataPage wraps one page buffer with the row-location bookkeeping
// spec.md §3/§4.7 describe: rows are appended in growing order and
// never relocated, so a row's end is simply the next row's start (or
// the data-end marker for the last row).
type DataPage struct {
	Number uint32
	buf    []byte
	format jetformat.JetFormat
}

// NewDataPage initializes buf (which must be format.PageSize long) as
// an empty data page owned by tdefPage.
func NewDataPage(number uint32, buf []byte, format jetformat.JetFormat, tdefPage uint32) *DataPage {
	for i := range buf {
		buf[i] = 0
	}
	buf[dpOffsetType] = PageTypeData
	binary.LittleEndian.PutUint16(buf[dpOffsetNumRows:], 0)
	binary.LittleEndian.PutUint16(buf[dpOffsetDataEnd:], uint16(dpHeaderSize))
	binary.LittleEndian.PutUint32(buf[dpOffsetTDef:], tdefPage)
	return &DataPage{Number: number, buf: buf, format: format}
}

// LoadDataPage wraps an already-populated page buffer.
func LoadDataPage(number uint32, buf []byte, format jetformat.JetFormat) (*DataPage, error) {
	if len(buf) != format.PageSize {
		return nil, ErrInvalidPageSize
	}
	if buf[dpOffsetType] != PageTypeData {
		return nil, ErrNotDataPage
	}
	return &DataPage{Number: number, buf: buf, format: format}, nil
}

// Buffer returns the backing page buffer for a Channel.WritePage call.
func (dp *DataPage) Buffer() []byte { return dp.buf }

func (dp *DataPage) numRows() int {
	return int(binary.LittleEndian.Uint16(dp.buf[dpOffsetNumRows:]))
}

func (dp *DataPage) setNumRows(n int) {
	binary.LittleEndian.PutUint16(dp.buf[dpOffsetNumRows:], uint16(n))
}

func (dp *DataPage) dataEnd() int {
	return int(binary.LittleEndian.Uint16(dp.buf[dpOffsetDataEnd:]))
}

func (dp *DataPage) setDataEnd(v int) {
	binary.LittleEndian.PutUint16(dp.buf[dpOffsetDataEnd:], uint16(v))
}

// NumRows returns the number of row slots this page has ever held,
// including deleted ones.
func (dp *DataPage) NumRows() int { return dp.numRows() }

// TDefPage returns the table-definition page this data page belongs to.
func (dp *DataPage) TDefPage() uint32 {
	return binary.LittleEndian.Uint32(dp.buf[dpOffsetTDef:])
}

func (dp *DataPage) locationSlot(idx int) int {
	return len(dp.buf) - record.SizeRowLocation*(idx+1)
}

func (dp *DataPage) location(idx int) uint16 {
	pos := dp.locationSlot(idx)
	return binary.LittleEndian.Uint16(dp.buf[pos : pos+2])
}

func (dp *DataPage) setLocation(idx int, v uint16) {
	pos := dp.locationSlot(idx)
	binary.LittleEndian.PutUint16(dp.buf[pos:pos+2], v)
}

// FreeSpace is the byte count still available for new row data plus
// its row-location entry, per spec.md §4.2.3.
func (dp *DataPage) FreeSpace() int {
	tableEnd := len(dp.buf) - record.SizeRowLocation*dp.numRows()
	return tableEnd - dp.dataEnd()
}

// CanFit reports whether a row of rowSize bytes fits, per spec.md
// §4.2.3 / record.Fits.
func (dp *DataPage) CanFit(rowSize int) bool {
	return record.Fits(rowSize, dp.FreeSpace(), dp.numRows(), dp.format.MaxNumRowsOnDataPage)
}

// AddRow appends data as a new row and returns its row index.
func (dp *DataPage) AddRow(data []byte) (byte, error) {
	if !dp.CanFit(len(data)) {
		return 0, ErrPageFull
	}
	start := dp.dataEnd()
	copy(dp.buf[start:start+len(data)], data)
	idx := dp.numRows()
	dp.setLocation(idx, uint16(start))
	dp.setNumRows(idx + 1)
	dp.setDataEnd(start + len(data))
	return byte(idx), nil
}

// rowRange returns [start, end) for row idx, honoring the deleted
// flag, which spec.md §8.2 requires be preserved across a read.
func (dp *DataPage) rowRange(idx int) (start, end int, deleted, overflow bool, err error) {
	if idx < 0 || idx >= dp.numRows() {
		return 0, 0, false, false, ErrRowIndexRange
	}
	loc := dp.location(idx)
	start = int(record.CleanRowStart(loc))
	deleted = record.IsDeletedRow(loc)
	overflow = record.IsOverflowRow(loc)
	if idx+1 < dp.numRows() {
		end = int(record.CleanRowStart(dp.location(idx + 1)))
	} else {
		end = dp.dataEnd()
	}
	return start, end, deleted, overflow, nil
}

// ReadRow returns row idx's raw bytes, its deleted flag, and whether
// it is an overflow pointer row.
func (dp *DataPage) ReadRow(idx int) (data []byte, deleted, overflow bool, err error) {
	start, end, deleted, overflow, err := dp.rowRange(idx)
	if err != nil {
		return nil, false, false, err
	}
	return dp.buf[start:end], deleted, overflow, nil
}

// MarkDeleted sets the deleted flag on row idx without reclaiming its
// space; spec.md §4.7 defers compaction to a future page rebuild.
func (dp *DataPage) MarkDeleted(idx int) error {
	if idx < 0 || idx >= dp.numRows() {
		return ErrRowIndexRange
	}
	loc := dp.location(idx)
	dp.setLocation(idx, loc|record.FlagDeleted)
	return nil
}

// RewriteAsOverflow replaces row idx's content with a 4-byte pointer
// to (ptrPage, ptrRow) — one row byte followed by a 24-bit page
// number, the same layout lval uses for its chain pointers — and sets
// the overflow flag, per spec.md §4.7's overflow-row rewrite.
func (dp *DataPage) RewriteAsOverflow(idx int, ptrPage uint32, ptrRow byte) error {
	start, end, _, _, err := dp.rowRange(idx)
	if err != nil {
		return err
	}
	if end-start < 4 {
		return ErrRowTooSmallForOverflow
	}
	dp.buf[start] = ptrRow
	bytesutil.PutUint24(dp.buf[start+1:start+4], ptrPage)
	loc := dp.location(idx)
	dp.setLocation(idx, loc|record.FlagOverflow)
	return nil
}

// OverflowTarget decodes an overflow row's pointer.
func OverflowTarget(raw []byte) (page uint32, row byte) {
	return bytesutil.Uint24(raw[1:4]), raw[0]
}
