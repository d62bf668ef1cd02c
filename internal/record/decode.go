package record

import (
	"encoding/binary"

	"github.com/jetaccess/jetdb/internal/column"
	"github.com/jetaccess/jetdb/internal/jetformat"
)

// NullMaskByteSize returns ceil(columnCount/8), per spec.md §4.2.1 step 2.
func NullMaskByteSize(columnCount int) int {
	return (columnCount + 7) / 8
}

// nullMaskBit reports whether colIndex's mask bit is set, which marks
// a non-null value (or true, for BOOLEAN). Columns beyond the mask
// read as unset.
func nullMaskBit(mask []byte, colIndex int) bool {
	byteIdx := colIndex / 8
	if byteIdx >= len(mask) {
		return false
	}
	return mask[byteIdx]&(1<<(uint(colIndex)%8)) != 0
}

// Decoder narrows a page buffer to one row and lazily decodes
// requested columns, caching the jump-table offset reconstruction so
// it runs at most once per row per spec.md §4.2.1 step 3's requirement.
type Decoder struct {
	buf        []byte // [row_start, row_end)
	header     jetformat.RowHeaderKind
	colCount   int
	nullMask   []byte
	varOffsets []int // len == number of variable columns + 1, cached lazily
	varOffsetsBuilt bool
}

// NewDecoder narrows buf to a single row's bytes and reads its column
// count and NULL mask (spec.md §4.2.1 steps 1-2).
func NewDecoder(buf []byte, header jetformat.RowHeaderKind) *Decoder {
	colCount := int(binary.LittleEndian.Uint16(buf[0:2]))
	maskSize := NullMaskByteSize(colCount)
	mask := buf[len(buf)-maskSize:]
	return &Decoder{buf: buf, header: header, colCount: colCount, nullMask: mask}
}

// ColumnCount returns the column count stored in the row header.
func (d *Decoder) ColumnCount() int { return d.colCount }

// DecodeColumn decodes one column's value. col.Index selects its NULL
// mask bit, col.FixedDataOffset or col.VariableTableIndex locates its
// bytes, and col.Type picks the decoding. TEXT comes back as KindText;
// a long-value column comes back as a bare KindLValRef, whose raw
// definition the caller fetches with RawVariableColumn.
func (d *Decoder) DecodeColumn(col column.Column) (column.Value, error) {
	if col.Type == column.TypeBoolean {
		return column.Value{Kind: column.KindBool, Bool: nullMaskBit(d.nullMask, col.Index)}, nil
	}
	if !nullMaskBit(d.nullMask, col.Index) {
		return column.Null, nil
	}
	if col.IsFixedLength() {
		size, _ := col.Type.FixedSize()
		start := 2 + col.FixedDataOffset
		raw := d.buf[start : start+size]
		return column.DecodeFixed(col.Type, raw, false)
	}
	start, end, err := d.variableColumnRange(col.VariableTableIndex)
	if err != nil {
		return column.Value{}, err
	}
	raw := d.buf[start:end]
	if col.Type.IsLongValue() {
		return column.Value{Kind: column.KindLValRef}, nil // caller resolves via lval.Read on raw
	}
	if col.Type == column.TypeText {
		return column.Value{Kind: column.KindText, Text: string(raw)}, nil
	}
	return column.Value{Kind: column.KindBytes, Bytes: raw}, nil
}

// RawVariableColumn returns a variable-length column's raw bytes
// without interpreting them, for callers (table/lval) that need to
// hand the bytes to lval.Read or a long-value-aware decode path.
func (d *Decoder) RawVariableColumn(varIdx int) ([]byte, error) {
	start, end, err := d.variableColumnRange(varIdx)
	if err != nil {
		return nil, err
	}
	return d.buf[start:end], nil
}

func (d *Decoder) variableColumnRange(varIdx int) (start, end int, err error) {
	switch d.header {
	case jetformat.RowHeaderShortOffsets:
		return d.shortLayoutRange(varIdx)
	case jetformat.RowHeaderJumpTable:
		if err := d.buildJumpTableOffsets(); err != nil {
			return 0, 0, err
		}
		if varIdx+1 >= len(d.varOffsets) {
			return 0, 0, ErrColumnIndexRange
		}
		return d.varOffsets[varIdx], d.varOffsets[varIdx+1], nil
	default:
		return 0, 0, ErrUnknownRowHeaderKind
	}
}

// shortLayoutRange implements spec.md §4.2.1's "Short layout" trailer:
// `u16 end_of_data`, the variable-column offsets in reverse order,
// `u16 max_var_column_count`, then the NULL mask (§4.2.2 step 5). The
// offset for column k sits at `row_end - null_mask.byte_size - 4 -
// k*2`; that same formula evaluated at k == max_var_column_count lands
// on end_of_data itself, since it was written immediately below the
// first (highest-index) offset slot. Column k's bytes span
// `[offset_k, offset_{k-1})`, with offset_{-1} meaning end_of_data.
func (d *Decoder) shortLayoutRange(varIdx int) (int, int, error) {
	rowEnd := len(d.buf)
	maskSize := len(d.nullMask)
	countPos := rowEnd - maskSize - 2
	if countPos < 0 {
		return 0, 0, ErrUnknownRowHeaderKind
	}
	n := int(binary.LittleEndian.Uint16(d.buf[countPos : countPos+2]))
	if varIdx < 0 || varIdx >= n {
		return 0, 0, ErrColumnIndexRange
	}
	offsetAt := func(k int) int {
		pos := rowEnd - maskSize - 4 - k*2
		return int(binary.LittleEndian.Uint16(d.buf[pos : pos+2]))
	}
	start := offsetAt(varIdx)
	end := offsetAt(n) // end_of_data
	if varIdx > 0 {
		end = offsetAt(varIdx - 1)
	}
	return start, end, nil
}

// jumpTablePageStride is the value a single 0xFF jump-marker byte
// contributes to the running offset. It is 255, not 256, because byte
// value 0xFF is reserved as the marker itself, leaving only 0-254 (255
// distinct values) representable per page; encodeJumpTableTrailer
// mirrors this exactly so every offset round-trips without a gap.
const jumpTablePageStride = 255

// buildJumpTableOffsets reconstructs var_col_offsets[0..=n] from the
// single-byte relative offsets and jump markers spec.md §4.2.1
// describes, caching the result on the Decoder so repeat reads of the
// same row state compute it at most once.
func (d *Decoder) buildJumpTableOffsets() error {
	if d.varOffsetsBuilt {
		return nil
	}
	rowEnd := len(d.buf)
	maskSize := len(d.nullMask)
	countPos := rowEnd - maskSize - 1
	if countPos < 0 {
		return ErrUnknownRowHeaderKind
	}
	n := int(d.buf[countPos])
	offsets := make([]int, 0, n+1)
	jumpCount := 0
	cur := 0
	// Bytes run backward from countPos-1; a jump marker byte 0xFF
	// increments the page counter and is itself not an offset.
	pos := countPos - 1
	for len(offsets) <= n {
		if pos < 0 {
			return ErrUnknownRowHeaderKind
		}
		b := d.buf[pos]
		if b == 0xFF {
			jumpCount++
			pos--
			continue
		}
		cur = int(b) + jumpCount*jumpTablePageStride
		offsets = append(offsets, cur)
		pos--
	}
	// offsets were collected from the last column to the first;
	// reverse them into ascending column order.
	for i, j := 0, len(offsets)-1; i < j; i, j = i+1, j-1 {
		offsets[i], offsets[j] = offsets[j], offsets[i]
	}
	d.varOffsets = offsets
	d.varOffsetsBuilt = true
	return nil
}
