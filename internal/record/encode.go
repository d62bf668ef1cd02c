package record

import (
	"encoding/binary"

	"github.com/jetaccess/jetdb/internal/column"
	"github.com/jetaccess/jetdb/internal/jetformat"
	"github.com/jetaccess/jetdb/internal/lval"
)

// EncodeOptions carries the page/format-dependent parameters
// record.Encode needs, per spec.md §4.2.2.
type EncodeOptions struct {
	Header             jetformat.RowHeaderKind
	MaxColumnCount     int // _max_column_count: total columns ever defined on this table
	MaxVarColumnCount  int // _max_var_column_count
	MinRowSize         int
	RemainingRowLength int // free space available on the destination page, for the LVAL inline-vs-overflow decision
	MaxInlineLongValue int
	MaxLValRowSize     int
	LValWriter         lval.PageWriter // may be nil if no column in this row is a long-value type
}

// Encode serializes one logical row (ordered by column.Index, already
// resolved to concrete values — callers resolve AUTO_NUMBER/KEEP_VALUE
// before calling Encode) following spec.md §4.2.2.
func Encode(columns []column.Column, values []column.Value, opt EncodeOptions) ([]byte, error) {
	byIndex := make(map[int]column.Value, len(values))
	for i, c := range columns {
		byIndex[c.Index] = values[i]
	}

	nullMaskSize := NullMaskByteSize(opt.MaxColumnCount)
	nullMask := make([]byte, nullMaskSize)

	// Step 2: fixed-data zone. BOOLEAN writes no bytes; its mask bit
	// records truth instead of null-ness.
	fixedDataEnd := 0
	var fixed []fixedWrite
	for _, c := range columns {
		if !c.IsFixedLength() {
			continue
		}
		v := byIndex[c.Index]
		if c.Type == column.TypeBoolean {
			if v.Kind != column.KindNull && v.Bool {
				setMaskBit(nullMask, c.Index)
			}
			continue
		}
		if v.IsNull() {
			size, _ := c.Type.FixedSize()
			if end := c.FixedDataOffset + size; end > fixedDataEnd {
				fixedDataEnd = end
			}
			continue
		}
		setMaskBit(nullMask, c.Index)
		raw, err := column.EncodeFixed(c.Type, v)
		if err != nil {
			return nil, err
		}
		fixed = append(fixed, fixedWrite{offset: c.FixedDataOffset, data: raw})
		if end := c.FixedDataOffset + len(raw); end > fixedDataEnd {
			fixedDataEnd = end
		}
	}

	// Step 3-4: variable-data zone, long values preferring overflow
	// encoding when the remaining budget would be exceeded.
	varCols := make([]column.Column, 0, opt.MaxVarColumnCount)
	for _, c := range columns {
		if !c.IsFixedLength() {
			varCols = append(varCols, c)
		}
	}
	// sort by VariableTableIndex (small N; insertion sort keeps this
	// file free of a sort.Slice import for a handful of columns)
	for i := 1; i < len(varCols); i++ {
		for j := i; j > 0 && varCols[j].VariableTableIndex < varCols[j-1].VariableTableIndex; j-- {
			varCols[j], varCols[j-1] = varCols[j-1], varCols[j]
		}
	}

	n := opt.MaxVarColumnCount
	var trailerReserve int
	switch opt.Header {
	case jetformat.RowHeaderJumpTable:
		// Minimal reserve: one byte per offset slot (n+1) plus the
		// count byte, no jump markers. A row whose variable data would
		// need markers to stay within the single-page stride is
		// rejected in encodeJumpTableTrailer rather than mis-encoded.
		trailerReserve = nullMaskSize + 1 + (n + 1)
	default:
		// end_of_data (u16) + offsets (u16 each) + max_var_column_count
		// (u16) + NULL mask, per spec.md §4.2.2 step 4.
		trailerReserve = nullMaskSize + 4 + n*2
	}

	// Short layout stores variable column data in descending
	// VariableTableIndex order so decode's `[offset_k, offset_{k-1})`
	// span formula holds (column 0's bytes end at end_of_data); the
	// jump-table layout stores it in the natural ascending order that
	// buildJumpTableOffsets reconstructs.
	// varOffsets and dataEnd hold absolute row-buffer positions (from
	// row_start), matching what DecodeColumn slices d.buf with
	// directly, not positions relative to the variable-data zone.
	var varData []byte
	varOffsets := make([]int, n)
	dataStart := 2 + fixedDataEnd
	writeVarCol := func(c column.Column) error {
		v := byIndex[c.Index]
		varOffsets[c.VariableTableIndex] = dataStart + len(varData)
		if v.IsNull() {
			return nil
		}
		setMaskBit(nullMask, c.Index)
		raw, err := encodeVariable(c, v, opt.RemainingRowLength-(2+fixedDataEnd+len(varData)+trailerReserve), opt)
		if err != nil {
			return err
		}
		varData = append(varData, raw...)
		return nil
	}
	if opt.Header == jetformat.RowHeaderJumpTable {
		for _, c := range varCols {
			if err := writeVarCol(c); err != nil {
				return nil, err
			}
		}
	} else {
		for i := len(varCols) - 1; i >= 0; i-- {
			if err := writeVarCol(varCols[i]); err != nil {
				return nil, err
			}
		}
	}

	// Step 5: assemble the final row buffer.
	dataEnd := dataStart + len(varData)
	rowSize := fixedDataEnd + len(varData)
	minBody := opt.MinRowSize - trailerReserve - 2
	if rowSize < minBody {
		rowSize = minBody
	}

	out := make([]byte, 2+rowSize+trailerReserve)
	binary.LittleEndian.PutUint16(out[0:2], uint16(opt.MaxColumnCount))
	for _, fw := range fixed {
		copy(out[2+fw.offset:], fw.data)
	}
	copy(out[2+fixedDataEnd:], varData)

	trailerStart := 2 + rowSize
	rowEnd := len(out)
	switch opt.Header {
	case jetformat.RowHeaderJumpTable:
		if err := encodeJumpTableTrailer(out, rowEnd, nullMaskSize, n, varOffsets, dataEnd); err != nil {
			return nil, err
		}
	default:
		// Trailer layout (ascending address): end_of_data, then
		// var_offset[N-1], ..., var_offset[0], then
		// max_var_column_count, then the NULL mask. This matches
		// shortLayoutRange's `row_end - maskSize - 4 - k*2` formula,
		// with end_of_data sitting at that same formula evaluated at
		// k == n (immediately below the first offset slot).
		binary.LittleEndian.PutUint16(out[trailerStart:trailerStart+2], uint16(dataEnd))
		for k := n - 1; k >= 0; k-- {
			pos := trailerStart + 2 + (n-1-k)*2
			binary.LittleEndian.PutUint16(out[pos:pos+2], uint16(varOffsets[k]))
		}
		maxVarColPos := trailerStart + 2 + n*2
		binary.LittleEndian.PutUint16(out[maxVarColPos:maxVarColPos+2], uint16(n))
		copy(out[maxVarColPos+2:], nullMask)
	}

	return out, nil
}

// encodeJumpTableTrailer writes the jump-table trailer buildJumpTableOffsets
// expects to read back: a count byte at rowEnd-maskSize-1, then, scanning
// to lower addresses, one byte per entry of [varOffsets[0], ...,
// varOffsets[n-1], dataEnd] in reverse (dataEnd first), using 0xFF jump
// markers to carry values past a single jumpTablePageStride page.
// varOffsets/dataEnd are absolute row-buffer positions (as DecodeColumn
// needs), so they are ascending and bounded below by 2+fixedDataEnd,
// not by zero.
//
// Because the marker mechanism can only ever raise the running page
// count, and this loop walks the n+1 offsets from largest (dataEnd) to
// smallest (varOffsets[0]), the offsets must all fall within one
// jumpTablePageStride page; and since Encode's trailer reserve holds no
// byte for a marker, that page must be the first, so every offset must
// be below jumpTablePageStride. Any other row returns ErrRowTooLarge
// rather than emit a trailer decode would misread.
func encodeJumpTableTrailer(out []byte, rowEnd, maskSize, n int, varOffsets []int, dataEnd int) error {
	full := make([]int, n+1)
	copy(full, varOffsets)
	full[n] = dataEnd

	countPos := rowEnd - maskSize - 1
	boundary := rowEnd - maskSize - 1 - (n + 1) // first byte the trailer reserves
	pos := countPos - 1
	jumpCount := 0
	for k := n; k >= 0; k-- {
		v := full[k]
		need := v / jumpTablePageStride
		if need < jumpCount {
			return ErrRowTooLarge
		}
		for jumpCount < need {
			if pos < boundary {
				return ErrRowTooLarge
			}
			out[pos] = 0xFF
			pos--
			jumpCount++
		}
		b := v - jumpCount*jumpTablePageStride
		if b < 0 || b > 0xFE || pos < boundary {
			return ErrRowTooLarge
		}
		out[pos] = byte(b)
		pos--
	}
	out[countPos] = byte(n)
	return nil
}

type fixedWrite struct {
	offset int
	data   []byte
}

func setMaskBit(mask []byte, colIndex int) {
	mask[colIndex/8] |= 1 << (uint(colIndex) % 8)
}

// encodeVariable produces the bytes stored in the variable-data zone
// for one column: raw bytes for BINARY/TEXT, or an LVAL definition
// (inline payload appended, or a reference) for OLE/MEMO.
func encodeVariable(c column.Column, v column.Value, remainingRowLength int, opt EncodeOptions) ([]byte, error) {
	if !c.Type.IsLongValue() {
		if v.Kind == column.KindText {
			return []byte(v.Text), nil
		}
		return v.Bytes, nil
	}
	data := v.Bytes
	if v.Kind == column.KindText {
		data = []byte(v.Text)
	}
	policy := lval.WritePolicy{
		RemainingRowLength: remainingRowLength,
		MaxInline:          opt.MaxInlineLongValue,
		MaxLValRowSize:     opt.MaxLValRowSize,
	}
	return lval.Write(data, policy, opt.LValWriter)
}

// Fits reports whether a row of rowSize bytes can be placed on a page
// with freeSpace bytes left and rowsOnPage existing rows, per spec.md
// §4.2.3.
func Fits(rowSize, freeSpace, rowsOnPage, maxRowsOnPage int) bool {
	return rowSize+SizeRowLocation <= freeSpace && rowsOnPage < maxRowsOnPage
}
