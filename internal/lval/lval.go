// Package lval implements the long-value (LVAL) overflow store spec.md
// §4.3 describes: bytes too large to fit inline in a row spill to
// either a single other-page row or a chain of other-pages rows.
package lval

import (
	"github.com/jetaccess/jetdb/internal/bytesutil"
)

// Kind is the LVAL definition type byte.
type Kind byte

const (
	KindInline     Kind = 0x80
	KindOtherPage  Kind = 0x40
	KindOtherPages Kind = 0x00
)

// DefSize is the fixed size of an LVAL definition (spec.md §4.3).
const DefSize = 12

// PageReader/PageWriter abstract the data-page operations the long-
// value store needs without depending on the table package, avoiding
// an import cycle (table depends on lval, not the reverse).
type PageReader interface {
	// ReadRow returns the raw bytes of row (page, rowNum).
	ReadRow(page uint32, rowNum byte) ([]byte, error)
}

type PageWriter interface {
	PageReader
	// AllocateDataPage returns a fresh page number formatted as a
	// data page ready to receive rows.
	AllocateDataPage() (uint32, error)
	// WriteRow writes data as row rowNum on page, growing the page's
	// row-location table if rowNum is new.
	WriteRow(page uint32, rowNum byte, data []byte) error
}

// Def is a decoded LVAL definition.
type Def struct {
	Length int32 // may be negative; spec.md §4.3 requires tolerating this as "null"
	Kind   Kind
	Row    byte
	Page   uint32
}

// DecodeDef parses a 12-byte LVAL definition.
func DecodeDef(raw []byte) Def {
	_ = raw[11]
	length := int32(raw[0]) | int32(raw[1])<<8 | int32(raw[2])<<16
	if raw[2]&0x80 != 0 {
		length |= ^int32(0xFFFFFF) // sign-extend the 24-bit length
	}
	kind := Kind(raw[3])
	row := raw[4]
	page := bytesutil.Uint24(raw[5:8])
	return Def{Length: length, Kind: kind, Row: row, Page: page}
}

// EncodeDef serializes d back to its 12-byte on-disk form. Callers
// append the inline payload themselves when Kind == KindInline.
func EncodeDef(d Def) []byte {
	out := make([]byte, DefSize)
	out[0] = byte(d.Length)
	out[1] = byte(d.Length >> 8)
	out[2] = byte(d.Length >> 16)
	out[3] = byte(d.Kind)
	out[4] = d.Row
	bytesutil.PutUint24(out[5:8], d.Page)
	return out
}

// Read resolves an LVAL definition (the 12 bytes stored where a long
// value column's data would be) to its full byte payload. Per
// spec.md §4.3, a negative length is treated as null rather than an
// error.
func Read(raw []byte, pr PageReader) ([]byte, error) {
	if len(raw) < DefSize {
		return nil, nil
	}
	def := DecodeDef(raw)
	if def.Length < 0 {
		return nil, nil
	}
	switch def.Kind {
	case KindInline:
		payload := raw[DefSize:]
		if int(def.Length) > len(payload) {
			return payload, nil
		}
		return payload[:def.Length], nil
	case KindOtherPage:
		row, err := pr.ReadRow(def.Page, def.Row)
		if err != nil {
			return nil, err
		}
		if int(def.Length) > len(row) {
			return row, nil
		}
		return row[:def.Length], nil
	case KindOtherPages:
		return readChain(def, pr)
	default:
		return nil, ErrUnknownLValType
	}
}

// readChain walks an other-pages chain: each row is
// [u8 next_row][u24 next_page][payload...], terminated by a zero
// next-pointer (spec.md §4.3).
func readChain(def Def, pr PageReader) ([]byte, error) {
	out := make([]byte, 0, def.Length)
	page, row := def.Page, def.Row
	for {
		raw, err := pr.ReadRow(page, row)
		if err != nil {
			return nil, err
		}
		if len(raw) < 4 {
			return nil, ErrTruncatedChain
		}
		nextRow := raw[0]
		nextPage := bytesutil.Uint24(raw[1:4])
		out = append(out, raw[4:]...)
		if nextRow == 0 && nextPage == 0 {
			break
		}
		row, page = nextRow, nextPage
	}
	if int32(len(out)) > def.Length {
		out = out[:def.Length]
	}
	return out, nil
}

// WritePolicy decides which encoding a byte payload gets, per
// spec.md §4.3's write policy.
type WritePolicy struct {
	RemainingRowLength int
	MaxInline          int
	MaxLValRowSize     int
}

// Write encodes data as an LVAL definition (plus, for KindInline, the
// inline payload appended), allocating other-page(s) storage via pw
// when the data does not fit inline.
func Write(data []byte, policy WritePolicy, pw PageWriter) ([]byte, error) {
	length := len(data)
	if length+DefSize <= policy.RemainingRowLength && length <= policy.MaxInline {
		def := EncodeDef(Def{Length: int32(length), Kind: KindInline})
		return append(def, data...), nil
	}
	if length <= policy.MaxLValRowSize {
		page, err := pw.AllocateDataPage()
		if err != nil {
			return nil, err
		}
		if err := pw.WriteRow(page, 0, data); err != nil {
			return nil, err
		}
		return EncodeDef(Def{Length: int32(length), Kind: KindOtherPage, Row: 0, Page: page}), nil
	}
	return writeChain(data, policy, pw)
}

func writeChain(data []byte, policy WritePolicy, pw PageWriter) ([]byte, error) {
	chunkSize := policy.MaxLValRowSize - 4
	if chunkSize <= 0 {
		return nil, ErrChunkTooSmall
	}
	type chunk struct {
		page uint32
		data []byte
	}
	var chunks []chunk
	for off := 0; off < len(data); off += chunkSize {
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		page, err := pw.AllocateDataPage()
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk{page: page, data: data[off:end]})
	}
	for i, c := range chunks {
		var header [4]byte
		if i+1 < len(chunks) {
			header[0] = 0
			bytesutil.PutUint24(header[1:4], chunks[i+1].page)
		}
		row := append(append([]byte{}, header[:]...), c.data...)
		if err := pw.WriteRow(c.page, 0, row); err != nil {
			return nil, err
		}
	}
	first := chunks[0]
	return EncodeDef(Def{Length: int32(len(data)), Kind: KindOtherPages, Row: 0, Page: first.page}), nil
}
