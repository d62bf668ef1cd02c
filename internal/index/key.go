package index

import (
	"math"

	"github.com/jetaccess/jetdb/internal/column"
)

// EncodeKey builds the order-preserving sort-key bytes for a single
// indexed value, per spec.md §4.6.1. Multi-column indexes concatenate
// each column's encoded bytes in column order; descending columns
// invert every byte of their own segment afterward.
func EncodeKey(v column.Value, descending bool) []byte {
	b := encodeKeyBytes(v)
	if descending {
		inverted := make([]byte, len(b))
		for i, c := range b {
			inverted[i] = ^c
		}
		return inverted
	}
	return b
}

func encodeKeyBytes(v column.Value) []byte {
	switch v.Kind {
	case column.KindNull:
		return []byte{0x00}
	case column.KindBool:
		if v.Bool {
			return []byte{0x01, 0xFF}
		}
		return []byte{0x01, 0x00}
	case column.KindByte:
		return []byte{0x02, v.Byte}
	case column.KindI16:
		return append([]byte{0x03}, flipSignBE16(uint16(v.I16))...)
	case column.KindI32:
		return append([]byte{0x04}, flipSignBE32(uint32(v.I32))...)
	case column.KindF32:
		return append([]byte{0x05}, orderFloat32(v.F32)...)
	case column.KindF64:
		return append([]byte{0x06}, orderFloat64(v.F64)...)
	case column.KindDate:
		return append([]byte{0x07}, orderFloat64(v.F64)...)
	case column.KindText:
		return append([]byte{0x08}, collateText(v.Text)...)
	case column.KindGUID:
		return append([]byte{0x09}, []byte(v.GUID)...)
	case column.KindMoney:
		return append([]byte{0x0A}, flipSignBE64(uint64(v.Money))...)
	case column.KindNumeric:
		out := []byte{0x0B, v.Sign}
		return append(out, v.Digits...)
	case column.KindBytes:
		return append([]byte{0x0C}, v.Bytes...)
	default:
		return []byte{0xFE}
	}
}

// flipSignBE16/32/64 big-endian-encode a two's-complement integer and
// flip its sign bit, so that bytewise comparison matches numeric order.
func flipSignBE16(u uint16) []byte {
	u ^= 0x8000
	return []byte{byte(u >> 8), byte(u)}
}

func flipSignBE32(u uint32) []byte {
	u ^= 0x80000000
	return []byte{byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
}

func flipSignBE64(u uint64) []byte {
	u ^= 0x8000000000000000
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(u >> (56 - 8*i))
	}
	return out
}

// orderFloat32/64 convert IEEE-754 bits to an order-preserving
// unsigned form: for non-negative numbers, flip the sign bit; for
// negative numbers, flip every bit (this reverses the descending
// magnitude order negatives naturally sort in as raw bit patterns).
func orderFloat32(f float32) []byte {
	bits := math.Float32bits(f)
	if bits&0x80000000 != 0 {
		bits = ^bits
	} else {
		bits |= 0x80000000
	}
	return []byte{byte(bits >> 24), byte(bits >> 16), byte(bits >> 8), byte(bits)}
}

func orderFloat64(f float64) []byte {
	bits := math.Float64bits(f)
	if bits&0x8000000000000000 != 0 {
		bits = ^bits
	} else {
		bits |= 0x8000000000000000
	}
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(bits >> (56 - 8*i))
	}
	return out
}

// collateText builds a case-insensitive, length-unambiguous key: the
// folded-case bytes followed by a NUL and the bitwise complement of the
// original bytes, so that "a" < "A" < "b" while still comparing
// equal-fold strings by their exact form as a tiebreaker (the
// complement puts lowercase, the higher ASCII code, first).
func collateText(s string) []byte {
	folded := []byte(foldCase(s))
	out := make([]byte, 0, len(folded)+1+len(s))
	out = append(out, folded...)
	out = append(out, 0x00)
	for _, c := range []byte(s) {
		out = append(out, ^c)
	}
	return out
}

func foldCase(s string) string {
	r := []rune(s)
	for i, c := range r {
		if c >= 'A' && c <= 'Z' {
			r[i] = c - 'A' + 'a'
		}
	}
	return string(r)
}
