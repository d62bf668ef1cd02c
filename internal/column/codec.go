package column

import (
	"encoding/binary"
	"math"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jetaccess/jetdb/internal/bytesutil"
)

// MoneyScale is MONEY's fixed decimal scale (spec.md §4.4): on-disk
// values are a signed i64 count of ten-thousandths.
const MoneyScale = 4

// DecimalToMoney converts a shopspring/decimal value to the i64
// ten-thousandths MONEY uses on disk, rejecting values outside i64
// range (spec.md §8.F: "-12345.6789" must round-trip exactly, while a
// value with more than 4 decimal digits or out of i64 range must fail
// with ValueError).
func DecimalToMoney(d decimal.Decimal) (int64, error) {
	scaled := d.Shift(MoneyScale)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, &ValueError{Reason: "too many decimal digits for MONEY scale 4"}
	}
	bi, ok := new(big.Int).SetString(scaled.Truncate(0).String(), 10)
	if !ok {
		return 0, &ValueError{Reason: "malformed currency value"}
	}
	if !bi.IsInt64() {
		return 0, &ValueError{Reason: "currency value out of representable range"}
	}
	return bi.Int64(), nil
}

// MoneyToDecimal is DecimalToMoney's inverse.
func MoneyToDecimal(v int64) decimal.Decimal {
	return decimal.NewFromBigInt(big.NewInt(v), -MoneyScale)
}

// DecodeFixed decodes a fixed-length column's raw bytes (exactly
// Type.FixedSize() long, except BOOLEAN which is always 0 bytes and
// whose value comes from the NULL-mask bit per spec.md §4.2.1 step 3).
func DecodeFixed(t DataType, raw []byte, boolBit bool) (Value, error) {
	switch t {
	case TypeBoolean:
		return Value{Kind: KindBool, Bool: boolBit}, nil
	case TypeByte:
		return Value{Kind: KindByte, Byte: raw[0]}, nil
	case TypeInt:
		return Value{Kind: KindI16, I16: int16(binary.LittleEndian.Uint16(raw))}, nil
	case TypeLong:
		return Value{Kind: KindI32, I32: int32(binary.LittleEndian.Uint32(raw))}, nil
	case TypeFloat:
		bits := binary.LittleEndian.Uint32(raw)
		return Value{Kind: KindF32, F32: math.Float32frombits(bits)}, nil
	case TypeDouble:
		bits := binary.LittleEndian.Uint64(raw)
		return Value{Kind: KindF64, F64: math.Float64frombits(bits)}, nil
	case TypeShortDateTime:
		bits := binary.LittleEndian.Uint64(raw)
		return Value{Kind: KindDate, F64: math.Float64frombits(bits)}, nil
	case TypeMoney:
		v := int64(binary.LittleEndian.Uint64(raw))
		return Value{Kind: KindMoney, Money: v}, nil
	case TypeGUID:
		var b [16]byte
		copy(b[:], raw)
		rfc := bytesutil.SwapGUIDBytes(b)
		id, err := uuid.FromBytes(rfc[:])
		if err != nil {
			return Value{}, &ValueError{Reason: "malformed GUID bytes"}
		}
		return Value{Kind: KindGUID, GUID: "{" + strings.ToUpper(id.String()) + "}"}, nil
	case TypeNumeric:
		sign := raw[0]
		be := FixNumericByteOrder(raw[1:17])
		return Value{Kind: KindNumeric, Sign: sign, Digits: be}, nil
	default:
		return Value{}, &ValueError{Reason: "unsupported fixed type " + t.String()}
	}
}

// EncodeFixed is the inverse of DecodeFixed for every type except
// BOOLEAN, whose truth bit is written into the NULL mask by the row
// codec instead of into the fixed-data zone (spec.md §4.2.2 step 2).
func EncodeFixed(t DataType, v Value) ([]byte, error) {
	switch t {
	case TypeByte:
		return []byte{v.Byte}, nil
	case TypeInt:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(v.I16))
		return b, nil
	case TypeLong:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(v.I32))
		return b, nil
	case TypeFloat:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, math.Float32bits(v.F32))
		return b, nil
	case TypeDouble:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, math.Float64bits(v.F64))
		return b, nil
	case TypeShortDateTime:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, math.Float64bits(v.F64))
		return b, nil
	case TypeMoney:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(v.Money))
		return b, nil
	case TypeGUID:
		raw, err := EncodeGUIDString(v.GUID)
		if err != nil {
			return nil, err
		}
		return raw, nil
	case TypeNumeric:
		b := make([]byte, 17)
		b[0] = v.Sign
		digits := make([]byte, 16)
		copy(digits[16-len(v.Digits):], v.Digits)
		copy(b[1:], FixNumericByteOrder(digits))
		return b, nil
	default:
		return nil, &ValueError{Reason: "unsupported fixed type " + t.String()}
	}
}

// EncodeGUIDString parses a GUID string (braced or not) and returns
// its 16-byte Jet on-disk representation.
func EncodeGUIDString(s string) ([]byte, error) {
	id, err := uuid.Parse(trimBraces(s))
	if err != nil {
		return nil, &ValueError{Reason: "GUID pattern mismatch"}
	}
	rfc := id // 16 bytes, big-endian RFC 4122
	var arr [16]byte
	copy(arr[:], rfc[:])
	disk := bytesutil.SwapGUIDBytes(arr)
	return disk[:], nil
}

func trimBraces(s string) string {
	if len(s) >= 2 && s[0] == '{' && s[len(s)-1] == '}' {
		return s[1 : len(s)-1]
	}
	return s
}

// FixNumericByteOrder is an involution on 16-byte arrays (spec.md §8.5):
// the on-disk NUMERIC magnitude is stored as four little-endian 32-bit
// words, each word's 4 bytes themselves little-endian; this re-orders
// each 4-byte word to big-endian, which both decodes (disk -> big
// integer) and encodes (big integer -> disk) because swapping a
// 4-byte word's endianness twice is the identity.
func FixNumericByteOrder(b []byte) []byte {
	out := make([]byte, 16)
	_ = b[15]
	for word := 0; word < 4; word++ {
		srcOff := word * 4
		dstOff := (3 - word) * 4
		out[dstOff+0] = b[srcOff+3]
		out[dstOff+1] = b[srcOff+2]
		out[dstOff+2] = b[srcOff+1]
		out[dstOff+3] = b[srcOff+0]
	}
	return out
}

// ValidateScalePrecision rejects a NUMERIC value whose magnitude
// exceeds what Scale/Precision can represent, as required by
// setScale/setPrecision in spec.md §4.4.
func ValidateScalePrecision(digits []byte, precision byte) error {
	maxDigits := int(precision)
	// Rough magnitude check: 16 bytes can hold up to ~38 decimal
	// digits; reject only when the value's bit length implies more
	// decimal digits than precision allows.
	nonZero := 0
	for _, b := range digits {
		if b != 0 {
			nonZero++
		}
	}
	if nonZero == 0 {
		return nil
	}
	// A conservative high bound: ceil(bits*0.30103) decimal digits.
	bits := 0
	for i, b := range digits {
		if b == 0 {
			continue
		}
		bits = (len(digits)-i)*8 - leadingZeros(b)
		break
	}
	approxDigits := int(float64(bits)*0.30103) + 1
	if approxDigits > maxDigits {
		return &ValueError{Reason: "numeric precision out of range"}
	}
	return nil
}

func leadingZeros(b byte) int {
	n := 0
	for i := 7; i >= 0; i-- {
		if b&(1<<uint(i)) != 0 {
			break
		}
		n++
	}
	return n
}

// ValidateTextLength enforces min/max character bounds (spec.md §4.4).
func ValidateTextLength(s string, minChars, maxChars int) error {
	n := len([]rune(s))
	if n < minChars || (maxChars > 0 && n > maxChars) {
		return &TextLengthError{Length: n, Min: minChars, Max: maxChars}
	}
	return nil
}
