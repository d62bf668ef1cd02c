// Package column models Access/Jet data types and the typed row value
// each column (de)serializes to, per spec.md §4.4 and §9's guidance to
// replace the source's reflection-style "Object[] row" with a tagged
// value enum.
package column

import (
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Kind tags the variant a Value currently holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindByte
	KindI16
	KindI32
	KindF32
	KindF64
	KindDate
	KindMoney
	KindGUID
	KindNumeric
	KindText
	KindBytes
	KindLValRef
)

// Value is the tagged replacement for the source's Object[] row cells
// (spec.md §9 DESIGN NOTES). Exactly one field is meaningful per Kind.
type Value struct {
	Kind Kind

	Bool   bool
	Byte   byte
	I16    int16
	I32    int32
	F32    float32
	F64    float64   // also carries SHORT_DATE_TIME's raw day-count bit pattern when Kind == KindDate
	Money  int64     // scale-4 fixed point, per spec.md §4.4
	GUID   string    // canonical "{xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx}" form
	Sign   byte      // NUMERIC sign byte: 0x00 positive, 0x01 negative
	Digits []byte    // NUMERIC's 16-byte big-integer magnitude, big-endian
	Scale  byte      // NUMERIC's column-declared scale, carried for display/decimal conversion
	Text   string
	Bytes  []byte
	LVal   LValRef
}

// LValRef identifies a long-value column's storage location without
// holding its bytes; the lval package resolves it to an actual byte
// slice. This mirrors Write::Keep in spec.md §9: carrying a reference
// instead of a loaded value lets update_row skip rewriting unread
// long values.
type LValRef struct {
	Page uint32
	Row  byte
}

// Null is the canonical null Value.
var Null = Value{Kind: KindNull}

// IsNull reports whether v represents SQL NULL.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// NumericDecimal converts a NUMERIC Value to a shopspring/decimal,
// applying the column's declared scale. It is the grounding point for
// the decimal dependency named in SPEC_FULL.md §2.
func (v Value) NumericDecimal() (decimal.Decimal, error) {
	if v.Kind != KindNumeric {
		return decimal.Decimal{}, fmt.Errorf("column: value is not NUMERIC")
	}
	mag := new(big.Int).SetBytes(v.Digits)
	d := decimal.NewFromBigInt(mag, -int32(v.Scale))
	if v.Sign == 0x01 {
		d = d.Neg()
	}
	return d, nil
}

// dateEpoch returns SHORT_DATE_TIME's day zero, midnight 1899-12-30 in
// loc (spec.md §4.4 "in local-TZ" — the epoch instant itself is
// zone-relative, not a fixed UTC instant displayed in loc). 1899-12-30
// is one day before the 1900-01-01 date the format's documentation is
// sometimes quoted against, a quirk this engine reproduces rather than
// corrects.
func dateEpoch(loc *time.Location) time.Time {
	return time.Date(1899, time.December, 30, 0, 0, 0, 0, loc)
}

// TimeToDate converts t to SHORT_DATE_TIME's on-disk f64: fractional
// days since 1899-12-30, with t interpreted in loc (spec.md §4.4,
// §6.3's "timezone" knob — callers pass DatabaseConfig.Timezone). A
// nil loc falls back to time.Local, matching DefaultConfig.
func TimeToDate(t time.Time, loc *time.Location) float64 {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Sub(dateEpoch(loc)).Hours() / 24
}

// DateToTime is TimeToDate's inverse: it reconstructs the wall-clock
// time.Time, in loc, that a SHORT_DATE_TIME day-count represents.
func DateToTime(days float64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return dateEpoch(loc).Add(time.Duration(days * float64(24*time.Hour)))
}

// ValueFromTime builds a KindDate Value from a time.Time, per
// TimeToDate.
func ValueFromTime(t time.Time, loc *time.Location) Value {
	return Value{Kind: KindDate, F64: TimeToDate(t, loc)}
}

// Time decodes a KindDate Value to a time.Time in loc. Decode/Encode
// pass the raw f64 bit pattern straight through (spec.md §8 invariant
// 1: "DATE values retain original f64 bit pattern when the input was
// itself a read-back DATE"); this conversion is for callers that want
// an actual wall-clock time rather than the raw day count.
func (v Value) Time(loc *time.Location) time.Time {
	if v.Kind != KindDate {
		return time.Time{}
	}
	return DateToTime(v.F64, loc)
}

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindBool:
		return fmt.Sprintf("%v", v.Bool)
	case KindByte:
		return fmt.Sprintf("%d", v.Byte)
	case KindI16:
		return fmt.Sprintf("%d", v.I16)
	case KindI32:
		return fmt.Sprintf("%d", v.I32)
	case KindF32:
		return fmt.Sprintf("%g", v.F32)
	case KindF64, KindDate:
		return fmt.Sprintf("%g", v.F64)
	case KindMoney:
		return fmt.Sprintf("%d/10000", v.Money)
	case KindGUID:
		return v.GUID
	case KindNumeric:
		d, err := v.NumericDecimal()
		if err != nil {
			return "<invalid numeric>"
		}
		return d.String()
	case KindText:
		return v.Text
	case KindBytes:
		return fmt.Sprintf("<%d bytes>", len(v.Bytes))
	case KindLValRef:
		return fmt.Sprintf("<lval page=%d row=%d>", v.LVal.Page, v.LVal.Row)
	default:
		return "<unknown>"
	}
}
