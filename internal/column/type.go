package column

// DataType enumerates the Access/Jet column types named in spec.md
// §4.4's table.
type DataType byte

const (
	TypeBoolean      DataType = 0x01
	TypeByte         DataType = 0x02
	TypeInt          DataType = 0x03
	TypeLong         DataType = 0x04
	TypeMoney        DataType = 0x05
	TypeFloat        DataType = 0x06
	TypeDouble       DataType = 0x07
	TypeShortDateTime DataType = 0x08
	TypeBinary       DataType = 0x09
	TypeText         DataType = 0x0A
	TypeOLE          DataType = 0x0B
	TypeMemo         DataType = 0x0C
	TypeUnknown0D    DataType = 0x0D
	TypeGUID         DataType = 0x0F
	TypeNumeric      DataType = 0x10
	TypeUnknown11    DataType = 0x11
	TypeComplexType  DataType = 0x12
)

// FixedSize returns the on-disk fixed-data size for a fixed-length
// type, or (0, false) for variable-length types.
func (t DataType) FixedSize() (int, bool) {
	switch t {
	case TypeBoolean:
		return 0, true
	case TypeByte:
		return 1, true
	case TypeInt:
		return 2, true
	case TypeLong:
		return 4, true
	case TypeMoney:
		return 8, true
	case TypeFloat:
		return 4, true
	case TypeDouble:
		return 8, true
	case TypeShortDateTime:
		return 8, true
	case TypeGUID:
		return 16, true
	case TypeNumeric:
		return 17, true
	case TypeComplexType:
		return 4, true
	default:
		return 0, false
	}
}

// IsVariableLength reports whether values of t are stored through the
// variable-length offset table rather than the fixed-data zone.
func (t DataType) IsVariableLength() bool {
	_, fixed := t.FixedSize()
	return !fixed
}

// IsLongValue reports whether t is stored via an LVAL reference
// (spec.md §4.3) rather than inline in the variable-data zone.
func (t DataType) IsLongValue() bool {
	return t == TypeOLE || t == TypeMemo
}

func (t DataType) String() string {
	switch t {
	case TypeBoolean:
		return "BOOLEAN"
	case TypeByte:
		return "BYTE"
	case TypeInt:
		return "INT"
	case TypeLong:
		return "LONG"
	case TypeMoney:
		return "MONEY"
	case TypeFloat:
		return "FLOAT"
	case TypeDouble:
		return "DOUBLE"
	case TypeShortDateTime:
		return "SHORT_DATE_TIME"
	case TypeBinary:
		return "BINARY"
	case TypeText:
		return "TEXT"
	case TypeOLE:
		return "OLE"
	case TypeMemo:
		return "MEMO"
	case TypeUnknown0D:
		return "UNKNOWN_0D"
	case TypeGUID:
		return "GUID"
	case TypeNumeric:
		return "NUMERIC"
	case TypeUnknown11:
		return "UNKNOWN_11"
	case TypeComplexType:
		return "COMPLEX_TYPE"
	default:
		return "UNKNOWN"
	}
}

// Flags are the per-column bit flags spec.md §3 lists under Column.
type Flags byte

const (
	FlagFixedLength    Flags = 0x01
	FlagAutoNumber     Flags = 0x04
	FlagCompressedUnicode Flags = 0x80
	FlagAutoNumberGUID Flags = 0x40
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// Column describes one table column's physical layout and metadata,
// matching the attribute list in spec.md §3.
type Column struct {
	Name   string
	Index  int // zero-based column index (position in the logical row)
	Number int // column number as stored on disk

	Type DataType

	Length    int // fixed size, or the maximum for variable-length columns
	Scale     byte
	Precision byte

	Flags Flags

	// Exactly one of these is meaningful, selected by
	// Flags.Has(FlagFixedLength).
	FixedDataOffset    int
	VariableTableIndex int
}

// IsFixedLength reports whether this column occupies a reserved slot
// in a row's fixed-data zone.
func (c Column) IsFixedLength() bool { return c.Flags.Has(FlagFixedLength) }

// IsAutoNumber reports whether values are engine-generated.
func (c Column) IsAutoNumber() bool { return c.Flags.Has(FlagAutoNumber) }

// IsAutoNumberGUID reports whether this is a GUID auto-number column.
func (c Column) IsAutoNumberGUID() bool { return c.Flags.Has(FlagAutoNumberGUID) }

// IsCompressedUnicode reports whether TEXT/MEMO values in this column
// are eligible for SCSU compression (spec.md §4.5).
func (c Column) IsCompressedUnicode() bool { return c.Flags.Has(FlagCompressedUnicode) }

// Validate checks the invariants spec.md §3 lists for Column.
func (c Column) Validate() error {
	wantVariable := c.Type.IsVariableLength()
	gotVariable := !c.IsFixedLength()
	if wantVariable != gotVariable {
		return &ValidationError{Column: c.Name, Reason: "variable_length does not match type.is_variable_length()"}
	}
	if !gotVariable {
		size, _ := c.Type.FixedSize()
		if c.Length != size && size != 0 {
			return &ValidationError{Column: c.Name, Reason: "fixed column length does not match type.fixed_size"}
		}
	}
	if c.IsAutoNumber() && c.Type != TypeLong && c.Type != TypeGUID {
		return &ValidationError{Column: c.Name, Reason: "auto-number column must be LONG or GUID"}
	}
	if c.IsCompressedUnicode() && c.Type != TypeText && c.Type != TypeMemo {
		return &ValidationError{Column: c.Name, Reason: "compressed-unicode column must be TEXT or MEMO"}
	}
	return nil
}

// ValidationError reports a Column invariant violation.
type ValidationError struct {
	Column string
	Reason string
}

func (e *ValidationError) Error() string {
	return "column " + e.Column + ": " + e.Reason
}
