package table

import "github.com/jetaccess/jetdb/internal/column"

// WriteKind tags one column's contribution to an AddRow/UpdateRow
// call, replacing the source's Object[] sentinel values (Column.AUTO_NUMBER,
// Column.KEEP_VALUE) with a typed enum per spec.md §9 DESIGN NOTES.
// This lives at the table layer, not in record.Encode, because
// resolving Auto/Keep requires the table's auto-number generator and
// (for Keep) the row's previously stored value — neither of which
// record.Encode has access to.
type WriteKind int

const (
	// WriteValue supplies an explicit value, including an explicit NULL.
	WriteValue WriteKind = iota
	// WriteAuto asks the table to generate the value (auto-number columns only).
	WriteAuto
	// WriteKeep reuses whatever value the row currently stores for this
	// column; UpdateRow reads that value back and re-encodes it with the
	// rest of the row.
	WriteKeep
)

// Write is one column's entry in an AddRow/UpdateRow call.
type Write struct {
	Kind  WriteKind
	Value column.Value
}

// Val wraps an explicit value.
func Val(v column.Value) Write { return Write{Kind: WriteValue, Value: v} }

// Auto requests engine-generated auto-number allocation.
func Auto() Write { return Write{Kind: WriteAuto} }

// Keep requests the row's existing value be preserved unchanged.
func Keep() Write { return Write{Kind: WriteKeep} }
