package column

import "fmt"

// ValueError reports a value that fails type-specific validation:
// currency overflow, numeric precision overflow, GUID pattern
// mismatch, or scale/precision out of range (spec.md §7).
type ValueError struct {
	Reason string
}

func (e *ValueError) Error() string { return "column: value error: " + e.Reason }

// TextLengthError reports a TEXT/MEMO value outside its column's
// declared character bounds.
type TextLengthError struct {
	Length, Min, Max int
}

func (e *TextLengthError) Error() string {
	return fmt.Sprintf("column: text length %d outside bounds [%d,%d]", e.Length, e.Min, e.Max)
}
