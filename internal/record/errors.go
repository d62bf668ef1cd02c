package record

import "errors"

var (
	ErrUnknownRowHeaderKind = errors.New("record: unknown row header kind")
	ErrColumnIndexRange     = errors.New("record: variable column index out of range")
	ErrRowTooLarge          = errors.New("record: encoded row exceeds max row size")
)
