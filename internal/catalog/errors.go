package catalog

import "errors"

var (
	ErrObjectNotFound = errors.New("catalog: object not found")
	ErrNotATable      = errors.New("catalog: object is not a table")
	ErrMissingColumn  = errors.New("catalog: MSysObjects is missing an expected column")
)
