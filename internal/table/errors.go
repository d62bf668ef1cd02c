package table

import "errors"

var (
	ErrInvalidPageSize       = errors.New("table: invalid page size")
	ErrNotDataPage           = errors.New("table: page is not a data page")
	ErrNotTDefPage           = errors.New("table: page is not a table-definition page")
	ErrPageFull              = errors.New("table: page has no room for this row")
	ErrRowIndexRange         = errors.New("table: row index out of range")
	ErrRowDeleted            = errors.New("table: row is deleted")
	ErrRowTooSmallForOverflow = errors.New("table: row too small to hold an overflow pointer")
	ErrColumnNotFound        = errors.New("table: column not found")
	ErrNoRoomForRow          = errors.New("table: no data page had room for this row")
	ErrNotIndexPage          = errors.New("table: page is not an index page")
)
