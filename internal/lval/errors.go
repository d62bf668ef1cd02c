package lval

import "errors"

var (
	ErrUnknownLValType = errors.New("lval: unknown LVAL definition type byte")
	ErrTruncatedChain  = errors.New("lval: other-pages chain row too short")
	ErrChunkTooSmall   = errors.New("lval: max_lval_row_size too small to chunk a value")
)
