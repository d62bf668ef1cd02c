package index

import "errors"

var (
	ErrDuplicateKey  = errors.New("index: duplicate key")
	ErrKeyNotFound   = errors.New("index: key not found")
	ErrTreeCorrupted = errors.New("index: tree corrupted")
)
