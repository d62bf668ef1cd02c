// Package scsu defines the external collaborator interface spec.md
// §1/§4.5 carves out of scope: the actual Standard Compression Scheme
// for Unicode algorithm is not implemented here, only the shape a
// decoder plugs into. jetdb ships a stub that returns
// ErrNoDecoderConfigured so callers notice immediately if they read a
// compressed TEXT/MEMO value without wiring a real implementation.
package scsu

import "errors"

// Decoder matches spec.md §4.5: "supplied by an external collaborator
// with operations reset() and expand(bytes) -> string".
type Decoder interface {
	Reset()
	Expand(b []byte) (string, error)
}

// ErrNoDecoderConfigured is the error NullDecoder.Expand always returns.
var ErrNoDecoderConfigured = errors.New("scsu: no decoder configured for compressed text segments")

// NullDecoder is a Decoder that always fails, standing in for the
// unimplemented SCSU algorithm. DatabaseConfig has no Decoder field;
// column.DecodeText takes the Decoder as an argument.
type NullDecoder struct{}

func (NullDecoder) Reset() {}

func (NullDecoder) Expand([]byte) (string, error) {
	return "", ErrNoDecoderConfigured
}

// DecodeError wraps a Decoder failure as spec.md §7's TextDecodeError,
// carrying the underlying IllegalInput/EndOfInput-style cause.
type DecodeError struct {
	Cause error
}

func (e *DecodeError) Error() string { return "scsu: decode failed: " + e.Cause.Error() }
func (e *DecodeError) Unwrap() error { return e.Cause }
