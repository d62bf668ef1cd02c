// Package bytesutil holds the small binary-codec helpers every higher
// layer of jetdb builds on: endian-aware integer reads/writes, the
// 3-byte integers Jet pages use for page numbers inside LVAL chains,
// hex dumping for diagnostics, and the byte-order reorder GUIDs need.
package bytesutil

import (
	"encoding/binary"
	"fmt"
)

// Order mirrors the subset of byte order a Jet page cares about. Most
// fields are little-endian; NUMERIC and part of GUID are big-endian.
type Order = binary.ByteOrder

var (
	LittleEndian = binary.LittleEndian
	BigEndian    = binary.BigEndian
)

// Uint24 reads a 3-byte little-endian unsigned integer, as used for
// LVAL chain page numbers and overflow-row pointers.
func Uint24(b []byte) uint32 {
	_ = b[2]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

// PutUint24 writes a 3-byte little-endian unsigned integer. Values
// above 0xFFFFFF are truncated by the caller's responsibility, not ours.
func PutUint24(b []byte, v uint32) {
	_ = b[2]
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

// Uint24BE is the big-endian counterpart, unused by the core format but
// kept for symmetry with BigEndian.Uint16/Uint32.
func Uint24BE(b []byte) uint32 {
	_ = b[2]
	return uint32(b[2]) | uint32(b[1])<<8 | uint32(b[0])<<16
}

// FindBytes returns the index of the first occurrence of needle in
// haystack starting at or after from, or -1 if not found.
func FindBytes(haystack, needle []byte, from int) int {
	if from < 0 {
		from = 0
	}
	if len(needle) == 0 || from >= len(haystack) {
		return -1
	}
	n := len(needle)
	for i := from; i+n <= len(haystack); i++ {
		if equal(haystack[i:i+n], needle) {
			return i
		}
	}
	return -1
}

func equal(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// HexDump renders b as a classic "offset  hex  ascii" debug dump.
func HexDump(b []byte) string {
	var out []byte
	for off := 0; off < len(b); off += 16 {
		end := off + 16
		if end > len(b) {
			end = len(b)
		}
		line := b[off:end]
		out = append(out, []byte(fmt.Sprintf("%08x  ", off))...)
		for i := 0; i < 16; i++ {
			if i < len(line) {
				out = append(out, []byte(fmt.Sprintf("%02x ", line[i]))...)
			} else {
				out = append(out, []byte("   ")...)
			}
			if i == 7 {
				out = append(out, ' ')
			}
		}
		out = append(out, ' ', '|')
		for _, c := range line {
			if c >= 0x20 && c < 0x7f {
				out = append(out, c)
			} else {
				out = append(out, '.')
			}
		}
		out = append(out, '|', '\n')
	}
	return string(out)
}

// SwapGUIDBytes reorders the 16 raw bytes of a GUID between the Jet
// on-disk layout ([u32 LE][u16 LE][u16 LE][u16 BE][6 bytes BE]) and the
// canonical big-endian RFC 4122 byte order google/uuid expects. The
// transform is its own inverse's mirror: calling it on disk bytes
// produces RFC bytes and vice versa, because only the first 8 bytes
// ever need reordering.
func SwapGUIDBytes(guid [16]byte) [16]byte {
	var out [16]byte
	// data1: 4 bytes, byte-swapped
	out[0], out[1], out[2], out[3] = guid[3], guid[2], guid[1], guid[0]
	// data2: 2 bytes, byte-swapped
	out[4], out[5] = guid[5], guid[4]
	// data3: 2 bytes, byte-swapped
	out[6], out[7] = guid[7], guid[6]
	// data4: 8 bytes, already big-endian on both sides
	copy(out[8:], guid[8:])
	return out
}
