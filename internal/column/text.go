package column

import (
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding"

	"github.com/jetaccess/jetdb/internal/scsu"
)

// compressedHeader is the 2-byte marker spec.md §4.5 says precedes a
// sequence of alternating compressed/uncompressed segments.
var compressedHeader = []byte{0xFF, 0xFE}

// DecodeText decodes a TEXT/MEMO value's raw bytes, transparently
// expanding SCSU segments when the compressed-text header is present.
func DecodeText(raw []byte, charset encoding.Encoding, decoder scsu.Decoder) (string, error) {
	if len(raw) >= 2 && raw[0] == compressedHeader[0] && raw[1] == compressedHeader[1] {
		return decodeSegments(raw[2:], charset, decoder)
	}
	return decodeCharset(raw, charset)
}

// decodeSegments implements spec.md §4.5: segments separated by 0x00,
// alternating compressed/uncompressed, starting in compressed mode.
func decodeSegments(raw []byte, charset encoding.Encoding, decoder scsu.Decoder) (string, error) {
	var sb strings.Builder
	compressed := true
	decoder.Reset()
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i < len(raw) && raw[i] != 0x00 {
			continue
		}
		seg := raw[start:i]
		if len(seg) > 0 {
			var part string
			var err error
			if compressed {
				part, err = decoder.Expand(seg)
				if err != nil {
					return "", &scsu.DecodeError{Cause: err}
				}
			} else {
				part, err = decodeCharset(seg, charset)
				if err != nil {
					return "", err
				}
			}
			sb.WriteString(part)
		}
		compressed = !compressed
		start = i + 1
	}
	return sb.String(), nil
}

func decodeCharset(raw []byte, charset encoding.Encoding) (string, error) {
	if charset == nil {
		return decodeUTF16LE(raw), nil
	}
	out, err := charset.NewDecoder().Bytes(raw)
	if err != nil {
		return "", &ValueError{Reason: "text decode failed: " + err.Error()}
	}
	return string(out), nil
}

func decodeUTF16LE(raw []byte) string {
	u16 := make([]uint16, len(raw)/2)
	for i := range u16 {
		u16[i] = uint16(raw[2*i]) | uint16(raw[2*i+1])<<8
	}
	return string(utf16.Decode(u16))
}

// EncodeText implements spec.md §4.5's write side: if compression is
// enabled and the text is at least 3 characters and every character is
// ASCII printable/CR/LF/TAB, emit the compressed-header form with
// ISO-Latin-1 bytes; otherwise emit plain charset bytes.
func EncodeText(s string, charset encoding.Encoding, allowCompress bool) []byte {
	if allowCompress && len(s) >= 3 && isAllLatin1Printable(s) {
		out := make([]byte, 0, 2+len(s))
		out = append(out, compressedHeader...)
		for _, r := range s {
			out = append(out, byte(r))
		}
		return out
	}
	return encodeCharset(s, charset)
}

func isAllLatin1Printable(s string) bool {
	for _, r := range s {
		if r == '\r' || r == '\n' || r == '\t' {
			continue
		}
		if r < 0x20 || r > 0x7E {
			return false
		}
	}
	return true
}

func encodeCharset(s string, charset encoding.Encoding) []byte {
	if charset == nil {
		return encodeUTF16LE(s)
	}
	out, err := charset.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return encodeUTF16LE(s)
	}
	return out
}

func encodeUTF16LE(s string) []byte {
	u16 := utf16.Encode([]rune(s))
	out := make([]byte, len(u16)*2)
	for i, u := range u16 {
		out[2*i] = byte(u)
		out[2*i+1] = byte(u >> 8)
	}
	return out
}
