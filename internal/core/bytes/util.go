// Package bytes implements the message codec shared by every server: a
// cursor-based Reader and an append-only Writer over little-endian fields and
// u16 length-prefixed Latin-1 strings.
package bytes

import (
	"errors"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// MaxStringLength is the longest string a u16 length prefix can describe.
const MaxStringLength = 0xFFFF

// ErrShortMessage is returned once a Reader is asked for more bytes than remain.
var ErrShortMessage = errors.New("message too short")

// EncodeLatin1 converts a UTF-8 string to the single-byte encoding used on the
// wire. Characters without a Latin-1 equivalent are replaced.
func EncodeLatin1(str string) []byte {
	encoded, err := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder()).Bytes([]byte(str))
	if err != nil {
		// The replacing encoder only fails on invalid transformer state.
		return []byte(str)
	}
	return encoded
}

// DecodeLatin1 converts wire bytes to a UTF-8 string.
func DecodeLatin1(b []byte) string {
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(decoded)
}
