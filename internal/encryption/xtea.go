// Package encryption holds the ciphers used on the wire: the RSA key exchange
// that protects the first message of a session and the XTEA cipher that
// protects everything after it.
package encryption

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/xtea"
)

// BlockSize is the XTEA block size in bytes. Encrypted payloads are always a
// multiple of this length.
const BlockSize = xtea.BlockSize

// XTEA is the symmetric session cipher negotiated during the handshake. The
// client treats every 4-byte word of the key and of each block as little
// endian while x/crypto/xtea works in big endian, so words are swapped on the
// way in and out.
type XTEA struct {
	cipher *xtea.Cipher
}

// NewXTEA returns a cipher keyed with the four words sent by the client.
func NewXTEA(key [4]uint32) (*XTEA, error) {
	k := make([]byte, 16)
	for i, w := range key {
		binary.BigEndian.PutUint32(k[i*4:], w)
	}
	c, err := xtea.NewCipher(k)
	if err != nil {
		return nil, fmt.Errorf("creating xtea cipher: %w", err)
	}
	return &XTEA{cipher: c}, nil
}

// Encrypt encrypts data in place. len(data) must be a multiple of BlockSize.
func (x *XTEA) Encrypt(data []byte) error {
	return x.process(data, x.cipher.Encrypt)
}

// Decrypt decrypts data in place. len(data) must be a multiple of BlockSize.
func (x *XTEA) Decrypt(data []byte) error {
	return x.process(data, x.cipher.Decrypt)
}

func (x *XTEA) process(data []byte, fn func(dst, src []byte)) error {
	if len(data)%BlockSize != 0 {
		return fmt.Errorf("xtea: data length %d is not a multiple of %d", len(data), BlockSize)
	}
	for i := 0; i < len(data); i += BlockSize {
		block := data[i : i+BlockSize]
		swapWords(block)
		fn(block, block)
		swapWords(block)
	}
	return nil
}

func swapWords(block []byte) {
	for i := 0; i < len(block); i += 4 {
		block[i], block[i+1], block[i+2], block[i+3] = block[i+3], block[i+2], block[i+1], block[i]
	}
}

// Pad grows data with zeroes until its length is a multiple of BlockSize.
func Pad(data []byte) []byte {
	for len(data)%BlockSize != 0 {
		data = append(data, 0)
	}
	return data
}
