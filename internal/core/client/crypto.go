package client

import "github.com/dcrodman/otgate/internal/encryption"

// CryptoSession is an interface for the cryptographic operations required
// to exchange messages with a game client once the key exchange is complete.
type CryptoSession interface {
	// Encrypt encrypts bytes in place. len(bytes) must be block aligned.
	Encrypt(bytes []byte) error

	// Decrypt decrypts bytes in place. len(bytes) must be block aligned.
	Decrypt(bytes []byte) error
}

// NewXTEACryptoSession returns a CryptoSession keyed with the four words the
// client sent inside its RSA block. Both directions share the key.
func NewXTEACryptoSession(key [4]uint32) (CryptoSession, error) {
	return encryption.NewXTEA(key)
}
