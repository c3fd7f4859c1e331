package encryption

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
)

// RSABlockSize is the size of an encrypted block for the 1024-bit key the
// client is built with.
const RSABlockSize = 128

var ErrDecryptionFailed = errors.New("rsa block could not be decrypted")

// RSAKey performs the textbook (unpadded) RSA operations the client expects.
// A correctly decrypted block always starts with a zero byte.
type RSAKey struct {
	key *rsa.PrivateKey
}

// NewRSAKey wraps an already parsed private key.
func NewRSAKey(key *rsa.PrivateKey) *RSAKey {
	key.Precompute()
	return &RSAKey{key: key}
}

// GenerateRSAKey creates a fresh 1024-bit key.
func GenerateRSAKey() (*RSAKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, RSABlockSize*8)
	if err != nil {
		return nil, fmt.Errorf("generating rsa key: %w", err)
	}
	return NewRSAKey(key), nil
}

// LoadRSAKey reads a PEM encoded private key in either PKCS#1 or PKCS#8 form.
func LoadRSAKey(path string) (*RSAKey, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rsa key file: %w", err)
	}
	return ParseRSAKey(contents)
}

func ParseRSAKey(pemBytes []byte) (*RSAKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM data found in rsa key")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return NewRSAKey(key), nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing rsa key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("expected an RSA private key, got %T", parsed)
	}
	return NewRSAKey(key), nil
}

// MarshalPEM encodes the key in PKCS#1 form.
func (k *RSAKey) MarshalPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(k.key),
	})
}

// Modulus returns the public modulus in the decimal form clients are patched with.
func (k *RSAKey) Modulus() string {
	return k.key.N.String()
}

// Decrypt decrypts the first RSABlockSize bytes of data in place.
func (k *RSAKey) Decrypt(data []byte) error {
	if len(data) < RSABlockSize {
		return ErrDecryptionFailed
	}
	block := data[:RSABlockSize]

	c := new(big.Int).SetBytes(block)
	if c.Cmp(k.key.N) >= 0 {
		return ErrDecryptionFailed
	}
	m := new(big.Int).Exp(c, k.key.D, k.key.N)
	m.FillBytes(block)

	if block[0] != 0 {
		return ErrDecryptionFailed
	}
	return nil
}

// Encrypt encrypts the first RSABlockSize bytes of data in place with the
// public half of the key. data[0] must be zero for the block to round trip.
func (k *RSAKey) Encrypt(data []byte) error {
	if len(data) < RSABlockSize {
		return fmt.Errorf("rsa: block needs %d bytes, got %d", RSABlockSize, len(data))
	}
	block := data[:RSABlockSize]

	m := new(big.Int).SetBytes(block)
	c := new(big.Int).Exp(m, big.NewInt(int64(k.key.E)), k.key.N)
	c.FillBytes(block)
	return nil
}
