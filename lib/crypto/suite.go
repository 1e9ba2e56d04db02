package crypto

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-i2p/crypto/rand"
	"github.com/samber/oops"
)

// SymmetricSuite seals and opens a single onion layer payload.
// Seal output is iv || ciphertext with a fixed IVSize prefix.
type SymmetricSuite interface {
	// Name is the identifier used in configuration
	Name() string
	// KeySize is the layer key length in bytes
	KeySize() int
	// IVSize is the fixed length of the iv prefix of sealed output
	IVSize() int
	// GenerateKey returns a fresh random layer key
	GenerateKey() ([]byte, error)
	// Seal encrypts plaintext under key with a fresh random iv
	Seal(key, plaintext []byte) ([]byte, error)
	// Open reverses Seal; it fails on a wrong key, tampering or bad framing
	Open(key, sealed []byte) ([]byte, error)
}

const (
	SuiteChaCha20Poly1305 = "chacha20-poly1305"
	SuiteAESCBC           = "aes-256-cbc"
)

var (
	ErrUnknownSuite        = errors.New("unknown symmetric suite")
	ErrCiphertextTooShort  = errors.New("ciphertext too short")
	ErrAuthenticationFails = errors.New("message authentication failed")
	ErrInvalidPadding      = errors.New("invalid padding")
)

var suites = map[string]func() SymmetricSuite{
	SuiteChaCha20Poly1305: func() SymmetricSuite { return ChaCha20Poly1305Suite{} },
	SuiteAESCBC:           func() SymmetricSuite { return AESCBCSuite{} },
}

// SuiteByName returns the suite registered under name.
func SuiteByName(name string) (SymmetricSuite, error) {
	ctor, ok := suites[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSuite, name)
	}
	return ctor(), nil
}

// SuiteNames lists the registered suites in sorted order.
func SuiteNames() []string {
	names := make([]string, 0, len(suites))
	for name := range suites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func randomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, oops.Wrapf(err, "failed to read random data")
	}
	return buf, nil
}

func checkKey(key []byte, size int) error {
	if len(key) != size {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeySize, len(key), size)
	}
	return nil
}
