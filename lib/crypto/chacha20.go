package crypto

import (
	"golang.org/x/crypto/chacha20poly1305"
)

// ChaCha20Poly1305Suite is the default authenticated layer cipher.
type ChaCha20Poly1305Suite struct{}

func (ChaCha20Poly1305Suite) Name() string { return SuiteChaCha20Poly1305 }
func (ChaCha20Poly1305Suite) KeySize() int { return chacha20poly1305.KeySize }
func (ChaCha20Poly1305Suite) IVSize() int  { return chacha20poly1305.NonceSize }

func (s ChaCha20Poly1305Suite) GenerateKey() ([]byte, error) {
	return randomBytes(s.KeySize())
}

// Seal encrypts plaintext with a random 12 byte nonce prepended to the output.
func (s ChaCha20Poly1305Suite) Seal(key, plaintext []byte) ([]byte, error) {
	if err := checkKey(key, s.KeySize()); err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce, err := randomBytes(aead.NonceSize())
	if err != nil {
		return nil, err
	}
	log.WithField("plaintext_length", len(plaintext)).Debug("Sealing layer with ChaCha20-Poly1305")
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open authenticates and decrypts nonce || ciphertext.
func (s ChaCha20Poly1305Suite) Open(key, sealed []byte) ([]byte, error) {
	if err := checkKey(key, s.KeySize()); err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthenticationFails
	}
	return plaintext, nil
}

var _ SymmetricSuite = ChaCha20Poly1305Suite{}
