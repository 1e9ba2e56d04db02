package crypto

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/go-i2p/common/base64"
	"github.com/go-i2p/crypto/rand"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

const (
	// RSAKeyBits is the modulus size of every relay key
	RSAKeyBits = 2048

	// WrappedKeySize is the raw RSA-OAEP output length for RSAKeyBits
	WrappedKeySize = RSAKeyBits / 8
)

var (
	ErrInvalidKeySize   = errors.New("invalid key size")
	ErrInvalidPublicKey = errors.New("invalid public key")
	ErrUnwrapFailed     = errors.New("key unwrap failed")
)

// GenerateKeyPair creates a fresh RSA-2048 key pair.
func GenerateKeyPair() (*rsa.PrivateKey, error) {
	log.Debug("Generating RSA-2048 key pair")
	priv, err := rsa.GenerateKey(rand.Reader, RSAKeyBits)
	if err != nil {
		log.WithError(err).Error("Failed to generate RSA key pair")
		return nil, oops.Wrapf(err, "failed to generate RSA key pair")
	}
	return priv, nil
}

// ExportPublicKey encodes a public key as PKIX DER in I2P base64.
func ExportPublicKey(pub *rsa.PublicKey) (string, error) {
	if pub == nil {
		return "", ErrInvalidPublicKey
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", oops.Wrapf(err, "failed to marshal public key")
	}
	return base64.EncodeToString(der), nil
}

// ImportPublicKey reverses ExportPublicKey. Only RSA keys of RSAKeyBits are accepted.
func ImportPublicKey(encoded string) (*rsa.PublicKey, error) {
	der, err := base64.DecodeString(encoded)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to decode public key")
	}
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to parse public key")
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidPublicKey)
	}
	if pub.Size() != WrappedKeySize {
		return nil, fmt.Errorf("%w: %d bit modulus, want %d", ErrInvalidKeySize, pub.N.BitLen(), RSAKeyBits)
	}
	return pub, nil
}

// ExportPrivateKey encodes a private key as PKCS#8 DER in I2P base64.
func ExportPrivateKey(priv *rsa.PrivateKey) (string, error) {
	if priv == nil {
		return "", oops.Errorf("private key cannot be nil")
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", oops.Wrapf(err, "failed to marshal private key")
	}
	return base64.EncodeToString(der), nil
}

// ImportPrivateKey reverses ExportPrivateKey.
func ImportPrivateKey(encoded string) (*rsa.PrivateKey, error) {
	der, err := base64.DecodeString(encoded)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to decode private key")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to parse private key")
	}
	priv, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, oops.Errorf("private key is not an RSA key")
	}
	if priv.Size() != WrappedKeySize {
		return nil, fmt.Errorf("%w: %d bit modulus, want %d", ErrInvalidKeySize, priv.N.BitLen(), RSAKeyBits)
	}
	return priv, nil
}

// WrapKey encrypts a layer key to pub with RSA-OAEP/SHA-256.
// The result is always WrappedKeySize bytes.
func WrapKey(pub *rsa.PublicKey, key []byte) ([]byte, error) {
	if pub == nil {
		return nil, ErrInvalidPublicKey
	}
	if pub.Size() != WrappedKeySize {
		return nil, fmt.Errorf("%w: public key is %d bytes", ErrInvalidKeySize, pub.Size())
	}
	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, key, nil)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to wrap layer key")
	}
	return wrapped, nil
}

// UnwrapKey recovers a layer key wrapped by WrapKey.
// Any failure, including a key that belongs to a different relay, returns ErrUnwrapFailed.
func UnwrapKey(priv *rsa.PrivateKey, wrapped []byte) ([]byte, error) {
	if priv == nil {
		return nil, oops.Errorf("private key cannot be nil")
	}
	if len(wrapped) != WrappedKeySize {
		return nil, fmt.Errorf("%w: wrapped key is %d bytes, want %d", ErrUnwrapFailed, len(wrapped), WrappedKeySize)
	}
	key, err := rsa.DecryptOAEP(sha256.New(), nil, priv, wrapped, nil)
	if err != nil {
		// Do not wrap err: OAEP failures must stay indistinguishable
		return nil, ErrUnwrapFailed
	}
	return key, nil
}
