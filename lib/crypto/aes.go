package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"

	"github.com/go-i2p/logger"
)

// AESCBCSuite is AES-256-CBC with PKCS#7 padding. It is not authenticated:
// tampering is only detected when it corrupts the padding of the last block.
type AESCBCSuite struct{}

func (AESCBCSuite) Name() string { return SuiteAESCBC }
func (AESCBCSuite) KeySize() int { return 32 }
func (AESCBCSuite) IVSize() int  { return aes.BlockSize }

func (s AESCBCSuite) GenerateKey() ([]byte, error) {
	return randomBytes(s.KeySize())
}

// Seal encrypts data using AES-CBC with PKCS#7 padding under a random IV.
func (s AESCBCSuite) Seal(key, data []byte) ([]byte, error) {
	if err := checkKey(key, s.KeySize()); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		log.WithError(err).Error("Failed to create AES cipher")
		return nil, err
	}
	iv, err := randomBytes(aes.BlockSize)
	if err != nil {
		return nil, err
	}

	plaintext := pkcs7Pad(data, aes.BlockSize)
	out := make([]byte, aes.BlockSize+len(plaintext))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], plaintext)

	log.WithField("ciphertext_length", len(plaintext)).Debug("Layer sealed with AES-256-CBC")
	return out, nil
}

// Open decrypts iv || ciphertext and strips the padding.
func (s AESCBCSuite) Open(key, sealed []byte) ([]byte, error) {
	if err := checkKey(key, s.KeySize()); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		log.WithError(err).Error("Failed to create AES cipher")
		return nil, err
	}
	if len(sealed) < 2*aes.BlockSize {
		return nil, ErrCiphertextTooShort
	}
	iv, data := sealed[:aes.BlockSize], sealed[aes.BlockSize:]
	if len(data)%aes.BlockSize != 0 {
		log.Warn("Ciphertext is not a multiple of the block size")
		return nil, ErrInvalidPadding
	}

	plaintext := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, data)
	return pkcs7Unpad(plaintext)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - (len(data) % blockSize)
	padText := bytes.Repeat([]byte{byte(padding)}, padding)
	padded := make([]byte, 0, len(data)+padding)
	return append(append(padded, data...), padText...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	length := len(data)
	if length == 0 {
		return nil, ErrInvalidPadding
	}
	padding := int(data[length-1])
	if padding == 0 || padding > aes.BlockSize || padding > length {
		log.WithFields(logger.Fields{
			"at":      "pkcs7Unpad",
			"padding": padding,
		}).Debug("Invalid padding")
		return nil, ErrInvalidPadding
	}
	for _, b := range data[length-padding:] {
		if b != byte(padding) {
			return nil, ErrInvalidPadding
		}
	}
	return data[:length-padding], nil
}

var _ SymmetricSuite = AESCBCSuite{}
