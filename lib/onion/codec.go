package onion

import (
	"crypto/rsa"
	"fmt"

	"github.com/go-i2p/common/base64"
	"github.com/go-i2p/go-onion/lib/crypto"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// Codec wraps and peels onion layers. A Codec is immutable and safe for
// concurrent use; every participant of a network must use an identically
// configured Codec.
type Codec struct {
	suite            crypto.SymmetricSuite
	destinationWidth int
}

// NewCodec creates a codec sealing layers with suite and framing destinations
// in destinationWidth decimal digits.
func NewCodec(suite crypto.SymmetricSuite, destinationWidth int) (*Codec, error) {
	if suite == nil {
		return nil, oops.Errorf("symmetric suite cannot be nil")
	}
	if destinationWidth < 1 || destinationWidth > 19 {
		return nil, oops.Errorf("destination width must be between 1 and 19, got %d", destinationWidth)
	}
	return &Codec{suite: suite, destinationWidth: destinationWidth}, nil
}

// NewCodecByName resolves the suite by its configured name.
func NewCodecByName(suite string, destinationWidth int) (*Codec, error) {
	s, err := crypto.SuiteByName(suite)
	if err != nil {
		return nil, err
	}
	return NewCodec(s, destinationWidth)
}

// DefaultCodec uses ChaCha20-Poly1305 and a 10 digit destination field.
func DefaultCodec() *Codec {
	return &Codec{suite: crypto.ChaCha20Poly1305Suite{}, destinationWidth: DefaultDestinationWidth}
}

// Suite returns the symmetric suite layers are sealed with.
func (c *Codec) Suite() crypto.SymmetricSuite {
	return c.suite
}

// DestinationWidth returns the width of the destination field.
func (c *Codec) DestinationWidth() int {
	return c.destinationWidth
}

// Wrap encloses plaintext in one layer per hop so that path[0] peels first
// and path[len(path)-1] reveals destination. Layers are built innermost
// first, each with its own fresh key and IV.
func (c *Codec) Wrap(plaintext string, destination Address, path []Hop) (string, error) {
	if len(path) == 0 {
		return "", ErrEmptyPath
	}
	// Fail before any key is generated when the final address cannot be framed
	if _, err := EncodeDestination(destination, c.destinationWidth); err != nil {
		return "", err
	}

	current := plaintext
	for i := len(path) - 1; i >= 0; i-- {
		next := destination
		if i < len(path)-1 {
			next = path[i+1].Address
		}
		layer, err := c.wrapLayer(current, next, path[i])
		if err != nil {
			return "", fmt.Errorf("failed to wrap layer for hop %d (%s): %w", i, path[i].Address, err)
		}
		current = layer
	}

	log.WithFields(logger.Fields{
		"at":            "(Codec) Wrap",
		"hops":          len(path),
		"first_hop":     path[0].Address,
		"plaintext_len": len(plaintext),
		"wire_len":      len(current),
	}).Debug("Wrapped onion")
	return current, nil
}

// wrapLayer produces wrappedKey || base64(iv || Seal(destinationField || inner)).
func (c *Codec) wrapLayer(inner string, next Address, hop Hop) (string, error) {
	field, err := EncodeDestination(next, c.destinationWidth)
	if err != nil {
		return "", err
	}

	key, err := c.suite.GenerateKey()
	if err != nil {
		return "", err
	}
	defer zero(key)

	sealed, err := c.suite.Seal(key, []byte(field+inner))
	if err != nil {
		return "", err
	}
	wrappedKey, err := crypto.WrapKey(hop.PublicKey, key)
	if err != nil {
		return "", err
	}

	encodedKey := base64.EncodeToString(wrappedKey)
	if len(encodedKey) != WrappedKeyWidth {
		return "", oops.Errorf("wrapped key encodes to %d characters, want %d", len(encodedKey), WrappedKeyWidth)
	}
	return encodedKey + base64.EncodeToString(sealed), nil
}

// Peel removes the layer addressed to priv and returns the next destination
// together with the remainder, which is opaque to the caller. Every failure
// is a *DecryptionError.
func (c *Codec) Peel(message string, priv *rsa.PrivateKey) (Address, string, error) {
	encodedKey, encodedSealed, err := SplitLayer(message)
	if err != nil {
		return 0, "", err
	}

	wrappedKey, err := base64.DecodeString(encodedKey)
	if err != nil {
		return 0, "", decryptionError(StageDecode, err)
	}
	key, err := crypto.UnwrapKey(priv, wrappedKey)
	if err != nil {
		return 0, "", decryptionError(StageUnwrap, err)
	}
	defer zero(key)

	sealed, err := base64.DecodeString(encodedSealed)
	if err != nil {
		return 0, "", decryptionError(StageDecode, err)
	}
	if len(sealed) <= c.suite.IVSize() {
		return 0, "", decryptionError(StageSplit, crypto.ErrCiphertextTooShort)
	}
	framed, err := c.suite.Open(key, sealed)
	if err != nil {
		return 0, "", decryptionError(StageOpen, err)
	}

	if len(framed) < c.destinationWidth {
		return 0, "", decryptionError(StageFrame, fmt.Errorf("%w: payload shorter than field", ErrMalformedDestination))
	}
	next, err := DecodeDestination(string(framed[:c.destinationWidth]), c.destinationWidth)
	if err != nil {
		return 0, "", decryptionError(StageFrame, err)
	}
	remainder := string(framed[c.destinationWidth:])

	log.WithFields(logger.Fields{
		"at":            "(Codec) Peel",
		"next":          next,
		"incoming_len":  len(message),
		"remainder_len": len(remainder),
	}).Debug("Peeled onion layer")
	return next, remainder, nil
}

// SplitLayer splits a wire message at the fixed wrapped key width.
func SplitLayer(message string) (wrappedKey, sealed string, err error) {
	if len(message) <= WrappedKeyWidth {
		return "", "", decryptionError(StageSplit, fmt.Errorf("message of %d characters is too short for a layer", len(message)))
	}
	return message[:WrappedKeyWidth], message[WrappedKeyWidth:], nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
