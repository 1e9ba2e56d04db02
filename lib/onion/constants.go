package onion

import (
	"crypto/rsa"
	"strconv"

	"github.com/go-i2p/go-onion/lib/crypto"
)

// Address identifies a node. Relays and users are addressed by the port they listen on.
type Address uint64

func (a Address) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// Hop is one relay of a circuit together with the key its layer is wrapped to.
type Hop struct {
	Address   Address
	PublicKey *rsa.PublicKey
}

// WrappedKeyWidth is the encoded width of a wrapped layer key: 256 bytes of
// RSA-OAEP output in padded base64.
const WrappedKeyWidth = (crypto.WrappedKeySize + 2) / 3 * 4

// DefaultDestinationWidth is the number of decimal digits of the destination field.
const DefaultDestinationWidth = 10
