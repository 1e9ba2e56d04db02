package transport

import (
	"context"

	"github.com/go-i2p/go-onion/lib/onion"
	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// Transport moves one wire message to one address.
type Transport interface {
	// Name of the transport, for logs
	Name() string
	// Compatible reports whether this transport can reach the address
	Compatible(to onion.Address) bool
	// Deliver hands payload to the node at to. It returns once the peer has
	// accepted the message or the hand-off failed; every failure is a
	// *DeliveryError.
	Deliver(ctx context.Context, to onion.Address, payload string) error
	// Close releases any resources held by the transport
	Close() error
}
