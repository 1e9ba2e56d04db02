package transport

import (
	"errors"
	"fmt"

	"github.com/go-i2p/go-onion/lib/onion"
)

var (
	// error for when we have no transports available to use
	ErrNoTransportAvailable = errors.New("no transports available")
	// ErrUnreachable is returned when nothing listens on the target address
	ErrUnreachable = errors.New("address unreachable")
)

// DeliveryError reports a hand-off to the next hop that did not complete.
// StatusCode is set when the peer answered with a non-2xx HTTP status.
type DeliveryError struct {
	Address    onion.Address
	Transport  string
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("delivery to %s over %s failed: status %d", e.Address, e.Transport, e.StatusCode)
	}
	return fmt.Sprintf("delivery to %s over %s failed: %v", e.Address, e.Transport, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
