package tunnel

import (
	"fmt"

	"github.com/go-i2p/go-onion/lib/onion"
)

// InsufficientNodesError is returned when the directory knows fewer distinct
// relays than the circuit length.
type InsufficientNodesError struct {
	Need int
	Have int
}

func (e *InsufficientNodesError) Error() string {
	return fmt.Sprintf("insufficient nodes: need %d distinct relays, have %d", e.Need, e.Have)
}

// UnknownNodeError is returned when a circuit relay has no usable directory
// entry: it is missing from the snapshot or its key cannot be imported.
type UnknownNodeError struct {
	ID  onion.Address
	Err error
}

func (e *UnknownNodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unknown node %s: %v", e.ID, e.Err)
	}
	return fmt.Sprintf("unknown node %s: no directory entry", e.ID)
}

func (e *UnknownNodeError) Unwrap() error {
	return e.Err
}
