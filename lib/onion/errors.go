package onion

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPath is returned by Wrap when no hops are given
	ErrEmptyPath = errors.New("onion path cannot be empty")

	// ErrDestinationOverflow is returned when an address has more digits than
	// the destination field. The field is never widened implicitly: every
	// participant must agree on its width.
	ErrDestinationOverflow = errors.New("address does not fit in destination field")

	// ErrMalformedDestination is returned when a destination field is not a
	// fixed width run of decimal digits
	ErrMalformedDestination = errors.New("malformed destination field")
)

// Peel stages reported by DecryptionError.
const (
	StageSplit  = "split"
	StageDecode = "decode"
	StageUnwrap = "unwrap"
	StageOpen   = "open"
	StageFrame  = "frame"
)

// DecryptionError reports that a relay could not remove its layer: the layer
// was addressed to another relay, was corrupted, or was badly framed.
type DecryptionError struct {
	Stage string
	Err   error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("onion: decryption failed at %s: %v", e.Stage, e.Err)
}

func (e *DecryptionError) Unwrap() error {
	return e.Err
}

func decryptionError(stage string, err error) *DecryptionError {
	return &DecryptionError{Stage: stage, Err: err}
}
