package netdb

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-i2p/go-onion/lib/onion"
)

// NodeRecord is one directory entry. It is immutable once registered.
type NodeRecord struct {
	ID        onion.Address `json:"nodeId" yaml:"id"`
	PublicKey string        `json:"pubKey" yaml:"public_key"`
}

// NetDB is the directory as seen by relays (Register) and senders (ListNodes).
type NetDB interface {
	Register(ctx context.Context, record NodeRecord) error
	ListNodes(ctx context.Context) ([]NodeRecord, error)
}

var ErrInvalidRecord = errors.New("invalid node record")

func validateRecord(record NodeRecord) error {
	if record.PublicKey == "" {
		return fmt.Errorf("%w: node %s has no public key", ErrInvalidRecord, record.ID)
	}
	return nil
}

func sortRecords(records []NodeRecord) {
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
}
