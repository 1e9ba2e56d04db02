package tunnel

import (
	"fmt"
	"strings"

	"github.com/go-i2p/crypto/rand"
	"github.com/go-i2p/go-onion/lib/crypto"
	"github.com/go-i2p/go-onion/lib/netdb"
	"github.com/go-i2p/go-onion/lib/onion"
	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// Circuit is the ordered list of relays a message traverses; Circuit[0] is
// the first hop.
type Circuit []onion.Address

func (c Circuit) String() string {
	parts := make([]string, len(c))
	for i, addr := range c {
		parts[i] = addr.String()
	}
	return strings.Join(parts, " -> ")
}

// Builder picks circuits of a fixed length.
type Builder struct {
	length int
	intn   func(n int) int
}

// NewBuilder creates a builder for circuits of length hops.
func NewBuilder(length int) (*Builder, error) {
	if length < 1 {
		return nil, fmt.Errorf("circuit length must be positive, got %d", length)
	}
	return &Builder{length: length, intn: rand.Intn}, nil
}

// Length returns the number of hops of every circuit this builder produces.
func (b *Builder) Length() int {
	return b.length
}

// Build samples b.Length() distinct relay identifiers uniformly from nodes.
// Duplicate records for one identifier count once. The pool is checked
// before sampling, so a pool that is too small fails immediately with
// *InsufficientNodesError instead of looping.
func (b *Builder) Build(nodes []netdb.NodeRecord) (Circuit, error) {
	distinct := countDistinct(nodes)
	if distinct < b.length {
		log.WithFields(logger.Fields{
			"at":       "(Builder) Build",
			"need":     b.length,
			"distinct": distinct,
			"reason":   "insufficient_nodes",
		}).Warn("Cannot build circuit")
		return nil, &InsufficientNodesError{Need: b.length, Have: distinct}
	}

	circuit := make(Circuit, 0, b.length)
	seen := make(map[onion.Address]struct{}, b.length)
	for len(circuit) < b.length {
		id := nodes[b.intn(len(nodes))].ID
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		circuit = append(circuit, id)
	}

	log.WithFields(logger.Fields{
		"at":      "(Builder) Build",
		"circuit": circuit.String(),
		"pool":    distinct,
	}).Debug("Built circuit")
	return circuit, nil
}

func countDistinct(nodes []netdb.NodeRecord) int {
	ids := make(map[onion.Address]struct{}, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = struct{}{}
	}
	return len(ids)
}

// Resolve pairs every circuit relay with its imported public key. It fails
// with *UnknownNodeError on the first relay that has no usable key, so a
// caller never wraps a partial onion.
func Resolve(circuit Circuit, nodes []netdb.NodeRecord) ([]onion.Hop, error) {
	keys := make(map[onion.Address]string, len(nodes))
	for _, n := range nodes {
		keys[n.ID] = n.PublicKey
	}

	hops := make([]onion.Hop, len(circuit))
	for i, id := range circuit {
		encoded, ok := keys[id]
		if !ok || encoded == "" {
			return nil, &UnknownNodeError{ID: id}
		}
		pub, err := crypto.ImportPublicKey(encoded)
		if err != nil {
			return nil, &UnknownNodeError{ID: id, Err: err}
		}
		hops[i] = onion.Hop{Address: id, PublicKey: pub}
	}
	return hops, nil
}
