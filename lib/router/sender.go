package router

import (
	"context"
	"sync"
	"time"

	"github.com/go-i2p/go-onion/lib/netdb"
	"github.com/go-i2p/go-onion/lib/onion"
	"github.com/go-i2p/go-onion/lib/transport"
	"github.com/go-i2p/go-onion/lib/tunnel"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// SentMessage records the last message a Sender handed to its first hop.
type SentMessage struct {
	Circuit     tunnel.Circuit `json:"circuit"`
	Plaintext   string         `json:"message"`
	Destination onion.Address  `json:"destinationUserId"`
	SentAt      time.Time      `json:"sentAt"`
}

// Sender builds a fresh circuit for every message, wraps the message for it
// and delivers the onion to the first hop.
type Sender struct {
	directory netdb.NetDB
	builder   *tunnel.Builder
	codec     *onion.Codec
	transport transport.Transport

	mu   sync.RWMutex
	last *SentMessage
}

// NewSender wires a sender to its collaborators. None may be nil.
func NewSender(directory netdb.NetDB, builder *tunnel.Builder, codec *onion.Codec, tr transport.Transport) (*Sender, error) {
	if directory == nil || builder == nil || codec == nil || tr == nil {
		return nil, oops.Errorf("sender requires a directory, circuit builder, codec and transport")
	}
	return &Sender{directory: directory, builder: builder, codec: codec, transport: tr}, nil
}

// Send takes one directory snapshot, picks a circuit from it and delivers
// the wrapped message to the circuit's first relay. Circuit selection and
// key resolution both complete before anything is sent, so a failure there
// never leaves a partial onion on the network. The error is the first hop's
// delivery result only: what happens further along the circuit is never
// reported back.
func (s *Sender) Send(ctx context.Context, plaintext string, destination onion.Address) error {
	nodes, err := s.directory.ListNodes(ctx)
	if err != nil {
		return oops.Wrapf(err, "failed to fetch node registry")
	}

	circuit, err := s.builder.Build(nodes)
	if err != nil {
		return err
	}
	hops, err := tunnel.Resolve(circuit, nodes)
	if err != nil {
		log.WithFields(logger.Fields{
			"at":     "(Sender) Send",
			"reason": err.Error(),
		}).Warn("Circuit has a relay without a usable key")
		return err
	}

	wire, err := s.codec.Wrap(plaintext, destination, hops)
	if err != nil {
		return err
	}

	log.WithFields(logger.Fields{
		"at":          "(Sender) Send",
		"circuit":     circuit.String(),
		"destination": destination,
		"wire_len":    len(wire),
	}).Debug("Sending onion to first hop")

	if err := s.transport.Deliver(ctx, circuit[0], wire); err != nil {
		log.WithFields(logger.Fields{
			"at":        "(Sender) Send",
			"first_hop": circuit[0],
			"reason":    err.Error(),
		}).Warn("First hop did not accept the message")
		return err
	}

	s.mu.Lock()
	s.last = &SentMessage{
		Circuit:     append(tunnel.Circuit(nil), circuit...),
		Plaintext:   plaintext,
		Destination: destination,
		SentAt:      time.Now(),
	}
	s.mu.Unlock()
	return nil
}

// LastSent returns a copy of the most recent message handed to a first hop.
func (s *Sender) LastSent() (SentMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return SentMessage{}, false
	}
	msg := *s.last
	msg.Circuit = append(tunnel.Circuit(nil), s.last.Circuit...)
	return msg, true
}
