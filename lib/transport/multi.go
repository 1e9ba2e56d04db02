package transport

import (
	"context"
	"strings"

	"github.com/go-i2p/go-onion/lib/onion"
	"github.com/go-i2p/logger"
)

// Compile-time check that TransportMuxer implements Transport interface
var _ Transport = (*TransportMuxer)(nil)

// muxes multiple transports into 1 Transport
type TransportMuxer struct {
	// the underlying transports in order of preference
	trans []Transport
}

// mux a bunch of transports together
func Mux(t ...Transport) *TransportMuxer {
	log.WithFields(logger.Fields{
		"at":              "Mux",
		"transport_count": len(t),
	}).Debug("creating new TransportMuxer")
	tmux := new(TransportMuxer)
	tmux.trans = append(tmux.trans, t...)
	return tmux
}

// the name of this transport with the names of all the ones that we mux
func (tmux *TransportMuxer) Name() string {
	names := make([]string, len(tmux.trans))
	for i, t := range tmux.trans {
		names[i] = t.Name()
	}
	return "Muxed Transport: " + strings.Join(names, ", ")
}

// is there a transport that we mux that can reach this address?
func (tmux *TransportMuxer) Compatible(to onion.Address) bool {
	for _, t := range tmux.trans {
		if t.Compatible(to) {
			return true
		}
	}
	return false
}

// Deliver uses the first compatible transport only. Falling through to the
// next one after a failure could hand the same message over twice.
func (tmux *TransportMuxer) Deliver(ctx context.Context, to onion.Address, payload string) error {
	for i, t := range tmux.trans {
		if !t.Compatible(to) {
			continue
		}
		log.WithFields(logger.Fields{
			"at":              "(TransportMuxer) Deliver",
			"to":              to,
			"transport_index": i,
			"transport":       t.Name(),
		}).Debug("found compatible transport")
		return t.Deliver(ctx, to, payload)
	}

	log.WithFields(logger.Fields{
		"at":             "(TransportMuxer) Deliver",
		"reason":         "no_compatible_transport",
		"to":             to,
		"num_transports": len(tmux.trans),
	}).Warn("no transport can reach address")
	return &DeliveryError{Address: to, Transport: tmux.Name(), Err: ErrNoTransportAvailable}
}

// close every transport that this transport muxer has
func (tmux *TransportMuxer) Close() (err error) {
	for i, t := range tmux.trans {
		if cerr := t.Close(); cerr != nil {
			// Log error but continue closing remaining transports
			log.WithFields(logger.Fields{
				"at":              "(TransportMuxer) Close",
				"reason":          "transport_close_failed",
				"transport_index": i,
				"error":           cerr.Error(),
			}).Warn("error closing transport")
			err = cerr
		}
	}
	return err
}
