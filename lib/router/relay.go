package router

import (
	"context"
	"crypto/rsa"
	"errors"
	"sync"
	"time"

	"github.com/go-i2p/go-onion/lib/crypto"
	"github.com/go-i2p/go-onion/lib/keys"
	"github.com/go-i2p/go-onion/lib/netdb"
	"github.com/go-i2p/go-onion/lib/onion"
	"github.com/go-i2p/go-onion/lib/transport"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// Outcome is the terminal state of one message at a relay.
type Outcome int

const (
	// Rejected: the layer could not be peeled or named an implausible next hop
	Rejected Outcome = iota
	// Forwarded: the next hop accepted the remainder
	Forwarded
	// Undeliverable: the layer was peeled but the next hop refused or was unreachable
	Undeliverable
)

func (o Outcome) String() string {
	switch o {
	case Forwarded:
		return "forwarded"
	case Undeliverable:
		return "undeliverable"
	default:
		return "rejected"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Observation is what a relay saw of the last message it handled. Decrypted
// and Destination are empty when the layer could not be peeled.
type Observation struct {
	Encrypted   string        `json:"encrypted"`
	Decrypted   string        `json:"decrypted"`
	Destination onion.Address `json:"destination"`
	Outcome     Outcome       `json:"outcome"`
	Err         error         `json:"-"`
	At          time.Time     `json:"at"`
}

// RelayConfig configures a Relay.
type RelayConfig struct {
	// Address is the port the relay listens on and its directory identifier
	Address onion.Address
	// Host is the listen host; empty means every interface
	Host      string
	Codec     *onion.Codec
	Transport transport.Transport
	Directory netdb.NetDB
	KeyStore  keys.KeyStore
	// Plausible lists the address ranges a peeled destination must fall in.
	// Empty disables the check.
	Plausible []AddressRange
	// Limiter bounds inbound messages; nil means unlimited
	Limiter *InboundLimiter
}

// Relay peels exactly one layer from each inbound message and forwards the
// remainder to the address the layer names.
type Relay struct {
	cfg        RelayConfig
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	server     *nodeServer

	mu       sync.RWMutex
	last     *Observation
	received uint64
	counts   map[Outcome]uint64

	inflight sync.WaitGroup
}

// NewRelay creates a relay. The key is read from the keystore once.
func NewRelay(cfg RelayConfig) (*Relay, error) {
	if cfg.Codec == nil || cfg.Transport == nil || cfg.KeyStore == nil {
		return nil, oops.Errorf("relay requires a codec, transport and keystore")
	}
	if cfg.Address == 0 {
		return nil, oops.Errorf("relay address cannot be zero")
	}
	pub, priv, err := cfg.KeyStore.GetKeys()
	if err != nil {
		return nil, oops.Wrapf(err, "relay %s has no key", cfg.Address)
	}
	r := &Relay{
		cfg:        cfg,
		privateKey: priv,
		publicKey:  pub,
		counts:     make(map[Outcome]uint64),
	}
	r.server = newNodeServer("relay-"+cfg.Address.String(), cfg.Host, cfg.Address, r.Handler())
	return r, nil
}

// Address returns the relay's identifier.
func (r *Relay) Address() onion.Address {
	return r.cfg.Address
}

// PublicKey returns the key layers for this relay are wrapped to.
func (r *Relay) PublicKey() *rsa.PublicKey {
	return r.publicKey
}

// Register publishes the relay's public key to the directory.
func (r *Relay) Register(ctx context.Context) error {
	if r.cfg.Directory == nil {
		return oops.Errorf("relay %s has no directory to register with", r.cfg.Address)
	}
	encoded, err := crypto.ExportPublicKey(r.publicKey)
	if err != nil {
		return err
	}
	if err := r.cfg.Directory.Register(ctx, netdb.NodeRecord{ID: r.cfg.Address, PublicKey: encoded}); err != nil {
		return oops.Wrapf(err, "relay %s failed to register", r.cfg.Address)
	}
	log.WithFields(logger.Fields{
		"at":      "(Relay) Register",
		"address": r.cfg.Address,
	}).Info("Relay registered with directory")
	return nil
}

// Start registers with the directory and begins serving HTTP.
func (r *Relay) Start(ctx context.Context) error {
	if err := r.Register(ctx); err != nil {
		return err
	}
	return r.server.start()
}

// Stop shuts down the listener and waits for messages being processed.
func (r *Relay) Stop(ctx context.Context) error {
	err := r.server.stop(ctx)
	r.inflight.Wait()
	return err
}

// Receive is the in-process entry point, suitable as a transport.Handler.
// Only rate limiting is reported to the caller; what happens to an accepted
// message is not.
func (r *Relay) Receive(ctx context.Context, message string) error {
	if err := r.cfg.Limiter.Allow(); err != nil {
		return err
	}
	r.Handle(ctx, message)
	return nil
}

// Handle peels one layer from message and forwards the remainder.
func (r *Relay) Handle(ctx context.Context, message string) Outcome {
	obs := &Observation{Encrypted: message, At: time.Now()}
	defer r.record(obs)

	next, remainder, err := r.cfg.Codec.Peel(message, r.privateKey)
	if err != nil {
		var derr *onion.DecryptionError
		stage := ""
		if errors.As(err, &derr) {
			stage = derr.Stage
		}
		log.WithFields(logger.Fields{
			"at":           "(Relay) Handle",
			"relay":        r.cfg.Address,
			"stage":        stage,
			"incoming_len": len(message),
		}).Warn("Dropping message that could not be peeled")
		obs.Outcome, obs.Err = Rejected, err
		return Rejected
	}
	obs.Decrypted, obs.Destination = remainder, next

	if err := checkDestination(next, r.cfg.Plausible); err != nil {
		log.WithFields(logger.Fields{
			"at":    "(Relay) Handle",
			"relay": r.cfg.Address,
			"next":  next,
		}).Warn("Dropping message with implausible destination")
		obs.Outcome, obs.Err = Rejected, err
		return Rejected
	}

	if err := r.cfg.Transport.Deliver(ctx, next, remainder); err != nil {
		log.WithFields(logger.Fields{
			"at":     "(Relay) Handle",
			"relay":  r.cfg.Address,
			"next":   next,
			"reason": err.Error(),
		}).Warn("Next hop did not accept the message")
		obs.Outcome, obs.Err = Undeliverable, err
		return Undeliverable
	}

	log.WithFields(logger.Fields{
		"at":            "(Relay) Handle",
		"relay":         r.cfg.Address,
		"next":          next,
		"incoming_len":  len(message),
		"forwarded_len": len(remainder),
	}).Debug("Forwarded message")
	obs.Outcome = Forwarded
	return Forwarded
}

func (r *Relay) record(obs *Observation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = obs
	r.received++
	r.counts[obs.Outcome]++
}

// LastObserved returns a copy of what the relay saw of its last message.
func (r *Relay) LastObserved() (Observation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return Observation{}, false
	}
	return *r.last, true
}

// RelayStatus summarises a relay for GET /status.
type RelayStatus struct {
	Address     onion.Address     `json:"nodeId"`
	Role        string            `json:"role"`
	Received    uint64            `json:"received"`
	Outcomes    map[string]uint64 `json:"outcomes"`
	LastOutcome string            `json:"lastOutcome,omitempty"`
	Limiter     LimiterStats      `json:"limiter"`
}

// Status returns the relay's counters.
func (r *Relay) Status() RelayStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := RelayStatus{
		Address:  r.cfg.Address,
		Role:     "relay",
		Received: r.received,
		Outcomes: make(map[string]uint64, len(r.counts)),
		Limiter:  r.cfg.Limiter.Stats(),
	}
	for o, n := range r.counts {
		st.Outcomes[o.String()] = n
	}
	if r.last != nil {
		st.LastOutcome = r.last.Outcome.String()
	}
	return st
}
