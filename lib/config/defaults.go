package config

import (
	"path/filepath"
	"time"

	"github.com/go-i2p/logger"
)

// ConfigDefaults contains all default configuration values for go-onion.
// This centralizes default values to make them easy to discover, document, and modify.
type ConfigDefaults struct {
	// Network layout (ports and node counts)
	Network NetworkDefaults

	// Protocol constants shared by every participant
	Protocol ProtocolDefaults

	// Transport between hops
	Transport TransportDefaults

	// Relay behaviour
	Relay RelayDefaults

	// Directory storage
	Directory DirectoryDefaults
}

// NetworkDefaults describes where nodes listen.
// Node identifiers are the ports they listen on.
type NetworkDefaults struct {
	// Host every node binds to and is reached on
	// Default: localhost
	Host string

	// DirectoryPort is the port of the directory server
	// Default: 8080
	DirectoryPort int

	// RelayBasePort is the port of the first relay; relay i listens on RelayBasePort+i
	// Default: 4000
	RelayBasePort int

	// UserBasePort is the port of the first user; user i listens on UserBasePort+i
	// Default: 3000
	UserBasePort int

	// RelayCount is how many relays the simulation launches
	// Default: 10
	RelayCount int

	// UserCount is how many users the simulation launches
	// Default: 2
	UserCount int
}

// ProtocolDefaults holds the onion wire format parameters.
type ProtocolDefaults struct {
	// HopCount is the circuit length
	// Default: 3
	HopCount int

	// Suite names the symmetric layer cipher
	// Default: chacha20-poly1305
	Suite string

	// DestinationWidth is the width of the zero-padded destination field
	// Default: 10
	DestinationWidth int
}

// TransportDefaults configures hop to hop delivery.
type TransportDefaults struct {
	// HopTimeout bounds a single delivery to the next hop
	// Default: 5 seconds
	HopTimeout time.Duration

	// InProcess delivers between nodes of one process without HTTP.
	// Nodes in other processes are still reached over HTTP.
	// Default: false
	InProcess bool
}

// RelayDefaults configures relay and user nodes.
type RelayDefaults struct {
	// RateLimit is the sustained number of inbound messages per second
	// Default: 50
	RateLimit float64

	// Burst is the number of inbound messages accepted above the sustained rate
	// Default: 100
	Burst int

	// ValidateDestinations rejects decrypted destinations outside the
	// configured relay and user port ranges instead of forwarding blindly
	// Default: true
	ValidateDestinations bool

	// KeyDir stores relay identities between restarts; empty means ephemeral keys
	// Default: "" (ephemeral)
	KeyDir string
}

// DirectoryDefaults configures the node directory.
type DirectoryDefaults struct {
	// Store is "memory" or "badger"
	// Default: memory
	Store string

	// Path is the badger database directory
	// Default: $HOME/.go-onion/directory
	Path string

	// SeedFile is an optional YAML file of node records loaded at startup
	// Default: ""
	SeedFile string
}

const (
	StoreMemory = "memory"
	StoreBadger = "badger"
)

// Defaults returns the default configuration.
func Defaults() ConfigDefaults {
	return ConfigDefaults{
		Network:   buildNetworkDefaults(),
		Protocol:  buildProtocolDefaults(),
		Transport: buildTransportDefaults(),
		Relay:     buildRelayDefaults(),
		Directory: buildDirectoryDefaults(),
	}
}

func buildNetworkDefaults() NetworkDefaults {
	return NetworkDefaults{
		Host:          "localhost",
		DirectoryPort: 8080,
		RelayBasePort: 4000,
		UserBasePort:  3000,
		RelayCount:    10,
		UserCount:     2,
	}
}

func buildProtocolDefaults() ProtocolDefaults {
	return ProtocolDefaults{
		HopCount:         3,
		Suite:            "chacha20-poly1305",
		DestinationWidth: 10,
	}
}

func buildTransportDefaults() TransportDefaults {
	return TransportDefaults{
		HopTimeout: 5 * time.Second,
	}
}

func buildRelayDefaults() RelayDefaults {
	return RelayDefaults{
		RateLimit:            50,
		Burst:                100,
		ValidateDestinations: true,
	}
}

func buildDirectoryDefaults() DirectoryDefaults {
	return DirectoryDefaults{
		Store: StoreMemory,
		Path:  filepath.Join(BuildOnionDirPath(), "directory"),
	}
}

// Validate checks if the provided configuration values are reasonable.
// Returns an error describing the first invalid value found.
func Validate(cfg ConfigDefaults) error {
	log.WithFields(logger.Fields{
		"at":     "Validate",
		"reason": "verification_requested",
	}).Debug("validating configuration")

	validators := []func() error{
		func() error { return validateNetwork(cfg.Network) },
		func() error { return validateProtocol(cfg.Protocol) },
		func() error { return validateTransport(cfg.Transport) },
		func() error { return validateRelay(cfg.Relay) },
		func() error { return validateDirectory(cfg.Directory) },
	}

	for _, validator := range validators {
		if err := validator(); err != nil {
			log.WithError(err).Error("Configuration validation failed")
			return err
		}
	}
	return nil
}

func validateNetwork(n NetworkDefaults) error {
	for name, port := range map[string]int{
		"Network.DirectoryPort": n.DirectoryPort,
		"Network.RelayBasePort": n.RelayBasePort,
		"Network.UserBasePort":  n.UserBasePort,
	} {
		if port < 1 || port > 65535 {
			return newValidationError(name + " must be between 1 and 65535")
		}
	}
	if n.RelayCount < 0 || n.UserCount < 0 {
		return newValidationError("Network node counts cannot be negative")
	}
	if n.RelayBasePort+n.RelayCount > 65536 || n.UserBasePort+n.UserCount > 65536 {
		return newValidationError("Network port ranges exceed 65535")
	}
	if rangesOverlap(n.RelayBasePort, n.RelayCount, n.UserBasePort, n.UserCount) {
		return newValidationError("Network relay and user port ranges overlap")
	}
	return nil
}

func rangesOverlap(aStart, aLen, bStart, bLen int) bool {
	if aLen == 0 || bLen == 0 {
		return false
	}
	return aStart < bStart+bLen && bStart < aStart+aLen
}

func validateProtocol(p ProtocolDefaults) error {
	if p.HopCount < 1 {
		return newValidationError("Protocol.HopCount must be at least 1")
	}
	if p.DestinationWidth < 5 || p.DestinationWidth > 19 {
		return newValidationError("Protocol.DestinationWidth must be between 5 and 19")
	}
	if p.Suite == "" {
		return newValidationError("Protocol.Suite cannot be empty")
	}
	return nil
}

func validateTransport(t TransportDefaults) error {
	if t.HopTimeout <= 0 {
		return newValidationError("Transport.HopTimeout must be positive")
	}
	return nil
}

func validateRelay(r RelayDefaults) error {
	if r.RateLimit <= 0 {
		return newValidationError("Relay.RateLimit must be positive")
	}
	if r.Burst < 1 {
		return newValidationError("Relay.Burst must be at least 1")
	}
	return nil
}

func validateDirectory(d DirectoryDefaults) error {
	switch d.Store {
	case StoreMemory:
	case StoreBadger:
		if d.Path == "" {
			return newValidationError("Directory.Path is required for the badger store")
		}
	default:
		return newValidationError("Directory.Store must be \"memory\" or \"badger\"")
	}
	return nil
}

// validationError is returned when configuration validation fails
type validationError struct {
	message string
}

func newValidationError(message string) error {
	return &validationError{message: message}
}

func (e *validationError) Error() string {
	return "configuration validation failed: " + e.message
}
