// Package keys persists relay identities between restarts.
package keys

import (
	"crypto/rsa"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-i2p/go-onion/lib/config"
	"github.com/go-i2p/go-onion/lib/crypto"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// KeyStore is an interface for storing and retrieving a node identity
type KeyStore interface {
	KeyID() string
	// GetKeys returns the public and private keys
	GetKeys() (*rsa.PublicKey, *rsa.PrivateKey, error)
	// StoreKeys stores the keys
	StoreKeys() error
}

// RelayKeystore keeps one RSA identity in dir/name.key.
// An empty dir makes the keystore ephemeral: keys are generated and never written.
type RelayKeystore struct {
	dir        string
	name       string
	privateKey *rsa.PrivateKey
}

var _ KeyStore = &RelayKeystore{}

// NewRelayKeystore loads the key stored under dir/name.key, generating a
// fresh one when the file does not exist yet.
func NewRelayKeystore(dir, name string) (*RelayKeystore, error) {
	if name == "" {
		return nil, oops.Errorf("keystore name cannot be empty")
	}
	ks := &RelayKeystore{dir: dir, name: name}

	if dir == "" {
		priv, err := crypto.GenerateKeyPair()
		if err != nil {
			return nil, err
		}
		ks.privateKey = priv
		return ks, nil
	}

	data, err := os.ReadFile(ks.path())
	switch {
	case err == nil:
		priv, err := crypto.ImportPrivateKey(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, oops.Wrapf(err, "failed to load key %s", ks.path())
		}
		ks.privateKey = priv
		log.WithFields(logger.Fields{
			"at":   "NewRelayKeystore",
			"path": ks.path(),
		}).Debug("Loaded existing relay key")
	case errors.Is(err, os.ErrNotExist):
		priv, err := crypto.GenerateKeyPair()
		if err != nil {
			return nil, err
		}
		ks.privateKey = priv
		if err := ks.StoreKeys(); err != nil {
			return nil, err
		}
	default:
		return nil, oops.Wrapf(err, "failed to read key %s", ks.path())
	}
	return ks, nil
}

func (ks *RelayKeystore) path() string {
	return filepath.Join(ks.dir, ks.name+".key")
}

// KeyID returns the keystore name
func (ks *RelayKeystore) KeyID() string {
	return ks.name
}

func (ks *RelayKeystore) GetKeys() (*rsa.PublicKey, *rsa.PrivateKey, error) {
	if ks.privateKey == nil {
		return nil, nil, oops.Errorf("keystore %s holds no key", ks.name)
	}
	return &ks.privateKey.PublicKey, ks.privateKey, nil
}

// StoreKeys writes the private key with owner-only permissions.
// It is a no-op for ephemeral keystores.
func (ks *RelayKeystore) StoreKeys() error {
	if ks.dir == "" {
		return nil
	}
	if err := config.CreateSecureDirectory(ks.dir); err != nil {
		return err
	}
	encoded, err := crypto.ExportPrivateKey(ks.privateKey)
	if err != nil {
		return err
	}
	if err := config.WriteSecureFile(ks.path(), []byte(encoded+"\n")); err != nil {
		return err
	}
	log.WithFields(logger.Fields{
		"at":   "(RelayKeystore) StoreKeys",
		"path": ks.path(),
	}).Debug("Stored relay key")
	return nil
}
