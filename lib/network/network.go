package network

import (
	"context"
	"errors"
	"time"

	"github.com/go-i2p/go-onion/lib/bootstrap"
	"github.com/go-i2p/go-onion/lib/config"
	"github.com/go-i2p/go-onion/lib/onion"
	"github.com/go-i2p/go-onion/lib/router"
	"github.com/go-i2p/go-onion/lib/transport"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// shutdownTimeout bounds how long Close waits for in-flight requests.
const shutdownTimeout = 5 * time.Second

// Network is a directory, its relays and its users running in one process.
type Network struct {
	Directory *Directory
	Relays    []*router.Relay
	Users     []*router.User

	cfg      config.ConfigDefaults
	deps     Deps
	loopback *transport.Loopback
}

// Launch starts the directory, then cfg.Network.RelayCount relays and
// cfg.Network.UserCount users on consecutive ports. On failure everything
// started so far is stopped again.
func Launch(ctx context.Context, cfg config.ConfigDefaults) (*Network, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	n := &Network{cfg: cfg}
	if cfg.Transport.InProcess {
		n.loopback = transport.NewLoopback()
	}

	var err error
	if n.Directory, err = StartDirectory(ctx, cfg); err != nil {
		return nil, err
	}
	if n.deps, err = NewDeps(cfg, n.loopback); err != nil {
		return nil, n.abort(err)
	}

	for i := 0; i < cfg.Network.RelayCount; i++ {
		relay, err := StartRelay(ctx, cfg, n.deps, onion.Address(cfg.Network.RelayBasePort+i))
		if err != nil {
			return nil, n.abort(err)
		}
		n.Relays = append(n.Relays, relay)
	}
	for i := 0; i < cfg.Network.UserCount; i++ {
		user, err := StartUser(cfg, n.deps, onion.Address(cfg.Network.UserBasePort+i))
		if err != nil {
			return nil, n.abort(err)
		}
		n.Users = append(n.Users, user)
	}

	log.WithFields(logger.Fields{
		"at":         "Launch",
		"directory":  n.Directory.Server.Addr(),
		"relays":     len(n.Relays),
		"users":      len(n.Users),
		"in_process": cfg.Transport.InProcess,
	}).Info("Network launched")
	return n, nil
}

func (n *Network) abort(err error) error {
	if cerr := n.Close(); cerr != nil {
		log.WithError(cerr).Warn("Cleanup after failed launch was incomplete")
	}
	return err
}

// Relay returns the relay listening on addr.
func (n *Network) Relay(addr onion.Address) (*router.Relay, bool) {
	for _, r := range n.Relays {
		if r.Address() == addr {
			return r, true
		}
	}
	return nil, false
}

// User returns the user listening on addr.
func (n *Network) User(addr onion.Address) (*router.User, bool) {
	for _, u := range n.Users {
		if u.Address() == addr {
			return u, true
		}
	}
	return nil, false
}

// Send originates a message at one user of the network.
func (n *Network) Send(ctx context.Context, from, to onion.Address, message string) error {
	u, ok := n.User(from)
	if !ok {
		return oops.Errorf("no user listening on %s", from)
	}
	return u.Send(ctx, message, to)
}

// Snapshot writes the current registry to path in seed file format.
func (n *Network) Snapshot(ctx context.Context, path string) error {
	records, err := n.Directory.Store.ListNodes(ctx)
	if err != nil {
		return err
	}
	return bootstrap.WriteSnapshot(path, records)
}

// Close stops users, relays and the directory in that order.
func (n *Network) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	for _, u := range n.Users {
		errs = append(errs, u.Stop(ctx))
	}
	for _, r := range n.Relays {
		errs = append(errs, r.Stop(ctx))
	}
	if n.deps.Transport != nil {
		errs = append(errs, n.deps.Transport.Close())
	}
	if n.Directory != nil {
		errs = append(errs, n.Directory.Close(ctx))
	}
	n.Users, n.Relays, n.Directory = nil, nil, nil
	n.deps.Transport = nil

	if err := errors.Join(errs...); err != nil {
		return oops.Wrapf(err, "network shutdown incomplete")
	}
	log.WithField("at", "(Network) Close").Info("Network stopped")
	return nil
}
