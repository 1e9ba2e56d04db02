package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/go-i2p/go-onion/lib/bootstrap"
	"github.com/go-i2p/go-onion/lib/config"
	"github.com/go-i2p/go-onion/lib/keys"
	"github.com/go-i2p/go-onion/lib/netdb"
	"github.com/go-i2p/go-onion/lib/onion"
	"github.com/go-i2p/go-onion/lib/router"
	"github.com/go-i2p/go-onion/lib/transport"
	"github.com/go-i2p/go-onion/lib/tunnel"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// Directory is a running directory server and the store behind it.
type Directory struct {
	Server *netdb.Server
	Store  netdb.NetDB
	closer io.Closer
}

// Close stops the server and releases the store.
func (d *Directory) Close(ctx context.Context) error {
	err := d.Server.Stop(ctx)
	if d.closer != nil {
		err = errors.Join(err, d.closer.Close())
	}
	return err
}

// OpenStore opens the directory store selected by cfg.
func OpenStore(cfg config.DirectoryDefaults) (netdb.NetDB, io.Closer, error) {
	switch cfg.Store {
	case config.StoreMemory, "":
		return netdb.NewMemoryNetDB(), nil, nil
	case config.StoreBadger:
		db, err := netdb.OpenBadgerNetDB(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	default:
		return nil, nil, oops.Errorf("unknown directory store %q", cfg.Store)
	}
}

// StartDirectory opens the store, applies the seed file if one is
// configured and starts serving the registry.
func StartDirectory(ctx context.Context, cfg config.ConfigDefaults) (*Directory, error) {
	store, closer, err := OpenStore(cfg.Directory)
	if err != nil {
		return nil, err
	}
	d := &Directory{Store: store, closer: closer}

	if cfg.Directory.SeedFile != "" {
		if _, err := bootstrap.Seed(ctx, store, bootstrap.NewFileBootstrap(cfg.Directory.SeedFile)); err != nil {
			d.closeStore()
			return nil, oops.Wrapf(err, "failed to seed directory")
		}
	}

	d.Server, err = netdb.NewServer(hostPort(cfg.Network.Host, cfg.Network.DirectoryPort), store)
	if err != nil {
		d.closeStore()
		return nil, err
	}
	if err := d.Server.Start(); err != nil {
		d.closeStore()
		return nil, err
	}
	return d, nil
}

func (d *Directory) closeStore() {
	if d.closer != nil {
		_ = d.closer.Close()
	}
}

// DirectoryURL is the base URL of the configured directory.
func DirectoryURL(cfg config.NetworkDefaults) string {
	return "http://" + hostPort(cfg.Host, cfg.DirectoryPort)
}

// NewCodec builds the codec every participant of cfg's network shares.
func NewCodec(cfg config.ProtocolDefaults) (*onion.Codec, error) {
	return onion.NewCodecByName(cfg.Suite, cfg.DestinationWidth)
}

// NewTransport returns the HTTP transport for cfg. When a loopback is given
// it is consulted first, so nodes registered on it skip HTTP.
func NewTransport(cfg config.ConfigDefaults, loopback *transport.Loopback) (transport.Transport, error) {
	httpTransport, err := transport.NewHTTPTransport(cfg.Network.Host, cfg.Transport.HopTimeout)
	if err != nil {
		return nil, err
	}
	if loopback == nil {
		return httpTransport, nil
	}
	return transport.Mux(loopback, httpTransport), nil
}

// Deps are the collaborators shared by every node of a process.
type Deps struct {
	Codec     *onion.Codec
	Transport transport.Transport
	Directory netdb.NetDB
	// Loopback, when set, gets every started node registered on it
	Loopback *transport.Loopback
}

// NewDeps builds shared collaborators talking to the configured directory.
func NewDeps(cfg config.ConfigDefaults, loopback *transport.Loopback) (Deps, error) {
	codec, err := NewCodec(cfg.Protocol)
	if err != nil {
		return Deps{}, err
	}
	tr, err := NewTransport(cfg, loopback)
	if err != nil {
		return Deps{}, err
	}
	return Deps{
		Codec:     codec,
		Transport: tr,
		Directory: netdb.NewClient(DirectoryURL(cfg.Network), nil),
		Loopback:  loopback,
	}, nil
}

// StartRelay loads or creates the relay's key, registers it with the
// directory and starts serving on addr.
func StartRelay(ctx context.Context, cfg config.ConfigDefaults, deps Deps, addr onion.Address) (*router.Relay, error) {
	ks, err := keys.NewRelayKeystore(cfg.Relay.KeyDir, fmt.Sprintf("relay-%s", addr))
	if err != nil {
		return nil, err
	}
	var ranges []router.AddressRange
	if cfg.Relay.ValidateDestinations {
		ranges = router.NetworkRanges(cfg.Network)
	}

	relay, err := router.NewRelay(router.RelayConfig{
		Address:   addr,
		Host:      cfg.Network.Host,
		Codec:     deps.Codec,
		Transport: deps.Transport,
		Directory: deps.Directory,
		KeyStore:  ks,
		Plausible: ranges,
		Limiter:   router.NewInboundLimiter(cfg.Relay.RateLimit, cfg.Relay.Burst),
	})
	if err != nil {
		return nil, err
	}
	if err := relay.Start(ctx); err != nil {
		return nil, err
	}
	if deps.Loopback != nil {
		deps.Loopback.Register(addr, relay.Receive)
	}
	return relay, nil
}

// StartUser starts a user on addr that sends through circuits of
// cfg.Protocol.HopCount relays.
func StartUser(cfg config.ConfigDefaults, deps Deps, addr onion.Address) (*router.User, error) {
	builder, err := tunnel.NewBuilder(cfg.Protocol.HopCount)
	if err != nil {
		return nil, err
	}
	sender, err := router.NewSender(deps.Directory, builder, deps.Codec, deps.Transport)
	if err != nil {
		return nil, err
	}
	user, err := router.NewUser(router.UserConfig{
		Address: addr,
		Host:    cfg.Network.Host,
		Sender:  sender,
		Limiter: router.NewInboundLimiter(cfg.Relay.RateLimit, cfg.Relay.Burst),
	})
	if err != nil {
		return nil, err
	}
	if err := user.Start(); err != nil {
		return nil, err
	}
	if deps.Loopback != nil {
		deps.Loopback.Register(addr, user.Receive)
	}
	return user, nil
}

func hostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
