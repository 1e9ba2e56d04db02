package router

import (
	"testing"

	"github.com/go-i2p/go-onion/lib/keys"
	"github.com/go-i2p/go-onion/lib/netdb"
	"github.com/go-i2p/go-onion/lib/onion"
	"github.com/go-i2p/go-onion/lib/transport"
	"github.com/go-i2p/go-onion/lib/tunnel"
	"github.com/stretchr/testify/require"
)

var testRanges = []AddressRange{
	{First: 4000, Count: 10},
	{First: 3000, Count: 2},
}

// testNetwork is an in-process network of relays and users over Loopback.
type testNetwork struct {
	codec     *onion.Codec
	loopback  *transport.Loopback
	directory *netdb.MemoryNetDB
	relays    map[onion.Address]*Relay
	users     map[onion.Address]*User
}

func newTestNetwork(t *testing.T) *testNetwork {
	t.Helper()
	return &testNetwork{
		codec:     onion.DefaultCodec(),
		loopback:  transport.NewLoopback(),
		directory: netdb.NewMemoryNetDB(),
		relays:    make(map[onion.Address]*Relay),
		users:     make(map[onion.Address]*User),
	}
}

func (n *testNetwork) addRelay(t *testing.T, addr onion.Address, limiter *InboundLimiter) *Relay {
	t.Helper()
	ks, err := keys.NewRelayKeystore("", "relay-"+addr.String())
	require.NoError(t, err)
	r, err := NewRelay(RelayConfig{
		Address:   addr,
		Host:      "127.0.0.1",
		Codec:     n.codec,
		Transport: n.loopback,
		Directory: n.directory,
		KeyStore:  ks,
		Plausible: testRanges,
		Limiter:   limiter,
	})
	require.NoError(t, err)
	require.NoError(t, r.Register(t.Context()))
	n.loopback.Register(addr, r.Receive)
	n.relays[addr] = r
	return r
}

func (n *testNetwork) addUser(t *testing.T, addr onion.Address, hops int) *User {
	t.Helper()
	builder, err := tunnel.NewBuilder(hops)
	require.NoError(t, err)
	sender, err := NewSender(n.directory, builder, n.codec, n.loopback)
	require.NoError(t, err)
	u, err := NewUser(UserConfig{Address: addr, Host: "127.0.0.1", Sender: sender})
	require.NoError(t, err)
	n.loopback.Register(addr, u.Receive)
	n.users[addr] = u
	return u
}

// hop returns the onion.Hop of a relay in the network.
func (n *testNetwork) hop(addr onion.Address) onion.Hop {
	return onion.Hop{Address: addr, PublicKey: n.relays[addr].PublicKey()}
}
