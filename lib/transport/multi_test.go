package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/go-i2p/go-onion/lib/onion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTransport implements Transport interface for testing
type mockTransport struct {
	name       string
	reachable  map[onion.Address]bool
	delivered  []onion.Address
	deliverErr error
	closeErr   error
}

func (m *mockTransport) Name() string { return m.name }

func (m *mockTransport) Compatible(to onion.Address) bool { return m.reachable[to] }

func (m *mockTransport) Deliver(ctx context.Context, to onion.Address, payload string) error {
	m.delivered = append(m.delivered, to)
	return m.deliverErr
}

func (m *mockTransport) Close() error { return m.closeErr }

func TestMuxerPicksFirstCompatible(t *testing.T) {
	a := &mockTransport{name: "A", reachable: map[onion.Address]bool{4000: true}}
	b := &mockTransport{name: "B", reachable: map[onion.Address]bool{4000: true, 4001: true}}
	tmux := Mux(a, b)

	assert.Equal(t, "Muxed Transport: A, B", tmux.Name())
	require.NoError(t, tmux.Deliver(context.Background(), 4000, "x"))
	require.NoError(t, tmux.Deliver(context.Background(), 4001, "x"))

	assert.Equal(t, []onion.Address{4000}, a.delivered)
	assert.Equal(t, []onion.Address{4001}, b.delivered)
}

func TestMuxerDoesNotFallThroughOnFailure(t *testing.T) {
	a := &mockTransport{name: "A", reachable: map[onion.Address]bool{4000: true}, deliverErr: errors.New("down")}
	b := &mockTransport{name: "B", reachable: map[onion.Address]bool{4000: true}}
	tmux := Mux(a, b)

	assert.Error(t, tmux.Deliver(context.Background(), 4000, "x"))
	assert.Empty(t, b.delivered)
}

func TestMuxerNoCompatibleTransport(t *testing.T) {
	tmux := Mux(&mockTransport{name: "A"})
	assert.False(t, tmux.Compatible(4000))

	err := tmux.Deliver(context.Background(), 4000, "x")
	assert.ErrorIs(t, err, ErrNoTransportAvailable)
	var derr *DeliveryError
	assert.True(t, errors.As(err, &derr))
}

func TestMuxerCloseClosesAll(t *testing.T) {
	boom := errors.New("close failed")
	tmux := Mux(&mockTransport{name: "A", closeErr: boom}, &mockTransport{name: "B"})
	assert.ErrorIs(t, tmux.Close(), boom)
}
