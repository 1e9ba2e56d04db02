package transport

import (
	"context"
	"sync"

	"github.com/go-i2p/go-onion/lib/onion"
	"github.com/go-i2p/logger"
)

// Handler consumes a message delivered over the Loopback transport.
type Handler func(ctx context.Context, payload string) error

// Loopback delivers messages to handlers registered in the same process.
// Delivery runs the handler on the caller's goroutine, so a chain of relays
// completes before the first Deliver returns.
type Loopback struct {
	mu       sync.RWMutex
	handlers map[onion.Address]Handler
}

var _ Transport = (*Loopback)(nil)

func NewLoopback() *Loopback {
	return &Loopback{handlers: make(map[onion.Address]Handler)}
}

// Register binds h to addr, replacing any previous handler.
func (l *Loopback) Register(addr onion.Address, h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[addr] = h
}

// Unregister removes the handler bound to addr.
func (l *Loopback) Unregister(addr onion.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.handlers, addr)
}

func (l *Loopback) Name() string {
	return "Loopback"
}

// Compatible reports whether a handler is registered for to.
func (l *Loopback) Compatible(to onion.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.handlers[to]
	return ok
}

func (l *Loopback) Deliver(ctx context.Context, to onion.Address, payload string) error {
	l.mu.RLock()
	h, ok := l.handlers[to]
	l.mu.RUnlock()
	if !ok {
		return &DeliveryError{Address: to, Transport: l.Name(), Err: ErrUnreachable}
	}
	if err := ctx.Err(); err != nil {
		return &DeliveryError{Address: to, Transport: l.Name(), Err: err}
	}

	log.WithFields(logger.Fields{
		"at":    "(Loopback) Deliver",
		"to":    to,
		"bytes": len(payload),
	}).Debug("Dispatching message in process")
	if err := h(ctx, payload); err != nil {
		return &DeliveryError{Address: to, Transport: l.Name(), Err: err}
	}
	return nil
}

// Close drops every registered handler.
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = make(map[onion.Address]Handler)
	return nil
}
