// Package signals dispatches process signals to registered handlers:
// SIGINT/SIGTERM to interrupt handlers, SIGHUP to reload handlers.
package signals

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// sigChan is buffered to avoid missing signals delivered while no receiver is ready.
var sigChan = make(chan os.Signal, 1)

// Handler is a function called when a signal is received.
type Handler func()

// HandlerID identifies a registration so it can be removed again.
type HandlerID int

type registry struct {
	kind     string
	mu       sync.Mutex
	nextID   HandlerID
	handlers map[HandlerID]Handler
	order    []HandlerID
}

func newRegistry(kind string) *registry {
	return &registry{kind: kind, handlers: make(map[HandlerID]Handler)}
}

func (r *registry) add(f Handler) HandlerID {
	if f == nil {
		return -1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.handlers[id] = f
	r.order = append(r.order, id)
	return id
}

func (r *registry) remove(id HandlerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[id]; !ok {
		return
	}
	delete(r.handlers, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// run calls the handlers in registration order. A panicking handler is
// logged and does not stop the others.
func (r *registry) run() {
	r.mu.Lock()
	snapshot := make([]Handler, 0, len(r.order))
	for _, id := range r.order {
		snapshot = append(snapshot, r.handlers[id])
	}
	r.mu.Unlock()

	for _, h := range snapshot {
		func() {
			defer func() {
				if p := recover(); p != nil {
					log.WithFields(logger.Fields{
						"at":    "signals.run",
						"kind":  r.kind,
						"panic": p,
					}).Error("Signal handler panicked")
				}
			}()
			h()
		}()
	}
}

func (r *registry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = make(map[HandlerID]Handler)
	r.order = nil
}

var (
	reloaders    = newRegistry("reload")
	interrupters = newRegistry("interrupt")
	stopOnce     sync.Once
)

// RegisterReloadHandler registers a handler called on SIGHUP.
// Nil handlers are ignored and return -1.
func RegisterReloadHandler(f Handler) HandlerID {
	return reloaders.add(f)
}

// DeregisterReloadHandler removes a handler added by RegisterReloadHandler.
func DeregisterReloadHandler(id HandlerID) {
	reloaders.remove(id)
}

// RegisterInterruptHandler registers a handler called on SIGINT or SIGTERM.
// Nil handlers are ignored and return -1.
func RegisterInterruptHandler(f Handler) HandlerID {
	return interrupters.add(f)
}

// DeregisterInterruptHandler removes a handler added by RegisterInterruptHandler.
func DeregisterInterruptHandler(id HandlerID) {
	interrupters.remove(id)
}

// Handle dispatches signals until ctx is done or StopHandle is called.
func Handle(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-sigChan:
			if !ok {
				return
			}
			log.WithField("signal", sig.String()).Info("Signal received")
			dispatch(sig)
		}
	}
}

// StopHandle stops signal delivery and makes Handle return.
// Safe to call multiple times.
func StopHandle() {
	stopOnce.Do(func() {
		signal.Stop(sigChan)
		close(sigChan)
	})
}
