package router

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-i2p/go-onion/lib/onion"
	"github.com/go-i2p/go-onion/lib/transport"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// maxMessageBody bounds the body of an inbound POST.
const maxMessageBody = 1 << 20

// nodeServer is the HTTP listener shared by relays and users.
type nodeServer struct {
	name       string
	httpServer *http.Server
	listener   net.Listener
	wg         sync.WaitGroup
}

func newNodeServer(name, host string, addr onion.Address, handler http.Handler) *nodeServer {
	return &nodeServer{
		name: name,
		httpServer: &http.Server{
			Addr:         net.JoinHostPort(host, addr.String()),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// start binds synchronously so that port conflicts surface to the caller.
func (s *nodeServer) start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return oops.Wrapf(err, "%s: failed to listen on %s", s.name, s.httpServer.Addr)
	}
	s.listener = ln

	log.WithFields(logger.Fields{
		"at":      "(nodeServer) start",
		"node":    s.name,
		"address": ln.Addr().String(),
	}).Info("Node listening")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithFields(logger.Fields{
				"at":     "(nodeServer) start",
				"node":   s.name,
				"reason": err.Error(),
			}).Error("Node server error")
		}
	}()
	return nil
}

func (s *nodeServer) stop(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	err := s.httpServer.Shutdown(ctx)
	s.wg.Wait()
	return err
}

// readEnvelope decodes the {"message": ...} body of a POST /message.
func readEnvelope(w http.ResponseWriter, r *http.Request) (string, bool) {
	var env transport.Envelope
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBody)).Decode(&env); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return "", false
	}
	if env.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return "", false
	}
	return env.Message, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to write response")
	}
}
