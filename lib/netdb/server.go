package netdb

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-i2p/go-onion/lib/onion"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// registerRequest is the body of POST /registerNode
type registerRequest struct {
	NodeID *uint64 `json:"nodeId"`
	PubKey string  `json:"pubKey"`
}

// registryResponse is the body of GET /getNodeRegistry
type registryResponse struct {
	Nodes []NodeRecord `json:"nodes"`
}

// Server exposes a NetDB over HTTP.
type Server struct {
	db         NetDB
	httpServer *http.Server
	listener   net.Listener
	wg         sync.WaitGroup
}

// NewServer creates a directory server for db listening on addr once started.
func NewServer(addr string, db NetDB) (*Server, error) {
	if db == nil {
		return nil, oops.Errorf("netdb: directory cannot be nil")
	}
	s := &Server{db: db}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler returns the HTTP routes of the directory.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /registerNode", s.handleRegister)
	mux.HandleFunc("GET /getNodeRegistry", s.handleRegistry)
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("live"))
	})
	return mux
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.NodeID == nil || req.PubKey == "" {
		http.Error(w, "nodeId and pubKey are required", http.StatusBadRequest)
		return
	}

	record := NodeRecord{ID: onion.Address(*req.NodeID), PublicKey: req.PubKey}
	if err := s.db.Register(r.Context(), record); err != nil {
		log.WithFields(logger.Fields{
			"at":      "(Server) handleRegister",
			"node_id": record.ID,
			"reason":  err.Error(),
		}).Error("Registration failed")
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte("node registered"))
}

func (s *Server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	records, err := s.db.ListNodes(r.Context())
	if err != nil {
		log.WithError(err).Error("Listing nodes failed")
		http.Error(w, "listing failed", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []NodeRecord{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(registryResponse{Nodes: records}); err != nil {
		log.WithError(err).Warn("Failed to write registry response")
	}
}

// Start binds the listen address and serves in the background.
// Bind errors are returned synchronously.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return oops.Wrapf(err, "netdb: failed to listen on %s", s.httpServer.Addr)
	}
	s.listener = ln

	log.WithFields(logger.Fields{
		"at":      "(Server) Start",
		"address": ln.Addr().String(),
	}).Info("Directory server listening")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithFields(logger.Fields{
				"at":     "(Server) Start",
				"reason": err.Error(),
			}).Error("Directory server error")
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Stop shuts the server down, waiting for in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.wg.Wait()
	return err
}
