package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-i2p/go-onion/lib/onion"
	"github.com/go-i2p/go-onion/lib/transport"
	"github.com/go-i2p/go-onion/lib/tunnel"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// ReceivedMessage is a plaintext that reached a user at the end of a circuit.
type ReceivedMessage struct {
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// UserConfig configures a User.
type UserConfig struct {
	Address onion.Address
	Host    string
	// Sender originates messages; nil makes a receive-only user
	Sender  *Sender
	Limiter *InboundLimiter
}

// User is an end point of the network: it originates messages through its
// Sender and receives plaintexts delivered by the last relay of a circuit.
type User struct {
	cfg    UserConfig
	server *nodeServer

	mu   sync.RWMutex
	last *ReceivedMessage
}

func NewUser(cfg UserConfig) (*User, error) {
	if cfg.Address == 0 {
		return nil, oops.Errorf("user address cannot be zero")
	}
	u := &User{cfg: cfg}
	u.server = newNodeServer("user-"+cfg.Address.String(), cfg.Host, cfg.Address, u.Handler())
	return u, nil
}

// Address returns the user's identifier.
func (u *User) Address() onion.Address {
	return u.cfg.Address
}

func (u *User) Start() error {
	return u.server.start()
}

func (u *User) Stop(ctx context.Context) error {
	return u.server.stop(ctx)
}

// Receive stores an inbound plaintext. It is suitable as a transport.Handler.
func (u *User) Receive(ctx context.Context, message string) error {
	if err := u.cfg.Limiter.Allow(); err != nil {
		return err
	}
	u.store(message)
	return nil
}

func (u *User) store(message string) {
	u.mu.Lock()
	u.last = &ReceivedMessage{Message: message, ReceivedAt: time.Now()}
	u.mu.Unlock()

	log.WithFields(logger.Fields{
		"at":   "(User) Receive",
		"user": u.cfg.Address,
		"len":  len(message),
	}).Info("Message received")
}

// Send originates a message to another user.
func (u *User) Send(ctx context.Context, message string, destination onion.Address) error {
	if u.cfg.Sender == nil {
		return oops.Errorf("user %s cannot send: no sender configured", u.cfg.Address)
	}
	return u.cfg.Sender.Send(ctx, message, destination)
}

// LastReceived returns the most recent inbound plaintext.
func (u *User) LastReceived() (ReceivedMessage, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.last == nil {
		return ReceivedMessage{}, false
	}
	return *u.last, true
}

// LastSent returns the most recent message this user originated.
func (u *User) LastSent() (SentMessage, bool) {
	if u.cfg.Sender == nil {
		return SentMessage{}, false
	}
	return u.cfg.Sender.LastSent()
}

// sendRequest is the body of POST /sendMessage
type sendRequest struct {
	Message           string  `json:"message"`
	DestinationUserID *uint64 `json:"destinationUserId"`
}

// Handler returns the user's HTTP routes.
func (u *User) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /message", u.cfg.Limiter.Middleware(http.HandlerFunc(u.handleMessage)))
	mux.HandleFunc("POST /sendMessage", u.handleSend)
	mux.HandleFunc("GET /status", u.handleStatus)
	mux.HandleFunc("GET /getLastReceivedMessage", u.handleLastReceived)
	mux.HandleFunc("GET /getLastSentMessage", u.handleLastSent)
	mux.HandleFunc("GET /getLastCircuit", u.handleLastCircuit)
	return mux
}

func (u *User) handleMessage(w http.ResponseWriter, r *http.Request) {
	message, ok := readEnvelope(w, r)
	if !ok {
		return
	}
	u.store(message)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Message received"))
}

func (u *User) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBody)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" || req.DestinationUserID == nil {
		http.Error(w, "message and destinationUserId are required", http.StatusBadRequest)
		return
	}

	err := u.Send(r.Context(), req.Message, onion.Address(*req.DestinationUserID))
	if err != nil {
		status := sendErrorStatus(err)
		log.WithFields(logger.Fields{
			"at":     "(User) handleSend",
			"user":   u.cfg.Address,
			"status": status,
			"reason": err.Error(),
		}).Warn("Send failed")
		http.Error(w, err.Error(), status)
		return
	}

	sent, _ := u.LastSent()
	writeJSON(w, http.StatusOK, sent)
}

// sendErrorStatus maps the send error taxonomy onto HTTP statuses.
func sendErrorStatus(err error) int {
	var (
		insufficient *tunnel.InsufficientNodesError
		unknown      *tunnel.UnknownNodeError
		delivery     *transport.DeliveryError
	)
	switch {
	case errors.As(err, &insufficient):
		return http.StatusServiceUnavailable
	case errors.As(err, &unknown), errors.As(err, &delivery):
		return http.StatusBadGateway
	case errors.Is(err, onion.ErrDestinationOverflow):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// UserStatus summarises a user for GET /status.
type UserStatus struct {
	Address     onion.Address `json:"nodeId"`
	Role        string        `json:"role"`
	CanSend     bool          `json:"canSend"`
	HasReceived bool          `json:"hasReceived"`
	Limiter     LimiterStats  `json:"limiter"`
}

func (u *User) handleStatus(w http.ResponseWriter, r *http.Request) {
	_, received := u.LastReceived()
	writeJSON(w, http.StatusOK, UserStatus{
		Address:     u.cfg.Address,
		Role:        "user",
		CanSend:     u.cfg.Sender != nil,
		HasReceived: received,
		Limiter:     u.cfg.Limiter.Stats(),
	})
}

func (u *User) handleLastReceived(w http.ResponseWriter, r *http.Request) {
	msg, ok := u.LastReceived()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"message": nil})
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (u *User) handleLastSent(w http.ResponseWriter, r *http.Request) {
	sent, ok := u.LastSent()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"message": nil})
		return
	}
	writeJSON(w, http.StatusOK, sent)
}

func (u *User) handleLastCircuit(w http.ResponseWriter, r *http.Request) {
	sent, ok := u.LastSent()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"circuit": []onion.Address{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"circuit": sent.Circuit})
}
