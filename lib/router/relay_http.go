package router

import (
	"context"
	"net/http"

	"github.com/go-i2p/logger"
)

// Handler returns the relay's HTTP routes.
func (r *Relay) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /message", r.cfg.Limiter.Middleware(http.HandlerFunc(r.handleMessage)))
	mux.HandleFunc("GET /status", r.handleStatus)
	mux.HandleFunc("GET /getLastReceivedEncryptedMessage", r.handleLastEncrypted)
	mux.HandleFunc("GET /getLastReceivedDecryptedMessage", r.handleLastDecrypted)
	mux.HandleFunc("GET /getLastMessageDestination", r.handleLastDestination)
	return mux
}

// handleMessage acknowledges receipt before peeling so the previous hop
// learns nothing about how the message fared.
func (r *Relay) handleMessage(w http.ResponseWriter, req *http.Request) {
	message, ok := readEnvelope(w, req)
	if !ok {
		return
	}

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		outcome := r.Handle(context.WithoutCancel(req.Context()), message)
		log.WithFields(logger.Fields{
			"at":      "(Relay) handleMessage",
			"relay":   r.cfg.Address,
			"outcome": outcome.String(),
		}).Debug("Message processed")
	}()

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Message received"))
}

func (r *Relay) handleStatus(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, r.Status())
}

func (r *Relay) handleLastEncrypted(w http.ResponseWriter, req *http.Request) {
	obs, _ := r.LastObserved()
	writeJSON(w, http.StatusOK, map[string]string{"message": obs.Encrypted})
}

func (r *Relay) handleLastDecrypted(w http.ResponseWriter, req *http.Request) {
	obs, _ := r.LastObserved()
	writeJSON(w, http.StatusOK, map[string]string{"message": obs.Decrypted})
}

func (r *Relay) handleLastDestination(w http.ResponseWriter, req *http.Request) {
	obs, ok := r.LastObserved()
	if !ok || obs.Destination == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"destination": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"destination": obs.Destination})
}
