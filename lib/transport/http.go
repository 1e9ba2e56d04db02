package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-i2p/go-onion/lib/onion"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// MessagePath is the endpoint every relay and user accepts messages on.
const MessagePath = "/message"

// MaxPortAddress is the highest address reachable over HTTP.
const MaxPortAddress = 65535

// Envelope is the JSON body of a POST to MessagePath.
type Envelope struct {
	Message string `json:"message"`
}

// HTTPTransport delivers messages as JSON over HTTP to host:address.
type HTTPTransport struct {
	host       string
	hopTimeout time.Duration
	client     *http.Client
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a transport for nodes listening on host. A zero
// hopTimeout disables the per-hop deadline.
func NewHTTPTransport(host string, hopTimeout time.Duration) (*HTTPTransport, error) {
	if host == "" {
		return nil, oops.Errorf("transport host cannot be empty")
	}
	if hopTimeout < 0 {
		return nil, oops.Errorf("hop timeout cannot be negative, got %s", hopTimeout)
	}
	return &HTTPTransport{
		host:       host,
		hopTimeout: hopTimeout,
		client:     &http.Client{Transport: &http.Transport{MaxIdleConnsPerHost: 4}},
	}, nil
}

func (t *HTTPTransport) Name() string {
	return "HTTP"
}

// Compatible accepts every address that is a valid TCP port.
func (t *HTTPTransport) Compatible(to onion.Address) bool {
	return to > 0 && to <= MaxPortAddress
}

// URL returns the message endpoint of the node at to.
func (t *HTTPTransport) URL(to onion.Address) string {
	return "http://" + net.JoinHostPort(t.host, strconv.FormatUint(uint64(to), 10)) + MessagePath
}

// Deliver posts payload to the node at to and waits for its answer.
func (t *HTTPTransport) Deliver(ctx context.Context, to onion.Address, payload string) error {
	if !t.Compatible(to) {
		return t.deliveryError(to, 0, ErrUnreachable)
	}
	body, err := json.Marshal(Envelope{Message: payload})
	if err != nil {
		return t.deliveryError(to, 0, err)
	}

	if t.hopTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.hopTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL(to), bytes.NewReader(body))
	if err != nil {
		return t.deliveryError(to, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		log.WithFields(logger.Fields{
			"at":     "(HTTPTransport) Deliver",
			"to":     to,
			"reason": err.Error(),
		}).Warn("Delivery failed")
		return t.deliveryError(to, 0, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.WithFields(logger.Fields{
			"at":     "(HTTPTransport) Deliver",
			"to":     to,
			"status": resp.StatusCode,
		}).Warn("Delivery refused by peer")
		return t.deliveryError(to, resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	log.WithFields(logger.Fields{
		"at":       "(HTTPTransport) Deliver",
		"to":       to,
		"bytes":    len(payload),
		"duration": time.Since(start),
	}).Debug("Message delivered")
	return nil
}

func (t *HTTPTransport) deliveryError(to onion.Address, status int, err error) error {
	return &DeliveryError{Address: to, Transport: t.Name(), StatusCode: status, Err: err}
}

// Close drops idle keep-alive connections.
func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}
