package netdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Client is a NetDB backed by a remote directory Server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the directory at baseURL (for example
// "http://localhost:8080"). A nil httpClient uses a client with a 10s timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Register posts record to /registerNode.
func (c *Client) Register(ctx context.Context, record NodeRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}
	id := uint64(record.ID)
	body, err := json.Marshal(registerRequest{NodeID: &id, PubKey: record.PublicKey})
	if err != nil {
		return oops.Wrapf(err, "failed to encode registration")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/registerNode", bytes.NewReader(body))
	if err != nil {
		return oops.Wrapf(err, "failed to build registration request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return oops.Wrapf(err, "directory unreachable at %s", c.baseURL)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("directory rejected registration of node %s: %s", record.ID, resp.Status)
	}
	return nil
}

// ListNodes fetches /getNodeRegistry.
func (c *Client) ListNodes(ctx context.Context) ([]NodeRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/getNodeRegistry", nil)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to build registry request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, oops.Wrapf(err, "directory unreachable at %s", c.baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory returned %s", resp.Status)
	}
	var registry registryResponse
	if err := json.NewDecoder(resp.Body).Decode(&registry); err != nil {
		return nil, oops.Wrapf(err, "failed to decode node registry")
	}
	sortRecords(registry.Nodes)
	return registry.Nodes, nil
}

var _ NetDB = (*Client)(nil)
