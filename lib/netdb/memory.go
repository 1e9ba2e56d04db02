package netdb

import (
	"context"
	"sync"

	"github.com/go-i2p/go-onion/lib/onion"
	"github.com/go-i2p/logger"
)

// MemoryNetDB keeps the directory in a map for the lifetime of the process.
// It is safe for concurrent registration and listing.
type MemoryNetDB struct {
	mu    sync.RWMutex
	nodes map[onion.Address]NodeRecord
}

// NewMemoryNetDB creates an empty in-memory directory.
func NewMemoryNetDB() *MemoryNetDB {
	log.Debug("Creating new MemoryNetDB")
	return &MemoryNetDB{nodes: make(map[onion.Address]NodeRecord)}
}

// Register adds record, replacing any previous key for the same identifier.
func (db *MemoryNetDB) Register(ctx context.Context, record NodeRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateRecord(record); err != nil {
		return err
	}

	db.mu.Lock()
	previous, existed := db.nodes[record.ID]
	db.nodes[record.ID] = record
	db.mu.Unlock()

	entry := log.WithFields(logger.Fields{
		"at":      "(MemoryNetDB) Register",
		"node_id": record.ID,
		"key":     shortKey(record.PublicKey, 12),
	})
	if existed && previous.PublicKey != record.PublicKey {
		entry.Info("Node re-registered with a new key")
	} else {
		entry.Debug("Node registered")
	}
	return nil
}

// ListNodes returns a copy of every record ordered by identifier.
func (db *MemoryNetDB) ListNodes(ctx context.Context) ([]NodeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db.mu.RLock()
	records := make([]NodeRecord, 0, len(db.nodes))
	for _, record := range db.nodes {
		records = append(records, record)
	}
	db.mu.RUnlock()

	sortRecords(records)
	return records, nil
}

// Size returns the number of registered nodes.
func (db *MemoryNetDB) Size() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.nodes)
}

var _ NetDB = (*MemoryNetDB)(nil)
