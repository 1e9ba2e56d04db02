package netdb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

const nodePrefix = "node:"

// BadgerNetDB persists the directory so registrations survive a directory restart.
type BadgerNetDB struct {
	db   *badger.DB
	path string
}

// OpenBadgerNetDB opens (or creates) a badger database in path.
// An empty path opens a purely in-memory database.
func OpenBadgerNetDB(path string) (*BadgerNetDB, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		log.WithFields(logger.Fields{
			"at":     "OpenBadgerNetDB",
			"path":   path,
			"reason": err.Error(),
		}).Error("Failed to open directory store")
		return nil, oops.Wrapf(err, "failed to open directory store at %q", path)
	}
	log.WithField("path", path).Debug("Opened badger directory store")
	return &BadgerNetDB{db: db, path: path}, nil
}

func nodeKey(record NodeRecord) []byte {
	// Zero padded so that key order matches numeric order
	return []byte(fmt.Sprintf("%s%020d", nodePrefix, uint64(record.ID)))
}

// Register stores record, replacing any previous key for the same identifier.
func (b *BadgerNetDB) Register(ctx context.Context, record NodeRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateRecord(record); err != nil {
		return err
	}
	value, err := json.Marshal(record)
	if err != nil {
		return oops.Wrapf(err, "failed to encode node record")
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(nodeKey(record), value)
	})
	if err != nil {
		return oops.Wrapf(err, "failed to store node %s", record.ID)
	}

	log.WithFields(logger.Fields{
		"at":      "(BadgerNetDB) Register",
		"node_id": record.ID,
		"key":     shortKey(record.PublicKey, 12),
	}).Debug("Node registered")
	return nil
}

// ListNodes returns every stored record ordered by identifier.
func (b *BadgerNetDB) ListNodes(ctx context.Context) ([]NodeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var records []NodeRecord
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(nodePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record NodeRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return oops.Wrapf(err, "failed to decode node record %s", it.Item().Key())
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Path returns the filesystem path of the store, empty for in-memory stores.
func (b *BadgerNetDB) Path() string {
	return b.path
}

// Close flushes and closes the underlying database.
func (b *BadgerNetDB) Close() error {
	return b.db.Close()
}

var _ NetDB = (*BadgerNetDB)(nil)
