// Package bootstrap pre-populates a directory from a local seed file and
// writes directory snapshots back out in the same format.
package bootstrap

import (
	"context"

	"github.com/go-i2p/go-onion/lib/netdb"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// Bootstrap is a source of node records known before any relay registers.
type Bootstrap interface {
	// GetPeers returns at most n records; n == 0 means all of them.
	// Returns nil and an error if no record could be obtained.
	GetPeers(ctx context.Context, n int) ([]netdb.NodeRecord, error)
}

// Seed registers every record from b into db and returns how many were added.
func Seed(ctx context.Context, db netdb.NetDB, b Bootstrap) (int, error) {
	records, err := b.GetPeers(ctx, 0)
	if err != nil {
		return 0, err
	}
	for i, record := range records {
		if err := db.Register(ctx, record); err != nil {
			return i, oops.Wrapf(err, "failed to seed node %s", record.ID)
		}
	}
	log.WithFields(logger.Fields{
		"at":    "Seed",
		"phase": "bootstrap",
		"count": len(records),
	}).Info("Directory seeded")
	return len(records), nil
}
