package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/go-i2p/go-onion/lib/config"
	"github.com/go-i2p/go-onion/lib/netdb"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk layout of a seed or snapshot file.
//
//	nodes:
//	  - id: 4001
//	    public_key: MIIBIjANBgkq...
type seedFile struct {
	Nodes []netdb.NodeRecord `yaml:"nodes"`
}

// FileBootstrap implements Bootstrap with a local YAML seed file.
type FileBootstrap struct {
	filePath string
}

// NewFileBootstrap creates a bootstrap reading from filePath.
func NewFileBootstrap(filePath string) *FileBootstrap {
	log.WithFields(logger.Fields{
		"at":        "NewFileBootstrap",
		"phase":     "bootstrap",
		"file_path": filePath,
	}).Debug("initializing file bootstrap")
	return &FileBootstrap{filePath: filePath}
}

// GetPeers implements Bootstrap.
func (fb *FileBootstrap) GetPeers(ctx context.Context, n int) ([]netdb.NodeRecord, error) {
	if ctx.Err() != nil {
		return nil, fmt.Errorf("file bootstrap canceled: %w", ctx.Err())
	}

	data, err := os.ReadFile(fb.filePath)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to read seed file %s", fb.filePath)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, oops.Wrapf(err, "failed to parse seed file %s", fb.filePath)
	}

	records := make([]netdb.NodeRecord, 0, len(seed.Nodes))
	for _, record := range seed.Nodes {
		if record.PublicKey == "" {
			log.WithFields(logger.Fields{
				"at":      "(FileBootstrap) GetPeers",
				"node_id": record.ID,
				"reason":  "missing public key",
			}).Warn("skipping seed entry")
			continue
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no node records found in seed file %s", fb.filePath)
	}
	if n > 0 && len(records) > n {
		records = records[:n]
	}
	return records, nil
}

// WriteSnapshot writes records to path in the seed file format.
func WriteSnapshot(path string, records []netdb.NodeRecord) error {
	data, err := yaml.Marshal(seedFile{Nodes: records})
	if err != nil {
		return oops.Wrapf(err, "failed to encode snapshot")
	}
	if err := config.WriteSecureFile(path, data); err != nil {
		return err
	}
	log.WithFields(logger.Fields{
		"at":    "WriteSnapshot",
		"path":  path,
		"count": len(records),
	}).Info("Directory snapshot written")
	return nil
}

var _ Bootstrap = (*FileBootstrap)(nil)
