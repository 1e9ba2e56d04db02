package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-i2p/logger"
)

// SecureFilePermissions for files containing private keys
const SecureFilePermissions = 0o600

// SecureDirPermissions for directories containing private keys
const SecureDirPermissions = 0o700

// CreateSecureDirectory creates a directory with secure permissions.
// Use this for directories that contain or will contain relay identities.
func CreateSecureDirectory(path string) error {
	cleanPath := filepath.Clean(path)

	if err := os.MkdirAll(cleanPath, SecureDirPermissions); err != nil {
		return fmt.Errorf("failed to create secure directory %q: %w", cleanPath, err)
	}

	// MkdirAll may inherit a looser mode from an existing directory
	if err := os.Chmod(cleanPath, SecureDirPermissions); err != nil {
		log.WithFields(logger.Fields{
			"at":     "CreateSecureDirectory",
			"reason": "chmod_failed",
			"path":   cleanPath,
			"error":  err.Error(),
		}).Warn("could not set secure permissions on directory")
	}
	return nil
}

// WriteSecureFile writes data readable only by the current user.
func WriteSecureFile(path string, data []byte) error {
	cleanPath := filepath.Clean(path)

	if err := os.WriteFile(cleanPath, data, SecureFilePermissions); err != nil {
		return fmt.Errorf("failed to write secure file %q: %w", cleanPath, err)
	}

	if err := os.Chmod(cleanPath, SecureFilePermissions); err != nil {
		log.WithFields(logger.Fields{
			"at":     "WriteSecureFile",
			"reason": "chmod_failed",
			"path":   cleanPath,
			"error":  err.Error(),
		}).Warn("could not set secure permissions on file")
	}
	return nil
}
