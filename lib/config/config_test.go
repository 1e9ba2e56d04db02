package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCurrentConfigDefaultsRoundTrip verifies that every default written by
// setDefaults() is read back by CurrentConfig() under the same key.
func TestCurrentConfigDefaultsRoundTrip(t *testing.T) {
	viper.Reset()
	setDefaults()

	assert.Equal(t, Defaults(), CurrentConfig())
}

func TestCurrentConfigOverrides(t *testing.T) {
	viper.Reset()
	setDefaults()

	viper.Set("protocol.suite", "aes-256-cbc")
	viper.Set("transport.hop_timeout", "250ms")
	viper.Set("transport.in_process", true)
	viper.Set("network.relay_count", 4)

	cfg := CurrentConfig()
	assert.Equal(t, "aes-256-cbc", cfg.Protocol.Suite)
	assert.Equal(t, 250*time.Millisecond, cfg.Transport.HopTimeout)
	assert.True(t, cfg.Transport.InProcess)
	assert.Equal(t, 4, cfg.Network.RelayCount)
	assert.Equal(t, Defaults().Protocol.DestinationWidth, cfg.Protocol.DestinationWidth)
}

func TestInitConfigReadsExplicitFile(t *testing.T) {
	viper.Reset()
	defer func() { CfgFile = "" }()

	path := filepath.Join(t.TempDir(), "onion.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network:\n  relay_count: 7\nprotocol:\n  hop_count: 4\n"), 0o600))

	CfgFile = path
	InitConfig()

	cfg := CurrentConfig()
	assert.Equal(t, 7, cfg.Network.RelayCount)
	assert.Equal(t, 4, cfg.Protocol.HopCount)
	assert.Equal(t, "localhost", cfg.Network.Host)
}

func TestWriteSecureFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keys")
	require.NoError(t, CreateSecureDirectory(dir))

	path := filepath.Join(dir, "relay.key")
	require.NoError(t, WriteSecureFile(path, []byte("secret")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(SecureFilePermissions), info.Mode().Perm())

	dirInfo, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(SecureDirPermissions), dirInfo.Mode().Perm())
}
