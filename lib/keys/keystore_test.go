package keys

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayKeystorePersistsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()

	first, err := NewRelayKeystore(dir, "4001")
	require.NoError(t, err)
	pub1, _, err := first.GetKeys()
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "4001.key"))
	require.NoError(t, err)

	second, err := NewRelayKeystore(dir, "4001")
	require.NoError(t, err)
	pub2, _, err := second.GetKeys()
	require.NoError(t, err)

	assert.True(t, pub1.Equal(pub2), "reloaded key should match the stored one")
	assert.Equal(t, "4001", second.KeyID())
}

func TestRelayKeystoreEphemeral(t *testing.T) {
	a, err := NewRelayKeystore("", "relay")
	require.NoError(t, err)
	b, err := NewRelayKeystore("", "relay")
	require.NoError(t, err)

	pubA, _, err := a.GetKeys()
	require.NoError(t, err)
	pubB, _, err := b.GetKeys()
	require.NoError(t, err)
	assert.False(t, pubA.Equal(pubB))
	assert.NoError(t, a.StoreKeys())
}

func TestRelayKeystoreRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.key"), []byte("not a key"), 0o600))

	ks, err := NewRelayKeystore(dir, "bad")
	assert.Error(t, err)
	assert.Nil(t, ks)
}

func TestRelayKeystoreRequiresName(t *testing.T) {
	_, err := NewRelayKeystore(t.TempDir(), "")
	assert.Error(t, err)
}
