package tunnel

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-i2p/go-onion/lib/crypto"
	"github.com/go-i2p/go-onion/lib/netdb"
	"github.com/go-i2p/go-onion/lib/onion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pool(ids ...onion.Address) []netdb.NodeRecord {
	nodes := make([]netdb.NodeRecord, len(ids))
	for i, id := range ids {
		nodes[i] = netdb.NodeRecord{ID: id, PublicKey: fmt.Sprintf("key-%d", id)}
	}
	return nodes
}

func TestNewBuilderRejectsNonPositiveLength(t *testing.T) {
	_, err := NewBuilder(0)
	assert.Error(t, err)
	_, err = NewBuilder(-3)
	assert.Error(t, err)

	b, err := NewBuilder(3)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Length())
}

func TestBuildProducesDistinctRelaysOfExactLength(t *testing.T) {
	nodes := pool(4000, 4001, 4002, 4003, 4004)
	known := map[onion.Address]bool{}
	for _, n := range nodes {
		known[n.ID] = true
	}

	b, err := NewBuilder(3)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		circuit, err := b.Build(nodes)
		require.NoError(t, err)
		require.Len(t, circuit, 3)

		seen := map[onion.Address]bool{}
		for _, id := range circuit {
			assert.True(t, known[id], "relay %s not in pool", id)
			assert.False(t, seen[id], "relay %s repeated in %s", id, circuit)
			seen[id] = true
		}
	}
}

func TestBuildUsesWholePool(t *testing.T) {
	nodes := pool(4000, 4001, 4002, 4003, 4004)
	b, err := NewBuilder(2)
	require.NoError(t, err)

	chosen := map[onion.Address]int{}
	for i := 0; i < 500; i++ {
		circuit, err := b.Build(nodes)
		require.NoError(t, err)
		for _, id := range circuit {
			chosen[id]++
		}
	}
	assert.Len(t, chosen, len(nodes))
}

func TestBuildExactPoolIsPermutation(t *testing.T) {
	nodes := pool(4000, 4001, 4002)
	b, err := NewBuilder(3)
	require.NoError(t, err)

	circuit, err := b.Build(nodes)
	require.NoError(t, err)
	assert.ElementsMatch(t, []onion.Address{4000, 4001, 4002}, []onion.Address(circuit))
}

func TestBuildInsufficientNodes(t *testing.T) {
	b, err := NewBuilder(3)
	require.NoError(t, err)

	tests := []struct {
		name  string
		nodes []netdb.NodeRecord
		have  int
	}{
		{"empty", nil, 0},
		{"two relays", pool(4000, 4001), 2},
		{"duplicates count once", pool(4000, 4000, 4001, 4001, 4001), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			circuit, err := b.Build(tt.nodes)
			assert.Nil(t, circuit)

			var insufficient *InsufficientNodesError
			require.True(t, errors.As(err, &insufficient))
			assert.Equal(t, 3, insufficient.Need)
			assert.Equal(t, tt.have, insufficient.Have)
		})
	}
}

func TestBuildWithDeterministicSource(t *testing.T) {
	nodes := pool(4000, 4001, 4002, 4003)
	picks := []int{2, 2, 0, 2, 3}
	b := &Builder{length: 3, intn: func(n int) int {
		p := picks[0]
		picks = picks[1:]
		return p % n
	}}

	circuit, err := b.Build(nodes)
	require.NoError(t, err)
	assert.Equal(t, Circuit{4002, 4000, 4003}, circuit)
	assert.Equal(t, "4002 -> 4000 -> 4003", circuit.String())
}

func TestResolve(t *testing.T) {
	nodes := make([]netdb.NodeRecord, 0, 3)
	for _, id := range []onion.Address{4000, 4001, 4002} {
		priv, err := crypto.GenerateKeyPair()
		require.NoError(t, err)
		encoded, err := crypto.ExportPublicKey(&priv.PublicKey)
		require.NoError(t, err)
		nodes = append(nodes, netdb.NodeRecord{ID: id, PublicKey: encoded})
	}

	t.Run("in circuit order", func(t *testing.T) {
		hops, err := Resolve(Circuit{4002, 4000}, nodes)
		require.NoError(t, err)
		require.Len(t, hops, 2)
		assert.Equal(t, onion.Address(4002), hops[0].Address)
		assert.Equal(t, onion.Address(4000), hops[1].Address)
		assert.NotNil(t, hops[0].PublicKey)
	})

	t.Run("missing relay", func(t *testing.T) {
		_, err := Resolve(Circuit{4000, 4007}, nodes)
		var unknown *UnknownNodeError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, onion.Address(4007), unknown.ID)
		assert.NoError(t, unknown.Unwrap())
	})

	t.Run("unparsable key", func(t *testing.T) {
		broken := append([]netdb.NodeRecord{}, nodes...)
		broken = append(broken, netdb.NodeRecord{ID: 4003, PublicKey: "not-a-key"})
		_, err := Resolve(Circuit{4003}, broken)
		var unknown *UnknownNodeError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, onion.Address(4003), unknown.ID)
		assert.Error(t, unknown.Unwrap())
	})
}
