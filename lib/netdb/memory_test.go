package netdb

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/go-i2p/go-onion/lib/onion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseNetDB runs the behaviour every NetDB implementation shares.
func exerciseNetDB(t *testing.T, db NetDB) {
	t.Helper()
	ctx := context.Background()

	nodes, err := db.ListNodes(ctx)
	require.NoError(t, err)
	assert.Empty(t, nodes)

	for _, id := range []onion.Address{4002, 4000, 4001} {
		require.NoError(t, db.Register(ctx, NodeRecord{ID: id, PublicKey: fmt.Sprintf("key-%d", id)}))
	}

	nodes, err = db.ListNodes(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, []onion.Address{4000, 4001, 4002}, []onion.Address{nodes[0].ID, nodes[1].ID, nodes[2].ID})

	// Re-registration overwrites the key
	require.NoError(t, db.Register(ctx, NodeRecord{ID: 4001, PublicKey: "rotated"}))
	nodes, err = db.ListNodes(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, "rotated", nodes[1].PublicKey)

	err = db.Register(ctx, NodeRecord{ID: 4009})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestMemoryNetDB(t *testing.T) {
	exerciseNetDB(t, NewMemoryNetDB())
}

func TestMemoryNetDBConcurrentRegistration(t *testing.T) {
	db := NewMemoryNetDB()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			assert.NoError(t, db.Register(ctx, NodeRecord{ID: onion.Address(4000 + id), PublicKey: "k"}))
			_, err := db.ListNodes(ctx)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, db.Size())
}

func TestMemoryNetDBHonoursContext(t *testing.T) {
	db := NewMemoryNetDB()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, db.Register(ctx, NodeRecord{ID: 1, PublicKey: "k"}), context.Canceled)
	_, err := db.ListNodes(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListNodesReturnsCopy(t *testing.T) {
	db := NewMemoryNetDB()
	ctx := context.Background()
	require.NoError(t, db.Register(ctx, NodeRecord{ID: 1, PublicKey: "k"}))

	nodes, err := db.ListNodes(ctx)
	require.NoError(t, err)
	nodes[0].PublicKey = "mutated"

	again, err := db.ListNodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, "k", again[0].PublicKey)
}
