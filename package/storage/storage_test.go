package storage

import (
	"context"
	"path/filepath"
	"testing"

	"acoustic_modem/package/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "symbols.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCreateSession(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	id, err := store.CreateSession(ctx, shared.FS)
	require.NoError(t, err)
	assert.Positive(t, id)

	sess, err := store.Session(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, sess.ID)
	assert.Equal(t, shared.FS, sess.SampleRate)
	assert.False(t, sess.StartTime.IsZero())

	_, err = store.Session(ctx, id+100)
	assert.Error(t, err)
}

func TestSymbolsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	first, err := store.CreateSession(ctx, shared.FS)
	require.NoError(t, err)
	second, err := store.CreateSession(ctx, shared.FS)
	require.NoError(t, err)

	h := shared.DecodedSymbol{
		SymbolCandidate: shared.SymbolCandidate{Symbol: 'H', Phase: []int{0, 90, 180, 270, 0, 0, 0, 359}},
		Candidates:      16,
		History:         []byte{0x48, 0x48, 0x48},
		Sample:          27360,
	}
	i := shared.DecodedSymbol{
		SymbolCandidate: shared.SymbolCandidate{Symbol: 'i', Phase: make([]int, shared.SUB_CARRIER_SIZE)},
		Candidates:      15,
		History:         []byte{0x69},
		Sample:          46560,
	}
	// inserted out of order; the log is read back by sample
	require.NoError(t, store.InsertSymbol(ctx, first, i))
	require.NoError(t, store.InsertSymbol(ctx, first, h))
	require.NoError(t, store.InsertSymbol(ctx, second, h))

	got, err := store.Symbols(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, []shared.DecodedSymbol{h, i}, got)

	got, err = store.Symbols(ctx, second)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = store.Symbols(ctx, second+1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCloseTwice(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "symbols.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
