package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore creates a temporary bbolt store for testing.
func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kpx.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestKey(t *testing.T) {
	board := "(kicad_pcb (version 20221018))"

	assert.Equal(t, Key(board, "Edge.Cuts"), Key(board, "Edge.Cuts"))
	assert.NotEqual(t, Key(board, "Edge.Cuts"), Key(board, "User.1"))
	assert.NotEqual(t, Key(board), Key(board+" "))
	// option boundaries are part of the key
	assert.NotEqual(t, Key(board, "ab", "c"), Key(board, "a", "bc"))
	assert.Len(t, Key(board), 64)
}

func TestGetPut(t *testing.T) {
	store, _ := newTestStore(t)
	key := Key("board")

	data, ok, err := store.Get("details", key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)

	require.NoError(t, store.Put("details", key, []byte(`{"footprints":2}`)))

	data, ok, err = store.Get("details", key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"footprints":2}`, string(data))

	// commands do not share entries
	_, ok, err = store.Get("layers", key)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, store.Put("details", key, nil))
}

func TestPersistence(t *testing.T) {
	store, path := newTestStore(t)
	key := Key("board", "json")
	require.NoError(t, store.Put("layers", key, []byte("[]")))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	data, ok, err := reopened.Get("layers", key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", string(data))
}

func TestLenAndClear(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Put("3d", Key("a"), []byte("1")))
	require.NoError(t, store.Put("3d", Key("b"), []byte("2")))
	require.NoError(t, store.Put("symbols", Key("c"), []byte("3")))

	n, err := store.Len("3d")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, store.Clear())
	n, err = store.Len("3d")
	require.NoError(t, err)
	assert.Zero(t, n)
}
