package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(filepath.Join(t.TempDir(), "traces"))

	keys, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys, "missing root is empty")

	require.NoError(t, s.Put(ctx, "demo/b.json", []byte("[]")))
	require.NoError(t, s.Put(ctx, "demo/a.json", []byte(`[{"kind":"wait"}]`)))
	require.NoError(t, s.Put(ctx, "flow/a.yaml", []byte("- kind: wait\n")))

	data, err := s.Get(ctx, "demo/a.json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"kind":"wait"}]`, string(data))

	keys, err = s.List(ctx, "demo/")
	require.NoError(t, err)
	assert.Equal(t, []string{"demo/a.json", "demo/b.json"}, keys)

	keys, err = s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, keys, 3)
}

func TestLocalStore_BadKeys(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStore(t.TempDir())
	for _, key := range []string{"", "/", "../escape.json", "a/../../b"} {
		assert.ErrorIs(t, s.Put(ctx, key, nil), ErrBadKey, key)
	}
	_, err := s.Get(ctx, "..")
	assert.ErrorIs(t, err, ErrBadKey)
}

func TestLocalStore_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewLocalStore(t.TempDir())
	assert.ErrorIs(t, s.Put(ctx, "k", nil), context.Canceled)
}
