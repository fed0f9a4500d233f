package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBackend_SaveLoadRoundTrip(t *testing.T) {
	b, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	data := []byte("payload bytes")
	require.NoError(t, b.Save(ctx, "backup-1.bak", data))

	loaded, err := b.Load(ctx, "backup-1.bak")
	require.NoError(t, err)
	assert.Equal(t, data, loaded)
}

func TestLocalBackend_ExistsAndDelete(t *testing.T) {
	b, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := b.Exists(ctx, "missing.bak")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Save(ctx, "backup-2.bak", []byte("x")))

	ok, err = b.Exists(ctx, "backup-2.bak")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, b.Delete(ctx, "backup-2.bak"))

	ok, err = b.Exists(ctx, "backup-2.bak")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalBackend_List(t *testing.T) {
	b, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, b.Save(ctx, "a.bak", []byte("a")))
	require.NoError(t, b.Save(ctx, "b.bak", []byte("b")))

	locators, err := b.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.bak", "b.bak"}, locators)
}

func TestLocalBackend_RejectsTraversalLocators(t *testing.T) {
	b, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, locator := range []string{"", "../escape", "dir/file", "a/../../b"} {
		assert.Error(t, b.Save(ctx, locator, []byte("x")), "locator %q", locator)
	}
}

func TestLocalBackend_LoadMissingFails(t *testing.T) {
	b, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	_, err = b.Load(context.Background(), "nope.bak")
	require.Error(t, err)
}

func TestRegistry_GetUnknownFails(t *testing.T) {
	r := NewRegistry()

	local, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	r.Register(local)

	got, err := r.Get("local")
	require.NoError(t, err)
	assert.Equal(t, local, got)

	_, err = r.Get("gcs")
	require.Error(t, err)
}
