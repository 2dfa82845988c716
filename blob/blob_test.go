package blob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	content := []byte("file content")
	handle, err := store.Put(content, "report.pdf")
	require.NoError(t, err)
	assert.NotEmpty(t, handle)
	assert.Contains(t, handle, ".pdf")

	got, err := store.Get(handle)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestHandlesAreUnique(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	h1, err := store.Put([]byte("one"), "same.txt")
	require.NoError(t, err)
	h2, err := store.Put([]byte("two"), "same.txt")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestGetMissing(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get("0c9e4a2e-missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	handle, err := store.Put([]byte("data"), "notes.md")
	require.NoError(t, err)

	require.NoError(t, store.Delete(handle))

	_, err = store.Get(handle)
	assert.ErrorIs(t, err, ErrNotFound)

	// idempotent
	assert.NoError(t, store.Delete(handle))
}

func TestRejectsTraversalHandles(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, handle := range []string{"../escape.txt", "a/b.txt", "..", ""} {
		_, err := store.Get(handle)
		assert.ErrorIs(t, err, ErrInvalidHandle, "handle %q", handle)
	}
}

func TestOddFilenamesDropExtension(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	handle, err := store.Put([]byte("x"), "weird.t%2ft")
	require.NoError(t, err)
	assert.NotContains(t, handle, "%")

	got, err := store.Get(handle)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}
