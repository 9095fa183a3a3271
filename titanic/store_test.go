package titanic

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grassroot72/smamp/broker/protocol"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s := NewStore(dir)
	require.NoError(t, s.EnsureDir())
	return s
}

func TestStoreSaveAndLoadMessageRoundTrips(t *testing.T) {
	s := newTestStore(t)
	path := s.RequestPath("ABC123")
	want := protocol.Frames{[]byte("echo"), []byte("hello world")}

	require.NoError(t, s.SaveMessage(path, want))
	assert.True(t, s.Exists(path))

	got, err := s.LoadMessage(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStoreLoadMessageMissingFile(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LoadMessage(s.ReplyPath("nope"))
	assert.True(t, os.IsNotExist(err))
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	path := s.RequestPath("DEADBEEF")
	require.NoError(t, s.SaveMessage(path, protocol.Frames{[]byte("x")}))

	require.NoError(t, s.Delete(path))
	assert.False(t, s.Exists(path))
	require.NoError(t, s.Delete(path)) // deleting again is a no-op
}

func TestNewStoreDefaultsDir(t *testing.T) {
	s := NewStore("")
	assert.Equal(t, ".titanic", s.Dir)
	assert.Equal(t, filepath.Join(".titanic", "queue"), s.QueuePath())
}
