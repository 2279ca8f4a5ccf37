package localstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/pulseboard/errors"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetGetRoundTrip(t *testing.T) {
	s := openTemp(t)

	require.NoError(t, s.Set("pcb-chat-voice-enabled", "true"))

	v, ok, err := s.Get("pcb-chat-voice-enabled")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "true", v)
}

func TestGetMissingKey(t *testing.T) {
	s := openTemp(t)

	_, ok, err := s.Get("absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetOverwrites(t *testing.T) {
	s := openTemp(t)

	require.NoError(t, s.Set("k", "v1"))
	require.NoError(t, s.Set("k", "v2"))

	v, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", v)
}

func TestDelete(t *testing.T) {
	s := openTemp(t)

	require.NoError(t, s.Set("k", "v"))
	require.NoError(t, s.Delete("k"))
	require.NoError(t, s.Delete("k")) // absent key is fine

	_, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeys(t *testing.T) {
	s := openTemp(t)

	require.NoError(t, s.Set("b", "2"))
	require.NoError(t, s.Set("a", "1"))

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Set("pcb-chat-history", `[{"role":"user"}]`))
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	v, ok, err := second.Get("pcb-chat-history")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, v, "user")
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}
