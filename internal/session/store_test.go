// File: internal/session/store_test.go
package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testSession() Session {
	return Session{
		{Name: "sid", Value: "abc123", Domain: ".medium.com", Path: "/", Expires: 1893456000, Secure: true, HTTPOnly: true},
		{Name: "uid", Value: "u42", Domain: ".medium.com", Path: "/", Expires: 1893456000},
	}
}

func TestLoadMissingFileIsAbsent(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope.json"), zap.NewNop())

	sess, ok := store.Load()
	assert.False(t, ok, "a missing file is absence, not a fault")
	assert.Nil(t, sess)
}

func TestLoadCorruptFileIsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, ok := NewStore(path, zap.NewNop()).Load()
	assert.False(t, ok)
}

func TestLoadEmptyArrayIsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o600))

	_, ok := NewStore(path, zap.NewNop()).Load()
	assert.False(t, ok, "an empty cookie array is the same as no session")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "cookies.json")
	store := NewStore(path, zap.NewNop())

	require.True(t, store.Save(testSession()), "save must create missing parent directories")

	loaded, ok := store.Load()
	require.True(t, ok)
	if diff := cmp.Diff(testSession(), loaded); diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveEmptySessionLeavesFileUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	store := NewStore(path, zap.NewNop())
	require.True(t, store.Save(testSession()))

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.False(t, store.Save(nil), "an empty session must not be persisted")
	assert.False(t, store.Save(Session{}))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "a refused save must not clobber the existing session")
}

func TestSaveReplacesWholeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	store := NewStore(path, zap.NewNop())
	require.True(t, store.Save(testSession()))

	replacement := Session{{Name: "new", Value: "v", Domain: ".medium.com", Path: "/"}}
	require.True(t, store.Save(replacement))

	loaded, ok := store.Load()
	require.True(t, ok)
	require.Len(t, loaded, 1)
	assert.Equal(t, "new", loaded[0].Name)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCookieParams(t *testing.T) {
	sess := Session{
		{Name: "sid", Value: "v", Domain: ".medium.com", Path: "/", Expires: 1893456000, Secure: true, SameSite: "Lax"},
		{Name: "tmp", Value: "v2", Domain: ".medium.com", Path: "/", Expires: -1},
	}

	params := sess.CookieParams()
	require.Len(t, params, 2)

	assert.Equal(t, "sid", params[0].Name)
	assert.NotNil(t, params[0].Expires, "a concrete expiry must be carried over")
	assert.Equal(t, "Lax", string(params[0].SameSite))
	assert.Nil(t, params[1].Expires, "session cookies carry no expiry")
}

func TestEmpty(t *testing.T) {
	assert.True(t, Session(nil).Empty())
	assert.True(t, Session{}.Empty())
	assert.False(t, testSession().Empty())
}
