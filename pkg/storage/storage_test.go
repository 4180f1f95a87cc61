package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalWriteReadReplace(t *testing.T) {
	s, err := NewLocalStorage(LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "current.json", strings.NewReader(`{"url":"https://a"}`), -1, "application/json"))
	require.NoError(t, s.Write(ctx, "current.json", strings.NewReader(`{"url":"https://b"}`), -1, "application/json"))

	rc, err := s.Read(ctx, "current.json")
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, `{"url":"https://b"}`, string(b))

	// No temp files left behind.
	entries, err := os.ReadDir(s.BasePath())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalReadMissing(t *testing.T) {
	s, err := NewLocalStorage(LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)

	_, err = s.Read(context.Background(), "nope.json")
	assert.True(t, errors.Is(err, ErrNotFound))

	ok, err := s.Exists(context.Background(), "nope.json")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalKeysStayUnderBase(t *testing.T) {
	base := t.TempDir()
	s, err := NewLocalStorage(LocalConfig{BasePath: base})
	require.NoError(t, err)

	require.NoError(t, s.Write(context.Background(), "../../escape.json", strings.NewReader("x"), 1, ""))
	_, err = os.Stat(filepath.Join(base, "escape.json"))
	assert.NoError(t, err)
}

func TestLocalDeleteIdempotent(t *testing.T) {
	s, err := NewLocalStorage(LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "k", strings.NewReader("x"), 1, ""))
	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
}

func TestPublicURL(t *testing.T) {
	s, err := NewLocalStorage(LocalConfig{BasePath: t.TempDir(), PublicURL: "https://relay.example/"})
	require.NoError(t, err)
	assert.Equal(t, "https://relay.example/current.json", s.PublicURL("current.json"))

	bare, err := NewLocalStorage(LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, bare.PublicURL("current.json"))
}

func TestNewUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), Config{Driver: "gcs"})
	assert.Error(t, err)
}

func TestNewS3RequiresBucket(t *testing.T) {
	_, err := NewS3Storage(context.Background(), S3Config{})
	assert.Error(t, err)
}
