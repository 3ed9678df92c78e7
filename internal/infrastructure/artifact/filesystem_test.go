package artifact

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestStore(t *testing.T, mirror Mirror) *FileSystemStore {
	t.Helper()
	s, err := NewFileSystemStore(&FileSystemStoreConfig{
		BasePath:     t.TempDir(),
		BaseURL:      "/artifacts/",
		Mirror:       mirror,
		MirrorPrefix: "maps",
		Logger:       zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, time.March, 5, 10, 0, 0, 0, time.UTC) }
	return s
}

type fakeMirror struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (m *fakeMirror) Upload(_ context.Context, key string, _ []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.keys = append(m.keys, key)
	return nil
}

func TestFileSystemStore_Store(t *testing.T) {
	t.Run("writes under year and month", func(t *testing.T) {
		s := newTestStore(t, nil)

		res, err := s.Store(context.Background(), &StoreRequest{
			Name:        "OS 500 MAP.kml",
			ContentType: "application/vnd.google-earth.kml+xml",
			Data:        []byte("<kml/>"),
		})
		require.NoError(t, err)
		assert.Equal(t, "2026/03/OS 500 MAP.kml", res.Path)
		assert.Equal(t, "/artifacts/2026/03/OS 500 MAP.kml", res.URL)
		assert.Equal(t, int64(6), res.Size)
		assert.Empty(t, res.ObjectKey)

		data, err := os.ReadFile(filepath.Join(s.config.BasePath, "2026", "03", "OS 500 MAP.kml"))
		require.NoError(t, err)
		assert.Equal(t, "<kml/>", string(data))
	})

	t.Run("overwrites an existing document", func(t *testing.T) {
		s := newTestStore(t, nil)
		req := &StoreRequest{Name: "a.kml", Data: []byte("one")}
		_, err := s.Store(context.Background(), req)
		require.NoError(t, err)

		req.Data = []byte("two")
		res, err := s.Store(context.Background(), req)
		require.NoError(t, err)

		rc, err := s.Open(context.Background(), res.Path)
		require.NoError(t, err)
		defer rc.Close()
		data, _ := io.ReadAll(rc)
		assert.Equal(t, "two", string(data))
	})

	t.Run("rejects bad requests", func(t *testing.T) {
		s := newTestStore(t, nil)
		for _, req := range []*StoreRequest{
			nil,
			{Name: "", Data: []byte("x")},
			{Name: "../evil.kml", Data: []byte("x")},
			{Name: "a/b.kml", Data: []byte("x")},
			{Name: "a.kml"},
		} {
			_, err := s.Store(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := newTestStore(t, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.Store(ctx, &StoreRequest{Name: "a.kml", Data: []byte("x")})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("mirror receives the object key", func(t *testing.T) {
		m := &fakeMirror{}
		s := newTestStore(t, m)

		res, err := s.Store(context.Background(), &StoreRequest{Name: "a.kml", Data: []byte("x")})
		require.NoError(t, err)
		assert.Equal(t, "maps/2026/03/a.kml", res.ObjectKey)
		assert.Equal(t, []string{"maps/2026/03/a.kml"}, m.keys)
	})

	t.Run("mirror failure is not fatal", func(t *testing.T) {
		m := &fakeMirror{err: errors.New("bucket gone")}
		s := newTestStore(t, m)

		res, err := s.Store(context.Background(), &StoreRequest{Name: "a.kml", Data: []byte("x")})
		require.NoError(t, err)
		assert.Empty(t, res.ObjectKey)
	})
}

func TestFileSystemStore_PathTraversal(t *testing.T) {
	s := newTestStore(t, nil)
	outside := filepath.Join(filepath.Dir(s.config.BasePath), "secret.kml")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))

	for _, p := range []string{
		"../secret.kml",
		"2026/../../secret.kml",
		`..\secret.kml`,
		"",
	} {
		t.Run(p, func(t *testing.T) {
			_, err := s.Open(context.Background(), p)
			assert.ErrorIs(t, err, ErrInvalidPath)

			err = s.Delete(context.Background(), p)
			assert.ErrorIs(t, err, ErrInvalidPath)
		})
	}

	_, err := os.Stat(outside)
	assert.NoError(t, err)
}

func TestFileSystemStore_OpenAndDelete(t *testing.T) {
	s := newTestStore(t, nil)
	res, err := s.Store(context.Background(), &StoreRequest{Name: "a.kml", Data: []byte("x")})
	require.NoError(t, err)

	_, err = s.Open(context.Background(), "2026/03/missing.kml")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Open(context.Background(), "2026/03")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(context.Background(), res.Path))
	require.NoError(t, s.Delete(context.Background(), res.Path))

	_, err = s.Open(context.Background(), res.Path)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileSystemStore_CleanupOlderThan(t *testing.T) {
	s := newTestStore(t, nil)
	s.now = time.Now

	old, err := s.Store(context.Background(), &StoreRequest{Name: "old.kml", Data: []byte("x")})
	require.NoError(t, err)
	fresh, err := s.Store(context.Background(), &StoreRequest{Name: "fresh.kml", Data: []byte("x")})
	require.NoError(t, err)
	other := filepath.Join(s.config.BasePath, "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))

	past := time.Now().Add(-72 * time.Hour)
	oldPath := filepath.Join(s.config.BasePath, filepath.FromSlash(old.Path))
	require.NoError(t, os.Chtimes(oldPath, past, past))
	require.NoError(t, os.Chtimes(other, past, past))

	deleted, err := s.CleanupOlderThan(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(s.config.BasePath, filepath.FromSlash(fresh.Path)))
	assert.NoError(t, err)
	_, err = os.Stat(other)
	assert.NoError(t, err)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "OS CATALÃO-SUPORTE (RÁDIO_FIBRA) ab12cd34 MAP.kml",
		SanitizeName("OS CATALÃO-SUPORTE (RÁDIO/FIBRA) ab12cd34 MAP.kml"))
	assert.Equal(t, "a_b", SanitizeName("a\\b"))
	assert.Equal(t, "x", SanitizeName(" ..x.. "))
	assert.Equal(t, "a_b", SanitizeName("a\nb"))
}
