package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Save(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, "/media/", "generated")
	require.NoError(t, err)

	obj, err := s.Save(context.Background(), "docent_0001.png", []byte("PNG"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(obj.Key, "generated/"))
	assert.True(t, strings.HasSuffix(obj.Key, ".png"))
	assert.Equal(t, "/media/"+obj.Key, obj.URL)

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(obj.Key)))
	require.NoError(t, err)
	assert.Equal(t, []byte("PNG"), data)
}

func TestFileStore_ConcurrentSavesNeverCollide(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "/media", "generated")
	require.NoError(t, err)

	const n = 32
	keys := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			obj, err := s.Save(context.Background(), "same.png", []byte("x"))
			if err != nil {
				t.Error(err)
				return
			}
			keys <- obj.Key
		}()
	}
	wg.Wait()
	close(keys)

	seen := map[string]bool{}
	for k := range keys {
		assert.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}
	assert.Len(t, seen, n)
}

func TestFileStore_EmptyData(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "/media", "")
	require.NoError(t, err)

	_, err = s.Save(context.Background(), "a.png", nil)
	assert.True(t, errors.Is(err, ErrStorageWrite))
}

func TestFileStore_WriteFailure(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, "/media", "generated")
	require.NoError(t, err)

	// A regular file where the prefix directory should be.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "generated"), []byte("x"), 0o644))

	_, err = s.Save(context.Background(), "a.png", []byte("PNG"))
	assert.True(t, errors.Is(err, ErrStorageWrite))
}

func TestNewKey(t *testing.T) {
	now := time.Date(2025, 7, 3, 10, 0, 0, 0, time.UTC)

	k := NewKey("generated", "ComfyUI_0001.PNG", now)
	assert.True(t, strings.HasPrefix(k, "generated/2025/07/03/"))
	assert.True(t, strings.HasSuffix(k, ".png"))

	assert.True(t, strings.HasSuffix(NewKey("", "noext", now), ".png"))
	assert.NotEqual(t, NewKey("p", "a.png", now), NewKey("p", "a.png", now))
}

func TestSanitizeKey(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"generated/a.png", "generated/a.png", false},
		{"/abs/a.png", "abs/a.png", false},
		{"./x/../y.png", "y.png", false},
		{"../escape.png", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := sanitizeKey(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}
