package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileStore writes artifacts below a media root that is served at baseURL.
type FileStore struct {
	basePath string
	baseURL  string
	prefix   string
}

func NewFileStore(basePath, baseURL, prefix string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath, baseURL: baseURL, prefix: prefix}, nil
}

func (s *FileStore) BasePath() string {
	return s.basePath
}

func (s *FileStore) Save(ctx context.Context, name string, data []byte) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	if len(data) == 0 {
		return Object{}, fmt.Errorf("%w: empty artifact", ErrStorageWrite)
	}
	key, err := sanitizeKey(NewKey(s.prefix, name, time.Now()))
	if err != nil {
		return Object{}, err
	}
	if err := s.write(key, data); err != nil {
		return Object{}, fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	return Object{Key: key, URL: joinURL(s.baseURL, key)}, nil
}

func (s *FileStore) write(key string, data []byte) error {
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("ensure directory: %w", err)
	}
	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(fullPath)
		return err
	}
	return f.Close()
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
