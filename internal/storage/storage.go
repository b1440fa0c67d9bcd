// Package storage persists generated artifacts under collision-free keys.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrStorageWrite = errors.New("storage: write failed")

// Object is a persisted artifact.
type Object struct {
	Key string
	URL string
}

type ArtifactStore interface {
	// Save writes data under a fresh key derived from name and never
	// overwrites an existing object.
	Save(ctx context.Context, name string, data []byte) (Object, error)
}

// NewKey returns prefix/yyyy/mm/dd/<uuid><ext>, keeping the extension of name.
func NewKey(prefix, name string, now time.Time) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" || len(ext) > 5 {
		ext = ".png"
	}
	return path.Join(prefix, now.UTC().Format("2006/01/02"), uuid.NewString()+ext)
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
