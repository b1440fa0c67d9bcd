package workflow

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

var ErrTemplateNotFound = errors.New("workflow template not found")

// Kind selects a template.
type Kind string

const (
	KindTextToImage  Kind = "text_to_image"
	KindImageToImage Kind = "image_to_image"
)

var Kinds = []Kind{KindTextToImage, KindImageToImage}

//go:embed templates/*.json
var embedded embed.FS

// Store holds the parsed templates. It is read-only after construction
// and safe for concurrent use.
type Store struct {
	templates map[Kind]Graph
}

// NewStore loads the templates compiled into the binary.
func NewStore() (*Store, error) {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		return nil, err
	}
	return NewStoreFromFS(sub)
}

// NewStoreFromDir loads <kind>.json for every kind from dir.
func NewStoreFromDir(dir string) (*Store, error) {
	return NewStoreFromFS(os.DirFS(dir))
}

func NewStoreFromFS(fsys fs.FS) (*Store, error) {
	s := &Store{templates: make(map[Kind]Graph, len(Kinds))}
	for _, kind := range Kinds {
		g, err := loadTemplate(fsys, kind)
		if err != nil {
			return nil, err
		}
		s.templates[kind] = g
	}
	return s, nil
}

func loadTemplate(fsys fs.FS, kind Kind) (Graph, error) {
	data, err := fs.ReadFile(fsys, string(kind)+".json")
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTemplateNotFound, kind, err)
	}
	g, err := ParseGraph(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTemplateNotFound, kind, err)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTemplateNotFound, kind, err)
	}
	return g, nil
}

// Get returns an independent copy of the template for kind.
func (s *Store) Get(kind Kind) (Graph, error) {
	g, ok := s.templates[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, kind)
	}
	return g.Clone(), nil
}
