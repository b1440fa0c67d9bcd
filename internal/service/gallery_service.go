package service

import (
	"context"

	"docent-service/internal/entity"
)

// ArtifactRepository is implemented by postgresql.ArtifactRepository.
type ArtifactRepository interface {
	ListPublic(ctx context.Context, limit, offset int) ([]entity.GeneratedArtifact, error)
	View(ctx context.Context, id int64) (*entity.GeneratedArtifact, error)
	Like(ctx context.Context, id int64) (int, error)
	SetPublic(ctx context.Context, id int64, public bool) error
}

type GalleryService struct {
	repo ArtifactRepository
}

func NewGalleryService(repo ArtifactRepository) *GalleryService {
	return &GalleryService{repo: repo}
}

func (s *GalleryService) List(ctx context.Context, limit, offset int) ([]entity.GeneratedArtifact, error) {
	return s.repo.ListPublic(ctx, limit, offset)
}

func (s *GalleryService) Get(ctx context.Context, id int64) (*entity.GeneratedArtifact, error) {
	return s.repo.View(ctx, id)
}

func (s *GalleryService) Like(ctx context.Context, id int64) (int, error) {
	return s.repo.Like(ctx, id)
}

func (s *GalleryService) Publish(ctx context.Context, id int64, public bool) error {
	return s.repo.SetPublic(ctx, id, public)
}
