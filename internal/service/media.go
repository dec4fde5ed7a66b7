package service

import (
	"context"
	"fmt"
	"io"
	"time"

	apperrors "github.com/vertexautomation/site-server/internal/errors"
	"github.com/vertexautomation/site-server/internal/storage"
)

const mediaURLExpiry = time.Hour

type UploadResult struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// MediaService stores admin-uploaded images. Without an object store every
// call reports the feature as unavailable.
type MediaService struct {
	store storage.ObjectStore
	now   func() time.Time
}

func NewMediaService(store storage.ObjectStore) *MediaService {
	return &MediaService{store: store, now: time.Now}
}

func (s *MediaService) Enabled() bool {
	return s.store != nil
}

func (s *MediaService) Upload(ctx context.Context, folder string, r io.Reader, size int64, contentType string) (*UploadResult, error) {
	if s.store == nil {
		return nil, apperrors.Unavailable("Uploads")
	}
	ext, ok := storage.ImageExtension(contentType)
	if !ok {
		return nil, apperrors.InvalidInput("file", "must be a png, jpeg, webp, gif or svg image")
	}

	key := storage.NewObjectKey(folder, ext, s.now().UTC())
	if err := s.store.Put(ctx, key, r, size, contentType); err != nil {
		return nil, apperrors.External("object storage", err)
	}
	url, err := s.store.PresignGet(ctx, key, mediaURLExpiry)
	if err != nil {
		return nil, apperrors.External("object storage", err)
	}
	return &UploadResult{Key: key, URL: url}, nil
}

// URL returns a short-lived download link for key.
func (s *MediaService) URL(ctx context.Context, key string) (string, error) {
	if s.store == nil {
		return "", apperrors.Unavailable("Media")
	}
	if !storage.ValidKey(key) {
		return "", apperrors.NotFound("Media")
	}
	url, err := s.store.PresignGet(ctx, key, mediaURLExpiry)
	if err != nil {
		return "", fmt.Errorf("presign media: %w", err)
	}
	return url, nil
}

func (s *MediaService) Delete(ctx context.Context, key string) error {
	if s.store == nil {
		return apperrors.Unavailable("Uploads")
	}
	if !storage.ValidKey(key) {
		return apperrors.InvalidInput("key", "malformed object key")
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return apperrors.External("object storage", err)
	}
	return nil
}
