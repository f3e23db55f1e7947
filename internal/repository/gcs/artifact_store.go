package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"

	apperrors "github.com/yourusername/daily-trivia/internal/pkg/errors"
)

// ArtifactStore реализует repository.ArtifactStore поверх Google Cloud Storage.
// Артефакты раздаются через CDN-домен, если он задан, иначе напрямую из бакета.
type ArtifactStore struct {
	client    *storage.Client
	bucket    string
	cdnDomain string
}

// NewArtifactStore создает хранилище артефактов
func NewArtifactStore(ctx context.Context, bucket, cdnDomain string) (*ArtifactStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("artifact store bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &ArtifactStore{
		client:    client,
		bucket:    bucket,
		cdnDomain: cdnDomain,
	}, nil
}

// Upload выгружает артефакт по ключу и возвращает публичный URL.
// Ошибки выгрузки отдаются наверх без внутренних ретраев: повтором
// публикации занимается периодический retry-проход.
func (s *ArtifactStore) Upload(ctx context.Context, key string, body []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "application/json"
	w.CacheControl = "public, max-age=31536000, immutable" // Версионированные ключи не перезаписываются

	if _, err := io.Copy(w, bytes.NewReader(body)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("%w: write %q: %v", apperrors.ErrPublish, key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: close %q: %v", apperrors.ErrPublish, key, err)
	}

	return s.publicURL(key), nil
}

// Delete удаляет артефакт по ключу
func (s *ArtifactStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return s.client.Bucket(s.bucket).Object(key).Delete(ctx)
}

// HealthCheck проверяет доступность бакета
func (s *ArtifactStore) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := s.client.Bucket(s.bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("bucket %q is not reachable: %w", s.bucket, err)
	}
	return nil
}

// publicURL формирует публичный адрес артефакта
func (s *ArtifactStore) publicURL(key string) string {
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key)
}
