package repository

import "context"

// ArtifactStore определяет границу с объектным хранилищем, куда выгружаются
// опубликованные шаблоны викторин. Upload возвращает публичный URL артефакта.
type ArtifactStore interface {
	Upload(ctx context.Context, key string, body []byte) (string, error)
	Delete(ctx context.Context, key string) error
	HealthCheck(ctx context.Context) error
}
