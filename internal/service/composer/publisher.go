package composer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/daily-trivia/internal/domain/repository"
)

// Publisher выгружает готовые шаблоны в объектное хранилище.
// Последний шаг перед тем, как викторина считается готовой.
type Publisher struct {
	store repository.ArtifactStore
}

// NewPublisher создает новый публикатор
func NewPublisher(store repository.ArtifactStore) *Publisher {
	return &Publisher{store: store}
}

// GenerateKey формирует ключ артефакта: неймспейс по дате и id викторины,
// суффикс с версией и меткой времени исключает коллизии при перепубликации
func (p *Publisher) GenerateKey(quizDate time.Time, quizID string, version int, at time.Time) string {
	return fmt.Sprintf("quiz/%s/%s/v%d-%d.json",
		quizDate.Format("2006-01-02"), quizID, version, at.UnixMilli())
}

// Publish сериализует шаблон и выгружает его в хранилище.
// Ошибки выгрузки отдаются наверх без ретраев: повтором занимается
// периодический retry-проход.
func (p *Publisher) Publish(ctx context.Context, template *QuizTemplate, quizDate time.Time, at time.Time) (url string, key string, err error) {
	body, err := json.Marshal(template)
	if err != nil {
		return "", "", fmt.Errorf("failed to serialize template for quiz %s: %w", template.DailyQuizID, err)
	}

	key = p.GenerateKey(quizDate, template.DailyQuizID, template.Version, at)
	url, err = p.store.Upload(ctx, key, body)
	if err != nil {
		return "", key, err
	}

	log.Printf("[Publisher] Артефакт викторины %s v%d выгружен: %s", template.DailyQuizID, template.Version, url)
	return url, key, nil
}

// Cleanup удаляет артефакт по ключу. Best-effort: ошибка удаления
// логируется и глотается, на исход прогона не влияет.
func (p *Publisher) Cleanup(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := p.store.Delete(ctx, key); err != nil {
		log.Printf("[Publisher] Не удалось удалить артефакт %s: %v", key, err)
	}
}

// HealthCheck проверяет доступность хранилища артефактов
func (p *Publisher) HealthCheck(ctx context.Context) error {
	return p.store.HealthCheck(ctx)
}
