package repository

import (
	"time"

	"github.com/yourusername/daily-trivia/internal/domain/entity"
)

// QuestionRepository определяет методы для работы с пулом вопросов
type QuestionRepository interface {
	Create(question *entity.Question) error
	CreateBatch(questions []entity.Question) error
	GetByID(id string) (*entity.Question, error)
	GetByIDs(ids []string) ([]entity.Question, error)
	Update(question *entity.Question) error
	Delete(id string) error

	// FetchPool возвращает вопросы пула по типизированному фильтру.
	// Всегда отфильтровывает approved = false и disabled = true.
	// Порядок: exposure_count ASC, last_used_at ASC NULLS FIRST, id ASC;
	// случайный тай-брейк среди равных применяет селектор, не хранилище.
	FetchPool(spec FilterSpec) ([]entity.Question, error)

	// CountPool возвращает размер пула по тому же фильтру
	CountPool(spec FilterSpec) (int64, error)

	// CommitUsage атомарно инкрементирует exposure_count на 1 и ставит
	// last_used_at для каждого id. Один batch-запрос, ровно один раз за публикацию.
	CommitUsage(questionIDs []string, usedAt time.Time) error

	// PoolStats возвращает статистику пула: всего, допущенных к выбору, по сложностям
	PoolStats() (total int64, selectable int64, byDifficulty map[string]int64, err error)
}
