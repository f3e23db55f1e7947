package repository

import (
	"time"

	"github.com/yourusername/daily-trivia/internal/domain/entity"
)

// DailyQuizRepository определяет методы для работы с ежедневными викторинами
// и их журналом состава
type DailyQuizRepository interface {
	Create(quiz *entity.DailyQuiz) error
	GetByID(id string) (*entity.DailyQuiz, error)
	GetByDate(date time.Time) (*entity.DailyQuiz, error)
	Update(quiz *entity.DailyQuiz) error

	// ReplaceQuestionSet заменяет журнал состава викторины в одной транзакции
	ReplaceQuestionSet(quizID string, set []entity.DailyQuizQuestion) error

	// GetQuestionSet возвращает журнал состава в порядке order_index
	GetQuestionSet(quizID string) ([]entity.DailyQuizQuestion, error)

	// ListUnpublished возвращает составленные, но не опубликованные викторины.
	// Именно их подхватывает периодический retry-проход.
	ListUnpublished(limit int) ([]entity.DailyQuiz, error)

	// ClaimDate выполняет insert-if-absent claim-записи на дату.
	// Возвращает apperrors.ErrConflict, если дата уже захвачена.
	ClaimDate(date time.Time, claimedAt time.Time) error

	// FinishClaim помечает claim терминальным (составление состоялось)
	FinishClaim(date time.Time) error

	// ReleaseClaim удаляет claim, чтобы неудавшийся прогон можно было повторить
	ReleaseClaim(date time.Time) error
}

// CompositionLogRepository определяет методы для журнала прогонов составления
type CompositionLogRepository interface {
	Create(log *entity.CompositionLog) error
	GetByDate(date time.Time) ([]entity.CompositionLog, error)
	ListRecent(limit int) ([]entity.CompositionLog, error)
}
