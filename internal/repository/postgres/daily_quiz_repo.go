package postgres

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yourusername/daily-trivia/internal/domain/entity"
	apperrors "github.com/yourusername/daily-trivia/internal/pkg/errors"
)

// DailyQuizRepo реализует repository.DailyQuizRepository
type DailyQuizRepo struct {
	db *gorm.DB
}

// NewDailyQuizRepo создает новый репозиторий ежедневных викторин
func NewDailyQuizRepo(db *gorm.DB) *DailyQuizRepo {
	return &DailyQuizRepo{db: db}
}

// Create создает новую викторину дня
func (r *DailyQuizRepo) Create(quiz *entity.DailyQuiz) error {
	return r.db.Create(quiz).Error
}

// GetByID возвращает викторину по ID
func (r *DailyQuizRepo) GetByID(id string) (*entity.DailyQuiz, error) {
	var quiz entity.DailyQuiz
	err := r.db.First(&quiz, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &quiz, nil
}

// GetByDate возвращает викторину на указанную дату
func (r *DailyQuizRepo) GetByDate(date time.Time) (*entity.DailyQuiz, error) {
	var quiz entity.DailyQuiz
	err := r.db.First(&quiz, "quiz_date = ?", dateOnly(date)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &quiz, nil
}

// Update обновляет викторину
func (r *DailyQuizRepo) Update(quiz *entity.DailyQuiz) error {
	return r.db.Save(quiz).Error
}

// ReplaceQuestionSet заменяет журнал состава викторины в одной транзакции
func (r *DailyQuizRepo) ReplaceQuestionSet(quizID string, set []entity.DailyQuizQuestion) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&entity.DailyQuizQuestion{}, "daily_quiz_id = ?", quizID).Error; err != nil {
			return err
		}
		if len(set) == 0 {
			return nil
		}
		return tx.Create(&set).Error
	})
}

// GetQuestionSet возвращает журнал состава в порядке order_index
func (r *DailyQuizRepo) GetQuestionSet(quizID string) ([]entity.DailyQuizQuestion, error) {
	var set []entity.DailyQuizQuestion
	err := r.db.Where("daily_quiz_id = ?", quizID).Order("order_index").Find(&set).Error
	if err != nil {
		return nil, err
	}
	return set, nil
}

// ListUnpublished возвращает составленные, но не опубликованные викторины
func (r *DailyQuizRepo) ListUnpublished(limit int) ([]entity.DailyQuiz, error) {
	var quizzes []entity.DailyQuiz
	query := r.db.Where("status = ?", entity.DailyQuizStatusComposed).Order("quiz_date")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&quizzes).Error
	return quizzes, err
}

// ClaimDate выполняет insert-if-absent claim-записи на дату.
// Уникальный первичный ключ по дате превращает гонку двух прогонов
// в ошибку вставки у проигравшего; она отдается как ErrConflict.
func (r *DailyQuizRepo) ClaimDate(date time.Time, claimedAt time.Time) error {
	claim := entity.CompositionClaim{
		QuizDate:  dateOnly(date),
		ClaimedAt: claimedAt,
		Status:    entity.ClaimStatusHeld,
	}
	err := r.db.Create(&claim).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return err
	}
	return nil
}

// FinishClaim помечает claim терминальным
func (r *DailyQuizRepo) FinishClaim(date time.Time) error {
	return r.db.Model(&entity.CompositionClaim{}).
		Where("quiz_date = ?", dateOnly(date)).
		Update("status", entity.ClaimStatusDone).Error
}

// ReleaseClaim удаляет claim, открывая дату для повторного прогона
func (r *DailyQuizRepo) ReleaseClaim(date time.Time) error {
	return r.db.Delete(&entity.CompositionClaim{}, "quiz_date = ?", dateOnly(date)).Error
}

// dateOnly нормализует дату к полуночи UTC: колонка имеет тип date,
// сравнение не должно зависеть от времени суток на входе
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// isUniqueViolation распознает нарушение уникальности по коду SQLSTATE 23505,
// который драйвер может не преобразовать в gorm.ErrDuplicatedKey
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
