package postgres

import (
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/yourusername/daily-trivia/internal/domain/entity"
	"github.com/yourusername/daily-trivia/internal/domain/repository"
	apperrors "github.com/yourusername/daily-trivia/internal/pkg/errors"
)

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo создает новый репозиторий вопросов
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// Create создает новый вопрос
func (r *QuestionRepo) Create(question *entity.Question) error {
	return r.db.Create(question).Error
}

// CreateBatch создает пакет вопросов
func (r *QuestionRepo) CreateBatch(questions []entity.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		// Устанавливаем кодировку UTF-8 внутри транзакции
		if err := tx.Exec("SET CLIENT_ENCODING TO 'UTF8'").Error; err != nil {
			return err
		}
		return tx.Create(&questions).Error
	})
}

// GetByID возвращает вопрос по ID
func (r *QuestionRepo) GetByID(id string) (*entity.Question, error) {
	var question entity.Question
	err := r.db.First(&question, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &question, nil
}

// GetByIDs возвращает вопросы по списку ID
func (r *QuestionRepo) GetByIDs(ids []string) ([]entity.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var questions []entity.Question
	err := r.db.Where("id IN ?", ids).Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// Update обновляет информацию о вопросе
func (r *QuestionRepo) Update(question *entity.Question) error {
	return r.db.Save(question).Error
}

// Delete удаляет вопрос
func (r *QuestionRepo) Delete(id string) error {
	return r.db.Delete(&entity.Question{}, "id = ?", id).Error
}

// poolQuery переводит типизированный FilterSpec в GORM-запрос.
// Единственное место, где политика фильтра встречается с SQL.
func (r *QuestionRepo) poolQuery(spec repository.FilterSpec) *gorm.DB {
	query := r.db.Model(&entity.Question{}).
		Where("approved = ? AND disabled = ?", true, false)

	if spec.Difficulty != "" {
		query = query.Where("difficulty = ?", spec.Difficulty)
	}
	if len(spec.ExcludeIDs) > 0 {
		query = query.Where("id NOT IN ?", spec.ExcludeIDs)
	}
	if spec.MinDaysSinceUsed > 0 {
		// daysSince < порога → не допускается; граница включительная:
		// last_used_at ровно N дней назад проходит фильтр
		cutoff := spec.AsOf.AddDate(0, 0, -spec.MinDaysSinceUsed)
		query = query.Where("last_used_at IS NULL OR last_used_at <= ?", cutoff)
	}
	if len(spec.PreferredThemes) > 0 {
		query = query.Where("jsonb_exists_any(themes, ?)", pq.Array(spec.PreferredThemes))
	}
	if len(spec.ExcludeSubjects) > 0 {
		query = query.Where("NOT jsonb_exists_any(subjects, ?)", pq.Array(spec.ExcludeSubjects))
	}
	if spec.MaxExposureCount != nil {
		query = query.Where("exposure_count <= ?", *spec.MaxExposureCount)
	}
	return query
}

// FetchPool возвращает допустимый пул по фильтру.
// Порядок: меньше показов → раньше; никогда не использованные → первыми.
// Случайный тай-брейк среди равных делает селектор, чтобы источник
// случайности был инжектируемым и воспроизводимым в тестах.
func (r *QuestionRepo) FetchPool(spec repository.FilterSpec) ([]entity.Question, error) {
	var questions []entity.Question
	query := r.poolQuery(spec).
		Order("exposure_count ASC").
		Order("last_used_at ASC NULLS FIRST").
		Order("id ASC")
	if spec.Limit > 0 {
		query = query.Limit(spec.Limit)
	}
	err := query.Find(&questions).Error
	return questions, err
}

// CountPool возвращает размер допустимого пула по фильтру
func (r *QuestionRepo) CountPool(spec repository.FilterSpec) (int64, error) {
	var count int64
	err := r.poolQuery(spec).Count(&count).Error
	return count, err
}

// CommitUsage атомарно фиксирует факт публикации вопросов: exposure_count + 1
// и last_used_at одним batch-запросом
func (r *QuestionRepo) CommitUsage(questionIDs []string, usedAt time.Time) error {
	if len(questionIDs) == 0 {
		return nil
	}
	return r.db.Model(&entity.Question{}).
		Where("id IN ?", questionIDs).
		Updates(map[string]interface{}{
			"exposure_count": gorm.Expr("exposure_count + 1"),
			"last_used_at":   usedAt,
		}).Error
}

// PoolStats возвращает статистику пула вопросов
func (r *QuestionRepo) PoolStats() (total int64, selectable int64, byDifficulty map[string]int64, err error) {
	byDifficulty = make(map[string]int64)

	if err = r.db.Model(&entity.Question{}).Count(&total).Error; err != nil {
		return 0, 0, nil, err
	}

	if err = r.db.Model(&entity.Question{}).
		Where("approved = ? AND disabled = ?", true, false).
		Count(&selectable).Error; err != nil {
		return 0, 0, nil, err
	}

	for _, d := range entity.Difficulties {
		var count int64
		if err = r.db.Model(&entity.Question{}).
			Where("approved = ? AND disabled = ? AND difficulty = ?", true, false, d).
			Count(&count).Error; err != nil {
			return 0, 0, nil, err
		}
		byDifficulty[d] = count
	}

	return total, selectable, byDifficulty, nil
}
