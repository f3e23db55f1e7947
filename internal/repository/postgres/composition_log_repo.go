package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/daily-trivia/internal/domain/entity"
)

// CompositionLogRepo реализует repository.CompositionLogRepository
type CompositionLogRepo struct {
	db *gorm.DB
}

// NewCompositionLogRepo создает новый репозиторий журналов составления
func NewCompositionLogRepo(db *gorm.DB) *CompositionLogRepo {
	return &CompositionLogRepo{db: db}
}

// Create сохраняет журнал прогона
func (r *CompositionLogRepo) Create(log *entity.CompositionLog) error {
	return r.db.Create(log).Error
}

// GetByDate возвращает журналы прогонов на дату (ручные и плановые попытки)
func (r *CompositionLogRepo) GetByDate(date time.Time) ([]entity.CompositionLog, error) {
	var logs []entity.CompositionLog
	err := r.db.Where("target_date = ?", dateOnly(date)).Order("created_at").Find(&logs).Error
	return logs, err
}

// ListRecent возвращает последние журналы прогонов
func (r *CompositionLogRepo) ListRecent(limit int) ([]entity.CompositionLog, error) {
	var logs []entity.CompositionLog
	query := r.db.Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&logs).Error
	return logs, err
}
