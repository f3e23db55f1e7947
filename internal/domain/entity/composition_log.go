package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// SelectionAttemptLog фиксирует одну попытку добора вопросов на конкретном
// уровне ослабления анти-повтора.
type SelectionAttemptLog struct {
	RelaxationLevel int      `json:"relaxation_level"`
	Attempted       int      `json:"attempted"`
	Selected        int      `json:"selected"`
	Issues          []string `json:"issues,omitempty"`
}

// DifficultySelectionLog - итог отбора по одной сложности: сколько хотели,
// сколько набрали, до какого уровня ослабления дошли.
type DifficultySelectionLog struct {
	Difficulty      string                `json:"difficulty"`
	Target          int                   `json:"target"`
	Selected        int                   `json:"selected"`
	RelaxationLevel int                   `json:"relaxation_level"`
	Attempts        []SelectionAttemptLog `json:"attempts,omitempty"`
	Issues          []string              `json:"issues,omitempty"`
}

// SelectionProcessLog - JSONB-колонка с процессом отбора по всем сложностям
type SelectionProcessLog []DifficultySelectionLog

// Scan реализует интерфейс sql.Scanner для SelectionProcessLog
func (l *SelectionProcessLog) Scan(value interface{}) error {
	if value == nil {
		*l = SelectionProcessLog{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}
	if len(bytes) == 0 {
		*l = SelectionProcessLog{}
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// Value реализует интерфейс driver.Valuer для SelectionProcessLog
func (l SelectionProcessLog) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// FinalSelectionLog - сводка итогового состава викторины
type FinalSelectionLog struct {
	TotalQuestions     int            `json:"total_questions"`
	TargetDistribution map[string]int `json:"target_distribution"`
	ActualDistribution map[string]int `json:"actual_distribution"`
	ThemeDistribution  map[string]int `json:"theme_distribution,omitempty"`
	AverageExposure    float64        `json:"average_exposure"`
	OldestLastUsedAt   *time.Time     `json:"oldest_last_used_at,omitempty"`
	NewestLastUsedAt   *time.Time     `json:"newest_last_used_at,omitempty"`
}

// Scan реализует интерфейс sql.Scanner для FinalSelectionLog
func (l *FinalSelectionLog) Scan(value interface{}) error {
	if value == nil {
		*l = FinalSelectionLog{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}
	if len(bytes) == 0 {
		*l = FinalSelectionLog{}
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// Value реализует интерфейс driver.Valuer для FinalSelectionLog
func (l FinalSelectionLog) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// CompositionLog - durable-журнал одного прогона составления викторины.
// Пишется ровно один раз за прогон, независимо от успеха или ошибки.
// Производные метрики по журналу считаются свободными функциями в пакете
// composer, а не методами на записи.
type CompositionLog struct {
	ID               uint                `gorm:"primaryKey" json:"id"`
	TargetDate       time.Time           `gorm:"type:date;not null;index" json:"target_date"`
	Mode             string              `gorm:"size:20;not null" json:"mode"`
	ThemePlan        ThemePlan           `gorm:"type:jsonb" json:"theme_plan"`
	SelectionProcess SelectionProcessLog `gorm:"type:jsonb" json:"selection_process"`
	FinalSelection   FinalSelectionLog   `gorm:"type:jsonb" json:"final_selection"`
	Warnings         StringArray         `gorm:"type:jsonb" json:"warnings"`
	DurationMs       int64               `gorm:"not null;default:0" json:"duration_ms"`
	DBQueries        int                 `gorm:"not null;default:0" json:"db_queries"`
	HasErrors        bool                `gorm:"not null;default:false;index" json:"has_errors"`
	ErrorMessage     string              `gorm:"size:1000" json:"error_message,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
}

// TableName задает имя таблицы для GORM.
func (CompositionLog) TableName() string {
	return "composition_logs"
}
