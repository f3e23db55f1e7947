package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// StringArray - пользовательский тип для работы с JSONB
type StringArray []string

// Scan реализует интерфейс sql.Scanner для StringArray
// Используется GORM для чтения JSONB данных из базы
func (o *StringArray) Scan(value interface{}) error {
	// Обработка NULL значений из базы данных
	if value == nil {
		*o = StringArray{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	// Обработка пустого массива байтов
	if len(bytes) == 0 {
		*o = StringArray{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для StringArray
// Используется GORM для записи StringArray в JSONB в базе
func (o StringArray) Value() (driver.Value, error) {
	if o == nil || len(o) == 0 {
		return []byte("[]"), nil // Возвращаем пустой JSON массив вместо null
	}
	return json.Marshal(o)
}

// JSONMap - пользовательский тип для произвольных JSONB-объектов (медиа-вложения и т.п.)
type JSONMap map[string]string

// Scan реализует интерфейс sql.Scanner для JSONMap
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}
	if len(bytes) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(bytes, m)
}

// Value реализует интерфейс driver.Valuer для JSONMap
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Уровни сложности вопросов
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Difficulties перечисляет уровни сложности в каноническом порядке Easy → Medium → Hard.
// Этот порядок используется и планировщиком распределения, и сборщиком шаблонов.
var Difficulties = []string{DifficultyEasy, DifficultyMedium, DifficultyHard}

// DifficultyRank возвращает порядковый номер сложности для сортировки (easy < medium < hard).
// Неизвестная сложность уходит в конец.
func DifficultyRank(difficulty string) int {
	switch difficulty {
	case DifficultyEasy:
		return 0
	case DifficultyMedium:
		return 1
	case DifficultyHard:
		return 2
	default:
		return 3
	}
}

// Типы вопросов. Дискриминант тегированного объединения: по нему сборщик шаблонов
// решает, какие поля попадают в payload; поля правильных ответов не попадают никогда.
const (
	QuestionTypeSingleChoice = "single_choice"
	QuestionTypeMultiChoice  = "multi_choice"
	QuestionTypeTrueFalse    = "true_false"
	QuestionTypeTextInput    = "text_input"
)

// Question представляет вопрос в общем пуле
type Question struct {
	ID         string      `gorm:"type:uuid;primaryKey" json:"id"`
	Type       string      `gorm:"size:30;not null;default:'single_choice'" json:"type"`
	Difficulty string      `gorm:"size:10;not null;index" json:"difficulty"`
	Prompt     string      `gorm:"size:500;not null" json:"prompt"`
	Choices    StringArray `gorm:"type:jsonb;not null" json:"choices"`
	Media      JSONMap     `gorm:"type:jsonb" json:"media,omitempty"`
	Themes     StringArray `gorm:"type:jsonb;not null" json:"themes"`
	Subjects   StringArray `gorm:"type:jsonb;not null" json:"subjects"`

	// Поля правильных ответов. Скрыты от клиента; в опубликованный шаблон не попадают.
	CorrectOption  int         `gorm:"not null;default:0" json:"-"`
	CorrectOptions StringArray `gorm:"type:jsonb" json:"-"`
	CorrectText    string      `gorm:"size:500" json:"-"`
	CorrectBool    bool        `gorm:"not null;default:false" json:"-"`

	// Модерация и история показов
	Approved      bool       `gorm:"not null;default:false;index" json:"approved"`
	Disabled      bool       `gorm:"not null;default:false;index" json:"disabled"`
	ExposureCount int        `gorm:"not null;default:0" json:"exposure_count"`
	LastUsedAt    *time.Time `gorm:"index" json:"last_used_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// IsSelectable проверяет, допущен ли вопрос к автовыбору (одобрен и не отключен)
func (q *Question) IsSelectable() bool {
	return q.Approved && !q.Disabled
}

// HasTheme проверяет, относится ли вопрос к указанной теме
func (q *Question) HasTheme(theme string) bool {
	for _, t := range q.Themes {
		if t == theme {
			return true
		}
	}
	return false
}

// HasAnySubject проверяет пересечение предметов вопроса с переданным набором
func (q *Question) HasAnySubject(subjects []string) bool {
	for _, s := range q.Subjects {
		for _, other := range subjects {
			if s == other {
				return true
			}
		}
	}
	return false
}

// DaysSinceUsed возвращает количество полных дней с последнего показа относительно asOf.
// Возвращает nil, если вопрос никогда не использовался.
func (q *Question) DaysSinceUsed(asOf time.Time) *int {
	if q.LastUsedAt == nil {
		return nil
	}
	days := int(asOf.Sub(*q.LastUsedAt).Hours() / 24)
	return &days
}
