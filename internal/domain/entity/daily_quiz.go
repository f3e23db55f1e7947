package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Режимы составления ежедневной викторины
const (
	QuizModeMix       = "mix"
	QuizModeSpotlight = "spotlight"
	QuizModeEvent     = "event"
)

// Статусы ежедневной викторины
const (
	DailyQuizStatusComposing = "composing"
	DailyQuizStatusComposed  = "composed"
	DailyQuizStatusPublished = "published"
	DailyQuizStatusFailed    = "failed"
)

// ThemePlan описывает тематическую конфигурацию дня: режим, веса тем
// и тег спецвыпуска/события. Управляет тематическим отбором вопросов.
type ThemePlan struct {
	Mode            string             `json:"mode"`
	PreferredThemes []string           `json:"preferred_themes,omitempty"`
	ThemeWeights    map[string]float64 `json:"theme_weights,omitempty"`
	EventTag        string             `json:"event_tag,omitempty"`
}

// Scan реализует интерфейс sql.Scanner для ThemePlan (JSONB)
func (p *ThemePlan) Scan(value interface{}) error {
	if value == nil {
		*p = ThemePlan{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}
	if len(bytes) == 0 {
		*p = ThemePlan{}
		return nil
	}
	return json.Unmarshal(bytes, p)
}

// Value реализует интерфейс driver.Valuer для ThemePlan
func (p ThemePlan) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// DailyQuiz представляет викторину одного дня. Одна запись на дату,
// версия монотонно растет при каждой успешной перепубликации артефакта.
type DailyQuiz struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	QuizDate    time.Time `gorm:"type:date;not null;uniqueIndex" json:"quiz_date"`
	DropAtUTC   time.Time `gorm:"not null" json:"drop_at_utc"`
	Mode        string    `gorm:"size:20;not null;default:'mix'" json:"mode"`
	Status      string    `gorm:"size:20;not null;default:'composing';index" json:"status"`
	Version     int       `gorm:"not null;default:0" json:"version"`
	TemplateURL string    `gorm:"size:500" json:"template_url,omitempty"`
	ThemePlan   ThemePlan `gorm:"type:jsonb" json:"theme_plan"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (DailyQuiz) TableName() string {
	return "daily_quizzes"
}

// IsPublished проверяет, опубликован ли артефакт викторины
func (q *DailyQuiz) IsPublished() bool {
	return q.Status == DailyQuizStatusPublished
}

// NeedsPublish проверяет, составлена ли викторина, но еще не опубликована.
// Такие записи подхватывает периодический retry-проход.
func (q *DailyQuiz) NeedsPublish() bool {
	return q.Status == DailyQuizStatusComposed
}

// DailyQuizQuestion фиксирует вопрос, вошедший в состав викторины дня.
// Это журнал состава: retry-проход пересобирает шаблон ровно из этого
// набора и никогда не выбирает вопросы заново.
type DailyQuizQuestion struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	DailyQuizID string    `gorm:"type:uuid;not null;index:idx_daily_quiz_questions_quiz_order,priority:1" json:"daily_quiz_id"`
	QuestionID  string    `gorm:"type:uuid;not null;index" json:"question_id"`
	OrderIndex  int       `gorm:"not null;index:idx_daily_quiz_questions_quiz_order,priority:2" json:"order_index"`
	Difficulty  string    `gorm:"size:10;not null" json:"difficulty"`
	SelectedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"selected_at"`
}

// TableName задает имя таблицы для GORM.
func (DailyQuizQuestion) TableName() string {
	return "daily_quiz_questions"
}

// CompositionClaim - durable-запись "кто составляет викторину этой даты".
// Вставка insert-if-absent по дате гарантирует единственного писателя:
// повторный триггер (ручной или по расписанию) отсекается до начала отбора.
type CompositionClaim struct {
	QuizDate  time.Time `gorm:"type:date;primaryKey" json:"quiz_date"`
	ClaimedAt time.Time `gorm:"not null" json:"claimed_at"`
	Status    string    `gorm:"size:20;not null;default:'held'" json:"status"`
}

// Статусы claim-записи
const (
	ClaimStatusHeld = "held"
	ClaimStatusDone = "done"
)

// TableName задает имя таблицы для GORM.
func (CompositionClaim) TableName() string {
	return "composition_claims"
}
