package composer

import (
	"time"

	"github.com/yourusername/daily-trivia/internal/domain/entity"
	"github.com/yourusername/daily-trivia/internal/domain/repository"
)

// Constants for default values
const (
	DefaultTargetQuestionCount = 6
	DefaultOverexposureLimit   = 10

	// EmergencyFloor - жесткий пол: ниже этого размера движок перестает
	// заботиться о справедливости распределения и собирает хоть что-то
	EmergencyFloor = 3
)

// RelaxationSchedule - день-пороги анти-повтора по уровням ослабления 0..4.
// Уровень 5 и выше означает отсутствие порога (аварийный добор).
var RelaxationSchedule = []int{30, 21, 14, 10, 7}

// DayThreshold возвращает день-порог для уровня ослабления.
// 0 - порога нет, допускается любая история показов.
func DayThreshold(level int) int {
	if level < 0 {
		level = 0
	}
	if level < len(RelaxationSchedule) {
		return RelaxationSchedule[level]
	}
	return 0
}

// Config содержит настройки движка составления
type Config struct {
	// TargetQuestionCount - целевой размер викторины
	TargetQuestionCount int

	// DefaultMode - режим по умолчанию (mix|spotlight|event)
	DefaultMode string

	// OverexposureLimit - порог переэкспозиции для самого строгого уровня отбора
	OverexposureLimit int

	// DropHourUTC - час выкладки викторины (UTC)
	DropHourUTC int

	// SpotlightThemes - ротация тем для режима spotlight
	SpotlightThemes []string

	// EventTag - тег события для режима event
	EventTag string

	// RetryBatchLimit - сколько неопубликованных викторин обрабатывать за один retry-проход
	RetryBatchLimit int

	// StatsCacheTTL - время жизни кеша статистики составления
	StatsCacheTTL time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		TargetQuestionCount: DefaultTargetQuestionCount,
		DefaultMode:         entity.QuizModeMix,
		OverexposureLimit:   DefaultOverexposureLimit,
		DropHourUTC:         9,
		RetryBatchLimit:     10,
		StatsCacheTTL:       60 * time.Second,
	}
}

// Dependencies содержит зависимости движка составления
type Dependencies struct {
	QuestionRepo  repository.QuestionRepository
	DailyQuizRepo repository.DailyQuizRepository
	LogRepo       repository.CompositionLogRepository
	CacheRepo     repository.CacheRepository
	ArtifactStore repository.ArtifactStore
}

// SelectionCriteria описывает критерии одного запроса к пулу
type SelectionCriteria struct {
	Difficulty         string
	ExcludeQuestionIDs []string
	PreferredThemes    []string
	SubjectDiversity   []string
	MaxExposureCount   *int
}

// AntiRepeatInfo - вычисляемая (не хранимая) сводка допустимости вопроса
// к повторному использованию на заданном уровне ослабления
type AntiRepeatInfo struct {
	DaysSinceLastUsed *int   `json:"days_since_last_used,omitempty"`
	ExposureCount     int    `json:"exposure_count"`
	IsEligible        bool   `json:"is_eligible"`
	RelaxationLevel   int    `json:"relaxation_level"`
	Reason            string `json:"reason,omitempty"`
}

// CompositionResult - результат одного прогона составления
type CompositionResult struct {
	DailyQuiz *entity.DailyQuiz
	Questions []entity.Question
	Template  *QuizTemplate
	Log       *entity.CompositionLog
}

// ComponentHealth - состояние одного внешнего компонента
type ComponentHealth struct {
	IsHealthy bool   `json:"is_healthy"`
	Message   string `json:"message,omitempty"`
}

// SystemHealth - сводное состояние внешних зависимостей движка
type SystemHealth struct {
	Database  ComponentHealth `json:"database"`
	Cache     ComponentHealth `json:"cache"`
	Storage   ComponentHealth `json:"storage"`
	IsHealthy bool            `json:"is_healthy"`
}
