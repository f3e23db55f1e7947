package composer

import (
	"time"

	"github.com/yourusername/daily-trivia/internal/domain/entity"
)

// Производные вычисления над плоскими данными. Свободные функции,
// а не методы на persistence-сущностях: модель данных остается без
// поведения, а вычисления тестируются независимо.

// AverageExposure возвращает средний exposure_count по набору вопросов
func AverageExposure(questions []entity.Question) float64 {
	if len(questions) == 0 {
		return 0
	}
	sum := 0
	for _, q := range questions {
		sum += q.ExposureCount
	}
	return float64(sum) / float64(len(questions))
}

// OldestLastUsed возвращает самую раннюю дату последнего показа в наборе.
// nil - если ни один вопрос еще не использовался.
func OldestLastUsed(questions []entity.Question) *time.Time {
	var oldest *time.Time
	for _, q := range questions {
		if q.LastUsedAt == nil {
			continue
		}
		if oldest == nil || q.LastUsedAt.Before(*oldest) {
			t := *q.LastUsedAt
			oldest = &t
		}
	}
	return oldest
}

// NewestLastUsed возвращает самую позднюю дату последнего показа в наборе
func NewestLastUsed(questions []entity.Question) *time.Time {
	var newest *time.Time
	for _, q := range questions {
		if q.LastUsedAt == nil {
			continue
		}
		if newest == nil || q.LastUsedAt.After(*newest) {
			t := *q.LastUsedAt
			newest = &t
		}
	}
	return newest
}

// DifficultyCounts возвращает количество вопросов по сложностям
func DifficultyCounts(questions []entity.Question) map[string]int {
	counts := make(map[string]int)
	for _, q := range questions {
		counts[q.Difficulty]++
	}
	return counts
}

// ThemeCounts возвращает количество вопросов по темам.
// Вопрос с несколькими темами учитывается в каждой из них.
func ThemeCounts(questions []entity.Question) map[string]int {
	counts := make(map[string]int)
	for _, q := range questions {
		for _, theme := range q.Themes {
			counts[theme]++
		}
	}
	return counts
}

// CompositionStats - сводная статистика прогонов составления и пула
type CompositionStats struct {
	TotalRuns         int              `json:"total_runs"`
	FailedRuns        int              `json:"failed_runs"`
	ErrorRate         float64          `json:"error_rate"`
	AverageDurationMs float64          `json:"average_duration_ms"`
	AverageQuestions  float64          `json:"average_questions"`
	LastRunAt         *time.Time       `json:"last_run_at,omitempty"`
	PoolTotal         int64            `json:"pool_total"`
	PoolSelectable    int64            `json:"pool_selectable"`
	PoolByDifficulty  map[string]int64 `json:"pool_by_difficulty"`
}

// ErrorRate возвращает долю прогонов с ошибками
func ErrorRate(logs []entity.CompositionLog) float64 {
	if len(logs) == 0 {
		return 0
	}
	failed := 0
	for _, l := range logs {
		if l.HasErrors {
			failed++
		}
	}
	return float64(failed) / float64(len(logs))
}

// AverageDurationMs возвращает среднюю длительность прогона
func AverageDurationMs(logs []entity.CompositionLog) float64 {
	if len(logs) == 0 {
		return 0
	}
	var sum int64
	for _, l := range logs {
		sum += l.DurationMs
	}
	return float64(sum) / float64(len(logs))
}

// AverageQuestionCount возвращает средний размер собранной викторины
func AverageQuestionCount(logs []entity.CompositionLog) float64 {
	if len(logs) == 0 {
		return 0
	}
	sum := 0
	for _, l := range logs {
		sum += l.FinalSelection.TotalQuestions
	}
	return float64(sum) / float64(len(logs))
}
