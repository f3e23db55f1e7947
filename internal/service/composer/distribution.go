package composer

import (
	"fmt"
	"math"

	"github.com/yourusername/daily-trivia/internal/domain/entity"
)

// Distribution - количество вопросов по сложностям
type Distribution struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

// Total возвращает суммарный размер распределения
func (d Distribution) Total() int {
	return d.Easy + d.Medium + d.Hard
}

// Get возвращает количество для сложности
func (d Distribution) Get(difficulty string) int {
	switch difficulty {
	case entity.DifficultyEasy:
		return d.Easy
	case entity.DifficultyMedium:
		return d.Medium
	case entity.DifficultyHard:
		return d.Hard
	default:
		return 0
	}
}

// Set устанавливает количество для сложности
func (d *Distribution) Set(difficulty string, count int) {
	switch difficulty {
	case entity.DifficultyEasy:
		d.Easy = count
	case entity.DifficultyMedium:
		d.Medium = count
	case entity.DifficultyHard:
		d.Hard = count
	}
}

// ToMap возвращает распределение в виде map для журнала
func (d Distribution) ToMap() map[string]int {
	return map[string]int{
		entity.DifficultyEasy:   d.Easy,
		entity.DifficultyMedium: d.Medium,
		entity.DifficultyHard:   d.Hard,
	}
}

// FallbackEntry фиксирует срабатывание fallback-механизма по одной сложности
type FallbackEntry struct {
	Difficulty    string `json:"difficulty"`
	Target        int    `json:"target"`
	Available     int    `json:"available"`
	Deficit       int    `json:"deficit"`
	Redistributed int    `json:"redistributed"`
}

// PlanResult - итог планирования распределения с учетом реального пула
type PlanResult struct {
	Distribution Distribution
	Fallbacks    []FallbackEntry
	Warnings     []string
	Emergency    bool
}

// TargetDistribution вычисляет целевое распределение для размера викторины.
// Канонические 6 вопросов: 3 easy, 2 medium, 1 hard. Для прочих размеров
// easy = round(0.5N), medium = round(0.33N), hard - остаток, но не меньше 1:
// округление не должно оставить викторину без сложных вопросов.
func TargetDistribution(totalQuestions int) Distribution {
	if totalQuestions <= 0 {
		return Distribution{}
	}
	if totalQuestions == DefaultTargetQuestionCount {
		return Distribution{Easy: 3, Medium: 2, Hard: 1}
	}

	easy := int(math.Round(0.5 * float64(totalQuestions)))
	medium := int(math.Round(0.33 * float64(totalQuestions)))
	hard := totalQuestions - easy - medium
	if hard < 1 {
		hard = 1
	}
	return Distribution{Easy: easy, Medium: medium, Hard: hard}
}

// MinViableSize возвращает минимально жизнеспособный размер викторины
// для целевого размера: max(3, floor(0.5 * target))
func MinViableSize(targetQuestionCount int) int {
	size := targetQuestionCount / 2
	if size < 3 {
		size = 3
	}
	return size
}

// DistributionWithFallbacks планирует распределение с учетом доступности пула:
// клампит дефицитные сложности, перераспределяет дефицит в порядке
// Easy → Medium → Hard, проверяет минимально жизнеспособный размер
// и при критически малом пуле включает аварийный режим.
func DistributionWithFallbacks(config *Config, available map[string]int) PlanResult {
	target := TargetDistribution(config.TargetQuestionCount)
	result := PlanResult{Distribution: target}

	// Шаги 1-2: кламп к доступности и перераспределение дефицита
	for _, difficulty := range entity.Difficulties {
		availCount := available[difficulty]
		targetCount := target.Get(difficulty)
		if availCount >= targetCount {
			continue
		}

		deficit := targetCount - availCount
		result.Distribution.Set(difficulty, availCount)

		entry := FallbackEntry{
			Difficulty: difficulty,
			Target:     targetCount,
			Available:  availCount,
			Deficit:    deficit,
		}

		// Перераспределяем дефицит в фиксированном порядке Easy → Medium → Hard,
		// добавляя в пределах остаточной вместимости каждой сложности
		remaining := deficit
		for _, other := range entity.Difficulties {
			if other == difficulty || remaining == 0 {
				continue
			}
			headroom := available[other] - result.Distribution.Get(other)
			if headroom <= 0 {
				continue
			}
			add := min(headroom, remaining)
			result.Distribution.Set(other, result.Distribution.Get(other)+add)
			entry.Redistributed += add
			remaining -= add
		}

		result.Fallbacks = append(result.Fallbacks, entry)

		warning := fmt.Sprintf("не хватает вопросов сложности %s: цель %d, доступно %d, перераспределено %d",
			difficulty, targetCount, availCount, entry.Redistributed)
		if remaining > 0 {
			warning += fmt.Sprintf(", неразрешенный дефицит %d", remaining)
		}
		result.Warnings = append(result.Warnings, warning)
	}

	// Шаг 3: минимально жизнеспособный размер
	total := result.Distribution.Total()
	minViable := MinViableSize(config.TargetQuestionCount)
	if total < minViable {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("итоговый размер %d ниже минимально жизнеспособного %d: рекомендуется пополнить пул или ослабить пороги анти-повтора",
				total, minViable))
	}

	// Шаг 4: аварийный режим - только когда пул критически мал.
	// Ниже этого пола движок не пытается быть справедливым, только непустым.
	if total < EmergencyFloor {
		result.Emergency = true
		result.Distribution = Distribution{}
		remaining := EmergencyFloor
		for _, difficulty := range entity.Difficulties {
			take := min(available[difficulty], remaining)
			result.Distribution.Set(difficulty, take)
			remaining -= take
		}
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("EMERGENCY MODE: в пуле критически мало вопросов, собрано %d из %d",
				result.Distribution.Total(), EmergencyFloor))
	}

	return result
}

// ValidateDistribution проверяет распределение на корректность:
// отрицательные количества, превышение доступности, полностью нулевое распределение
func ValidateDistribution(dist Distribution, available map[string]int) (bool, []string) {
	var issues []string

	for _, difficulty := range entity.Difficulties {
		count := dist.Get(difficulty)
		if count < 0 {
			issues = append(issues, fmt.Sprintf("отрицательное количество для %s: %d", difficulty, count))
		}
		if count > available[difficulty] {
			issues = append(issues, fmt.Sprintf("количество %d для %s превышает доступность %d",
				count, difficulty, available[difficulty]))
		}
	}

	if dist.Total() == 0 {
		issues = append(issues, "полностью нулевое распределение")
	}

	return len(issues) == 0, issues
}
