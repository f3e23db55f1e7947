package composer

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/yourusername/daily-trivia/internal/domain/entity"
	"github.com/yourusername/daily-trivia/internal/domain/repository"
)

// AntiRepeatSelector решает, какие вопросы допустимы к повторному показу,
// и выдает упорядоченный допустимый пул по сложности. Порядок пула сам
// по себе является механизмом отбора: оркестратор берет первые N.
type AntiRepeatSelector struct {
	config *Config
	deps   *Dependencies
	rng    *rand.Rand
}

// NewAntiRepeatSelector создает новый селектор.
// rng инжектируется, чтобы случайный тай-брейк был воспроизводим в тестах;
// при nil используется источник от текущего времени.
func NewAntiRepeatSelector(config *Config, deps *Dependencies, rng *rand.Rand) *AntiRepeatSelector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &AntiRepeatSelector{
		config: config,
		deps:   deps,
		rng:    rng,
	}
}

// Eligibility вычисляет допустимость вопроса на уровне ослабления level
// относительно даты викторины targetDate
func (s *AntiRepeatSelector) Eligibility(q *entity.Question, targetDate time.Time, level int) AntiRepeatInfo {
	info := AntiRepeatInfo{
		DaysSinceLastUsed: q.DaysSinceUsed(targetDate),
		ExposureCount:     q.ExposureCount,
		RelaxationLevel:   level,
		IsEligible:        true,
	}

	threshold := DayThreshold(level)
	if threshold > 0 && info.DaysSinceLastUsed != nil && *info.DaysSinceLastUsed < threshold {
		info.IsEligible = false
		info.Reason = fmt.Sprintf("использован %d дн. назад, порог уровня %d - %d дн.",
			*info.DaysSinceLastUsed, level, threshold)
		return info
	}

	// Правило переэкспозиции действует только на самом строгом уровне:
	// строгий ярус смещен к свежести, а не только к давности показа
	if level == 0 && q.ExposureCount > s.config.OverexposureLimit {
		info.IsEligible = false
		info.Reason = fmt.Sprintf("переэкспонирован: %d показов при лимите %d",
			q.ExposureCount, s.config.OverexposureLimit)
	}

	return info
}

// BuildFilter - чистая функция: переводит критерии отбора и уровень ослабления
// в типизированный FilterSpec. Адаптер хранилища переводит его в SQL;
// сама политика тестируется без базы данных.
func BuildFilter(criteria SelectionCriteria, level int, asOf time.Time, overexposureLimit int) repository.FilterSpec {
	spec := repository.FilterSpec{
		Difficulty:       criteria.Difficulty,
		ExcludeIDs:       criteria.ExcludeQuestionIDs,
		MinDaysSinceUsed: DayThreshold(level),
		AsOf:             asOf,
		PreferredThemes:  criteria.PreferredThemes,
		ExcludeSubjects:  criteria.SubjectDiversity,
	}

	if level == 0 {
		limit := overexposureLimit
		if criteria.MaxExposureCount != nil {
			limit = *criteria.MaxExposureCount
		}
		spec.MaxExposureCount = &limit
	}

	return spec
}

// EligiblePool возвращает упорядоченный допустимый пул для критериев
// на заданном уровне ослабления
func (s *AntiRepeatSelector) EligiblePool(criteria SelectionCriteria, level int, asOf time.Time) ([]entity.Question, error) {
	spec := BuildFilter(criteria, level, asOf, s.config.OverexposureLimit)
	questions, err := s.deps.QuestionRepo.FetchPool(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch eligible pool (difficulty=%s, level=%d): %w",
			criteria.Difficulty, level, err)
	}
	s.OrderPool(questions)
	return questions, nil
}

// OrderPool упорядочивает пул по приоритету отбора:
//  1. exposure_count по возрастанию (предпочитаем наименее показанные);
//  2. last_used_at по возрастанию, никогда не использованные - первыми;
//  3. равные по обоим признакам - в случайном порядке.
//
// Случайный тай-брейк реализован предварительной перетасовкой: стабильная
// сортировка сохраняет перетасованный порядок внутри групп равных.
func (s *AntiRepeatSelector) OrderPool(questions []entity.Question) {
	s.rng.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})

	sort.SliceStable(questions, func(i, j int) bool {
		a, b := &questions[i], &questions[j]
		if a.ExposureCount != b.ExposureCount {
			return a.ExposureCount < b.ExposureCount
		}
		if a.LastUsedAt == nil && b.LastUsedAt == nil {
			return false
		}
		if a.LastUsedAt == nil {
			return true
		}
		if b.LastUsedAt == nil {
			return false
		}
		return a.LastUsedAt.Before(*b.LastUsedAt)
	})
}

// CommitUsage фиксирует факт публикации вопросов: exposure_count + 1
// и last_used_at одним атомарным batch-запросом
func (s *AntiRepeatSelector) CommitUsage(questionIDs []string, usedAt time.Time) error {
	if len(questionIDs) == 0 {
		return nil
	}
	return s.deps.QuestionRepo.CommitUsage(questionIDs, usedAt)
}
