package composer

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/daily-trivia/internal/domain/entity"
)

func newTestSelector(config *Config) *AntiRepeatSelector {
	if config == nil {
		config = DefaultConfig()
	}
	// Фиксированный seed: порядок тай-брейка воспроизводим
	return NewAntiRepeatSelector(config, &Dependencies{}, rand.New(rand.NewSource(42)))
}

func daysAgo(base time.Time, days int) *time.Time {
	t := base.AddDate(0, 0, -days)
	return &t
}

func TestEligibility_NeverUsedAlwaysEligible(t *testing.T) {
	selector := newTestSelector(nil)
	targetDate := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	q := &entity.Question{ID: "q1", LastUsedAt: nil}

	for level := 0; level <= len(RelaxationSchedule); level++ {
		info := selector.Eligibility(q, targetDate, level)
		assert.True(t, info.IsEligible, "никогда не использованный вопрос допустим на уровне %d", level)
		assert.Nil(t, info.DaysSinceLastUsed)
	}
}

func TestEligibility_ThresholdBoundary(t *testing.T) {
	selector := newTestSelector(nil)
	targetDate := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	// Уровень 3 - порог 10 дней. Ровно 10 дней назад - допустим (строгое <),
	// 9 дней назад - нет.
	onBoundary := &entity.Question{ID: "q1", LastUsedAt: daysAgo(targetDate, 10)}
	tooRecent := &entity.Question{ID: "q2", LastUsedAt: daysAgo(targetDate, 9)}

	assert.True(t, selector.Eligibility(onBoundary, targetDate, 3).IsEligible)

	info := selector.Eligibility(tooRecent, targetDate, 3)
	assert.False(t, info.IsEligible)
	assert.NotEmpty(t, info.Reason)
}

func TestEligibility_OverexposureOnlyAtStrictestLevel(t *testing.T) {
	selector := newTestSelector(nil)
	targetDate := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	// Давно использован, но показан слишком часто
	overexposed := &entity.Question{
		ID:            "q1",
		ExposureCount: DefaultOverexposureLimit + 5,
		LastUsedAt:    daysAgo(targetDate, 100),
	}

	// Уровень 0 отсекает переэкспонированные
	info := selector.Eligibility(overexposed, targetDate, 0)
	assert.False(t, info.IsEligible)
	assert.Contains(t, info.Reason, "переэкспонирован")

	// На уровне 1 и дальше правило переэкспозиции не действует
	assert.True(t, selector.Eligibility(overexposed, targetDate, 1).IsEligible)
}

func TestBuildFilter_Levels(t *testing.T) {
	asOf := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	criteria := SelectionCriteria{
		Difficulty:         entity.DifficultyEasy,
		ExcludeQuestionIDs: []string{"a", "b"},
		PreferredThemes:    []string{"science"},
		SubjectDiversity:   []string{"physics"},
	}

	// Самый строгий уровень: порог 30 дней и лимит переэкспозиции
	spec := BuildFilter(criteria, 0, asOf, 10)
	assert.Equal(t, entity.DifficultyEasy, spec.Difficulty)
	assert.Equal(t, []string{"a", "b"}, spec.ExcludeIDs)
	assert.Equal(t, 30, spec.MinDaysSinceUsed)
	require.NotNil(t, spec.MaxExposureCount)
	assert.Equal(t, 10, *spec.MaxExposureCount)
	assert.Equal(t, []string{"science"}, spec.PreferredThemes)
	assert.Equal(t, []string{"physics"}, spec.ExcludeSubjects)

	// Средний уровень: порог меньше, лимита переэкспозиции нет
	spec = BuildFilter(criteria, 2, asOf, 10)
	assert.Equal(t, 14, spec.MinDaysSinceUsed)
	assert.Nil(t, spec.MaxExposureCount)

	// Беспороговый уровень
	spec = BuildFilter(criteria, len(RelaxationSchedule), asOf, 10)
	assert.Equal(t, 0, spec.MinDaysSinceUsed)
	assert.Nil(t, spec.MaxExposureCount)
}

func TestOrderPool_ExposureThenRecency(t *testing.T) {
	selector := newTestSelector(nil)
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	pool := []entity.Question{
		{ID: "often", ExposureCount: 5, LastUsedAt: daysAgo(base, 60)},
		{ID: "recent", ExposureCount: 1, LastUsedAt: daysAgo(base, 10)},
		{ID: "stale", ExposureCount: 1, LastUsedAt: daysAgo(base, 90)},
		{ID: "fresh", ExposureCount: 1, LastUsedAt: nil},
	}

	selector.OrderPool(pool)

	// Наименьшая экспозиция вперед, внутри нее - никогда не показанные,
	// затем по возрастанию last_used_at
	assert.Equal(t, "fresh", pool[0].ID)
	assert.Equal(t, "stale", pool[1].ID)
	assert.Equal(t, "recent", pool[2].ID)
	assert.Equal(t, "often", pool[3].ID)
}

func TestOrderPool_TieBreakIsRandomButStable(t *testing.T) {
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	used := daysAgo(base, 30)

	makePool := func() []entity.Question {
		return []entity.Question{
			{ID: "a", ExposureCount: 2, LastUsedAt: used},
			{ID: "b", ExposureCount: 2, LastUsedAt: used},
			{ID: "c", ExposureCount: 2, LastUsedAt: used},
			{ID: "d", ExposureCount: 2, LastUsedAt: used},
		}
	}

	// Одинаковый seed дает одинаковый порядок
	first := makePool()
	newTestSelector(nil).OrderPool(first)
	second := makePool()
	newTestSelector(nil).OrderPool(second)

	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID, "порядок должен быть воспроизводим при одном seed")
	}

	// И это по-прежнему перестановка исходного набора
	seen := make(map[string]bool)
	for _, q := range first {
		seen[q.ID] = true
	}
	assert.Len(t, seen, 4)
}

func TestCommitUsage_EmptyIsNoop(t *testing.T) {
	// Пустой набор не должен трогать репозиторий вовсе:
	// deps.QuestionRepo здесь nil, вызов привел бы к панике
	selector := newTestSelector(nil)
	err := selector.CommitUsage(nil, time.Now())
	assert.NoError(t, err)
}
