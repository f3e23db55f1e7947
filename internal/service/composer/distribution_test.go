package composer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/daily-trivia/internal/domain/entity"
)

func TestTargetDistribution_CanonicalSix(t *testing.T) {
	dist := TargetDistribution(6)

	assert.Equal(t, 3, dist.Easy)
	assert.Equal(t, 2, dist.Medium)
	assert.Equal(t, 1, dist.Hard)
	assert.Equal(t, 6, dist.Total())
}

func TestTargetDistribution_NonCanonicalSizes(t *testing.T) {
	// Для некратных размеров hard никогда не опускается ниже 1
	cases := []struct {
		total int
	}{
		{3}, {4}, {5}, {8}, {10}, {12},
	}

	for _, tc := range cases {
		dist := TargetDistribution(tc.total)
		assert.GreaterOrEqual(t, dist.Hard, 1, "hard не должен обнуляться при N=%d", tc.total)
		assert.GreaterOrEqual(t, dist.Easy, dist.Hard, "easy >= hard при N=%d", tc.total)
	}

	assert.Equal(t, Distribution{}, TargetDistribution(0))
	assert.Equal(t, Distribution{}, TargetDistribution(-1))
}

func TestMinViableSize(t *testing.T) {
	assert.Equal(t, 3, MinViableSize(6))
	assert.Equal(t, 5, MinViableSize(10))
	// Пол никогда не опускается ниже 3
	assert.Equal(t, 3, MinViableSize(4))
	assert.Equal(t, 3, MinViableSize(2))
}

func TestDistributionWithFallbacks_FullPool(t *testing.T) {
	config := DefaultConfig()
	available := map[string]int{
		entity.DifficultyEasy:   50,
		entity.DifficultyMedium: 50,
		entity.DifficultyHard:   50,
	}

	result := DistributionWithFallbacks(config, available)

	assert.Equal(t, Distribution{Easy: 3, Medium: 2, Hard: 1}, result.Distribution)
	assert.Empty(t, result.Fallbacks)
	assert.Empty(t, result.Warnings)
	assert.False(t, result.Emergency)
}

func TestDistributionWithFallbacks_HardExhausted(t *testing.T) {
	// Hard закончился полностью: дефицит 1 уходит в easy,
	// ровно одно предупреждение на одну дефицитную сложность
	config := DefaultConfig()
	available := map[string]int{
		entity.DifficultyEasy:   10,
		entity.DifficultyMedium: 8,
		entity.DifficultyHard:   0,
	}

	result := DistributionWithFallbacks(config, available)

	assert.Equal(t, 6, result.Distribution.Total(), "размер викторины сохраняется")
	assert.Equal(t, 0, result.Distribution.Hard)
	require.Len(t, result.Fallbacks, 1)
	assert.Equal(t, entity.DifficultyHard, result.Fallbacks[0].Difficulty)
	assert.Equal(t, 1, result.Fallbacks[0].Deficit)
	assert.Equal(t, 1, result.Fallbacks[0].Redistributed)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], entity.DifficultyHard)
	assert.False(t, result.Emergency)
}

func TestDistributionWithFallbacks_TightPoolNoEmergency(t *testing.T) {
	// По одному вопросу каждой сложности: итог 3 - ровно на границе
	// аварийного пола, аварийный режим НЕ включается
	config := DefaultConfig()
	available := map[string]int{
		entity.DifficultyEasy:   1,
		entity.DifficultyMedium: 1,
		entity.DifficultyHard:   1,
	}

	result := DistributionWithFallbacks(config, available)

	assert.Equal(t, Distribution{Easy: 1, Medium: 1, Hard: 1}, result.Distribution)
	assert.False(t, result.Emergency)
	// Предупреждения о дефиците есть, но викторина жизнеспособна
	assert.NotEmpty(t, result.Warnings)
}

func TestDistributionWithFallbacks_Emergency(t *testing.T) {
	// В пуле один-единственный вопрос: аварийный режим,
	// собираем что есть вместо отказа
	config := DefaultConfig()
	available := map[string]int{
		entity.DifficultyEasy:   1,
		entity.DifficultyMedium: 0,
		entity.DifficultyHard:   0,
	}

	result := DistributionWithFallbacks(config, available)

	assert.True(t, result.Emergency)
	assert.Equal(t, 1, result.Distribution.Total())
	assert.Equal(t, 1, result.Distribution.Easy)

	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "EMERGENCY MODE") {
			found = true
		}
	}
	assert.True(t, found, "ожидается предупреждение EMERGENCY MODE")
}

func TestDistributionWithFallbacks_UnresolvedDeficit(t *testing.T) {
	// Дефицит некуда перераспределить: у всех сложностей нет запаса
	config := DefaultConfig()
	available := map[string]int{
		entity.DifficultyEasy:   3,
		entity.DifficultyMedium: 1,
		entity.DifficultyHard:   1,
	}

	result := DistributionWithFallbacks(config, available)

	assert.Equal(t, 5, result.Distribution.Total())
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "неразрешенный дефицит")
}

func TestValidateDistribution(t *testing.T) {
	available := map[string]int{
		entity.DifficultyEasy:   3,
		entity.DifficultyMedium: 2,
		entity.DifficultyHard:   1,
	}

	ok, issues := ValidateDistribution(Distribution{Easy: 3, Medium: 2, Hard: 1}, available)
	assert.True(t, ok)
	assert.Empty(t, issues)

	// Превышение доступности
	ok, issues = ValidateDistribution(Distribution{Easy: 4, Medium: 2, Hard: 1}, available)
	assert.False(t, ok)
	assert.NotEmpty(t, issues)

	// Полностью нулевое распределение
	ok, _ = ValidateDistribution(Distribution{}, available)
	assert.False(t, ok)
}

func TestDayThreshold(t *testing.T) {
	assert.Equal(t, 30, DayThreshold(0))
	assert.Equal(t, 21, DayThreshold(1))
	assert.Equal(t, 14, DayThreshold(2))
	assert.Equal(t, 10, DayThreshold(3))
	assert.Equal(t, 7, DayThreshold(4))
	// За пределами расписания порога нет
	assert.Equal(t, 0, DayThreshold(5))
	assert.Equal(t, 0, DayThreshold(99))
	assert.Equal(t, 30, DayThreshold(-1))
}
