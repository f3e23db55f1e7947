package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestion_IsSelectable(t *testing.T) {
	assert.True(t, (&Question{Approved: true, Disabled: false}).IsSelectable())
	assert.False(t, (&Question{Approved: false}).IsSelectable())
	// Отключенный вопрос не выбирается, даже если одобрен
	assert.False(t, (&Question{Approved: true, Disabled: true}).IsSelectable())
}

func TestQuestion_DaysSinceUsed(t *testing.T) {
	asOf := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	never := &Question{}
	assert.Nil(t, never.DaysSinceUsed(asOf))

	used := asOf.AddDate(0, 0, -10)
	q := &Question{LastUsedAt: &used}
	days := q.DaysSinceUsed(asOf)
	require.NotNil(t, days)
	assert.Equal(t, 10, *days)

	// Неполные сутки не считаются за день
	recent := asOf.Add(-23 * time.Hour)
	q = &Question{LastUsedAt: &recent}
	assert.Equal(t, 0, *q.DaysSinceUsed(asOf))
}

func TestQuestion_HasTheme(t *testing.T) {
	q := &Question{Themes: StringArray{"science", "history"}}

	assert.True(t, q.HasTheme("science"))
	assert.False(t, q.HasTheme("sport"))
	assert.False(t, (&Question{}).HasTheme("science"))
}

func TestQuestion_HasAnySubject(t *testing.T) {
	q := &Question{Subjects: StringArray{"physics", "chemistry"}}

	assert.True(t, q.HasAnySubject([]string{"biology", "physics"}))
	assert.False(t, q.HasAnySubject([]string{"biology"}))
	assert.False(t, q.HasAnySubject(nil))
}

func TestDifficultyRank_Order(t *testing.T) {
	assert.Less(t, DifficultyRank(DifficultyEasy), DifficultyRank(DifficultyMedium))
	assert.Less(t, DifficultyRank(DifficultyMedium), DifficultyRank(DifficultyHard))
	// Неизвестная сложность уходит в конец
	assert.Greater(t, DifficultyRank("nightmare"), DifficultyRank(DifficultyHard))
}

func TestStringArray_ScanValue(t *testing.T) {
	arr := StringArray{"a", "b"}

	val, err := arr.Value()
	require.NoError(t, err)

	var scanned StringArray
	require.NoError(t, scanned.Scan(val))
	assert.Equal(t, arr, scanned)

	// NULL из базы дает пустой массив
	var empty StringArray
	require.NoError(t, empty.Scan(nil))
	assert.Empty(t, empty)
}

func TestThemePlan_ScanValue(t *testing.T) {
	plan := ThemePlan{
		Mode:            QuizModeSpotlight,
		PreferredThemes: []string{"science"},
		ThemeWeights:    map[string]float64{"science": 1},
	}

	val, err := plan.Value()
	require.NoError(t, err)

	var scanned ThemePlan
	require.NoError(t, scanned.Scan(val))
	assert.Equal(t, plan, scanned)
}

func TestDailyQuiz_StatusHelpers(t *testing.T) {
	assert.True(t, (&DailyQuiz{Status: DailyQuizStatusPublished}).IsPublished())
	assert.False(t, (&DailyQuiz{Status: DailyQuizStatusComposed}).IsPublished())

	assert.True(t, (&DailyQuiz{Status: DailyQuizStatusComposed}).NeedsPublish())
	assert.False(t, (&DailyQuiz{Status: DailyQuizStatusPublished}).NeedsPublish())
	assert.False(t, (&DailyQuiz{Status: DailyQuizStatusComposing}).NeedsPublish())
}
