package composer

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/daily-trivia/internal/domain/entity"
)

func testQuiz() *entity.DailyQuiz {
	return &entity.DailyQuiz{
		ID:        "11111111-1111-1111-1111-111111111111",
		QuizDate:  time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		DropAtUTC: time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC),
		Mode:      entity.QuizModeMix,
		Version:   0,
	}
}

func testQuestions() []entity.Question {
	return []entity.Question{
		{
			ID: "c-hard", Type: entity.QuestionTypeSingleChoice, Difficulty: entity.DifficultyHard,
			Prompt: "Сложный вопрос", Choices: entity.StringArray{"1", "2", "3", "4"},
			Themes: entity.StringArray{"science"}, CorrectOption: 2,
		},
		{
			ID: "b-medium", Type: entity.QuestionTypeTrueFalse, Difficulty: entity.DifficultyMedium,
			Prompt: "Земля плоская?", Themes: entity.StringArray{"science"}, CorrectBool: false,
		},
		{
			ID: "a-easy-2", Type: entity.QuestionTypeSingleChoice, Difficulty: entity.DifficultyEasy,
			Prompt: "Простой вопрос 2", Choices: entity.StringArray{"да", "нет"},
			Themes: entity.StringArray{"history"}, CorrectOption: 0,
		},
		{
			ID: "a-easy-1", Type: entity.QuestionTypeTextInput, Difficulty: entity.DifficultyEasy,
			Prompt: "Столица Казахстана?", Themes: entity.StringArray{"geography"},
			CorrectText: "Астана",
		},
	}
}

func TestGenerateTemplate_StableOrder(t *testing.T) {
	template, err := GenerateTemplate(testQuiz(), 1, testQuestions(), entity.ThemePlan{Mode: entity.QuizModeMix}, time.Now())
	require.NoError(t, err)
	require.Len(t, template.Questions, 4)

	// Easy < Medium < Hard, внутри сложности - лексикографически по id
	assert.Equal(t, "a-easy-1", template.Questions[0].QID)
	assert.Equal(t, "a-easy-2", template.Questions[1].QID)
	assert.Equal(t, "b-medium", template.Questions[2].QID)
	assert.Equal(t, "c-hard", template.Questions[3].QID)

	// OrderIndex совпадает с позицией
	for i, q := range template.Questions {
		assert.Equal(t, i, q.OrderIndex)
	}
}

func TestGenerateTemplate_Deterministic(t *testing.T) {
	// Один и тот же вход дает побайтово одинаковый артефакт
	at := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	plan := entity.ThemePlan{Mode: entity.QuizModeMix}

	first, err := GenerateTemplate(testQuiz(), 1, testQuestions(), plan, at)
	require.NoError(t, err)
	second, err := GenerateTemplate(testQuiz(), 1, testQuestions(), plan, at)
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))
}

func TestGenerateTemplate_NoAnswerLeaks(t *testing.T) {
	template, err := GenerateTemplate(testQuiz(), 1, testQuestions(), entity.ThemePlan{}, time.Now())
	require.NoError(t, err)

	serialized, err := json.Marshal(template)
	require.NoError(t, err)

	lowered := strings.ToLower(string(serialized))
	assert.NotContains(t, lowered, `"correct`)
	assert.NotContains(t, lowered, `"answer`)
	assert.NotContains(t, lowered, `"explanation`)
}

func TestGenerateTemplate_SanitizeByType(t *testing.T) {
	template, err := GenerateTemplate(testQuiz(), 1, testQuestions(), entity.ThemePlan{}, time.Now())
	require.NoError(t, err)

	byID := make(map[string]TemplateQuestion)
	for _, q := range template.Questions {
		byID[q.QID] = q
	}

	// single_choice несет варианты
	assert.Equal(t, []string{"1", "2", "3", "4"}, byID["c-hard"].Payload.Choices)
	// true_false без явных вариантов получает канонические
	assert.Equal(t, []string{"true", "false"}, byID["b-medium"].Payload.Choices)
	// text_input вариантов не имеет
	assert.Empty(t, byID["a-easy-1"].Payload.Choices)
}

func TestGenerateTemplate_UnknownTypeFails(t *testing.T) {
	questions := []entity.Question{
		{ID: "q1", Type: "puzzle", Difficulty: entity.DifficultyEasy, Prompt: "?"},
	}

	_, err := GenerateTemplate(testQuiz(), 1, questions, entity.ThemePlan{}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown question type")
}

func TestGenerateTemplate_Metadata(t *testing.T) {
	at := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	template, err := GenerateTemplate(testQuiz(), 3, testQuestions(), entity.ThemePlan{}, at)
	require.NoError(t, err)

	assert.Equal(t, 3, template.Version)
	assert.Equal(t, at, template.Metadata.GeneratedAt)
	assert.Equal(t, 4, template.Metadata.TotalQuestions)
	assert.Equal(t, map[string]int{
		entity.DifficultyEasy:   2,
		entity.DifficultyMedium: 1,
		entity.DifficultyHard:   1,
	}, template.Metadata.DifficultyBreakdown)
	assert.Equal(t, 2, template.Metadata.ThemeBreakdown["science"])

	assert.Equal(t, "fisher_yates", template.ClientShuffle.Algo)
	assert.Equal(t, []string{"choices"}, template.ClientShuffle.Fields)
}
