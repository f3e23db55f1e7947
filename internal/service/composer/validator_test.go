package composer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/daily-trivia/internal/domain/entity"
)

func validTemplate(t *testing.T) *QuizTemplate {
	t.Helper()
	template, err := GenerateTemplate(testQuiz(), 1, testQuestions(), entity.ThemePlan{Mode: entity.QuizModeMix}, time.Now())
	require.NoError(t, err)
	return template
}

func TestValidateTemplate_Valid(t *testing.T) {
	result := ValidateTemplate(validTemplate(t))

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Issues)
}

func TestValidateTemplate_Nil(t *testing.T) {
	result := ValidateTemplate(nil)

	assert.False(t, result.IsValid)
	require.Len(t, result.Issues, 1)
}

func TestValidateTemplate_StructuralIssues(t *testing.T) {
	template := validTemplate(t)
	template.DailyQuizID = ""
	template.Version = 0
	template.DropAtUTC = time.Time{}

	result := ValidateTemplate(template)

	assert.False(t, result.IsValid)
	assert.GreaterOrEqual(t, len(result.Issues), 3)
}

func TestValidateTemplate_EmptyQuestions(t *testing.T) {
	template := validTemplate(t)
	template.Questions = nil
	template.Metadata.TotalQuestions = 0
	template.Metadata.DifficultyBreakdown = nil

	result := ValidateTemplate(template)

	assert.False(t, result.IsValid)
}

func TestValidateTemplate_OrderIndexMismatch(t *testing.T) {
	template := validTemplate(t)
	template.Questions[0].OrderIndex = 7

	result := ValidateTemplate(template)

	assert.False(t, result.IsValid)
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "orderIndex")
}

func TestValidateTemplate_LeakDetection(t *testing.T) {
	// Поле с ответом, протащенное через media, должно быть поймано
	// сканером сериализованного вида
	template := validTemplate(t)
	template.Questions[0].Payload.Media = map[string]string{"correct_answer": "42"}

	result := ValidateTemplate(template)

	assert.False(t, result.IsValid)
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "утечки")
}

func TestValidateTemplate_LeakMarkersMatchFieldNamesOnly(t *testing.T) {
	// Слово "correct" в тексте вопроса - не утечка: маркеры ловят
	// имена полей, а не контент
	template := validTemplate(t)
	template.Questions[0].Payload.Prompt = "Which answer is correct?"

	result := ValidateTemplate(template)

	assert.True(t, result.IsValid, "текст вопроса не должен давать ложных срабатываний: %v", result.Issues)
}

func TestValidateTemplate_MetadataMismatch(t *testing.T) {
	template := validTemplate(t)
	template.Metadata.TotalQuestions = 99

	result := ValidateTemplate(template)

	assert.False(t, result.IsValid)
	// Ломаются обе сверки: количество вопросов и сумма по сложностям
	assert.Len(t, result.Issues, 2)
}
