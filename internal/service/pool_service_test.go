package service

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/daily-trivia/internal/domain/entity"
	"github.com/yourusername/daily-trivia/internal/domain/repository"
	apperrors "github.com/yourusername/daily-trivia/internal/pkg/errors"
)

// ============================================================================
// Моки для PoolService
// ============================================================================

// MockQuestionRepo реализует repository.QuestionRepository
type MockQuestionRepo struct {
	mock.Mock
}

func (m *MockQuestionRepo) Create(question *entity.Question) error {
	args := m.Called(question)
	return args.Error(0)
}

func (m *MockQuestionRepo) CreateBatch(questions []entity.Question) error {
	args := m.Called(questions)
	return args.Error(0)
}

func (m *MockQuestionRepo) GetByID(id string) (*entity.Question, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Question), args.Error(1)
}

func (m *MockQuestionRepo) GetByIDs(ids []string) ([]entity.Question, error) {
	args := m.Called(ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepo) Update(question *entity.Question) error {
	args := m.Called(question)
	return args.Error(0)
}

func (m *MockQuestionRepo) Delete(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockQuestionRepo) FetchPool(spec repository.FilterSpec) ([]entity.Question, error) {
	args := m.Called(spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepo) CountPool(spec repository.FilterSpec) (int64, error) {
	args := m.Called(spec)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuestionRepo) CommitUsage(questionIDs []string, usedAt time.Time) error {
	args := m.Called(questionIDs, usedAt)
	return args.Error(0)
}

func (m *MockQuestionRepo) PoolStats() (int64, int64, map[string]int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Get(1).(int64), args.Get(2).(map[string]int64), args.Error(3)
}

// buildImportXLSX собирает in-memory XLSX с заголовками и данными
func buildImportXLSX(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	header := []interface{}{"type", "difficulty", "prompt", "choices", "correct", "themes", "subjects"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

// ============================================================================
// Тесты для PoolService
// ============================================================================

func TestPoolService_CreateQuestion_Success(t *testing.T) {
	// Arrange
	mockRepo := new(MockQuestionRepo)
	mockRepo.On("Create", mock.AnythingOfType("*entity.Question")).Return(nil)

	poolService := NewPoolService(mockRepo)
	q := &entity.Question{
		Type:       entity.QuestionTypeSingleChoice,
		Difficulty: entity.DifficultyEasy,
		Prompt:     "Столица Франции?",
		Choices:    entity.StringArray{"Париж", "Лион", "Марсель"},
		Themes:     entity.StringArray{"geography"},
		Approved:   true,
	}

	// Act
	err := poolService.CreateQuestion(q)

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, q.ID, "ID должен быть присвоен автоматически")
	mockRepo.AssertExpectations(t)
}

func TestPoolService_CreateQuestion_ValidationErrors(t *testing.T) {
	mockRepo := new(MockQuestionRepo)
	poolService := NewPoolService(mockRepo)

	cases := []struct {
		name string
		q    *entity.Question
	}{
		{"пустой текст", &entity.Question{Type: entity.QuestionTypeTextInput, Difficulty: entity.DifficultyEasy}},
		{"неизвестная сложность", &entity.Question{Type: entity.QuestionTypeTextInput, Difficulty: "extreme", Prompt: "?"}},
		{"неизвестный тип", &entity.Question{Type: "puzzle", Difficulty: entity.DifficultyEasy, Prompt: "?"}},
		{"мало вариантов", &entity.Question{
			Type: entity.QuestionTypeSingleChoice, Difficulty: entity.DifficultyEasy,
			Prompt: "?", Choices: entity.StringArray{"один"},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := poolService.CreateQuestion(tc.q)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrValidation))
		})
	}

	// Репозиторий не вызывался ни разу
	mockRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestPoolService_DisableQuestion(t *testing.T) {
	// Arrange
	mockRepo := new(MockQuestionRepo)
	existing := &entity.Question{ID: "q1", Approved: true, Disabled: false}

	mockRepo.On("GetByID", "q1").Return(existing, nil)
	mockRepo.On("Update", mock.MatchedBy(func(q *entity.Question) bool {
		return q.Disabled
	})).Return(nil)

	poolService := NewPoolService(mockRepo)

	// Act
	err := poolService.DisableQuestion("q1")

	// Assert
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestPoolService_ImportXLSX_Success(t *testing.T) {
	// Arrange
	mockRepo := new(MockQuestionRepo)
	mockRepo.On("CreateBatch", mock.AnythingOfType("[]entity.Question")).Return(nil)

	poolService := NewPoolService(mockRepo)
	buf := buildImportXLSX(t, [][]interface{}{
		{"single_choice", "easy", "2+2?", "3|4|5", "1", "math", "arithmetic"},
		{"true_false", "medium", "Земля круглая?", "", "true", "science", "astronomy"},
		{"text_input", "hard", "Столица Австралии?", "", "Канберра", "geography", ""},
	})

	// Act
	result, err := poolService.ImportXLSX(buf)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3, result.Imported)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, result.Errors)

	imported := mockRepo.Calls[0].Arguments.Get(0).([]entity.Question)
	require.Len(t, imported, 3)
	assert.Equal(t, 1, imported[0].CorrectOption)
	assert.Equal(t, []string{"3", "4", "5"}, []string(imported[0].Choices))
	assert.True(t, imported[1].CorrectBool)
	assert.Equal(t, "Канберра", imported[2].CorrectText)
	// Импортированные вопросы сразу одобрены
	for _, q := range imported {
		assert.True(t, q.Approved)
		assert.NotEmpty(t, q.ID)
	}
}

func TestPoolService_ImportXLSX_SkipsBrokenRows(t *testing.T) {
	// Arrange: битые строки пропускаются, валидные импортируются
	mockRepo := new(MockQuestionRepo)
	mockRepo.On("CreateBatch", mock.AnythingOfType("[]entity.Question")).Return(nil)

	poolService := NewPoolService(mockRepo)
	buf := buildImportXLSX(t, [][]interface{}{
		{"single_choice", "easy", "2+2?", "3|4|5", "1", "math", "arithmetic"},
		{"single_choice", "easy", "без вариантов", "", "0", "math", ""},
		{"true_false", "medium", "кривой буль", "", "наверное", "science", ""},
	})

	// Act
	result, err := poolService.ImportXLSX(buf)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 2, result.Skipped)
	assert.Len(t, result.Errors, 2)
}

func TestPoolService_ImportXLSX_EmptySheet(t *testing.T) {
	mockRepo := new(MockQuestionRepo)
	poolService := NewPoolService(mockRepo)

	buf := buildImportXLSX(t, nil)

	_, err := poolService.ImportXLSX(buf)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	mockRepo.AssertNotCalled(t, "CreateBatch", mock.Anything)
}

func TestPoolService_ImportXLSX_NotAnXLSX(t *testing.T) {
	mockRepo := new(MockQuestionRepo)
	poolService := NewPoolService(mockRepo)

	_, err := poolService.ImportXLSX(bytes.NewReader([]byte("это не xlsx")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}
