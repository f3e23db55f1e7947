package service

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/daily-trivia/internal/domain/entity"
	"github.com/yourusername/daily-trivia/internal/domain/repository"
	apperrors "github.com/yourusername/daily-trivia/internal/pkg/errors"
)

// PoolService предоставляет методы для работы с пулом вопросов
type PoolService struct {
	questionRepo repository.QuestionRepository
}

// NewPoolService создает новый сервис пула вопросов
func NewPoolService(questionRepo repository.QuestionRepository) *PoolService {
	return &PoolService{questionRepo: questionRepo}
}

// CreateQuestion добавляет вопрос в пул
func (s *PoolService) CreateQuestion(q *entity.Question) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if err := validateQuestion(q); err != nil {
		return err
	}
	if err := s.questionRepo.Create(q); err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

// GetQuestion возвращает вопрос по ID
func (s *PoolService) GetQuestion(id string) (*entity.Question, error) {
	return s.questionRepo.GetByID(id)
}

// UpdateQuestion обновляет вопрос в пуле
func (s *PoolService) UpdateQuestion(q *entity.Question) error {
	if err := validateQuestion(q); err != nil {
		return err
	}
	return s.questionRepo.Update(q)
}

// DisableQuestion выводит вопрос из ротации, не удаляя его:
// история показов и журналы прошлых составов остаются целыми
func (s *PoolService) DisableQuestion(id string) error {
	q, err := s.questionRepo.GetByID(id)
	if err != nil {
		return err
	}
	q.Disabled = true
	return s.questionRepo.Update(q)
}

// PoolStats возвращает сводку пула: всего, доступно к отбору, по сложностям
func (s *PoolService) PoolStats() (total int64, selectable int64, byDifficulty map[string]int64, err error) {
	return s.questionRepo.PoolStats()
}

// ImportResult - итог импорта вопросов из XLSX
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// Ожидаемые колонки листа импорта (первая строка - заголовки):
// type | difficulty | prompt | choices | correct | themes | subjects
// Множественные значения разделяются вертикальной чертой.
const importColumnCount = 7

// ImportXLSX читает вопросы из Excel-файла и сохраняет их одним батчем.
// Битые строки пропускаются и попадают в отчет, импорт валидных не блокируют.
func (s *PoolService) ImportXLSX(r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: не удалось открыть XLSX: %v", apperrors.ErrValidation, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: лист %q не содержит строк с данными", apperrors.ErrValidation, sheet)
	}

	result := &ImportResult{}
	questions := make([]entity.Question, 0, len(rows)-1)

	for i, row := range rows[1:] {
		rowNum := i + 2 // Начинаем с 2 строки (1 - заголовки)
		q, err := parseQuestionRow(row)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("строка %d: %v", rowNum, err))
			continue
		}
		questions = append(questions, *q)
	}

	if len(questions) > 0 {
		if err := s.questionRepo.CreateBatch(questions); err != nil {
			return nil, fmt.Errorf("failed to import questions: %w", err)
		}
	}
	result.Imported = len(questions)

	log.Printf("[PoolService] Импорт XLSX: сохранено %d, пропущено %d", result.Imported, result.Skipped)
	return result, nil
}

// parseQuestionRow разбирает одну строку листа импорта в вопрос.
// GetRows отбрасывает пустые хвостовые ячейки, поэтому недостающие
// колонки тем/предметов читаются как пустые.
func parseQuestionRow(row []string) (*entity.Question, error) {
	if len(row) < 5 {
		return nil, fmt.Errorf("ожидается %d колонок, получено %d", importColumnCount, len(row))
	}
	cell := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	q := &entity.Question{
		ID:         uuid.NewString(),
		Type:       strings.TrimSpace(cell(0)),
		Difficulty: strings.TrimSpace(cell(1)),
		Prompt:     strings.TrimSpace(cell(2)),
		Choices:    splitCell(cell(3)),
		Themes:     splitCell(cell(5)),
		Subjects:   splitCell(cell(6)),
		Approved:   true,
	}

	correct := strings.TrimSpace(cell(4))
	switch q.Type {
	case entity.QuestionTypeSingleChoice:
		idx, err := strconv.Atoi(correct)
		if err != nil || idx < 0 || idx >= len(q.Choices) {
			return nil, fmt.Errorf("некорректный индекс правильного ответа %q", correct)
		}
		q.CorrectOption = idx
	case entity.QuestionTypeMultiChoice:
		q.CorrectOptions = splitCell(correct)
		if len(q.CorrectOptions) == 0 {
			return nil, fmt.Errorf("не указаны правильные ответы")
		}
	case entity.QuestionTypeTrueFalse:
		val, err := strconv.ParseBool(correct)
		if err != nil {
			return nil, fmt.Errorf("некорректное булево значение %q", correct)
		}
		q.CorrectBool = val
	case entity.QuestionTypeTextInput:
		if correct == "" {
			return nil, fmt.Errorf("не указан эталонный текст ответа")
		}
		q.CorrectText = correct
	default:
		return nil, fmt.Errorf("неизвестный тип вопроса %q", q.Type)
	}

	if err := validateQuestion(q); err != nil {
		return nil, err
	}
	return q, nil
}

// validateQuestion проверяет обязательные поля вопроса
func validateQuestion(q *entity.Question) error {
	if q.Prompt == "" {
		return fmt.Errorf("%w: текст вопроса обязателен", apperrors.ErrValidation)
	}
	switch q.Difficulty {
	case entity.DifficultyEasy, entity.DifficultyMedium, entity.DifficultyHard:
	default:
		return fmt.Errorf("%w: неизвестная сложность %q", apperrors.ErrValidation, q.Difficulty)
	}
	switch q.Type {
	case entity.QuestionTypeSingleChoice, entity.QuestionTypeMultiChoice:
		if len(q.Choices) < 2 {
			return fmt.Errorf("%w: вопрос с вариантами требует минимум 2 варианта", apperrors.ErrValidation)
		}
	case entity.QuestionTypeTrueFalse, entity.QuestionTypeTextInput:
		// Вариантов не требуется
	default:
		return fmt.Errorf("%w: неизвестный тип вопроса %q", apperrors.ErrValidation, q.Type)
	}
	return nil
}

// splitCell разбирает ячейку с множественными значениями
func splitCell(cell string) []string {
	var values []string
	for _, part := range strings.Split(cell, "|") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
