package composer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ValidationResult - итог структурной проверки шаблона
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Issues  []string `json:"issues,omitempty"`
}

// leakMarkers - маркеры утечки ответов в сериализованном виде.
// Префикс с кавычкой ловит имена полей, а не текст вопроса.
var leakMarkers = []string{`"correct`, `"answer`, `"explanation`, `"solution`}

// ValidateTemplate выполняет предпубликационную проверку шаблона.
// Непройденная проверка блокирует выгрузку: лучше не опубликовать вовсе,
// чем опубликовать артефакт с утечкой ответов или битой структурой.
func ValidateTemplate(template *QuizTemplate) ValidationResult {
	var issues []string

	if template == nil {
		return ValidationResult{IsValid: false, Issues: []string{"шаблон отсутствует"}}
	}

	if template.DailyQuizID == "" {
		issues = append(issues, "отсутствует dailyQuizId")
	}
	if template.DropAtUTC.IsZero() {
		issues = append(issues, "отсутствует dropAtUTC")
	}
	if template.Version < 1 {
		issues = append(issues, fmt.Sprintf("некорректная версия %d: версия публикации начинается с 1", template.Version))
	}
	if len(template.Questions) == 0 {
		issues = append(issues, "шаблон не содержит вопросов")
	}

	for i, q := range template.Questions {
		if q.QID == "" {
			issues = append(issues, fmt.Sprintf("вопрос #%d: отсутствует qid", i))
		}
		if q.Type == "" {
			issues = append(issues, fmt.Sprintf("вопрос #%d: отсутствует тип", i))
		}
		if q.Payload.Difficulty == "" {
			issues = append(issues, fmt.Sprintf("вопрос #%d: отсутствует сложность", i))
		}
		if q.Payload.Prompt == "" {
			issues = append(issues, fmt.Sprintf("вопрос #%d: отсутствует текст вопроса", i))
		}
		if q.OrderIndex != i {
			issues = append(issues, fmt.Sprintf("вопрос #%d: orderIndex %d не совпадает с позицией", i, q.OrderIndex))
		}
		issues = append(issues, scanForLeaks(i, q)...)
	}

	if template.Metadata.TotalQuestions != len(template.Questions) {
		issues = append(issues, fmt.Sprintf("metadata.totalQuestions %d не совпадает с количеством вопросов %d",
			template.Metadata.TotalQuestions, len(template.Questions)))
	}

	breakdownTotal := 0
	for _, count := range template.Metadata.DifficultyBreakdown {
		breakdownTotal += count
	}
	if breakdownTotal != template.Metadata.TotalQuestions {
		issues = append(issues, fmt.Sprintf("сумма difficultyBreakdown %d не совпадает с totalQuestions %d",
			breakdownTotal, template.Metadata.TotalQuestions))
	}

	return ValidationResult{IsValid: len(issues) == 0, Issues: issues}
}

// scanForLeaks сериализует блок вопроса и ищет маркеры полей с ответами.
// Вторая линия обороны после типизированной санитизации в сборщике.
func scanForLeaks(index int, q TemplateQuestion) []string {
	var issues []string

	serialized, err := json.Marshal(q)
	if err != nil {
		return []string{fmt.Sprintf("вопрос #%d: не удалось сериализовать для проверки: %v", index, err)}
	}

	lowered := strings.ToLower(string(serialized))
	for _, marker := range leakMarkers {
		if strings.Contains(lowered, marker) {
			issues = append(issues, fmt.Sprintf("вопрос #%d: обнаружен маркер утечки ответа %q", index, marker))
		}
	}
	return issues
}
