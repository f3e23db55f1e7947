package composer

import (
	"fmt"
	"sort"
	"time"

	"github.com/yourusername/daily-trivia/internal/domain/entity"
)

// QuestionPayload - клиентская часть вопроса. Полей правильных ответов
// здесь нет и быть не может: payload собирается исчерпывающим switch
// по типу вопроса, который к Correct*-полям не обращается.
type QuestionPayload struct {
	Prompt     string            `json:"prompt"`
	Choices    []string          `json:"choices,omitempty"`
	Media      map[string]string `json:"media,omitempty"`
	Themes     []string          `json:"themes"`
	Subjects   []string          `json:"subjects,omitempty"`
	Difficulty string            `json:"difficulty"`
}

// TemplateQuestion - вопрос в составе опубликованного шаблона
type TemplateQuestion struct {
	QID        string          `json:"qid"`
	Type       string          `json:"type"`
	OrderIndex int             `json:"orderIndex"`
	Payload    QuestionPayload `json:"payload"`
}

// ClientShuffle подсказывает клиенту, какие части шаблона он может
// локально перемешивать
type ClientShuffle struct {
	Algo   string   `json:"algo"`
	Fields []string `json:"fields"`
}

// TemplateMetadata - сводные метаданные шаблона
type TemplateMetadata struct {
	GeneratedAt         time.Time      `json:"generatedAt"`
	TotalQuestions      int            `json:"totalQuestions"`
	DifficultyBreakdown map[string]int `json:"difficultyBreakdown"`
	ThemeBreakdown      map[string]int `json:"themeBreakdown"`
}

// QuizTemplate - неизменяемый версионированный JSON-артефакт викторины дня,
// готовый к выкладке на CDN. Ответов и признаков правильности не содержит.
type QuizTemplate struct {
	DailyQuizID   string             `json:"dailyQuizId"`
	Version       int                `json:"version"`
	DropAtUTC     time.Time          `json:"dropAtUTC"`
	Mode          string             `json:"mode"`
	ThemePlan     entity.ThemePlan   `json:"themePlan"`
	Questions     []TemplateQuestion `json:"questions"`
	ClientShuffle ClientShuffle      `json:"clientShuffle"`
	Metadata      TemplateMetadata   `json:"metadata"`
}

// GenerateTemplate собирает шаблон из выбранных вопросов.
// Итоговый порядок стабилен и воспроизводим: сложность Easy < Medium < Hard,
// внутри сложности - лексикографически по id. Это отдельный порядок от
// случайного тай-брейка, действующего при отборе.
func GenerateTemplate(quiz *entity.DailyQuiz, version int, questions []entity.Question, themePlan entity.ThemePlan, generatedAt time.Time) (*QuizTemplate, error) {
	ordered := make([]entity.Question, len(questions))
	copy(ordered, questions)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := entity.DifficultyRank(ordered[i].Difficulty), entity.DifficultyRank(ordered[j].Difficulty)
		if ri != rj {
			return ri < rj
		}
		return ordered[i].ID < ordered[j].ID
	})

	templateQuestions := make([]TemplateQuestion, 0, len(ordered))
	for i, q := range ordered {
		payload, err := sanitizeQuestion(&q)
		if err != nil {
			return nil, err
		}
		templateQuestions = append(templateQuestions, TemplateQuestion{
			QID:        q.ID,
			Type:       q.Type,
			OrderIndex: i,
			Payload:    payload,
		})
	}

	return &QuizTemplate{
		DailyQuizID: quiz.ID,
		Version:     version,
		DropAtUTC:   quiz.DropAtUTC,
		Mode:        quiz.Mode,
		ThemePlan:   themePlan,
		Questions:   templateQuestions,
		ClientShuffle: ClientShuffle{
			Algo:   "fisher_yates",
			Fields: []string{"choices"},
		},
		Metadata: TemplateMetadata{
			GeneratedAt:         generatedAt,
			TotalQuestions:      len(templateQuestions),
			DifficultyBreakdown: DifficultyCounts(ordered),
			ThemeBreakdown:      ThemeCounts(ordered),
		},
	}, nil
}

// sanitizeQuestion строит клиентский payload по типу вопроса.
// Каждая ветка перечисляет копируемые поля явно; неизвестный тип - ошибка,
// а не тихий проброс всех полей.
func sanitizeQuestion(q *entity.Question) (QuestionPayload, error) {
	base := QuestionPayload{
		Prompt:     q.Prompt,
		Media:      q.Media,
		Themes:     q.Themes,
		Subjects:   q.Subjects,
		Difficulty: q.Difficulty,
	}

	switch q.Type {
	case entity.QuestionTypeSingleChoice, entity.QuestionTypeMultiChoice:
		base.Choices = q.Choices
		return base, nil
	case entity.QuestionTypeTrueFalse:
		base.Choices = q.Choices
		if len(base.Choices) == 0 {
			base.Choices = []string{"true", "false"}
		}
		return base, nil
	case entity.QuestionTypeTextInput:
		// Вариантов нет: клиент показывает поле свободного ввода
		return base, nil
	default:
		return QuestionPayload{}, fmt.Errorf("unknown question type %q (question %s)", q.Type, q.ID)
	}
}
