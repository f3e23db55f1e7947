package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/daily-trivia/internal/domain/repository"
	apperrors "github.com/yourusername/daily-trivia/internal/pkg/errors"
	"github.com/yourusername/daily-trivia/internal/service/composer"
)

// ComposerHandler обрабатывает запросы движка составления викторины дня
type ComposerHandler struct {
	composerService *composer.Composer
	quizRepo        repository.DailyQuizRepository
	logRepo         repository.CompositionLogRepository
}

// NewComposerHandler создает новый обработчик составления
func NewComposerHandler(
	composerService *composer.Composer,
	quizRepo repository.DailyQuizRepository,
	logRepo repository.CompositionLogRepository,
) *ComposerHandler {
	return &ComposerHandler{
		composerService: composerService,
		quizRepo:        quizRepo,
		logRepo:         logRepo,
	}
}

// ComposeRequest представляет запрос на ручной запуск составления
type ComposeRequest struct {
	Mode string `json:"mode" binding:"omitempty,oneof=mix spotlight event"`
}

// ComposeQuiz запускает составление и публикацию викторины на дату
func (h *ComposerHandler) ComposeQuiz(c *gin.Context) {
	targetDate, ok := h.parseDate(c)
	if !ok {
		return
	}

	// Пустое тело допустимо: режим берется из конфигурации
	var req ComposeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	result, err := h.composerService.ComposeDailyQuiz(c.Request.Context(), targetDate, req.Mode, nil)
	if err != nil {
		h.handleComposerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"quiz":     result.DailyQuiz,
		"template": result.Template,
		"warnings": result.Log.Warnings,
	})
}

// PreviewQuiz возвращает результат составления без каких-либо побочных эффектов
func (h *ComposerHandler) PreviewQuiz(c *gin.Context) {
	targetDate, ok := h.parseDate(c)
	if !ok {
		return
	}

	result, err := h.composerService.PreviewComposition(targetDate, c.Query("mode"), nil)
	if err != nil {
		h.handleComposerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"template": result.Template,
		"log":      result.Log,
	})
}

// GetQuizByDate возвращает викторину на дату вместе с журналом состава
func (h *ComposerHandler) GetQuizByDate(c *gin.Context) {
	targetDate, ok := h.parseDate(c)
	if !ok {
		return
	}

	quiz, err := h.quizRepo.GetByDate(targetDate)
	if err != nil {
		h.handleComposerError(c, err)
		return
	}

	questionSet, err := h.quizRepo.GetQuestionSet(quiz.ID)
	if err != nil {
		h.handleComposerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quiz":      quiz,
		"questions": questionSet,
	})
}

// GetCompositionLog возвращает журнал прогона составления на дату
func (h *ComposerHandler) GetCompositionLog(c *gin.Context) {
	targetDate, ok := h.parseDate(c)
	if !ok {
		return
	}

	runLog, err := h.logRepo.GetByDate(targetDate)
	if err != nil {
		h.handleComposerError(c, err)
		return
	}

	c.JSON(http.StatusOK, runLog)
}

// RetrySweep запускает retry-проход публикации вручную
func (h *ComposerHandler) RetrySweep(c *gin.Context) {
	published, err := h.composerService.RetryUnpublished(c.Request.Context())
	if err != nil {
		h.handleComposerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"published": published})
}

// GetStats возвращает сводную статистику прогонов составления и пула
func (h *ComposerHandler) GetStats(c *gin.Context) {
	stats, err := h.composerService.GetCompositionStats()
	if err != nil {
		h.handleComposerError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetHealth возвращает состояние внешних зависимостей движка
func (h *ComposerHandler) GetHealth(c *gin.Context) {
	health := h.composerService.GetSystemHealth(c.Request.Context())

	status := http.StatusOK
	if !health.IsHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}

// parseDate извлекает дату из параметра пути в формате YYYY-MM-DD
func (h *ComposerHandler) parseDate(c *gin.Context) (time.Time, bool) {
	raw := c.Param("date")
	targetDate, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return time.Time{}, false
	}
	return targetDate, true
}

// handleComposerError обрабатывает ошибки движка составления и отправляет соответствующий HTTP ответ
func (h *ComposerHandler) handleComposerError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrPublish) {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in ComposerHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
