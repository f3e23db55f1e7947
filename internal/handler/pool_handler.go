package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/daily-trivia/internal/domain/entity"
	apperrors "github.com/yourusername/daily-trivia/internal/pkg/errors"
	"github.com/yourusername/daily-trivia/internal/service"
)

// PoolHandler обрабатывает запросы управления пулом вопросов
type PoolHandler struct {
	poolService *service.PoolService
}

// NewPoolHandler создает новый обработчик пула
func NewPoolHandler(poolService *service.PoolService) *PoolHandler {
	return &PoolHandler{poolService: poolService}
}

// CreateQuestionRequest представляет запрос на добавление вопроса в пул
type CreateQuestionRequest struct {
	Type           string            `json:"type" binding:"required"`
	Difficulty     string            `json:"difficulty" binding:"required"`
	Prompt         string            `json:"prompt" binding:"required,min=3"`
	Choices        []string          `json:"choices"`
	Media          map[string]string `json:"media"`
	Themes         []string          `json:"themes"`
	Subjects       []string          `json:"subjects"`
	CorrectOption  int               `json:"correct_option"`
	CorrectOptions []string          `json:"correct_options"`
	CorrectText    string            `json:"correct_text"`
	CorrectBool    bool              `json:"correct_bool"`
	Approved       bool              `json:"approved"`
}

// CreateQuestion добавляет вопрос в пул
func (h *PoolHandler) CreateQuestion(c *gin.Context) {
	var req CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	q := &entity.Question{
		Type:           req.Type,
		Difficulty:     req.Difficulty,
		Prompt:         req.Prompt,
		Choices:        req.Choices,
		Media:          req.Media,
		Themes:         req.Themes,
		Subjects:       req.Subjects,
		CorrectOption:  req.CorrectOption,
		CorrectOptions: req.CorrectOptions,
		CorrectText:    req.CorrectText,
		CorrectBool:    req.CorrectBool,
		Approved:       req.Approved,
	}

	if err := h.poolService.CreateQuestion(q); err != nil {
		h.handlePoolError(c, err)
		return
	}

	c.JSON(http.StatusCreated, q)
}

// GetQuestion возвращает вопрос по ID
func (h *PoolHandler) GetQuestion(c *gin.Context) {
	q, err := h.poolService.GetQuestion(c.Param("id"))
	if err != nil {
		h.handlePoolError(c, err)
		return
	}

	c.JSON(http.StatusOK, q)
}

// DisableQuestion выводит вопрос из ротации
func (h *PoolHandler) DisableQuestion(c *gin.Context) {
	if err := h.poolService.DisableQuestion(c.Param("id")); err != nil {
		h.handlePoolError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"disabled": true})
}

// ImportQuestions импортирует вопросы из XLSX-файла (multipart-поле "file")
func (h *PoolHandler) ImportQuestions(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	result, err := h.poolService.ImportXLSX(file)
	if err != nil {
		h.handlePoolError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetPoolStats возвращает сводку пула вопросов
func (h *PoolHandler) GetPoolStats(c *gin.Context) {
	total, selectable, byDifficulty, err := h.poolService.PoolStats()
	if err != nil {
		h.handlePoolError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":         total,
		"selectable":    selectable,
		"by_difficulty": byDifficulty,
	})
}

// handlePoolError обрабатывает ошибки сервиса пула и отправляет соответствующий HTTP ответ
func (h *PoolHandler) handlePoolError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in PoolHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
