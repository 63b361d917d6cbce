package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/genasnewdar/lever-stg/internal/handler/dto"
	"github.com/genasnewdar/lever-stg/internal/middleware"
	apperrors "github.com/genasnewdar/lever-stg/internal/pkg/errors"
	"github.com/genasnewdar/lever-stg/internal/service"
)

// ProgressHandler обрабатывает запросы прогресса обучения
type ProgressHandler struct {
	progressService *service.ProgressService
}

// NewProgressHandler создает новый обработчик прогресса
func NewProgressHandler(progressService *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progressService: progressService}
}

// RecordLessonProgress записывает прогресс по уроку и возвращает
// пересчитанный прогресс курса
// POST /api/course/lesson/:id/progress
func (h *ProgressHandler) RecordLessonProgress(c *gin.Context) {
	lessonID := c.MustGet("lessonID").(string)
	subject := c.GetString(middleware.ContextSubjectKey)

	var req dto.LessonProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	progress, err := h.progressService.RecordLessonProgress(c.Request.Context(), subject, lessonID, service.LessonProgressInput{
		IsCompleted: req.IsCompleted,
		TimeSpent:   req.TimeSpent,
		WatchTime:   req.WatchTime,
	})
	if err != nil {
		h.handleProgressError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// GetCourseProgress возвращает прогресс ученика по курсу
// GET /api/course/:id/progress
func (h *ProgressHandler) GetCourseProgress(c *gin.Context) {
	courseID := c.MustGet("courseID").(string)
	subject := c.GetString(middleware.ContextSubjectKey)

	progress, err := h.progressService.GetCourseProgress(subject, courseID)
	if err != nil {
		h.handleProgressError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// handleProgressError сводит ошибки сервиса прогресса к HTTP-кодам
func (h *ProgressHandler) handleProgressError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		respondError(c, http.StatusNotFound, err)
	case errors.Is(err, apperrors.ErrForbidden):
		respondError(c, http.StatusForbidden, err)
	case errors.Is(err, apperrors.ErrValidation):
		respondError(c, http.StatusBadRequest, err)
	default:
		log.Printf("ERROR: Internal server error in ProgressHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
