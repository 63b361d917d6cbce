package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/genasnewdar/lever-stg/internal/handler/dto"
	"github.com/genasnewdar/lever-stg/internal/service"
)

// SystemHandler обрабатывает системные запросы (callback планировщика)
type SystemHandler struct {
	attemptService *service.AttemptService
}

// NewSystemHandler создает новый системный обработчик
func NewSystemHandler(attemptService *service.AttemptService) *SystemHandler {
	return &SystemHandler{attemptService: attemptService}
}

// FinishAttempt принудительно завершает попытку по дедлайну.
//
// Всегда отвечает 200: доставка задач at-least-once, и любой не-2xx
// заставил бы диспетчер доставлять задачу снова. Ошибки логируются;
// недооцененная попытка остается в SUBMITTED и будет дооценена
// следующей доставкой.
// POST /api/system/test/finish
func (h *SystemHandler) FinishAttempt(c *gin.Context) {
	var req dto.SystemFinishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.attemptService.SystemFinish(c.Request.Context(), req.AttemptID); err != nil {
		log.Printf("[SystemHandler] Системное завершение попытки %s: %v", req.AttemptID, err)
	}

	c.JSON(http.StatusOK, gin.H{"acknowledged": true})
}
