package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/genasnewdar/lever-stg/internal/domain/entity"
	"github.com/genasnewdar/lever-stg/internal/domain/repository"
	"github.com/genasnewdar/lever-stg/internal/handler/dto"
	"github.com/genasnewdar/lever-stg/internal/middleware"
	apperrors "github.com/genasnewdar/lever-stg/internal/pkg/errors"
	"github.com/genasnewdar/lever-stg/internal/service"
)

// TestHandler обрабатывает запросы жизненного цикла попыток тестов
type TestHandler struct {
	testService    *service.TestService
	attemptService *service.AttemptService
	attemptRepo    repository.AttemptRepository
}

// NewTestHandler создает новый обработчик тестов
func NewTestHandler(
	testService *service.TestService,
	attemptService *service.AttemptService,
	attemptRepo repository.AttemptRepository,
) *TestHandler {
	return &TestHandler{
		testService:    testService,
		attemptService: attemptService,
		attemptRepo:    attemptRepo,
	}
}

// StartTest начинает попытку прохождения теста
// POST /api/test/:id/start
func (h *TestHandler) StartTest(c *gin.Context) {
	testID := c.MustGet("testID").(string)
	subject := c.GetString(middleware.ContextSubjectKey)

	attempt, err := h.attemptService.Start(c.Request.Context(), subject, testID)
	if err != nil {
		h.handleTestError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewAttemptResponse(attempt))
}

// SubmitResponse принимает один ответ ученика
// POST /api/test/response/submit
func (h *TestHandler) SubmitResponse(c *gin.Context) {
	var req dto.SubmitResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	subject := c.GetString(middleware.ContextSubjectKey)
	response, err := h.attemptService.SubmitResponse(c.Request.Context(), subject, service.SubmitResponseInput{
		AttemptID:        req.AttemptID,
		QuestionID:       req.QuestionID,
		QuestionType:     entity.QuestionType(req.QuestionType),
		SelectedOptionID: req.SelectedOptionID,
		AdditionalData:   req.AdditionalData,
	})
	if err != nil {
		h.handleTestError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// SubmitBatch принимает несколько ответов, каждый со своей попыткой.
// Все ошибки, кроме неизвестного ученика, изолированы и возвращаются
// поэлементно.
// POST /api/test/response/submit_batch
func (h *TestHandler) SubmitBatch(c *gin.Context) {
	var req dto.SubmitBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inputs := make([]service.SubmitResponseInput, 0, len(req.Responses))
	for _, item := range req.Responses {
		inputs = append(inputs, service.SubmitResponseInput{
			AttemptID:        item.AttemptID,
			QuestionID:       item.QuestionID,
			QuestionType:     entity.QuestionType(item.QuestionType),
			SelectedOptionID: item.SelectedOptionID,
			AdditionalData:   item.AdditionalData,
		})
	}

	subject := c.GetString(middleware.ContextSubjectKey)
	results, err := h.attemptService.SubmitBatch(c.Request.Context(), subject, inputs)
	if err != nil {
		h.handleTestError(c, err)
		return
	}

	items := make([]dto.BatchItemResult, 0, len(results))
	for _, result := range results {
		item := dto.BatchItemResult{
			QuestionID: result.QuestionID,
			Success:    result.Err == nil,
		}
		if result.Err != nil {
			item.Code = errorCode(result.Err)
			item.Error = result.Err.Error()
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{"results": items})
}

// FinishAttempt завершает попытку и возвращает итог оценивания
// POST /api/test/attempt/:id/finish
func (h *TestHandler) FinishAttempt(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(string)
	subject := c.GetString(middleware.ContextSubjectKey)

	result, err := h.attemptService.Finish(c.Request.Context(), subject, attemptID)
	if err != nil {
		h.handleTestError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewFinishResponse(result))
}

// ListTests возвращает список тестов с пагинацией
// GET /api/test/list
func (h *TestHandler) ListTests(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	tests, total, err := h.testService.List(page, perPage)
	if err != nil {
		h.handleTestError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.PaginatedTestsResponse{
		Tests:   tests,
		Total:   total,
		Page:    page,
		PerPage: perPage,
	})
}

// GetTest возвращает тест со структурой для прохождения.
// Ключи правильных ответов в ответ не попадают.
// GET /api/test/:id
func (h *TestHandler) GetTest(c *gin.Context) {
	testID := c.MustGet("testID").(string)

	test, err := h.testService.GetWithStructure(testID)
	if err != nil {
		h.handleTestError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// ListUserAttempts возвращает попытки текущего ученика
// GET /api/test/user/attempts
func (h *TestHandler) ListUserAttempts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	subject := c.GetString(middleware.ContextSubjectKey)
	attempts, total, err := h.attemptService.ListAttempts(subject, page, perPage)
	if err != nil {
		h.handleTestError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPaginatedAttemptsResponse(attempts, total, page, perPage))
}

// GetAttempt возвращает попытку ученика вместе с ответами
// GET /api/test/attempt/:id
func (h *TestHandler) GetAttempt(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(string)
	subject := c.GetString(middleware.ContextSubjectKey)

	attempt, err := h.attemptService.GetAttempt(subject, attemptID)
	if err != nil {
		h.handleTestError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAttemptResponse(attempt))
}

// ExportAttempts экспортирует попытки теста в CSV или Excel формате
// GET /api/admin/test/:id/attempts/export?format=csv|xlsx
func (h *TestHandler) ExportAttempts(c *gin.Context) {
	testID := c.MustGet("testID").(string)
	format := c.DefaultQuery("format", "csv")

	attempts, err := h.attemptRepo.ListByTest(testID)
	if err != nil {
		h.handleTestError(c, err)
		return
	}

	filename := fmt.Sprintf("test_%s_attempts_%s", testID, time.Now().Format("2006-01-02"))

	switch format {
	case "xlsx":
		h.exportXLSX(c, attempts, filename)
	default:
		h.exportCSV(c, attempts, filename)
	}
}

var exportHeaders = []string{"Ученик", "Статус", "Балл", "Начата", "Сдана", "Кем завершена"}

// exportRow формирует одну строку выгрузки
func exportRow(a *entity.TestAttempt) []string {
	score := ""
	if a.Score != nil {
		score = strconv.FormatFloat(*a.Score, 'f', -1, 64)
	}
	submitted := ""
	if a.SubmittedAt != nil {
		submitted = a.SubmittedAt.Format(time.RFC3339)
	}
	return []string{
		sanitizeForExcel(a.UserID),
		string(a.Status),
		score,
		a.StartedAt.Format(time.RFC3339),
		submitted,
		sanitizeForExcel(a.FinishActor),
	}
}

// exportCSV экспортирует попытки в CSV с правильным экранированием спецсимволов
func (h *TestHandler) exportCSV(c *gin.Context, attempts []entity.TestAttempt, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(exportHeaders)
	for i := range attempts {
		writer.Write(exportRow(&attempts[i]))
	}
}

// exportXLSX экспортирует попытки в Excel через StreamWriter
func (h *TestHandler) exportXLSX(c *gin.Context, attempts []entity.TestAttempt, filename string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Попытки"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[TestHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := make([]interface{}, len(exportHeaders))
	for i, header := range exportHeaders {
		headers[i] = header
	}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[TestHandler] Ошибка записи заголовков: %v", err)
	}

	for i := range attempts {
		rowNum := i + 2
		cells := exportRow(&attempts[i])
		row := make([]interface{}, len(cells))
		for j, cell := range cells {
			row[j] = cell
		}
		if err := sw.SetRow(fmt.Sprintf("A%d", rowNum), row); err != nil {
			log.Printf("[TestHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[TestHandler] Ошибка при Flush: %v", err)
		return
	}
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[TestHandler] Ошибка записи файла: %v", err)
	}
}

// sanitizeForExcel экранирует значения, начинающиеся с символов формул
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}

// errorCode возвращает машиночитаемый код для известных ошибок сервисов
func errorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return dto.CodeUserNotFound
	case errors.Is(err, service.ErrTestNotFound):
		return dto.CodeTestNotFound
	case errors.Is(err, service.ErrAttemptNotFound):
		return dto.CodeAttemptNotFound
	case errors.Is(err, service.ErrQuestionNotFound):
		return dto.CodeQuestionNotFound
	case errors.Is(err, service.ErrLessonNotFound):
		return dto.CodeLessonNotFound
	case errors.Is(err, service.ErrAlreadyInProgress):
		return dto.CodeAlreadyInProgress
	case errors.Is(err, service.ErrAttemptNotInProgress):
		return dto.CodeAttemptNotInProgress
	case errors.Is(err, service.ErrAttemptExpired):
		return dto.CodeAttemptExpired
	case errors.Is(err, service.ErrQuestionTypeMismatch):
		return dto.CodeQuestionTypeMismatch
	case errors.Is(err, service.ErrOptionNotFound):
		return dto.CodeOptionNotFound
	case errors.Is(err, service.ErrEnrollmentRequired):
		return dto.CodeEnrollmentRequired
	case errors.Is(err, service.ErrSchedulingFailed):
		return dto.CodeStartTestFailed
	}
	return ""
}

// respondError пишет ответ об ошибке с кодом, если он известен
func respondError(c *gin.Context, status int, err error) {
	body := gin.H{"error": err.Error()}
	if code := errorCode(err); code != "" {
		body["code"] = code
	}
	c.JSON(status, body)
}

// handleTestError сводит ошибки сервисов к HTTP-кодам
func (h *TestHandler) handleTestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		respondError(c, http.StatusNotFound, err)
	case errors.Is(err, apperrors.ErrConflict):
		respondError(c, http.StatusConflict, err)
	case errors.Is(err, apperrors.ErrValidation):
		respondError(c, http.StatusBadRequest, err)
	case errors.Is(err, apperrors.ErrForbidden):
		respondError(c, http.StatusForbidden, err)
	case errors.Is(err, apperrors.ErrUnauthorized):
		respondError(c, http.StatusUnauthorized, err)
	case errors.Is(err, apperrors.ErrDependency):
		respondError(c, http.StatusBadGateway, err)
	default:
		log.Printf("ERROR: Internal server error in TestHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
