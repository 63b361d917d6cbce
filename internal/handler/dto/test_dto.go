package dto

import (
	"encoding/json"
	"time"

	"github.com/genasnewdar/lever-stg/internal/domain/entity"
	"github.com/genasnewdar/lever-stg/internal/service"
)

// Машиночитаемые коды ошибок в ответах API
const (
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeTestNotFound         = "TEST_NOT_FOUND"
	CodeAttemptNotFound      = "TEST_ATTEMPT_NOT_FOUND"
	CodeQuestionNotFound     = "QUESTION_NOT_FOUND"
	CodeLessonNotFound       = "LESSON_NOT_FOUND"
	CodeAlreadyInProgress    = "TEST_ALREADY_IN_PROGRESS"
	CodeAttemptNotInProgress = "TEST_ATTEMPT_NOT_IN_PROGRESS"
	CodeAttemptExpired       = "TEST_ATTEMPT_EXPIRED"
	CodeQuestionTypeMismatch = "QUESTION_TYPE_MISMATCH"
	CodeOptionNotFound       = "OPTION_NOT_FOUND"
	CodeEnrollmentRequired   = "ENROLLMENT_REQUIRED"
	CodeStartTestFailed      = "START_TEST_FAILED"
)

// SubmitResponseRequest представляет запрос на отправку одного ответа.
// Клиент заявляет тип вопроса; несовпадение с хранимым типом отклоняется.
type SubmitResponseRequest struct {
	AttemptID        string          `json:"test_attempt_id" binding:"required,uuid"`
	QuestionID       string          `json:"question_id" binding:"required,uuid"`
	QuestionType     string          `json:"question_type" binding:"required"`
	SelectedOptionID *string         `json:"selected_option_id,omitempty" binding:"omitempty,uuid"`
	AdditionalData   json.RawMessage `json:"additional_data,omitempty"`
}

// BatchResponseItem представляет один ответ внутри батча.
// Каждый элемент несет id своей попытки.
type BatchResponseItem struct {
	AttemptID        string          `json:"test_attempt_id" binding:"required,uuid"`
	QuestionID       string          `json:"question_id" binding:"required,uuid"`
	QuestionType     string          `json:"question_type" binding:"required"`
	SelectedOptionID *string         `json:"selected_option_id,omitempty" binding:"omitempty,uuid"`
	AdditionalData   json.RawMessage `json:"additional_data,omitempty"`
}

// SubmitBatchRequest представляет запрос на батчевую отправку ответов
type SubmitBatchRequest struct {
	Responses []BatchResponseItem `json:"responses" binding:"required,min=1,dive"`
}

// BatchItemResult представляет итог приема одного ответа из батча
type BatchItemResult struct {
	QuestionID string `json:"question_id"`
	Success    bool   `json:"success"`
	Code       string `json:"code,omitempty"`
	Error      string `json:"error,omitempty"`
}

// SystemFinishRequest представляет callback планировщика дедлайнов
type SystemFinishRequest struct {
	AttemptID string `json:"test_attempt_id" binding:"required,uuid"`
}

// LessonProgressRequest представляет событие прогресса по уроку
type LessonProgressRequest struct {
	IsCompleted bool `json:"is_completed"`
	TimeSpent   int  `json:"time_spent" binding:"omitempty,min=0"`
	WatchTime   int  `json:"watch_time" binding:"omitempty,min=0"`
}

// AttemptResponse представляет попытку в формате для ответа клиенту
type AttemptResponse struct {
	ID          string               `json:"id"`
	TestID      string               `json:"test_id"`
	Status      entity.AttemptStatus `json:"status"`
	StartedAt   time.Time            `json:"started_at"`
	DueAt       time.Time            `json:"due_at"`
	SubmittedAt *time.Time           `json:"submitted_at,omitempty"`
	FinishActor string               `json:"finish_actor,omitempty"`
	Score       *float64             `json:"score,omitempty"`
	Report      json.RawMessage      `json:"report,omitempty"`
	Responses   []entity.Response    `json:"responses,omitempty"`
}

// NewAttemptResponse создает DTO попытки
func NewAttemptResponse(attempt *entity.TestAttempt) *AttemptResponse {
	return &AttemptResponse{
		ID:          attempt.ID,
		TestID:      attempt.TestID,
		Status:      attempt.Status,
		StartedAt:   attempt.StartedAt,
		DueAt:       attempt.DueAt,
		SubmittedAt: attempt.SubmittedAt,
		FinishActor: attempt.FinishActor,
		Score:       attempt.Score,
		Report:      json.RawMessage(attempt.Report),
		Responses:   attempt.Responses,
	}
}

// FinishResponse представляет итог завершения попытки
type FinishResponse struct {
	Attempt    *AttemptResponse `json:"attempt"`
	MaxScore   int              `json:"max_score"`
	Percentage float64          `json:"percentage"`
}

// NewFinishResponse создает DTO итога завершения
func NewFinishResponse(result *service.FinishResult) *FinishResponse {
	return &FinishResponse{
		Attempt:    NewAttemptResponse(result.Attempt),
		MaxScore:   result.MaxScore,
		Percentage: result.Percentage,
	}
}

// PaginatedAttemptsResponse представляет пагинированный список попыток
type PaginatedAttemptsResponse struct {
	Attempts []*AttemptResponse `json:"attempts"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PerPage  int                `json:"per_page"`
}

// NewPaginatedAttemptsResponse создает DTO списка попыток
func NewPaginatedAttemptsResponse(attempts []entity.TestAttempt, total int64, page, perPage int) *PaginatedAttemptsResponse {
	items := make([]*AttemptResponse, 0, len(attempts))
	for i := range attempts {
		items = append(items, NewAttemptResponse(&attempts[i]))
	}
	return &PaginatedAttemptsResponse{
		Attempts: items,
		Total:    total,
		Page:     page,
		PerPage:  perPage,
	}
}

// PaginatedTestsResponse представляет пагинированный список тестов
type PaginatedTestsResponse struct {
	Tests   []entity.Test `json:"tests"`
	Total   int64         `json:"total"`
	Page    int           `json:"page"`
	PerPage int           `json:"per_page"`
}
