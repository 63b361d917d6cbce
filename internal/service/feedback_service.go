package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/genasnewdar/lever-stg/internal/domain/entity"
	"github.com/genasnewdar/lever-stg/internal/service/grading"
)

// FeedbackClient запрашивает у внешнего сервиса качественную обратную связь
// по оцененной попытке. Ответ сервиса непрозрачен для ядра: он сохраняется
// на попытке как есть и никогда не влияет на числовой балл.
type FeedbackClient struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewFeedbackClient создает клиент обратной связи.
// Пустой url отключает обратную связь целиком.
func NewFeedbackClient(url, apiKey string, timeout time.Duration) *FeedbackClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FeedbackClient{
		url:        url,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled сообщает, настроен ли внешний сервис
func (c *FeedbackClient) Enabled() bool {
	return c.url != ""
}

// feedbackQuestion - очищенное представление одного ответа для внешнего
// сервиса: без ключей правильных ответов и внутренних идентификаторов
type feedbackQuestion struct {
	QuestionID    string  `json:"question_id"`
	IsCorrect     *bool   `json:"is_correct"`
	PointsAwarded float64 `json:"points_awarded"`
}

type feedbackRequest struct {
	AttemptID  string             `json:"attempt_id"`
	TestID     string             `json:"test_id"`
	Score      float64            `json:"score"`
	MaxScore   int                `json:"max_score"`
	Percentage float64            `json:"percentage"`
	Questions  []feedbackQuestion `json:"questions"`
}

// BuildReport отправляет итог оценивания и возвращает непрозрачный JSON-отчет
func (c *FeedbackClient) BuildReport(ctx context.Context, attempt *entity.TestAttempt, result grading.AttemptResult) (json.RawMessage, error) {
	request := feedbackRequest{
		AttemptID:  attempt.ID,
		TestID:     attempt.TestID,
		Score:      result.Score,
		MaxScore:   result.MaxScore,
		Percentage: result.Percentage,
	}
	for _, graded := range result.Responses {
		request.Questions = append(request.Questions, feedbackQuestion{
			QuestionID:    graded.QuestionID,
			IsCorrect:     graded.IsCorrect,
			PointsAwarded: graded.PointsAwarded,
		})
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("feedback service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("feedback service returned invalid JSON")
	}
	return body, nil
}
