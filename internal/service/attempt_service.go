package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/datatypes"

	"github.com/genasnewdar/lever-stg/internal/domain/entity"
	"github.com/genasnewdar/lever-stg/internal/domain/repository"
	apperrors "github.com/genasnewdar/lever-stg/internal/pkg/errors"
	"github.com/genasnewdar/lever-stg/internal/scheduler"
	"github.com/genasnewdar/lever-stg/internal/service/grading"
)

// testStructureCacheTTL время жизни кеша структуры теста.
// Структура меняется редко (авторинг - внешняя подсистема),
// а читается при каждом оценивании.
const testStructureCacheTTL = 5 * time.Minute

// ReportClient получает итог оценивания и возвращает непрозрачный
// JSON-отчет качественной обратной связи для попытки.
type ReportClient interface {
	BuildReport(ctx context.Context, attempt *entity.TestAttempt, result grading.AttemptResult) (json.RawMessage, error)
	Enabled() bool
}

// AttemptService управляет жизненным циклом попыток прохождения тестов:
// старт с планированием дедлайна, прием ответов, завершение и оценивание.
type AttemptService struct {
	userRepo     repository.UserRepository
	testRepo     repository.TestRepository
	questionRepo repository.QuestionRepository
	attemptRepo  repository.AttemptRepository
	responseRepo repository.ResponseRepository
	cacheRepo    repository.CacheRepository
	deadlines    scheduler.DeadlineScheduler
	retryPolicy  scheduler.RetryPolicy
	reports      ReportClient
}

// NewAttemptService создает сервис попыток
func NewAttemptService(
	userRepo repository.UserRepository,
	testRepo repository.TestRepository,
	questionRepo repository.QuestionRepository,
	attemptRepo repository.AttemptRepository,
	responseRepo repository.ResponseRepository,
	cacheRepo repository.CacheRepository,
	deadlines scheduler.DeadlineScheduler,
	retryPolicy scheduler.RetryPolicy,
	reports ReportClient,
) *AttemptService {
	return &AttemptService{
		userRepo:     userRepo,
		testRepo:     testRepo,
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		responseRepo: responseRepo,
		cacheRepo:    cacheRepo,
		deadlines:    deadlines,
		retryPolicy:  retryPolicy,
		reports:      reports,
	}
}

// Start начинает попытку прохождения теста.
//
// Попытка создается в статусе NOT_STARTED, затем через политику повторов
// планируется задача принудительного завершения на момент дедлайна, и только
// после этого попытка переводится в IN_PROGRESS. Если планирование не
// удалось после всех повторов, попытка отменяется и старт считается
// несостоявшимся - тест без гарантированного дедлайна не начинается.
func (s *AttemptService) Start(ctx context.Context, subject, testID string) (*entity.TestAttempt, error) {
	user, err := s.userRepo.GetBySubject(subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	test, err := s.testRepo.GetActiveByID(testID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrTestNotFound
		}
		return nil, err
	}

	now := time.Now()
	attempt := &entity.TestAttempt{
		UserID:    user.ID,
		TestID:    test.ID,
		Status:    entity.AttemptNotStarted,
		StartedAt: now,
		DueAt:     now.Add(time.Duration(test.DurationSeconds()) * time.Second),
	}

	// Частичный уникальный индекс в БД - единственный арбитр гонки
	// двух одновременных стартов
	if err := s.attemptRepo.Create(attempt); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, ErrAlreadyInProgress
		}
		return nil, err
	}

	scheduleErr := s.retryPolicy.Do(ctx, func() error {
		return s.deadlines.ScheduleFinish(ctx, attempt.ID, attempt.DueAt)
	})
	if scheduleErr != nil {
		log.Printf("[AttemptService] Планирование дедлайна для попытки %s не удалось: %v", attempt.ID, scheduleErr)
		// Откат: попытка отменяется, чтобы не блокировать следующий старт
		ok, cancelErr := s.attemptRepo.TransitionStatus(attempt.ID,
			entity.AttemptNotStarted, entity.AttemptCancelled,
			map[string]interface{}{"finish_actor": entity.FinishActorSystem})
		if cancelErr != nil || !ok {
			log.Printf("[AttemptService] КРИТИЧНО: не удалось отменить попытку %s после сбоя планирования: %v", attempt.ID, cancelErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrSchedulingFailed, scheduleErr)
	}

	ok, err := s.attemptRepo.TransitionStatus(attempt.ID,
		entity.AttemptNotStarted, entity.AttemptInProgress, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Попытку уже перевели (например, сработал ранний callback)
		return s.attemptRepo.GetByID(attempt.ID)
	}

	attempt.Status = entity.AttemptInProgress
	log.Printf("[AttemptService] Попытка %s начата: тест %s, ученик %s, дедлайн %s",
		attempt.ID, test.ID, user.ID, attempt.DueAt.Format(time.RFC3339))
	return attempt, nil
}

// SubmitResponseInput - входные данные одного ответа. Каждый ответ несет
// id своей попытки и заявленный клиентом тип вопроса.
type SubmitResponseInput struct {
	AttemptID        string
	QuestionID       string
	QuestionType     entity.QuestionType
	SelectedOptionID *string
	AdditionalData   json.RawMessage
}

// SubmitResponse принимает или перезаписывает ответ ученика на вопрос.
// Заявленный тип и форма ответа обязаны соответствовать вопросу;
// выбранный вариант обязан принадлежать вопросу.
func (s *AttemptService) SubmitResponse(ctx context.Context, subject string, input SubmitResponseInput) (*entity.Response, error) {
	user, err := s.userRepo.GetBySubject(subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	attempt, err := s.writableAttempt(input.AttemptID, user.ID)
	if err != nil {
		return nil, err
	}

	return s.storeResponse(attempt, input)
}

// BatchItemResult - результат приема одного ответа из батча
type BatchItemResult struct {
	QuestionID string
	Response   *entity.Response
	Err        error
}

// SubmitBatch принимает несколько ответов, каждый со своей попыткой.
// Все ошибки изолированы поэлементно, включая ошибки уровня попытки:
// испорченный элемент не отменяет остальные. Целиком батч отклоняется
// только если не найден сам ученик.
func (s *AttemptService) SubmitBatch(ctx context.Context, subject string, inputs []SubmitResponseInput) ([]BatchItemResult, error) {
	user, err := s.userRepo.GetBySubject(subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	results := make([]BatchItemResult, 0, len(inputs))
	for _, input := range inputs {
		attempt, err := s.writableAttempt(input.AttemptID, user.ID)
		if err != nil {
			results = append(results, BatchItemResult{
				QuestionID: input.QuestionID,
				Err:        err,
			})
			continue
		}

		response, err := s.storeResponse(attempt, input)
		results = append(results, BatchItemResult{
			QuestionID: input.QuestionID,
			Response:   response,
			Err:        err,
		})
	}
	return results, nil
}

// writableAttempt возвращает попытку, если она принадлежит ученику,
// находится в статусе IN_PROGRESS и дедлайн еще не истек
func (s *AttemptService) writableAttempt(attemptID, userID string) (*entity.TestAttempt, error) {
	attempt, err := s.attemptRepo.GetByIDForUser(attemptID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.Status != entity.AttemptInProgress {
		return nil, ErrAttemptNotInProgress
	}
	// Дедлайн авторитетен и без callback'а планировщика
	if attempt.IsExpired(time.Now()) {
		return nil, ErrAttemptExpired
	}
	return attempt, nil
}

// storeResponse валидирует форму ответа по типу вопроса и сохраняет его
// по ключу (attempt_id, question_id)
func (s *AttemptService) storeResponse(attempt *entity.TestAttempt, input SubmitResponseInput) (*entity.Response, error) {
	question, err := s.questionRepo.GetWithOptions(input.QuestionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}

	if err := validateResponseShape(question, input); err != nil {
		return nil, err
	}

	response := &entity.Response{
		AttemptID:        attempt.ID,
		QuestionID:       question.ID,
		SelectedOptionID: input.SelectedOptionID,
	}
	if len(input.AdditionalData) > 0 {
		response.AdditionalData = datatypes.JSON(input.AdditionalData)
	}

	if err := s.responseRepo.Upsert(response); err != nil {
		return nil, err
	}
	return response, nil
}

// validateResponseShape проверяет, что заявленный тип совпадает с типом
// вопроса, а форма ответа ему соответствует: вопросы с выбором получают
// ровно id варианта, вопросы на сопоставление - словарь пар, свободные
// типы - текстовый payload.
func validateResponseShape(question *entity.Question, input SubmitResponseInput) error {
	if input.QuestionType != question.Type {
		return ErrQuestionTypeMismatch
	}

	switch question.Type {
	case entity.QuestionTypeMultipleChoice:
		if input.SelectedOptionID == nil || len(input.AdditionalData) > 0 {
			return ErrQuestionTypeMismatch
		}
		if !question.HasOption(*input.SelectedOptionID) {
			return ErrOptionNotFound
		}

	case entity.QuestionTypeMatching:
		if input.SelectedOptionID != nil || len(input.AdditionalData) == 0 {
			return ErrQuestionTypeMismatch
		}
		var mapping map[string]string
		if err := json.Unmarshal(input.AdditionalData, &mapping); err != nil {
			return ErrQuestionTypeMismatch
		}

	default:
		if input.SelectedOptionID != nil || len(input.AdditionalData) == 0 {
			return ErrQuestionTypeMismatch
		}
	}
	return nil
}

// FinishResult - итог завершения попытки
type FinishResult struct {
	Attempt    *entity.TestAttempt `json:"attempt"`
	MaxScore   int                 `json:"max_score"`
	Percentage float64             `json:"percentage"`
}

// Finish завершает попытку по воле ученика: фиксирует ответы переводом
// в SUBMITTED и запускает оценивание. После дедлайна ученик завершить
// попытку не может - ее закроет система.
func (s *AttemptService) Finish(ctx context.Context, subject, attemptID string) (*FinishResult, error) {
	user, err := s.userRepo.GetBySubject(subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	attempt, err := s.writableAttempt(attemptID, user.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ok, err := s.attemptRepo.TransitionStatus(attempt.ID,
		entity.AttemptInProgress, entity.AttemptSubmitted,
		map[string]interface{}{
			"submitted_at": now,
			"finish_actor": user.ID,
		})
	if err != nil {
		return nil, err
	}
	if !ok {
		// Конкурентное завершение (второй запрос или callback системы)
		return nil, ErrAttemptNotInProgress
	}

	return s.grade(ctx, attempt.ID)
}

// SystemFinish принудительно завершает попытку по callback'у планировщика.
//
// Идемпотентно: терминальная попытка - no-op, повторная доставка задачи
// безопасна. Попытка в NOT_STARTED отменяется (процесс умер между
// планированием и переводом в IN_PROGRESS). Попытка в SUBMITTED
// дооценивается (предыдущее оценивание оборвалось).
func (s *AttemptService) SystemFinish(ctx context.Context, attemptID string) error {
	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return ErrAttemptNotFound
		}
		return err
	}

	if attempt.Status.IsTerminal() {
		log.Printf("[AttemptService] Попытка %s уже в статусе %s, системное завершение - no-op", attempt.ID, attempt.Status)
		return nil
	}

	switch attempt.Status {
	case entity.AttemptNotStarted:
		_, err := s.attemptRepo.TransitionStatus(attempt.ID,
			entity.AttemptNotStarted, entity.AttemptCancelled,
			map[string]interface{}{"finish_actor": entity.FinishActorSystem})
		return err

	case entity.AttemptInProgress:
		now := time.Now()
		ok, err := s.attemptRepo.TransitionStatus(attempt.ID,
			entity.AttemptInProgress, entity.AttemptSubmitted,
			map[string]interface{}{
				"submitted_at": now,
				"finish_actor": entity.FinishActorSystem,
			})
		if err != nil {
			return err
		}
		if !ok {
			// Ученик успел завершить сам; его оценивание уже идет
			return nil
		}
	}

	if _, err := s.grade(ctx, attempt.ID); err != nil {
		// Попытка остается в SUBMITTED; повторная доставка задачи дооценит
		log.Printf("[AttemptService] Оценивание попытки %s при системном завершении не удалось: %v", attempt.ID, err)
		return err
	}
	return nil
}

// grade оценивает попытку в статусе SUBMITTED и переводит ее в GRADED.
// Конкурентные запуски сериализуются охраняемым переходом статуса:
// второй оценщик видит, что GRADED уже записан, и уступает.
func (s *AttemptService) grade(ctx context.Context, attemptID string) (*FinishResult, error) {
	attempt, err := s.attemptRepo.GetWithResponses(attemptID)
	if err != nil {
		return nil, err
	}

	test, err := s.testStructure(attempt.TestID)
	if err != nil {
		return nil, err
	}

	result := grading.GradeAttempt(test, attempt.Responses)
	for _, graded := range result.Responses {
		if err := s.responseRepo.SaveGrade(graded.ResponseID, graded.IsCorrect, graded.PointsAwarded); err != nil {
			return nil, fmt.Errorf("failed to save grade for response %s: %w", graded.ResponseID, err)
		}
	}

	ok, err := s.attemptRepo.TransitionStatus(attempt.ID,
		entity.AttemptSubmitted, entity.AttemptGraded,
		map[string]interface{}{"score": result.Score})
	if err != nil {
		return nil, err
	}
	if !ok {
		// Другой оценщик закончил первым; его итог авторитетен
		graded, err := s.attemptRepo.GetByID(attempt.ID)
		if err != nil {
			return nil, err
		}
		return &FinishResult{Attempt: graded, MaxScore: result.MaxScore, Percentage: result.Percentage}, nil
	}

	attempt.Status = entity.AttemptGraded
	attempt.Score = &result.Score
	log.Printf("[AttemptService] Попытка %s оценена: %.1f из %d (%.2f%%)",
		attempt.ID, result.Score, result.MaxScore, result.Percentage)

	s.attachReport(ctx, attempt, result)

	return &FinishResult{Attempt: attempt, MaxScore: result.MaxScore, Percentage: result.Percentage}, nil
}

// attachReport запрашивает качественный отчет и сохраняет его на попытке.
// Отчет не влияет на числовой балл; сбой только логируется.
func (s *AttemptService) attachReport(ctx context.Context, attempt *entity.TestAttempt, result grading.AttemptResult) {
	if s.reports == nil || !s.reports.Enabled() {
		return
	}

	report, err := s.reports.BuildReport(ctx, attempt, result)
	if err != nil {
		log.Printf("[AttemptService] Отчет обратной связи для попытки %s не получен: %v", attempt.ID, err)
		return
	}
	if len(report) == 0 {
		return
	}

	ok, err := s.attemptRepo.TransitionStatus(attempt.ID,
		entity.AttemptGraded, entity.AttemptGraded,
		map[string]interface{}{"report": datatypes.JSON(report)})
	if err != nil || !ok {
		log.Printf("[AttemptService] Отчет для попытки %s не сохранен: %v", attempt.ID, err)
		return
	}
	attempt.Report = datatypes.JSON(report)
}

// testStructure возвращает структуру теста, кешируя ее в Redis
func (s *AttemptService) testStructure(testID string) (*entity.Test, error) {
	cacheKey := fmt.Sprintf("test:structure:%s", testID)

	var cached entity.Test
	if s.cacheRepo != nil {
		if err := s.cacheRepo.GetJSON(cacheKey, &cached); err == nil && cached.ID != "" {
			return &cached, nil
		}
	}

	test, err := s.testRepo.GetWithStructure(testID)
	if err != nil {
		return nil, err
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.SetJSON(cacheKey, test, testStructureCacheTTL); err != nil {
			log.Printf("[AttemptService] Кеширование структуры теста %s не удалось: %v", testID, err)
		}
	}
	return test, nil
}

// GetAttempt возвращает попытку ученика вместе с ответами
func (s *AttemptService) GetAttempt(subject, attemptID string) (*entity.TestAttempt, error) {
	user, err := s.userRepo.GetBySubject(subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	attempt, err := s.attemptRepo.GetByIDForUser(attemptID, user.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}

	full, err := s.attemptRepo.GetWithResponses(attempt.ID)
	if err != nil {
		return nil, err
	}
	return full, nil
}

// ListAttempts возвращает попытки ученика с пагинацией
func (s *AttemptService) ListAttempts(subject string, page, pageSize int) ([]entity.TestAttempt, int64, error) {
	user, err := s.userRepo.GetBySubject(subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, 0, ErrUserNotFound
		}
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}

	return s.attemptRepo.ListByUser(user.ID, pageSize, (page-1)*pageSize)
}
