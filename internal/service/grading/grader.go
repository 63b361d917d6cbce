package grading

import (
	"log"
	"math"

	"github.com/genasnewdar/lever-stg/internal/domain/entity"
)

// GradedResponse - результат оценивания одного ответа
type GradedResponse struct {
	ResponseID string
	QuestionID string
	// IsCorrect nil для типов вопросов, которые движок не оценивает
	IsCorrect     *bool
	PointsAwarded float64
}

// AttemptResult - итог оценивания попытки
type AttemptResult struct {
	Responses []GradedResponse
	// Score сумма начисленных баллов по всем ответам,
	// включая частичный зачет вопросов на сопоставление
	Score float64
	// MaxScore максимально возможный балл теста (вопросы секций и заданий)
	MaxScore int
	// Percentage = round2(100 * Score / MaxScore); 0 при MaxScore == 0
	Percentage float64
}

// GradeAttempt оценивает все ответы попытки по структуре теста.
//
// Оцениваются только вопросы с выбором варианта и на сопоставление;
// остальные типы остаются неоцененными с нулем баллов. Испорченный ответ
// (битый payload, ссылка на чужой вариант) деградирует до неоцененного
// нуля, а не роняет оценивание всей попытки.
func GradeAttempt(test *entity.Test, responses []entity.Response) AttemptResult {
	questions := make(map[string]*entity.Question)
	for _, q := range test.AllQuestions() {
		q := q
		questions[q.ID] = &q
	}

	result := AttemptResult{
		Responses: make([]GradedResponse, 0, len(responses)),
		MaxScore:  test.MaxScore(),
	}

	for _, response := range responses {
		question, ok := questions[response.QuestionID]
		if !ok {
			// Ответ на вопрос вне структуры теста: не оцениваем
			log.Printf("[Grading] Ответ %s ссылается на вопрос %s вне теста %s",
				response.ID, response.QuestionID, test.ID)
			result.Responses = append(result.Responses, GradedResponse{
				ResponseID: response.ID,
				QuestionID: response.QuestionID,
			})
			continue
		}

		graded := gradeResponse(question, &response)
		result.Responses = append(result.Responses, graded)
		result.Score += graded.PointsAwarded
	}

	if result.MaxScore > 0 {
		result.Percentage = Round2(100 * result.Score / float64(result.MaxScore))
	}
	return result
}

// gradeResponse оценивает один ответ в зависимости от типа вопроса
func gradeResponse(question *entity.Question, response *entity.Response) GradedResponse {
	graded := GradedResponse{
		ResponseID: response.ID,
		QuestionID: response.QuestionID,
	}

	switch question.Type {
	case entity.QuestionTypeMultipleChoice:
		correct := gradeMultipleChoice(question, response)
		graded.IsCorrect = &correct
		if correct {
			graded.PointsAwarded = float64(question.Points)
		}

	case entity.QuestionTypeMatching:
		mapping, err := response.StudentMapping()
		if err != nil {
			// Битый payload: ноль без пометки правильности
			log.Printf("[Grading] Нечитаемый ответ на сопоставление %s: %v", response.ID, err)
			return graded
		}
		matchResult := GradeMatching(question, mapping)
		graded.IsCorrect = &matchResult.IsCorrect
		graded.PointsAwarded = matchResult.Points

	default:
		// NUMERIC_ANSWER, SHORT_ANSWER, ESSAY оцениваются вручную
	}

	return graded
}

// gradeMultipleChoice проверяет ответ на вопрос с выбором варианта.
// Вопрос без помеченного правильным варианта всегда неправильный.
func gradeMultipleChoice(question *entity.Question, response *entity.Response) bool {
	if response.SelectedOptionID == nil {
		return false
	}
	correctID, ok := question.CorrectOptionID()
	if !ok {
		return false
	}
	return *response.SelectedOptionID == correctID
}

// Round1 округляет до одного знака (half-up). Сдвиг на эпсилон гасит
// двоичную погрешность: среднее 66.7 и 100 обязано давать 83.4, а не 83.3.
func Round1(v float64) float64 {
	return math.Round(v*10+1e-9) / 10
}

// Round2 округляет до двух знаков (half-up)
func Round2(v float64) float64 {
	return math.Round(v*100+1e-9) / 100
}
