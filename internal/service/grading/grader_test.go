package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/genasnewdar/lever-stg/internal/domain/entity"
)

func strPtr(s string) *string { return &s }

// gradingTest строит тест с вопросами в обоих размещениях:
// прямой вопрос секции (3 балла), вопрос задания (2 балла)
// и вопрос на сопоставление во второй секции (5 баллов).
func gradingTest() *entity.Test {
	return &entity.Test{
		ID:       "test-1",
		Duration: 40,
		Sections: []entity.TestSection{
			{
				ID: "sec-1",
				Questions: []entity.Question{
					{
						ID:     "q1",
						Type:   entity.QuestionTypeMultipleChoice,
						Points: 3,
						Options: []entity.Option{
							{ID: "opt-a", Text: "A"},
							{ID: "opt-b", Text: "B", IsCorrect: true},
						},
					},
				},
				Tasks: []entity.TestTask{
					{
						ID: "task-1",
						Questions: []entity.Question{
							{
								ID:     "q2",
								Type:   entity.QuestionTypeMultipleChoice,
								Points: 2,
								Options: []entity.Option{
									{ID: "opt-c", Text: "C", IsCorrect: true},
									{ID: "opt-d", Text: "D"},
								},
							},
						},
					},
				},
			},
			{
				ID: "sec-2",
				Questions: []entity.Question{
					{
						ID:     "q3",
						Type:   entity.QuestionTypeMatching,
						Points: 5,
						MatchingItems: entity.MatchingItems{
							Left:  []string{"один", "два"},
							Right: []string{"two", "one"},
						},
						CorrectMapping: entity.StringMap{"k0": "1", "k1": "0"},
					},
				},
			},
		},
	}
}

func TestMaxScore_CountsBothQuestionPlacements(t *testing.T) {
	test := gradingTest()

	// 3 (секция) + 2 (задание) + 5 (сопоставление) = 10
	assert.Equal(t, 10, test.MaxScore())
}

func TestGradeAttempt_FullScore(t *testing.T) {
	test := gradingTest()
	responses := []entity.Response{
		{ID: "r1", QuestionID: "q1", SelectedOptionID: strPtr("opt-b")},
		{ID: "r2", QuestionID: "q2", SelectedOptionID: strPtr("opt-c")},
		{ID: "r3", QuestionID: "q3", AdditionalData: datatypes.JSON(`{"один":"one","два":"two"}`)},
	}

	result := GradeAttempt(test, responses)

	assert.Equal(t, 10.0, result.Score)
	assert.Equal(t, 10, result.MaxScore)
	assert.Equal(t, 100.0, result.Percentage)
	require.Len(t, result.Responses, 3)
	for _, graded := range result.Responses {
		require.NotNil(t, graded.IsCorrect)
		assert.True(t, *graded.IsCorrect)
	}
}

func TestGradeAttempt_PartialMatchingCountsInTotal(t *testing.T) {
	test := gradingTest()
	responses := []entity.Response{
		{ID: "r1", QuestionID: "q1", SelectedOptionID: strPtr("opt-a")}, // неправильный вариант
		{ID: "r3", QuestionID: "q3", AdditionalData: datatypes.JSON(`{"один":"one","два":"one"}`)},
	}

	result := GradeAttempt(test, responses)

	// Частичный зачет сопоставления попадает в сумму,
	// хотя is_correct ответа - false
	assert.Equal(t, 1.0, result.Score)
	assert.Equal(t, 10.0, result.Percentage)
}

func TestGradeAttempt_WrongMultipleChoiceZeroPoints(t *testing.T) {
	test := gradingTest()
	responses := []entity.Response{
		{ID: "r1", QuestionID: "q1", SelectedOptionID: strPtr("opt-a")},
	}

	result := GradeAttempt(test, responses)

	require.Len(t, result.Responses, 1)
	require.NotNil(t, result.Responses[0].IsCorrect)
	assert.False(t, *result.Responses[0].IsCorrect)
	assert.Equal(t, 0.0, result.Score)
}

func TestGradeAttempt_NoSelectedOptionIsIncorrect(t *testing.T) {
	test := gradingTest()
	responses := []entity.Response{
		{ID: "r1", QuestionID: "q1"},
	}

	result := GradeAttempt(test, responses)

	require.NotNil(t, result.Responses[0].IsCorrect)
	assert.False(t, *result.Responses[0].IsCorrect)
}

func TestGradeAttempt_QuestionWithoutCorrectOption(t *testing.T) {
	test := gradingTest()
	test.Sections[0].Questions[0].Options = []entity.Option{
		{ID: "opt-a", Text: "A"},
		{ID: "opt-b", Text: "B"},
	}
	responses := []entity.Response{
		{ID: "r1", QuestionID: "q1", SelectedOptionID: strPtr("opt-a")},
	}

	result := GradeAttempt(test, responses)

	require.NotNil(t, result.Responses[0].IsCorrect)
	assert.False(t, *result.Responses[0].IsCorrect)
	assert.Equal(t, 0.0, result.Score)
}

func TestGradeAttempt_ManualTypesStayUngraded(t *testing.T) {
	test := gradingTest()
	test.Sections[0].Questions = append(test.Sections[0].Questions, entity.Question{
		ID:     "q-essay",
		Type:   entity.QuestionTypeEssay,
		Points: 7,
	})
	responses := []entity.Response{
		{ID: "r-essay", QuestionID: "q-essay", AdditionalData: datatypes.JSON(`{"text":"сочинение"}`)},
	}

	result := GradeAttempt(test, responses)

	require.Len(t, result.Responses, 1)
	assert.Nil(t, result.Responses[0].IsCorrect)
	assert.Equal(t, 0.0, result.Responses[0].PointsAwarded)
	// Неоцениваемый вопрос все равно входит в максимум
	assert.Equal(t, 17, result.MaxScore)
}

func TestGradeAttempt_MalformedMatchingPayloadDegradesToZero(t *testing.T) {
	test := gradingTest()
	responses := []entity.Response{
		{ID: "r3", QuestionID: "q3", AdditionalData: datatypes.JSON(`"not an object"`)},
		{ID: "r1", QuestionID: "q1", SelectedOptionID: strPtr("opt-b")},
	}

	result := GradeAttempt(test, responses)

	// Битый payload не роняет оценивание остальных ответов
	assert.Equal(t, 3.0, result.Score)
	require.Len(t, result.Responses, 2)
	assert.Nil(t, result.Responses[0].IsCorrect)
	assert.Equal(t, 0.0, result.Responses[0].PointsAwarded)
}

func TestGradeAttempt_ZeroMaxScore(t *testing.T) {
	test := &entity.Test{ID: "empty"}

	result := GradeAttempt(test, nil)

	assert.Equal(t, 0, result.MaxScore)
	assert.Equal(t, 0.0, result.Percentage)
}

func TestRound1_BinaryRepresentationHazard(t *testing.T) {
	// (66.7+100)/2 = 83.34999... в double; округление обязано дать 83.4
	assert.Equal(t, 83.4, Round1((66.7+100)/2))
	assert.Equal(t, 66.7, Round1(200.0/3))
	assert.Equal(t, 0.0, Round1(0))
	assert.Equal(t, 100.0, Round1(100))
}

func TestRound2_Percentage(t *testing.T) {
	assert.Equal(t, 33.33, Round2(100.0/3))
	assert.Equal(t, 66.67, Round2(200.0/3))
}
