package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionType_IsAutoGradable(t *testing.T) {
	// Act & Assert
	assert.True(t, QuestionTypeMultipleChoice.IsAutoGradable(), "MULTIPLE_CHOICE оценивается автоматически")
	assert.True(t, QuestionTypeMatching.IsAutoGradable(), "MATCHING оценивается автоматически")
	assert.False(t, QuestionTypeNumericAnswer.IsAutoGradable(), "NUMERIC_ANSWER оценивается вручную")
	assert.False(t, QuestionTypeShortAnswer.IsAutoGradable(), "SHORT_ANSWER оценивается вручную")
	assert.False(t, QuestionTypeEssay.IsAutoGradable(), "ESSAY оценивается вручную")
}

func TestMatchingKey(t *testing.T) {
	assert.Equal(t, "k0", MatchingKey(0))
	assert.Equal(t, "k1", MatchingKey(1))
	assert.Equal(t, "k42", MatchingKey(42))
}

func TestQuestion_CorrectOptionID(t *testing.T) {
	// Arrange
	question := &Question{
		Type: QuestionTypeMultipleChoice,
		Options: []Option{
			{ID: "opt-a", Text: "Неправильный"},
			{ID: "opt-b", Text: "Правильный", IsCorrect: true},
			{ID: "opt-c", Text: "Тоже неправильный"},
		},
	}

	// Act
	optionID, ok := question.CorrectOptionID()

	// Assert
	assert.True(t, ok)
	assert.Equal(t, "opt-b", optionID)
}

func TestQuestion_CorrectOptionID_NoCorrectOption(t *testing.T) {
	// Arrange: ни один вариант не помечен правильным
	question := &Question{
		Type: QuestionTypeMultipleChoice,
		Options: []Option{
			{ID: "opt-a"},
			{ID: "opt-b"},
		},
	}

	// Act
	optionID, ok := question.CorrectOptionID()

	// Assert
	assert.False(t, ok, "Вопрос без правильного варианта не должен иметь CorrectOptionID")
	assert.Empty(t, optionID)
}

func TestQuestion_HasOption(t *testing.T) {
	// Arrange
	question := &Question{
		Options: []Option{
			{ID: "opt-a"},
			{ID: "opt-b"},
		},
	}

	// Act & Assert
	assert.True(t, question.HasOption("opt-a"))
	assert.True(t, question.HasOption("opt-b"))
	assert.False(t, question.HasOption("opt-foreign"), "Чужой вариант не принадлежит вопросу")
	assert.False(t, question.HasOption(""))
}

func TestQuestion_TableName(t *testing.T) {
	question := Question{}
	assert.Equal(t, "questions", question.TableName(), "TableName должен возвращать 'questions'")
}

// Тесты для MatchingItems (JSONB сериализация)

func TestMatchingItems_Scan_ValidJSON(t *testing.T) {
	// Arrange
	jsonBytes := []byte(`{"left":["один","два"],"right":["two","one"]}`)
	var items MatchingItems

	// Act
	err := items.Scan(jsonBytes)

	// Assert
	require.NoError(t, err, "Scan не должен возвращать ошибку для валидного JSON")
	assert.Equal(t, []string{"один", "два"}, items.Left)
	assert.Equal(t, []string{"two", "one"}, items.Right)
}

func TestMatchingItems_Scan_Nil(t *testing.T) {
	// Arrange
	var items MatchingItems

	// Act
	err := items.Scan(nil)

	// Assert
	require.NoError(t, err)
	assert.Empty(t, items.Left)
	assert.Empty(t, items.Right)
}

func TestMatchingItems_Scan_InvalidType(t *testing.T) {
	// Arrange
	var items MatchingItems

	// Act
	err := items.Scan(12345)

	// Assert
	assert.Error(t, err, "Scan должен вернуть ошибку для не-[]byte значения")
}

func TestMatchingItems_Value(t *testing.T) {
	// Arrange
	items := MatchingItems{
		Left:  []string{"столица Франции"},
		Right: []string{"Париж"},
	}

	// Act
	value, err := items.Value()

	// Assert
	require.NoError(t, err)
	assert.JSONEq(t, `{"left":["столица Франции"],"right":["Париж"]}`, string(value.([]byte)))
}

func TestMatchingItems_Value_Empty(t *testing.T) {
	// Arrange
	items := MatchingItems{}

	// Act
	value, err := items.Value()

	// Assert: пустые данные хранятся как NULL
	require.NoError(t, err)
	assert.Nil(t, value)
}

// Тесты для StringMap (JSONB сериализация)

func TestStringMap_Scan_ValidJSON(t *testing.T) {
	// Arrange
	jsonBytes := []byte(`{"k0":"1","k1":"0"}`)
	var mapping StringMap

	// Act
	err := mapping.Scan(jsonBytes)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StringMap{"k0": "1", "k1": "0"}, mapping)
}

func TestStringMap_Scan_Nil(t *testing.T) {
	// Arrange
	var mapping StringMap

	// Act
	err := mapping.Scan(nil)

	// Assert
	require.NoError(t, err)
	assert.Empty(t, mapping)
}

func TestStringMap_Value_Empty(t *testing.T) {
	// Arrange
	mapping := StringMap{}

	// Act
	value, err := mapping.Value()

	// Assert
	require.NoError(t, err)
	assert.Nil(t, value)
}
