// Package grading реализует автоматическое оценивание попыток теста:
// вопросы с выбором варианта, вопросы на сопоставление с частичным зачетом
// и подсчет итогового балла попытки.
package grading

import (
	"strconv"

	"github.com/genasnewdar/lever-stg/internal/domain/entity"
)

// MatchingResult - итог оценивания одного вопроса на сопоставление
type MatchingResult struct {
	// Correct количество правильно сопоставленных пар
	Correct int
	// Total длина левого списка. Знаменатель частичного зачета - всегда
	// полный размер вопроса, даже если словарь правильных ответов разрежен.
	Total int
	// Points начисленные баллы: по одному за каждую правильную пару
	Points float64
	// IsCorrect true только при полном совпадении всех пар
	IsCorrect bool
}

// GradeMatching оценивает ответ ученика на вопрос на сопоставление.
//
// Правильные ответы хранятся под синтетическими ключами "k{i}" (i - индекс
// элемента левого списка), значениями служат индексы правого списка.
// Ответ ученика - словарь "текст левого элемента -> текст правого элемента".
// Пара засчитывается при точном строковом совпадении выбранного учеником
// текста с правой частью, на которую указывает правильный ответ.
//
// Отсутствующие или нечитаемые записи словаря правильных ответов
// пропускаются: такие пары ученик засчитать не может.
func GradeMatching(question *entity.Question, studentMapping map[string]string) MatchingResult {
	left := question.MatchingItems.Left
	right := question.MatchingItems.Right

	result := MatchingResult{Total: len(left)}
	if result.Total == 0 {
		return result
	}

	for i, leftItem := range left {
		correctIdx, ok := question.CorrectMapping[entity.MatchingKey(i)]
		if !ok {
			continue
		}
		rightIdx, err := strconv.Atoi(correctIdx)
		if err != nil || rightIdx < 0 || rightIdx >= len(right) {
			continue
		}

		studentAnswer, ok := studentMapping[leftItem]
		if !ok {
			continue
		}
		if studentAnswer == right[rightIdx] {
			result.Correct++
		}
	}

	result.Points = float64(result.Correct)
	result.IsCorrect = result.Correct == result.Total
	return result
}
