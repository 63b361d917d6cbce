package repository

import (
	"github.com/genasnewdar/lever-stg/internal/domain/entity"
)

// TestRepository определяет методы для чтения тестов
type TestRepository interface {
	// GetActiveByID возвращает активный тест без вложенной структуры
	GetActiveByID(id string) (*entity.Test, error)

	// GetWithStructure возвращает тест с секциями, заданиями, вопросами
	// и вариантами ответов (оба размещения вопросов)
	GetWithStructure(id string) (*entity.Test, error)

	// List возвращает тесты с пагинацией и общее количество
	List(limit, offset int) ([]entity.Test, int64, error)
}

// QuestionRepository определяет методы для чтения вопросов
type QuestionRepository interface {
	// GetWithOptions возвращает вопрос вместе с вариантами ответов
	GetWithOptions(id string) (*entity.Question, error)
}
