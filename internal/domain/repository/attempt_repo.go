package repository

import (
	"github.com/genasnewdar/lever-stg/internal/domain/entity"
)

// AttemptRepository определяет методы для работы с попытками прохождения тестов
type AttemptRepository interface {
	// Create создает попытку. Возвращает apperrors.ErrConflict, если для пары
	// (user, test) уже существует нетерминальная попытка: уникальность
	// гарантирует частичный индекс в БД, а не проверка перед вставкой.
	Create(attempt *entity.TestAttempt) error

	// GetByID возвращает попытку по id
	GetByID(id string) (*entity.TestAttempt, error)

	// GetByIDForUser возвращает попытку, только если она принадлежит пользователю
	GetByIDForUser(id, userID string) (*entity.TestAttempt, error)

	// GetWithResponses возвращает попытку с ответами, их вопросами и вариантами
	GetWithResponses(id string) (*entity.TestAttempt, error)

	// TransitionStatus атомарно переводит попытку из статуса from в статус to,
	// применяя дополнительные изменения полей. Возвращает false, если попытка
	// уже не в статусе from - второй конкурентный вызов видит это и не пишет.
	TransitionStatus(id string, from, to entity.AttemptStatus, updates map[string]interface{}) (bool, error)

	// ListByUser возвращает попытки пользователя с пагинацией (новые первыми)
	ListByUser(userID string, limit, offset int) ([]entity.TestAttempt, int64, error)

	// ListByTest возвращает все попытки по тесту (для выгрузки результатов)
	ListByTest(testID string) ([]entity.TestAttempt, error)
}

// ResponseRepository определяет методы для работы с ответами учеников
type ResponseRepository interface {
	// Upsert записывает ответ по ключу (attempt_id, question_id): существующая
	// строка перезаписывается, иначе создается новая. Безопасно при повторных
	// отправках и гонках батчевых и одиночных сабмитов.
	Upsert(response *entity.Response) error

	// GetByAttempt возвращает ответы попытки
	GetByAttempt(attemptID string) ([]entity.Response, error)

	// SaveGrade сохраняет результат оценивания одного ответа
	SaveGrade(responseID string, isCorrect *bool, pointsAwarded float64) error
}
