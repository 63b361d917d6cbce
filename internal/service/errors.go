package service

import (
	"fmt"

	apperrors "github.com/genasnewdar/lever-stg/internal/pkg/errors"
)

// Ошибки уровня сервисов. Каждая оборачивает базовую ошибку приложения,
// чтобы обработчики могли сводить незнакомые случаи к общему HTTP-коду,
// а знакомые - к точному машиночитаемому коду ответа.
var (
	ErrUserNotFound     = fmt.Errorf("%w: user", apperrors.ErrNotFound)
	ErrTestNotFound     = fmt.Errorf("%w: test", apperrors.ErrNotFound)
	ErrAttemptNotFound  = fmt.Errorf("%w: test attempt", apperrors.ErrNotFound)
	ErrQuestionNotFound = fmt.Errorf("%w: question", apperrors.ErrNotFound)
	ErrLessonNotFound   = fmt.Errorf("%w: lesson", apperrors.ErrNotFound)

	// ErrAlreadyInProgress - у пары (ученик, тест) уже есть незавершенная попытка
	ErrAlreadyInProgress = fmt.Errorf("%w: test already in progress", apperrors.ErrConflict)

	// ErrAttemptNotInProgress - операция требует статуса IN_PROGRESS
	ErrAttemptNotInProgress = fmt.Errorf("%w: attempt is not in progress", apperrors.ErrConflict)

	// ErrAttemptExpired - дедлайн попытки истек; сдача и завершение учеником
	// отклоняются независимо от того, пришел ли callback планировщика
	ErrAttemptExpired = fmt.Errorf("%w: attempt deadline has passed", apperrors.ErrConflict)

	// ErrQuestionTypeMismatch - форма ответа не соответствует типу вопроса
	ErrQuestionTypeMismatch = fmt.Errorf("%w: response payload does not match question type", apperrors.ErrValidation)

	// ErrOptionNotFound - выбранный вариант не принадлежит вопросу
	ErrOptionNotFound = fmt.Errorf("%w: option does not belong to question", apperrors.ErrValidation)

	// ErrEnrollmentRequired - у ученика нет действующего зачисления на курс
	ErrEnrollmentRequired = fmt.Errorf("%w: active enrollment required", apperrors.ErrForbidden)

	// ErrSchedulingFailed - не удалось запланировать дедлайн после всех
	// повторов; попытка отменена, старт теста не состоялся
	ErrSchedulingFailed = fmt.Errorf("%w: deadline scheduling failed", apperrors.ErrDependency)
)
