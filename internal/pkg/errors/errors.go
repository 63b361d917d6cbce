package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены,
	// в том числе когда ресурс принадлежит другому пользователю.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (неверный токен, нет прав).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния
	// (например, попытка начать тест при незавершенной попытке).
	ErrConflict = errors.New("resource state conflict")

	// ErrDependency используется, когда внешняя зависимость недоступна
	// после исчерпания всех повторов (планировщик дедлайнов).
	ErrDependency = errors.New("dependency failure")
)
