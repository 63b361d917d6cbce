package repository

import (
	"github.com/genasnewdar/lever-stg/internal/domain/entity"
)

// UserRepository определяет методы для чтения пользователей.
// Записью управляет внешний сервис идентификации.
type UserRepository interface {
	GetBySubject(subject string) (*entity.User, error)
	GetByID(id string) (*entity.User, error)
}
