package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/genasnewdar/lever-stg/internal/domain/entity"
	apperrors "github.com/genasnewdar/lever-stg/internal/pkg/errors"
)

// UserRepo реализует repository.UserRepository
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo создает новый репозиторий пользователей
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetBySubject возвращает пользователя по subject из bearer-токена
func (r *UserRepo) GetBySubject(subject string) (*entity.User, error) {
	var user entity.User
	err := r.db.Where("subject = ?", subject).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByID возвращает пользователя по id
func (r *UserRepo) GetByID(id string) (*entity.User, error) {
	var user entity.User
	err := r.db.First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
