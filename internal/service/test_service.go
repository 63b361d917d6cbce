package service

import (
	"errors"

	"github.com/genasnewdar/lever-stg/internal/domain/entity"
	"github.com/genasnewdar/lever-stg/internal/domain/repository"
	apperrors "github.com/genasnewdar/lever-stg/internal/pkg/errors"
)

// TestService предоставляет чтение тестов ученикам.
// Авторинг тестов - внешняя подсистема, здесь только безопасная выдача:
// ключи правильных ответов в клиентский JSON не попадают никогда
// (поля помечены json:"-" на уровне сущностей).
type TestService struct {
	testRepo repository.TestRepository
}

// NewTestService создает сервис тестов
func NewTestService(testRepo repository.TestRepository) *TestService {
	return &TestService{testRepo: testRepo}
}

// List возвращает тесты с пагинацией
func (s *TestService) List(page, pageSize int) ([]entity.Test, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return s.testRepo.List(pageSize, (page-1)*pageSize)
}

// GetWithStructure возвращает тест с полной структурой для прохождения
func (s *TestService) GetWithStructure(id string) (*entity.Test, error) {
	test, err := s.testRepo.GetWithStructure(id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrTestNotFound
		}
		return nil, err
	}
	return test, nil
}
