package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/genasnewdar/lever-stg/internal/domain/entity"
	apperrors "github.com/genasnewdar/lever-stg/internal/pkg/errors"
)

// TestRepo реализует repository.TestRepository
type TestRepo struct {
	db *gorm.DB
}

// NewTestRepo создает новый репозиторий тестов
func NewTestRepo(db *gorm.DB) *TestRepo {
	return &TestRepo{db: db}
}

// GetActiveByID возвращает активный тест без вложенной структуры
func (r *TestRepo) GetActiveByID(id string) (*entity.Test, error) {
	var test entity.Test
	err := r.db.Where("id = ? AND is_active = ?", id, true).First(&test).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &test, nil
}

// GetWithStructure возвращает тест со всей структурой: секции, прямые
// вопросы секций, задания и вопросы заданий. Обход максимума баллов
// обязан видеть оба размещения вопросов, поэтому прелоады симметричны.
func (r *TestRepo) GetWithStructure(id string) (*entity.Test, error) {
	var test entity.Test
	err := r.db.
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("test_sections.position ASC")
		}).
		Preload("Sections.Questions.Options").
		Preload("Sections.Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Order("test_tasks.position ASC")
		}).
		Preload("Sections.Tasks.Questions.Options").
		First(&test, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &test, nil
}

// List возвращает тесты с пагинацией (новые первыми) и общее количество
func (r *TestRepo) List(limit, offset int) ([]entity.Test, int64, error) {
	var tests []entity.Test
	var total int64

	if err := r.db.Model(&entity.Test{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&tests).Error
	if err != nil {
		return nil, 0, err
	}

	return tests, total, nil
}

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo создает новый репозиторий вопросов
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// GetWithOptions возвращает вопрос вместе с вариантами ответов
func (r *QuestionRepo) GetWithOptions(id string) (*entity.Question, error) {
	var question entity.Question
	err := r.db.Preload("Options").First(&question, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &question, nil
}
