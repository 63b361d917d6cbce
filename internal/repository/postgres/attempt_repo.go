package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/genasnewdar/lever-stg/internal/domain/entity"
	apperrors "github.com/genasnewdar/lever-stg/internal/pkg/errors"
)

// uniqueViolation код ошибки PostgreSQL для нарушения уникальности
const uniqueViolation = "23505"

// isUniqueViolation распознает нарушение уникального индекса.
// Драйвер gorm построен на pgx, поэтому ошибка приходит как *pgconn.PgError.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// AttemptRepo реализует repository.AttemptRepository
type AttemptRepo struct {
	db *gorm.DB
}

// NewAttemptRepo создает новый репозиторий попыток
func NewAttemptRepo(db *gorm.DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// Create создает попытку. Частичный уникальный индекс по (user_id, test_id)
// для нетерминальных статусов закрывает гонку двойного старта: из двух
// конкурентных вставок выживает одна, вторая получает ErrConflict.
func (r *AttemptRepo) Create(attempt *entity.TestAttempt) error {
	if err := r.db.Create(attempt).Error; err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return err
	}
	return nil
}

// GetByID возвращает попытку по id
func (r *AttemptRepo) GetByID(id string) (*entity.TestAttempt, error) {
	var attempt entity.TestAttempt
	err := r.db.First(&attempt, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// GetByIDForUser возвращает попытку, только если она принадлежит пользователю.
// Чужая попытка неотличима от несуществующей.
func (r *AttemptRepo) GetByIDForUser(id, userID string) (*entity.TestAttempt, error) {
	var attempt entity.TestAttempt
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// GetWithResponses возвращает попытку с ответами, вопросами ответов
// и вариантами вопросов - все, что нужно движку оценивания за один запрос
func (r *AttemptRepo) GetWithResponses(id string) (*entity.TestAttempt, error) {
	var attempt entity.TestAttempt
	err := r.db.
		Preload("Responses").
		Preload("Responses.Question").
		Preload("Responses.Question.Options").
		First(&attempt, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// TransitionStatus атомарно переводит попытку из from в to.
// UPDATE с условием по текущему статусу делает переход single-writer:
// конкурирующий вызов не находит строку в статусе from и получает false.
func (r *AttemptRepo) TransitionStatus(id string, from, to entity.AttemptStatus, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to

	result := r.db.Model(&entity.TestAttempt{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListByUser возвращает попытки пользователя с пагинацией (новые первыми)
func (r *AttemptRepo) ListByUser(userID string, limit, offset int) ([]entity.TestAttempt, int64, error) {
	var attempts []entity.TestAttempt
	var total int64

	err := r.db.Model(&entity.TestAttempt{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = r.db.Where("user_id = ?", userID).
		Preload("Test").
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&attempts).Error
	if err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

// ListByTest возвращает все попытки по тесту для выгрузки результатов
func (r *AttemptRepo) ListByTest(testID string) ([]entity.TestAttempt, error) {
	var attempts []entity.TestAttempt
	err := r.db.Where("test_id = ?", testID).
		Order("started_at ASC").
		Find(&attempts).Error
	return attempts, err
}
