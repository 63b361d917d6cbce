package postgres

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/genasnewdar/lever-stg/internal/domain/entity"
)

// ResponseRepo реализует repository.ResponseRepository
type ResponseRepo struct {
	db *gorm.DB
}

// NewResponseRepo создает новый репозиторий ответов
func NewResponseRepo(db *gorm.DB) *ResponseRepo {
	return &ResponseRepo{db: db}
}

// Upsert записывает ответ по ключу (attempt_id, question_id).
// INSERT ... ON CONFLICT делает операцию безопасной при гонке батчевой
// и одиночной отправки одного и того же вопроса: побеждает последняя запись.
// Поля оценивания конфликтом не трогаются - их пишет только движок
// оценивания, и ровно один раз.
func (r *ResponseRepo) Upsert(response *entity.Response) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"selected_option_id",
			"additional_data",
			"updated_at",
		}),
	}).Create(response).Error
	if err != nil {
		return err
	}

	// Перечитываем строку: при конфликте Create не возвращает id существующей
	var saved entity.Response
	err = r.db.Where("attempt_id = ? AND question_id = ?", response.AttemptID, response.QuestionID).
		First(&saved).Error
	if err != nil {
		return err
	}
	*response = saved
	return nil
}

// GetByAttempt возвращает ответы попытки
func (r *ResponseRepo) GetByAttempt(attemptID string) ([]entity.Response, error) {
	var responses []entity.Response
	err := r.db.Where("attempt_id = ?", attemptID).
		Order("created_at ASC").
		Find(&responses).Error
	return responses, err
}

// SaveGrade сохраняет результат оценивания одного ответа
func (r *ResponseRepo) SaveGrade(responseID string, isCorrect *bool, pointsAwarded float64) error {
	return r.db.Model(&entity.Response{}).
		Where("id = ?", responseID).
		Updates(map[string]interface{}{
			"is_correct":     isCorrect,
			"points_awarded": pointsAwarded,
		}).Error
}
