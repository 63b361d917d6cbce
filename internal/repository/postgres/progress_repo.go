package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/genasnewdar/lever-stg/internal/domain/entity"
	apperrors "github.com/genasnewdar/lever-stg/internal/pkg/errors"
)

// ProgressRepo реализует repository.ProgressRepository
type ProgressRepo struct {
	db *gorm.DB
}

// NewProgressRepo создает новый репозиторий прогресса
func NewProgressRepo(db *gorm.DB) *ProgressRepo {
	return &ProgressRepo{db: db}
}

// GetOrCreateCourseProgress лениво создает запись прогресса курса.
// Уникальный индекс (user_id, course_id) страхует гонку двух первых событий.
func (r *ProgressRepo) GetOrCreateCourseProgress(userID, courseID string) (*entity.CourseProgress, error) {
	var progress entity.CourseProgress
	err := r.db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&progress).Error
	if err == nil {
		return &progress, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	progress = entity.CourseProgress{
		UserID:         userID,
		CourseID:       courseID,
		LastAccessedAt: time.Now().UTC(),
	}
	if err := r.db.Create(&progress).Error; err != nil {
		if isUniqueViolation(err) {
			// Конкурент успел первым - читаем его запись
			var existing entity.CourseProgress
			if err := r.db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&existing).Error; err != nil {
				return nil, err
			}
			return &existing, nil
		}
		return nil, err
	}
	return &progress, nil
}

// GetOrCreateModuleProgress лениво создает запись прогресса модуля
func (r *ProgressRepo) GetOrCreateModuleProgress(courseProgressID, moduleID string) (*entity.ModuleProgress, error) {
	var progress entity.ModuleProgress
	err := r.db.Where("course_progress_id = ? AND module_id = ?", courseProgressID, moduleID).First(&progress).Error
	if err == nil {
		return &progress, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	progress = entity.ModuleProgress{
		CourseProgressID: courseProgressID,
		ModuleID:         moduleID,
	}
	if err := r.db.Create(&progress).Error; err != nil {
		if isUniqueViolation(err) {
			var existing entity.ModuleProgress
			if err := r.db.Where("course_progress_id = ? AND module_id = ?", courseProgressID, moduleID).First(&existing).Error; err != nil {
				return nil, err
			}
			return &existing, nil
		}
		return nil, err
	}
	return &progress, nil
}

// UpsertLessonProgress записывает прогресс урока по ключу
// (module_progress_id, lesson_id)
func (r *ProgressRepo) UpsertLessonProgress(progress *entity.LessonProgress) (*entity.LessonProgress, error) {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "module_progress_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"is_completed",
			"completed_at",
			"time_spent",
			"watch_time",
			"updated_at",
		}),
	}).Create(progress).Error
	if err != nil {
		return nil, err
	}

	// Перечитываем строку: при конфликте Create не возвращает id существующей
	var saved entity.LessonProgress
	err = r.db.Where("module_progress_id = ? AND lesson_id = ?", progress.ModuleProgressID, progress.LessonID).
		First(&saved).Error
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// LessonProgressByModule возвращает все записи прогресса уроков модуля
func (r *ProgressRepo) LessonProgressByModule(moduleProgressID string) ([]entity.LessonProgress, error) {
	var progresses []entity.LessonProgress
	err := r.db.Where("module_progress_id = ?", moduleProgressID).Find(&progresses).Error
	return progresses, err
}

// ModuleProgressByCourse возвращает все записи прогресса модулей курса
func (r *ProgressRepo) ModuleProgressByCourse(courseProgressID string) ([]entity.ModuleProgress, error) {
	var progresses []entity.ModuleProgress
	err := r.db.Where("course_progress_id = ?", courseProgressID).Find(&progresses).Error
	return progresses, err
}

// UpdateModuleProgress сохраняет пересчитанные поля прогресса модуля
func (r *ProgressRepo) UpdateModuleProgress(id string, updates map[string]interface{}) error {
	return r.db.Model(&entity.ModuleProgress{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateCourseProgress сохраняет пересчитанные поля прогресса курса
func (r *ProgressRepo) UpdateCourseProgress(id string, updates map[string]interface{}) error {
	return r.db.Model(&entity.CourseProgress{}).Where("id = ?", id).Updates(updates).Error
}

// GetCourseProgress возвращает прогресс курса с вложенными уровнями
func (r *ProgressRepo) GetCourseProgress(userID, courseID string) (*entity.CourseProgress, error) {
	var progress entity.CourseProgress
	err := r.db.Where("user_id = ? AND course_id = ?", userID, courseID).
		Preload("ModuleProgress").
		Preload("ModuleProgress.LessonProgress").
		First(&progress).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &progress, nil
}

// ListAllCourseProgress возвращает все записи прогресса курсов
func (r *ProgressRepo) ListAllCourseProgress() ([]entity.CourseProgress, error) {
	var progresses []entity.CourseProgress
	err := r.db.Find(&progresses).Error
	return progresses, err
}
