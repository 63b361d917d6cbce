package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/genasnewdar/lever-stg/internal/domain/entity"
	apperrors "github.com/genasnewdar/lever-stg/internal/pkg/errors"
)

// CourseRepo реализует repository.CourseRepository
type CourseRepo struct {
	db *gorm.DB
}

// NewCourseRepo создает новый репозиторий курсов
func NewCourseRepo(db *gorm.DB) *CourseRepo {
	return &CourseRepo{db: db}
}

// GetPublishedCourse возвращает опубликованный курс
func (r *CourseRepo) GetPublishedCourse(id string) (*entity.Course, error) {
	var course entity.Course
	err := r.db.Where("id = ? AND is_published = ?", id, true).First(&course).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &course, nil
}

// GetPublishedLesson возвращает опубликованный урок вместе с модулем и курсом.
// Урок неопубликованного курса неотличим от несуществующего.
func (r *CourseRepo) GetPublishedLesson(lessonID string) (*entity.Lesson, error) {
	var lesson entity.Lesson
	err := r.db.Where("id = ? AND is_published = ?", lessonID, true).
		Preload("Module").
		First(&lesson).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	if lesson.Module == nil {
		return nil, apperrors.ErrNotFound
	}

	var course entity.Course
	err = r.db.Where("id = ? AND is_published = ?", lesson.Module.CourseID, true).
		First(&course).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	return &lesson, nil
}

// CountPublishedLessons возвращает число опубликованных уроков модуля
func (r *CourseRepo) CountPublishedLessons(moduleID string) (int64, error) {
	var count int64
	err := r.db.Model(&entity.Lesson{}).
		Where("module_id = ? AND is_published = ?", moduleID, true).
		Count(&count).Error
	return count, err
}

// EnrollmentRepo реализует repository.EnrollmentRepository
type EnrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo создает новый репозиторий зачислений
func NewEnrollmentRepo(db *gorm.DB) *EnrollmentRepo {
	return &EnrollmentRepo{db: db}
}

// GetLearning возвращает зачисление в статусе ACTIVE или COMPLETED
func (r *EnrollmentRepo) GetLearning(userID, courseID string) (*entity.Enrollment, error) {
	var enrollment entity.Enrollment
	err := r.db.Where(
		"user_id = ? AND course_id = ? AND status IN ?",
		userID, courseID,
		[]entity.EnrollmentStatus{entity.EnrollmentActive, entity.EnrollmentCompleted},
	).First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &enrollment, nil
}

// SyncProgress переносит процент прохождения курса на зачисление.
// Достигнутые 100% переводят зачисление в COMPLETED.
func (r *EnrollmentRepo) SyncProgress(userID, courseID string, percentage float64) error {
	updates := map[string]interface{}{
		"progress_percentage": percentage,
	}
	if percentage == 100 {
		updates["status"] = entity.EnrollmentCompleted
	}
	return r.db.Model(&entity.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Updates(updates).Error
}

// TouchLastAccessed обновляет время последнего обращения к курсу
func (r *EnrollmentRepo) TouchLastAccessed(id string, at time.Time) error {
	return r.db.Model(&entity.Enrollment{}).
		Where("id = ?", id).
		Update("last_accessed_at", at).Error
}
