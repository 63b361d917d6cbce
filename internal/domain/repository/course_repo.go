package repository

import (
	"time"

	"github.com/genasnewdar/lever-stg/internal/domain/entity"
)

// CourseRepository определяет методы для чтения курсов и уроков
type CourseRepository interface {
	// GetPublishedCourse возвращает опубликованный курс
	GetPublishedCourse(id string) (*entity.Course, error)

	// GetPublishedLesson возвращает опубликованный урок вместе с модулем
	// и курсом (курс тоже должен быть опубликован)
	GetPublishedLesson(lessonID string) (*entity.Lesson, error)

	// CountPublishedLessons возвращает число опубликованных уроков модуля.
	// Это знаменатель процента прохождения модуля.
	CountPublishedLessons(moduleID string) (int64, error)
}

// EnrollmentRepository определяет методы для работы с зачислениями
type EnrollmentRepository interface {
	// GetLearning возвращает зачисление в статусе ACTIVE или COMPLETED
	GetLearning(userID, courseID string) (*entity.Enrollment, error)

	// SyncProgress переносит процент прохождения курса на зачисление
	// и при 100% переводит его в статус COMPLETED
	SyncProgress(userID, courseID string, percentage float64) error

	// TouchLastAccessed обновляет время последнего обращения к курсу
	TouchLastAccessed(id string, at time.Time) error
}

// ProgressRepository определяет методы для работы с иерархией прогресса
type ProgressRepository interface {
	// GetOrCreateCourseProgress лениво создает запись прогресса курса
	GetOrCreateCourseProgress(userID, courseID string) (*entity.CourseProgress, error)

	// GetOrCreateModuleProgress лениво создает запись прогресса модуля
	GetOrCreateModuleProgress(courseProgressID, moduleID string) (*entity.ModuleProgress, error)

	// UpsertLessonProgress записывает прогресс урока по ключу
	// (module_progress_id, lesson_id)
	UpsertLessonProgress(progress *entity.LessonProgress) (*entity.LessonProgress, error)

	// LessonProgressByModule возвращает все записи прогресса уроков модуля
	LessonProgressByModule(moduleProgressID string) ([]entity.LessonProgress, error)

	// ModuleProgressByCourse возвращает все записи прогресса модулей курса
	ModuleProgressByCourse(courseProgressID string) ([]entity.ModuleProgress, error)

	// UpdateModuleProgress сохраняет пересчитанные поля прогресса модуля
	UpdateModuleProgress(id string, updates map[string]interface{}) error

	// UpdateCourseProgress сохраняет пересчитанные поля прогресса курса
	UpdateCourseProgress(id string, updates map[string]interface{}) error

	// GetCourseProgress возвращает прогресс курса с вложенными уровнями
	GetCourseProgress(userID, courseID string) (*entity.CourseProgress, error)

	// ListAllCourseProgress возвращает все записи прогресса курсов
	// (для служебного пересчета)
	ListAllCourseProgress() ([]entity.CourseProgress, error)
}
