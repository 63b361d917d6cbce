package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/genasnewdar/lever-stg/internal/domain/entity"
	"github.com/genasnewdar/lever-stg/internal/domain/repository"
	apperrors "github.com/genasnewdar/lever-stg/internal/pkg/errors"
	"github.com/genasnewdar/lever-stg/internal/service/grading"
)

// CourseAggregationMean - стратегия агрегации процента курса:
// невзвешенное среднее процентов модулей. Модуль из одного урока весит
// столько же, сколько модуль из двадцати. Другие стратегии (взвешивание
// по числу уроков) сюда подключаются тем же именованным способом.
const CourseAggregationMean = "MEAN_OF_MODULES"

// CompletionNotifier уведомляет ученика о полном прохождении курса
type CompletionNotifier interface {
	NotifyCourseCompleted(ctx context.Context, user *entity.User, course *entity.Course) error
	Enabled() bool
}

// ProgressService ведет трехуровневый прогресс обучения.
//
// Каждая запись прогресса урока запускает полный перескан вверх:
// сначала пересчитывается модуль по всем его урокам, затем курс по всем
// его модулям. Перескан дороже инкрементального счетчика, но не накапливает
// дрейф и самовосстанавливается после любой частичной записи.
type ProgressService struct {
	userRepo     repository.UserRepository
	courseRepo   repository.CourseRepository
	enrollRepo   repository.EnrollmentRepository
	progressRepo repository.ProgressRepository
	notifier     CompletionNotifier
}

// NewProgressService создает сервис прогресса
func NewProgressService(
	userRepo repository.UserRepository,
	courseRepo repository.CourseRepository,
	enrollRepo repository.EnrollmentRepository,
	progressRepo repository.ProgressRepository,
	notifier CompletionNotifier,
) *ProgressService {
	return &ProgressService{
		userRepo:     userRepo,
		courseRepo:   courseRepo,
		enrollRepo:   enrollRepo,
		progressRepo: progressRepo,
		notifier:     notifier,
	}
}

// LessonProgressInput - событие прогресса по уроку. Значения - накопленные
// клиентом итоги, они замещают сохраненные.
type LessonProgressInput struct {
	IsCompleted bool
	// TimeSpent - суммарное время по уроку (в секундах)
	TimeSpent int
	// WatchTime - суммарное время просмотра видео (в секундах)
	WatchTime int
}

// RecordLessonProgress записывает прогресс по уроку и пересчитывает
// проценты модуля и курса. Требует действующего зачисления на курс урока.
func (s *ProgressService) RecordLessonProgress(ctx context.Context, subject, lessonID string, input LessonProgressInput) (*entity.CourseProgress, error) {
	user, err := s.userRepo.GetBySubject(subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	lesson, err := s.courseRepo.GetPublishedLesson(lessonID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrLessonNotFound
		}
		return nil, err
	}
	courseID := lesson.Module.CourseID

	enrollment, err := s.enrollRepo.GetLearning(user.ID, courseID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrEnrollmentRequired
		}
		return nil, err
	}

	courseProgress, err := s.progressRepo.GetOrCreateCourseProgress(user.ID, courseID)
	if err != nil {
		return nil, err
	}
	moduleProgress, err := s.progressRepo.GetOrCreateModuleProgress(courseProgress.ID, lesson.ModuleID)
	if err != nil {
		return nil, err
	}

	if err := s.writeLessonProgress(moduleProgress.ID, lessonID, input); err != nil {
		return nil, err
	}

	if err := s.recomputeModule(moduleProgress); err != nil {
		return nil, err
	}

	updated, err := s.recomputeCourse(ctx, user, courseProgress)
	if err != nil {
		return nil, err
	}

	if err := s.enrollRepo.TouchLastAccessed(enrollment.ID, time.Now()); err != nil {
		log.Printf("[ProgressService] Не удалось обновить last_accessed_at зачисления %s: %v", enrollment.ID, err)
	}

	return updated, nil
}

// writeLessonProgress записывает состояние прогресса урока из события.
// Клиент присылает накопленные итоги, поэтому время и флаг завершения
// замещаются, а не суммируются; снять пометку завершения тоже можно.
func (s *ProgressService) writeLessonProgress(moduleProgressID, lessonID string, input LessonProgressInput) error {
	existing, err := s.progressRepo.LessonProgressByModule(moduleProgressID)
	if err != nil {
		return err
	}

	progress := entity.LessonProgress{
		ModuleProgressID: moduleProgressID,
		LessonID:         lessonID,
		IsCompleted:      input.IsCompleted,
		TimeSpent:        input.TimeSpent,
		WatchTime:        input.WatchTime,
	}

	if input.IsCompleted {
		now := time.Now()
		progress.CompletedAt = &now
	} else {
		// Отметка времени завершения при снятии пометки не стирается
		for _, row := range existing {
			if row.LessonID == lessonID {
				progress.CompletedAt = row.CompletedAt
				break
			}
		}
	}

	_, err = s.progressRepo.UpsertLessonProgress(&progress)
	return err
}

// recomputeModule пересчитывает процент, время и флаг завершения модуля
// по всем записям прогресса его уроков
func (s *ProgressService) recomputeModule(moduleProgress *entity.ModuleProgress) error {
	totalLessons, err := s.courseRepo.CountPublishedLessons(moduleProgress.ModuleID)
	if err != nil {
		return err
	}
	if totalLessons == 0 {
		// Модуль без уроков не пересчитывается
		return nil
	}

	rows, err := s.progressRepo.LessonProgressByModule(moduleProgress.ID)
	if err != nil {
		return err
	}

	completed := 0
	timeSpent := 0
	for _, row := range rows {
		if row.IsCompleted {
			completed++
		}
		timeSpent += row.TimeSpent
	}

	percentage := grading.Round1(100 * float64(completed) / float64(totalLessons))
	isCompleted := int64(completed) >= totalLessons

	updates := map[string]interface{}{
		"progress_percentage": percentage,
		"time_spent":          timeSpent,
		"is_completed":        isCompleted,
	}
	if isCompleted && moduleProgress.CompletedAt == nil {
		updates["completed_at"] = time.Now()
	}
	if !isCompleted {
		updates["completed_at"] = nil
	}

	return s.progressRepo.UpdateModuleProgress(moduleProgress.ID, updates)
}

// recomputeCourse пересчитывает процент курса как невзвешенное среднее
// процентов модулей и синхронизирует его с зачислением. Первый переход
// к 100% отправляет уведомление о завершении курса.
func (s *ProgressService) recomputeCourse(ctx context.Context, user *entity.User, courseProgress *entity.CourseProgress) (*entity.CourseProgress, error) {
	modules, err := s.progressRepo.ModuleProgressByCourse(courseProgress.ID)
	if err != nil {
		return nil, err
	}

	percentage := 0.0
	timeSpent := 0
	if len(modules) > 0 {
		sum := 0.0
		for _, m := range modules {
			sum += m.ProgressPercentage
			timeSpent += m.TimeSpent
		}
		percentage = grading.Round1(sum / float64(len(modules)))
	}

	wasCompleted := courseProgress.IsCompleted()

	err = s.progressRepo.UpdateCourseProgress(courseProgress.ID, map[string]interface{}{
		"progress_percentage": percentage,
		"time_spent":          timeSpent,
		"last_accessed_at":    time.Now(),
	})
	if err != nil {
		return nil, err
	}

	if err := s.enrollRepo.SyncProgress(user.ID, courseProgress.CourseID, percentage); err != nil {
		return nil, err
	}

	if percentage == 100 && !wasCompleted {
		s.notifyCompletion(ctx, user, courseProgress.CourseID)
	}

	return s.progressRepo.GetCourseProgress(user.ID, courseProgress.CourseID)
}

// notifyCompletion отправляет письмо о завершении курса.
// Сбой уведомления не влияет на запись прогресса.
func (s *ProgressService) notifyCompletion(ctx context.Context, user *entity.User, courseID string) {
	if s.notifier == nil || !s.notifier.Enabled() {
		return
	}

	course, err := s.courseRepo.GetPublishedCourse(courseID)
	if err != nil {
		log.Printf("[ProgressService] Курс %s для уведомления о завершении не найден: %v", courseID, err)
		return
	}

	if err := s.notifier.NotifyCourseCompleted(ctx, user, course); err != nil {
		log.Printf("[ProgressService] Уведомление о завершении курса %s для %s не отправлено: %v",
			courseID, user.ID, err)
		return
	}
	log.Printf("[ProgressService] Ученик %s завершил курс %s, уведомление отправлено", user.ID, courseID)
}

// GetCourseProgress возвращает прогресс ученика по курсу со всеми уровнями
func (s *ProgressService) GetCourseProgress(subject, courseID string) (*entity.CourseProgress, error) {
	user, err := s.userRepo.GetBySubject(subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if _, err := s.enrollRepo.GetLearning(user.ID, courseID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrEnrollmentRequired
		}
		return nil, err
	}

	progress, err := s.progressRepo.GetCourseProgress(user.ID, courseID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return progress, nil
}

// RecalculateAll пересчитывает проценты всех записей прогресса курсов.
// Служебная операция для CLI восстановления после ручных правок данных.
func (s *ProgressService) RecalculateAll(ctx context.Context) (int, error) {
	all, err := s.progressRepo.ListAllCourseProgress()
	if err != nil {
		return 0, err
	}

	recalculated := 0
	for i := range all {
		courseProgress := &all[i]

		modules, err := s.progressRepo.ModuleProgressByCourse(courseProgress.ID)
		if err != nil {
			log.Printf("[ProgressService] Пересчет курса %s пропущен: %v", courseProgress.ID, err)
			continue
		}
		for j := range modules {
			if err := s.recomputeModule(&modules[j]); err != nil {
				log.Printf("[ProgressService] Пересчет модуля %s пропущен: %v", modules[j].ID, err)
			}
		}

		user, err := s.userRepo.GetByID(courseProgress.UserID)
		if err != nil {
			log.Printf("[ProgressService] Ученик %s для пересчета не найден: %v", courseProgress.UserID, err)
			continue
		}
		if _, err := s.recomputeCourse(ctx, user, courseProgress); err != nil {
			log.Printf("[ProgressService] Пересчет курса %s не завершен: %v", courseProgress.ID, err)
			continue
		}
		recalculated++
	}
	return recalculated, nil
}
