package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/genasnewdar/lever-stg/internal/domain/entity"
)

// ============================================================================
// Моки для ProgressService
// ============================================================================

type MockCourseRepoForProgress struct {
	mock.Mock
}

func (m *MockCourseRepoForProgress) GetPublishedCourse(id string) (*entity.Course, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Course), args.Error(1)
}

func (m *MockCourseRepoForProgress) GetPublishedLesson(lessonID string) (*entity.Lesson, error) {
	args := m.Called(lessonID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lesson), args.Error(1)
}

func (m *MockCourseRepoForProgress) CountPublishedLessons(moduleID string) (int64, error) {
	args := m.Called(moduleID)
	return args.Get(0).(int64), args.Error(1)
}

type MockEnrollmentRepo struct {
	mock.Mock
}

func (m *MockEnrollmentRepo) GetLearning(userID, courseID string) (*entity.Enrollment, error) {
	args := m.Called(userID, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Enrollment), args.Error(1)
}

func (m *MockEnrollmentRepo) SyncProgress(userID, courseID string, percentage float64) error {
	args := m.Called(userID, courseID, percentage)
	return args.Error(0)
}

func (m *MockEnrollmentRepo) TouchLastAccessed(id string, at time.Time) error {
	args := m.Called(id, at)
	return args.Error(0)
}

type MockProgressRepo struct {
	mock.Mock
}

func (m *MockProgressRepo) GetOrCreateCourseProgress(userID, courseID string) (*entity.CourseProgress, error) {
	args := m.Called(userID, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CourseProgress), args.Error(1)
}

func (m *MockProgressRepo) GetOrCreateModuleProgress(courseProgressID, moduleID string) (*entity.ModuleProgress, error) {
	args := m.Called(courseProgressID, moduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ModuleProgress), args.Error(1)
}

func (m *MockProgressRepo) UpsertLessonProgress(progress *entity.LessonProgress) (*entity.LessonProgress, error) {
	args := m.Called(progress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LessonProgress), args.Error(1)
}

func (m *MockProgressRepo) LessonProgressByModule(moduleProgressID string) ([]entity.LessonProgress, error) {
	args := m.Called(moduleProgressID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.LessonProgress), args.Error(1)
}

func (m *MockProgressRepo) ModuleProgressByCourse(courseProgressID string) ([]entity.ModuleProgress, error) {
	args := m.Called(courseProgressID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.ModuleProgress), args.Error(1)
}

func (m *MockProgressRepo) UpdateModuleProgress(id string, updates map[string]interface{}) error {
	args := m.Called(id, updates)
	return args.Error(0)
}

func (m *MockProgressRepo) UpdateCourseProgress(id string, updates map[string]interface{}) error {
	args := m.Called(id, updates)
	return args.Error(0)
}

func (m *MockProgressRepo) GetCourseProgress(userID, courseID string) (*entity.CourseProgress, error) {
	args := m.Called(userID, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CourseProgress), args.Error(1)
}

func (m *MockProgressRepo) ListAllCourseProgress() ([]entity.CourseProgress, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.CourseProgress), args.Error(1)
}

type MockCompletionNotifier struct {
	mock.Mock
}

func (m *MockCompletionNotifier) NotifyCourseCompleted(ctx context.Context, user *entity.User, course *entity.Course) error {
	args := m.Called(ctx, user, course)
	return args.Error(0)
}

func (m *MockCompletionNotifier) Enabled() bool {
	args := m.Called()
	return args.Bool(0)
}

// ============================================================================
// Вспомогательные конструкторы
// ============================================================================

type progressServiceMocks struct {
	userRepo     *MockUserRepoForAttempts
	courseRepo   *MockCourseRepoForProgress
	enrollRepo   *MockEnrollmentRepo
	progressRepo *MockProgressRepo
	notifier     *MockCompletionNotifier
}

func createTestProgressService() (*ProgressService, *progressServiceMocks) {
	mocks := &progressServiceMocks{
		userRepo:     new(MockUserRepoForAttempts),
		courseRepo:   new(MockCourseRepoForProgress),
		enrollRepo:   new(MockEnrollmentRepo),
		progressRepo: new(MockProgressRepo),
		notifier:     new(MockCompletionNotifier),
	}
	svc := NewProgressService(
		mocks.userRepo,
		mocks.courseRepo,
		mocks.enrollRepo,
		mocks.progressRepo,
		mocks.notifier,
	)
	return svc, mocks
}

func publishedLesson() *entity.Lesson {
	return &entity.Lesson{
		ID:          "lesson-1",
		ModuleID:    "module-1",
		IsPublished: true,
		Module:      &entity.CourseModule{ID: "module-1", CourseID: "course-1", IsPublished: true},
	}
}

// setupProgressChain навешивает стандартные ожидания пути
// урок -> зачисление -> записи прогресса
func setupProgressChain(mocks *progressServiceMocks) {
	mocks.userRepo.On("GetBySubject", "subj-1").Return(testUser(), nil)
	mocks.courseRepo.On("GetPublishedLesson", "lesson-1").Return(publishedLesson(), nil)
	mocks.enrollRepo.On("GetLearning", "user-1", "course-1").
		Return(&entity.Enrollment{ID: "enr-1", UserID: "user-1", CourseID: "course-1", Status: entity.EnrollmentActive}, nil)
	mocks.progressRepo.On("GetOrCreateCourseProgress", "user-1", "course-1").
		Return(&entity.CourseProgress{ID: "cp-1", UserID: "user-1", CourseID: "course-1"}, nil)
	mocks.progressRepo.On("GetOrCreateModuleProgress", "cp-1", "module-1").
		Return(&entity.ModuleProgress{ID: "mp-1", CourseProgressID: "cp-1", ModuleID: "module-1"}, nil)
	mocks.enrollRepo.On("TouchLastAccessed", "enr-1", mock.AnythingOfType("time.Time")).Return(nil)
	mocks.progressRepo.On("GetCourseProgress", "user-1", "course-1").
		Return(&entity.CourseProgress{ID: "cp-1", UserID: "user-1", CourseID: "course-1"}, nil)
}

// ============================================================================
// Тесты RecordLessonProgress
// ============================================================================

func TestProgressService_ModuleTwoOfThreeLessons(t *testing.T) {
	svc, mocks := createTestProgressService()
	setupProgressChain(mocks)

	lessonRows := []entity.LessonProgress{
		{LessonID: "lesson-1", IsCompleted: true, TimeSpent: 300},
		{LessonID: "lesson-2", IsCompleted: true, TimeSpent: 200},
		{LessonID: "lesson-3", IsCompleted: false, TimeSpent: 50},
	}

	mocks.progressRepo.On("LessonProgressByModule", "mp-1").Return(lessonRows, nil)
	mocks.progressRepo.On("UpsertLessonProgress", mock.AnythingOfType("*entity.LessonProgress")).
		Return(&entity.LessonProgress{}, nil)
	mocks.courseRepo.On("CountPublishedLessons", "module-1").Return(int64(3), nil)
	// 2 из 3 уроков -> 66.7
	mocks.progressRepo.On("UpdateModuleProgress", "mp-1",
		mock.MatchedBy(func(updates map[string]interface{}) bool {
			return updates["progress_percentage"] == 66.7 &&
				updates["is_completed"] == false &&
				updates["time_spent"] == 550
		})).Return(nil)
	mocks.progressRepo.On("ModuleProgressByCourse", "cp-1").
		Return([]entity.ModuleProgress{{ID: "mp-1", ProgressPercentage: 66.7}}, nil)
	mocks.progressRepo.On("UpdateCourseProgress", "cp-1",
		mock.MatchedBy(func(updates map[string]interface{}) bool {
			return updates["progress_percentage"] == 66.7
		})).Return(nil)
	mocks.enrollRepo.On("SyncProgress", "user-1", "course-1", 66.7).Return(nil)

	_, err := svc.RecordLessonProgress(context.Background(), "subj-1", "lesson-1", LessonProgressInput{
		IsCompleted: true,
		TimeSpent:   60,
	})

	require.NoError(t, err)
	mocks.progressRepo.AssertExpectations(t)
	mocks.enrollRepo.AssertExpectations(t)
}

func TestProgressService_CourseMeanOfModulePercentages(t *testing.T) {
	svc, mocks := createTestProgressService()
	setupProgressChain(mocks)

	mocks.progressRepo.On("LessonProgressByModule", "mp-1").
		Return([]entity.LessonProgress{{LessonID: "lesson-1", IsCompleted: true}}, nil)
	mocks.progressRepo.On("UpsertLessonProgress", mock.Anything).Return(&entity.LessonProgress{}, nil)
	mocks.courseRepo.On("CountPublishedLessons", "module-1").Return(int64(1), nil)
	mocks.progressRepo.On("UpdateModuleProgress", "mp-1", mock.Anything).Return(nil)

	// Второй модуль завершен полностью: среднее (66.7 + 100) / 2 = 83.4,
	// а не 83.3 из-за двоичного представления
	mocks.progressRepo.On("ModuleProgressByCourse", "cp-1").
		Return([]entity.ModuleProgress{
			{ID: "mp-1", ProgressPercentage: 66.7},
			{ID: "mp-2", ProgressPercentage: 100},
		}, nil)
	mocks.progressRepo.On("UpdateCourseProgress", "cp-1",
		mock.MatchedBy(func(updates map[string]interface{}) bool {
			return updates["progress_percentage"] == 83.4
		})).Return(nil)
	mocks.enrollRepo.On("SyncProgress", "user-1", "course-1", 83.4).Return(nil)

	_, err := svc.RecordLessonProgress(context.Background(), "subj-1", "lesson-1", LessonProgressInput{
		IsCompleted: true,
	})

	require.NoError(t, err)
	mocks.progressRepo.AssertExpectations(t)
	mocks.enrollRepo.AssertExpectations(t)
}

func TestProgressService_ModuleWithoutLessonsIsNotRecomputed(t *testing.T) {
	svc, mocks := createTestProgressService()
	setupProgressChain(mocks)

	mocks.progressRepo.On("LessonProgressByModule", "mp-1").Return([]entity.LessonProgress{}, nil)
	mocks.progressRepo.On("UpsertLessonProgress", mock.Anything).Return(&entity.LessonProgress{}, nil)
	mocks.courseRepo.On("CountPublishedLessons", "module-1").Return(int64(0), nil)
	mocks.progressRepo.On("ModuleProgressByCourse", "cp-1").Return([]entity.ModuleProgress{}, nil)
	mocks.progressRepo.On("UpdateCourseProgress", "cp-1", mock.Anything).Return(nil)
	mocks.enrollRepo.On("SyncProgress", "user-1", "course-1", 0.0).Return(nil)

	_, err := svc.RecordLessonProgress(context.Background(), "subj-1", "lesson-1", LessonProgressInput{})

	require.NoError(t, err)
	mocks.progressRepo.AssertNotCalled(t, "UpdateModuleProgress", mock.Anything, mock.Anything)
}

func TestProgressService_EnrollmentRequired(t *testing.T) {
	svc, mocks := createTestProgressService()

	mocks.userRepo.On("GetBySubject", "subj-1").Return(testUser(), nil)
	mocks.courseRepo.On("GetPublishedLesson", "lesson-1").Return(publishedLesson(), nil)
	mocks.enrollRepo.On("GetLearning", "user-1", "course-1").Return(nil, apperrNotFound())

	_, err := svc.RecordLessonProgress(context.Background(), "subj-1", "lesson-1", LessonProgressInput{})

	assert.ErrorIs(t, err, ErrEnrollmentRequired)
	mocks.progressRepo.AssertNotCalled(t, "GetOrCreateCourseProgress", mock.Anything, mock.Anything)
}

func TestProgressService_UnknownLesson(t *testing.T) {
	svc, mocks := createTestProgressService()

	mocks.userRepo.On("GetBySubject", "subj-1").Return(testUser(), nil)
	mocks.courseRepo.On("GetPublishedLesson", "ghost").Return(nil, apperrNotFound())

	_, err := svc.RecordLessonProgress(context.Background(), "subj-1", "ghost", LessonProgressInput{})

	assert.ErrorIs(t, err, ErrLessonNotFound)
}

func TestProgressService_LessonUpdateReplacesStoredTotals(t *testing.T) {
	svc, mocks := createTestProgressService()
	setupProgressChain(mocks)

	existing := []entity.LessonProgress{
		{LessonID: "lesson-1", IsCompleted: false, TimeSpent: 100, WatchTime: 80},
	}

	mocks.progressRepo.On("LessonProgressByModule", "mp-1").Return(existing, nil)
	mocks.progressRepo.On("UpsertLessonProgress",
		mock.MatchedBy(func(progress *entity.LessonProgress) bool {
			// Клиент присылает накопленный итог, сохраненное замещается
			return progress.IsCompleted &&
				progress.CompletedAt != nil &&
				progress.TimeSpent == 250 &&
				progress.WatchTime == 200
		})).Return(&entity.LessonProgress{}, nil)
	mocks.courseRepo.On("CountPublishedLessons", "module-1").Return(int64(1), nil)
	mocks.progressRepo.On("UpdateModuleProgress", "mp-1", mock.Anything).Return(nil)
	mocks.progressRepo.On("ModuleProgressByCourse", "cp-1").Return([]entity.ModuleProgress{}, nil)
	mocks.progressRepo.On("UpdateCourseProgress", "cp-1", mock.Anything).Return(nil)
	mocks.enrollRepo.On("SyncProgress", "user-1", "course-1", 0.0).Return(nil)

	_, err := svc.RecordLessonProgress(context.Background(), "subj-1", "lesson-1", LessonProgressInput{
		IsCompleted: true,
		TimeSpent:   250,
		WatchTime:   200,
	})

	require.NoError(t, err)
	mocks.progressRepo.AssertExpectations(t)
}

func TestProgressService_LessonCanBeUncompleted(t *testing.T) {
	svc, mocks := createTestProgressService()
	setupProgressChain(mocks)

	completedAt := time.Now().Add(-time.Hour)
	existing := []entity.LessonProgress{
		{LessonID: "lesson-1", IsCompleted: true, CompletedAt: &completedAt, TimeSpent: 300, WatchTime: 240},
	}

	mocks.progressRepo.On("LessonProgressByModule", "mp-1").Return(existing, nil)
	mocks.progressRepo.On("UpsertLessonProgress",
		mock.MatchedBy(func(progress *entity.LessonProgress) bool {
			// Пометка снимается, отметка времени завершения остается
			return !progress.IsCompleted &&
				progress.CompletedAt != nil &&
				progress.CompletedAt.Equal(completedAt) &&
				progress.TimeSpent == 120
		})).Return(&entity.LessonProgress{}, nil)
	mocks.courseRepo.On("CountPublishedLessons", "module-1").Return(int64(1), nil)
	mocks.progressRepo.On("UpdateModuleProgress", "mp-1", mock.Anything).Return(nil)
	mocks.progressRepo.On("ModuleProgressByCourse", "cp-1").Return([]entity.ModuleProgress{}, nil)
	mocks.progressRepo.On("UpdateCourseProgress", "cp-1", mock.Anything).Return(nil)
	mocks.enrollRepo.On("SyncProgress", "user-1", "course-1", 0.0).Return(nil)

	_, err := svc.RecordLessonProgress(context.Background(), "subj-1", "lesson-1", LessonProgressInput{
		IsCompleted: false,
		TimeSpent:   120,
		WatchTime:   90,
	})

	require.NoError(t, err)
	mocks.progressRepo.AssertExpectations(t)
}

func TestProgressService_CompletionSendsNotificationOnce(t *testing.T) {
	svc, mocks := createTestProgressService()
	setupProgressChain(mocks)

	mocks.progressRepo.On("LessonProgressByModule", "mp-1").
		Return([]entity.LessonProgress{{LessonID: "lesson-1", IsCompleted: true}}, nil)
	mocks.progressRepo.On("UpsertLessonProgress", mock.Anything).Return(&entity.LessonProgress{}, nil)
	mocks.courseRepo.On("CountPublishedLessons", "module-1").Return(int64(1), nil)
	mocks.progressRepo.On("UpdateModuleProgress", "mp-1", mock.Anything).Return(nil)
	mocks.progressRepo.On("ModuleProgressByCourse", "cp-1").
		Return([]entity.ModuleProgress{{ID: "mp-1", ProgressPercentage: 100}}, nil)
	mocks.progressRepo.On("UpdateCourseProgress", "cp-1", mock.Anything).Return(nil)
	mocks.enrollRepo.On("SyncProgress", "user-1", "course-1", 100.0).Return(nil)

	course := &entity.Course{ID: "course-1", Title: "Алгебра"}
	mocks.notifier.On("Enabled").Return(true)
	mocks.courseRepo.On("GetPublishedCourse", "course-1").Return(course, nil)
	mocks.notifier.On("NotifyCourseCompleted", mock.Anything, mock.AnythingOfType("*entity.User"), course).
		Return(nil).Once()

	_, err := svc.RecordLessonProgress(context.Background(), "subj-1", "lesson-1", LessonProgressInput{
		IsCompleted: true,
	})

	require.NoError(t, err)
	mocks.notifier.AssertExpectations(t)
}

func TestProgressService_AlreadyCompletedCourseDoesNotNotifyAgain(t *testing.T) {
	svc, mocks := createTestProgressService()

	mocks.userRepo.On("GetBySubject", "subj-1").Return(testUser(), nil)
	mocks.courseRepo.On("GetPublishedLesson", "lesson-1").Return(publishedLesson(), nil)
	mocks.enrollRepo.On("GetLearning", "user-1", "course-1").
		Return(&entity.Enrollment{ID: "enr-1", Status: entity.EnrollmentCompleted}, nil)
	// Курс уже на 100%
	mocks.progressRepo.On("GetOrCreateCourseProgress", "user-1", "course-1").
		Return(&entity.CourseProgress{ID: "cp-1", UserID: "user-1", CourseID: "course-1", ProgressPercentage: 100}, nil)
	mocks.progressRepo.On("GetOrCreateModuleProgress", "cp-1", "module-1").
		Return(&entity.ModuleProgress{ID: "mp-1", CourseProgressID: "cp-1", ModuleID: "module-1"}, nil)
	mocks.progressRepo.On("LessonProgressByModule", "mp-1").
		Return([]entity.LessonProgress{{LessonID: "lesson-1", IsCompleted: true}}, nil)
	mocks.progressRepo.On("UpsertLessonProgress", mock.Anything).Return(&entity.LessonProgress{}, nil)
	mocks.courseRepo.On("CountPublishedLessons", "module-1").Return(int64(1), nil)
	mocks.progressRepo.On("UpdateModuleProgress", "mp-1", mock.Anything).Return(nil)
	mocks.progressRepo.On("ModuleProgressByCourse", "cp-1").
		Return([]entity.ModuleProgress{{ID: "mp-1", ProgressPercentage: 100}}, nil)
	mocks.progressRepo.On("UpdateCourseProgress", "cp-1", mock.Anything).Return(nil)
	mocks.enrollRepo.On("SyncProgress", "user-1", "course-1", 100.0).Return(nil)
	mocks.enrollRepo.On("TouchLastAccessed", "enr-1", mock.Anything).Return(nil)
	mocks.progressRepo.On("GetCourseProgress", "user-1", "course-1").
		Return(&entity.CourseProgress{ID: "cp-1", ProgressPercentage: 100}, nil)

	_, err := svc.RecordLessonProgress(context.Background(), "subj-1", "lesson-1", LessonProgressInput{
		IsCompleted: true,
	})

	require.NoError(t, err)
	mocks.notifier.AssertNotCalled(t, "NotifyCourseCompleted", mock.Anything, mock.Anything, mock.Anything)
}
