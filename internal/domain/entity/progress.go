package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Трехуровневая иерархия прогресса: курс -> модуль -> урок.
// Записи создаются лениво при первом событии прогресса и никогда не
// удаляются, пока существует зачисление. Инварианты между уровнями
// восстанавливаются полным пересканом детей после каждой записи
// прогресса урока (см. service.ProgressService).

// CourseProgress представляет прогресс ученика по курсу
type CourseProgress struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	UserID             string    `gorm:"size:36;not null;uniqueIndex:idx_progress_user_course" json:"user_id"`
	CourseID           string    `gorm:"size:36;not null;uniqueIndex:idx_progress_user_course" json:"course_id"`
	ProgressPercentage float64   `gorm:"not null;default:0" json:"progress_percentage"`
	TimeSpent          int       `gorm:"not null;default:0" json:"time_spent"` // в секундах
	LastAccessedAt     time.Time `json:"last_accessed_at"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	ModuleProgress []ModuleProgress `gorm:"foreignKey:CourseProgressID" json:"module_progress,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (CourseProgress) TableName() string {
	return "course_progress"
}

// BeforeCreate генерирует UUID для новой записи
func (p *CourseProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// IsCompleted сообщает о полном завершении курса
func (p *CourseProgress) IsCompleted() bool {
	return p.ProgressPercentage == 100
}

// ModuleProgress представляет прогресс ученика по модулю курса
type ModuleProgress struct {
	ID                 string     `gorm:"primaryKey;size:36" json:"id"`
	CourseProgressID   string     `gorm:"size:36;not null;uniqueIndex:idx_progress_module" json:"course_progress_id"`
	ModuleID           string     `gorm:"size:36;not null;uniqueIndex:idx_progress_module" json:"module_id"`
	IsCompleted        bool       `gorm:"not null;default:false" json:"is_completed"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	ProgressPercentage float64    `gorm:"not null;default:0" json:"progress_percentage"`
	TimeSpent          int        `gorm:"not null;default:0" json:"time_spent"` // в секундах
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	LessonProgress []LessonProgress `gorm:"foreignKey:ModuleProgressID" json:"lesson_progress,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (ModuleProgress) TableName() string {
	return "module_progress"
}

// BeforeCreate генерирует UUID для новой записи
func (p *ModuleProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// LessonProgress представляет прогресс ученика по уроку
type LessonProgress struct {
	ID               string     `gorm:"primaryKey;size:36" json:"id"`
	ModuleProgressID string     `gorm:"size:36;not null;uniqueIndex:idx_progress_lesson" json:"module_progress_id"`
	LessonID         string     `gorm:"size:36;not null;uniqueIndex:idx_progress_lesson" json:"lesson_id"`
	IsCompleted      bool       `gorm:"not null;default:false" json:"is_completed"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	TimeSpent        int        `gorm:"not null;default:0" json:"time_spent"`  // в секундах
	WatchTime        int        `gorm:"not null;default:0" json:"watch_time"` // для видеоуроков, в секундах
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (LessonProgress) TableName() string {
	return "lesson_progress"
}

// BeforeCreate генерирует UUID для новой записи
func (p *LessonProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
