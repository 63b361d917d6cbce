package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Course представляет курс. CRUD курсов принадлежит подсистеме каталога;
// ядру курс нужен для прогресса и зачислений.
type Course struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Category    string    `gorm:"size:100" json:"category"`
	IsPublished bool      `gorm:"not null;default:false" json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Modules []CourseModule `gorm:"foreignKey:CourseID" json:"modules,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (Course) TableName() string {
	return "courses"
}

// BeforeCreate генерирует UUID для новой записи
func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// CourseModule представляет модуль курса
type CourseModule struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	CourseID    string    `gorm:"size:36;not null;index" json:"course_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Order       int       `gorm:"column:position;not null;default:0" json:"order"`
	IsPublished bool      `gorm:"not null;default:false" json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`

	Lessons []Lesson `gorm:"foreignKey:ModuleID" json:"lessons,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (CourseModule) TableName() string {
	return "course_modules"
}

// BeforeCreate генерирует UUID для новой записи
func (m *CourseModule) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// LessonType определяет тип урока
type LessonType string

const (
	LessonTypeVideo   LessonType = "VIDEO"
	LessonTypeReading LessonType = "READING"
	LessonTypeQuiz    LessonType = "QUIZ"
)

// Lesson представляет урок внутри модуля
type Lesson struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	ModuleID      string     `gorm:"size:36;not null;index" json:"module_id"`
	Title         string     `gorm:"size:255;not null" json:"title"`
	Order         int        `gorm:"column:position;not null;default:0" json:"order"`
	LessonType    LessonType `gorm:"size:32;not null;default:VIDEO" json:"lesson_type"`
	VideoDuration int        `gorm:"not null;default:0" json:"video_duration"` // в секундах
	IsPublished   bool       `gorm:"not null;default:false" json:"is_published"`
	CreatedAt     time.Time  `json:"created_at"`

	Module *CourseModule `gorm:"foreignKey:ModuleID" json:"module,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (Lesson) TableName() string {
	return "lessons"
}

// BeforeCreate генерирует UUID для новой записи
func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// EnrollmentStatus определяет статус зачисления на курс
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "ACTIVE"
	EnrollmentCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentDropped   EnrollmentStatus = "DROPPED"
)

// Enrollment представляет зачисление ученика на курс.
// ProgressPercentage дублирует процент из CourseProgress, чтобы витрины
// зачислений не делали второй проход пересчета.
type Enrollment struct {
	ID                 string           `gorm:"primaryKey;size:36" json:"id"`
	UserID             string           `gorm:"size:36;not null;uniqueIndex:idx_user_course" json:"user_id"`
	CourseID           string           `gorm:"size:36;not null;uniqueIndex:idx_user_course" json:"course_id"`
	Status             EnrollmentStatus `gorm:"size:32;not null;default:ACTIVE" json:"status"`
	ProgressPercentage float64          `gorm:"not null;default:0" json:"progress_percentage"`
	LastAccessedAt     *time.Time       `json:"last_accessed_at,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Enrollment) TableName() string {
	return "enrollments"
}

// BeforeCreate генерирует UUID для новой записи
func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// IsLearning сообщает, дает ли зачисление доступ к материалам курса
func (e *Enrollment) IsLearning() bool {
	return e.Status == EnrollmentActive || e.Status == EnrollmentCompleted
}
