package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Test представляет тест, который ученик может пройти.
// Структура теста (секции, задания, вопросы) принадлежит подсистеме
// авторинга и для ядра доступна только на чтение.
type Test struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Subject     string    `gorm:"size:100" json:"subject"`
	Description string    `gorm:"type:text" json:"description"`
	Duration    int       `gorm:"not null" json:"duration"` // в минутах
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Sections []TestSection `gorm:"foreignKey:TestID" json:"sections,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (Test) TableName() string {
	return "tests"
}

// BeforeCreate генерирует UUID для новой записи
func (t *Test) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// DurationSeconds возвращает длительность теста в секундах
func (t *Test) DurationSeconds() int {
	return t.Duration * 60
}

// TestSection представляет секцию теста.
// Вопросы могут висеть как непосредственно на секции, так и внутри заданий;
// обход структуры обязан учитывать оба размещения.
type TestSection struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	TestID string `gorm:"size:36;not null;index" json:"test_id"`
	Name   string `gorm:"size:255;not null" json:"name"`
	Order  int    `gorm:"column:position;not null;default:0" json:"order"`

	Questions []Question `gorm:"foreignKey:SectionID" json:"questions,omitempty"`
	Tasks     []TestTask `gorm:"foreignKey:SectionID" json:"tasks,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (TestSection) TableName() string {
	return "test_sections"
}

// BeforeCreate генерирует UUID для новой записи
func (s *TestSection) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// TestTask представляет задание внутри секции (группа вопросов с общей инструкцией)
type TestTask struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	SectionID   string `gorm:"size:36;not null;index" json:"section_id"`
	Instruction string `gorm:"type:text" json:"instruction"`
	Order       int    `gorm:"column:position;not null;default:0" json:"order"`

	Questions []Question `gorm:"foreignKey:TaskID" json:"questions,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (TestTask) TableName() string {
	return "test_tasks"
}

// BeforeCreate генерирует UUID для новой записи
func (t *TestTask) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// AllQuestions возвращает вопросы теста из обоих размещений:
// прямые вопросы секций и вопросы внутри заданий.
func (t *Test) AllQuestions() []Question {
	var questions []Question
	for _, section := range t.Sections {
		questions = append(questions, section.Questions...)
		for _, task := range section.Tasks {
			questions = append(questions, task.Questions...)
		}
	}
	return questions
}

// MaxScore возвращает максимально возможный балл за тест.
// Считаются вопросы и на секциях, и внутри заданий, иначе максимум занижается.
func (t *Test) MaxScore() int {
	total := 0
	for _, q := range t.AllQuestions() {
		total += q.Points
	}
	return total
}
