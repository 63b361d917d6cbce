package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuestionType определяет тип вопроса
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeMatching       QuestionType = "MATCHING"
	QuestionTypeNumericAnswer  QuestionType = "NUMERIC_ANSWER"
	QuestionTypeShortAnswer    QuestionType = "SHORT_ANSWER"
	QuestionTypeEssay          QuestionType = "ESSAY"
)

// IsAutoGradable сообщает, умеет ли движок оценивать вопрос без человека.
// Остальные типы остаются неоцененными (is_correct = null, 0 баллов).
func (t QuestionType) IsAutoGradable() bool {
	return t == QuestionTypeMultipleChoice || t == QuestionTypeMatching
}

// MatchingItems - пользовательский тип для работы с JSONB.
// Хранит упорядоченные списки левой и правой частей вопроса на сопоставление.
type MatchingItems struct {
	Left  []string `json:"left"`
	Right []string `json:"right"`
}

// Scan реализует интерфейс sql.Scanner для MatchingItems
// Используется GORM для чтения JSONB данных из базы
func (m *MatchingItems) Scan(value interface{}) error {
	if value == nil {
		*m = MatchingItems{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}
	if len(bytes) == 0 {
		*m = MatchingItems{}
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// Value реализует интерфейс driver.Valuer для MatchingItems
func (m MatchingItems) Value() (driver.Value, error) {
	if len(m.Left) == 0 && len(m.Right) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

// StringMap - пользовательский тип для JSONB-словарей (ключ правильного
// ответа в вопросах на сопоставление).
type StringMap map[string]string

// Scan реализует интерфейс sql.Scanner для StringMap
func (o *StringMap) Scan(value interface{}) error {
	if value == nil {
		*o = StringMap{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}
	if len(bytes) == 0 {
		*o = StringMap{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для StringMap
func (o StringMap) Value() (driver.Value, error) {
	if len(o) == 0 {
		return nil, nil
	}
	return json.Marshal(o)
}

// MatchingKey строит синтетический ключ словаря правильных ответов для
// i-го элемента левого списка. Голые числовые строки небезопасны как
// идентификаторы в слое хранения, поэтому индекс получает префикс "k".
func MatchingKey(index int) string {
	return fmt.Sprintf("k%d", index)
}

// Question представляет вопрос теста.
// Поля правильных ответов (CorrectMapping, Option.IsCorrect) скрыты от клиента.
type Question struct {
	ID        string       `gorm:"primaryKey;size:36" json:"id"`
	SectionID *string      `gorm:"size:36;index" json:"section_id,omitempty"`
	TaskID    *string      `gorm:"size:36;index" json:"task_id,omitempty"`
	Type      QuestionType `gorm:"size:32;not null" json:"type"`
	Text      string       `gorm:"type:text;not null" json:"text"`
	Points    int          `gorm:"not null;default:1" json:"points"`

	// Данные вопроса на сопоставление
	MatchingItems  MatchingItems `gorm:"type:jsonb" json:"matching_items,omitempty"`
	CorrectMapping StringMap     `gorm:"type:jsonb" json:"-"` // Скрыто от клиента

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Options []Option `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// BeforeCreate генерирует UUID для новой записи
func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

// CorrectOptionID возвращает id варианта, помеченного правильным.
// Предполагается ровно один правильный вариант; вопрос без пометки
// всегда оценивается как неправильный.
func (q *Question) CorrectOptionID() (string, bool) {
	for _, option := range q.Options {
		if option.IsCorrect {
			return option.ID, true
		}
	}
	return "", false
}

// HasOption проверяет, принадлежит ли вариант этому вопросу
func (q *Question) HasOption(optionID string) bool {
	for _, option := range q.Options {
		if option.ID == optionID {
			return true
		}
	}
	return false
}

// Option представляет вариант ответа на вопрос с выбором
type Option struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	QuestionID string    `gorm:"size:36;not null;index" json:"question_id"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	IsCorrect  bool      `gorm:"not null;default:false" json:"-"` // Скрыто от клиента
	CreatedAt  time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Option) TableName() string {
	return "options"
}

// BeforeCreate генерирует UUID для новой записи
func (o *Option) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
