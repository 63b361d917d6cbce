package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Response представляет ответ ученика на один вопрос внутри одной попытки.
// Уникальность по паре (attempt_id, question_id): повторная отправка того же
// вопроса перезаписывает ответ, а не плодит строки.
type Response struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	AttemptID  string `gorm:"size:36;not null;uniqueIndex:idx_attempt_question" json:"attempt_id"`
	QuestionID string `gorm:"size:36;not null;uniqueIndex:idx_attempt_question" json:"question_id"`

	// SelectedOptionID заполняется для вопросов с выбором варианта
	SelectedOptionID *string `gorm:"size:36" json:"selected_option_id,omitempty"`

	// AdditionalData хранит структурированный ответ (сопоставления и т.п.)
	AdditionalData datatypes.JSON `gorm:"type:jsonb" json:"additional_data,omitempty"`

	// IsCorrect и PointsAwarded выставляются движком оценивания ровно один раз
	IsCorrect     *bool   `json:"is_correct,omitempty"`
	PointsAwarded float64 `gorm:"not null;default:0" json:"points_awarded"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Question *Question `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (Response) TableName() string {
	return "responses"
}

// BeforeCreate генерирует UUID для новой записи
func (r *Response) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// StudentMapping декодирует additional_data как словарь
// "левый элемент -> текст правой части" для вопросов на сопоставление.
func (r *Response) StudentMapping() (map[string]string, error) {
	if len(r.AdditionalData) == 0 {
		return nil, nil
	}
	var mapping map[string]string
	if err := json.Unmarshal(r.AdditionalData, &mapping); err != nil {
		return nil, err
	}
	return mapping, nil
}
