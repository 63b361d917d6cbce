package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AttemptStatus определяет статус попытки прохождения теста
type AttemptStatus string

const (
	// AttemptNotStarted - попытка создана, дедлайн еще не запланирован
	AttemptNotStarted AttemptStatus = "NOT_STARTED"
	// AttemptInProgress - ученик проходит тест
	AttemptInProgress AttemptStatus = "IN_PROGRESS"
	// AttemptSubmitted - ответы зафиксированы, оценивание еще не завершено
	AttemptSubmitted AttemptStatus = "SUBMITTED"
	// AttemptGraded - попытка оценена (терминальный статус)
	AttemptGraded AttemptStatus = "GRADED"
	// AttemptCancelled - попытка отменена системой при старте,
	// если не удалось запланировать дедлайн (терминальный статус)
	AttemptCancelled AttemptStatus = "CANCELLED"
)

// FinishActorSystem записывается в finish_actor, когда попытку завершила
// не рука ученика, а система (callback планировщика или отмена при старте).
const FinishActorSystem = "SYSTEM"

// attemptTransitions описывает разрешенные переходы статусов.
// Переходы монотонны: вернуться назад нельзя.
var attemptTransitions = map[AttemptStatus][]AttemptStatus{
	AttemptNotStarted: {AttemptInProgress, AttemptCancelled},
	AttemptInProgress: {AttemptSubmitted},
	AttemptSubmitted:  {AttemptGraded},
	AttemptGraded:     {},
	AttemptCancelled:  {},
}

// IsTerminal сообщает, является ли статус терминальным
func (s AttemptStatus) IsTerminal() bool {
	return s == AttemptGraded || s == AttemptCancelled
}

// CanTransitionTo проверяет допустимость перехода в указанный статус
func (s AttemptStatus) CanTransitionTo(next AttemptStatus) bool {
	for _, allowed := range attemptTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ActiveStatuses возвращает нетерминальные статусы. Именно они участвуют
// в проверке "не более одной активной попытки на пару (ученик, тест)".
func ActiveStatuses() []AttemptStatus {
	return []AttemptStatus{AttemptNotStarted, AttemptInProgress, AttemptSubmitted}
}

// TestAttempt представляет одну попытку ученика пройти тест.
// Попытки никогда не удаляются: это аудиторский след оценивания.
type TestAttempt struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	UserID string `gorm:"size:36;not null;index" json:"user_id"`
	TestID string `gorm:"size:36;not null;index" json:"test_id"`

	Status AttemptStatus `gorm:"size:32;not null;default:NOT_STARTED" json:"status"`

	StartedAt   time.Time  `gorm:"not null" json:"started_at"`
	DueAt       time.Time  `gorm:"not null" json:"due_at"` // Неизменяемо после старта
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`

	// FinishActor - кто завершил попытку: id ученика или "SYSTEM"
	FinishActor string `gorm:"size:128" json:"finish_actor,omitempty"`

	Score  *float64       `json:"score,omitempty"`
	Report datatypes.JSON `gorm:"type:jsonb" json:"report,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Test      *Test      `gorm:"foreignKey:TestID" json:"test,omitempty"`
	Responses []Response `gorm:"foreignKey:AttemptID" json:"responses,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (TestAttempt) TableName() string {
	return "test_attempts"
}

// BeforeCreate генерирует UUID для новой записи
func (a *TestAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// IsExpired проверяет, истек ли дедлайн попытки на момент now.
// Дедлайн авторитетен: сдача в момент дедлайна и позже отклоняется,
// даже если callback планировщика еще не пришел.
func (a *TestAttempt) IsExpired(now time.Time) bool {
	return !now.Before(a.DueAt)
}
