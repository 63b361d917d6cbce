package entity

import (
	"time"
)

// User представляет учетную запись ученика.
// Управление учетными записями и выпуск токенов живут во внешнем сервисе
// идентификации; здесь хранится только проекция, необходимая ядру.
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Subject   string    `gorm:"size:128;not null;uniqueIndex" json:"subject"`
	FullName  string    `gorm:"size:255;not null" json:"full_name"`
	Email     string    `gorm:"size:255" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (User) TableName() string {
	return "users"
}
