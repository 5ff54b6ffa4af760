package models

import (
	"time"

	"github.com/google/uuid"
)

// Admin описывает учётную запись администратора платформы.
type Admin struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Name         string    `db:"name" json:"name"`
	Role         string    `db:"role" json:"role"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// IsSuperAdmin сообщает, является ли администратор суперадмином.
// Суперадмин не может быть деактивирован другими администраторами.
func (a *Admin) IsSuperAdmin() bool {
	return a.Role == AdminRoleSuperAdmin
}
