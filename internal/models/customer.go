package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer описывает пользователя платформы: заказчика или исполнителя.
type Customer struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	Email           string     `db:"email" json:"email"`
	PasswordHash    string     `db:"password_hash" json:"-"`
	Name            string     `db:"name" json:"name"`
	Role            string     `db:"role" json:"role"`
	Status          string     `db:"status" json:"status"`
	StripeAccountID string     `db:"stripe_account_id" json:"stripe_account_id,omitempty"`
	LastLoginAt     *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// CanTransact сообщает, разрешены ли пользователю сделки.
func (c *Customer) CanTransact() bool {
	return c.Status == CustomerStatusActive
}

// Session хранит refresh токен пользователя.
type Session struct {
	ID           uuid.UUID `db:"id" json:"id"`
	CustomerID   uuid.UUID `db:"customer_id" json:"customer_id"`
	RefreshToken string    `db:"refresh_token" json:"-"`
	UserAgent    *string   `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress    *string   `db:"ip_address" json:"ip_address,omitempty"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// VerificationCode хранит одноразовый код подтверждения.
type VerificationCode struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	CustomerID uuid.UUID  `db:"customer_id" json:"customer_id"`
	CodeType   string     `db:"code_type" json:"code_type"`
	Code       string     `db:"code" json:"-"`
	UsedAt     *time.Time `db:"used_at" json:"used_at,omitempty"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
