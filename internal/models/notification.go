package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Notification хранит уведомление пользователя.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// DeviceToken — FCM токен устройства; на пользователя хранится один токен
// (upsert по customer_id).
type DeviceToken struct {
	CustomerID uuid.UUID `db:"customer_id" json:"customer_id"`
	FCMToken   string    `db:"fcm_token" json:"fcm_token"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
