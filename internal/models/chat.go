package models

import (
	"time"

	"github.com/google/uuid"
)

// Chat — чат, привязанный к спору один к одному.
type Chat struct {
	ID            uuid.UUID   `db:"id" json:"id"`
	DisputeID     uuid.UUID   `db:"dispute_id" json:"dispute_id"`
	Participants  []uuid.UUID `db:"-" json:"participants"`
	LastMessage   *string     `db:"last_message" json:"last_message,omitempty"`
	LastMessageAt *time.Time  `db:"last_message_at" json:"last_message_at,omitempty"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
}

// HasParticipant сообщает, является ли пользователь участником чата.
func (c *Chat) HasParticipant(userID uuid.UUID) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// ChatMessage — сообщение чата; хранится отдельной записью и упорядочивается
// по времени создания.
type ChatMessage struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	ChatID    uuid.UUID   `db:"chat_id" json:"chat_id"`
	SenderID  uuid.UUID   `db:"sender_id" json:"sender_id"`
	Content   string      `db:"content" json:"content"`
	Files     []string    `db:"-" json:"files"`
	ReadBy    []uuid.UUID `db:"-" json:"read_by"`
	IsRead    bool        `db:"is_read" json:"is_read"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// ReadByUser сообщает, прочитано ли сообщение данным пользователем.
func (m *ChatMessage) ReadByUser(userID uuid.UUID) bool {
	for _, r := range m.ReadBy {
		if r == userID {
			return true
		}
	}
	return false
}
