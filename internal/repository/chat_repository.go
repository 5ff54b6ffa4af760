package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/escrow-backend/internal/models"
)

// ErrChatNotFound возвращается, когда чат не найден.
var ErrChatNotFound = errors.New("chat not found")

// ChatRepository отвечает за работу с таблицами chats и chat_messages.
type ChatRepository struct {
	db *sqlx.DB
}

// NewChatRepository создаёт экземпляр репозитория.
func NewChatRepository(db *sqlx.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// GetByID возвращает чат по идентификатору.
func (r *ChatRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	return r.getChat(ctx, `SELECT * FROM chats WHERE id = $1`, id)
}

// GetByDisputeID возвращает чат спора.
func (r *ChatRepository) GetByDisputeID(ctx context.Context, disputeID uuid.UUID) (*models.Chat, error) {
	return r.getChat(ctx, `SELECT * FROM chats WHERE dispute_id = $1`, disputeID)
}

func (r *ChatRepository) getChat(ctx context.Context, query string, arg interface{}) (*models.Chat, error) {
	var row struct {
		models.Chat
		RawParticipants pq.StringArray `db:"participants"`
	}
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("chat repository: get chat %w", err)
	}

	chat := row.Chat
	participants, err := parseUUIDs(row.RawParticipants)
	if err != nil {
		return nil, fmt.Errorf("chat repository: parse participants %w", err)
	}
	chat.Participants = participants

	return &chat, nil
}

// CreateMessage сохраняет сообщение и обновляет сводку чата в одной транзакции.
func (r *ChatRepository) CreateMessage(ctx context.Context, message *models.ChatMessage) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	readBy := make([]string, 0, len(message.ReadBy))
	for _, id := range message.ReadBy {
		readBy = append(readBy, id.String())
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO chat_messages (chat_id, sender_id, content, files, read_by, is_read)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		RETURNING id, created_at
	`,
		message.ChatID, message.SenderID, message.Content,
		pq.Array(message.Files), pq.Array(readBy),
	).Scan(&message.ID, &message.CreatedAt)
	if err != nil {
		return fmt.Errorf("chat repository: create message %w", err)
	}

	preview := message.Content
	if preview == "" && len(message.Files) > 0 {
		preview = "Вложение"
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE chats SET last_message = $2, last_message_at = NOW() WHERE id = $1
	`, message.ChatID, preview)
	if err != nil {
		return fmt.Errorf("chat repository: update last message %w", err)
	}

	return tx.Commit()
}

// ListMessages возвращает сообщения чата от старых к новым.
func (r *ChatRepository) ListMessages(ctx context.Context, chatID uuid.UUID, limit, offset int) ([]models.ChatMessage, error) {
	var rows []struct {
		models.ChatMessage
		RawFiles  pq.StringArray `db:"files"`
		RawReadBy pq.StringArray `db:"read_by"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM chat_messages
		WHERE chat_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`, chatID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("chat repository: list messages %w", err)
	}

	messages := make([]models.ChatMessage, 0, len(rows))
	for _, row := range rows {
		m := row.ChatMessage
		m.Files = []string(row.RawFiles)
		readBy, err := parseUUIDs(row.RawReadBy)
		if err != nil {
			return nil, fmt.Errorf("chat repository: parse read_by %w", err)
		}
		m.ReadBy = readBy
		messages = append(messages, m)
	}

	return messages, nil
}

// MarkRead помечает все чужие сообщения чата прочитанными для пользователя.
func (r *ChatRepository) MarkRead(ctx context.Context, chatID, userID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE chat_messages
		SET read_by = array_append(read_by, $2), is_read = TRUE
		WHERE chat_id = $1 AND sender_id <> $2 AND NOT ($2 = ANY(read_by))
	`, chatID, userID)
	if err != nil {
		return 0, fmt.Errorf("chat repository: mark read %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows, nil
}

// UnreadCount считает непрочитанные пользователем сообщения чата:
// сообщение не прочитано, если отправитель не он сам и его нет в read_by.
func (r *ChatRepository) UnreadCount(ctx context.Context, chatID, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM chat_messages
		WHERE chat_id = $1 AND sender_id <> $2 AND NOT ($2 = ANY(read_by))
	`, chatID, userID)
	if err != nil {
		return 0, fmt.Errorf("chat repository: unread count %w", err)
	}
	return count, nil
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
