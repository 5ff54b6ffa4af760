package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrow-backend/internal/models"
)

// ErrNotificationNotFound возвращается, когда уведомление не найдено.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationRepository отвечает за работу с уведомлениями и FCM токенами.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository создаёт экземпляр репозитория.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create создаёт новое уведомление.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, payload, is_read)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		notification.UserID, notification.Payload, notification.IsRead,
	).Scan(&notification.ID, &notification.CreatedAt); err != nil {
		return fmt.Errorf("notification repository: create %w", err)
	}

	return nil
}

// GetByID возвращает уведомление по идентификатору.
func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var notification models.Notification
	if err := r.db.GetContext(ctx, &notification, `SELECT * FROM notifications WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("notification repository: get by id %w", err)
	}

	return &notification, nil
}

// List возвращает список уведомлений пользователя с пагинацией.
func (r *NotificationRepository) List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	query := `SELECT * FROM notifications WHERE user_id = $1`
	args := []interface{}{userID}
	argIndex := 2

	if unreadOnly {
		query += " AND is_read = FALSE"
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	notifications := []models.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, fmt.Errorf("notification repository: list %w", err)
	}

	return notifications, nil
}

// MarkRead помечает уведомление прочитанным.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("notification repository: mark read %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

// MarkAllRead помечает все уведомления пользователя прочитанными.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("notification repository: mark all read %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows, nil
}

// UnreadCount считает непрочитанные уведомления пользователя.
func (r *NotificationRepository) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("notification repository: unread count %w", err)
	}
	return count, nil
}

// UpsertDeviceToken сохраняет FCM токен устройства пользователя.
func (r *NotificationRepository) UpsertDeviceToken(ctx context.Context, customerID uuid.UUID, token string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO device_tokens (customer_id, fcm_token)
		VALUES ($1, $2)
		ON CONFLICT (customer_id) DO UPDATE SET fcm_token = EXCLUDED.fcm_token, updated_at = NOW()
	`, customerID, token)
	if err != nil {
		return fmt.Errorf("notification repository: upsert device token %w", err)
	}
	return nil
}

// GetDeviceToken возвращает FCM токен пользователя, если он зарегистрирован.
func (r *NotificationRepository) GetDeviceToken(ctx context.Context, customerID uuid.UUID) (*models.DeviceToken, error) {
	var token models.DeviceToken
	if err := r.db.GetContext(ctx, &token, `SELECT * FROM device_tokens WHERE customer_id = $1`, customerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("notification repository: get device token %w", err)
	}
	return &token, nil
}

// DeleteDeviceToken удаляет FCM токен пользователя.
func (r *NotificationRepository) DeleteDeviceToken(ctx context.Context, customerID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM device_tokens WHERE customer_id = $1`, customerID)
	if err != nil {
		return fmt.Errorf("notification repository: delete device token %w", err)
	}
	return nil
}
