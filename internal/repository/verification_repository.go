package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrow-backend/internal/models"
)

var ErrVerificationCodeNotFound = errors.New("verification code not found")

// VerificationRepository отвечает за одноразовые коды подтверждения.
type VerificationRepository struct {
	db *sqlx.DB
}

func NewVerificationRepository(db *sqlx.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// CreateCode создаёт новый код подтверждения.
func (r *VerificationRepository) CreateCode(ctx context.Context, customerID uuid.UUID, codeType, code string, expiresAt time.Time) (*models.VerificationCode, error) {
	var vc models.VerificationCode
	err := r.db.GetContext(ctx, &vc, `
		INSERT INTO verification_codes (customer_id, code_type, code, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, customerID, codeType, code, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("verification repository: create code %w", err)
	}
	return &vc, nil
}

// ConsumeCode проверяет код и помечает его использованным.
// Возвращает false, если действующий код не найден.
func (r *VerificationRepository) ConsumeCode(ctx context.Context, customerID uuid.UUID, codeType, code string) (bool, error) {
	var vc models.VerificationCode
	err := r.db.GetContext(ctx, &vc, `
		SELECT * FROM verification_codes
		WHERE customer_id = $1 AND code_type = $2 AND code = $3
			AND used_at IS NULL AND expires_at > NOW()
		ORDER BY created_at DESC LIMIT 1
	`, customerID, codeType, code)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("verification repository: consume code %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `
		UPDATE verification_codes SET used_at = NOW() WHERE id = $1
	`, vc.ID); err != nil {
		return false, fmt.Errorf("verification repository: mark used %w", err)
	}

	return true, nil
}

// DeleteExpired удаляет просроченные коды. Вызывается фоновой задачей.
func (r *VerificationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM verification_codes WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("verification repository: delete expired %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows, nil
}
