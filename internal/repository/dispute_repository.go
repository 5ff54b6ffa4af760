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

var (
	// ErrDisputeNotFound возвращается, когда спор не найден.
	ErrDisputeNotFound = errors.New("dispute not found")
	// ErrDisputeAlreadyOpen возвращается, когда по вехе уже есть незакрытый спор.
	ErrDisputeAlreadyOpen = errors.New("dispute already open for milestone")
)

// DisputeRepository отвечает за работу с таблицей disputes.
// Спор создаётся вместе со своим чатом в одной транзакции.
type DisputeRepository struct {
	db *sqlx.DB
}

// NewDisputeRepository создаёт экземпляр репозитория.
func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// Create создаёт спор и его чат, а также переводит контракт и веху в
// спорные статусы. Частичный уникальный индекс по открытым спорам
// гарантирует не более одного незакрытого спора на веху.
func (r *DisputeRepository) Create(ctx context.Context, dispute *models.Dispute, contractVersion int64) (*models.Chat, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO disputes (dispute_id, contract_id, milestone_id, raised_by, raised_to, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`,
		dispute.DisputeID, dispute.ContractID, dispute.MilestoneID,
		dispute.RaisedBy, dispute.RaisedTo, dispute.Reason, dispute.Status,
	).Scan(&dispute.ID, &dispute.CreatedAt, &dispute.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDisputeAlreadyOpen
		}
		return nil, fmt.Errorf("dispute repository: create %w", err)
	}

	chat := &models.Chat{
		DisputeID:    dispute.ID,
		Participants: []uuid.UUID{dispute.RaisedBy, dispute.RaisedTo},
	}
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO chats (dispute_id, participants)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, chat.DisputeID, pq.Array(chat.Participants),
	).Scan(&chat.ID, &chat.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: create chat %w", err)
	}

	if err := updateContractStatus(ctx, tx, dispute.ContractID, contractVersion, models.ContractStatusDisputed); err != nil {
		return nil, err
	}
	if err := updateMilestoneStatus(ctx, tx, dispute.MilestoneID, models.MilestoneStatusDisputed); err != nil {
		return nil, err
	}

	return chat, tx.Commit()
}

// GetByID возвращает спор по внутреннему идентификатору.
func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := r.db.GetContext(ctx, &dispute, `SELECT * FROM disputes WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, fmt.Errorf("dispute repository: get by id %w", err)
	}
	return &dispute, nil
}

// GetByDisputeID возвращает спор по публичному идентификатору вида DI-XXXXXXXXXX.
func (r *DisputeRepository) GetByDisputeID(ctx context.Context, disputeID string) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := r.db.GetContext(ctx, &dispute, `SELECT * FROM disputes WHERE dispute_id = $1`, disputeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, fmt.Errorf("dispute repository: get by dispute id %w", err)
	}
	return &dispute, nil
}

// GetOpenByMilestone возвращает незакрытый спор по вехе, если он есть.
func (r *DisputeRepository) GetOpenByMilestone(ctx context.Context, milestoneID uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.GetContext(ctx, &dispute, `
		SELECT * FROM disputes
		WHERE milestone_id = $1 AND status IN ('pending', 'process')
	`, milestoneID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, fmt.Errorf("dispute repository: get open by milestone %w", err)
	}
	return &dispute, nil
}

// ListByContract возвращает споры контракта.
func (r *DisputeRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.Dispute, error) {
	disputes := []models.Dispute{}
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT * FROM disputes WHERE contract_id = $1 ORDER BY created_at DESC
	`, contractID)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: list by contract %w", err)
	}
	return disputes, nil
}

// ListByCustomer возвращает споры, в которых пользователь участвует.
func (r *DisputeRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, status string, limit, offset int) ([]models.Dispute, error) {
	query := `SELECT * FROM disputes WHERE (raised_by = $1 OR raised_to = $1)`
	args := []interface{}{customerID}
	argIndex := 2

	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, status)
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	disputes := []models.Dispute{}
	if err := r.db.SelectContext(ctx, &disputes, query, args...); err != nil {
		return nil, fmt.Errorf("dispute repository: list by customer %w", err)
	}
	return disputes, nil
}

// List возвращает споры для админки.
func (r *DisputeRepository) List(ctx context.Context, status string, limit, offset int) ([]models.Dispute, error) {
	query := `SELECT * FROM disputes WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, status)
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	disputes := []models.Dispute{}
	if err := r.db.SelectContext(ctx, &disputes, query, args...); err != nil {
		return nil, fmt.Errorf("dispute repository: list %w", err)
	}
	return disputes, nil
}

// UpdateStatus переводит спор в новый статус вместе с контрактом и вехой.
func (r *DisputeRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, contractID uuid.UUID, contractVersion int64, contractStatus string, milestoneID uuid.UUID, milestoneStatus string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := updateDisputeStatus(ctx, tx, id, status); err != nil {
		return err
	}
	if err := updateContractStatus(ctx, tx, contractID, contractVersion, contractStatus); err != nil {
		return err
	}
	if err := updateMilestoneStatus(ctx, tx, milestoneID, milestoneStatus); err != nil {
		return err
	}

	return tx.Commit()
}

// Reject отклоняет спор и возвращает контракт и веху в рабочие статусы.
func (r *DisputeRepository) Reject(ctx context.Context, id uuid.UUID, details string, contractID uuid.UUID, contractVersion int64, milestoneID uuid.UUID, milestoneStatus string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE disputes SET status = $2, resolution_details = $3, updated_at = NOW()
		WHERE id = $1
	`, id, models.DisputeStatusRejected, details)
	if err != nil {
		return fmt.Errorf("dispute repository: reject %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrDisputeNotFound
	}

	if err := updateContractStatus(ctx, tx, contractID, contractVersion, models.ContractStatusActive); err != nil {
		return err
	}
	if err := updateMilestoneStatus(ctx, tx, milestoneID, milestoneStatus); err != nil {
		return err
	}

	return tx.Commit()
}

// Resolve закрывает спор с решением в пользу одной из сторон и атомарно
// переводит контракт и веху в итоговые статусы.
func (r *DisputeRepository) Resolve(ctx context.Context, id uuid.UUID, winner, details string, contractID uuid.UUID, contractVersion int64, contractStatus string, milestoneID uuid.UUID, milestoneStatus string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE disputes SET status = $2, winner = $3, resolution_details = $4, updated_at = NOW()
		WHERE id = $1
	`, id, models.DisputeStatusResolved, winner, details)
	if err != nil {
		return fmt.Errorf("dispute repository: resolve %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrDisputeNotFound
	}

	if err := updateContractStatus(ctx, tx, contractID, contractVersion, contractStatus); err != nil {
		return err
	}
	if err := updateMilestoneStatus(ctx, tx, milestoneID, milestoneStatus); err != nil {
		return err
	}

	return tx.Commit()
}

func updateDisputeStatus(ctx context.Context, ext sqlx.ExtContext, id uuid.UUID, status string) error {
	res, err := ext.ExecContext(ctx, `
		UPDATE disputes SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("dispute repository: update status %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrDisputeNotFound
	}
	return nil
}
