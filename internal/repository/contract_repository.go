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

var (
	// ErrContractNotFound возвращается, когда контракт не найден.
	ErrContractNotFound = errors.New("contract not found")
	// ErrMilestoneNotFound возвращается, когда веха не найдена.
	ErrMilestoneNotFound = errors.New("milestone not found")
	// ErrVersionConflict возвращается при конкурентном изменении контракта.
	ErrVersionConflict = errors.New("contract version conflict")
)

// ContractRepository отвечает за работу с таблицами contracts и milestones.
// Контракт и его вехи всегда пишутся в одной транзакции.
type ContractRepository struct {
	db *sqlx.DB
}

// NewContractRepository создаёт экземпляр репозитория.
func NewContractRepository(db *sqlx.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// Create создаёт контракт вместе со всеми вехами.
func (r *ContractRepository) Create(ctx context.Context, contract *models.Contract) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO contracts (contract_id, client_id, vendor_id, title, description, contract_type, budget, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, version, created_at, updated_at
	`,
		contract.ContractID, contract.ClientID, contract.VendorID,
		contract.Title, contract.Description, contract.ContractType,
		contract.Budget, contract.Status,
	).Scan(&contract.ID, &contract.Version, &contract.CreatedAt, &contract.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("contract repository: create %w", err)
	}

	for i := range contract.Milestones {
		m := &contract.Milestones[i]
		m.ContractID = contract.ID
		m.Position = i
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO milestones (milestone_id, contract_id, title, amount, position, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at
		`, m.MilestoneID, m.ContractID, m.Title, m.Amount, m.Position, m.Status,
		).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return fmt.Errorf("contract repository: create milestone %w", err)
		}
	}

	return tx.Commit()
}

// GetByID возвращает контракт с вехами по внутреннему идентификатору.
func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	if err := r.db.GetContext(ctx, &contract, `SELECT * FROM contracts WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("contract repository: get by id %w", err)
	}

	if err := r.loadMilestones(ctx, &contract); err != nil {
		return nil, err
	}

	return &contract, nil
}

// GetByContractID возвращает контракт по публичному идентификатору вида CT-XXXXXXXXXX.
func (r *ContractRepository) GetByContractID(ctx context.Context, contractID string) (*models.Contract, error) {
	var contract models.Contract
	if err := r.db.GetContext(ctx, &contract, `SELECT * FROM contracts WHERE contract_id = $1`, contractID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("contract repository: get by contract id %w", err)
	}

	if err := r.loadMilestones(ctx, &contract); err != nil {
		return nil, err
	}

	return &contract, nil
}

// GetMilestone возвращает веху по идентификатору.
func (r *ContractRepository) GetMilestone(ctx context.Context, id uuid.UUID) (*models.Milestone, error) {
	var milestone models.Milestone
	if err := r.db.GetContext(ctx, &milestone, `SELECT * FROM milestones WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMilestoneNotFound
		}
		return nil, fmt.Errorf("contract repository: get milestone %w", err)
	}

	return &milestone, nil
}

// ListByCustomer возвращает контракты, где пользователь заказчик или исполнитель.
func (r *ContractRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, status string, limit, offset int) ([]models.Contract, error) {
	query := `SELECT * FROM contracts WHERE (client_id = $1 OR vendor_id = $1)`
	args := []interface{}{customerID}
	argIndex := 2

	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, status)
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	contracts := []models.Contract{}
	if err := r.db.SelectContext(ctx, &contracts, query, args...); err != nil {
		return nil, fmt.Errorf("contract repository: list by customer %w", err)
	}

	for i := range contracts {
		if err := r.loadMilestones(ctx, &contracts[i]); err != nil {
			return nil, err
		}
	}

	return contracts, nil
}

// ListByStatus возвращает контракты для админки.
func (r *ContractRepository) ListByStatus(ctx context.Context, status string, limit, offset int) ([]models.Contract, error) {
	query := `SELECT * FROM contracts WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, status)
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	contracts := []models.Contract{}
	if err := r.db.SelectContext(ctx, &contracts, query, args...); err != nil {
		return nil, fmt.Errorf("contract repository: list by status %w", err)
	}

	for i := range contracts {
		if err := r.loadMilestones(ctx, &contracts[i]); err != nil {
			return nil, err
		}
	}

	return contracts, nil
}

// UpdateStatus переводит контракт в новый статус с проверкой версии.
// Версия защищает от конкурентных переходов: проигравший получает ErrVersionConflict.
func (r *ContractRepository) UpdateStatus(ctx context.Context, id uuid.UUID, version int64, status string) error {
	return updateContractStatus(ctx, r.db, id, version, status)
}

// UpdateMilestoneStatus переводит веху в новый статус.
func (r *ContractRepository) UpdateMilestoneStatus(ctx context.Context, id uuid.UUID, status string) error {
	return updateMilestoneStatus(ctx, r.db, id, status)
}

// UpdateContractAndMilestone атомарно переводит контракт и веху в новые статусы.
func (r *ContractRepository) UpdateContractAndMilestone(ctx context.Context, contractID uuid.UUID, version int64, contractStatus string, milestoneID uuid.UUID, milestoneStatus string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := updateContractStatus(ctx, tx, contractID, version, contractStatus); err != nil {
		return err
	}
	if err := updateMilestoneStatus(ctx, tx, milestoneID, milestoneStatus); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *ContractRepository) loadMilestones(ctx context.Context, contract *models.Contract) error {
	milestones := []models.Milestone{}
	err := r.db.SelectContext(ctx, &milestones, `
		SELECT * FROM milestones WHERE contract_id = $1 ORDER BY position
	`, contract.ID)
	if err != nil {
		return fmt.Errorf("contract repository: load milestones %w", err)
	}
	contract.Milestones = milestones
	return nil
}

func updateContractStatus(ctx context.Context, ext sqlx.ExtContext, id uuid.UUID, version int64, status string) error {
	res, err := ext.ExecContext(ctx, `
		UPDATE contracts SET status = $2, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $3
	`, id, status, version)
	if err != nil {
		return fmt.Errorf("contract repository: update status %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrVersionConflict
	}
	return nil
}

func updateMilestoneStatus(ctx context.Context, ext sqlx.ExtContext, id uuid.UUID, status string) error {
	res, err := ext.ExecContext(ctx, `
		UPDATE milestones SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("contract repository: update milestone status %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrMilestoneNotFound
	}
	return nil
}
