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

// ErrPaymentNotFound возвращается, когда платёж не найден.
var ErrPaymentNotFound = errors.New("payment not found")

// PaymentRepository отвечает за работу с таблицами payments и transactions.
// Все методы, меняющие несколько записей, выполняются в одной транзакции;
// методы с callback вызывают его до коммита: если внешний вызов (Stripe)
// упал, изменения в базе откатываются.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository создаёт экземпляр репозитория.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create создаёт платёж и стартовые записи журнала (комиссия и пополнение
// эскроу) и переводит контракт в funding_processing. Всё в одной транзакции.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment, transactions []models.Transaction, contractVersion int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO payments (contract_id, payer_id, payee_id, total_amount, platform_fee, escrow_amount, stripe_payment_intent_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`,
		payment.ContractID, payment.PayerID, payment.PayeeID,
		payment.TotalAmount, payment.PlatformFee, payment.EscrowAmount,
		payment.StripePaymentIntentID, payment.Status,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("payment repository: create %w", err)
	}

	for i := range transactions {
		t := &transactions[i]
		t.PaymentID = payment.ID
		t.ContractID = payment.ContractID
		if err := insertTransaction(ctx, tx, t); err != nil {
			return err
		}
	}

	if err := updateContractStatus(ctx, tx, payment.ContractID, contractVersion, models.ContractStatusFundingProcessing); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID возвращает платёж по идентификатору.
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, `SELECT * FROM payments WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payment repository: get by id %w", err)
	}
	return &payment, nil
}

// GetByContractID возвращает платёж контракта.
func (r *PaymentRepository) GetByContractID(ctx context.Context, contractID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, `SELECT * FROM payments WHERE contract_id = $1`, contractID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payment repository: get by contract %w", err)
	}
	return &payment, nil
}

// GetByIntentID возвращает платёж по идентификатору Stripe PaymentIntent.
func (r *PaymentRepository) GetByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, `SELECT * FROM payments WHERE stripe_payment_intent_id = $1`, intentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("payment repository: get by intent %w", err)
	}
	return &payment, nil
}

// ConfirmFunding фиксирует успешную авторизацию платежа: платёж переходит
// в on_hold с заполненной суммой удержания, записи журнала завершаются,
// контракт переходит в funding_onhold. Всё в одной транзакции.
func (r *PaymentRepository) ConfirmFunding(ctx context.Context, paymentID, contractID uuid.UUID, version int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE payments
		SET status = $2, on_hold_amount = escrow_amount, updated_at = NOW()
		WHERE id = $1
	`, paymentID, models.PaymentStatusOnHold)
	if err != nil {
		return fmt.Errorf("payment repository: confirm funding %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE transactions SET status = $2, completed_at = NOW()
		WHERE payment_id = $1 AND status = $3
	`, paymentID, models.TransactionStatusCompleted, models.TransactionStatusPending)
	if err != nil {
		return fmt.Errorf("payment repository: confirm funding transactions %w", err)
	}

	if err := updateContractStatus(ctx, tx, contractID, version, models.ContractStatusFundingOnHold); err != nil {
		return err
	}

	return tx.Commit()
}

// ActivateWithCapture активирует контракт: контракт переходит в active,
// первая веха — в working. Захват средств (capture) выполняется до коммита:
// если Stripe отказал, транзакция откатывается и контракт не активируется.
func (r *PaymentRepository) ActivateWithCapture(ctx context.Context, contractID uuid.UUID, version int64, firstMilestoneID uuid.UUID, capture func(context.Context) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := updateContractStatus(ctx, tx, contractID, version, models.ContractStatusActive); err != nil {
		return err
	}
	if err := updateMilestoneStatus(ctx, tx, firstMilestoneID, models.MilestoneStatusWorking); err != nil {
		return err
	}

	if err := capture(ctx); err != nil {
		return fmt.Errorf("payment repository: capture %w", err)
	}

	return tx.Commit()
}

// ReleaseMilestone выплачивает веху исполнителю: веха переходит в
// payment_released, суммы платежа сдвигаются, контракт получает новый
// статус. Перевод средств (transfer) выполняется до коммита.
func (r *PaymentRepository) ReleaseMilestone(ctx context.Context, paymentID uuid.UUID, milestone *models.Milestone, contractID uuid.UUID, version int64, contractStatus, paymentStatus string, nextMilestoneID *uuid.UUID, transfer func(context.Context) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE payments
		SET released_amount = released_amount + $2,
			on_hold_amount = on_hold_amount - $2,
			status = $3,
			updated_at = NOW()
		WHERE id = $1
	`, paymentID, milestone.Amount, paymentStatus)
	if err != nil {
		return fmt.Errorf("payment repository: release %w", err)
	}

	release := &models.Transaction{
		PaymentID:   paymentID,
		ContractID:  contractID,
		MilestoneID: &milestone.ID,
		Type:        models.TransactionTypeRelease,
		Amount:      milestone.Amount,
		Status:      models.TransactionStatusCompleted,
		Description: fmt.Sprintf("Выплата по вехе %s", milestone.MilestoneID),
	}
	if err := insertTransaction(ctx, tx, release); err != nil {
		return err
	}

	if err := updateMilestoneStatus(ctx, tx, milestone.ID, models.MilestoneStatusPaymentReleased); err != nil {
		return err
	}
	if nextMilestoneID != nil {
		if err := updateMilestoneStatus(ctx, tx, *nextMilestoneID, models.MilestoneStatusWorking); err != nil {
			return err
		}
	}
	if err := updateContractStatus(ctx, tx, contractID, version, contractStatus); err != nil {
		return err
	}

	if err := transfer(ctx); err != nil {
		return fmt.Errorf("payment repository: transfer %w", err)
	}

	return tx.Commit()
}

// Refund возвращает удержанные средства заказчику. Возврат в Stripe
// выполняется до коммита.
func (r *PaymentRepository) Refund(ctx context.Context, paymentID, contractID uuid.UUID, version int64, amount float64, description string, refund func(context.Context) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE payments
		SET status = $2, on_hold_amount = on_hold_amount - $3, updated_at = NOW()
		WHERE id = $1
	`, paymentID, models.PaymentStatusRefunded, amount)
	if err != nil {
		return fmt.Errorf("payment repository: refund %w", err)
	}

	refundTx := &models.Transaction{
		PaymentID:   paymentID,
		ContractID:  contractID,
		Type:        models.TransactionTypeRefund,
		Amount:      amount,
		Status:      models.TransactionStatusCompleted,
		Description: description,
	}
	if err := insertTransaction(ctx, tx, refundTx); err != nil {
		return err
	}

	if err := updateContractStatus(ctx, tx, contractID, version, models.ContractStatusCancelled); err != nil {
		return err
	}

	if err := refund(ctx); err != nil {
		return fmt.Errorf("payment repository: stripe refund %w", err)
	}

	return tx.Commit()
}

// MarkFailed помечает платёж неуспешным.
func (r *PaymentRepository) MarkFailed(ctx context.Context, paymentID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments SET status = $2, updated_at = NOW() WHERE id = $1
	`, paymentID, models.PaymentStatusFailed)
	if err != nil {
		return fmt.Errorf("payment repository: mark failed %w", err)
	}
	return nil
}

// ListTransactions возвращает журнал движений средств платежа.
func (r *PaymentRepository) ListTransactions(ctx context.Context, paymentID uuid.UUID) ([]models.Transaction, error) {
	transactions := []models.Transaction{}
	err := r.db.SelectContext(ctx, &transactions, `
		SELECT * FROM transactions WHERE payment_id = $1 ORDER BY created_at
	`, paymentID)
	if err != nil {
		return nil, fmt.Errorf("payment repository: list transactions %w", err)
	}
	return transactions, nil
}

func insertTransaction(ctx context.Context, tx *sqlx.Tx, t *models.Transaction) error {
	query := `
		INSERT INTO transactions (payment_id, contract_id, milestone_id, type, amount, status, description, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CASE WHEN $6 = 'completed' THEN NOW() ELSE NULL END)
		RETURNING id, created_at
	`
	if err := tx.QueryRowxContext(
		ctx, query,
		t.PaymentID, t.ContractID, t.MilestoneID, t.Type, t.Amount, t.Status, t.Description,
	).Scan(&t.ID, &t.CreatedAt); err != nil {
		return fmt.Errorf("payment repository: insert transaction %w", err)
	}
	return nil
}
