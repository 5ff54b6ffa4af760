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

// ErrKycNotFound возвращается, когда запись KYC не найдена.
var ErrKycNotFound = errors.New("kyc record not found")

// KycRepository отвечает за работу с таблицами kyc_records, kyc_documents
// и kyc_verifications. Каждое изменение статуса пишется вместе с записью
// аудита в одной транзакции.
type KycRepository struct {
	db *sqlx.DB
}

// NewKycRepository создаёт экземпляр репозитория.
func NewKycRepository(db *sqlx.DB) *KycRepository {
	return &KycRepository{db: db}
}

// GetOrCreate возвращает запись KYC пользователя, создавая её при первом обращении.
func (r *KycRepository) GetOrCreate(ctx context.Context, customerID uuid.UUID) (*models.Kyc, error) {
	var kyc models.Kyc
	err := r.db.GetContext(ctx, &kyc, `
		INSERT INTO kyc_records (customer_id, status)
		VALUES ($1, $2)
		ON CONFLICT (customer_id) DO UPDATE SET updated_at = kyc_records.updated_at
		RETURNING id, customer_id, status, rejection_reason, verified_at, verified_by, expires_at, created_at, updated_at
	`, customerID, models.KycStatusPending)
	if err != nil {
		return nil, fmt.Errorf("kyc repository: get or create %w", err)
	}

	if err := r.loadDocuments(ctx, &kyc); err != nil {
		return nil, err
	}

	return &kyc, nil
}

// GetByCustomerID возвращает запись KYC вместе с документами.
func (r *KycRepository) GetByCustomerID(ctx context.Context, customerID uuid.UUID) (*models.Kyc, error) {
	var kyc models.Kyc
	if err := r.db.GetContext(ctx, &kyc, `SELECT * FROM kyc_records WHERE customer_id = $1`, customerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKycNotFound
		}
		return nil, fmt.Errorf("kyc repository: get by customer %w", err)
	}

	if err := r.loadDocuments(ctx, &kyc); err != nil {
		return nil, err
	}

	return &kyc, nil
}

// AddDocument прикрепляет документ к записи KYC.
func (r *KycRepository) AddDocument(ctx context.Context, doc *models.KycDocument) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO kyc_documents (kyc_id, doc_type, file_url)
		VALUES ($1, $2, $3)
		RETURNING id, uploaded_at
	`, doc.KycID, doc.DocType, doc.FileURL,
	).Scan(&doc.ID, &doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("kyc repository: add document %w", err)
	}

	return nil
}

// UpdateStatus переводит запись KYC в новый статус и пишет запись аудита.
// Для approved заполняются verified_at, verified_by и годовой срок действия,
// для rejected — причина.
func (r *KycRepository) UpdateStatus(ctx context.Context, kyc *models.Kyc, toStatus string, adminID uuid.UUID, reason *string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var res sql.Result
	switch toStatus {
	case models.KycStatusApproved:
		res, err = tx.ExecContext(ctx, `
			UPDATE kyc_records
			SET status = $2, verified_at = NOW(), verified_by = $3,
				expires_at = NOW() + INTERVAL '365 days',
				rejection_reason = NULL, updated_at = NOW()
			WHERE id = $1
		`, kyc.ID, toStatus, adminID)
	case models.KycStatusRejected:
		res, err = tx.ExecContext(ctx, `
			UPDATE kyc_records
			SET status = $2, rejection_reason = $3, updated_at = NOW()
			WHERE id = $1
		`, kyc.ID, toStatus, reason)
	default:
		res, err = tx.ExecContext(ctx, `
			UPDATE kyc_records SET status = $2, updated_at = NOW() WHERE id = $1
		`, kyc.ID, toStatus)
	}
	if err != nil {
		return fmt.Errorf("kyc repository: update status %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrKycNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO kyc_verifications (kyc_id, customer_id, admin_id, from_status, to_status, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, kyc.ID, kyc.CustomerID, adminID, kyc.Status, toStatus, reason)
	if err != nil {
		return fmt.Errorf("kyc repository: write audit %w", err)
	}

	return tx.Commit()
}

// Reset возвращает отклонённую или отозванную запись в pending при повторной подаче.
func (r *KycRepository) Reset(ctx context.Context, kycID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE kyc_records
		SET status = $2, rejection_reason = NULL, verified_at = NULL, verified_by = NULL,
			expires_at = NULL, updated_at = NOW()
		WHERE id = $1
	`, kycID, models.KycStatusPending)
	if err != nil {
		return fmt.Errorf("kyc repository: reset %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrKycNotFound
	}

	return nil
}

// ListByStatus возвращает очередь записей KYC для админки.
func (r *KycRepository) ListByStatus(ctx context.Context, status string, limit, offset int) ([]models.Kyc, error) {
	query := `SELECT * FROM kyc_records WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, status)
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY created_at LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	records := []models.Kyc{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("kyc repository: list by status %w", err)
	}

	for i := range records {
		if err := r.loadDocuments(ctx, &records[i]); err != nil {
			return nil, err
		}
	}

	return records, nil
}

// ListVerifications возвращает журнал решений по записи KYC.
func (r *KycRepository) ListVerifications(ctx context.Context, kycID uuid.UUID) ([]models.KycVerification, error) {
	verifications := []models.KycVerification{}
	err := r.db.SelectContext(ctx, &verifications, `
		SELECT * FROM kyc_verifications WHERE kyc_id = $1 ORDER BY created_at
	`, kycID)
	if err != nil {
		return nil, fmt.Errorf("kyc repository: list verifications %w", err)
	}
	return verifications, nil
}

func (r *KycRepository) loadDocuments(ctx context.Context, kyc *models.Kyc) error {
	docs := []models.KycDocument{}
	err := r.db.SelectContext(ctx, &docs, `
		SELECT * FROM kyc_documents WHERE kyc_id = $1 ORDER BY uploaded_at
	`, kyc.ID)
	if err != nil {
		return fmt.Errorf("kyc repository: load documents %w", err)
	}
	kyc.Documents = docs
	return nil
}
