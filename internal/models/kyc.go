package models

import (
	"time"

	"github.com/google/uuid"
)

// Kyc — единственная запись верификации KYC пользователя.
type Kyc struct {
	ID              uuid.UUID     `db:"id" json:"id"`
	CustomerID      uuid.UUID     `db:"customer_id" json:"customer_id"`
	Status          string        `db:"status" json:"status"`
	RejectionReason *string       `db:"rejection_reason" json:"rejection_reason,omitempty"`
	VerifiedAt      *time.Time    `db:"verified_at" json:"verified_at,omitempty"`
	VerifiedBy      *uuid.UUID    `db:"verified_by" json:"verified_by,omitempty"`
	ExpiresAt       *time.Time    `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
	Documents       []KycDocument `json:"documents"`
}

// KycDocument — загруженный документ, прикреплённый к записи KYC.
type KycDocument struct {
	ID         uuid.UUID `db:"id" json:"id"`
	KycID      uuid.UUID `db:"kyc_id" json:"kyc_id"`
	DocType    string    `db:"doc_type" json:"doc_type"`
	FileURL    string    `db:"file_url" json:"file_url"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// KycVerification — неизменяемая запись журнала решений по верификации.
// Пишется в одной транзакции с изменением статуса KYC.
type KycVerification struct {
	ID         uuid.UUID `db:"id" json:"id"`
	KycID      uuid.UUID `db:"kyc_id" json:"kyc_id"`
	CustomerID uuid.UUID `db:"customer_id" json:"customer_id"`
	AdminID    uuid.UUID `db:"admin_id" json:"admin_id"`
	FromStatus string    `db:"from_status" json:"from_status"`
	ToStatus   string    `db:"to_status" json:"to_status"`
	Reason     *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
