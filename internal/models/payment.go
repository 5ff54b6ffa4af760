package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment агрегирует все движения средств по контракту.
// На контракт существует ровно один платёж.
type Payment struct {
	ID                    uuid.UUID `db:"id" json:"id"`
	ContractID            uuid.UUID `db:"contract_id" json:"contract_id"`
	PayerID               uuid.UUID `db:"payer_id" json:"payer_id"`
	PayeeID               uuid.UUID `db:"payee_id" json:"payee_id"`
	TotalAmount           float64   `db:"total_amount" json:"total_amount"`
	PlatformFee           float64   `db:"platform_fee" json:"platform_fee"`
	EscrowAmount          float64   `db:"escrow_amount" json:"escrow_amount"`
	StripePaymentIntentID string    `db:"stripe_payment_intent_id" json:"stripe_payment_intent_id"`
	OnHoldAmount          float64   `db:"on_hold_amount" json:"on_hold_amount"`
	ReleasedAmount        float64   `db:"released_amount" json:"released_amount"`
	Status                string    `db:"status" json:"status"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction — неизменяемая запись журнала движений средств.
// После перехода в терминальный статус меняться может только статус.
type Transaction struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PaymentID   uuid.UUID  `db:"payment_id" json:"payment_id"`
	ContractID  uuid.UUID  `db:"contract_id" json:"contract_id"`
	MilestoneID *uuid.UUID `db:"milestone_id" json:"milestone_id,omitempty"`
	Type        string     `db:"type" json:"type"`
	Amount      float64    `db:"amount" json:"amount"`
	Status      string     `db:"status" json:"status"`
	Description string     `db:"description" json:"description"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}
