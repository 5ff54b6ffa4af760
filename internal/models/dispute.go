package models

import (
	"time"

	"github.com/google/uuid"
)

// Dispute описывает спор по конкретной вехе контракта.
type Dispute struct {
	ID                uuid.UUID `db:"id" json:"id"`
	DisputeID         string    `db:"dispute_id" json:"dispute_id"`
	ContractID        uuid.UUID `db:"contract_id" json:"contract_id"`
	MilestoneID       uuid.UUID `db:"milestone_id" json:"milestone_id"`
	RaisedBy          uuid.UUID `db:"raised_by" json:"raised_by"`
	RaisedTo          uuid.UUID `db:"raised_to" json:"raised_to"`
	Reason            string    `db:"reason" json:"reason"`
	Status            string    `db:"status" json:"status"`
	ResolutionDetails *string   `db:"resolution_details" json:"resolution_details,omitempty"`
	Winner            *string   `db:"winner" json:"winner,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// IsOpen сообщает, не закрыт ли ещё спор.
func (d *Dispute) IsOpen() bool {
	return d.Status == DisputeStatusPending || d.Status == DisputeStatusProcess
}
