package models

import (
	"time"

	"github.com/google/uuid"
)

// Contract описывает эскроу-контракт между заказчиком и исполнителем.
// Контракт владеет своими вехами: они загружаются и сохраняются только
// вместе с контрактом.
type Contract struct {
	ID           uuid.UUID   `db:"id" json:"id"`
	ContractID   string      `db:"contract_id" json:"contract_id"`
	ClientID     uuid.UUID   `db:"client_id" json:"client_id"`
	VendorID     uuid.UUID   `db:"vendor_id" json:"vendor_id"`
	Title        string      `db:"title" json:"title"`
	Description  string      `db:"description" json:"description"`
	ContractType string      `db:"contract_type" json:"contract_type"`
	Budget       float64     `db:"budget" json:"budget"`
	Status       string      `db:"status" json:"status"`
	Version      int64       `db:"version" json:"version"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
	Milestones   []Milestone `json:"milestones"`
}

// Milestone описывает веху контракта, оплачиваемую из эскроу.
type Milestone struct {
	ID          uuid.UUID `db:"id" json:"id"`
	MilestoneID string    `db:"milestone_id" json:"milestone_id"`
	ContractID  uuid.UUID `db:"contract_id" json:"contract_id"`
	Title       string    `db:"title" json:"title"`
	Amount      float64   `db:"amount" json:"amount"`
	Position    int       `db:"position" json:"position"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// IsParticipant сообщает, участвует ли пользователь в контракте.
func (c *Contract) IsParticipant(userID uuid.UUID) bool {
	return c.ClientID == userID || c.VendorID == userID
}

// FindMilestone возвращает веху по её идентификатору внутри контракта.
func (c *Contract) FindMilestone(milestoneID uuid.UUID) *Milestone {
	for i := range c.Milestones {
		if c.Milestones[i].ID == milestoneID {
			return &c.Milestones[i]
		}
	}
	return nil
}

// FirstPendingMilestone возвращает первую веху в статусе pending.
func (c *Contract) FirstPendingMilestone() *Milestone {
	for i := range c.Milestones {
		if c.Milestones[i].Status == MilestoneStatusPending {
			return &c.Milestones[i]
		}
	}
	return nil
}

// AllMilestonesReleased сообщает, оплачены ли все вехи контракта.
func (c *Contract) AllMilestonesReleased() bool {
	if len(c.Milestones) == 0 {
		return false
	}
	for i := range c.Milestones {
		if c.Milestones[i].Status != MilestoneStatusPaymentReleased {
			return false
		}
	}
	return true
}
