package lifecycle

import "github.com/ignatzorin/escrow-backend/internal/models"

// MilestoneProgress — каноническая формула прогресса контракта:
// доля вех в статусе approved или payment_released, в процентах.
func MilestoneProgress(milestones []models.Milestone) float64 {
	if len(milestones) == 0 {
		return 0
	}
	done := 0
	for i := range milestones {
		switch milestones[i].Status {
		case models.MilestoneStatusApproved, models.MilestoneStatusPaymentReleased:
			done++
		}
	}
	return float64(done) / float64(len(milestones)) * 100
}

// ContractStatusWeight — историческая таблица весов прогресса по статусу
// контракта. Оставлена только для виджета на дашборде; канонической
// формулой является MilestoneProgress, значения двух формул могут расходиться.
var ContractStatusWeight = map[string]int{
	models.ContractStatusDraft:             0,
	models.ContractStatusOnboarding:        10,
	models.ContractStatusFundingPending:    20,
	models.ContractStatusFundingProcessing: 25,
	models.ContractStatusFundingOnHold:     30,
	models.ContractStatusActive:            50,
	models.ContractStatusInReview:          75,
	models.ContractStatusCompleted:         100,
	models.ContractStatusCancelled:         0,
	models.ContractStatusDisputed:          50,
	models.ContractStatusDisputedInProcess: 55,
	models.ContractStatusDisputedResolved:  60,
}

// StatusWeightProgress возвращает прогресс по исторической таблице весов.
func StatusWeightProgress(contractStatus string) int {
	return ContractStatusWeight[contractStatus]
}
