package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/escrow-backend/internal/models"
)

func milestonesWith(statuses ...string) []models.Milestone {
	out := make([]models.Milestone, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, models.Milestone{Status: s})
	}
	return out
}

func TestMilestoneProgress(t *testing.T) {
	assert.Equal(t, 0.0, MilestoneProgress(nil))
	assert.Equal(t, 0.0, MilestoneProgress(milestonesWith(
		models.MilestoneStatusPending,
		models.MilestoneStatusWorking,
	)))

	// Готовой считается веха в approved или payment_released.
	assert.Equal(t, 50.0, MilestoneProgress(milestonesWith(
		models.MilestoneStatusApproved,
		models.MilestoneStatusWorking,
	)))
	assert.InDelta(t, 66.6667, MilestoneProgress(milestonesWith(
		models.MilestoneStatusPaymentReleased,
		models.MilestoneStatusApproved,
		models.MilestoneStatusReadyForReview,
	)), 0.001)
	assert.Equal(t, 100.0, MilestoneProgress(milestonesWith(
		models.MilestoneStatusPaymentReleased,
		models.MilestoneStatusPaymentReleased,
	)))

	// Спорные статусы не засчитываются.
	assert.Equal(t, 0.0, MilestoneProgress(milestonesWith(
		models.MilestoneStatusDisputed,
		models.MilestoneStatusDisputedInProcess,
	)))
}

func TestStatusWeightProgress(t *testing.T) {
	assert.Equal(t, 0, StatusWeightProgress(models.ContractStatusDraft))
	assert.Equal(t, 50, StatusWeightProgress(models.ContractStatusActive))
	assert.Equal(t, 75, StatusWeightProgress(models.ContractStatusInReview))
	assert.Equal(t, 100, StatusWeightProgress(models.ContractStatusCompleted))
	assert.Equal(t, 0, StatusWeightProgress(models.ContractStatusCancelled))
	assert.Equal(t, 0, StatusWeightProgress("unknown"))
}

// Две проекции прогресса сознательно расходятся: контракт в in_review
// оценивается таблицей весов в 75%, хотя ни одна веха может быть не принята.
func TestProgressFormulasDiverge(t *testing.T) {
	milestones := milestonesWith(
		models.MilestoneStatusReadyForReview,
		models.MilestoneStatusPending,
	)
	assert.Equal(t, 0.0, MilestoneProgress(milestones))
	assert.Equal(t, 75, StatusWeightProgress(models.ContractStatusInReview))
}
