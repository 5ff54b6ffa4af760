package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/escrow-backend/internal/models"
)

func TestContractTransition_HappyPath(t *testing.T) {
	path := []string{
		models.ContractStatusDraft,
		models.ContractStatusOnboarding,
		models.ContractStatusFundingPending,
		models.ContractStatusFundingProcessing,
		models.ContractStatusFundingOnHold,
		models.ContractStatusActive,
		models.ContractStatusInReview,
		models.ContractStatusActive,
		models.ContractStatusCompleted,
	}
	for i := 0; i < len(path)-1; i++ {
		assert.NoError(t, ContractTransition(path[i], path[i+1]),
			"переход %s -> %s", path[i], path[i+1])
	}
}

func TestContractTransition_InviteOnlyFromOnboarding(t *testing.T) {
	// Принять приглашение можно только из onboarding.
	assert.NoError(t, ContractTransition(models.ContractStatusOnboarding, models.ContractStatusFundingPending))
	assert.Error(t, ContractTransition(models.ContractStatusDraft, models.ContractStatusFundingPending))
	assert.Error(t, ContractTransition(models.ContractStatusCancelled, models.ContractStatusFundingPending))
}

func TestContractTransition_TerminalStatuses(t *testing.T) {
	for _, from := range []string{models.ContractStatusCompleted, models.ContractStatusCancelled} {
		for to := range models.ValidContractStatuses {
			assert.Error(t, ContractTransition(from, to), "из %s нет выхода, попытка %s", from, to)
		}
	}
}

func TestContractTransition_DisputeMirror(t *testing.T) {
	assert.NoError(t, ContractTransition(models.ContractStatusActive, models.ContractStatusDisputed))
	assert.NoError(t, ContractTransition(models.ContractStatusInReview, models.ContractStatusDisputed))
	assert.NoError(t, ContractTransition(models.ContractStatusDisputed, models.ContractStatusDisputedInProcess))
	assert.NoError(t, ContractTransition(models.ContractStatusDisputed, models.ContractStatusActive))
	assert.NoError(t, ContractTransition(models.ContractStatusDisputedInProcess, models.ContractStatusActive))

	// Спор нельзя открыть до появления средств в эскроу.
	assert.Error(t, ContractTransition(models.ContractStatusDraft, models.ContractStatusDisputed))
	assert.Error(t, ContractTransition(models.ContractStatusFundingPending, models.ContractStatusDisputed))
}

func TestContractTransition_ErrorNamesStatuses(t *testing.T) {
	err := ContractTransition(models.ContractStatusDraft, models.ContractStatusCompleted)
	assert.Error(t, err)

	var trErr *TransitionError
	assert.ErrorAs(t, err, &trErr)
	assert.Equal(t, models.ContractStatusDraft, trErr.From)
	assert.Equal(t, models.ContractStatusCompleted, trErr.To)
	assert.Contains(t, err.Error(), "draft")
	assert.Contains(t, err.Error(), "completed")
}

func TestMilestoneTransition(t *testing.T) {
	assert.NoError(t, MilestoneTransition(models.MilestoneStatusPending, models.MilestoneStatusWorking))
	assert.NoError(t, MilestoneTransition(models.MilestoneStatusWorking, models.MilestoneStatusReadyForReview))
	assert.NoError(t, MilestoneTransition(models.MilestoneStatusReadyForReview, models.MilestoneStatusApproved))
	assert.NoError(t, MilestoneTransition(models.MilestoneStatusReadyForReview, models.MilestoneStatusChangeRequested))
	assert.NoError(t, MilestoneTransition(models.MilestoneStatusChangeRequested, models.MilestoneStatusReadyForReview))
	assert.NoError(t, MilestoneTransition(models.MilestoneStatusApproved, models.MilestoneStatusPaymentReleased))

	// Выплата — терминальный статус вехи.
	assert.Error(t, MilestoneTransition(models.MilestoneStatusPaymentReleased, models.MilestoneStatusWorking))
	// Приёмка без отправки на проверку невозможна.
	assert.Error(t, MilestoneTransition(models.MilestoneStatusWorking, models.MilestoneStatusApproved))
	assert.Error(t, MilestoneTransition(models.MilestoneStatusPending, models.MilestoneStatusPaymentReleased))
}

func TestDisputeTransition(t *testing.T) {
	assert.NoError(t, DisputeTransition(models.DisputeStatusPending, models.DisputeStatusProcess))
	assert.NoError(t, DisputeTransition(models.DisputeStatusPending, models.DisputeStatusRejected))
	assert.NoError(t, DisputeTransition(models.DisputeStatusProcess, models.DisputeStatusResolved))

	// Взятый в работу спор нельзя отклонить, только решить.
	assert.Error(t, DisputeTransition(models.DisputeStatusProcess, models.DisputeStatusRejected))
	assert.Error(t, DisputeTransition(models.DisputeStatusResolved, models.DisputeStatusProcess))
	assert.Error(t, DisputeTransition(models.DisputeStatusRejected, models.DisputeStatusProcess))
	assert.Error(t, DisputeTransition(models.DisputeStatusPending, models.DisputeStatusResolved))
}

func TestKycTransition(t *testing.T) {
	assert.NoError(t, KycTransition(models.KycStatusPending, models.KycStatusApproved))
	assert.NoError(t, KycTransition(models.KycStatusPending, models.KycStatusRejected))
	assert.NoError(t, KycTransition(models.KycStatusApproved, models.KycStatusRevoked))
	assert.NoError(t, KycTransition(models.KycStatusRejected, models.KycStatusPending))
	assert.NoError(t, KycTransition(models.KycStatusRevoked, models.KycStatusPending))

	assert.Error(t, KycTransition(models.KycStatusRejected, models.KycStatusApproved))
	assert.Error(t, KycTransition(models.KycStatusRevoked, models.KycStatusApproved))
}

func TestCustomerTransition(t *testing.T) {
	assert.NoError(t, CustomerTransition(models.CustomerStatusPendingVerification, models.CustomerStatusVerified))
	assert.NoError(t, CustomerTransition(models.CustomerStatusVerified, models.CustomerStatusActive))
	assert.NoError(t, CustomerTransition(models.CustomerStatusActive, models.CustomerStatusAdminInactive))
	assert.NoError(t, CustomerTransition(models.CustomerStatusAdminInactive, models.CustomerStatusActive))

	// Активация минуя подтверждение запрещена.
	assert.Error(t, CustomerTransition(models.CustomerStatusPendingVerification, models.CustomerStatusActive))
	// Самодеактивация необратима.
	assert.Error(t, CustomerTransition(models.CustomerStatusUserInactive, models.CustomerStatusActive))
}
