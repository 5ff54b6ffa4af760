package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/repository"
)

func newDisputeService(disputes *mockDisputeRepo, contracts *mockContractRepo) *DisputeService {
	return NewDisputeService(disputes, contracts, newTestNotifications())
}

func disputedContract(clientID uuid.UUID) *models.Contract {
	return &models.Contract{
		ID:         uuid.New(),
		ContractID: "CT-TEST000003",
		ClientID:   clientID,
		VendorID:   uuid.New(),
		Status:     models.ContractStatusInReview,
		Version:    6,
		Milestones: []models.Milestone{
			{ID: uuid.New(), MilestoneID: "MS-TEST000004", Status: models.MilestoneStatusReadyForReview},
		},
	}
}

func TestDisputeService_Raise(t *testing.T) {
	disputes := new(mockDisputeRepo)
	contracts := new(mockContractRepo)
	svc := newDisputeService(disputes, contracts)
	ctx := context.Background()

	clientID := uuid.New()
	contract := disputedContract(clientID)
	milestone := contract.Milestones[0]
	chat := &models.Chat{ID: uuid.New(), Participants: []uuid.UUID{contract.ClientID, contract.VendorID}}

	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	disputes.On("GetOpenByMilestone", ctx, milestone.ID).Return(nil, repository.ErrDisputeNotFound)
	disputes.On("Create", ctx, mock.AnythingOfType("*models.Dispute"), int64(6)).Return(chat, nil)

	result, err := svc.Raise(ctx, clientID, contract.ID, milestone.ID, "работа не соответствует заданию")
	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusPending, result.Dispute.Status)
	assert.Equal(t, clientID, result.Dispute.RaisedBy)
	assert.Equal(t, contract.VendorID, result.Dispute.RaisedTo)
	assert.Regexp(t, `^DI-[0-9A-Z]{10}$`, result.Dispute.DisputeID)
	assert.Equal(t, chat, result.Chat)
	disputes.AssertExpectations(t)
}

func TestDisputeService_Raise_VendorAgainstClient(t *testing.T) {
	disputes := new(mockDisputeRepo)
	contracts := new(mockContractRepo)
	svc := newDisputeService(disputes, contracts)
	ctx := context.Background()

	contract := disputedContract(uuid.New())
	milestone := contract.Milestones[0]

	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	disputes.On("GetOpenByMilestone", ctx, milestone.ID).Return(nil, repository.ErrDisputeNotFound)
	disputes.On("Create", ctx, mock.AnythingOfType("*models.Dispute"), int64(6)).Return(&models.Chat{}, nil)

	result, err := svc.Raise(ctx, contract.VendorID, contract.ID, milestone.ID, "заказчик не отвечает")
	assert.NoError(t, err)
	assert.Equal(t, contract.ClientID, result.Dispute.RaisedTo)
}

func TestDisputeService_Raise_SingleOpenDispute(t *testing.T) {
	disputes := new(mockDisputeRepo)
	contracts := new(mockContractRepo)
	svc := newDisputeService(disputes, contracts)
	ctx := context.Background()

	clientID := uuid.New()
	contract := disputedContract(clientID)
	milestone := contract.Milestones[0]

	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	disputes.On("GetOpenByMilestone", ctx, milestone.ID).Return(&models.Dispute{ID: uuid.New()}, nil)

	_, err := svc.Raise(ctx, clientID, contract.ID, milestone.ID, "повторный спор")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "уже открыт спор")
	disputes.AssertNotCalled(t, "Create")
}

func TestDisputeService_Raise_OnlyParticipants(t *testing.T) {
	disputes := new(mockDisputeRepo)
	contracts := new(mockContractRepo)
	svc := newDisputeService(disputes, contracts)
	ctx := context.Background()

	contract := disputedContract(uuid.New())
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := svc.Raise(ctx, uuid.New(), contract.ID, contract.Milestones[0].ID, "я мимо проходил")
	assert.Error(t, err)
}

func TestDisputeService_Progress(t *testing.T) {
	disputes := new(mockDisputeRepo)
	contracts := new(mockContractRepo)
	svc := newDisputeService(disputes, contracts)
	ctx := context.Background()

	adminID := uuid.New()
	contract := disputedContract(uuid.New())
	contract.Status = models.ContractStatusDisputed
	dispute := &models.Dispute{
		ID:          uuid.New(),
		DisputeID:   "DI-TEST000001",
		ContractID:  contract.ID,
		MilestoneID: contract.Milestones[0].ID,
		Status:      models.DisputeStatusPending,
	}

	disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	disputes.On("UpdateStatus", ctx, dispute.ID, models.DisputeStatusProcess,
		contract.ID, int64(6), models.ContractStatusDisputedInProcess,
		dispute.MilestoneID, models.MilestoneStatusDisputedInProcess).Return(nil)

	updated, err := svc.Progress(ctx, adminID, dispute.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusProcess, updated.Status)
	disputes.AssertExpectations(t)
}

func TestDisputeService_Progress_OnlyFromPending(t *testing.T) {
	disputes := new(mockDisputeRepo)
	contracts := new(mockContractRepo)
	svc := newDisputeService(disputes, contracts)
	ctx := context.Background()

	contract := disputedContract(uuid.New())
	dispute := &models.Dispute{
		ID:         uuid.New(),
		ContractID: contract.ID,
		Status:     models.DisputeStatusResolved,
	}
	disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := svc.Progress(ctx, uuid.New(), dispute.ID)
	assert.Error(t, err)
	disputes.AssertNotCalled(t, "UpdateStatus")
}

func TestDisputeService_Resolve_ClientWins(t *testing.T) {
	disputes := new(mockDisputeRepo)
	contracts := new(mockContractRepo)
	svc := newDisputeService(disputes, contracts)
	ctx := context.Background()

	contract := disputedContract(uuid.New())
	contract.Status = models.ContractStatusDisputedInProcess
	dispute := &models.Dispute{
		ID:          uuid.New(),
		ContractID:  contract.ID,
		MilestoneID: contract.Milestones[0].ID,
		Status:      models.DisputeStatusProcess,
	}
	disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	// Победа заказчика возвращает веху на доработку.
	disputes.On("Resolve", ctx, dispute.ID, models.DisputeWinnerClient, "работа не принята",
		contract.ID, int64(6), models.ContractStatusActive,
		dispute.MilestoneID, models.MilestoneStatusChangeRequested).Return(nil)

	updated, err := svc.Resolve(ctx, uuid.New(), dispute.ID, models.DisputeWinnerClient, "работа не принята")
	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusResolved, updated.Status)
	assert.Equal(t, models.DisputeWinnerClient, *updated.Winner)
	disputes.AssertExpectations(t)
}

func TestDisputeService_Resolve_VendorWins(t *testing.T) {
	disputes := new(mockDisputeRepo)
	contracts := new(mockContractRepo)
	svc := newDisputeService(disputes, contracts)
	ctx := context.Background()

	contract := disputedContract(uuid.New())
	contract.Status = models.ContractStatusDisputedInProcess
	dispute := &models.Dispute{
		ID:          uuid.New(),
		ContractID:  contract.ID,
		MilestoneID: contract.Milestones[0].ID,
		Status:      models.DisputeStatusProcess,
	}
	disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	// Победа исполнителя означает приёмку вехи.
	disputes.On("Resolve", ctx, dispute.ID, models.DisputeWinnerVendor, "работа выполнена",
		contract.ID, int64(6), models.ContractStatusActive,
		dispute.MilestoneID, models.MilestoneStatusApproved).Return(nil)

	_, err := svc.Resolve(ctx, uuid.New(), dispute.ID, models.DisputeWinnerVendor, "работа выполнена")
	assert.NoError(t, err)
	disputes.AssertExpectations(t)
}

func TestDisputeService_Resolve_UnknownWinner(t *testing.T) {
	disputes := new(mockDisputeRepo)
	contracts := new(mockContractRepo)
	svc := newDisputeService(disputes, contracts)

	_, err := svc.Resolve(context.Background(), uuid.New(), uuid.New(), "platform", "ничья")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "client или vendor")
	disputes.AssertNotCalled(t, "GetByID")
}

func TestDisputeService_Reject(t *testing.T) {
	disputes := new(mockDisputeRepo)
	contracts := new(mockContractRepo)
	svc := newDisputeService(disputes, contracts)
	ctx := context.Background()

	contract := disputedContract(uuid.New())
	contract.Status = models.ContractStatusDisputed
	dispute := &models.Dispute{
		ID:          uuid.New(),
		ContractID:  contract.ID,
		MilestoneID: contract.Milestones[0].ID,
		Status:      models.DisputeStatusPending,
	}
	disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	disputes.On("Reject", ctx, dispute.ID, "спор безоснователен",
		contract.ID, int64(6), dispute.MilestoneID, models.MilestoneStatusWorking).Return(nil)

	updated, err := svc.Reject(ctx, uuid.New(), dispute.ID, "спор безоснователен")
	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusRejected, updated.Status)
}

func TestDisputeService_Reject_OnlyPending(t *testing.T) {
	disputes := new(mockDisputeRepo)
	contracts := new(mockContractRepo)
	svc := newDisputeService(disputes, contracts)
	ctx := context.Background()

	contract := disputedContract(uuid.New())
	dispute := &models.Dispute{
		ID:         uuid.New(),
		ContractID: contract.ID,
		Status:     models.DisputeStatusProcess,
	}
	disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := svc.Reject(ctx, uuid.New(), dispute.ID, "поздно")
	assert.Error(t, err)
	disputes.AssertNotCalled(t, "Reject")
}

func TestDisputeService_Get_Access(t *testing.T) {
	disputes := new(mockDisputeRepo)
	contracts := new(mockContractRepo)
	svc := newDisputeService(disputes, contracts)
	ctx := context.Background()

	clientID := uuid.New()
	contract := disputedContract(clientID)
	dispute := &models.Dispute{ID: uuid.New(), ContractID: contract.ID}
	disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := svc.Get(ctx, clientID, models.CustomerRoleClient, dispute.ID)
	assert.NoError(t, err)

	_, err = svc.Get(ctx, uuid.New(), models.CustomerRoleVendor, dispute.ID)
	assert.Error(t, err)

	_, err = svc.Get(ctx, uuid.New(), models.AdminRoleAdmin, dispute.ID)
	assert.NoError(t, err)
}

func TestDisputeService_ListMine_ClampsPagination(t *testing.T) {
	disputes := new(mockDisputeRepo)
	contracts := new(mockContractRepo)
	svc := newDisputeService(disputes, contracts)
	ctx := context.Background()
	userID := uuid.New()

	disputes.On("ListByCustomer", ctx, userID, "", 20, 0).Return([]models.Dispute{}, nil)

	_, err := svc.ListMine(ctx, userID, "", 500, -5)
	assert.NoError(t, err)
	disputes.AssertExpectations(t)
}
