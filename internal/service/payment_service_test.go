package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/escrow-backend/internal/idempotency"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/repository"
)

type paymentFixture struct {
	payments  *mockPaymentRepo
	contracts *mockContractRepo
	customers *mockCustomerRepo
	stripe    *mockStripeGateway
	svc       *PaymentService
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		payments:  new(mockPaymentRepo),
		contracts: new(mockContractRepo),
		customers: new(mockCustomerRepo),
		stripe:    new(mockStripeGateway),
	}
	f.svc = NewPaymentService(f.payments, f.contracts, f.customers, f.stripe,
		idempotency.NewDeduper(nil, 0), newTestNotifications(),
		"https://escrow.test/onboarding/refresh", "https://escrow.test/onboarding/return")
	return f
}

func fundableContract(clientID uuid.UUID) *models.Contract {
	return &models.Contract{
		ID:           uuid.New(),
		ContractID:   "CT-TEST000001",
		ClientID:     clientID,
		VendorID:     uuid.New(),
		ContractType: models.ContractTypeServices,
		Budget:       1000,
		Status:       models.ContractStatusFundingPending,
		Version:      3,
		Milestones: []models.Milestone{
			{ID: uuid.New(), MilestoneID: "MS-TEST000001", Amount: 1000, Status: models.MilestoneStatusPending},
		},
	}
}

func TestPaymentService_Fund_Success(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	clientID := uuid.New()
	contract := fundableContract(clientID)

	f.contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	f.payments.On("GetByContractID", ctx, contract.ID).Return(nil, repository.ErrPaymentNotFound)
	// Бюджет 1000 services: ставка 8.5%, комиссия 85, к оплате 1085.
	f.stripe.On("CreateEscrowIntent", ctx, 1085.0, contract.ContractID).Return("pi_123", "secret_123", nil)
	f.payments.On("Create", ctx, mock.AnythingOfType("*models.Payment"), mock.AnythingOfType("[]models.Transaction"), int64(3)).Return(nil)

	result, err := f.svc.Fund(ctx, clientID, contract.ID, 1000)
	assert.NoError(t, err)
	assert.Equal(t, "secret_123", result.ClientSecret)
	assert.Equal(t, models.PaymentStatusProcessing, result.Payment.Status)
	assert.Equal(t, 1085.0, result.Payment.TotalAmount)
	assert.Equal(t, 85.0, result.Payment.PlatformFee)
	assert.Equal(t, 1000.0, result.Payment.EscrowAmount)
	assert.Equal(t, "pi_123", result.Payment.StripePaymentIntentID)
	f.payments.AssertExpectations(t)
	f.stripe.AssertExpectations(t)
}

func TestPaymentService_Fund_AmountMustMatchBudget(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	clientID := uuid.New()
	contract := fundableContract(clientID)
	f.contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	// Без допуска: даже цент расхождения отклоняется.
	_, err := f.svc.Fund(ctx, clientID, contract.ID, 999.99)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "точно совпадать")
	f.stripe.AssertNotCalled(t, "CreateEscrowIntent")
}

func TestPaymentService_Fund_WrongStatus(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	clientID := uuid.New()
	contract := fundableContract(clientID)
	contract.Status = models.ContractStatusDraft
	f.contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := f.svc.Fund(ctx, clientID, contract.ID, 1000)
	assert.Error(t, err)
	f.stripe.AssertNotCalled(t, "CreateEscrowIntent")
}

func TestPaymentService_Fund_DuplicatePayment(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	clientID := uuid.New()
	contract := fundableContract(clientID)
	f.contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	f.payments.On("GetByContractID", ctx, contract.ID).Return(&models.Payment{ID: uuid.New()}, nil)

	_, err := f.svc.Fund(ctx, clientID, contract.ID, 1000)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "уже создан")
}

func TestPaymentService_Fund_OnlyClient(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	contract := fundableContract(uuid.New())
	f.contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := f.svc.Fund(ctx, uuid.New(), contract.ID, 1000)
	assert.Error(t, err)
}

func TestPaymentService_HandlePaymentSuccess(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	contract := fundableContract(uuid.New())
	contract.Status = models.ContractStatusFundingProcessing
	payment := &models.Payment{
		ID:                    uuid.New(),
		ContractID:            contract.ID,
		PayerID:               contract.ClientID,
		EscrowAmount:          1000,
		StripePaymentIntentID: "pi_123",
		Status:                models.PaymentStatusProcessing,
	}
	f.payments.On("GetByIntentID", ctx, "pi_123").Return(payment, nil)
	f.contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	f.payments.On("ConfirmFunding", ctx, payment.ID, contract.ID, int64(3)).Return(nil)

	updated, err := f.svc.HandlePaymentSuccess(ctx, "pi_123")
	assert.NoError(t, err)
	assert.Equal(t, models.PaymentStatusOnHold, updated.Status)
	assert.Equal(t, 1000.0, updated.OnHoldAmount)
	f.payments.AssertExpectations(t)
}

func TestPaymentService_HandlePaymentSuccess_AlreadyConfirmed(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	contract := fundableContract(uuid.New())
	contract.Status = models.ContractStatusFundingOnHold
	payment := &models.Payment{ID: uuid.New(), ContractID: contract.ID, StripePaymentIntentID: "pi_123"}
	f.payments.On("GetByIntentID", ctx, "pi_123").Return(payment, nil)
	f.contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := f.svc.HandlePaymentSuccess(ctx, "pi_123")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "уже подтверждён")
	f.payments.AssertNotCalled(t, "ConfirmFunding")
}

func TestPaymentService_HandlePaymentSuccess_UnknownIntent(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	f.payments.On("GetByIntentID", ctx, "pi_missing").Return(nil, repository.ErrPaymentNotFound)

	_, err := f.svc.HandlePaymentSuccess(ctx, "pi_missing")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "не найден")
}

func TestPaymentService_Activate(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	clientID := uuid.New()
	contract := fundableContract(clientID)
	contract.Status = models.ContractStatusFundingOnHold
	payment := &models.Payment{
		ID:                    uuid.New(),
		ContractID:            contract.ID,
		StripePaymentIntentID: "pi_123",
		Status:                models.PaymentStatusOnHold,
		OnHoldAmount:          1000,
	}
	first := contract.Milestones[0]

	f.contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	f.payments.On("GetByContractID", ctx, contract.ID).Return(payment, nil)
	f.payments.On("ActivateWithCapture", ctx, contract.ID, int64(3), first.ID, mock.Anything).Return(nil)
	f.stripe.On("CaptureIntent", mock.Anything, "pi_123").Return(nil)

	_, err := f.svc.Activate(ctx, clientID, contract.ID)
	assert.NoError(t, err)
	f.stripe.AssertExpectations(t)
	f.payments.AssertExpectations(t)
}

func TestPaymentService_Activate_CaptureFailureAborts(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	clientID := uuid.New()
	contract := fundableContract(clientID)
	contract.Status = models.ContractStatusFundingOnHold
	payment := &models.Payment{
		ID:                    uuid.New(),
		ContractID:            contract.ID,
		StripePaymentIntentID: "pi_123",
		Status:                models.PaymentStatusOnHold,
	}

	f.contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	f.payments.On("GetByContractID", ctx, contract.ID).Return(payment, nil)
	f.payments.On("ActivateWithCapture", ctx, contract.ID, int64(3), contract.Milestones[0].ID, mock.Anything).Return(nil)
	f.stripe.On("CaptureIntent", mock.Anything, "pi_123").Return(errors.New("card_declined"))

	_, err := f.svc.Activate(ctx, clientID, contract.ID)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "card_declined")
}

func TestPaymentService_Activate_RequiresOnHoldPayment(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	clientID := uuid.New()
	contract := fundableContract(clientID)
	contract.Status = models.ContractStatusFundingOnHold
	f.contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	f.payments.On("GetByContractID", ctx, contract.ID).Return(&models.Payment{
		Status: models.PaymentStatusProcessing,
	}, nil)

	_, err := f.svc.Activate(ctx, clientID, contract.ID)
	assert.Error(t, err)
	f.payments.AssertNotCalled(t, "ActivateWithCapture")
}

func releasableContract(clientID uuid.UUID) (*models.Contract, *models.Payment, *models.Customer) {
	vendorID := uuid.New()
	contract := &models.Contract{
		ID:           uuid.New(),
		ContractID:   "CT-TEST000002",
		ClientID:     clientID,
		VendorID:     vendorID,
		ContractType: models.ContractTypeServices,
		Budget:       1000,
		Status:       models.ContractStatusActive,
		Version:      7,
		Milestones: []models.Milestone{
			{ID: uuid.New(), MilestoneID: "MS-TEST000002", Amount: 400, Status: models.MilestoneStatusApproved},
			{ID: uuid.New(), MilestoneID: "MS-TEST000003", Amount: 600, Status: models.MilestoneStatusPending},
		},
	}
	payment := &models.Payment{
		ID:                    uuid.New(),
		ContractID:            contract.ID,
		StripePaymentIntentID: "pi_123",
		Status:                models.PaymentStatusOnHold,
		OnHoldAmount:          1000,
	}
	vendor := &models.Customer{
		ID:              vendorID,
		Role:            models.CustomerRoleVendor,
		Status:          models.CustomerStatusActive,
		StripeAccountID: "acct_123",
	}
	return contract, payment, vendor
}

func TestPaymentService_Release_Partial(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	clientID := uuid.New()
	contract, payment, vendor := releasableContract(clientID)
	milestone := &contract.Milestones[0]
	next := contract.Milestones[1].ID

	f.contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	f.customers.On("GetByID", ctx, vendor.ID).Return(vendor, nil)
	f.payments.On("GetByContractID", ctx, contract.ID).Return(payment, nil)
	f.payments.On("ReleaseMilestone", ctx, payment.ID, milestone, contract.ID, int64(7),
		models.ContractStatusActive, models.PaymentStatusPartiallyReleased, &next, mock.Anything).Return(nil)
	f.stripe.On("Transfer", mock.Anything, 400.0, "acct_123", contract.ContractID).Return("tr_1", nil)

	_, err := f.svc.Release(ctx, clientID, contract.ID, milestone.ID)
	assert.NoError(t, err)
	f.payments.AssertExpectations(t)
	f.stripe.AssertExpectations(t)
}

func TestPaymentService_Release_LastMilestoneCompletesContract(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	clientID := uuid.New()
	contract, payment, vendor := releasableContract(clientID)
	contract.Milestones[1].Status = models.MilestoneStatusPaymentReleased
	payment.Status = models.PaymentStatusPartiallyReleased
	milestone := &contract.Milestones[0]

	f.contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	f.customers.On("GetByID", ctx, vendor.ID).Return(vendor, nil)
	f.payments.On("GetByContractID", ctx, contract.ID).Return(payment, nil)
	f.payments.On("ReleaseMilestone", ctx, payment.ID, milestone, contract.ID, int64(7),
		models.ContractStatusCompleted, models.PaymentStatusFullyReleased, (*uuid.UUID)(nil), mock.Anything).Return(nil)
	f.stripe.On("Transfer", mock.Anything, 400.0, "acct_123", contract.ContractID).Return("tr_2", nil)

	_, err := f.svc.Release(ctx, clientID, contract.ID, milestone.ID)
	assert.NoError(t, err)
	f.payments.AssertExpectations(t)
}

func TestPaymentService_Release_RequiresApprovedMilestone(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	clientID := uuid.New()
	contract, _, _ := releasableContract(clientID)
	contract.Milestones[0].Status = models.MilestoneStatusWorking

	f.contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := f.svc.Release(ctx, clientID, contract.ID, contract.Milestones[0].ID)
	assert.Error(t, err)
	f.stripe.AssertNotCalled(t, "Transfer")
}

func TestPaymentService_Release_VendorWithoutPayouts(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	clientID := uuid.New()
	contract, _, vendor := releasableContract(clientID)
	vendor.StripeAccountID = ""

	f.contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	f.customers.On("GetByID", ctx, vendor.ID).Return(vendor, nil)

	_, err := f.svc.Release(ctx, clientID, contract.ID, contract.Milestones[0].ID)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Stripe Connect")
}

func TestPaymentService_CancelWithRefund_BeforeCapture(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	clientID := uuid.New()
	contract := fundableContract(clientID)
	contract.Status = models.ContractStatusFundingOnHold
	payment := &models.Payment{
		ID:                    uuid.New(),
		ContractID:            contract.ID,
		StripePaymentIntentID: "pi_123",
		Status:                models.PaymentStatusOnHold,
		OnHoldAmount:          1000,
	}

	f.contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	f.payments.On("GetByContractID", ctx, contract.ID).Return(payment, nil)
	f.payments.On("Refund", ctx, payment.ID, contract.ID, int64(3), 1000.0, mock.AnythingOfType("string"), mock.Anything).Return(nil)
	// До захвата платёж аннулируется, возврат не оформляется.
	f.stripe.On("CancelIntent", mock.Anything, "pi_123").Return(nil)

	_, err := f.svc.CancelWithRefund(ctx, clientID, contract.ID)
	assert.NoError(t, err)
	f.stripe.AssertExpectations(t)
	f.stripe.AssertNotCalled(t, "Refund")
}

func TestPaymentService_CancelWithRefund_AfterCapture(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	clientID := uuid.New()
	contract := fundableContract(clientID)
	contract.Status = models.ContractStatusActive
	payment := &models.Payment{
		ID:                    uuid.New(),
		ContractID:            contract.ID,
		StripePaymentIntentID: "pi_123",
		Status:                models.PaymentStatusOnHold,
		OnHoldAmount:          600,
	}

	f.contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	f.payments.On("GetByContractID", ctx, contract.ID).Return(payment, nil)
	f.payments.On("Refund", ctx, payment.ID, contract.ID, int64(3), 600.0, mock.AnythingOfType("string"), mock.Anything).Return(nil)
	// Возврат только остатка эскроу, не всей суммы.
	f.stripe.On("Refund", mock.Anything, "pi_123", 600.0).Return("re_1", nil)

	_, err := f.svc.CancelWithRefund(ctx, clientID, contract.ID)
	assert.NoError(t, err)
	f.stripe.AssertExpectations(t)
	f.stripe.AssertNotCalled(t, "CancelIntent")
}

func TestPaymentService_CancelWithRefund_NothingHeld(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	clientID := uuid.New()
	contract := fundableContract(clientID)
	contract.Status = models.ContractStatusActive
	f.contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	f.payments.On("GetByContractID", ctx, contract.ID).Return(&models.Payment{OnHoldAmount: 0}, nil)

	_, err := f.svc.CancelWithRefund(ctx, clientID, contract.ID)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "нет удержанных средств")
}

func TestPaymentService_StartOnboarding_CreatesAccountOnce(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	vendorID := uuid.New()
	vendor := activeVendor(vendorID)
	vendor.Email = "vendor@example.com"

	f.customers.On("GetByID", ctx, vendorID).Return(vendor, nil)
	f.stripe.On("CreateConnectAccount", ctx, "vendor@example.com").Return("acct_new", nil)
	f.customers.On("UpdateStripeAccount", ctx, vendorID, "acct_new").Return(nil)
	f.stripe.On("CreateOnboardingLink", ctx, "acct_new",
		"https://escrow.test/onboarding/refresh", "https://escrow.test/onboarding/return").Return("https://connect.stripe.com/setup/x", nil)

	url, err := f.svc.StartOnboarding(ctx, vendorID)
	assert.NoError(t, err)
	assert.Equal(t, "https://connect.stripe.com/setup/x", url)
	f.stripe.AssertExpectations(t)
	f.customers.AssertExpectations(t)
}

func TestPaymentService_StartOnboarding_ReusesAccount(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	vendorID := uuid.New()
	vendor := activeVendor(vendorID)
	vendor.StripeAccountID = "acct_existing"

	f.customers.On("GetByID", ctx, vendorID).Return(vendor, nil)
	f.stripe.On("CreateOnboardingLink", ctx, "acct_existing", mock.Anything, mock.Anything).Return("https://connect.stripe.com/setup/y", nil)

	_, err := f.svc.StartOnboarding(ctx, vendorID)
	assert.NoError(t, err)
	f.stripe.AssertNotCalled(t, "CreateConnectAccount")
}

func TestPaymentService_StartOnboarding_VendorsOnly(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	clientID := uuid.New()
	f.customers.On("GetByID", ctx, clientID).Return(activeClient(clientID), nil)

	_, err := f.svc.StartOnboarding(ctx, clientID)
	assert.Error(t, err)
}

func TestPaymentService_CompleteOnboarding(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	vendorID := uuid.New()
	vendor := &models.Customer{
		ID:              vendorID,
		Role:            models.CustomerRoleVendor,
		Status:          models.CustomerStatusVerified,
		StripeAccountID: "acct_123",
	}
	f.customers.On("GetByID", ctx, vendorID).Return(vendor, nil)
	f.customers.On("UpdateStatus", ctx, vendorID, models.CustomerStatusActive).Return(nil)

	updated, err := f.svc.CompleteOnboarding(ctx, vendorID)
	assert.NoError(t, err)
	assert.Equal(t, models.CustomerStatusActive, updated.Status)
}

func TestPaymentService_CompleteOnboarding_RequiresAccount(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	vendorID := uuid.New()
	f.customers.On("GetByID", ctx, vendorID).Return(&models.Customer{
		ID:     vendorID,
		Role:   models.CustomerRoleVendor,
		Status: models.CustomerStatusVerified,
	}, nil)

	_, err := f.svc.CompleteOnboarding(ctx, vendorID)
	assert.Error(t, err)
	f.customers.AssertNotCalled(t, "UpdateStatus")
}

// Полный путь средств по контракту с одной вехой: финансирование,
// подтверждение платежа, захват с активацией, выплата и завершение.
func TestPaymentService_EscrowFlow(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()
	clientID := uuid.New()
	contract := fundableContract(clientID)
	vendor := &models.Customer{
		ID:              contract.VendorID,
		Role:            models.CustomerRoleVendor,
		Status:          models.CustomerStatusActive,
		StripeAccountID: "acct_123",
	}
	f.contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	// Финансирование.
	f.payments.On("GetByContractID", ctx, contract.ID).Return(nil, repository.ErrPaymentNotFound).Once()
	f.stripe.On("CreateEscrowIntent", ctx, 1085.0, contract.ContractID).Return("pi_flow", "secret", nil)
	f.payments.On("Create", ctx, mock.Anything, mock.Anything, int64(3)).Return(nil)

	result, err := f.svc.Fund(ctx, clientID, contract.ID, 1000)
	assert.NoError(t, err)
	payment := result.Payment
	payment.ID = uuid.New()
	contract.Status = models.ContractStatusFundingProcessing

	// Подтверждение платежа клиентом.
	f.payments.On("GetByIntentID", ctx, "pi_flow").Return(payment, nil)
	f.payments.On("ConfirmFunding", ctx, payment.ID, contract.ID, int64(3)).Return(nil)

	payment, err = f.svc.HandlePaymentSuccess(ctx, "pi_flow")
	assert.NoError(t, err)
	assert.Equal(t, 1000.0, payment.OnHoldAmount)
	contract.Status = models.ContractStatusFundingOnHold

	// Активация с захватом.
	f.payments.On("GetByContractID", ctx, contract.ID).Return(payment, nil)
	f.payments.On("ActivateWithCapture", ctx, contract.ID, int64(3), contract.Milestones[0].ID, mock.Anything).Return(nil)
	f.stripe.On("CaptureIntent", mock.Anything, "pi_flow").Return(nil)

	_, err = f.svc.Activate(ctx, clientID, contract.ID)
	assert.NoError(t, err)
	contract.Status = models.ContractStatusActive
	contract.Milestones[0].Status = models.MilestoneStatusApproved

	// Выплата единственной вехи завершает контракт.
	f.customers.On("GetByID", ctx, vendor.ID).Return(vendor, nil)
	f.payments.On("ReleaseMilestone", ctx, payment.ID, &contract.Milestones[0], contract.ID, int64(3),
		models.ContractStatusCompleted, models.PaymentStatusFullyReleased, (*uuid.UUID)(nil), mock.Anything).Return(nil)
	f.stripe.On("Transfer", mock.Anything, 1000.0, "acct_123", contract.ContractID).Return("tr_flow", nil)

	_, err = f.svc.Release(ctx, clientID, contract.ID, contract.Milestones[0].ID)
	assert.NoError(t, err)
	f.stripe.AssertExpectations(t)
	f.payments.AssertExpectations(t)
}
