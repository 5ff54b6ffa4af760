package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/escrow-backend/internal/events"
	"github.com/ignatzorin/escrow-backend/internal/models"
)

// Общие моки слоя хранилища для тестов сервисов.

type mockContractRepo struct {
	mock.Mock
}

func (m *mockContractRepo) Create(ctx context.Context, contract *models.Contract) error {
	args := m.Called(ctx, contract)
	return args.Error(0)
}

func (m *mockContractRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contract), args.Error(1)
}

func (m *mockContractRepo) GetByContractID(ctx context.Context, contractID string) (*models.Contract, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contract), args.Error(1)
}

func (m *mockContractRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, status string, limit, offset int) ([]models.Contract, error) {
	args := m.Called(ctx, customerID, status, limit, offset)
	return args.Get(0).([]models.Contract), args.Error(1)
}

func (m *mockContractRepo) UpdateStatus(ctx context.Context, id uuid.UUID, version int64, status string) error {
	args := m.Called(ctx, id, version, status)
	return args.Error(0)
}

func (m *mockContractRepo) UpdateMilestoneStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockContractRepo) UpdateContractAndMilestone(ctx context.Context, contractID uuid.UUID, version int64, contractStatus string, milestoneID uuid.UUID, milestoneStatus string) error {
	args := m.Called(ctx, contractID, version, contractStatus, milestoneID, milestoneStatus)
	return args.Error(0)
}

type mockCustomerRepo struct {
	mock.Mock
}

func (m *mockCustomerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

func (m *mockCustomerRepo) List(ctx context.Context, status, role string, limit, offset int) ([]models.Customer, error) {
	args := m.Called(ctx, status, role, limit, offset)
	return args.Get(0).([]models.Customer), args.Error(1)
}

func (m *mockCustomerRepo) GetByEmail(ctx context.Context, email string) (*models.Customer, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

func (m *mockCustomerRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *mockCustomerRepo) UpdateStripeAccount(ctx context.Context, id uuid.UUID, accountID string) error {
	args := m.Called(ctx, id, accountID)
	return args.Error(0)
}

func (m *mockCustomerRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockCustomerRepo) DeleteSessionsByCustomer(ctx context.Context, customerID uuid.UUID) error {
	args := m.Called(ctx, customerID)
	return args.Error(0)
}

type mockPaymentRepo struct {
	mock.Mock
}

func (m *mockPaymentRepo) Create(ctx context.Context, payment *models.Payment, transactions []models.Transaction, contractVersion int64) error {
	args := m.Called(ctx, payment, transactions, contractVersion)
	return args.Error(0)
}

func (m *mockPaymentRepo) GetByContractID(ctx context.Context, contractID uuid.UUID) (*models.Payment, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentRepo) GetByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentRepo) ConfirmFunding(ctx context.Context, paymentID, contractID uuid.UUID, version int64) error {
	args := m.Called(ctx, paymentID, contractID, version)
	return args.Error(0)
}

func (m *mockPaymentRepo) ActivateWithCapture(ctx context.Context, contractID uuid.UUID, version int64, firstMilestoneID uuid.UUID, capture func(context.Context) error) error {
	args := m.Called(ctx, contractID, version, firstMilestoneID, capture)
	if err := args.Error(0); err != nil {
		return err
	}
	return capture(ctx)
}

func (m *mockPaymentRepo) ReleaseMilestone(ctx context.Context, paymentID uuid.UUID, milestone *models.Milestone, contractID uuid.UUID, version int64, contractStatus, paymentStatus string, nextMilestoneID *uuid.UUID, transfer func(context.Context) error) error {
	args := m.Called(ctx, paymentID, milestone, contractID, version, contractStatus, paymentStatus, nextMilestoneID, transfer)
	if err := args.Error(0); err != nil {
		return err
	}
	return transfer(ctx)
}

func (m *mockPaymentRepo) Refund(ctx context.Context, paymentID, contractID uuid.UUID, version int64, amount float64, description string, refund func(context.Context) error) error {
	args := m.Called(ctx, paymentID, contractID, version, amount, description, refund)
	if err := args.Error(0); err != nil {
		return err
	}
	return refund(ctx)
}

func (m *mockPaymentRepo) ListTransactions(ctx context.Context, paymentID uuid.UUID) ([]models.Transaction, error) {
	args := m.Called(ctx, paymentID)
	return args.Get(0).([]models.Transaction), args.Error(1)
}

type mockStripeGateway struct {
	mock.Mock
}

func (m *mockStripeGateway) CreateEscrowIntent(ctx context.Context, amount float64, contractID string) (string, string, error) {
	args := m.Called(ctx, amount, contractID)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *mockStripeGateway) CaptureIntent(ctx context.Context, intentID string) error {
	args := m.Called(ctx, intentID)
	return args.Error(0)
}

func (m *mockStripeGateway) CancelIntent(ctx context.Context, intentID string) error {
	args := m.Called(ctx, intentID)
	return args.Error(0)
}

func (m *mockStripeGateway) CreateConnectAccount(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *mockStripeGateway) CreateOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	args := m.Called(ctx, accountID, refreshURL, returnURL)
	return args.String(0), args.Error(1)
}

func (m *mockStripeGateway) Transfer(ctx context.Context, amount float64, accountID, contractID string) (string, error) {
	args := m.Called(ctx, amount, accountID, contractID)
	return args.String(0), args.Error(1)
}

func (m *mockStripeGateway) Refund(ctx context.Context, intentID string, amount float64) (string, error) {
	args := m.Called(ctx, intentID, amount)
	return args.String(0), args.Error(1)
}

type mockDisputeRepo struct {
	mock.Mock
}

func (m *mockDisputeRepo) Create(ctx context.Context, dispute *models.Dispute, contractVersion int64) (*models.Chat, error) {
	args := m.Called(ctx, dispute, contractVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *mockDisputeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) GetOpenByMilestone(ctx context.Context, milestoneID uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, milestoneID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.Dispute, error) {
	args := m.Called(ctx, contractID)
	return args.Get(0).([]models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, status string, limit, offset int) ([]models.Dispute, error) {
	args := m.Called(ctx, customerID, status, limit, offset)
	return args.Get(0).([]models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) List(ctx context.Context, status string, limit, offset int) ([]models.Dispute, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string, contractID uuid.UUID, contractVersion int64, contractStatus string, milestoneID uuid.UUID, milestoneStatus string) error {
	args := m.Called(ctx, id, status, contractID, contractVersion, contractStatus, milestoneID, milestoneStatus)
	return args.Error(0)
}

func (m *mockDisputeRepo) Reject(ctx context.Context, id uuid.UUID, details string, contractID uuid.UUID, contractVersion int64, milestoneID uuid.UUID, milestoneStatus string) error {
	args := m.Called(ctx, id, details, contractID, contractVersion, milestoneID, milestoneStatus)
	return args.Error(0)
}

func (m *mockDisputeRepo) Resolve(ctx context.Context, id uuid.UUID, winner, details string, contractID uuid.UUID, contractVersion int64, contractStatus string, milestoneID uuid.UUID, milestoneStatus string) error {
	args := m.Called(ctx, id, winner, details, contractID, contractVersion, contractStatus, milestoneID, milestoneStatus)
	return args.Error(0)
}

type mockChatRepo struct {
	mock.Mock
}

func (m *mockChatRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *mockChatRepo) GetByDisputeID(ctx context.Context, disputeID uuid.UUID) (*models.Chat, error) {
	args := m.Called(ctx, disputeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *mockChatRepo) CreateMessage(ctx context.Context, message *models.ChatMessage) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *mockChatRepo) ListMessages(ctx context.Context, chatID uuid.UUID, limit, offset int) ([]models.ChatMessage, error) {
	args := m.Called(ctx, chatID, limit, offset)
	return args.Get(0).([]models.ChatMessage), args.Error(1)
}

func (m *mockChatRepo) MarkRead(ctx context.Context, chatID, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockChatRepo) UnreadCount(ctx context.Context, chatID, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Int(0), args.Error(1)
}

type mockKycRepo struct {
	mock.Mock
}

func (m *mockKycRepo) GetOrCreate(ctx context.Context, customerID uuid.UUID) (*models.Kyc, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Kyc), args.Error(1)
}

func (m *mockKycRepo) GetByCustomerID(ctx context.Context, customerID uuid.UUID) (*models.Kyc, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Kyc), args.Error(1)
}

func (m *mockKycRepo) AddDocument(ctx context.Context, doc *models.KycDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *mockKycRepo) UpdateStatus(ctx context.Context, kyc *models.Kyc, toStatus string, adminID uuid.UUID, reason *string) error {
	args := m.Called(ctx, kyc, toStatus, adminID, reason)
	return args.Error(0)
}

func (m *mockKycRepo) Reset(ctx context.Context, kycID uuid.UUID) error {
	args := m.Called(ctx, kycID)
	return args.Error(0)
}

func (m *mockKycRepo) ListByStatus(ctx context.Context, status string, limit, offset int) ([]models.Kyc, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]models.Kyc), args.Error(1)
}

func (m *mockKycRepo) ListVerifications(ctx context.Context, kycID uuid.UUID) ([]models.KycVerification, error) {
	args := m.Called(ctx, kycID)
	return args.Get(0).([]models.KycVerification), args.Error(1)
}

type mockDocumentStorage struct {
	mock.Mock
}

func (m *mockDocumentStorage) Upload(ctx context.Context, folder, fileName string, r io.Reader) (string, error) {
	args := m.Called(ctx, folder, fileName, r)
	return args.String(0), args.Error(1)
}

type mockAdminRepo struct {
	mock.Mock
}

func (m *mockAdminRepo) Create(ctx context.Context, admin *models.Admin) error {
	args := m.Called(ctx, admin)
	return args.Error(0)
}

func (m *mockAdminRepo) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}

func (m *mockAdminRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}

func (m *mockAdminRepo) List(ctx context.Context, limit, offset int) ([]models.Admin, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.Admin), args.Error(1)
}

func (m *mockAdminRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// stubNotificationRepo молча принимает уведомления: тесты сервисов не
// проверяют доставку.
type stubNotificationRepo struct{}

func (stubNotificationRepo) Create(context.Context, *models.Notification) error { return nil }
func (stubNotificationRepo) GetByID(context.Context, uuid.UUID) (*models.Notification, error) {
	return nil, nil
}
func (stubNotificationRepo) List(context.Context, uuid.UUID, int, int, bool) ([]models.Notification, error) {
	return nil, nil
}
func (stubNotificationRepo) MarkRead(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (stubNotificationRepo) MarkAllRead(context.Context, uuid.UUID) (int64, error) {
	return 0, nil
}
func (stubNotificationRepo) UnreadCount(context.Context, uuid.UUID) (int, error) { return 0, nil }
func (stubNotificationRepo) UpsertDeviceToken(context.Context, uuid.UUID, string) error {
	return nil
}
func (stubNotificationRepo) GetDeviceToken(context.Context, uuid.UUID) (*models.DeviceToken, error) {
	return nil, nil
}
func (stubNotificationRepo) DeleteDeviceToken(context.Context, uuid.UUID) error { return nil }

func newTestNotifications() *NotificationService {
	return NewNotificationService(stubNotificationRepo{}, events.NoopPublisher{}, nil, nil)
}

func newTestTokenManager() *TokenManager {
	return NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 720*time.Hour)
}
