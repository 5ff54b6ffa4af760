package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/events"
	"github.com/ignatzorin/escrow-backend/internal/idempotency"
	"github.com/ignatzorin/escrow-backend/internal/lifecycle"
	"github.com/ignatzorin/escrow-backend/internal/metrics"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/repository"
)

// StripeGateway описывает используемое подмножество Stripe API.
type StripeGateway interface {
	CreateEscrowIntent(ctx context.Context, amount float64, contractID string) (intentID, clientSecret string, err error)
	CaptureIntent(ctx context.Context, intentID string) error
	CancelIntent(ctx context.Context, intentID string) error
	CreateConnectAccount(ctx context.Context, email string) (string, error)
	CreateOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
	Transfer(ctx context.Context, amount float64, accountID, contractID string) (string, error)
	Refund(ctx context.Context, intentID string, amount float64) (string, error)
}

// PaymentRepo описывает зависимости PaymentService от слоя хранилища.
type PaymentRepo interface {
	Create(ctx context.Context, payment *models.Payment, transactions []models.Transaction, contractVersion int64) error
	GetByContractID(ctx context.Context, contractID uuid.UUID) (*models.Payment, error)
	GetByIntentID(ctx context.Context, intentID string) (*models.Payment, error)
	ConfirmFunding(ctx context.Context, paymentID, contractID uuid.UUID, version int64) error
	ActivateWithCapture(ctx context.Context, contractID uuid.UUID, version int64, firstMilestoneID uuid.UUID, capture func(context.Context) error) error
	ReleaseMilestone(ctx context.Context, paymentID uuid.UUID, milestone *models.Milestone, contractID uuid.UUID, version int64, contractStatus, paymentStatus string, nextMilestoneID *uuid.UUID, transfer func(context.Context) error) error
	Refund(ctx context.Context, paymentID, contractID uuid.UUID, version int64, amount float64, description string, refund func(context.Context) error) error
	ListTransactions(ctx context.Context, paymentID uuid.UUID) ([]models.Transaction, error)
}

// PayoutCustomerRepo — операции над пользователями, нужные платёжному сервису.
type PayoutCustomerRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	UpdateStripeAccount(ctx context.Context, id uuid.UUID, accountID string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// PaymentService управляет эскроу-платежами: финансирование, захват,
// выплаты по вехам, возвраты и онбординг исполнителей в Stripe Connect.
type PaymentService struct {
	payments      PaymentRepo
	contracts     ContractRepo
	customers     PayoutCustomerRepo
	stripe        StripeGateway
	deduper       *idempotency.Deduper
	notifications *NotificationService

	onboardingRefreshURL string
	onboardingReturnURL  string
}

// FundResult возвращается клиенту для подтверждения платежа на его стороне.
type FundResult struct {
	Payment      *models.Payment `json:"payment"`
	ClientSecret string          `json:"client_secret"`
}

// NewPaymentService создаёт платёжный сервис.
func NewPaymentService(
	payments PaymentRepo,
	contracts ContractRepo,
	customers PayoutCustomerRepo,
	stripe StripeGateway,
	deduper *idempotency.Deduper,
	notifications *NotificationService,
	onboardingRefreshURL, onboardingReturnURL string,
) *PaymentService {
	return &PaymentService{
		payments:             payments,
		contracts:            contracts,
		customers:            customers,
		stripe:               stripe,
		deduper:              deduper,
		notifications:        notifications,
		onboardingRefreshURL: onboardingRefreshURL,
		onboardingReturnURL:  onboardingReturnURL,
	}
}

// Fund создаёт платёжное намерение с ручным захватом и фиксирует платёж.
// Требует статус funding_pending и точное совпадение суммы эскроу с бюджетом.
func (s *PaymentService) Fund(ctx context.Context, clientID, contractID uuid.UUID, escrowAmount float64) (*FundResult, error) {
	contract, err := s.getContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}
	if contract.Status != models.ContractStatusFundingPending {
		return nil, apperror.StateConflict("контракта", contract.Status, models.ContractStatusFundingProcessing)
	}
	// Допуска нет: сумма эскроу обязана совпадать с бюджетом.
	if escrowAmount != contract.Budget {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма эскроу должна точно совпадать с бюджетом контракта")
	}

	if _, err := s.payments.GetByContractID(ctx, contract.ID); err == nil {
		return nil, apperror.New(apperror.ErrCodeConflict, "платёж по контракту уже создан")
	} else if !errors.Is(err, repository.ErrPaymentNotFound) {
		return nil, err
	}

	fee, err := lifecycle.ThirdPartyFee(escrowAmount, contract.ContractType)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	total := escrowAmount + fee.Fee

	intentID, clientSecret, err := s.stripe.CreateEscrowIntent(ctx, total, contract.ContractID)
	if err != nil {
		metrics.StripeCalls.WithLabelValues("create_intent", "error").Inc()
		return nil, fmt.Errorf("stripe: создание платёжного намерения: %w", err)
	}
	metrics.StripeCalls.WithLabelValues("create_intent", "ok").Inc()

	payment := &models.Payment{
		ContractID:            contract.ID,
		PayerID:               contract.ClientID,
		PayeeID:               contract.VendorID,
		TotalAmount:           total,
		PlatformFee:           fee.Fee,
		EscrowAmount:          escrowAmount,
		StripePaymentIntentID: intentID,
		Status:                models.PaymentStatusProcessing,
	}
	transactions := []models.Transaction{
		{
			ContractID:  contract.ID,
			Type:        models.TransactionTypeFee,
			Amount:      fee.Fee,
			Status:      models.TransactionStatusPending,
			Description: fmt.Sprintf("Комиссия платформы (%.1f%%)", fee.Percentage),
		},
		{
			ContractID:  contract.ID,
			Type:        models.TransactionTypeFunding,
			Amount:      escrowAmount,
			Status:      models.TransactionStatusPending,
			Description: fmt.Sprintf("Эскроу-финансирование контракта %s", contract.ContractID),
		},
	}

	if err := s.payments.Create(ctx, payment, transactions, contract.Version); err != nil {
		return nil, err
	}

	s.publishContract(contract, contract.Status, models.ContractStatusFundingProcessing, clientID)

	return &FundResult{Payment: payment, ClientSecret: clientSecret}, nil
}

// HandlePaymentSuccess обрабатывает подтверждение платежа со стороны клиента.
// Повторные уведомления по одному intent отбрасываются через Redis-ключ.
func (s *PaymentService) HandlePaymentSuccess(ctx context.Context, intentID string) (*models.Payment, error) {
	payment, err := s.payments.GetByIntentID(ctx, intentID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return nil, apperror.ErrPaymentNotFound
		}
		return nil, err
	}

	contract, err := s.getContract(ctx, payment.ContractID)
	if err != nil {
		return nil, err
	}
	if contract.Status == models.ContractStatusFundingOnHold {
		return nil, apperror.New(apperror.ErrCodeConflict, "платёж уже подтверждён")
	}
	if contract.Status != models.ContractStatusFundingProcessing {
		return nil, apperror.StateConflict("контракта", contract.Status, models.ContractStatusFundingOnHold)
	}

	if !s.deduper.AcquireOnce(ctx, "payment-success", intentID) {
		return nil, apperror.New(apperror.ErrCodeConflict, "подтверждение платежа уже обрабатывается")
	}

	if err := s.payments.ConfirmFunding(ctx, payment.ID, contract.ID, contract.Version); err != nil {
		s.deduper.Release(ctx, "payment-success", intentID)
		return nil, err
	}

	payment.Status = models.PaymentStatusOnHold
	payment.OnHoldAmount = payment.EscrowAmount

	s.publishContract(contract, contract.Status, models.ContractStatusFundingOnHold, payment.PayerID)

	return payment, nil
}

// Activate захватывает удержанный платёж и запускает работу по контракту.
// Захват выполняется до фиксации транзакции: при ошибке Stripe состояние
// не меняется.
func (s *PaymentService) Activate(ctx context.Context, clientID, contractID uuid.UUID) (*models.Contract, error) {
	contract, err := s.getContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}
	if err := lifecycle.ContractTransition(contract.Status, models.ContractStatusActive); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeStateConflict, err.Error())
	}

	payment, err := s.payments.GetByContractID(ctx, contract.ID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return nil, apperror.ErrPaymentNotFound
		}
		return nil, err
	}
	if payment.Status != models.PaymentStatusOnHold {
		return nil, apperror.StateConflict("платежа", payment.Status, models.PaymentStatusOnHold)
	}

	first := contract.FirstPendingMilestone()
	if first == nil {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "в контракте нет вех в статусе pending")
	}

	intentID := payment.StripePaymentIntentID
	err = s.payments.ActivateWithCapture(ctx, contract.ID, contract.Version, first.ID, func(ctx context.Context) error {
		if err := s.stripe.CaptureIntent(ctx, intentID); err != nil {
			metrics.StripeCalls.WithLabelValues("capture", "error").Inc()
			return err
		}
		metrics.StripeCalls.WithLabelValues("capture", "ok").Inc()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishContract(contract, contract.Status, models.ContractStatusActive, clientID)
	s.notifications.PublishTransition(events.Event{
		Type:       events.TypeMilestoneTransition,
		EntityID:   first.MilestoneID,
		ContractID: contract.ContractID,
		FromStatus: first.Status,
		ToStatus:   models.MilestoneStatusWorking,
		ActorID:    clientID.String(),
	}, contract.ClientID, contract.VendorID)

	return s.contracts.GetByID(ctx, contract.ID)
}

// Release выплачивает принятую веху исполнителю. Перевод выполняется до
// фиксации транзакции, следующая ожидающая веха берётся в работу, последняя
// выплата завершает контракт.
func (s *PaymentService) Release(ctx context.Context, clientID, contractID, milestoneID uuid.UUID) (*models.Contract, error) {
	contract, err := s.getContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}

	milestone := contract.FindMilestone(milestoneID)
	if milestone == nil {
		return nil, apperror.ErrMilestoneNotFound
	}
	if milestone.Status != models.MilestoneStatusApproved {
		return nil, apperror.StateConflict("вехи", milestone.Status, models.MilestoneStatusPaymentReleased)
	}

	vendor, err := s.customers.GetByID(ctx, contract.VendorID)
	if err != nil {
		return nil, err
	}
	if vendor.StripeAccountID == "" {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "исполнитель не подключил выплаты Stripe Connect")
	}

	payment, err := s.payments.GetByContractID(ctx, contract.ID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return nil, apperror.ErrPaymentNotFound
		}
		return nil, err
	}
	switch payment.Status {
	case models.PaymentStatusOnHold, models.PaymentStatusPartiallyReleased:
	default:
		return nil, apperror.StateConflict("платежа", payment.Status, models.PaymentStatusPartiallyReleased)
	}

	// Последняя невыплаченная веха закрывает платёж и контракт.
	lastRelease := true
	for i := range contract.Milestones {
		m := &contract.Milestones[i]
		if m.ID != milestone.ID && m.Status != models.MilestoneStatusPaymentReleased {
			lastRelease = false
			break
		}
	}

	paymentStatus := models.PaymentStatusPartiallyReleased
	contractStatus := contract.Status
	if lastRelease {
		paymentStatus = models.PaymentStatusFullyReleased
		contractStatus = models.ContractStatusCompleted
	}

	var nextMilestoneID *uuid.UUID
	if next := contract.FirstPendingMilestone(); next != nil {
		id := next.ID
		nextMilestoneID = &id
	}

	amount := milestone.Amount
	accountID := vendor.StripeAccountID
	publicID := contract.ContractID
	err = s.payments.ReleaseMilestone(ctx, payment.ID, milestone, contract.ID, contract.Version,
		contractStatus, paymentStatus, nextMilestoneID, func(ctx context.Context) error {
			if _, err := s.stripe.Transfer(ctx, amount, accountID, publicID); err != nil {
				metrics.StripeCalls.WithLabelValues("transfer", "error").Inc()
				return err
			}
			metrics.StripeCalls.WithLabelValues("transfer", "ok").Inc()
			return nil
		})
	if err != nil {
		return nil, err
	}

	metrics.MilestonesReleased.Inc()
	if lastRelease {
		metrics.ContractTransitions.WithLabelValues(contract.Status, models.ContractStatusCompleted).Inc()
	}
	s.notifications.PublishTransition(events.Event{
		Type:       events.TypePaymentReleased,
		EntityID:   milestone.MilestoneID,
		ContractID: contract.ContractID,
		FromStatus: models.MilestoneStatusApproved,
		ToStatus:   models.MilestoneStatusPaymentReleased,
		ActorID:    clientID.String(),
		Amount:     amount,
	}, contract.ClientID, contract.VendorID)

	return s.contracts.GetByID(ctx, contract.ID)
}

// CancelWithRefund отменяет профинансированный контракт с возвратом
// удержанных средств. До захвата платёж просто аннулируется, после —
// оформляется возврат на остаток эскроу.
func (s *PaymentService) CancelWithRefund(ctx context.Context, clientID, contractID uuid.UUID) (*models.Contract, error) {
	contract, err := s.getContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}
	if err := lifecycle.ContractTransition(contract.Status, models.ContractStatusCancelled); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeStateConflict, err.Error())
	}

	payment, err := s.payments.GetByContractID(ctx, contract.ID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return nil, apperror.ErrPaymentNotFound
		}
		return nil, err
	}
	if payment.OnHoldAmount <= 0 {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "по платежу нет удержанных средств")
	}

	captured := contract.Status != models.ContractStatusFundingOnHold
	intentID := payment.StripePaymentIntentID
	amount := payment.OnHoldAmount
	description := fmt.Sprintf("Возврат средств по контракту %s", contract.ContractID)

	err = s.payments.Refund(ctx, payment.ID, contract.ID, contract.Version, amount, description,
		func(ctx context.Context) error {
			if !captured {
				if err := s.stripe.CancelIntent(ctx, intentID); err != nil {
					metrics.StripeCalls.WithLabelValues("cancel_intent", "error").Inc()
					return err
				}
				metrics.StripeCalls.WithLabelValues("cancel_intent", "ok").Inc()
				return nil
			}
			if _, err := s.stripe.Refund(ctx, intentID, amount); err != nil {
				metrics.StripeCalls.WithLabelValues("refund", "error").Inc()
				return err
			}
			metrics.StripeCalls.WithLabelValues("refund", "ok").Inc()
			return nil
		})
	if err != nil {
		return nil, err
	}

	s.publishContract(contract, contract.Status, models.ContractStatusCancelled, clientID)

	return s.contracts.GetByID(ctx, contract.ID)
}

// GetByContract возвращает платёж участнику контракта или администратору.
func (s *PaymentService) GetByContract(ctx context.Context, userID uuid.UUID, role string, contractID uuid.UUID) (*models.Payment, error) {
	contract, err := s.getContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !isAdminRole(role) && !contract.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}

	payment, err := s.payments.GetByContractID(ctx, contract.ID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return nil, apperror.ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

// ListTransactions возвращает журнал движений средств по платежу.
func (s *PaymentService) ListTransactions(ctx context.Context, userID uuid.UUID, role string, contractID uuid.UUID) ([]models.Transaction, error) {
	payment, err := s.GetByContract(ctx, userID, role, contractID)
	if err != nil {
		return nil, err
	}
	return s.payments.ListTransactions(ctx, payment.ID)
}

// StartOnboarding создаёт (при необходимости) Connect-аккаунт исполнителя
// и возвращает ссылку на онбординг Stripe.
func (s *PaymentService) StartOnboarding(ctx context.Context, vendorID uuid.UUID) (string, error) {
	vendor, err := s.customers.GetByID(ctx, vendorID)
	if err != nil {
		return "", err
	}
	if vendor.Role != models.CustomerRoleVendor {
		return "", apperror.New(apperror.ErrCodeForbidden, "онбординг выплат доступен только исполнителям")
	}

	accountID := vendor.StripeAccountID
	if accountID == "" {
		accountID, err = s.stripe.CreateConnectAccount(ctx, vendor.Email)
		if err != nil {
			metrics.StripeCalls.WithLabelValues("create_account", "error").Inc()
			return "", fmt.Errorf("stripe: создание Connect-аккаунта: %w", err)
		}
		metrics.StripeCalls.WithLabelValues("create_account", "ok").Inc()

		if err := s.customers.UpdateStripeAccount(ctx, vendor.ID, accountID); err != nil {
			return "", err
		}
	}

	url, err := s.stripe.CreateOnboardingLink(ctx, accountID, s.onboardingRefreshURL, s.onboardingReturnURL)
	if err != nil {
		metrics.StripeCalls.WithLabelValues("account_link", "error").Inc()
		return "", fmt.Errorf("stripe: ссылка онбординга: %w", err)
	}
	metrics.StripeCalls.WithLabelValues("account_link", "ok").Inc()

	return url, nil
}

// CompleteOnboarding активирует исполнителя после прохождения онбординга.
// Доступно только подтверждённым пользователям с Connect-аккаунтом.
func (s *PaymentService) CompleteOnboarding(ctx context.Context, vendorID uuid.UUID) (*models.Customer, error) {
	vendor, err := s.customers.GetByID(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if vendor.StripeAccountID == "" {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "Connect-аккаунт ещё не создан")
	}
	if err := lifecycle.CustomerTransition(vendor.Status, models.CustomerStatusActive); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeStateConflict, err.Error())
	}
	if err := s.customers.UpdateStatus(ctx, vendor.ID, models.CustomerStatusActive); err != nil {
		return nil, err
	}
	vendor.Status = models.CustomerStatusActive
	return vendor, nil
}

func (s *PaymentService) getContract(ctx context.Context, contractID uuid.UUID) (*models.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}
	return contract, nil
}

func (s *PaymentService) publishContract(contract *models.Contract, from, to string, actorID uuid.UUID) {
	metrics.ContractTransitions.WithLabelValues(from, to).Inc()
	s.notifications.PublishTransition(events.Event{
		Type:       events.TypeContractTransition,
		EntityID:   contract.ContractID,
		ContractID: contract.ContractID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID.String(),
	}, contract.ClientID, contract.VendorID)
}
