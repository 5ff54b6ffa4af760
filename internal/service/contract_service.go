package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/events"
	"github.com/ignatzorin/escrow-backend/internal/goroutine"
	"github.com/ignatzorin/escrow-backend/internal/lifecycle"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/mail"
	"github.com/ignatzorin/escrow-backend/internal/metrics"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/repository"
	"github.com/ignatzorin/escrow-backend/internal/validation"
)

// ContractRepo описывает зависимости ContractService от слоя хранилища.
type ContractRepo interface {
	Create(ctx context.Context, contract *models.Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	GetByContractID(ctx context.Context, contractID string) (*models.Contract, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, status string, limit, offset int) ([]models.Contract, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, version int64, status string) error
	UpdateMilestoneStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateContractAndMilestone(ctx context.Context, contractID uuid.UUID, version int64, contractStatus string, milestoneID uuid.UUID, milestoneStatus string) error
}

// CustomerGetter возвращает пользователя по идентификатору.
type CustomerGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

// ContractService инкапсулирует жизненный цикл контрактов и вех.
type ContractService struct {
	repo          ContractRepo
	customers     CustomerGetter
	mailer        mail.Mailer
	notifications *NotificationService
}

// CreateContractInput содержит данные нового контракта.
type CreateContractInput struct {
	VendorID     uuid.UUID
	Title        string
	Description  string
	ContractType string
	Budget       float64
	Milestones   []MilestoneInput
}

// MilestoneInput содержит данные вехи при создании контракта.
type MilestoneInput struct {
	Title  string
	Amount float64
}

// ContractProgress содержит обе проекции прогресса контракта.
type ContractProgress struct {
	Completion   float64 `json:"completion"`
	StatusWeight int     `json:"status_weight"`
}

// NewContractService создаёт сервис контрактов.
func NewContractService(repo ContractRepo, customers CustomerGetter, mailer mail.Mailer, notifications *NotificationService) *ContractService {
	return &ContractService{
		repo:          repo,
		customers:     customers,
		mailer:        mailer,
		notifications: notifications,
	}
}

// Create создаёт контракт в статусе draft. Сумма вех обязана совпадать
// с бюджетом с точностью до цента.
func (s *ContractService) Create(ctx context.Context, clientID uuid.UUID, in CreateContractInput) (*models.Contract, error) {
	client, err := s.customers.GetByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if client.Role != models.CustomerRoleClient {
		return nil, apperror.New(apperror.ErrCodeForbidden, "контракт может создать только заказчик")
	}
	if !client.CanTransact() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "учётная запись не активирована для сделок")
	}

	vendor, err := s.customers.GetByID(ctx, in.VendorID)
	if err != nil {
		return nil, err
	}
	if vendor.Role != models.CustomerRoleVendor {
		return nil, apperror.New(apperror.ErrCodeValidation, "исполнитель должен иметь роль vendor")
	}

	if err := validation.ValidateContractTitle(in.Title); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateAmount("бюджет", in.Budget); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if _, ok := models.ValidContractTypes[in.ContractType]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "тип контракта должен быть services или products")
	}
	if len(in.Milestones) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "контракт должен содержать хотя бы одну веху")
	}
	if len(in.Milestones) > validation.MaxMilestonesPerContract {
		return nil, apperror.New(apperror.ErrCodeValidation, "слишком много вех в контракте")
	}

	var sum float64
	milestones := make([]models.Milestone, 0, len(in.Milestones))
	for _, m := range in.Milestones {
		if err := validation.ValidateMilestoneTitle(m.Title); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
		if m.Amount <= 0 {
			return nil, apperror.New(apperror.ErrCodeValidation, "сумма вехи должна быть положительной")
		}
		sum += m.Amount
		milestones = append(milestones, models.Milestone{
			MilestoneID: NewMilestoneID(),
			Title:       strings.TrimSpace(m.Title),
			Amount:      m.Amount,
			Status:      models.MilestoneStatusPending,
		})
	}

	if math.Abs(sum-in.Budget) > 0.009 {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма вех должна совпадать с бюджетом контракта")
	}

	contract := &models.Contract{
		ClientID:     clientID,
		VendorID:     in.VendorID,
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		ContractType: in.ContractType,
		Budget:       in.Budget,
		Status:       models.ContractStatusDraft,
		Milestones:   milestones,
	}

	// Публичный идентификатор с повтором на случай коллизии.
	for attempt := 0; attempt < 3; attempt++ {
		contract.ContractID = NewContractID()
		err = s.repo.Create(ctx, contract)
		if err == nil || !repository.IsUniqueViolation(err) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	return contract, nil
}

// SendInvite переводит контракт из draft в onboarding и отправляет
// приглашение исполнителю.
func (s *ContractService) SendInvite(ctx context.Context, clientID, contractID uuid.UUID) (*models.Contract, error) {
	contract, err := s.getOwned(ctx, contractID, clientID, roleClientOnly)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, contract, models.ContractStatusOnboarding, clientID); err != nil {
		return nil, err
	}

	vendor, err := s.customers.GetByID(ctx, contract.VendorID)
	if err == nil {
		client, clientErr := s.customers.GetByID(ctx, contract.ClientID)
		clientName := ""
		if clientErr == nil {
			clientName = client.Name
		}
		title := contract.Title
		email := vendor.Email
		goroutine.SafeGo(func() {
			if err := s.mailer.SendContractInvite(email, title, clientName); err != nil && logger.Log != nil {
				logger.Log.Errorf("не удалось отправить приглашение: %v", err)
			}
		})
	}

	return contract, nil
}

// RespondInvite обрабатывает ответ исполнителя на приглашение.
// Принятие легально только из onboarding.
func (s *ContractService) RespondInvite(ctx context.Context, vendorID, contractID uuid.UUID, accept bool) (*models.Contract, error) {
	contract, err := s.getOwned(ctx, contractID, vendorID, roleVendorOnly)
	if err != nil {
		return nil, err
	}

	target := models.ContractStatusFundingPending
	if !accept {
		target = models.ContractStatusCancelled
	}

	if contract.Status != models.ContractStatusOnboarding {
		return nil, apperror.StateConflict("контракта", contract.Status, target)
	}

	if err := s.transition(ctx, contract, target, vendorID); err != nil {
		return nil, err
	}

	return contract, nil
}

// SubmitMilestone отправляет веху на проверку заказчику. Контракт
// переходит в in_review.
func (s *ContractService) SubmitMilestone(ctx context.Context, vendorID, contractID, milestoneID uuid.UUID) (*models.Contract, error) {
	contract, err := s.getOwned(ctx, contractID, vendorID, roleVendorOnly)
	if err != nil {
		return nil, err
	}

	milestone := contract.FindMilestone(milestoneID)
	if milestone == nil {
		return nil, apperror.ErrMilestoneNotFound
	}

	if err := lifecycle.MilestoneTransition(milestone.Status, models.MilestoneStatusReadyForReview); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeStateConflict, err.Error())
	}
	if err := lifecycle.ContractTransition(contract.Status, models.ContractStatusInReview); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeStateConflict, err.Error())
	}

	if err := s.repo.UpdateContractAndMilestone(ctx, contract.ID, contract.Version,
		models.ContractStatusInReview, milestone.ID, models.MilestoneStatusReadyForReview); err != nil {
		return nil, err
	}

	s.afterTransition(contract, milestone, models.ContractStatusInReview, models.MilestoneStatusReadyForReview, vendorID)

	return s.repo.GetByID(ctx, contract.ID)
}

// ReviewMilestone обрабатывает решение заказчика по отправленной вехе:
// approve переводит её в approved, иначе — в change_requested. Контракт
// в обоих случаях возвращается в active.
func (s *ContractService) ReviewMilestone(ctx context.Context, clientID, contractID, milestoneID uuid.UUID, approve bool) (*models.Contract, error) {
	contract, err := s.getOwned(ctx, contractID, clientID, roleClientOnly)
	if err != nil {
		return nil, err
	}

	milestone := contract.FindMilestone(milestoneID)
	if milestone == nil {
		return nil, apperror.ErrMilestoneNotFound
	}

	target := models.MilestoneStatusApproved
	if !approve {
		target = models.MilestoneStatusChangeRequested
	}

	if err := lifecycle.MilestoneTransition(milestone.Status, target); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeStateConflict, err.Error())
	}
	if err := lifecycle.ContractTransition(contract.Status, models.ContractStatusActive); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeStateConflict, err.Error())
	}

	if err := s.repo.UpdateContractAndMilestone(ctx, contract.ID, contract.Version,
		models.ContractStatusActive, milestone.ID, target); err != nil {
		return nil, err
	}

	s.afterTransition(contract, milestone, models.ContractStatusActive, target, clientID)

	return s.repo.GetByID(ctx, contract.ID)
}

// Cancel отменяет ещё не профинансированный контракт. Возврат средств по
// профинансированным контрактам выполняет PaymentService.
func (s *ContractService) Cancel(ctx context.Context, clientID, contractID uuid.UUID) (*models.Contract, error) {
	contract, err := s.getOwned(ctx, contractID, clientID, roleClientOnly)
	if err != nil {
		return nil, err
	}

	switch contract.Status {
	case models.ContractStatusDraft, models.ContractStatusOnboarding, models.ContractStatusFundingPending:
	default:
		return nil, apperror.New(apperror.ErrCodeStateConflict,
			"профинансированный контракт отменяется через возврат средств")
	}

	if err := s.transition(ctx, contract, models.ContractStatusCancelled, clientID); err != nil {
		return nil, err
	}

	return contract, nil
}

// Get возвращает контракт участнику или администратору.
func (s *ContractService) Get(ctx context.Context, userID uuid.UUID, role string, contractID uuid.UUID) (*models.Contract, error) {
	contract, err := s.repo.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}

	if !isAdminRole(role) && !contract.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}

	return contract, nil
}

// List возвращает контракты пользователя.
func (s *ContractService) List(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]models.Contract, error) {
	if status != "" {
		if _, ok := models.ValidContractStatuses[status]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный статус контракта")
		}
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return s.repo.ListByCustomer(ctx, userID, status, limit, offset)
}

// Progress возвращает обе проекции прогресса: каноническую по вехам и
// легаси-оценку по статусу контракта.
func (s *ContractService) Progress(contract *models.Contract) ContractProgress {
	return ContractProgress{
		Completion:   lifecycle.MilestoneProgress(contract.Milestones),
		StatusWeight: lifecycle.StatusWeightProgress(contract.Status),
	}
}

type ownerRole int

const (
	roleClientOnly ownerRole = iota
	roleVendorOnly
	roleAnyParticipant
)

func (s *ContractService) getOwned(ctx context.Context, contractID, userID uuid.UUID, role ownerRole) (*models.Contract, error) {
	contract, err := s.repo.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}

	switch role {
	case roleClientOnly:
		if contract.ClientID != userID {
			return nil, apperror.ErrForbidden
		}
	case roleVendorOnly:
		if contract.VendorID != userID {
			return nil, apperror.ErrForbidden
		}
	default:
		if !contract.IsParticipant(userID) {
			return nil, apperror.ErrForbidden
		}
	}

	return contract, nil
}

// transition проверяет легальность перехода и сохраняет новый статус.
func (s *ContractService) transition(ctx context.Context, contract *models.Contract, target string, actorID uuid.UUID) error {
	if err := lifecycle.ContractTransition(contract.Status, target); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeStateConflict, err.Error())
	}

	if err := s.repo.UpdateStatus(ctx, contract.ID, contract.Version, target); err != nil {
		return err
	}

	from := contract.Status
	contract.Status = target
	contract.Version++

	metrics.ContractTransitions.WithLabelValues(from, target).Inc()
	s.notifications.PublishTransition(events.Event{
		Type:       events.TypeContractTransition,
		EntityID:   contract.ContractID,
		ContractID: contract.ContractID,
		FromStatus: from,
		ToStatus:   target,
		ActorID:    actorID.String(),
	}, contract.ClientID, contract.VendorID)

	return nil
}

// afterTransition публикует события после комбинированного обновления
// контракта и вехи.
func (s *ContractService) afterTransition(contract *models.Contract, milestone *models.Milestone, contractStatus, milestoneStatus string, actorID uuid.UUID) {
	metrics.ContractTransitions.WithLabelValues(contract.Status, contractStatus).Inc()
	s.notifications.PublishTransition(events.Event{
		Type:       events.TypeMilestoneTransition,
		EntityID:   milestone.MilestoneID,
		ContractID: contract.ContractID,
		FromStatus: milestone.Status,
		ToStatus:   milestoneStatus,
		ActorID:    actorID.String(),
	}, contract.ClientID, contract.VendorID)
}

func isAdminRole(role string) bool {
	switch role {
	case models.AdminRoleSuperAdmin, models.AdminRoleAdmin, models.AdminRoleModerator:
		return true
	}
	return false
}
