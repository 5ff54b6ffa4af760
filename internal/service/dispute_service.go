package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/events"
	"github.com/ignatzorin/escrow-backend/internal/lifecycle"
	"github.com/ignatzorin/escrow-backend/internal/metrics"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/repository"
	"github.com/ignatzorin/escrow-backend/internal/validation"
)

// DisputeRepo описывает зависимости DisputeService от слоя хранилища.
type DisputeRepo interface {
	Create(ctx context.Context, dispute *models.Dispute, contractVersion int64) (*models.Chat, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetOpenByMilestone(ctx context.Context, milestoneID uuid.UUID) (*models.Dispute, error)
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]models.Dispute, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, status string, limit, offset int) ([]models.Dispute, error)
	List(ctx context.Context, status string, limit, offset int) ([]models.Dispute, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, contractID uuid.UUID, contractVersion int64, contractStatus string, milestoneID uuid.UUID, milestoneStatus string) error
	Reject(ctx context.Context, id uuid.UUID, details string, contractID uuid.UUID, contractVersion int64, milestoneID uuid.UUID, milestoneStatus string) error
	Resolve(ctx context.Context, id uuid.UUID, winner, details string, contractID uuid.UUID, contractVersion int64, contractStatus string, milestoneID uuid.UUID, milestoneStatus string) error
}

// DisputeService управляет спорами по вехам и их отражением на статусах
// контракта и вехи.
type DisputeService struct {
	disputes      DisputeRepo
	contracts     ContractRepo
	notifications *NotificationService
}

// RaiseResult возвращает созданный спор вместе с чатом для переписки сторон.
type RaiseResult struct {
	Dispute *models.Dispute `json:"dispute"`
	Chat    *models.Chat    `json:"chat"`
}

// NewDisputeService создаёт сервис споров.
func NewDisputeService(disputes DisputeRepo, contracts ContractRepo, notifications *NotificationService) *DisputeService {
	return &DisputeService{
		disputes:      disputes,
		contracts:     contracts,
		notifications: notifications,
	}
}

// Raise открывает спор по вехе. Контракт и веха принудительно переводятся
// в disputed независимо от текущего статуса; по вехе допустим только один
// незакрытый спор.
func (s *DisputeService) Raise(ctx context.Context, userID, contractID, milestoneID uuid.UUID, reason string) (*RaiseResult, error) {
	contract, err := s.getContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !contract.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}

	milestone := contract.FindMilestone(milestoneID)
	if milestone == nil {
		return nil, apperror.ErrMilestoneNotFound
	}

	if err := validation.ValidateDisputeReason(reason); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	if _, err := s.disputes.GetOpenByMilestone(ctx, milestone.ID); err == nil {
		return nil, apperror.New(apperror.ErrCodeConflict, "по вехе уже открыт спор")
	} else if !errors.Is(err, repository.ErrDisputeNotFound) {
		return nil, err
	}

	raisedTo := contract.VendorID
	if userID == contract.VendorID {
		raisedTo = contract.ClientID
	}

	dispute := &models.Dispute{
		DisputeID:   NewDisputeID(),
		ContractID:  contract.ID,
		MilestoneID: milestone.ID,
		RaisedBy:    userID,
		RaisedTo:    raisedTo,
		Reason:      strings.TrimSpace(reason),
		Status:      models.DisputeStatusPending,
	}

	chat, err := s.disputes.Create(ctx, dispute, contract.Version)
	if err != nil {
		if errors.Is(err, repository.ErrDisputeAlreadyOpen) {
			return nil, apperror.New(apperror.ErrCodeConflict, "по вехе уже открыт спор")
		}
		return nil, err
	}

	metrics.DisputesOpened.Inc()
	metrics.ContractTransitions.WithLabelValues(contract.Status, models.ContractStatusDisputed).Inc()
	s.publish(dispute, contract, "", models.DisputeStatusPending, userID)

	return &RaiseResult{Dispute: dispute, Chat: chat}, nil
}

// Progress берёт спор в работу администратором: pending→process, контракт
// и веха переходят в disputed_in_process.
func (s *DisputeService) Progress(ctx context.Context, adminID, disputeID uuid.UUID) (*models.Dispute, error) {
	dispute, contract, err := s.getDisputeWithContract(ctx, disputeID)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.DisputeTransition(dispute.Status, models.DisputeStatusProcess); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeStateConflict, err.Error())
	}
	if err := lifecycle.ContractTransition(contract.Status, models.ContractStatusDisputedInProcess); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeStateConflict, err.Error())
	}

	if err := s.disputes.UpdateStatus(ctx, dispute.ID, models.DisputeStatusProcess,
		contract.ID, contract.Version, models.ContractStatusDisputedInProcess,
		dispute.MilestoneID, models.MilestoneStatusDisputedInProcess); err != nil {
		return nil, err
	}

	from := dispute.Status
	dispute.Status = models.DisputeStatusProcess
	s.publish(dispute, contract, from, dispute.Status, adminID)

	return dispute, nil
}

// Resolve закрывает спор решением администратора. Победа заказчика
// возвращает веху на доработку, победа исполнителя означает приёмку вехи;
// контракт в обоих случаях возвращается в active.
func (s *DisputeService) Resolve(ctx context.Context, adminID, disputeID uuid.UUID, winner, details string) (*models.Dispute, error) {
	var milestoneStatus string
	switch winner {
	case models.DisputeWinnerClient:
		milestoneStatus = models.MilestoneStatusChangeRequested
	case models.DisputeWinnerVendor:
		milestoneStatus = models.MilestoneStatusApproved
	default:
		return nil, apperror.New(apperror.ErrCodeValidation, "победитель спора должен быть client или vendor")
	}

	dispute, contract, err := s.getDisputeWithContract(ctx, disputeID)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.DisputeTransition(dispute.Status, models.DisputeStatusResolved); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeStateConflict, err.Error())
	}

	if err := s.disputes.Resolve(ctx, dispute.ID, winner, details,
		contract.ID, contract.Version, models.ContractStatusActive,
		dispute.MilestoneID, milestoneStatus); err != nil {
		return nil, err
	}

	from := dispute.Status
	dispute.Status = models.DisputeStatusResolved
	dispute.Winner = &winner
	dispute.ResolutionDetails = &details
	s.publish(dispute, contract, from, dispute.Status, adminID)

	return dispute, nil
}

// Reject отклоняет спор, не дошедший до рассмотрения, и возвращает
// контракт с вехой в рабочие статусы.
func (s *DisputeService) Reject(ctx context.Context, adminID, disputeID uuid.UUID, details string) (*models.Dispute, error) {
	dispute, contract, err := s.getDisputeWithContract(ctx, disputeID)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.DisputeTransition(dispute.Status, models.DisputeStatusRejected); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeStateConflict, err.Error())
	}

	if err := s.disputes.Reject(ctx, dispute.ID, details,
		contract.ID, contract.Version, dispute.MilestoneID, models.MilestoneStatusWorking); err != nil {
		return nil, err
	}

	from := dispute.Status
	dispute.Status = models.DisputeStatusRejected
	dispute.ResolutionDetails = &details
	s.publish(dispute, contract, from, dispute.Status, adminID)

	return dispute, nil
}

// Get возвращает спор участнику контракта или администратору.
func (s *DisputeService) Get(ctx context.Context, userID uuid.UUID, role string, disputeID uuid.UUID) (*models.Dispute, error) {
	dispute, contract, err := s.getDisputeWithContract(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if !isAdminRole(role) && !contract.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}
	return dispute, nil
}

// ListMine возвращает споры, в которых пользователь участвует.
func (s *DisputeService) ListMine(ctx context.Context, userID uuid.UUID, status string, limit, offset int) ([]models.Dispute, error) {
	limit, offset = clampPage(limit, offset)
	return s.disputes.ListByCustomer(ctx, userID, status, limit, offset)
}

// ListAll возвращает споры для административной панели.
func (s *DisputeService) ListAll(ctx context.Context, status string, limit, offset int) ([]models.Dispute, error) {
	limit, offset = clampPage(limit, offset)
	return s.disputes.List(ctx, status, limit, offset)
}

func (s *DisputeService) getContract(ctx context.Context, contractID uuid.UUID) (*models.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, err
	}
	return contract, nil
}

func (s *DisputeService) getDisputeWithContract(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, *models.Contract, error) {
	dispute, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		if errors.Is(err, repository.ErrDisputeNotFound) {
			return nil, nil, apperror.ErrDisputeNotFound
		}
		return nil, nil, err
	}
	contract, err := s.getContract(ctx, dispute.ContractID)
	if err != nil {
		return nil, nil, err
	}
	return dispute, contract, nil
}

func (s *DisputeService) publish(dispute *models.Dispute, contract *models.Contract, from, to string, actorID uuid.UUID) {
	s.notifications.PublishTransition(events.Event{
		Type:       events.TypeDisputeTransition,
		EntityID:   dispute.DisputeID,
		ContractID: contract.ContractID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID.String(),
	}, contract.ClientID, contract.VendorID)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
