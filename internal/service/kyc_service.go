package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/events"
	"github.com/ignatzorin/escrow-backend/internal/lifecycle"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/repository"
)

// KYC-документы живут год с момента одобрения.
const kycValidity = 365 * 24 * time.Hour

// Допустимые типы KYC-документов.
var validKycDocTypes = map[string]struct{}{
	"passport":       {},
	"id_card":        {},
	"driver_license": {},
	"selfie":         {},
	"address_proof":  {},
}

// KycRepo описывает зависимости KycService от слоя хранилища.
type KycRepo interface {
	GetOrCreate(ctx context.Context, customerID uuid.UUID) (*models.Kyc, error)
	GetByCustomerID(ctx context.Context, customerID uuid.UUID) (*models.Kyc, error)
	AddDocument(ctx context.Context, doc *models.KycDocument) error
	UpdateStatus(ctx context.Context, kyc *models.Kyc, toStatus string, adminID uuid.UUID, reason *string) error
	Reset(ctx context.Context, kycID uuid.UUID) error
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]models.Kyc, error)
	ListVerifications(ctx context.Context, kycID uuid.UUID) ([]models.KycVerification, error)
}

// DocumentStorage загружает тела документов в объектное хранилище.
type DocumentStorage interface {
	Upload(ctx context.Context, folder, fileName string, r io.Reader) (string, error)
}

// KycService управляет верификацией личности пользователей.
type KycService struct {
	repo          KycRepo
	customers     PayoutCustomerRepo
	storage       DocumentStorage
	notifications *NotificationService
}

// NewKycService создаёт сервис KYC.
func NewKycService(repo KycRepo, customers PayoutCustomerRepo, storage DocumentStorage, notifications *NotificationService) *KycService {
	return &KycService{
		repo:          repo,
		customers:     customers,
		storage:       storage,
		notifications: notifications,
	}
}

// Get возвращает запись KYC пользователя, создавая её при первом обращении.
func (s *KycService) Get(ctx context.Context, customerID uuid.UUID) (*models.Kyc, error) {
	return s.repo.GetOrCreate(ctx, customerID)
}

// UploadDocument загружает документ через бэкенд и прикрепляет его к записи
// KYC. Повторная загрузка после отказа сбрасывает запись в pending и
// очищает причину отказа.
func (s *KycService) UploadDocument(ctx context.Context, customerID uuid.UUID, docType, fileName string, body io.Reader) (*models.Kyc, error) {
	if _, ok := validKycDocTypes[docType]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный тип документа")
	}

	kyc, err := s.repo.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if kyc.Status == models.KycStatusApproved {
		return nil, apperror.New(apperror.ErrCodeStateConflict, "верификация уже пройдена")
	}

	fileURL, err := s.storage.Upload(ctx, "kyc/"+customerID.String(), fileName, body)
	if err != nil {
		return nil, err
	}

	if err := s.repo.AddDocument(ctx, &models.KycDocument{
		KycID:   kyc.ID,
		DocType: docType,
		FileURL: fileURL,
	}); err != nil {
		return nil, err
	}

	if kyc.Status == models.KycStatusRejected || kyc.Status == models.KycStatusRevoked {
		if err := s.repo.Reset(ctx, kyc.ID); err != nil {
			return nil, err
		}
	}

	return s.repo.GetByCustomerID(ctx, customerID)
}

// AdminSetStatus меняет статус записи KYC решением администратора и пишет
// запись аудита в той же транзакции. Одобрение проставляет годовой срок
// действия и подтверждает пользователя.
func (s *KycService) AdminSetStatus(ctx context.Context, adminID, customerID uuid.UUID, toStatus string, reason *string) (*models.Kyc, error) {
	kyc, err := s.getByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.KycTransition(kyc.Status, toStatus); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeStateConflict, err.Error())
	}
	if toStatus == models.KycStatusRejected && (reason == nil || *reason == "") {
		return nil, apperror.New(apperror.ErrCodeValidation, "отказ требует указания причины")
	}

	from := kyc.Status
	if err := s.repo.UpdateStatus(ctx, kyc, toStatus, adminID, reason); err != nil {
		return nil, err
	}

	if toStatus == models.KycStatusApproved {
		s.confirmCustomer(ctx, customerID)
	}

	s.notifications.PublishTransition(events.Event{
		Type:       events.TypeKycTransition,
		EntityID:   kyc.ID.String(),
		FromStatus: from,
		ToStatus:   toStatus,
		ActorID:    adminID.String(),
	}, customerID)

	return s.repo.GetByCustomerID(ctx, customerID)
}

// ListByStatus возвращает записи KYC для административной очереди.
func (s *KycService) ListByStatus(ctx context.Context, status string, limit, offset int) ([]models.Kyc, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByStatus(ctx, status, limit, offset)
}

// History возвращает журнал решений по записи KYC пользователя.
func (s *KycService) History(ctx context.Context, customerID uuid.UUID) ([]models.KycVerification, error) {
	kyc, err := s.getByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListVerifications(ctx, kyc.ID)
}

// ExpiresAfter сообщает срок действия одобренной верификации.
func ExpiresAfter(approvedAt time.Time) time.Time {
	return approvedAt.Add(kycValidity)
}

func (s *KycService) getByCustomer(ctx context.Context, customerID uuid.UUID) (*models.Kyc, error) {
	kyc, err := s.repo.GetByCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrKycNotFound) {
			return nil, apperror.ErrKycNotFound
		}
		return nil, err
	}
	return kyc, nil
}

// confirmCustomer подтверждает пользователя после одобрения KYC.
// Пользователь мог быть подтверждён раньше по email-коду, тогда переход
// не нужен.
func (s *KycService) confirmCustomer(ctx context.Context, customerID uuid.UUID) {
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		if logger.Log != nil {
			logger.Log.Errorf("kyc: не удалось получить пользователя %s: %v", customerID, err)
		}
		return
	}
	if !lifecycle.CanCustomerTransition(customer.Status, models.CustomerStatusVerified) {
		return
	}
	if err := s.customers.UpdateStatus(ctx, customerID, models.CustomerStatusVerified); err != nil && logger.Log != nil {
		logger.Log.Errorf("kyc: не удалось подтвердить пользователя %s: %v", customerID, err)
	}
}
