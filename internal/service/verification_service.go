package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/escrow-backend/internal/goroutine"
	"github.com/ignatzorin/escrow-backend/internal/lifecycle"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/mail"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/repository"
	"github.com/ignatzorin/escrow-backend/internal/validation"
)

// VerificationRepo описывает хранилище кодов подтверждения.
type VerificationRepo interface {
	CreateCode(ctx context.Context, customerID uuid.UUID, codeType, code string, expiresAt time.Time) (*models.VerificationCode, error)
	ConsumeCode(ctx context.Context, customerID uuid.UUID, codeType, code string) (bool, error)
}

// VerificationCustomerRepo описывает операции над пользователями,
// нужные сервису подтверждения.
type VerificationCustomerRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	GetByEmail(ctx context.Context, email string) (*models.Customer, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	DeleteSessionsByCustomer(ctx context.Context, customerID uuid.UUID) error
}

// VerificationService отвечает за коды подтверждения email и
// восстановление пароля.
type VerificationService struct {
	repo      VerificationRepo
	customers VerificationCustomerRepo
	mailer    mail.Mailer
}

// NewVerificationService создаёт сервис подтверждения.
func NewVerificationService(repo VerificationRepo, customers VerificationCustomerRepo, mailer mail.Mailer) *VerificationService {
	return &VerificationService{repo: repo, customers: customers, mailer: mailer}
}

// SendEmailCode создаёт код подтверждения email и отправляет письмо.
func (s *VerificationService) SendEmailCode(ctx context.Context, customerID uuid.UUID, email string) error {
	code, err := generateCode()
	if err != nil {
		return err
	}
	expiresAt := time.Now().Add(15 * time.Minute)

	if _, err := s.repo.CreateCode(ctx, customerID, models.VerificationTypeEmail, code, expiresAt); err != nil {
		return err
	}

	if err := s.mailer.SendVerificationCode(email, code); err != nil {
		return fmt.Errorf("verification service: отправка кода %w", err)
	}

	return nil
}

// SendEmailCodeAsync отправляет код подтверждения в фоне.
func (s *VerificationService) SendEmailCodeAsync(customerID uuid.UUID, email string) {
	goroutine.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.SendEmailCode(ctx, customerID, email); err != nil && logger.Log != nil {
			logger.Log.WithField("customer_id", customerID).
				Errorf("не удалось отправить код подтверждения: %v", err)
		}
	})
}

// ConfirmEmail проверяет код и активирует учётную запись. Заказчику
// выплаты не нужны, поэтому после подтверждения email он сразу переходит
// в active. Исполнитель остаётся verified до завершения Stripe-онбординга.
func (s *VerificationService) ConfirmEmail(ctx context.Context, customerID uuid.UUID, code string) error {
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return err
	}

	if err := lifecycle.CustomerTransition(customer.Status, models.CustomerStatusVerified); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeStateConflict, err.Error())
	}

	ok, err := s.repo.ConsumeCode(ctx, customerID, models.VerificationTypeEmail, code)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.New(apperror.ErrCodeBadRequest, "код подтверждения неверен или истёк")
	}

	status := models.CustomerStatusVerified
	if customer.Role == models.CustomerRoleClient {
		if err := lifecycle.CustomerTransition(models.CustomerStatusVerified, models.CustomerStatusActive); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeStateConflict, err.Error())
		}
		status = models.CustomerStatusActive
	}

	return s.customers.UpdateStatus(ctx, customerID, status)
}

// RequestPasswordReset создаёт код восстановления пароля. Если email
// не зарегистрирован, метод молча завершается: существование учётной
// записи не раскрывается.
func (s *VerificationService) RequestPasswordReset(ctx context.Context, email string) error {
	customer, err := s.customers.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return nil
		}
		return err
	}

	code, err := generateCode()
	if err != nil {
		return err
	}
	expiresAt := time.Now().Add(15 * time.Minute)

	if _, err := s.repo.CreateCode(ctx, customer.ID, models.VerificationTypePasswordReset, code, expiresAt); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordResetCode(customer.Email, code); err != nil {
		return fmt.Errorf("verification service: отправка кода восстановления %w", err)
	}

	return nil
}

// ResetPassword проверяет код восстановления и меняет пароль.
// Все активные сессии пользователя завершаются.
func (s *VerificationService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	customer, err := s.customers.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return apperror.New(apperror.ErrCodeBadRequest, "код восстановления неверен или истёк")
		}
		return err
	}

	ok, err := s.repo.ConsumeCode(ctx, customer.ID, models.VerificationTypePasswordReset, code)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.New(apperror.ErrCodeBadRequest, "код восстановления неверен или истёк")
	}

	if err := validation.ValidatePassword(newPassword); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("verification service: не удалось захешировать пароль: %w", err)
	}

	if err := s.customers.UpdatePassword(ctx, customer.ID, string(passHash)); err != nil {
		return err
	}

	return s.customers.DeleteSessionsByCustomer(ctx, customer.ID)
}

// generateCode возвращает шестизначный цифровой код.
func generateCode() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("verification service: генерация кода %w", err)
	}
	return fmt.Sprintf("%06d", binary.BigEndian.Uint32(b[:])%1000000), nil
}
