package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/repository"
	"github.com/ignatzorin/escrow-backend/internal/validation"
)

// AuthRepository описывает зависимости AuthService от слоя хранилища.
type AuthRepository interface {
	Create(ctx context.Context, customer *models.Customer) error
	GetByEmail(ctx context.Context, email string) (*models.Customer, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	CreateSession(ctx context.Context, session *models.Session) error
	GetSessionByToken(ctx context.Context, refreshToken string) (*models.Session, error)
	DeleteSession(ctx context.Context, refreshToken string) error
	DeleteSessionsByCustomer(ctx context.Context, customerID uuid.UUID) error
}

// AuthService инкапсулирует бизнес-логику регистрации и аутентификации.
type AuthService struct {
	repo         AuthRepository
	tokenManager *TokenManager
	verification *VerificationService
}

// RegisterInput содержит данные пользователя при регистрации.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// AuthResult возвращает итог регистрации или авторизации.
type AuthResult struct {
	Customer  *models.Customer
	TokenPair *TokenPair
}

// SessionMeta содержит метаданные клиента для записи сессии.
type SessionMeta struct {
	UserAgent string
	IPAddress string
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(repo AuthRepository, tokenManager *TokenManager, verification *VerificationService) *AuthService {
	return &AuthService{
		repo:         repo,
		tokenManager: tokenManager,
		verification: verification,
	}
}

// Register создаёт нового пользователя в статусе pending_verification
// и отправляет код подтверждения email.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, meta SessionMeta) (*AuthResult, error) {
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if _, ok := models.ValidCustomerRoles[in.Role]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "роль должна быть client или vendor")
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось захешировать пароль: %w", err)
	}

	customer := &models.Customer{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: string(passHash),
		Name:         strings.TrimSpace(in.Name),
		Role:         in.Role,
		Status:       models.CustomerStatusPendingVerification,
	}

	if err := s.repo.Create(ctx, customer); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperror.New(apperror.ErrCodeConflict, "email уже зарегистрирован")
		}
		return nil, err
	}

	// Код подтверждения отправляется асинхронно: регистрация не должна
	// падать из-за недоступного SMTP.
	s.verification.SendEmailCodeAsync(customer.ID, customer.Email)

	pair, err := s.issueTokens(ctx, customer, meta)
	if err != nil {
		return nil, err
	}

	return &AuthResult{Customer: customer, TokenPair: pair}, nil
}

// Login проверяет учётные данные и выдаёт пару токенов.
func (s *AuthService) Login(ctx context.Context, email, password string, meta SessionMeta) (*AuthResult, error) {
	customer, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	if customer.Status == models.CustomerStatusAdminInactive {
		return nil, apperror.New(apperror.ErrCodeForbidden, "учётная запись заблокирована администратором")
	}
	if customer.Status == models.CustomerStatusUserInactive {
		return nil, apperror.New(apperror.ErrCodeForbidden, "учётная запись деактивирована")
	}

	if err := s.repo.UpdateLastLogin(ctx, customer.ID); err != nil {
		return nil, err
	}

	pair, err := s.issueTokens(ctx, customer, meta)
	if err != nil {
		return nil, err
	}

	return &AuthResult{Customer: customer, TokenPair: pair}, nil
}

// Refresh ротирует пару токенов по refresh токену.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta SessionMeta) (*AuthResult, error) {
	claims, err := s.tokenManager.ParseRefresh(refreshToken)
	if err != nil {
		return nil, apperror.ErrUnauthorized
	}

	session, err := s.repo.GetSessionByToken(ctx, refreshToken)
	if err != nil {
		return nil, apperror.ErrUnauthorized
	}

	customerID, err := uuid.Parse(claims.Subject)
	if err != nil || customerID != session.CustomerID {
		return nil, apperror.ErrUnauthorized
	}

	customer, err := s.repo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	// Старая сессия удаляется: refresh токен одноразовый.
	if err := s.repo.DeleteSession(ctx, refreshToken); err != nil {
		return nil, err
	}

	pair, err := s.issueTokens(ctx, customer, meta)
	if err != nil {
		return nil, err
	}

	return &AuthResult{Customer: customer, TokenPair: pair}, nil
}

// Logout удаляет сессию по refresh токену.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.repo.DeleteSession(ctx, refreshToken)
}

// Me возвращает профиль текущего пользователя.
func (s *AuthService) Me(ctx context.Context, customerID uuid.UUID) (*models.Customer, error) {
	customer, err := s.repo.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return nil, apperror.ErrCustomerNotFound
		}
		return nil, err
	}
	return customer, nil
}

// Deactivate переводит учётную запись в user_inactive по запросу владельца.
func (s *AuthService) Deactivate(ctx context.Context, customerID uuid.UUID) error {
	customer, err := s.repo.GetByID(ctx, customerID)
	if err != nil {
		return err
	}

	if customer.Status != models.CustomerStatusActive {
		return apperror.StateConflict("пользователя", customer.Status, models.CustomerStatusUserInactive)
	}

	if err := s.repo.UpdateStatus(ctx, customerID, models.CustomerStatusUserInactive); err != nil {
		return err
	}

	return s.repo.DeleteSessionsByCustomer(ctx, customerID)
}

func (s *AuthService) issueTokens(ctx context.Context, customer *models.Customer, meta SessionMeta) (*TokenPair, error) {
	pair, _, refreshExp, err := s.tokenManager.GeneratePair(customer.ID, customer.Role)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось выпустить токены: %w", err)
	}

	session := &models.Session{
		CustomerID:   customer.ID,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    refreshExp,
	}
	if meta.UserAgent != "" {
		session.UserAgent = &meta.UserAgent
	}
	if meta.IPAddress != "" {
		session.IPAddress = &meta.IPAddress
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	return pair, nil
}
