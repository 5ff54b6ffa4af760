package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/escrow-backend/internal/lifecycle"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
	"github.com/ignatzorin/escrow-backend/internal/repository"
	"github.com/ignatzorin/escrow-backend/internal/validation"
)

// AdminRepo описывает зависимости AdminService от слоя хранилища.
type AdminRepo interface {
	Create(ctx context.Context, admin *models.Admin) error
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Admin, error)
	List(ctx context.Context, limit, offset int) ([]models.Admin, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// AdminCustomerRepo — операции над пользователями, доступные администраторам.
type AdminCustomerRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, status, role string, limit, offset int) ([]models.Customer, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	DeleteSessionsByCustomer(ctx context.Context, customerID uuid.UUID) error
}

// AdminService обслуживает вход администраторов и модерацию платформы.
type AdminService struct {
	admins       AdminRepo
	customers    AdminCustomerRepo
	tokenManager *TokenManager
}

// AdminAuthResult — результат входа администратора.
type AdminAuthResult struct {
	Admin  *models.Admin `json:"admin"`
	Tokens *TokenPair    `json:"tokens"`
}

// CreateAdminInput содержит данные нового администратора.
type CreateAdminInput struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// NewAdminService создаёт сервис администраторов.
func NewAdminService(admins AdminRepo, customers AdminCustomerRepo, tokenManager *TokenManager) *AdminService {
	return &AdminService{
		admins:       admins,
		customers:    customers,
		tokenManager: tokenManager,
	}
}

// Login аутентифицирует администратора и выдаёт пару токенов с его ролью.
func (s *AdminService) Login(ctx context.Context, email, password string) (*AdminAuthResult, error) {
	admin, err := s.admins.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrAdminNotFound) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}
	if admin.Status != models.AdminStatusActive {
		return nil, apperror.New(apperror.ErrCodeForbidden, "учётная запись администратора деактивирована")
	}

	tokens, _, _, err := s.tokenManager.GeneratePair(admin.ID, admin.Role)
	if err != nil {
		return nil, err
	}

	return &AdminAuthResult{Admin: admin, Tokens: tokens}, nil
}

// Create регистрирует нового администратора. Доступно только суперадмину.
func (s *AdminService) Create(ctx context.Context, actorRole string, in CreateAdminInput) (*models.Admin, error) {
	if actorRole != models.AdminRoleSuperAdmin {
		return nil, apperror.New(apperror.ErrCodeForbidden, "создавать администраторов может только суперадмин")
	}
	switch in.Role {
	case models.AdminRoleAdmin, models.AdminRoleModerator:
	default:
		return nil, apperror.New(apperror.ErrCodeValidation, "роль администратора должна быть admin или moderator")
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateNonEmpty("имя", in.Name); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	admin := &models.Admin{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(in.Name),
		Role:         in.Role,
		Status:       models.AdminStatusActive,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperror.New(apperror.ErrCodeConflict, "email уже занят")
		}
		return nil, err
	}

	return admin, nil
}

// List возвращает администраторов платформы.
func (s *AdminService) List(ctx context.Context, limit, offset int) ([]models.Admin, error) {
	limit, offset = clampPage(limit, offset)
	return s.admins.List(ctx, limit, offset)
}

// SetStatus активирует или деактивирует администратора. Суперадмин
// неприкосновенен; менять статусы может только суперадмин.
func (s *AdminService) SetStatus(ctx context.Context, actorRole string, adminID uuid.UUID, status string) (*models.Admin, error) {
	if actorRole != models.AdminRoleSuperAdmin {
		return nil, apperror.New(apperror.ErrCodeForbidden, "менять статус администраторов может только суперадмин")
	}
	if status != models.AdminStatusActive && status != models.AdminStatusInactive {
		return nil, apperror.New(apperror.ErrCodeValidation, "статус администратора должен быть active или inactive")
	}

	admin, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, repository.ErrAdminNotFound) {
			return nil, apperror.ErrAdminNotFound
		}
		return nil, err
	}
	if admin.IsSuperAdmin() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "суперадмин не может быть деактивирован")
	}

	if err := s.admins.UpdateStatus(ctx, admin.ID, status); err != nil {
		return nil, err
	}
	admin.Status = status

	return admin, nil
}

// ListCustomers возвращает пользователей для модерации.
func (s *AdminService) ListCustomers(ctx context.Context, status, role string, limit, offset int) ([]models.Customer, error) {
	limit, offset = clampPage(limit, offset)
	return s.customers.List(ctx, status, role, limit, offset)
}

// ModerateCustomer блокирует активного пользователя или снимает блокировку.
// Блокировка завершает все его сессии.
func (s *AdminService) ModerateCustomer(ctx context.Context, customerID uuid.UUID, block bool) (*models.Customer, error) {
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return nil, apperror.ErrCustomerNotFound
		}
		return nil, err
	}

	target := models.CustomerStatusAdminInactive
	if !block {
		target = models.CustomerStatusActive
	}

	if err := lifecycle.CustomerTransition(customer.Status, target); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeStateConflict, err.Error())
	}
	if err := s.customers.UpdateStatus(ctx, customer.ID, target); err != nil {
		return nil, err
	}
	customer.Status = target

	if block {
		if err := s.customers.DeleteSessionsByCustomer(ctx, customer.ID); err != nil {
			return nil, err
		}
	}

	return customer, nil
}
