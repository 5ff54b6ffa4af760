package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/escrow-backend/internal/mail"
	"github.com/ignatzorin/escrow-backend/internal/models"
	"github.com/ignatzorin/escrow-backend/internal/repository"
)

type mockAuthRepo struct {
	mock.Mock
}

func (m *mockAuthRepo) Create(ctx context.Context, customer *models.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

func (m *mockAuthRepo) GetByEmail(ctx context.Context, email string) (*models.Customer, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

func (m *mockAuthRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockAuthRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockAuthRepo) CreateSession(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockAuthRepo) GetSessionByToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *mockAuthRepo) DeleteSession(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *mockAuthRepo) DeleteSessionsByCustomer(ctx context.Context, customerID uuid.UUID) error {
	args := m.Called(ctx, customerID)
	return args.Error(0)
}

func newAuthService(repo *mockAuthRepo) *AuthService {
	verification := NewVerificationService(nil, nil, mail.NoopMailer{})
	return NewAuthService(repo, newTestTokenManager(), verification)
}

func TestAuthService_Register(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newAuthService(repo)
	ctx := context.Background()

	repo.On("Create", ctx, mock.MatchedBy(func(c *models.Customer) bool {
		return c.Email == "client@example.com" &&
			c.Status == models.CustomerStatusPendingVerification &&
			c.PasswordHash != "Str0ngPass!"
	})).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Customer).ID = uuid.New()
	})
	repo.On("CreateSession", ctx, mock.AnythingOfType("*models.Session")).Return(nil)

	result, err := svc.Register(ctx, RegisterInput{
		Email:    " Client@Example.com ",
		Password: "Str0ngPass!",
		Name:     "Иван",
		Role:     models.CustomerRoleClient,
	}, SessionMeta{UserAgent: "test-agent", IPAddress: "127.0.0.1"})
	assert.NoError(t, err)
	assert.Equal(t, models.CustomerStatusPendingVerification, result.Customer.Status)
	assert.NotEmpty(t, result.TokenPair.AccessToken)
	repo.AssertExpectations(t)
}

func TestAuthService_Register_UnknownRole(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newAuthService(repo)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "client@example.com",
		Password: "Str0ngPass!",
		Name:     "Иван",
		Role:     "manager",
	}, SessionMeta{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "client или vendor")
	repo.AssertNotCalled(t, "Create")
}

func TestAuthService_Register_EmailTaken(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newAuthService(repo)
	ctx := context.Background()

	repo.On("Create", ctx, mock.Anything).Return(repository.ErrEmailTaken)

	_, err := svc.Register(ctx, RegisterInput{
		Email:    "client@example.com",
		Password: "Str0ngPass!",
		Name:     "Иван",
		Role:     models.CustomerRoleClient,
	}, SessionMeta{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "уже зарегистрирован")
}

func TestAuthService_Login(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newAuthService(repo)
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("Str0ngPass!"), bcrypt.MinCost)
	customer := &models.Customer{
		ID:           uuid.New(),
		Email:        "client@example.com",
		PasswordHash: string(hash),
		Role:         models.CustomerRoleClient,
		Status:       models.CustomerStatusActive,
	}
	repo.On("GetByEmail", ctx, "client@example.com").Return(customer, nil)
	repo.On("UpdateLastLogin", ctx, customer.ID).Return(nil)
	repo.On("CreateSession", ctx, mock.AnythingOfType("*models.Session")).Return(nil)

	result, err := svc.Login(ctx, "Client@Example.COM", "Str0ngPass!", SessionMeta{})
	assert.NoError(t, err)
	assert.Equal(t, customer.ID, result.Customer.ID)
	assert.NotEmpty(t, result.TokenPair.RefreshToken)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newAuthService(repo)
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("Str0ngPass!"), bcrypt.MinCost)
	repo.On("GetByEmail", ctx, "client@example.com").Return(&models.Customer{
		PasswordHash: string(hash),
		Status:       models.CustomerStatusActive,
	}, nil)

	_, err := svc.Login(ctx, "client@example.com", "wrong", SessionMeta{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "неверные учетные данные")
}

func TestAuthService_Login_BlockedCustomer(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newAuthService(repo)
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("Str0ngPass!"), bcrypt.MinCost)
	repo.On("GetByEmail", ctx, "client@example.com").Return(&models.Customer{
		PasswordHash: string(hash),
		Status:       models.CustomerStatusAdminInactive,
	}, nil)

	_, err := svc.Login(ctx, "client@example.com", "Str0ngPass!", SessionMeta{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "заблокирована")
}

func TestAuthService_Refresh_RotatesSession(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newAuthService(repo)
	ctx := context.Background()

	customer := &models.Customer{
		ID:     uuid.New(),
		Role:   models.CustomerRoleClient,
		Status: models.CustomerStatusActive,
	}
	pair, _, _, err := newTestTokenManager().GeneratePair(customer.ID, customer.Role)
	assert.NoError(t, err)

	repo.On("GetSessionByToken", ctx, pair.RefreshToken).Return(&models.Session{
		CustomerID:   customer.ID,
		RefreshToken: pair.RefreshToken,
	}, nil)
	repo.On("GetByID", ctx, customer.ID).Return(customer, nil)
	repo.On("DeleteSession", ctx, pair.RefreshToken).Return(nil)
	repo.On("CreateSession", ctx, mock.AnythingOfType("*models.Session")).Return(nil)

	result, err := svc.Refresh(ctx, pair.RefreshToken, SessionMeta{})
	assert.NoError(t, err)
	assert.NotEmpty(t, result.TokenPair.RefreshToken)
	repo.AssertCalled(t, "DeleteSession", ctx, pair.RefreshToken)
}

func TestAuthService_Refresh_UnknownSession(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newAuthService(repo)
	ctx := context.Background()

	pair, _, _, err := newTestTokenManager().GeneratePair(uuid.New(), models.CustomerRoleClient)
	assert.NoError(t, err)
	repo.On("GetSessionByToken", ctx, pair.RefreshToken).Return(nil, repository.ErrCustomerNotFound)

	_, err = svc.Refresh(ctx, pair.RefreshToken, SessionMeta{})
	assert.Error(t, err)
}

func TestAuthService_Refresh_GarbageToken(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newAuthService(repo)

	_, err := svc.Refresh(context.Background(), "not-a-jwt", SessionMeta{})
	assert.Error(t, err)
	repo.AssertNotCalled(t, "GetSessionByToken")
}

func TestAuthService_Deactivate(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newAuthService(repo)
	ctx := context.Background()

	customerID := uuid.New()
	repo.On("GetByID", ctx, customerID).Return(&models.Customer{
		ID:     customerID,
		Status: models.CustomerStatusActive,
	}, nil)
	repo.On("UpdateStatus", ctx, customerID, models.CustomerStatusUserInactive).Return(nil)
	repo.On("DeleteSessionsByCustomer", ctx, customerID).Return(nil)

	err := svc.Deactivate(ctx, customerID)
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestAuthService_Deactivate_OnlyActive(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := newAuthService(repo)
	ctx := context.Background()

	customerID := uuid.New()
	repo.On("GetByID", ctx, customerID).Return(&models.Customer{
		ID:     customerID,
		Status: models.CustomerStatusPendingVerification,
	}, nil)

	err := svc.Deactivate(ctx, customerID)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "DeleteSessionsByCustomer")
}
