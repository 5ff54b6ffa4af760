package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/escrow-backend/internal/models"
)

// ErrCustomerNotFound возвращается, когда запись пользователя не найдена.
var ErrCustomerNotFound = errors.New("customer not found")

// ErrEmailTaken возвращается при попытке регистрации на занятый email.
var ErrEmailTaken = errors.New("email already taken")

// CustomerRepository отвечает за работу с таблицами customers и customer_sessions.
type CustomerRepository struct {
	db *sqlx.DB
}

// NewCustomerRepository создаёт экземпляр репозитория.
func NewCustomerRepository(db *sqlx.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// Create создаёт нового пользователя.
func (r *CustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	query := `
		INSERT INTO customers (email, password_hash, name, role, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		customer.Email, customer.PasswordHash, customer.Name, customer.Role, customer.Status,
	).Scan(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt); err != nil {
		if IsUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("customer repository: create %w", err)
	}

	return nil
}

// GetByEmail возвращает пользователя по email.
func (r *CustomerRepository) GetByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.GetContext(ctx, &customer, `SELECT * FROM customers WHERE email = $1`, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("customer repository: get by email %w", err)
	}

	return &customer, nil
}

// GetByID возвращает пользователя по идентификатору.
func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.GetContext(ctx, &customer, `SELECT * FROM customers WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("customer repository: get by id %w", err)
	}

	return &customer, nil
}

// List возвращает пользователей для админки с фильтром по статусу и роли.
func (r *CustomerRepository) List(ctx context.Context, status, role string, limit, offset int) ([]models.Customer, error) {
	query := `SELECT * FROM customers WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, status)
		argIndex++
	}
	if role != "" {
		query += fmt.Sprintf(" AND role = $%d", argIndex)
		args = append(args, role)
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	customers := []models.Customer{}
	if err := r.db.SelectContext(ctx, &customers, query, args...); err != nil {
		return nil, fmt.Errorf("customer repository: list %w", err)
	}

	return customers, nil
}

// UpdateStatus переводит пользователя в новый статус.
func (r *CustomerRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE customers SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("customer repository: update status %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrCustomerNotFound
	}

	return nil
}

// UpdateStripeAccount сохраняет идентификатор Stripe Connect аккаунта исполнителя.
func (r *CustomerRepository) UpdateStripeAccount(ctx context.Context, id uuid.UUID, accountID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE customers SET stripe_account_id = $2, updated_at = NOW() WHERE id = $1
	`, id, accountID)
	if err != nil {
		return fmt.Errorf("customer repository: update stripe account %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrCustomerNotFound
	}

	return nil
}

// UpdatePassword меняет хеш пароля пользователя.
func (r *CustomerRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE customers SET password_hash = $2, updated_at = NOW() WHERE id = $1
	`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("customer repository: update password %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrCustomerNotFound
	}

	return nil
}

// UpdateLastLogin отмечает время последнего входа.
func (r *CustomerRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE customers SET last_login_at = NOW() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("customer repository: update last login %w", err)
	}
	return nil
}

// CreateSession сохраняет refresh сессию пользователя.
func (r *CustomerRepository) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO customer_sessions (customer_id, refresh_token, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		session.CustomerID, session.RefreshToken, session.UserAgent, session.IPAddress, session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt); err != nil {
		return fmt.Errorf("customer repository: create session %w", err)
	}

	return nil
}

// GetSessionByToken возвращает непросроченную сессию по refresh токену.
func (r *CustomerRepository) GetSessionByToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	var session models.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM customer_sessions
		WHERE refresh_token = $1 AND expires_at > NOW()
	`, refreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("customer repository: get session %w", err)
	}

	return &session, nil
}

// DeleteSession удаляет сессию по refresh токену.
func (r *CustomerRepository) DeleteSession(ctx context.Context, refreshToken string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM customer_sessions WHERE refresh_token = $1`, refreshToken)
	if err != nil {
		return fmt.Errorf("customer repository: delete session %w", err)
	}
	return nil
}

// DeleteSessionsByCustomer удаляет все сессии пользователя.
func (r *CustomerRepository) DeleteSessionsByCustomer(ctx context.Context, customerID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM customer_sessions WHERE customer_id = $1`, customerID)
	if err != nil {
		return fmt.Errorf("customer repository: delete sessions %w", err)
	}
	return nil
}

// DeleteExpiredSessions удаляет просроченные сессии. Вызывается фоновой задачей.
func (r *CustomerRepository) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM customer_sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("customer repository: delete expired sessions %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows, nil
}

// IsUniqueViolation сообщает, является ли ошибка нарушением уникального индекса.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
