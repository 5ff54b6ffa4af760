package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrow-backend/internal/models"
)

// ErrAdminNotFound возвращается, когда администратор не найден.
var ErrAdminNotFound = errors.New("admin not found")

// AdminRepository отвечает за работу с таблицей admins.
type AdminRepository struct {
	db *sqlx.DB
}

// NewAdminRepository создаёт экземпляр репозитория.
func NewAdminRepository(db *sqlx.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// Create создаёт нового администратора.
func (r *AdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	query := `
		INSERT INTO admins (email, password_hash, name, role, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		admin.Email, admin.PasswordHash, admin.Name, admin.Role, admin.Status,
	).Scan(&admin.ID, &admin.CreatedAt, &admin.UpdatedAt); err != nil {
		if IsUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("admin repository: create %w", err)
	}

	return nil
}

// GetByEmail возвращает администратора по email.
func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.GetContext(ctx, &admin, `SELECT * FROM admins WHERE email = $1`, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("admin repository: get by email %w", err)
	}

	return &admin, nil
}

// GetByID возвращает администратора по идентификатору.
func (r *AdminRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.GetContext(ctx, &admin, `SELECT * FROM admins WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("admin repository: get by id %w", err)
	}

	return &admin, nil
}

// List возвращает всех администраторов.
func (r *AdminRepository) List(ctx context.Context, limit, offset int) ([]models.Admin, error) {
	admins := []models.Admin{}
	err := r.db.SelectContext(ctx, &admins, `
		SELECT * FROM admins ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("admin repository: list %w", err)
	}

	return admins, nil
}

// UpdateStatus активирует или деактивирует администратора.
func (r *AdminRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE admins SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("admin repository: update status %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrAdminNotFound
	}

	return nil
}
