package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kegtrack/bracket-engine/models"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.AdminUser, error)
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	query := `
		SELECT id, email, password_hash, role, created_at
		FROM admin_users
		WHERE lower(email) = lower($1)`

	user := &models.AdminUser{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
