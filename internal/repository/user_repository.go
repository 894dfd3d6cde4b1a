package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/session-auth-api/internal/models"
)

const userColumns = `user_no, email, password_hash, nickname, is_banned, is_deleted, created_at`

// UserRepository provides read-only access to user records.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address. sql.ErrNoRows is returned untouched when absent.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByNo returns a user by user number. sql.ErrNoRows is returned untouched when absent.
func (r *UserRepository) FindByNo(ctx context.Context, userNo int64) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE user_no = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, userNo); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by no: %w", err)
	}
	return &user, nil
}

// Ping checks connectivity for readiness probes.
func (r *UserRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
