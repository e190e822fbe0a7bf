package repository

import (
	"context"
	"errors"
	"fmt"

	"intakeflow/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

// CreateUser inserts the profile or refreshes name and email when the user already exists.
func (r *userRepo) CreateUser(ctx context.Context, u *model.User) error {
	query := `INSERT INTO users (user_id, name, email)
              VALUES ($1, $2, $3)
              ON CONFLICT (user_id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, updated_at = NOW()
              RETURNING user_id, name, email, is_admin, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query, u.UserID, u.Name, u.Email).Scan(&u.UserID, &u.Name, &u.Email, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating user %s: %w", u.UserID, err)
	}
	return nil
}

func (r *userRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT user_id, name, email, is_admin, created_at, updated_at FROM users WHERE user_id=$1`
	return r.getOne(ctx, query, id)
}

func (r *userRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT user_id, name, email, is_admin, created_at, updated_at FROM users WHERE email=$1`
	return r.getOne(ctx, query, email)
}

func (r *userRepo) getOne(ctx context.Context, query string, arg string) (*model.User, error) {
	var u model.User
	row := r.pool.QueryRow(ctx, query, arg)
	if err := row.Scan(&u.UserID, &u.Name, &u.Email, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	return &u, nil
}
