package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zhouzirui/msl-practice/backend/internal/model/user"
)

const uniqueViolation = "23505"

// UserStore implements user.Store.
type UserStore struct {
	pool *pgxpool.Pool
}

var _ user.Store = (*UserStore)(nil)

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.getOne(ctx, `WHERE email = $1`, user.NormalizeEmail(email))
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*user.User, error) {
	return s.getOne(ctx, `WHERE user_id = $1`, id)
}

func (s *UserStore) Create(ctx context.Context, u *user.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (user_id, email, name, password_hash, total_sessions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, user.NormalizeEmail(u.Email), u.Name, u.PasswordHash, u.TotalSessions, u.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return user.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *UserStore) IncrementSessions(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET total_sessions = total_sessions + 1 WHERE user_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment session count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (s *UserStore) getOne(ctx context.Context, where string, arg string) (*user.User, error) {
	var u user.User
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, email, name, password_hash, total_sessions, created_at
		FROM users `+where, arg).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.TotalSessions, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
