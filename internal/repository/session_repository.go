package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tourline/tourline-accounts/internal/domain"
)

type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error
	FindByID(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByAccount(ctx context.Context, accountID int64) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type sessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepository{pool: pool}
}

const sessionCols = `id, account_id, csrf_token, expires_at, created_at`

func (r *sessionRepository) Create(ctx context.Context, s *domain.Session) error {
	const q = `
		INSERT INTO sessions (id, account_id, csrf_token, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return r.pool.QueryRow(ctx, q, s.ID, s.AccountID, s.CSRFToken, s.ExpiresAt).Scan(&s.CreatedAt)
}

func (r *sessionRepository) FindByID(ctx context.Context, id string) (*domain.Session, error) {
	const q = `SELECT ` + sessionCols + ` FROM sessions WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var s domain.Session
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&s.ID, &s.AccountID, &s.CSRFToken, &s.ExpiresAt, &s.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM sessions WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id)
	return err
}

func (r *sessionRepository) DeleteByAccount(ctx context.Context, accountID int64) (int64, error) {
	const q = `DELETE FROM sessions WHERE account_id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, accountID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func (r *sessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	const q = `DELETE FROM sessions WHERE expires_at < now()`
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
