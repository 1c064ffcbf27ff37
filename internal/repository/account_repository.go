package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tourline/tourline-accounts/internal/domain"
)

type AccountRepository interface {
	Create(ctx context.Context, a *domain.Account) (*domain.Account, error)
	FindByID(ctx context.Context, id int64) (*domain.Account, error)
	FindByPhone(ctx context.Context, phone string) (*domain.Account, error)
	FindByPhoneAndRole(ctx context.Context, phone, role string) (*domain.Account, error)
	FindByNamePhoneRole(ctx context.Context, name, phone, role string) (*domain.Account, error)
	FindExact(ctx context.Context, name, phone, password, role string) (*domain.Account, error)
	FindStaffByIdentifier(ctx context.Context, identifier string) (*domain.Account, error)
	FindCommunityMember(ctx context.Context, identifier, source string) (*domain.Account, error)
	FindDormant(ctx context.Context, identifier string) (*domain.Account, error)
	Update(ctx context.Context, a *domain.Account) (*domain.Account, error)
	List(ctx context.Context, limit, offset int) ([]domain.Account, error)
}

type accountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

const accountCols = `id, name, phone, password, role, status,
trial_started_at, onboarded, login_count, source, community_id,
created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID, &a.Name, &a.Phone, &a.Password, &a.Role, &a.Status,
		&a.TrialStartedAt, &a.Onboarded, &a.LoginCount, &a.Source, &a.CommunityID,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// IsUniqueViolation reports whether err is a unique-constraint conflict.
// Creation races are recovered by re-reading the canonical row, never
// treated as hard failures.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *accountRepository) Create(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	const q = `
		INSERT INTO accounts (name, phone, password, role, status,
			trial_started_at, onboarded, login_count, source, community_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + accountCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	created, err := scanAccount(r.pool.QueryRow(ctx, q,
		a.Name, a.Phone, a.Password, a.Role, a.Status,
		a.TrialStartedAt, a.Onboarded, a.LoginCount, a.Source, a.CommunityID,
	))
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: account (%s, %s, %s)", domain.ErrConflict, a.Name, a.Phone, a.Role)
		}
		return nil, err
	}
	return created, nil
}

func (r *accountRepository) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	const q = `SELECT ` + accountCols + ` FROM accounts WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanAccount(r.pool.QueryRow(ctx, q, id))
}

func (r *accountRepository) FindByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	const q = `SELECT ` + accountCols + ` FROM accounts WHERE phone = $1 ORDER BY id LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanAccount(r.pool.QueryRow(ctx, q, phone))
}

func (r *accountRepository) FindByPhoneAndRole(ctx context.Context, phone, role string) (*domain.Account, error) {
	const q = `SELECT ` + accountCols + ` FROM accounts WHERE phone = $1 AND role = $2 ORDER BY id LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanAccount(r.pool.QueryRow(ctx, q, phone, role))
}

func (r *accountRepository) FindByNamePhoneRole(ctx context.Context, name, phone, role string) (*domain.Account, error) {
	const q = `SELECT ` + accountCols + ` FROM accounts WHERE name = $1 AND phone = $2 AND role = $3 ORDER BY id LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanAccount(r.pool.QueryRow(ctx, q, name, phone, role))
}

func (r *accountRepository) FindExact(ctx context.Context, name, phone, password, role string) (*domain.Account, error) {
	const q = `SELECT ` + accountCols + ` FROM accounts
		WHERE name = $1 AND phone = $2 AND password = $3 AND role = $4
		ORDER BY id LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanAccount(r.pool.QueryRow(ctx, q, name, phone, password, role))
}

// FindStaffByIdentifier matches staff accounts case-insensitively on the
// name or on the (possibly synthetic) phone identifier.
func (r *accountRepository) FindStaffByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	const q = `SELECT ` + accountCols + ` FROM accounts
		WHERE role = $1 AND (lower(name) = lower($2) OR lower(phone) = lower($2))
		ORDER BY id LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanAccount(r.pool.QueryRow(ctx, q, domain.RoleStaffAffiliate, identifier))
}

// FindCommunityMember looks up by the community identifier field with a
// legacy fallback to the phone field, scoped to the community role and
// attribution source so unrelated customer accounts sharing a phone are
// never matched.
func (r *accountRepository) FindCommunityMember(ctx context.Context, identifier, source string) (*domain.Account, error) {
	const q = `SELECT ` + accountCols + ` FROM accounts
		WHERE role = $1 AND source = $2
		  AND (community_id = $3 OR (community_id = '' AND phone = $3))
		ORDER BY (community_id = $3) DESC, id LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanAccount(r.pool.QueryRow(ctx, q, domain.RoleCommunityMember, source, identifier))
}

// FindDormant matches the sentinel triple marking a hibernating record:
// name, phone, and stored password all equal to the identifier.
func (r *accountRepository) FindDormant(ctx context.Context, identifier string) (*domain.Account, error) {
	const q = `SELECT ` + accountCols + ` FROM accounts
		WHERE name = $1 AND phone = $1 AND password = $1 AND status = $2
		ORDER BY id LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanAccount(r.pool.QueryRow(ctx, q, identifier, domain.StatusDormant))
}

func (r *accountRepository) Update(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	const q = `
		UPDATE accounts
		SET name = $2, phone = $3, password = $4, role = $5, status = $6,
			trial_started_at = $7, onboarded = $8, login_count = $9,
			source = $10, community_id = $11, updated_at = now()
		WHERE id = $1
		RETURNING ` + accountCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanAccount(r.pool.QueryRow(ctx, q,
		a.ID, a.Name, a.Phone, a.Password, a.Role, a.Status,
		a.TrialStartedAt, a.Onboarded, a.LoginCount, a.Source, a.CommunityID,
	))
}

func (r *accountRepository) List(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `SELECT ` + accountCols + ` FROM accounts ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(
			&a.ID, &a.Name, &a.Phone, &a.Password, &a.Role, &a.Status,
			&a.TrialStartedAt, &a.Onboarded, &a.LoginCount, &a.Source, &a.CommunityID,
			&a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
