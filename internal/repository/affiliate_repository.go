package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tourline/tourline-accounts/internal/domain"
)

type AffiliateRepository interface {
	// EnsureProfile returns the affiliate profile for the account,
	// creating one with generated codes when missing. Concurrent
	// creation races resolve to the existing row.
	EnsureProfile(ctx context.Context, accountID int64) (*domain.AffiliateProfile, error)
}

type affiliateRepository struct {
	pool *pgxpool.Pool
}

func NewAffiliateRepository(pool *pgxpool.Pool) AffiliateRepository {
	return &affiliateRepository{pool: pool}
}

const affiliateCols = `account_id, referral_code, manage_code, created_at`

func (r *affiliateRepository) EnsureProfile(ctx context.Context, accountID int64) (*domain.AffiliateProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	existing, err := r.findByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	const q = `
		INSERT INTO affiliate_profiles (account_id, referral_code, manage_code)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id) DO NOTHING
		RETURNING ` + affiliateCols

	var p domain.AffiliateProfile
	err = r.pool.QueryRow(ctx, q, accountID, generateCode(), generateCode()).Scan(
		&p.AccountID, &p.ReferralCode, &p.ManageCode, &p.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		// Lost the creation race; the canonical row exists now.
		return r.findByAccount(ctx, accountID)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *affiliateRepository) findByAccount(ctx context.Context, accountID int64) (*domain.AffiliateProfile, error) {
	const q = `SELECT ` + affiliateCols + ` FROM affiliate_profiles WHERE account_id = $1`

	var p domain.AffiliateProfile
	err := r.pool.QueryRow(ctx, q, accountID).Scan(
		&p.AccountID, &p.ReferralCode, &p.ManageCode, &p.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func generateCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
