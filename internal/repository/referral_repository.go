package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tourline/tourline-accounts/internal/domain"
)

// ReferralRepository writes attribution leads owned by the marketing
// subsystem. The only contract this service needs is upsert-by-phone.
type ReferralRepository interface {
	UpsertByPhone(ctx context.Context, lead *domain.ReferralLead) error
}

type referralRepository struct {
	pool *pgxpool.Pool
}

func NewReferralRepository(pool *pgxpool.Pool) ReferralRepository {
	return &referralRepository{pool: pool}
}

func (r *referralRepository) UpsertByPhone(ctx context.Context, lead *domain.ReferralLead) error {
	const q = `
		INSERT INTO referral_leads (id, name, phone, status, source)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (phone) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			source = EXCLUDED.source,
			updated_at = now()`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, q, lead.ID, lead.Name, lead.Phone, lead.Status, lead.Source)
	return err
}
