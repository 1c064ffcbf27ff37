package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tourline/tourline-accounts/internal/domain"
)

// ProductRepository is the read-only catalog collaborator.
type ProductRepository interface {
	FindByCode(ctx context.Context, code string) (*domain.Product, error)
}

type productRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &productRepository{pool: pool}
}

func (r *productRepository) FindByCode(ctx context.Context, code string) (*domain.Product, error) {
	const q = `SELECT id, code, title, nights, days, day_pattern, countries
		FROM products WHERE code = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var p domain.Product
	err := r.pool.QueryRow(ctx, q, code).Scan(
		&p.ID, &p.Code, &p.Title, &p.Nights, &p.Days, &p.DayPattern, &p.Countries,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
