package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tourline/tourline-accounts/internal/domain"
)

type TripRepository interface {
	FindCurrentByAccount(ctx context.Context, accountID int64) (*domain.TripRecord, error)
	CreateWithItinerary(ctx context.Context, t *domain.TripRecord, days []domain.ItineraryDay) (*domain.TripRecord, error)
	Delete(ctx context.Context, id int64) error
	UpsertVisitedCountries(ctx context.Context, accountID int64, countries []string) error
}

type tripRepository struct {
	pool *pgxpool.Pool
}

func NewTripRepository(pool *pgxpool.Pool) TripRepository {
	return &tripRepository{pool: pool}
}

const tripCols = `id, account_id, product_code, reservation_code,
starts_at, ends_at, nights, days, destinations, created_by,
created_at, updated_at`

func scanTrip(row pgx.Row) (*domain.TripRecord, error) {
	var t domain.TripRecord
	err := row.Scan(
		&t.ID, &t.AccountID, &t.ProductCode, &t.ReservationCode,
		&t.StartsAt, &t.EndsAt, &t.Nights, &t.Days, &t.Destinations, &t.CreatedBy,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tripRepository) FindCurrentByAccount(ctx context.Context, accountID int64) (*domain.TripRecord, error) {
	const q = `SELECT ` + tripCols + ` FROM trips
		WHERE account_id = $1 ORDER BY created_at DESC LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanTrip(r.pool.QueryRow(ctx, q, accountID))
}

// CreateWithItinerary inserts the trip and its day rows in one
// transaction so a half-provisioned itinerary is never visible.
func (r *tripRepository) CreateWithItinerary(ctx context.Context, t *domain.TripRecord, days []domain.ItineraryDay) (*domain.TripRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const tripQ = `
		INSERT INTO trips (account_id, product_code, reservation_code,
			starts_at, ends_at, nights, days, destinations, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + tripCols

	created, err := scanTrip(tx.QueryRow(ctx, tripQ,
		t.AccountID, t.ProductCode, t.ReservationCode,
		t.StartsAt, t.EndsAt, t.Nights, t.Days, t.Destinations, t.CreatedBy,
	))
	if err != nil {
		return nil, err
	}

	const dayQ = `
		INSERT INTO itinerary_days (trip_id, day_number, destination, summary)
		VALUES ($1, $2, $3, $4)`

	for _, d := range days {
		if _, err := tx.Exec(ctx, dayQ, created.ID, d.DayNumber, d.Destination, d.Summary); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *tripRepository) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM trips WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id)
	return err
}

func (r *tripRepository) UpsertVisitedCountries(ctx context.Context, accountID int64, countries []string) error {
	const q = `
		INSERT INTO visited_countries (account_id, country, visit_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (account_id, country)
		DO UPDATE SET visit_count = visited_countries.visit_count + 1, updated_at = now()`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	for _, c := range countries {
		if _, err := r.pool.Exec(ctx, q, accountID, c); err != nil {
			return err
		}
	}
	return nil
}
