package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tourline/tourline-accounts/internal/domain"
	"github.com/tourline/tourline-accounts/internal/repository"
	"github.com/tourline/tourline-accounts/pkg/config"
	"github.com/tourline/tourline-accounts/pkg/events"
	"github.com/tourline/tourline-accounts/pkg/logger"
)

// TripProvisioner attaches a travel record and day-by-day itinerary to
// newly active or trial accounts so downstream features have data to
// operate on. Every failure is wrapped as a provisioning error; callers
// log and swallow it, a login never fails on trip provisioning.
type TripProvisioner struct {
	trips     repository.TripRepository
	products  repository.ProductRepository
	publisher events.Publisher
	cfg       *config.Config
	now       func() time.Time
}

func NewTripProvisioner(
	trips repository.TripRepository,
	products repository.ProductRepository,
	publisher events.Publisher,
	cfg *config.Config,
) *TripProvisioner {
	return &TripProvisioner{
		trips:     trips,
		products:  products,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Provision ensures the account has a current trip anchored to the
// designated product. Trips created through the admin workflow are
// preserved unconditionally; a trip on the right product that has not
// ended yet is left untouched.
func (p *TripProvisioner) Provision(ctx context.Context, acct *domain.Account, trial bool) error {
	code := p.cfg.Trip.DefaultProductCode
	if trial {
		code = p.cfg.Trip.SampleProductCode
	}

	product, err := p.lookupProduct(ctx, code)
	if err != nil {
		return err
	}

	now := p.now()
	existing, err := p.trips.FindCurrentByAccount(ctx, acct.ID)
	if err != nil {
		return fmt.Errorf("%w: trip lookup: %v", domain.ErrProvisioning, err)
	}
	if existing != nil {
		if existing.CreatedBy == domain.TripCreatedByAdmin {
			return nil
		}
		if existing.ProductCode == product.Code && !existing.Ended(now) {
			return nil
		}
		if err := p.trips.Delete(ctx, existing.ID); err != nil {
			return fmt.Errorf("%w: replacing trip %d: %v", domain.ErrProvisioning, existing.ID, err)
		}
	}

	start := now
	if !trial {
		start = now.Add(p.cfg.Trip.ActiveStartOffset)
	}

	pattern := product.PatternDays()
	trip := &domain.TripRecord{
		AccountID:       acct.ID,
		ProductCode:     product.Code,
		ReservationCode: newReservationCode(),
		StartsAt:        start,
		EndsAt:          start.AddDate(0, 0, product.Nights),
		Nights:          product.Nights,
		Days:            product.Days,
		Destinations:    distinct(pattern),
		CreatedBy:       domain.TripCreatedBySystem,
	}

	days := make([]domain.ItineraryDay, 0, len(pattern))
	for i, dest := range pattern {
		days = append(days, domain.ItineraryDay{
			DayNumber:   i + 1,
			Destination: dest,
			Summary:     fmt.Sprintf("Day %d: %s", i+1, dest),
		})
	}

	created, err := p.trips.CreateWithItinerary(ctx, trip, days)
	if err != nil {
		return fmt.Errorf("%w: creating trip: %v", domain.ErrProvisioning, err)
	}

	if err := p.trips.UpsertVisitedCountries(ctx, acct.ID, product.CountryList()); err != nil {
		return fmt.Errorf("%w: visited countries: %v", domain.ErrProvisioning, err)
	}

	if err := p.publisher.Publish(ctx, events.TripProvisioned, events.TripProvisionedEvent{
		AccountID:       acct.ID,
		TripID:          created.ID,
		ProductCode:     created.ProductCode,
		ReservationCode: created.ReservationCode,
		StartsAt:        created.StartsAt,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish trip.provisioned", "error", err)
	}

	return nil
}

func (p *TripProvisioner) lookupProduct(ctx context.Context, code string) (*domain.Product, error) {
	product, err := p.products.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: product lookup: %v", domain.ErrProvisioning, err)
	}
	if product != nil {
		return product, nil
	}

	product, err = p.products.FindByCode(ctx, p.cfg.Trip.FallbackProductCode)
	if err != nil {
		return nil, fmt.Errorf("%w: fallback product lookup: %v", domain.ErrProvisioning, err)
	}
	if product == nil {
		return nil, fmt.Errorf("%w: no catalog entry for %q or fallback %q",
			domain.ErrProvisioning, code, p.cfg.Trip.FallbackProductCode)
	}
	return product, nil
}

func newReservationCode() string {
	return "TL-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func distinct(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
