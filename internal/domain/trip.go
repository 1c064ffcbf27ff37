package domain

import (
	"strings"
	"time"
)

// TripRecord is the auto-provisioned travel context attached to an
// account so downstream features have data to operate on.
type TripRecord struct {
	ID              int64     `json:"id"`
	AccountID       int64     `json:"account_id"`
	ProductCode     string    `json:"product_code"`
	ReservationCode string    `json:"reservation_code"`
	StartsAt        time.Time `json:"starts_at"`
	EndsAt          time.Time `json:"ends_at"`
	Nights          int       `json:"nights"`
	Days            int       `json:"days"`
	Destinations    []string  `json:"destinations"`
	CreatedBy       string    `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Trip creators. Trips created through the admin workflow must never be
// replaced by the auto-provisioner.
const (
	TripCreatedByAdmin  = "admin"
	TripCreatedBySystem = "system"
)

func (t *TripRecord) Ended(now time.Time) bool {
	return now.After(t.EndsAt)
}

// ItineraryDay is one day of a trip's schedule, expanded from the
// product's day pattern.
type ItineraryDay struct {
	ID          int64  `json:"id"`
	TripID      int64  `json:"trip_id"`
	DayNumber   int    `json:"day_number"`
	Destination string `json:"destination"`
	Summary     string `json:"summary"`
}

// Product is a read-only catalog entry a trip is anchored to.
type Product struct {
	ID         int64  `json:"id"`
	Code       string `json:"code"`
	Title      string `json:"title"`
	Nights     int    `json:"nights"`
	Days       int    `json:"days"`
	DayPattern string `json:"day_pattern"` // pipe-separated destination per day
	Countries  string `json:"countries"`   // pipe-separated country list
}

// PatternDays expands the product's day pattern into one destination per
// day, padding with the last destination when the pattern is shorter
// than the day count.
func (p *Product) PatternDays() []string {
	parts := strings.Split(p.DayPattern, "|")
	if len(parts) == 1 && parts[0] == "" {
		parts = nil
	}
	days := make([]string, 0, p.Days)
	for i := 0; i < p.Days; i++ {
		switch {
		case i < len(parts):
			days = append(days, strings.TrimSpace(parts[i]))
		case len(parts) > 0:
			days = append(days, strings.TrimSpace(parts[len(parts)-1]))
		default:
			days = append(days, "")
		}
	}
	return days
}

func (p *Product) CountryList() []string {
	var out []string
	for _, c := range strings.Split(p.Countries, "|") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// ReferralLead is the attribution record written best-effort at login.
// Owned by the marketing subsystem; this service only upserts by phone.
type ReferralLead struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Status    string    `json:"status"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	LeadPending   = "pending"
	LeadConverted = "converted"
)
