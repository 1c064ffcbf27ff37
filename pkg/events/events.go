package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/tourline/tourline-accounts/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSPublisher{conn: conn}, nil
}

func (n *NATSPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSPublisher) Close() error {
	n.conn.Close()
	return nil
}

// NoopPublisher drops events. Used when NATS is not configured and in tests.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NoopPublisher) Close() error                                       { return nil }

// Account lifecycle subjects
const (
	AccountCreated     = "account.created"
	AccountReactivated = "account.reactivated"
	LoginSucceeded     = "login.succeeded"
	TrialStarted       = "trial.started"
	TrialExpired       = "trial.expired"
	TripProvisioned    = "trip.provisioned"
	ReferralRecorded   = "referral.recorded"
	SessionsRevoked    = "sessions.revoked"
)

// Event payloads
type AccountCreatedEvent struct {
	AccountID int64     `json:"account_id"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type AccountReactivatedEvent struct {
	AccountID     int64     `json:"account_id"`
	Role          string    `json:"role"`
	Source        string    `json:"source,omitempty"`
	ReactivatedAt time.Time `json:"reactivated_at"`
}

type LoginSucceededEvent struct {
	AccountID  int64     `json:"account_id"`
	Role       string    `json:"role"`
	Path       string    `json:"path"`
	LoginCount int       `json:"login_count"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

type TrialStartedEvent struct {
	AccountID int64     `json:"account_id"`
	StartedAt time.Time `json:"started_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type TrialExpiredEvent struct {
	AccountID int64     `json:"account_id"`
	ExpiredAt time.Time `json:"expired_at"`
}

type TripProvisionedEvent struct {
	AccountID       int64     `json:"account_id"`
	TripID          int64     `json:"trip_id"`
	ProductCode     string    `json:"product_code"`
	ReservationCode string    `json:"reservation_code"`
	StartsAt        time.Time `json:"starts_at"`
}

type SessionsRevokedEvent struct {
	AccountID int64     `json:"account_id"`
	Count     int64     `json:"count"`
	RevokedAt time.Time `json:"revoked_at"`
}

type ReferralRecordedEvent struct {
	Phone      string    `json:"phone"`
	Source     string    `json:"source"`
	RecordedAt time.Time `json:"recorded_at"`
}
