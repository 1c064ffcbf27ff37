package domain

import (
	"fmt"
	"strings"
	"time"
)

// Account is the identity and lifecycle record behind every login path.
// The Password field is interpreted contextually: a real (hashed) secret
// for partner and community accounts, a status sentinel elsewhere. See
// LoginIntent for the explicit replacement of the sentinel convention.
type Account struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Phone          string     `json:"phone"`
	Password       string     `json:"-"`
	Role           string     `json:"role"`
	Status         string     `json:"status"`
	TrialStartedAt *time.Time `json:"trial_started_at,omitempty"`
	Onboarded      bool       `json:"onboarded"`
	LoginCount     int        `json:"login_count"`
	Source         string     `json:"source,omitempty"`
	CommunityID    string     `json:"community_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Roles
const (
	RoleCustomer        = "customer"
	RoleStaffAffiliate  = "staff-affiliate"
	RoleCommunityMember = "community-member"
	RoleAdmin           = "admin"
)

// Lifecycle statuses
const (
	StatusActive       = "active"
	StatusTrial        = "test-trial"
	StatusTrialExpired = "test-trial-expired"
	StatusDormant      = "dormant"
	StatusLocked       = "locked"
)

var validStatuses = map[string]bool{
	StatusActive:       true,
	StatusTrial:        true,
	StatusTrialExpired: true,
	StatusDormant:      true,
	StatusLocked:       true,
}

func IsValidStatus(status string) bool {
	return validStatuses[status]
}

// LoginIntent is the explicit, client-supplied replacement for the legacy
// mode hint. Legacy sentinel passwords are mapped to intents in exactly
// one place (the classifier rule table).
type LoginIntent string

const (
	IntentNone      LoginIntent = ""
	IntentPartner   LoginIntent = "partner"
	IntentTrial     LoginIntent = "trial"
	IntentCommunity LoginIntent = "community"
	IntentAdmin     LoginIntent = "admin"
	IntentCustomer  LoginIntent = "customer"
)

// LoginRequest is the credential tuple submitted to the login endpoint.
type LoginRequest struct {
	Name     string      `json:"name"`
	Phone    string      `json:"phone"`
	Password string      `json:"password"`
	Intent   LoginIntent `json:"intent,omitempty"`
}

type LoginResponse struct {
	OK                  bool         `json:"ok"`
	Next                string       `json:"next"`
	CSRFToken           string       `json:"csrf_token"`
	Account             *AccountInfo `json:"account"`
	TrialExpired        bool         `json:"trial_expired,omitempty"`
	TrialRemainingHours int          `json:"trial_remaining_hours,omitempty"`

	// SessionID travels in the session cookie, never in the body.
	SessionID string `json:"-"`
}

// AccountInfo is the public projection of an Account.
type AccountInfo struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	Onboarded bool   `json:"onboarded"`
}

func (a *Account) ToAccountInfo() *AccountInfo {
	return &AccountInfo{
		ID:        a.ID,
		Name:      a.Name,
		Phone:     a.Phone,
		Role:      a.Role,
		Status:    a.Status,
		Onboarded: a.Onboarded,
	}
}

// TrialExpiry returns the end of the trial window, or the zero time when
// no trial has been started.
func (a *Account) TrialExpiry(window time.Duration) time.Time {
	if a.TrialStartedAt == nil {
		return time.Time{}
	}
	return a.TrialStartedAt.Add(window)
}

func (r *LoginRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Password = strings.TrimSpace(r.Password)
}

func (r *LoginRequest) Validate() error {
	if r.Phone == "" {
		return fmt.Errorf("%w: phone is required", ErrValidation)
	}
	if r.Password == "" {
		return fmt.Errorf("%w: password is required", ErrValidation)
	}
	switch r.Intent {
	case IntentNone, IntentPartner, IntentTrial, IntentCommunity, IntentAdmin, IntentCustomer:
	default:
		return fmt.Errorf("%w: unknown intent %q", ErrValidation, r.Intent)
	}
	return nil
}

// Session is short-lived proof of authentication. Expiry is absolute,
// never sliding.
type Session struct {
	ID        string    `json:"id"`
	AccountID int64     `json:"account_id"`
	CSRFToken string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// UpdateStatusRequest is the admin status-override payload.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

func (r *UpdateStatusRequest) Validate() error {
	if !IsValidStatus(r.Status) {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, r.Status)
	}
	return nil
}
