package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error taxonomy for the login pipeline. Services wrap these with %w;
// handlers map them to HTTP responses with errors.Is.
var (
	ErrValidation     = errors.New("validation failed")
	ErrAuthentication = errors.New("invalid credentials")
	ErrAuthorization  = errors.New("not permitted")
	ErrConflict       = errors.New("duplicate record")
	ErrProvisioning   = errors.New("provisioning failed")
)

// RateLimitError carries the window reset so the handler can emit a
// Retry-After value.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many attempts, retry after %s", e.ResetAt.Format(time.RFC3339))
}

func (e *RateLimitError) RetryAfter(now time.Time) int {
	secs := int(e.ResetAt.Sub(now).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}
