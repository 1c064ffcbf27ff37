package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tourline/tourline-accounts/internal/domain"
	"github.com/tourline/tourline-accounts/internal/repository"
	"github.com/tourline/tourline-accounts/pkg/auth"
	"github.com/tourline/tourline-accounts/pkg/config"
)

// SessionIssuer creates the session record and anti-forgery token for a
// resolved account. Expiry is absolute. Roles outside the configured
// multi-session set have all prior sessions replaced at issuance.
type SessionIssuer struct {
	sessions repository.SessionRepository
	cfg      *config.Config
	now      func() time.Time
}

func NewSessionIssuer(sessions repository.SessionRepository, cfg *config.Config) *SessionIssuer {
	return &SessionIssuer{
		sessions: sessions,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (i *SessionIssuer) Issue(ctx context.Context, acct *domain.Account) (*domain.Session, error) {
	if !i.cfg.MultiSession(acct.Role) {
		if _, err := i.sessions.DeleteByAccount(ctx, acct.ID); err != nil {
			return nil, fmt.Errorf("failed to invalidate prior sessions: %w", err)
		}
	}

	id := uuid.NewString()
	csrfToken, err := auth.NewCSRFToken(id, i.cfg.Auth.CSRFSecret, i.cfg.Auth.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create anti-forgery token: %w", err)
	}

	sess := &domain.Session{
		ID:        id,
		AccountID: acct.ID,
		CSRFToken: csrfToken,
		ExpiresAt: i.now().Add(i.cfg.Auth.SessionTTL),
	}

	if err := i.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	return sess, nil
}
