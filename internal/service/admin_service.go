package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tourline/tourline-accounts/internal/domain"
	"github.com/tourline/tourline-accounts/internal/repository"
	"github.com/tourline/tourline-accounts/pkg/events"
	"github.com/tourline/tourline-accounts/pkg/logger"
)

type AdminService interface {
	ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error)
	GetAccount(ctx context.Context, id int64) (*domain.Account, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*domain.Account, error)
	RevokeSessions(ctx context.Context, accountID int64) (int64, error)
}

type adminService struct {
	accounts  repository.AccountRepository
	sessions  repository.SessionRepository
	publisher events.Publisher
}

func NewAdminService(
	accounts repository.AccountRepository,
	sessions repository.SessionRepository,
	publisher events.Publisher,
) AdminService {
	return &adminService{
		accounts:  accounts,
		sessions:  sessions,
		publisher: publisher,
	}
}

func (s *adminService) ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	return s.accounts.List(ctx, limit, offset)
}

func (s *adminService) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	return s.accounts.FindByID(ctx, id)
}

func (s *adminService) UpdateStatus(ctx context.Context, id int64, status string) (*domain.Account, error) {
	if !domain.IsValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
	}

	acct, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, nil
	}

	acct.Status = status
	if status == domain.StatusDormant || status == domain.StatusActive {
		acct.TrialStartedAt = nil
	}

	updated, err := s.accounts.Update(ctx, acct)
	if err != nil {
		return nil, err
	}

	// Locking an account ends its live sessions immediately.
	if status == domain.StatusLocked {
		if _, err := s.RevokeSessions(ctx, id); err != nil {
			logger.WarnContext(ctx, "Failed to revoke sessions for locked account", "error", err, "account_id", id)
		}
	}

	return updated, nil
}

func (s *adminService) RevokeSessions(ctx context.Context, accountID int64) (int64, error) {
	count, err := s.sessions.DeleteByAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		if err := s.publisher.Publish(ctx, events.SessionsRevoked, events.SessionsRevokedEvent{
			AccountID: accountID,
			Count:     count,
			RevokedAt: time.Now(),
		}); err != nil {
			logger.WarnContext(ctx, "Failed to publish event", "subject", events.SessionsRevoked, "error", err)
		}
	}

	return count, nil
}
