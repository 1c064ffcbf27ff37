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

// ReferralRecorder writes attribution leads when a login carries a
// source tag. Strictly best-effort: callers log failures and move on.
type ReferralRecorder struct {
	leads     repository.ReferralRepository
	publisher events.Publisher
}

func NewReferralRecorder(leads repository.ReferralRepository, publisher events.Publisher) *ReferralRecorder {
	return &ReferralRecorder{leads: leads, publisher: publisher}
}

func (r *ReferralRecorder) Record(ctx context.Context, name, phone, source string) error {
	lead := &domain.ReferralLead{
		Name:   name,
		Phone:  phone,
		Status: domain.LeadPending,
		Source: source,
	}

	if err := r.leads.UpsertByPhone(ctx, lead); err != nil {
		return fmt.Errorf("%w: referral upsert: %v", domain.ErrProvisioning, err)
	}

	if err := r.publisher.Publish(ctx, events.ReferralRecorded, events.ReferralRecordedEvent{
		Phone:      phone,
		Source:     source,
		RecordedAt: time.Now(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish referral.recorded", "error", err)
	}

	return nil
}
