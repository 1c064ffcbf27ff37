package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/tourline/tourline-accounts/internal/domain"
	"github.com/tourline/tourline-accounts/internal/notifier"
	"github.com/tourline/tourline-accounts/internal/repository"
	"github.com/tourline/tourline-accounts/pkg/config"
	"github.com/tourline/tourline-accounts/pkg/events"
	"github.com/tourline/tourline-accounts/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// Attribution source tags written by the resolver.
const (
	sourceTrial      = "trial"
	sourcePartner    = "partner"
	sourceCommunity  = "community"
	sourceOrganic    = "organic"
	sourceLegacyMall = "legacy-mall"
)

const lockedAccountMessage = "This account is locked. Please contact support."

// adminIdentity is one entry of the fixed administrator allow-list. The
// list is the sole source of truth for admin verification; the backing
// account row is never consulted for it.
type adminIdentity struct {
	Name     string
	Phone    string
	Password string
}

var adminAllowList = []adminIdentity{
	{Name: "operations", Phone: "01020003000", Password: "tl-ops-2024"},
	{Name: "concierge", Phone: "01020003001", Password: "tl-desk-2024"},
	{Name: "finance", Phone: "01020003002", Password: "tl-fin-2024"},
}

func lookupAdmin(name, phone string) *adminIdentity {
	for i := range adminAllowList {
		if adminAllowList[i].Name == name && adminAllowList[i].Phone == phone {
			return &adminAllowList[i]
		}
	}
	return nil
}

type LoginService interface {
	Login(ctx context.Context, req *domain.LoginRequest, clientIP string) (*domain.LoginResponse, error)
	Logout(ctx context.Context, sessionID string) error
}

type loginService struct {
	accounts   repository.AccountRepository
	affiliates repository.AffiliateRepository
	rateLimits repository.RateLimitRepository
	sessions   repository.SessionRepository
	issuer     *SessionIssuer
	trips      *TripProvisioner
	referrals  *ReferralRecorder
	notifier   notifier.Service
	publisher  events.Publisher
	cfg        *config.Config
	now        func() time.Time
}

func NewLoginService(
	accounts repository.AccountRepository,
	affiliates repository.AffiliateRepository,
	rateLimits repository.RateLimitRepository,
	sessions repository.SessionRepository,
	issuer *SessionIssuer,
	trips *TripProvisioner,
	referrals *ReferralRecorder,
	notifier notifier.Service,
	publisher events.Publisher,
	cfg *config.Config,
) LoginService {
	return &loginService{
		accounts:   accounts,
		affiliates: affiliates,
		rateLimits: rateLimits,
		sessions:   sessions,
		issuer:     issuer,
		trips:      trips,
		referrals:  referrals,
		notifier:   notifier,
		publisher:  publisher,
		cfg:        cfg,
		now:        time.Now,
	}
}

// resolution is the outcome of a single path's account resolution.
type resolution struct {
	account        *domain.Account
	created        bool
	reactivated    bool
	trialStarted   bool
	trialExpired   bool
	trialRemaining int
}

func (s *loginService) Login(ctx context.Context, req *domain.LoginRequest, clientIP string) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := s.checkRateLimits(ctx, req.Phone, clientIP); err != nil {
		return nil, err
	}

	path := Classify(req)
	ctx = context.WithValue(ctx, logger.LoginPathKey, string(path))

	res, err := s.resolve(ctx, path, req)
	if err != nil {
		return nil, err
	}
	acct := res.account

	// Side effects are best-effort and must never fail the login.
	s.provisionTrip(ctx, path, acct)
	s.recordReferral(ctx, path, res)
	s.notify(ctx, path, res)

	sess, err := s.issuer.Issue(ctx, acct)
	if err != nil {
		return nil, err
	}

	s.publishLifecycle(ctx, path, res)

	// Routing reads the final account state and must run last.
	next := Route(path, acct)

	logger.InfoContext(ctx, "Login succeeded",
		"account_id", acct.ID,
		"role", acct.Role,
		"status", acct.Status,
		"next", next,
	)

	return &domain.LoginResponse{
		OK:                  true,
		Next:                next,
		CSRFToken:           sess.CSRFToken,
		Account:             acct.ToAccountInfo(),
		TrialExpired:        res.trialExpired,
		TrialRemainingHours: res.trialRemaining,
		SessionID:           sess.ID,
	}, nil
}

func (s *loginService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

func (s *loginService) checkRateLimits(ctx context.Context, phone, clientIP string) error {
	limit := s.cfg.Auth.LoginRateLimit
	window := s.cfg.Auth.LoginRateWindow

	keys := []string{"login:phone:" + phone}
	if clientIP != "" {
		keys = append(keys, "login:ip:"+clientIP)
	}

	for _, key := range keys {
		allowed, resetAt, err := s.rateLimits.Check(ctx, key, limit, window)
		if err != nil {
			logger.WarnContext(ctx, "Rate limit check failed", "error", err, "key", key)
			continue
		}
		if !allowed {
			return &domain.RateLimitError{ResetAt: resetAt}
		}
	}
	return nil
}

func (s *loginService) resolve(ctx context.Context, path LoginPath, req *domain.LoginRequest) (*resolution, error) {
	switch path {
	case PathPartner:
		return s.resolvePartner(ctx, req)
	case PathTrial:
		return s.resolveTrial(ctx, req)
	case PathLockedRejection:
		// Terminal: no account lookup, fixed message.
		return nil, fmt.Errorf("%w: %s", domain.ErrAuthorization, lockedAccountMessage)
	case PathCommunity:
		return s.resolveCommunity(ctx, req)
	case PathAdmin:
		return s.resolveAdmin(ctx, req)
	case PathDormantReactivation:
		return s.resolveDormant(ctx, req)
	case PathActiveReactivation:
		return s.resolveActiveReactivation(ctx, req)
	case PathLegacyNumbered:
		return s.resolveLegacyNumbered(ctx, req)
	case PathStandard:
		return s.resolveStandard(ctx, req)
	default:
		return nil, fmt.Errorf("unhandled login path %q", path)
	}
}

// createOrRecover treats a unique-constraint conflict during creation as
// a benign race: the canonical row is re-read and wins.
func (s *loginService) createOrRecover(
	ctx context.Context,
	a *domain.Account,
	refetch func(context.Context) (*domain.Account, error),
) (*domain.Account, bool, error) {
	created, err := s.accounts.Create(ctx, a)
	if err == nil {
		return created, true, nil
	}
	if errors.Is(err, domain.ErrConflict) {
		existing, ferr := refetch(ctx)
		if ferr != nil {
			return nil, false, ferr
		}
		if existing != nil {
			return existing, false, nil
		}
	}
	return nil, false, err
}

func (s *loginService) resolvePartner(ctx context.Context, req *domain.LoginRequest) (*resolution, error) {
	identifier := req.Name
	if identifier == "" {
		identifier = req.Phone
	}

	acct, err := s.accounts.FindStaffByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	res := &resolution{}
	if acct == nil {
		if req.Password != sentinelPartner {
			return nil, domain.ErrAuthentication
		}
		hash, err := argon2id.CreateHash(sentinelPartner, argon2id.DefaultParams)
		if err != nil {
			return nil, fmt.Errorf("failed to hash staff credential: %w", err)
		}
		acct, res.created, err = s.createOrRecover(ctx, &domain.Account{
			Name:       identifier,
			Phone:      req.Phone,
			Password:   hash,
			Role:       domain.RoleStaffAffiliate,
			Status:     domain.StatusActive,
			Onboarded:  true,
			LoginCount: 1,
			Source:     sourcePartner,
		}, func(ctx context.Context) (*domain.Account, error) {
			return s.accounts.FindStaffByIdentifier(ctx, identifier)
		})
		if err != nil {
			return nil, err
		}
	} else {
		// The staff-default sentinel is always accepted on the partner path.
		if req.Password != sentinelPartner && !verifyStoredPassword(acct.Password, req.Password) {
			return nil, domain.ErrAuthentication
		}
		acct.Status = domain.StatusActive
		acct.LoginCount++
		if acct, err = s.accounts.Update(ctx, acct); err != nil {
			return nil, err
		}
	}

	if _, err := s.affiliates.EnsureProfile(ctx, acct.ID); err != nil {
		return nil, fmt.Errorf("failed to ensure affiliate profile: %w", err)
	}

	res.account = acct
	return res, nil
}

func (s *loginService) resolveTrial(ctx context.Context, req *domain.LoginRequest) (*resolution, error) {
	// Never look up with an empty phone: an unfiltered query would match
	// an arbitrary first row.
	if req.Phone == "" {
		return nil, fmt.Errorf("%w: phone is required", domain.ErrValidation)
	}

	acct, err := s.accounts.FindByPhone(ctx, req.Phone)
	if err != nil {
		return nil, err
	}

	if acct != nil {
		switch acct.Role {
		case domain.RoleStaffAffiliate, domain.RoleAdmin, domain.RoleCommunityMember:
			return nil, fmt.Errorf("%w: this phone number belongs to a %s account", domain.ErrAuthorization, acct.Role)
		}
	}

	now := s.now()
	windowHours := int(s.cfg.Trial.Window.Hours())

	if acct == nil {
		created, wasCreated, err := s.createOrRecover(ctx, &domain.Account{
			Name:           orDefault(req.Name, req.Phone),
			Phone:          req.Phone,
			Password:       sentinelTrial,
			Role:           domain.RoleCustomer,
			Status:         domain.StatusTrial,
			TrialStartedAt: &now,
			LoginCount:     1,
			Source:         sourceTrial,
		}, func(ctx context.Context) (*domain.Account, error) {
			return s.accounts.FindByPhone(ctx, req.Phone)
		})
		if err != nil {
			return nil, err
		}
		return &resolution{
			account:        created,
			created:        wasCreated,
			trialStarted:   wasCreated,
			trialRemaining: windowHours,
		}, nil
	}

	res := &resolution{}
	if acct.Status == domain.StatusTrialExpired {
		// Re-entry is always allowed: resubmitting the sentinel after an
		// expired window restarts the trial.
		acct.Status = domain.StatusTrial
		acct.TrialStartedAt = &now
		res.trialStarted = true
		res.trialRemaining = windowHours
	} else {
		if acct.TrialStartedAt == nil {
			acct.TrialStartedAt = &now
			res.trialStarted = true
		}
		acct.Status = domain.StatusTrial
		expiry := acct.TrialExpiry(s.cfg.Trial.Window)
		if now.After(expiry) {
			// Expired is informational, not a lockout.
			acct.Status = domain.StatusTrialExpired
			res.trialExpired = true
		} else {
			res.trialRemaining = int(math.Ceil(expiry.Sub(now).Hours()))
		}
	}

	acct.LoginCount++
	if acct, err = s.accounts.Update(ctx, acct); err != nil {
		return nil, err
	}
	res.account = acct
	return res, nil
}

func (s *loginService) resolveCommunity(ctx context.Context, req *domain.LoginRequest) (*resolution, error) {
	acct, err := s.accounts.FindCommunityMember(ctx, req.Phone, sourceCommunity)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, domain.ErrAuthentication
	}

	if !verifyStoredPassword(acct.Password, req.Password) {
		return nil, domain.ErrAuthentication
	}

	// Successful legacy logins are migrated to the canonical identifier
	// field and upgraded to an argon2id hash.
	if acct.CommunityID == "" {
		acct.CommunityID = req.Phone
	}
	if !strings.HasPrefix(acct.Password, "$argon2id$") {
		if hash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams); err == nil {
			acct.Password = hash
		}
	}

	acct.LoginCount++
	if acct, err = s.accounts.Update(ctx, acct); err != nil {
		return nil, err
	}
	return &resolution{account: acct}, nil
}

func (s *loginService) resolveAdmin(ctx context.Context, req *domain.LoginRequest) (*resolution, error) {
	entry := lookupAdmin(req.Name, req.Phone)
	if entry == nil {
		// Never create an account for an identity off the list.
		return nil, fmt.Errorf("%w: not an administrator", domain.ErrAuthorization)
	}
	if req.Password != entry.Password {
		return nil, domain.ErrAuthentication
	}

	acct, err := s.accounts.FindByNamePhoneRole(ctx, req.Name, req.Phone, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}

	res := &resolution{}
	if acct == nil {
		// The stored hash is for audit display only; admin verification
		// always runs against the allow-list above.
		hash, err := argon2id.CreateHash(entry.Password, argon2id.DefaultParams)
		if err != nil {
			return nil, fmt.Errorf("failed to hash admin credential: %w", err)
		}
		acct, res.created, err = s.createOrRecover(ctx, &domain.Account{
			Name:       req.Name,
			Phone:      req.Phone,
			Password:   hash,
			Role:       domain.RoleAdmin,
			Status:     domain.StatusActive,
			Onboarded:  true,
			LoginCount: 1,
		}, func(ctx context.Context) (*domain.Account, error) {
			return s.accounts.FindByNamePhoneRole(ctx, req.Name, req.Phone, domain.RoleAdmin)
		})
		if err != nil {
			return nil, err
		}
	} else {
		acct.LoginCount++
		if acct, err = s.accounts.Update(ctx, acct); err != nil {
			return nil, err
		}
	}

	res.account = acct
	return res, nil
}

func (s *loginService) resolveDormant(ctx context.Context, req *domain.LoginRequest) (*resolution, error) {
	acct, err := s.accounts.FindDormant(ctx, req.Phone)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, domain.ErrAuthentication
	}

	// One transition clears all hibernation markers.
	acct.Status = domain.StatusActive
	acct.TrialStartedAt = nil
	acct.LoginCount++
	if acct, err = s.accounts.Update(ctx, acct); err != nil {
		return nil, err
	}
	return &resolution{account: acct, reactivated: true}, nil
}

func (s *loginService) resolveActiveReactivation(ctx context.Context, req *domain.LoginRequest) (*resolution, error) {
	acct, err := s.accounts.FindByNamePhoneRole(ctx, req.Name, req.Phone, domain.RoleCustomer)
	if err != nil {
		return nil, err
	}

	res := &resolution{}
	if acct == nil {
		acct, res.created, err = s.createOrRecover(ctx, &domain.Account{
			Name:       orDefault(req.Name, req.Phone),
			Phone:      req.Phone,
			Password:   sentinelReactivate,
			Role:       domain.RoleCustomer,
			Status:     domain.StatusActive,
			Onboarded:  false,
			LoginCount: 1,
			Source:     sourceOrganic,
		}, func(ctx context.Context) (*domain.Account, error) {
			return s.accounts.FindByNamePhoneRole(ctx, req.Name, req.Phone, domain.RoleCustomer)
		})
		if err != nil {
			return nil, err
		}
	} else {
		res.reactivated = acct.Status != domain.StatusActive
		acct.Status = domain.StatusActive
		acct.TrialStartedAt = nil
		if acct.Source == "" {
			acct.Source = sourceOrganic
		}
		acct.LoginCount++
		if acct, err = s.accounts.Update(ctx, acct); err != nil {
			return nil, err
		}
	}

	res.account = acct
	return res, nil
}

func (s *loginService) resolveLegacyNumbered(ctx context.Context, req *domain.LoginRequest) (*resolution, error) {
	acct, err := s.accounts.FindByPhoneAndRole(ctx, req.Phone, domain.RoleCustomer)
	if err != nil {
		return nil, err
	}

	res := &resolution{}
	if acct == nil {
		acct, res.created, err = s.createOrRecover(ctx, &domain.Account{
			Name:       orDefault(req.Name, req.Phone),
			Phone:      req.Phone,
			Password:   sentinelTrial,
			Role:       domain.RoleCustomer,
			Status:     domain.StatusActive,
			LoginCount: 1,
			Source:     sourceLegacyMall,
		}, func(ctx context.Context) (*domain.Account, error) {
			return s.accounts.FindByPhoneAndRole(ctx, req.Phone, domain.RoleCustomer)
		})
		if err != nil {
			return nil, err
		}
	} else {
		acct.LoginCount++
		if acct, err = s.accounts.Update(ctx, acct); err != nil {
			return nil, err
		}
	}

	res.account = acct
	return res, nil
}

func (s *loginService) resolveStandard(ctx context.Context, req *domain.LoginRequest) (*resolution, error) {
	acct, err := s.accounts.FindExact(ctx, req.Name, req.Phone, req.Password, domain.RoleCustomer)
	if err != nil {
		return nil, err
	}

	res := &resolution{}
	if acct == nil {
		// An admin matching the same 3-tuple must not slip through the
		// customer path.
		adminAcct, err := s.accounts.FindByNamePhoneRole(ctx, req.Name, req.Phone, domain.RoleAdmin)
		if err != nil {
			return nil, err
		}
		if adminAcct != nil && verifyStoredPassword(adminAcct.Password, req.Password) {
			return nil, fmt.Errorf("%w: administrator accounts must use the admin login", domain.ErrAuthorization)
		}

		if req.Name == "" {
			// Nothing to create an identity from; keep the message generic.
			return nil, domain.ErrAuthentication
		}

		acct, res.created, err = s.createOrRecover(ctx, &domain.Account{
			Name:       req.Name,
			Phone:      req.Phone,
			Password:   req.Password,
			Role:       domain.RoleCustomer,
			Status:     domain.StatusActive,
			Onboarded:  false,
			LoginCount: 1,
		}, func(ctx context.Context) (*domain.Account, error) {
			return s.accounts.FindExact(ctx, req.Name, req.Phone, req.Password, domain.RoleCustomer)
		})
		if err != nil {
			return nil, err
		}
	} else {
		acct.LoginCount++
		if acct, err = s.accounts.Update(ctx, acct); err != nil {
			return nil, err
		}
	}

	res.account = acct
	return res, nil
}

// Best-effort side effects --------------------------------------------

func (s *loginService) provisionTrip(ctx context.Context, path LoginPath, acct *domain.Account) {
	switch path {
	case PathTrial, PathDormantReactivation, PathActiveReactivation:
	default:
		return
	}

	if err := s.trips.Provision(ctx, acct, path == PathTrial); err != nil {
		logger.WarnContext(ctx, "Trip provisioning failed", "error", err, "account_id", acct.ID)
	}
}

func (s *loginService) recordReferral(ctx context.Context, path LoginPath, res *resolution) {
	acct := res.account
	shouldRecord := path == PathTrial || (res.created && acct.Source != "")
	if !shouldRecord {
		return
	}

	source := orDefault(acct.Source, sourceTrial)
	if err := s.referrals.Record(ctx, acct.Name, acct.Phone, source); err != nil {
		logger.WarnContext(ctx, "Referral recording failed", "error", err, "account_id", acct.ID)
	}
}

func (s *loginService) notify(ctx context.Context, path LoginPath, res *resolution) {
	acct := res.account

	var err error
	switch {
	case path == PathTrial && res.trialExpired:
		err = s.notifier.SendTrialExpiryNotice(acct.Phone, acct.Name)
	case path == PathTrial && res.created:
		err = s.notifier.SendTrialWelcome(acct.Phone, acct.Name, res.trialRemaining)
	case path == PathDormantReactivation:
		err = s.notifier.SendReactivationNotice(acct.Phone, acct.Name)
	default:
		return
	}

	if err != nil {
		logger.WarnContext(ctx, "Notification dispatch failed", "error", err, "account_id", acct.ID)
	}
}

func (s *loginService) publishLifecycle(ctx context.Context, path LoginPath, res *resolution) {
	acct := res.account
	now := s.now()

	if res.created {
		s.publish(ctx, events.AccountCreated, events.AccountCreatedEvent{
			AccountID: acct.ID,
			Role:      acct.Role,
			Status:    acct.Status,
			Source:    acct.Source,
			CreatedAt: acct.CreatedAt,
		})
	}

	if res.reactivated {
		s.publish(ctx, events.AccountReactivated, events.AccountReactivatedEvent{
			AccountID:     acct.ID,
			Role:          acct.Role,
			Source:        acct.Source,
			ReactivatedAt: now,
		})
	}

	if res.trialStarted && acct.TrialStartedAt != nil {
		s.publish(ctx, events.TrialStarted, events.TrialStartedEvent{
			AccountID: acct.ID,
			StartedAt: *acct.TrialStartedAt,
			ExpiresAt: acct.TrialStartedAt.Add(s.cfg.Trial.Window),
		})
	}

	if res.trialExpired {
		s.publish(ctx, events.TrialExpired, events.TrialExpiredEvent{
			AccountID: acct.ID,
			ExpiredAt: acct.TrialExpiry(s.cfg.Trial.Window),
		})
	}

	s.publish(ctx, events.LoginSucceeded, events.LoginSucceededEvent{
		AccountID:  acct.ID,
		Role:       acct.Role,
		Path:       string(path),
		LoginCount: acct.LoginCount,
		LoggedInAt: now,
	})
}

func (s *loginService) publish(ctx context.Context, subject string, payload interface{}) {
	if err := s.publisher.Publish(ctx, subject, payload); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "subject", subject, "error", err)
	}
}

// verifyStoredPassword accepts argon2id hashes, legacy bcrypt hashes,
// and legacy plaintext values to support credential migration.
func verifyStoredPassword(stored, supplied string) bool {
	switch {
	case strings.HasPrefix(stored, "$argon2id$"):
		ok, err := argon2id.ComparePasswordAndHash(supplied, stored)
		return err == nil && ok
	case strings.HasPrefix(stored, "$2"):
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
	default:
		return stored != "" && stored == supplied
	}
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
