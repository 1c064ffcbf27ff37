package service

import (
	"regexp"

	"github.com/tourline/tourline-accounts/internal/domain"
)

// LoginPath identifies one of the mutually exclusive account lifecycle
// paths a credential tuple can be routed through.
type LoginPath string

const (
	PathPartner             LoginPath = "partner"
	PathTrial               LoginPath = "trial"
	PathLockedRejection     LoginPath = "locked-rejection"
	PathCommunity           LoginPath = "community"
	PathAdmin               LoginPath = "admin"
	PathDormantReactivation LoginPath = "dormant-reactivation"
	PathActiveReactivation  LoginPath = "active-reactivation"
	PathLegacyNumbered      LoginPath = "legacy-numbered"
	PathStandard            LoginPath = "standard"
)

// Legacy sentinel passwords. These carry operational meaning independent
// of the account owner; they are recognized here and nowhere else.
const (
	sentinelPartner    = "qwe1"
	sentinelTrial      = "1101"
	sentinelLocked     = "8300"
	sentinelReactivate = "3800"
)

// legacyNumberedPattern matches the reserved virtual number range used
// by legacy mall accounts. Kept isolated from the general trial path.
var legacyNumberedPattern = regexp.MustCompile(`^0505\d{6,8}$`)

func IsLegacyNumbered(phone string) bool {
	return legacyNumberedPattern.MatchString(phone)
}

// PathRule is one guarded variant of the classifier. Rules are evaluated
// strictly in order and the first match wins; the ordering is part of
// the contract because sentinel values collide across paths (the trial
// sentinel must be tested before standard lookup, the locked sentinel
// before everything that could otherwise match an active account).
type PathRule struct {
	Name  string
	Path  LoginPath
	Match func(req *domain.LoginRequest) bool
}

var pathRules = []PathRule{
	{
		Name: "partner intent or staff sentinel",
		Path: PathPartner,
		Match: func(r *domain.LoginRequest) bool {
			return r.Intent == domain.IntentPartner || r.Password == sentinelPartner
		},
	},
	{
		Name: "trial sentinel outside the numbered range",
		Path: PathTrial,
		Match: func(r *domain.LoginRequest) bool {
			if r.Intent == domain.IntentAdmin {
				return false
			}
			if IsLegacyNumbered(r.Phone) {
				return false
			}
			return r.Password == sentinelTrial || r.Intent == domain.IntentTrial
		},
	},
	{
		Name: "locked sentinel, terminal rejection",
		Path: PathLockedRejection,
		Match: func(r *domain.LoginRequest) bool {
			return r.Password == sentinelLocked
		},
	},
	{
		Name: "community intent",
		Path: PathCommunity,
		Match: func(r *domain.LoginRequest) bool {
			return r.Intent == domain.IntentCommunity
		},
	},
	{
		Name: "admin intent",
		Path: PathAdmin,
		Match: func(r *domain.LoginRequest) bool {
			return r.Intent == domain.IntentAdmin
		},
	},
	{
		Name: "reactivation sentinel on a mirrored identifier",
		Path: PathDormantReactivation,
		Match: func(r *domain.LoginRequest) bool {
			return r.Password == sentinelReactivate && r.Name == r.Phone && r.Name != ""
		},
	},
	{
		Name: "reactivation sentinel",
		Path: PathActiveReactivation,
		Match: func(r *domain.LoginRequest) bool {
			return r.Password == sentinelReactivate
		},
	},
	{
		Name: "trial sentinel inside the numbered range",
		Path: PathLegacyNumbered,
		Match: func(r *domain.LoginRequest) bool {
			return IsLegacyNumbered(r.Phone) && r.Password == sentinelTrial
		},
	},
	{
		Name: "standard fallthrough",
		Path: PathStandard,
		Match: func(r *domain.LoginRequest) bool {
			return true
		},
	},
}

// Classify maps a normalized credential tuple to its login path.
func Classify(req *domain.LoginRequest) LoginPath {
	for _, rule := range pathRules {
		if rule.Match(req) {
			return rule.Path
		}
	}
	return PathStandard
}

// PathRules exposes the ordered rule table so the ordering itself can be
// tested in isolation.
func PathRules() []PathRule {
	return pathRules
}
