package service

import "github.com/tourline/tourline-accounts/internal/domain"

// Post-login destinations.
const (
	NextTrial            = "/trial"
	NextOnboarding       = "/onboarding"
	NextHome             = "/home"
	NextPartnerDashboard = "/partner/dashboard"
	NextCommunityHome    = "/community"
	NextAdminDashboard   = "/admin"
)

// Route derives the client's next destination from the FINAL account
// state. It must run after all account mutations: the onboarding check
// below reads the post-transition Onboarded flag.
func Route(path LoginPath, acct *domain.Account) string {
	switch path {
	case PathTrial:
		// Trial always lands on the trial destination, onboarded or not.
		return NextTrial
	case PathPartner:
		return NextPartnerDashboard
	case PathCommunity:
		return NextCommunityHome
	case PathAdmin:
		return NextAdminDashboard
	}

	if !acct.Onboarded {
		return NextOnboarding
	}
	return NextHome
}
