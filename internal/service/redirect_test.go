package service

import (
	"testing"

	"github.com/tourline/tourline-accounts/internal/domain"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		name string
		path LoginPath
		acct domain.Account
		want string
	}{
		{"trial ignores onboarding", PathTrial, domain.Account{Onboarded: true}, NextTrial},
		{"expired trial still lands on trial", PathTrial, domain.Account{Status: domain.StatusTrialExpired}, NextTrial},
		{"partner dashboard", PathPartner, domain.Account{Onboarded: true}, NextPartnerDashboard},
		{"community home", PathCommunity, domain.Account{}, NextCommunityHome},
		{"admin dashboard", PathAdmin, domain.Account{}, NextAdminDashboard},
		{"standard not onboarded", PathStandard, domain.Account{}, NextOnboarding},
		{"standard onboarded", PathStandard, domain.Account{Onboarded: true}, NextHome},
		{"reactivated not onboarded", PathActiveReactivation, domain.Account{}, NextOnboarding},
		{"dormant reactivated onboarded", PathDormantReactivation, domain.Account{Onboarded: true}, NextHome},
		{"legacy numbered", PathLegacyNumbered, domain.Account{}, NextOnboarding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Route(tt.path, &tt.acct); got != tt.want {
				t.Fatalf("Route(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
