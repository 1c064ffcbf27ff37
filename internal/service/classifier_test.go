package service

import (
	"testing"

	"github.com/tourline/tourline-accounts/internal/domain"
)

func TestClassify_SentinelPasswords(t *testing.T) {
	tests := []struct {
		name string
		req  domain.LoginRequest
		want LoginPath
	}{
		{"partner sentinel", domain.LoginRequest{Name: "jane", Phone: "01011112222", Password: "qwe1"}, PathPartner},
		{"trial sentinel", domain.LoginRequest{Name: "jane", Phone: "01011112222", Password: "1101"}, PathTrial},
		{"locked sentinel", domain.LoginRequest{Name: "jane", Phone: "01011112222", Password: "8300"}, PathLockedRejection},
		{"reactivation sentinel", domain.LoginRequest{Name: "Kim", Phone: "01099998888", Password: "3800"}, PathActiveReactivation},
		{"ordinary password", domain.LoginRequest{Name: "jane", Phone: "01011112222", Password: "hunter2"}, PathStandard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(&tt.req); got != tt.want {
				t.Fatalf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassify_ExplicitIntent(t *testing.T) {
	tests := []struct {
		name string
		req  domain.LoginRequest
		want LoginPath
	}{
		{"partner intent without sentinel", domain.LoginRequest{Phone: "01011112222", Password: "secret", Intent: domain.IntentPartner}, PathPartner},
		{"trial intent without sentinel", domain.LoginRequest{Phone: "01011112222", Password: "secret", Intent: domain.IntentTrial}, PathTrial},
		{"community intent", domain.LoginRequest{Phone: "cm-001", Password: "secret", Intent: domain.IntentCommunity}, PathCommunity},
		{"admin intent", domain.LoginRequest{Name: "operations", Phone: "01020003000", Password: "secret", Intent: domain.IntentAdmin}, PathAdmin},
		{"customer intent falls through", domain.LoginRequest{Phone: "01011112222", Password: "secret", Intent: domain.IntentCustomer}, PathStandard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(&tt.req); got != tt.want {
				t.Fatalf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassify_SentinelPrecedence(t *testing.T) {
	// Sentinel collisions are resolved by rule order: the partner sentinel
	// beats everything, the trial sentinel beats the locked check, an
	// admin intent suppresses the trial sentinel.
	tests := []struct {
		name string
		req  domain.LoginRequest
		want LoginPath
	}{
		{"admin intent with trial sentinel", domain.LoginRequest{Name: "operations", Phone: "01020003000", Password: "1101", Intent: domain.IntentAdmin}, PathAdmin},
		{"admin intent with locked sentinel", domain.LoginRequest{Name: "operations", Phone: "01020003000", Password: "8300", Intent: domain.IntentAdmin}, PathLockedRejection},
		{"partner intent with locked sentinel", domain.LoginRequest{Phone: "01011112222", Password: "8300", Intent: domain.IntentPartner}, PathPartner},
		{"community intent with trial sentinel", domain.LoginRequest{Phone: "cm-001", Password: "1101", Intent: domain.IntentCommunity}, PathTrial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(&tt.req); got != tt.want {
				t.Fatalf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassify_ReactivationVariants(t *testing.T) {
	// Mirrored name/phone selects the dormant variant; anything else with
	// the reactivation sentinel selects the active variant.
	mirrored := domain.LoginRequest{Name: "01055556666", Phone: "01055556666", Password: "3800"}
	if got := Classify(&mirrored); got != PathDormantReactivation {
		t.Fatalf("mirrored identifier: got %q, want %q", got, PathDormantReactivation)
	}

	plain := domain.LoginRequest{Name: "Kim", Phone: "01099998888", Password: "3800"}
	if got := Classify(&plain); got != PathActiveReactivation {
		t.Fatalf("distinct name: got %q, want %q", got, PathActiveReactivation)
	}

	empty := domain.LoginRequest{Name: "", Phone: "01099998888", Password: "3800"}
	if got := Classify(&empty); got != PathActiveReactivation {
		t.Fatalf("empty name must not count as mirrored: got %q, want %q", got, PathActiveReactivation)
	}
}

func TestClassify_LegacyNumberedRange(t *testing.T) {
	tests := []struct {
		name string
		req  domain.LoginRequest
		want LoginPath
	}{
		{"numbered phone with trial sentinel", domain.LoginRequest{Phone: "05051234567", Password: "1101"}, PathLegacyNumbered},
		{"numbered phone short form", domain.LoginRequest{Phone: "0505123456", Password: "1101"}, PathLegacyNumbered},
		{"numbered phone without sentinel", domain.LoginRequest{Phone: "05051234567", Password: "hunter2"}, PathStandard},
		{"prefix only is not numbered", domain.LoginRequest{Phone: "0505", Password: "1101"}, PathTrial},
		{"too many digits is not numbered", domain.LoginRequest{Phone: "0505123456789", Password: "1101"}, PathTrial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(&tt.req); got != tt.want {
				t.Fatalf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsLegacyNumbered(t *testing.T) {
	valid := []string{"0505123456", "05051234567", "050512345678"}
	for _, phone := range valid {
		if !IsLegacyNumbered(phone) {
			t.Errorf("IsLegacyNumbered(%q) = false, want true", phone)
		}
	}

	invalid := []string{"", "0505", "050512345", "0505123456789", "1505123456", "0505abc456"}
	for _, phone := range invalid {
		if IsLegacyNumbered(phone) {
			t.Errorf("IsLegacyNumbered(%q) = true, want false", phone)
		}
	}
}

func TestPathRules_OrderIsStable(t *testing.T) {
	want := []LoginPath{
		PathPartner,
		PathTrial,
		PathLockedRejection,
		PathCommunity,
		PathAdmin,
		PathDormantReactivation,
		PathActiveReactivation,
		PathLegacyNumbered,
		PathStandard,
	}

	rules := PathRules()
	if len(rules) != len(want) {
		t.Fatalf("expected %d rules, got %d", len(want), len(rules))
	}
	for i, rule := range rules {
		if rule.Path != want[i] {
			t.Errorf("rule %d: path %q, want %q", i, rule.Path, want[i])
		}
	}

	// The final rule must be a catch-all.
	last := rules[len(rules)-1]
	if !last.Match(&domain.LoginRequest{}) {
		t.Error("final rule must match any request")
	}
}
