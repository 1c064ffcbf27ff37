package domain

import "time"

// AffiliateProfile is the staff/affiliate sub-record guaranteed to exist
// for every partner account, carrying the generated referral codes.
type AffiliateProfile struct {
	AccountID    int64     `json:"account_id"`
	ReferralCode string    `json:"referral_code"`
	ManageCode   string    `json:"manage_code"`
	CreatedAt    time.Time `json:"created_at"`
}
