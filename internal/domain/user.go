package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tier enumerates subscription plans. Legacy tiers map onto the Starter
// limits; EXPIRED is a terminal plan with zero quota.
type Tier string

const (
	TierFreeTrial      Tier = "FREE_TRIAL"
	TierStarterMonthly Tier = "STARTER_MONTHLY"
	TierStarterAnnual  Tier = "STARTER_ANNUAL"
	TierGrowthMonthly  Tier = "GROWTH_MONTHLY"
	TierGrowthAnnual   Tier = "GROWTH_ANNUAL"
	TierProMonthly     Tier = "PRO_MONTHLY"
	TierProAnnual      Tier = "PRO_ANNUAL"
	// TierLegacy covers accounts created before the tiered plans existed.
	TierLegacy  Tier = "LEGACY"
	TierExpired Tier = "EXPIRED"
)

// UserStatus enumerates account states.
type UserStatus string

const (
	UserActive  UserStatus = "active"
	UserBlocked UserStatus = "blocked"
)

// User is an account that owns campaigns.
type User struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	Email              string     `json:"email" db:"email"`
	Tier               Tier       `json:"tier" db:"tier"`
	Status             UserStatus `json:"status" db:"status"`
	TrialEndsAt        *time.Time `json:"trial_ends_at" db:"trial_ends_at"`
	SubscriptionEndsAt *time.Time `json:"subscription_ends_at" db:"subscription_ends_at"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// IsPollable reports whether the account may be polled at the given time.
// A user is pollable iff the account is active, the tier is not EXPIRED,
// a free trial has not ended, and a paid subscription (if bounded) has
// not lapsed.
func (u *User) IsPollable(now time.Time) bool {
	if u.Status != UserActive {
		return false
	}
	if u.Tier == TierExpired {
		return false
	}
	if u.Tier == TierFreeTrial {
		return u.TrialEndsAt != nil && u.TrialEndsAt.After(now)
	}
	if u.SubscriptionEndsAt != nil && !u.SubscriptionEndsAt.After(now) {
		return false
	}
	return true
}

// PollableReason returns an empty string for pollable users, otherwise a
// human-readable reason suitable for surfacing to the account owner.
func (u *User) PollableReason(now time.Time) string {
	switch {
	case u.Status == UserBlocked:
		return "account is blocked"
	case u.Tier == TierExpired:
		return "subscription has expired"
	case u.Tier == TierFreeTrial && (u.TrialEndsAt == nil || !u.TrialEndsAt.After(now)):
		return "free trial has ended"
	case u.SubscriptionEndsAt != nil && !u.SubscriptionEndsAt.After(now):
		return "subscription has lapsed"
	}
	return ""
}
