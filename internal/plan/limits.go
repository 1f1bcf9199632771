// Package plan resolves subscription tiers to their hard limits.
//
// The table here is the single source of truth: every gate in the
// campaign service, the poll engine, and the scheduler checks it.
package plan

import (
	"github.com/ignite/leadscout/internal/domain"
)

// UnlimitedSubreddits is the sentinel for tiers without a subreddit cap.
const UnlimitedSubreddits = 999

// Limits holds the per-tier quota row.
type Limits struct {
	MaxProfiles             int
	MaxSubredditsPerProfile int
	MaxPostsPerPoll         int
	MaxAutoSuggestions      int
	PollHoursUTC            []int
}

// AllowsHour reports whether the tier polls at the given UTC hour.
func (l Limits) AllowsHour(hour int) bool {
	for _, h := range l.PollHoursUTC {
		if h == hour {
			return true
		}
	}
	return false
}

// Table maps tiers to limits. Construct with NewTable to apply
// configured poll hours; the zero value is not usable.
type Table struct {
	starterHours []int
	premiumHours []int
}

// NewTable builds a limits table. Empty hour slices fall back to the
// contract defaults: starter tiers poll twice daily, premium four times.
func NewTable(starterHoursUTC, premiumHoursUTC []int) *Table {
	if len(starterHoursUTC) == 0 {
		starterHoursUTC = []int{7, 16}
	}
	if len(premiumHoursUTC) == 0 {
		premiumHoursUTC = []int{7, 11, 16, 22}
	}
	return &Table{starterHours: starterHoursUTC, premiumHours: premiumHoursUTC}
}

// Default returns the table with contract poll hours.
func Default() *Table {
	return NewTable(nil, nil)
}

// ForTier resolves a tier to its limits row. Unknown tiers resolve to
// the legacy/starter row, which is the conservative choice.
func (t *Table) ForTier(tier domain.Tier) Limits {
	switch tier {
	case domain.TierGrowthMonthly, domain.TierGrowthAnnual:
		return Limits{
			MaxProfiles:             3,
			MaxSubredditsPerProfile: 20,
			MaxPostsPerPoll:         100,
			MaxAutoSuggestions:      10,
			PollHoursUTC:            t.premiumHours,
		}
	case domain.TierProMonthly, domain.TierProAnnual:
		return Limits{
			MaxProfiles:             10,
			MaxSubredditsPerProfile: UnlimitedSubreddits,
			MaxPostsPerPoll:         200,
			MaxAutoSuggestions:      20,
			PollHoursUTC:            t.premiumHours,
		}
	case domain.TierExpired:
		return Limits{}
	default:
		// STARTER_*, FREE_TRIAL, LEGACY, and anything unrecognized.
		return Limits{
			MaxProfiles:             1,
			MaxSubredditsPerProfile: 15,
			MaxPostsPerPoll:         50,
			MaxAutoSuggestions:      5,
			PollHoursUTC:            t.starterHours,
		}
	}
}

// UpgradeTarget names the next tier up, used in plan-limit error messages.
func UpgradeTarget(tier domain.Tier) domain.Tier {
	switch tier {
	case domain.TierGrowthMonthly, domain.TierGrowthAnnual:
		return domain.TierProMonthly
	case domain.TierProMonthly, domain.TierProAnnual:
		return domain.TierProMonthly
	default:
		return domain.TierGrowthMonthly
	}
}

// PostsPerSubreddit computes the per-subreddit fetch budget for one poll:
// the plan budget split across active subreddits, floored at 5. A zero
// budget (misconfigured or expired rows slipping through) uses the
// default of 20.
func PostsPerSubreddit(maxPostsPerPoll, activeSubreddits int) int {
	if activeSubreddits <= 0 {
		return 0
	}
	if maxPostsPerPoll <= 0 {
		return 20
	}
	per := maxPostsPerPoll / activeSubreddits
	if per < 5 {
		per = 5
	}
	return per
}
