package plan

import (
	"testing"

	"github.com/ignite/leadscout/internal/domain"
)

func TestForTier(t *testing.T) {
	table := Default()

	tests := []struct {
		tier         domain.Tier
		wantProfiles int
		wantSubs     int
		wantHours    []int
	}{
		{domain.TierStarterMonthly, 1, 15, []int{7, 16}},
		{domain.TierStarterAnnual, 1, 15, []int{7, 16}},
		{domain.TierFreeTrial, 1, 15, []int{7, 16}},
		{domain.TierLegacy, 1, 15, []int{7, 16}},
		{domain.TierGrowthMonthly, 3, 20, []int{7, 11, 16, 22}},
		{domain.TierProAnnual, 10, UnlimitedSubreddits, []int{7, 11, 16, 22}},
		{domain.TierExpired, 0, 0, nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			l := table.ForTier(tt.tier)
			if l.MaxProfiles != tt.wantProfiles {
				t.Errorf("MaxProfiles = %d, want %d", l.MaxProfiles, tt.wantProfiles)
			}
			if l.MaxSubredditsPerProfile != tt.wantSubs {
				t.Errorf("MaxSubredditsPerProfile = %d, want %d", l.MaxSubredditsPerProfile, tt.wantSubs)
			}
			if len(l.PollHoursUTC) != len(tt.wantHours) {
				t.Fatalf("PollHoursUTC = %v, want %v", l.PollHoursUTC, tt.wantHours)
			}
			for i, h := range tt.wantHours {
				if l.PollHoursUTC[i] != h {
					t.Errorf("PollHoursUTC = %v, want %v", l.PollHoursUTC, tt.wantHours)
				}
			}
		})
	}
}

func TestForTierConfiguredHours(t *testing.T) {
	table := NewTable([]int{8}, []int{2, 14})
	if got := table.ForTier(domain.TierStarterMonthly).PollHoursUTC; len(got) != 1 || got[0] != 8 {
		t.Errorf("starter hours = %v, want [8]", got)
	}
	if got := table.ForTier(domain.TierProMonthly).PollHoursUTC; len(got) != 2 || got[0] != 2 || got[1] != 14 {
		t.Errorf("premium hours = %v, want [2 14]", got)
	}
}

func TestAllowsHour(t *testing.T) {
	l := Default().ForTier(domain.TierGrowthMonthly)
	if !l.AllowsHour(11) {
		t.Error("growth tier should poll at hour 11")
	}
	if l.AllowsHour(12) {
		t.Error("growth tier should not poll at hour 12")
	}
	if Default().ForTier(domain.TierExpired).AllowsHour(7) {
		t.Error("expired tier should never poll")
	}
}

func TestPostsPerSubreddit(t *testing.T) {
	tests := []struct {
		budget, subs, want int
	}{
		{50, 1, 50},
		{50, 5, 10},
		{50, 10, 5},
		{50, 25, 5}, // floored at 5
		{0, 3, 20},  // zero budget uses default
		{200, 3, 66},
		{100, 0, 0},
	}
	for _, tt := range tests {
		if got := PostsPerSubreddit(tt.budget, tt.subs); got != tt.want {
			t.Errorf("PostsPerSubreddit(%d, %d) = %d, want %d", tt.budget, tt.subs, got, tt.want)
		}
	}
}
