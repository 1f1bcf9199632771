package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/leadscout/internal/domain"
	"github.com/ignite/leadscout/internal/plan"
	"github.com/ignite/leadscout/internal/poll"
	"github.com/ignite/leadscout/internal/worker"
)

type fakeSchedStore struct {
	users     []*domain.User
	campaigns map[uuid.UUID][]uuid.UUID
}

func (f *fakeSchedStore) ListUsersWithActiveCampaigns(context.Context) ([]*domain.User, error) {
	return f.users, nil
}

func (f *fakeSchedStore) ListActiveCampaignIDs(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return f.campaigns[userID], nil
}

type fakeRunner struct {
	mu     sync.Mutex
	polled []uuid.UUID
	failAt map[uuid.UUID]bool
}

func (f *fakeRunner) RunPoll(_ context.Context, campaignID uuid.UUID, trigger domain.PollTrigger, _ poll.Callbacks) (*domain.PollJob, error) {
	if trigger != domain.TriggerScheduled {
		return nil, errors.New("scheduler must use the scheduled trigger")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAt[campaignID] {
		return nil, errors.New("poll failed")
	}
	f.polled = append(f.polled, campaignID)
	return &domain.PollJob{CampaignID: campaignID, Status: domain.PollJobCompleted}, nil
}

type fakeLock struct {
	held     bool
	acquired int
	released int
}

func (l *fakeLock) Acquire(context.Context) (bool, error) {
	l.acquired++
	return !l.held, nil
}

func (l *fakeLock) Release(context.Context) error {
	l.released++
	return nil
}

func user(tier domain.Tier) *domain.User {
	return &domain.User{ID: uuid.New(), Email: "u@example.com", Tier: tier, Status: domain.UserActive}
}

func TestSweepTierHourMatrix(t *testing.T) {
	starter := user(domain.TierStarterMonthly)
	growth := user(domain.TierGrowthMonthly)
	expired := user(domain.TierExpired)

	starterCampaign := uuid.New()
	growthCampaign := uuid.New()
	expiredCampaign := uuid.New()

	store := &fakeSchedStore{
		users: []*domain.User{starter, growth, expired},
		campaigns: map[uuid.UUID][]uuid.UUID{
			starter.ID: {starterCampaign},
			growth.ID:  {growthCampaign},
			expired.ID: {expiredCampaign},
		},
	}
	runner := &fakeRunner{}
	sched := worker.NewPollScheduler(store, runner, plan.Default(), nil, true)

	// Hour 11 is a premium-only slot: growth polls, starter and
	// expired are skipped.
	stats := sched.Sweep(context.Background(), 11)

	if stats.UsersChecked != 3 {
		t.Errorf("UsersChecked = %d, want 3", stats.UsersChecked)
	}
	if stats.CampaignsPolled != 1 {
		t.Errorf("CampaignsPolled = %d, want 1", stats.CampaignsPolled)
	}
	if stats.CampaignsSkipped != 2 {
		t.Errorf("CampaignsSkipped = %d, want 2", stats.CampaignsSkipped)
	}
	if len(runner.polled) != 1 || runner.polled[0] != growthCampaign {
		t.Errorf("polled = %v, want only the growth campaign", runner.polled)
	}
}

func TestSweepSharedHourPollsAllActiveTiers(t *testing.T) {
	starter := user(domain.TierStarterMonthly)
	growth := user(domain.TierGrowthMonthly)

	store := &fakeSchedStore{
		users: []*domain.User{starter, growth},
		campaigns: map[uuid.UUID][]uuid.UUID{
			starter.ID: {uuid.New()},
			growth.ID:  {uuid.New(), uuid.New()},
		},
	}
	runner := &fakeRunner{}
	sched := worker.NewPollScheduler(store, runner, plan.Default(), nil, true)

	// Hour 7 is in both starter and premium schedules.
	stats := sched.Sweep(context.Background(), 7)
	if stats.CampaignsPolled != 3 {
		t.Errorf("CampaignsPolled = %d, want 3", stats.CampaignsPolled)
	}
}

func TestSweepCountsErrorsAndContinues(t *testing.T) {
	u := user(domain.TierStarterMonthly)
	bad := uuid.New()
	good := uuid.New()

	store := &fakeSchedStore{
		users:     []*domain.User{u},
		campaigns: map[uuid.UUID][]uuid.UUID{u.ID: {bad, good}},
	}
	runner := &fakeRunner{failAt: map[uuid.UUID]bool{bad: true}}
	sched := worker.NewPollScheduler(store, runner, plan.Default(), nil, true)

	stats := sched.Sweep(context.Background(), 7)
	if stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}
	if stats.CampaignsPolled != 1 {
		t.Errorf("CampaignsPolled = %d, want 1 (failure does not stop the sweep)", stats.CampaignsPolled)
	}
}

func TestSweepSkipsLapsedSubscription(t *testing.T) {
	lapsed := user(domain.TierGrowthMonthly)
	past := time.Now().Add(-24 * time.Hour)
	lapsed.SubscriptionEndsAt = &past

	store := &fakeSchedStore{
		users:     []*domain.User{lapsed},
		campaigns: map[uuid.UUID][]uuid.UUID{lapsed.ID: {uuid.New()}},
	}
	runner := &fakeRunner{}
	sched := worker.NewPollScheduler(store, runner, plan.Default(), nil, true)

	stats := sched.Sweep(context.Background(), 11)
	if stats.CampaignsPolled != 0 || stats.CampaignsSkipped != 1 {
		t.Errorf("polled=%d skipped=%d, want 0 and 1", stats.CampaignsPolled, stats.CampaignsSkipped)
	}
}

func TestSweepLockHeldElsewhere(t *testing.T) {
	u := user(domain.TierStarterMonthly)
	store := &fakeSchedStore{
		users:     []*domain.User{u},
		campaigns: map[uuid.UUID][]uuid.UUID{u.ID: {uuid.New()}},
	}
	runner := &fakeRunner{}
	lock := &fakeLock{held: true}
	sched := worker.NewPollScheduler(store, runner, plan.Default(), lock, true)

	stats := sched.Sweep(context.Background(), 7)
	if stats.CampaignsPolled != 0 {
		t.Errorf("CampaignsPolled = %d, want 0 when lock is held elsewhere", stats.CampaignsPolled)
	}
	if lock.acquired != 1 || lock.released != 0 {
		t.Errorf("acquired=%d released=%d", lock.acquired, lock.released)
	}
}

func TestSweepReleasesLock(t *testing.T) {
	store := &fakeSchedStore{}
	lock := &fakeLock{}
	sched := worker.NewPollScheduler(store, &fakeRunner{}, plan.Default(), lock, true)

	sched.Sweep(context.Background(), 7)
	if lock.released != 1 {
		t.Errorf("released = %d, want 1", lock.released)
	}
}

func TestConfiguredHoursRespected(t *testing.T) {
	u := user(domain.TierStarterMonthly)
	store := &fakeSchedStore{
		users:     []*domain.User{u},
		campaigns: map[uuid.UUID][]uuid.UUID{u.ID: {uuid.New()}},
	}
	runner := &fakeRunner{}
	// custom starter hours exclude 7
	sched := worker.NewPollScheduler(store, runner, plan.NewTable([]int{9, 18}, nil), nil, true)

	if stats := sched.Sweep(context.Background(), 7); stats.CampaignsPolled != 0 {
		t.Errorf("hour 7 polled %d, want 0 with custom hours", stats.CampaignsPolled)
	}
	if stats := sched.Sweep(context.Background(), 9); stats.CampaignsPolled != 1 {
		t.Errorf("hour 9 polled %d, want 1", stats.CampaignsPolled)
	}
}
