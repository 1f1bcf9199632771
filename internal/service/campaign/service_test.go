package campaign

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/ignite/leadscout/internal/domain"
	"github.com/ignite/leadscout/internal/llm"
	"github.com/ignite/leadscout/internal/plan"
	"github.com/ignite/leadscout/internal/poll"
	"github.com/ignite/leadscout/internal/reddit"
	"github.com/ignite/leadscout/internal/usage"
)

// fakeRepo is an in-memory Repository.
type fakeRepo struct {
	users     map[uuid.UUID]*domain.User
	campaigns map[uuid.UUID]*domain.Campaign
	subs      map[uuid.UUID][]domain.CampaignSubreddit
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:     make(map[uuid.UUID]*domain.User),
		campaigns: make(map[uuid.UUID]*domain.Campaign),
		subs:      make(map[uuid.UUID][]domain.CampaignSubreddit),
	}
}

func (f *fakeRepo) GetUser(_ context.Context, id uuid.UUID) (*domain.User, error) {
	return f.users[id], nil
}

func (f *fakeRepo) GetCampaign(_ context.Context, id uuid.UUID) (*domain.Campaign, error) {
	return f.campaigns[id], nil
}

func (f *fakeRepo) CreateCampaign(_ context.Context, c *domain.Campaign) error {
	c.ID = uuid.New()
	f.campaigns[c.ID] = c
	return nil
}

func (f *fakeRepo) ListCampaignsByUser(_ context.Context, userID uuid.UUID) ([]*domain.Campaign, error) {
	var out []*domain.Campaign
	for _, c := range f.campaigns {
		if c.UserID == userID && c.Status != domain.CampaignDeleted {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRepo) CountCampaigns(_ context.Context, userID uuid.UUID) (int, error) {
	n := 0
	for _, c := range f.campaigns {
		if c.UserID == userID && c.Status != domain.CampaignDeleted {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) UpdateCampaignStatus(_ context.Context, id uuid.UUID, status domain.CampaignStatus) error {
	c, ok := f.campaigns[id]
	if !ok {
		return errors.New("not found")
	}
	c.Status = status
	return nil
}

func (f *fakeRepo) ReplaceCampaignSubreddits(_ context.Context, campaignID uuid.UUID, subs []domain.CampaignSubreddit) error {
	f.subs[campaignID] = subs
	return nil
}

func (f *fakeRepo) ListCampaignSubreddits(_ context.Context, campaignID uuid.UUID) ([]domain.CampaignSubreddit, error) {
	return f.subs[campaignID], nil
}

// fixedLLM returns a fixed reply.
type fixedLLM struct {
	reply string
	err   error
}

func (f *fixedLLM) Complete(context.Context, string) (string, llm.Usage, error) {
	return f.reply, llm.Usage{}, f.err
}

func (f *fixedLLM) Kind() domain.APIKind { return domain.APILLMGemini }

// fakeSearcher serves canned community results.
type fakeSearcher struct {
	communities []reddit.Community
}

func (f *fakeSearcher) SearchCommunities(context.Context, []string, int) ([]reddit.Community, error) {
	return f.communities, nil
}

func (f *fakeSearcher) ScrapePosts(context.Context, string, int) ([]reddit.Post, error) {
	return nil, nil
}

func (f *fakeSearcher) Kind() domain.APIKind { return domain.APIRedditRapidAPI }

// countingPoller records first-poll triggers.
type countingPoller struct {
	calls    int
	triggers []domain.PollTrigger
}

func (p *countingPoller) RunPoll(_ context.Context, _ uuid.UUID, trigger domain.PollTrigger, _ poll.Callbacks) (*domain.PollJob, error) {
	p.calls++
	p.triggers = append(p.triggers, trigger)
	return &domain.PollJob{Status: domain.PollJobCompleted}, nil
}

func newTestService(repo *fakeRepo, client llm.Client, poller PollStarter) *Service {
	if client == nil {
		client = &fixedLLM{reply: `["product analytics", "dashboards"]`}
	}
	svc := NewService(repo, client, usage.NopRecorder{}, &fakeSearcher{}, plan.Default(), poller)
	svc.firstPollAsync = false
	return svc
}

func addUser(repo *fakeRepo, tier domain.Tier) *domain.User {
	u := &domain.User{ID: uuid.New(), Email: "u@example.com", Tier: tier, Status: domain.UserActive}
	repo.users[u.ID] = u
	return u
}

func TestCreateDerivesQueries(t *testing.T) {
	repo := newFakeRepo()
	user := addUser(repo, domain.TierStarterMonthly)
	svc := newTestService(repo, &fixedLLM{reply: "```json\n[\"product analytics\", \"user tracking\"]\n```"}, nil)

	c, err := svc.Create(context.Background(), user.ID, "self-serve product analytics for SaaS", 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Status != domain.CampaignDiscovering {
		t.Errorf("status = %s, want DISCOVERING", c.Status)
	}
	if len(c.SearchQueries) != 2 || c.SearchQueries[0] != "product analytics" {
		t.Errorf("queries = %v", c.SearchQueries)
	}
	if c.PollIntervalHours != 24 {
		t.Errorf("PollIntervalHours = %d, want default 24", c.PollIntervalHours)
	}
}

func TestCreateCustomPollInterval(t *testing.T) {
	repo := newFakeRepo()
	user := addUser(repo, domain.TierGrowthMonthly)
	svc := newTestService(repo, nil, nil)

	c, err := svc.Create(context.Background(), user.ID, "a business", 6)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.PollIntervalHours != 6 {
		t.Errorf("PollIntervalHours = %d, want 6", c.PollIntervalHours)
	}
}

func TestCreateKeywordFallback(t *testing.T) {
	repo := newFakeRepo()
	user := addUser(repo, domain.TierStarterMonthly)
	svc := newTestService(repo, &fixedLLM{err: errors.New("model down")}, nil)

	c, err := svc.Create(context.Background(), user.ID, "analytics analytics dashboards for startups", 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(c.SearchQueries) == 0 {
		t.Fatal("fallback should produce keywords")
	}
	if c.SearchQueries[0] != "analytics" {
		t.Errorf("top keyword = %q, want analytics (most frequent)", c.SearchQueries[0])
	}
}

func TestCreateProfileLimit(t *testing.T) {
	repo := newFakeRepo()
	user := addUser(repo, domain.TierStarterMonthly) // max 1 profile
	svc := newTestService(repo, nil, nil)

	if _, err := svc.Create(context.Background(), user.ID, "first business", 0); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	_, err := svc.Create(context.Background(), user.ID, "second business", 0)
	var limitErr *PlanLimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("err = %v, want PlanLimitError", err)
	}
	if limitErr.Max != 1 {
		t.Errorf("Max = %d, want 1", limitErr.Max)
	}
	if limitErr.UpgradeTarget != domain.TierGrowthMonthly {
		t.Errorf("UpgradeTarget = %s, want GROWTH_MONTHLY", limitErr.UpgradeTarget)
	}
}

func TestSelectSubredditsActivatesAndTriggersFirstPoll(t *testing.T) {
	repo := newFakeRepo()
	user := addUser(repo, domain.TierStarterMonthly)
	poller := &countingPoller{}
	svc := newTestService(repo, nil, poller)

	c, err := svc.Create(context.Background(), user.ID, "a business", 0)
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.SelectSubreddits(context.Background(), user.ID, c.ID, []string{"saas", "r/saas", "startups"})
	if err != nil {
		t.Fatalf("SelectSubreddits: %v", err)
	}
	if updated.Status != domain.CampaignActive {
		t.Errorf("status = %s, want ACTIVE", updated.Status)
	}
	if len(repo.subs[c.ID]) != 2 {
		t.Errorf("subs = %d, want 2 (duplicate canonical names collapsed)", len(repo.subs[c.ID]))
	}
	if poller.calls != 1 || poller.triggers[0] != domain.TriggerFirstPoll {
		t.Errorf("poller calls=%d triggers=%v, want one first_poll", poller.calls, poller.triggers)
	}
}

func TestSelectSubredditsNoSecondFirstPoll(t *testing.T) {
	repo := newFakeRepo()
	user := addUser(repo, domain.TierStarterMonthly)
	poller := &countingPoller{}
	svc := newTestService(repo, nil, poller)

	c, _ := svc.Create(context.Background(), user.ID, "a business", 0)
	svc.SelectSubreddits(context.Background(), user.ID, c.ID, []string{"saas"})
	svc.SelectSubreddits(context.Background(), user.ID, c.ID, []string{"saas", "startups"})

	if poller.calls != 1 {
		t.Errorf("poller calls = %d, want 1 (first activation only)", poller.calls)
	}
}

func TestSelectSubredditsPlanCap(t *testing.T) {
	repo := newFakeRepo()
	user := addUser(repo, domain.TierStarterMonthly) // 15 subreddits max
	svc := newTestService(repo, nil, nil)

	c, _ := svc.Create(context.Background(), user.ID, "a business", 0)

	names := make([]string, 16)
	for i := range names {
		names[i] = uuid.NewString()[:8]
	}
	_, err := svc.SelectSubreddits(context.Background(), user.ID, c.ID, names)
	var limitErr *PlanLimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("err = %v, want PlanLimitError", err)
	}
	if limitErr.Max != 15 {
		t.Errorf("Max = %d, want 15", limitErr.Max)
	}
}

func TestOwnershipEnforced(t *testing.T) {
	repo := newFakeRepo()
	owner := addUser(repo, domain.TierStarterMonthly)
	stranger := addUser(repo, domain.TierGrowthMonthly)
	svc := newTestService(repo, nil, nil)

	c, _ := svc.Create(context.Background(), owner.ID, "a business", 0)

	if _, err := svc.Get(context.Background(), stranger.ID, c.ID); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("Get as stranger: err = %v, want ErrNotAuthorized", err)
	}
	if err := svc.Delete(context.Background(), stranger.ID, c.ID); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("Delete as stranger: err = %v, want ErrNotAuthorized", err)
	}
}

func TestPauseResume(t *testing.T) {
	repo := newFakeRepo()
	user := addUser(repo, domain.TierStarterMonthly)
	svc := newTestService(repo, nil, nil)

	c, _ := svc.Create(context.Background(), user.ID, "a business", 0)
	svc.SelectSubreddits(context.Background(), user.ID, c.ID, []string{"saas"})

	if err := svc.Pause(context.Background(), user.ID, c.ID); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if repo.campaigns[c.ID].Status != domain.CampaignPaused {
		t.Errorf("status = %s, want PAUSED", repo.campaigns[c.ID].Status)
	}
	// pausing a paused campaign is invalid
	if err := svc.Pause(context.Background(), user.ID, c.ID); err == nil {
		t.Error("double Pause should fail")
	}
	if err := svc.Resume(context.Background(), user.ID, c.ID); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if repo.campaigns[c.ID].Status != domain.CampaignActive {
		t.Errorf("status = %s, want ACTIVE", repo.campaigns[c.ID].Status)
	}
}

func TestDeletedCampaignBehavesAsMissing(t *testing.T) {
	repo := newFakeRepo()
	user := addUser(repo, domain.TierStarterMonthly)
	svc := newTestService(repo, nil, nil)

	c, _ := svc.Create(context.Background(), user.ID, "a business", 0)
	if err := svc.Delete(context.Background(), user.ID, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), user.ID, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
	}
}

func TestExtractKeywords(t *testing.T) {
	got := extractKeywords("We build dashboards. Dashboards for analytics teams, and the teams love it.", 3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0] != "dashboards" && got[0] != "teams" {
		t.Errorf("top keyword = %q, want a repeated word", got[0])
	}
}
