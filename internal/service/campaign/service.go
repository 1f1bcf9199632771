// Package campaign implements the campaign lifecycle: creation with
// LLM-derived search queries, subreddit discovery and selection under
// plan limits, and status transitions.
package campaign

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/leadscout/internal/domain"
	"github.com/ignite/leadscout/internal/llm"
	"github.com/ignite/leadscout/internal/plan"
	"github.com/ignite/leadscout/internal/poll"
	"github.com/ignite/leadscout/internal/reddit"
	"github.com/ignite/leadscout/internal/usage"
)

// Repository is the persistence surface the service needs; satisfied by
// *store.Store.
type Repository interface {
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetCampaign(ctx context.Context, id uuid.UUID) (*domain.Campaign, error)
	CreateCampaign(ctx context.Context, c *domain.Campaign) error
	ListCampaignsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Campaign, error)
	CountCampaigns(ctx context.Context, userID uuid.UUID) (int, error)
	UpdateCampaignStatus(ctx context.Context, id uuid.UUID, status domain.CampaignStatus) error
	ReplaceCampaignSubreddits(ctx context.Context, campaignID uuid.UUID, subs []domain.CampaignSubreddit) error
	ListCampaignSubreddits(ctx context.Context, campaignID uuid.UUID) ([]domain.CampaignSubreddit, error)
}

// PollStarter kicks off the first poll after activation; satisfied by
// *poll.Engine.
type PollStarter interface {
	RunPoll(ctx context.Context, campaignID uuid.UUID, trigger domain.PollTrigger, cb poll.Callbacks) (*domain.PollJob, error)
}

// Service implements campaign operations.
type Service struct {
	repo     Repository
	llm      llm.Client
	usage    usage.Recorder
	provider reddit.Provider
	plans    *plan.Table
	poller   PollStarter

	// firstPollAsync controls whether activation polls in a goroutine.
	// Tests set it false to poll inline.
	firstPollAsync bool
}

// NewService wires the campaign service. poller may be nil, which
// disables the automatic first poll.
func NewService(repo Repository, llmClient llm.Client, recorder usage.Recorder, provider reddit.Provider, plans *plan.Table, poller PollStarter) *Service {
	return &Service{
		repo:           repo,
		llm:            llmClient,
		usage:          recorder,
		provider:       provider,
		plans:          plans,
		poller:         poller,
		firstPollAsync: true,
	}
}

// Create makes a new campaign in DISCOVERING state. The profile count
// is gated by the user's plan; search queries are derived from the
// business description. pollIntervalHours <= 0 uses the 24h default.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, businessDescription string, pollIntervalHours int) (*domain.Campaign, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	limits := s.plans.ForTier(user.Tier)
	count, err := s.repo.CountCampaigns(ctx, userID)
	if err != nil {
		return nil, err
	}
	if count >= limits.MaxProfiles {
		return nil, &PlanLimitError{
			Limit:         "campaign profiles",
			Current:       count,
			Max:           limits.MaxProfiles,
			UpgradeTarget: plan.UpgradeTarget(user.Tier),
		}
	}

	if pollIntervalHours <= 0 {
		pollIntervalHours = 24
	}
	c := &domain.Campaign{
		UserID:              userID,
		Status:              domain.CampaignDiscovering,
		BusinessDescription: businessDescription,
		SearchQueries:       s.deriveQueries(ctx, userID, businessDescription),
		PollIntervalHours:   pollIntervalHours,
	}
	if err := s.repo.CreateCampaign(ctx, c); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}
	log.Printf("[Campaign] created %s for user %s with %d queries", c.ID, userID, len(c.SearchQueries))
	return c, nil
}

// DiscoverSubreddits searches the provider with the campaign's derived
// queries and returns candidate communities, most subscribed first.
func (s *Service) DiscoverSubreddits(ctx context.Context, userID, campaignID uuid.UUID, limit int) ([]reddit.Community, error) {
	c, err := s.authorize(ctx, userID, campaignID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 25
	}

	communities, err := s.provider.SearchCommunities(ctx, c.SearchQueries, limit)
	s.usage.Record(ctx, userID, s.provider.Kind(), 0, 0)
	if err != nil {
		return nil, fmt.Errorf("search communities: %w", err)
	}
	return communities, nil
}

// SelectSubreddits replaces the campaign's subreddit selection, capped
// by the user's plan, and activates the campaign. The first activation
// triggers an immediate poll.
func (s *Service) SelectSubreddits(ctx context.Context, userID, campaignID uuid.UUID, names []string) (*domain.Campaign, error) {
	c, err := s.authorize(ctx, userID, campaignID)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	limits := s.plans.ForTier(user.Tier)
	if len(names) > limits.MaxSubredditsPerProfile {
		return nil, &PlanLimitError{
			Limit:         "subreddits per campaign",
			Current:       len(names),
			Max:           limits.MaxSubredditsPerProfile,
			UpgradeTarget: plan.UpgradeTarget(user.Tier),
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("at least one subreddit is required")
	}

	subs := make([]domain.CampaignSubreddit, 0, len(names))
	seen := make(map[string]struct{})
	for _, name := range names {
		canonical := reddit.CanonicalName(name)
		if _, ok := seen[canonical]; ok {
			continue
		}
		seen[canonical] = struct{}{}
		subs = append(subs, domain.CampaignSubreddit{Name: canonical, Active: true})
	}
	if err := s.repo.ReplaceCampaignSubreddits(ctx, campaignID, subs); err != nil {
		return nil, fmt.Errorf("replace subreddits: %w", err)
	}

	firstActivation := c.Status == domain.CampaignDiscovering
	if c.Status != domain.CampaignActive {
		if err := s.repo.UpdateCampaignStatus(ctx, campaignID, domain.CampaignActive); err != nil {
			return nil, err
		}
		c.Status = domain.CampaignActive
	}

	if firstActivation && s.poller != nil {
		if s.firstPollAsync {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
				defer cancel()
				if _, err := s.poller.RunPoll(ctx, campaignID, domain.TriggerFirstPoll, poll.NopCallbacks{}); err != nil {
					log.Printf("[Campaign] first poll for %s: %v", campaignID, err)
				}
			}()
		} else {
			if _, err := s.poller.RunPoll(ctx, campaignID, domain.TriggerFirstPoll, poll.NopCallbacks{}); err != nil {
				log.Printf("[Campaign] first poll for %s: %v", campaignID, err)
			}
		}
	}
	return c, nil
}

// Get returns a campaign after an ownership check.
func (s *Service) Get(ctx context.Context, userID, campaignID uuid.UUID) (*domain.Campaign, error) {
	return s.authorize(ctx, userID, campaignID)
}

// List returns the user's campaigns, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*domain.Campaign, error) {
	return s.repo.ListCampaignsByUser(ctx, userID)
}

// Subreddits returns the campaign's subreddit selection.
func (s *Service) Subreddits(ctx context.Context, userID, campaignID uuid.UUID) ([]domain.CampaignSubreddit, error) {
	if _, err := s.authorize(ctx, userID, campaignID); err != nil {
		return nil, err
	}
	return s.repo.ListCampaignSubreddits(ctx, campaignID)
}

// Pause stops scheduled polling for the campaign.
func (s *Service) Pause(ctx context.Context, userID, campaignID uuid.UUID) error {
	return s.transition(ctx, userID, campaignID, domain.CampaignActive, domain.CampaignPaused)
}

// Resume re-enables scheduled polling.
func (s *Service) Resume(ctx context.Context, userID, campaignID uuid.UUID) error {
	return s.transition(ctx, userID, campaignID, domain.CampaignPaused, domain.CampaignActive)
}

// Delete soft-deletes the campaign. Leads are kept for export until the
// retention job collects them.
func (s *Service) Delete(ctx context.Context, userID, campaignID uuid.UUID) error {
	if _, err := s.authorize(ctx, userID, campaignID); err != nil {
		return err
	}
	return s.repo.UpdateCampaignStatus(ctx, campaignID, domain.CampaignDeleted)
}

func (s *Service) transition(ctx context.Context, userID, campaignID uuid.UUID, from, to domain.CampaignStatus) error {
	c, err := s.authorize(ctx, userID, campaignID)
	if err != nil {
		return err
	}
	if c.Status != from {
		return fmt.Errorf("campaign is %s, cannot move to %s", c.Status, to)
	}
	return s.repo.UpdateCampaignStatus(ctx, campaignID, to)
}

// authorize loads the campaign and verifies ownership. Deleted
// campaigns behave as missing.
func (s *Service) authorize(ctx context.Context, userID, campaignID uuid.UUID) (*domain.Campaign, error) {
	c, err := s.repo.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c == nil || c.Status == domain.CampaignDeleted {
		return nil, ErrNotFound
	}
	if c.UserID != userID {
		return nil, ErrNotAuthorized
	}
	return c, nil
}
