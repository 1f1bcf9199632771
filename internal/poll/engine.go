// Package poll runs the lead discovery pipeline: fetch new posts from a
// campaign's subreddits, deduplicate, score with an LLM, delete the
// chaff, draft outreach for the best finds, and notify the owner.
//
// Each phase persists its progress before the next begins, so a crash
// mid-run leaves an inspectable partial job rather than nothing.
package poll

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/leadscout/internal/domain"
	"github.com/ignite/leadscout/internal/email"
	"github.com/ignite/leadscout/internal/plan"
	"github.com/ignite/leadscout/internal/reddit"
	"github.com/ignite/leadscout/internal/scoring"
	"github.com/ignite/leadscout/internal/usage"
)

// Store is the persistence surface the engine needs.
type Store interface {
	GetCampaign(ctx context.Context, id uuid.UUID) (*domain.Campaign, error)
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	ListActiveSubreddits(ctx context.Context, campaignID uuid.UUID) ([]domain.CampaignSubreddit, error)
	SetCampaignLastPoll(ctx context.Context, id uuid.UUID, t time.Time) error

	CreatePollJob(ctx context.Context, job *domain.PollJob) error
	UpdatePollJobProgress(ctx context.Context, job *domain.PollJob) error
	FinalizePollJob(ctx context.Context, job *domain.PollJob) error

	ExistingPostIDs(ctx context.Context, campaignID uuid.UUID) (map[string]struct{}, error)
	InsertLead(ctx context.Context, lead *domain.Lead) (bool, error)
	UpdateLeadScore(ctx context.Context, id uuid.UUID, score int, reason string) error
	DeleteLowScoreLeads(ctx context.Context, jobID uuid.UUID, minScore int) (int, error)
	DeleteLead(ctx context.Context, id uuid.UUID) error
	ListLeadsByJob(ctx context.Context, jobID uuid.UUID) ([]*domain.Lead, error)
	ListUnscoredLeads(ctx context.Context, limit int) ([]*domain.Lead, error)
	UpdateLeadSuggestions(ctx context.Context, id uuid.UUID, comment, dm string) error

	RecordSubredditPoll(ctx context.Context, name string, lastPostTimestamp int64, postsFound int) error
}

// Scorer is the LLM scoring surface the engine needs; satisfied by
// *scoring.Service.
type Scorer interface {
	ScoreLeads(ctx context.Context, userID uuid.UUID, business string, leads []*domain.Lead, onBatch func(done, total int)) []scoring.Result
	GenerateSuggestions(ctx context.Context, userID uuid.UUID, business string, lead *domain.Lead, customComment, customDm string) (scoring.Suggestion, error)
}

// Options tune the engine's thresholds.
type Options struct {
	// MinRelevancyScore is the survivor cutoff; leads below it are
	// deleted after scoring.
	MinRelevancyScore int

	// AutoSuggestionThreshold is the minimum score for automatic
	// outreach drafting.
	AutoSuggestionThreshold int
}

// DefaultOptions returns the production thresholds.
func DefaultOptions() Options {
	return Options{MinRelevancyScore: 50, AutoSuggestionThreshold: 90}
}

// Engine executes poll runs.
type Engine struct {
	store    Store
	provider reddit.Provider
	scorer   Scorer
	usage    usage.Recorder
	plans    *plan.Table
	sender   email.Sender
	digest   *email.Digest
	opts     Options
}

// NewEngine wires a poll engine. sender may be a NopSender; digest may
// be nil, which disables notification rendering.
func NewEngine(store Store, provider reddit.Provider, scorer Scorer, recorder usage.Recorder, plans *plan.Table, sender email.Sender, digest *email.Digest, opts Options) *Engine {
	if opts.MinRelevancyScore == 0 {
		opts.MinRelevancyScore = 50
	}
	if opts.AutoSuggestionThreshold == 0 {
		opts.AutoSuggestionThreshold = 90
	}
	return &Engine{
		store:    store,
		provider: provider,
		scorer:   scorer,
		usage:    recorder,
		plans:    plans,
		sender:   sender,
		digest:   digest,
		opts:     opts,
	}
}

// RunPoll executes one full pipeline pass for a campaign. Validation
// failures return an error without creating a job; once a job exists,
// any later failure finalizes it as FAILED and is also returned.
func (e *Engine) RunPoll(ctx context.Context, campaignID uuid.UUID, trigger domain.PollTrigger, cb Callbacks) (*domain.PollJob, error) {
	if cb == nil {
		cb = NopCallbacks{}
	}

	// Pre-validation. No job row is written if this fails.
	campaign, user, limits, err := e.validate(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	job := &domain.PollJob{CampaignID: campaignID, Trigger: trigger}
	if err := e.store.CreatePollJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create poll job: %w", err)
	}
	log.Printf("[Poll] job %s started for campaign %s (trigger=%s)", job.ID, campaignID, trigger)

	if err := e.run(ctx, job, campaign, user, limits, cb); err != nil {
		job.Status = domain.PollJobFailed
		job.ErrorMessage = err.Error()
		if ferr := e.store.FinalizePollJob(ctx, job); ferr != nil {
			log.Printf("[Poll] job %s: finalize after failure: %v", job.ID, ferr)
		}
		cb.OnError(err, job)
		return job, err
	}

	job.Status = domain.PollJobCompleted
	if err := e.store.FinalizePollJob(ctx, job); err != nil {
		return job, fmt.Errorf("finalize poll job: %w", err)
	}
	cb.OnComplete(job)
	log.Printf("[Poll] job %s completed: %d fetched, %d scored, %d leads, %d suggestions",
		job.ID, job.PostsFetched, job.PostsScored, job.LeadsCreated, job.SuggestionsGenerated)
	return job, nil
}

func (e *Engine) validate(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, *domain.User, plan.Limits, error) {
	campaign, err := e.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, nil, plan.Limits{}, fmt.Errorf("load campaign: %w", err)
	}
	if campaign == nil {
		return nil, nil, plan.Limits{}, fmt.Errorf("campaign %s not found", campaignID)
	}
	if campaign.Status != domain.CampaignActive {
		return nil, nil, plan.Limits{}, fmt.Errorf("campaign %s is %s, not ACTIVE", campaignID, campaign.Status)
	}

	user, err := e.store.GetUser(ctx, campaign.UserID)
	if err != nil {
		return nil, nil, plan.Limits{}, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, nil, plan.Limits{}, fmt.Errorf("user %s not found", campaign.UserID)
	}
	if !user.IsPollable(time.Now()) {
		return nil, nil, plan.Limits{}, fmt.Errorf("user %s cannot poll: %s", user.ID, user.PollableReason(time.Now()))
	}

	return campaign, user, e.plans.ForTier(user.Tier), nil
}

func (e *Engine) run(ctx context.Context, job *domain.PollJob, campaign *domain.Campaign, user *domain.User, limits plan.Limits, cb Callbacks) error {
	// Phase 1: subreddit selection and per-subreddit budget.
	cb.OnProgress(PhaseSubreddits, "loading subreddit selection", job)
	subs, err := e.store.ListActiveSubreddits(ctx, campaign.ID)
	if err != nil {
		return fmt.Errorf("load subreddits: %w", err)
	}
	if len(subs) == 0 {
		return fmt.Errorf("campaign %s has no active subreddits", campaign.ID)
	}
	postsPerSub := plan.PostsPerSubreddit(limits.MaxPostsPerPoll, len(subs))

	// The dedup set loads before fetching so postsFetched counts only
	// posts the campaign has never seen. A re-poll against an unchanged
	// upstream reports zero and ends after the fetch phase.
	existing, err := e.store.ExistingPostIDs(ctx, campaign.ID)
	if err != nil {
		return fmt.Errorf("load existing post IDs: %w", err)
	}

	// Phase 2: fetch and dedup.
	var fresh []reddit.Post
	seen := make(map[string]struct{})
	for i, sub := range subs {
		cb.OnProgress(PhaseFetch, fmt.Sprintf("fetching %s (%d/%d, up to %d posts)", sub.Name, i+1, len(subs), postsPerSub), job)
		fetched, err := e.provider.ScrapePosts(ctx, sub.Name, postsPerSub)
		e.usage.Record(ctx, user.ID, e.provider.Kind(), 0, 0)
		if err != nil {
			// One unreachable subreddit does not sink the run.
			log.Printf("[Poll] job %s: fetch %s: %v", job.ID, sub.Name, err)
			cb.OnProgress(PhaseFetch, fmt.Sprintf("%s unreachable: %v", sub.Name, err), job)
			continue
		}
		job.SubredditsPolled++

		newest := int64(0)
		for _, p := range fetched {
			if p.CreatedAtUTC > newest {
				newest = p.CreatedAtUTC
			}
			if p.ID == "" {
				continue
			}
			if _, ok := existing[p.ID]; ok {
				continue
			}
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			fresh = append(fresh, p)
			job.PostsFetched++
		}
		if err := e.store.RecordSubredditPoll(ctx, sub.Name, newest, len(fetched)); err != nil {
			log.Printf("[Poll] job %s: record subreddit poll %s: %v", job.ID, sub.Name, err)
		}
	}
	if err := e.store.UpdatePollJobProgress(ctx, job); err != nil {
		return fmt.Errorf("persist fetch progress: %w", err)
	}

	// Nothing new anywhere: complete early with zero counters.
	if job.PostsFetched == 0 {
		cb.OnProgress(PhaseFetch, "no new posts found", job)
		return nil
	}

	// Phase 3: candidate creation.
	cb.OnProgress(PhaseDedup, fmt.Sprintf("saving %d new candidates", len(fresh)), job)
	inserted := 0
	var candidates []*domain.Lead
	for _, post := range fresh {
		jobID := job.ID
		lead := &domain.Lead{
			CampaignID:      campaign.ID,
			PollJobID:       &jobID,
			RedditPostID:    post.ID,
			SubredditName:   post.Subreddit,
			Title:           post.Title,
			Content:         post.Content,
			Author:          post.Author,
			PostURL:         post.URL,
			RedditScore:     post.Score,
			NumComments:     post.NumComments,
			CreatedAtUTC:    post.CreatedAtUTC,
			RelevancyReason: "Pending scoring",
		}
		ok, err := e.store.InsertLead(ctx, lead)
		if err != nil {
			return fmt.Errorf("insert lead %s: %w", post.ID, err)
		}
		if ok {
			candidates = append(candidates, lead)
			inserted++
		}
	}
	if err := e.store.UpdatePollJobProgress(ctx, job); err != nil {
		return fmt.Errorf("persist dedup progress: %w", err)
	}

	// Phase 4: scoring.
	if len(candidates) > 0 {
		cb.OnProgress(PhaseScore, fmt.Sprintf("scoring %d candidates", len(candidates)), job)
		results := e.scorer.ScoreLeads(ctx, user.ID, campaign.BusinessDescription, candidates, func(done, total int) {
			cb.OnProgress(PhaseScore, fmt.Sprintf("scored batch %d/%d", done, total), job)
		})
		for _, r := range results {
			if err := e.store.UpdateLeadScore(ctx, r.LeadID, r.Score, r.Reason); err != nil {
				return fmt.Errorf("persist score for %s: %w", r.LeadID, err)
			}
			job.PostsScored++
		}
		if err := e.store.UpdatePollJobProgress(ctx, job); err != nil {
			return fmt.Errorf("persist score progress: %w", err)
		}
	}

	// Phase 5: cleanup below the survivor cutoff. LeadsCreated is
	// assigned once here, as the survivor count, so the persisted
	// counter never decreases during the run.
	cb.OnProgress(PhaseCleanup, "removing low-relevancy leads", job)
	deleted, err := e.store.DeleteLowScoreLeads(ctx, job.ID, e.opts.MinRelevancyScore)
	if err != nil {
		return fmt.Errorf("delete low-score leads: %w", err)
	}
	job.LeadsDeleted = deleted
	job.LeadsCreated = inserted - deleted
	if job.LeadsCreated < 0 {
		job.LeadsCreated = 0
	}
	if err := e.store.UpdatePollJobProgress(ctx, job); err != nil {
		return fmt.Errorf("persist cleanup progress: %w", err)
	}

	survivors, err := e.store.ListLeadsByJob(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("list surviving leads: %w", err)
	}
	for _, lead := range survivors {
		cb.OnLeadCreated(lead)
	}

	// Phase 6: automatic suggestions for the best finds, capped by plan.
	top := scoring.TopCandidates(survivors, e.opts.AutoSuggestionThreshold, limits.MaxAutoSuggestions)
	if len(top) > 0 {
		cb.OnProgress(PhaseSuggestions, fmt.Sprintf("drafting outreach for %d leads", len(top)), job)
		for _, lead := range top {
			sg, err := e.scorer.GenerateSuggestions(ctx, user.ID, campaign.BusinessDescription, lead, campaign.CustomCommentPrompt, campaign.CustomDmPrompt)
			if err != nil {
				// A single failed draft is not worth failing the run.
				log.Printf("[Poll] job %s: suggestions for lead %s: %v", job.ID, lead.ID, err)
				continue
			}
			if err := e.store.UpdateLeadSuggestions(ctx, lead.ID, sg.Comment, sg.Dm); err != nil {
				return fmt.Errorf("persist suggestions for %s: %w", lead.ID, err)
			}
			job.SuggestionsGenerated++
		}
		if err := e.store.UpdatePollJobProgress(ctx, job); err != nil {
			return fmt.Errorf("persist suggestion progress: %w", err)
		}
	}

	// Phase 7: notify and stamp the campaign.
	cb.OnProgress(PhaseNotify, "finishing up", job)
	if job.LeadsCreated > 0 && e.digest != nil && e.sender != nil {
		subject, body, err := e.digest.Render(job, survivors)
		if err != nil {
			log.Printf("[Poll] job %s: render digest: %v", job.ID, err)
		} else {
			e.sender.Send(ctx, user.Email, subject, body)
		}
	}
	if err := e.store.SetCampaignLastPoll(ctx, campaign.ID, time.Now()); err != nil {
		return fmt.Errorf("stamp last poll: %w", err)
	}
	return nil
}

// RescorePending sweeps leads that never received a score, usually
// because a past run died between insert and score, and scores them
// with their campaign's context. Leads below the survivor cutoff are
// removed.
func (e *Engine) RescorePending(ctx context.Context, limit int) (scored, deleted int, err error) {
	leads, err := e.store.ListUnscoredLeads(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("list unscored leads: %w", err)
	}
	if len(leads) == 0 {
		return 0, 0, nil
	}

	byCampaign := make(map[uuid.UUID][]*domain.Lead)
	for _, lead := range leads {
		byCampaign[lead.CampaignID] = append(byCampaign[lead.CampaignID], lead)
	}

	for campaignID, group := range byCampaign {
		campaign, err := e.store.GetCampaign(ctx, campaignID)
		if err != nil || campaign == nil {
			log.Printf("[Poll] rescore: campaign %s unavailable, skipping %d leads", campaignID, len(group))
			continue
		}
		user, err := e.store.GetUser(ctx, campaign.UserID)
		if err != nil || user == nil {
			log.Printf("[Poll] rescore: user for campaign %s unavailable", campaignID)
			continue
		}

		results := e.scorer.ScoreLeads(ctx, user.ID, campaign.BusinessDescription, group, nil)
		for _, r := range results {
			if r.Score < e.opts.MinRelevancyScore {
				if err := e.store.DeleteLead(ctx, r.LeadID); err != nil {
					return scored, deleted, fmt.Errorf("delete rescored lead %s: %w", r.LeadID, err)
				}
				deleted++
				continue
			}
			if err := e.store.UpdateLeadScore(ctx, r.LeadID, r.Score, r.Reason); err != nil {
				return scored, deleted, fmt.Errorf("persist rescored lead %s: %w", r.LeadID, err)
			}
			scored++
		}
	}

	log.Printf("[Poll] rescore sweep: %d scored, %d deleted", scored, deleted)
	return scored, deleted, nil
}
