// Package api exposes the HTTP surface: campaign CRUD, poll runs with
// SSE progress streaming, lead actions, and usage reporting.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/ignite/leadscout/internal/config"
	"github.com/ignite/leadscout/internal/domain"
	"github.com/ignite/leadscout/internal/poll"
	"github.com/ignite/leadscout/internal/reddit"
	"github.com/ignite/leadscout/internal/scoring"
)

// CampaignService is the campaign operations surface; satisfied by
// *campaign.Service.
type CampaignService interface {
	Create(ctx context.Context, userID uuid.UUID, businessDescription string, pollIntervalHours int) (*domain.Campaign, error)
	Get(ctx context.Context, userID, campaignID uuid.UUID) (*domain.Campaign, error)
	List(ctx context.Context, userID uuid.UUID) ([]*domain.Campaign, error)
	DiscoverSubreddits(ctx context.Context, userID, campaignID uuid.UUID, limit int) ([]reddit.Community, error)
	SelectSubreddits(ctx context.Context, userID, campaignID uuid.UUID, names []string) (*domain.Campaign, error)
	Subreddits(ctx context.Context, userID, campaignID uuid.UUID) ([]domain.CampaignSubreddit, error)
	Pause(ctx context.Context, userID, campaignID uuid.UUID) error
	Resume(ctx context.Context, userID, campaignID uuid.UUID) error
	Delete(ctx context.Context, userID, campaignID uuid.UUID) error
}

// PollRunner executes poll runs; satisfied by *poll.Engine.
type PollRunner interface {
	RunPoll(ctx context.Context, campaignID uuid.UUID, trigger domain.PollTrigger, cb poll.Callbacks) (*domain.PollJob, error)
}

// LeadStore is the lead/job read-write surface; satisfied by
// *store.Store.
type LeadStore interface {
	GetLead(ctx context.Context, id uuid.UUID) (*domain.Lead, error)
	ListLeadsByCampaign(ctx context.Context, campaignID uuid.UUID, limit int) ([]*domain.Lead, error)
	ListPollJobsByCampaign(ctx context.Context, campaignID uuid.UUID, limit int) ([]*domain.PollJob, error)
	GetPollJob(ctx context.Context, id uuid.UUID) (*domain.PollJob, error)
	UpdateLeadSuggestions(ctx context.Context, id uuid.UUID, comment, dm string) error
	UpdateLeadStatus(ctx context.Context, id uuid.UUID, status domain.LeadStatus) error
}

// Suggester drafts outreach on demand; satisfied by *scoring.Service.
type Suggester interface {
	GenerateSuggestions(ctx context.Context, userID uuid.UUID, business string, lead *domain.Lead, customComment, customDm string) (scoring.Suggestion, error)
}

// UsageReader reports per-user API consumption.
type UsageReader interface {
	ForUser(ctx context.Context, userID uuid.UUID, days int) ([]domain.UsageRecord, error)
}

// Server is the HTTP API server.
type Server struct {
	cfg       config.ServerConfig
	campaigns CampaignService
	runner    PollRunner
	leads     LeadStore
	suggester Suggester
	usage     UsageReader
	provider  reddit.Provider
	router    *chi.Mux
	server    *http.Server
}

// NewServer wires the API server and its routes.
func NewServer(cfg config.ServerConfig, campaigns CampaignService, runner PollRunner, leads LeadStore, suggester Suggester, usageReader UsageReader, provider reddit.Provider) *Server {
	s := &Server{
		cfg:       cfg,
		campaigns: campaigns,
		runner:    runner,
		leads:     leads,
		suggester: suggester,
		usage:     usageReader,
		provider:  provider,
	}
	s.router = s.routes()
	return s
}

// Handler returns the configured router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(requireUser)

		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", s.handleCreateCampaign)
			r.Get("/", s.handleListCampaigns)
			r.Route("/{campaignID}", func(r chi.Router) {
				r.Get("/", s.handleGetCampaign)
				r.Delete("/", s.handleDeleteCampaign)
				r.Post("/pause", s.handlePauseCampaign)
				r.Post("/resume", s.handleResumeCampaign)
				r.Get("/discover", s.handleDiscoverSubreddits)
				r.Post("/subreddits", s.handleSelectSubreddits)
				r.Get("/subreddits", s.handleListSubreddits)
				r.Post("/poll", s.handleRunPoll)
				r.Get("/poll/stream", s.handleRunPollStream)
				r.Get("/jobs", s.handleListPollJobs)
				r.Get("/leads", s.handleListLeads)
			})
		})

		r.Route("/leads/{leadID}", func(r chi.Router) {
			r.Post("/suggestions", s.handleLeadSuggestions)
			r.Put("/status", s.handleLeadStatus)
		})

		r.Get("/jobs/{jobID}", s.handleGetPollJob)
		r.Get("/subreddits/{name}/rules", s.handleSubredditRules)
		r.Get("/usage", s.handleUsage)
	})

	return r
}

// Start runs the HTTP server until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.GetHost(), s.cfg.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[API] listening on %s", addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
