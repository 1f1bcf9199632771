package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/leadscout/internal/domain"
	"github.com/ignite/leadscout/internal/reddit"
)

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	if _, err := s.campaigns.Get(r.Context(), userID(r), campaignID); err != nil {
		respondServiceError(w, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	leads, err := s.leads.ListLeadsByCampaign(r.Context(), campaignID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if leads == nil {
		leads = []*domain.Lead{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"leads": leads})
}

type suggestionsRequest struct {
	CustomComment string `json:"custom_comment"`
	CustomDm      string `json:"custom_dm"`
	Regenerate    bool   `json:"regenerate"`
}

// handleLeadSuggestions returns outreach drafts for a lead, generating
// them on first request and serving the stored copy afterwards.
func (s *Server) handleLeadSuggestions(w http.ResponseWriter, r *http.Request) {
	leadID, err := pathUUID(r, "leadID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid lead id")
		return
	}

	var req suggestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	lead, err := s.leads.GetLead(r.Context(), leadID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if lead == nil {
		respondError(w, http.StatusNotFound, "lead not found")
		return
	}
	c, err := s.campaigns.Get(r.Context(), userID(r), lead.CampaignID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if lead.HasSuggestions && !req.Regenerate {
		respondJSON(w, http.StatusOK, map[string]any{
			"comment": lead.SuggestedComment,
			"dm":      lead.SuggestedDm,
			"cached":  true,
		})
		return
	}

	suggestion, err := s.suggester.GenerateSuggestions(r.Context(), userID(r), c.BusinessDescription, lead, req.CustomComment, req.CustomDm)
	if err != nil {
		respondError(w, http.StatusBadGateway, "suggestion generation failed")
		return
	}
	if err := s.leads.UpdateLeadSuggestions(r.Context(), leadID, suggestion.Comment, suggestion.Dm); err != nil {
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"comment": suggestion.Comment,
		"dm":      suggestion.Dm,
		"cached":  false,
	})
}

type leadStatusRequest struct {
	Status domain.LeadStatus `json:"status"`
}

func (s *Server) handleLeadStatus(w http.ResponseWriter, r *http.Request) {
	leadID, err := pathUUID(r, "leadID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid lead id")
		return
	}
	var req leadStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	switch req.Status {
	case domain.LeadNew, domain.LeadContacted, domain.LeadDismissed:
	default:
		respondError(w, http.StatusBadRequest, "invalid status")
		return
	}

	lead, err := s.leads.GetLead(r.Context(), leadID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if lead == nil {
		respondError(w, http.StatusNotFound, "lead not found")
		return
	}
	if _, err := s.campaigns.Get(r.Context(), userID(r), lead.CampaignID); err != nil {
		respondServiceError(w, err)
		return
	}

	if err := s.leads.UpdateLeadStatus(r.Context(), leadID, req.Status); err != nil {
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": req.Status})
}

// handleSubredditRules proxies subreddit rules from the provider. Only
// the direct API provider supports rules; the scraper returns 501.
func (s *Server) handleSubredditRules(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "subreddit name is required")
		return
	}

	fetcher, ok := s.provider.(reddit.RuleFetcher)
	if !ok {
		respondError(w, http.StatusNotImplemented, "rules are not available with the configured provider")
		return
	}
	rules, err := fetcher.SubredditRules(r.Context(), name)
	if err != nil {
		respondError(w, http.StatusBadGateway, "fetching rules failed")
		return
	}
	if rules == nil {
		rules = []reddit.Rule{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"subreddit": reddit.CanonicalName(name), "rules": rules})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days <= 0 || days > 90 {
		days = 30
	}
	records, err := s.usage.ForUser(r.Context(), userID(r), days)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if records == nil {
		records = []domain.UsageRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"days": days, "usage": records})
}
