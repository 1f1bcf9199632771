package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ignite/leadscout/internal/domain"
)

type createCampaignRequest struct {
	BusinessDescription string `json:"business_description"`
	PollIntervalHours   int    `json:"poll_interval_hours"`
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.BusinessDescription) == "" {
		respondError(w, http.StatusBadRequest, "business_description is required")
		return
	}

	c, err := s.campaigns.Create(r.Context(), userID(r), req.BusinessDescription, req.PollIntervalHours)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	list, err := s.campaigns.List(r.Context(), userID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if list == nil {
		list = []*domain.Campaign{}
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	c, err := s.campaigns.Get(r.Context(), userID(r), campaignID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	if err := s.campaigns.Delete(r.Context(), userID(r), campaignID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handlePauseCampaign(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.campaigns.Pause, "paused")
}

func (s *Server) handleResumeCampaign(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.campaigns.Resume, "active")
}

type transitionFunc func(ctx context.Context, userID, campaignID uuid.UUID) error

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request, op transitionFunc, result string) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	if err := op(r.Context(), userID(r), campaignID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": result})
}

func (s *Server) handleDiscoverSubreddits(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	communities, err := s.campaigns.DiscoverSubreddits(r.Context(), userID(r), campaignID, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"communities": communities})
}

type selectSubredditsRequest struct {
	Subreddits []string `json:"subreddits"`
}

func (s *Server) handleSelectSubreddits(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	var req selectSubredditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	c, err := s.campaigns.SelectSubreddits(r.Context(), userID(r), campaignID, req.Subreddits)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (s *Server) handleListSubreddits(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	subs, err := s.campaigns.Subreddits(r.Context(), userID(r), campaignID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if subs == nil {
		subs = []domain.CampaignSubreddit{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"subreddits": subs})
}
