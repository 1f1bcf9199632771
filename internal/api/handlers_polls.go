package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/ignite/leadscout/internal/domain"
	"github.com/ignite/leadscout/internal/poll"
)

// pollRunTimeout bounds a single on-demand poll run.
const pollRunTimeout = 30 * time.Minute

// handleRunPoll kicks off a manual poll in the background. Progress is
// observable on the stream endpoint or the jobs listing.
func (s *Server) handleRunPoll(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	// Ownership check up front so a stranger gets a 403, not a silent
	// background failure.
	if _, err := s.campaigns.Get(r.Context(), userID(r), campaignID); err != nil {
		respondServiceError(w, err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), pollRunTimeout)
		defer cancel()
		if _, err := s.runner.RunPoll(ctx, campaignID, domain.TriggerManual, poll.NopCallbacks{}); err != nil {
			log.Printf("[API] manual poll for %s: %v", campaignID, err)
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// sseEvent is one frame on the poll progress stream.
type sseEvent struct {
	name string
	data any
}

// sseCallbacks forwards poll progress into the stream channel. Sends
// are non-blocking so a stalled client cannot wedge the poll run.
type sseCallbacks struct {
	events chan sseEvent
}

func (c *sseCallbacks) send(name string, data any) {
	select {
	case c.events <- sseEvent{name: name, data: data}:
	default:
	}
}

func (c *sseCallbacks) OnProgress(phase poll.Phase, message string, job *domain.PollJob) {
	c.send("progress", map[string]any{
		"phase":   phase,
		"message": message,
		"job":     job,
	})
}

func (c *sseCallbacks) OnLeadCreated(lead *domain.Lead) {
	c.send("lead", lead)
}

func (c *sseCallbacks) OnComplete(job *domain.PollJob) {
	c.send("complete", job)
}

func (c *sseCallbacks) OnError(err error, job *domain.PollJob) {
	c.send("error", map[string]any{
		"error": err.Error(),
		"job":   job,
	})
}

// handleRunPollStream runs a manual poll and streams its progress as
// server-sent events. The stream closes when the run finishes.
func (s *Server) handleRunPollStream(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	if _, err := s.campaigns.Get(r.Context(), userID(r), campaignID); err != nil {
		respondServiceError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	cb := &sseCallbacks{events: make(chan sseEvent, 64)}
	done := make(chan struct{})

	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), pollRunTimeout)
		defer cancel()
		if _, err := s.runner.RunPoll(ctx, campaignID, domain.TriggerManual, cb); err != nil {
			log.Printf("[API] streamed poll for %s: %v", campaignID, err)
		}
	}()

	ping := time.NewTicker(15 * time.Second)
	defer ping.Stop()

	writeEvent := func(ev sseEvent) {
		data, err := json.Marshal(ev.data)
		if err != nil {
			log.Printf("[API] marshal %s event: %v", ev.name, err)
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.name, data)
		flusher.Flush()
	}

	for {
		select {
		case ev := <-cb.events:
			writeEvent(ev)
		case <-ping.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case <-done:
			// drain anything the run emitted after the last read
			for {
				select {
				case ev := <-cb.events:
					writeEvent(ev)
				default:
					return
				}
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) handleListPollJobs(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	if _, err := s.campaigns.Get(r.Context(), userID(r), campaignID); err != nil {
		respondServiceError(w, err)
		return
	}

	jobs, err := s.leads.ListPollJobsByCampaign(r.Context(), campaignID, 50)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if jobs == nil {
		jobs = []*domain.PollJob{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleGetPollJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathUUID(r, "jobID")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, err := s.leads.GetPollJob(r.Context(), jobID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	// jobs inherit the campaign's ownership
	if _, err := s.campaigns.Get(r.Context(), userID(r), job.CampaignID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, job)
}
