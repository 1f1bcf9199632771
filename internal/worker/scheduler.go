// Package worker runs the background poll scheduler: an hourly sweep
// that polls every eligible campaign whose owner's tier includes the
// current UTC hour.
package worker

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/leadscout/internal/domain"
	"github.com/ignite/leadscout/internal/pkg/distlock"
	"github.com/ignite/leadscout/internal/plan"
	"github.com/ignite/leadscout/internal/poll"
)

// SchedulerStore is the persistence surface the scheduler needs.
type SchedulerStore interface {
	ListUsersWithActiveCampaigns(ctx context.Context) ([]*domain.User, error)
	ListActiveCampaignIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// PollRunner executes one poll run; satisfied by *poll.Engine.
type PollRunner interface {
	RunPoll(ctx context.Context, campaignID uuid.UUID, trigger domain.PollTrigger, cb poll.Callbacks) (*domain.PollJob, error)
}

// SweepStats summarizes one hourly sweep.
type SweepStats struct {
	Hour             int
	UsersChecked     int
	CampaignsPolled  int
	CampaignsSkipped int
	Errors           int
}

// PollScheduler fires a sweep at the top of every UTC hour. Only one
// instance across the fleet runs a given sweep; the distributed lock
// arbitrates.
type PollScheduler struct {
	store   SchedulerStore
	runner  PollRunner
	plans   *plan.Table
	lock    distlock.DistLock
	enabled bool

	// now is injectable for tests.
	now func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	sweepsRun    atomic.Int64
	pollsTotal   atomic.Int64
	errorsTotal  atomic.Int64
	lastSweepRun atomic.Int64 // unix seconds
}

// NewPollScheduler creates the scheduler. lock may be nil when running
// single-instance; enabled=false makes Start a no-op, matching the
// ENABLE_SCHEDULED_POLLING switch.
func NewPollScheduler(store SchedulerStore, runner PollRunner, plans *plan.Table, lock distlock.DistLock, enabled bool) *PollScheduler {
	return &PollScheduler{
		store:   store,
		runner:  runner,
		plans:   plans,
		lock:    lock,
		enabled: enabled,
		now:     time.Now,
	}
}

// Start launches the scheduler loop.
func (s *PollScheduler) Start() {
	if !s.enabled {
		log.Println("[Scheduler] scheduled polling disabled")
		return
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop()
	log.Println("[Scheduler] started")
}

// Stop shuts the scheduler down and waits for an in-flight sweep.
func (s *PollScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	log.Println("[Scheduler] stopped")
}

// loop checks once a minute whether a new UTC hour began and sweeps it.
func (s *PollScheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	lastHour := -1
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
		}

		hour := s.now().UTC().Hour()
		if hour == lastHour {
			continue
		}
		lastHour = hour

		ctx, cancel := context.WithTimeout(context.Background(), 55*time.Minute)
		stats := s.Sweep(ctx, hour)
		cancel()

		log.Printf("[Scheduler] hour %02d: %d users, %d polled, %d skipped, %d errors",
			stats.Hour, stats.UsersChecked, stats.CampaignsPolled, stats.CampaignsSkipped, stats.Errors)
	}
}

// Sweep polls every campaign eligible at the given UTC hour. A failed
// campaign is counted and skipped; the sweep keeps going.
func (s *PollScheduler) Sweep(ctx context.Context, hour int) SweepStats {
	stats := SweepStats{Hour: hour}

	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx)
		if err != nil {
			log.Printf("[Scheduler] lock acquire: %v", err)
			stats.Errors++
			return stats
		}
		if !acquired {
			log.Printf("[Scheduler] hour %02d: another instance holds the sweep lock", hour)
			return stats
		}
		defer func() {
			if err := s.lock.Release(ctx); err != nil {
				log.Printf("[Scheduler] lock release: %v", err)
			}
		}()
	}

	users, err := s.store.ListUsersWithActiveCampaigns(ctx)
	if err != nil {
		log.Printf("[Scheduler] list users: %v", err)
		stats.Errors++
		return stats
	}

	now := s.now()
	for _, user := range users {
		stats.UsersChecked++

		if !user.IsPollable(now) {
			stats.CampaignsSkipped++
			continue
		}
		limits := s.plans.ForTier(user.Tier)
		if !limits.AllowsHour(hour) {
			stats.CampaignsSkipped++
			continue
		}

		campaignIDs, err := s.store.ListActiveCampaignIDs(ctx, user.ID)
		if err != nil {
			log.Printf("[Scheduler] list campaigns for %s: %v", user.ID, err)
			stats.Errors++
			continue
		}

		for _, id := range campaignIDs {
			if ctx.Err() != nil {
				return stats
			}
			if _, err := s.runner.RunPoll(ctx, id, domain.TriggerScheduled, poll.NopCallbacks{}); err != nil {
				log.Printf("[Scheduler] poll campaign %s: %v", id, err)
				stats.Errors++
				continue
			}
			stats.CampaignsPolled++
		}
	}

	s.sweepsRun.Add(1)
	s.pollsTotal.Add(int64(stats.CampaignsPolled))
	s.errorsTotal.Add(int64(stats.Errors))
	s.lastSweepRun.Store(now.Unix())
	return stats
}

// Stats reports lifetime scheduler counters.
func (s *PollScheduler) Stats() map[string]int64 {
	return map[string]int64{
		"sweeps_run":     s.sweepsRun.Load(),
		"polls_total":    s.pollsTotal.Load(),
		"errors_total":   s.errorsTotal.Load(),
		"last_sweep_run": s.lastSweepRun.Load(),
	}
}
