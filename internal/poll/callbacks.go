package poll

import "github.com/ignite/leadscout/internal/domain"

// Callbacks receives progress events from a running poll. The HTTP
// layer implements this to stream progress over SSE; the scheduler uses
// NopCallbacks. Implementations must be safe for concurrent calls.
type Callbacks interface {
	// OnProgress fires at phase boundaries and within long phases.
	OnProgress(phase Phase, message string, job *domain.PollJob)

	// OnLeadCreated fires once per surviving candidate lead.
	OnLeadCreated(lead *domain.Lead)

	// OnComplete fires once with the finalized job.
	OnComplete(job *domain.PollJob)

	// OnError fires once if the run fails.
	OnError(err error, job *domain.PollJob)
}

// NopCallbacks discards all events.
type NopCallbacks struct{}

func (NopCallbacks) OnProgress(Phase, string, *domain.PollJob) {}
func (NopCallbacks) OnLeadCreated(*domain.Lead)                {}
func (NopCallbacks) OnComplete(*domain.PollJob)                {}
func (NopCallbacks) OnError(error, *domain.PollJob)            {}

// Phase names one stage of the polling pipeline.
type Phase string

const (
	PhaseValidate    Phase = "validate"
	PhaseSubreddits  Phase = "subreddits"
	PhaseFetch       Phase = "fetch"
	PhaseDedup       Phase = "dedup"
	PhaseScore       Phase = "score"
	PhaseCleanup     Phase = "cleanup"
	PhaseSuggestions Phase = "suggestions"
	PhaseNotify      Phase = "notify"
)
