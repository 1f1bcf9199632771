package campaign

import (
	"errors"
	"fmt"

	"github.com/ignite/leadscout/internal/domain"
)

var (
	// ErrNotFound is returned when the campaign does not exist or is
	// deleted.
	ErrNotFound = errors.New("campaign not found")

	// ErrNotAuthorized is returned when a user operates on another
	// user's campaign.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrUserNotFound is returned when the owning user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// PlanLimitError is returned when an operation would exceed the user's
// plan limits. It names the limit and the tier that lifts it so the web
// tier can render an upgrade prompt.
type PlanLimitError struct {
	Limit         string
	Current       int
	Max           int
	UpgradeTarget domain.Tier
}

func (e *PlanLimitError) Error() string {
	return fmt.Sprintf("plan limit reached: %s (%d/%d), upgrade to %s",
		e.Limit, e.Current, e.Max, e.UpgradeTarget)
}
