package progress

import (
	"fmt"
	"time"

	"github.com/pathlight/pathlight-go-api/internal/models"
)

// TransitionInput carries the requested status change and its payload.
type TransitionInput struct {
	Target             string
	ProgressPercentage *int
	Notes              *string
	QuizPassed         *bool
	QuizScore          *float64
	TimeSpentMinutes   *int
	Metadata           map[string]interface{}

	// ActiveMilestoneID is the id of the roadmap's current in_progress
	// milestone, empty when none. Used to enforce the single-in-progress
	// invariant.
	ActiveMilestoneID string

	// AdminOverride unlocks the completed -> in_progress re-open path. It is
	// never settable from the ordinary update endpoint.
	AdminOverride bool

	Now time.Time
}

// Apply drives the milestone state machine:
//
//	locked -> not_started -> in_progress -> {completed, skipped}
//
// completed and skipped are terminal except for the admin-only re-open.
// The caller is responsible for deriving the effective status first; rows
// whose effective status is locked must not reach Apply.
func Apply(row *models.MilestoneProgress, milestone Milestone, in TransitionInput) error {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	switch row.Status {
	case models.MilestoneLocked:
		return fmt.Errorf("%w: milestone %q", ErrMilestoneLocked, row.MilestoneID)

	case models.MilestoneNotStarted:
		switch in.Target {
		case models.MilestoneInProgress:
			if in.ActiveMilestoneID != "" && in.ActiveMilestoneID != row.MilestoneID {
				return fmt.Errorf("%w: %q is active", ErrMilestoneBusy, in.ActiveMilestoneID)
			}
			row.Status = models.MilestoneInProgress
			if row.StartedAt == nil {
				started := now
				row.StartedAt = &started
			}
		case models.MilestoneSkipped:
			row.Status = models.MilestoneSkipped
		case models.MilestoneNotStarted:
			// No-op; payload fields below may still update.
		default:
			return illegal(row.Status, in.Target)
		}

	case models.MilestoneInProgress:
		switch in.Target {
		case models.MilestoneCompleted:
			passed := row.QuizPassed
			if in.QuizPassed != nil {
				passed = *in.QuizPassed
			}
			if milestone.Type == MilestoneQuiz && !passed {
				return fmt.Errorf("%w: milestone %q", ErrQuizNotPassed, row.MilestoneID)
			}
			row.Status = models.MilestoneCompleted
			row.QuizPassed = passed
			row.ProgressPercentage = 100
			completed := now
			row.CompletedAt = &completed
		case models.MilestoneSkipped:
			row.Status = models.MilestoneSkipped
		case models.MilestoneInProgress:
			// Progress report while working; payload fields below update.
		default:
			return illegal(row.Status, in.Target)
		}

	case models.MilestoneCompleted:
		if in.Target != models.MilestoneInProgress || !in.AdminOverride {
			return illegal(row.Status, in.Target)
		}
		// Re-opening is subject to the same single-in-progress invariant as a
		// fresh start; otherwise the roadmap ends up with two active rows.
		if in.ActiveMilestoneID != "" && in.ActiveMilestoneID != row.MilestoneID {
			return fmt.Errorf("%w: %q is active", ErrMilestoneBusy, in.ActiveMilestoneID)
		}
		row.Status = models.MilestoneInProgress
		row.CompletedAt = nil
		row.ProgressPercentage = 0

	case models.MilestoneSkipped:
		return illegal(row.Status, in.Target)

	default:
		return fmt.Errorf("%w: unknown status %q", ErrIllegalTransition, row.Status)
	}

	applyPayload(row, in)

	return nil
}

func applyPayload(row *models.MilestoneProgress, in TransitionInput) {
	if in.ProgressPercentage != nil && row.Status == models.MilestoneInProgress {
		pct := *in.ProgressPercentage
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		row.ProgressPercentage = pct
	}
	if in.Notes != nil {
		row.Notes = *in.Notes
	}
	if in.TimeSpentMinutes != nil && *in.TimeSpentMinutes > 0 {
		row.TimeSpentMinutes += *in.TimeSpentMinutes
	}
	if in.QuizScore != nil && *in.QuizScore > row.BestQuizScore {
		row.BestQuizScore = *in.QuizScore
	}
	if in.QuizPassed != nil && *in.QuizPassed {
		row.QuizPassed = true
	}
	if len(in.Metadata) > 0 {
		if row.Metadata == nil {
			row.Metadata = map[string]interface{}{}
		}
		for key, value := range in.Metadata {
			row.Metadata[key] = value
		}
	}
}

func illegal(from, to string) error {
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}
