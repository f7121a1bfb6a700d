package progress

import (
	"fmt"
	"math"

	"github.com/pathlight/pathlight-go-api/internal/models"
)

// DerivedState is the engine's view of a roadmap: effective per-milestone
// statuses after applying the sequential-unlock rule, the current milestone
// pointer, and the aggregate completion metrics.
type DerivedState struct {
	Statuses            map[string]string
	CurrentPhaseID      string
	CurrentMilestoneID  string
	TotalMilestones     int
	CompletedMilestones int
	ProgressPercentage  int
}

// RoadmapStatus returns the roadmap-level status implied by the aggregates.
func (d DerivedState) RoadmapStatus() string {
	if d.TotalMilestones > 0 && d.CompletedMilestones == d.TotalMilestones {
		return models.RoadmapStatusCompleted
	}
	return models.RoadmapStatusActive
}

// Derive walks the plan in phase-then-milestone order and merges stored
// progress rows into effective statuses. Absent rows default to not_started
// when the milestone is eligible and locked otherwise. A stored in_progress
// row past the first incomplete gate is reported as ErrInconsistentState, not
// silently repaired.
//
// Derive is pure: same plan and rows always produce the same state.
func Derive(plan Plan, rows []models.MilestoneProgress) (DerivedState, error) {
	byMilestone := make(map[string]models.MilestoneProgress, len(rows))
	for _, row := range rows {
		byMilestone[row.MilestoneID] = row
	}

	state := DerivedState{
		Statuses:        make(map[string]string),
		TotalMilestones: plan.TotalMilestones(),
	}

	gateOpen := true
	inProgressSeen := false

	for _, phase := range plan.Phases {
		for _, milestone := range phase.Milestones {
			stored, hasRow := byMilestone[milestone.ID]

			effective := ""
			switch {
			case hasRow && (stored.Status == models.MilestoneCompleted || stored.Status == models.MilestoneSkipped):
				// Terminal rows survive regardless of the gate; a completed
				// milestone behind a re-opened predecessor keeps its credit.
				effective = stored.Status
			case hasRow && stored.Status == models.MilestoneInProgress:
				if !gateOpen || inProgressSeen {
					return DerivedState{}, fmt.Errorf("%w: milestone %q is in_progress behind an incomplete gate", ErrInconsistentState, milestone.ID)
				}
				effective = models.MilestoneInProgress
				inProgressSeen = true
				state.CurrentPhaseID = phase.ID
				state.CurrentMilestoneID = milestone.ID
			case gateOpen:
				effective = models.MilestoneNotStarted
				if !inProgressSeen && state.CurrentMilestoneID == "" {
					state.CurrentPhaseID = phase.ID
					state.CurrentMilestoneID = milestone.ID
				}
			default:
				effective = models.MilestoneLocked
			}

			state.Statuses[milestone.ID] = effective

			if effective == models.MilestoneCompleted {
				state.CompletedMilestones++
			}
			if effective != models.MilestoneCompleted && effective != models.MilestoneSkipped {
				gateOpen = false
			}
		}
	}

	state.ProgressPercentage = percentage(state.CompletedMilestones, state.TotalMilestones)

	return state, nil
}

// Eligible reports whether the milestone may move out of not_started under the
// derived state: it is eligible when its effective status is not_started or
// it is already the in_progress milestone.
func (d DerivedState) Eligible(milestoneID string) bool {
	switch d.Statuses[milestoneID] {
	case models.MilestoneNotStarted, models.MilestoneInProgress:
		return true
	default:
		return false
	}
}

// InProgressMilestoneID returns the id of the single in_progress milestone, if any.
func (d DerivedState) InProgressMilestoneID() string {
	for id, status := range d.Statuses {
		if status == models.MilestoneInProgress {
			return id
		}
	}
	return ""
}

func percentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	value := int(math.Round(100 * float64(completed) / float64(total)))
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
