package progress

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pathlight/pathlight-go-api/internal/models"
)

func TestDeriveFreshRoadmap(t *testing.T) {
	state, err := Derive(twoPhasePlan(), nil)
	require.NoError(t, err)

	require.Equal(t, models.MilestoneNotStarted, state.Statuses["m1"])
	require.Equal(t, models.MilestoneLocked, state.Statuses["m2"])
	require.Equal(t, models.MilestoneLocked, state.Statuses["m3"])
	require.Equal(t, models.MilestoneLocked, state.Statuses["m4"])

	require.Equal(t, "phase-1", state.CurrentPhaseID)
	require.Equal(t, "m1", state.CurrentMilestoneID)
	require.Equal(t, 4, state.TotalMilestones)
	require.Equal(t, 0, state.CompletedMilestones)
	require.Equal(t, 0, state.ProgressPercentage)
	require.Equal(t, models.RoadmapStatusActive, state.RoadmapStatus())
}

func TestDeriveUnlocksAcrossPhaseBoundary(t *testing.T) {
	rows := []models.MilestoneProgress{
		{MilestoneID: "m1", Status: models.MilestoneCompleted},
		{MilestoneID: "m2", Status: models.MilestoneCompleted},
	}

	state, err := Derive(twoPhasePlan(), rows)
	require.NoError(t, err)

	require.Equal(t, models.MilestoneNotStarted, state.Statuses["m3"])
	require.Equal(t, models.MilestoneLocked, state.Statuses["m4"])
	require.Equal(t, "phase-2", state.CurrentPhaseID)
	require.Equal(t, "m3", state.CurrentMilestoneID)
	require.Equal(t, 50, state.ProgressPercentage)
}

func TestDeriveSkippedOpensGate(t *testing.T) {
	rows := []models.MilestoneProgress{
		{MilestoneID: "m1", Status: models.MilestoneSkipped},
	}

	state, err := Derive(twoPhasePlan(), rows)
	require.NoError(t, err)

	require.Equal(t, models.MilestoneSkipped, state.Statuses["m1"])
	require.Equal(t, models.MilestoneNotStarted, state.Statuses["m2"])
	require.Equal(t, "m2", state.CurrentMilestoneID)
	require.Equal(t, 0, state.CompletedMilestones, "skipped milestones earn no completion credit")
}

func TestDeriveInProgressIsCurrent(t *testing.T) {
	rows := []models.MilestoneProgress{
		{MilestoneID: "m1", Status: models.MilestoneCompleted},
		{MilestoneID: "m2", Status: models.MilestoneInProgress},
	}

	state, err := Derive(twoPhasePlan(), rows)
	require.NoError(t, err)

	require.Equal(t, models.MilestoneInProgress, state.Statuses["m2"])
	require.Equal(t, "m2", state.CurrentMilestoneID)
	require.Equal(t, "m2", state.InProgressMilestoneID())
	require.Equal(t, 25, state.ProgressPercentage)
}

func TestDeriveCompletedSurvivesClosedGate(t *testing.T) {
	// m1 was re-opened after m2 completed; m2 keeps its credit.
	rows := []models.MilestoneProgress{
		{MilestoneID: "m1", Status: models.MilestoneInProgress},
		{MilestoneID: "m2", Status: models.MilestoneCompleted},
	}

	state, err := Derive(twoPhasePlan(), rows)
	require.NoError(t, err)

	require.Equal(t, models.MilestoneInProgress, state.Statuses["m1"])
	require.Equal(t, models.MilestoneCompleted, state.Statuses["m2"])
	require.Equal(t, models.MilestoneLocked, state.Statuses["m3"])
	require.Equal(t, 1, state.CompletedMilestones)
}

func TestDeriveRejectsInProgressBehindGate(t *testing.T) {
	rows := []models.MilestoneProgress{
		{MilestoneID: "m3", Status: models.MilestoneInProgress},
	}

	_, err := Derive(twoPhasePlan(), rows)
	require.ErrorIs(t, err, ErrInconsistentState)
}

func TestDeriveRejectsTwoInProgress(t *testing.T) {
	rows := []models.MilestoneProgress{
		{MilestoneID: "m1", Status: models.MilestoneInProgress},
		{MilestoneID: "m2", Status: models.MilestoneInProgress},
	}

	_, err := Derive(twoPhasePlan(), rows)
	require.ErrorIs(t, err, ErrInconsistentState)
}

func TestDeriveFullyCompletedRoadmap(t *testing.T) {
	rows := []models.MilestoneProgress{
		{MilestoneID: "m1", Status: models.MilestoneCompleted},
		{MilestoneID: "m2", Status: models.MilestoneCompleted},
		{MilestoneID: "m3", Status: models.MilestoneCompleted},
		{MilestoneID: "m4", Status: models.MilestoneCompleted},
	}

	state, err := Derive(twoPhasePlan(), rows)
	require.NoError(t, err)

	require.Equal(t, 100, state.ProgressPercentage)
	require.Empty(t, state.CurrentMilestoneID)
	require.Equal(t, models.RoadmapStatusCompleted, state.RoadmapStatus())
}

func TestEligible(t *testing.T) {
	rows := []models.MilestoneProgress{
		{MilestoneID: "m1", Status: models.MilestoneCompleted},
		{MilestoneID: "m2", Status: models.MilestoneInProgress},
	}

	state, err := Derive(twoPhasePlan(), rows)
	require.NoError(t, err)

	require.False(t, state.Eligible("m1"), "completed milestone is not startable")
	require.True(t, state.Eligible("m2"), "active milestone stays eligible")
	require.False(t, state.Eligible("m3"), "locked milestone is not startable")
}

func TestPercentageRounding(t *testing.T) {
	require.Equal(t, 33, percentage(1, 3))
	require.Equal(t, 67, percentage(2, 3))
	require.Equal(t, 0, percentage(0, 0))
	require.Equal(t, 100, percentage(5, 5))
}
