package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pathlight/pathlight-go-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Roadmap{}, &models.MilestoneProgress{}, &models.ChatSession{}))
	return db
}

func seedRoadmap(t *testing.T, db *gorm.DB, userID, domain, status string) models.Roadmap {
	t.Helper()
	roadmap := models.Roadmap{
		ID:              uuid.NewString(),
		UserID:          userID,
		Title:           "Learn " + domain,
		Domain:          domain,
		Status:          status,
		PlanRaw:         []byte(`{"domain":"` + domain + `","phases":[]}`),
		TotalMilestones: 4,
	}
	require.NoError(t, db.Create(&roadmap).Error)
	return roadmap
}

func TestRoadmapRepositoryGetByIDScopesToOwner(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoadmapRepository(db)

	owner := uuid.NewString()
	roadmap := seedRoadmap(t, db, owner, "programming", models.RoadmapStatusActive)

	found, err := repo.GetByID(context.Background(), roadmap.ID, owner)
	require.NoError(t, err)
	require.Equal(t, roadmap.Title, found.Title)

	_, err = repo.GetByID(context.Background(), roadmap.ID, uuid.NewString())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRoadmapRepositoryListFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoadmapRepository(db)

	owner := uuid.NewString()
	seedRoadmap(t, db, owner, "programming", models.RoadmapStatusActive)
	seedRoadmap(t, db, owner, "math", models.RoadmapStatusActive)
	seedRoadmap(t, db, owner, "programming", models.RoadmapStatusCompleted)
	seedRoadmap(t, db, uuid.NewString(), "programming", models.RoadmapStatusActive)

	all, err := repo.List(context.Background(), owner, RoadmapFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	byDomain, err := repo.List(context.Background(), owner, RoadmapFilter{Domain: "programming"})
	require.NoError(t, err)
	require.Len(t, byDomain, 2)

	byStatus, err := repo.List(context.Background(), owner, RoadmapFilter{Status: models.RoadmapStatusCompleted})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)

	limited, err := repo.List(context.Background(), owner, RoadmapFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestRoadmapRepositoryDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoadmapRepository(db)
	sessions := NewChatSessionRepository(db)

	owner := uuid.NewString()
	roadmap := seedRoadmap(t, db, owner, "programming", models.RoadmapStatusActive)
	other := seedRoadmap(t, db, owner, "math", models.RoadmapStatusActive)

	require.NoError(t, repo.SaveProgress(context.Background(), &models.MilestoneProgress{
		RoadmapID:   roadmap.ID,
		MilestoneID: "m1",
		PhaseID:     "phase-1",
		UserID:      owner,
		Status:      models.MilestoneCompleted,
	}))
	require.NoError(t, repo.SaveProgress(context.Background(), &models.MilestoneProgress{
		RoadmapID:   other.ID,
		MilestoneID: "m1",
		PhaseID:     "phase-1",
		UserID:      owner,
		Status:      models.MilestoneInProgress,
	}))
	require.NoError(t, sessions.Create(context.Background(), &models.ChatSession{
		ID:             uuid.NewString(),
		UserID:         owner,
		RoadmapID:      roadmap.ID,
		PhaseID:        "phase-1",
		MilestoneID:    "m1",
		ConversationID: "conv-1",
	}))

	require.NoError(t, repo.Delete(context.Background(), roadmap.ID, owner))

	_, err := repo.GetByID(context.Background(), roadmap.ID, owner)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	count, err := repo.CountProgress(context.Background(), roadmap.ID)
	require.NoError(t, err)
	require.Zero(t, count)

	linked, err := sessions.ListByRoadmap(context.Background(), roadmap.ID)
	require.NoError(t, err)
	require.Empty(t, linked)

	// Sibling roadmap rows are untouched.
	count, err = repo.CountProgress(context.Background(), other.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestRoadmapRepositoryDeleteRequiresOwner(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoadmapRepository(db)

	roadmap := seedRoadmap(t, db, uuid.NewString(), "general", models.RoadmapStatusActive)

	err := repo.Delete(context.Background(), roadmap.ID, uuid.NewString())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRoadmapRepositorySaveProgressUpsertsByRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoadmapRepository(db)

	owner := uuid.NewString()
	roadmap := seedRoadmap(t, db, owner, "programming", models.RoadmapStatusActive)

	row := models.MilestoneProgress{
		RoadmapID:   roadmap.ID,
		MilestoneID: "m1",
		PhaseID:     "phase-1",
		UserID:      owner,
		Status:      models.MilestoneInProgress,
	}
	require.NoError(t, repo.SaveProgress(context.Background(), &row))
	require.NotZero(t, row.ID)

	row.Status = models.MilestoneCompleted
	row.ProgressPercentage = 100
	require.NoError(t, repo.SaveProgress(context.Background(), &row))

	stored, err := repo.GetProgress(context.Background(), roadmap.ID, "m1")
	require.NoError(t, err)
	require.Equal(t, models.MilestoneCompleted, stored.Status)
	require.Equal(t, 100, stored.ProgressPercentage)

	count, err := repo.CountProgress(context.Background(), roadmap.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestRoadmapRepositorySaveAggregates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoadmapRepository(db)

	owner := uuid.NewString()
	roadmap := seedRoadmap(t, db, owner, "math", models.RoadmapStatusActive)

	roadmap.CompletedMilestones = 2
	roadmap.ProgressPercentage = 50
	roadmap.CurrentPhaseID = "phase-2"
	roadmap.CurrentMilestoneID = "m3"
	roadmap.ConversationID = "conv-9"
	roadmap.ChatSessionID = "session-9"
	require.NoError(t, repo.SaveAggregates(context.Background(), &roadmap))

	stored, err := repo.GetByID(context.Background(), roadmap.ID, owner)
	require.NoError(t, err)
	require.Equal(t, 2, stored.CompletedMilestones)
	require.Equal(t, 50, stored.ProgressPercentage)
	require.Equal(t, "phase-2", stored.CurrentPhaseID)
	require.Equal(t, "m3", stored.CurrentMilestoneID)
	require.Equal(t, "conv-9", stored.ConversationID)
	require.Equal(t, "session-9", stored.ChatSessionID)
}

func TestChatSessionRepositoryFindByMilestone(t *testing.T) {
	db := setupTestDB(t)
	sessions := NewChatSessionRepository(db)

	owner := uuid.NewString()
	roadmapID := uuid.NewString()

	_, err := sessions.FindByMilestone(context.Background(), roadmapID, "m1")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	created := models.ChatSession{
		ID:             uuid.NewString(),
		UserID:         owner,
		RoadmapID:      roadmapID,
		PhaseID:        "phase-1",
		MilestoneID:    "m1",
		ConversationID: "conv-1",
	}
	require.NoError(t, sessions.Create(context.Background(), &created))

	found, err := sessions.FindByMilestone(context.Background(), roadmapID, "m1")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)
	require.Equal(t, "conv-1", found.ConversationID)
}
