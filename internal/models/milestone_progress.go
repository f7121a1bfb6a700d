package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Milestone progress status values. locked and not_started are derived
// defaults for absent rows; the stored row only exists once a milestone has
// been touched.
const (
	MilestoneNotStarted = "not_started"
	MilestoneInProgress = "in_progress"
	MilestoneCompleted  = "completed"
	MilestoneLocked     = "locked"
	MilestoneSkipped    = "skipped"
)

// MilestoneProgress is the mutable per-user record of a milestone. One row per
// roadmap × milestone, created lazily on first touch and removed only when the
// owning roadmap is deleted.
type MilestoneProgress struct {
	ID                 uint              `gorm:"primaryKey" json:"id"`
	RoadmapID          string            `gorm:"type:uuid;index:idx_roadmap_milestone,unique;not null" json:"roadmap_id"`
	MilestoneID        string            `gorm:"size:160;index:idx_roadmap_milestone,unique;not null" json:"milestone_id"`
	PhaseID            string            `gorm:"size:160;not null" json:"phase_id"`
	UserID             string            `gorm:"size:64;index;not null" json:"user_id"`
	Status             string            `gorm:"size:32;default:not_started" json:"status"`
	ProgressPercentage int               `json:"progress_percentage"`
	QuizPassed         bool              `json:"quiz_passed"`
	BestQuizScore      float64           `json:"best_quiz_score"`
	StartedAt          *time.Time        `json:"started_at,omitempty"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
	TimeSpentMinutes   int               `json:"time_spent"`
	Notes              string            `gorm:"type:text" json:"notes,omitempty"`
	Metadata           datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// BeforeSave keeps the percentage within bounds.
func (m *MilestoneProgress) BeforeSave(tx *gorm.DB) error {
	if m.ProgressPercentage < 0 {
		m.ProgressPercentage = 0
	}
	if m.ProgressPercentage > 100 {
		m.ProgressPercentage = 100
	}
	if m.Status == "" {
		m.Status = MilestoneNotStarted
	}
	return nil
}
