package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Roadmap status values. A roadmap flips to completed exactly when every
// milestone progress row is completed.
const (
	RoadmapStatusActive    = "active"
	RoadmapStatusCompleted = "completed"
	RoadmapStatusPaused    = "paused"
	RoadmapStatusAbandoned = "abandoned"
)

// Roadmap is a generated, user-owned curriculum. PlanRaw holds the immutable
// phase/milestone tree; aggregate columns are recomputed by the progress
// engine after every mutation.
type Roadmap struct {
	ID                  string         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID              string         `gorm:"size:64;index;not null" json:"user_id"`
	Title               string         `gorm:"size:255;not null" json:"title"`
	Domain              string         `gorm:"size:32;index" json:"domain"`
	Status              string         `gorm:"size:32;index;default:active" json:"status"`
	PlanRaw             datatypes.JSON `gorm:"column:plan;type:json" json:"roadmap_data"`
	TotalMilestones     int            `json:"total_milestones"`
	CompletedMilestones int            `json:"completed_milestones"`
	ProgressPercentage  int            `json:"progress_percentage"`
	CurrentPhaseID      string         `gorm:"size:160" json:"current_phase_id"`
	CurrentMilestoneID  string         `gorm:"size:160" json:"current_milestone_id"`
	ConversationID      string         `gorm:"size:160" json:"conversation_id,omitempty"`
	ChatSessionID       string         `gorm:"size:160" json:"chat_session_id,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// BeforeSave clamps aggregates into their legal ranges.
func (r *Roadmap) BeforeSave(tx *gorm.DB) error {
	if r.ProgressPercentage < 0 {
		r.ProgressPercentage = 0
	}
	if r.ProgressPercentage > 100 {
		r.ProgressPercentage = 100
	}
	if r.Status == "" {
		r.Status = RoadmapStatusActive
	}
	return nil
}
