package models

import "time"

// ChatSession links a milestone to the conversation created for it. The row
// makes start-learning idempotent: a repeated call for the same milestone
// reuses the existing session instead of spawning a duplicate conversation.
type ChatSession struct {
	ID               string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           string    `gorm:"size:64;index;not null" json:"user_id"`
	RoadmapID        string    `gorm:"type:uuid;index;not null" json:"roadmap_id"`
	PhaseID          string    `gorm:"size:160;not null" json:"phase_id"`
	MilestoneID      string    `gorm:"size:160;index;not null" json:"milestone_id"`
	ConversationID   string    `gorm:"size:160;not null" json:"conversation_id"`
	ContextualPrompt string    `gorm:"type:text" json:"contextual_prompt"`
	CreatedAt        time.Time `json:"created_at"`
}
