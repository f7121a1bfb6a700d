package dto

import "time"

// HistoryTurn is one prior conversation turn forwarded to the generator.
type HistoryTurn struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

// GenerateRoadmapRequest is the payload for POST /roadmaps/generate.
type GenerateRoadmapRequest struct {
	UserGoal            string        `json:"user_goal" validate:"required,min=3,max=2000"`
	Domain              string        `json:"domain" validate:"required,oneof=programming math general"`
	ConversationHistory []HistoryTurn `json:"conversation_history,omitempty" validate:"omitempty,dive"`
	UserContext         string        `json:"user_context,omitempty" validate:"max=4000"`
	ConversationID      string        `json:"conversation_id,omitempty"`
	ChatSessionID       string        `json:"chat_session_id,omitempty"`
}

// RoadmapListRequest captures list query params.
type RoadmapListRequest struct {
	Status string `validate:"omitempty,oneof=active completed paused abandoned"`
	Domain string `validate:"omitempty,oneof=programming math general"`
	Limit  int    `validate:"omitempty,min=1,max=100"`
}

// UpdateMilestoneRequest is the payload for the milestone update endpoint.
type UpdateMilestoneRequest struct {
	Status             string   `json:"status" validate:"required,oneof=not_started in_progress completed skipped"`
	ProgressPercentage *int     `json:"progress_percentage,omitempty" validate:"omitempty,min=0,max=100"`
	Notes              *string  `json:"notes,omitempty"`
	QuizPassed         *bool    `json:"quiz_passed,omitempty"`
	QuizScore          *float64 `json:"quiz_score,omitempty" validate:"omitempty,min=0,max=100"`
	TimeSpentMinutes   *int     `json:"time_spent,omitempty" validate:"omitempty,min=0"`

	// Metadata is merged into the stored row key by key.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// AdminOverride requests the completed -> in_progress re-open. Honored
	// only for admin callers; ignored otherwise.
	AdminOverride bool `json:"admin_override,omitempty"`
}

// MilestoneView merges a milestone definition with its effective progress.
type MilestoneView struct {
	ID                 string     `json:"id"`
	Order              int        `json:"order"`
	Type               string     `json:"type"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	EstimatedTime      int        `json:"estimated_time,omitempty"`
	Topics             []string   `json:"topics,omitempty"`
	QuizID             string     `json:"quiz_id,omitempty"`
	Difficulty         string     `json:"difficulty,omitempty"`
	Status             string     `json:"status"`
	ProgressPercentage int        `json:"progress_percentage"`
	QuizPassed         bool       `json:"quiz_passed,omitempty"`
	BestQuizScore      float64    `json:"best_quiz_score,omitempty"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	TimeSpentMinutes   int        `json:"time_spent,omitempty"`
	Notes              string     `json:"notes,omitempty"`
}

// PhaseView is a phase with its milestone views.
type PhaseView struct {
	ID         string          `json:"id"`
	Order      int             `json:"order"`
	Title      string          `json:"title"`
	Milestones []MilestoneView `json:"milestones"`
}

// RoadmapResponse is the full roadmap view with derived progress state.
type RoadmapResponse struct {
	ID                  string      `json:"id"`
	UserID              string      `json:"user_id"`
	Title               string      `json:"title"`
	Domain              string      `json:"domain"`
	Status              string      `json:"status"`
	TotalMilestones     int         `json:"total_milestones"`
	CompletedMilestones int         `json:"completed_milestones"`
	ProgressPercentage  int         `json:"progress_percentage"`
	CurrentPhaseID      string      `json:"current_phase_id,omitempty"`
	CurrentMilestoneID  string      `json:"current_milestone_id,omitempty"`
	ConversationID      string      `json:"conversation_id,omitempty"`
	ChatSessionID       string      `json:"chat_session_id,omitempty"`
	Phases              []PhaseView `json:"phases"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// RoadmapSummary is the list-view shape without the phase tree.
type RoadmapSummary struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Domain              string    `json:"domain"`
	Status              string    `json:"status"`
	TotalMilestones     int       `json:"total_milestones"`
	CompletedMilestones int       `json:"completed_milestones"`
	ProgressPercentage  int       `json:"progress_percentage"`
	CurrentPhaseID      string    `json:"current_phase_id,omitempty"`
	CurrentMilestoneID  string    `json:"current_milestone_id,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// GenerateRoadmapResponse wraps the generation result.
type GenerateRoadmapResponse struct {
	Status    string          `json:"status"`
	RoadmapID string          `json:"roadmap_id"`
	Roadmap   RoadmapResponse `json:"roadmap"`
}

// MilestoneProgressResponse is returned by the milestone update endpoint.
type MilestoneProgressResponse struct {
	RoadmapID           string        `json:"roadmap_id"`
	PhaseID             string        `json:"phase_id"`
	Milestone           MilestoneView `json:"milestone"`
	CompletedMilestones int           `json:"completed_milestones"`
	ProgressPercentage  int           `json:"progress_percentage"`
	RoadmapStatus       string        `json:"roadmap_status"`
}

// NavigationResult describes where the caller should continue after
// start-learning: the session, the conversation, and the seed prompt.
type NavigationResult struct {
	SessionID        string        `json:"session_id"`
	ConversationID   string        `json:"conversation_id"`
	ContextualPrompt string        `json:"contextual_prompt"`
	ChatURL          string        `json:"chat_url"`
	Milestone        MilestoneView `json:"milestone_snapshot"`
}
