package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/pathlight/pathlight-go-api/internal/models"
)

// ChatSessionRepository persists milestone-to-conversation links.
type ChatSessionRepository interface {
	Create(ctx context.Context, session *models.ChatSession) error
	FindByMilestone(ctx context.Context, roadmapID, milestoneID string) (models.ChatSession, error)
	ListByRoadmap(ctx context.Context, roadmapID string) ([]models.ChatSession, error)
}

type chatSessionRepository struct {
	db *gorm.DB
}

// NewChatSessionRepository constructs a chat session repository.
func NewChatSessionRepository(db *gorm.DB) ChatSessionRepository {
	return &chatSessionRepository{db: db}
}

func (r *chatSessionRepository) Create(ctx context.Context, session *models.ChatSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *chatSessionRepository) FindByMilestone(ctx context.Context, roadmapID, milestoneID string) (models.ChatSession, error) {
	var session models.ChatSession
	err := r.db.WithContext(ctx).
		Where("roadmap_id = ? AND milestone_id = ?", roadmapID, milestoneID).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		return models.ChatSession{}, err
	}
	return session, nil
}

func (r *chatSessionRepository) ListByRoadmap(ctx context.Context, roadmapID string) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	err := r.db.WithContext(ctx).
		Where("roadmap_id = ?", roadmapID).
		Order("created_at ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}
