package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/pathlight/pathlight-go-api/internal/models"
)

// RoadmapFilter narrows roadmap listings.
type RoadmapFilter struct {
	Status string
	Domain string
	Limit  int
}

// RoadmapRepository persists roadmaps and their milestone progress rows.
type RoadmapRepository interface {
	Create(ctx context.Context, roadmap *models.Roadmap) error
	GetByID(ctx context.Context, id, userID string) (models.Roadmap, error)
	List(ctx context.Context, userID string, filter RoadmapFilter) ([]models.Roadmap, error)
	Delete(ctx context.Context, id, userID string) error
	SaveAggregates(ctx context.Context, roadmap *models.Roadmap) error

	ListProgress(ctx context.Context, roadmapID string) ([]models.MilestoneProgress, error)
	GetProgress(ctx context.Context, roadmapID, milestoneID string) (models.MilestoneProgress, error)
	SaveProgress(ctx context.Context, row *models.MilestoneProgress) error
	CountProgress(ctx context.Context, roadmapID string) (int64, error)
}

type roadmapRepository struct {
	db *gorm.DB
}

// NewRoadmapRepository constructs a roadmap repository backed by GORM.
func NewRoadmapRepository(db *gorm.DB) RoadmapRepository {
	return &roadmapRepository{db: db}
}

func (r *roadmapRepository) Create(ctx context.Context, roadmap *models.Roadmap) error {
	return r.db.WithContext(ctx).Create(roadmap).Error
}

func (r *roadmapRepository) GetByID(ctx context.Context, id, userID string) (models.Roadmap, error) {
	var roadmap models.Roadmap
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&roadmap).Error
	if err != nil {
		return models.Roadmap{}, err
	}
	return roadmap, nil
}

func (r *roadmapRepository) List(ctx context.Context, userID string, filter RoadmapFilter) ([]models.Roadmap, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)

	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if domain := strings.TrimSpace(filter.Domain); domain != "" {
		query = query.Where("domain = ?", domain)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var roadmaps []models.Roadmap
	if err := query.Order("updated_at DESC").Limit(limit).Find(&roadmaps).Error; err != nil {
		return nil, err
	}
	return roadmaps, nil
}

// Delete removes the roadmap and cascades its progress rows and chat sessions
// in one transaction so no orphans survive.
func (r *roadmapRepository) Delete(ctx context.Context, id, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var roadmap models.Roadmap
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&roadmap).Error; err != nil {
			return err
		}
		if err := tx.Where("roadmap_id = ?", id).Delete(&models.MilestoneProgress{}).Error; err != nil {
			return err
		}
		if err := tx.Where("roadmap_id = ?", id).Delete(&models.ChatSession{}).Error; err != nil {
			return err
		}
		return tx.Delete(&roadmap).Error
	})
}

func (r *roadmapRepository) SaveAggregates(ctx context.Context, roadmap *models.Roadmap) error {
	return r.db.WithContext(ctx).Model(roadmap).Updates(map[string]interface{}{
		"completed_milestones": roadmap.CompletedMilestones,
		"progress_percentage":  roadmap.ProgressPercentage,
		"status":               roadmap.Status,
		"current_phase_id":     roadmap.CurrentPhaseID,
		"current_milestone_id": roadmap.CurrentMilestoneID,
		"conversation_id":      roadmap.ConversationID,
		"chat_session_id":      roadmap.ChatSessionID,
	}).Error
}

func (r *roadmapRepository) ListProgress(ctx context.Context, roadmapID string) ([]models.MilestoneProgress, error) {
	var rows []models.MilestoneProgress
	err := r.db.WithContext(ctx).
		Where("roadmap_id = ?", roadmapID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *roadmapRepository) GetProgress(ctx context.Context, roadmapID, milestoneID string) (models.MilestoneProgress, error) {
	var row models.MilestoneProgress
	err := r.db.WithContext(ctx).
		Where("roadmap_id = ? AND milestone_id = ?", roadmapID, milestoneID).
		First(&row).Error
	if err != nil {
		return models.MilestoneProgress{}, err
	}
	return row, nil
}

func (r *roadmapRepository) SaveProgress(ctx context.Context, row *models.MilestoneProgress) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *roadmapRepository) CountProgress(ctx context.Context, roadmapID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.MilestoneProgress{}).
		Where("roadmap_id = ?", roadmapID).
		Count(&count).Error
	return count, err
}
