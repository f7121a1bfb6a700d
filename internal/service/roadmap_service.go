package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pathlight/pathlight-go-api/internal/dto"
	"github.com/pathlight/pathlight-go-api/internal/models"
	"github.com/pathlight/pathlight-go-api/internal/observability"
	"github.com/pathlight/pathlight-go-api/internal/progress"
	"github.com/pathlight/pathlight-go-api/internal/repository"
	"github.com/pathlight/pathlight-go-api/pkg/ai"
)

// Errors surfaced by the roadmap service.
var (
	// ErrRoadmapNotFound covers both absent roadmaps and roadmaps owned by
	// someone else; ownership leaks are avoided by answering 404 either way.
	ErrRoadmapNotFound = errors.New("roadmap not found")

	// ErrMilestoneNotFound indicates the phase/milestone pair is not in the plan.
	ErrMilestoneNotFound = errors.New("milestone not found")

	// ErrUpstreamUnavailable wraps generator or chat relay failures.
	ErrUpstreamUnavailable = errors.New("upstream collaborator unavailable")
)

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	ID   string
	Role string
}

// IsAdmin reports whether the actor may use administrative overrides.
func (a Actor) IsAdmin() bool {
	role := strings.ToLower(a.Role)
	return role == "admin" || role == "teacher"
}

// RoadmapService is the façade over generation, progress derivation, milestone
// transitions and the navigation bridge.
type RoadmapService interface {
	Generate(ctx context.Context, actor Actor, req dto.GenerateRoadmapRequest) (dto.GenerateRoadmapResponse, error)
	Get(ctx context.Context, actor Actor, roadmapID string) (dto.RoadmapResponse, error)
	List(ctx context.Context, actor Actor, req dto.RoadmapListRequest) ([]dto.RoadmapSummary, error)
	Delete(ctx context.Context, actor Actor, roadmapID string) error
	UpdateMilestone(ctx context.Context, actor Actor, roadmapID, phaseID, milestoneID string, req dto.UpdateMilestoneRequest) (dto.MilestoneProgressResponse, error)
	StartLearning(ctx context.Context, actor Actor, roadmapID, phaseID, milestoneID string) (dto.NavigationResult, error)
}

type roadmapService struct {
	repo      repository.RoadmapRepository
	generator ai.Generator
	bridge    *NavigationBridge
	events    *EventPublisher
	cache     *redis.Client
	cacheTTL  time.Duration
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	locks     *keyedMutex
	logger    zerolog.Logger
	now       func() time.Time
}

// NewRoadmapService constructs the roadmap service façade.
func NewRoadmapService(repo repository.RoadmapRepository, generator ai.Generator, bridge *NavigationBridge, events *EventPublisher, cache *redis.Client, cacheTTL time.Duration, validate *validator.Validate, logger zerolog.Logger) RoadmapService {
	if cacheTTL <= 0 {
		cacheTTL = 2 * time.Minute
	}
	return &roadmapService{
		repo:      repo,
		generator: generator,
		bridge:    bridge,
		events:    events,
		cache:     cache,
		cacheTTL:  cacheTTL,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		locks:     newKeyedMutex(),
		logger:    logger.With().Str("component", "roadmap_service").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Generate delegates curriculum creation to the generator collaborator and
// persists the result. The roadmap row is written only after the collaborator
// call succeeds, so a failed or cancelled generation leaves no partial state.
func (s *roadmapService) Generate(ctx context.Context, actor Actor, req dto.GenerateRoadmapRequest) (dto.GenerateRoadmapResponse, error) {
	defer s.observe("generate")()

	if err := s.validator.Struct(req); err != nil {
		return dto.GenerateRoadmapResponse{}, err
	}

	history := make([]ai.HistoryMessage, 0, len(req.ConversationHistory))
	for _, turn := range req.ConversationHistory {
		history = append(history, ai.HistoryMessage{Role: turn.Role, Content: turn.Content})
	}

	generated, err := s.generator.Generate(ctx, ai.GenerationInput{
		UserGoal:    req.UserGoal,
		Domain:      req.Domain,
		UserContext: req.UserContext,
		History:     history,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("domain", req.Domain).Msg("roadmap generation failed")
		observability.RoadmapRequests().WithLabelValues("generate", "upstream_error").Inc()
		return dto.GenerateRoadmapResponse{}, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	plan, err := progress.DecodePlan(generated.Plan)
	if err != nil {
		observability.RoadmapRequests().WithLabelValues("generate", "invalid_plan").Inc()
		return dto.GenerateRoadmapResponse{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	roadmap := models.Roadmap{
		ID:              uuid.NewString(),
		UserID:          actor.ID,
		Title:           generated.Title,
		Domain:          string(plan.Domain),
		Status:          models.RoadmapStatusActive,
		PlanRaw:         datatypes.JSON(generated.Plan),
		TotalMilestones: plan.TotalMilestones(),
		ConversationID:  req.ConversationID,
		ChatSessionID:   req.ChatSessionID,
	}

	derived, err := progress.Derive(plan, nil)
	if err != nil {
		return dto.GenerateRoadmapResponse{}, err
	}
	roadmap.CurrentPhaseID = derived.CurrentPhaseID
	roadmap.CurrentMilestoneID = derived.CurrentMilestoneID

	if err := s.repo.Create(ctx, &roadmap); err != nil {
		return dto.GenerateRoadmapResponse{}, err
	}

	s.events.Publish(ctx, RoadmapEvent{
		Type:      EventRoadmapGenerated,
		RoadmapID: roadmap.ID,
		UserID:    roadmap.UserID,
	})
	observability.RoadmapRequests().WithLabelValues("generate", "ok").Inc()
	s.logger.Info().Str("roadmap_id", roadmap.ID).Int("milestones", roadmap.TotalMilestones).Msg("roadmap generated")

	return dto.GenerateRoadmapResponse{
		Status:    "created",
		RoadmapID: roadmap.ID,
		Roadmap:   buildRoadmapResponse(roadmap, plan, nil, derived),
	}, nil
}

// Get returns the full derived roadmap view. Reads are lock-free and may race
// with a mutation; callers refetch after mutating.
func (s *roadmapService) Get(ctx context.Context, actor Actor, roadmapID string) (dto.RoadmapResponse, error) {
	defer s.observe("get")()

	if cached, ok := s.fetchCachedView(ctx, actor.ID, roadmapID); ok {
		observability.RoadmapRequests().WithLabelValues("get", "cache_hit").Inc()
		return cached, nil
	}

	roadmap, plan, rows, derived, err := s.load(ctx, actor, roadmapID)
	if err != nil {
		return dto.RoadmapResponse{}, err
	}

	view := buildRoadmapResponse(roadmap, plan, rows, derived)
	s.writeCachedView(ctx, actor.ID, roadmapID, view)
	observability.RoadmapRequests().WithLabelValues("get", "ok").Inc()

	return view, nil
}

func (s *roadmapService) List(ctx context.Context, actor Actor, req dto.RoadmapListRequest) ([]dto.RoadmapSummary, error) {
	defer s.observe("list")()

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	roadmaps, err := s.repo.List(ctx, actor.ID, repository.RoadmapFilter{
		Status: req.Status,
		Domain: req.Domain,
		Limit:  req.Limit,
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]dto.RoadmapSummary, 0, len(roadmaps))
	for _, roadmap := range roadmaps {
		summaries = append(summaries, dto.RoadmapSummary{
			ID:                  roadmap.ID,
			Title:               roadmap.Title,
			Domain:              roadmap.Domain,
			Status:              roadmap.Status,
			TotalMilestones:     roadmap.TotalMilestones,
			CompletedMilestones: roadmap.CompletedMilestones,
			ProgressPercentage:  roadmap.ProgressPercentage,
			CurrentPhaseID:      roadmap.CurrentPhaseID,
			CurrentMilestoneID:  roadmap.CurrentMilestoneID,
			CreatedAt:           roadmap.CreatedAt,
			UpdatedAt:           roadmap.UpdatedAt,
		})
	}
	observability.RoadmapRequests().WithLabelValues("list", "ok").Inc()

	return summaries, nil
}

// Delete removes the roadmap and cascades its progress rows and sessions.
func (s *roadmapService) Delete(ctx context.Context, actor Actor, roadmapID string) error {
	defer s.observe("delete")()

	unlock := s.locks.Lock(roadmapID)
	defer unlock()

	if err := s.repo.Delete(ctx, roadmapID, actor.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoadmapNotFound
		}
		return err
	}

	s.invalidateView(ctx, actor.ID, roadmapID)
	s.events.Publish(ctx, RoadmapEvent{
		Type:      EventRoadmapDeleted,
		RoadmapID: roadmapID,
		UserID:    actor.ID,
	})
	observability.RoadmapRequests().WithLabelValues("delete", "ok").Inc()
	s.logger.Info().Str("roadmap_id", roadmapID).Msg("roadmap deleted")

	return nil
}

// UpdateMilestone applies a state machine transition and recomputes the
// roadmap aggregates. The whole read-recompute-write runs under the
// per-roadmap lock.
func (s *roadmapService) UpdateMilestone(ctx context.Context, actor Actor, roadmapID, phaseID, milestoneID string, req dto.UpdateMilestoneRequest) (dto.MilestoneProgressResponse, error) {
	defer s.observe("update_milestone")()

	if err := s.validator.Struct(req); err != nil {
		return dto.MilestoneProgressResponse{}, err
	}

	unlock := s.locks.Lock(roadmapID)
	defer unlock()

	roadmap, plan, rows, derived, err := s.load(ctx, actor, roadmapID)
	if err != nil {
		return dto.MilestoneProgressResponse{}, err
	}

	_, milestone, found := plan.Find(phaseID, milestoneID)
	if !found {
		return dto.MilestoneProgressResponse{}, ErrMilestoneNotFound
	}

	row := findOrNewRow(rows, roadmap, phaseID, milestoneID, actor.ID, derived.Statuses[milestoneID])

	input := progress.TransitionInput{
		Target:             req.Status,
		ProgressPercentage: req.ProgressPercentage,
		QuizPassed:         req.QuizPassed,
		QuizScore:          req.QuizScore,
		TimeSpentMinutes:   req.TimeSpentMinutes,
		Metadata:           req.Metadata,
		ActiveMilestoneID:  derived.InProgressMilestoneID(),
		AdminOverride:      req.AdminOverride && actor.IsAdmin(),
		Now:                s.now(),
	}
	if req.Notes != nil {
		clean := strings.TrimSpace(s.sanitizer.Sanitize(*req.Notes))
		input.Notes = &clean
	}

	from := row.Status
	if err := progress.Apply(&row, milestone, input); err != nil {
		observability.RoadmapRequests().WithLabelValues("update_milestone", "rejected").Inc()
		return dto.MilestoneProgressResponse{}, err
	}
	observability.MilestoneTransitions().WithLabelValues(from, row.Status).Inc()

	if err := s.repo.SaveProgress(ctx, &row); err != nil {
		return dto.MilestoneProgressResponse{}, err
	}

	recomputed, err := s.recompute(ctx, &roadmap, plan)
	if err != nil {
		return dto.MilestoneProgressResponse{}, err
	}

	s.invalidateView(ctx, actor.ID, roadmapID)
	s.events.Publish(ctx, RoadmapEvent{
		Type:        EventMilestoneUpdated,
		RoadmapID:   roadmap.ID,
		UserID:      roadmap.UserID,
		MilestoneID: milestoneID,
		Status:      row.Status,
	})
	observability.RoadmapRequests().WithLabelValues("update_milestone", "ok").Inc()

	return dto.MilestoneProgressResponse{
		RoadmapID:           roadmap.ID,
		PhaseID:             phaseID,
		Milestone:           NewMilestoneView(milestone, row),
		CompletedMilestones: recomputed.CompletedMilestones,
		ProgressPercentage:  recomputed.ProgressPercentage,
		RoadmapStatus:       roadmap.Status,
	}, nil
}

// StartLearning validates eligibility, then hands off to the navigation
// bridge under the per-roadmap lock so concurrent calls cannot both pass the
// single-in-progress guard.
func (s *roadmapService) StartLearning(ctx context.Context, actor Actor, roadmapID, phaseID, milestoneID string) (dto.NavigationResult, error) {
	defer s.observe("start_learning")()

	unlock := s.locks.Lock(roadmapID)
	defer unlock()

	roadmap, plan, _, derived, err := s.load(ctx, actor, roadmapID)
	if err != nil {
		return dto.NavigationResult{}, err
	}

	result, err := s.bridge.StartLearning(ctx, actor, &roadmap, plan, derived, phaseID, milestoneID)
	if err != nil {
		observability.RoadmapRequests().WithLabelValues("start_learning", "rejected").Inc()
		return dto.NavigationResult{}, err
	}

	if _, err := s.recompute(ctx, &roadmap, plan); err != nil {
		return dto.NavigationResult{}, err
	}

	s.invalidateView(ctx, actor.ID, roadmapID)
	observability.RoadmapRequests().WithLabelValues("start_learning", "ok").Inc()

	return result, nil
}

// load fetches the roadmap, decodes its plan and derives the effective state.
func (s *roadmapService) load(ctx context.Context, actor Actor, roadmapID string) (models.Roadmap, progress.Plan, []models.MilestoneProgress, progress.DerivedState, error) {
	roadmap, err := s.repo.GetByID(ctx, roadmapID, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Roadmap{}, progress.Plan{}, nil, progress.DerivedState{}, ErrRoadmapNotFound
		}
		return models.Roadmap{}, progress.Plan{}, nil, progress.DerivedState{}, err
	}

	plan, err := progress.DecodePlan(roadmap.PlanRaw)
	if err != nil {
		return models.Roadmap{}, progress.Plan{}, nil, progress.DerivedState{}, err
	}

	rows, err := s.repo.ListProgress(ctx, roadmapID)
	if err != nil {
		return models.Roadmap{}, progress.Plan{}, nil, progress.DerivedState{}, err
	}

	derived, err := progress.Derive(plan, rows)
	if err != nil {
		return models.Roadmap{}, progress.Plan{}, nil, progress.DerivedState{}, err
	}

	return roadmap, plan, rows, derived, nil
}

// recompute re-derives state after a mutation and persists the aggregates so
// the stored row never drifts from the engine's view.
func (s *roadmapService) recompute(ctx context.Context, roadmap *models.Roadmap, plan progress.Plan) (progress.DerivedState, error) {
	rows, err := s.repo.ListProgress(ctx, roadmap.ID)
	if err != nil {
		return progress.DerivedState{}, err
	}

	derived, err := progress.Derive(plan, rows)
	if err != nil {
		return progress.DerivedState{}, err
	}

	roadmap.CompletedMilestones = derived.CompletedMilestones
	roadmap.ProgressPercentage = derived.ProgressPercentage
	roadmap.CurrentPhaseID = derived.CurrentPhaseID
	roadmap.CurrentMilestoneID = derived.CurrentMilestoneID
	if derived.RoadmapStatus() == models.RoadmapStatusCompleted {
		roadmap.Status = models.RoadmapStatusCompleted
	} else if roadmap.Status == models.RoadmapStatusCompleted {
		// A re-opened milestone pulls the roadmap back to active.
		roadmap.Status = models.RoadmapStatusActive
	}

	if err := s.repo.SaveAggregates(ctx, roadmap); err != nil {
		return progress.DerivedState{}, err
	}

	return derived, nil
}

func (s *roadmapService) observe(operation string) func() {
	start := time.Now()
	return func() {
		observability.RoadmapLatency().WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

func (s *roadmapService) viewCacheKey(userID, roadmapID string) string {
	return strings.Join([]string{"roadmap:view:v1", userID, roadmapID}, ":")
}

func (s *roadmapService) fetchCachedView(ctx context.Context, userID, roadmapID string) (dto.RoadmapResponse, bool) {
	if s.cache == nil {
		return dto.RoadmapResponse{}, false
	}
	payload, err := s.cache.Get(ctx, s.viewCacheKey(userID, roadmapID)).Result()
	if err != nil {
		return dto.RoadmapResponse{}, false
	}
	var view dto.RoadmapResponse
	if err := json.Unmarshal([]byte(payload), &view); err != nil {
		s.logger.Warn().Err(err).Msg("failed to decode cached roadmap view")
		return dto.RoadmapResponse{}, false
	}
	return view, true
}

func (s *roadmapService) writeCachedView(ctx context.Context, userID, roadmapID string, view dto.RoadmapResponse) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(view)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode roadmap view for cache")
		return
	}
	if err := s.cache.Set(ctx, s.viewCacheKey(userID, roadmapID), payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache roadmap view")
	}
}

func (s *roadmapService) invalidateView(ctx context.Context, userID, roadmapID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.viewCacheKey(userID, roadmapID)).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate roadmap view cache")
	}
}

func findOrNewRow(rows []models.MilestoneProgress, roadmap models.Roadmap, phaseID, milestoneID, userID, effective string) models.MilestoneProgress {
	for _, row := range rows {
		if row.MilestoneID == milestoneID {
			row.Status = effective
			return row
		}
	}
	return models.MilestoneProgress{
		RoadmapID:   roadmap.ID,
		MilestoneID: milestoneID,
		PhaseID:     phaseID,
		UserID:      userID,
		Status:      effective,
	}
}

// NewMilestoneView merges a milestone definition with its progress row.
func NewMilestoneView(milestone progress.Milestone, row models.MilestoneProgress) dto.MilestoneView {
	return dto.MilestoneView{
		ID:                 milestone.ID,
		Order:              milestone.Order,
		Type:               string(milestone.Type),
		Title:              milestone.Title,
		Description:        milestone.Description,
		EstimatedTime:      milestone.EstimatedTime,
		Topics:             milestone.Topics.Labels(),
		QuizID:             milestone.QuizID,
		Difficulty:         milestone.Difficulty,
		Status:             row.Status,
		ProgressPercentage: row.ProgressPercentage,
		QuizPassed:         row.QuizPassed,
		BestQuizScore:      row.BestQuizScore,
		StartedAt:          row.StartedAt,
		CompletedAt:        row.CompletedAt,
		TimeSpentMinutes:   row.TimeSpentMinutes,
		Notes:              row.Notes,
	}
}

func buildRoadmapResponse(roadmap models.Roadmap, plan progress.Plan, rows []models.MilestoneProgress, derived progress.DerivedState) dto.RoadmapResponse {
	byMilestone := make(map[string]models.MilestoneProgress, len(rows))
	for _, row := range rows {
		byMilestone[row.MilestoneID] = row
	}

	phases := make([]dto.PhaseView, 0, len(plan.Phases))
	for _, phase := range plan.Phases {
		milestones := make([]dto.MilestoneView, 0, len(phase.Milestones))
		for _, milestone := range phase.Milestones {
			row := byMilestone[milestone.ID]
			view := NewMilestoneView(milestone, row)
			view.Status = derived.Statuses[milestone.ID]
			milestones = append(milestones, view)
		}
		phases = append(phases, dto.PhaseView{
			ID:         phase.ID,
			Order:      phase.Order,
			Title:      phase.Title,
			Milestones: milestones,
		})
	}

	return dto.RoadmapResponse{
		ID:                  roadmap.ID,
		UserID:              roadmap.UserID,
		Title:               roadmap.Title,
		Domain:              roadmap.Domain,
		Status:              derivedRoadmapStatus(roadmap, derived),
		TotalMilestones:     derived.TotalMilestones,
		CompletedMilestones: derived.CompletedMilestones,
		ProgressPercentage:  derived.ProgressPercentage,
		CurrentPhaseID:      derived.CurrentPhaseID,
		CurrentMilestoneID:  derived.CurrentMilestoneID,
		ConversationID:      roadmap.ConversationID,
		ChatSessionID:       roadmap.ChatSessionID,
		Phases:              phases,
		CreatedAt:           roadmap.CreatedAt,
		UpdatedAt:           roadmap.UpdatedAt,
	}
}

func derivedRoadmapStatus(roadmap models.Roadmap, derived progress.DerivedState) string {
	if derived.RoadmapStatus() == models.RoadmapStatusCompleted {
		return models.RoadmapStatusCompleted
	}
	if roadmap.Status == models.RoadmapStatusPaused || roadmap.Status == models.RoadmapStatusAbandoned {
		return roadmap.Status
	}
	return models.RoadmapStatusActive
}
