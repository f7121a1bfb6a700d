package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/pathlight/pathlight-go-api/internal/dto"
	"github.com/pathlight/pathlight-go-api/internal/models"
	"github.com/pathlight/pathlight-go-api/internal/observability"
	"github.com/pathlight/pathlight-go-api/internal/progress"
	"github.com/pathlight/pathlight-go-api/internal/repository"
	"github.com/pathlight/pathlight-go-api/pkg/chat"
)

// ConversationCreator abstracts the chat relay collaborator.
type ConversationCreator interface {
	CreateConversation(ctx context.Context, seed chat.ConversationSeed) (chat.ConversationRef, error)
}

// NavigationBridge turns a "start learning" action into a chat session: it
// validates eligibility, reuses or creates the conversation, drives the
// not_started -> in_progress transition and persists the roadmap pointer.
//
// The bridge runs under the caller's per-roadmap lock; it never locks itself.
type NavigationBridge struct {
	roadmaps    repository.RoadmapRepository
	sessions    repository.ChatSessionRepository
	chat        ConversationCreator
	chatBaseURL string
	events      *EventPublisher
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewNavigationBridge constructs the bridge.
func NewNavigationBridge(roadmaps repository.RoadmapRepository, sessions repository.ChatSessionRepository, conversations ConversationCreator, chatBaseURL string, events *EventPublisher, logger zerolog.Logger) *NavigationBridge {
	return &NavigationBridge{
		roadmaps:    roadmaps,
		sessions:    sessions,
		chat:        conversations,
		chatBaseURL: strings.TrimRight(chatBaseURL, "/"),
		events:      events,
		logger:      logger.With().Str("component", "navigation_bridge").Logger(),
		tracer:      otel.Tracer("github.com/pathlight/pathlight-go-api/internal/service/navigation"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// StartLearning resolves a session for the milestone and moves it in progress.
// Repeated calls for a milestone that has not advanced return the same session
// and conversation; the reuse lookup happens before any collaborator call so
// retries stay idempotent.
func (b *NavigationBridge) StartLearning(parent context.Context, actor Actor, roadmap *models.Roadmap, plan progress.Plan, derived progress.DerivedState, phaseID, milestoneID string) (dto.NavigationResult, error) {
	ctx, span := b.tracer.Start(parent, "navigation.start_learning", trace.WithAttributes(
		attribute.String("roadmap.id", roadmap.ID),
		attribute.String("milestone.id", milestoneID),
	))
	defer span.End()

	phase, milestone, found := plan.Find(phaseID, milestoneID)
	if !found {
		return dto.NavigationResult{}, ErrMilestoneNotFound
	}

	effective := derived.Statuses[milestoneID]
	switch effective {
	case models.MilestoneLocked:
		return dto.NavigationResult{}, fmt.Errorf("%w: milestone %q", progress.ErrMilestoneLocked, milestoneID)
	case models.MilestoneCompleted, models.MilestoneSkipped:
		return dto.NavigationResult{}, fmt.Errorf("%w: milestone %q is %s", progress.ErrIllegalTransition, milestoneID, effective)
	case models.MilestoneNotStarted:
		if active := derived.InProgressMilestoneID(); active != "" && active != milestoneID {
			return dto.NavigationResult{}, fmt.Errorf("%w: %q is active", progress.ErrMilestoneBusy, active)
		}
	}

	// Session reuse comes first so a retry after a half-finished call never
	// opens a second conversation.
	session, err := b.sessions.FindByMilestone(ctx, roadmap.ID, milestoneID)
	switch {
	case err == nil:
		observability.NavigationSessions().WithLabelValues("reused").Inc()
	case errors.Is(err, gorm.ErrRecordNotFound):
		session, err = b.openSession(ctx, actor, roadmap, phase, milestone)
		if err != nil {
			return dto.NavigationResult{}, err
		}
		observability.NavigationSessions().WithLabelValues("created").Inc()
	default:
		return dto.NavigationResult{}, err
	}

	row, err := b.progressRow(ctx, actor, roadmap, phase.ID, milestone.ID, effective)
	if err != nil {
		return dto.NavigationResult{}, err
	}

	if row.Status != models.MilestoneInProgress {
		input := progress.TransitionInput{
			Target:            models.MilestoneInProgress,
			ActiveMilestoneID: derived.InProgressMilestoneID(),
			Now:               b.now(),
		}
		from := row.Status
		if err := progress.Apply(&row, milestone, input); err != nil {
			return dto.NavigationResult{}, err
		}
		observability.MilestoneTransitions().WithLabelValues(from, row.Status).Inc()
		if err := b.roadmaps.SaveProgress(ctx, &row); err != nil {
			return dto.NavigationResult{}, err
		}
	}

	roadmap.CurrentPhaseID = phase.ID
	roadmap.CurrentMilestoneID = milestone.ID
	roadmap.ConversationID = session.ConversationID
	roadmap.ChatSessionID = session.ID
	if err := b.roadmaps.SaveAggregates(ctx, roadmap); err != nil {
		return dto.NavigationResult{}, err
	}

	b.events.Publish(ctx, RoadmapEvent{
		Type:        EventMilestoneStarted,
		RoadmapID:   roadmap.ID,
		UserID:      roadmap.UserID,
		MilestoneID: milestone.ID,
		Status:      row.Status,
	})

	b.logger.Info().
		Str("roadmap_id", roadmap.ID).
		Str("milestone_id", milestone.ID).
		Str("session_id", session.ID).
		Msg("start learning resolved")

	return dto.NavigationResult{
		SessionID:        session.ID,
		ConversationID:   session.ConversationID,
		ContextualPrompt: session.ContextualPrompt,
		ChatURL:          b.chatURL(session.ConversationID),
		Milestone:        NewMilestoneView(milestone, row),
	}, nil
}

func (b *NavigationBridge) openSession(ctx context.Context, actor Actor, roadmap *models.Roadmap, phase progress.Phase, milestone progress.Milestone) (models.ChatSession, error) {
	prompt := BuildContextualPrompt(roadmap.Domain, phase, milestone)

	ref, err := b.chat.CreateConversation(ctx, chat.ConversationSeed{
		UserID:        actor.ID,
		RoadmapID:     roadmap.ID,
		MilestoneID:   milestone.ID,
		Title:         milestone.Title,
		InitialPrompt: prompt,
	})
	if err != nil {
		b.logger.Error().Err(err).Str("milestone_id", milestone.ID).Msg("chat relay call failed")
		return models.ChatSession{}, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	session := models.ChatSession{
		ID:               uuid.NewString(),
		UserID:           actor.ID,
		RoadmapID:        roadmap.ID,
		PhaseID:          phase.ID,
		MilestoneID:      milestone.ID,
		ConversationID:   ref.ConversationID,
		ContextualPrompt: prompt,
	}
	if err := b.sessions.Create(ctx, &session); err != nil {
		return models.ChatSession{}, err
	}
	return session, nil
}

func (b *NavigationBridge) progressRow(ctx context.Context, actor Actor, roadmap *models.Roadmap, phaseID, milestoneID, effective string) (models.MilestoneProgress, error) {
	row, err := b.roadmaps.GetProgress(ctx, roadmap.ID, milestoneID)
	if err == nil {
		row.Status = effective
		return row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.MilestoneProgress{}, err
	}

	return models.MilestoneProgress{
		RoadmapID:   roadmap.ID,
		MilestoneID: milestoneID,
		PhaseID:     phaseID,
		UserID:      actor.ID,
		Status:      effective,
	}, nil
}

func (b *NavigationBridge) chatURL(conversationID string) string {
	if b.chatBaseURL != "" {
		return b.chatBaseURL + "/chat/" + conversationID
	}
	return "/chat/" + conversationID
}

// BuildContextualPrompt composes the text seeding the assistant's first turn.
// The output depends only on the milestone definition, so repeated calls for
// the same milestone produce the same prompt.
func BuildContextualPrompt(domain string, phase progress.Phase, milestone progress.Milestone) string {
	builder := strings.Builder{}
	builder.WriteString("The learner just started the ")
	builder.WriteString(string(milestone.Type))
	builder.WriteString(" milestone \"")
	builder.WriteString(milestone.Title)
	builder.WriteString("\" in phase \"")
	builder.WriteString(phase.Title)
	builder.WriteString("\" of their ")
	builder.WriteString(domain)
	builder.WriteString(" roadmap.")

	if milestone.Description != "" {
		builder.WriteString(" Milestone description: ")
		builder.WriteString(milestone.Description)
	}
	if labels := milestone.Topics.Labels(); len(labels) > 0 {
		builder.WriteString(" Topics to cover: ")
		builder.WriteString(strings.Join(labels, ", "))
		builder.WriteString(".")
	}
	if milestone.Type == progress.MilestoneQuiz {
		builder.WriteString(" Guide them through the quiz without revealing answers outright.")
	} else {
		builder.WriteString(" Teach the material step by step and check understanding as you go.")
	}

	return builder.String()
}
