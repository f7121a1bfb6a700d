package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Roadmap lifecycle event types fanned out to downstream consumers
// (dashboard refresh, achievements, notifications).
const (
	EventRoadmapGenerated = "roadmap.generated"
	EventRoadmapDeleted   = "roadmap.deleted"
	EventMilestoneUpdated = "milestone.updated"
	EventMilestoneStarted = "milestone.started"
)

// RoadmapEvent is the payload published on every roadmap mutation.
type RoadmapEvent struct {
	Source      string    `json:"source"`
	Type        string    `json:"type"`
	RoadmapID   string    `json:"roadmap_id"`
	UserID      string    `json:"user_id"`
	MilestoneID string    `json:"milestone_id,omitempty"`
	Status      string    `json:"status,omitempty"`
	SentAt      time.Time `json:"sent_at"`
}

// EventPublisher fans roadmap events out over redis pub/sub and NATS. Both
// sinks are optional; a nil client disables that sink.
type EventPublisher struct {
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	nodeID      string
}

// NewEventPublisher constructs a publisher rooted at the given channel base.
func NewEventPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) *EventPublisher {
	streamChannel := ""
	natsSubject := ""
	if channelBase != "" {
		streamChannel = channelBase + ":roadmap"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".roadmap"
	}

	return &EventPublisher{
		redis:       redisClient,
		redisStream: streamChannel,
		nats:        natsConn,
		natsSubject: natsSubject,
		logger:      logger.With().Str("component", "event_publisher").Logger(),
		nodeID:      uuid.NewString(),
	}
}

// Publish sends the event to all configured sinks. Failures are logged, never
// propagated: event fan-out is best effort and must not fail the mutation.
func (p *EventPublisher) Publish(ctx context.Context, event RoadmapEvent) {
	if p == nil {
		return
	}

	event.Source = p.nodeID
	if event.SentAt.IsZero() {
		event.SentAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to marshal roadmap event")
		return
	}

	if p.redis != nil && p.redisStream != "" {
		if err := p.redis.Publish(ctx, p.redisStream, payload).Err(); err != nil {
			p.logger.Warn().Err(err).Str("event", event.Type).Msg("failed to publish roadmap event to redis")
		}
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			p.logger.Warn().Err(err).Str("event", event.Type).Msg("failed to publish roadmap event to nats")
		}
	}
}
