package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestEventPublisherPublishesToRedisChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sub := client.Subscribe(context.Background(), "pathlight:roadmap")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	publisher := NewEventPublisher(client, nil, "pathlight", zerolog.Nop())
	publisher.Publish(context.Background(), RoadmapEvent{
		Type:        EventMilestoneStarted,
		RoadmapID:   "r-1",
		UserID:      "user-1",
		MilestoneID: "m1",
		Status:      "in_progress",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var event RoadmapEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
	require.Equal(t, EventMilestoneStarted, event.Type)
	require.Equal(t, "r-1", event.RoadmapID)
	require.Equal(t, "m1", event.MilestoneID)
	require.NotEmpty(t, event.Source)
	require.False(t, event.SentAt.IsZero())
}

func TestEventPublisherNilSinksAreSafe(t *testing.T) {
	publisher := NewEventPublisher(nil, nil, "pathlight", zerolog.Nop())
	publisher.Publish(context.Background(), RoadmapEvent{Type: EventRoadmapDeleted, RoadmapID: "r-1"})

	var nilPublisher *EventPublisher
	nilPublisher.Publish(context.Background(), RoadmapEvent{Type: EventRoadmapDeleted})
}
