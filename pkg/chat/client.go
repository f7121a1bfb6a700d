// Package chat implements the HTTP client for the conversation relay service.
// The relay owns message streaming; this API only asks it to open
// conversations that navigation results can point at.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnavailable indicates the relay could not be reached or answered with an error.
var ErrUnavailable = errors.New("chat relay unavailable")

// UpstreamError carries the relay's own status code when it is informative
// enough to pass through to the caller.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("chat relay responded %d: %s", e.StatusCode, e.Message)
}

// Is makes errors.Is(err, ErrUnavailable) hold for upstream failures.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUnavailable
}

// Config defines the relay client options.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Logger  zerolog.Logger
}

// ConversationSeed describes the conversation to open.
type ConversationSeed struct {
	UserID        string `json:"user_id"`
	RoadmapID     string `json:"roadmap_id"`
	MilestoneID   string `json:"milestone_id"`
	Title         string `json:"title"`
	InitialPrompt string `json:"initial_prompt"`
}

// ConversationRef identifies the opened conversation.
type ConversationRef struct {
	ConversationID string `json:"conversation_id"`
	URL            string `json:"url"`
}

// Client talks to the conversation relay over HTTP.
type Client struct {
	cfg        Config
	httpClient *http.Client
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// NewClient constructs a relay client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("chat relay base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tracer:     otel.Tracer("github.com/pathlight/pathlight-go-api/pkg/chat"),
		logger:     cfg.Logger.With().Str("component", "chat_client").Logger(),
	}, nil
}

// CreateConversation asks the relay to open a conversation seeded with the
// contextual prompt and returns its identifiers.
func (c *Client) CreateConversation(parent context.Context, seed ConversationSeed) (ConversationRef, error) {
	ctx, span := c.tracer.Start(parent, "chat.create_conversation", trace.WithAttributes(
		attribute.String("roadmap.id", seed.RoadmapID),
		attribute.String("milestone.id", seed.MilestoneID),
	))
	defer span.End()

	payload, err := json.Marshal(seed)
	if err != nil {
		return ConversationRef{}, fmt.Errorf("encode conversation seed: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/conversations"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return ConversationRef{}, fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ConversationRef{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ConversationRef{}, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		upstream := &UpstreamError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		span.RecordError(upstream)
		span.SetStatus(codes.Error, upstream.Error())
		c.logger.Warn().Int("status", resp.StatusCode).Msg("relay rejected conversation request")
		return ConversationRef{}, upstream
	}

	var ref ConversationRef
	if err := json.Unmarshal(body, &ref); err != nil {
		return ConversationRef{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if ref.ConversationID == "" {
		return ConversationRef{}, fmt.Errorf("%w: relay returned no conversation id", ErrUnavailable)
	}

	return ref, nil
}
