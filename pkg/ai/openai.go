package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pathlight",
		Subsystem: "ai",
		Name:      "generation_duration_seconds",
		Help:      "Duration of AI roadmap generation requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pathlight",
		Subsystem: "ai",
		Name:      "generation_failures_total",
		Help:      "Number of AI roadmap generation failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI generator.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIGenerator implements Generator against the OpenAI chat completion API.
type OpenAIGenerator struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIGenerator builds a new generator using the provided configuration.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	tracer := otel.Tracer("github.com/pathlight/pathlight-go-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIGenerator{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// Generate sends the roadmap request to OpenAI and parses the response.
func (g *OpenAIGenerator) Generate(parent context.Context, input GenerationInput) (GeneratedRoadmap, error) {
	ctx, span := g.tracer.Start(parent, "openai.generate", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
		attribute.String("roadmap.domain", input.Domain),
	))
	defer span.End()

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: generatorSystemPrompt(),
		},
	}
	for _, turn := range input.History {
		role := openai.ChatMessageRoleUser
		if strings.EqualFold(turn.Role, "assistant") {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: buildGenerationPrompt(input),
	})

	request := openai.ChatCompletionRequest{
		Model:          g.cfg.Model,
		MaxTokens:      g.cfg.MaxTokens,
		Temperature:    g.cfg.Temperature,
		Messages:       messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(g.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues(g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return GeneratedRoadmap{}, fmt.Errorf("openai generate: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		aiFailures.WithLabelValues(g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return GeneratedRoadmap{}, err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	roadmap, err := parseGenerationResponse(content)
	if err != nil {
		aiFailures.WithLabelValues(g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return GeneratedRoadmap{}, err
	}

	roadmap.Raw = map[string]interface{}{
		"usage": resp.Usage,
	}

	return roadmap, nil
}

func generatorSystemPrompt() string {
	return "You are a curriculum planner. Respond with a JSON object containing title and plan. " +
		"The plan holds a domain (programming, math or general) and an ordered phases array; each phase has " +
		"id, order starting at 1, title, and an ordered milestones array of lessons and quizzes with id, order, " +
		"type, title, description, estimated_time in minutes, and optional topics, quiz_id and difficulty. " +
		"Keep phases between 2 and 6 and milestones between 2 and 8 per phase."
}

func buildGenerationPrompt(input GenerationInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Learning goal\n")
	builder.WriteString(input.UserGoal)
	builder.WriteString("\n\n## Domain\n")
	builder.WriteString(input.Domain)
	if input.UserContext != "" {
		builder.WriteString("\n\n## Learner context\n")
		builder.WriteString(input.UserContext)
	}
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}

func parseGenerationResponse(content string) (GeneratedRoadmap, error) {
	var payload interface{}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return GeneratedRoadmap{}, fmt.Errorf("parse generation json: %w", err)
	}

	if err := validateRoadmapPayload(payload); err != nil {
		return GeneratedRoadmap{}, err
	}

	var roadmap GeneratedRoadmap
	if err := json.Unmarshal([]byte(content), &roadmap); err != nil {
		return GeneratedRoadmap{}, fmt.Errorf("parse generation json: %w", err)
	}

	return roadmap, nil
}
