package ai

import (
	"context"
	"encoding/json"
)

// HistoryMessage is one prior turn of the conversation that led to the
// generation request.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationInput contains everything the model needs to produce a roadmap.
type GenerationInput struct {
	UserGoal    string
	Domain      string
	UserContext string
	History     []HistoryMessage
}

// GeneratedRoadmap is the structured curriculum returned by the generator.
// Plan is schema-validated JSON holding the phase/milestone tree; decoding it
// into domain types is the caller's concern.
type GeneratedRoadmap struct {
	Title string                 `json:"title"`
	Plan  json.RawMessage        `json:"plan"`
	Raw   map[string]interface{} `json:"raw,omitempty"`
}

// Generator describes an AI model capable of producing learning roadmaps.
type Generator interface {
	Generate(ctx context.Context, input GenerationInput) (GeneratedRoadmap, error)
}
