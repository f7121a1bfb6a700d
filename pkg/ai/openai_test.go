package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const validGenerationJSON = `{
	"title": "Backend Fundamentals",
	"plan": {
		"domain": "programming",
		"phases": [
			{
				"id": "phase-1",
				"order": 1,
				"title": "Foundations",
				"milestones": [
					{"id": "m1", "order": 1, "type": "lesson", "title": "Variables", "estimated_time": 45},
					{"id": "m2", "order": 2, "type": "quiz", "title": "Basics Quiz", "quiz_id": "quiz-1"}
				]
			}
		]
	}
}`

func TestParseGenerationResponseValid(t *testing.T) {
	roadmap, err := parseGenerationResponse(validGenerationJSON)
	require.NoError(t, err)
	require.Equal(t, "Backend Fundamentals", roadmap.Title)
	require.NotEmpty(t, roadmap.Plan)
	require.Contains(t, string(roadmap.Plan), `"phases"`)
}

func TestParseGenerationResponseRejectsMalformedJSON(t *testing.T) {
	_, err := parseGenerationResponse(`not json at all`)
	require.Error(t, err)
}

func TestParseGenerationResponseRejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"missing title":   `{"plan": {"domain": "programming", "phases": [{"id": "p", "order": 1, "title": "P", "milestones": [{"id": "m", "order": 1, "type": "lesson", "title": "M"}]}]}}`,
		"empty phases":    `{"title": "T", "plan": {"domain": "programming", "phases": []}}`,
		"unknown domain":  `{"title": "T", "plan": {"domain": "cooking", "phases": [{"id": "p", "order": 1, "title": "P", "milestones": [{"id": "m", "order": 1, "type": "lesson", "title": "M"}]}]}}`,
		"bad type":        strings.Replace(validGenerationJSON, `"type": "quiz"`, `"type": "video"`, 1),
		"zero order":      strings.Replace(validGenerationJSON, `"order": 1, "type": "lesson"`, `"order": 0, "type": "lesson"`, 1),
		"milestone no id": strings.Replace(validGenerationJSON, `"id": "m1", `, ``, 1),
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseGenerationResponse(payload)
			require.Error(t, err)
		})
	}
}

func TestBuildGenerationPromptIncludesContext(t *testing.T) {
	prompt := buildGenerationPrompt(GenerationInput{
		UserGoal:    "become a backend engineer",
		Domain:      "programming",
		UserContext: "knows python basics",
	})
	require.Contains(t, prompt, "become a backend engineer")
	require.Contains(t, prompt, "programming")
	require.Contains(t, prompt, "knows python basics")

	bare := buildGenerationPrompt(GenerationInput{UserGoal: "learn algebra", Domain: "math"})
	require.NotContains(t, bare, "Learner context")
}

func TestNewOpenAIGeneratorRequiresKey(t *testing.T) {
	_, err := NewOpenAIGenerator(OpenAIConfig{})
	require.Error(t, err)

	gen, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "sk-test"})
	require.NoError(t, err)
	require.Equal(t, "gpt-4o-mini", gen.cfg.Model)
	require.Equal(t, 4096, gen.cfg.MaxTokens)
}
