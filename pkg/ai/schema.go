package ai

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// roadmapSchema constrains the generator output before anything is persisted.
// Ordering invariants (dense, 1-based order values) are checked again by the
// progress engine; the schema catches structural garbage early.
const roadmapSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["title", "plan"],
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "plan": {
      "type": "object",
      "required": ["domain", "phases"],
      "properties": {
        "domain": {"enum": ["programming", "math", "general"]},
        "phases": {
          "type": "array",
          "minItems": 1,
          "items": {
            "type": "object",
            "required": ["id", "order", "title", "milestones"],
            "properties": {
              "id": {"type": "string", "minLength": 1},
              "order": {"type": "integer", "minimum": 1},
              "title": {"type": "string", "minLength": 1},
              "milestones": {
                "type": "array",
                "minItems": 1,
                "items": {
                  "type": "object",
                  "required": ["id", "order", "type", "title"],
                  "properties": {
                    "id": {"type": "string", "minLength": 1},
                    "order": {"type": "integer", "minimum": 1},
                    "type": {"enum": ["lesson", "quiz"]},
                    "title": {"type": "string", "minLength": 1},
                    "description": {"type": "string"},
                    "estimated_time": {"type": "integer", "minimum": 0},
                    "quiz_id": {"type": "string"},
                    "difficulty": {"type": "string"}
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

var compiledRoadmapSchema = jsonschema.MustCompileString("roadmap.json", roadmapSchema)

func validateRoadmapPayload(payload interface{}) error {
	if err := compiledRoadmapSchema.Validate(payload); err != nil {
		return fmt.Errorf("generated roadmap failed schema validation: %w", err)
	}
	return nil
}
