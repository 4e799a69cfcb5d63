package content

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// trackSchema is the JSON Schema every curriculum track file must satisfy.
// Content records vary loosely by lesson, so the shape is enforced here at
// load time rather than trusted at use time.
const trackSchema = `{
  "type": "object",
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "name": {"type": "string", "minLength": 1},
    "language": {"type": "string", "enum": ["step", "c"]},
    "lessons": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "title": {"type": "string", "minLength": 1},
          "track_id": {"type": "string", "minLength": 1},
          "pages": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "title": {"type": "string"},
                "body": {"type": "string"},
                "example": {"type": "string"},
                "expected_output": {"type": "string"}
              },
              "required": ["title", "body"],
              "additionalProperties": false
            }
          },
          "concept_problems": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "id": {"type": "string", "minLength": 1},
                "prompt": {"type": "string", "minLength": 1},
                "options": {"type": "array", "items": {"type": "string"}, "minItems": 2},
                "answer": {"type": "string", "minLength": 1},
                "hint": {"type": "string"},
                "explanation": {"type": "string"}
              },
              "required": ["id", "prompt", "options", "answer"],
              "additionalProperties": false
            }
          },
          "coding_problems": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "id": {"type": "string", "minLength": 1},
                "prompt": {"type": "string", "minLength": 1},
                "starter_code": {"type": "string"},
                "expected_output": {"type": "string"},
                "hint": {"type": "string"},
                "explanation": {"type": "string"}
              },
              "required": ["id", "prompt", "expected_output"],
              "additionalProperties": false
            }
          }
        },
        "required": ["id", "title", "track_id"],
        "additionalProperties": false
      }
    }
  },
  "required": ["id", "name", "language", "lessons"],
  "additionalProperties": false
}`

var compiledTrackSchema = mustCompileTrackSchema()

func mustCompileTrackSchema() *jsonschema.Schema {
	var parsed any
	if err := json.Unmarshal([]byte(trackSchema), &parsed); err != nil {
		panic(fmt.Sprintf("content: parse track schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema://track.json", parsed); err != nil {
		panic(fmt.Sprintf("content: add track schema: %v", err))
	}
	compiled, err := c.Compile("schema://track.json")
	if err != nil {
		panic(fmt.Sprintf("content: compile track schema: %v", err))
	}
	return compiled
}

// validateTrack checks raw track JSON against the schema.
func validateTrack(raw []byte) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := compiledTrackSchema.Validate(parsed); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}
