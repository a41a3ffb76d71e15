package extractor

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Per-kind tagged schemas. Items that fail validation are rejected
// individually; one bad item never poisons the batch.
var (
	factSchema = mustCompile(`{
		"type": "object",
		"required": ["key", "value", "confidence"],
		"properties": {
			"key": {"type": "string", "minLength": 1},
			"value": {"type": "string"},
			"confidence": {"type": "number", "minimum": 0, "maximum": 1},
			"reason": {"type": "string"}
		}
	}`)

	episodeSchema = mustCompile(`{
		"type": "object",
		"required": ["summary", "importance"],
		"properties": {
			"summary": {"type": "string", "minLength": 1},
			"importance": {"type": "number", "minimum": 0, "maximum": 1},
			"tags": {"type": "array", "items": {"type": "string"}}
		}
	}`)

	entitySchema = mustCompile(`{
		"type": "object",
		"required": ["name", "type", "confidence"],
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"type": {"type": "string", "minLength": 1},
			"confidence": {"type": "number", "minimum": 0, "maximum": 1},
			"aliases": {"type": "array", "items": {"type": "string"}}
		}
	}`)

	tripleSchema = mustCompile(`{
		"type": "object",
		"required": ["subject", "predicate", "object", "confidence"],
		"properties": {
			"subject": {"type": "string", "minLength": 1},
			"predicate": {"type": "string", "minLength": 1},
			"object": {"type": "string", "minLength": 1},
			"confidence": {"type": "number", "minimum": 0, "maximum": 1},
			"time": {"type": "string"}
		}
	}`)
)

func mustCompile(schema string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("invalid extraction schema: %v", err))
	}
	return s
}

// validateItem checks raw against the schema and unmarshals into dst.
func validateItem(schema *gojsonschema.Schema, raw json.RawMessage, dst any) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validation execution failed: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("schema violation: %s", result.Errors()[0].String())
	}
	return json.Unmarshal(raw, dst)
}
