package stage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema checks a stage's decoded output before it reaches the orchestrator.
type Schema struct {
	schema *jsonschema.Schema
}

// CompileSchema compiles a JSON schema given as raw JSON.
func CompileSchema(name string, raw []byte) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	url := name + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	s, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{schema: s}, nil
}

// CompileSchemaMap compiles a schema decoded from YAML or JSON into a map.
func CompileSchemaMap(name string, m map[string]any) (*Schema, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", name, err)
	}
	return CompileSchema(name, b)
}

// Validate checks data, a JSON document, against the schema.
func (s *Schema) Validate(data []byte) error {
	if s == nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if err := s.schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	return nil
}

const candidatesSchema = `{
  "type": "object",
  "required": ["post_process"],
  "properties": {
    "post_process": {
      "type": "object",
      "required": ["valid_generation_results", "invalid_generation_results"],
      "properties": {
        "valid_generation_results": {
          "type": ["array", "null"],
          "items": {"type": "object", "required": ["sql"], "properties": {"sql": {"type": "string"}}}
        },
        "invalid_generation_results": {
          "type": ["array", "null"],
          "items": {
            "type": "object",
            "required": ["type"],
            "properties": {"sql": {"type": "string"}, "type": {"type": "string"}, "error": {"type": "string"}}
          }
        }
      }
    }
  }
}`

// DefaultSchemas are the output contracts of the built-in stages.
var DefaultSchemas = map[string]string{
	Retrieval: `{
  "type": "object",
  "properties": {
    "construct_retrieval_results": {
      "type": "object",
      "properties": {"retrieval_results": {"type": ["array", "null"]}}
    }
  }
}`,
	Generation: candidatesSchema,
	Correction: candidatesSchema,
	Summary: `{
  "type": "object",
  "required": ["post_process"],
  "properties": {
    "post_process": {
      "type": "object",
      "required": ["sql_summary_results"],
      "properties": {
        "sql_summary_results": {
          "type": ["array", "null"],
          "items": {
            "type": "object",
            "required": ["sql", "summary"],
            "properties": {"sql": {"type": "string"}, "summary": {"type": "string"}}
          }
        }
      }
    }
  }
}`,
}
