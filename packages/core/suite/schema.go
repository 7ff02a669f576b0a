package suite

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["sets"],
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string"},
    "sets": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "tests"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "doc": {"type": "string"},
          "tests": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["doc", "run"],
              "additionalProperties": false,
              "properties": {
                "doc": {"type": "string"},
                "run": {"type": "string", "minLength": 1},
                "expect_code": {"type": "integer", "minimum": 0, "maximum": 255},
                "timeout": {"type": "string", "pattern": "^([0-9]+(\\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$"},
                "dir": {"type": "string"},
                "env": {"type": "object", "additionalProperties": {"type": "string"}}
              }
            }
          }
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(schemaJSON)

// ValidationError lists every schema violation found in a suite file
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid suite: " + strings.Join(e.Problems, "; ")
}

// Validate checks suite data against the suite schema
func Validate(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing suite: %w", err)
	}
	if doc == nil {
		return &ValidationError{Problems: []string{"suite file is empty"}}
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validating suite: %w", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return &ValidationError{Problems: problems}
}
