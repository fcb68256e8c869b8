package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ResultSchema is the JSON schema of the ExtractionResult wire form
const ResultSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["vendor", "invoiceNumber", "dates", "amounts", "totals"],
  "properties": {
    "vendor": {"type": ["string", "null"]},
    "invoiceNumber": {"type": ["string", "null"]},
    "dates": {
      "type": "object",
      "required": ["issue", "due", "delivery", "other"],
      "properties": {
        "issue": {"$ref": "#/definitions/date"},
        "due": {"$ref": "#/definitions/date"},
        "delivery": {"$ref": "#/definitions/date"},
        "other": {"type": "array", "items": {"$ref": "#/definitions/date"}}
      }
    },
    "amounts": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["amount"],
        "properties": {
          "amount": {"type": "number"},
          "currency": {"type": ["string", "null"]},
          "description": {"type": ["string", "null"]},
          "quantity": {"type": ["string", "null"]},
          "label": {"enum": ["subtotal", "tax", "total_due", null]}
        }
      }
    },
    "totals": {
      "type": "object",
      "required": ["subtotal", "tax", "totalDue"],
      "properties": {
        "subtotal": {"type": ["number", "null"]},
        "tax": {"type": ["number", "null"]},
        "totalDue": {"type": ["number", "null"]}
      }
    }
  },
  "definitions": {
    "date": {
      "oneOf": [
        {"type": "null"},
        {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"}
      ]
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("result.json", bytes.NewReader([]byte(ResultSchema))); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("result.json")
	})
	return schema, schemaErr
}

// ValidateResultJSON checks that data is a well-formed ExtractionResult
// document. Used for user-supplied corrections.
func ValidateResultJSON(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return NewValidationError("document", nil, "json", err.Error())
	}
	if err := s.Validate(v); err != nil {
		return NewValidationError("document", nil, "schema", err.Error())
	}
	return nil
}

// ParseCorrection validates data and decodes it into a result
func ParseCorrection(data []byte) (*ExtractionResult, error) {
	if err := ValidateResultJSON(data); err != nil {
		return nil, err
	}
	var res ExtractionResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, NewValidationError("document", nil, "decode", err.Error())
	}
	return &res, nil
}
