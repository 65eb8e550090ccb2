package service

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"parlay.app/coordinator/internal/model"
)

// termsSchemaJSON is the closed schema for negotiated commission terms. A
// delta may carry any subset of these fields; unknown fields are rejected so
// a typo can never silently ride along into an agreement.
const termsSchemaJSON = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"buyer_commission_percentage": {"type": "number", "minimum": 0, "maximum": 10},
		"seller_commission_percentage": {"type": "number", "minimum": 0, "maximum": 10},
		"flat_fee_amount": {"type": "number", "minimum": 0},
		"term_months": {"type": "integer", "minimum": 1, "maximum": 24},
		"exclusive": {"type": "boolean"},
		"notes": {"type": "string", "maxLength": 2000}
	}
}`

var (
	termsSchema     *jsonschema.Schema
	termsSchemaOnce sync.Once
	termsSchemaErr  error
)

func compiledTermsSchema() (*jsonschema.Schema, error) {
	termsSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(termsSchemaJSON))
		if err != nil {
			termsSchemaErr = fmt.Errorf("unmarshal terms schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("terms.json", doc); err != nil {
			termsSchemaErr = fmt.Errorf("add terms schema resource: %w", err)
			return
		}
		termsSchema, termsSchemaErr = c.Compile("terms.json")
	})
	return termsSchema, termsSchemaErr
}

// validateTermsDelta checks a proposed delta against the terms schema.
// Returns a ValidationError for empty or malformed deltas.
func validateTermsDelta(delta model.Terms) error {
	if delta.IsEmpty() {
		return NewValidation("terms delta must not be empty")
	}

	schema, err := compiledTermsSchema()
	if err != nil {
		return fmt.Errorf("compiling terms schema: %w", err)
	}

	if err := schema.Validate(map[string]any(delta)); err != nil {
		return NewValidation(fmt.Sprintf("invalid terms delta: %v", err))
	}
	return nil
}
