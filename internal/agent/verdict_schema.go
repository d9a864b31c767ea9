package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/ashureev/socratic-labs/internal/domain"
)

// verdictSchema is the contract for critic output. Fields may be missing or
// null; anything that is present must be a string.
const verdictSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"identified_fallacy": {"type": ["string", "null"]},
		"reasoning": {"type": ["string", "null"]},
		"adversarial_strategy": {"type": ["string", "null"]},
		"thought_experiment_idea": {"type": ["string", "null"]}
	}
}`

// VerdictValidator parses critic output and validates it against verdictSchema.
type VerdictValidator struct {
	schema *jsonschema.Schema
}

// NewVerdictValidator compiles the verdict schema.
func NewVerdictValidator() (*VerdictValidator, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(verdictSchema))
	if err != nil {
		return nil, fmt.Errorf("parse verdict schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("verdict.json", doc); err != nil {
		return nil, fmt.Errorf("add verdict schema resource: %w", err)
	}
	schema, err := compiler.Compile("verdict.json")
	if err != nil {
		return nil, fmt.Errorf("compile verdict schema: %w", err)
	}
	return &VerdictValidator{schema: schema}, nil
}

// Parse decodes raw model text into a verdict. Invalid JSON or a schema
// mismatch yields a *VerdictParseError.
func (v *VerdictValidator) Parse(raw string) (domain.Verdict, error) {
	text := strings.TrimSpace(raw)

	value, err := jsonschema.UnmarshalJSON(strings.NewReader(text))
	if err != nil {
		return domain.Verdict{}, &VerdictParseError{Raw: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if err := v.schema.Validate(value); err != nil {
		return domain.Verdict{}, &VerdictParseError{Raw: raw, Err: fmt.Errorf("schema validation failed: %w", err)}
	}

	var verdict domain.Verdict
	if err := json.Unmarshal([]byte(text), &verdict); err != nil {
		return domain.Verdict{}, &VerdictParseError{Raw: raw, Err: fmt.Errorf("decode verdict: %w", err)}
	}
	return verdict, nil
}
