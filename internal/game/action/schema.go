package action

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed payloads.json
var payloadSchemas []byte

const schemaURL = "mem://fiefdom/payloads.json"

// Validator checks payloads against the per-kind JSON schemas. Kinds without
// a schema accept any object.
type Validator struct {
	schemas map[Kind]*jsonschema.Schema
}

// NewValidator compiles the embedded payload schemas.
//
// Postcondition: Returns a ready Validator or a compile error.
func NewValidator() (*Validator, error) {
	var doc struct {
		Defs map[string]json.RawMessage `json:"$defs"`
	}
	if err := json.Unmarshal(payloadSchemas, &doc); err != nil {
		return nil, fmt.Errorf("decoding payload schemas: %w", err)
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource(schemaURL, bytes.NewReader(payloadSchemas)); err != nil {
		return nil, fmt.Errorf("adding payload schemas: %w", err)
	}

	v := &Validator{schemas: make(map[Kind]*jsonschema.Schema)}
	for _, k := range AllKinds {
		if _, ok := doc.Defs[string(k)]; !ok {
			continue
		}
		s, err := c.Compile(schemaURL + "#/$defs/" + string(k))
		if err != nil {
			return nil, fmt.Errorf("compiling %s schema: %w", k, err)
		}
		v.schemas[k] = s
	}
	return v, nil
}

// Validate checks r's payload against its kind's schema.
func (v *Validator) Validate(r Request) error {
	s, ok := v.schemas[r.Kind]
	if !ok {
		return nil
	}
	// round trip so numbers decode as the validator expects
	data, err := json.Marshal(r.Payload)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", r.Kind, ErrInvalidPayload, err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%s: %w: %w", r.Kind, ErrInvalidPayload, err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%s: %w: %w", r.Kind, ErrInvalidPayload, err)
	}
	return nil
}
