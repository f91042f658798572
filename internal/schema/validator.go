// Package schema holds the per-route JSON Schema table and validates payloads
// against it before any provider is contacted.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/nikhilbhutani/ttsgateway/internal/tts"
)

// Validator checks payloads against the compiled schema table. It is
// immutable after construction and safe for concurrent use.
type Validator struct {
	requests  map[string]*gojsonschema.Schema
	responses map[string]*gojsonschema.Schema
}

// Validated is a payload that passed its route's request schema.
type Validated struct {
	Route   string
	Payload json.RawMessage
}

// Decode unmarshals the validated payload into v.
func (v *Validated) Decode(dst any) error {
	if err := json.Unmarshal(v.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", v.Route, err)
	}
	return nil
}

// NewValidator compiles every schema in the table.
func NewValidator() (*Validator, error) {
	v := &Validator{
		requests:  make(map[string]*gojsonschema.Schema, len(table)),
		responses: make(map[string]*gojsonschema.Schema, len(table)),
	}
	for route, s := range table {
		req, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(s.Request))
		if err != nil {
			return nil, fmt.Errorf("compile request schema for %s: %w", route, err)
		}
		resp, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(s.Response))
		if err != nil {
			return nil, fmt.Errorf("compile response schema for %s: %w", route, err)
		}
		v.requests[route] = req
		v.responses[route] = resp
	}
	return v, nil
}

// MustNewValidator is NewValidator for the static table, which always compiles.
func MustNewValidator() *Validator {
	v, err := NewValidator()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks payload against the request schema of route. An empty
// payload is treated as JSON null. Violations are *tts.Error values of kind
// SchemaViolation carrying the offending field path.
func (v *Validator) Validate(route string, payload []byte) (*Validated, error) {
	s, ok := v.requests[route]
	if !ok {
		return nil, fmt.Errorf("no request schema declared for route %q", route)
	}
	payload = normalize(payload)
	if err := check(s, payload); err != nil {
		return nil, err
	}
	return &Validated{Route: route, Payload: payload}, nil
}

// ValidateResponse checks payload against the response schema of route.
func (v *Validator) ValidateResponse(route string, payload []byte) error {
	s, ok := v.responses[route]
	if !ok {
		return fmt.Errorf("no response schema declared for route %q", route)
	}
	return check(s, normalize(payload))
}

func normalize(payload []byte) []byte {
	if len(bytes.TrimSpace(payload)) == 0 {
		return []byte("null")
	}
	return payload
}

func check(s *gojsonschema.Schema, payload []byte) error {
	if !json.Valid(payload) {
		return tts.SchemaViolation("", "payload is not valid JSON")
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return tts.SchemaViolation("", err.Error())
	}
	if result.Valid() {
		return nil
	}

	errs := result.Errors()
	sort.SliceStable(errs, func(i, j int) bool {
		return fieldPath(errs[i]) < fieldPath(errs[j])
	})
	first := errs[0]
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.String()
	}
	violation := tts.SchemaViolation(fieldPath(first), first.Description())
	if len(msgs) > 1 {
		violation.Message += fmt.Sprintf(" (%d violations: %s)", len(msgs), strings.Join(msgs, "; "))
	}
	return violation
}

// fieldPath turns a gojsonschema error into a dotted path. Required and
// additional-property errors are reported on the parent object, so the
// property name is appended.
func fieldPath(e gojsonschema.ResultError) string {
	field := e.Field()
	if field == "(root)" {
		field = ""
	}
	switch e.Type() {
	case "required", "additional_property_not_allowed":
		if prop, ok := e.Details()["property"].(string); ok {
			if field == "" {
				return prop
			}
			return field + "." + prop
		}
	}
	return field
}
