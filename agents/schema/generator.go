/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Generator wraps jsonschema.Reflector with project defaults.
type Generator struct {
	reflector jsonschema.Reflector
}

// NewGenerator constructs a generator that takes required fields from jsonschema tags
// and tolerates additional properties.
func NewGenerator() *Generator {
	return &Generator{
		reflector: jsonschema.Reflector{
			RequiredFromJSONSchemaTags: true,
			ExpandedStruct:             true,
			AllowAdditionalProperties:  true,
			DoNotReference:             true,
		},
	}
}

// NewStrictGenerator constructs a generator for strict structured output modes:
// every field without omitempty is required and no additional properties are allowed.
func NewStrictGenerator() *Generator {
	return &Generator{
		reflector: jsonschema.Reflector{
			ExpandedStruct: true,
			DoNotReference: true,
		},
	}
}

// Reflect returns the JSON schema for the provided value.
func (g *Generator) Reflect(v any) *jsonschema.Schema {
	return g.reflector.Reflect(v)
}

// Reflect derives the JSON schema for the provided value using a default generator.
func Reflect(v any) *jsonschema.Schema {
	return NewGenerator().Reflect(v)
}

// ReflectType allocates a zero value of T and reflects it to a schema.
func ReflectType[T any]() *jsonschema.Schema {
	var zero T
	return Reflect(&zero)
}

// ReflectStrict reflects T with the strict generator.
func ReflectStrict[T any]() *jsonschema.Schema {
	var zero T
	return NewStrictGenerator().Reflect(&zero)
}

// ToMap renders a schema as a plain map for SDKs that take untyped schemas.
// The $schema and $id keywords are dropped since providers reject them.
func ToMap(s *jsonschema.Schema) (map[string]any, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling schema: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshaling schema: %w", err)
	}
	delete(m, "$schema")
	delete(m, "$id")
	return m, nil
}
