/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"encoding/xml"
	"fmt"

	"gopkg.in/yaml.v3"
)

// binding produces the text substituted for one placeholder.
type binding interface {
	value() (string, error)
}

// unbound marks a placeholder nothing has been bound to yet.
type unbound string

func (u unbound) value() (string, error) {
	return "", fmt.Errorf("unbound placeholder: %s", string(u))
}

// trusted is program-computed text inserted verbatim.
type trusted string

func (t trusted) value() (string, error) { return string(t), nil }

// element is a single XML element holding escaped text, the shape used for
// questions, responses and transcripts.
type element struct {
	XMLName xml.Name
	Content string `xml:",chardata"`
}

// xmlValue escapes arbitrary data as XML.
type xmlValue struct{ data any }

func (x xmlValue) value() (string, error) {
	b, err := xml.MarshalIndent(x.data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling XML: %w", err)
	}
	return string(b), nil
}

// yamlValue renders structured data, such as conversation history, as YAML.
type yamlValue struct{ data any }

func (y yamlValue) value() (string, error) {
	b, err := yaml.Marshal(y.data)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return string(b), nil
}

// checkUnbound fails unless name is a placeholder of the template that is
// still unbound.
func checkUnbound(bindings map[string]binding, name string) error {
	b, ok := bindings[name]
	if !ok {
		return fmt.Errorf("binding %q not found in template", name)
	}
	if _, ok := b.(unbound); !ok {
		return fmt.Errorf("binding %q already bound", name)
	}
	return nil
}
