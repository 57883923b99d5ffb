/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"encoding/xml"
	"maps"
	"strings"
)

// stringLiteral is a private type alias that only accepts literal strings
type stringLiteral string

// Prompt represents a template with bindable placeholders
type Prompt struct {
	segments []segment
	bindings map[string]binding
}

// NewPrompt creates a new prompt from a template literal and parses bindings
func NewPrompt(template stringLiteral) (*Prompt, error) {
	segs, err := parseTemplate(string(template))
	if err != nil {
		return nil, err
	}
	bindings := make(map[string]binding)
	for _, s := range segs {
		if s.name != "" {
			bindings[s.name] = unbound(s.name)
		}
	}
	return &Prompt{segments: segs, bindings: bindings}, nil
}

// Bindings returns the names of all placeholders found in the template.
func (p *Prompt) Bindings() map[string]struct{} {
	names := make(map[string]struct{}, len(p.bindings))
	for name := range p.bindings {
		names[name] = struct{}{}
	}
	return names
}

// bind returns a copy of p with the named placeholder bound. Segments are
// never modified, so copies share them.
func (p *Prompt) bind(name string, b binding) (*Prompt, error) {
	if err := checkUnbound(p.bindings, name); err != nil {
		return nil, err
	}
	bindings := maps.Clone(p.bindings)
	bindings[name] = b
	return &Prompt{segments: p.segments, bindings: bindings}, nil
}

// BindTrusted binds a string computed by the program itself, such as a number
// or an enumerated label. Model or user text goes through BindElement, BindXML
// or BindYAML.
func (p *Prompt) BindTrusted(name, value string) (*Prompt, error) {
	return p.bind(name, trusted(value))
}

// BindElement binds text wrapped in an XML element called name, escaping it
// so transcripts and bot replies cannot close the element or add markup.
func (p *Prompt) BindElement(name, text string) (*Prompt, error) {
	return p.BindXML(name, element{XMLName: xml.Name{Local: name}, Content: text})
}

// BindXML binds structured data to a placeholder by marshaling it as XML
// The data parameter can be any type that xml.Marshal accepts
// Returns a new Prompt with the binding applied
func (p *Prompt) BindXML(name string, data any) (*Prompt, error) {
	return p.bind(name, xmlValue{data: data})
}

// BindYAML binds structured data to a placeholder by marshaling it as YAML
// The data parameter can be any type that yaml.Marshal accepts
// Returns a new Prompt with the binding applied
func (p *Prompt) BindYAML(name string, data any) (*Prompt, error) {
	return p.bind(name, yamlValue{data: data})
}

// Build constructs the final prompt, returning an error if any bindings are unbound
func (p *Prompt) Build() (string, error) {
	values := make(map[string]string, len(p.bindings))
	for name, b := range p.bindings {
		val, err := b.value()
		if err != nil {
			return "", err
		}
		values[name] = val
	}

	var out strings.Builder
	for _, s := range p.segments {
		if s.name == "" {
			out.WriteString(s.text)
			continue
		}
		out.WriteString(values[s.name])
	}
	return out.String(), nil
}

// Must panics if err is non-nil. It is intended for package-level prompts:
//
//	var p = promptbuilder.Must(promptbuilder.NewPrompt(`Question: {{question}}`))
func Must(p *Prompt, err error) *Prompt {
	if err != nil {
		panic(err)
	}
	return p
}

// MustNewPrompt creates a new prompt from a template literal and panics on error.
func MustNewPrompt(template stringLiteral) *Prompt {
	return Must(NewPrompt(template))
}
