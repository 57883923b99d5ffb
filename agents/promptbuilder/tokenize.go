/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// segment is a run of template text, or a placeholder when name is set.
type segment struct {
	text string
	name string
}

// parseTemplate splits template into text and placeholder segments. Bound
// values are never parsed, so a value containing {{ stays literal.
func parseTemplate(template string) ([]segment, error) {
	var segs []segment
	for template != "" {
		start := strings.Index(template, "{{")
		if start < 0 {
			segs = append(segs, segment{text: template})
			break
		}
		if start > 0 {
			segs = append(segs, segment{text: template[:start]})
		}
		rest := template[start+2:]
		end := strings.Index(rest, "}}")
		if end < 0 {
			return nil, errors.New("unclosed binding: missing '}}'")
		}
		name := strings.TrimSpace(rest[:end])
		if !isIdentifier(name) {
			return nil, fmt.Errorf("invalid binding identifier %q", name)
		}
		segs = append(segs, segment{name: name})
		template = rest[end+2:]
	}
	return segs, nil
}

// isIdentifier reports whether s is a letter followed by letters, digits or
// underscores.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == '_'):
		default:
			return false
		}
	}
	return true
}
