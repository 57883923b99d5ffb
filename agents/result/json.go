/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrNoJSON is returned when a response holds no value decodable into the target type.
var ErrNoJSON = errors.New("no JSON value found in response")

// errNoKnownField rejects an object that shares no key with the target struct.
var errNoKnownField = errors.New("object has none of the expected fields")

// maxCandidates bounds how many value starts Decode tries before giving up.
const maxCandidates = 64

// ExtractJSON returns the content of the first ```json fenced block in the response,
// or the trimmed response with any surrounding fences removed when there is none.
func ExtractJSON(responseText string) string {
	responseText = strings.ReplaceAll(responseText, "\r\n", "\n")

	var buf bytes.Buffer
	inBlock, found := false, false
	for _, line := range strings.Split(responseText, "\n") {
		trimmed := strings.TrimSpace(line)
		if !inBlock && trimmed == "```json" {
			inBlock, found = true, true
			continue
		}
		if inBlock && trimmed == "```" {
			break
		}
		if inBlock {
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(line)
		}
	}
	if found {
		return strings.TrimSpace(buf.String())
	}

	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	return strings.TrimSpace(responseText)
}

// Decode extracts the first JSON value in responseText that decodes into T.
//
// The fenced or trimmed content is tried first. After that every '{' or '[' is
// treated as a candidate value start and streamed through a json.Decoder, which
// stops at the end of the first complete value and ignores trailing prose. Syntax
// and type errors move the scan on to the next candidate, and so does an object
// decoding into a struct when none of its keys name a field of that struct.
// Wrapped replies such as {"evaluation": {...}} therefore resolve to the inner
// value rather than to a zero T.
func Decode[T any](responseText string) (T, error) {
	var zero T

	content := ExtractJSON(responseText)
	if content == "" {
		return zero, fmt.Errorf("%w: empty response", ErrNoJSON)
	}

	var lastErr error
	tried := 0
	for start := 0; start < len(content) && tried < maxCandidates; {
		off := strings.IndexAny(content[start:], "{[")
		if off < 0 {
			break
		}
		start += off
		tried++

		v, err := decodeAt[T](content[start:])
		if err == nil {
			return v, nil
		}
		lastErr = err
		start++
	}

	if lastErr == nil {
		return zero, ErrNoJSON
	}
	return zero, fmt.Errorf("%w: %w", ErrNoJSON, lastErr)
}

func decodeAt[T any](s string) (T, error) {
	var zero T
	var raw json.RawMessage
	if err := json.NewDecoder(strings.NewReader(s)).Decode(&raw); err != nil {
		return zero, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, err
	}
	if err := checkKnownFields(raw, reflect.TypeFor[T]()); err != nil {
		return zero, err
	}
	return v, nil
}

// checkKnownFields fails when raw is an object and t is a struct whose JSON
// fields include none of raw's keys.
func checkKnownFields(raw json.RawMessage, t reflect.Type) error {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	known := map[string]bool{}
	jsonFields(t, known)
	if len(known) == 0 {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return err
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		if known[strings.ToLower(k)] {
			return nil
		}
		keys = append(keys, k)
	}
	return fmt.Errorf("%w: got keys %q for %s", errNoKnownField, keys, t)
}

// jsonFields collects the lower-cased JSON names of t's fields, following
// untagged embedded structs the way encoding/json does.
func jsonFields(t reflect.Type, into map[string]bool) {
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				jsonFields(ft, into)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		into[strings.ToLower(name)] = true
	}
}
