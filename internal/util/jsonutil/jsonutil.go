package jsonutil

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// MarshalNoEscape encodes v into JSON without escaping <, >, & into \u003c, etc.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Remove trailing newline from json.Encoder.Encode
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalNoEscapeIndent encodes v into indented JSON without HTML escaping.
// Prompts embed flows this way so role names like "R&D" reach the model as written.
func MarshalNoEscapeIndent(v any, prefix, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(prefix, indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// IndentString is MarshalNoEscapeIndent with two-space indentation, returning
// "null" when v cannot be encoded.
func IndentString(v any) string {
	b, err := MarshalNoEscapeIndent(v, "", "  ")
	if err != nil {
		return "null"
	}
	return string(b)
}

var reFencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// ExtractJSON returns the body of the first ```json fenced block in text, or
// the whole text trimmed when no such block exists.
func ExtractJSON(text string) string {
	if m := reFencedJSON.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return strings.TrimSpace(text)
}
