package llm

import (
	"encoding/json"
	"fmt"

	"sopflow/internal/types"
	"sopflow/internal/util/jsonutil"
)

// Normalize extracts the JSON payload from raw model text (the first ```json
// fenced block, else the whole text) and decodes it into v. It never tries
// to salvage partial output.
func Normalize(raw string, v any) error {
	return decode(raw, jsonutil.ExtractJSON(raw), v)
}

// DecodeStrict decodes raw as-is, for providers that enforce a response
// schema and return bare JSON.
func DecodeStrict(raw string, v any) error {
	return decode(raw, raw, v)
}

func decode(raw, payload string, v any) error {
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return &ParseError{Raw: raw, Err: err}
	}
	return nil
}

// DecodeFlow normalizes raw into a validated process flow.
func DecodeFlow(raw string) (*types.ProcessFlow, error) {
	return decodeFlow(raw, Normalize)
}

// DecodeRefinement normalizes raw into a validated refinement envelope.
func DecodeRefinement(raw string) (*Refinement, error) {
	return decodeRefinement(raw, Normalize)
}

type decoder func(raw string, v any) error

func decodeFlow(raw string, dec decoder) (*types.ProcessFlow, error) {
	var flow types.ProcessFlow
	if err := dec(raw, &flow); err != nil {
		return nil, err
	}
	if err := flow.Validate(); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	return &flow, nil
}

func decodeRefinement(raw string, dec decoder) (*Refinement, error) {
	var out Refinement
	if err := dec(raw, &out); err != nil {
		return nil, err
	}
	if out.UpdatedFlow == nil {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("updatedFlow is missing")}
	}
	if err := out.UpdatedFlow.Validate(); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	return &out, nil
}
