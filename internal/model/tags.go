package model

import (
	"encoding/json"
	"fmt"
)

// Tags is the client-side form of a transaction's tag list.
//
// The server never stores tags as a native array: the wire value is either
// null or a string containing a JSON-encoded array of strings. Tags transcodes
// at that boundary, so the rest of the client works with a plain []string.
type Tags []string

// MarshalJSON encodes the tag list as a JSON string holding a JSON array, or
// null when unset.
func (t Tags) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("null"), nil
	}
	inner, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(inner))
}

// UnmarshalJSON decodes null, an empty string, or a string holding a JSON
// array of strings. Anything else is a contract violation.
func (t *Tags) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = nil
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("tags must be a JSON-encoded string: %w", err)
	}
	if raw == "" {
		*t = nil
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return fmt.Errorf("tags string is not a JSON string array: %w", err)
	}
	*t = tags
	return nil
}

// Clone returns an independent copy of the tag list.
func (t Tags) Clone() Tags {
	if t == nil {
		return nil
	}
	out := make(Tags, len(t))
	copy(out, t)
	return out
}
