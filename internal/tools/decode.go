package tools

import "encoding/json"

// decode round-trips a loosely-typed input map into a typed struct via JSON,
// the simplest dependency-free way to reuse the same struct both for
// jsonschema-go generation and for argument decoding.
func decode[T any](input map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(input)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}
