package provider

import "encoding/json"

func marshalInput(input map[string]any) (string, error) {
	if input == nil {
		return "{}", nil
	}
	b, err := json.Marshal(input)
	if err != nil {
		return "{}", err
	}
	return string(b), nil
}

func unmarshalInput(raw string) (map[string]any, error) {
	var m map[string]any
	if raw == "" {
		return map[string]any{}, nil
	}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return map[string]any{}, err
	}
	return m, nil
}
