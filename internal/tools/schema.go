package tools

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// schemaFor generates a tool's wire parameter schema from a typed Go input
// struct via jsonschema-go's reflection-based generator, rather than
// hand-assembling `map[string]any` schema literals per tool. This promotes
// google/jsonschema-go from an indirect (MCP-SDK-only) dependency in the
// reference to direct use.
func schemaFor[T any]() json.RawMessage {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		panic("tools: schema generation failed: " + err.Error())
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		panic("tools: schema marshal failed: " + err.Error())
	}
	return raw
}
