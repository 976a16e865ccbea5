package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tenx-dev/core/internal/types"
)

// EditInput is the edit tool's typed parameter shape.
type EditInput struct {
	Path      string `json:"path" jsonschema:"the file path to edit"`
	OldString string `json:"old_string" jsonschema:"the exact text to replace; must match exactly once"`
	NewString string `json:"new_string" jsonschema:"the replacement text"`
}

type EditTool struct{ schema json.RawMessage }

func NewEditTool() *EditTool { return &EditTool{schema: schemaFor[EditInput]()} }

func (t *EditTool) Name() string            { return "edit" }
func (t *EditTool) Description() string     { return "Replace exactly one occurrence of old_string with new_string in a file." }
func (t *EditTool) Schema() json.RawMessage { return t.schema }

func (t *EditTool) Execute(ctx context.Context, input map[string]any) (types.Result, error) {
	in, err := decode[EditInput](input)
	if err != nil {
		return types.Result{}, err
	}
	data, err := os.ReadFile(in.Path)
	if err != nil {
		return types.Result{OK: false, Error: err.Error()}, nil
	}
	content := string(data)
	n := strings.Count(content, in.OldString)
	if n == 0 {
		return types.Result{OK: false, Error: "old_string not found"}, nil
	}
	if n > 1 {
		return types.Result{OK: false, Error: fmt.Sprintf("old_string found %d times, must be unique", n)}, nil
	}

	before := strings.Count(content, "\n")
	updated := strings.Replace(content, in.OldString, in.NewString, 1)
	after := strings.Count(updated, "\n")

	if err := os.WriteFile(in.Path, []byte(updated), 0o644); err != nil {
		return types.Result{OK: false, Error: err.Error()}, nil
	}
	delta := after - before
	sign := "+"
	if delta < 0 {
		sign = ""
	}
	return types.Result{OK: true, Output: fmt.Sprintf("edited %s (%s%d lines)", in.Path, sign, delta)}, nil
}
