package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tenx-dev/core/internal/types"
)

// WriteInput is the write tool's typed parameter shape.
type WriteInput struct {
	Path    string `json:"path" jsonschema:"the file path to write"`
	Content string `json:"content" jsonschema:"the full file content to write"`
}

type WriteTool struct{ schema json.RawMessage }

func NewWriteTool() *WriteTool { return &WriteTool{schema: schemaFor[WriteInput]()} }

func (t *WriteTool) Name() string            { return "write" }
func (t *WriteTool) Description() string     { return "Overwrite a file, creating parent directories as needed." }
func (t *WriteTool) Schema() json.RawMessage { return t.schema }

func (t *WriteTool) Execute(ctx context.Context, input map[string]any) (types.Result, error) {
	in, err := decode[WriteInput](input)
	if err != nil {
		return types.Result{}, err
	}
	if dir := filepath.Dir(in.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return types.Result{OK: false, Error: err.Error()}, nil
		}
	}
	if err := os.WriteFile(in.Path, []byte(in.Content), 0o644); err != nil {
		return types.Result{OK: false, Error: err.Error()}, nil
	}
	lines := 0
	if in.Content != "" {
		lines = strings.Count(in.Content, "\n") + 1
	}
	return types.Result{OK: true, Output: fmt.Sprintf("wrote %d lines to %s", lines, in.Path)}, nil
}
