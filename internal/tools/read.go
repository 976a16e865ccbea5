package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tenx-dev/core/internal/types"
)

const maxLineChars = 2048

// ReadInput is the read tool's typed parameter shape.
type ReadInput struct {
	Path   string `json:"path" jsonschema:"the file path to read"`
	Offset int    `json:"offset,omitempty" jsonschema:"1-indexed line to start from"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of lines to return"`
}

type ReadTool struct{ schema json.RawMessage }

func NewReadTool() *ReadTool { return &ReadTool{schema: schemaFor[ReadInput]()} }

func (t *ReadTool) Name() string             { return "read" }
func (t *ReadTool) Description() string      { return "Read a file's contents, framed with 1-indexed line numbers." }
func (t *ReadTool) Schema() json.RawMessage  { return t.schema }

func (t *ReadTool) Execute(ctx context.Context, input map[string]any) (types.Result, error) {
	in, err := decode[ReadInput](input)
	if err != nil {
		return types.Result{}, err
	}
	info, err := os.Stat(in.Path)
	if err != nil {
		return types.Result{OK: false, Error: fmt.Sprintf("cannot read %s: %v", in.Path, err)}, nil
	}
	if info.IsDir() {
		return types.Result{OK: false, Error: fmt.Sprintf("%s is a directory", in.Path)}, nil
	}
	data, err := os.ReadFile(in.Path)
	if err != nil {
		return types.Result{OK: false, Error: err.Error()}, nil
	}

	lines := strings.Split(string(data), "\n")
	total := len(lines)

	start := 0
	if in.Offset > 0 {
		start = in.Offset - 1
	}
	if start >= total {
		return types.Result{OK: true, Output: "0 lines"}, nil
	}

	end := total
	if in.Limit > 0 && start+in.Limit < end {
		end = start + in.Limit
	}

	var sb strings.Builder
	for i := start; i < end; i++ {
		line := lines[i]
		if len(line) > maxLineChars {
			line = line[:maxLineChars] + "…"
		}
		fmt.Fprintf(&sb, "%6d\t%s\n", i+1, line)
	}
	sb.WriteString(fmt.Sprintf("(%d lines total)", total))
	return types.Result{OK: true, Output: sb.String()}, nil
}
