package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/tenx-dev/core/internal/types"
)

const defaultBashTimeout = 120 * time.Second

// BashInput is the bash tool's typed parameter shape.
type BashInput struct {
	Command   string `json:"command" jsonschema:"the shell command to run"`
	TimeoutMs int    `json:"timeout_ms,omitempty" jsonschema:"per-call timeout in milliseconds; defaults to 120000"`
}

type BashTool struct {
	schema         json.RawMessage
	defaultTimeout time.Duration
}

// NewBashTool builds the bash tool with a default timeout; 0 selects the
// spec's 120s default.
func NewBashTool(defaultTimeoutMs int) *BashTool {
	timeout := defaultBashTimeout
	if defaultTimeoutMs > 0 {
		timeout = time.Duration(defaultTimeoutMs) * time.Millisecond
	}
	return &BashTool{schema: schemaFor[BashInput](), defaultTimeout: timeout}
}

func (t *BashTool) Name() string            { return "bash" }
func (t *BashTool) Description() string     { return "Run a shell command with a timeout; returns combined stdout/stderr and exit status." }
func (t *BashTool) Schema() json.RawMessage { return t.schema }

func (t *BashTool) Execute(ctx context.Context, input map[string]any) (types.Result, error) {
	in, err := decode[BashInput](input)
	if err != nil {
		return types.Result{}, err
	}
	timeout := t.defaultTimeout
	if in.TimeoutMs > 0 {
		timeout = time.Duration(in.TimeoutMs) * time.Millisecond
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", in.Command)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	runErr := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		return types.Result{OK: false, Error: fmt.Sprintf("command timed out after %s", timeout)}, nil
	}
	if ctx.Err() != nil {
		return types.Result{}, ctx.Err()
	}

	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return types.Result{OK: false, Error: runErr.Error()}, nil
		}
	}

	output := fmt.Sprintf("%s\n(exit code %d)", buf.String(), exitCode)
	return types.Result{OK: exitCode == 0, Output: output}, nil
}
