// Package provider implements the retrying, cancellable streaming client for
// the OpenAI-compatible chat-completions wire protocol (spec §4.1, §6).
package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/tenx-dev/core/internal/types"
)

// ToolDefinition is the wire shape the registry hands the provider for the
// `tools` array of a chat-completions request.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// ChatRequest is a single chat-completions request.
type ChatRequest struct {
	Model       string
	Messages    []types.Message
	System      string
	Tools       []ToolDefinition
	MaxTokens   int
	Temperature float64
}

// ChatResponse is the result of a non-streaming Chat call.
type ChatResponse struct {
	Content      string
	ToolCalls    []types.ToolCall
	FinishReason string
	Usage        *types.TokenUsage
}

// ToolCallDelta is a partial tool-call fragment carried by a StreamChunk.
// Providers stream a tool call's name and JSON arguments across many
// chunks, keyed by Index; ID is carried when the wire protocol supplies one
// and becomes the call's id.
type ToolCallDelta struct {
	Index             int
	ID                string
	Name              string
	ArgumentsFragment string
}

// StreamChunkDelta mirrors the OpenAI `choices[0].delta` shape.
type StreamChunkDelta struct {
	Content   string
	ToolCalls []ToolCallDelta
}

// StreamChunk is one SSE `data:` payload, decoded.
type StreamChunk struct {
	Delta        StreamChunkDelta
	FinishReason string
	Usage        *types.TokenUsage
}

// ProviderError is an upstream HTTP or wire failure. It carries enough
// information for the caller to decide whether (and when) to retry, but the
// Client itself has already exhausted its own retry budget by the time this
// surfaces.
type ProviderError struct {
	Status     int
	Retryable  bool
	RetryAfter time.Duration
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "provider error"
}

// UsageLimitExceeded reports whether this failure is the hosted-mode proxy's
// usage-limit rejection (spec §7): HTTP 402, or an error body mentioning
// usage_limit_exceeded / "Monthly token limit exceeded". The host CLI uses
// this to show an upgrade hint in addition to the error line.
func (e *ProviderError) UsageLimitExceeded() bool {
	if e.Status == http.StatusPaymentRequired {
		return true
	}
	lower := strings.ToLower(e.Message)
	return strings.Contains(lower, "usage_limit_exceeded") ||
		strings.Contains(lower, "monthly token limit exceeded")
}

// CancellationOutcome is a distinct terminal signal, never an error (spec §7).
type CancellationOutcome struct{}

func (CancellationOutcome) Error() string { return "cancelled" }

// Client is the ProviderClient contract from spec §4.1. The ctx passed to
// each method is the cancellation signal: cancelling it must abort in-flight
// connections, interrupt backoff sleeps, and terminate the returned channel
// promptly (spec §4.1 Cancellation).
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error)
	GetModels(ctx context.Context) ([]string, error)
}
