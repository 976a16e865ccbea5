// Package router implements the Router from spec §4.2: turn classification,
// streaming chat completions, and the tool-call loop.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tenx-dev/core/internal/logging"
	"github.com/tenx-dev/core/internal/provider"
	"github.com/tenx-dev/core/internal/session"
	"github.com/tenx-dev/core/internal/tools"
	"github.com/tenx-dev/core/internal/types"
)

const defaultMaxToolHops = 25

// Config configures a Router.
type Config struct {
	Models       ModelTable
	DefaultTier  types.ModelTier
	SystemPrompt string
	MaxToolHops  int
	MaxTokens    int
}

// StreamOptions are the per-call overrides to Stream.
type StreamOptions struct {
	ForcedTier types.ModelTier
	HasImages  bool
}

// Router orchestrates a single user turn end-to-end (spec §4.2). It holds
// non-owning references to its collaborators (spec §3 Ownership).
type Router struct {
	mu sync.RWMutex

	client   provider.Client
	registry *tools.Registry
	sessions *session.Manager
	resolver *ModelResolver

	systemPrompt string
	defaultTier  types.ModelTier
	maxHops      int
	maxTokens    int

	log interface {
		Debug(msg string, args ...any)
		Warn(msg string, args ...any)
	}
}

// New builds a Router. client, registry and sessions are non-owning
// references the caller continues to own.
func New(client provider.Client, registry *tools.Registry, sessions *session.Manager, cfg Config) *Router {
	hops := cfg.MaxToolHops
	if hops <= 0 {
		hops = defaultMaxToolHops
	}
	tier := cfg.DefaultTier
	if tier == "" {
		tier = types.TierFast
	}
	return &Router{
		client:       client,
		registry:     registry,
		sessions:     sessions,
		resolver:     NewModelResolver(cfg.Models),
		systemPrompt: cfg.SystemPrompt,
		defaultTier:  tier,
		maxHops:      hops,
		maxTokens:    cfg.MaxTokens,
		log:          logging.With("router"),
	}
}

// WithRegistry returns a shallow copy of the Router bound to a different
// tool registry, sharing every other collaborator (client, sessions,
// resolver) and the current system prompt/tier/hop settings. Used by the
// superpower engine to enforce a step's `tools:` restriction (spec §4.7)
// without constructing a whole new provider/session stack per step.
func (r *Router) WithRegistry(registry *tools.Registry) *Router {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Router{
		client:       r.client,
		registry:     registry,
		sessions:     r.sessions,
		resolver:     r.resolver,
		systemPrompt: r.systemPrompt,
		defaultTier:  r.defaultTier,
		maxHops:      r.maxHops,
		maxTokens:    r.maxTokens,
		log:          r.log,
	}
}

// Registry returns the tool registry this Router dispatches calls against.
func (r *Router) Registry() *tools.Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.registry
}

// SetSystemPrompt updates the leading system message prepended to every turn.
func (r *Router) SetSystemPrompt(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.systemPrompt = s
}

// SetDefaultTier updates the tier `auto` falls back to.
func (r *Router) SetDefaultTier(t types.ModelTier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultTier = t
}

// Classify is a pure function of userText and the Router's current default
// tier (spec §4.2, §8).
func (r *Router) Classify(userText string) types.ModelTier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Classify(userText, r.defaultTier)
}

// resolveTier applies spec §4.2's precedence: forced_tier overrides images,
// which overrides classification.
func (r *Router) resolveTier(messages []types.Message, opts StreamOptions) types.ModelTier {
	if opts.ForcedTier != "" && opts.ForcedTier != types.TierAuto {
		return opts.ForcedTier
	}
	if opts.HasImages {
		return types.TierSmart
	}
	r.mu.RLock()
	defaultTier := r.defaultTier
	r.mu.RUnlock()
	return Classify(lastUserText(messages), defaultTier)
}

func lastUserText(messages []types.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleUser {
			return messages[i].Text()
		}
	}
	return ""
}

// Stream runs the tool-call loop described in spec §4.2 and emits a
// strictly-ordered, finite, single-pass sequence of Events (spec §5, §9).
// Cancelling ctx aborts the provider stream and any in-flight tool
// execution, then drains to a terminal done event — never an error.
func (r *Router) Stream(ctx context.Context, messages []types.Message, opts StreamOptions) (<-chan types.Event, error) {
	tier := r.resolveTier(messages, opts)
	out := make(chan types.Event, 32)
	go r.run(ctx, tier, opts, out)
	return out, nil
}

// Complete is the non-streaming convenience wrapper (spec §4.2).
func (r *Router) Complete(ctx context.Context, messages []types.Message, forcedTier types.ModelTier) (content string, tier types.ModelTier, usage *types.TokenUsage, err error) {
	events, err := r.Stream(ctx, messages, StreamOptions{ForcedTier: forcedTier})
	if err != nil {
		return "", "", nil, err
	}
	var sb []byte
	var lastTier types.ModelTier
	for ev := range events {
		switch ev.Kind {
		case types.EventText:
			sb = append(sb, ev.Content...)
			lastTier = ev.Tier
		case types.EventDone:
			lastTier = ev.Tier
			usage = ev.Usage
		}
	}
	return string(sb), lastTier, usage, nil
}

func (r *Router) run(ctx context.Context, tier types.ModelTier, opts StreamOptions, out chan<- types.Event) {
	defer close(out)

	r.mu.RLock()
	systemPrompt := r.systemPrompt
	maxHops := r.maxHops
	maxTokens := r.maxTokens
	r.mu.RUnlock()

	for hop := 0; hop < maxHops; hop++ {
		if ctx.Err() != nil {
			r.emitCancelled(out, tier, "")
			return
		}

		modelID := r.resolver.Resolve(tier)
		current := r.sessions.GetCurrent()
		var history []types.Message
		if current != nil {
			history = current.Messages
		}

		req := provider.ChatRequest{
			Model:     modelID,
			Messages:  history,
			System:    systemPrompt,
			Tools:     r.registry.ToWireSchema(),
			MaxTokens: maxTokens,
		}

		chunks, err := r.client.ChatStream(ctx, req)
		if err != nil {
			if _, ok := err.(provider.CancellationOutcome); ok {
				r.emitCancelled(out, tier, "")
				return
			}
			r.resolver.MarkFailed(modelID)
			out <- types.Event{Kind: types.EventDone, Tier: tier, Err: err}
			r.log.Warn("provider stream failed", "err", err)
			return
		}

		finishReason, usage, cancelled, partialText, logged := r.consumeHop(ctx, chunks, tier, out)
		if cancelled {
			if logged {
				// consumeHop already appended the assistant (and any tool)
				// messages for this hop before detecting cancellation.
				out <- types.Event{Kind: types.EventDone, Tier: tier, Cancelled: true}
			} else {
				r.emitCancelled(out, tier, partialText)
			}
			return
		}
		r.resolver.ClearFailed(modelID)

		if finishReason != "tool_calls" && finishReason != "function_call" {
			out <- types.Event{Kind: types.EventDone, Tier: tier, Usage: usage}
			return
		}
		// consumeHop already appended the assistant + tool messages for this
		// hop; loop around to re-issue chatStream with the augmented log.
	}

	// Hop limit reached: emit a final done with a synthetic stop (spec §4.2).
	out <- types.Event{Kind: types.EventDone, Tier: tier}
}

// emitCancelled retains the partially-filled assistant message for the
// cancelled turn (spec §5, §7): whatever text was received, or the literal
// "(cancelled)" marker when none was, before emitting the terminal done.
func (r *Router) emitCancelled(out chan<- types.Event, tier types.ModelTier, partialText string) {
	content := partialText
	if content == "" {
		content = "(cancelled)"
	}
	r.appendAssistant(content, nil, tier)
	out <- types.Event{Kind: types.EventDone, Tier: tier, Cancelled: true}
}

// consumeHop drains one chatStream to completion, accumulating text and
// tool-call deltas, dispatching completed tool calls sequentially in
// emission order, and appending the resulting assistant/tool messages to
// the session log (spec §4.2 steps 3-5). On cancellation it returns the
// text accumulated so far so the caller can retain it (spec §5); logged
// reports whether this call already appended the assistant message itself
// (the tool-call dispatch path always does, whether it completes or is
// cancelled), so the caller does not append it a second time.
func (r *Router) consumeHop(ctx context.Context, chunks <-chan provider.StreamChunk, tier types.ModelTier, out chan<- types.Event) (finishReason string, usage *types.TokenUsage, cancelled bool, text string, logged bool) {
	var textBuf []byte
	inflight := map[int]*inflightCall{}
	var order []int

	for chunk := range chunks {
		if ctx.Err() != nil {
			cancelled = true
			continue // drain the channel so the producer goroutine can exit
		}
		if chunk.Delta.Content != "" {
			textBuf = append(textBuf, chunk.Delta.Content...)
			out <- types.Event{Kind: types.EventText, Content: chunk.Delta.Content, Tier: tier}
		}
		for _, d := range chunk.Delta.ToolCalls {
			call, ok := inflight[d.Index]
			if !ok {
				id := d.ID
				if id == "" {
					id = fmt.Sprintf("call_%d", d.Index)
				}
				call = &inflightCall{id: id}
				inflight[d.Index] = call
				order = append(order, d.Index)
			}
			if d.Name != "" {
				call.name += d.Name
			}
			call.args += d.ArgumentsFragment
		}
		if chunk.FinishReason != "" {
			finishReason = chunk.FinishReason
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
	}

	if cancelled {
		return finishReason, usage, true, string(textBuf), false
	}

	if len(order) == 0 {
		if textBuf != nil {
			r.appendAssistant(string(textBuf), nil, tier)
		} else if finishReason == "stop" {
			r.appendAssistant("", nil, tier)
		}
		return finishReason, usage, false, "", true
	}

	completed := make([]types.ToolCall, 0, len(order))
	for _, idx := range order {
		call := inflight[idx]
		input, err := parseArgs(call.args)
		tc := types.ToolCall{ID: call.id, Name: call.name, Input: input, Status: types.ToolCallPending}
		out <- types.Event{Kind: types.EventToolCall, ToolCall: &tc, Tier: tier}

		tc.Status = types.ToolCallRunning
		var result types.Result
		if err != nil {
			result = types.Result{OK: false, Error: fmt.Sprintf("invalid tool arguments: %v", err)}
		} else if ctx.Err() != nil {
			result = types.Result{OK: false, Error: "cancelled"}
		} else {
			result = r.registry.Execute(ctx, call.name, input)
		}

		if result.OK {
			tc.Status = types.ToolCallSuccess
			tc.Output = &types.ToolCallOutput{Text: result.Output}
		} else {
			tc.Status = types.ToolCallError
			tc.Output = &types.ToolCallOutput{Error: result.Error}
		}
		out <- types.Event{Kind: types.EventToolResult, ToolCall: &tc, Tier: tier}
		completed = append(completed, tc)
	}

	r.appendAssistant(string(textBuf), completed, tier)
	for _, tc := range completed {
		content := ""
		if tc.Output != nil {
			if tc.Output.Error != "" {
				content = tc.Output.Error
			} else {
				content = tc.Output.Text
			}
		}
		_ = r.sessions.AddMessage(types.Message{
			Role:       types.RoleTool,
			Content:    content,
			ToolCallID: tc.ID,
		})
	}

	if ctx.Err() != nil {
		return finishReason, usage, true, "", true
	}
	return finishReason, usage, false, "", true
}

func (r *Router) appendAssistant(content string, toolCalls []types.ToolCall, tier types.ModelTier) {
	_ = r.sessions.AddMessage(types.Message{
		Role:      types.RoleAssistant,
		Content:   content,
		ToolCalls: toolCalls,
		ModelTier: tier,
	})
}

type inflightCall struct {
	id   string
	name string
	args string
}

func parseArgs(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return m, nil
}
