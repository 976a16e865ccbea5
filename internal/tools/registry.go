// Package tools implements the ToolRegistry and the built-in tools from
// spec §4.3: read, write, edit, glob, grep, bash.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tenx-dev/core/internal/logging"
	"github.com/tenx-dev/core/internal/permission"
	"github.com/tenx-dev/core/internal/provider"
	"github.com/tenx-dev/core/internal/types"
)

// Tool is the executor contract from spec §3.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, input map[string]any) (types.Result, error)
}

// WireDefinition is the `{type:"function", function:{...}}` shape the
// provider client expects.
type WireDefinition struct {
	Type     string             `json:"type"`
	Function WireFunctionSchema `json:"function"`
}

type WireFunctionSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Registry looks up tools by name, presents their schema to the provider,
// and dispatches/gates execution (spec §4.3). It owns its tool table
// exclusively (spec §3 Ownership); registration is monotonic within a turn.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	pm    *permission.Manager
}

// NewRegistry builds an empty registry. Call RegisterDefaults to add the
// spec's built-in tool set, or Register individual tools (e.g. for a
// sub-agent's restricted subset, spec §4.6).
func NewRegistry() *Registry {
	return &Registry{tools: map[string]Tool{}}
}

// SetPermissionManager wires the PermissionManager this registry consults
// on every Execute call.
func (r *Registry) SetPermissionManager(pm *permission.Manager) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pm = pm
}

// Register adds a tool. Panics on duplicate name: names are unique per the
// spec's Tool invariant, and a duplicate registration is a programming error
// the caller should fix, not a runtime condition to swallow.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name()]; exists {
		panic(fmt.Sprintf("tools: duplicate registration for %q", tool.Name()))
	}
	r.tools[tool.Name()] = tool
}

// RegisterDefaults registers the full built-in tool set (spec §4.3).
func (r *Registry) RegisterDefaults(bashTimeoutDefault int) {
	r.Register(NewReadTool())
	r.Register(NewWriteTool())
	r.Register(NewEditTool())
	r.Register(NewGlobTool())
	r.Register(NewGrepTool())
	r.Register(NewBashTool(bashTimeoutDefault))
}

// Subset builds a new Registry containing only the named tools, sharing
// this registry's PermissionManager. Unknown names are silently skipped —
// callers (the superpower engine's per-step `tools:` marker, spec §4.7)
// pass names parsed from free-form document text that may not all resolve.
func (r *Registry) Subset(names []string) *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub := &Registry{tools: map[string]Tool{}, pm: r.pm}
	for _, name := range names {
		if t, ok := r.tools[name]; ok {
			sub.tools[name] = t
		}
	}
	return sub
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns every registered tool name, sorted for determinism.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Size returns the number of registered tools.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// ToWireSchema presents every tool's schema in the provider's expected shape.
func (r *Registry) ToWireSchema() []provider.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	defs := make([]provider.ToolDefinition, 0, len(names))
	for _, n := range names {
		t := r.tools[n]
		defs = append(defs, provider.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Schema(),
		})
	}
	return defs
}

// permissionKey computes the permission key for a call, per spec §4.3.
func permissionKey(name string, input map[string]any) string {
	switch name {
	case "read", "write", "edit":
		return stringField(input, "path")
	case "bash":
		return stringField(input, "command")
	case "glob", "grep":
		return stringField(input, "pattern")
	default:
		return stableSerialize(input)
	}
}

func stringField(input map[string]any, key string) string {
	if v, ok := input[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func stableSerialize(input map[string]any) string {
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		fmt.Fprintf(&sb, "%v", input[k])
	}
	return sb.String()
}

// Execute looks up the tool, gates it through the permission manager, and
// dispatches it. Exceptions never propagate: a panicking tool or a returned
// error both surface as `{ok:false, error:...}` (spec §4.3).
func (r *Registry) Execute(ctx context.Context, name string, input map[string]any) (result types.Result) {
	r.mu.RLock()
	t, ok := r.tools[name]
	pm := r.pm
	r.mu.RUnlock()

	if !ok {
		return types.Result{OK: false, Error: correctionHint(name, r.Names())}
	}

	key := permissionKey(name, input)
	if pm != nil {
		allowed, err := pm.Check(ctx, name, key, "")
		if err != nil {
			return types.Result{OK: false, Error: fmt.Sprintf("permission check failed: %v", err)}
		}
		if !allowed {
			return types.Result{OK: false, Error: "Permission denied"}
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			logging.With("tools").Warn("tool panicked", "tool", name, "panic", rec)
			result = types.Result{OK: false, Error: fmt.Sprintf("%v", rec)}
		}
	}()

	res, err := t.Execute(ctx, input)
	if err != nil {
		return types.Result{OK: false, Error: err.Error()}
	}
	return res
}

// correctionHint mirrors the reference registry's self-correcting error
// message for hallucinated tool names, listing what is actually available.
func correctionHint(name string, available []string) string {
	hint := ""
	switch name {
	case "websearch", "web_search", "search_web":
		hint = " (use grep to search local files; there is no web search tool)"
	case "str_replace", "str_replace_editor":
		hint = " (use edit)"
	case "list_files", "ls":
		hint = " (use glob)"
	}
	return fmt.Sprintf("unknown tool %q%s; available tools: %s", name, hint, strings.Join(available, ", "))
}
