// Package types holds the data model shared across the router, provider
// client, tool registry, permission manager, session manager, sub-agent
// executor and superpower engine. Every closed sum here (Event, ContentPart,
// Result, PermissionAction, AgentType, ModelTier) is an exhaustive Go sum
// type rather than bare string dispatch.
package types

import "time"

// ModelTier is a coarse model category that maps to a specific upstream
// model id at runtime.
type ModelTier string

const (
	TierSuperfast ModelTier = "superfast"
	TierFast      ModelTier = "fast"
	TierSmart     ModelTier = "smart"
	// TierAuto is a meta-mode: Router.classify resolves it to one of the above.
	TierAuto ModelTier = "auto"
)

func (t ModelTier) Valid() bool {
	switch t {
	case TierSuperfast, TierFast, TierSmart, TierAuto:
		return true
	default:
		return false
	}
}

// Role is the speaker of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// PartKind discriminates ContentPart.
type PartKind string

const (
	PartText  PartKind = "text"
	PartImage PartKind = "image"
)

// ContentPart is either a text run or an image reference.
type ContentPart struct {
	Kind      PartKind `json:"kind"`
	Text      string   `json:"text,omitempty"`
	URL       string   `json:"url,omitempty"`
	Base64    string   `json:"base64,omitempty"`
	MediaType string   `json:"media_type,omitempty"`
}

// ToolCallStatus is the lifecycle state of a ToolCall.
type ToolCallStatus string

const (
	ToolCallPending ToolCallStatus = "pending"
	ToolCallRunning ToolCallStatus = "running"
	ToolCallSuccess ToolCallStatus = "success"
	ToolCallError   ToolCallStatus = "error"
)

// ToolCallOutput carries the terminal text or error for a ToolCall.
type ToolCallOutput struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// ToolCall is stable within a turn and one-shot: it is never reused across
// turns. It is created when the provider emits a function-call delta,
// transitions pending -> running at registry dispatch, and is terminal on
// registry return.
type ToolCall struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Input  map[string]any  `json:"input"`
	Status ToolCallStatus  `json:"status"`
	Output *ToolCallOutput `json:"output,omitempty"`
}

// Message is one entry in a Session's ordered log.
type Message struct {
	Role       Role          `json:"role"`
	Content    string        `json:"content,omitempty"`
	Parts      []ContentPart `json:"parts,omitempty"`
	ToolCalls  []ToolCall    `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
	ModelTier  ModelTier     `json:"model_tier,omitempty"`
}

// Text returns the message's flattened textual content, concatenating any
// text parts after Content. Used for the ceil(chars/4) token estimate.
func (m Message) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	out := m.Content
	for _, p := range m.Parts {
		if p.Kind == PartText {
			out += p.Text
		}
	}
	return out
}

// Result is the uniform contract every Tool.Execute returns. Exceptions
// never propagate out of a tool; they are captured here instead.
type Result struct {
	OK     bool   `json:"ok"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// PermissionAction is the closed sum a permission rule or evaluation resolves to.
type PermissionAction string

const (
	ActionAllow PermissionAction = "allow"
	ActionDeny  PermissionAction = "deny"
	ActionAsk   PermissionAction = "ask"
)

// PermissionRule pairs a glob pattern with the action to take on match.
type PermissionRule struct {
	Pattern string           `json:"pattern"`
	Action  PermissionAction `json:"action"`
}

// ToolPermissions is the per-tool permission configuration.
type ToolPermissions struct {
	Default PermissionAction `json:"default"`
	Rules   []PermissionRule `json:"rules,omitempty"`
}

// SessionState is the lifecycle state of a Session.
type SessionState string

const (
	SessionActive    SessionState = "active"
	SessionCompacted SessionState = "compacted"
)

// TokenUsage tracks accumulated input/output token estimates for a Session.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Session owns its message log exclusively.
type Session struct {
	ID               string       `json:"id"`
	Name             string       `json:"name,omitempty"`
	ParentID         string       `json:"parent_id,omitempty"`
	ModelTier        ModelTier    `json:"model_tier"`
	WorkingDirectory string       `json:"working_directory"`
	Messages         []Message    `json:"messages"`
	TokenUsage       TokenUsage   `json:"token_usage"`
	State            SessionState `json:"state"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Summary is the lightweight listing shape returned by SessionManager.List.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
	State     SessionState
}

// SuperpowerStep is one ordered step of a Superpower workflow.
type SuperpowerStep struct {
	Number        int       `json:"number"`
	Name          string    `json:"name"`
	ModelTier     ModelTier `json:"model_tier"`
	PromptTemplate string   `json:"prompt_template"`
	UsesPrevious  bool      `json:"uses_previous,omitempty"`
	Multimodal    bool      `json:"multimodal,omitempty"`
	Tools         []string  `json:"tools,omitempty"`
}

// Superpower is a deterministic multi-step workflow parsed from a
// markdown-with-frontmatter document. Loading is read-only and idempotent
// per working directory.
type Superpower struct {
	Trigger     string           `json:"trigger"`
	Description string           `json:"description,omitempty"`
	Multimodal  bool             `json:"multimodal,omitempty"`
	Steps       []SuperpowerStep `json:"steps"`
	SourcePath  string           `json:"-"`
}

// AgentType is the closed sum of sub-agent kinds. Static registry; agents
// are spawned per-call and do not persist.
type AgentType string

const (
	AgentExplore   AgentType = "Explore"
	AgentSummarize AgentType = "Summarize"
	AgentReviewPR  AgentType = "ReviewPR"
	AgentTitleGen  AgentType = "TitleGen"
	AgentPlan      AgentType = "Plan"
)

// Agent is a bounded child Router instance with a restricted tool set and a
// specialised system prompt.
type Agent struct {
	Type         AgentType
	SystemPrompt string
	AllowedTools []string
	DefaultTier  ModelTier
	ReadOnly     bool
}

// EventKind discriminates Event.
type EventKind string

const (
	EventText       EventKind = "text"
	EventToolCall   EventKind = "tool_call"
	EventToolResult EventKind = "tool_result"
	EventDone       EventKind = "done"
)

// Event is the discriminated union the Router's stream yields. Exactly one
// field group is populated per Kind.
type Event struct {
	Kind     EventKind
	Content  string
	Tier     ModelTier
	ToolCall *ToolCall
	Usage    *TokenUsage
	// Cancelled distinguishes a cancellation-driven done from a normal one;
	// it is never surfaced as an error (spec §7).
	Cancelled bool
	// Err carries a ProviderError once retries are exhausted (spec §7): the
	// turn still terminates with a `done` event, not a panic or a swallowed
	// failure, so the caller can inspect it (e.g. for a 402 upgrade hint).
	Err error
}
