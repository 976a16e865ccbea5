// Package subagent implements the Sub-agent Executor from spec §4.6: a
// restricted inner Router spawned per call, with a static agent table.
package subagent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tenx-dev/core/internal/permission"
	"github.com/tenx-dev/core/internal/provider"
	"github.com/tenx-dev/core/internal/router"
	"github.com/tenx-dev/core/internal/session"
	"github.com/tenx-dev/core/internal/tools"
	"github.com/tenx-dev/core/internal/types"
)

// Table is the authoritative static agent registry from spec §4.6.
var Table = map[types.AgentType]types.Agent{
	types.AgentExplore: {
		Type:         types.AgentExplore,
		SystemPrompt: "You explore a codebase to answer a question. Use read, glob, grep and bash to investigate; do not modify anything.",
		AllowedTools: []string{"read", "glob", "grep", "bash"},
		DefaultTier:  types.TierFast,
		ReadOnly:     true,
	},
	types.AgentSummarize: {
		Type:         types.AgentSummarize,
		SystemPrompt: "Summarize the given context concisely.",
		AllowedTools: nil,
		DefaultTier:  types.TierFast,
	},
	types.AgentReviewPR: {
		Type:         types.AgentReviewPR,
		SystemPrompt: "You review a proposed change for correctness, style and risk. Use read, glob, grep and bash to inspect the change.",
		AllowedTools: []string{"read", "glob", "grep", "bash"},
		DefaultTier:  types.TierSmart,
	},
	types.AgentTitleGen: {
		Type:         types.AgentTitleGen,
		SystemPrompt: "Generate a short, descriptive title for the given conversation. Respond with the title only.",
		AllowedTools: nil,
		DefaultTier:  types.TierSuperfast,
	},
	types.AgentPlan: {
		Type:         types.AgentPlan,
		SystemPrompt: "You produce a step-by-step plan for the given task. Use read, glob and grep to investigate; do not modify anything.",
		AllowedTools: []string{"read", "glob", "grep"},
		DefaultTier:  types.TierSmart,
		ReadOnly:     true,
	},
}

// Params is the invocation shape from spec §4.6.
type Params struct {
	SubagentType types.AgentType
	Prompt       string
	Model        types.ModelTier
	Resume       string
	// Context is the optional transcript the Summarize agent formats into a
	// single user message (spec §4.6: "context messages are formatted into
	// a single user message"). Ignored by every other agent type.
	Context []types.Message
}

// Invocation is the terminal record for one sub-agent call.
type Invocation struct {
	OK      bool
	Output  string
	AgentID string
	Error   string
}

type invocationState string

const (
	stateRunning   invocationState = "running"
	stateCompleted invocationState = "completed"
	stateError     invocationState = "error"
)

type tableEntry struct {
	state  invocationState
	result Invocation
}

// Executor spawns restricted child Routers and tracks their terminal
// results so resume=<id> on a completed invocation short-circuits re-execution.
type Executor struct {
	client provider.Client
	models router.ModelTable

	mu    sync.Mutex
	table map[string]*tableEntry
}

// NewExecutor builds an Executor. client and models back every spawned
// child Router.
func NewExecutor(client provider.Client, models router.ModelTable) *Executor {
	return &Executor{client: client, models: models, table: map[string]*tableEntry{}}
}

// Execute runs a bounded sub-agent task to completion and returns the
// concatenated text output. Tool events are not propagated to the caller
// (spec §4.6 Execution).
func (e *Executor) Execute(ctx context.Context, params Params) Invocation {
	if params.Resume != "" {
		e.mu.Lock()
		entry, ok := e.table[params.Resume]
		e.mu.Unlock()
		if ok && entry.state == stateCompleted {
			return entry.result
		}
	}

	agent, ok := Table[params.SubagentType]
	if !ok {
		return Invocation{OK: false, Error: fmt.Sprintf("unknown agent type %q", params.SubagentType)}
	}

	agentID := uuid.New().String()
	e.mu.Lock()
	e.table[agentID] = &tableEntry{state: stateRunning}
	e.mu.Unlock()

	result := e.run(ctx, agent, params, agentID)

	e.mu.Lock()
	entry := e.table[agentID]
	entry.result = result
	if result.OK {
		entry.state = stateCompleted
	} else {
		entry.state = stateError
	}
	e.mu.Unlock()

	return result
}

// formatContextForSummarize folds a transcript into the single user message
// the Summarize agent expects (spec §4.6), one "role: text" line per
// message, followed by the task prompt.
func formatContextForSummarize(msgs []types.Message, prompt string) string {
	var b strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Text())
	}
	if prompt != "" {
		b.WriteString("\n")
		b.WriteString(prompt)
	}
	return b.String()
}

func (e *Executor) run(ctx context.Context, agent types.Agent, params Params, agentID string) Invocation {
	registry := tools.NewRegistry()
	for _, name := range agent.AllowedTools {
		switch name {
		case "read":
			registry.Register(tools.NewReadTool())
		case "glob":
			registry.Register(tools.NewGlobTool())
		case "grep":
			registry.Register(tools.NewGrepTool())
		case "bash":
			registry.Register(tools.NewBashTool(0))
		}
	}
	if len(agent.AllowedTools) > 0 {
		// Sub-agents get a permissive PermissionManager: the parent already
		// decided this agent type is allowed to run with this tool subset;
		// it should not re-prompt per spec §4.6's bounded-task contract.
		pm := permission.NewManager(nil)
		pm.UpdateConfig(map[string]types.ToolPermissions{
			"read": {Default: types.ActionAllow},
			"glob": {Default: types.ActionAllow},
			"grep": {Default: types.ActionAllow},
			"bash": {Default: types.ActionAllow},
		})
		registry.SetPermissionManager(pm)
	}

	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	store, err := session.NewStore(filepath.Join(cacheDir, "tenx", "agents"))
	if err != nil {
		return Invocation{OK: false, AgentID: agentID, Error: err.Error()}
	}
	sessions := session.NewManager(store)
	sess, err := sessions.Create(session.CreateParams{Name: agentID, ModelTier: agent.DefaultTier})
	if err != nil {
		return Invocation{OK: false, AgentID: agentID, Error: err.Error()}
	}
	_ = sess

	tier := agent.DefaultTier
	if params.Model != "" {
		tier = params.Model
	}
	models := router.ModelTable{}
	for t, id := range e.models {
		models[t] = id
	}

	r := router.New(e.client, registry, sessions, router.Config{
		Models:       models,
		DefaultTier:  tier,
		SystemPrompt: agent.SystemPrompt,
	})

	prompt := params.Prompt
	if agent.Type == types.AgentSummarize && len(params.Context) > 0 {
		prompt = formatContextForSummarize(params.Context, params.Prompt)
	}
	if err := sessions.AddMessage(types.Message{Role: types.RoleUser, Content: prompt, Timestamp: time.Now()}); err != nil {
		return Invocation{OK: false, AgentID: agentID, Error: err.Error()}
	}

	events, err := r.Stream(ctx, sessions.GetCurrent().Messages, router.StreamOptions{ForcedTier: tier})
	if err != nil {
		return Invocation{OK: false, AgentID: agentID, Error: err.Error()}
	}

	var output []byte
	failed := false
	failErr := ""
	for ev := range events {
		switch ev.Kind {
		case types.EventText:
			output = append(output, ev.Content...)
		case types.EventDone:
			if ev.Err != nil {
				failed = true
				failErr = ev.Err.Error()
			}
			// Cancellation is not an error (spec §7): a cancelled sub-agent
			// still returns whatever partial text it produced as ok.
		}
	}
	if failed {
		return Invocation{OK: false, AgentID: agentID, Error: failErr}
	}
	return Invocation{OK: true, Output: string(output), AgentID: agentID}
}
