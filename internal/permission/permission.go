// Package permission implements the pattern-rule engine gating every tool
// execution (spec §4.4).
package permission

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/tenx-dev/core/internal/types"
)

// PromptCallback is the async approval hook from spec §6: given a tool name,
// the permission key under evaluation, and an optional human-readable
// reason, it resolves to whether the user approved the action.
type PromptCallback func(ctx context.Context, tool, key, reason string) (bool, error)

// Evaluation is the pure inspector result `evaluate` returns: it never
// prompts and is deterministic regardless of invocation order (spec §8).
type Evaluation struct {
	Action      types.PermissionAction
	Allowed     bool
	MatchedRule *types.PermissionRule
	Reason      string
}

var defaultDefaults = map[string]types.PermissionAction{
	"read": types.ActionAllow,
	"glob": types.ActionAllow,
	"grep": types.ActionAllow,
	"write": types.ActionAsk,
	"edit":  types.ActionAsk,
	"bash":  types.ActionAsk,
}

// DefaultBashRuleset is the illustrative ruleset spec §4.4 asks the
// implementer to reproduce.
var DefaultBashRuleset = []types.PermissionRule{
	{Pattern: "sudo *", Action: types.ActionDeny},
	{Pattern: "rm -rf /", Action: types.ActionDeny},
	{Pattern: "rm -rf /*", Action: types.ActionDeny},
	{Pattern: "git *", Action: types.ActionAllow},
	{Pattern: "git status", Action: types.ActionAllow},
	{Pattern: "npm test*", Action: types.ActionAllow},
	{Pattern: "bun *", Action: types.ActionAllow},
}

// Manager owns its config and session-allowances set (spec §3 Ownership).
type Manager struct {
	mu         sync.Mutex
	config     map[string]types.ToolPermissions
	allowances map[string]bool // session allowance cache
	prompt     PromptCallback
}

// NewManager builds a Manager with the spec's documented defaults for the
// built-in tools (read/glob/grep allow, write/edit/bash ask) plus the
// default bash ruleset.
func NewManager(prompt PromptCallback) *Manager {
	m := &Manager{
		config:     map[string]types.ToolPermissions{},
		allowances: map[string]bool{},
		prompt:     prompt,
	}
	for tool, def := range defaultDefaults {
		m.config[tool] = types.ToolPermissions{Default: def}
	}
	bash := m.config["bash"]
	bash.Rules = append([]types.PermissionRule(nil), DefaultBashRuleset...)
	m.config["bash"] = bash
	return m
}

// UpdateConfig merges a partial per-tool configuration into the current one.
func (m *Manager) UpdateConfig(partial map[string]types.ToolPermissions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for tool, cfg := range partial {
		m.config[tool] = cfg
	}
}

// ClearSession empties the session-allowance cache.
func (m *Manager) ClearSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowances = map[string]bool{}
}

// AllowForSession force-adds a session allowance for (tool, key).
func (m *Manager) AllowForSession(tool, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowances[allowanceKey(tool, key)] = true
}

// Evaluate is the pure, non-prompting evaluator from spec §4.4/§8: scan all
// deny rules, then all allow rules, then all ask rules; the first pattern
// match in that scan wins; otherwise fall back to the tool's default.
func (m *Manager) Evaluate(tool, key string) Evaluation {
	m.mu.Lock()
	cfg, ok := m.config[tool]
	m.mu.Unlock()
	if !ok {
		// Unknown tools default to ask: the registry must gate everything it
		// dispatches, and an unconfigured tool is not implicitly trusted.
		return Evaluation{Action: types.ActionAsk, Reason: "no configuration for tool"}
	}

	if key != "" && len(cfg.Rules) > 0 {
		if rule, ok := firstMatch(cfg.Rules, key, types.ActionDeny); ok {
			return evalFromRule(rule)
		}
		if rule, ok := firstMatch(cfg.Rules, key, types.ActionAllow); ok {
			return evalFromRule(rule)
		}
		if rule, ok := firstMatch(cfg.Rules, key, types.ActionAsk); ok {
			return evalFromRule(rule)
		}
	}

	return Evaluation{
		Action:  cfg.Default,
		Allowed: cfg.Default == types.ActionAllow,
		Reason:  "tool default",
	}
}

func evalFromRule(rule types.PermissionRule) Evaluation {
	r := rule
	return Evaluation{
		Action:      rule.Action,
		Allowed:     rule.Action == types.ActionAllow,
		MatchedRule: &r,
		Reason:      fmt.Sprintf("matched rule %q", rule.Pattern),
	}
}

func firstMatch(rules []types.PermissionRule, key string, action types.PermissionAction) (types.PermissionRule, bool) {
	for _, r := range rules {
		if r.Action != action {
			continue
		}
		if matchGlob(r.Pattern, key) {
			return r, true
		}
	}
	return types.PermissionRule{}, false
}

// matchGlob implements spec §4.4's glob semantics: wildcards `*`/`?` and
// class brackets, dot-files included, case-sensitive. No third-party glob
// matcher appears anywhere in the example pack (gobwas/ws, gobwas/pool etc.
// are websocket helpers, not pattern matchers), so this is built on
// path/filepath.Match, which already implements the same shell-glob grammar
// and — unlike a shell itself — matches leading dots without special-casing
// them, satisfying "dot-files included". Keys are whole command strings as
// well as paths, so `/` is swapped for a non-separator byte on both sides
// first: `*` and `?` then match across `/` ("sudo *" covers "sudo rm /x").
func matchGlob(pattern, key string) bool {
	const sep = "\x00"
	ok, err := filepath.Match(strings.ReplaceAll(pattern, "/", sep), strings.ReplaceAll(key, "/", sep))
	if err != nil {
		return false
	}
	return ok
}

// Check is the full, possibly-prompting decision procedure from spec §4.4
// step 3. tool/key identify the call; reason is an optional human-readable
// hint forwarded to the prompt callback.
func (m *Manager) Check(ctx context.Context, tool, key, reason string) (bool, error) {
	eval := m.Evaluate(tool, key)
	switch eval.Action {
	case types.ActionAllow:
		return true, nil
	case types.ActionDeny:
		return false, nil
	case types.ActionAsk:
		m.mu.Lock()
		cached := m.allowances[allowanceKey(tool, key)]
		m.mu.Unlock()
		if cached {
			return true, nil
		}
		if m.prompt == nil {
			return false, nil
		}
		approved, err := m.prompt(ctx, tool, key, reason)
		if err != nil {
			return false, err
		}
		if approved {
			m.AllowForSession(tool, key)
		}
		return approved, nil
	default:
		return false, nil
	}
}

// allowanceKey builds the session-allowance cache key from the rule-match
// key. Per spec §4.4, the allowance cache is coarser than the rule-match key
// for bash: `bash:<argv0>[:<argv1>]`, derived from the full command string,
// so that approving `npm test` does not also silently approve an unrelated
// `npm publish`. For every other tool the allowance key is
// `tool:<tool>:<key>`.
func allowanceKey(tool, key string) string {
	if tool == "bash" {
		fields := strings.Fields(key)
		switch len(fields) {
		case 0:
			return "bash:"
		case 1:
			return "bash:" + fields[0]
		default:
			return "bash:" + fields[0] + ":" + fields[1]
		}
	}
	return "tool:" + tool + ":" + key
}

// SortedRules is a small helper for tests/debugging: a stable, deny-first
// ordering of a rule set, matching the order Evaluate scans.
func SortedRules(rules []types.PermissionRule) []types.PermissionRule {
	out := append([]types.PermissionRule(nil), rules...)
	order := map[types.PermissionAction]int{types.ActionDeny: 0, types.ActionAllow: 1, types.ActionAsk: 2}
	sort.SliceStable(out, func(i, j int) bool { return order[out[i].Action] < order[out[j].Action] })
	return out
}
