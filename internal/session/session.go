// Package session implements the SessionManager from spec §4.5: message log
// ownership, token accounting, compaction, and per-user-directory JSON
// persistence (spec §6 Persisted state layout).
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tenx-dev/core/internal/types"
)

// ContextWindows are the conservative per-tier windows from spec §4.5.
var ContextWindows = map[types.ModelTier]int{
	types.TierSuperfast: 128_000,
	types.TierFast:      256_000,
	types.TierSmart:     200_000,
}

// Summarizer produces a compaction summary from a message prefix.
type Summarizer func(ctx context.Context, prefix []types.Message) (string, error)

// Manager owns the message log for every Session it has loaded (spec §3
// Ownership). It is a long-lived singleton within one process (spec §5).
type Manager struct {
	mu      sync.Mutex
	store   *Store
	current *types.Session
}

// NewManager builds a Manager backed by store.
func NewManager(store *Store) *Manager {
	return &Manager{store: store}
}

// CreateParams configures Create.
type CreateParams struct {
	Name             string
	ModelTier        types.ModelTier
	WorkingDirectory string
}

// Create starts a brand-new active session and makes it current.
func (m *Manager) Create(params CreateParams) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tier := params.ModelTier
	if tier == "" {
		tier = types.TierAuto
	}
	now := time.Now()
	s := &types.Session{
		ID:               uuid.New().String(),
		Name:             params.Name,
		ModelTier:        tier,
		WorkingDirectory: params.WorkingDirectory,
		State:            types.SessionActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := m.store.Save(s); err != nil {
		return nil, err
	}
	m.current = s
	return s, nil
}

// GetCurrent returns the in-memory current session, or nil.
func (m *Manager) GetCurrent() *types.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// GetOrCreate returns the current session if one exists, else creates one.
func (m *Manager) GetOrCreate(params CreateParams) (*types.Session, error) {
	if s := m.GetCurrent(); s != nil {
		return s, nil
	}
	return m.Create(params)
}

// Load reads a session by id from disk and makes it current.
func (m *Manager) Load(id string) (*types.Session, error) {
	s, err := m.store.Load(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	return s, nil
}

// LoadByName resolves a session by its (non-unique-enforced) name, choosing
// the most recently updated match.
func (m *Manager) LoadByName(name string) (*types.Session, error) {
	summaries, err := m.store.List()
	if err != nil {
		return nil, err
	}
	var best *types.Summary
	for i := range summaries {
		s := &summaries[i]
		if s.Name != name {
			continue
		}
		if best == nil || s.UpdatedAt.After(best.UpdatedAt) {
			best = s
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no session named %q", name)
	}
	return m.Load(best.ID)
}

// List returns every persisted session's summary.
func (m *Manager) List() ([]types.Summary, error) {
	return m.store.List()
}

// ResumeLast loads the most recently updated session.
func (m *Manager) ResumeLast() (*types.Session, error) {
	summaries, err := m.store.List()
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, fmt.Errorf("no sessions to resume")
	}
	latest := summaries[0]
	for _, s := range summaries[1:] {
		if s.UpdatedAt.After(latest.UpdatedAt) {
			latest = s
		}
	}
	return m.Load(latest.ID)
}

// AddMessage appends a message to the current session and updates token
// counters: ceil(chars/4), added to input for user/system/tool roles and to
// output for assistant roles (spec §4.5 Token accounting).
func (m *Manager) AddMessage(msg types.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return fmt.Errorf("no current session")
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	m.current.Messages = append(m.current.Messages, msg)

	tokens := estimateTokens(msg.Text())
	switch msg.Role {
	case types.RoleAssistant:
		m.current.TokenUsage.Output += tokens
	default:
		m.current.TokenUsage.Input += tokens
	}
	m.current.UpdatedAt = time.Now()
	return m.store.Save(m.current)
}

// estimateTokens is the coarse ceil(chars/4) estimate: a compaction trigger,
// never used for billing (spec §4.5).
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// Rename sets the current session's display name.
func (m *Manager) Rename(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return fmt.Errorf("no current session")
	}
	m.current.Name = name
	m.current.UpdatedAt = time.Now()
	return m.store.Save(m.current)
}

// Fork creates a new session with a fresh id, a copy of the current message
// log, parent_id set to the current session, and independent token
// counters. The current session is left unchanged (spec §4.5).
func (m *Manager) Fork(name string) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, fmt.Errorf("no current session")
	}
	now := time.Now()
	forked := &types.Session{
		ID:               uuid.New().String(),
		Name:             name,
		ParentID:         m.current.ID,
		ModelTier:        m.current.ModelTier,
		WorkingDirectory: m.current.WorkingDirectory,
		Messages:         append([]types.Message(nil), m.current.Messages...),
		TokenUsage:       m.current.TokenUsage,
		State:            types.SessionActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := m.store.Save(forked); err != nil {
		return nil, err
	}
	m.current = forked
	return forked, nil
}

// Clear empties the current session's message log and counters in place.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return fmt.Errorf("no current session")
	}
	m.current.Messages = nil
	m.current.TokenUsage = types.TokenUsage{}
	m.current.State = types.SessionActive
	m.current.UpdatedAt = time.Now()
	return m.store.Save(m.current)
}

// Delete removes a persisted session by id.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.current.ID == id {
		m.current = nil
	}
	return m.store.Delete(id)
}

// TokenCount returns the current session's total (input+output) estimate.
func (m *Manager) TokenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return 0
	}
	return m.current.TokenUsage.Input + m.current.TokenUsage.Output
}

// GetContextWindow returns the context window for the current session's tier.
func (m *Manager) GetContextWindow() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ContextWindows[types.TierFast]
	}
	tier := m.current.ModelTier
	if w, ok := ContextWindows[tier]; ok {
		return w
	}
	return ContextWindows[types.TierFast]
}

// NeedsCompaction reports whether the current session is at or above 80% of
// its tier's context window (spec §4.5).
func (m *Manager) NeedsCompaction() bool {
	m.mu.Lock()
	total := 0
	window := ContextWindows[types.TierFast]
	if m.current != nil {
		total = m.current.TokenUsage.Input + m.current.TokenUsage.Output
		if w, ok := ContextWindows[m.current.ModelTier]; ok {
			window = w
		}
	}
	m.mu.Unlock()
	return float64(total) >= 0.8*float64(window)
}
