package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenx-dev/core/internal/types"
)

func newTestManager(t *testing.T) *Manager {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return NewManager(store)
}

func TestAddMessage_TokenAccounting(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Create(CreateParams{ModelTier: types.TierFast})
	require.NoError(t, err)

	require.NoError(t, m.AddMessage(types.Message{Role: types.RoleUser, Content: "12345678"})) // 8 chars -> ceil(8/4)=2
	require.NoError(t, m.AddMessage(types.Message{Role: types.RoleAssistant, Content: "1234"}))  // 4 chars -> 1

	s := m.GetCurrent()
	assert.Equal(t, 2, s.TokenUsage.Input)
	assert.Equal(t, 1, s.TokenUsage.Output)
}

func TestCompact_RequiresMinimumMessages(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Create(CreateParams{})
	require.NoError(t, err)
	require.NoError(t, m.AddMessage(types.Message{Role: types.RoleUser, Content: "hi"}))

	err = m.Compact(context.Background(), func(ctx context.Context, prefix []types.Message) (string, error) {
		return "summary", nil
	})
	assert.Error(t, err)
}

func TestCompact_RetainsTailAndSetsCompactedState(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Create(CreateParams{})
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		require.NoError(t, m.AddMessage(types.Message{Role: types.RoleUser, Content: "msg"}))
	}

	err = m.Compact(context.Background(), func(ctx context.Context, prefix []types.Message) (string, error) {
		assert.Len(t, prefix, 4, "prefix should be all but the last 4 messages")
		return "the summary", nil
	})
	require.NoError(t, err)

	s := m.GetCurrent()
	assert.Len(t, s.Messages, 5, "summary message + 4-message tail")
	assert.Equal(t, types.SessionCompacted, s.State)
	assert.Equal(t, "the summary", s.Messages[0].Content)
}

func TestFork_IsIndependentOfOriginal(t *testing.T) {
	m := newTestManager(t)
	original, err := m.Create(CreateParams{Name: "original"})
	require.NoError(t, err)
	require.NoError(t, m.AddMessage(types.Message{Role: types.RoleUser, Content: "hello"}))

	forked, err := m.Fork("forked")
	require.NoError(t, err)
	assert.NotEqual(t, original.ID, forked.ID)
	assert.Equal(t, original.ID, forked.ParentID)
	assert.Equal(t, m.GetCurrent().ID, forked.ID, "Fork makes the new session current")

	require.NoError(t, m.AddMessage(types.Message{Role: types.RoleUser, Content: "second"}))
	assert.Len(t, m.GetCurrent().Messages, 2)

	reloadedOriginal, err := m.Load(original.ID)
	require.NoError(t, err)
	assert.Len(t, reloadedOriginal.Messages, 1, "forking must not mutate the original session's persisted log")
}

func TestNeedsCompaction(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Create(CreateParams{ModelTier: types.TierSuperfast})
	require.NoError(t, err)
	assert.False(t, m.NeedsCompaction())

	huge := make([]byte, int(0.85*float64(ContextWindows[types.TierSuperfast])*4))
	for i := range huge {
		huge[i] = 'a'
	}
	require.NoError(t, m.AddMessage(types.Message{Role: types.RoleUser, Content: string(huge)}))
	assert.True(t, m.NeedsCompaction())
}

func TestResumeLast_PicksMostRecentlyUpdated(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Create(CreateParams{Name: "first"})
	require.NoError(t, err)
	require.NoError(t, m.AddMessage(types.Message{Role: types.RoleUser, Content: "a"}))

	second, err := m.Create(CreateParams{Name: "second"})
	require.NoError(t, err)
	require.NoError(t, m.AddMessage(types.Message{Role: types.RoleUser, Content: "b"}))

	m.current = nil // simulate a fresh process with nothing loaded
	resumed, err := m.ResumeLast()
	require.NoError(t, err)
	assert.Equal(t, second.ID, resumed.ID)
}
