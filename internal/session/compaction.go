package session

import (
	"context"
	"fmt"
	"time"

	"github.com/tenx-dev/core/internal/types"
)

const minMessagesForCompaction = 6
const tailSize = 4

// Compact requires >= 6 messages in the current session. It retains the
// last 4 messages verbatim, passes the preceding prefix to summarizer, and
// replaces that prefix with a single system message holding the summary.
// Session state transitions to compacted; token counters reset to the
// estimated tokens of the summary plus the retained tail (spec §4.5).
func (m *Manager) Compact(ctx context.Context, summarizer Summarizer) error {
	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		return fmt.Errorf("no current session")
	}
	if len(m.current.Messages) < minMessagesForCompaction {
		m.mu.Unlock()
		return fmt.Errorf("compaction requires at least %d messages, have %d", minMessagesForCompaction, len(m.current.Messages))
	}
	tail := append([]types.Message(nil), m.current.Messages[len(m.current.Messages)-tailSize:]...)
	prefix := append([]types.Message(nil), m.current.Messages[:len(m.current.Messages)-tailSize]...)
	m.mu.Unlock()

	summary, err := summarizer(ctx, prefix)
	if err != nil {
		return fmt.Errorf("summarizer failed: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	summaryMsg := types.Message{
		Role:      types.RoleSystem,
		Content:   summary,
		Timestamp: time.Now(),
	}
	m.current.Messages = append([]types.Message{summaryMsg}, tail...)
	m.current.State = types.SessionCompacted

	usage := types.TokenUsage{Input: estimateTokens(summaryMsg.Text())}
	for _, msg := range tail {
		t := estimateTokens(msg.Text())
		if msg.Role == types.RoleAssistant {
			usage.Output += t
		} else {
			usage.Input += t
		}
	}
	m.current.TokenUsage = usage
	m.current.UpdatedAt = time.Now()
	return m.store.Save(m.current)
}
