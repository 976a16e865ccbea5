package subagent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenx-dev/core/internal/provider"
	"github.com/tenx-dev/core/internal/router"
	"github.com/tenx-dev/core/internal/types"
)

// fakeClient is a minimal provider.Client stub that always answers with a
// single fixed text chunk and a "stop" finish reason, with no tool calls.
type fakeClient struct {
	text        string
	lastRequest provider.ChatRequest
}

func (f *fakeClient) Chat(ctx context.Context, req provider.ChatRequest) (provider.ChatResponse, error) {
	return provider.ChatResponse{Content: f.text, FinishReason: "stop"}, nil
}

func (f *fakeClient) ChatStream(ctx context.Context, req provider.ChatRequest) (<-chan provider.StreamChunk, error) {
	f.lastRequest = req
	out := make(chan provider.StreamChunk, 2)
	out <- provider.StreamChunk{Delta: provider.StreamChunkDelta{Content: f.text}}
	out <- provider.StreamChunk{FinishReason: "stop"}
	close(out)
	return out, nil
}

func (f *fakeClient) GetModels(ctx context.Context) ([]string, error) {
	return []string{"fake-model"}, nil
}

func testModels() router.ModelTable {
	return router.ModelTable{
		types.TierSuperfast: "fake-superfast",
		types.TierFast:      "fake-fast",
		types.TierSmart:     "fake-smart",
	}
}

func TestTable_HasAllFiveAgentsWithSpecShapes(t *testing.T) {
	require.Len(t, Table, 5)

	explore := Table[types.AgentExplore]
	assert.True(t, explore.ReadOnly)
	assert.ElementsMatch(t, []string{"read", "glob", "grep", "bash"}, explore.AllowedTools)
	assert.Equal(t, types.TierFast, explore.DefaultTier)

	summarize := Table[types.AgentSummarize]
	assert.Empty(t, summarize.AllowedTools)
	assert.False(t, summarize.ReadOnly)

	review := Table[types.AgentReviewPR]
	assert.Equal(t, types.TierSmart, review.DefaultTier)
	assert.ElementsMatch(t, []string{"read", "glob", "grep", "bash"}, review.AllowedTools)

	titleGen := Table[types.AgentTitleGen]
	assert.Equal(t, types.TierSuperfast, titleGen.DefaultTier)
	assert.Empty(t, titleGen.AllowedTools)

	plan := Table[types.AgentPlan]
	assert.True(t, plan.ReadOnly)
	assert.ElementsMatch(t, []string{"read", "glob", "grep"}, plan.AllowedTools)
}

func TestExecute_UnknownAgentType(t *testing.T) {
	e := NewExecutor(&fakeClient{}, testModels())
	inv := e.Execute(context.Background(), Params{SubagentType: types.AgentType("Bogus"), Prompt: "hi"})
	assert.False(t, inv.OK)
	assert.Contains(t, inv.Error, "unknown agent type")
}

func TestExecute_ReturnsConcatenatedText(t *testing.T) {
	e := NewExecutor(&fakeClient{text: "the answer"}, testModels())
	inv := e.Execute(context.Background(), Params{SubagentType: types.AgentSummarize, Prompt: "summarize this"})
	require.True(t, inv.OK)
	assert.Equal(t, "the answer", inv.Output)
	assert.NotEmpty(t, inv.AgentID)
}

// failingClient always fails ChatStream with an exhausted-retry ProviderError.
type failingClient struct{}

func (f *failingClient) Chat(ctx context.Context, req provider.ChatRequest) (provider.ChatResponse, error) {
	return provider.ChatResponse{}, &provider.ProviderError{Status: 500, Message: "server_error: overloaded"}
}

func (f *failingClient) ChatStream(ctx context.Context, req provider.ChatRequest) (<-chan provider.StreamChunk, error) {
	return nil, &provider.ProviderError{Status: 500, Message: "server_error: overloaded"}
}

func (f *failingClient) GetModels(ctx context.Context) ([]string, error) { return nil, nil }

func TestExecute_ProviderFailureReturnsNotOK(t *testing.T) {
	e := NewExecutor(&failingClient{}, testModels())
	inv := e.Execute(context.Background(), Params{SubagentType: types.AgentSummarize, Prompt: "summarize this"})
	assert.False(t, inv.OK, "a terminal provider error must not be reported as a successful invocation")
	assert.NotEmpty(t, inv.Error)
}

func TestExecute_SummarizeFormatsContextIntoSingleUserMessage(t *testing.T) {
	client := &fakeClient{text: "summary"}
	e := NewExecutor(client, testModels())
	inv := e.Execute(context.Background(), Params{
		SubagentType: types.AgentSummarize,
		Prompt:       "summarize the above",
		Context: []types.Message{
			{Role: types.RoleUser, Content: "what does this function do?"},
			{Role: types.RoleAssistant, Content: "it parses the config file"},
		},
	})
	require.True(t, inv.OK)
	assert.Equal(t, "summary", inv.Output)
	require.NotEmpty(t, client.lastRequest.Messages)
	sent := client.lastRequest.Messages[len(client.lastRequest.Messages)-1]
	assert.Contains(t, sent.Content, "what does this function do?")
	assert.Contains(t, sent.Content, "it parses the config file")
	assert.Contains(t, sent.Content, "summarize the above")
}

func TestFormatContextForSummarize_FoldsTranscriptAndPrompt(t *testing.T) {
	out := formatContextForSummarize([]types.Message{
		{Role: types.RoleUser, Content: "hello"},
		{Role: types.RoleAssistant, Content: "hi there"},
	}, "summarize this")
	assert.Equal(t, "user: hello\nassistant: hi there\n\nsummarize this", out)
}

func TestExecute_ResumeShortCircuitsOnCompleted(t *testing.T) {
	e := NewExecutor(&fakeClient{text: "first run"}, testModels())
	first := e.Execute(context.Background(), Params{SubagentType: types.AgentTitleGen, Prompt: "title this"})
	require.True(t, first.OK)

	resumed := e.Execute(context.Background(), Params{Resume: first.AgentID})
	assert.Equal(t, first.Output, resumed.Output)
	assert.Equal(t, first.AgentID, resumed.AgentID)
}
