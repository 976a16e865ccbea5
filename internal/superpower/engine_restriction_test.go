package superpower

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenx-dev/core/internal/provider"
	"github.com/tenx-dev/core/internal/router"
	"github.com/tenx-dev/core/internal/session"
	"github.com/tenx-dev/core/internal/tools"
	"github.com/tenx-dev/core/internal/types"
)

// recordingClient captures the tool names offered on each ChatStream call
// so the test can assert which registry a step actually ran against.
type recordingClient struct {
	toolNamesByCall [][]string
}

func (c *recordingClient) Chat(ctx context.Context, req provider.ChatRequest) (provider.ChatResponse, error) {
	return provider.ChatResponse{}, nil
}

func (c *recordingClient) ChatStream(ctx context.Context, req provider.ChatRequest) (<-chan provider.StreamChunk, error) {
	var names []string
	for _, td := range req.Tools {
		names = append(names, td.Name)
	}
	c.toolNamesByCall = append(c.toolNamesByCall, names)

	out := make(chan provider.StreamChunk, 1)
	out <- provider.StreamChunk{Delta: provider.StreamChunkDelta{Content: "ok"}, FinishReason: "stop"}
	close(out)
	return out, nil
}

func (c *recordingClient) GetModels(ctx context.Context) ([]string, error) { return nil, nil }

func TestEngine_PerStepToolRestrictionNarrowsRegistry(t *testing.T) {
	client := &recordingClient{}
	full := tools.NewRegistry()
	full.RegisterDefaults(0)

	store, err := session.NewStore(t.TempDir())
	require.NoError(t, err)
	sessions := session.NewManager(store)
	_, err = sessions.Create(session.CreateParams{ModelTier: types.TierFast})
	require.NoError(t, err)

	r := router.New(client, full, sessions, router.Config{
		Models:      router.ModelTable{types.TierFast: "fake-fast-model"},
		DefaultTier: types.TierFast,
	})
	engine := NewEngine(r)

	sp := &types.Superpower{
		Trigger: "/demo",
		Steps: []types.SuperpowerStep{
			{Number: 1, Name: "restricted", ModelTier: types.TierFast, PromptTemplate: "do {{input}}", Tools: []string{"read", "glob"}},
			{Number: 2, Name: "unrestricted", ModelTier: types.TierFast, PromptTemplate: "then do more"},
		},
	}

	var gotEvents []Event
	for ev := range engine.Run(context.Background(), sp, Vars{UserInput: "thing"}) {
		gotEvents = append(gotEvents, ev)
	}
	last := gotEvents[len(gotEvents)-1]
	require.Equal(t, EventComplete, last.Kind)
	assert.True(t, last.Result.Success)

	require.Len(t, client.toolNamesByCall, 2)
	assert.ElementsMatch(t, []string{"glob", "read"}, client.toolNamesByCall[0], "step 1 must only see its restricted tool set")
	assert.ElementsMatch(t, full.Names(), client.toolNamesByCall[1], "step 2 without a tools marker must see the full registry")
}
