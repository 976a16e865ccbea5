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

// failingClient always fails ChatStream with an exhausted-retry ProviderError.
type failingClient struct{}

func (c *failingClient) Chat(ctx context.Context, req provider.ChatRequest) (provider.ChatResponse, error) {
	return provider.ChatResponse{}, &provider.ProviderError{Status: 500, Message: "server_error: overloaded"}
}

func (c *failingClient) ChatStream(ctx context.Context, req provider.ChatRequest) (<-chan provider.StreamChunk, error) {
	return nil, &provider.ProviderError{Status: 500, Message: "server_error: overloaded"}
}

func (c *failingClient) GetModels(ctx context.Context) ([]string, error) { return nil, nil }

func TestEngine_StepProviderFailureTerminatesUnsuccessfully(t *testing.T) {
	client := &failingClient{}
	registry := tools.NewRegistry()

	store, err := session.NewStore(t.TempDir())
	require.NoError(t, err)
	sessions := session.NewManager(store)
	_, err = sessions.Create(session.CreateParams{ModelTier: types.TierFast})
	require.NoError(t, err)

	r := router.New(client, registry, sessions, router.Config{
		Models:      router.ModelTable{types.TierFast: "fake-fast-model"},
		DefaultTier: types.TierFast,
	})
	engine := NewEngine(r)

	sp := &types.Superpower{
		Trigger: "/demo",
		Steps: []types.SuperpowerStep{
			{Number: 1, Name: "only step", ModelTier: types.TierFast, PromptTemplate: "do {{input}}"},
			{Number: 2, Name: "never reached", ModelTier: types.TierFast, PromptTemplate: "should not run"},
		},
	}

	var gotEvents []Event
	for ev := range engine.Run(context.Background(), sp, Vars{UserInput: "thing"}) {
		gotEvents = append(gotEvents, ev)
	}

	var sawStepError bool
	for _, ev := range gotEvents {
		if ev.Kind == EventStepError {
			sawStepError = true
			assert.Equal(t, 1, ev.Step)
		}
		assert.NotEqual(t, 2, ev.Step, "the second step must never run after the first fails")
	}
	assert.True(t, sawStepError, "a terminal provider error must emit step_error")

	last := gotEvents[len(gotEvents)-1]
	require.Equal(t, EventComplete, last.Kind)
	assert.False(t, last.Result.Success, "the workflow must terminate with success=false on a step provider failure")
}
