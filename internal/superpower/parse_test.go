package superpower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenx-dev/core/internal/types"
)

func TestParseSteps_ExtractsNumberNameTierAndPrompt(t *testing.T) {
	body := []byte(`## Step 1: Gather context (model: smart)

Look at {{input}} and summarize it.

## Step 2: Write the result

Use {{previous}} to draft the final answer.
`)
	steps, err := parseSteps(body)
	require.NoError(t, err)
	require.Len(t, steps, 2)

	assert.Equal(t, 1, steps[0].Number)
	assert.Equal(t, "Gather context", steps[0].Name)
	assert.Equal(t, types.TierSmart, steps[0].ModelTier)
	assert.Contains(t, steps[0].PromptTemplate, "Look at {{input}}")

	assert.Equal(t, 2, steps[1].Number)
	assert.Equal(t, "Write the result", steps[1].Name)
	assert.Equal(t, types.TierFast, steps[1].ModelTier, "missing (model: ...) suffix defaults to fast")
	assert.True(t, steps[1].UsesPrevious)
}

func TestParseSteps_NoMatchingHeadingsReturnsNil(t *testing.T) {
	body := []byte("# Not a step heading\n\njust text\n")
	steps, err := parseSteps(body)
	require.NoError(t, err)
	assert.Nil(t, steps)
}

func TestParseSteps_ExtractsToolsMarkerAndStripsItFromPrompt(t *testing.T) {
	body := []byte(`## Step 1: Investigate

<!-- tools: read, grep, bash -->

Explore the repository and report back.
`)
	steps, err := parseSteps(body)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, []string{"read", "grep", "bash"}, steps[0].Tools)
	assert.NotContains(t, steps[0].PromptTemplate, "tools:")
	assert.Contains(t, steps[0].PromptTemplate, "Explore the repository")
}

func TestParseSteps_DetectsMultimodalAndImageVars(t *testing.T) {
	body := []byte(`## Step 1: Look at the screenshot

Describe {{image}} in detail.
`)
	steps, err := parseSteps(body)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.True(t, steps[0].Multimodal)
}

func TestParseToolsMarker_NoMarkerReturnsNil(t *testing.T) {
	assert.Nil(t, parseToolsMarker("just a plain prompt with no marker"))
}

func TestParseToolsMarker_TrimsWhitespaceAroundEntries(t *testing.T) {
	tools := parseToolsMarker("<!-- tools: read,  grep ,bash -->")
	assert.Equal(t, []string{"read", "grep", "bash"}, tools)
}
