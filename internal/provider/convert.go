package provider

import (
	"github.com/openai/openai-go"

	"github.com/tenx-dev/core/internal/types"
)

// toSDKMessages converts the session log into the SDK's message union,
// stripping orphaned tool calls/results so the wire history always satisfies
// the Message invariant (tool messages carry a tool_call_id matching a prior
// assistant tool_calls[i].id) even if upstream compaction or a bug produced
// a mismatch. Grounded on the reference's buildMessages sanitisation pass.
func toSDKMessages(messages []types.Message) []openai.ChatCompletionMessageParamUnion {
	responded := make(map[string]bool)
	issued := make(map[string]bool)
	for _, m := range messages {
		if m.Role == types.RoleTool && m.ToolCallID != "" {
			responded[m.ToolCallID] = true
		}
		if m.Role == types.RoleAssistant {
			for _, tc := range m.ToolCalls {
				issued[tc.ID] = true
			}
		}
	}

	var out []openai.ChatCompletionMessageParamUnion
	for _, m := range messages {
		switch m.Role {
		case types.RoleUser:
			if m.Text() == "" {
				continue
			}
			out = append(out, openai.UserMessage(m.Text()))

		case types.RoleSystem:
			if m.Text() == "" {
				continue
			}
			out = append(out, openai.SystemMessage(m.Text()))

		case types.RoleAssistant:
			var calls []openai.ChatCompletionMessageToolCallParam
			for _, tc := range m.ToolCalls {
				if !responded[tc.ID] {
					continue
				}
				args, _ := marshalInput(tc.Input)
				calls = append(calls, openai.ChatCompletionMessageToolCallParam{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: args,
					},
				})
			}
			content := m.Text()
			if content == "" && len(calls) == 0 {
				continue
			}
			msg := openai.ChatCompletionAssistantMessageParam{Role: "assistant"}
			if content != "" {
				msg.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(content),
				}
			}
			if len(calls) > 0 {
				msg.ToolCalls = calls
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &msg})

		case types.RoleTool:
			if m.ToolCallID == "" || !issued[m.ToolCallID] {
				continue
			}
			out = append(out, openai.ToolMessage(m.Text(), m.ToolCallID))
		}
	}
	return out
}

func fromSDKCompletion(c *openai.ChatCompletion) ChatResponse {
	resp := ChatResponse{}
	if len(c.Choices) > 0 {
		choice := c.Choices[0]
		resp.Content = choice.Message.Content
		resp.FinishReason = string(choice.FinishReason)
		for _, tc := range choice.Message.ToolCalls {
			input, _ := unmarshalInput(tc.Function.Arguments)
			resp.ToolCalls = append(resp.ToolCalls, types.ToolCall{
				ID:     tc.ID,
				Name:   tc.Function.Name,
				Input:  input,
				Status: types.ToolCallPending,
			})
		}
	}
	resp.Usage = &types.TokenUsage{
		Input:  int(c.Usage.PromptTokens),
		Output: int(c.Usage.CompletionTokens),
	}
	return resp
}

func convertChunk(chunk openai.ChatCompletionChunk) StreamChunk {
	out := StreamChunk{}
	if len(chunk.Choices) > 0 {
		choice := chunk.Choices[0]
		out.Delta.Content = choice.Delta.Content
		out.FinishReason = string(choice.FinishReason)
		for _, tc := range choice.Delta.ToolCalls {
			out.Delta.ToolCalls = append(out.Delta.ToolCalls, ToolCallDelta{
				Index:             int(tc.Index),
				ID:                tc.ID,
				Name:              tc.Function.Name,
				ArgumentsFragment: tc.Function.Arguments,
			})
		}
	}
	if chunk.Usage.TotalTokens > 0 {
		out.Usage = &types.TokenUsage{
			Input:  int(chunk.Usage.PromptTokens),
			Output: int(chunk.Usage.CompletionTokens),
		}
	}
	return out
}
