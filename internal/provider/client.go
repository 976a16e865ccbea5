package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/shared"

	"github.com/tenx-dev/core/internal/logging"
	"github.com/tenx-dev/core/internal/types"
)

// Config configures an OpenAIClient.
type Config struct {
	APIKey      string
	BaseURL     string
	HTTPReferer string // sent as HTTP-Referer, spec §6
	Title       string // sent as X-Title, spec §6
	MaxRetries  int
	RetryDelay  time.Duration // base delay for exponential backoff
}

// OpenAIClient is the reference Client implementation: it wraps the official
// openai-go SDK (the same dependency the reference agent uses for its own
// OpenAI provider) and layers the spec's custom retry/backoff/classification
// policy on top, with the SDK's built-in retries disabled so only one retry
// loop is ever in effect.
type OpenAIClient struct {
	sdk    openai.Client
	cfg    Config
	rng    *rand.Rand
	logger interface {
		Debug(msg string, args ...any)
		Warn(msg string, args ...any)
	}
}

// NewOpenAIClient builds a Client against cfg.BaseURL (or the SDK default).
func NewOpenAIClient(cfg Config) *OpenAIClient {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0), // the spec's retry loop owns attempt timing
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPReferer != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.HTTPReferer))
	}
	if cfg.Title != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.Title))
	}
	return &OpenAIClient{
		sdk:    openai.NewClient(opts...),
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logging.With("provider"),
	}
}

func (c *OpenAIClient) buildParams(req ChatRequest) (openai.ChatCompletionNewParams, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(req.Model),
	}
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, toSDKMessages(req.Messages)...)
	params.Messages = messages

	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if len(req.Tools) > 0 {
		tools := make([]openai.ChatCompletionToolParam, 0, len(req.Tools))
		for _, t := range req.Tools {
			var schema map[string]any
			if err := json.Unmarshal(t.InputSchema, &schema); err != nil {
				return params, fmt.Errorf("tool %s: invalid schema: %w", t.Name, err)
			}
			tools = append(tools, openai.ChatCompletionToolParam{
				Function: shared.FunctionDefinitionParam{
					Name:        t.Name,
					Description: openai.String(t.Description),
					Parameters:  shared.FunctionParameters(schema),
				},
			})
		}
		params.Tools = tools
	}
	return params, nil
}

// Chat performs a non-streaming chat-completions request, retrying
// transient failures per spec §4.1.
func (c *OpenAIClient) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	params, err := c.buildParams(req)
	if err != nil {
		return ChatResponse{}, err
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		completion, err := c.sdk.Chat.Completions.New(ctx, params)
		if err == nil {
			return fromSDKCompletion(completion), nil
		}
		if ctx.Err() != nil {
			return ChatResponse{}, CancellationOutcome{}
		}
		status, header, body := inspectSDKError(err)
		retryable := classify(status, body)
		lastErr = &ProviderError{Status: status, Retryable: retryable, Message: body}
		if !retryable || attempt == c.cfg.MaxRetries-1 {
			break
		}
		delay := retryAfterDelay(header, attempt, c.cfg.RetryDelay, c.rng)
		c.logger.Debug("retrying chat completion", "attempt", attempt+1, "delay", delay, "status", status)
		if !sleepOrCancel(delay, ctx.Done()) {
			return ChatResponse{}, CancellationOutcome{}
		}
	}
	return ChatResponse{}, lastErr
}

// ChatStream opens a streaming chat-completions request. Retry is only
// attempted while establishing the connection; once the first chunk has been
// yielded, any further failure is terminal (spec §4.1 Streaming).
func (c *OpenAIClient) ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error) {
	params, err := c.buildParams(req)
	if err != nil {
		return nil, err
	}
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{IncludeUsage: openai.Bool(true)}

	var stream *openAIStream
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		s := c.sdk.Chat.Completions.NewStreaming(ctx, params)
		if s.Err() == nil {
			stream = &openAIStream{raw: s}
			break
		}
		if ctx.Err() != nil {
			return nil, CancellationOutcome{}
		}
		status, header, body := inspectSDKError(s.Err())
		retryable := classify(status, body)
		lastErr = &ProviderError{Status: status, Retryable: retryable, Message: body}
		if !retryable || attempt == c.cfg.MaxRetries-1 {
			return nil, lastErr
		}
		delay := retryAfterDelay(header, attempt, c.cfg.RetryDelay, c.rng)
		if !sleepOrCancel(delay, ctx.Done()) {
			return nil, CancellationOutcome{}
		}
	}
	if stream == nil {
		return nil, lastErr
	}

	out := make(chan StreamChunk, 64)
	go c.pump(ctx, stream, out)
	return out, nil
}

type openAIStream struct {
	raw *ssestream.Stream[openai.ChatCompletionChunk]
}

// pump drains the SDK stream into our StreamChunk channel, never retrying
// mid-stream, and stopping promptly on ctx cancellation.
func (c *OpenAIClient) pump(ctx context.Context, s *openAIStream, out chan<- StreamChunk) {
	defer close(out)
	defer s.raw.Close()

	for s.raw.Next() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		chunk := s.raw.Current()
		converted := convertChunk(chunk)
		select {
		case out <- converted:
		case <-ctx.Done():
			return
		}
	}
	if err := s.raw.Err(); err != nil && ctx.Err() == nil {
		c.logger.Warn("stream terminated with error", "err", err)
	}
}

// GetModels lists available upstream model ids.
func (c *OpenAIClient) GetModels(ctx context.Context) ([]string, error) {
	page, err := c.sdk.Models.List(ctx)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, m := range page.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func inspectSDKError(err error) (status int, header http.Header, body string) {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
		if apiErr.Response != nil {
			header = apiErr.Response.Header
		}
		body = apiErr.Message
		if body == "" {
			body = apiErr.Error()
		}
		return
	}
	return 0, nil, err.Error()
}
