// Command tenx-proxy exposes the 10x core over HTTP: an OpenAI-compatible
// chat-completions endpoint backed by the Router, and the tool registry
// over MCP. It is a thin consumer of the core library, not part of it.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tenx-dev/core/internal/config"
	"github.com/tenx-dev/core/internal/logging"
	"github.com/tenx-dev/core/internal/mcpserver"
	"github.com/tenx-dev/core/internal/permission"
	"github.com/tenx-dev/core/internal/provider"
	"github.com/tenx-dev/core/internal/router"
	"github.com/tenx-dev/core/internal/session"
	"github.com/tenx-dev/core/internal/tools"
	"github.com/tenx-dev/core/internal/types"
)

func main() {
	log := logging.With("proxy")

	cfg, err := config.Load(true)
	if err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}

	store, err := session.NewStore(os.TempDir() + "/10x-proxy-sessions")
	if err != nil {
		log.Error("session store", "err", err)
		os.Exit(1)
	}
	sessions := session.NewManager(store)
	if _, err := sessions.Create(session.CreateParams{ModelTier: cfg.DefaultTier}); err != nil {
		log.Error("create session", "err", err)
		os.Exit(1)
	}

	client := provider.NewOpenAIClient(provider.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay(),
	})

	registry := tools.NewRegistry()
	registry.RegisterDefaults(cfg.BashTimeoutMs)
	registry.SetPermissionManager(permission.NewManager(func(_ context.Context, _, _, _ string) (bool, error) {
		return true, nil
	}))

	r := router.New(client, registry, sessions, router.Config{
		Models: router.ModelTable{
			types.TierSuperfast: envOrDefault("TENX_MODEL_SUPERFAST", "gpt-4o-mini"),
			types.TierFast:      envOrDefault("TENX_MODEL_FAST", "gpt-4o"),
			types.TierSmart:     envOrDefault("TENX_MODEL_SMART", "gpt-4.1"),
		},
		DefaultTier:  cfg.DefaultTier,
		SystemPrompt: cfg.SystemPrompt,
		MaxToolHops:  cfg.MaxToolHops,
	})

	mcp := mcpserver.NewServer(registry)

	mux := chi.NewRouter()
	mux.Use(middleware.Logger)
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.Timeout(5 * time.Minute))

	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Post("/v1/chat/completions", handleChatCompletions(r))
	mux.Mount("/mcp", mcp.Handler())

	addr := ":" + envOrDefault("TENX_PROXY_PORT", "8787")
	log.Info("listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}

type chatCompletionRequest struct {
	Model    string          `json:"model"`
	Messages []types.Message `json:"messages"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func handleChatCompletions(r *router.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body chatCompletionRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
			return
		}
		forcedTier := types.TierAuto
		if body.Model != "" {
			forcedTier = types.ModelTier(body.Model)
		}

		content, tier, _, err := r.Complete(req.Context(), body.Messages, forcedTier)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}

		resp := chatCompletionResponse{Object: "chat.completion"}
		resp.Choices = make([]struct {
			Index   int `json:"index"`
			Message struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		}, 1)
		resp.Choices[0].Message.Role = "assistant"
		resp.Choices[0].Message.Content = content
		resp.Choices[0].FinishReason = "stop"
		_ = tier

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
