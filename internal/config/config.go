// Package config loads the Configuration Surface from spec §6: environment
// variables and an optional .env file, the same pattern the reference uses
// for local credential loading via joho/godotenv.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"

	"github.com/tenx-dev/core/internal/types"
)

// AuthMode distinguishes BYOK (the caller supplies their own API key) from
// hosted mode (a signed auth token issued by the billing backend).
type AuthMode string

const (
	AuthBYOK   AuthMode = "byok"
	AuthHosted AuthMode = "hosted"
)

// Config is the Configuration Surface from spec §6.
type Config struct {
	Mode        AuthMode
	APIKey      string
	AuthToken   string
	BaseURL     string
	DefaultTier types.ModelTier
	RoutingMode types.ModelTier
	SystemPrompt string

	Permissions map[string]types.ToolPermissions

	MaxRetries    int
	RetryDelayMs  int
	MaxToolHops   int
	BashTimeoutMs int

	GlobalSkillsRoot  string
	ProjectSkillsRoot string
}

// Load reads environment variables (after merging a .env file in the
// current working directory, if present) into a Config. byok forces AuthMode to BYOK regardless of
// whether an auth token is also present (spec §6 `--byok` flag).
func Load(byok bool) (Config, error) {
	_ = godotenv.Load() // best-effort; absence of .env is not an error

	cfg := Config{
		APIKey:        os.Getenv("TENX_API_KEY"),
		AuthToken:     os.Getenv("TENX_AUTH_TOKEN"),
		BaseURL:       os.Getenv("TENX_BASE_URL"),
		DefaultTier:   types.ModelTier(envOr("TENX_DEFAULT_TIER", string(types.TierFast))),
		RoutingMode:   types.ModelTier(envOr("TENX_ROUTING_MODE", string(types.TierAuto))),
		SystemPrompt:  os.Getenv("TENX_SYSTEM_PROMPT"),
		MaxRetries:    envInt("TENX_MAX_RETRIES", 3),
		RetryDelayMs:  envInt("TENX_RETRY_DELAY_MS", 500),
		MaxToolHops:   envInt("TENX_MAX_TOOL_HOPS", 25),
		BashTimeoutMs: envInt("TENX_BASH_TIMEOUT_MS", 120_000),
	}

	home, _ := os.UserHomeDir()
	cfg.GlobalSkillsRoot = envOr("TENX_GLOBAL_SUPERPOWERS_DIR", filepath.Join(home, ".config", "10x"))
	cfg.ProjectSkillsRoot = envOr("TENX_PROJECT_SUPERPOWERS_DIR", "./.10x")

	if byok || cfg.AuthToken == "" {
		cfg.Mode = AuthBYOK
		if cfg.APIKey == "" {
			return cfg, fmt.Errorf("config: BYOK mode requires TENX_API_KEY")
		}
	} else {
		cfg.Mode = AuthHosted
		if err := validateHostedToken(cfg.AuthToken); err != nil {
			return cfg, fmt.Errorf("config: invalid auth token: %w", err)
		}
	}
	return cfg, nil
}

// validateHostedToken parses (without verifying signature against a remote
// key set the core does not own) the hosted-mode bearer token as a JWT, the
// same library the reference uses in its HTTP auth middleware, to catch
// malformed tokens at startup rather than at the first request.
func validateHostedToken(token string) error {
	parser := jwt.NewParser()
	_, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// RetryDelay returns RetryDelayMs as a time.Duration.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}
