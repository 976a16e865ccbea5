package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tenx-dev/core/internal/config"
	"github.com/tenx-dev/core/internal/permission"
	"github.com/tenx-dev/core/internal/provider"
	"github.com/tenx-dev/core/internal/router"
	"github.com/tenx-dev/core/internal/session"
	"github.com/tenx-dev/core/internal/superpower"
	"github.com/tenx-dev/core/internal/tools"
	"github.com/tenx-dev/core/internal/types"
)

func runChat(cmd *cobra.Command, args []string) error {
	byok, _ := cmd.Flags().GetBool("byok")
	modelFlag, _ := cmd.Flags().GetString("model")
	resumeFlag, _ := cmd.Flags().GetString("resume")
	continueFlag, _ := cmd.Flags().GetBool("continue")
	executeFlag, _ := cmd.Flags().GetString("execute")
	quiet, _ := cmd.Flags().GetBool("quiet")

	cfg, err := config.Load(byok)
	if err != nil {
		return err
	}

	dataDir, err := os.UserHomeDir()
	if err != nil {
		dataDir = "."
	}
	sessionsDir := filepath.Join(dataDir, ".config", "10x", "sessions")
	store, err := session.NewStore(sessionsDir)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	sessions := session.NewManager(store)

	switch {
	case resumeFlag != "":
		if _, err := sessions.LoadByName(resumeFlag); err != nil {
			if _, err := sessions.Load(resumeFlag); err != nil {
				return fmt.Errorf("resuming %q: %w", resumeFlag, err)
			}
		}
	case continueFlag:
		if _, err := sessions.ResumeLast(); err != nil {
			if _, err := sessions.Create(session.CreateParams{ModelTier: cfg.DefaultTier}); err != nil {
				return err
			}
		}
	default:
		if _, err := sessions.Create(session.CreateParams{ModelTier: cfg.DefaultTier}); err != nil {
			return err
		}
	}

	apiKey := cfg.APIKey
	if cfg.Mode == config.AuthHosted {
		apiKey = cfg.AuthToken
	}
	client := provider.NewOpenAIClient(provider.Config{
		APIKey:      apiKey,
		BaseURL:     cfg.BaseURL,
		HTTPReferer: "https://10x.dev",
		Title:       "10x",
		MaxRetries:  cfg.MaxRetries,
		RetryDelay:  cfg.RetryDelay(),
	})

	registry := tools.NewRegistry()
	registry.RegisterDefaults(cfg.BashTimeoutMs)

	pm := permission.NewManager(func(ctx context.Context, tool, key, reason string) (bool, error) {
		return promptApproval(tool, key, reason)
	})
	registry.SetPermissionManager(pm)

	cwd, _ := os.Getwd()
	r := router.New(client, registry, sessions, router.Config{
		Models:       defaultModelTable(),
		DefaultTier:  cfg.DefaultTier,
		SystemPrompt: cfg.SystemPrompt,
		MaxToolHops:  cfg.MaxToolHops,
	})
	if modelFlag != "" {
		r.SetDefaultTier(types.ModelTier(modelFlag))
	}

	loader := superpower.NewLoader(cfg.GlobalSkillsRoot, cfg.ProjectSkillsRoot)
	if err := loader.LoadAll(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: loading superpowers: %v\n", err)
	}
	engine := superpower.NewEngine(r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted")
		cancel()
	}()

	if executeFlag != "" {
		sp, ok := loader.Get(executeFlag)
		if !ok {
			return fmt.Errorf("no superpower registered for trigger %q", executeFlag)
		}
		return runSuperpower(ctx, engine, sp, strings.Join(args, " "), cwd, quiet)
	}

	if len(args) == 0 {
		runInteractive(ctx, r, sessions, loader, engine, cwd, quiet)
		return nil
	}

	return runOnce(ctx, r, sessions, strings.Join(args, " "), quiet)
}

func defaultModelTable() router.ModelTable {
	return router.ModelTable{
		types.TierSuperfast: envOrDefault("TENX_MODEL_SUPERFAST", "gpt-4o-mini"),
		types.TierFast:      envOrDefault("TENX_MODEL_FAST", "gpt-4o"),
		types.TierSmart:     envOrDefault("TENX_MODEL_SMART", "gpt-4.1"),
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runOnce(ctx context.Context, r *router.Router, sessions *session.Manager, prompt string, quiet bool) error {
	if err := sessions.AddMessage(types.Message{Role: types.RoleUser, Content: prompt}); err != nil {
		return err
	}
	events, err := r.Stream(ctx, []types.Message{{Role: types.RoleUser, Content: prompt}}, router.StreamOptions{})
	if err != nil {
		return err
	}
	for ev := range events {
		printEvent(ev, quiet)
	}
	fmt.Println()
	return nil
}

func runInteractive(ctx context.Context, r *router.Router, sessions *session.Manager, loader *superpower.Loader, engine *superpower.Engine, cwd string, quiet bool) {
	fmt.Println("10x interactive mode. Type your message, /help for commands, Ctrl+C to exit.")
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if handleSlashCommand(line, sessions) {
				continue
			}
		}

		if sp, ok := loader.Get(strings.Fields(line)[0]); ok {
			rest := strings.TrimSpace(strings.TrimPrefix(line, strings.Fields(line)[0]))
			if err := runSuperpower(ctx, engine, sp, rest, cwd, quiet); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			continue
		}

		if err := sessions.AddMessage(types.Message{Role: types.RoleUser, Content: line}); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		events, err := r.Stream(ctx, []types.Message{{Role: types.RoleUser, Content: line}}, router.StreamOptions{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		for ev := range events {
			printEvent(ev, quiet)
		}
		fmt.Println()
	}
}

func runSuperpower(ctx context.Context, engine *superpower.Engine, sp *types.Superpower, userInput, cwd string, quiet bool) error {
	events := engine.Run(ctx, sp, superpower.Vars{UserInput: userInput, Cwd: cwd})
	for ev := range events {
		switch ev.Kind {
		case superpower.EventStepStart:
			if !quiet {
				fmt.Printf("\n--- step %d ---\n", ev.Step)
			}
		case superpower.EventStepText:
			fmt.Print(ev.Text)
		case superpower.EventStepError:
			fmt.Fprintf(os.Stderr, "\nstep %d failed: %s\n", ev.Step, ev.Error)
		case superpower.EventComplete:
			if ev.Result != nil && !ev.Result.Success {
				return fmt.Errorf("superpower did not complete successfully")
			}
		}
	}
	fmt.Println()
	return nil
}

func printEvent(ev types.Event, quiet bool) {
	switch ev.Kind {
	case types.EventText:
		fmt.Print(ev.Content)
	case types.EventToolCall:
		if !quiet && ev.ToolCall != nil {
			fmt.Printf("\n[tool: %s]\n", ev.ToolCall.Name)
		}
	case types.EventToolResult:
		if !quiet && ev.ToolCall != nil && ev.ToolCall.Output != nil {
			preview := ev.ToolCall.Output.Text
			if len(preview) > 200 {
				preview = preview[:200] + "..."
			}
			fmt.Println(preview)
		}
	case types.EventDone:
		printDoneError(ev)
	}
}

// printDoneError displays a terminal provider error line (spec §7): the
// error itself, plus an upgrade hint for the hosted-mode usage-limit case.
func printDoneError(ev types.Event) {
	if ev.Err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "\nerror: %v\n", ev.Err)
	var perr *provider.ProviderError
	if errors.As(ev.Err, &perr) && perr.UsageLimitExceeded() {
		fmt.Fprintln(os.Stderr, "You've hit your monthly usage limit. Upgrade your plan to keep going.")
	}
}

func handleSlashCommand(cmd string, sessions *session.Manager) bool {
	switch {
	case cmd == "/help":
		fmt.Println(`Commands:
  /help     - show this help
  /clear    - clear current session
  /sessions - list saved sessions
  /quit     - exit`)
		return true
	case cmd == "/clear":
		if err := sessions.Clear(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		} else {
			fmt.Println("Session cleared.")
		}
		return true
	case cmd == "/sessions":
		list, err := sessions.List()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return true
		}
		for _, s := range list {
			fmt.Printf("  %s  %s  updated %s\n", s.ID, s.Name, s.UpdatedAt.Format(time.RFC3339))
		}
		return true
	case cmd == "/quit" || cmd == "/exit":
		os.Exit(0)
		return true
	}
	return false
}

func promptApproval(tool, key, reason string) (bool, error) {
	fmt.Printf("\nAllow %s on %q? %s [y/N] ", tool, key, reason)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes", nil
}
