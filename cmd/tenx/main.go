// Command tenx is the interactive CLI front-end for the 10x core library.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "tenx [prompt]",
		Short: "Chat with the 10x AI coding assistant",
		Long: `10x routes each message to the right model tier, runs tools under a
permission policy, and persists conversation state across runs.

Examples:
  tenx "what does internal/router do?"
  tenx --continue
  tenx -m smart "refactor this function"
  tenx --execute /review`,
		Args: cobra.ArbitraryArgs,
		RunE: runChat,
	}

	root.Flags().Bool("byok", false, "use a locally-configured API key instead of a hosted auth token")
	root.Flags().StringP("model", "m", "", "force a model tier for this run (superfast|fast|smart)")
	root.Flags().StringP("resume", "r", "", "resume the session with this name or id")
	root.Flags().BoolP("continue", "c", false, "resume the most recently updated session")
	root.Flags().StringP("execute", "x", "", "run a superpower by its trigger instead of a free-form prompt")
	root.Flags().BoolP("quiet", "q", false, "suppress tool-call and streaming chrome, print only the final answer")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
