// Package cli implements the schnabel command-line tool: audit run,
// rulepack validate/list, and version. Grounded on the teacher's
// internal/cli (one file per subcommand, package-level rootCmd, init()
// registration) and andymwolf-agentium's internal/cli/root.go for the
// cfgFile flag wired to cobra.OnInitialize.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gzhole/schnabel/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "schnabel",
	Short: "schnabel - audit gateway for LLM agent prompts, tool calls, and responses",
	Long: `schnabel inspects an agent turn's prompt, tool calls, tool results, and
response, runs it through a deterministic scanner chain, and renders a
policy decision (allow / allow_with_warning / challenge / block) backed by
a tamper-evident evidence package.`,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.schnabel/config.yaml)")
}

func initConfig() {
	if err := config.Init(cfgFile); err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
