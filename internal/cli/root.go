// Package cli wires the sopflow commands.
package cli

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit string) {
	appVersion = version
	appCommit = commit
}

type rootOptions struct {
	settingsPath string
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "sopflow",
		Short: "Turn standard operating procedures into editable process flows",
		Long: `sopflow reads a standard operating procedure, asks a language model to
structure it into sub-processes, tasks and steps with automation potential,
and lets you refine the result by chat before rendering a final document.

Run "sopflow serve" for the web API or "sopflow analyze" for a one-shot run.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}
	root.PersistentFlags().StringVar(&opts.settingsPath, "settings", "", "settings file (default $SOPFLOW_SETTINGS or sopflow.yaml)")

	root.AddCommand(
		newServeCmd(opts),
		newAnalyzeCmd(opts),
		newSettingsCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "sopflow %s\ncommit: %s\n", appVersion, appCommit)
			},
		},
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
