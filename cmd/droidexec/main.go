package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

// errRunFailed makes the process exit with status 1 without printing usage.
var errRunFailed = errors.New("droid run failed")

const envHelp = `Environment variables:
  DROID_BIN                Override the droid binary path
                           (default: "droid", or "droid.exe" on Windows)
  DROID_MCP_CONFIG_PATH    Path to the execution defaults file
                           (default: ./droid-mcp.config.json)
  DROID_MCP_EXTRA_ARGS     Extra droid arguments, split with shell quoting rules

Configuration file (droid-mcp.config.json):
  {
    "additional_args": [],
    "timeout_secs": 600,
    "max_timeout_secs": 3600,
    "default_auto": "low",
    "default_model": "custom:GPT-5-0",
    "allow_high_autonomy": false
  }

Custom models are read from ~/.factory/config.json ("custom_models").
If a DROID.md file exists in the working directory, its content (up to 1 MB)
is prepended to the prompt.

Autonomy levels:
  (default)  read-only operations
  low        file creation and edits in project directories
  medium     package installs, git commits, local builds
  high       git push, deployments, script execution
`

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "droidexec",
		Short:         "Supervised, non-interactive runs of the Droid CLI",
		Long:          "droidexec runs the Droid CLI non-interactively and reports a structured result.\nWithout a subcommand it serves the droid tool over MCP on stdio.\n\n" + envHelp,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd.Context())
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")

	rootCmd.AddCommand(newMCPCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newModelsCommand())
	return rootCmd
}
