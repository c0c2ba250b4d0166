package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/supremeagent/droidexec/pkg/sdk"
)

func newRunCommand() *cobra.Command {
	var (
		args   sdk.ToolArgs
		format string
	)

	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run droid once and print the result",
		Long: "Run droid once and print the result.\n\n" +
			"The prompt is taken from the argument or from --file. " +
			"The exit status is 1 when the run did not succeed.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			if len(positional) == 1 {
				args.Prompt = positional[0]
			}

			outFormat := sdk.Format(format)
			if outFormat != sdk.FormatYAML && outFormat != sdk.FormatJSON {
				return fmt.Errorf("unknown --format %q, expected yaml or json", format)
			}

			client := sdk.New()
			defer client.Shutdown()

			res, err := client.Execute(cmd.Context(), args)
			if err != nil {
				return err
			}

			text, err := sdk.EncodeOutput(sdk.NewOutput(res), outFormat)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)

			if !res.Success {
				return errRunFailed
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&args.File, "file", "f", "", "Read the prompt from a file (mutually exclusive with the prompt argument)")
	flags.StringVarP(&args.Auto, "auto", "a", "", "Autonomy level: low, medium, high (omit for read-only)")
	flags.StringVarP(&args.SessionID, "session-id", "s", "", "Resume a previously started droid session")
	flags.StringVarP(&args.Cwd, "cwd", "C", "", "Working directory (default: current directory)")
	flags.StringVarP(&args.Model, "model", "m", "", "Model to use (overrides the configured default)")
	flags.StringVar(&args.EnabledTools, "enabled-tools", "", "Tools to enable (comma or space separated)")
	flags.StringVar(&args.DisabledTools, "disabled-tools", "", "Tools to disable (comma or space separated)")
	flags.IntVarP(&args.TimeoutSecs, "timeout", "t", 0, "Timeout in seconds (default: 600, max: 3600)")
	flags.StringVarP(&args.ReasoningEffort, "reasoning-effort", "r", "", "Reasoning effort: low, medium, high")
	flags.BoolVar(&args.UseSpec, "use-spec", false, "Plan in specification mode before executing")
	flags.StringVar(&args.SpecModel, "spec-model", "", "Model for the specification phase")
	flags.BoolVar(&args.SkipPermissionsUnsafe, "skip-permissions-unsafe", false, "Skip ALL permission checks (isolated environments only)")
	flags.StringVarP(&args.OutputFormat, "output-format", "o", "", "Droid output format: stream-json or stream-jsonrpc")
	flags.StringVar(&format, "format", string(sdk.FormatYAML), "Result encoding: yaml or json")
	return cmd
}
