package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/supremeagent/droidexec/pkg/config"
)

func newModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List custom models from the Factory configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := config.LoadRegistry(config.RegistryPath())
			out := cmd.OutOrStdout()

			models := registry.List()
			if len(models) == 0 {
				_, err := fmt.Fprintln(out, "No custom models configured.")
				return err
			}
			for _, m := range models {
				if _, err := fmt.Fprintln(out, m); err != nil {
					return err
				}
			}
			if ref := registry.DefaultRef(); ref != "" {
				_, err := fmt.Fprintf(out, "\nDefault: %s\n", ref)
				return err
			}
			return nil
		},
	}
}
