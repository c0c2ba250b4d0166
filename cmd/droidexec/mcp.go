package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mylxsw/asteria/log"
	"github.com/spf13/cobra"
	"github.com/supremeagent/droidexec/internal/mcpserver"
	"github.com/supremeagent/droidexec/pkg/sdk"
)

func newMCPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the droid tool over MCP on stdio (default)",
		Long: "Serve the droid tool over the Model Context Protocol on stdio.\n\n" +
			"Example MCP client configuration:\n" +
			"  {\n    \"mcpServers\": {\n      \"droid\": {\"command\": \"/path/to/droidexec\"}\n    }\n  }",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd.Context())
		},
	}
}

func runMCP(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := sdk.New()
	defer client.Shutdown()

	log.Debugf("serving MCP on stdio, version %s", version)
	srv := mcpserver.New(client, os.Stdin, os.Stdout, mcpserver.Options{Version: version})
	return srv.Serve(ctx)
}
