package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mylxsw/asteria/log"
	"github.com/spf13/cobra"
	"github.com/supremeagent/droidexec/internal/httpapi"
	"github.com/supremeagent/droidexec/internal/metrics"
	"github.com/supremeagent/droidexec/pkg/config"
	"github.com/supremeagent/droidexec/pkg/executor/droid"
	"github.com/supremeagent/droidexec/pkg/sdk"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	var (
		addr    string
		maxRuns int
		runTTL  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m := metrics.New()
			client := sdk.NewWithOptions(sdk.ClientOptions{
				Supervisor: droid.New(droid.Options{Config: config.Load()}),
				Hooks:      m.Hooks(sdk.Hooks{}),
				MaxRuns:    maxRuns,
				RunTTL:     runTTL,
			})

			router := httpapi.NewRouter(httpapi.NewHandler(client), m.Handler())
			server := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Infof("Starting server on %s", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Info("Shutting down server...")

				// Runs are cancelled first so open streams see their final events.
				client.Shutdown()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})

			err := g.Wait()
			log.Info("Server stopped")
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "Server address")
	cmd.Flags().IntVar(&maxRuns, "max-runs", 0, "Maximum number of retained runs (0 uses the default)")
	cmd.Flags().DurationVar(&runTTL, "run-ttl", 0, "How long finished runs are retained (0 uses the default)")
	return cmd
}
