package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/interceder"
	"github.com/xraph/interceder/api"
	"github.com/xraph/interceder/internal/command"
	"github.com/xraph/interceder/observability"
	"github.com/xraph/interceder/signature"
)

var (
	version string
	commit  string
	date    string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var (
		app = command.New("interceder",
			command.WithBuildInfo(version, commit, date),
		)
		cmd = newCommand(ctx, app)
	)

	app.Register(cmd.PersistentFlags())

	if err := cmd.Execute(); err != nil {
		die(err)
	}
}

func die(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func newCommand(ctx context.Context, app *command.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:              "interceder",
		Short:            "Webhook relay with topic caching and replay",
		Args:             cobra.NoArgs,
		PersistentPreRun: app.Init,
		Version:          app.BuildInfo.String(),
	}

	cmd.AddCommand(
		newServeCommand(ctx, app),
		newCheckCommand(app),
		newSecretCommand(app),
	)

	return cmd
}

func newServeCommand(ctx context.Context, app *command.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(ctx, app)
		},
		SilenceUsage: true,
	}

	app.RegisterServe(cmd.Flags())

	return cmd
}

func serve(ctx context.Context, app *command.App) error {
	logger := slog.Default()

	m, err := app.LoadManifest()
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	shutdownTracing, err := observability.SetupTracing(ctx, app.Tracing())
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("tracing shutdown", tint.Err(err))
		}
	}()

	store, err := app.OpenStore(ctx)
	if err != nil {
		return fmt.Errorf("open %s store: %w", app.Store, err)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts, err := app.Options(m, store, observability.NewMetrics(reg))
	if err != nil {
		return err
	}
	ic, err := interceder.New(opts...)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              m.Address,
		Handler:           api.NewHandler(ic, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			"address", m.Address,
			"target", m.DisplayURL,
			"store", app.Store,
			"topics", len(m.Topics),
		)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

func newCheckCommand(app *command.App) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the manifest and print the resolved relay rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := app.LoadManifest()
			if err != nil {
				return err
			}
			return app.Render(m.View())
		},
		SilenceUsage: true,
	}
}

func newSecretCommand(app *command.App) *cobra.Command {
	return &cobra.Command{
		Use:   "secret",
		Short: "Print a random secret for webhook.rehash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(app.Out, signature.GenerateSecret())
			return nil
		},
	}
}
