package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"realestate-watch/internal/app"
	"realestate-watch/internal/config"
)

func bootstrapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Record the lowest listing ID currently in the feed",
		Long:  `crawler bootstrap. Run once before the first nightly plan.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				status, err := a.Runner.Bootstrap(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, status)
			})
		},
	}
}

func planCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Plan tonight's batch of new listing IDs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				_, err := a.Runner.Plan(ctx)
				return err
			})
		},
	}
}

func dispatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch",
		Short: "Scrape the listings that are due now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app.App) error {
				summary, err := a.Runner.Dispatch(ctx)
				if err != nil {
					return err
				}
				a.Logger.Info("dispatch finished", "due", summary.Due, "ran", summary.Ran, "failed", len(summary.Failures))
				return nil
			})
		},
	}
}

func pruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Drop completed jobs older than the retention horizon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				_, err := a.Runner.Prune(ctx)
				return err
			})
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the scheduler state as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				status, err := a.Runner.Status(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, status)
			})
		},
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the cron timetable and the HTTP API",
		Long:  `crawler serve [--port=<port>]`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, true, func(ctx context.Context, a *app.App) error {
				return a.Serve(ctx)
			})
		},
	}
	cmd.Flags().StringP("port", "p", "", "HTTP port (overrides HTTP_PORT)")
	return cmd
}

// withApp loads the configuration, applies flag overrides and builds the
// application for the lifetime of fn. The context is cancelled on SIGINT
// or SIGTERM.
func withApp(cmd *cobra.Command, useDatabase bool, fn func(context.Context, *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.StatePath = getFlagString(cmd, "state", cfg.StatePath)
	cfg.StateBackend = getFlagString(cmd, "backend", cfg.StateBackend)
	cfg.HTTPPort = getFlagString(cmd, "port", cfg.HTTPPort)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewBuilder(&cfg, app.WithDatabase(useDatabase)).Build(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			application.Logger.Error("shutdown error", "error", err)
		}
	}()

	if err := fn(ctx, application); err != nil {
		application.Logger.Error(cmd.Name()+" failed", "error", err)
		return err
	}
	return nil
}

func getFlagString(cmd *cobra.Command, name, fallback string) string {
	if f := cmd.Flags().Lookup(name); f != nil && f.Value.String() != "" {
		return f.Value.String()
	}
	return fallback
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
