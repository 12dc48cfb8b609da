package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cronrunner "edflex-sync/internal/cron"
	"edflex-sync/internal/export"
	"edflex-sync/internal/server"
	"edflex-sync/internal/sync"
)

func newServeCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the browse API and run the scheduled jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	runner := cronrunner.New(a.log, ctx)
	if a.cfg.Cron.Enabled {
		if err := scheduleJobs(runner, a); err != nil {
			return err
		}
		runner.Start()
		defer runner.Stop()
	} else {
		a.log.Info("cron disabled")
	}

	handler := &server.Handler{
		Store:    a.store,
		Gatherer: a.registry,
		Ready:    a.ready,
		Logger:   a.log,
	}
	srv := &http.Server{
		Addr:              a.cfg.Server.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func scheduleJobs(runner *cronrunner.Runner, a *app) error {
	sweeper := a.sweeper()
	refresher := a.refresher()

	syncJob := func(mode sync.Mode) func(context.Context) {
		return func(ctx context.Context) {
			if _, err := sweeper.Run(ctx, a.cfg, mode); err != nil {
				a.log.Error("cron: sync failed", zap.String("mode", string(mode)), zap.Error(err))
			}
		}
	}
	jobs := []struct {
		name string
		spec string
		run  func(context.Context)
	}{
		{"full_sync", a.cfg.Cron.FullSync, syncJob(sync.ModeFull)},
		{"new_sync", a.cfg.Cron.NewSync, syncJob(sync.ModeNew)},
		{"refresh", a.cfg.Cron.Refresh, func(ctx context.Context) {
			if _, err := refresher.Run(ctx); err != nil {
				a.log.Error("cron: refresh failed", zap.Error(err))
			}
		}},
		{"export", a.cfg.Cron.Export, func(ctx context.Context) {
			opts := export.Options{Path: a.cfg.Export.Path, Brotli: a.cfg.Export.Brotli}
			if err := runExport(ctx, a, opts, a.cfg.Export.Upload); err != nil {
				a.log.Error("cron: export failed", zap.Error(err))
			}
		}},
	}
	for _, j := range jobs {
		if _, err := runner.Add(j.name, j.spec, j.run); err != nil {
			return err
		}
	}
	return nil
}
