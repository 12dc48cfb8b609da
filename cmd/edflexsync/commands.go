package main

import (
	"context"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"edflex-sync/internal/export"
	"edflex-sync/internal/repository"
	"edflex-sync/internal/sftpclient"
	"edflex-sync/internal/sync"
)

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func newSyncCommand(flags *rootFlags, use, short string, mode sync.Mode) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			start := time.Now()
			results, err := a.sweeper().Run(ctx, a.cfg, mode)
			for _, r := range results {
				a.log.Info("sync: scope finished",
					zap.String("mode", string(mode)),
					zap.String("scope", r.Scope),
					zap.Int("catalogs", r.Result.Catalogs),
					zap.Int("upserted", r.Result.ResourcesUpserted),
					zap.Int("deleted", r.Result.ResourcesDeleted),
					zap.Int("failed", r.Result.ResourcesFailed),
					zap.Error(r.Err),
				)
			}
			a.log.Info("sync: finished", zap.String("mode", string(mode)), zap.Duration("elapsed", time.Since(start)))
			return err
		},
	}
}

func newRefreshCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Update course blocks whose resource snapshot drifted from the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			_, err = a.refresher().Run(ctx)
			return err
		},
	}
}

type exportFlags struct {
	out      string
	brotli   bool
	upload   bool
	catalogs []string
	language string
	typ      string
	category string
}

func newExportCommand(flags *rootFlags) *cobra.Command {
	ef := &exportFlags{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the cached resources to a CSV file, optionally uploading it over SFTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			opts := export.Options{
				Path:   a.cfg.Export.Path,
				Brotli: a.cfg.Export.Brotli,
				Filter: repository.ListResourcesParams{
					CatalogIDs: ef.catalogs,
					CategoryID: ef.category,
					Language:   ef.language,
					Type:       ef.typ,
				},
			}
			if cmd.Flags().Changed("out") {
				opts.Path = ef.out
			}
			if cmd.Flags().Changed("brotli") {
				opts.Brotli = ef.brotli
			}
			upload := a.cfg.Export.Upload
			if cmd.Flags().Changed("upload") {
				upload = ef.upload
			}
			return runExport(ctx, a, opts, upload)
		},
	}
	f := cmd.Flags()
	f.StringVar(&ef.out, "out", "", "output path (defaults to export.path)")
	f.BoolVar(&ef.brotli, "brotli", false, "compress the output with brotli")
	f.BoolVar(&ef.upload, "upload", false, "upload the file over SFTP")
	f.StringSliceVar(&ef.catalogs, "catalog", nil, "restrict to these catalog ids")
	f.StringVar(&ef.language, "language", "", "restrict to one language")
	f.StringVar(&ef.typ, "type", "", "restrict to one resource type")
	f.StringVar(&ef.category, "category", "", "restrict to one category id")
	return cmd
}

func runExport(ctx context.Context, a *app, opts export.Options, upload bool) error {
	path, err := export.WriteFile(ctx, a.store, opts)
	if err != nil {
		return err
	}
	a.log.Info("export: written", zap.String("path", path))
	if !upload {
		return nil
	}

	upCfg := sftpclient.FromConfig(a.cfg.SFTP)
	upCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	remote := filepath.Base(path)
	if err := sftpclient.UploadFile(upCtx, upCfg, path, remote); err != nil {
		return err
	}
	a.log.Info("export: uploaded",
		zap.String("host", upCfg.Host),
		zap.Int("port", upCfg.Port),
		zap.String("remote", upCfg.RemoteDir+"/"+remote),
	)
	return nil
}
