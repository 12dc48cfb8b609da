package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"

	"edflex-sync/internal/repository"
)

// Options control WriteFile.
type Options struct {
	Path   string
	Brotli bool
	Filter repository.ListResourcesParams
}

// WriteFile exports the cached resources matching opts.Filter to opts.Path
// and returns the path written. With Brotli the output is compressed and
// ".br" is appended to the path. The file is written to a temporary name
// first and renamed when complete.
func WriteFile(ctx context.Context, store repository.CatalogRepository, opts Options) (string, error) {
	resources, err := store.ListResources(ctx, opts.Filter)
	if err != nil {
		return "", fmt.Errorf("export: list resources: %w", err)
	}

	target := opts.Path
	if target == "" {
		target = "edflex_resources.csv"
	}
	if opts.Brotli && !strings.HasSuffix(target, ".br") {
		target += ".br"
	}
	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("export: mkdir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("export: create: %w", err)
	}
	defer os.Remove(tmp.Name())

	var w io.Writer = tmp
	var bw *brotli.Writer
	if opts.Brotli {
		bw = brotli.NewWriterLevel(tmp, brotli.DefaultCompression)
		w = bw
	}
	if err := WriteResourcesCSV(w, resources); err != nil {
		tmp.Close()
		return "", fmt.Errorf("export: write: %w", err)
	}
	if bw != nil {
		if err := bw.Close(); err != nil {
			tmp.Close()
			return "", fmt.Errorf("export: compress: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("export: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("export: rename: %w", err)
	}
	return target, nil
}
