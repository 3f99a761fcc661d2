// Package discover enumerates candidate invoice PDFs under an input root and
// validates the one-statement-per-file assumption before any extraction work
// starts.
package discover

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoInvoices is returned when no candidate files remain after filtering.
var ErrNoInvoices = errors.New("no invoice PDF files found")

// PageCountError reports a candidate that violates the one-page-per-file
// assumption. It aborts the whole discovery; a multi-page file must not be
// silently partially processed.
type PageCountError struct {
	Path  string
	Pages int
}

func (e *PageCountError) Error() string {
	return fmt.Sprintf("invoice %s has %d pages, expected exactly 1", e.Path, e.Pages)
}

// PageCounter queries the page count of a PDF file.
type PageCounter interface {
	PageCount(ctx context.Context, path string) (int, error)
}

// Finder locates invoice PDFs.
type Finder struct {
	counter PageCounter
	logger  *slog.Logger
}

func New(counter PageCounter, logger *slog.Logger) *Finder {
	return &Finder{counter: counter, logger: logger}
}

// Find returns the invoice PDFs under root in deterministic walk order.
// Files whose basename appears in exclude are skipped; this is how the
// tool's own prior output files sitting in the input directory are ignored.
// Any candidate with a page count other than 1 aborts the discovery.
func (f *Finder) Find(ctx context.Context, root string, recursive bool, exclude map[string]struct{}) ([]string, error) {
	candidates, err := f.listPDFs(root, recursive, exclude)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoInvoices, root)
	}

	for _, path := range candidates {
		pages, err := f.counter.PageCount(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("query page count of %s: %w", path, err)
		}
		if pages != 1 {
			return nil, &PageCountError{Path: path, Pages: pages}
		}
	}

	f.logger.Info("found invoice PDF files", "count", len(candidates))
	return candidates, nil
}

func (f *Finder) listPDFs(root string, recursive bool, exclude map[string]struct{}) ([]string, error) {
	var pdfs []string

	keep := func(path string) {
		base := filepath.Base(path)
		if !strings.EqualFold(filepath.Ext(base), ".pdf") {
			return
		}
		if _, skip := exclude[base]; skip {
			f.logger.Debug("skipping excluded file", "path", path)
			return
		}
		pdfs = append(pdfs, path)
	}

	if recursive {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				keep(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
		return pdfs, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", root, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			keep(filepath.Join(root, entry.Name()))
		}
	}
	return pdfs, nil
}
