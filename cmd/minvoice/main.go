// Command minvoice reads single-page carrier billing statement PDFs from a
// directory and produces a quarterly statistics spreadsheet plus a printable
// A4 PDF with two statement images per sheet.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sccotte/minvoice/internal/domain/pipeline"
	"github.com/sccotte/minvoice/internal/poppler"
	"github.com/sccotte/minvoice/pkg/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flag.StringVar(&cfg.Input.Dir, "input", cfg.Input.Dir, "directory containing the invoice PDF files")
	flag.StringVar(&cfg.Output.Dir, "output", cfg.Output.Dir, "directory for the generated artifacts")
	flag.BoolVar(&cfg.Input.Recursive, "recursive", cfg.Input.Recursive, "scan subdirectories of the input directory")
	flag.IntVar(&cfg.Poppler.DPI, "dpi", cfg.Poppler.DPI, "rasterization resolution in dots per inch")
	flag.BoolVar(&cfg.Output.DoAnalysis, "analysis", cfg.Output.DoAnalysis, "extract billing facts and write the statistics spreadsheet")
	flag.BoolVar(&cfg.Output.RawPDF, "raw-pdf", cfg.Output.RawPDF, "also write an uncomposed one-image-per-page PDF")
	flag.StringVar(&cfg.Poppler.Path, "poppler-path", cfg.Poppler.Path, "directory holding the poppler binaries (default: use PATH)")
	flag.DurationVar(&cfg.Poppler.ExecTimeout, "timeout", cfg.Poppler.ExecTimeout, "per-call timeout for the poppler tools")
	flag.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "log level: debug, info, warn or error")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		flag.Usage()
		return err
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := poppler.New(cfg.Poppler.Path, cfg.Poppler.ExecTimeout, logger)
	p := pipeline.New(client, client, client, logger)

	start := time.Now()
	if err := p.Run(ctx, pipeline.Options{
		InputDir:        cfg.Input.Dir,
		OutputDir:       cfg.Output.Dir,
		OutputFilenames: cfg.OutputFilenames(),
		Recursive:       cfg.Input.Recursive,
		DPI:             cfg.Poppler.DPI,
		DoAnalysis:      cfg.Output.DoAnalysis,
	}); err != nil {
		logger.Error("run failed", "error", err)
		return err
	}
	logger.Info("all artifacts written", "output_dir", cfg.Output.Dir, "elapsed", time.Since(start))
	return nil
}

// newLogger builds a slog logger writing to stderr and, mirroring the
// previous tool's log file, to a text file in the output directory.
func newLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	level, err := parseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}

	writers := []io.Writer{os.Stderr}
	closeLog := func() {}
	if cfg.Logging.LogFile != "" {
		path := cfg.Logging.LogFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Output.Dir, path)
		}
		fd, err := os.Create(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, fd)
		closeLog = func() { fd.Close() }
	}

	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: level})
	return slog.New(handler), closeLog, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
