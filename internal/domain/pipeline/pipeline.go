// Package pipeline sequences the whole batch run: discover the invoice
// PDFs, extract and aggregate the billing facts, render the statistics
// spreadsheet, then rasterize every page and compose the printable A4 PDF.
// Any stage error aborts the run; no partial artifacts survive.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/sccotte/minvoice/internal/domain/aggregate"
	"github.com/sccotte/minvoice/internal/domain/compose"
	"github.com/sccotte/minvoice/internal/domain/discover"
	"github.com/sccotte/minvoice/internal/domain/extract"
	"github.com/sccotte/minvoice/internal/domain/report"
)

// TextExtractor recovers the layout-preserved text of a PDF file.
type TextExtractor interface {
	Text(ctx context.Context, path string) (string, error)
}

// Rasterizer renders the pages of a PDF file to bitmaps.
type Rasterizer interface {
	Rasterize(ctx context.Context, path string, dpi int) ([]image.Image, error)
}

// Options parameterize one run.
type Options struct {
	InputDir  string
	OutputDir string
	// OutputFilenames maps logical artifact names ("stats", "pdf" and
	// optionally "raw") to file names. The values double as the
	// discovery exclusion list.
	OutputFilenames map[string]string
	Recursive       bool
	DPI             int
	// DoAnalysis false skips extraction, aggregation and the spreadsheet;
	// only the composed PDF is produced.
	DoAnalysis bool
}

// Pipeline owns the run sequencing.
type Pipeline struct {
	finder    *discover.Finder
	extractor *extract.Extractor
	renderer  *report.Renderer
	text      TextExtractor
	raster    Rasterizer
	logger    *slog.Logger
}

// New wires the pipeline. text, raster and counter are the external PDF
// collaborators; in production all three are the poppler client.
func New(text TextExtractor, raster Rasterizer, counter discover.PageCounter, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		finder:    discover.New(counter, logger),
		extractor: extract.New(logger),
		renderer:  report.New(logger),
		text:      text,
		raster:    raster,
		logger:    logger,
	}
}

// Run executes one batch.
func (p *Pipeline) Run(ctx context.Context, opts Options) error {
	logger := p.logger.With("run_id", uuid.NewString())

	exclude := make(map[string]struct{}, len(opts.OutputFilenames))
	for _, name := range opts.OutputFilenames {
		exclude[name] = struct{}{}
	}

	logger.Info("finding invoice PDF files", "dir", opts.InputDir, "recursive", opts.Recursive)
	pdfs, err := p.finder.Find(ctx, opts.InputDir, opts.Recursive, exclude)
	if err != nil {
		return err
	}
	logger.Info("invoice PDF files", "paths", pdfs)

	if opts.DoAnalysis {
		if err := p.analyze(ctx, logger, pdfs, opts); err != nil {
			return err
		}
	}

	logger.Info("rasterizing invoice PDF pages", "dpi", opts.DPI)
	var pages []image.Image
	for _, pdfPath := range pdfs {
		imgs, err := p.raster.Rasterize(ctx, pdfPath, opts.DPI)
		if err != nil {
			return err
		}
		pages = append(pages, imgs...)
	}

	sink := compose.NewSink(opts.DPI, logger)
	if rawName, ok := opts.OutputFilenames["raw"]; ok {
		if err := sink.WritePDF(pages, filepath.Join(opts.OutputDir, rawName)); err != nil {
			return err
		}
	}

	logger.Info("composing pages two per A4 sheet")
	sheets := compose.Compose(pages, compose.A4Pixels(opts.DPI))
	outPath := filepath.Join(opts.OutputDir, opts.OutputFilenames["pdf"])
	if err := sink.WritePDF(sheets, outPath); err != nil {
		return err
	}

	logger.Info("run done")
	return nil
}

func (p *Pipeline) analyze(ctx context.Context, logger *slog.Logger, pdfs []string, opts Options) error {
	logger.Info("searching text in the invoice PDF files")
	records := make([]extract.Record, 0, len(pdfs))
	for _, pdfPath := range pdfs {
		text, err := p.text.Text(ctx, pdfPath)
		if err != nil {
			return err
		}
		rec, err := p.extractor.Parse(text)
		if err != nil {
			logger.Error("failed to extract billing fields", "path", pdfPath, "text", text)
			return fmt.Errorf("extract %s: %w", pdfPath, err)
		}
		rec.Source = pdfPath
		records = append(records, rec)
	}

	logger.Info("aggregating billing records", "count", len(records))
	result, err := aggregate.Aggregate(records)
	if err != nil {
		return err
	}

	statsPath := filepath.Join(opts.OutputDir, opts.OutputFilenames["stats"])
	return p.renderer.Write(result, statsPath)
}
