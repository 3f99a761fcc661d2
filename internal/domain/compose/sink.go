package compose

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"
)

// Sink serializes a sequence of bitmap pages as a paginated PDF document.
type Sink struct {
	dpi    int
	logger *slog.Logger
}

func NewSink(dpi int, logger *slog.Logger) *Sink {
	return &Sink{dpi: dpi, logger: logger}
}

// WritePDF writes one PDF page per bitmap, each page sized to its bitmap at
// the sink's DPI. The file is published atomically; a failed write leaves
// nothing behind.
func (s *Sink) WritePDF(pages []image.Image, path string) error {
	if len(pages) == 0 {
		return fmt.Errorf("no pages to write to %s", path)
	}

	first := pageSizePt(pages[0], s.dpi)
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           first,
	})
	pdf.SetAutoPageBreak(false, 0)

	for i, page := range pages {
		size := pageSizePt(page, s.dpi)
		pdf.AddPageFormat("P", size)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, page, nil); err != nil {
			return fmt.Errorf("encode page %d: %w", i+1, err)
		}
		name := fmt.Sprintf("page-%d", i+1)
		opts := gofpdf.ImageOptions{ImageType: "JPEG"}
		pdf.RegisterImageOptionsReader(name, opts, &buf)
		pdf.ImageOptions(name, 0, 0, size.Wd, size.Ht, false, opts, 0, "")
	}
	if pdf.Err() {
		return fmt.Errorf("assemble PDF %s: %w", path, pdf.Error())
	}

	if err := publish(pdf, path); err != nil {
		return err
	}
	s.logger.Info("wrote paginated PDF", "path", path, "pages", len(pages))
	return nil
}

func pageSizePt(page image.Image, dpi int) gofpdf.SizeType {
	b := page.Bounds()
	return gofpdf.SizeType{
		Wd: float64(b.Dx()) / float64(dpi) * 72,
		Ht: float64(b.Dy()) / float64(dpi) * 72,
	}
}

func publish(pdf *gofpdf.Fpdf, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".minvoice-*.pdf")
	if err != nil {
		return fmt.Errorf("create temp PDF: %w", err)
	}
	tmpName := tmp.Name()

	if err := pdf.Output(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write PDF: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp PDF: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish PDF: %w", err)
	}
	return nil
}
