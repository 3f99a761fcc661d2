// Package poppler wraps the poppler-utils command line tools (pdftotext,
// pdfinfo, pdftoppm) used as the pipeline's text-extraction and rasterization
// collaborators. Every invocation runs under a context deadline and gets one
// bounded retry, since subprocess spawning is the only operation in the
// pipeline subject to transient OS-level flakiness.
package poppler

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "image/jpeg"
	_ "image/png"
)

// Runner executes an external command and returns its stdout and stderr.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// Client invokes the poppler tools for one pipeline run.
type Client struct {
	runner  Runner
	path    string
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a poppler Client. popplerPath optionally names a directory
// holding the poppler binaries (bundled poppler on Windows); when empty the
// tools are resolved from PATH.
func New(popplerPath string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		runner:  &execRunner{popplerPath: popplerPath},
		path:    popplerPath,
		timeout: timeout,
		logger:  logger,
	}
}

// NewWithRunner creates a Client with a custom Runner, for tests.
func NewWithRunner(r Runner, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{runner: r, timeout: timeout, logger: logger}
}

// Text extracts the layout-preserved text of a PDF file.
// pdftotext -layout -enc UTF-8 -eol unix <pdf> -
func (c *Client) Text(ctx context.Context, pdfPath string) (string, error) {
	out, errb, err := c.run(ctx, "pdftotext", "-layout", "-enc", "UTF-8", "-eol", "unix", pdfPath, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext %s: %w (stderr: %s)", pdfPath, err, strings.TrimSpace(string(errb)))
	}
	return string(out), nil
}

// PageCount returns the number of pages in a PDF file, per pdfinfo.
func (c *Client) PageCount(ctx context.Context, pdfPath string) (int, error) {
	out, errb, err := c.run(ctx, "pdfinfo", pdfPath)
	if err != nil {
		return 0, fmt.Errorf("pdfinfo %s: %w (stderr: %s)", pdfPath, err, strings.TrimSpace(string(errb)))
	}
	n, err := parsePageCount(string(out))
	if err != nil {
		return 0, fmt.Errorf("pdfinfo %s: %w", pdfPath, err)
	}
	return n, nil
}

// Rasterize renders every page of a PDF file to a bitmap at the given DPI.
// The intermediate image files live in a temp dir removed on all paths.
func (c *Client) Rasterize(ctx context.Context, pdfPath string, dpi int) ([]image.Image, error) {
	tmpDir, err := os.MkdirTemp("", "minvoice-ppm-*")
	if err != nil {
		return nil, fmt.Errorf("create raster temp dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			c.logger.Warn("failed to remove raster temp dir", "dir", tmpDir, "error", rmErr)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	_, errb, err := c.run(ctx, "pdftoppm", "-r", strconv.Itoa(dpi), "-jpeg", pdfPath, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm %s: %w (stderr: %s)", pdfPath, err, strings.TrimSpace(string(errb)))
	}

	matches, _ := filepath.Glob(prefix + "-*.jpg")
	sortRenderedPages(matches)
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm %s: no pages rendered", pdfPath)
	}

	images := make([]image.Image, 0, len(matches))
	for _, name := range matches {
		img, err := decodeImageFile(name)
		if err != nil {
			return nil, fmt.Errorf("decode rendered page %s: %w", name, err)
		}
		images = append(images, img)
	}
	return images, nil
}

// run applies the per-call timeout and retries once. A parent-context
// cancellation is never retried.
func (c *Client) run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error) {
	for attempt := 0; attempt < 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		stdout, stderr, err = c.runner.Run(callCtx, name, args...)
		cancel()
		if err == nil {
			return stdout, stderr, nil
		}
		if ctx.Err() != nil {
			return nil, stderr, ctx.Err()
		}
		if attempt == 0 {
			c.logger.Warn("poppler command failed, retrying once",
				"command", name, "error", err)
		}
	}
	return nil, stderr, err
}

func parsePageCount(pdfinfoOut string) (int, error) {
	for _, line := range strings.Split(pdfinfoOut, "\n") {
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
		if err != nil {
			return 0, fmt.Errorf("malformed Pages line %q: %w", line, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("no Pages line in pdfinfo output")
}

// sortRenderedPages orders pdftoppm output files by their numeric page
// suffix, so page-10 sorts after page-2 even when the suffix is not
// zero-padded. Files without a parseable suffix fall back to name order.
func sortRenderedPages(paths []string) {
	sort.Slice(paths, func(i, j int) bool {
		ni, iok := pageNumber(paths[i])
		nj, jok := pageNumber(paths[j])
		if iok && jok && ni != nj {
			return ni < nj
		}
		return paths[i] < paths[j]
	})
}

func pageNumber(path string) (int, bool) {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	idx := strings.LastIndexByte(base, '-')
	if idx < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(base[idx+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

func decodeImageFile(name string) (image.Image, error) {
	fd, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	img, _, err := image.Decode(fd)
	return img, err
}

// execRunner runs commands through os/exec.
type execRunner struct {
	popplerPath string
}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	if r.popplerPath != "" {
		name = filepath.Join(r.popplerPath, name)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if r.popplerPath != "" {
		env := os.Environ()
		env = append(env, "LD_LIBRARY_PATH="+r.popplerPath+":"+os.Getenv("LD_LIBRARY_PATH"))
		cmd.Env = env
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
