package pdf

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"

	"github.com/gen2brain/go-fitz"

	"github.com/zombor/ttn-recognizer/internal/document"
	"github.com/zombor/ttn-recognizer/internal/imaging"
)

type RasterConfig struct {
	VisionDPI  float64 // first page for the vision model; default 150
	OCRDPI     float64 // every page for OCR; default 300
	MaxPages   int     // 0 = no limit
	ScratchDir string  // default os.TempDir()
}

// Rasterizer renders PDF pages with MuPDF.
type Rasterizer struct {
	cfg    RasterConfig
	logger *slog.Logger
}

// NewRasterizer creates a Rasterizer, filling unset config values with defaults.
func NewRasterizer(cfg RasterConfig, logger *slog.Logger) *Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.VisionDPI <= 0 {
		cfg.VisionDPI = 150
	}
	if cfg.OCRDPI <= 0 {
		cfg.OCRDPI = 300
	}
	return &Rasterizer{cfg: cfg, logger: logger}
}

// FirstPage renders page 1 of a PDF into a temporary PNG file. The caller
// must run cleanup once done with the file; cleanup is never nil.
func (r *Rasterizer) FirstPage(ctx context.Context, path string) (string, func(), error) {
	noop := func() {}

	doc, err := fitz.New(path)
	if err != nil {
		return "", noop, fmt.Errorf("%w: opening pdf: %v", document.ErrFileUnreadable, err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return "", noop, fmt.Errorf("%w: pdf has no pages", document.ErrFileUnreadable)
	}
	if err := ctx.Err(); err != nil {
		return "", noop, err
	}

	data, err := doc.ImagePNG(0, r.cfg.VisionDPI)
	if err != nil {
		return "", noop, fmt.Errorf("rendering PDF page: %w", err)
	}

	f, err := os.CreateTemp(r.cfg.ScratchDir, "ttn-page-*.png")
	if err != nil {
		return "", noop, fmt.Errorf("creating temp page: %w", err)
	}
	name := f.Name()
	cleanup := func() {
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			r.logger.Warn("removing temp page failed", "path", name, "error", err)
		}
	}

	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return "", noop, fmt.Errorf("writing temp page: %w", err)
	}

	r.logger.Debug("rendered first page", "path", path, "dpi", r.cfg.VisionDPI, "tmp", name)
	return name, cleanup, nil
}

// Pages returns every page of the document as an image. PDFs are rendered at
// the OCR resolution; image files are decoded as a single page.
func (r *Rasterizer) Pages(ctx context.Context, path string) ([]image.Image, error) {
	if !document.IsPDF(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", document.ErrFileUnreadable, err)
		}
		img, err := imaging.Decode(data, document.MimeType(path))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", document.ErrFileUnreadable, err)
		}
		return []image.Image{img}, nil
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening pdf: %v", document.ErrFileUnreadable, err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if r.cfg.MaxPages > 0 && n > r.cfg.MaxPages {
		r.logger.Warn("pdf page count over limit, truncating", "path", path, "pages", n, "limit", r.cfg.MaxPages)
		n = r.cfg.MaxPages
	}

	pages := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.ImageDPI(i, r.cfg.OCRDPI)
		if err != nil {
			return nil, fmt.Errorf("rendering page %d: %w", i+1, err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}
