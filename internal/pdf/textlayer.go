// Package pdf reads embedded text layers and renders PDF pages to images.
package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	pdfreader "github.com/ledongthuc/pdf"

	"github.com/zombor/ttn-recognizer/internal/document"
)

// TextLayer extracts text that a PDF already carries, without rendering.
type TextLayer struct {
	logger *slog.Logger
}

// NewTextLayer creates a TextLayer.
func NewTextLayer(logger *slog.Logger) *TextLayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextLayer{logger: logger}
}

// Extract returns the plain text of every page joined by newlines. The second
// result is false when the file could not be read as a PDF.
func (t *TextLayer) Extract(ctx context.Context, path string) (string, bool) {
	text, err := t.extract(ctx, path)
	if err != nil {
		t.logger.Warn("reading pdf text layer failed", "path", path, "error", err)
		return "", false
	}
	return text, true
}

func (t *TextLayer) extract(ctx context.Context, path string) (text string, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: pdf parser panic: %v", document.ErrFileUnreadable, r)
		}
	}()

	f, r, err := pdfreader.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening pdf: %v", document.ErrFileUnreadable, err)
	}
	defer f.Close()

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		s, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("reading page %d: %w", i, err)
		}
		pages = append(pages, s)
	}
	return strings.Join(pages, "\n"), nil
}
