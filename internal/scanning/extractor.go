package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/zombor/ttn-recognizer/internal/document"
	"github.com/zombor/ttn-recognizer/internal/imaging"
)

const (
	DefaultTextTimeout   = 30 * time.Second
	DefaultVisionTimeout = 60 * time.Second
)

// TextExtractor asks a Scanner for structured data from plain text.
type TextExtractor struct {
	scanner Scanner
	timeout time.Duration
	logger  *slog.Logger
}

// NewTextExtractor creates a TextExtractor. A nil scanner is allowed and
// means no service is configured.
func NewTextExtractor(scanner Scanner, timeout time.Duration, logger *slog.Logger) *TextExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTextTimeout
	}
	return &TextExtractor{scanner: scanner, timeout: timeout, logger: logger}
}

// Extract returns the recognized document, or nil when the service is not
// configured or its answer could not be used.
func (e *TextExtractor) Extract(ctx context.Context, text string) *document.RecognizedDocument {
	if e.scanner == nil {
		e.logger.Debug("skipping text extraction", "reason", document.ErrServiceUnconfigured)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	answer, err := e.scanner.ScanText(ctx, text)
	if err != nil {
		logFailure(e.logger, "text extraction failed", classify(ctx, err))
		return nil
	}
	doc, err := parseDocument(answer, e.logger)
	if err != nil {
		logFailure(e.logger, "text extraction failed", err)
		return nil
	}

	e.logger.Info("text extraction finished", "items", len(doc.Items), "duration", time.Since(start))
	return doc
}

// VisionExtractor asks a Scanner for structured data from a page image.
type VisionExtractor struct {
	scanner Scanner
	timeout time.Duration
	logger  *slog.Logger
}

// NewVisionExtractor creates a VisionExtractor. A nil scanner is allowed and
// means no service is configured.
func NewVisionExtractor(scanner Scanner, timeout time.Duration, logger *slog.Logger) *VisionExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultVisionTimeout
	}
	return &VisionExtractor{scanner: scanner, timeout: timeout, logger: logger}
}

// Extract reads the image at imagePath and returns the recognized document,
// or nil when nothing usable came back.
func (e *VisionExtractor) Extract(ctx context.Context, imagePath string) *document.RecognizedDocument {
	if e.scanner == nil {
		e.logger.Debug("skipping vision extraction", "reason", document.ErrServiceUnconfigured)
		return nil
	}

	raw, err := os.ReadFile(imagePath)
	if err != nil {
		logFailure(e.logger, "vision extraction failed", fmt.Errorf("%w: %v", document.ErrFileUnreadable, err))
		return nil
	}
	data, mimeType, err := imaging.Prepare(raw, document.MimeType(imagePath))
	if err != nil {
		logFailure(e.logger, "vision extraction failed", fmt.Errorf("%w: %v", document.ErrFileUnreadable, err))
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	answer, err := e.scanner.ScanImage(ctx, data, mimeType)
	if err != nil {
		logFailure(e.logger, "vision extraction failed", classify(ctx, err))
		return nil
	}
	doc, err := parseDocument(answer, e.logger)
	if err != nil {
		logFailure(e.logger, "vision extraction failed", err)
		return nil
	}

	e.logger.Info("vision extraction finished", "items", len(doc.Items), "mime", mimeType, "duration", time.Since(start))
	return doc
}

// classify tags deadline and cancellation errors as request failures.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, document.ErrServiceRequest) || errors.Is(err, document.ErrServiceResponse) {
		return err
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", document.ErrServiceRequest, err)
	}
	return err
}

func logFailure(logger *slog.Logger, msg string, err error) {
	kind := "unexpected"
	switch {
	case errors.Is(err, document.ErrServiceRequest):
		kind = "request"
	case errors.Is(err, document.ErrServiceResponse):
		kind = "response"
	case errors.Is(err, document.ErrFileUnreadable):
		kind = "file"
	}
	logger.Warn(msg, "kind", kind, "error", err)
}
