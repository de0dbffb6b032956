// Package pipeline chooses an extraction strategy for a TTN file and
// normalizes whatever that strategy produced into one canonical document.
//
// Strategies run strictly in order and the first one that yields items wins:
//
//	PDF with a text layer:  text model -> patterns over the same text
//	image or scanned PDF:   vision model -> OCR of every page -> patterns
//
// Results of different strategies are never merged.
package pipeline

import (
	"context"
	"image"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zombor/ttn-recognizer/internal/document"
	"github.com/zombor/ttn-recognizer/internal/pattern"
)

// TextLayerProbe reads the embedded text of a PDF.
type TextLayerProbe interface {
	Extract(ctx context.Context, path string) (string, bool)
}

// Rasterizer turns a document into images.
type Rasterizer interface {
	// FirstPage renders page 1 of a PDF to a temporary image file.
	FirstPage(ctx context.Context, path string) (imagePath string, cleanup func(), err error)
	// Pages returns every page at OCR resolution.
	Pages(ctx context.Context, path string) ([]image.Image, error)
}

// TextExtractor asks a language model to structure plain text.
type TextExtractor interface {
	Extract(ctx context.Context, text string) *document.RecognizedDocument
}

// VisionExtractor asks a vision model to structure a page image.
type VisionExtractor interface {
	Extract(ctx context.Context, imagePath string) *document.RecognizedDocument
}

// OCREngine reads plain text from a page image.
type OCREngine interface {
	ExtractText(ctx context.Context, img image.Image) string
}

type Config struct {
	// TextLayerMinChars is the trimmed text-layer length a PDF must exceed
	// to be treated as digital. Default 50.
	TextLayerMinChars int
	// Confidence scores assigned during normalization. Zero value means
	// document.DefaultConfidenceProfile.
	Confidence document.ConfidenceProfile
}

// Deps are the pipeline's collaborators. Any of them may be nil, in which
// case the strategies that need it are skipped.
type Deps struct {
	TextLayer  TextLayerProbe
	Rasterizer Rasterizer
	Text       TextExtractor
	Vision     VisionExtractor
	OCR        OCREngine
}

// Pipeline is safe for concurrent use when its dependencies are.
type Pipeline struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
}

// New creates a Pipeline, filling unset config values with defaults.
func New(cfg Config, deps Deps, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TextLayerMinChars <= 0 {
		cfg.TextLayerMinChars = 50
	}
	if cfg.Confidence == (document.ConfidenceProfile{}) {
		cfg.Confidence = document.DefaultConfidenceProfile()
	}
	return &Pipeline{cfg: cfg, deps: deps, logger: logger}
}

// Validate reports whether path can be recognized at all. The error wraps
// document.ErrUnsupportedFormat or document.ErrFileUnreadable.
func (p *Pipeline) Validate(path string) error {
	return document.CheckFile(path)
}

// Recognize runs the cascade on the file at path. It always returns a
// document; when nothing could be recognized the document is empty.
func (p *Pipeline) Recognize(ctx context.Context, path string) (doc *document.RecognizedDocument) {
	start := time.Now()
	logger := p.logger.With("path", path)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("recognition panicked", "panic", r)
			doc = document.Empty()
		}
		if !doc.HasItems() && doc.DocumentNumber == nil && doc.DocumentDate == nil && doc.Supplier == nil {
			doc.Strategy = document.StrategyNone
		}
		recognitionDuration.WithLabelValues(strategyLabel(doc.Strategy)).Observe(time.Since(start).Seconds())
		logger.Info("recognition finished",
			"strategy", strategyLabel(doc.Strategy),
			"items", len(doc.Items),
			"duration", time.Since(start),
		)
	}()

	if err := p.Validate(path); err != nil {
		logger.Warn("rejecting document", "error", err)
		observeAttempt("validate", outcomeRejected)
		return document.Empty()
	}

	if document.IsPDF(path) {
		if text, ok := p.textLayer(ctx, path); ok {
			return p.fromText(ctx, logger, text)
		}
	}
	return p.fromImage(ctx, logger, path)
}

// textLayer returns the PDF's embedded text when it is long enough to trust.
func (p *Pipeline) textLayer(ctx context.Context, path string) (string, bool) {
	if p.deps.TextLayer == nil {
		return "", false
	}
	text, ok := p.deps.TextLayer.Extract(ctx, path)
	if !ok {
		return "", false
	}
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n <= p.cfg.TextLayerMinChars {
		p.logger.Debug("text layer too short, treating pdf as scanned", "path", path, "chars", n)
		return "", false
	}
	return text, true
}

func (p *Pipeline) fromText(ctx context.Context, logger *slog.Logger, text string) *document.RecognizedDocument {
	if p.deps.Text != nil {
		if doc := p.deps.Text.Extract(ctx, text); doc.HasItems() {
			observeAttempt(string(document.StrategyTextLLM), outcomeHit)
			return p.normalize(doc, document.ProvenanceLLM, document.StrategyTextLLM)
		}
		observeAttempt(string(document.StrategyTextLLM), outcomeEmpty)
		logger.Info("text model gave no items, falling back to patterns")
	}

	doc := pattern.Extract(text)
	observeAttempt(string(document.StrategyTextPattern), outcomeOf(doc))
	return p.normalize(doc, document.ProvenancePattern, document.StrategyTextPattern)
}

func (p *Pipeline) fromImage(ctx context.Context, logger *slog.Logger, path string) *document.RecognizedDocument {
	if p.deps.Vision != nil {
		if doc := p.vision(ctx, logger, path); doc.HasItems() {
			observeAttempt(string(document.StrategyVisionLLM), outcomeHit)
			return p.normalize(doc, document.ProvenanceLLM, document.StrategyVisionLLM)
		}
		observeAttempt(string(document.StrategyVisionLLM), outcomeEmpty)
		logger.Info("vision model gave no items, falling back to ocr")
	}

	doc := pattern.Extract(p.ocr(ctx, logger, path))
	observeAttempt(string(document.StrategyOCRPattern), outcomeOf(doc))
	return p.normalize(doc, document.ProvenancePattern, document.StrategyOCRPattern)
}

// vision runs the vision extractor. A PDF's first page is rendered to a
// temporary image that is removed before this returns.
func (p *Pipeline) vision(ctx context.Context, logger *slog.Logger, path string) *document.RecognizedDocument {
	if !document.IsPDF(path) {
		return p.deps.Vision.Extract(ctx, path)
	}
	if p.deps.Rasterizer == nil {
		return nil
	}

	imagePath, cleanup, err := p.deps.Rasterizer.FirstPage(ctx, path)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		logger.Warn("rendering first page for vision failed", "error", err)
		return nil
	}
	return p.deps.Vision.Extract(ctx, imagePath)
}

// ocr returns the text of all pages joined by newlines.
func (p *Pipeline) ocr(ctx context.Context, logger *slog.Logger, path string) string {
	if p.deps.Rasterizer == nil || p.deps.OCR == nil {
		return ""
	}
	pages, err := p.deps.Rasterizer.Pages(ctx, path)
	if err != nil {
		logger.Warn("rendering pages for ocr failed", "error", err)
		return ""
	}

	texts := make([]string, 0, len(pages))
	for i, page := range pages {
		text := p.deps.OCR.ExtractText(ctx, page)
		logger.Debug("ocr page done", "page", i+1, "chars", utf8.RuneCountInString(text))
		texts = append(texts, text)
	}
	return strings.Join(texts, "\n")
}

func (p *Pipeline) normalize(doc *document.RecognizedDocument, prov document.Provenance, strategy document.Strategy) *document.RecognizedDocument {
	doc = p.cfg.Confidence.Apply(doc, prov)
	doc.Strategy = strategy
	return doc
}

func outcomeOf(doc *document.RecognizedDocument) string {
	if doc.HasItems() {
		return outcomeHit
	}
	return outcomeEmpty
}

func strategyLabel(s document.Strategy) string {
	if s == document.StrategyNone {
		return "none"
	}
	return string(s)
}
