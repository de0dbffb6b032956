// Package ocr runs the tesseract binary over preprocessed page images.
package ocr

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zombor/ttn-recognizer/internal/document"
)

type Config struct {
	Tesseract   string // binary name or absolute path; default "tesseract"
	Languages   string // default "rus+eng"
	PSM         int    // page segmentation mode; default 6
	OEM         int    // engine mode; default 3
	TessdataDir string
	ScratchDir  string // where preprocessed pages are written; default os.TempDir()
}

// Engine extracts plain text from page images.
type Engine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// New creates an Engine backed by the tesseract binary.
func New(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return NewWithRunner(cfg, execRunner{}, logger)
}

// NewWithRunner creates an Engine that executes commands through runner.
func NewWithRunner(cfg Config, runner Runner, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Languages == "" {
		cfg.Languages = "rus+eng"
	}
	if cfg.PSM <= 0 {
		cfg.PSM = 6
	}
	if cfg.OEM <= 0 {
		cfg.OEM = 3
	}
	return &Engine{cfg: cfg, runner: runner, logger: logger}
}

// ExtractText preprocesses img and returns the recognized text. Failures are
// logged and produce an empty string.
func (e *Engine) ExtractText(ctx context.Context, img image.Image) string {
	text, err := e.extract(ctx, img)
	if err != nil {
		e.logger.Warn("ocr failed", "error", err)
		return ""
	}
	return text
}

func (e *Engine) extract(ctx context.Context, img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("%w: no image", document.ErrOCREngine)
	}

	f, err := os.CreateTemp(e.cfg.ScratchDir, "ttn-ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("%w: creating scratch file: %v", document.ErrOCREngine, err)
	}
	path := f.Name()
	defer os.Remove(path)

	err = png.Encode(f, Preprocess(img))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("%w: writing scratch file: %v", document.ErrOCREngine, err)
	}

	start := time.Now()
	out, stderr, err := e.runner.Run(ctx, e.cfg.Tesseract, e.args(path)...)
	if err != nil {
		return "", fmt.Errorf("%w: tesseract (lang %s, psm %d): %v: %s",
			document.ErrOCREngine, e.cfg.Languages, e.cfg.PSM, err, stderrExcerpt(stderr))
	}

	text := strings.TrimSpace(string(out))
	e.logger.Debug("tesseract finished",
		"lang", e.cfg.Languages,
		"psm", e.cfg.PSM,
		"oem", e.cfg.OEM,
		"chars", utf8.RuneCountInString(text),
		"duration", time.Since(start),
	)
	return text, nil
}

// stderrExcerpt keeps the last line tesseract printed, which names the
// actual problem (missing traineddata, unreadable image).
func stderrExcerpt(stderr []byte) string {
	lines := strings.Split(strings.TrimSpace(string(stderr)), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if r := []rune(last); len(r) > 200 {
		last = string(r[:200])
	}
	return last
}

func (e *Engine) args(path string) []string {
	args := []string{
		path, "stdout",
		"-l", e.cfg.Languages,
		"--psm", strconv.Itoa(e.cfg.PSM),
		"--oem", strconv.Itoa(e.cfg.OEM),
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}
