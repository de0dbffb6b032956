package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/ttn-recognizer/internal/document"
	"github.com/zombor/ttn-recognizer/internal/export"
	"github.com/zombor/ttn-recognizer/internal/ocr"
	"github.com/zombor/ttn-recognizer/internal/pdf"
	"github.com/zombor/ttn-recognizer/internal/pipeline"
	"github.com/zombor/ttn-recognizer/internal/reception"
	"github.com/zombor/ttn-recognizer/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: loading .env: %v\n", err)
		os.Exit(1)
	}

	fs := ff.NewFlagSet("ttn-recognizer")
	var (
		serve       = fs.BoolLong("serve", "Run the HTTP intake service instead of recognizing FILE arguments")
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "ttn-recognizer.db", "Reception journal file path")
		storagePath = fs.StringLong("storage", "./receptions", "Directory for uploaded files")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		xlsxDir     = fs.StringLong("xlsx", "", "Also write <file>.review.xlsx into this directory")

		logLevel  = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		logFormat = fs.StringLong("log-format", "text", "Log format: text or json")

		provider      = fs.StringLong("llm-provider", "openai", "Language model provider: openai, chatbothub, gemini, ollama or none")
		openAIKey     = fs.StringLong("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY)")
		openAIBaseURL = fs.StringLong("openai-base-url", "", "OpenAI-compatible API base URL")
		openAIModel   = fs.StringLong("openai-model", "gpt-4o-mini", "OpenAI model name")
		hubURL        = fs.StringLong("chatbothub-url", "", "ChatBotHub base URL")
		hubGuestID    = fs.StringLong("chatbothub-guest-id", "", "ChatBotHub guest ID")
		hubSchema     = fs.StringLong("chatbothub-schema", "ttn/parser", "ChatBotHub task schema name")
		hubBot        = fs.StringLong("chatbothub-bot", "ttn-parser", "ChatBotHub bot name")
		hubModel      = fs.StringLong("chatbothub-model", "gpt-4o-mini", "ChatBotHub model name")
		hubInsecure   = fs.BoolLong("chatbothub-insecure", "Skip TLS certificate verification for ChatBotHub")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", scanning.DefaultOllamaModel, "Ollama model name (a vision model that reads Cyrillic tables)")
		textTimeout   = fs.DurationLong("text-timeout", scanning.DefaultTextTimeout, "Timeout for a text model request")
		visionTimeout = fs.DurationLong("vision-timeout", scanning.DefaultVisionTimeout, "Timeout for a vision model request")

		tesseract   = fs.StringLong("tesseract", "tesseract", "Tesseract binary")
		ocrLangs    = fs.StringLong("ocr-languages", "rus+eng", "Tesseract languages")
		ocrPSM      = fs.IntLong("ocr-psm", 6, "Tesseract page segmentation mode")
		ocrOEM      = fs.IntLong("ocr-oem", 3, "Tesseract engine mode")
		tessdataDir = fs.StringLong("tessdata-dir", "", "Tesseract tessdata directory")
		visionDPI   = fs.Float64Long("vision-dpi", 150, "Resolution of the PDF page sent to the vision model")
		ocrDPI      = fs.Float64Long("ocr-dpi", 300, "Resolution of PDF pages sent to OCR")
		maxPages    = fs.IntLong("max-pages", 0, "Maximum PDF pages to OCR (0 = all)")

		minChars    = fs.IntLong("text-layer-min-chars", 50, "A PDF text layer must be longer than this to skip OCR")
		threshold   = fs.Float64Long("threshold", 0.5, "Fields with confidence below this are flagged for review")
		defaultUnit = fs.StringLong("default-unit", "шт", "Unit assumed when none was recognized")
		llmConf     = fs.Float64Long("confidence-llm", 0.9, "Confidence of fields returned by a language model")
		articleConf = fs.Float64Long("confidence-article", 0.7, "Confidence of pattern-matched articles")
		nameConf    = fs.Float64Long("confidence-name", 0.5, "Confidence of pattern-matched names")
		qtyConf     = fs.Float64Long("confidence-quantity", 0.8, "Confidence of pattern-matched quantities")
		unitConf    = fs.Float64Long("confidence-unit", 0.9, "Confidence of pattern-matched units")

		_           = fs.StringLong("config", "", "Config file (one 'flag value' per line)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("TTN_RECOGNIZER"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	logger, err := newLogger(os.Stderr, *logLevel, *logFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scanner, err := scanning.New(ctx, scanning.Config{
		Provider:      *provider,
		OpenAIKey:     firstNonEmpty(*openAIKey, os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL: *openAIBaseURL,
		OpenAIModel:   *openAIModel,
		ChatBotHub: scanning.ChatBotHubConfig{
			BaseURL:            *hubURL,
			GuestID:            *hubGuestID,
			SchemaName:         *hubSchema,
			BotName:            *hubBot,
			Model:              *hubModel,
			InsecureSkipVerify: *hubInsecure,
		},
		GeminiKey:   firstNonEmpty(*geminiKey, os.Getenv("GEMINI_API_KEY")),
		GeminiModel: *geminiModel,
		OllamaURL:   *ollamaURL,
		OllamaModel: *ollamaModel,
	})
	switch {
	case errors.Is(err, document.ErrServiceUnconfigured):
		slog.Warn("Language model disabled, using OCR and patterns only", "provider", *provider, "reason", err)
	case err != nil:
		slog.Error("Failed to initialize language model", "provider", *provider, "error", err)
		os.Exit(1)
	default:
		slog.Info("Language model ready", "provider", *provider)
		defer scanner.Close()
	}

	deps := pipeline.Deps{
		TextLayer: pdf.NewTextLayer(logger),
		Rasterizer: pdf.NewRasterizer(pdf.RasterConfig{
			VisionDPI: *visionDPI,
			OCRDPI:    *ocrDPI,
			MaxPages:  *maxPages,
		}, logger),
		OCR: ocr.New(ocr.Config{
			Tesseract:   *tesseract,
			Languages:   *ocrLangs,
			PSM:         *ocrPSM,
			OEM:         *ocrOEM,
			TessdataDir: *tessdataDir,
		}, logger),
	}
	if scanner != nil {
		deps.Text = scanning.NewTextExtractor(scanner, *textTimeout, logger)
		deps.Vision = scanning.NewVisionExtractor(scanner, *visionTimeout, logger)
	}

	recognizer := pipeline.New(pipeline.Config{
		TextLayerMinChars: *minChars,
		Confidence: document.ConfidenceProfile{
			LLM:             *llmConf,
			PatternArticle:  *articleConf,
			PatternName:     *nameConf,
			PatternQuantity: *qtyConf,
			PatternUnit:     *unitConf,
		},
	}, deps, logger)
	triage := document.NewTriage(document.TriageConfig{Threshold: *threshold, DefaultUnit: *defaultUnit})

	if *serve {
		basicAuth := reception.BasicAuth{Username: *authUser, Password: *authPass}
		if err := runServer(ctx, recognizer, triage, *dbPath, *storagePath, *port, basicAuth); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
		return
	}

	files := fs.GetArgs()
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: no input files (pass FILE arguments or --serve)")
		os.Exit(2)
	}
	if failed := recognizeFiles(ctx, os.Stdout, os.Stderr, recognizer, triage, files, *xlsxDir); failed > 0 {
		os.Exit(1)
	}
}

func runServer(ctx context.Context, recognizer reception.Recognizer, reviewer reception.Reviewer, dbPath, storagePath string, port int, auth reception.BasicAuth) error {
	slog.Info("Initializing database...", "path", dbPath)
	db, err := reception.NewBoltDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := reception.NewLocalStorage(storagePath)
	if err != nil {
		return err
	}

	service := reception.NewService(db, recognizer, reviewer, store)
	server := reception.NewServer(service, auth)
	if auth.Username != "" || auth.Password != "" {
		slog.Info("Basic auth enabled", "user", auth.Username)
	}
	return server.Start(ctx, fmt.Sprintf(":%d", port))
}

type fileResult struct {
	File     string                       `json:"file"`
	Document *document.RecognizedDocument `json:"document"`
	Review   []document.ReviewItem        `json:"review"`
}

// recognizeFiles prints one JSON object per recognized file and returns the
// number of files that could not be processed.
func recognizeFiles(ctx context.Context, stdout, stderr io.Writer, recognizer *pipeline.Pipeline, triage *document.Triage, files []string, xlsxDir string) int {
	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	failed := 0
	for _, path := range files {
		if err := recognizer.Validate(path); err != nil {
			failed++
			if errors.Is(err, document.ErrUnsupportedFormat) {
				fmt.Fprintf(stderr, "%s: unsupported format (expected pdf, png, jpg, jpeg, tiff or bmp)\n", path)
			} else {
				fmt.Fprintf(stderr, "%s: %v\n", path, err)
			}
			continue
		}

		doc := recognizer.Recognize(ctx, path)
		review := triage.Review(doc.Items)
		if err := enc.Encode(fileResult{File: path, Document: doc, Review: review}); err != nil {
			slog.Error("Error encoding result", "file", path, "error", err)
			failed++
			continue
		}

		if xlsxDir != "" {
			if err := writeReviewFile(xlsxDir, path, doc, review); err != nil {
				fmt.Fprintf(stderr, "%s: %v\n", path, err)
				failed++
			}
		}
	}
	return failed
}

func writeReviewFile(dir, path string, doc *document.RecognizedDocument, review []document.ReviewItem) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating xlsx directory: %w", err)
	}
	out := filepath.Join(dir, filepath.Base(path)+".review.xlsx")
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating review sheet: %w", err)
	}
	defer f.Close()

	if err := export.WriteReview(f, doc, review); err != nil {
		return err
	}
	slog.Info("Review sheet written", "path", out)
	return nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
