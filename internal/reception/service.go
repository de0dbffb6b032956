package reception

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/ttn-recognizer/internal/document"
	"github.com/zombor/ttn-recognizer/internal/export"
)

// Recognizer extracts a document from a stored file.
type Recognizer interface {
	Validate(path string) error
	Recognize(ctx context.Context, path string) *document.RecognizedDocument
}

// Reviewer flags recognized items for the operator.
type Reviewer interface {
	Review(items []document.RecognizedItem) []document.ReviewItem
}

// IDGenerator generates reception IDs.
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time.
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Service records incoming TTNs.
type Service struct {
	db          DB
	recognizer  Recognizer
	reviewer    Reviewer
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

func NewService(db DB, recognizer Recognizer, reviewer Reviewer, storage Storage) *Service {
	return NewServiceWithDeps(db, recognizer, reviewer, storage, uuidGenerator{}, systemClock{})
}

// NewServiceWithDeps creates a Service with explicit ID and time sources.
func NewServiceWithDeps(db DB, recognizer Recognizer, reviewer Reviewer, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		recognizer:  recognizer,
		reviewer:    reviewer,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeChars = regexp.MustCompile(`[^\p{L}\p{N}\s\-_]`)
	spaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips punctuation from a client filename and caps its
// length. Letters of any script are kept.
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeChars.ReplaceAllString(base, "")
	base = strings.TrimSpace(spaces.ReplaceAllString(base, " "))

	if r := []rune(base); len(r) > 50 {
		base = strings.TrimSpace(string(r[:50]))
	}
	if base == "" {
		base = "ttn"
	}
	return base + ext
}

// discard removes a stored upload whose reception could not be recorded.
func (s *Service) discard(saved string) {
	if err := s.storage.Delete(saved); err != nil {
		slog.Warn("Failed to delete file", "filename", saved, "error", err)
	}
}

// ProcessDocument stores an uploaded file, recognizes it and records the
// result. A file whose extension cannot be recognized is rejected with an
// error wrapping document.ErrUnsupportedFormat before anything is stored.
func (s *Service) ProcessDocument(ctx context.Context, filename string, data []byte, contentType string) (*Reception, error) {
	if !document.IsSupported(filename) {
		return nil, fmt.Errorf("%w: %s", document.ErrUnsupportedFormat, filename)
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	saved, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	path := s.storage.Path(saved)
	if err := s.recognizer.Validate(path); err != nil {
		s.discard(saved)
		return nil, fmt.Errorf("validating file: %w", err)
	}

	doc := s.recognizer.Recognize(ctx, path)
	if doc == nil {
		doc = document.Empty()
	}
	items := s.reviewer.Review(doc.Items)

	r := &Reception{
		ID:          id,
		Filename:    saved,
		ContentType: contentType,
		Document:    doc,
		Items:       items,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.SaveReception(r); err != nil {
		s.discard(saved)
		return nil, fmt.Errorf("saving reception to database: %w", err)
	}

	slog.Info("TTN received",
		"id", id,
		"filename", filename,
		"strategy", doc.Strategy,
		"items", len(items),
		"manual_entry", r.NeedsManualEntry(),
	)
	return r, nil
}

func (s *Service) GetReception(id string) (*Reception, error) {
	r, err := s.db.GetReception(id)
	if err != nil {
		return nil, fmt.Errorf("getting reception: %w", err)
	}
	return r, nil
}

func (s *Service) ListReceptions() ([]*Reception, error) {
	receptions, err := s.db.ListReceptions()
	if err != nil {
		return nil, fmt.Errorf("listing receptions: %w", err)
	}
	return receptions, nil
}

// DeleteReception removes a reception and its stored file.
func (s *Service) DeleteReception(id string) error {
	r, err := s.db.GetReception(id)
	if err != nil {
		return fmt.Errorf("getting reception for deletion: %w", err)
	}

	if err := s.storage.Delete(r.Filename); err != nil {
		slog.Warn("Failed to delete file", "filename", r.Filename, "error", err)
	}

	if err := s.db.DeleteReception(id); err != nil {
		return fmt.Errorf("deleting reception from database: %w", err)
	}
	return nil
}

// GetReceptionFile returns the uploaded file and its content type.
func (s *Service) GetReceptionFile(id string) ([]byte, string, error) {
	r, err := s.db.GetReception(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting reception: %w", err)
	}

	data, err := s.storage.Get(r.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting reception file: %w", err)
	}
	return data, r.ContentType, nil
}

// ExportReview writes the reception's review sheet to w.
func (s *Service) ExportReview(id string, w io.Writer) error {
	r, err := s.db.GetReception(id)
	if err != nil {
		return fmt.Errorf("getting reception: %w", err)
	}
	if err := export.WriteReview(w, r.Document, r.Items); err != nil {
		return fmt.Errorf("exporting review: %w", err)
	}
	return nil
}
