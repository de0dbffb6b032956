package scanning

import "context"

// Scanner sends a document to an extraction service and returns the JSON
// object the service produced, as text.
type Scanner interface {
	// ScanText extracts TTN data from plain document text
	ScanText(ctx context.Context, text string) (string, error)
	// ScanImage extracts TTN data from a page image; mimeType is one of
	// image/png, image/jpeg or image/webp
	ScanImage(ctx context.Context, imageData []byte, mimeType string) (string, error)
	// Close closes the scanner and releases resources
	Close() error
}
