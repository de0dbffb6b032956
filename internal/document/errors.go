package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedFormat   = errors.New("unsupported file format")
	ErrFileUnreadable      = errors.New("file unreadable")
	ErrServiceUnconfigured = errors.New("extraction service not configured")
	ErrServiceRequest      = errors.New("extraction service request failed")
	ErrServiceResponse     = errors.New("extraction service response invalid")
	ErrOCREngine           = errors.New("ocr engine failure")
)

var supportedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tiff": true,
	".bmp":  true,
}

// Ext returns the lower-cased extension of path.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// IsSupported reports whether the file name has a recognizable extension.
func IsSupported(name string) bool {
	return supportedExtensions[Ext(name)]
}

// IsPDF reports whether the file name has a .pdf extension.
func IsPDF(name string) bool {
	return Ext(name) == ".pdf"
}

// CheckFile returns ErrUnsupportedFormat or ErrFileUnreadable when path cannot
// be handed to the pipeline.
func CheckFile(path string) error {
	if !IsSupported(path) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFileUnreadable, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrFileUnreadable, path)
	}
	return nil
}

// MimeType maps a file extension to the mime type sent with inline images.
func MimeType(path string) string {
	switch Ext(path) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".tiff", ".tif":
		return "image/tiff"
	case ".bmp":
		return "image/bmp"
	case ".pdf":
		return "application/pdf"
	default:
		return "image/jpeg"
	}
}
