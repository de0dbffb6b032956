package reception

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/zombor/ttn-recognizer/internal/document"
)

const maxUploadSize = 50 << 20

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// statusFor maps a lookup error to a response code.
func statusFor(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) handleListReceptions(w http.ResponseWriter, r *http.Request) {
	receptions, err := s.service.ListReceptions()
	if err != nil {
		slog.Error("Error listing receptions", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, receptions)
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		msg := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = "File is too large. Maximum size is 50MB."
		}
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Error reading file")
		return
	}

	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = document.MimeType(header.Filename)
	}

	rec, err := s.service.ProcessDocument(r.Context(), header.Filename, data, contentType)
	switch {
	case errors.Is(err, document.ErrUnsupportedFormat):
		writeError(w, http.StatusUnsupportedMediaType, "Unsupported file format. Upload a PDF, JPG, PNG, TIFF or BMP file.")
		return
	case errors.Is(err, document.ErrFileUnreadable):
		writeError(w, http.StatusBadRequest, "The file could not be read")
		return
	case err != nil:
		slog.Error("Error processing document", "filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "Error processing document")
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleGetReception(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.GetReception(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), "Reception not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGetReceptionFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReceptionFile(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func (s *Server) handleExportReview(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var buf bytes.Buffer
	if err := s.service.ExportReview(id, &buf); err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			slog.Error("Error exporting review", "id", id, "error", err)
		}
		writeError(w, code, "Could not export review")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": id + ".review.xlsx"}))
	w.Write(buf.Bytes())
}

func (s *Server) handleDeleteReception(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReception(r.PathValue("id")); err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			slog.Error("Error deleting reception", "error", err)
		}
		writeError(w, code, "Error deleting reception")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
