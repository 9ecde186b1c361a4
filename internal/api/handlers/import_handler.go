package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/dkazakov/pipesentry/internal/application/services"
)

// Importer is the slice of the import service the handler needs
type Importer interface {
	ImportObjects(ctx context.Context, r io.Reader) (*services.ImportReport, error)
	ImportDiagnostics(ctx context.Context, r io.Reader) (*services.ImportReport, error)
}

// ImportHandler handles CSV upload HTTP requests
type ImportHandler struct {
	importer    Importer
	maxBodySize int64
}

// NewImportHandler creates a new import handler
func NewImportHandler(importer Importer, maxBodySize int64) *ImportHandler {
	if maxBodySize <= 0 {
		maxBodySize = 10 << 20
	}
	return &ImportHandler{
		importer:    importer,
		maxBodySize: maxBodySize,
	}
}

// ImportObjects handles POST /api/import/objects
func (h *ImportHandler) ImportObjects(w http.ResponseWriter, r *http.Request) {
	h.runImport(w, r, h.importer.ImportObjects)
}

// ImportDiagnostics handles POST /api/import/diagnostics
func (h *ImportHandler) ImportDiagnostics(w http.ResponseWriter, r *http.Request) {
	h.runImport(w, r, h.importer.ImportDiagnostics)
}

func (h *ImportHandler) runImport(
	w http.ResponseWriter,
	r *http.Request,
	importFn func(context.Context, io.Reader) (*services.ImportReport, error),
) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	body, cleanup, err := h.csvBody(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	report, err := importFn(r.Context(), body)
	if err != nil {
		respondWithAppError(w, err, "import failed")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"imported": report.Imported,
		"failed":   report.Failed,
		"errors":   report.Errors,
	})
}

// csvBody returns the CSV stream from either a multipart "file" field or
// the raw request body.
func (h *ImportHandler) csvBody(r *http.Request) (io.Reader, func(), error) {
	contentType := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" {
		return r.Body, func() {}, nil
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, nil, errors.New("multipart upload must carry a \"file\" field")
	}
	return file, func() { file.Close() }, nil
}
